package filecursor

import (
	errs "errors"
	"runtime"
	"slices"

	"github.com/go-stdlog/stdlog"

	"github.com/heyvito/filecursor/errors"
	"github.com/heyvito/filecursor/internal"
	"github.com/heyvito/filecursor/internal/metrics"
)

// DefaultBufferSize is the amount of bytes read at once while discovering
// record boundaries.
const DefaultBufferSize = 1024

// DefaultDelimiter is the platform's line terminator.
var DefaultDelimiter = defaultDelimiter()

func defaultDelimiter() string {
	if runtime.GOOS == "windows" {
		return "\r\n"
	}
	return "\n"
}

// RecordCursor walks a file one record at a time, records being the spans of
// bytes between occurrences of a delimiter. The file does not need to end
// with a delimiter; when it does, the last record is empty.
//
// Record boundaries are discovered lazily as positions are requested, and
// are kept for the lifetime of the cursor: moving backwards never rescans
// the file.
type RecordCursor struct {
	path     string
	position int64

	current    []byte
	hasCurrent bool

	index  *internal.PositionIndex
	handle *internal.FileHandle
	// source feeds index scans. It is the handle itself outside of tests.
	source internal.ScanSource
	config Config
	log    stdlog.Logger
}

// OpenLineCursor opens a RecordCursor using DefaultDelimiter and
// DefaultBufferSize.
func OpenLineCursor(path string, config Config) (*RecordCursor, error) {
	return OpenRecordCursor(path, DefaultDelimiter, DefaultBufferSize, config)
}

// OpenRecordCursor opens the file at path and positions a new cursor at its
// first record. Besides the errors returned by OpenByteCursor, returns
// errors.InvalidDelimiter for an empty delimiter, and errors.BufferTooSmall
// in case bufferSize is less than twice the length of delimiter.
func OpenRecordCursor(path, delimiter string, bufferSize int, config Config) (*RecordCursor, error) {
	metrics.Simple(metrics.CursorOpenCalls, 0)
	done := metrics.Measure(metrics.CursorOpenLatency)

	idx, err := internal.NewPositionIndex([]byte(delimiter), bufferSize, config.GetLogger())
	if err != nil {
		metrics.Simple(metrics.CursorOpenFailures, 0)
		return nil, err
	}

	c, err := newRecordCursor(path, 0, idx, config)
	if err != nil {
		return nil, err
	}
	done()
	return c, nil
}

func newRecordCursor(path string, position int64, idx *internal.PositionIndex, config Config) (*RecordCursor, error) {
	log := config.GetLogger()
	handle, err := openHandle(path, config)
	if err != nil {
		log.Error(err, "Failed opening record cursor", "path", path)
		return nil, err
	}

	c := &RecordCursor{
		path:     path,
		position: position,
		index:    idx,
		handle:   handle,
		source:   handle,
		config:   config,
		log:      log,
	}
	if err = c.materialize(); err != nil {
		return nil, errs.Join(err, handle.Close())
	}

	log.Debug("Record cursor opened", "path", path,
		"delimiter", string(idx.Delimiter()),
		"buffer_size", idx.BufferSize(),
		"position", position,
		"known_records", idx.KnownRecords())
	return c, nil
}

// materialize loads the record under the current position, extending the
// index as needed. After a failed read the cursor reports itself as
// exhausted until it is successfully repositioned.
func (c *RecordCursor) materialize() error {
	c.current = nil
	c.hasCurrent = false

	if err := c.index.EnsureRecord(c.source, c.position); err != nil {
		c.log.Error(err, "Failed extending index", "path", c.path, "position", c.position)
		return err
	}

	offset, length, ok := c.index.Record(c.position)
	if !ok {
		return nil
	}
	if length == 0 {
		c.current = []byte{}
		c.hasCurrent = true
		return nil
	}

	data, err := c.handle.ReadAt(offset, length)
	if err != nil {
		c.log.Error(err, "Failed reading record", "path", c.path, "position", c.position, "offset", offset)
		return err
	}
	c.current = data
	c.hasCurrent = true
	return nil
}

func (c *RecordCursor) closedErr() error {
	return errors.Closed{Path: c.path}
}

// Path returns the path of the file the cursor walks.
func (c *RecordCursor) Path() string { return c.path }

// Delimiter returns the record delimiter.
func (c *RecordCursor) Delimiter() string { return string(c.index.Delimiter()) }

// BufferSize returns the amount of bytes read at once while scanning.
func (c *RecordCursor) BufferSize() int { return c.index.BufferSize() }

// IndexedRecords returns the amount of records whose boundaries have been
// discovered so far, and whether the whole file has already been indexed.
func (c *RecordCursor) IndexedRecords() (int64, bool) {
	return c.index.KnownRecords(), c.index.Complete()
}

// IsClosed returns whether Close has already been called.
func (c *RecordCursor) IsClosed() bool { return c.handle.IsClosed() }

// Current returns a copy of the record under the cursor. The returned flag is
// false when the cursor is exhausted.
func (c *RecordCursor) Current() ([]byte, bool, error) {
	if c.IsClosed() {
		return nil, false, c.closedErr()
	}
	if !c.hasCurrent {
		return nil, false, nil
	}
	return slices.Clone(c.current), true, nil
}

func (c *RecordCursor) Advance() error {
	if c.IsClosed() {
		return c.closedErr()
	}
	if !c.hasCurrent {
		return nil
	}
	c.position++
	return c.materialize()
}

func (c *RecordCursor) Position() (int64, bool, error) {
	if c.IsClosed() {
		return 0, false, c.closedErr()
	}
	if !c.hasCurrent {
		return 0, false, nil
	}
	return c.position, true, nil
}

func (c *RecordCursor) IsExhausted() (bool, error) {
	if c.IsClosed() {
		return false, c.closedErr()
	}
	return !c.hasCurrent, nil
}

func (c *RecordCursor) Restart() error {
	if c.IsClosed() {
		return c.closedErr()
	}
	c.position = 0
	return c.materialize()
}

// Seek moves the cursor to record pos. Positions past the last record are
// accepted, and leave the cursor exhausted.
func (c *RecordCursor) Seek(pos int64) error {
	if c.IsClosed() {
		return c.closedErr()
	}
	if pos < 0 {
		return errors.InvalidPosition{Position: pos, Limit: -1}
	}
	c.position = pos
	return c.materialize()
}

// ForEach restarts the cursor and calls fn for every record until the cursor
// is exhausted or fn returns false. The slice passed to fn is only valid
// until fn returns.
func (c *RecordCursor) ForEach(fn func(pos int64, record []byte) bool) error {
	if err := c.Restart(); err != nil {
		return err
	}
	for c.hasCurrent {
		if !fn(c.position, c.current) {
			return nil
		}
		if err := c.Advance(); err != nil {
			return err
		}
	}
	return nil
}

// Clone returns an independent cursor over the same file, positioned where
// this cursor is. The clone acquires its own handle and lock, and starts with
// a copy of the records indexed so far.
func (c *RecordCursor) Clone() (*RecordCursor, error) {
	if c.IsClosed() {
		return nil, c.closedErr()
	}
	metrics.Simple(metrics.CursorCloneCalls, 0)

	handle, err := openHandle(c.path, c.config)
	if err != nil {
		c.log.Error(err, "Failed cloning record cursor", "path", c.path)
		return nil, err
	}
	clone := *c
	clone.handle = handle
	clone.source = handle
	clone.index = c.index.Clone()
	clone.current = slices.Clone(c.current)
	return &clone, nil
}

func (c *RecordCursor) Suspend() (Snapshot, error) {
	if c.IsClosed() {
		return Snapshot{}, c.closedErr()
	}
	return Snapshot{
		Kind:          KindRecord,
		Path:          c.path,
		Position:      c.position,
		Delimiter:     string(c.index.Delimiter()),
		BufferSize:    c.index.BufferSize(),
		IndexEntries:  c.index.Entries(),
		IndexComplete: c.index.Complete(),
	}, nil
}

// Close releases the cursor's handle. Calling Close more than once is a
// no-op.
func (c *RecordCursor) Close() error {
	if c.IsClosed() {
		return nil
	}
	metrics.Simple(metrics.CursorCloseCalls, 0)
	c.position = 0
	c.current = nil
	c.hasCurrent = false
	return c.handle.Close()
}
