package filecursor

import (
	errs "errors"
	"fmt"
	"io"

	"github.com/go-stdlog/stdlog"

	"github.com/heyvito/filecursor/errors"
	"github.com/heyvito/filecursor/internal"
	"github.com/heyvito/filecursor/internal/metrics"
)

// ByteCursor walks a file one byte at a time. Position i holds the i-th byte
// of the file. The file size is captured when the cursor is opened or
// resumed.
type ByteCursor struct {
	path   string
	mode   Mode
	size   int64
	offset int64

	current    byte
	hasCurrent bool

	handle *internal.FileHandle
	config Config
	log    stdlog.Logger
}

// OpenByteCursor opens the file at path and positions a new cursor at its
// first byte. Returns errors.OpenFailed in case the file cannot be read, or
// errors.LockFailed in case a shared lock cannot be obtained.
func OpenByteCursor(path string, mode Mode, config Config) (*ByteCursor, error) {
	metrics.Simple(metrics.CursorOpenCalls, 0)
	done := metrics.Measure(metrics.CursorOpenLatency)

	c, err := newByteCursor(path, mode, 0, config)
	if err != nil {
		return nil, err
	}
	done()
	return c, nil
}

func newByteCursor(path string, mode Mode, offset int64, config Config) (*ByteCursor, error) {
	if !mode.valid() {
		return nil, fmt.Errorf("unknown mode %d", uint8(mode))
	}

	log := config.GetLogger()
	handle, err := openHandle(path, config)
	if err != nil {
		log.Error(err, "Failed opening byte cursor", "path", path)
		return nil, err
	}

	size, err := handle.Size()
	if err != nil {
		return nil, errs.Join(err, handle.Close())
	}

	if offset > size {
		err = errors.ReadFailed{Path: path, Offset: offset, Length: 1, Err: io.ErrUnexpectedEOF}
		log.Error(err, "Position lies beyond the end of file", "path", path, "offset", offset, "size", size)
		return nil, errs.Join(err, handle.Close())
	}

	c := &ByteCursor{
		path:   path,
		mode:   mode,
		size:   size,
		offset: offset,
		handle: handle,
		config: config,
		log:    log,
	}
	if err = c.materialize(); err != nil {
		return nil, errs.Join(err, handle.Close())
	}

	log.Debug("Byte cursor opened", "path", path, "mode", mode, "size", size, "offset", offset)
	return c, nil
}

// materialize loads the byte under the current offset. A failed read leaves
// the cursor with a size of zero, so it reports itself as exhausted from then
// on.
func (c *ByteCursor) materialize() error {
	c.hasCurrent = false
	if c.offset >= c.size {
		return nil
	}
	data, err := c.handle.ReadAt(c.offset, 1)
	if err != nil {
		c.log.Error(err, "Failed reading byte", "path", c.path, "offset", c.offset)
		c.size = 0
		return err
	}
	c.current = data[0]
	c.hasCurrent = true
	return nil
}

func (c *ByteCursor) closedErr() error {
	return errors.Closed{Path: c.path}
}

// Path returns the path of the file the cursor walks.
func (c *ByteCursor) Path() string { return c.path }

// Mode returns the mode the cursor was opened with.
func (c *ByteCursor) Mode() Mode { return c.mode }

// Len returns the size of the file, as captured when the cursor was opened.
// Returns zero once the cursor is closed.
func (c *ByteCursor) Len() int64 { return c.size }

// IsClosed returns whether Close has already been called.
func (c *ByteCursor) IsClosed() bool { return c.handle.IsClosed() }

// Current returns the byte under the cursor. The returned flag is false when
// the cursor is exhausted.
func (c *ByteCursor) Current() (Value, bool, error) {
	if c.IsClosed() {
		return Value{}, false, c.closedErr()
	}
	if !c.hasCurrent {
		return Value{}, false, nil
	}
	return Value{Mode: c.mode, Byte: c.current}, true, nil
}

func (c *ByteCursor) Advance() error {
	if c.IsClosed() {
		return c.closedErr()
	}
	if c.offset >= c.size {
		return nil
	}
	c.offset++
	return c.materialize()
}

func (c *ByteCursor) Position() (int64, bool, error) {
	if c.IsClosed() {
		return 0, false, c.closedErr()
	}
	if c.offset >= c.size {
		return 0, false, nil
	}
	return c.offset, true, nil
}

func (c *ByteCursor) IsExhausted() (bool, error) {
	if c.IsClosed() {
		return false, c.closedErr()
	}
	return c.offset >= c.size, nil
}

func (c *ByteCursor) Restart() error {
	if c.IsClosed() {
		return c.closedErr()
	}
	c.offset = 0
	return c.materialize()
}

// Seek moves the cursor to byte pos. Seeking to exactly Len is allowed, and
// leaves the cursor exhausted.
func (c *ByteCursor) Seek(pos int64) error {
	if c.IsClosed() {
		return c.closedErr()
	}
	if pos < 0 || pos > c.size {
		return errors.InvalidPosition{Position: pos, Limit: c.size}
	}
	c.offset = pos
	return c.materialize()
}

// ForEach restarts the cursor and calls fn for every byte until the cursor is
// exhausted or fn returns false.
func (c *ByteCursor) ForEach(fn func(pos int64, v Value) bool) error {
	if err := c.Restart(); err != nil {
		return err
	}
	for c.hasCurrent {
		if !fn(c.offset, Value{Mode: c.mode, Byte: c.current}) {
			return nil
		}
		if err := c.Advance(); err != nil {
			return err
		}
	}
	return nil
}

// Clone returns an independent cursor over the same file, positioned where
// this cursor is. The clone acquires its own handle and lock.
func (c *ByteCursor) Clone() (*ByteCursor, error) {
	if c.IsClosed() {
		return nil, c.closedErr()
	}
	metrics.Simple(metrics.CursorCloneCalls, 0)

	handle, err := openHandle(c.path, c.config)
	if err != nil {
		c.log.Error(err, "Failed cloning byte cursor", "path", c.path)
		return nil, err
	}
	clone := *c
	clone.handle = handle
	return &clone, nil
}

func (c *ByteCursor) Suspend() (Snapshot, error) {
	if c.IsClosed() {
		return Snapshot{}, c.closedErr()
	}
	return Snapshot{
		Kind:     KindByte,
		Path:     c.path,
		Position: c.offset,
		Mode:     c.mode,
	}, nil
}

// Close releases the cursor's handle. Calling Close more than once is a
// no-op.
func (c *ByteCursor) Close() error {
	if c.IsClosed() {
		return nil
	}
	metrics.Simple(metrics.CursorCloseCalls, 0)
	c.size = 0
	c.offset = 0
	c.hasCurrent = false
	return c.handle.Close()
}
