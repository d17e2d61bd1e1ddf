package internal

import (
	"bytes"
	errs "errors"
	"fmt"
	"io"
	"slices"

	"github.com/go-stdlog/stdlog"

	"github.com/heyvito/filecursor/errors"
	"github.com/heyvito/filecursor/internal/metrics"
)

// ScanSource is the minimal set of operations PositionIndex requires from a
// file in order to discover record boundaries. FileHandle implements it.
type ScanSource interface {
	Seek(offset int64) error
	Tell() (int64, error)
	Read(p []byte) (int, error)
}

// PositionIndex maps record numbers to byte offsets. Entry k holds the offset
// at which record k starts; record k ends where record k+1 starts, minus the
// delimiter. Once the whole file has been scanned, the last entry holds the
// end-of-data offset, and the last record carries no delimiter.
//
// Entries are only ever appended. An index is discovered lazily by
// EnsureRecord, one bounded buffer at a time.
type PositionIndex struct {
	entries    []int64
	complete   bool
	delimiter  []byte
	bufferSize int
	log        stdlog.Logger
}

func validateIndexConfig(delimiter []byte, bufferSize int) error {
	if len(delimiter) == 0 {
		return errors.InvalidDelimiter{}
	}
	if bufferSize < 2*len(delimiter) {
		return errors.BufferTooSmall{BufferSize: bufferSize, DelimiterLength: len(delimiter)}
	}
	return nil
}

// NewPositionIndex returns an empty index for records separated by delimiter,
// scanned bufferSize bytes at a time. Returns errors.InvalidDelimiter for an
// empty delimiter, and errors.BufferTooSmall in case bufferSize cannot hold
// two delimiters.
func NewPositionIndex(delimiter []byte, bufferSize int, log stdlog.Logger) (*PositionIndex, error) {
	if err := validateIndexConfig(delimiter, bufferSize); err != nil {
		return nil, err
	}
	return &PositionIndex{
		entries:    []int64{0},
		delimiter:  slices.Clone(delimiter),
		bufferSize: bufferSize,
		log:        log.Named("index"),
	}, nil
}

// RestorePositionIndex rebuilds an index from previously discovered entries.
// Entries are validated against the invariants an index maintains while
// being built, and errors.CorruptSnapshot is returned when they do not hold.
func RestorePositionIndex(entries []int64, complete bool, delimiter []byte, bufferSize int, log stdlog.Logger) (*PositionIndex, error) {
	if err := validateIndexConfig(delimiter, bufferSize); err != nil {
		return nil, err
	}
	if len(entries) == 0 || entries[0] != 0 {
		return nil, errors.CorruptSnapshot{Reason: "index must start at offset 0"}
	}
	if complete && len(entries) < 2 {
		return nil, errors.CorruptSnapshot{Reason: "complete index lacks its end offset"}
	}
	for i := 1; i < len(entries); i++ {
		prev, cur := entries[i-1], entries[i]
		// Only the end offset of a complete index may repeat its predecessor,
		// representing an empty trailing record.
		if cur < prev || (cur == prev && !(complete && i == len(entries)-1)) {
			return nil, errors.CorruptSnapshot{Reason: fmt.Sprintf("index entry %d (%d) does not follow %d", i, cur, prev)}
		}
	}
	return &PositionIndex{
		entries:    slices.Clone(entries),
		complete:   complete,
		delimiter:  slices.Clone(delimiter),
		bufferSize: bufferSize,
		log:        log.Named("index"),
	}, nil
}

func (p *PositionIndex) Delimiter() []byte { return slices.Clone(p.delimiter) }

func (p *PositionIndex) BufferSize() int { return p.bufferSize }

// Complete returns whether the whole file has already been scanned.
func (p *PositionIndex) Complete() bool { return p.complete }

// Len returns the amount of entries known so far.
func (p *PositionIndex) Len() int { return len(p.entries) }

// Entries returns a copy of all entries known so far.
func (p *PositionIndex) Entries() []int64 { return slices.Clone(p.entries) }

// KnownRecords returns the amount of records whose boundaries are already
// known.
func (p *PositionIndex) KnownRecords() int64 { return int64(len(p.entries)) - 1 }

// Clone returns an independent copy of the index. Growing either copy does
// not affect the other.
func (p *PositionIndex) Clone() *PositionIndex {
	return &PositionIndex{
		entries:    slices.Clone(p.entries),
		complete:   p.complete,
		delimiter:  slices.Clone(p.delimiter),
		bufferSize: p.bufferSize,
		log:        p.log,
	}
}

// EnsureRecord scans src until record n is bounded by two known entries, or
// until the whole file has been indexed.
func (p *PositionIndex) EnsureRecord(src ScanSource, n int64) error {
	for !p.complete && n > int64(len(p.entries))-2 {
		if err := p.extend(src); err != nil {
			return err
		}
	}
	return nil
}

// Exhausted returns whether n lies past the last record of a complete index.
func (p *PositionIndex) Exhausted(n int64) bool {
	return p.complete && n >= int64(len(p.entries))-1
}

// Record returns the byte range of record n. ok is false when record n is
// not bounded by known entries. Callers are expected to call EnsureRecord
// beforehand.
func (p *PositionIndex) Record(n int64) (offset, length int64, ok bool) {
	last := int64(len(p.entries)) - 1
	if n < 0 || n >= last {
		return 0, 0, false
	}
	offset = p.entries[n]
	end := p.entries[n+1]
	if !p.complete || n != last-1 {
		end -= int64(len(p.delimiter))
	}
	return offset, max(end-offset, 0), true
}

// extend reads buffers from the last known entry onwards until at least one
// new entry has been appended, or the end of the file is reached.
func (p *PositionIndex) extend(src ScanSource) error {
	if p.complete {
		return nil
	}
	metrics.Simple(metrics.IndexExtendCalls, 0)
	defer metrics.Measure(metrics.IndexExtendLatency)()

	dl := len(p.delimiter)
	from := p.entries[len(p.entries)-1]
	if err := src.Seek(from); err != nil {
		return err
	}

	buf := make([]byte, p.bufferSize)
	appended := 0
	var scanned int64
	for appended == 0 && !p.complete {
		bufStart, err := src.Tell()
		if err != nil {
			return err
		}
		n, err := src.Read(buf)
		if err != nil && !errs.Is(err, io.EOF) {
			return err
		}
		scanned += int64(n)

		chunk := buf[:n]
		for at := 0; ; {
			i := bytes.Index(chunk[at:], p.delimiter)
			if i < 0 {
				break
			}
			at += i + dl
			p.entries = append(p.entries, bufStart+int64(at))
			appended++
		}

		if n < p.bufferSize {
			p.entries = append(p.entries, bufStart+int64(n))
			p.complete = true
			metrics.Simple(metrics.IndexCompletions, 0)
			break
		}

		// A delimiter may straddle this buffer and the next one. Re-reading
		// its possible prefix is enough to find it on the next pass.
		if appended == 0 && dl > 1 {
			if err = src.Seek(bufStart + int64(n) - int64(dl-1)); err != nil {
				return err
			}
			metrics.Simple(metrics.IndexRewinds, 0)
		}
	}

	metrics.Simple(metrics.IndexBytesScanned, float64(scanned))
	metrics.Simple(metrics.IndexEntriesAppended, float64(appended))
	p.log.Debug("Index extended", "from", from, "scanned", scanned, "appended", appended, "complete", p.complete)
	return nil
}
