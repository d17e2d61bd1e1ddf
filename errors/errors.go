package errors

import (
	"fmt"
	"strings"
)

// OpenFailed indicates that the file under Path could not be opened for
// reading.
type OpenFailed struct {
	Path string
	Err  error
}

func (o OpenFailed) Error() string {
	return fmt.Sprintf("failed opening %s: %s", o.Path, o.Err)
}

func (o OpenFailed) Unwrap() error { return o.Err }

// LockFailed indicates that a shared lock could not be obtained for Path,
// as an incompatible lock is being held elsewhere. Holders contains the PIDs
// of processes that had the file open when the failure happened, in case
// holder lookup was enabled and succeeded.
type LockFailed struct {
	Path    string
	Err     error
	Holders []int32
}

func (l LockFailed) Error() string {
	msg := fmt.Sprintf("failed locking %s", l.Path)
	if len(l.Holders) > 0 {
		pids := make([]string, len(l.Holders))
		for i, pid := range l.Holders {
			pids[i] = fmt.Sprintf("%d", pid)
		}
		msg += fmt.Sprintf(" (open by process %s)", strings.Join(pids, ", "))
	}
	if l.Err != nil {
		msg += ": " + l.Err.Error()
	}
	return msg
}

func (l LockFailed) Unwrap() error { return l.Err }

// ReadFailed indicates that Length bytes were expected at Offset, but the
// underlying file could not provide them.
type ReadFailed struct {
	Path   string
	Offset int64
	Length int64
	Err    error
}

func (r ReadFailed) Error() string {
	return fmt.Sprintf("failed reading %d bytes at offset %d of %s: %s", r.Length, r.Offset, r.Path, r.Err)
}

func (r ReadFailed) Unwrap() error { return r.Err }

// InvalidPosition indicates that a cursor was asked to move to a position
// outside its valid range. Limit holds the largest accepted position, or -1
// when no upper bound applies.
type InvalidPosition struct {
	Position int64
	Limit    int64
}

func (i InvalidPosition) Error() string {
	if i.Limit < 0 {
		return fmt.Sprintf("invalid position %d", i.Position)
	}
	return fmt.Sprintf("invalid position %d: must be between 0 and %d", i.Position, i.Limit)
}

// BufferTooSmall indicates that a record cursor was configured with a scan
// buffer unable to hold at least two delimiters.
type BufferTooSmall struct {
	BufferSize      int
	DelimiterLength int
}

func (b BufferTooSmall) Error() string {
	return fmt.Sprintf("buffer size %d is too small for a delimiter of %d bytes; at least %d bytes are required",
		b.BufferSize, b.DelimiterLength, b.DelimiterLength*2)
}

// InvalidDelimiter indicates that a record cursor was configured with an
// empty delimiter.
type InvalidDelimiter struct{}

func (InvalidDelimiter) Error() string {
	return "record delimiter cannot be empty"
}

// Closed indicates that an operation was attempted on a cursor or handle
// after it was closed.
type Closed struct {
	Path string
}

func (c Closed) Error() string {
	return fmt.Sprintf("%s: cursor has already been closed", c.Path)
}

// CorruptSnapshot indicates that a serialized cursor snapshot could not be
// decoded, or contains values no cursor could have produced.
type CorruptSnapshot struct {
	Reason string
	Err    error
}

func (c CorruptSnapshot) Error() string {
	if c.Err != nil {
		return fmt.Sprintf("corrupt snapshot: %s: %s", c.Reason, c.Err)
	}
	return fmt.Sprintf("corrupt snapshot: %s", c.Reason)
}

func (c CorruptSnapshot) Unwrap() error { return c.Err }
