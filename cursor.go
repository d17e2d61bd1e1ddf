package filecursor

import (
	errs "errors"
	"fmt"
	"strconv"

	"github.com/heyvito/filecursor/errors"
	"github.com/heyvito/filecursor/internal"
	"github.com/heyvito/filecursor/internal/metrics"
)

// Cursor is the navigation surface shared by ByteCursor and RecordCursor.
// Cursors are not safe for concurrent use. Once Close is called, every
// method other than Close and IsClosed returns errors.Closed.
type Cursor interface {
	// Advance moves the cursor to the next position. Advancing an exhausted
	// cursor has no effect.
	Advance() error

	// Restart moves the cursor back to its first position.
	Restart() error

	// Seek moves the cursor to the provided position, returning
	// errors.InvalidPosition in case it is out of range.
	Seek(pos int64) error

	// Position returns the cursor's current position. The returned flag is
	// false once the cursor is exhausted.
	Position() (int64, bool, error)

	// IsExhausted returns whether the cursor has moved past its last
	// position.
	IsExhausted() (bool, error)

	// Suspend captures the cursor's state as plain data, which can later be
	// passed to Resume, possibly by another process.
	Suspend() (Snapshot, error)

	// Close releases the cursor's file handle and lock.
	Close() error

	// IsClosed returns whether Close has already been called.
	IsClosed() bool
}

var (
	_ Cursor = (*ByteCursor)(nil)
	_ Cursor = (*RecordCursor)(nil)
)

// Mode determines what a ByteCursor yields for each position.
type Mode uint8

const (
	// ModeChar yields bytes as single-byte strings.
	ModeChar Mode = iota
	// ModeCode yields the numeric code of each byte.
	ModeCode
)

func (m Mode) valid() bool { return m == ModeChar || m == ModeCode }

func (m Mode) String() string {
	switch m {
	case ModeChar:
		return "char"
	case ModeCode:
		return "code"
	default:
		return fmt.Sprintf("Mode(%d)", uint8(m))
	}
}

func (m Mode) MarshalText() ([]byte, error) {
	if !m.valid() {
		return nil, fmt.Errorf("unknown mode %d", uint8(m))
	}
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(text []byte) error {
	switch string(text) {
	case "char":
		*m = ModeChar
	case "code":
		*m = ModeCode
	default:
		return fmt.Errorf("unknown mode %q", text)
	}
	return nil
}

// Value is the content of a ByteCursor position, rendered according to the
// cursor's Mode.
type Value struct {
	Mode Mode
	Byte byte
}

// Code returns the numeric code of the byte, regardless of Mode.
func (v Value) Code() int { return int(v.Byte) }

// String returns the byte itself in ModeChar, or its decimal code in
// ModeCode.
func (v Value) String() string {
	if v.Mode == ModeCode {
		return strconv.Itoa(int(v.Byte))
	}
	return string([]byte{v.Byte})
}

func openHandle(path string, config Config) (*internal.FileHandle, error) {
	h, err := internal.OpenFileHandle(path, config)
	if err != nil {
		metrics.Simple(metrics.CursorOpenFailures, 0)
		var lockErr errors.LockFailed
		if errs.As(err, &lockErr) {
			metrics.Simple(metrics.CursorLockFailures, 0)
		}
		return nil, err
	}
	return h, nil
}
