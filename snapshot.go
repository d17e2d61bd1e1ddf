package filecursor

import (
	"fmt"

	"github.com/goccy/go-json"

	"github.com/heyvito/filecursor/errors"
	"github.com/heyvito/filecursor/internal"
	"github.com/heyvito/filecursor/internal/metrics"
)

// SnapshotKind identifies which cursor produced a Snapshot.
type SnapshotKind uint8

const (
	KindByte SnapshotKind = iota + 1
	KindRecord
)

func (k SnapshotKind) String() string {
	switch k {
	case KindByte:
		return "byte"
	case KindRecord:
		return "record"
	default:
		return fmt.Sprintf("SnapshotKind(%d)", uint8(k))
	}
}

func (k SnapshotKind) MarshalText() ([]byte, error) {
	if k != KindByte && k != KindRecord {
		return nil, fmt.Errorf("unknown snapshot kind %d", uint8(k))
	}
	return []byte(k.String()), nil
}

func (k *SnapshotKind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "byte":
		*k = KindByte
	case "record":
		*k = KindRecord
	default:
		return fmt.Errorf("unknown snapshot kind %q", text)
	}
	return nil
}

// Snapshot is the state of a suspended cursor. It carries no descriptor or
// lock; resuming it acquires fresh ones. Mode only applies to byte cursors;
// Delimiter, BufferSize and the index fields only apply to record cursors.
type Snapshot struct {
	Kind          SnapshotKind `json:"kind"`
	Path          string       `json:"path"`
	Position      int64        `json:"position"`
	Mode          Mode         `json:"mode,omitempty"`
	Delimiter     string       `json:"delimiter,omitempty"`
	BufferSize    int          `json:"buffer_size,omitempty"`
	IndexEntries  []int64      `json:"index_entries,omitempty"`
	IndexComplete bool         `json:"index_complete,omitempty"`
}

// EncodeSnapshot returns the JSON representation of s.
func EncodeSnapshot(s Snapshot) ([]byte, error) {
	return json.Marshal(s)
}

// DecodeSnapshot parses a snapshot previously produced by EncodeSnapshot.
// Returns errors.CorruptSnapshot in case data cannot be parsed.
func DecodeSnapshot(data []byte) (Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return Snapshot{}, errors.CorruptSnapshot{Reason: "invalid json", Err: err}
	}
	return s, nil
}

// MarshalBinary returns a compact binary representation of s, suited for
// snapshots carrying large indexes.
func (s Snapshot) MarshalBinary() ([]byte, error) {
	rec := internal.SnapshotRecord{
		Kind:       uint8(s.Kind),
		Mode:       uint8(s.Mode),
		Complete:   s.IndexComplete,
		Position:   s.Position,
		BufferSize: int64(s.BufferSize),
		Path:       s.Path,
		Delimiter:  []byte(s.Delimiter),
		Entries:    s.IndexEntries,
	}
	return rec.Write(), nil
}

// UnmarshalBinary decodes data produced by MarshalBinary into s. Returns
// errors.CorruptSnapshot in case data is damaged.
func (s *Snapshot) UnmarshalBinary(data []byte) error {
	var rec internal.SnapshotRecord
	if err := rec.Read(data); err != nil {
		return err
	}
	*s = Snapshot{
		Kind:          SnapshotKind(rec.Kind),
		Path:          rec.Path,
		Position:      rec.Position,
		Mode:          Mode(rec.Mode),
		Delimiter:     string(rec.Delimiter),
		BufferSize:    int(rec.BufferSize),
		IndexEntries:  rec.Entries,
		IndexComplete: rec.Complete,
	}
	return nil
}

// Resume reopens the cursor described by s, dispatching on its kind.
func Resume(s Snapshot, config Config) (Cursor, error) {
	switch s.Kind {
	case KindByte:
		c, err := ResumeByteCursor(s, config)
		if err != nil {
			return nil, err
		}
		return c, nil
	case KindRecord:
		c, err := ResumeRecordCursor(s, config)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, errors.CorruptSnapshot{Reason: fmt.Sprintf("unknown kind %d", uint8(s.Kind))}
	}
}

// ResumeByteCursor reopens a byte cursor suspended by ByteCursor.Suspend. The
// file size is recomputed; a position beyond the new end of the file fails
// with errors.ReadFailed.
func ResumeByteCursor(s Snapshot, config Config) (*ByteCursor, error) {
	if s.Kind != KindByte {
		return nil, errors.CorruptSnapshot{Reason: fmt.Sprintf("expected a byte cursor snapshot, found %s", s.Kind)}
	}
	if !s.Mode.valid() {
		return nil, errors.CorruptSnapshot{Reason: fmt.Sprintf("unknown mode %d", uint8(s.Mode))}
	}
	if s.Position < 0 {
		return nil, errors.InvalidPosition{Position: s.Position, Limit: -1}
	}
	metrics.Simple(metrics.CursorResumeCalls, 0)
	return newByteCursor(s.Path, s.Mode, s.Position, config)
}

// ResumeRecordCursor reopens a record cursor suspended by
// RecordCursor.Suspend. Records already present in the snapshot's index are
// not scanned again.
func ResumeRecordCursor(s Snapshot, config Config) (*RecordCursor, error) {
	if s.Kind != KindRecord {
		return nil, errors.CorruptSnapshot{Reason: fmt.Sprintf("expected a record cursor snapshot, found %s", s.Kind)}
	}
	if s.Position < 0 {
		return nil, errors.InvalidPosition{Position: s.Position, Limit: -1}
	}
	metrics.Simple(metrics.CursorResumeCalls, 0)

	idx, err := internal.RestorePositionIndex(s.IndexEntries, s.IndexComplete, []byte(s.Delimiter), s.BufferSize, config.GetLogger())
	if err != nil {
		return nil, err
	}
	return newRecordCursor(s.Path, s.Position, idx, config)
}
