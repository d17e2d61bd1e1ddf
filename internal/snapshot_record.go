package internal

import (
	"encoding/binary"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/xxh3"

	"github.com/heyvito/filecursor/errors"
)

// Both are documented as safe for concurrent use, and are expensive to build.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	if zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest)); err != nil {
		panic(fmt.Sprintf("filecursor: failed creating zstd encoder: %s", err))
	}
	if zstdDecoder, err = zstd.NewReader(nil); err != nil {
		panic(fmt.Sprintf("filecursor: failed creating zstd decoder: %s", err))
	}
}

// SnapshotRecord is the binary representation of a suspended cursor. The
// layout is a fixed-size big endian header, followed by the path, the
// delimiter, the zstd-compressed index entries (delta-encoded as uvarints),
// and an xxh3 checksum of everything preceding it.
type SnapshotRecord struct {
	Kind       uint8
	Mode       uint8
	Complete   bool
	Position   int64
	BufferSize int64
	Path       string
	Delimiter  []byte
	Entries    []int64
}

func (s *SnapshotRecord) Write() []byte {
	var deltas []byte
	var prev uint64
	for _, e := range s.Entries {
		deltas = binary.AppendUvarint(deltas, uint64(e)-prev)
		prev = uint64(e)
	}
	var entries []byte
	if len(deltas) > 0 {
		entries = zstdEncoder.EncodeAll(deltas, nil)
	}

	size := snapshotHeaderSize + len(s.Path) + len(s.Delimiter) + len(entries) + snapshotSumSize
	b := make([]byte, snapshotHeaderSize, size)
	b[snapshotOffsets.Version] = SnapshotVersion
	b[snapshotOffsets.Kind] = s.Kind
	b[snapshotOffsets.Mode] = s.Mode
	flags := byte(0x00)
	if s.Complete {
		flags |= snapshotFlagComplete
	}
	b[snapshotOffsets.Flags] = flags
	be.PutUint64(b[snapshotOffsets.Position:], uint64(s.Position))
	be.PutUint64(b[snapshotOffsets.BufferSize:], uint64(s.BufferSize))
	be.PutUint32(b[snapshotOffsets.PathLength:], uint32(len(s.Path)))
	be.PutUint32(b[snapshotOffsets.DelimiterLength:], uint32(len(s.Delimiter)))
	be.PutUint32(b[snapshotOffsets.EntriesLength:], uint32(len(entries)))
	be.PutUint64(b[snapshotOffsets.EntriesCount:], uint64(len(s.Entries)))

	b = append(b, s.Path...)
	b = append(b, s.Delimiter...)
	b = append(b, entries...)
	return be.AppendUint64(b, xxh3.Hash(b))
}

func (s *SnapshotRecord) Read(b []byte) error {
	if len(b) < snapshotHeaderSize+snapshotSumSize {
		return errors.CorruptSnapshot{Reason: "truncated header"}
	}
	body, sum := b[:len(b)-snapshotSumSize], b[len(b)-snapshotSumSize:]
	if xxh3.Hash(body) != be.Uint64(sum) {
		return errors.CorruptSnapshot{Reason: "checksum mismatch"}
	}
	if v := body[snapshotOffsets.Version]; v != SnapshotVersion {
		return errors.CorruptSnapshot{Reason: fmt.Sprintf("unsupported version %d", v)}
	}

	pathLen := int64(be.Uint32(body[snapshotOffsets.PathLength:]))
	delimLen := int64(be.Uint32(body[snapshotOffsets.DelimiterLength:]))
	entriesLen := int64(be.Uint32(body[snapshotOffsets.EntriesLength:]))
	count := be.Uint64(body[snapshotOffsets.EntriesCount:])
	if snapshotHeaderSize+pathLen+delimLen+entriesLen != int64(len(body)) {
		return errors.CorruptSnapshot{Reason: "payload length mismatch"}
	}

	s.Kind = body[snapshotOffsets.Kind]
	s.Mode = body[snapshotOffsets.Mode]
	s.Complete = body[snapshotOffsets.Flags]&snapshotFlagComplete != 0
	s.Position = int64(be.Uint64(body[snapshotOffsets.Position:]))
	s.BufferSize = int64(be.Uint64(body[snapshotOffsets.BufferSize:]))

	rest := body[snapshotHeaderSize:]
	s.Path = string(rest[:pathLen])
	rest = rest[pathLen:]
	s.Delimiter = nil
	if delimLen > 0 {
		s.Delimiter = append([]byte(nil), rest[:delimLen]...)
	}
	rest = rest[delimLen:]

	s.Entries = nil
	if entriesLen == 0 {
		if count != 0 {
			return errors.CorruptSnapshot{Reason: "missing index entries"}
		}
		return nil
	}

	deltas, err := zstdDecoder.DecodeAll(rest, nil)
	if err != nil {
		return errors.CorruptSnapshot{Reason: "failed decompressing index entries", Err: err}
	}
	// Every entry takes at least one byte.
	if count > uint64(len(deltas)) {
		return errors.CorruptSnapshot{Reason: "index entry count mismatch"}
	}
	s.Entries = make([]int64, 0, count)
	var prev uint64
	for len(deltas) > 0 {
		d, n := binary.Uvarint(deltas)
		if n <= 0 {
			return errors.CorruptSnapshot{Reason: "malformed index entry"}
		}
		deltas = deltas[n:]
		prev += d
		s.Entries = append(s.Entries, int64(prev))
	}
	if uint64(len(s.Entries)) != count {
		return errors.CorruptSnapshot{Reason: "index entry count mismatch"}
	}
	return nil
}
