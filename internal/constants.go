package internal

import "encoding/binary"

var be = binary.BigEndian

const (
	SnapshotVersion    = 1
	snapshotHeaderSize = 40
	snapshotSumSize    = 8
)

var snapshotOffsets = struct {
	Version         uint8
	Kind            uint8
	Mode            uint8
	Flags           uint8
	Position        uint8
	BufferSize      uint8
	PathLength      uint8
	DelimiterLength uint8
	EntriesLength   uint8
	EntriesCount    uint8
}{
	Version:         0,
	Kind:            1,
	Mode:            2,
	Flags:           3,
	Position:        4,
	BufferSize:      12,
	PathLength:      20,
	DelimiterLength: 24,
	EntriesLength:   28,
	EntriesCount:    32,
}

const snapshotFlagComplete = 0x01
