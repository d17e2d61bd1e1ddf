package internal

import (
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/go-stdlog/stdlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heyvito/filecursor/errors"
)

// memSource is an in-memory ScanSource which counts bytes handed out. When
// failAt is set, the read with that ordinal fails with failErr.
type memSource struct {
	data  []byte
	pos   int64
	reads int
	bytes int64

	failAt  int
	failErr error
}

func (m *memSource) Seek(offset int64) error {
	m.pos = offset
	return nil
}

func (m *memSource) Tell() (int64, error) { return m.pos, nil }

func (m *memSource) Read(p []byte) (int, error) {
	m.reads++
	if m.failAt > 0 && m.reads == m.failAt {
		return 0, m.failErr
	}
	if m.pos >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(p, m.data[m.pos:])
	m.pos += int64(n)
	m.bytes += int64(n)
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func newIndex(t *testing.T, delimiter string, bufferSize int) *PositionIndex {
	t.Helper()
	idx, err := NewPositionIndex([]byte(delimiter), bufferSize, stdlog.Discard)
	require.NoError(t, err)
	return idx
}

// collect walks the index record by record, returning every record's content.
func collect(t *testing.T, idx *PositionIndex, src *memSource) []string {
	t.Helper()
	var out []string
	for n := int64(0); ; n++ {
		require.NoError(t, idx.EnsureRecord(src, n))
		if idx.Exhausted(n) {
			return out
		}
		off, length, ok := idx.Record(n)
		require.True(t, ok, "record %d should be bounded", n)
		out = append(out, string(src.data[off:off+length]))
	}
}

func TestPositionIndexConfig(t *testing.T) {
	_, err := NewPositionIndex(nil, 16, stdlog.Discard)
	require.ErrorAs(t, err, &errors.InvalidDelimiter{})

	_, err = NewPositionIndex([]byte(",\n"), 3, stdlog.Discard)
	var bufErr errors.BufferTooSmall
	require.ErrorAs(t, err, &bufErr)
	assert.Equal(t, 3, bufErr.BufferSize)
	assert.Equal(t, 2, bufErr.DelimiterLength)

	idx, err := NewPositionIndex([]byte(",\n"), 4, stdlog.Discard)
	require.NoError(t, err)
	assert.Equal(t, []int64{0}, idx.Entries())
	assert.False(t, idx.Complete())
}

func TestPositionIndexRecords(t *testing.T) {
	cases := []struct {
		name       string
		content    string
		delimiter  string
		bufferSize int
	}{
		{"Single byte delimiter", "0,1,2,3", ",", 2},
		{"Delimiter spanning buffers", "0,\n1,\n2", ",\n", 4},
		{"Long records", "first record,\nsecond one,\nthird", ",\n", 4},
		{"Large buffer", "a\nbb\nccc\n\ndddd", "\n", 1024},
		{"Trailing delimiter", "a,b,", ",", 2},
		{"Leading delimiter", ",a", ",", 2},
		{"Only delimiters", "::::::", "::", 4},
		{"No delimiter", "just one record", "\r\n", 4},
		{"Long delimiter", "x<=>y<=>z<=><=>w", "<=>", 6},
		{"Near-miss prefixes", "a<<=b<=<=>c", "<=>", 6},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			idx := newIndex(t, c.delimiter, c.bufferSize)
			src := &memSource{data: []byte(c.content)}
			assert.Equal(t, strings.Split(c.content, c.delimiter), collect(t, idx, src))
			assert.True(t, idx.Complete())
		})
	}
}

func TestPositionIndexEmptyFile(t *testing.T) {
	idx := newIndex(t, "\n", 8)
	src := &memSource{}

	require.NoError(t, idx.EnsureRecord(src, 0))
	assert.True(t, idx.Complete())
	assert.Equal(t, []int64{0, 0}, idx.Entries())

	off, length, ok := idx.Record(0)
	assert.True(t, ok)
	assert.Zero(t, off)
	assert.Zero(t, length)
	assert.False(t, idx.Exhausted(0))
	assert.True(t, idx.Exhausted(1))
}

func TestPositionIndexIsLazy(t *testing.T) {
	content := strings.Repeat("line\n", 100)
	idx := newIndex(t, "\n", 10)
	src := &memSource{data: []byte(content)}

	require.NoError(t, idx.EnsureRecord(src, 0))
	assert.False(t, idx.Complete())
	assert.Less(t, src.bytes, int64(len(content)))

	off, length, ok := idx.Record(0)
	require.True(t, ok)
	assert.Equal(t, "line", content[off:off+length])

	// Backwards lookups never touch the source again.
	require.NoError(t, idx.EnsureRecord(src, 50))
	reads := src.reads
	require.NoError(t, idx.EnsureRecord(src, 10))
	require.NoError(t, idx.EnsureRecord(src, 0))
	assert.Equal(t, reads, src.reads)

	require.NoError(t, idx.EnsureRecord(src, 1000))
	assert.True(t, idx.Complete())
	assert.True(t, idx.Exhausted(101))
	assert.False(t, idx.Exhausted(100))
	assert.Equal(t, int64(101), idx.KnownRecords())
}

func TestPositionIndexRewindIsBounded(t *testing.T) {
	// A single record far longer than the buffer; every full buffer without a
	// match re-reads at most len(delimiter)-1 bytes.
	content := strings.Repeat("x", 1000) + "<=>" + "tail"
	idx := newIndex(t, "<=>", 8)
	src := &memSource{data: []byte(content)}

	require.NoError(t, idx.EnsureRecord(src, 0))
	off, length, ok := idx.Record(0)
	require.True(t, ok)
	assert.Equal(t, int64(0), off)
	assert.Equal(t, int64(1000), length)

	fullBuffers := src.reads
	assert.LessOrEqual(t, src.bytes, int64(len(content))+int64(fullBuffers*2))
}

func TestPositionIndexEntriesIncrease(t *testing.T) {
	idx := newIndex(t, ",", 3)
	src := &memSource{data: []byte("a,bb,,ccc,d")}
	require.NoError(t, idx.EnsureRecord(src, 100))

	entries := idx.Entries()
	assert.Equal(t, int64(0), entries[0])
	for i := 1; i < len(entries); i++ {
		assert.Greater(t, entries[i], entries[i-1])
	}
}

func TestPositionIndexClone(t *testing.T) {
	content := "a\nb\nc\nd\ne"
	idx := newIndex(t, "\n", 2)
	src := &memSource{data: []byte(content)}
	require.NoError(t, idx.EnsureRecord(src, 1))

	clone := idx.Clone()
	assert.Equal(t, idx.Entries(), clone.Entries())

	require.NoError(t, clone.EnsureRecord(&memSource{data: []byte(content)}, 10))
	assert.True(t, clone.Complete())
	assert.False(t, idx.Complete())
	assert.Less(t, idx.Len(), clone.Len())
}

func TestPositionIndexRestore(t *testing.T) {
	idx, err := RestorePositionIndex([]int64{0, 2, 4}, false, []byte(","), 2, stdlog.Discard)
	require.NoError(t, err)

	src := &memSource{data: []byte("a,b,c")}
	off, length, ok := idx.Record(1)
	require.True(t, ok)
	assert.Equal(t, "b", string(src.data[off:off+length]))

	// Record 1 is already bounded; nothing must be scanned.
	require.NoError(t, idx.EnsureRecord(src, 1))
	assert.Zero(t, src.reads)

	require.NoError(t, idx.EnsureRecord(src, 2))
	assert.True(t, idx.Complete())
	assert.Equal(t, []int64{0, 2, 4, 5}, idx.Entries())

	_, err = RestorePositionIndex([]int64{0, 0}, true, []byte(","), 2, stdlog.Discard)
	require.NoError(t, err)

	var corrupt errors.CorruptSnapshot
	_, err = RestorePositionIndex(nil, false, []byte(","), 2, stdlog.Discard)
	require.ErrorAs(t, err, &corrupt)
	_, err = RestorePositionIndex([]int64{1, 2}, false, []byte(","), 2, stdlog.Discard)
	require.ErrorAs(t, err, &corrupt)
	_, err = RestorePositionIndex([]int64{0, 4, 2}, false, []byte(","), 2, stdlog.Discard)
	require.ErrorAs(t, err, &corrupt)
	_, err = RestorePositionIndex([]int64{0, 0}, false, []byte(","), 2, stdlog.Discard)
	require.ErrorAs(t, err, &corrupt)
	_, err = RestorePositionIndex([]int64{0}, true, []byte(","), 2, stdlog.Discard)
	require.ErrorAs(t, err, &corrupt)
	_, err = RestorePositionIndex([]int64{0}, false, []byte(","), 1, stdlog.Discard)
	require.ErrorAs(t, err, &errors.BufferTooSmall{})
}

func TestPositionIndexOverFileHandle(t *testing.T) {
	h := openHandle(t, "0,\n1,\n2")
	idx := newIndex(t, ",\n", 4)

	var got []string
	for n := int64(0); ; n++ {
		require.NoError(t, idx.EnsureRecord(h, n))
		if idx.Exhausted(n) {
			break
		}
		off, length, ok := idx.Record(n)
		require.True(t, ok)
		data, err := h.ReadAt(off, length)
		require.NoError(t, err)
		got = append(got, string(data))
	}
	assert.Equal(t, []string{"0", "1", "2"}, got)
}

func TestPositionIndexReadFailure(t *testing.T) {
	content := "longrecord,b,c"
	readErr := fmt.Errorf("device went away")
	idx := newIndex(t, ",", 4)
	src := &memSource{data: []byte(content), failAt: 2, failErr: readErr}

	// The first buffer holds no delimiter, so the failing second read happens
	// before any entry could be appended.
	err := idx.EnsureRecord(src, 1)
	require.ErrorIs(t, err, readErr)
	assert.Equal(t, []int64{0}, idx.Entries())
	assert.False(t, idx.Complete())
	_, _, ok := idx.Record(0)
	assert.False(t, ok)

	src.failAt = 0
	require.NoError(t, idx.EnsureRecord(src, 1))
	off, length, ok := idx.Record(1)
	require.True(t, ok)
	assert.Equal(t, "b", content[off:off+length])

	assert.Equal(t, strings.Split(content, ","), collect(t, idx, src))
	assert.Equal(t, []int64{0, 11, 13, 14}, idx.Entries())
	assert.True(t, idx.Complete())
}
