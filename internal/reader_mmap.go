//go:build linux || darwin

package internal

import (
	"io"
	"os"

	"github.com/heyvito/gommap"
)

// mappedReader serves reads from a read-only shared mapping of the whole
// file. The mapping length is fixed when the handle is opened; truncating
// the file underneath a live mapping is not supported.
type mappedReader struct {
	data gommap.MMap
}

func newMappedReader(f *os.File) (contentReader, error) {
	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}
	// Zero-length mappings are rejected by mmap(2).
	if stat.Size() == 0 {
		return &mappedReader{}, nil
	}
	data, err := gommap.Map(f.Fd(), gommap.PROT_READ, gommap.MAP_SHARED)
	if err != nil {
		return nil, err
	}
	return &mappedReader{data: data}, nil
}

func (r *mappedReader) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(r.data)) {
		return 0, io.EOF
	}
	n := copy(p, r.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (r *mappedReader) Size() (int64, error) {
	return int64(len(r.data)), nil
}

func (r *mappedReader) Close() error {
	if r.data == nil {
		return nil
	}
	err := r.data.UnsafeUnmap()
	r.data = nil
	return err
}
