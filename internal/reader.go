package internal

import (
	"io"
	"os"
)

// contentReader is the primitive a FileHandle reads through. Implementations
// follow io.ReaderAt semantics, returning io.EOF whenever fewer bytes than
// requested are available.
type contentReader interface {
	io.ReaderAt
	Size() (int64, error)
	Close() error
}

func newContentReader(f *os.File, memoryMapped bool) (contentReader, error) {
	if memoryMapped {
		return newMappedReader(f)
	}
	return &fileReader{file: f}, nil
}

// fileReader issues positional reads against the descriptor. The descriptor
// itself belongs to the lock, and is not closed here.
type fileReader struct {
	file *os.File
}

func (r *fileReader) ReadAt(p []byte, off int64) (int, error) {
	return r.file.ReadAt(p, off)
}

func (r *fileReader) Size() (int64, error) {
	stat, err := r.file.Stat()
	if err != nil {
		return 0, err
	}
	return stat.Size(), nil
}

func (r *fileReader) Close() error { return nil }
