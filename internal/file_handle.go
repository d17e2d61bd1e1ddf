package internal

import (
	errs "errors"
	"fmt"
	"io"
	"os"

	"github.com/go-stdlog/stdlog"

	"github.com/heyvito/filecursor/errors"
	"github.com/heyvito/filecursor/internal/flock"
	"github.com/heyvito/filecursor/internal/metrics"
)

// FileHandle owns a single read-only descriptor for a file, together with a
// shared advisory lock held for as long as the handle remains open. Handles
// are never shared: every cursor, and every clone of a cursor, opens its own.
type FileHandle struct {
	Path string

	lock   flock.Flock
	reader contentReader
	pos    int64
	closed bool
	log    stdlog.Logger
}

// OpenFileHandle opens the file at path for reading and takes a shared lock
// on it. Returns errors.OpenFailed in case the file cannot be opened, or
// errors.LockFailed in case an incompatible lock is held elsewhere.
func OpenFileHandle(path string, config Config) (*FileHandle, error) {
	log := config.GetLogger().Named("handle")

	stat, err := os.Stat(path)
	if err != nil {
		return nil, errors.OpenFailed{Path: path, Err: err}
	}
	if stat.IsDir() {
		return nil, errors.OpenFailed{Path: path, Err: fmt.Errorf("is a directory")}
	}

	fl, err := flock.New(path)
	if err != nil {
		return nil, errors.OpenFailed{Path: path, Err: err}
	}

	if err = fl.Lock(flock.Shared); err != nil {
		lockErr := errors.LockFailed{Path: path, Err: err}
		if closeErr := fl.Close(); closeErr != nil {
			lockErr.Err = errs.Join(err, closeErr)
		}
		if config.GetLookupLockHolders() {
			lockErr.Holders = lookupLockHolders(path, log)
		}
		log.Error(lockErr, "Failed acquiring shared lock", "path", path)
		return nil, lockErr
	}

	reader, err := newContentReader(fl.File(), config.GetMemoryMapped())
	if err != nil {
		if closeErr := fl.Close(); closeErr != nil {
			err = errs.Join(err, closeErr)
		}
		return nil, errors.OpenFailed{Path: path, Err: err}
	}

	log.Debug("Handle opened", "path", path, "mmap", config.GetMemoryMapped())
	return &FileHandle{
		Path:   path,
		lock:   fl,
		reader: reader,
		log:    log,
	}, nil
}

func (h *FileHandle) closedErr() error {
	return errors.Closed{Path: h.Path}
}

// IsClosed returns whether Close has already been called on this handle.
func (h *FileHandle) IsClosed() bool { return h.closed }

// Seek moves the handle's read position to the provided absolute offset.
// Seeking beyond the end of the file is allowed; subsequent reads will
// simply report io.EOF.
func (h *FileHandle) Seek(offset int64) error {
	if h.closed {
		return h.closedErr()
	}
	if offset < 0 {
		return errors.InvalidPosition{Position: offset, Limit: -1}
	}
	h.pos = offset
	return nil
}

// Tell returns the handle's current read position.
func (h *FileHandle) Tell() (int64, error) {
	if h.closed {
		return 0, h.closedErr()
	}
	return h.pos, nil
}

// Read fills p with data starting at the current position, advancing it by
// the amount of bytes read. When the end of the file is reached before p is
// filled, the amount read is returned together with io.EOF. Any other
// failure is reported as errors.ReadFailed.
func (h *FileHandle) Read(p []byte) (int, error) {
	if h.closed {
		return 0, h.closedErr()
	}

	metrics.Simple(metrics.HandleReadCalls, 0)
	done := metrics.Measure(metrics.HandleReadLatency)
	n, err := h.reader.ReadAt(p, h.pos)
	done()

	h.pos += int64(n)
	metrics.Simple(metrics.HandleBytesRead, float64(n))

	switch {
	case err == nil:
		return n, nil
	case errs.Is(err, io.EOF):
		return n, io.EOF
	default:
		metrics.Simple(metrics.HandleReadFailures, 0)
		h.log.Error(err, "Read failed", "path", h.Path, "offset", h.pos-int64(n))
		return n, errors.ReadFailed{Path: h.Path, Offset: h.pos - int64(n), Length: int64(len(p)), Err: err}
	}
}

// ReadAt returns exactly length bytes starting at offset. Unlike Read, a
// short read is a failure, reported as errors.ReadFailed.
func (h *FileHandle) ReadAt(offset, length int64) ([]byte, error) {
	if err := h.Seek(offset); err != nil {
		return nil, err
	}
	buf := make([]byte, length)
	n, err := h.Read(buf)
	if err == nil {
		return buf, nil
	}
	if errs.Is(err, io.EOF) {
		metrics.Simple(metrics.HandleReadFailures, 0)
		h.log.Warning("Short read", "path", h.Path, "offset", offset, "expected", length, "read", n)
		return nil, errors.ReadFailed{Path: h.Path, Offset: offset, Length: length, Err: io.ErrUnexpectedEOF}
	}
	return nil, err
}

// Size returns the current size of the underlying file. For memory mapped
// handles, this is the size of the file when the handle was opened.
func (h *FileHandle) Size() (int64, error) {
	if h.closed {
		return 0, h.closedErr()
	}
	size, err := h.reader.Size()
	if err != nil {
		return 0, errors.ReadFailed{Path: h.Path, Err: err}
	}
	return size, nil
}

// Close releases the lock and the underlying descriptor. Calling Close more
// than once is a no-op.
func (h *FileHandle) Close() error {
	if h.closed {
		return nil
	}
	h.closed = true

	var err error
	if rErr := h.reader.Close(); rErr != nil {
		err = fmt.Errorf("failed releasing reader: %w", rErr)
	}
	if lErr := h.lock.Close(); lErr != nil {
		err = errs.Join(err, fmt.Errorf("failed releasing lock: %w", lErr))
	}
	if err != nil {
		h.log.Error(err, "Failed closing handle", "path", h.Path)
		return err
	}
	h.log.Debug("Handle closed", "path", h.Path)
	return nil
}
