// Package flock implements a small wrapper around the flock(2) Kernel API (or
// LockFileEx, on Windows) in order to provide advisory locks through the
// filesystem. It may be important to notice that flock is an advisory lock,
// meaning processes are free to ignore the lock altogether.
//
// For more information and documentation about the exposed API, see
// [flock.go](flock.go).
package flock

// A word about conventions: Flock exposes the public interface intended for
// user usage. Methods implemented by the interface must be safe and rely on
// the internal mutex before any operation takes place. Unexported methods
// implemented by the flock struct are intended for internal usage and must
// not use the internal mutex in order to allow reentrancy. Unexported methods
// must be used with care, and the lock is expected to be held before those
// are called (which should happen in every "entry" methods, exposed to the
// user).

import (
	"errors"
	"fmt"
	"os"
	"sync"
)

var (
	AlreadyLockedErr = fmt.Errorf("flock is already locked")
	NotLockedErr     = fmt.Errorf("flock is not locked")
	ClosedErr        = fmt.Errorf("underlying file descriptor has already been closed")
	CannotLockErr    = fmt.Errorf("could not obtain lock")
)

// Mode selects between a shared (read) lock, which may be held by several
// descriptors at once, and an exclusive (write) lock.
type Mode int

const (
	Shared Mode = iota
	Exclusive
)

func (m Mode) String() string {
	if m == Exclusive {
		return "exclusive"
	}
	return "shared"
}

type Flock interface {
	// Lock attempts to lock the file managed by this instance using the
	// provided mode. The call never blocks.
	// Returns AlreadyLockedErr if the lock has already been acquired, ClosedErr
	// in case Close has already been called on this instance, or CannotLockErr
	// in case the lock cannot be acquired.
	Lock(mode Mode) error

	// Unlock releases the lock acquired by calling Lock. Returns NotLockedErr
	// in case the lock is not currently held, or ClosedErr in case Close has
	// already been called on this instance.
	Unlock() error

	// Close automatically releases the lock (in case it is currently being held
	// by this instance), and closes the underlying file descriptor. After
	// calling this method, no further operations can be done against the
	// instance; To reacquire the lock, create a new Flock instance by calling
	// New.
	Close() error

	// File returns the file descriptor the lock is attached to. The returned
	// file is owned by the Flock instance and must not be closed directly.
	File() *os.File
}

// New opens the file at a given path for reading and returns a Flock instance
// for it. This method will not lock the file until Lock is called.
// Returns an error in case the file cannot be opened.
func New(path string) (Flock, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &flock{file: f, fd: f.Fd(), name: path}, nil
}

// unlockFile is swapped in tests to simulate unlock failures.
var unlockFile = unlockFd

type flock struct {
	mu     sync.Mutex
	file   *os.File
	fd     uintptr
	locked bool
	closed bool
	name   string
}

func (f *flock) Lock(mode Mode) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case f.closed:
		return ClosedErr
	case f.locked:
		return AlreadyLockedErr
	}

	err := lockFd(f.fd, mode)
	if err == nil {
		f.locked = true
	} else {
		err = errors.Join(CannotLockErr, err)
	}
	return err
}

func (f *flock) Unlock() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case f.closed:
		return ClosedErr
	case !f.locked:
		return NotLockedErr
	}

	return f.unlock()
}

func (f *flock) unlock() error {
	switch {
	case f.closed, !f.locked:
		return nil
	}

	err := unlockFile(f.fd)
	if err == nil {
		f.locked = false
	}
	return err
}

func (f *flock) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.close()
}

func (f *flock) close() error {
	if f.closed {
		return ClosedErr
	}

	// The descriptor is released even if unlocking failed; closing it drops
	// any lock still attached to it.
	err := f.unlock()
	if cErr := f.file.Close(); cErr != nil {
		err = errors.Join(err, cErr)
	}
	f.closed = true
	f.locked = false
	return err
}

func (f *flock) File() *os.File { return f.file }
