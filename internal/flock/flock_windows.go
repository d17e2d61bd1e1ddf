//go:build windows

package flock

import "golang.org/x/sys/windows"

// Locks span the whole addressable range of the file.
const allBytes = 0xFFFFFFFF

func lockFd(fd uintptr, mode Mode) error {
	flags := uint32(windows.LOCKFILE_FAIL_IMMEDIATELY)
	if mode == Exclusive {
		flags |= windows.LOCKFILE_EXCLUSIVE_LOCK
	}
	ol := new(windows.Overlapped)
	return windows.LockFileEx(windows.Handle(fd), flags, 0, allBytes, allBytes, ol)
}

func unlockFd(fd uintptr) error {
	ol := new(windows.Overlapped)
	return windows.UnlockFileEx(windows.Handle(fd), 0, allBytes, allBytes, ol)
}
