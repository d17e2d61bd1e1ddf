//go:build unix

package flock

import "golang.org/x/sys/unix"

func lockFd(fd uintptr, mode Mode) error {
	op := unix.LOCK_SH
	if mode == Exclusive {
		op = unix.LOCK_EX
	}
	return unix.Flock(int(fd), op|unix.LOCK_NB)
}

func unlockFd(fd uintptr) error {
	return unix.Flock(int(fd), unix.LOCK_UN)
}
