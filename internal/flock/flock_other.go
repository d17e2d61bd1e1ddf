//go:build !(unix || windows)

package flock

func lockFd(uintptr, Mode) error { return CannotLockErr }

func unlockFd(uintptr) error { return NotLockedErr }
