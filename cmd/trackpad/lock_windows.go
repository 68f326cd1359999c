//go:build windows

package main

import (
	"os"

	"go.trai.ch/zerr"
	"golang.org/x/sys/windows"
)

// pidLockBytes is the locked range at the start of the PID file.
const pidLockBytes = 1

// lockFile takes an exclusive LockFileEx lock without waiting.
func lockFile(f *os.File) error {
	flags := uint32(windows.LOCKFILE_EXCLUSIVE_LOCK | windows.LOCKFILE_FAIL_IMMEDIATELY)
	err := windows.LockFileEx(windows.Handle(f.Fd()), flags, 0, pidLockBytes, 0, &windows.Overlapped{})
	return lockErr(err, "lock", f)
}

func unlockFile(f *os.File) error {
	err := windows.UnlockFileEx(windows.Handle(f.Fd()), 0, pidLockBytes, 0, &windows.Overlapped{})
	return lockErr(err, "unlock", f)
}

func lockErr(err error, op string, f *os.File) error {
	if err == nil {
		return nil
	}
	return zerr.With(zerr.With(zerr.Wrap(err, op+" PID file"), "path", f.Name()), "api", "LockFileEx")
}
