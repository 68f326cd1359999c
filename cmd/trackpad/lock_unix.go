//go:build !windows

package main

import (
	"os"
	"syscall"

	"go.trai.ch/zerr"
)

// lockFile takes an exclusive flock(2) without waiting.
func lockFile(f *os.File) error {
	return flock(f, syscall.LOCK_EX|syscall.LOCK_NB, "lock")
}

func unlockFile(f *os.File) error {
	return flock(f, syscall.LOCK_UN, "unlock")
}

func flock(f *os.File, how int, op string) error {
	if err := syscall.Flock(int(f.Fd()), how); err != nil {
		return zerr.With(zerr.Wrap(err, op+" PID file"), "path", f.Name())
	}
	return nil
}
