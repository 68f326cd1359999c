package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"go.trai.ch/zerr"
)

// ///////////////////////////////////////////////
// PID Lock
// ///////////////////////////////////////////////

// pidLock is a held advisory lock on the PID file. The file holds
// "PID:TOKEN"; the token lets Release tell its own file from a successor's.
type pidLock struct {
	// path is the PID file location.
	path string
	// token is this instance's random ownership marker.
	token string
	// f stays open while the lock is held.
	f *os.File
}

// acquirePID locks the PID file at path and writes this process into it.
// A file left by a dead daemon is taken over, since its lock died with it.
// When a live daemon holds the lock the error wraps errAlreadyRunning and
// carries its pid.
func acquirePID(path string) (*pidLock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to open PID file"), "path", path)
	}
	if err := lockFile(f); err != nil {
		f.Close()
		pid, _ := readPIDFile(path)
		return nil, zerr.With(errAlreadyRunning, "pid", pid)
	}

	l := &pidLock{path: path, token: newToken(), f: f}
	if err := l.write(); err != nil {
		l.unlock()
		return nil, err
	}
	return l, nil
}

func (l *pidLock) write() error {
	if err := l.f.Truncate(0); err != nil {
		return zerr.Wrap(err, "failed to truncate PID file")
	}
	if _, err := l.f.Seek(0, io.SeekStart); err != nil {
		return zerr.Wrap(err, "failed to rewind PID file")
	}
	if _, err := fmt.Fprintf(l.f, "%d:%s", os.Getpid(), l.token); err != nil {
		return zerr.Wrap(err, "failed to write PID file")
	}
	return nil
}

func (l *pidLock) unlock() {
	_ = unlockFile(l.f)
	_ = l.f.Close()
}

// Release drops the lock and deletes the file if it still carries our token.
func (l *pidLock) Release() {
	if l == nil {
		return
	}
	l.unlock()
	if _, token := readPIDFile(l.path); token == l.token {
		_ = os.Remove(l.path)
	}
}

// readPIDFile parses "PID:TOKEN". Missing or malformed parts come back zero.
func readPIDFile(path string) (pid int, token string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, ""
	}
	head, token, _ := strings.Cut(string(data), ":")
	pid, _ = strconv.Atoi(head)
	return pid, token
}

// newToken returns 16 random hex characters.
func newToken() string {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
