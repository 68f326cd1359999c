// Unix signal handling: SIGINT and SIGTERM stop the daemon, SIGUSR1 forces a
// refresh.

//go:build !windows

package main

import (
	"os"
	"os/signal"
	"syscall"
)

// ///////////////////////////////////////////////
// Signal Handling
// ///////////////////////////////////////////////

// signalChannel returns a buffered channel that receives SIGINT and SIGTERM.
func signalChannel() <-chan os.Signal {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	return ch
}

// refreshChannel returns a buffered channel that receives SIGUSR1, sent with
// `kill -USR1 $(cut -d: -f1 ~/.trackpad/daemon.pid)`.
func refreshChannel() <-chan os.Signal {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGUSR1)
	return ch
}
