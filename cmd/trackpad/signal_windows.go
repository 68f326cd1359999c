// Windows signal handling. Only os.Interrupt exists; the runtime maps
// CTRL_BREAK_EVENT and console-close events onto it.

//go:build windows

package main

import (
	"os"
	"os/signal"
)

// ///////////////////////////////////////////////
// Signal Handling
// ///////////////////////////////////////////////

// signalChannel returns a buffered channel that receives os.Interrupt.
func signalChannel() <-chan os.Signal {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt)
	return ch
}

// refreshChannel returns nil: Windows has no user signal, so refreshes come
// from the ticker and config reloads only. Receiving from nil blocks forever.
func refreshChannel() <-chan os.Signal {
	return nil
}
