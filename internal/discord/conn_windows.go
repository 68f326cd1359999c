// Discord IPC discovery on Windows: every client variant listens on the
// numbered \\.\pipe\discord-ipc-N named pipes, dialed with go-winio.

//go:build windows

package discord

import (
	"fmt"
	"net"
	"time"

	"github.com/Microsoft/go-winio"
	"go.trai.ch/zerr"
)

// pipeDialTimeout bounds each named pipe attempt; a busy pipe otherwise
// blocks until the default winio timeout.
const pipeDialTimeout = 500 * time.Millisecond

// ///////////////////////////////////////////////
// Connection
// ///////////////////////////////////////////////

// connectToDiscord dials each pipe from [pipePaths] and returns the first
// connection that succeeds.
func connectToDiscord() (net.Conn, error) {
	timeout := pipeDialTimeout
	var lastErr error
	for _, path := range pipePaths() {
		conn, err := winio.DialPipe(path, &timeout)
		if err == nil {
			return conn, nil
		}
		lastErr = err
	}
	if lastErr != nil {
		return nil, zerr.With(zerr.Wrap(ErrIPCNotAvailable, lastErr.Error()), "slots", maxIPCSlots)
	}
	return nil, ErrIPCNotAvailable
}

// pipePaths lists the named pipes in slot order.
func pipePaths() []string {
	paths := make([]string, 0, maxIPCSlots)
	for i := range maxIPCSlots {
		paths = append(paths, fmt.Sprintf(`\\.\pipe\discord-ipc-%d`, i))
	}
	return paths
}
