//go:build !windows

package discord

import (
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.trai.ch/zerr"
)

// socketDialTimeout bounds each unix socket attempt.
const socketDialTimeout = 500 * time.Millisecond

// connectToDiscord dials the candidates from [socketPaths] in order.
func connectToDiscord() (net.Conn, error) {
	paths := socketPaths()
	for _, path := range paths {
		if conn, err := net.DialTimeout("unix", path, socketDialTimeout); err == nil {
			return conn, nil
		}
	}
	err := zerr.With(ErrIPCNotAvailable, "candidates", len(paths))
	if isWSL() {
		return nil, zerr.With(err, "hint", "running under WSL; relay the Windows pipe with socat and npiperelay.exe")
	}
	return nil, err
}

// Release channels each use their own socket prefix.
var channelPrefixes = []string{"discord-ipc", "discordcanary-ipc", "discordptb-ipc"}

// socketPaths lists candidate sockets: temp directories first, then Snap and
// Flatpak sandboxes, then WSLg.
func socketPaths() []string {
	var dirs []string
	for _, env := range []string{"XDG_RUNTIME_DIR", "TMPDIR", "TMP", "TEMP"} {
		if dir := os.Getenv(env); dir != "" {
			dirs = append(dirs, dir)
		}
	}
	dirs = append(dirs, "/tmp")

	var paths []string
	for _, dir := range dirs {
		for _, prefix := range channelPrefixes {
			paths = appendSlots(paths, filepath.Join(dir, prefix))
		}
	}

	userRun := filepath.Join("/run/user", strconv.Itoa(os.Getuid()))
	for _, sandbox := range []string{
		"snap.discord",
		"snap.discord-canary",
		"snap.discord-ptb",
		"app/com.discordapp.Discord",
		"app/com.discordapp.DiscordCanary",
		"app/com.discordapp.DiscordPTB",
	} {
		paths = appendSlots(paths, filepath.Join(userRun, sandbox, "discord-ipc"))
	}

	return append(paths, wslSocketPaths()...)
}

// appendSlots appends base-0 through base-9.
func appendSlots(paths []string, base string) []string {
	for i := range maxIPCSlots {
		paths = append(paths, base+"-"+strconv.Itoa(i))
	}
	return paths
}
