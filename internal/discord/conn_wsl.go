// WSL support. Discord runs on the Windows side, so its named pipe is only
// reachable through a relay, usually:
//
//	socat UNIX-LISTEN:/tmp/discord-ipc-0,fork EXEC:"npiperelay.exe -ep -s //./pipe/discord-ipc-0"
//
// Relays in /tmp and $XDG_RUNTIME_DIR are already covered by socketPaths;
// this file adds the WSLg runtime directory, which is where XDG_RUNTIME_DIR
// points in WSLg sessions but may be unset in plain shells.

//go:build linux

package discord

import (
	"fmt"
	"os"
	"strings"
)

// wslgRuntimeDir is the WSLg-managed runtime directory.
const wslgRuntimeDir = "/mnt/wslg/runtime-dir"

// isWSL reports whether the process runs inside WSL. The distro env var is
// checked first; the kernel release string is the fallback for shells that
// scrub the environment.
func isWSL() bool {
	if os.Getenv("WSL_DISTRO_NAME") != "" {
		return true
	}
	for _, f := range []string{"/proc/sys/kernel/osrelease", "/proc/version"} {
		data, err := os.ReadFile(f)
		if err != nil {
			continue
		}
		if strings.Contains(strings.ToLower(string(data)), "microsoft") {
			return true
		}
	}
	return false
}

// wslSocketPaths returns the WSLg relay socket slots, or nil outside WSL.
func wslSocketPaths() []string {
	if !isWSL() {
		return nil
	}
	paths := make([]string, 0, maxIPCSlots)
	for i := range maxIPCSlots {
		paths = append(paths, fmt.Sprintf("%s/discord-ipc-%d", wslgRuntimeDir, i))
	}
	return paths
}
