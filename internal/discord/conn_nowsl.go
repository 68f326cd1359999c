//go:build !linux && !windows

package discord

// isWSL is always false off Linux.
func isWSL() bool { return false }

// wslSocketPaths has nothing to add off Linux.
func wslSocketPaths() []string { return nil }
