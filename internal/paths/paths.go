// Package paths centralizes file and directory names used across the project.
// All data directory file names are defined here as the single source of truth.
package paths

import (
	"os"
	"path/filepath"

	"go.trai.ch/zerr"
)

// ///////////////////////////////////////////////
// Constants
// ///////////////////////////////////////////////

// Data directory file names.
const (
	PIDFile           = "daemon.pid"
	ConfigFile        = "config.toml"
	LogFile           = "daemon.log"
	WakaTimeCacheFile = "wakatime-cache.json"
)

const (
	BinaryName = "trackpad"
	DataDirRel = ".trackpad" // relative to $HOME
	// HomeEnv overrides the data directory when set.
	HomeEnv = "TRACKPAD_HOME"
)

// ///////////////////////////////////////////////
// DataDir
// ///////////////////////////////////////////////

// DataDir provides path construction methods rooted at a data directory.
type DataDir struct {
	Root string
}

// Resolve returns the data directory: $TRACKPAD_HOME when set, otherwise
// ~/.trackpad. The directory is not created.
func Resolve() (DataDir, error) {
	if dir := os.Getenv(HomeEnv); dir != "" {
		return DataDir{Root: filepath.Clean(dir)}, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return DataDir{}, zerr.Wrap(err, "failed to resolve home directory")
	}
	return DataDir{Root: filepath.Join(home, DataDirRel)}, nil
}

// Ensure creates the data directory if it does not exist.
func (d DataDir) Ensure() error {
	if err := os.MkdirAll(d.Root, 0o755); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to create data directory"), "path", d.Root)
	}
	return nil
}

// PID returns the full path to the PID file.
func (d DataDir) PID() string { return filepath.Join(d.Root, PIDFile) }

// Config returns the full path to the config file.
func (d DataDir) Config() string { return filepath.Join(d.Root, ConfigFile) }

// Log returns the full path to the log file.
func (d DataDir) Log() string { return filepath.Join(d.Root, LogFile) }

// WakaTimeCache returns the full path to the cached WakaTime summary.
func (d DataDir) WakaTimeCache() string { return filepath.Join(d.Root, WakaTimeCacheFile) }
