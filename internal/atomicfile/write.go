// Package atomicfile provides crash-safe file writing using temporary files
// and atomic renames. The config file and the WakaTime summary cache are
// written through it so a crash never leaves a truncated file behind.
package atomicfile

import (
	"encoding/json"
	"os"
	"path/filepath"

	"go.trai.ch/zerr"
)

// Write atomically replaces path with data. The data is written and synced to
// a temp file in the same directory, which is then chmod'ed to perm and
// renamed over path. On failure the temp file is removed and path is left
// untouched.
func Write(path string, data []byte, perm os.FileMode) (err error) {
	f, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp.*")
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to create temp file"), "path", path)
	}
	tmpName := f.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpName)
			err = zerr.With(err, "path", path)
		}
	}()

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return zerr.Wrap(err, "failed to write temp file")
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return zerr.Wrap(err, "failed to sync temp file")
	}
	if err := f.Close(); err != nil {
		return zerr.Wrap(err, "failed to close temp file")
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		return zerr.Wrap(err, "failed to chmod temp file")
	}
	if err := os.Rename(tmpName, path); err != nil {
		return zerr.Wrap(err, "failed to rename temp file")
	}
	return nil
}

// WriteJSON marshals v as indented JSON and writes it with [Write].
func WriteJSON(path string, v any, perm os.FileMode) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to marshal json"), "path", path)
	}
	return Write(path, append(data, '\n'), perm)
}
