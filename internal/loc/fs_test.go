package loc_test

import (
	"io/fs"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"tools.zach/dev/trackpad/internal/loc"
)

// recordingFS wraps the real filesystem, counting calls per path and
// optionally failing or shuffling directory listings.
type recordingFS struct {
	loc.OSFileSystem

	mu       sync.Mutex
	reads    map[string]int
	stats    map[string]int
	failDirs map[string]error
	shuffle  *rand.Rand
}

func newRecordingFS() *recordingFS {
	return &recordingFS{
		reads:    make(map[string]int),
		stats:    make(map[string]int),
		failDirs: make(map[string]error),
	}
}

func (r *recordingFS) ReadDir(name string) ([]fs.DirEntry, error) {
	r.mu.Lock()
	failErr, fail := r.failDirs[name]
	shuffle := r.shuffle
	r.mu.Unlock()
	if fail {
		return nil, failErr
	}

	entries, err := r.OSFileSystem.ReadDir(name)
	if shuffle != nil {
		r.mu.Lock()
		shuffle.Shuffle(len(entries), func(i, j int) { entries[i], entries[j] = entries[j], entries[i] })
		r.mu.Unlock()
	}
	return entries, err
}

func (r *recordingFS) Stat(name string) (fs.FileInfo, error) {
	r.mu.Lock()
	r.stats[name]++
	r.mu.Unlock()
	return r.OSFileSystem.Stat(name)
}

func (r *recordingFS) ReadFile(name string) ([]byte, error) {
	r.mu.Lock()
	r.reads[name]++
	r.mu.Unlock()
	return r.OSFileSystem.ReadFile(name)
}

// totalReads returns the number of ReadFile calls across all paths.
func (r *recordingFS) totalReads() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.reads {
		n += c
	}
	return n
}

// resetCounts clears the recorded call counts.
func (r *recordingFS) resetCounts() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.reads)
	clear(r.stats)
}

// writeTree creates files under root from a map of slash-separated relative
// paths to contents.
func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	}
}

// mustScanConfig builds a ScanConfig or fails the test.
func mustScanConfig(t *testing.T, exts, ignored []string) loc.ScanConfig {
	t.Helper()
	cfg, err := loc.NewScanConfig(exts, ignored)
	require.NoError(t, err)
	return cfg
}
