package loc

import (
	"io/fs"
	"iter"
	"path/filepath"

	"go.trai.ch/zerr"
)

// ///////////////////////////////////////////////
// Scanner
// ///////////////////////////////////////////////

// Scanner enumerates the files eligible for counting under a root directory.
type Scanner struct {
	fs FileSystem
}

// NewScanner creates a Scanner backed by fsys. A nil fsys uses [OSFileSystem].
func NewScanner(fsys FileSystem) *Scanner {
	if fsys == nil {
		fsys = OSFileSystem{}
	}
	return &Scanner{fs: fsys}
}

// Enumerate walks root depth-first and yields every eligible file path. A
// directory that cannot be listed yields ("", *AccessError) and only the
// entries read before the failure are visited; the walk continues with its
// siblings. The sequence is lazy and each
// call performs an independent walk. Sibling order is whatever the filesystem
// returns.
//
// Eligibility rules:
//   - symbolic links are never followed or yielded
//   - directories named in cfg.IgnoredDirectories are not entered
//   - regular files are yielded when filepath.Ext(name) is allowed
//   - devices, sockets, pipes and other entry kinds are skipped
func (s *Scanner) Enumerate(root string, cfg ScanConfig) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		s.walk(root, cfg, yield)
	}
}

// walk lists dir and recurses into eligible subdirectories. It returns false
// once the consumer has stopped iterating.
func (s *Scanner) walk(dir string, cfg ScanConfig, yield func(string, error) bool) bool {
	entries, err := s.fs.ReadDir(dir)
	if err != nil {
		accessErr := &AccessError{
			Path: dir,
			Err:  zerr.With(zerr.Wrap(err, "failed to list directory"), "path", dir),
		}
		if !yield("", accessErr) {
			return false
		}
		// os.ReadDir may return the entries read before the failure.
	}

	for _, entry := range entries {
		name := entry.Name()
		path := filepath.Join(dir, name)
		mode := entry.Type()

		switch {
		case mode&fs.ModeSymlink != 0:
			continue
		case entry.IsDir():
			if cfg.ignores(name) {
				continue
			}
			if !s.walk(path, cfg, yield) {
				return false
			}
		case mode.IsRegular():
			if !cfg.allows(extension(name)) {
				continue
			}
			if !yield(path, nil) {
				return false
			}
		}
	}
	return true
}

// extension returns the suffix from the last dot of name. A name whose only
// dot is the leading one, like ".env", has no extension.
func extension(name string) string {
	ext := filepath.Ext(name)
	if ext == name {
		return ""
	}
	return ext
}
