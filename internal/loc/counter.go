package loc

import (
	"go.trai.ch/zerr"
)

// ///////////////////////////////////////////////
// Counter
// ///////////////////////////////////////////////

// Counter resolves the line count of a single file, serving unchanged files
// from its [Cache] without reading their content.
type Counter struct {
	cache *Cache
	fs    FileSystem
	strip Stripper
}

// CounterOption configures a [Counter].
type CounterOption func(*Counter)

// WithFileSystem replaces the [OSFileSystem] default.
func WithFileSystem(fsys FileSystem) CounterOption {
	return func(c *Counter) { c.fs = fsys }
}

// WithStripper replaces the [StripBlockComments] default.
func WithStripper(strip Stripper) CounterOption {
	return func(c *Counter) { c.strip = strip }
}

// NewCounter creates a Counter that owns cache. A nil cache starts a new empty one.
func NewCounter(cache *Cache, opts ...CounterOption) *Counter {
	if cache == nil {
		cache = NewCache()
	}
	c := &Counter{cache: cache, fs: OSFileSystem{}, strip: StripBlockComments}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Count returns the number of code lines in path. The second result reports
// whether the value came from the cache. Any failure returns a [*ReadError]
// and evicts the path so the next call starts fresh.
func (c *Counter) Count(path string) (lines int, cached bool, err error) {
	info, err := c.fs.Stat(path)
	if err != nil {
		c.cache.Forget(path)
		return 0, false, &ReadError{
			Path: path,
			Err:  zerr.With(zerr.Wrap(err, "failed to stat file"), "path", path),
		}
	}
	modTime := info.ModTime().UnixNano()

	observed, ok := c.cache.Lookup(path)
	if ok && observed.ModTime == modTime {
		return observed.Lines, true, nil
	}

	content, err := c.fs.ReadFile(path)
	if err != nil {
		c.cache.Forget(path)
		return 0, false, &ReadError{
			Path: path,
			Err:  zerr.With(zerr.Wrap(err, "failed to read file"), "path", path),
		}
	}

	lines = CountLines(content, c.strip)
	c.cache.Store(observed, CacheEntry{Path: path, ModTime: modTime, Lines: lines})
	return lines, false, nil
}
