package loc

import (
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
)

// ///////////////////////////////////////////////
// Cache Types
// ///////////////////////////////////////////////

// defaultShards is the shard count used by [NewCache].
const defaultShards = 32

// CacheEntry is a line count computed for a file at one modification time.
type CacheEntry struct {
	// Path is the file path the count belongs to.
	Path string
	// ModTime is the file's modification time in Unix nanoseconds when it was
	// counted. It is a change token, not a content hash.
	ModTime int64
	// Lines is the counted line total.
	Lines int

	// seq is the cache-assigned generation of this entry; zero means "absent"
	// when returned from [Cache.Lookup].
	seq uint64
}

// Cache maps file paths to their last computed [CacheEntry]. It is safe for
// concurrent use: keys are spread over shards by xxhash and each shard has its
// own lock. Entries are replaced in place and only removed by [Cache.Forget];
// nothing is persisted.
type Cache struct {
	shards []*cacheShard
	seq    atomic.Uint64
}

// cacheShard is one lock domain of a [Cache].
type cacheShard struct {
	mu      sync.RWMutex
	entries map[string]CacheEntry
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return NewShardedCache(defaultShards)
}

// NewShardedCache returns an empty cache with n shards (minimum 1).
func NewShardedCache(n int) *Cache {
	if n < 1 {
		n = 1
	}
	c := &Cache{shards: make([]*cacheShard, n)}
	for i := range c.shards {
		c.shards[i] = &cacheShard{entries: make(map[string]CacheEntry)}
	}
	return c
}

// shard selects the shard that owns path.
func (c *Cache) shard(path string) *cacheShard {
	return c.shards[xxhash.Sum64String(path)%uint64(len(c.shards))]
}

// ///////////////////////////////////////////////
// Operations
// ///////////////////////////////////////////////

// Lookup returns the entry for path, whether or not it is still valid. The
// second result is false when no entry exists. Pass the returned entry to
// [Cache.Store] so a concurrent newer write is not clobbered.
func (c *Cache) Lookup(path string) (CacheEntry, bool) {
	s := c.shard(path)
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[path]
	return e, ok
}

// Store writes next for next.Path, given the entry observed by the caller's
// earlier [Cache.Lookup] (the zero CacheEntry if none was found). The write
// succeeds when the stored entry is still the observed one, or when next is
// at least as recent as whatever replaced it. It reports whether next was
// stored.
func (c *Cache) Store(observed, next CacheEntry) bool {
	s := c.shard(next.Path)
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.entries[next.Path]
	if ok && cur.seq != observed.seq && cur.ModTime > next.ModTime {
		return false
	}
	next.seq = c.seq.Add(1)
	s.entries[next.Path] = next
	return true
}

// Forget removes the entry for path, if any.
func (c *Cache) Forget(path string) {
	s := c.shard(path)
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, path)
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	n := 0
	for _, s := range c.shards {
		s.mu.RLock()
		n += len(s.entries)
		s.mu.RUnlock()
	}
	return n
}
