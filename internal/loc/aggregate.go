// Package loc counts lines of code across workspace directories.
//
// A [Scanner] enumerates eligible files under each root, a [Counter] resolves
// each file's line count through a modification-time keyed [Cache], and an
// [Aggregator] sums the counts across roots. Unchanged files cost one stat
// call per aggregate; only new or modified files are read.
//
// Line counting is deliberately heuristic (see [CountLines]): block comments
// in the C style are stripped from every file, and lines starting at column 0
// with "#", "//", "--" or "@REM" are dropped. Languages are never parsed.
package loc

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"runtime"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// ///////////////////////////////////////////////
// Result Types
// ///////////////////////////////////////////////

// RootTotal is the share of an aggregate contributed by one root.
type RootTotal struct {
	// Root is the root path as passed to [Aggregator.Aggregate].
	Root string
	// Lines is the line count of all eligible files under Root.
	Lines int
	// Files is the number of files counted successfully under Root.
	Files int
}

// Result is the outcome of one [Aggregator.Aggregate] call.
type Result struct {
	// Total is the sum of line counts across every root.
	Total int
	// Roots holds per-root subtotals in the order the roots were given.
	Roots []RootTotal
	// Files is the number of files counted successfully.
	Files int
	// CacheHits is the number of files served from the cache.
	CacheHits int
	// CacheMisses is the number of files that were read and counted.
	CacheMisses int
	// Failures lists every [*AccessError] and [*ReadError] hit during the
	// call, sorted by path. None of them aborted the call.
	Failures []error
	// Elapsed is the wall-clock duration of the call.
	Elapsed time.Duration
}

// AccessErrors returns the subset of Failures that are [*AccessError].
func (r Result) AccessErrors() []*AccessError {
	var out []*AccessError
	for _, err := range r.Failures {
		var ae *AccessError
		if errors.As(err, &ae) {
			out = append(out, ae)
		}
	}
	return out
}

// ReadErrors returns the subset of Failures that are [*ReadError].
func (r Result) ReadErrors() []*ReadError {
	var out []*ReadError
	for _, err := range r.Failures {
		var re *ReadError
		if errors.As(err, &re) {
			out = append(out, re)
		}
	}
	return out
}

// ///////////////////////////////////////////////
// Aggregator
// ///////////////////////////////////////////////

// Aggregator composes a [Scanner] and a [Counter] into workspace totals.
type Aggregator struct {
	scanner *Scanner
	counter *Counter
	workers int
}

// NewAggregator creates an Aggregator. workers bounds how many files are
// counted concurrently; values below 1 use runtime.NumCPU().
func NewAggregator(scanner *Scanner, counter *Counter, workers int) *Aggregator {
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	return &Aggregator{scanner: scanner, counter: counter, workers: workers}
}

// New is a convenience constructor wiring a Scanner and Counter over the real
// filesystem around cache.
func New(cache *Cache, workers int) *Aggregator {
	return NewAggregator(NewScanner(nil), NewCounter(cache), workers)
}

// Aggregate counts every eligible file under roots, in order, and returns the
// combined result. Failures in one subtree or file never stop the others; they
// are collected in [Result.Failures]. The total does not depend on visiting
// order or on cache state.
//
// If ctx is cancelled, no further files are scheduled, in-flight counts are
// allowed to finish, and the partial result is returned with ctx.Err(). Cache
// entries written before cancellation remain valid.
func (a *Aggregator) Aggregate(ctx context.Context, roots []string, cfg ScanConfig) (Result, error) {
	start := time.Now()
	res := Result{Roots: make([]RootTotal, len(roots))}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(a.workers)

walk:
	for i, root := range roots {
		res.Roots[i].Root = root
		for path, err := range a.scanner.Enumerate(root, cfg) {
			if ctx.Err() != nil {
				break walk
			}
			if err != nil {
				mu.Lock()
				res.Failures = append(res.Failures, err)
				mu.Unlock()
				continue
			}
			g.Go(func() error {
				if ctx.Err() != nil {
					return nil
				}
				lines, cached, err := a.counter.Count(path)

				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					res.Failures = append(res.Failures, err)
					return nil
				}
				res.Total += lines
				res.Files++
				res.Roots[i].Lines += lines
				res.Roots[i].Files++
				if cached {
					res.CacheHits++
				} else {
					res.CacheMisses++
				}
				return nil
			})
		}
	}
	_ = g.Wait() // workers report through res.Failures

	slices.SortFunc(res.Failures, func(x, y error) int {
		return cmp.Compare(failurePath(x), failurePath(y))
	})
	res.Elapsed = time.Since(start)

	slog.Debug("loc aggregate finished",
		"roots", len(roots),
		"total", res.Total,
		"files", res.Files,
		"cache_hits", res.CacheHits,
		"failures", len(res.Failures),
		"elapsed", res.Elapsed,
	)
	return res, ctx.Err()
}

// failurePath extracts the path carried by a scan failure for sorting.
func failurePath(err error) string {
	var ae *AccessError
	if errors.As(err, &ae) {
		return ae.Path
	}
	var re *ReadError
	if errors.As(err, &re) {
		return re.Path
	}
	return err.Error()
}
