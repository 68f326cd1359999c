// Package watch reports changes to a single file, such as the daemon's
// config.toml. It watches the parent directory with fsnotify so atomic
// rename-over saves are seen, and falls back to stat polling when native
// notifications are unavailable.
package watch

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.trai.ch/zerr"
)

// DefaultPollInterval is the stat interval used in polling mode.
const DefaultPollInterval = 2 * time.Second

// ///////////////////////////////////////////////
// Options
// ///////////////////////////////////////////////

// Option configures a [Watcher].
type Option func(*Watcher)

// WithPollInterval sets the stat interval for polling mode.
func WithPollInterval(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.pollInterval = d
		}
	}
}

// WithPolling skips fsnotify and polls from the start.
func WithPolling() Option {
	return func(w *Watcher) { w.forcePoll = true }
}

// ///////////////////////////////////////////////
// Watcher
// ///////////////////////////////////////////////

// Watcher monitors one file for writes and for creates, including a new
// file renamed over it.
type Watcher struct {
	// path is the cleaned path of the watched file.
	path string
	// events is buffered to 1 so back-to-back writes coalesce.
	events chan struct{}
	// done is closed by [Watcher.Close] to stop the background goroutine.
	done chan struct{}
	// stopped is closed when the background goroutine has exited.
	stopped chan struct{}
	// once makes [Watcher.Close] idempotent.
	once sync.Once
	// polling is true once the watcher has fallen back to stat polling.
	polling atomic.Bool
	// pollInterval is the duration between stat calls in polling mode.
	pollInterval time.Duration
	// forcePoll skips fsnotify entirely.
	forcePoll bool
}

// New starts watching path. The file does not need to exist yet, but its
// parent directory does when fsnotify is used; otherwise New falls back to
// polling rather than failing.
func New(path string, opts ...Option) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to resolve watch path"), "path", path)
	}
	w := &Watcher{
		path:         abs,
		events:       make(chan struct{}, 1),
		done:         make(chan struct{}),
		stopped:      make(chan struct{}),
		pollInterval: DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(w)
	}

	if w.forcePoll {
		w.startPolling()
		return w, nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Info("fsnotify unavailable, falling back to polling", "error", err)
		w.startPolling()
		return w, nil
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		slog.Info("cannot watch directory, falling back to polling", "path", filepath.Dir(abs), "error", err)
		_ = fsw.Close()
		w.startPolling()
		return w, nil
	}

	go w.watch(fsw)
	return w, nil
}

// Path returns the absolute path being watched.
func (w *Watcher) Path() string { return w.path }

// Polling reports whether the watcher is using polling instead of fsnotify.
func (w *Watcher) Polling() bool {
	return w.polling.Load()
}

// Events returns a channel that receives a signal when the file changes.
func (w *Watcher) Events() <-chan struct{} {
	return w.events
}

// Close stops the watcher and waits for its goroutine to exit.
func (w *Watcher) Close() error {
	w.once.Do(func() {
		close(w.done)
		<-w.stopped
	})
	return nil
}

// startPolling switches to stat polling in a new goroutine.
func (w *Watcher) startPolling() {
	w.polling.Store(true)
	go func() {
		defer close(w.stopped)
		w.poll()
	}()
}

// watch forwards fsnotify events for the watched file. On an fsnotify error
// it closes the native watcher and continues in polling mode. fsw is owned
// by this goroutine.
func (w *Watcher) watch(fsw *fsnotify.Watcher) {
	defer close(w.stopped)
	for {
		select {
		case <-w.done:
			_ = fsw.Close()
			return
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				w.notify()
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			slog.Info("fsnotify error, switching to polling", "error", err)
			_ = fsw.Close()
			w.polling.Store(true)
			w.poll()
			return
		}
	}
}

// stamp identifies one version of the file for polling.
type stamp struct {
	mod  time.Time
	size int64
	ok   bool
}

// statStamp returns the current stamp of path; ok is false if it is missing.
func statStamp(path string) stamp {
	info, err := os.Stat(path)
	if err != nil {
		return stamp{}
	}
	return stamp{mod: info.ModTime(), size: info.Size(), ok: true}
}

// poll stats the file every pollInterval and notifies when its modification
// time or size changes, or when it appears. A file that disappears is not
// reported until it comes back.
func (w *Watcher) poll() {
	last := statStamp(w.path)

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			cur := statStamp(w.path)
			if !cur.ok {
				last = cur
				continue
			}
			if !last.ok || !cur.mod.Equal(last.mod) || cur.size != last.size {
				last = cur
				w.notify()
			}
		}
	}
}

// notify sends a single signal to the events channel. If a signal is already
// pending the call is a no-op, coalescing rapid successive changes.
func (w *Watcher) notify() {
	select {
	case w.events <- struct{}{}:
	default:
	}
}
