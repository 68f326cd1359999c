// Package logger provides structured logging with custom levels and formatting
// for the trackpad daemon.
//
// Log output format:
//
//	2006-01-02T15:04:05.000Z [LEVEL] message | key=value, key2=value2
//
// Group-valued attributes, including errors that implement [slog.LogValuer]
// such as zerr errors, are flattened into dotted keys:
//
//	... [WARN] scan failure | error.msg=failed to list directory, error.path=/src
//
// Custom levels beyond the standard slog set:
//   - LevelTrace (-8): verbose diagnostic tracing
//   - LevelFail  (12): unrecoverable errors
package logger

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"sync"

	"go.trai.ch/zerr"
	"gopkg.in/natefinch/lumberjack.v2"
)

// ///////////////////////////////////////////////
// Custom Levels
// ///////////////////////////////////////////////

const (
	LevelTrace slog.Level = -8
	LevelDebug slog.Level = slog.LevelDebug
	LevelInfo  slog.Level = slog.LevelInfo
	LevelWarn  slog.Level = slog.LevelWarn
	LevelError slog.Level = slog.LevelError
	LevelFail  slog.Level = 12
)

// levelNames maps each named level to its display string, lowest first.
var levelNames = []struct {
	max  slog.Level
	name string
}{
	{LevelTrace, "TRACE"},
	{LevelDebug, "DEBUG"},
	{LevelInfo, "INFO"},
	{LevelWarn, "WARN"},
	{LevelError, "ERROR"},
}

// levelName returns the display name for a log level. Levels between two
// named levels take the name of the higher one.
func levelName(l slog.Level) string {
	for _, n := range levelNames {
		if l <= n.max {
			return n.name
		}
	}
	return "FAIL"
}

// ParseLevel converts a level string to slog.Level.
// Supports: trace, debug, info, warn, error, fail (case-insensitive).
// Returns LevelInfo for unrecognized strings.
func ParseLevel(s string) slog.Level {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "fail" {
		return LevelFail
	}
	for _, n := range levelNames {
		if strings.ToLower(n.name) == s {
			return n.max
		}
	}
	return LevelInfo
}

// ///////////////////////////////////////////////
// Handler
// ///////////////////////////////////////////////

// lineEnding is CRLF on Windows, LF elsewhere.
var lineEnding = "\n"

func init() {
	if runtime.GOOS == "windows" {
		lineEnding = "\r\n"
	}
}

// Handler is a custom slog.Handler that formats log records as:
//
//	2006-01-02T15:04:05.000Z [LEVEL] message | key=value, ...
type Handler struct {
	// w is the destination writer for formatted log output.
	w io.Writer
	// mu serializes writes to w so concurrent log calls do not interleave.
	mu *sync.Mutex
	// level is the minimum severity that this handler will emit.
	level slog.Leveler
	// attrs holds pre-applied attributes added via [Handler.WithAttrs],
	// already qualified with the group active when they were added.
	attrs []slog.Attr
	// group is the dot-separated attribute key prefix set via [Handler.WithGroup].
	group string
}

// NewHandler creates a Handler that writes to w, filtering records below
// level. Pass a *slog.LevelVar to change the level at runtime.
func NewHandler(w io.Writer, level slog.Leveler) *Handler {
	return &Handler{w: w, level: level, mu: &sync.Mutex{}}
}

// Enabled reports whether the handler handles records at the given level.
func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle formats and writes a log record.
func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	var buf strings.Builder

	buf.WriteString(r.Time.UTC().Format("2006-01-02T15:04:05.000Z"))
	buf.WriteString(" [")
	buf.WriteString(levelName(r.Level))
	buf.WriteString("] ")
	buf.WriteString(r.Message)

	fields := make([]string, 0, len(h.attrs)+r.NumAttrs())
	for _, a := range h.attrs {
		fields = appendAttr(fields, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		fields = appendAttr(fields, h.group, a)
		return true
	})

	if len(fields) > 0 {
		buf.WriteString(" | ")
		buf.WriteString(strings.Join(fields, ", "))
	}
	buf.WriteString(lineEnding)

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, buf.String())
	return err
}

// appendAttr renders a as one or more "key=value" fields. LogValuer values
// are resolved and groups are flattened with dotted keys. Empty attributes
// and empty groups are dropped.
func appendAttr(fields []string, prefix string, a slog.Attr) []string {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return fields
	}

	key := a.Key
	if prefix != "" && key != "" {
		key = prefix + "." + key
	} else if key == "" {
		key = prefix
	}

	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			fields = appendAttr(fields, key, ga)
		}
		return fields
	}
	return append(fields, key+"="+a.Value.String())
}

// WithAttrs returns a new Handler with the given attributes pre-applied.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	next := h.clone()
	for _, a := range attrs {
		if h.group != "" {
			a = slog.Group(h.group, a)
		}
		next.attrs = append(next.attrs, a)
	}
	return next
}

// WithGroup returns a new Handler with the given group name.
// Attributes logged through the returned handler will have keys
// prefixed with the group name (e.g., "group.key").
func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := h.clone()
	if h.group != "" {
		next.group = h.group + "." + name
	} else {
		next.group = name
	}
	return next
}

// clone copies h, sharing the writer and its mutex.
func (h *Handler) clone() *Handler {
	attrs := make([]slog.Attr, len(h.attrs), len(h.attrs)+4)
	copy(attrs, h.attrs)
	return &Handler{w: h.w, mu: h.mu, level: h.level, attrs: attrs, group: h.group}
}

// ///////////////////////////////////////////////
// Logger Constructor
// ///////////////////////////////////////////////

// NewLogger creates a slog.Logger that writes to a rotating log file and to
// every writer in tee (typically os.Stderr when running in the foreground).
// The returned io.Closer must be closed to flush pending writes.
func NewLogger(logPath string, minLevel slog.Leveler, maxSizeMB int, tee ...io.Writer) (*slog.Logger, io.Closer, error) {
	if logPath == "" {
		return nil, nil, zerr.New("log path is empty")
	}
	lj := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    maxSizeMB,
		MaxBackups: 3,
		MaxAge:     28,
	}

	var w io.Writer = lj
	if len(tee) > 0 {
		w = io.MultiWriter(append([]io.Writer{lj}, tee...)...)
	}
	return slog.New(NewHandler(w, minLevel)), lj, nil
}

// ///////////////////////////////////////////////
// Helper Functions
// ///////////////////////////////////////////////

// Trace logs a message at LevelTrace.
func Trace(logger *slog.Logger, msg string, args ...any) {
	logger.Log(context.Background(), LevelTrace, msg, args...)
}

// Fail logs a message at LevelFail.
func Fail(logger *slog.Logger, msg string, args ...any) {
	logger.Log(context.Background(), LevelFail, msg, args...)
}

// Err returns an "error" attribute for err. zerr errors expand into their
// message, metadata and cause when formatted by [Handler].
func Err(err error) slog.Attr {
	return slog.Any("error", err)
}

// ///////////////////////////////////////////////
// ReadTail
// ///////////////////////////////////////////////

// ReadTail returns the last n lines from the file at path, oldest first.
// Returns an error if the file doesn't exist or can't be read.
func ReadTail(path string, n int) (string, error) {
	if n <= 0 {
		return "", nil
	}
	f, err := os.Open(path)
	if err != nil {
		return "", zerr.With(zerr.Wrap(err, "failed to open log file"), "path", path)
	}
	defer f.Close()

	ring := make([]string, n)
	total := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		ring[total%n] = strings.TrimRight(scanner.Text(), "\r")
		total++
	}
	if err := scanner.Err(); err != nil {
		return "", zerr.With(zerr.Wrap(err, "failed to read log file"), "path", path)
	}

	if total <= n {
		return strings.Join(ring[:total], "\n"), nil
	}
	start := total % n
	return strings.Join(append(ring[start:], ring[:start]...), "\n"), nil
}
