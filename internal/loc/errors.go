package loc

import (
	"fmt"
)

// ///////////////////////////////////////////////
// Error Types
// ///////////////////////////////////////////////

// AccessError reports a directory that could not be listed. The subtree rooted
// at Path is skipped; sibling subtrees and other roots are still walked.
type AccessError struct {
	// Path is the directory that failed to list.
	Path string
	// Err is the underlying filesystem error.
	Err error
}

func (e *AccessError) Error() string {
	return fmt.Sprintf("access %s: %v", e.Path, e.Err)
}

func (e *AccessError) Unwrap() error { return e.Err }

// ReadError reports a file that was listed but could not be stat'd or read,
// usually because it was removed or renamed mid-scan. The file contributes
// zero lines and is evicted from the cache so the next call retries it.
type ReadError struct {
	// Path is the file that failed.
	Path string
	// Err is the underlying filesystem error.
	Err error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read %s: %v", e.Path, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// ConfigError reports a malformed scan configuration value.
type ConfigError struct {
	// Field names the offending setting (e.g. "allowed_extensions").
	Field string
	// Value is the rejected entry, if any.
	Value string
	// Reason describes why the value was rejected.
	Reason string
	// Err is an optional underlying cause, such as a TOML decode error.
	Err error
}

func (e *ConfigError) Error() string {
	msg := "invalid " + e.Field
	if e.Value != "" {
		msg += fmt.Sprintf(" %q", e.Value)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigError) Unwrap() error { return e.Err }
