package loc

import (
	"strings"
)

// ///////////////////////////////////////////////
// Scan Configuration
// ///////////////////////////////////////////////

// ScanConfig selects which files an aggregate call counts. It is supplied
// fresh on every call and is never retained by the cache.
type ScanConfig struct {
	// AllowedExtensions holds dot-prefixed, case-sensitive extensions (".go").
	AllowedExtensions map[string]struct{}
	// IgnoredDirectories holds exact directory basenames ("node_modules").
	IgnoredDirectories map[string]struct{}
}

// NewScanConfig validates and normalizes the two configuration lists.
// Surrounding whitespace is trimmed and duplicates collapse. Empty entries,
// extensions without a leading dot, and directory names containing a path
// separator are rejected with a [*ConfigError].
func NewScanConfig(allowedExtensions, ignoredDirectories []string) (ScanConfig, error) {
	cfg := ScanConfig{
		AllowedExtensions:  make(map[string]struct{}, len(allowedExtensions)),
		IgnoredDirectories: make(map[string]struct{}, len(ignoredDirectories)),
	}

	for _, raw := range allowedExtensions {
		ext := strings.TrimSpace(raw)
		switch {
		case ext == "":
			return ScanConfig{}, &ConfigError{Field: "allowed_extensions", Value: raw, Reason: "empty extension"}
		case !strings.HasPrefix(ext, ".") || ext == ".":
			return ScanConfig{}, &ConfigError{Field: "allowed_extensions", Value: raw, Reason: "extension must start with a dot, e.g. \".go\""}
		case strings.ContainsAny(ext, `/\`):
			return ScanConfig{}, &ConfigError{Field: "allowed_extensions", Value: raw, Reason: "extension must not contain a path separator"}
		}
		cfg.AllowedExtensions[ext] = struct{}{}
	}

	for _, raw := range ignoredDirectories {
		name := strings.TrimSpace(raw)
		switch {
		case name == "":
			return ScanConfig{}, &ConfigError{Field: "ignored_directories", Value: raw, Reason: "empty directory name"}
		case strings.ContainsAny(name, `/\`):
			return ScanConfig{}, &ConfigError{Field: "ignored_directories", Value: raw, Reason: "must be a basename, not a path"}
		}
		cfg.IgnoredDirectories[name] = struct{}{}
	}

	return cfg, nil
}

// allows reports whether ext is in the allowed set.
func (c ScanConfig) allows(ext string) bool {
	_, ok := c.AllowedExtensions[ext]
	return ok
}

// ignores reports whether a directory basename is in the ignored set.
func (c ScanConfig) ignores(name string) bool {
	_, ok := c.IgnoredDirectories[name]
	return ok
}
