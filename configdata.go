// Package trackpad provides embedded assets for the trackpad daemon.
//
// The root package exists solely to embed [config.default.toml] via
// [DefaultConfigTOML]. The config package writes this file to the data
// directory on first run.
package trackpad

import _ "embed"

// DefaultConfigTOML holds the raw bytes of config.default.toml, embedded at
// build time.
//
//go:embed config.default.toml
var DefaultConfigTOML []byte
