// Package config provides configuration loading and defaults for the trackpad
// daemon.
//
// Configuration is loaded from a TOML file in the user's data directory. The
// package covers the workspace to count, presence templates, the WakaTime
// integration, privacy controls, and daemon behavior, with defaults for all
// of them.
package config

//go:generate go run ../../cmd/genconfig

import (
	"bytes"
	"errors"
	"io/fs"
	"log/slog"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/bmatcuk/doublestar/v4"
	"go.trai.ch/zerr"

	trackpad "tools.zach/dev/trackpad"
	"tools.zach/dev/trackpad/internal/atomicfile"
	"tools.zach/dev/trackpad/internal/loc"
	"tools.zach/dev/trackpad/internal/paths"
)

// DefaultDiscordAppID is the trackpad Discord application ID.
const DefaultDiscordAppID = "1323609388442849280"

// CurrentVersion is the config schema version written by this build.
const CurrentVersion = 1

// DefaultWakaTimeURL is the WakaTime API base URL.
const DefaultWakaTimeURL = "https://wakatime.com/api/v1"

// ///////////////////////////////////////////////
// Configuration Types
// ///////////////////////////////////////////////

// Config represents the top-level application configuration.
type Config struct {
	// Version is the config schema version.
	Version int `toml:"version"`
	// Discord holds Discord connection settings.
	Discord DiscordConfig `toml:"discord"`
	// Workspace selects the directories and files that are counted.
	Workspace WorkspaceConfig `toml:"workspace"`
	// Display holds presence display settings.
	Display DisplayConfig `toml:"display"`
	// WakaTime holds the optional WakaTime integration settings.
	WakaTime WakaTimeConfig `toml:"wakatime"`
	// Privacy holds privacy and workspace-hiding settings.
	Privacy PrivacyConfig `toml:"privacy"`
	// Behavior holds daemon timing and concurrency settings.
	Behavior BehaviorConfig `toml:"behavior"`
	// Metrics holds the Prometheus endpoint settings.
	Metrics MetricsConfig `toml:"metrics"`
	// Log holds logging settings.
	Log LogConfig `toml:"log"`
}

// DiscordConfig holds Discord connection settings.
type DiscordConfig struct {
	// AppID is the Discord application ID for Rich Presence.
	AppID string `toml:"app_id"`
}

// WorkspaceConfig selects what is counted.
type WorkspaceConfig struct {
	// Roots are the workspace directories, counted in order. A leading "~"
	// expands to the home directory.
	Roots []string `toml:"roots"`
	// Name is the display name. Empty uses the basename of the first root.
	Name string `toml:"name,omitempty"`
	// AllowedExtensions are dot-prefixed, case-sensitive file extensions.
	AllowedExtensions []string `toml:"allowed_extensions"`
	// IgnoredDirectories are directory basenames that are never entered.
	IgnoredDirectories []string `toml:"ignored_directories"`
}

// DisplayConfig holds presence display settings.
type DisplayConfig struct {
	// Details is the template for the top line.
	Details string `toml:"details"`
	// State is the template for the bottom line. Empty hides the line.
	State string `toml:"state"`
	// IdleDetails is shown as the top line when no workspace is configured.
	IdleDetails string `toml:"idle_details"`
	// IdleState is shown as the bottom line when no workspace is configured.
	IdleState string `toml:"idle_state"`
	// Assets holds Discord Rich Presence asset settings.
	Assets AssetsConfig `toml:"assets"`
}

// AssetsConfig holds Discord Rich Presence asset settings.
type AssetsConfig struct {
	// LargeImage is the key for the large image asset in Discord.
	LargeImage string `toml:"large_image"`
	// LargeText is the tooltip text for the large image.
	LargeText string `toml:"large_text"`
	// SmallImage is the key for the small overlay image. Empty hides it.
	SmallImage string `toml:"small_image,omitempty"`
	// SmallText is the tooltip text for the small image.
	SmallText string `toml:"small_text,omitempty"`
}

// WakaTimeConfig holds the WakaTime integration settings.
type WakaTimeConfig struct {
	// APIKey is the WakaTime secret API key. Empty disables the integration.
	APIKey string `toml:"api_key"`
	// APIURL is the API base URL (WakaTime or a compatible server).
	APIURL string `toml:"api_url"`
	// TimeoutSeconds bounds each HTTP attempt.
	TimeoutSeconds int `toml:"timeout_seconds"`
}

// PrivacyConfig holds privacy settings for hiding the workspace name and
// skipping roots.
type PrivacyConfig struct {
	// HideWorkspaceName replaces the workspace name with HiddenWorkspaceText.
	HideWorkspaceName bool `toml:"hide_workspace_name"`
	// HiddenWorkspaceText is the generic text shown when HideWorkspaceName is true.
	HiddenWorkspaceText string `toml:"hidden_workspace_text"`
	// Ignore lists doublestar glob patterns matched against root paths.
	// Matching roots are not counted.
	Ignore []string `toml:"ignore"`
}

// BehaviorConfig holds daemon behavior settings.
type BehaviorConfig struct {
	// RefreshIntervalSeconds is the time between presence refreshes.
	RefreshIntervalSeconds int `toml:"refresh_interval_seconds"`
	// ReconnectIntervalSeconds is the Discord reconnect interval.
	ReconnectIntervalSeconds int `toml:"reconnect_interval_seconds"`
	// ScanWorkers bounds concurrent file counts. 0 uses the CPU count.
	ScanWorkers int `toml:"scan_workers"`
	// WatchConfig reloads the config file when it changes.
	WatchConfig bool `toml:"watch_config"`
}

// MetricsConfig holds the Prometheus endpoint settings.
type MetricsConfig struct {
	// Listen is the host:port for the /metrics endpoint. Empty disables it.
	Listen string `toml:"listen"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Level is the minimum log level (trace, debug, info, warn, error).
	Level string `toml:"level"`
	// MaxSizeMB is the maximum log file size in megabytes before rotation.
	MaxSizeMB int `toml:"max_size_mb"`
}

// ///////////////////////////////////////////////
// Default Configuration
// ///////////////////////////////////////////////

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version: CurrentVersion,
		Discord: DiscordConfig{
			AppID: DefaultDiscordAppID,
		},
		Workspace: WorkspaceConfig{
			Roots: []string{},
			AllowedExtensions: []string{
				".c", ".cpp", ".cs", ".css", ".go", ".h", ".html", ".java", ".js",
				".jsx", ".kt", ".lua", ".php", ".py", ".rb", ".rs", ".sh", ".sql",
				".swift", ".ts", ".tsx", ".vue", ".zig",
			},
			IgnoredDirectories: []string{
				".git", ".venv", "build", "dist", "node_modules", "target", "vendor",
			},
		},
		Display: DisplayConfig{
			Details:     "Working on {workspace.name}",
			State:       "{workspace.loc} lines of code",
			IdleDetails: "Idle",
			IdleState:   "",
			Assets: AssetsConfig{
				LargeImage: "vscode",
				LargeText:  "Visual Studio Code",
			},
		},
		WakaTime: WakaTimeConfig{
			APIURL:         DefaultWakaTimeURL,
			TimeoutSeconds: 10,
		},
		Privacy: PrivacyConfig{
			HiddenWorkspaceText: "a project",
			Ignore:              []string{},
		},
		Behavior: BehaviorConfig{
			RefreshIntervalSeconds:   300,
			ReconnectIntervalSeconds: 15,
			ScanWorkers:              0,
			WatchConfig:              true,
		},
		Log: LogConfig{
			Level:     "info",
			MaxSizeMB: 10,
		},
	}
}

// ///////////////////////////////////////////////
// Example Configuration
// ///////////////////////////////////////////////

// ExampleConfig returns a Config suitable for generating config.default.toml.
func ExampleConfig() *Config {
	cfg := DefaultConfig()
	cfg.Display.State = "{workspace.loc} lines · {wakatime.text} today"
	return cfg
}

// ///////////////////////////////////////////////
// Loading and Saving
// ///////////////////////////////////////////////

// Load reads and parses the configuration file from dataDir/config.toml.
// If the file doesn't exist, returns DefaultConfig.
func Load(dataDir string) (*Config, error) {
	return LoadFile(filepath.Join(dataDir, paths.ConfigFile))
}

// LoadFile reads and parses the configuration file at path. Fields missing
// from the file keep their defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return DefaultConfig(), nil
		}
		return nil, zerr.With(zerr.Wrap(err, "failed to read config file"), "path", path)
	}
	return Parse(data)
}

// Parse decodes TOML config data over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, &loc.ConfigError{Field: "config", Reason: "malformed TOML", Err: err}
	}
	for _, key := range md.Undecoded() {
		slog.Warn("unknown config key", "key", key.String())
	}
	if cfg.Version > CurrentVersion {
		return nil, &loc.ConfigError{
			Field:  "version",
			Reason: "config was written by a newer trackpad",
		}
	}
	cfg.Version = CurrentVersion

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config to disk as TOML using atomic file write.
func (c *Config) Save(path string) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return zerr.Wrap(err, "failed to encode config")
	}
	return atomicfile.Write(path, buf.Bytes(), 0o600)
}

// WriteDefault writes the embedded config.default.toml to path unless a file
// already exists there. It reports whether the file was created.
func WriteDefault(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, zerr.With(zerr.Wrap(err, "failed to stat config file"), "path", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, zerr.With(zerr.Wrap(err, "failed to create config directory"), "path", path)
	}
	if err := atomicfile.Write(path, trackpad.DefaultConfigTOML, 0o600); err != nil {
		return false, err
	}
	return true, nil
}

// ///////////////////////////////////////////////
// Validation
// ///////////////////////////////////////////////

// validLogLevels is the set of accepted log level strings.
var validLogLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true, "error": true,
}

// invalid builds the error returned by [Config.Validate].
func invalid(field, value, reason string) error {
	return &loc.ConfigError{Field: field, Value: value, Reason: reason}
}

// Validate checks that all configuration values are within acceptable ranges.
// Every failure is a [*loc.ConfigError].
func (c *Config) Validate() error {
	if c.Discord.AppID == "" {
		return invalid("discord.app_id", "", "must not be empty")
	}

	if _, err := c.ScanConfig(); err != nil {
		return err
	}
	for _, root := range c.Workspace.Roots {
		if strings.TrimSpace(root) == "" {
			return invalid("workspace.roots", root, "empty root")
		}
	}

	if c.WakaTime.APIKey != "" {
		u, err := url.Parse(c.WakaTime.APIURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return invalid("wakatime.api_url", c.WakaTime.APIURL, "must be an absolute http(s) URL")
		}
	}
	if c.WakaTime.TimeoutSeconds <= 0 {
		return invalid("wakatime.timeout_seconds", strconv.Itoa(c.WakaTime.TimeoutSeconds), "must be > 0")
	}

	for _, pattern := range c.Privacy.Ignore {
		if !doublestar.ValidatePattern(filepath.ToSlash(pattern)) {
			return invalid("privacy.ignore", pattern, "invalid glob pattern")
		}
	}

	if c.Behavior.RefreshIntervalSeconds < 10 {
		return invalid("behavior.refresh_interval_seconds", strconv.Itoa(c.Behavior.RefreshIntervalSeconds), "must be >= 10")
	}
	if c.Behavior.ReconnectIntervalSeconds <= 0 {
		return invalid("behavior.reconnect_interval_seconds", strconv.Itoa(c.Behavior.ReconnectIntervalSeconds), "must be > 0")
	}
	if c.Behavior.ScanWorkers < 0 {
		return invalid("behavior.scan_workers", strconv.Itoa(c.Behavior.ScanWorkers), "must be >= 0")
	}

	if c.Metrics.Listen != "" {
		if _, _, err := net.SplitHostPort(c.Metrics.Listen); err != nil {
			return invalid("metrics.listen", c.Metrics.Listen, "must be host:port")
		}
	}

	if !validLogLevels[strings.ToLower(c.Log.Level)] {
		return invalid("log.level", c.Log.Level, "must be trace, debug, info, warn, or error")
	}
	if c.Log.MaxSizeMB <= 0 {
		return invalid("log.max_size_mb", strconv.Itoa(c.Log.MaxSizeMB), "must be > 0")
	}

	return nil
}

// ///////////////////////////////////////////////
// Derived Settings
// ///////////////////////////////////////////////

// ScanConfig builds the counting filter from the workspace settings.
func (c *Config) ScanConfig() (loc.ScanConfig, error) {
	cfg, err := loc.NewScanConfig(c.Workspace.AllowedExtensions, c.Workspace.IgnoredDirectories)
	if err != nil {
		var cfgErr *loc.ConfigError
		if errors.As(err, &cfgErr) {
			cfgErr.Field = "workspace." + cfgErr.Field
		}
		return loc.ScanConfig{}, err
	}
	return cfg, nil
}

// Roots returns the configured roots with "~" expanded and relative paths
// made absolute, dropping any root matched by privacy.ignore. Order is kept.
func (c *Config) Roots() []string {
	out := make([]string, 0, len(c.Workspace.Roots))
	for _, raw := range c.Workspace.Roots {
		root := ExpandHome(strings.TrimSpace(raw))
		if abs, err := filepath.Abs(root); err == nil {
			root = abs
		}
		if c.IsIgnored(root) {
			slog.Debug("workspace root ignored by privacy settings", "root", root)
			continue
		}
		out = append(out, root)
	}
	return out
}

// WorkspaceName returns the display name for the workspace, respecting
// privacy settings. roots is the resolved root list from [Config.Roots].
func (c *Config) WorkspaceName(roots []string) string {
	if c.Privacy.HideWorkspaceName {
		return c.Privacy.HiddenWorkspaceText
	}
	if c.Workspace.Name != "" {
		return c.Workspace.Name
	}
	if len(roots) == 0 {
		return ""
	}
	return filepath.Base(roots[0])
}

// RefreshInterval returns the refresh interval as a duration.
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.Behavior.RefreshIntervalSeconds) * time.Second
}

// ReconnectInterval returns the Discord reconnect interval as a duration.
func (c *Config) ReconnectInterval() time.Duration {
	return time.Duration(c.Behavior.ReconnectIntervalSeconds) * time.Second
}

// WakaTimeTimeout returns the per-attempt WakaTime HTTP timeout.
func (c *Config) WakaTimeTimeout() time.Duration {
	return time.Duration(c.WakaTime.TimeoutSeconds) * time.Second
}

// ///////////////////////////////////////////////
// Privacy Helpers
// ///////////////////////////////////////////////

// IsIgnored reports whether root matches any of the configured ignore patterns.
func (c *Config) IsIgnored(root string) bool {
	target := filepath.ToSlash(root)
	for _, pattern := range c.Privacy.Ignore {
		matched, err := doublestar.Match(filepath.ToSlash(ExpandHome(pattern)), target)
		if err != nil {
			slog.Warn("invalid glob pattern", "pattern", pattern, "error", err)
			continue
		}
		if matched {
			return true
		}
	}
	return false
}

// ExpandHome replaces a leading "~" path element with the home directory.
// Paths that do not start with "~" are returned unchanged.
func ExpandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") && !strings.HasPrefix(p, `~\`) {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, p[1:])
}
