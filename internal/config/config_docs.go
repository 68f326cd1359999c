package config

// ///////////////////////////////////////////////
// Documentation Types
// ///////////////////////////////////////////////

// FieldDoc holds documentation and alternative examples for a single config field.
// The genconfig tool uses [FieldDoc] values to annotate the generated config.default.toml.
type FieldDoc struct {
	// Comment is shown as a header comment above the field in the example config.
	Comment string

	// Alternatives are shown as commented-out lines below the active value.
	Alternatives []string
}

// ///////////////////////////////////////////////
// Field Documentation Map
// ///////////////////////////////////////////////

// ConfigDocs maps TOML field paths (dot-separated, e.g. "display.assets.large_image")
// to their [FieldDoc] entries. The genconfig tool uses this map to annotate the
// generated config.default.toml with inline comments and alternative examples.
var ConfigDocs = map[string]FieldDoc{
	// ── Root ──────────────────────────────────────────────────────
	"version": {
		Comment: "Config schema version. Do not edit.",
	},

	// ── Discord ──────────────────────────────────────────────────
	"discord.app_id": {
		Comment: "Application ID for Discord Rich Presence.\nOverride with your own Discord app if you want custom images.",
	},

	// ── Workspace ────────────────────────────────────────────────
	"workspace.roots": {
		Comment: "Directories to count, in order. \"~\" expands to your home directory.\nWith no roots the card shows the idle text.",
		Alternatives: []string{
			`roots = ["~/src/my-project", "~/src/my-project-docs"]`,
		},
	},
	"workspace.name": {
		Comment: "Display name for {workspace.name}. Defaults to the first root's folder name.",
		Alternatives: []string{
			`name = "My Project"`,
		},
	},
	"workspace.allowed_extensions": {
		Comment: "File extensions to count, with the leading dot. Matching is case-sensitive.",
	},
	"workspace.ignored_directories": {
		Comment: "Directory names that are never entered, at any depth. Exact name match only.",
	},

	// ── Display ──────────────────────────────────────────────────
	"display.details": {
		Comment: "Templates for the presence card (details = top line, state = bottom line).\nAvailable variables: {workspace.name}, {workspace.loc}, {workspace.files}\nWakaTime variables (today): {wakatime.text}, {wakatime.digital}, {wakatime.decimal}, {wakatime.seconds}",
	},
	"display.state": {
		Alternatives: []string{
			`state = "{workspace.loc} lines of code"`,
			`state = ""`,
		},
	},
	"display.idle_details": {
		Comment: "What to show when no workspace roots are configured",
	},
	"display.idle_state": {},

	// ── Assets ───────────────────────────────────────────────────
	"display.assets.large_image": {
		Comment: "Discord image keys (must match assets uploaded to your Discord app)",
	},
	"display.assets.large_text": {},
	"display.assets.small_image": {
		Comment: "Optional small overlay image. Leave unset to hide it.",
		Alternatives: []string{
			`small_image = "go"`,
		},
	},
	"display.assets.small_text": {
		Alternatives: []string{
			`small_text = "Writing Go"`,
		},
	},

	// ── WakaTime ─────────────────────────────────────────────────
	"wakatime.api_key": {
		Comment: "WakaTime secret API key. Leave empty to disable the WakaTime variables (they show zero).",
	},
	"wakatime.api_url": {
		Comment: "API base URL. Point this at a WakaTime-compatible server if you self-host.",
		Alternatives: []string{
			`api_url = "https://wakapi.dev/api/compat/wakatime/v1"`,
		},
	},
	"wakatime.timeout_seconds": {
		Comment: "Timeout for each request attempt",
	},

	// ── Privacy ──────────────────────────────────────────────────
	"privacy.hide_workspace_name": {
		Comment: "Replace {workspace.name} with hidden_workspace_text",
	},
	"privacy.hidden_workspace_text": {},
	"privacy.ignore": {
		Comment: "Roots matching any of these glob patterns are not counted.\nSupports ** for any depth.",
		Alternatives: []string{
			`ignore = ["~/work/**", "**/secret-*"]`,
		},
	},

	// ── Behavior ─────────────────────────────────────────────────
	"behavior.refresh_interval_seconds": {
		Comment: "Seconds between presence refreshes (minimum 10).\nSend SIGUSR1 to the daemon to refresh immediately.",
	},
	"behavior.reconnect_interval_seconds": {
		Comment: "Seconds between Discord reconnect attempts",
	},
	"behavior.scan_workers": {
		Comment: "Files counted in parallel. 0 uses one per CPU.",
	},
	"behavior.watch_config": {
		Comment: "Reload this file automatically when it changes",
	},

	// ── Metrics ──────────────────────────────────────────────────
	"metrics.listen": {
		Comment: "Serve Prometheus metrics at http://<listen>/metrics. Empty disables the endpoint.",
		Alternatives: []string{
			`listen = "127.0.0.1:9464"`,
		},
	},

	// ── Log ──────────────────────────────────────────────────────
	"log": {
		Comment: "Daemon log file settings. Logs live in the data directory as daemon.log.",
	},
	"log.level": {
		Comment: "Minimum level: trace, debug, info, warn, error",
		Alternatives: []string{
			`level = "debug"`,
		},
	},
	"log.max_size_mb": {
		Comment: "Rotate the log file after it reaches this size",
	},
}
