// Package presence turns a counting result into the Rich Presence card:
// template rendering, Discord's field limits, and the idle card.
package presence

import (
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"tools.zach/dev/trackpad/internal/config"
	"tools.zach/dev/trackpad/internal/discord"
	"tools.zach/dev/trackpad/internal/wakatime"
)

// MaxFieldLength is Discord's limit for the details and state fields, in
// characters.
const MaxFieldLength = 128

// ///////////////////////////////////////////////
// Template Rendering
// ///////////////////////////////////////////////

// Vars holds the values substituted into display templates.
type Vars struct {
	// WorkspaceName is the display name after privacy rules.
	WorkspaceName string
	// Lines is the aggregate line count.
	Lines int
	// Files is the number of files counted.
	Files int
	// WakaTime is today's coding time.
	WakaTime wakatime.Summary
}

// Render substitutes the template placeholders and truncates the result to
// [MaxFieldLength]. Substitution is a single pass, so placeholder text inside
// a value is left alone. Unknown placeholders are kept verbatim.
//
// Placeholders: {workspace.name}, {workspace.loc}, {workspace.files},
// {wakatime.decimal}, {wakatime.digital}, {wakatime.seconds}, {wakatime.text}.
func Render(tmpl string, v Vars) string {
	r := strings.NewReplacer(
		"{workspace.name}", v.WorkspaceName,
		"{workspace.loc}", FormatWithCommas(int64(v.Lines)),
		"{workspace.files}", FormatWithCommas(int64(v.Files)),
		"{wakatime.decimal}", v.WakaTime.Decimal,
		"{wakatime.digital}", v.WakaTime.Digital,
		"{wakatime.seconds}", strconv.FormatInt(int64(v.WakaTime.Seconds), 10),
		"{wakatime.text}", v.WakaTime.Text,
	)
	return Truncate(r.Replace(tmpl), MaxFieldLength)
}

// FormatWithCommas formats n with comma thousands separators: 1,500,000.
func FormatWithCommas(n int64) string {
	if n < 0 {
		return "-" + FormatWithCommas(-n)
	}
	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + len(s)/3)
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	return b.String()
}

// Truncate shortens s to at most limit characters, ending in "…" when cut.
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit-1]) + "…"
}

// ///////////////////////////////////////////////
// Activity Builder
// ///////////////////////////////////////////////

// Snapshot is the state one refresh publishes.
type Snapshot struct {
	// Roots are the resolved workspace roots; none means idle.
	Roots []string
	// Lines is the aggregate line count.
	Lines int
	// Files is the number of files counted.
	Files int
	// WakaTime is today's coding time.
	WakaTime wakatime.Summary
	// Started is shown as the elapsed-time anchor when non-zero.
	Started time.Time
}

// Build returns the activity for snap under cfg. With no roots it shows the
// idle text; otherwise it renders the details and state templates.
func Build(cfg *config.Config, snap Snapshot) *discord.Activity {
	vars := Vars{
		WorkspaceName: cfg.WorkspaceName(snap.Roots),
		Lines:         snap.Lines,
		Files:         snap.Files,
		WakaTime:      snap.WakaTime,
	}

	a := &discord.Activity{}
	if len(snap.Roots) == 0 {
		a.Details = Render(cfg.Display.IdleDetails, vars)
		a.State = Render(cfg.Display.IdleState, vars)
	} else {
		a.Details = Render(cfg.Display.Details, vars)
		a.State = Render(cfg.Display.State, vars)
	}

	assets := cfg.Display.Assets
	if assets != (config.AssetsConfig{}) {
		a.Assets = &discord.Assets{
			LargeImage: assets.LargeImage,
			LargeText:  Render(assets.LargeText, vars),
			SmallImage: assets.SmallImage,
			SmallText:  Render(assets.SmallText, vars),
		}
	}

	if !snap.Started.IsZero() {
		a.Timestamps = &discord.Timestamps{Start: snap.Started.Unix()}
	}
	return a
}
