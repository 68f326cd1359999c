package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tools.zach/dev/trackpad/internal/paths"
)

// ///////////////////////////////////////////////
// resolveVersion Tests
// ///////////////////////////////////////////////

func TestResolveVersionWithLdflags(t *testing.T) {
	original := version
	defer func() { version = original }()

	version = "1.2.3"
	if got := resolveVersion(); got != "1.2.3" {
		t.Errorf("resolveVersion() = %q, want %q", got, "1.2.3")
	}
}

func TestResolveVersionDev(t *testing.T) {
	original := version
	defer func() { version = original }()

	// Test binaries may or may not carry VCS info.
	version = "dev"
	got := resolveVersion()
	if !strings.HasPrefix(got, "dev") {
		t.Errorf("resolveVersion() = %q, expected to start with 'dev'", got)
	}
}

// ///////////////////////////////////////////////
// defaultDataDir Tests
// ///////////////////////////////////////////////

func TestDefaultDataDir(t *testing.T) {
	t.Setenv(paths.HomeEnv, "")
	dir := defaultDataDir()
	if !strings.HasSuffix(dir, paths.DataDirRel) {
		t.Errorf("defaultDataDir() = %q, want path ending in %q", dir, paths.DataDirRel)
	}
}

func TestDefaultDataDir_EnvOverride(t *testing.T) {
	want := t.TempDir()
	t.Setenv(paths.HomeEnv, want)
	if got := defaultDataDir(); got != filepath.Clean(want) {
		t.Errorf("defaultDataDir() = %q, want %q", got, want)
	}
}

// ///////////////////////////////////////////////
// Command Tests
// ///////////////////////////////////////////////

// runCLI executes args and returns the exit code with captured output.
func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := execute(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

// writeFile creates path with content, making parent directories.
func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll() error: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
}

func TestVersionCommand(t *testing.T) {
	code, out, _ := runCLI(t, "version")
	if code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
	if !strings.HasPrefix(out, "trackpad version ") {
		t.Errorf("output = %q, want trackpad version prefix", out)
	}
}

func TestUnknownCommand(t *testing.T) {
	code, _, stderr := runCLI(t, "bogus", "--data-dir", t.TempDir())
	if code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
	if !strings.Contains(stderr, "Error:") {
		t.Errorf("stderr = %q, want an error message", stderr)
	}
}

func TestCountCommand(t *testing.T) {
	ws := t.TempDir()
	writeFile(t, filepath.Join(ws, "main.go"), "package main\n\n// comment\nfunc main() {}\n")
	writeFile(t, filepath.Join(ws, "notes.txt"), "one\ntwo\n")
	writeFile(t, filepath.Join(ws, "node_modules", "dep.go"), "package dep\n")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{
			name: "config defaults",
			args: []string{"count", ws},
			want: "total: 2 lines in 1 files",
		},
		{
			name: "ext override",
			args: []string{"count", ws, "--ext", ".txt,.go"},
			want: "total: 4 lines in 2 files",
		},
		{
			name: "ignore override",
			args: []string{"count", ws, "--ignore", ".git"},
			want: "total: 3 lines in 2 files",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append(tt.args, "--data-dir", t.TempDir())
			code, out, stderr := runCLI(t, args...)
			if code != 0 {
				t.Fatalf("exit code = %d, stderr = %q", code, stderr)
			}
			if !strings.Contains(out, tt.want) {
				t.Errorf("output = %q, want %q", out, tt.want)
			}
			if !strings.Contains(out, ws+": ") {
				t.Errorf("output = %q, want per-root line for %s", out, ws)
			}
		})
	}
}

func TestCountCommand_MissingRootIsPartialFailure(t *testing.T) {
	ws := t.TempDir()
	writeFile(t, filepath.Join(ws, "a.go"), "x\n")
	missing := filepath.Join(ws, "missing")

	code, out, stderr := runCLI(t, "count", ws, missing, "--data-dir", t.TempDir())
	if code != 0 {
		t.Fatalf("exit code = %d, stderr = %q", code, stderr)
	}
	if !strings.Contains(out, "total: 1 lines in 1 files") {
		t.Errorf("output = %q, want total of the readable root", out)
	}
	if !strings.Contains(out, "skipped 1 paths:") {
		t.Errorf("output = %q, want the missing root listed", out)
	}
}

func TestCountCommand_InvalidExtension(t *testing.T) {
	code, _, stderr := runCLI(t, "count", t.TempDir(), "--ext", "go", "--data-dir", t.TempDir())
	if code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
	if !strings.Contains(stderr, "allowed_extensions") {
		t.Errorf("stderr = %q, want the offending field", stderr)
	}
}

func TestCountCommand_NoRoots(t *testing.T) {
	code, out, _ := runCLI(t, "count", "--data-dir", t.TempDir())
	if code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
	if !strings.Contains(out, "no workspace roots") {
		t.Errorf("output = %q, want hint", out)
	}
}

func TestCountCommand_UsesConfiguredRoots(t *testing.T) {
	ws := t.TempDir()
	writeFile(t, filepath.Join(ws, "lib.rs"), "fn a() {}\nfn b() {}\n")
	dataDir := t.TempDir()
	writeFile(t, filepath.Join(dataDir, paths.ConfigFile), "[workspace]\nroots = ['"+ws+"']\n")

	code, out, stderr := runCLI(t, "count", "--data-dir", dataDir)
	if code != 0 {
		t.Fatalf("exit code = %d, stderr = %q", code, stderr)
	}
	if !strings.Contains(out, "total: 2 lines in 1 files") {
		t.Errorf("output = %q, want configured root counted", out)
	}
}

func TestLogsCommand(t *testing.T) {
	dataDir := t.TempDir()
	writeFile(t, filepath.Join(dataDir, paths.LogFile), "one\ntwo\nthree\nfour\n")

	code, out, _ := runCLI(t, "logs", "-n", "2", "--data-dir", dataDir)
	if code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
	if out != "three\nfour\n" {
		t.Errorf("output = %q, want last two lines", out)
	}
}

func TestLogsCommand_MissingLog(t *testing.T) {
	code, _, _ := runCLI(t, "logs", "--data-dir", t.TempDir())
	if code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
}

func TestRunCommand_AlreadyRunning(t *testing.T) {
	dp := DataPaths{Root: t.TempDir()}
	lock, err := acquirePID(dp.PID())
	if err != nil {
		t.Fatalf("acquirePID() error: %v", err)
	}
	defer lock.Release()

	code, _, stderr := runCLI(t, "run", "--data-dir", dp.Root)
	if code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
	if !strings.Contains(stderr, "already running") {
		t.Errorf("stderr = %q, want already-running error", stderr)
	}
}
