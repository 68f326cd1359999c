// Package main implements the trackpad command, which counts lines of code in
// the configured workspace and publishes the total as Discord Rich Presence.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"

	"github.com/spf13/cobra"

	"tools.zach/dev/trackpad/internal/paths"
)

// ///////////////////////////////////////////////
// Version
// ///////////////////////////////////////////////

// version is set at build time via ldflags:
//   - goreleaser: -X main.version={{.Version}}  -> "0.1.0"
//   - make build: -X main.version=$(VERSION)    -> "0.0.0-dev+05ffee5"
//
// When ldflags are not set (bare go build), resolveVersion reads the VCS info
// that Go embeds automatically.
var version = "dev"

// resolveVersion returns the build version string. If [version] was set via
// ldflags it is returned as-is; otherwise the embedded VCS revision and dirty
// state are used to construct a "dev+<hash>" tag.
func resolveVersion() string {
	if version != "dev" {
		return version
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return version
	}
	var revision string
	var dirty bool
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if revision == "" {
		return version
	}
	hash := revision[:min(7, len(revision))]
	if dirty {
		return "dev+" + hash + ".dirty"
	}
	return "dev+" + hash
}

// ///////////////////////////////////////////////
// Default Data Directory
// ///////////////////////////////////////////////

// defaultDataDir returns $TRACKPAD_HOME or ~/.trackpad. Falls back to
// ./.trackpad if the home directory cannot be determined.
func defaultDataDir() string {
	dir, err := paths.Resolve()
	if err != nil {
		return filepath.Join(".", paths.DataDirRel)
	}
	return dir.Root
}

// ///////////////////////////////////////////////
// Main
// ///////////////////////////////////////////////

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

// execute runs the command line and returns the process exit code. SIGINT and
// SIGTERM cancel the command's context.
func execute(args []string, stdout, stderr io.Writer) int {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := signalChannel()
	go func() {
		select {
		case <-sigCh:
			slog.Info("received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
	}()

	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// options holds flags shared by every subcommand.
type options struct {
	// dataDir is the directory holding config, logs, and the PID file.
	dataDir string
}

// paths returns the data directory layout for the --data-dir flag.
func (o *options) paths() DataPaths {
	return DataPaths{Root: o.dataDir}
}

// newRootCmd builds the command tree. Running trackpad without a subcommand
// starts the daemon, as "trackpad run" does.
func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           paths.BinaryName,
		Short:         "Show your workspace's lines of code in Discord",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       resolveVersion(),
		Args:          cobra.NoArgs,
	}
	root.PersistentFlags().StringVar(&opts.dataDir, "data-dir", defaultDataDir(), "Data directory for config, logs, and caches")

	runCmd := newRunCmd(opts)
	root.RunE = runCmd.RunE
	root.Flags().AddFlagSet(runCmd.Flags())

	root.AddCommand(runCmd)
	root.AddCommand(newCountCmd(opts))
	root.AddCommand(newLogsCmd(opts))
	root.AddCommand(newVersionCmd())
	return root
}
