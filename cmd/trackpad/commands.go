package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.trai.ch/zerr"

	"tools.zach/dev/trackpad/internal/config"
	"tools.zach/dev/trackpad/internal/discord"
	"tools.zach/dev/trackpad/internal/loc"
	"tools.zach/dev/trackpad/internal/logger"
	"tools.zach/dev/trackpad/internal/metrics"
	"tools.zach/dev/trackpad/internal/presence"
)

// errAlreadyRunning is returned by run when another daemon holds the PID lock.
var errAlreadyRunning = errors.New("daemon already running")

// ///////////////////////////////////////////////
// run
// ///////////////////////////////////////////////

func newRunCmd(opts *options) *cobra.Command {
	var foreground bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the presence daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var tee []io.Writer
			if foreground {
				tee = append(tee, cmd.ErrOrStderr())
			}
			return runDaemon(cmd, opts.paths(), tee)
		},
	}
	cmd.Flags().BoolVarP(&foreground, "foreground", "f", false, "Also write logs to stderr")
	return cmd
}

// runDaemon takes the PID lock, sets up logging, connects to Discord, and
// runs the refresh loop until the command's context is cancelled.
func runDaemon(cmd *cobra.Command, dp DataPaths, tee []io.Writer) error {
	ctx := cmd.Context()

	if err := dp.Ensure(); err != nil {
		return err
	}
	lock, err := acquirePID(dp.PID())
	if err != nil {
		return err
	}
	defer lock.Release()

	created, err := config.WriteDefault(dp.Config())
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: failed to write default config: %v\n", err)
	}
	cfg, err := config.Load(dp.Root)
	if err != nil {
		return zerr.Wrap(err, "failed to load config")
	}

	level := new(slog.LevelVar)
	level.Set(logger.ParseLevel(cfg.Log.Level))
	log, logCloser, err := logger.NewLogger(dp.Log(), level, cfg.Log.MaxSizeMB, tee...)
	if err != nil {
		return zerr.Wrap(err, "failed to init logger")
	}
	defer logCloser.Close()
	slog.SetDefault(log)

	slog.Info("trackpad starting", "version", resolveVersion(), "data_dir", dp.Root)
	if created {
		slog.Info("wrote default config", "path", dp.Config())
	}

	m := metrics.New()
	if cfg.Metrics.Listen != "" {
		go func() {
			if err := m.Serve(ctx, cfg.Metrics.Listen); err != nil {
				slog.Error("metrics server stopped", logger.Err(err))
			}
		}()
	}

	client := discord.NewClient(cfg.Discord.AppID)
	if err := connectWithRetry(ctx, client, cfg.ReconnectInterval()); err != nil {
		logger.Fail(log, "failed to connect to Discord", logger.Err(err))
		return err
	}
	slog.Info("connected to Discord")

	d, err := newDaemon(dp, cfg, client, m)
	if err != nil {
		_ = client.Close()
		return err
	}
	d.level = level
	defer d.close()

	return d.run(ctx, refreshChannel())
}

// connectWithRetry attempts to connect the [discord.Client] up to 10 times,
// sleeping interval between failures.
func connectWithRetry(ctx context.Context, client *discord.Client, interval time.Duration) error {
	const maxAttempts = 10

	for i := range maxAttempts {
		err := client.Connect()
		if err == nil {
			return nil
		}
		slog.Warn("Discord connect attempt failed", "attempt", i+1, logger.Err(err))
		if i < maxAttempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(interval):
			}
		}
	}
	return zerr.With(zerr.New("failed to connect to Discord"), "attempts", maxAttempts)
}

// ///////////////////////////////////////////////
// count
// ///////////////////////////////////////////////

func newCountCmd(opts *options) *cobra.Command {
	var exts, ignores []string
	cmd := &cobra.Command{
		Use:   "count [roots...]",
		Short: "Count lines of code once and print the totals",
		Long: "Count lines of code under the given roots, or the configured workspace\n" +
			"roots when none are given. Unreadable paths are listed but do not fail\n" +
			"the command.",
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.dataDir)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("ext") {
				cfg.Workspace.AllowedExtensions = exts
			}
			if cmd.Flags().Changed("ignore") {
				cfg.Workspace.IgnoredDirectories = ignores
			}
			scan, err := cfg.ScanConfig()
			if err != nil {
				return err
			}

			roots := cfg.Roots()
			if len(args) > 0 {
				roots = absRoots(args)
			}
			if len(roots) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no workspace roots; pass a directory or set workspace.roots")
				return nil
			}

			agg := loc.New(loc.NewCache(), cfg.Behavior.ScanWorkers)
			res, err := agg.Aggregate(cmd.Context(), roots, scan)
			printResult(cmd.OutOrStdout(), res)
			return err
		},
	}
	cmd.Flags().StringSliceVar(&exts, "ext", nil, "Allowed file extensions, e.g. --ext .go,.rs (overrides config)")
	cmd.Flags().StringSliceVar(&ignores, "ignore", nil, "Ignored directory names (overrides config)")
	return cmd
}

// absRoots makes each root absolute, keeping order.
func absRoots(roots []string) []string {
	out := make([]string, len(roots))
	for i, r := range roots {
		r = config.ExpandHome(r)
		if abs, err := filepath.Abs(r); err == nil {
			r = abs
		}
		out[i] = r
	}
	return out
}

// printResult writes per-root subtotals, the total, and any skipped paths.
func printResult(w io.Writer, res loc.Result) {
	for _, r := range res.Roots {
		fmt.Fprintf(w, "%s: %s lines in %s files\n",
			r.Root, presence.FormatWithCommas(int64(r.Lines)), presence.FormatWithCommas(int64(r.Files)))
	}
	fmt.Fprintf(w, "total: %s lines in %s files (%s)\n",
		presence.FormatWithCommas(int64(res.Total)),
		presence.FormatWithCommas(int64(res.Files)),
		res.Elapsed.Round(time.Millisecond))

	if len(res.Failures) == 0 {
		return
	}
	fmt.Fprintf(w, "skipped %d paths:\n", len(res.Failures))
	for _, err := range res.Failures {
		fmt.Fprintf(w, "  %v\n", err)
	}
}

// ///////////////////////////////////////////////
// logs
// ///////////////////////////////////////////////

func newLogsCmd(opts *options) *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Print the tail of the daemon log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := logger.ReadTail(opts.paths().Log(), n)
			if err != nil {
				return err
			}
			if out != "" {
				fmt.Fprintln(cmd.OutOrStdout(), out)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&n, "lines", "n", 50, "Number of lines to print")
	return cmd
}

// ///////////////////////////////////////////////
// version
// ///////////////////////////////////////////////

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the application version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "trackpad version %s\n", resolveVersion())
		},
	}
}
