package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"tools.zach/dev/trackpad/internal/config"
	"tools.zach/dev/trackpad/internal/discord"
	"tools.zach/dev/trackpad/internal/loc"
	"tools.zach/dev/trackpad/internal/logger"
	"tools.zach/dev/trackpad/internal/metrics"
	"tools.zach/dev/trackpad/internal/presence"
	"tools.zach/dev/trackpad/internal/wakatime"
	"tools.zach/dev/trackpad/internal/watch"
)

// ///////////////////////////////////////////////
// Daemon State
// ///////////////////////////////////////////////

// daemon holds the state carried across iterations of the refresh loop. All
// fields are owned by the loop goroutine; refresh goroutines only receive
// copies.
type daemon struct {
	// paths locates the config, log, and WakaTime cache files.
	paths DataPaths
	// cfg is the active configuration, replaced on reload.
	cfg *config.Config
	// scan is the counting filter derived from cfg.
	scan loc.ScanConfig
	// roots are cfg's resolved workspace roots.
	roots []string
	// cache keeps line counts across refreshes and config reloads.
	cache *loc.Cache
	// agg runs the counts over cache.
	agg *loc.Aggregator
	// waka fetches today's coding time.
	waka *wakatime.Client
	// client is the Discord IPC connection.
	client *discord.Client
	// newClient builds a client for an application ID when app_id changes.
	newClient func(appID string) *discord.Client
	// metrics records scans and presence updates.
	metrics *metrics.Metrics
	// level is the logger's minimum level, updated on reload. May be nil.
	level *slog.LevelVar
	// started anchors the elapsed timer shown in Discord.
	started time.Time

	// gen identifies the newest refresh. Results from older ones are dropped.
	gen uint64
	// cancel stops the in-flight refresh, or is nil when none is running.
	cancel context.CancelFunc
	// results receives finished refreshes.
	results chan refreshResult
	// last is the most recent snapshot, republished after a reconnect.
	last *presence.Snapshot
	// lastHash is the hash of the activity Discord is showing; 0 forces the
	// next publish.
	lastHash uint64
}

// refreshResult is what a refresh goroutine hands back to the loop.
type refreshResult struct {
	// gen is the generation the refresh was started with.
	gen uint64
	// res is the counting result, partial when err is set.
	res loc.Result
	// snap is the presence snapshot built from res.
	snap presence.Snapshot
	// err is non-nil when the refresh was cancelled.
	err error
}

// newDaemon creates a daemon around a connected client.
func newDaemon(dp DataPaths, cfg *config.Config, client *discord.Client, m *metrics.Metrics) (*daemon, error) {
	d := &daemon{
		paths:   dp,
		cache:   loc.NewCache(),
		client:  client,
		metrics: m,
		started: time.Now(),
		results: make(chan refreshResult, 1),
		newClient: func(appID string) *discord.Client {
			return discord.NewClient(appID)
		},
	}
	if err := d.apply(cfg); err != nil {
		return nil, err
	}
	return d, nil
}

// apply installs cfg and rebuilds everything derived from it. The line-count
// cache is kept.
func (d *daemon) apply(cfg *config.Config) error {
	scan, err := cfg.ScanConfig()
	if err != nil {
		return err
	}
	d.cfg = cfg
	d.scan = scan
	d.roots = cfg.Roots()
	d.agg = loc.New(d.cache, cfg.Behavior.ScanWorkers)
	d.waka = wakatime.New(
		cfg.WakaTime.APIKey,
		cfg.WakaTime.APIURL,
		cfg.WakaTimeTimeout(),
		wakatime.WithCache(d.paths.WakaTimeCache()),
	)
	if d.level != nil {
		d.level.Set(logger.ParseLevel(cfg.Log.Level))
	}
	return nil
}

// close clears presence and disconnects from Discord.
func (d *daemon) close() {
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.client.Connected() {
		if err := d.client.ClearActivity(); err != nil {
			slog.Debug("failed to clear activity", logger.Err(err))
			d.metrics.RecordPresence(metrics.ResultError)
		} else {
			d.metrics.RecordPresence(metrics.ResultCleared)
		}
		d.lastHash = 0
	}
	if err := d.client.Close(); err != nil {
		slog.Debug("failed to close Discord client", logger.Err(err))
	}
}

// ///////////////////////////////////////////////
// Event Loop
// ///////////////////////////////////////////////

// run is the main event loop. It refreshes immediately, then on every tick of
// refresh_interval_seconds, on refreshSig, and after each config reload.
// Finished refreshes are published from the loop goroutine, so presence state
// is never touched concurrently. run returns nil when ctx is cancelled.
func (d *daemon) run(ctx context.Context, refreshSig <-chan os.Signal) error {
	refreshTicker := time.NewTicker(d.cfg.RefreshInterval())
	defer refreshTicker.Stop()
	reconnectTicker := time.NewTicker(d.cfg.ReconnectInterval())
	defer reconnectTicker.Stop()

	var configEvents <-chan struct{}
	if d.cfg.Behavior.WatchConfig {
		w, err := watch.New(d.paths.Config())
		if err != nil {
			slog.Warn("config watching disabled", logger.Err(err))
		} else {
			defer w.Close()
			configEvents = w.Events()
			if w.Polling() {
				slog.Info("using polling mode for config watching")
			}
		}
	}

	d.startRefresh(ctx)

	for {
		select {
		case <-ctx.Done():
			if d.cancel != nil {
				d.cancel()
				d.cancel = nil
			}
			return nil

		case r := <-d.results:
			d.handleResult(r)

		case <-refreshTicker.C:
			d.startRefresh(ctx)

		case <-refreshSig:
			slog.Info("refresh requested")
			d.startRefresh(ctx)

		case <-configEvents:
			if d.reload() {
				refreshTicker.Reset(d.cfg.RefreshInterval())
				reconnectTicker.Reset(d.cfg.ReconnectInterval())
				d.startRefresh(ctx)
			}

		case <-reconnectTicker.C:
			d.handleReconnect()
		}
	}
}

// startRefresh cancels the in-flight refresh, if any, and starts a new one.
// Only the newest refresh is published.
func (d *daemon) startRefresh(ctx context.Context) {
	if d.cancel != nil {
		d.cancel()
	}
	d.gen++

	rctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	gen, agg, waka, roots, scan := d.gen, d.agg, d.waka, d.roots, d.scan
	go func() {
		r := refresh(rctx, agg, waka, roots, scan)
		r.gen = gen
		select {
		case d.results <- r:
		case <-ctx.Done():
		}
	}()
}

// refresh counts roots and fetches today's WakaTime summary. A WakaTime
// failure is logged and the fallback summary is used.
func refresh(ctx context.Context, agg *loc.Aggregator, waka *wakatime.Client, roots []string, scan loc.ScanConfig) refreshResult {
	res, err := agg.Aggregate(ctx, roots, scan)
	if err != nil {
		return refreshResult{res: res, err: err}
	}

	sum, err := waka.Today(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return refreshResult{res: res, err: ctx.Err()}
		}
		slog.Warn("wakatime fetch failed", logger.Err(err))
	}

	return refreshResult{
		res: res,
		snap: presence.Snapshot{
			Roots:    roots,
			Lines:    res.Total,
			Files:    res.Files,
			WakaTime: sum,
		},
	}
}

// handleResult records and publishes a finished refresh. Results from a
// superseded refresh are dropped.
func (d *daemon) handleResult(r refreshResult) {
	if r.gen != d.gen {
		logger.Trace(slog.Default(), "dropping superseded refresh", "gen", r.gen, "current", d.gen)
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if r.err != nil {
		slog.Debug("refresh cancelled", logger.Err(r.err))
		return
	}

	d.metrics.RecordScan(r.res, d.cache.Len())
	for _, err := range r.res.Failures {
		slog.Debug("path skipped", logger.Err(err))
	}
	if n := len(r.res.Failures); n > 0 {
		slog.Warn("some paths could not be counted", "count", n)
	}
	slog.Info("workspace counted",
		"roots", len(r.snap.Roots),
		"lines", r.res.Total,
		"files", r.res.Files,
		"cache_hits", r.res.CacheHits,
		"elapsed", r.res.Elapsed,
	)

	snap := r.snap
	snap.Started = d.started
	d.last = &snap
	d.publish()
}

// publish sends the activity for the last snapshot when it differs from what
// Discord is showing. While disconnected nothing is sent; the snapshot is
// republished by [daemon.handleReconnect].
func (d *daemon) publish() {
	if d.last == nil {
		return
	}
	activity := presence.Build(d.cfg, *d.last)
	hash := activity.Hash()
	if hash == d.lastHash {
		d.metrics.RecordPresence(metrics.ResultSkipped)
		return
	}
	if !d.client.Connected() {
		return
	}

	if err := d.client.SetActivity(activity); err != nil {
		slog.Warn("failed to set activity", logger.Err(err))
		d.metrics.RecordPresence(metrics.ResultError)
		d.lastHash = 0
		return
	}
	d.lastHash = hash
	d.metrics.RecordPresence(metrics.ResultSent)
	slog.Debug("presence updated", "details", activity.Details, "state", activity.State)
}

// ///////////////////////////////////////////////
// Reconnect and Reload
// ///////////////////////////////////////////////

// handleReconnect makes one connection attempt when the client has dropped and
// republishes the last snapshot on success.
func (d *daemon) handleReconnect() {
	if d.client.Connected() {
		return
	}
	slog.Warn("Discord disconnected, attempting reconnect")
	if err := d.client.Connect(); err != nil {
		slog.Debug("reconnect failed", logger.Err(err))
		return
	}
	slog.Info("reconnected to Discord")
	d.lastHash = 0
	d.publish()
}

// reload re-reads the config file. An invalid file is logged and the previous
// config stays active. A changed app_id replaces the Discord client. The
// metrics listener and watch_config are only read at startup.
func (d *daemon) reload() bool {
	cfg, err := config.LoadFile(d.paths.Config())
	if err != nil {
		slog.Warn("config reload failed, keeping previous config", logger.Err(err))
		return false
	}

	oldAppID := d.cfg.Discord.AppID
	if err := d.apply(cfg); err != nil {
		slog.Warn("config reload failed, keeping previous config", logger.Err(err))
		return false
	}
	d.lastHash = 0

	if cfg.Discord.AppID != oldAppID {
		slog.Info("discord app_id changed, reconnecting", "app_id", cfg.Discord.AppID)
		if err := d.client.Close(); err != nil {
			slog.Debug("failed to close Discord client", logger.Err(err))
		}
		d.client = d.newClient(cfg.Discord.AppID)
		if err := d.client.Connect(); err != nil {
			slog.Warn("connect with new app_id failed", logger.Err(err))
		}
	}

	slog.Info("config reloaded", "roots", len(d.roots))
	return true
}
