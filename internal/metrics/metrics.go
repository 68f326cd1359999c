// Package metrics exposes Prometheus metrics for line counting and presence
// updates, served at /metrics when metrics.listen is configured.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.trai.ch/zerr"

	"tools.zach/dev/trackpad/internal/loc"
)

// Presence update results for [Metrics.RecordPresence].
const (
	ResultSent    = "sent"
	ResultSkipped = "skipped"
	ResultCleared = "cleared"
	ResultError   = "error"
)

// Metrics holds the daemon's collectors on a private registry.
type Metrics struct {
	// FilesTotal counts files by where their count came from (cache or read).
	FilesTotal *prometheus.CounterVec
	// FailuresTotal counts per-path failures by kind (access or read).
	FailuresTotal *prometheus.CounterVec
	// Lines is the most recent aggregate total.
	Lines prometheus.Gauge
	// CacheEntries is the number of entries in the line-count cache.
	CacheEntries prometheus.Gauge
	// ScanDuration observes the wall time of each aggregate run.
	ScanDuration prometheus.Histogram
	// PresenceUpdates counts presence publishes by result.
	PresenceUpdates *prometheus.CounterVec

	registry *prometheus.Registry
}

// New registers the collectors, plus the Go and process collectors, on a
// fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		FilesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trackpad_loc_files_total",
				Help: "Files counted, by source of the count",
			},
			[]string{"source"},
		),
		FailuresTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trackpad_loc_failures_total",
				Help: "Paths skipped during counting, by failure kind",
			},
			[]string{"kind"},
		),
		Lines: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "trackpad_loc_lines",
				Help: "Lines of code in the most recent count",
			},
		),
		CacheEntries: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "trackpad_loc_cache_entries",
				Help: "Entries in the line-count cache",
			},
		),
		ScanDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "trackpad_loc_scan_duration_seconds",
				Help:    "Wall time of each aggregate count",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
		),
		PresenceUpdates: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trackpad_presence_updates_total",
				Help: "Presence publishes, by result",
			},
			[]string{"result"},
		),
		registry: reg,
	}
}

// RecordScan records one aggregate run.
func (m *Metrics) RecordScan(res loc.Result, cacheEntries int) {
	m.FilesTotal.WithLabelValues("cache").Add(float64(res.CacheHits))
	m.FilesTotal.WithLabelValues("read").Add(float64(res.CacheMisses))
	if n := len(res.AccessErrors()); n > 0 {
		m.FailuresTotal.WithLabelValues("access").Add(float64(n))
	}
	if n := len(res.ReadErrors()); n > 0 {
		m.FailuresTotal.WithLabelValues("read").Add(float64(n))
	}
	m.Lines.Set(float64(res.Total))
	m.CacheEntries.Set(float64(cacheEntries))
	m.ScanDuration.Observe(res.Elapsed.Seconds())
}

// RecordPresence counts one presence publish with the given result.
func (m *Metrics) RecordPresence(result string) {
	m.PresenceUpdates.WithLabelValues(result).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ///////////////////////////////////////////////
// Server
// ///////////////////////////////////////////////

// Serve listens on addr and serves /metrics until ctx is cancelled. It
// returns once the listener is closed; a clean shutdown returns nil.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to listen for metrics"), "addr", addr)
	}
	return m.serve(ctx, ln)
}

// serve runs the metrics server on ln.
func (m *Metrics) serve(ctx context.Context, ln net.Listener) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("serving metrics", "addr", ln.Addr().String())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return zerr.Wrap(err, "metrics server failed")
	}
	return nil
}
