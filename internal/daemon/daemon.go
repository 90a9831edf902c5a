// Package daemon runs relix continuously: scheduled and watch-triggered
// regeneration, HTTP hosting of the generated index, metrics, and run
// history.
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/relix/internal/build"
	"git.home.luguber.info/inful/relix/internal/config"
	"git.home.luguber.info/inful/relix/internal/history"
	"git.home.luguber.info/inful/relix/internal/logfields"
	"git.home.luguber.info/inful/relix/internal/metrics"
)

// Daemon ties together the run loop, scheduler, source watcher, HTTP
// server, and run-history store. Runs are serialized: the loop consumes
// one trigger at a time and coalesces requests that arrive mid-run.
type Daemon struct {
	cfg      *config.Config
	runner   *build.Runner
	registry *prom.Registry

	scheduler *Scheduler
	watcher   *SourceWatcher
	server    *Server
	store     history.Store
	announcer *Announcer

	// trigger carries rebuild reasons; capacity 1 so at most one request
	// is queued while a run is in progress.
	trigger chan string

	mu         sync.RWMutex
	lastReport *build.Report
}

// New creates a daemon for the given configuration.
func New(cfg *config.Config) (*Daemon, error) {
	registry := prom.NewRegistry()
	recorder := metrics.NewPrometheusRecorder(registry)

	d := &Daemon{
		cfg:      cfg,
		runner:   build.NewRunner(cfg, recorder),
		registry: registry,
		trigger:  make(chan string, 1),
	}

	store, err := history.NewSQLiteStore(cfg.Daemon.HistoryDB)
	if err != nil {
		return nil, fmt.Errorf("open history store: %w", err)
	}
	d.store = store

	if cfg.Daemon.NATS.Enabled {
		announcer, err := NewAnnouncer(cfg.Daemon.NATS)
		if err != nil {
			d.closeResources()
			return nil, err
		}
		d.announcer = announcer
	}

	scheduler, err := NewScheduler(cfg.Daemon.Interval, d.RequestBuild)
	if err != nil {
		d.closeResources()
		return nil, err
	}
	d.scheduler = scheduler

	if cfg.Daemon.Watch {
		if path := watchablePath(cfg); path != "" {
			watcher, err := NewSourceWatcher(path, d.RequestBuild)
			if err != nil {
				d.closeResources()
				return nil, err
			}
			d.watcher = watcher
		} else {
			slog.Info("Source watching not applicable for this source type",
				logfields.Source(string(cfg.Source.Type)))
		}
	}

	d.server = NewServer(cfg.Daemon.Listen, cfg.Output, registry, d.LastReport)
	return d, nil
}

// watchablePath returns the filesystem path to watch for the configured
// source, or "" when the source is remote.
func watchablePath(cfg *config.Config) string {
	switch cfg.Source.Type {
	case config.SourceTypeFile:
		return cfg.Source.Path
	case config.SourceTypeDirectory:
		return cfg.Source.Directory
	default:
		return ""
	}
}

// Start runs the daemon until ctx is canceled. The initial generation
// happens before the HTTP server comes up so it never serves a directory
// that no run has at least attempted to fill.
func (d *Daemon) Start(ctx context.Context) error {
	d.runOnce(ctx, "startup")

	d.scheduler.Start()
	if d.watcher != nil {
		d.watcher.Start()
	}
	d.server.Start()

	slog.Info("Daemon started",
		"listen", d.cfg.Daemon.Listen,
		"interval", d.cfg.Daemon.Interval.String(),
		"watching", d.watcher != nil)

	for {
		select {
		case <-ctx.Done():
			return nil
		case reason := <-d.trigger:
			d.runOnce(ctx, reason)
		}
	}
}

// Stop shuts the daemon down within the ctx deadline. Safe to call after
// Start has returned.
func (d *Daemon) Stop(ctx context.Context) error {
	var firstErr error
	if d.server != nil {
		if err := d.server.Stop(ctx); err != nil {
			firstErr = err
		}
	}
	if d.watcher != nil {
		d.watcher.Stop()
	}
	if d.scheduler != nil {
		if err := d.scheduler.Stop(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	d.closeResources()
	slog.Info("Daemon stopped")
	return firstErr
}

func (d *Daemon) closeResources() {
	if d.store != nil {
		if err := d.store.Close(); err != nil {
			slog.Warn("Failed to close history store", "error", err)
		}
		d.store = nil
	}
	if d.announcer != nil {
		d.announcer.Close()
		d.announcer = nil
	}
}

// RequestBuild queues a regeneration. Requests arriving while one is
// already queued are coalesced: the pending run picks up their changes
// anyway.
func (d *Daemon) RequestBuild(reason string) {
	select {
	case d.trigger <- reason:
	default:
		slog.Debug("Build already queued, coalescing request", "reason", reason)
	}
}

// LastReport returns the most recent run report, or nil before the first run.
func (d *Daemon) LastReport() *build.Report {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.lastReport
}

func (d *Daemon) runOnce(ctx context.Context, reason string) {
	slog.Info("Starting generation", "reason", reason)

	report, err := d.runner.Generate(ctx, "")
	if err != nil {
		slog.Error("Generation failed", "reason", reason, logfields.Error(err))
	}

	d.mu.Lock()
	d.lastReport = report
	d.mu.Unlock()

	if d.store != nil {
		if err := d.store.Record(ctx, history.FromReport(report)); err != nil {
			slog.Warn("Failed to record run history", logfields.RunID(report.RunID), "error", err)
		}
	}
	if d.announcer != nil {
		d.announcer.Announce(report)
	}
}
