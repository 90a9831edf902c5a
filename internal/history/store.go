// Package history persists generation-run records so operators can see
// what the daemon has been doing across restarts.
package history

import (
	"context"
	"time"

	"git.home.luguber.info/inful/relix/internal/build"
)

// Run is one recorded generation run.
type Run struct {
	ID        string
	StartedAt time.Time
	Duration  time.Duration
	Outcome   build.Outcome
	Releases  int
	Artifacts int
	Pages     int
	Warnings  int
	Error     string
}

// Store records and lists generation runs.
type Store interface {
	// Record appends one run.
	Record(ctx context.Context, run Run) error

	// Recent returns up to limit runs, newest first.
	Recent(ctx context.Context, limit int) ([]Run, error)

	// Close releases any resources held by the store.
	Close() error
}

// FromReport converts a build report into a history run.
func FromReport(report *build.Report) Run {
	return Run{
		ID:        report.RunID,
		StartedAt: report.StartedAt,
		Duration:  report.Duration,
		Outcome:   report.Outcome,
		Releases:  report.Releases,
		Artifacts: report.Artifacts,
		Pages:     report.Pages,
		Warnings:  len(report.Warnings),
		Error:     report.Error,
	}
}
