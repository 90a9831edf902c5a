package build

import (
	"time"

	"github.com/google/uuid"
)

// Outcome classifies a completed run.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeWarning  Outcome = "warning" // completed, but entries were skipped
	OutcomeFailed   Outcome = "failed"
	OutcomeCanceled Outcome = "canceled"
)

// Report summarizes one generation run for logging, history, and the
// daemon's health endpoint.
type Report struct {
	RunID     string        `json:"run_id"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Outcome   Outcome       `json:"outcome"`

	Releases  int `json:"releases"`
	Artifacts int `json:"artifacts"`
	Pages     int `json:"pages"`

	// StageDurations maps stage name to wall time spent in it.
	StageDurations map[string]time.Duration `json:"stage_durations"`
	// Warnings lists skipped malformed entries, one line each.
	Warnings []string `json:"warnings,omitempty"`
	// Error carries the fatal error message for failed runs.
	Error string `json:"error,omitempty"`
}

func newReport() *Report {
	return &Report{
		RunID:          uuid.NewString(),
		StartedAt:      time.Now().UTC(),
		StageDurations: make(map[string]time.Duration),
	}
}

func (r *Report) addWarnings(lines []string) {
	r.Warnings = append(r.Warnings, lines...)
}

func (r *Report) finish(outcome Outcome) {
	r.Outcome = outcome
	r.Duration = time.Since(r.StartedAt)
}
