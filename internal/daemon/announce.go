package daemon

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/relix/internal/build"
	"git.home.luguber.info/inful/relix/internal/config"
	"git.home.luguber.info/inful/relix/internal/logfields"
)

// Announcer publishes a message after every generation run so downstream
// systems (cache purgers, notifiers) can react without polling the index.
type Announcer struct {
	conn    *nats.Conn
	subject string
}

// runEvent is the published message body.
type runEvent struct {
	RunID     string    `json:"run_id"`
	Outcome   string    `json:"outcome"`
	StartedAt time.Time `json:"started_at"`
	Duration  string    `json:"duration"`
	Releases  int       `json:"releases"`
	Artifacts int       `json:"artifacts"`
	Pages     int       `json:"pages"`
	Warnings  int       `json:"warnings"`
	Error     string    `json:"error,omitempty"`
}

// NewAnnouncer connects to the configured NATS server.
func NewAnnouncer(cfg config.NATSConfig) (*Announcer, error) {
	conn, err := nats.Connect(cfg.URL,
		nats.Name("relix"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats %s: %w", cfg.URL, err)
	}
	return &Announcer{conn: conn, subject: cfg.Subject}, nil
}

// Announce publishes the run outcome. Publish failures are logged, not
// returned: announcements are best-effort and must never fail a run.
func (a *Announcer) Announce(report *build.Report) {
	if report == nil {
		return
	}

	event := runEvent{
		RunID:     report.RunID,
		Outcome:   string(report.Outcome),
		StartedAt: report.StartedAt,
		Duration:  report.Duration.String(),
		Releases:  report.Releases,
		Artifacts: report.Artifacts,
		Pages:     report.Pages,
		Warnings:  len(report.Warnings),
		Error:     report.Error,
	}

	data, err := json.Marshal(event)
	if err != nil {
		slog.Warn("Failed to encode run announcement", logfields.RunID(report.RunID), "error", err)
		return
	}
	if err := a.conn.Publish(a.subject, data); err != nil {
		slog.Warn("Failed to publish run announcement",
			logfields.RunID(report.RunID), "subject", a.subject, "error", err)
	}
}

// Close drains pending messages and closes the connection.
func (a *Announcer) Close() {
	if err := a.conn.Drain(); err != nil {
		a.conn.Close()
	}
}
