package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"git.home.luguber.info/inful/relix/internal/build"
)

// Server hosts the generated index alongside health and metrics endpoints.
type Server struct {
	httpServer *http.Server
	listen     string
}

// healthPayload is the /healthz response body.
type healthPayload struct {
	Status    string     `json:"status"`
	LastRunID string     `json:"last_run_id,omitempty"`
	Outcome   string     `json:"outcome,omitempty"`
	StartedAt *time.Time `json:"started_at,omitempty"`
	Releases  int        `json:"releases"`
	Warnings  int        `json:"warnings"`
	Error     string     `json:"error,omitempty"`
}

// NewServer creates the HTTP server. outputDir is served at the root,
// lastReport supplies health state.
func NewServer(listen, outputDir string, registry *prom.Registry, lastReport func() *build.Report) *Server {
	mux := http.NewServeMux()
	mux.Handle("/", http.FileServer(http.Dir(outputDir)))
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", healthHandler(lastReport))

	return &Server{
		listen: listen,
		httpServer: &http.Server{
			Addr:              listen,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

func healthHandler(lastReport func() *build.Report) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		payload, code := healthState(lastReport())
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(payload)
	}
}

// healthState maps the last run report onto a health response. A failed
// or canceled last run degrades health but keeps serving: the previous
// index is still on disk.
func healthState(report *build.Report) (healthPayload, int) {
	if report == nil {
		return healthPayload{Status: "starting"}, http.StatusOK
	}

	payload := healthPayload{
		Status:    "ok",
		LastRunID: report.RunID,
		Outcome:   string(report.Outcome),
		StartedAt: &report.StartedAt,
		Releases:  report.Releases,
		Warnings:  len(report.Warnings),
		Error:     report.Error,
	}
	code := http.StatusOK
	if report.Outcome == build.OutcomeFailed || report.Outcome == build.OutcomeCanceled {
		payload.Status = "degraded"
		code = http.StatusServiceUnavailable
	}
	return payload, code
}

// Start begins serving in the background.
func (s *Server) Start() {
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server failed", "listen", s.listen, "error", err)
		}
	}()
}

// Stop drains connections within the ctx deadline.
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
