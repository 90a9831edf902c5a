package daemon

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/relix/internal/build"
)

func testServer(t *testing.T, report *build.Report) *Server {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>releases</html>"), 0o644))
	return NewServer(":0", dir, prom.NewRegistry(), func() *build.Report { return report })
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestServerServesOutputDirectory(t *testing.T) {
	rec := get(t, testServer(t, nil), "/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "releases")
}

func TestHealthzBeforeFirstRun(t *testing.T) {
	rec := get(t, testServer(t, nil), "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)

	var payload healthPayload
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, "starting", payload.Status)
}

func TestHealthzReflectsLastRun(t *testing.T) {
	started := time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		name       string
		outcome    build.Outcome
		wantStatus string
		wantCode   int
	}{
		{"success", build.OutcomeSuccess, "ok", http.StatusOK},
		{"warning", build.OutcomeWarning, "ok", http.StatusOK},
		{"failed", build.OutcomeFailed, "degraded", http.StatusServiceUnavailable},
		{"canceled", build.OutcomeCanceled, "degraded", http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			report := &build.Report{RunID: "r1", StartedAt: started, Outcome: tc.outcome, Releases: 3}
			rec := get(t, testServer(t, report), "/healthz")
			require.Equal(t, tc.wantCode, rec.Code)

			var payload healthPayload
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
			assert.Equal(t, tc.wantStatus, payload.Status)
			assert.Equal(t, "r1", payload.LastRunID)
			assert.Equal(t, 3, payload.Releases)
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	rec := get(t, testServer(t, nil), "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
}
