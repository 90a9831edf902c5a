package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRunID      = "run_id"
	KeyStage      = "stage"
	KeyDurationMS = "duration_ms"
	KeySource     = "source"
	KeyRelease    = "release"
	KeyArtifact   = "artifact"
	KeyPage       = "page"
	KeyPath       = "path"
	KeyOutput     = "output"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func RunID(id string) slog.Attr       { return slog.String(KeyRunID, id) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Source(name string) slog.Attr    { return slog.String(KeySource, name) }
func Release(v string) slog.Attr      { return slog.String(KeyRelease, v) }
func Artifact(name string) slog.Attr  { return slog.String(KeyArtifact, name) }
func Page(p string) slog.Attr         { return slog.String(KeyPage, p) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Output(dir string) slog.Attr     { return slog.String(KeyOutput, dir) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
