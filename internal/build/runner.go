package build

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/relix/internal/catalog"
	"git.home.luguber.info/inful/relix/internal/config"
	relerr "git.home.luguber.info/inful/relix/internal/errors"
	"git.home.luguber.info/inful/relix/internal/logfields"
	"git.home.luguber.info/inful/relix/internal/metrics"
	"git.home.luguber.info/inful/relix/internal/render"
	"git.home.luguber.info/inful/relix/internal/source"
	"git.home.luguber.info/inful/relix/internal/writer"
)

// Runner executes generation runs for a fixed configuration. It is not
// safe for concurrent runs: the CLI is one-shot and the daemon serializes
// runs behind its debouncer.
type Runner struct {
	cfg      *config.Config
	recorder metrics.Recorder

	// lastPages holds the page set of the most recent successful run,
	// handed to Validate callers for link inspection.
	lastPages []render.Page
}

// NewRunner creates a runner. A nil recorder defaults to no-op metrics.
func NewRunner(cfg *config.Config, recorder metrics.Recorder) *Runner {
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	return &Runner{cfg: cfg, recorder: recorder}
}

// Generate runs the full pipeline: collect, render, publish. The returned
// report is non-nil even on failure.
func (r *Runner) Generate(ctx context.Context, outputDir string) (*Report, error) {
	return r.run(ctx, outputDir, []struct {
		name string
		fn   Stage
	}{
		{"collect", stageCollect},
		{"render", stageRender},
		{"publish", stagePublish},
	})
}

// Validate runs collect and render without touching the filesystem.
// The rendered pages are returned for further inspection (link checks).
func (r *Runner) Validate(ctx context.Context) (*Report, []render.Page, error) {
	report, err := r.run(ctx, "", []struct {
		name string
		fn   Stage
	}{
		{"collect", stageCollect},
		{"render", stageRender},
	})
	return report, r.lastPages, err
}

func (r *Runner) run(ctx context.Context, outputDir string, stages []struct {
	name string
	fn   Stage
}) (*Report, error) {
	report := newReport()
	st := newState(r.cfg, outputDir, report)

	slog.Info("Starting generation run", logfields.RunID(report.RunID), logfields.Output(st.OutputDir))

	for _, stage := range stages {
		if err := ctx.Err(); err != nil {
			return r.fail(report, newCanceledStageError(stage.name, err))
		}
		begin := time.Now()
		err := stage.fn(ctx, st)
		elapsed := time.Since(begin)

		report.StageDurations[stage.name] = elapsed
		r.recorder.ObserveStageDuration(stage.name, elapsed)

		if err != nil {
			var stageErr *StageError
			if !errors.As(err, &stageErr) {
				stageErr = newFatalStageError(stage.name, err)
			}
			if stageErr.Kind == StageErrorCanceled {
				r.recorder.IncStageResult(stage.name, metrics.ResultCanceled)
			} else {
				r.recorder.IncStageResult(stage.name, metrics.ResultFatal)
			}
			return r.fail(report, stageErr)
		}
		r.recorder.IncStageResult(stage.name, metrics.ResultSuccess)
		slog.Debug("Stage completed", logfields.Stage(stage.name),
			logfields.DurationMS(float64(elapsed.Milliseconds())))
	}

	r.lastPages = st.Pages

	outcome := OutcomeSuccess
	if len(report.Warnings) > 0 {
		outcome = OutcomeWarning
	}
	report.finish(outcome)
	r.recorder.ObserveRunDuration(report.Duration)
	r.recorder.IncRunOutcome(string(outcome))
	r.recorder.SetReleaseCount(report.Releases)
	r.recorder.SetArtifactCount(report.Artifacts)

	slog.Info("Generation run completed",
		logfields.RunID(report.RunID),
		"outcome", string(outcome),
		"releases", report.Releases,
		"pages", report.Pages,
		"warnings", len(report.Warnings))
	return report, nil
}

func (r *Runner) fail(report *Report, stageErr *StageError) (*Report, error) {
	outcome := OutcomeFailed
	if stageErr.Kind == StageErrorCanceled {
		outcome = OutcomeCanceled
	}
	report.Error = stageErr.Error()
	report.finish(outcome)
	r.recorder.ObserveRunDuration(report.Duration)
	r.recorder.IncRunOutcome(string(outcome))
	slog.Error("Generation run failed",
		logfields.RunID(report.RunID),
		logfields.Stage(stageErr.Stage),
		logfields.Error(stageErr.Err))
	return report, stageErr
}

// stageCollect enumerates the release source and builds the catalog.
func stageCollect(ctx context.Context, st *State) error {
	src, err := source.New(st.Config)
	if err != nil {
		return newFatalStageError("collect", err)
	}
	st.Source = src

	timeout := st.Config.Source.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	srcCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	releases, warnings, err := src.Enumerate(srcCtx)
	if err != nil {
		if srcCtx.Err() != nil && ctx.Err() != nil {
			return newCanceledStageError("collect", err)
		}
		return newFatalStageError("collect", err)
	}

	if st.Config.Source.VerifyArtifacts {
		warnings = append(warnings, source.VerifyArtifacts(srcCtx, releases, nil)...)
	}

	cat, err := catalog.New(releases)
	if err != nil {
		return newFatalStageError("collect", err)
	}
	st.Catalog = cat

	lines := make([]string, 0, len(warnings))
	for _, w := range warnings {
		lines = append(lines, w.String())
	}
	st.Report.addWarnings(lines)
	st.Report.Releases = cat.Len()
	st.Report.Artifacts = cat.ArtifactCount()

	slog.Info("Collected releases", logfields.Source(src.Name()),
		"releases", cat.Len(), "artifacts", cat.ArtifactCount(), "skipped", len(warnings))
	return nil
}

// stageRender turns the catalog into the page set.
func stageRender(_ context.Context, st *State) error {
	pages, err := render.New(st.Config).Render(st.Catalog)
	if err != nil {
		return newFatalStageError("render", err)
	}
	pages, err = appendArtifactFiles(pages, st.Catalog)
	if err != nil {
		return newFatalStageError("render", err)
	}
	st.Pages = pages
	st.Report.Pages = len(pages)
	return nil
}

// appendArtifactFiles adds local artifact files to the page set so the
// relative artifact links in the rendered pages resolve after publishing.
// Only artifacts discovered on the local filesystem carry a LocalPath;
// remote artifacts stay where their absolute URLs point.
func appendArtifactFiles(pages []render.Page, c *catalog.Catalog) ([]render.Page, error) {
	seen := make(map[string]struct{}, len(pages))
	for _, p := range pages {
		seen[p.Path] = struct{}{}
	}
	for _, rel := range c.Releases() {
		for _, a := range rel.Artifacts {
			if a.LocalPath == "" {
				continue
			}
			if _, dup := seen[a.URL]; dup {
				return nil, relerr.RenderError(fmt.Sprintf("artifact path %q collides with a rendered page", a.URL))
			}
			seen[a.URL] = struct{}{}
			pages = append(pages, render.Page{Path: a.URL, SourcePath: a.LocalPath})
		}
	}
	return pages, nil
}

// stagePublish writes the page set into the output directory.
func stagePublish(_ context.Context, st *State) error {
	if err := writer.New(st.OutputDir).Publish(st.Pages); err != nil {
		return newFatalStageError("publish", err)
	}
	return nil
}
