// Package writer materializes rendered pages into the output directory.
// Pages are written to an isolated staging directory and promoted with a
// rename, so the published directory is always either the previous
// complete index or the new complete index, never a mix.
package writer

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	relerr "git.home.luguber.info/inful/relix/internal/errors"
	"git.home.luguber.info/inful/relix/internal/logfields"
	"git.home.luguber.info/inful/relix/internal/render"
)

// Writer publishes one page set into a target directory.
type Writer struct {
	outputDir string
	stageDir  string
}

// New creates a writer for the given output directory.
func New(outputDir string) *Writer {
	return &Writer{outputDir: filepath.Clean(outputDir)}
}

// Publish writes all pages into a staging directory and promotes it to
// the output location. On any failure the staging directory is removed
// and the previous output is left in place.
func (w *Writer) Publish(pages []render.Page) error {
	if err := w.beginStaging(); err != nil {
		return err
	}
	for _, page := range pages {
		if err := w.writePage(page); err != nil {
			w.abortStaging()
			return err
		}
	}
	if err := w.finalizeStaging(); err != nil {
		w.abortStaging()
		return err
	}
	slog.Info("Published index", logfields.Output(w.outputDir), "pages", len(pages))
	return nil
}

// beginStaging creates the sibling staging directory <output>_stage,
// clearing any leftover from a previously crashed run.
func (w *Writer) beginStaging() error {
	stage := w.outputDir + "_stage"
	if err := os.RemoveAll(stage); err != nil {
		return relerr.WriteError(err, fmt.Sprintf("clear stale staging directory %s", stage))
	}
	if err := os.MkdirAll(stage, 0o755); err != nil {
		return relerr.WriteError(err, fmt.Sprintf("create staging directory %s", stage))
	}
	w.stageDir = stage
	slog.Debug("Initialized staging directory", "staging", stage, "final", w.outputDir)
	return nil
}

func (w *Writer) writePage(page render.Page) error {
	rel, err := safeRelPath(page.Path)
	if err != nil {
		return err
	}
	full := filepath.Join(w.stageDir, rel)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return relerr.WriteError(err, fmt.Sprintf("create directory for %s", page.Path))
	}
	if page.SourcePath != "" {
		if err := copyFile(page.SourcePath, full); err != nil {
			return relerr.WriteError(err, fmt.Sprintf("copy artifact %s", page.Path))
		}
		slog.Debug("Staged artifact file", logfields.Page(page.Path), logfields.Path(page.SourcePath))
		return nil
	}
	// #nosec G306 -- index pages are public content
	if err := os.WriteFile(full, page.Content, 0o644); err != nil {
		return relerr.WriteError(err, fmt.Sprintf("write %s", page.Path))
	}
	slog.Debug("Staged page", logfields.Page(page.Path))
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	// #nosec G306 -- artifact files are public content
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

// safeRelPath rejects page paths that would escape the staging root.
// A traversal here is a programming or data error, never user intent.
func safeRelPath(p string) (string, error) {
	if p == "" {
		return "", relerr.WriteError(nil, "empty page path")
	}
	clean := filepath.Clean(filepath.FromSlash(p))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", relerr.WriteError(nil, fmt.Sprintf("page path %q escapes the output directory", p))
	}
	return clean, nil
}

// finalizeStaging promotes the staging directory to the final output.
// Strategy:
//  1. Move existing outputDir (if any) to outputDir.prev.
//  2. Rename staging -> outputDir.
//  3. Remove the backup.
func (w *Writer) finalizeStaging() error {
	if w.stageDir == "" {
		return relerr.WriteError(nil, "no staging directory initialized")
	}

	prev := w.outputDir + ".prev"
	if err := os.RemoveAll(prev); err != nil {
		return relerr.WriteError(err, fmt.Sprintf("remove previous backup %s", prev))
	}
	if _, err := os.Stat(w.outputDir); err == nil {
		if err := os.Rename(w.outputDir, prev); err != nil {
			return relerr.WriteError(err, "backup existing output")
		}
	}
	if err := os.Rename(w.stageDir, w.outputDir); err != nil {
		// Try to roll the backup into place before reporting.
		if _, statErr := os.Stat(prev); statErr == nil {
			_ = os.Rename(prev, w.outputDir)
		}
		return relerr.WriteError(err, "promote staging directory")
	}
	w.stageDir = ""
	if err := os.RemoveAll(prev); err != nil {
		slog.Warn("Failed to remove previous backup", logfields.Path(prev), "error", err)
	}
	return nil
}

// abortStaging removes any staging directory after a failed publish to
// avoid orphaned temp dirs.
func (w *Writer) abortStaging() {
	if w.stageDir == "" {
		return
	}
	dir := w.stageDir
	w.stageDir = "" // prevent double cleanup
	if err := os.RemoveAll(dir); err != nil {
		slog.Warn("Failed to remove staging directory after abort", "staging", dir, "error", err)
	}
}
