// Package build orchestrates one generation run as a pipeline of discrete
// stages: collect releases, render pages, publish output. The CLI and the
// daemon share this runner.
package build

import (
	"context"
	"fmt"
	"time"

	"git.home.luguber.info/inful/relix/internal/catalog"
	"git.home.luguber.info/inful/relix/internal/config"
	"git.home.luguber.info/inful/relix/internal/render"
	"git.home.luguber.info/inful/relix/internal/source"
)

// Stage is a discrete unit of work in a generation run.
type Stage func(ctx context.Context, st *State) error

// StageErrorKind enumerates structured stage error categories.
type StageErrorKind string

const (
	StageErrorFatal    StageErrorKind = "fatal"    // Run must abort.
	StageErrorCanceled StageErrorKind = "canceled" // Context cancellation.
)

// StageError is a structured error carrying category and underlying cause.
type StageError struct {
	Kind  StageErrorKind
	Stage string
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s stage %s: %v", e.Kind, e.Stage, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }

func newFatalStageError(stage string, err error) *StageError {
	return &StageError{Kind: StageErrorFatal, Stage: stage, Err: err}
}

func newCanceledStageError(stage string, err error) *StageError {
	return &StageError{Kind: StageErrorCanceled, Stage: stage, Err: err}
}

// State carries mutable state across stages of one run.
type State struct {
	Config  *config.Config
	Source  source.Source
	Catalog *catalog.Catalog
	Pages   []render.Page
	Report  *Report

	// OutputDir overrides Config.Output when the CLI passes an explicit
	// target directory.
	OutputDir string

	start time.Time
}

func newState(cfg *config.Config, outputDir string, report *Report) *State {
	if outputDir == "" {
		outputDir = cfg.Output
	}
	return &State{
		Config:    cfg,
		OutputDir: outputDir,
		Report:    report,
		start:     time.Now(),
	}
}
