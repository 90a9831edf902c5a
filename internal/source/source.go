// Package source enumerates releases from a configured release source.
// Each variant implements Source; selection happens by configuration, so
// one malformed deployment layout never requires code changes elsewhere.
package source

import (
	"context"
	"fmt"

	"git.home.luguber.info/inful/relix/internal/catalog"
	"git.home.luguber.info/inful/relix/internal/config"
)

// Warning records a skipped entry. Malformed releases and artifacts are
// excluded from the catalog but must surface to the operator.
type Warning struct {
	Entry  string
	Reason string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s", w.Entry, w.Reason)
}

// Source enumerates every known release and its artifacts.
// Enumerate fails only when the source itself cannot be read; individual
// malformed entries come back as warnings instead.
type Source interface {
	Name() string
	Enumerate(ctx context.Context) ([]catalog.Release, []Warning, error)
}

// New selects the source variant for the given configuration.
func New(cfg *config.Config) (Source, error) {
	switch cfg.Source.Type {
	case config.SourceTypeFile:
		return NewFileSource(cfg.Source.Path), nil
	case config.SourceTypeDirectory:
		return NewDirectorySource(cfg.Source.Directory), nil
	case config.SourceTypeGit:
		return NewGitSource(cfg.Source.Repository, cfg.Source.ArtifactTemplate), nil
	case config.SourceTypeFeed:
		return NewFeedSource(cfg.Source.URL), nil
	default:
		return nil, fmt.Errorf("unknown source type %q", cfg.Source.Type)
	}
}

// inferChannel assigns release candidates to the preview channel when the
// source format has no explicit channel notion (directory, git, feed).
func inferChannel(v catalog.Version) catalog.Channel {
	if v.RC >= 0 {
		return catalog.ChannelPreview
	}
	return catalog.ChannelStable
}
