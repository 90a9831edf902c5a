package source

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/relix/internal/catalog"
	relerr "git.home.luguber.info/inful/relix/internal/errors"
	"git.home.luguber.info/inful/relix/internal/logfields"
)

// manifestEntry is one release in the releases.yaml manifest.
type manifestEntry struct {
	Name      string             `yaml:"name"`
	Date      *time.Time         `yaml:"date"`
	Channel   string             `yaml:"channel"`
	Notes     string             `yaml:"notes"`
	Artifacts []manifestArtifact `yaml:"artifacts"`
}

type manifestArtifact struct {
	Name   string `yaml:"name"`
	URL    string `yaml:"url"`
	Size   int64  `yaml:"size"`
	SHA256 string `yaml:"sha256"`
}

type manifest struct {
	Releases map[string]manifestEntry `yaml:"releases"`
}

// FileSource reads a releases.yaml manifest: a map of version identifier
// to release metadata and artifact list.
type FileSource struct {
	path string
}

// NewFileSource creates a file source for the given manifest path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (s *FileSource) Name() string { return fmt.Sprintf("file:%s", s.path) }

// Enumerate parses the manifest. An unreadable or structurally invalid
// manifest is fatal; a single bad release entry is a warning.
func (s *FileSource) Enumerate(_ context.Context) ([]catalog.Release, []Warning, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, nil, relerr.SourceUnavailable(err, fmt.Sprintf("read manifest %s", s.path))
	}

	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, nil, relerr.SourceUnavailable(err, fmt.Sprintf("parse manifest %s", s.path))
	}
	if m.Releases == nil {
		return nil, nil, relerr.SourceUnavailable(nil, fmt.Sprintf("manifest %s has no releases mapping", s.path))
	}

	var releases []catalog.Release
	var warnings []Warning
	for version, entry := range m.Releases {
		rel, err := convertManifestEntry(version, entry)
		if err != nil {
			warnings = append(warnings, Warning{Entry: version, Reason: err.Error()})
			slog.Warn("Skipping malformed release entry", logfields.Release(version), "reason", err)
			continue
		}
		releases = append(releases, rel)
	}
	return releases, warnings, nil
}

func convertManifestEntry(version string, entry manifestEntry) (catalog.Release, error) {
	parsed, err := catalog.ParseVersion(version)
	if err != nil {
		return catalog.Release{}, err
	}
	channel, err := catalog.ParseChannel(entry.Channel)
	if err != nil {
		return catalog.Release{}, err
	}

	artifacts := make([]catalog.Artifact, 0, len(entry.Artifacts))
	for i, a := range entry.Artifacts {
		if a.Name == "" {
			return catalog.Release{}, fmt.Errorf("artifact %d: missing name", i)
		}
		if a.URL == "" {
			return catalog.Release{}, fmt.Errorf("artifact %q: missing url", a.Name)
		}
		artifacts = append(artifacts, catalog.Artifact{
			Name:     a.Name,
			URL:      a.URL,
			Size:     a.Size,
			Checksum: a.SHA256,
		})
	}

	return catalog.Release{
		Version:     version,
		Parsed:      parsed,
		DisplayName: entry.Name,
		Date:        entry.Date,
		Channel:     channel,
		Notes:       entry.Notes,
		Artifacts:   artifacts,
	}, nil
}
