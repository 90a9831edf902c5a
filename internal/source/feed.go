package source

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"git.home.luguber.info/inful/relix/internal/catalog"
	relerr "git.home.luguber.info/inful/relix/internal/errors"
	"git.home.luguber.info/inful/relix/internal/logfields"
)

// feedRelease mirrors the index.0.json schema, so one relix instance can
// consume the index published by another.
type feedRelease struct {
	Version     string         `json:"version"`
	DisplayName string         `json:"display_name"`
	Date        *time.Time     `json:"date"`
	Channel     string         `json:"channel"`
	Notes       string         `json:"notes"`
	Artifacts   []feedArtifact `json:"artifacts"`
}

type feedArtifact struct {
	Name   string `json:"name"`
	URL    string `json:"url"`
	Size   int64  `json:"size"`
	SHA256 string `json:"sha256"`
}

// FeedSource fetches a JSON release feed over HTTP.
type FeedSource struct {
	url    string
	client *http.Client
}

// NewFeedSource creates a feed source for the given URL.
func NewFeedSource(url string) *FeedSource {
	return &FeedSource{url: url, client: http.DefaultClient}
}

func (s *FeedSource) Name() string { return fmt.Sprintf("feed:%s", s.url) }

// Enumerate fetches and decodes the feed. Network and decode failures are
// fatal (the source is unreachable as a whole); individual entries that
// fail validation are warnings.
func (s *FeedSource) Enumerate(ctx context.Context) ([]catalog.Release, []Warning, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, nil, relerr.SourceUnavailable(err, fmt.Sprintf("build feed request %s", s.url))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, nil, relerr.SourceUnavailable(err, fmt.Sprintf("fetch feed %s", s.url))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, relerr.SourceUnavailable(nil,
			fmt.Sprintf("fetch feed %s: unexpected status %d", s.url, resp.StatusCode))
	}

	var entries []feedRelease
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, nil, relerr.SourceUnavailable(err, fmt.Sprintf("decode feed %s", s.url))
	}

	var releases []catalog.Release
	var warnings []Warning
	for _, entry := range entries {
		rel, err := convertFeedRelease(entry)
		if err != nil {
			warnings = append(warnings, Warning{Entry: entry.Version, Reason: err.Error()})
			slog.Warn("Skipping malformed feed entry", logfields.Release(entry.Version), "reason", err)
			continue
		}
		releases = append(releases, rel)
	}
	return releases, warnings, nil
}

func convertFeedRelease(entry feedRelease) (catalog.Release, error) {
	parsed, err := catalog.ParseVersion(entry.Version)
	if err != nil {
		return catalog.Release{}, err
	}
	channel, err := catalog.ParseChannel(entry.Channel)
	if err != nil {
		return catalog.Release{}, err
	}
	if entry.Channel == "" {
		channel = inferChannel(parsed)
	}

	artifacts := make([]catalog.Artifact, 0, len(entry.Artifacts))
	for _, a := range entry.Artifacts {
		if a.Name == "" || a.URL == "" {
			return catalog.Release{}, fmt.Errorf("artifact with missing name or url")
		}
		artifacts = append(artifacts, catalog.Artifact{Name: a.Name, URL: a.URL, Size: a.Size, Checksum: a.SHA256})
	}

	return catalog.Release{
		Version:     entry.Version,
		Parsed:      parsed,
		DisplayName: entry.DisplayName,
		Date:        entry.Date,
		Channel:     channel,
		Notes:       entry.Notes,
		Artifacts:   artifacts,
	}, nil
}
