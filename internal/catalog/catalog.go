// Package catalog defines the in-memory release model produced by a source
// and consumed by the renderer. A catalog is built once per run and is
// immutable after construction.
package catalog

import (
	"fmt"
	"sort"
	"time"

	relerr "git.home.luguber.info/inful/relix/internal/errors"
)

// Channel identifies the release stream an entry belongs to.
type Channel string

const (
	ChannelStable  Channel = "stable"
	ChannelPreview Channel = "preview"
)

// ParseChannel validates a channel string; empty defaults to stable.
func ParseChannel(s string) (Channel, error) {
	switch Channel(s) {
	case "", ChannelStable:
		return ChannelStable, nil
	case ChannelPreview:
		return ChannelPreview, nil
	default:
		return "", fmt.Errorf("unknown release channel %q (expected %q or %q)", s, ChannelStable, ChannelPreview)
	}
}

// Artifact is a single downloadable file belonging to a release.
type Artifact struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	Size     int64  `json:"size,omitempty"`   // bytes; 0 means unknown
	Checksum string `json:"sha256,omitempty"` // hex sha256; empty means unknown

	// LocalPath is the on-disk location of the artifact for sources that
	// read the local filesystem. Such artifacts are copied into the
	// output alongside the rendered pages so their relative URLs resolve.
	LocalPath string `json:"-"`
}

// Release is a named, versioned publication with its downloadable artifacts.
// Artifacts keep discovery order; release ordering is the catalog's concern.
type Release struct {
	// Version is the raw identifier as discovered (catalog key, unique).
	Version string `json:"version"`
	// Parsed drives ordering. Always valid in a constructed catalog.
	Parsed Version `json:"-"`
	// DisplayName is an optional human-readable name; falls back to Version.
	DisplayName string     `json:"display_name,omitempty"`
	Date        *time.Time `json:"date,omitempty"`
	Channel     Channel    `json:"channel"`
	// Notes is optional release-notes markdown.
	Notes     string     `json:"notes,omitempty"`
	Artifacts []Artifact `json:"artifacts"`
}

// Title returns the display name, falling back to the version identifier.
func (r Release) Title() string {
	if r.DisplayName != "" {
		return r.DisplayName
	}
	return r.Version
}

// Catalog is the complete ordered set of releases discovered in one run.
type Catalog struct {
	releases []Release
}

// New constructs a catalog from discovered releases. Releases are sorted
// newest first (version desc, ties by date desc, then display name asc).
// Duplicate version identifiers or duplicate artifact names within a
// release are fatal: silent overwrites would hide publishing mistakes.
func New(releases []Release) (*Catalog, error) {
	seen := make(map[string]struct{}, len(releases))
	for _, rel := range releases {
		if _, dup := seen[rel.Version]; dup {
			return nil, relerr.New(relerr.CategoryCatalog, relerr.SeverityFatal,
				fmt.Sprintf("duplicate release version %q", rel.Version))
		}
		seen[rel.Version] = struct{}{}

		names := make(map[string]struct{}, len(rel.Artifacts))
		for _, a := range rel.Artifacts {
			if _, dup := names[a.Name]; dup {
				return nil, relerr.New(relerr.CategoryCatalog, relerr.SeverityFatal,
					fmt.Sprintf("release %q: duplicate artifact name %q", rel.Version, a.Name))
			}
			names[a.Name] = struct{}{}
		}
	}

	ordered := make([]Release, len(releases))
	copy(ordered, releases)
	sort.SliceStable(ordered, func(i, j int) bool {
		if c := ordered[i].Parsed.Compare(ordered[j].Parsed); c != 0 {
			return c > 0
		}
		di, dj := ordered[i].Date, ordered[j].Date
		switch {
		case di != nil && dj != nil && !di.Equal(*dj):
			return di.After(*dj)
		case di != nil && dj == nil:
			return true
		case di == nil && dj != nil:
			return false
		}
		return ordered[i].Title() < ordered[j].Title()
	})

	return &Catalog{releases: ordered}, nil
}

// Releases returns the ordered release list. Callers must not mutate it.
func (c *Catalog) Releases() []Release {
	return c.releases
}

// Len returns the number of releases in the catalog.
func (c *Catalog) Len() int {
	return len(c.releases)
}

// ArtifactCount returns the total artifact count across all releases.
func (c *Catalog) ArtifactCount() int {
	n := 0
	for _, r := range c.releases {
		n += len(r.Artifacts)
	}
	return n
}
