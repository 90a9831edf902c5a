package source

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"

	"git.home.luguber.info/inful/relix/internal/catalog"
	relerr "git.home.luguber.info/inful/relix/internal/errors"
	"git.home.luguber.info/inful/relix/internal/logfields"
)

// notesFileName inside a release directory becomes the release notes and
// is excluded from the artifact list.
const notesFileName = "NOTES.md"

// DirectorySource scans a directory of versioned subdirectories. Each
// subdirectory whose name parses as a version is a release; the regular
// files inside are its artifacts, referenced by relative path so the
// artifact tree can be published next to the generated index.
type DirectorySource struct {
	root string
}

// NewDirectorySource creates a directory source rooted at root.
func NewDirectorySource(root string) *DirectorySource {
	return &DirectorySource{root: root}
}

func (s *DirectorySource) Name() string { return fmt.Sprintf("directory:%s", s.root) }

// Enumerate walks one level of the root directory. A missing or unreadable
// root is fatal; a subdirectory with an unparsable name is a warning.
func (s *DirectorySource) Enumerate(ctx context.Context) ([]catalog.Release, []Warning, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, nil, relerr.SourceUnavailable(err, fmt.Sprintf("read release directory %s", s.root))
	}

	var releases []catalog.Release
	var warnings []Warning
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, nil, relerr.SourceUnavailable(err, "directory scan canceled")
		}
		if !entry.IsDir() {
			continue
		}
		parsed, err := catalog.ParseVersion(entry.Name())
		if err != nil {
			warnings = append(warnings, Warning{Entry: entry.Name(), Reason: err.Error()})
			slog.Warn("Skipping non-version directory", logfields.Path(entry.Name()), "reason", err)
			continue
		}

		rel, err := s.readReleaseDir(entry.Name(), parsed)
		if err != nil {
			return nil, nil, err
		}
		releases = append(releases, rel)
	}
	return releases, warnings, nil
}

func (s *DirectorySource) readReleaseDir(name string, parsed catalog.Version) (catalog.Release, error) {
	dir := filepath.Join(s.root, name)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return catalog.Release{}, relerr.SourceUnavailable(err, fmt.Sprintf("read release directory %s", dir))
	}

	rel := catalog.Release{
		Version: name,
		Parsed:  parsed,
		Channel: inferChannel(parsed),
	}
	if info, err := os.Stat(dir); err == nil {
		mod := info.ModTime().UTC()
		rel.Date = &mod
	}

	// Deterministic artifact order regardless of filesystem iteration.
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		full := filepath.Join(dir, entry.Name())
		if entry.Name() == notesFileName {
			notes, err := os.ReadFile(full)
			if err != nil {
				return catalog.Release{}, relerr.SourceUnavailable(err, fmt.Sprintf("read %s", full))
			}
			rel.Notes = string(notes)
			continue
		}

		info, err := entry.Info()
		if err != nil {
			return catalog.Release{}, relerr.SourceUnavailable(err, fmt.Sprintf("stat %s", full))
		}
		sum, err := fileSHA256(full)
		if err != nil {
			return catalog.Release{}, relerr.SourceUnavailable(err, fmt.Sprintf("checksum %s", full))
		}
		rel.Artifacts = append(rel.Artifacts, catalog.Artifact{
			Name:      entry.Name(),
			URL:       path.Join(name, entry.Name()),
			Size:      info.Size(),
			Checksum:  sum,
			LocalPath: full,
		})
	}
	return rel, nil
}

func fileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
