package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/relix/internal/catalog"
	relerr "git.home.luguber.info/inful/relix/internal/errors"
)

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "releases.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestFileSourceEnumerate(t *testing.T) {
	path := writeManifest(t, `
releases:
  "2.0.0":
    name: Second release
    date: 2024-06-01T00:00:00Z
    channel: stable
    notes: |
      Big rewrite.
    artifacts:
      - name: app.tar.gz
        url: https://example.com/2.0.0/app.tar.gz
        size: 1024
        sha256: abc123
  "1.0.0":
    channel: preview
    artifacts:
      - name: app.tar.gz
        url: https://example.com/1.0.0/app.tar.gz
`)

	releases, warnings, err := NewFileSource(path).Enumerate(context.Background())
	require.NoError(t, err)
	assert.Empty(t, warnings)
	require.Len(t, releases, 2)

	byVersion := map[string]catalog.Release{}
	for _, r := range releases {
		byVersion[r.Version] = r
	}

	second := byVersion["2.0.0"]
	assert.Equal(t, "Second release", second.DisplayName)
	assert.Equal(t, catalog.ChannelStable, second.Channel)
	require.NotNil(t, second.Date)
	require.Len(t, second.Artifacts, 1)
	assert.Equal(t, int64(1024), second.Artifacts[0].Size)
	assert.Equal(t, "abc123", second.Artifacts[0].Checksum)

	assert.Equal(t, catalog.ChannelPreview, byVersion["1.0.0"].Channel)
}

func TestFileSourceSkipsMalformedEntries(t *testing.T) {
	path := writeManifest(t, `
releases:
  "not-a-version":
    artifacts:
      - name: x
        url: https://example.com/x
  "1.0.0":
    artifacts:
      - name: ok
        url: https://example.com/ok
  "1.1.0":
    artifacts:
      - url: https://example.com/missing-name
`)

	releases, warnings, err := NewFileSource(path).Enumerate(context.Background())
	require.NoError(t, err)
	require.Len(t, releases, 1)
	assert.Equal(t, "1.0.0", releases[0].Version)
	assert.Len(t, warnings, 2)
}

func TestFileSourceMissingManifestIsSourceUnavailable(t *testing.T) {
	_, _, err := NewFileSource(filepath.Join(t.TempDir(), "absent.yaml")).Enumerate(context.Background())
	require.Error(t, err)
	assert.True(t, relerr.IsCategory(err, relerr.CategorySource))
}

func TestFileSourceRejectsManifestWithoutReleases(t *testing.T) {
	path := writeManifest(t, "title: not a manifest\n")
	_, _, err := NewFileSource(path).Enumerate(context.Background())
	require.Error(t, err)
	assert.True(t, relerr.IsCategory(err, relerr.CategorySource))
}
