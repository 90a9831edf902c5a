package build

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/relix/internal/config"
	"git.home.luguber.info/inful/relix/internal/verify"
)

func writeTestManifest(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "releases.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func testRunnerConfig(t *testing.T, manifest string) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Title = "Pipeline Test"
	cfg.Source.Path = writeTestManifest(t, t.TempDir(), manifest)
	return cfg
}

const twoReleaseManifest = `
releases:
  "2.0.0":
    artifacts:
      - name: app.tar.gz
        url: https://example.com/2.0.0/app.tar.gz
  "1.0.0":
    artifacts:
      - name: app.tar.gz
        url: https://example.com/1.0.0/app.tar.gz
`

func TestGenerateEndToEnd(t *testing.T) {
	cfg := testRunnerConfig(t, twoReleaseManifest)
	out := filepath.Join(t.TempDir(), "out")

	report, err := NewRunner(cfg, nil).Generate(context.Background(), out)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, report.Outcome)
	assert.Equal(t, 2, report.Releases)
	assert.Equal(t, 2, report.Artifacts)
	assert.NotEmpty(t, report.RunID)

	index, err := os.ReadFile(filepath.Join(out, "index.html"))
	require.NoError(t, err)
	// Newest first on the top-level index.
	first := string(index)
	require.Contains(t, first, "2.0.0")
	require.Contains(t, first, "1.0.0")
	assert.Less(t, strings.Index(first, "2.0.0"), strings.Index(first, "1.0.0"))

	for _, page := range []string{
		"releases/2.0.0/index.html",
		"releases/1.0.0/index.html",
		"index.0.json",
		"static/style.css",
	} {
		_, err := os.Stat(filepath.Join(out, filepath.FromSlash(page)))
		assert.NoError(t, err, "missing %s", page)
	}

	for _, s := range []string{"collect", "render", "publish"} {
		assert.Contains(t, report.StageDurations, s)
	}
}

func TestGenerateEmptySource(t *testing.T) {
	cfg := testRunnerConfig(t, "releases: {}\n")
	out := filepath.Join(t.TempDir(), "out")

	report, err := NewRunner(cfg, nil).Generate(context.Background(), out)
	require.NoError(t, err, "empty catalog is a valid run, not an error")
	assert.Equal(t, OutcomeSuccess, report.Outcome)
	assert.Equal(t, 0, report.Releases)

	index, err := os.ReadFile(filepath.Join(out, "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(index), "No releases available")
}

func TestGenerateRemovesStaleReleases(t *testing.T) {
	dir := t.TempDir()
	manifestPath := writeTestManifest(t, dir, twoReleaseManifest)
	cfg := config.Default()
	cfg.Source.Path = manifestPath
	out := filepath.Join(t.TempDir(), "out")

	_, err := NewRunner(cfg, nil).Generate(context.Background(), out)
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(out, "releases", "1.0.0", "index.html"))
	require.NoError(t, err)

	// Drop 1.0.0 from the source and regenerate.
	require.NoError(t, os.WriteFile(manifestPath, []byte(`
releases:
  "2.0.0":
    artifacts:
      - name: app.tar.gz
        url: https://example.com/2.0.0/app.tar.gz
`), 0o644))

	_, err = NewRunner(cfg, nil).Generate(context.Background(), out)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(out, "releases", "1.0.0"))
	assert.True(t, os.IsNotExist(err), "removed release must not linger in output")
}

func writeReleaseDirectory(t *testing.T) (string, []byte) {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "1.0.0"), 0o755))
	payload := []byte("release payload bytes")
	require.NoError(t, os.WriteFile(filepath.Join(root, "1.0.0", "app.tar.gz"), payload, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "1.0.0", "NOTES.md"), []byte("first release"), 0o644))
	return root, payload
}

func directorySourceConfig(root string) *config.Config {
	cfg := config.Default()
	cfg.Source.Type = config.SourceTypeDirectory
	cfg.Source.Directory = root
	return cfg
}

func TestGenerateDirectorySourcePublishesArtifacts(t *testing.T) {
	root, payload := writeReleaseDirectory(t)
	out := filepath.Join(t.TempDir(), "out")

	report, err := NewRunner(directorySourceConfig(root), nil).Generate(context.Background(), out)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, report.Outcome)

	copied, err := os.ReadFile(filepath.Join(out, "1.0.0", "app.tar.gz"))
	require.NoError(t, err, "artifact files must be published alongside the index")
	assert.Equal(t, payload, copied)
}

func TestValidateDirectorySourceLinksResolve(t *testing.T) {
	root, _ := writeReleaseDirectory(t)

	report, pages, err := NewRunner(directorySourceConfig(root), nil).Validate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, report.Outcome)

	problems, err := verify.Links(pages)
	require.NoError(t, err)
	assert.Empty(t, problems, "relative artifact links must resolve within the page set")
}

func TestGenerateWarningOutcome(t *testing.T) {
	cfg := testRunnerConfig(t, `
releases:
  "ok-not-a-version":
    artifacts: []
  "1.0.0":
    artifacts: []
`)
	report, err := NewRunner(cfg, nil).Generate(context.Background(), filepath.Join(t.TempDir(), "out"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeWarning, report.Outcome)
	assert.Len(t, report.Warnings, 1)
	assert.Equal(t, 1, report.Releases)
}

func TestGenerateSourceUnavailableFails(t *testing.T) {
	cfg := config.Default()
	cfg.Source.Path = filepath.Join(t.TempDir(), "absent.yaml")

	report, err := NewRunner(cfg, nil).Generate(context.Background(), filepath.Join(t.TempDir(), "out"))
	require.Error(t, err)
	assert.Equal(t, OutcomeFailed, report.Outcome)
	assert.NotEmpty(t, report.Error)
}

func TestGenerateCanceledContext(t *testing.T) {
	cfg := testRunnerConfig(t, twoReleaseManifest)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := NewRunner(cfg, nil).Generate(ctx, filepath.Join(t.TempDir(), "out"))
	require.Error(t, err)
	assert.Equal(t, OutcomeCanceled, report.Outcome)
}

func TestValidateDoesNotWrite(t *testing.T) {
	cfg := testRunnerConfig(t, twoReleaseManifest)
	out := filepath.Join(t.TempDir(), "out")
	cfg.Output = out

	report, pages, err := NewRunner(cfg, nil).Validate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, report.Outcome)
	assert.NotEmpty(t, pages)

	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr), "validate must not create the output directory")
}
