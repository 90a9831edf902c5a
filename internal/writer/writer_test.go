package writer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	relerr "git.home.luguber.info/inful/relix/internal/errors"
	"git.home.luguber.info/inful/relix/internal/render"
)

func TestPublishWritesPages(t *testing.T) {
	out := filepath.Join(t.TempDir(), "site")
	w := New(out)

	pages := []render.Page{
		{Path: "index.html", Content: []byte("<html>index</html>")},
		{Path: "releases/1.0.0/index.html", Content: []byte("<html>release</html>")},
		{Path: "static/style.css", Content: []byte("body{}")},
	}
	require.NoError(t, w.Publish(pages))

	data, err := os.ReadFile(filepath.Join(out, "index.html"))
	require.NoError(t, err)
	assert.Equal(t, "<html>index</html>", string(data))

	data, err = os.ReadFile(filepath.Join(out, "releases", "1.0.0", "index.html"))
	require.NoError(t, err)
	assert.Equal(t, "<html>release</html>", string(data))

	// No staging or backup leftovers
	_, err = os.Stat(out + "_stage")
	assert.True(t, os.IsNotExist(err), "staging dir must be promoted away")
	_, err = os.Stat(out + ".prev")
	assert.True(t, os.IsNotExist(err), "backup dir must be removed")
}

func TestPublishReplacesPriorContents(t *testing.T) {
	out := filepath.Join(t.TempDir(), "site")
	w := New(out)

	require.NoError(t, w.Publish([]render.Page{
		{Path: "index.html", Content: []byte("v1")},
		{Path: "releases/1.0.0/index.html", Content: []byte("old release")},
	}))
	require.NoError(t, w.Publish([]render.Page{
		{Path: "index.html", Content: []byte("v2")},
	}))

	data, err := os.ReadFile(filepath.Join(out, "index.html"))
	require.NoError(t, err)
	assert.Equal(t, "v2", string(data))

	_, err = os.Stat(filepath.Join(out, "releases"))
	assert.True(t, os.IsNotExist(err), "stale pages from removed releases must not linger")
}

func TestPublishCopiesSourceFiles(t *testing.T) {
	src := filepath.Join(t.TempDir(), "app.tar.gz")
	require.NoError(t, os.WriteFile(src, []byte("payload"), 0o644))
	out := filepath.Join(t.TempDir(), "site")

	require.NoError(t, New(out).Publish([]render.Page{
		{Path: "index.html", Content: []byte("<html></html>")},
		{Path: "1.0.0/app.tar.gz", SourcePath: src},
	}))

	copied, err := os.ReadFile(filepath.Join(out, "1.0.0", "app.tar.gz"))
	require.NoError(t, err)
	assert.Equal(t, "payload", string(copied))
}

func TestPublishMissingSourceFileFails(t *testing.T) {
	out := filepath.Join(t.TempDir(), "site")

	err := New(out).Publish([]render.Page{
		{Path: "1.0.0/app.tar.gz", SourcePath: filepath.Join(t.TempDir(), "absent")},
	})
	require.Error(t, err)
	assert.True(t, relerr.IsCategory(err, relerr.CategoryWrite))

	_, statErr := os.Stat(out + "_stage")
	assert.True(t, os.IsNotExist(statErr), "staging dir must be cleaned up after abort")
}

func TestPublishRejectsEscapingPaths(t *testing.T) {
	out := filepath.Join(t.TempDir(), "site")
	w := New(out)

	err := w.Publish([]render.Page{{Path: "../outside.html", Content: []byte("x")}})
	require.Error(t, err)
	assert.True(t, relerr.IsCategory(err, relerr.CategoryWrite))

	_, statErr := os.Stat(out + "_stage")
	assert.True(t, os.IsNotExist(statErr), "staging dir must be cleaned up after abort")
}

func TestPublishKeepsPreviousOutputOnFailure(t *testing.T) {
	out := filepath.Join(t.TempDir(), "site")
	w := New(out)

	require.NoError(t, w.Publish([]render.Page{{Path: "index.html", Content: []byte("good")}}))
	err := w.Publish([]render.Page{
		{Path: "index.html", Content: []byte("new")},
		{Path: "", Content: []byte("bad")},
	})
	require.Error(t, err)

	data, readErr := os.ReadFile(filepath.Join(out, "index.html"))
	require.NoError(t, readErr)
	assert.Equal(t, "good", string(data), "failed publish must leave prior output untouched")
}

func TestSafeRelPath(t *testing.T) {
	for _, bad := range []string{"", "..", "../x", "a/../../x", "/abs/path"} {
		if _, err := safeRelPath(bad); err == nil {
			t.Errorf("safeRelPath(%q) accepted an escaping path", bad)
		}
	}
	got, err := safeRelPath("releases/1.0.0/index.html")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("releases", "1.0.0", "index.html"), got)
}
