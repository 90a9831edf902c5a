package source

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/relix/internal/config"
)

func TestNewSelectsVariant(t *testing.T) {
	cases := []struct {
		cfg  config.SourceConfig
		want string
	}{
		{config.SourceConfig{Type: config.SourceTypeFile, Path: "releases.yaml"}, "file:releases.yaml"},
		{config.SourceConfig{Type: config.SourceTypeDirectory, Directory: "./rel"}, "directory:./rel"},
		{config.SourceConfig{Type: config.SourceTypeGit, Repository: "https://x/r.git"}, "git:https://x/r.git"},
		{config.SourceConfig{Type: config.SourceTypeFeed, URL: "https://x/index.0.json"}, "feed:https://x/index.0.json"},
	}

	for _, tc := range cases {
		s, err := New(&config.Config{Source: tc.cfg})
		require.NoError(t, err)
		assert.Equal(t, tc.want, s.Name())
	}
}

func TestNewRejectsUnknownType(t *testing.T) {
	_, err := New(&config.Config{Source: config.SourceConfig{Type: "ftp"}})
	require.Error(t, err)
}
