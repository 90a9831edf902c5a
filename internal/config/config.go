// Package config loads and validates the relix configuration file and its
// environment overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	relerr "git.home.luguber.info/inful/relix/internal/errors"
)

// SourceType selects the release source variant.
type SourceType string

const (
	SourceTypeFile      SourceType = "file"
	SourceTypeDirectory SourceType = "directory"
	SourceTypeGit       SourceType = "git"
	SourceTypeFeed      SourceType = "feed"
)

// SourceConfig describes where releases are enumerated from.
type SourceConfig struct {
	Type SourceType `yaml:"type"`

	// Path is the releases manifest for the file source.
	Path string `yaml:"path,omitempty"`
	// Directory is the root scanned by the directory source.
	Directory string `yaml:"directory,omitempty"`
	// Repository is the remote URL listed by the git source.
	Repository string `yaml:"repository,omitempty"`
	// ArtifactTemplate expands {version} and {tag} into artifact URLs
	// for the git source. Empty means releases carry no artifacts.
	ArtifactTemplate string `yaml:"artifact_template,omitempty"`
	// URL is the JSON feed location for the feed source.
	URL string `yaml:"url,omitempty"`

	// Timeout bounds the whole source access (enumeration plus any
	// artifact verification). Zero means the default of 30s.
	Timeout time.Duration `yaml:"timeout,omitempty"`
	// VerifyArtifacts enables HEAD checks of artifact URLs.
	VerifyArtifacts bool `yaml:"verify_artifacts,omitempty"`
}

// RenderConfig controls which pages the renderer produces.
type RenderConfig struct {
	ReleasePages bool `yaml:"release_pages"`
	JSONIndex    bool `yaml:"json_index"`
}

// NATSConfig configures optional build announcements.
type NATSConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url,omitempty"`
	Subject string `yaml:"subject,omitempty"`
}

// DaemonConfig configures continuous mode.
type DaemonConfig struct {
	Listen    string        `yaml:"listen,omitempty"`
	Interval  time.Duration `yaml:"interval,omitempty"`
	Watch     bool          `yaml:"watch"`
	HistoryDB string        `yaml:"history_db,omitempty"`
	NATS      NATSConfig    `yaml:"nats,omitempty"`
}

// Config is the root configuration.
type Config struct {
	Title       string       `yaml:"title,omitempty"`
	Description string       `yaml:"description,omitempty"`
	BaseURL     string       `yaml:"base_url,omitempty"`
	Source      SourceConfig `yaml:"source"`
	Output      string       `yaml:"output,omitempty"`
	Render      RenderConfig `yaml:"render"`
	Daemon      DaemonConfig `yaml:"daemon,omitempty"`
}

// Default returns the convention-based configuration used when no config
// file exists: a releases.yaml manifest next to the working directory.
func Default() *Config {
	return &Config{
		Title:  "Releases",
		Source: SourceConfig{Type: SourceTypeFile, Path: "releases.yaml", Timeout: 30 * time.Second},
		Output: "./site",
		Render: RenderConfig{ReleasePages: true, JSONIndex: true},
		Daemon: DaemonConfig{
			Listen:    ":8080",
			Interval:  15 * time.Minute,
			Watch:     true,
			HistoryDB: "relix-history.db",
			NATS:      NATSConfig{Subject: "relix.builds"},
		},
	}
}

// Load reads the configuration file, applies defaults and environment
// overrides, and validates the result. A missing file is not an error:
// the conventional default configuration is returned instead.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Convention over configuration: releases.yaml in the cwd.
	case err != nil:
		return nil, relerr.Wrap(err, relerr.CategoryConfig, relerr.SeverityFatal,
			fmt.Sprintf("read config %s", path))
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, relerr.Wrap(err, relerr.CategoryConfig, relerr.SeverityFatal,
				fmt.Sprintf("parse config %s", path))
		}
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills zero values that Unmarshal may have cleared.
func applyDefaults(cfg *Config) {
	if cfg.Source.Type == "" {
		cfg.Source.Type = SourceTypeFile
	}
	if cfg.Source.Type == SourceTypeFile && cfg.Source.Path == "" {
		cfg.Source.Path = "releases.yaml"
	}
	if cfg.Source.Timeout <= 0 {
		cfg.Source.Timeout = 30 * time.Second
	}
	if cfg.Output == "" {
		cfg.Output = "./site"
	}
	if cfg.Title == "" {
		cfg.Title = "Releases"
	}
	if cfg.Daemon.Listen == "" {
		cfg.Daemon.Listen = ":8080"
	}
	if cfg.Daemon.Interval <= 0 {
		cfg.Daemon.Interval = 15 * time.Minute
	}
	if cfg.Daemon.HistoryDB == "" {
		cfg.Daemon.HistoryDB = "relix-history.db"
	}
	if cfg.Daemon.NATS.Subject == "" {
		cfg.Daemon.NATS.Subject = "relix.builds"
	}
}

// Validate checks cross-field consistency.
func (c *Config) Validate() error {
	switch c.Source.Type {
	case SourceTypeFile:
		if c.Source.Path == "" {
			return relerr.ConfigError("file source requires source.path")
		}
	case SourceTypeDirectory:
		if c.Source.Directory == "" {
			return relerr.ConfigError("directory source requires source.directory")
		}
	case SourceTypeGit:
		if c.Source.Repository == "" {
			return relerr.ConfigError("git source requires source.repository")
		}
	case SourceTypeFeed:
		if c.Source.URL == "" {
			return relerr.ConfigError("feed source requires source.url")
		}
	default:
		return relerr.ConfigError(fmt.Sprintf("unknown source type %q", c.Source.Type))
	}

	if c.Daemon.NATS.Enabled && c.Daemon.NATS.URL == "" {
		return relerr.ConfigError("nats announcements enabled but daemon.nats.url is empty")
	}
	return nil
}
