package config

import (
	"fmt"
	"os"

	relerr "git.home.luguber.info/inful/relix/internal/errors"
)

const starterConfig = `# relix configuration
title: Project Releases
description: Download index for project releases

source:
  type: file
  path: releases.yaml
  # timeout: 30s
  # verify_artifacts: true

output: ./site

render:
  release_pages: true
  json_index: true

daemon:
  listen: ":8080"
  interval: 15m
  watch: true
`

const starterManifest = `# Release manifest consumed by the file source.
# Keys are version identifiers; newest releases are sorted automatically.
releases:
  "1.0.0":
    name: First stable release
    date: 2024-01-15
    channel: stable
    notes: |
      Initial release.
    artifacts:
      - name: app-linux-amd64.tar.gz
        url: https://example.com/downloads/1.0.0/app-linux-amd64.tar.gz
        size: 10485760
        sha256: 0000000000000000000000000000000000000000000000000000000000000000
`

// Init writes a starter config file and example release manifest.
// Existing files are preserved unless force is set.
func Init(configPath string, force bool) error {
	if err := writeStarter(configPath, starterConfig, force); err != nil {
		return err
	}
	return writeStarter("releases.yaml", starterManifest, force)
}

func writeStarter(path, content string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return relerr.ConfigError(fmt.Sprintf("%s already exists (use --force to overwrite)", path))
		}
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return relerr.Wrap(err, relerr.CategoryConfig, relerr.SeverityFatal,
			fmt.Sprintf("write %s", path))
	}
	return nil
}
