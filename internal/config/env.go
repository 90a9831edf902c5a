package config

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
)

// LoadEnvFiles loads .env/.env.local into the process environment. Existing
// environment variables are never overwritten, so CI-provided values win.
func LoadEnvFiles() {
	for _, envPath := range []string{".env", ".env.local"} {
		if _, err := os.Stat(envPath); err != nil {
			continue
		}
		if err := godotenv.Load(envPath); err != nil {
			slog.Warn("Failed to load env file", "path", envPath, "error", err)
			continue
		}
		slog.Debug("Loaded environment variables", "path", envPath)
	}
}

// applyEnvOverrides lets the environment override file-based settings.
// The set is intentionally small: the knobs CI pipelines actually need.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("RELIX_SOURCE_TYPE"); v != "" {
		cfg.Source.Type = SourceType(v)
	}
	if v := os.Getenv("RELIX_SOURCE_PATH"); v != "" {
		cfg.Source.Path = v
	}
	if v := os.Getenv("RELIX_SOURCE_DIRECTORY"); v != "" {
		cfg.Source.Directory = v
	}
	if v := os.Getenv("RELIX_SOURCE_REPOSITORY"); v != "" {
		cfg.Source.Repository = v
	}
	if v := os.Getenv("RELIX_SOURCE_URL"); v != "" {
		cfg.Source.URL = v
	}
	if v := os.Getenv("RELIX_OUTPUT"); v != "" {
		cfg.Output = v
	}
}
