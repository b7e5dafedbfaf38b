// Package config loads service configuration from the environment.
package config

import (
	"log/slog"
	"os"
	"strings"
)

// Config holds server configuration.
type Config struct {
	LogLevel    string
	PolicyPath  string // YAML policy profile, empty means built-in defaults
	ArtifactDir string
	AuditDBPath string // SQLite decision log, empty disables durable audit
}

// Load loads configuration from environment variables.
func Load() *Config {
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "INFO"
	}

	artifactDir := os.Getenv("ARTIFACT_DIR")
	if artifactDir == "" {
		artifactDir = "./artifacts"
	}

	return &Config{
		LogLevel:    logLevel,
		PolicyPath:  os.Getenv("POLICY_FILE"),
		ArtifactDir: artifactDir,
		AuditDBPath: os.Getenv("AUDIT_DB_PATH"),
	}
}

// SlogLevel maps the configured level string to a slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToUpper(c.LogLevel) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
