package config

import (
	"fmt"
	"strings"
)

// LoggingConfig defines the minimum level written by every component and an
// optional rotating log file written next to stdout.
type LoggingConfig struct {
	Level      string `json:"level"`
	File       string `json:"file"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
}

// SetDefaults applies sane defaults.
func (c *LoggingConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.File != "" && c.MaxSizeMB == 0 {
		c.MaxSizeMB = 100
	}
}

// Validate checks the level name and rotation limits.
func (c LoggingConfig) Validate() error {
	switch strings.ToLower(c.Level) {
	case "trace", "debug", "info", "warn", "error", "fatal", "panic", "disabled":
	default:
		return fmt.Errorf("unknown log level %s", c.Level)
	}
	if c.MaxSizeMB < 0 || c.MaxBackups < 0 || c.MaxAgeDays < 0 {
		return fmt.Errorf("logging rotation limits must be >= 0")
	}
	return nil
}
