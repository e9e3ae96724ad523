package config

import (
	"fmt"
)

// Trip log backends.
const (
	TripLogJSONL    = "jsonl"
	TripLogRotating = "rotating"
	TripLogPostgres = "postgres"
	TripLogNone     = "none"
)

// TripLogConfig defines settings for trip log storage and rotation.
type TripLogConfig struct {
	// Backend selects the store type: "jsonl", "rotating", "postgres" or "none".
	Backend string `json:"backend"`
	// Path is the file location of the file backends.
	Path string `json:"path"`
	// DSN is the PostgreSQL connection string.
	DSN string `json:"dsn"`
	// MaxSizeMB triggers rotation when the file exceeds this size in megabytes.
	MaxSizeMB int `json:"max_size_mb"`
	// MaxBackups limits the number of rotated files to keep.
	MaxBackups int `json:"max_backups"`
	// MaxAgeDays removes rotated files older than this number of days.
	MaxAgeDays int `json:"max_age_days"`
}

// SetDefaults applies sane defaults.
func (c *TripLogConfig) SetDefaults() {
	if c.Backend == "" {
		c.Backend = TripLogJSONL
	}
	if c.Path == "" && (c.Backend == TripLogJSONL || c.Backend == TripLogRotating) {
		c.Path = "trips.jsonl"
	}
	if c.Backend == TripLogRotating && c.MaxSizeMB <= 0 {
		c.MaxSizeMB = 10
	}
}

// Validate checks mandatory fields.
func (c TripLogConfig) Validate() error {
	switch c.Backend {
	case TripLogJSONL, TripLogRotating:
		if c.Path == "" {
			return fmt.Errorf("triplog: path is required")
		}
	case TripLogPostgres:
		if c.DSN == "" {
			return fmt.Errorf("triplog: dsn is required")
		}
	case TripLogNone:
	default:
		return fmt.Errorf("triplog: unknown backend %s", c.Backend)
	}
	return nil
}
