package sqlite

import (
	"fmt"
)

// Config contains SQLite-specific connection options.
type Config struct {
	// Path is the database file path, or ":memory:" for an in-memory
	// database (useful in tests).
	Path string
}

// FromMap creates a Config from a generic descriptor config map.
func FromMap(config map[string]any) (*Config, error) {
	cfg := &Config{}
	if path, ok := config["path"].(string); ok {
		cfg.Path = path
	} else {
		return nil, fmt.Errorf("path is required")
	}
	return cfg, nil
}
