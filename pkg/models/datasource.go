package models

import (
	"time"

	"github.com/google/uuid"
)

// DataSource is a named connector descriptor: the handle a region mapping
// refers to by name. Config holds driver-specific connection details whose
// structure varies by type.
type DataSource struct {
	ID             uuid.UUID      `json:"id"`
	Name           string         `json:"name"`
	DataSourceType string         `json:"datasource_type"` // "postgres", "sqlserver", "sqlite"
	Config         map[string]any `json:"config"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}
