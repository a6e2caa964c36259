package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jinzhu/inflection"
)

// RegionMapping binds a cache region to a relational table plus the
// field-level correspondence between the two. It is the persisted
// configuration document the admin surface creates, lists and removes.
type RegionMapping struct {
	ID             uuid.UUID `json:"id"`
	RegionName     string    `json:"region_name"`
	DataSourceName string    `json:"datasource_name"`

	// TableName is the operator-supplied table name. It is provisional:
	// schema introspection may resolve it to a differently-cased or
	// schema-qualified name.
	TableName string `json:"table_name"`

	// PdxName is the logical class name cached values carry. Empty means
	// derive a default from the table name.
	PdxName string `json:"pdx_name"`

	// IDs lists the explicit identifier field names, comma separated.
	// When empty, key columns are inferred from the table's primary key.
	IDs string `json:"ids"`

	FieldMappings []FieldMapping `json:"field_mappings"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EffectiveTableName returns the table to introspect: the explicit table
// name when set, else the region name.
func (m *RegionMapping) EffectiveTableName() string {
	if m.TableName != "" {
		return m.TableName
	}
	return m.RegionName
}

// EffectivePdxName returns the logical class name, defaulting to the
// singular form of the table name when the operator did not supply one.
func (m *RegionMapping) EffectivePdxName() string {
	if m.PdxName != "" {
		return m.PdxName
	}
	return inflection.Singular(strings.ToLower(m.EffectiveTableName()))
}

// SpecifiesIDs reports whether the operator supplied explicit identifier
// fields, which suppresses key-column inference.
func (m *RegionMapping) SpecifiesIDs() bool {
	return strings.TrimSpace(m.IDs) != ""
}

// FieldMapping records the correspondence between one table column and one
// field of the logical type. For a column with no counterpart in an
// existing type definition, PdxName/PdxType carry a freshly inferred
// suggestion that is surfaced for operator review rather than bound to
// the registry.
type FieldMapping struct {
	PdxName      string `json:"pdx_name"`
	PdxType      string `json:"pdx_type"`
	JdbcName     string `json:"jdbc_name"`
	JdbcType     string `json:"jdbc_type"`
	JdbcNullable bool   `json:"jdbc_nullable"`
}

// ReconciliationResult is the outcome of one reconciliation pass: the
// per-column field mappings in table order, and the key columns inferred
// from the table's primary key when no explicit IDs were supplied.
type ReconciliationResult struct {
	InferredKeyColumns []string       `json:"inferred_key_columns"`
	FieldMappings      []FieldMapping `json:"field_mappings"`
}
