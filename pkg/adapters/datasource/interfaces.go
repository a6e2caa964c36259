// Package datasource abstracts access to the external databases that
// region mappings bind against. Each supported database registers an
// adapter at init() time; the resolver turns a persisted connector
// descriptor into a live handle backed by a TTL-managed pool.
package datasource

import "context"

// ColumnDescriptor is an immutable snapshot of one table column.
type ColumnDescriptor struct {
	Name     string  `json:"name"`
	Type     SQLType `json:"type"`
	Nullable bool    `json:"nullable"`
	IsKey    bool    `json:"is_key"`
}

// TableSchema is the result of introspecting one table.
type TableSchema struct {
	// TableName is the resolved name, which may differ in case or
	// qualification from the requested one.
	TableName  string             `json:"table_name"`
	Columns    []ColumnDescriptor `json:"columns"`
	KeyColumns []string           `json:"key_columns"`
}

// TableRequest names the table to introspect.
type TableRequest struct {
	Schema string `json:"schema,omitempty"`
	Table  string `json:"table"`
}

// SchemaConn is a scoped connection capable of schema introspection.
// Callers must Close it on every exit path; Close releases the scope, not
// the underlying managed pool.
type SchemaConn interface {
	// DescribeTable returns column descriptors and key-column names.
	// A table that cannot be found or matches ambiguously is a
	// configuration error; connection and read faults are transient.
	DescribeTable(ctx context.Context, req TableRequest) (*TableSchema, error)

	// Close releases the connection scope.
	Close() error
}

// Handle is a resolved data source from which connections are acquired.
type Handle interface {
	Name() string
	Connect(ctx context.Context) (SchemaConn, error)
}

// Resolver looks up a data source handle by name. Absence is reported as
// apperrors.ErrNotFound.
type Resolver interface {
	Resolve(ctx context.Context, name string) (Handle, error)
}

// PoolConnector abstracts connection pool operations across database
// types (pgxpool for postgres, database/sql elsewhere).
type PoolConnector interface {
	// Ping verifies the pool can reach the database.
	Ping(ctx context.Context) error

	// Close closes all connections in the pool.
	Close() error

	// Type returns the database type for logging/stats.
	Type() string
}
