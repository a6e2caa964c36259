package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/lkn2993/geode/pkg/adapters/datasource"
	"github.com/lkn2993/geode/pkg/apperrors"
)

// Pool wraps *pgxpool.Pool to implement datasource.PoolConnector.
type Pool struct {
	pool *pgxpool.Pool
}

// OpenPool dials a PostgreSQL connection pool from a descriptor config map.
func OpenPool(ctx context.Context, config map[string]any) (*Pool, error) {
	cfg, err := FromMap(config)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.New(ctx, buildConnectionString(cfg))
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	return &Pool{pool: pool}, nil
}

func (p *Pool) Ping(ctx context.Context) error { return p.pool.Ping(ctx) }

func (p *Pool) Close() error {
	p.pool.Close()
	return nil
}

func (p *Pool) Type() string { return "postgres" }

// SchemaConn provides PostgreSQL schema introspection over a managed pool.
type SchemaConn struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewSchemaConn wraps a managed pool in a scoped schema connection.
func NewSchemaConn(pool datasource.PoolConnector, logger *zap.Logger) (*SchemaConn, error) {
	p, ok := pool.(*Pool)
	if !ok {
		return nil, fmt.Errorf("expected postgres pool, got %T", pool)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SchemaConn{pool: p.pool, logger: logger}, nil
}

// Close releases the connection scope. The pool itself is TTL-managed.
func (c *SchemaConn) Close() error { return nil }

// DescribeTable resolves the table name case-insensitively, then returns
// its column descriptors in ordinal order plus primary key column names.
func (c *SchemaConn) DescribeTable(ctx context.Context, req datasource.TableRequest) (*datasource.TableSchema, error) {
	schemaName, tableName, err := c.resolveTable(ctx, req)
	if err != nil {
		return nil, err
	}

	const columnQuery = `
		SELECT
			c.column_name,
			c.data_type,
			c.is_nullable = 'YES' AS is_nullable,
			pk.column_name IS NOT NULL AS is_key
		FROM information_schema.columns c
		LEFT JOIN (
			SELECT kcu.column_name
			FROM information_schema.table_constraints tc
			JOIN information_schema.key_column_usage kcu
				ON tc.constraint_name = kcu.constraint_name
				AND tc.table_schema = kcu.table_schema
			WHERE tc.constraint_type = 'PRIMARY KEY'
				AND tc.table_schema = $1
				AND tc.table_name = $2
		) pk ON pk.column_name = c.column_name
		WHERE c.table_schema = $1 AND c.table_name = $2
		ORDER BY c.ordinal_position
	`

	rows, err := c.pool.Query(ctx, columnQuery, schemaName, tableName)
	if err != nil {
		return nil, apperrors.TransientIO("query columns of "+tableName, err)
	}
	defer rows.Close()

	schema := &datasource.TableSchema{TableName: tableName}
	for rows.Next() {
		var (
			col      datasource.ColumnDescriptor
			dataType string
		)
		if err := rows.Scan(&col.Name, &dataType, &col.Nullable, &col.IsKey); err != nil {
			return nil, apperrors.TransientIO("scan column row", err)
		}
		col.Type = mapDataType(dataType)
		schema.Columns = append(schema.Columns, col)
		if col.IsKey {
			schema.KeyColumns = append(schema.KeyColumns, col.Name)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.TransientIO("iterate column rows", err)
	}

	return schema, nil
}

// resolveTable finds the actual table matching the requested name, which
// is treated case-insensitively. No match or more than one match is a
// configuration defect, not an I/O fault.
func (c *SchemaConn) resolveTable(ctx context.Context, req datasource.TableRequest) (schemaName, tableName string, err error) {
	const query = `
		SELECT table_schema, table_name
		FROM information_schema.tables
		WHERE table_type = 'BASE TABLE'
			AND table_schema NOT IN ('pg_catalog', 'information_schema', 'pg_toast')
			AND lower(table_name) = lower($1)
			AND ($2 = '' OR table_schema = $2)
	`

	rows, err := c.pool.Query(ctx, query, req.Table, req.Schema)
	if err != nil {
		return "", "", apperrors.TransientIO("resolve table "+req.Table, err)
	}
	defer rows.Close()

	var matches [][2]string
	for rows.Next() {
		var s, t string
		if err := rows.Scan(&s, &t); err != nil {
			return "", "", apperrors.TransientIO("scan table row", err)
		}
		matches = append(matches, [2]string{s, t})
	}
	if err := rows.Err(); err != nil {
		return "", "", apperrors.TransientIO("iterate table rows", err)
	}

	switch len(matches) {
	case 0:
		return "", "", apperrors.Configurationf("no table was found that matches %q", req.Table)
	case 1:
		return matches[0][0], matches[0][1], nil
	default:
		return "", "", apperrors.Configurationf("duplicate tables that match %q", req.Table)
	}
}

// mapDataType translates information_schema type names into the canonical
// vocabulary.
func mapDataType(dataType string) datasource.SQLType {
	switch dataType {
	case "boolean":
		return datasource.SQLBoolean
	case "smallint":
		return datasource.SQLSmallInt
	case "integer":
		return datasource.SQLInteger
	case "bigint":
		return datasource.SQLBigInt
	case "real":
		return datasource.SQLReal
	case "double precision":
		return datasource.SQLDouble
	case "numeric":
		return datasource.SQLNumeric
	case "character varying":
		return datasource.SQLVarchar
	case "character":
		return datasource.SQLChar
	case "text":
		return datasource.SQLLongVarchar
	case "date":
		return datasource.SQLDate
	case "time without time zone", "time with time zone":
		return datasource.SQLTime
	case "timestamp without time zone", "timestamp with time zone":
		return datasource.SQLTimestamp
	case "bytea":
		return datasource.SQLVarBinary
	default:
		return datasource.SQLOther
	}
}

// Ensure interfaces are implemented at compile time.
var (
	_ datasource.PoolConnector = (*Pool)(nil)
	_ datasource.SchemaConn    = (*SchemaConn)(nil)
)
