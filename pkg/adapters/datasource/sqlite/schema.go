package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
	_ "modernc.org/sqlite" // registers the sqlite driver

	"github.com/lkn2993/geode/pkg/adapters/datasource"
	"github.com/lkn2993/geode/pkg/apperrors"
)

// Pool wraps *sql.DB to implement datasource.PoolConnector.
type Pool struct {
	db *sql.DB
}

// OpenPool opens a SQLite database from a descriptor config map.
func OpenPool(_ context.Context, config map[string]any) (*Pool, error) {
	cfg, err := FromMap(config)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	return &Pool{db: db}, nil
}

func (p *Pool) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

func (p *Pool) Close() error { return p.db.Close() }

func (p *Pool) Type() string { return "sqlite" }

// SchemaConn provides SQLite schema introspection over a managed pool.
type SchemaConn struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSchemaConn wraps a managed pool in a scoped schema connection.
func NewSchemaConn(pool datasource.PoolConnector, logger *zap.Logger) (*SchemaConn, error) {
	p, ok := pool.(*Pool)
	if !ok {
		return nil, fmt.Errorf("expected sqlite pool, got %T", pool)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SchemaConn{db: p.db, logger: logger}, nil
}

// Close releases the connection scope. The pool itself is TTL-managed.
func (c *SchemaConn) Close() error { return nil }

// DescribeTable resolves the table name case-insensitively, then returns
// its column descriptors in declaration order plus primary key columns.
func (c *SchemaConn) DescribeTable(ctx context.Context, req datasource.TableRequest) (*datasource.TableSchema, error) {
	tableName, err := c.resolveTable(ctx, req.Table)
	if err != nil {
		return nil, err
	}

	// table_info yields: cid, name, type, notnull, dflt_value, pk.
	// pk is the 1-based position within the primary key, 0 otherwise.
	rows, err := c.db.QueryContext(ctx, `SELECT name, type, "notnull", pk FROM pragma_table_info(?)`, tableName)
	if err != nil {
		return nil, apperrors.TransientIO("query columns of "+tableName, err)
	}
	defer rows.Close()

	schema := &datasource.TableSchema{TableName: tableName}
	type keyColumn struct {
		name string
		pos  int
	}
	var keys []keyColumn
	for rows.Next() {
		var (
			col      datasource.ColumnDescriptor
			declType string
			notNull  int
			pk       int
		)
		if err := rows.Scan(&col.Name, &declType, &notNull, &pk); err != nil {
			return nil, apperrors.TransientIO("scan column row", err)
		}
		col.Nullable = notNull == 0 && pk == 0
		col.IsKey = pk > 0
		col.Type = mapDeclaredType(declType)
		schema.Columns = append(schema.Columns, col)
		if pk > 0 {
			keys = append(keys, keyColumn{name: col.Name, pos: pk})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.TransientIO("iterate column rows", err)
	}

	sort.Slice(keys, func(i, j int) bool { return keys[i].pos < keys[j].pos })
	for _, k := range keys {
		schema.KeyColumns = append(schema.KeyColumns, k.name)
	}

	return schema, nil
}

// resolveTable finds the actual table matching the requested name,
// treated case-insensitively.
func (c *SchemaConn) resolveTable(ctx context.Context, table string) (string, error) {
	const query = `
		SELECT name FROM sqlite_master
		WHERE type = 'table'
		  AND name NOT LIKE 'sqlite_%'
		  AND lower(name) = lower(?)
	`

	rows, err := c.db.QueryContext(ctx, query, table)
	if err != nil {
		return "", apperrors.TransientIO("resolve table "+table, err)
	}
	defer rows.Close()

	var matches []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return "", apperrors.TransientIO("scan table row", err)
		}
		matches = append(matches, name)
	}
	if err := rows.Err(); err != nil {
		return "", apperrors.TransientIO("iterate table rows", err)
	}

	switch len(matches) {
	case 0:
		return "", apperrors.Configurationf("no table was found that matches %q", table)
	case 1:
		return matches[0], nil
	default:
		return "", apperrors.Configurationf("duplicate tables that match %q", table)
	}
}

// mapDeclaredType translates a declared column type into the canonical
// vocabulary using SQLite's affinity rules, with a few exact names mapped
// more precisely first.
func mapDeclaredType(declType string) datasource.SQLType {
	t := strings.ToUpper(strings.TrimSpace(declType))
	if i := strings.IndexByte(t, '('); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}

	switch t {
	case "BOOLEAN", "BOOL":
		return datasource.SQLBoolean
	case "TINYINT":
		return datasource.SQLTinyInt
	case "SMALLINT":
		return datasource.SQLSmallInt
	case "INT", "INTEGER", "MEDIUMINT":
		return datasource.SQLInteger
	case "BIGINT", "UNSIGNED BIG INT", "INT8":
		return datasource.SQLBigInt
	case "DATE":
		return datasource.SQLDate
	case "TIME":
		return datasource.SQLTime
	case "DATETIME", "TIMESTAMP":
		return datasource.SQLTimestamp
	}

	// Affinity fallback.
	switch {
	case strings.Contains(t, "INT"):
		return datasource.SQLBigInt
	case strings.Contains(t, "CHAR"), strings.Contains(t, "CLOB"), strings.Contains(t, "TEXT"):
		return datasource.SQLVarchar
	case strings.Contains(t, "BLOB"), t == "":
		return datasource.SQLBlob
	case strings.Contains(t, "REAL"), strings.Contains(t, "FLOA"), strings.Contains(t, "DOUB"):
		return datasource.SQLDouble
	case strings.Contains(t, "DEC"), strings.Contains(t, "NUM"):
		return datasource.SQLNumeric
	default:
		return datasource.SQLOther
	}
}

// Ensure interfaces are implemented at compile time.
var (
	_ datasource.PoolConnector = (*Pool)(nil)
	_ datasource.SchemaConn    = (*SchemaConn)(nil)
)
