package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/microsoft/go-mssqldb" // registers the sqlserver driver
	"go.uber.org/zap"

	"github.com/lkn2993/geode/pkg/adapters/datasource"
	"github.com/lkn2993/geode/pkg/apperrors"
)

// Pool wraps *sql.DB to implement datasource.PoolConnector.
type Pool struct {
	db *sql.DB
}

// OpenPool dials a SQL Server connection pool from a descriptor config map.
func OpenPool(_ context.Context, config map[string]any) (*Pool, error) {
	cfg, err := FromMap(config)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlserver", buildConnectionString(cfg))
	if err != nil {
		return nil, fmt.Errorf("connect to sqlserver: %w", err)
	}
	return &Pool{db: db}, nil
}

func (p *Pool) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

func (p *Pool) Close() error { return p.db.Close() }

func (p *Pool) Type() string { return "sqlserver" }

// SchemaConn provides SQL Server schema introspection over a managed pool.
type SchemaConn struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSchemaConn wraps a managed pool in a scoped schema connection.
func NewSchemaConn(pool datasource.PoolConnector, logger *zap.Logger) (*SchemaConn, error) {
	p, ok := pool.(*Pool)
	if !ok {
		return nil, fmt.Errorf("expected sqlserver pool, got %T", pool)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SchemaConn{db: p.db, logger: logger}, nil
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
	SET NOCOUNT ON;
	SELECT
	    c.name AS column_name,
	    tp.name AS data_type,
	    CASE WHEN c.is_nullable = 1 THEN 1 ELSE 0 END AS is_nullable,
	    CASE WHEN pk.column_id IS NOT NULL THEN 1 ELSE 0 END AS is_key
	FROM sys.columns c
	INNER JOIN sys.types tp ON c.user_type_id = tp.user_type_id
	LEFT JOIN (
	    SELECT ic.object_id, ic.column_id
	    FROM sys.index_columns ic
	    INNER JOIN sys.indexes i ON ic.object_id = i.object_id AND ic.index_id = i.index_id
	    WHERE i.is_primary_key = 1
	) pk ON c.object_id = pk.object_id AND c.column_id = pk.column_id
	WHERE c.object_id = OBJECT_ID(QUOTENAME(@schema) + N'.' + QUOTENAME(@table))
	ORDER BY c.column_id
	`

	rows, err := c.db.QueryContext(ctx, columnQuery,
		sql.Named("schema", schemaName),
		sql.Named("table", tableName),
	)
	if err != nil {
		return nil, apperrors.TransientIO("query columns of "+tableName, err)
	}
	defer rows.Close()

	schema := &datasource.TableSchema{TableName: tableName}
	for rows.Next() {
		var (
			col        datasource.ColumnDescriptor
			dataType   string
			isNullable int
			isKey      int
		)
		if err := rows.Scan(&col.Name, &dataType, &isNullable, &isKey); err != nil {
			return nil, apperrors.TransientIO("scan column row", err)
		}
		col.Nullable = isNullable == 1
		col.IsKey = isKey == 1
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

// resolveTable finds the actual table matching the requested name,
// treated case-insensitively.
func (c *SchemaConn) resolveTable(ctx context.Context, req datasource.TableRequest) (schemaName, tableName string, err error) {
	const query = `
	SET NOCOUNT ON;
	SELECT SCHEMA_NAME(t.schema_id), t.name
	FROM sys.tables t
	WHERE t.is_ms_shipped = 0
	  AND LOWER(t.name) = LOWER(@table)
	  AND (@schema = N'' OR SCHEMA_NAME(t.schema_id) = @schema)
	`

	rows, err := c.db.QueryContext(ctx, query,
		sql.Named("table", req.Table),
		sql.Named("schema", req.Schema),
	)
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

// mapDataType translates sys.types names into the canonical vocabulary.
func mapDataType(dataType string) datasource.SQLType {
	switch strings.ToLower(dataType) {
	case "bit":
		return datasource.SQLBit
	case "tinyint":
		return datasource.SQLTinyInt
	case "smallint":
		return datasource.SQLSmallInt
	case "int":
		return datasource.SQLInteger
	case "bigint":
		return datasource.SQLBigInt
	case "real":
		return datasource.SQLReal
	case "float":
		return datasource.SQLFloat
	case "numeric":
		return datasource.SQLNumeric
	case "decimal", "money", "smallmoney":
		return datasource.SQLDecimal
	case "char", "nchar":
		return datasource.SQLChar
	case "varchar", "nvarchar":
		return datasource.SQLVarchar
	case "text", "ntext":
		return datasource.SQLLongVarchar
	case "date":
		return datasource.SQLDate
	case "time":
		return datasource.SQLTime
	case "datetime", "datetime2", "smalldatetime", "datetimeoffset":
		return datasource.SQLTimestamp
	case "binary":
		return datasource.SQLBinary
	case "varbinary":
		return datasource.SQLVarBinary
	case "image":
		return datasource.SQLLongVarBinary
	default:
		return datasource.SQLOther
	}
}

// Ensure interfaces are implemented at compile time.
var (
	_ datasource.PoolConnector = (*Pool)(nil)
	_ datasource.SchemaConn    = (*SchemaConn)(nil)
)
