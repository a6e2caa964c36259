package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lkn2993/geode/pkg/adapters/datasource"
	"github.com/lkn2993/geode/pkg/apperrors"
)

func openTestConn(t *testing.T, ddl ...string) *SchemaConn {
	t.Helper()

	pool, err := OpenPool(context.Background(), map[string]any{"path": ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pool.Close() })

	for _, stmt := range ddl {
		_, err := pool.db.ExecContext(context.Background(), stmt)
		require.NoError(t, err)
	}

	conn, err := NewSchemaConn(pool, nil)
	require.NoError(t, err)
	return conn
}

func TestDescribeTable(t *testing.T) {
	conn := openTestConn(t, `
		CREATE TABLE Employees (
			emp_no INTEGER PRIMARY KEY,
			name VARCHAR(64) NOT NULL,
			salary DOUBLE,
			hired DATE,
			photo BLOB
		)`)

	schema, err := conn.DescribeTable(context.Background(), datasource.TableRequest{Table: "employees"})
	require.NoError(t, err)

	assert.Equal(t, "Employees", schema.TableName, "resolved name keeps the declared case")
	assert.Equal(t, []string{"emp_no"}, schema.KeyColumns)
	require.Len(t, schema.Columns, 5)

	byName := make(map[string]datasource.ColumnDescriptor)
	for _, col := range schema.Columns {
		byName[col.Name] = col
	}

	assert.Equal(t, datasource.SQLInteger, byName["emp_no"].Type)
	assert.True(t, byName["emp_no"].IsKey)
	assert.False(t, byName["emp_no"].Nullable)

	assert.Equal(t, datasource.SQLVarchar, byName["name"].Type)
	assert.False(t, byName["name"].Nullable)

	assert.Equal(t, datasource.SQLDouble, byName["salary"].Type)
	assert.True(t, byName["salary"].Nullable)

	assert.Equal(t, datasource.SQLDate, byName["hired"].Type)
	assert.Equal(t, datasource.SQLBlob, byName["photo"].Type)
}

func TestDescribeTable_CompositeKeyOrder(t *testing.T) {
	conn := openTestConn(t, `
		CREATE TABLE Orders (
			item_no INTEGER,
			order_no INTEGER,
			qty INTEGER,
			PRIMARY KEY (order_no, item_no)
		)`)

	schema, err := conn.DescribeTable(context.Background(), datasource.TableRequest{Table: "ORDERS"})
	require.NoError(t, err)
	assert.Equal(t, []string{"order_no", "item_no"}, schema.KeyColumns,
		"key columns follow primary key position, not declaration order")
}

func TestDescribeTable_MissingTable(t *testing.T) {
	conn := openTestConn(t)

	_, err := conn.DescribeTable(context.Background(), datasource.TableRequest{Table: "ghost"})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrConfiguration)
	assert.Contains(t, err.Error(), `no table was found that matches "ghost"`)
}

func TestMapDeclaredType(t *testing.T) {
	tests := []struct {
		decl string
		want datasource.SQLType
	}{
		{"INTEGER", datasource.SQLInteger},
		{"int", datasource.SQLInteger},
		{"BIGINT", datasource.SQLBigInt},
		{"UNSIGNED BIG INT", datasource.SQLBigInt},
		{"VARCHAR(255)", datasource.SQLVarchar},
		{"NVARCHAR(100)", datasource.SQLVarchar},
		{"TEXT", datasource.SQLVarchar},
		{"BOOLEAN", datasource.SQLBoolean},
		{"DATETIME", datasource.SQLTimestamp},
		{"REAL", datasource.SQLDouble},
		{"DECIMAL(10,2)", datasource.SQLNumeric},
		{"BLOB", datasource.SQLBlob},
		{"", datasource.SQLBlob},
		{"GEOMETRY", datasource.SQLOther},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, mapDeclaredType(tt.decl), "declared type %q", tt.decl)
	}
}
