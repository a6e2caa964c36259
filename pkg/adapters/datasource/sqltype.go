package datasource

import (
	"fmt"
	"strings"
)

// SQLType is the canonical, driver-independent column type vocabulary.
// Adapters translate native type names into this set; everything
// downstream (field type inference in particular) keys off it.
type SQLType string

const (
	SQLBoolean       SQLType = "BOOLEAN"
	SQLBit           SQLType = "BIT"
	SQLTinyInt       SQLType = "TINYINT"
	SQLSmallInt      SQLType = "SMALLINT"
	SQLInteger       SQLType = "INTEGER"
	SQLBigInt        SQLType = "BIGINT"
	SQLReal          SQLType = "REAL"
	SQLFloat         SQLType = "FLOAT"
	SQLDouble        SQLType = "DOUBLE"
	SQLNumeric       SQLType = "NUMERIC"
	SQLDecimal       SQLType = "DECIMAL"
	SQLChar          SQLType = "CHAR"
	SQLVarchar       SQLType = "VARCHAR"
	SQLLongVarchar   SQLType = "LONGVARCHAR"
	SQLDate          SQLType = "DATE"
	SQLTime          SQLType = "TIME"
	SQLTimestamp     SQLType = "TIMESTAMP"
	SQLBinary        SQLType = "BINARY"
	SQLVarBinary     SQLType = "VARBINARY"
	SQLLongVarBinary SQLType = "LONGVARBINARY"
	SQLBlob          SQLType = "BLOB"
	SQLClob          SQLType = "CLOB"
	// SQLOther marks a native type with no canonical equivalent. Field
	// type inference fails closed on it.
	SQLOther SQLType = "OTHER"
)

var knownSQLTypes = map[SQLType]struct{}{
	SQLBoolean: {}, SQLBit: {}, SQLTinyInt: {}, SQLSmallInt: {},
	SQLInteger: {}, SQLBigInt: {}, SQLReal: {}, SQLFloat: {},
	SQLDouble: {}, SQLNumeric: {}, SQLDecimal: {}, SQLChar: {},
	SQLVarchar: {}, SQLLongVarchar: {}, SQLDate: {}, SQLTime: {},
	SQLTimestamp: {}, SQLBinary: {}, SQLVarBinary: {},
	SQLLongVarBinary: {}, SQLBlob: {}, SQLClob: {}, SQLOther: {},
}

func (t SQLType) String() string { return string(t) }

// ParseSQLType converts a stored canonical name back to its SQLType.
func ParseSQLType(name string) (SQLType, error) {
	t := SQLType(strings.ToUpper(name))
	if _, ok := knownSQLTypes[t]; !ok {
		return "", fmt.Errorf("unknown sql type %q", name)
	}
	return t, nil
}
