package reconcile

import (
	"fmt"

	"github.com/lkn2993/geode/pkg/adapters/datasource"
	"github.com/lkn2993/geode/pkg/apperrors"
	"github.com/lkn2993/geode/pkg/models"
	"github.com/lkn2993/geode/pkg/pdx"
)

// FieldTypeInferencer computes field type and name correspondence between
// table columns and registry fields. It is stateless; the reconciler
// threads the registry fields and column snapshots through it.
type FieldTypeInferencer struct{}

// ComputeFieldType maps a column's (sqlType, nullable) pair to the field
// representation a fresh field gets. Nullable columns of scalar SQL types
// get the nullable Object wrapper. Unsupported SQL types fail closed
// rather than guessing a representation.
func (FieldTypeInferencer) ComputeFieldType(nullable bool, sqlType datasource.SQLType) (pdx.FieldType, error) {
	base, err := baseFieldType(sqlType)
	if err != nil {
		return 0, err
	}
	if nullable && !base.Nullable() {
		return pdx.Object, nil
	}
	return base, nil
}

// FreshInference produces the mapping for a column with no existing
// registry counterpart: the logical field name defaults to the column
// name and the type comes from the fixed mapping table.
func (inf FieldTypeInferencer) FreshInference(col datasource.ColumnDescriptor) (models.FieldMapping, error) {
	fieldType, err := inf.ComputeFieldType(col.Nullable, col.Type)
	if err != nil {
		return models.FieldMapping{}, err
	}
	return models.FieldMapping{
		PdxName:      col.Name,
		PdxType:      fieldType.String(),
		JdbcName:     col.Name,
		JdbcType:     col.Type.String(),
		JdbcNullable: col.Nullable,
	}, nil
}

// MatchByName reconciles a column against the existing registry fields
// whose names match it case-insensitively (as pre-filtered by the
// registry). Zero candidates is a NoMatch (ok=false); more than one is an
// ambiguity the operator must resolve, never auto-resolved.
func (inf FieldTypeInferencer) MatchByName(candidates []pdx.Field, col datasource.ColumnDescriptor) (models.FieldMapping, bool, error) {
	switch len(candidates) {
	case 0:
		return models.FieldMapping{}, false, nil
	case 1:
		// fall through
	default:
		return models.FieldMapping{}, false, apperrors.Configurationf(
			"could not determine what pdx field to use for column %q: %d existing fields match that name ignoring case",
			col.Name, len(candidates))
	}

	existing := candidates[0]
	fieldType, err := inf.reconcileFieldType(existing, col)
	if err != nil {
		return models.FieldMapping{}, false, err
	}

	return models.FieldMapping{
		PdxName:      existing.Name,
		PdxType:      fieldType.String(),
		JdbcName:     col.Name,
		JdbcType:     col.Type.String(),
		JdbcNullable: col.Nullable,
	}, true, nil
}

// reconcileFieldType picks the representation for a column bound to an
// existing field: the stored representation when losslessly compatible,
// else the narrowest representation assignable from both. Integral
// widening is tried before the textual fallback, and the nullable Object
// wrapper applies only when the column is nullable and the stored field
// already is. Anything else is a configuration defect: silently retyping
// the field would corrupt data already persisted under it.
func (inf FieldTypeInferencer) reconcileFieldType(existing pdx.Field, col datasource.ColumnDescriptor) (pdx.FieldType, error) {
	base, err := baseFieldType(col.Type)
	if err != nil {
		return 0, err
	}

	var candidate pdx.FieldType
	switch {
	case existing.Type == pdx.Object:
		// Object holds anything, including null.
		candidate = pdx.Object
	case base == existing.Type:
		candidate = existing.Type
	case base.Integral() && existing.Type.Integral():
		candidate = widerIntegral(base, existing.Type)
	case base.Numeric() && existing.Type.Numeric():
		candidate = pdx.Double
	case existing.Type == pdx.String && base.Numeric(),
		base == pdx.String && existing.Type.Numeric():
		// Textual fallback: string is the narrowest representation
		// assignable from both sides. Tried after numeric widening.
		candidate = pdx.String
	default:
		return 0, apperrors.Configurationf(
			"column %q of type %s is incompatible with existing field %q of type %s",
			col.Name, col.Type, existing.Name, existing.Type)
	}

	if col.Nullable && !candidate.Nullable() {
		if !existing.Type.Nullable() {
			return 0, apperrors.Configurationf(
				"nullable column %q cannot map onto existing non-nullable field %q of type %s",
				col.Name, existing.Name, existing.Type)
		}
		candidate = pdx.Object
	}

	return candidate, nil
}

// baseFieldType is the fixed, total mapping from SQL types to field
// representations, ignoring nullability.
func baseFieldType(sqlType datasource.SQLType) (pdx.FieldType, error) {
	switch sqlType {
	case datasource.SQLBoolean, datasource.SQLBit:
		return pdx.Boolean, nil
	case datasource.SQLTinyInt:
		return pdx.Byte, nil
	case datasource.SQLSmallInt:
		return pdx.Short, nil
	case datasource.SQLInteger:
		return pdx.Int, nil
	case datasource.SQLBigInt:
		return pdx.Long, nil
	case datasource.SQLReal:
		return pdx.Float, nil
	case datasource.SQLFloat, datasource.SQLDouble, datasource.SQLNumeric, datasource.SQLDecimal:
		return pdx.Double, nil
	case datasource.SQLChar, datasource.SQLVarchar, datasource.SQLLongVarchar, datasource.SQLClob:
		return pdx.String, nil
	case datasource.SQLDate, datasource.SQLTime, datasource.SQLTimestamp:
		return pdx.Date, nil
	case datasource.SQLBinary, datasource.SQLVarBinary, datasource.SQLLongVarBinary, datasource.SQLBlob:
		return pdx.ByteArray, nil
	default:
		return 0, fmt.Errorf("%w: %s", apperrors.ErrUnsupportedColumnType, sqlType)
	}
}

var integralWidth = map[pdx.FieldType]int{
	pdx.Byte:  1,
	pdx.Short: 2,
	pdx.Int:   3,
	pdx.Long:  4,
}

func widerIntegral(a, b pdx.FieldType) pdx.FieldType {
	if integralWidth[a] >= integralWidth[b] {
		return a
	}
	return b
}
