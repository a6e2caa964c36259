// Package reconcile implements the schema reconciliation engine: binding
// a relational table's column schema to a logical type definition in the
// cluster-wide registry, inferring cache-entry identity from the table's
// primary key when the operator supplied none, and deciding whether to
// extend an existing type definition or open a new one. A reconciliation
// pass is the precondition check run before a region mapping is accepted.
package reconcile

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/lkn2993/geode/pkg/adapters/datasource"
	"github.com/lkn2993/geode/pkg/apperrors"
	"github.com/lkn2993/geode/pkg/models"
	"github.com/lkn2993/geode/pkg/pdx"
)

// SchemaReconciler drives one reconciliation pass end to end.
type SchemaReconciler struct {
	resolver   datasource.Resolver
	registry   pdx.TypeRegistry
	probe      DomainClassProbe
	inferencer FieldTypeInferencer
	logger     *zap.Logger
}

// NewSchemaReconciler creates a reconciler with its collaborators.
// If logger is nil, a no-op logger is used.
func NewSchemaReconciler(
	resolver datasource.Resolver,
	registry pdx.TypeRegistry,
	probe DomainClassProbe,
	logger *zap.Logger,
) *SchemaReconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SchemaReconciler{
		resolver: resolver,
		registry: registry,
		probe:    probe,
		logger:   logger,
	}
}

// typeMode is the existing-vs-new duality threaded through the per-column
// loop. Exactly one of the two variants is active for a pass.
type typeMode interface{ isTypeMode() }

// existingMode binds columns against the fields of already-registered
// definitions for the class name.
type existingMode struct {
	className string
}

// newMode accumulates freshly inferred fields on an uncommitted builder.
type newMode struct {
	builder *pdx.TypeBuilder
}

func (existingMode) isTypeMode() {}
func (newMode) isTypeMode()      {}

// Reconcile runs one pass against one snapshot of the table and registry.
// It returns a configuration error when the data source is missing, a
// field match is ambiguous, or a column type is unsupported; transient
// I/O faults reading the table surface as such for the caller's retry
// policy.
func (r *SchemaReconciler) Reconcile(ctx context.Context, mapping *models.RegionMapping) (*models.ReconciliationResult, error) {
	handle, err := r.resolver.Resolve(ctx, mapping.DataSourceName)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Configurationf(
				"data source named %q not found; create it with 'create data-source --name=%s'",
				mapping.DataSourceName, mapping.DataSourceName)
		}
		return nil, err
	}

	conn, err := handle.Connect(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	// The resolved table name may differ from the caller-supplied one;
	// the caller's name is provisional.
	schema, err := conn.DescribeTable(ctx, datasource.TableRequest{Table: mapping.EffectiveTableName()})
	if err != nil {
		return nil, err
	}

	className := mapping.EffectivePdxName()
	mode, err := r.determineMode(ctx, className, len(schema.Columns))
	if err != nil {
		return nil, err
	}

	result := &models.ReconciliationResult{}
	for _, col := range schema.Columns {
		fieldMapping, err := r.mapColumn(ctx, mode, col)
		if err != nil {
			return nil, err
		}
		result.FieldMappings = append(result.FieldMappings, fieldMapping)
	}

	if !mapping.SpecifiesIDs() {
		result.InferredKeyColumns = append(result.InferredKeyColumns, schema.KeyColumns...)
	}

	// Commit only now, after all fields are resolved, so concurrent
	// readers of the registry never observe a partial type.
	if m, ok := mode.(newMode); ok {
		created, err := m.builder.Create(ctx)
		if err != nil {
			return nil, err
		}
		r.logger.Info("registered new type definition",
			zap.String("class", created.Name),
			zap.Int("fields", len(created.Fields)),
		)
	}

	r.logger.Debug("reconciled table schema",
		zap.String("table", schema.TableName),
		zap.String("class", className),
		zap.Int("columns", len(schema.Columns)),
		zap.Strings("inferred_keys", result.InferredKeyColumns),
	)

	return result, nil
}

// determineMode decides whether the pass extends existing definitions or
// opens a new one. When the registry has no definitions, a successful
// domain class probe is expected to have populated it as a side effect,
// so the registry is re-read instead of trusting the stale empty result.
func (r *SchemaReconciler) determineMode(ctx context.Context, className string, columnCount int) (typeMode, error) {
	types, err := r.registry.TypesByClassName(ctx, className)
	if err != nil {
		return nil, err
	}

	if len(types) == 0 && r.probe.Probe(ctx, className) {
		types, err = r.registry.TypesByClassName(ctx, className)
		if err != nil {
			return nil, err
		}
	}

	if len(types) == 0 {
		return newMode{builder: pdx.NewTypeBuilder(r.registry, className)}, nil
	}

	fieldCount := 0
	for _, t := range types {
		fieldCount += len(t.Fields)
	}
	if fieldCount == 0 && columnCount > 0 {
		return nil, apperrors.Invariantf(
			"registered type %q has no fields while table has %d columns", className, columnCount)
	}

	return existingMode{className: className}, nil
}

// mapColumn produces the field mapping for one column under the active
// mode. In existing mode, a column with no registry counterpart falls
// through to fresh inference without binding the field to the registry;
// the mapping is surfaced for operator review. In new mode every field
// joins the open builder.
func (r *SchemaReconciler) mapColumn(ctx context.Context, mode typeMode, col datasource.ColumnDescriptor) (models.FieldMapping, error) {
	switch m := mode.(type) {
	case existingMode:
		candidates, err := r.registry.FieldsMatchingName(ctx, m.className, col.Name)
		if err != nil {
			return models.FieldMapping{}, err
		}
		fieldMapping, matched, err := r.inferencer.MatchByName(candidates, col)
		if err != nil {
			return models.FieldMapping{}, err
		}
		if matched {
			return fieldMapping, nil
		}
		return r.inferencer.FreshInference(col)

	case newMode:
		fieldMapping, err := r.inferencer.FreshInference(col)
		if err != nil {
			return models.FieldMapping{}, err
		}
		fieldType, err := pdx.ParseFieldType(fieldMapping.PdxType)
		if err != nil {
			return models.FieldMapping{}, apperrors.Invariantf("inferred unparsable field type %q", fieldMapping.PdxType)
		}
		if err := m.builder.AddField(fieldMapping.PdxName, fieldType); err != nil {
			return models.FieldMapping{}, apperrors.Configurationf("column %q: %v", col.Name, err)
		}
		return fieldMapping, nil

	default:
		return models.FieldMapping{}, apperrors.Invariantf("unknown type mode %T", mode)
	}
}
