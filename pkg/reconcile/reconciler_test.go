package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/lkn2993/geode/pkg/adapters/datasource"
	"github.com/lkn2993/geode/pkg/apperrors"
	"github.com/lkn2993/geode/pkg/models"
	"github.com/lkn2993/geode/pkg/pdx"
)

// fakeConn serves a canned table schema and records its release.
type fakeConn struct {
	schema *datasource.TableSchema
	err    error
	closed bool
}

func (c *fakeConn) DescribeTable(ctx context.Context, req datasource.TableRequest) (*datasource.TableSchema, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.schema, nil
}

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}

type fakeHandle struct {
	name       string
	conn       *fakeConn
	connectErr error
}

func (h *fakeHandle) Name() string { return h.name }

func (h *fakeHandle) Connect(ctx context.Context) (datasource.SchemaConn, error) {
	if h.connectErr != nil {
		return nil, h.connectErr
	}
	return h.conn, nil
}

type fakeResolver struct {
	handles map[string]*fakeHandle
}

func (r *fakeResolver) Resolve(ctx context.Context, name string) (datasource.Handle, error) {
	if h, ok := r.handles[name]; ok {
		return h, nil
	}
	return nil, fmt.Errorf("data source %q: %w", name, apperrors.ErrNotFound)
}

// fakeProbe returns a fixed result and can run a side effect first, the
// way the real probe populates the registry through serialization.
type fakeProbe struct {
	result  bool
	onProbe func(ctx context.Context)
}

func (p *fakeProbe) Probe(ctx context.Context, className string) bool {
	if p.onProbe != nil {
		p.onProbe(ctx)
	}
	return p.result
}

func personColumns() *datasource.TableSchema {
	return &datasource.TableSchema{
		TableName: "PEOPLE",
		Columns: []datasource.ColumnDescriptor{
			{Name: "NAME", Type: datasource.SQLVarchar, Nullable: true},
			{Name: "AGE", Type: datasource.SQLInteger, Nullable: false},
		},
		KeyColumns: []string{"id"},
	}
}

func personMapping() *models.RegionMapping {
	return &models.RegionMapping{
		RegionName:     "people",
		DataSourceName: "hr",
		TableName:      "PEOPLE",
		PdxName:        "x.Person",
	}
}

func newTestReconciler(schema *datasource.TableSchema, registry pdx.TypeRegistry, probe DomainClassProbe) (*SchemaReconciler, *fakeConn) {
	conn := &fakeConn{schema: schema}
	resolver := &fakeResolver{handles: map[string]*fakeHandle{
		"hr": {name: "hr", conn: conn},
	}}
	return NewSchemaReconciler(resolver, registry, probe, nil), conn
}

func TestReconcile_NewType(t *testing.T) {
	// Scenario: empty registry, no loadable class, so a fresh type is
	// opened, filled from the columns and committed once at the end.
	ctx := context.Background()
	registry := pdx.NewMemoryRegistry()
	r, conn := newTestReconciler(personColumns(), registry, &fakeProbe{result: false})

	result, err := r.Reconcile(ctx, personMapping())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.FieldMappings) != 2 {
		t.Fatalf("expected 2 field mappings, got %d", len(result.FieldMappings))
	}
	name := result.FieldMappings[0]
	if name.PdxName != "NAME" || name.PdxType != "STRING" || !name.JdbcNullable {
		t.Errorf("unexpected NAME mapping: %+v", name)
	}
	age := result.FieldMappings[1]
	if age.PdxName != "AGE" || age.PdxType != "INT" || age.JdbcNullable {
		t.Errorf("unexpected AGE mapping: %+v", age)
	}

	if len(result.InferredKeyColumns) != 1 || result.InferredKeyColumns[0] != "id" {
		t.Errorf("expected inferred key columns [id], got %v", result.InferredKeyColumns)
	}

	types, _ := registry.TypesByClassName(ctx, "x.Person")
	if len(types) != 1 {
		t.Fatalf("expected 1 committed type definition, got %d", len(types))
	}
	wantFields := []pdx.Field{
		{Name: "NAME", Type: pdx.String},
		{Name: "AGE", Type: pdx.Int},
	}
	for i, want := range wantFields {
		if types[0].Fields[i] != want {
			t.Errorf("field %d = %+v, want %+v", i, types[0].Fields[i], want)
		}
	}

	if !conn.closed {
		t.Error("connection must be released on success")
	}
}

func TestReconcile_ExplicitIDsSuppressKeyInference(t *testing.T) {
	ctx := context.Background()
	registry := pdx.NewMemoryRegistry()
	r, _ := newTestReconciler(personColumns(), registry, &fakeProbe{result: false})

	mapping := personMapping()
	mapping.IDs = "NAME"

	result, err := r.Reconcile(ctx, mapping)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.InferredKeyColumns) != 0 {
		t.Errorf("expected no inferred key columns, got %v", result.InferredKeyColumns)
	}
}

func TestReconcile_ExistingTypeMatchedCaseInsensitively(t *testing.T) {
	// Scenario: the registry already holds x.Person with field "name";
	// column "NAME" binds to it and no second definition is created.
	ctx := context.Background()
	registry := pdx.NewMemoryRegistry()
	if _, err := registry.DefineType(ctx, &pdx.Type{Name: "x.Person", Fields: []pdx.Field{
		{Name: "name", Type: pdx.String},
		{Name: "age", Type: pdx.Int},
	}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	r, _ := newTestReconciler(personColumns(), registry, &fakeProbe{result: false})

	result, err := r.Reconcile(ctx, personMapping())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := result.FieldMappings[0].PdxName; got != "name" {
		t.Errorf("expected existing field name reused, got %q", got)
	}

	types, _ := registry.TypesByClassName(ctx, "x.Person")
	if len(types) != 1 {
		t.Errorf("expected no new type definition, got %d", len(types))
	}
}

func TestReconcile_Idempotent(t *testing.T) {
	ctx := context.Background()
	registry := pdx.NewMemoryRegistry()

	r1, _ := newTestReconciler(personColumns(), registry, &fakeProbe{result: false})
	if _, err := r1.Reconcile(ctx, personMapping()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	r2, _ := newTestReconciler(personColumns(), registry, &fakeProbe{result: false})
	if _, err := r2.Reconcile(ctx, personMapping()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	types, _ := registry.TypesByClassName(ctx, "x.Person")
	if len(types) != 1 {
		t.Errorf("reconciling twice must not create a second definition, got %d", len(types))
	}
}

func TestReconcile_UnmatchedColumnStaysUnbound(t *testing.T) {
	// Scenario: column EMAIL has no counterpart in the existing type;
	// a mapping is still produced and the registry is left untouched.
	ctx := context.Background()
	registry := pdx.NewMemoryRegistry()
	registry.DefineType(ctx, &pdx.Type{Name: "x.Person", Fields: []pdx.Field{
		{Name: "name", Type: pdx.String},
	}})

	schema := &datasource.TableSchema{
		TableName: "PEOPLE",
		Columns: []datasource.ColumnDescriptor{
			{Name: "NAME", Type: datasource.SQLVarchar, Nullable: true},
			{Name: "EMAIL", Type: datasource.SQLVarchar, Nullable: true},
		},
	}
	r, _ := newTestReconciler(schema, registry, &fakeProbe{result: false})

	result, err := r.Reconcile(ctx, personMapping())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.FieldMappings) != 2 {
		t.Fatalf("expected 2 field mappings, got %d", len(result.FieldMappings))
	}
	email := result.FieldMappings[1]
	if email.JdbcName != "EMAIL" {
		t.Errorf("expected EMAIL mapping, got %+v", email)
	}

	types, _ := registry.TypesByClassName(ctx, "x.Person")
	if len(types) != 1 || len(types[0].Fields) != 1 {
		t.Errorf("unmatched column must not modify the registry, got %+v", types)
	}
}

func TestReconcile_AmbiguousMatchFailsWithoutCommit(t *testing.T) {
	ctx := context.Background()
	registry := pdx.NewMemoryRegistry()
	registry.DefineType(ctx, &pdx.Type{Name: "x.Person", Fields: []pdx.Field{
		{Name: "name", Type: pdx.String},
		{Name: "Name", Type: pdx.String},
	}})

	r, conn := newTestReconciler(personColumns(), registry, &fakeProbe{result: false})

	_, err := r.Reconcile(ctx, personMapping())
	if !errors.Is(err, apperrors.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}

	types, _ := registry.TypesByClassName(ctx, "x.Person")
	if len(types) != 1 {
		t.Errorf("no definition may be committed on failure, got %d", len(types))
	}
	if !conn.closed {
		t.Error("connection must be released on failure")
	}
}

func TestReconcile_ProbePopulatesRegistry(t *testing.T) {
	// A successful probe registers the domain type's definition as a
	// side effect; the reconciler must re-read the registry and adopt
	// it instead of opening a second definition.
	ctx := context.Background()
	registry := pdx.NewMemoryRegistry()

	probe := &fakeProbe{
		result: true,
		onProbe: func(ctx context.Context) {
			registry.DefineType(ctx, &pdx.Type{Name: "x.Person", Fields: []pdx.Field{
				{Name: "name", Type: pdx.String},
				{Name: "age", Type: pdx.Int},
			}})
		},
	}

	r, _ := newTestReconciler(personColumns(), registry, probe)

	result, err := r.Reconcile(ctx, personMapping())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := result.FieldMappings[0].PdxName; got != "name" {
		t.Errorf("expected probe-populated field adopted, got %q", got)
	}

	types, _ := registry.TypesByClassName(ctx, "x.Person")
	if len(types) != 1 {
		t.Errorf("expected the probe-populated definition only, got %d", len(types))
	}
}

func TestReconcile_RealProbeNeverThrows(t *testing.T) {
	// With the real probe and no registered domain class, reconciliation
	// proceeds in new-type mode.
	ctx := context.Background()
	registry := pdx.NewMemoryRegistry()
	probe := NewSerializerProbe(pdx.NewSerializer(registry), nil)

	r, _ := newTestReconciler(personColumns(), registry, probe)

	if _, err := r.Reconcile(ctx, personMapping()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	types, _ := registry.TypesByClassName(ctx, "x.Person")
	if len(types) != 1 {
		t.Errorf("expected new type definition, got %d", len(types))
	}
}

func TestReconcile_MissingDataSource(t *testing.T) {
	registry := pdx.NewMemoryRegistry()
	resolver := &fakeResolver{handles: map[string]*fakeHandle{}}
	r := NewSchemaReconciler(resolver, registry, &fakeProbe{result: false}, nil)

	_, err := r.Reconcile(context.Background(), personMapping())
	if !errors.Is(err, apperrors.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if got := err.Error(); !strings.Contains(got, "create data-source") {
		t.Errorf("expected remediation hint in message, got %q", got)
	}
}

func TestReconcile_TransientReadFault(t *testing.T) {
	registry := pdx.NewMemoryRegistry()
	conn := &fakeConn{err: apperrors.TransientIO("read table", errors.New("connection reset"))}
	resolver := &fakeResolver{handles: map[string]*fakeHandle{
		"hr": {name: "hr", conn: conn},
	}}
	r := NewSchemaReconciler(resolver, registry, &fakeProbe{result: false}, nil)

	_, err := r.Reconcile(context.Background(), personMapping())
	if !errors.Is(err, apperrors.ErrTransientIO) {
		t.Fatalf("expected transient i/o error, got %v", err)
	}
	if !conn.closed {
		t.Error("connection must be released on failure")
	}
}

func TestReconcile_EmptyExistingTypeIsInvariantViolation(t *testing.T) {
	ctx := context.Background()
	registry := pdx.NewMemoryRegistry()
	registry.DefineType(ctx, &pdx.Type{Name: "x.Person"})

	r, _ := newTestReconciler(personColumns(), registry, &fakeProbe{result: false})

	_, err := r.Reconcile(ctx, personMapping())
	if !errors.Is(err, apperrors.ErrInvariant) {
		t.Fatalf("expected invariant violation, got %v", err)
	}
}

func TestReconcile_UnsupportedColumnTypeFailsClosed(t *testing.T) {
	ctx := context.Background()
	registry := pdx.NewMemoryRegistry()

	schema := &datasource.TableSchema{
		TableName: "PEOPLE",
		Columns: []datasource.ColumnDescriptor{
			{Name: "SHAPE", Type: datasource.SQLOther},
		},
	}
	r, _ := newTestReconciler(schema, registry, &fakeProbe{result: false})

	_, err := r.Reconcile(ctx, personMapping())
	if !errors.Is(err, apperrors.ErrUnsupportedColumnType) {
		t.Fatalf("expected unsupported column type error, got %v", err)
	}

	types, _ := registry.TypesByClassName(ctx, "x.Person")
	if len(types) != 0 {
		t.Errorf("no definition may be committed on failure, got %d", len(types))
	}
}
