package pdx

import (
	"context"
	"fmt"
	"strings"
)

// TypeRegistry is the cluster-shared store of type definitions.
//
// DefineType is the single mutation point and must be atomic and
// idempotent at its boundary: concurrent definition of structurally equal
// types under the same class name yields one definition, never two.
type TypeRegistry interface {
	// TypesByClassName returns every definition registered under the class
	// name. An empty result is normal for a class the cluster has not seen.
	TypesByClassName(ctx context.Context, className string) ([]*Type, error)

	// FieldsMatchingName returns the distinct fields across all definitions
	// of className whose name equals fieldName ignoring case. More than one
	// result means the match is ambiguous; deciding what to do about that
	// belongs to the caller.
	FieldsMatchingName(ctx context.Context, className, fieldName string) ([]Field, error)

	// DefineType registers a definition, returning the stored (possibly
	// pre-existing structurally equal) one.
	DefineType(ctx context.Context, t *Type) (*Type, error)
}

// MatchFields filters fields of the given types by case-insensitive name,
// de-duplicating identical (name, type) pairs across versions. Shared by
// registry implementations.
func MatchFields(types []*Type, fieldName string) []Field {
	var matches []Field
	seen := make(map[Field]struct{})
	for _, t := range types {
		for _, f := range t.Fields {
			if !strings.EqualFold(f.Name, fieldName) {
				continue
			}
			if _, dup := seen[f]; dup {
				continue
			}
			seen[f] = struct{}{}
			matches = append(matches, f)
		}
	}
	return matches
}

// TypeBuilder accumulates fields for a not-yet-registered definition.
// Nothing is visible to other readers of the registry until Create, which
// goes through DefineType exactly once.
type TypeBuilder struct {
	registry TypeRegistry
	t        *Type
	created  bool
}

// NewTypeBuilder opens a builder for the given class name.
func NewTypeBuilder(registry TypeRegistry, className string) *TypeBuilder {
	return &TypeBuilder{
		registry: registry,
		t:        &Type{Name: className},
	}
}

// AddField appends a field to the pending definition.
func (b *TypeBuilder) AddField(name string, fieldType FieldType) error {
	if b.created {
		return fmt.Errorf("type %q already created", b.t.Name)
	}
	if _, exists := b.t.FieldByName(name); exists {
		return fmt.Errorf("duplicate field %q on type %q", name, b.t.Name)
	}
	b.t.Fields = append(b.t.Fields, Field{Name: name, Type: fieldType})
	return nil
}

// Create registers the pending definition. It may be called at most once.
func (b *TypeBuilder) Create(ctx context.Context) (*Type, error) {
	if b.created {
		return nil, fmt.Errorf("type %q already created", b.t.Name)
	}
	created, err := b.registry.DefineType(ctx, b.t)
	if err != nil {
		return nil, err
	}
	b.created = true
	return created, nil
}
