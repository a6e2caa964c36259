package pdx

import (
	"context"
	"sync"
)

// MemoryRegistry is an in-process TypeRegistry. It backs single-node
// deployments and tests; clustered deployments use the postgres-backed
// repository implementation.
type MemoryRegistry struct {
	mu     sync.RWMutex
	nextID int
	types  map[string][]*Type // keyed by class name
}

// NewMemoryRegistry creates an empty in-process registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		nextID: 1,
		types:  make(map[string][]*Type),
	}
}

// TypesByClassName returns copies of every definition for the class name.
func (r *MemoryRegistry) TypesByClassName(_ context.Context, className string) ([]*Type, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored := r.types[className]
	result := make([]*Type, 0, len(stored))
	for _, t := range stored {
		result = append(result, t.clone())
	}
	return result, nil
}

// FieldsMatchingName returns distinct case-insensitive field matches.
func (r *MemoryRegistry) FieldsMatchingName(ctx context.Context, className, fieldName string) ([]Field, error) {
	types, err := r.TypesByClassName(ctx, className)
	if err != nil {
		return nil, err
	}
	return MatchFields(types, fieldName), nil
}

// DefineType registers a definition. Defining a structurally equal type
// twice returns the stored one, so racing reconciliations converge on a
// single definition.
func (r *MemoryRegistry) DefineType(_ context.Context, t *Type) (*Type, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.types[t.Name] {
		if existing.StructurallyEqual(t) {
			return existing.clone(), nil
		}
	}

	stored := t.clone()
	stored.ID = r.nextID
	r.nextID++
	r.types[t.Name] = append(r.types[t.Name], stored)
	return stored.clone(), nil
}

// Ensure MemoryRegistry implements TypeRegistry at compile time.
var _ TypeRegistry = (*MemoryRegistry)(nil)
