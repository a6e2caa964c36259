// Package pdx implements the cluster-shared, self-describing object type
// registry. A Type records the logical schema of cached values under a
// class name independent of any concrete Go type. Types are append-only:
// fields are added over the life of a cluster, never removed or retyped.
package pdx

// Field is one named slot in a type definition.
type Field struct {
	Name string    `json:"name"`
	Type FieldType `json:"type"`
}

// Type is a versioned type definition owned by the registry. Multiple
// structurally distinct Types may exist for the same class name; readers
// reconcile against all of them.
type Type struct {
	// ID is assigned by the registry when the type is defined.
	ID     int     `json:"id"`
	Name   string  `json:"name"`
	Fields []Field `json:"fields"`
}

// FieldByName returns the field with the exact given name.
func (t *Type) FieldByName(name string) (Field, bool) {
	for _, f := range t.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// StructurallyEqual reports whether two definitions describe the same
// shape: same class name and the same fields in the same order.
func (t *Type) StructurallyEqual(other *Type) bool {
	if t.Name != other.Name || len(t.Fields) != len(other.Fields) {
		return false
	}
	for i, f := range t.Fields {
		if other.Fields[i] != f {
			return false
		}
	}
	return true
}

// clone returns a deep copy so registry internals never alias caller slices.
func (t *Type) clone() *Type {
	cp := &Type{ID: t.ID, Name: t.Name}
	cp.Fields = append([]Field(nil), t.Fields...)
	return cp
}
