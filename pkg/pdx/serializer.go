package pdx

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"
	"unicode"
)

var timeType = reflect.TypeOf(time.Time{})

// Serializer is the standard serialization path for domain values. Writing
// a value derives its type definition by reflection and registers it, so
// serializing an instance of a class populates the registry as a side
// effect. The reconciler relies on exactly that side effect after a
// successful domain class probe.
type Serializer struct {
	registry TypeRegistry
}

// NewSerializer creates a serializer bound to a registry.
func NewSerializer(registry TypeRegistry) *Serializer {
	return &Serializer{registry: registry}
}

// Marshal serializes v under the given class name, registering the derived
// type definition first.
func (s *Serializer) Marshal(ctx context.Context, className string, v any) ([]byte, error) {
	t, err := DeriveType(className, v)
	if err != nil {
		return nil, err
	}
	if _, err := s.registry.DefineType(ctx, t); err != nil {
		return nil, fmt.Errorf("define type %q: %w", className, err)
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %q value: %w", className, err)
	}
	return payload, nil
}

// DeriveType reflects over a struct value and produces the type definition
// its serialized form carries. Only exported fields participate; field
// names follow the lower-camel convention of the wire format.
func DeriveType(className string, v any) (*Type, error) {
	rt := reflect.TypeOf(v)
	for rt != nil && rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}
	if rt == nil || rt.Kind() != reflect.Struct {
		return nil, fmt.Errorf("class %q: serializable values must be structs, got %v", className, reflect.TypeOf(v))
	}

	t := &Type{Name: className}
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		if !sf.IsExported() {
			continue
		}
		t.Fields = append(t.Fields, Field{
			Name: fieldName(sf),
			Type: fieldTypeOf(sf.Type),
		})
	}
	return t, nil
}

// fieldName honors a json tag when present, else lower-camels the Go name.
func fieldName(sf reflect.StructField) string {
	if tag, ok := sf.Tag.Lookup("json"); ok {
		if name := strings.Split(tag, ",")[0]; name != "" && name != "-" {
			return name
		}
	}
	runes := []rune(sf.Name)
	runes[0] = unicode.ToLower(runes[0])
	return string(runes)
}

// fieldTypeOf maps a Go type to its field representation. Pointers are
// nullable and collapse to Object unless they point at an inherently
// nullable representation.
func fieldTypeOf(rt reflect.Type) FieldType {
	if rt.Kind() == reflect.Pointer {
		ft := fieldTypeOf(rt.Elem())
		if ft.Nullable() {
			return ft
		}
		return Object
	}
	if rt == timeType {
		return Date
	}
	switch rt.Kind() {
	case reflect.Bool:
		return Boolean
	case reflect.Int8, reflect.Uint8:
		return Byte
	case reflect.Int16, reflect.Uint16:
		return Short
	case reflect.Int32, reflect.Int, reflect.Uint32:
		return Int
	case reflect.Int64, reflect.Uint64:
		return Long
	case reflect.Float32:
		return Float
	case reflect.Float64:
		return Double
	case reflect.String:
		return String
	case reflect.Slice:
		if rt.Elem().Kind() == reflect.Uint8 {
			return ByteArray
		}
		return Object
	default:
		return Object
	}
}
