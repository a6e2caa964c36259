package pdx

import "fmt"

// FieldType is the representation a field carries inside a registered type
// definition. The scalar representations (Boolean through Double) cannot
// hold null; the reference representations (String, Date, ByteArray, Object)
// can. Object is the widest representation and the nullable wrapper for
// scalar columns.
type FieldType int

const (
	Boolean FieldType = iota
	Byte
	Short
	Int
	Long
	Float
	Double
	String
	Date
	ByteArray
	Object
)

var fieldTypeNames = map[FieldType]string{
	Boolean:   "BOOLEAN",
	Byte:      "BYTE",
	Short:     "SHORT",
	Int:       "INT",
	Long:      "LONG",
	Float:     "FLOAT",
	Double:    "DOUBLE",
	String:    "STRING",
	Date:      "DATE",
	ByteArray: "BYTE_ARRAY",
	Object:    "OBJECT",
}

func (t FieldType) String() string {
	if name, ok := fieldTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("FieldType(%d)", int(t))
}

// Nullable reports whether the representation can hold a null value.
func (t FieldType) Nullable() bool {
	switch t {
	case String, Date, ByteArray, Object:
		return true
	default:
		return false
	}
}

// Integral reports whether the representation is a fixed-width integer.
func (t FieldType) Integral() bool {
	switch t {
	case Byte, Short, Int, Long:
		return true
	default:
		return false
	}
}

// Numeric reports whether the representation is integral or floating point.
func (t FieldType) Numeric() bool {
	switch t {
	case Byte, Short, Int, Long, Float, Double:
		return true
	default:
		return false
	}
}

// ParseFieldType converts a stored name back to its FieldType.
func ParseFieldType(name string) (FieldType, error) {
	for t, n := range fieldTypeNames {
		if n == name {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown field type %q", name)
}
