package ilgen

import "fmt"

// Type identifies the primitive type of a symbolic value.
type Type uint8

const (
	TypeInt32 Type = iota
	TypeInt64
	TypeFloat32
	TypeFloat64
	TypeAddress
)

// String returns a human-readable name for Type.
func (t Type) String() string {
	switch t {
	case TypeInt32:
		return "int32"
	case TypeInt64:
		return "int64"
	case TypeFloat32:
		return "float32"
	case TypeFloat64:
		return "float64"
	case TypeAddress:
		return "address"
	default:
		return fmt.Sprintf("Type(%d)", t)
	}
}

// Value is a symbolic value handle: it stands for a not-yet-materialized
// expression during IR construction. Values are allocated from the
// MethodBuilder that owns the compilation; the simulated state objects in
// this package only hold references to them and never manage their
// lifetime.
type Value struct {
	id  int32
	typ Type
}

// ID returns the value's identity within its compilation. Two handles
// with the same ID denote the same expression.
func (v *Value) ID() int32 { return v.id }

// Type returns the value's primitive type.
func (v *Value) Type() Type { return v.typ }

// String returns a compact printable form, e.g. "v12:int64".
func (v *Value) String() string {
	return fmt.Sprintf("v%d:%s", v.id, v.typ)
}
