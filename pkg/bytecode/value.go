package bytecode

import (
	"fmt"
	"strconv"
)

// ValueKind tags the runtime kind of a VM value.
type ValueKind uint8

const (
	KindInt   ValueKind = 0 // signed 64-bit integer
	KindFloat ValueKind = 1 // 64-bit float
	KindBool  ValueKind = 2
	KindChar  ValueKind = 3 // byte/character
)

func (k ValueKind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindChar:
		return "char"
	}
	return fmt.Sprintf("ValueKind(%d)", uint8(k))
}

// KindByName resolves a type name ("int", "float", "bool", "char") to its
// ValueKind.
func KindByName(name string) (ValueKind, bool) {
	switch name {
	case "int":
		return KindInt, true
	case "float":
		return KindFloat, true
	case "bool":
		return KindBool, true
	case "char":
		return KindChar, true
	}
	return 0, false
}

// Value is the VM's tagged union over the four value kinds. Exactly one of
// the payload fields is meaningful, selected by Kind.
type Value struct {
	Kind ValueKind
	I    int64
	F    float64
	B    bool
	C    byte
}

// IntValue wraps an int64.
func IntValue(v int64) Value { return Value{Kind: KindInt, I: v} }

// FloatValue wraps a float64.
func FloatValue(v float64) Value { return Value{Kind: KindFloat, F: v} }

// BoolValue wraps a bool.
func BoolValue(v bool) Value { return Value{Kind: KindBool, B: v} }

// CharValue wraps a byte.
func CharValue(v byte) Value { return Value{Kind: KindChar, C: v} }

// Equal reports whether two values have the same kind and payload.
func (v Value) Equal(other Value) bool { return v == other }

func (v Value) String() string {
	switch v.Kind {
	case KindInt:
		return strconv.FormatInt(v.I, 10)
	case KindFloat:
		return strconv.FormatFloat(v.F, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.B)
	case KindChar:
		return string(v.C)
	}
	return "<invalid>"
}
