package vm

import (
	"math"
	"strconv"
)

// ValueKind identifies which variant a Value holds.
type ValueKind uint8

const (
	KindBool ValueKind = iota
	KindNull
	KindNumber
	KindObject
)

var kindNames = [...]string{
	KindBool:   "bool",
	KindNull:   "null",
	KindNumber: "number",
	KindObject: "object",
}

func (k ValueKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "invalid"
}

// Value is a Kavya runtime value: a tagged union over bool, null, number,
// and a reference to a heap object.
//
// Values are copied freely. Copying an object value copies the reference;
// the referent stays owned by the Heap that created it.
type Value struct {
	kind ValueKind
	b    bool
	n    float64
	obj  Object
}

// Pre-defined values
var (
	Null  = Value{kind: KindNull}
	True  = Value{kind: KindBool, b: true}
	False = Value{kind: KindBool, b: false}
)

// ---------------------------------------------------------------------------
// Construction
// ---------------------------------------------------------------------------

// FromBool creates a bool value.
func FromBool(b bool) Value {
	if b {
		return True
	}
	return False
}

// FromNumber creates a number value.
func FromNumber(n float64) Value {
	return Value{kind: KindNumber, n: n}
}

// FromObject creates a value referencing a heap object.
func FromObject(o Object) Value {
	if o == nil {
		return Null
	}
	return Value{kind: KindObject, obj: o}
}

// ---------------------------------------------------------------------------
// Type checking
// ---------------------------------------------------------------------------

// Kind returns the variant tag.
func (v Value) Kind() ValueKind { return v.kind }

// IsBool returns true if v is true or false.
func (v Value) IsBool() bool { return v.kind == KindBool }

// IsNull returns true if v is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// IsNumber returns true if v is a number.
func (v Value) IsNumber() bool { return v.kind == KindNumber }

// IsObject returns true if v references a heap object.
func (v Value) IsObject() bool { return v.kind == KindObject }

// IsString returns true if v references a string object.
func (v Value) IsString() bool {
	return v.kind == KindObject && v.obj.Kind() == ObjString
}

// IsFalsey reports whether v counts as false in a condition.
// Only null and false are falsey.
func (v Value) IsFalsey() bool {
	return v.kind == KindNull || (v.kind == KindBool && !v.b)
}

// ---------------------------------------------------------------------------
// Accessors
// ---------------------------------------------------------------------------

// Bool returns v as a bool.
// Panics if v is not a bool.
func (v Value) Bool() bool {
	if v.kind != KindBool {
		panic("Value.Bool: not a bool")
	}
	return v.b
}

// Number returns v as a float64.
// Panics if v is not a number.
func (v Value) Number() float64 {
	if v.kind != KindNumber {
		panic("Value.Number: not a number")
	}
	return v.n
}

// Object returns the referenced heap object.
// Panics if v is not an object.
func (v Value) Object() Object {
	if v.kind != KindObject {
		panic("Value.Object: not an object")
	}
	return v.obj
}

// AsString returns the referenced string object, or nil if v is not a string.
func (v Value) AsString() *StringObject {
	if v.kind != KindObject {
		return nil
	}
	s, _ := v.obj.(*StringObject)
	return s
}

// ---------------------------------------------------------------------------
// Equality and printing
// ---------------------------------------------------------------------------

// Equal reports whether a and b are the same Kavya value. Values of
// different kinds are never equal. Strings compare by identity, which is
// content equality because every string is interned by its Heap.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindBool:
		return a.b == b.b
	case KindNull:
		return true
	case KindNumber:
		return a.n == b.n
	case KindObject:
		return a.obj == b.obj
	}
	return false
}

// String returns the canonical textual form written by `write`.
func (v Value) String() string {
	switch v.kind {
	case KindBool:
		if v.b {
			return "true"
		}
		return "false"
	case KindNull:
		return "null"
	case KindNumber:
		return FormatNumber(v.n)
	case KindObject:
		return v.obj.String()
	}
	return "<invalid>"
}

// FormatNumber renders n the way C's %g does: six significant digits,
// no trailing zeros, exponent form for very large or small magnitudes.
func FormatNumber(n float64) string {
	switch {
	case math.IsNaN(n):
		return "nan"
	case math.IsInf(n, 1):
		return "inf"
	case math.IsInf(n, -1):
		return "-inf"
	}
	return strconv.FormatFloat(n, 'g', 6, 64)
}
