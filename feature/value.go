package feature

import (
	"math"
	"strconv"
	"strings"
)

// Kind identifies the concrete type stored in a Value.
type Kind uint8

const (
	// KindAbsent is the zero Kind; reading a missing attribute yields it.
	// Absence is a valid, matchable value: two features both missing a
	// grouping attribute compare equal on it.
	KindAbsent Kind = iota
	// KindNull represents an explicit null value.
	KindNull
	// KindNumber represents a float64 value.
	KindNumber
	// KindString represents a string value.
	KindString
	// KindBool represents a boolean value.
	KindBool
	// KindArray represents a list of values.
	KindArray
	// KindFeatures represents a list of features.
	KindFeatures
)

// Value is a small typed attribute value.
//
// The representation avoids reflection and fmt-based stringification so
// group-key comparison and identifier coercion stay fast and predictable.
type Value struct {
	Kind Kind
	F64  float64
	S    string
	B    bool
	A    []Value
	FS   []*Feature
}

// Null returns an explicit null Value.
func Null() Value { return Value{Kind: KindNull} }

// Number returns a float64 Value.
func Number(v float64) Value { return Value{Kind: KindNumber, F64: v} }

// String returns a string Value.
func String(v string) Value { return Value{Kind: KindString, S: v} }

// Bool returns a boolean Value.
func Bool(v bool) Value { return Value{Kind: KindBool, B: v} }

// Array returns a list Value.
func Array(v []Value) Value { return Value{Kind: KindArray, A: v} }

// Numbers returns a list Value holding the given numbers.
func Numbers(v []float64) Value {
	a := make([]Value, len(v))
	for i, f := range v {
		a[i] = Number(f)
	}
	return Array(a)
}

// Features returns a Value holding a list of features.
func Features(v []*Feature) Value { return Value{Kind: KindFeatures, FS: v} }

// IsAbsent reports whether the value came from a missing attribute.
func (v Value) IsAbsent() bool { return v.Kind == KindAbsent }

// AsFloat64 returns the numeric value if Kind is KindNumber.
func (v Value) AsFloat64() (float64, bool) {
	if v.Kind != KindNumber {
		return 0, false
	}
	return v.F64, true
}

// AsString returns the string value if Kind is KindString.
func (v Value) AsString() (string, bool) {
	if v.Kind != KindString {
		return "", false
	}
	return v.S, true
}

// AsBool returns the boolean value if Kind is KindBool.
func (v Value) AsBool() (bool, bool) {
	if v.Kind != KindBool {
		return false, false
	}
	return v.B, true
}

// AsArray returns the list value if Kind is KindArray.
func (v Value) AsArray() ([]Value, bool) {
	if v.Kind != KindArray {
		return nil, false
	}
	return v.A, true
}

// AsFeatures returns the feature list if Kind is KindFeatures.
func (v Value) AsFeatures() ([]*Feature, bool) {
	if v.Kind != KindFeatures {
		return nil, false
	}
	return v.FS, true
}

// Float coerces the value to a number.
//
// Numbers coerce to themselves and numeric strings parse; anything else,
// including absence, coerces to NaN. The NaN sentinel propagates instead of
// failing so identifier collection never aborts a clustering pass.
func (v Value) Float() float64 {
	switch v.Kind {
	case KindNumber:
		return v.F64
	case KindString:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.S), 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

// Key returns a stable string form used for equality-based partitioning.
// Distinct kinds never collide: each kind carries its own prefix.
func (v Value) Key() string {
	switch v.Kind {
	case KindAbsent:
		return "absent"
	case KindNull:
		return "null"
	case KindNumber:
		return "n:" + strconv.FormatUint(math.Float64bits(v.F64), 16)
	case KindString:
		return "s:" + v.S
	case KindBool:
		if v.B {
			return "b:1"
		}
		return "b:0"
	case KindArray:
		parts := make([]string, len(v.A))
		for i := range v.A {
			parts[i] = v.A[i].Key()
		}
		return "a:" + strings.Join(parts, "\x1f")
	case KindFeatures:
		parts := make([]string, len(v.FS))
		for i := range v.FS {
			parts[i] = strconv.FormatUint(uint64(v.FS[i].UID()), 10)
		}
		return "fs:" + strings.Join(parts, "\x1f")
	default:
		return "invalid"
	}
}

// Attributes is an open mapping from attribute name to Value.
type Attributes map[string]Value

// Clone creates a shallow-value copy of the attribute map. Feature lists are
// shared by reference: clusters hold the same member instances the base store
// holds, never owned copies.
func (a Attributes) Clone() Attributes {
	if a == nil {
		return nil
	}
	clone := make(Attributes, len(a))
	for k, v := range a {
		clone[k] = v
	}
	return clone
}
