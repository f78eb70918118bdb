// Package value implements the tagged value variant and parallel type
// system shared by every other engine component: the expression evaluator,
// the execution context, and every addon-facing boundary exchange values
// of this kind.
package value

import (
	"fmt"
	"math/big"
	"sort"
)

// Kind tags a Value's underlying representation.
type Kind int

const (
	KindNull Kind = iota
	KindUnknown
	KindBool
	KindInteger
	KindUnsignedInteger
	KindFloat
	KindString
	KindBuffer
	KindArray
	KindObject
	KindAddon
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindUnknown:
		return "unknown"
	case KindBool:
		return "bool"
	case KindInteger:
		return "integer"
	case KindUnsignedInteger:
		return "uinteger"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindBuffer:
		return "buffer"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	case KindAddon:
		return "addon"
	default:
		return "invalid"
	}
}

// Value is the immutable tagged union exchanged between every engine
// component. Unknown is a first-class state distinct from Null: it marks a
// value that cannot yet be computed, and it is never equal to anything,
// including another Unknown.
type Value struct {
	kind       Kind
	boolV      bool
	intV       *big.Int
	floatV     float64
	stringV    string
	bufferV    []byte
	arrayV     []Value
	objectV    *object
	addonKind  string
	addonBytes []byte
}

// object is an ordered string-keyed mapping, preserving insertion order the
// way the runbook document's own object literals are written.
type object struct {
	keys   []string
	values map[string]Value
}

func newObject() *object {
	return &object{values: make(map[string]Value)}
}

func (o *object) set(key string, v Value) {
	if _, exists := o.values[key]; !exists {
		o.keys = append(o.keys, key)
	}
	o.values[key] = v
}

// Null returns the Null value.
func Null() Value { return Value{kind: KindNull} }

// Unknown returns the Unknown value: a value that cannot yet be computed.
func Unknown() Value { return Value{kind: KindUnknown} }

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{kind: KindBool, boolV: b} }

// Integer wraps a signed arbitrary-precision integer.
func Integer(i int64) Value { return Value{kind: KindInteger, intV: big.NewInt(i)} }

// IntegerBig wraps a signed arbitrary-precision integer from a *big.Int.
func IntegerBig(i *big.Int) Value {
	return Value{kind: KindInteger, intV: new(big.Int).Set(i)}
}

// UnsignedInteger wraps an unsigned arbitrary-precision integer.
func UnsignedInteger(u uint64) Value {
	return Value{kind: KindUnsignedInteger, intV: new(big.Int).SetUint64(u)}
}

// UnsignedIntegerBig wraps an unsigned arbitrary-precision integer from a
// *big.Int. The sign of i is ignored; callers must ensure non-negativity.
func UnsignedIntegerBig(i *big.Int) Value {
	return Value{kind: KindUnsignedInteger, intV: new(big.Int).Abs(i)}
}

// Float wraps a 64-bit float.
func Float(f float64) Value { return Value{kind: KindFloat, floatV: f} }

// String wraps a UTF-8 string.
func String(s string) Value { return Value{kind: KindString, stringV: s} }

// Buffer wraps raw bytes.
func Buffer(b []byte) Value {
	cp := make([]byte, len(b))
	copy(cp, b)
	return Value{kind: KindBuffer, bufferV: cp}
}

// Array wraps a sequence of values.
func Array(vs []Value) Value {
	cp := make([]Value, len(vs))
	copy(cp, vs)
	return Value{kind: KindArray, arrayV: cp}
}

// ObjectBuilder incrementally builds an ordered Object value.
type ObjectBuilder struct {
	obj *object
}

// NewObject starts building an ordered object value.
func NewObject() *ObjectBuilder {
	return &ObjectBuilder{obj: newObject()}
}

// Set assigns a field, preserving first-insertion order for new keys.
func (b *ObjectBuilder) Set(key string, v Value) *ObjectBuilder {
	b.obj.set(key, v)
	return b
}

// Build finalizes the object into a Value.
func (b *ObjectBuilder) Build() Value {
	return Value{kind: KindObject, objectV: b.obj}
}

// Addon wraps an addon-defined sub-type tag and opaque bytes. Coercion
// between addon types is addon-defined; the core never interprets the
// bytes.
func Addon(kind string, bytes []byte) Value {
	cp := make([]byte, len(bytes))
	copy(cp, bytes)
	return Value{kind: KindAddon, addonKind: kind, addonBytes: cp}
}

// Kind reports the value's tag.
func (v Value) Kind() Kind { return v.kind }

// IsUnknown reports whether this value is the first-class Unknown marker.
func (v Value) IsUnknown() bool { return v.kind == KindUnknown }

// IsNull reports whether this value is Null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsBool returns the wrapped bool and whether the value was a Bool.
func (v Value) AsBool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.boolV, true
}

// AsInteger returns the wrapped signed integer and whether the value was an
// Integer.
func (v Value) AsInteger() (*big.Int, bool) {
	if v.kind != KindInteger {
		return nil, false
	}
	return new(big.Int).Set(v.intV), true
}

// AsUnsignedInteger returns the wrapped unsigned integer and whether the
// value was an UnsignedInteger.
func (v Value) AsUnsignedInteger() (*big.Int, bool) {
	if v.kind != KindUnsignedInteger {
		return nil, false
	}
	return new(big.Int).Set(v.intV), true
}

// AsFloat returns the wrapped float and whether the value was a Float.
func (v Value) AsFloat() (float64, bool) {
	if v.kind != KindFloat {
		return 0, false
	}
	return v.floatV, true
}

// AsString returns the wrapped string and whether the value was a String.
func (v Value) AsString() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.stringV, true
}

// AsBuffer returns the wrapped bytes and whether the value was a Buffer.
func (v Value) AsBuffer() ([]byte, bool) {
	if v.kind != KindBuffer {
		return nil, false
	}
	cp := make([]byte, len(v.bufferV))
	copy(cp, v.bufferV)
	return cp, true
}

// AsArray returns the wrapped sequence and whether the value was an Array.
func (v Value) AsArray() ([]Value, bool) {
	if v.kind != KindArray {
		return nil, false
	}
	cp := make([]Value, len(v.arrayV))
	copy(cp, v.arrayV)
	return cp, true
}

// ObjectKeys returns the field names in insertion order, or nil if the
// value is not an Object.
func (v Value) ObjectKeys() []string {
	if v.kind != KindObject || v.objectV == nil {
		return nil
	}
	out := make([]string, len(v.objectV.keys))
	copy(out, v.objectV.keys)
	return out
}

// ObjectField returns a field by name and whether it is present.
func (v Value) ObjectField(key string) (Value, bool) {
	if v.kind != KindObject || v.objectV == nil {
		return Value{}, false
	}
	fv, ok := v.objectV.values[key]
	return fv, ok
}

// AsAddon returns the addon sub-type tag and bytes, and whether the value
// was an Addon.
func (v Value) AsAddon() (kind string, bytes []byte, ok bool) {
	if v.kind != KindAddon {
		return "", nil, false
	}
	cp := make([]byte, len(v.addonBytes))
	copy(cp, v.addonBytes)
	return v.addonKind, cp, true
}

// GoString renders a debug representation, used in diagnostics and tests.
func (v Value) GoString() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindUnknown:
		return "unknown"
	case KindBool:
		return fmt.Sprintf("%t", v.boolV)
	case KindInteger:
		return v.intV.String()
	case KindUnsignedInteger:
		return v.intV.String() + "u"
	case KindFloat:
		return fmt.Sprintf("%g", v.floatV)
	case KindString:
		return fmt.Sprintf("%q", v.stringV)
	case KindBuffer:
		return fmt.Sprintf("0x%x", v.bufferV)
	case KindArray:
		return fmt.Sprintf("%v", v.arrayV)
	case KindObject:
		return fmt.Sprintf("object(%v)", v.ObjectKeys())
	case KindAddon:
		return fmt.Sprintf("addon(%s, 0x%x)", v.addonKind, v.addonBytes)
	default:
		return "<invalid>"
	}
}

// Equal reports structural equality. Two Addon values are equal iff both
// tag and bytes match. Unknown is never equal to anything, including
// another Unknown — equality is a concrete-value operation.
func Equal(a, b Value) bool {
	if a.kind == KindUnknown || b.kind == KindUnknown {
		return false
	}
	if a.kind != b.kind {
		return false
	}

	switch a.kind {
	case KindNull:
		return true
	case KindBool:
		return a.boolV == b.boolV
	case KindInteger, KindUnsignedInteger:
		return a.intV.Cmp(b.intV) == 0
	case KindFloat:
		return a.floatV == b.floatV
	case KindString:
		return a.stringV == b.stringV
	case KindBuffer:
		if len(a.bufferV) != len(b.bufferV) {
			return false
		}
		for i := range a.bufferV {
			if a.bufferV[i] != b.bufferV[i] {
				return false
			}
		}
		return true
	case KindArray:
		if len(a.arrayV) != len(b.arrayV) {
			return false
		}
		for i := range a.arrayV {
			if !Equal(a.arrayV[i], b.arrayV[i]) {
				return false
			}
		}
		return true
	case KindObject:
		aKeys, bKeys := a.ObjectKeys(), b.ObjectKeys()
		if len(aKeys) != len(bKeys) {
			return false
		}
		sortedA := append([]string(nil), aKeys...)
		sortedB := append([]string(nil), bKeys...)
		sort.Strings(sortedA)
		sort.Strings(sortedB)
		for i := range sortedA {
			if sortedA[i] != sortedB[i] {
				return false
			}
			av, _ := a.ObjectField(sortedA[i])
			bv, _ := b.ObjectField(sortedB[i])
			if !Equal(av, bv) {
				return false
			}
		}
		return true
	case KindAddon:
		if a.addonKind != b.addonKind {
			return false
		}
		if len(a.addonBytes) != len(b.addonBytes) {
			return false
		}
		for i := range a.addonBytes {
			if a.addonBytes[i] != b.addonBytes[i] {
				return false
			}
		}
		return true
	default:
		return false
	}
}
