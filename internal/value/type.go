package value

import (
	"fmt"
	"math/big"

	txtxerrors "github.com/txtxlabs/txtx/pkg/errors"
)

// TypeKind tags a declared type. It parallels Kind but additionally
// distinguishes parameterised Array/Object/Addon types and the catch-all
// Any.
type TypeKind int

const (
	TypeNull TypeKind = iota
	TypeBool
	TypeInteger
	TypeUnsignedInteger
	TypeFloat
	TypeString
	TypeBuffer
	TypeArray
	TypeObject
	TypeAddon
	TypeAny
)

// Type is the declared-type counterpart to Value, used in typed value
// slots (command input parameters, output fields).
type Type struct {
	Kind      TypeKind
	Elem      *Type            // set when Kind == TypeArray
	Fields    map[string]Type  // set when Kind == TypeObject
	AddonKind string           // set when Kind == TypeAddon
}

// Any is the wildcard type: every value, including Unknown, satisfies it.
func Any() Type { return Type{Kind: TypeAny} }

func (t Type) String() string {
	switch t.Kind {
	case TypeNull:
		return "null"
	case TypeBool:
		return "bool"
	case TypeInteger:
		return "integer"
	case TypeUnsignedInteger:
		return "uinteger"
	case TypeFloat:
		return "float"
	case TypeString:
		return "string"
	case TypeBuffer:
		return "buffer"
	case TypeArray:
		if t.Elem != nil {
			return fmt.Sprintf("array<%s>", t.Elem.String())
		}
		return "array"
	case TypeObject:
		return "object"
	case TypeAddon:
		return fmt.Sprintf("addon<%s>", t.AddonKind)
	case TypeAny:
		return "any"
	default:
		return "invalid"
	}
}

// TypeOf reports the runtime Type of a value. Unknown values report
// TypeAny since their eventual shape is not yet known.
func TypeOf(v Value) Type {
	switch v.Kind() {
	case KindNull:
		return Type{Kind: TypeNull}
	case KindUnknown:
		return Type{Kind: TypeAny}
	case KindBool:
		return Type{Kind: TypeBool}
	case KindInteger:
		return Type{Kind: TypeInteger}
	case KindUnsignedInteger:
		return Type{Kind: TypeUnsignedInteger}
	case KindFloat:
		return Type{Kind: TypeFloat}
	case KindString:
		return Type{Kind: TypeString}
	case KindBuffer:
		return Type{Kind: TypeBuffer}
	case KindArray:
		arr, _ := v.AsArray()
		if len(arr) == 0 {
			return Type{Kind: TypeArray, Elem: &Type{Kind: TypeAny}}
		}
		elem := TypeOf(arr[0])
		return Type{Kind: TypeArray, Elem: &elem}
	case KindObject:
		fields := make(map[string]Type)
		for _, k := range v.ObjectKeys() {
			fv, _ := v.ObjectField(k)
			fields[k] = TypeOf(fv)
		}
		return Type{Kind: TypeObject, Fields: fields}
	case KindAddon:
		kind, _, _ := v.AsAddon()
		return Type{Kind: TypeAddon, AddonKind: kind}
	default:
		return Type{Kind: TypeAny}
	}
}

// Coerce converts value to the target type, performing only lossless
// conversions: integer widening, string-to-buffer as the string's raw
// bytes, and addon-declared casts via addonCoerce. Lossy conversions
// return a TypeError. Unknown propagates through coercion unchanged,
// regardless of target — it is never promoted to Null or to a zero value.
//
// addonCoerce may be nil when no addon-defined casts are needed; it is
// consulted only when both the source and target are Addon-kinded and
// their addon kinds differ.
func Coerce(v Value, target Type, addonCoerce func(v Value, targetKind string) (Value, bool)) (Value, error) {
	if v.IsUnknown() {
		return v, nil
	}

	if target.Kind == TypeAny {
		return v, nil
	}

	switch target.Kind {
	case TypeNull:
		if v.IsNull() {
			return v, nil
		}
		return Value{}, typeErr(target, v, "only null coerces to null")

	case TypeBool:
		if b, ok := v.AsBool(); ok {
			return Bool(b), nil
		}
		return Value{}, typeErr(target, v, "no lossless conversion to bool")

	case TypeInteger:
		switch v.Kind() {
		case KindInteger:
			return v, nil
		case KindUnsignedInteger:
			u, _ := v.AsUnsignedInteger()
			return IntegerBig(u), nil
		}
		return Value{}, typeErr(target, v, "no lossless conversion to integer")

	case TypeUnsignedInteger:
		switch v.Kind() {
		case KindUnsignedInteger:
			return v, nil
		case KindInteger:
			i, _ := v.AsInteger()
			if i.Sign() < 0 {
				return Value{}, typeErr(target, v, "negative integer cannot widen to uinteger")
			}
			return UnsignedIntegerBig(i), nil
		}
		return Value{}, typeErr(target, v, "no lossless conversion to uinteger")

	case TypeFloat:
		switch v.Kind() {
		case KindFloat:
			return v, nil
		case KindInteger, KindUnsignedInteger:
			i, _ := v.AsInteger()
			if i == nil {
				i, _ = v.AsUnsignedInteger()
			}
			f := new(big.Float).SetInt(i)
			f64, _ := f.Float64()
			return Float(f64), nil
		}
		return Value{}, typeErr(target, v, "no lossless conversion to float")

	case TypeString:
		if s, ok := v.AsString(); ok {
			return String(s), nil
		}
		return Value{}, typeErr(target, v, "no lossless conversion to string")

	case TypeBuffer:
		switch v.Kind() {
		case KindBuffer:
			return v, nil
		case KindString:
			s, _ := v.AsString()
			return Buffer([]byte(s)), nil
		}
		return Value{}, typeErr(target, v, "no lossless conversion to buffer")

	case TypeArray:
		arr, ok := v.AsArray()
		if !ok {
			return Value{}, typeErr(target, v, "no lossless conversion to array")
		}
		if target.Elem == nil {
			return v, nil
		}
		out := make([]Value, len(arr))
		for i, elem := range arr {
			coerced, err := Coerce(elem, *target.Elem, addonCoerce)
			if err != nil {
				return Value{}, err
			}
			out[i] = coerced
		}
		return Array(out), nil

	case TypeObject:
		if v.Kind() != KindObject {
			return Value{}, typeErr(target, v, "no lossless conversion to object")
		}
		if target.Fields == nil {
			return v, nil
		}
		b := NewObject()
		for _, k := range v.ObjectKeys() {
			fv, _ := v.ObjectField(k)
			if ft, ok := target.Fields[k]; ok {
				coerced, err := Coerce(fv, ft, addonCoerce)
				if err != nil {
					return Value{}, err
				}
				b.Set(k, coerced)
			} else {
				b.Set(k, fv)
			}
		}
		return b.Build(), nil

	case TypeAddon:
		if v.Kind() != KindAddon {
			return Value{}, typeErr(target, v, "no lossless conversion to addon")
		}
		kind, _, _ := v.AsAddon()
		if kind == target.AddonKind {
			return v, nil
		}
		if addonCoerce == nil {
			return Value{}, typeErr(target, v, fmt.Sprintf("addon type %q has no declared cast to %q", kind, target.AddonKind))
		}
		coerced, ok := addonCoerce(v, target.AddonKind)
		if !ok {
			return Value{}, typeErr(target, v, fmt.Sprintf("addon type %q declares no cast to %q", kind, target.AddonKind))
		}
		return coerced, nil
	}

	return Value{}, typeErr(target, v, "unsupported target type")
}

func typeErr(target Type, v Value, message string) error {
	return txtxerrors.NewTypeError("", target.String(), TypeOf(v).String(), message)
}
