package value

import (
	"encoding/json"
	"fmt"
	"math/big"
)

// wireValue is the JSON wire representation of a Value, used by the
// supervisor protocol transport and anywhere else a Value crosses a
// process boundary. Only the field matching Kind is populated.
type wireValue struct {
	Kind         string      `json:"kind"`
	Bool         bool        `json:"bool,omitempty"`
	Int          string      `json:"int,omitempty"`
	Float        float64     `json:"float,omitempty"`
	String       string      `json:"string,omitempty"`
	Buffer       []byte      `json:"buffer,omitempty"`
	Array        []Value     `json:"array,omitempty"`
	ObjectKeys   []string    `json:"object_keys,omitempty"`
	ObjectValues []Value     `json:"object_values,omitempty"`
	AddonKind    string      `json:"addon_kind,omitempty"`
	AddonBytes   []byte      `json:"addon_bytes,omitempty"`
}

// MarshalJSON encodes v as a tagged wire value.
func (v Value) MarshalJSON() ([]byte, error) {
	w := wireValue{Kind: v.kind.String()}

	switch v.kind {
	case KindNull, KindUnknown:
		// no payload
	case KindBool:
		w.Bool = v.boolV
	case KindInteger, KindUnsignedInteger:
		if v.intV != nil {
			w.Int = v.intV.String()
		}
	case KindFloat:
		w.Float = v.floatV
	case KindString:
		w.String = v.stringV
	case KindBuffer:
		w.Buffer = v.bufferV
	case KindArray:
		w.Array = v.arrayV
	case KindObject:
		if v.objectV != nil {
			w.ObjectKeys = v.objectV.keys
			w.ObjectValues = make([]Value, len(v.objectV.keys))
			for i, k := range v.objectV.keys {
				w.ObjectValues[i] = v.objectV.values[k]
			}
		}
	case KindAddon:
		w.AddonKind = v.addonKind
		w.AddonBytes = v.addonBytes
	default:
		return nil, fmt.Errorf("value: cannot marshal unknown kind %v", v.kind)
	}

	return json.Marshal(w)
}

// UnmarshalJSON decodes a tagged wire value into v.
func (v *Value) UnmarshalJSON(data []byte) error {
	var w wireValue
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	switch w.Kind {
	case "null", "":
		*v = Null()
	case "unknown":
		*v = Unknown()
	case "bool":
		*v = Bool(w.Bool)
	case "integer":
		i, ok := new(big.Int).SetString(w.Int, 10)
		if !ok {
			return fmt.Errorf("value: invalid integer literal %q", w.Int)
		}
		*v = IntegerBig(i)
	case "uinteger":
		i, ok := new(big.Int).SetString(w.Int, 10)
		if !ok {
			return fmt.Errorf("value: invalid unsigned integer literal %q", w.Int)
		}
		*v = UnsignedIntegerBig(i)
	case "float":
		*v = Float(w.Float)
	case "string":
		*v = String(w.String)
	case "buffer":
		*v = Buffer(w.Buffer)
	case "array":
		*v = Array(w.Array)
	case "object":
		b := NewObject()
		for i, k := range w.ObjectKeys {
			b.Set(k, w.ObjectValues[i])
		}
		*v = b.Build()
	case "addon":
		*v = Addon(w.AddonKind, w.AddonBytes)
	default:
		return fmt.Errorf("value: unknown wire kind %q", w.Kind)
	}
	return nil
}
