package value

// Slot is a typed value slot: a pair of a declared type and either a
// concrete value or the first-class Unknown state. Unknown is distinct
// from storing Value{} as Null — a Slot is only "known" once Filled
// reports true.
type Slot struct {
	DeclaredType Type
	Value        Value
}

// UnknownSlot builds a slot that is declared but not yet computable.
func UnknownSlot(t Type) Slot {
	return Slot{DeclaredType: t, Value: Unknown()}
}

// KnownSlot builds a slot holding a concrete value.
func KnownSlot(t Type, v Value) Slot {
	return Slot{DeclaredType: t, Value: v}
}

// Filled reports whether the slot holds a concrete (non-Unknown) value.
func (s Slot) Filled() bool {
	return !s.Value.IsUnknown()
}
