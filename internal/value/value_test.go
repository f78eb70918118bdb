package value

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEqualStructural(t *testing.T) {
	t.Parallel()

	t.Run("integers compare by value", func(t *testing.T) {
		t.Parallel()
		require.True(t, Equal(Integer(5), Integer(5)))
		require.False(t, Equal(Integer(5), Integer(6)))
	})

	t.Run("addon equality requires matching tag and bytes", func(t *testing.T) {
		t.Parallel()
		a := Addon("evm::address", []byte{1, 2, 3})
		b := Addon("evm::address", []byte{1, 2, 3})
		c := Addon("svm::pubkey", []byte{1, 2, 3})
		require.True(t, Equal(a, b))
		require.False(t, Equal(a, c))
	})

	t.Run("objects compare regardless of insertion order", func(t *testing.T) {
		t.Parallel()
		a := NewObject().Set("x", Integer(1)).Set("y", Integer(2)).Build()
		b := NewObject().Set("y", Integer(2)).Set("x", Integer(1)).Build()
		require.True(t, Equal(a, b))
	})

	t.Run("unknown is never equal to anything", func(t *testing.T) {
		t.Parallel()
		require.False(t, Equal(Unknown(), Unknown()))
		require.False(t, Equal(Unknown(), Null()))
	})
}

func TestObjectPreservesInsertionOrder(t *testing.T) {
	t.Parallel()

	obj := NewObject().Set("b", Integer(2)).Set("a", Integer(1)).Build()
	require.Equal(t, []string{"b", "a"}, obj.ObjectKeys())
}

func TestTypeOfUnknownIsAny(t *testing.T) {
	t.Parallel()
	require.Equal(t, TypeAny, TypeOf(Unknown()).Kind)
}

func TestCoerceIntegerWidening(t *testing.T) {
	t.Parallel()

	out, err := Coerce(UnsignedInteger(5), Type{Kind: TypeInteger}, nil)
	require.NoError(t, err)
	i, ok := out.AsInteger()
	require.True(t, ok)
	require.Equal(t, int64(5), i.Int64())
}

func TestCoerceRejectsLossyNegativeToUnsigned(t *testing.T) {
	t.Parallel()

	_, err := Coerce(Integer(-1), Type{Kind: TypeUnsignedInteger}, nil)
	require.Error(t, err)
}

func TestCoerceUnknownPropagatesRegardlessOfTarget(t *testing.T) {
	t.Parallel()

	out, err := Coerce(Unknown(), Type{Kind: TypeString}, nil)
	require.NoError(t, err)
	require.True(t, out.IsUnknown())
}

func TestCoerceStringToBuffer(t *testing.T) {
	t.Parallel()

	out, err := Coerce(String("hi"), Type{Kind: TypeBuffer}, nil)
	require.NoError(t, err)
	b, ok := out.AsBuffer()
	require.True(t, ok)
	require.Equal(t, []byte("hi"), b)
}

func TestCoerceAddonUsesDeclaredCast(t *testing.T) {
	t.Parallel()

	addonCoerce := func(v Value, targetKind string) (Value, bool) {
		kind, bytes, _ := v.AsAddon()
		if kind == "evm::address" && targetKind == "evm::checksummed_address" {
			return Addon(targetKind, bytes), true
		}
		return Value{}, false
	}

	out, err := Coerce(Addon("evm::address", []byte{0xde, 0xad}), Type{Kind: TypeAddon, AddonKind: "evm::checksummed_address"}, addonCoerce)
	require.NoError(t, err)
	kind, _, _ := out.AsAddon()
	require.Equal(t, "evm::checksummed_address", kind)
}

func TestCoerceAddonWithoutDeclaredCastIsError(t *testing.T) {
	t.Parallel()

	_, err := Coerce(Addon("evm::address", nil), Type{Kind: TypeAddon, AddonKind: "svm::pubkey"}, nil)
	require.Error(t, err)
}

func TestSlotFilled(t *testing.T) {
	t.Parallel()

	require.False(t, UnknownSlot(Type{Kind: TypeInteger}).Filled())
	require.True(t, KnownSlot(Type{Kind: TypeInteger}, Integer(1)).Filled())
}
