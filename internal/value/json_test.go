package value

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestJSONRoundTripsPrimitives(t *testing.T) {
	t.Parallel()

	cases := []Value{
		Null(),
		Unknown(),
		Bool(true),
		Integer(-42),
		UnsignedInteger(42),
		Float(3.5),
		String("hello"),
		Buffer([]byte{1, 2, 3}),
	}

	for _, in := range cases {
		data, err := json.Marshal(in)
		require.NoError(t, err)

		var out Value
		require.NoError(t, json.Unmarshal(data, &out))
		if in.IsUnknown() {
			// Equal is never true for Unknown, so check the kind instead.
			require.True(t, out.IsUnknown(), "round trip mismatch for kind %v", in.Kind())
			continue
		}
		require.True(t, Equal(in, out), "round trip mismatch for kind %v", in.Kind())
	}
}

func TestJSONRoundTripsArrayAndObject(t *testing.T) {
	t.Parallel()

	arr := Array([]Value{Integer(1), String("x")})
	data, err := json.Marshal(arr)
	require.NoError(t, err)

	var out Value
	require.NoError(t, json.Unmarshal(data, &out))
	require.True(t, Equal(arr, out))

	obj := NewObject().Set("a", Integer(1)).Set("b", String("y")).Build()
	data, err = json.Marshal(obj)
	require.NoError(t, err)

	var outObj Value
	require.NoError(t, json.Unmarshal(data, &outObj))
	require.True(t, Equal(obj, outObj))
	require.Equal(t, []string{"a", "b"}, outObj.ObjectKeys())
}

func TestJSONRoundTripsAddon(t *testing.T) {
	t.Parallel()

	a := Addon("evm_address", []byte{0xde, 0xad})
	data, err := json.Marshal(a)
	require.NoError(t, err)

	var out Value
	require.NoError(t, json.Unmarshal(data, &out))
	require.True(t, Equal(a, out))
}
