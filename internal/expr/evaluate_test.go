package expr

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/txtxlabs/txtx/internal/value"
)

type mapEnv map[string]value.Value

func (m mapEnv) Lookup(path ReferencePath) (value.Value, LookupStatus) {
	v, ok := m[path.String()]
	if !ok {
		return value.Value{}, LookupMissing
	}
	return v, LookupFound
}

func ref(path string, segments ...string) Expr {
	return Reference(ReferencePath{Namespace: path, Segments: segments})
}

func TestEvaluateArithmeticLiteral(t *testing.T) {
	t.Parallel()

	e := Binary(OpAdd, Literal(value.Integer(2)), Literal(value.Integer(3)))
	v, diags, err := Evaluate(e, mapEnv{}, nil, ModeConcrete)
	require.NoError(t, err)
	require.Empty(t, diags)
	i, ok := v.AsInteger()
	require.True(t, ok)
	require.Equal(t, int64(5), i.Int64())
}

func TestEvaluateUnknownPropagates(t *testing.T) {
	t.Parallel()

	env := mapEnv{"variable.a": value.Unknown()}
	e := Binary(OpAdd, ref("variable.a"), Literal(value.Integer(1)))
	v, _, err := Evaluate(e, env, nil, ModeConcrete)
	require.NoError(t, err)
	require.True(t, v.IsUnknown())
}

func TestEvaluateMissingSymbolSpeculativeDowngradesToUnknown(t *testing.T) {
	t.Parallel()

	e := ref("variable.missing")
	v, diags, err := Evaluate(e, mapEnv{}, nil, ModeSpeculative)
	require.NoError(t, err)
	require.Empty(t, diags)
	require.True(t, v.IsUnknown())
}

func TestEvaluateMissingSymbolConcreteIsHardError(t *testing.T) {
	t.Parallel()

	e := ref("variable.missing")
	_, diags, err := Evaluate(e, mapEnv{}, nil, ModeConcrete)
	require.Error(t, err)
	require.Len(t, diags, 1)
}

func TestEvaluateShortCircuitAndFalseIgnoresUnknownRight(t *testing.T) {
	t.Parallel()

	env := mapEnv{"variable.b": value.Unknown()}
	e := Binary(OpAnd, Literal(value.Bool(false)), ref("variable.b"))
	v, _, err := Evaluate(e, env, nil, ModeConcrete)
	require.NoError(t, err)
	b, ok := v.AsBool()
	require.True(t, ok)
	require.False(t, b)
}

func TestEvaluateShortCircuitOrTrueIgnoresUnknownLeft(t *testing.T) {
	t.Parallel()

	env := mapEnv{"variable.a": value.Unknown()}
	e := Binary(OpOr, ref("variable.a"), Literal(value.Bool(true)))
	v, _, err := Evaluate(e, env, nil, ModeConcrete)
	require.NoError(t, err)
	b, ok := v.AsBool()
	require.True(t, ok)
	require.True(t, b)
}

func TestEvaluateConditionalUnusedBranchUnknownDoesNotTaint(t *testing.T) {
	t.Parallel()

	env := mapEnv{"variable.unused": value.Unknown()}
	e := Conditional(Literal(value.Bool(true)), Literal(value.Integer(7)), ref("variable.unused"))
	v, _, err := Evaluate(e, env, nil, ModeConcrete)
	require.NoError(t, err)
	i, ok := v.AsInteger()
	require.True(t, ok)
	require.Equal(t, int64(7), i.Int64())
}

func TestEvaluateConditionalUnknownTestYieldsUnknown(t *testing.T) {
	t.Parallel()

	env := mapEnv{"variable.cond": value.Unknown()}
	e := Conditional(ref("variable.cond"), Literal(value.Integer(1)), Literal(value.Integer(2)))
	v, _, err := Evaluate(e, env, nil, ModeConcrete)
	require.NoError(t, err)
	require.True(t, v.IsUnknown())
}

func TestEvaluateMixedSignMixRejected(t *testing.T) {
	t.Parallel()

	e := Binary(OpAdd, Literal(value.Integer(1)), Literal(value.UnsignedInteger(2)))
	_, _, err := Evaluate(e, mapEnv{}, nil, ModeConcrete)
	require.Error(t, err)
}

type stdFuncs struct{}

func (stdFuncs) Call(namespace, name string, args []value.Value) (value.Value, error) {
	if namespace == "evm" && name == "address" {
		s, _ := args[0].AsString()
		return value.Addon("evm::address", []byte(s)), nil
	}
	return value.Value{}, nil
}

func TestEvaluateCallDispatchesToRegistry(t *testing.T) {
	t.Parallel()

	e := Call("evm", "address", Literal(value.String("0xabc")))
	v, _, err := Evaluate(e, mapEnv{}, stdFuncs{}, ModeConcrete)
	require.NoError(t, err)
	kind, bytes, ok := v.AsAddon()
	require.True(t, ok)
	require.Equal(t, "evm::address", kind)
	require.Equal(t, []byte("0xabc"), bytes)
}

func TestEvaluateInterpolation(t *testing.T) {
	t.Parallel()

	env := mapEnv{"variable.name": value.String("world")}
	nameExpr := ref("variable.name")
	e := Interpolation(
		InterpolationPart{Literal: "hello "},
		InterpolationPart{Expr: &nameExpr},
	)
	v, _, err := Evaluate(e, env, nil, ModeConcrete)
	require.NoError(t, err)
	s, ok := v.AsString()
	require.True(t, ok)
	require.Equal(t, "hello world", s)
}

func TestEvaluateObjectAndArrayLiterals(t *testing.T) {
	t.Parallel()

	obj := ObjectLiteral(ObjectField{Key: "x", Value: Literal(value.Integer(1))})
	v, _, err := Evaluate(obj, mapEnv{}, nil, ModeConcrete)
	require.NoError(t, err)
	fv, ok := v.ObjectField("x")
	require.True(t, ok)
	i, _ := fv.AsInteger()
	require.Equal(t, int64(1), i.Int64())

	arr := ArrayLiteral(Literal(value.Integer(1)), Literal(value.Integer(2)))
	v2, _, err := Evaluate(arr, mapEnv{}, nil, ModeConcrete)
	require.NoError(t, err)
	items, ok := v2.AsArray()
	require.True(t, ok)
	require.Len(t, items, 2)
}
