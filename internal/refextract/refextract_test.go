package refextract

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/txtxlabs/txtx/internal/expr"
	"github.com/txtxlabs/txtx/internal/value"
)

func ref(ns string, segs ...string) expr.Expr {
	return expr.Reference(expr.ReferencePath{Namespace: ns, Segments: segs})
}

func TestExtractFindsAllReferences(t *testing.T) {
	t.Parallel()

	e := expr.Binary(expr.OpAdd, ref("action.get.status_code"), ref("variable.offset"))
	paths := Paths(e)
	require.Equal(t, []string{"action.get.status_code", "variable.offset"}, paths)
}

func TestExtractIsSoundAcrossConditionalBranches(t *testing.T) {
	t.Parallel()

	e := expr.Conditional(ref("variable.flag"), ref("action.a.out"), ref("action.b.out"))
	paths := Paths(e)
	require.Contains(t, paths, "action.a.out")
	require.Contains(t, paths, "action.b.out")
	require.Contains(t, paths, "variable.flag")
}

func TestExtractDedupesRepeatedReferences(t *testing.T) {
	t.Parallel()

	e := expr.Binary(expr.OpAdd, ref("variable.a"), ref("variable.a"))
	paths := Paths(e)
	require.Equal(t, []string{"variable.a"}, paths)
}

func TestExtractLiteralHasNoReferences(t *testing.T) {
	t.Parallel()

	e := expr.Literal(value.Integer(5))
	require.Empty(t, Paths(e))
}

func TestExtractWalksInterpolationAndCallArgs(t *testing.T) {
	t.Parallel()

	inner := ref("signer.deployer.address")
	e := expr.Interpolation(
		expr.InterpolationPart{Literal: "addr="},
		expr.InterpolationPart{Expr: &inner},
	)
	require.Equal(t, []string{"signer.deployer.address"}, Paths(e))

	call := expr.Call("evm", "keccak256", ref("variable.payload"))
	require.Equal(t, []string{"variable.payload"}, Paths(call))
}
