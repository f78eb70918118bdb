package addonstd

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/txtxlabs/txtx/internal/specs"
	"github.com/txtxlabs/txtx/internal/value"
)

func TestConcatJoinsStrings(t *testing.T) {
	t.Parallel()

	fns := Functions()
	v, err := fns["concat"]([]value.Value{value.String("a"), value.String("b")})
	require.NoError(t, err)
	s, _ := v.AsString()
	require.Equal(t, "ab", s)
}

func TestConcatPropagatesUnknown(t *testing.T) {
	t.Parallel()

	fns := Functions()
	v, err := fns["concat"]([]value.Value{value.String("a"), value.Unknown()})
	require.NoError(t, err)
	require.True(t, v.IsUnknown())
}

func TestLengthOnArrayAndString(t *testing.T) {
	t.Parallel()

	fns := Functions()

	v, err := fns["length"]([]value.Value{value.String("hello")})
	require.NoError(t, err)
	n, _ := v.AsInteger()
	require.Equal(t, int64(5), n.Int64())

	v, err = fns["length"]([]value.Value{value.Array([]value.Value{value.Integer(1), value.Integer(2)})})
	require.NoError(t, err)
	n, _ = v.AsInteger()
	require.Equal(t, int64(2), n.Int64())
}

func TestNotNegatesBool(t *testing.T) {
	t.Parallel()

	fns := Functions()
	v, err := fns["not"]([]value.Value{value.Bool(true)})
	require.NoError(t, err)
	b, _ := v.AsBool()
	require.False(t, b)
}

func TestRepoAddonMetadataAndCommands(t *testing.T) {
	t.Parallel()

	a := RepoAddon{}
	require.NoError(t, a.Metadata().Validate())
	cmds := a.Commands()
	require.Len(t, cmds, 1)
	require.Equal(t, "clone", cmds[0].Name)
}

func TestRepoAddonCloneRequiresKnownInputs(t *testing.T) {
	t.Parallel()

	a := RepoAddon{}
	cmd := a.Commands()[0]

	requirement, err := cmd.CheckExecutability(context.Background(), map[string]value.Value{
		"url":         value.Unknown(),
		"destination": value.String("/tmp/repo"),
	}, specs.AuthContext{})
	require.NoError(t, err)
	require.Equal(t, specs.RequirementNeedsOperatorAction, requirement)
}
