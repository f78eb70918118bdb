package specs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/txtxlabs/txtx/internal/value"
)

func sampleCommand(namespace, name string) CommandSpec {
	return CommandSpec{
		Namespace: namespace,
		Name:      name,
		CheckExecutability: func(ctx context.Context, inputs map[string]value.Value, auth AuthContext) (Requirement, error) {
			return RequirementReady, nil
		},
		RunExecution: func(ctx context.Context, inputs map[string]value.Value, auth AuthContext, progress ProgressSink) (RunResult, error) {
			return RunResult{}, nil
		},
	}
}

func TestRegisterAndLookupCommand(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	require.NoError(t, r.RegisterCommand(sampleCommand("evm", "send_transaction")))

	spec, ok := r.LookupCommand("evm", "send_transaction")
	require.True(t, ok)
	require.Equal(t, "evm::send_transaction", spec.QualifiedName())
}

func TestRegisterCommandCollisionIsStartupError(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	require.NoError(t, r.RegisterCommand(sampleCommand("evm", "send_transaction")))
	err := r.RegisterCommand(sampleCommand("evm", "send_transaction"))
	require.Error(t, err)
}

func TestListCommandsByNamespaceSorted(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	require.NoError(t, r.RegisterCommand(sampleCommand("evm", "z_command")))
	require.NoError(t, r.RegisterCommand(sampleCommand("evm", "a_command")))

	cmds := r.ListCommandsByNamespace("evm")
	require.Len(t, cmds, 2)
	require.Equal(t, "a_command", cmds[0].Name)
	require.Equal(t, "z_command", cmds[1].Name)
}

func TestCallDispatchesRegisteredFunction(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	require.NoError(t, r.RegisterFunction("evm", "checksum", func(args []value.Value) (value.Value, error) {
		return value.String("0xCHECKSUMMED"), nil
	}))

	v, err := r.Call("evm", "checksum", []value.Value{value.String("0xabc")})
	require.NoError(t, err)
	s, _ := v.AsString()
	require.Equal(t, "0xCHECKSUMMED", s)
}

func TestCallUnknownFunctionIsReferenceError(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	_, err := r.Call("evm", "missing", nil)
	require.Error(t, err)
}

func TestRegisterFunctionRejectsStdNamespace(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	err := r.RegisterFunction("std", "whatever", func(args []value.Value) (value.Value, error) { return value.Value{}, nil })
	require.Error(t, err)
}
