package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/txtxlabs/txtx/internal/expr"
	"github.com/txtxlabs/txtx/internal/manifest"
	"github.com/txtxlabs/txtx/internal/runbook"
	"github.com/txtxlabs/txtx/internal/value"
)

func TestFlowInvocationsFromExtractsFlowActionsOnly(t *testing.T) {
	t.Parallel()

	doc := runbook.Document{
		Actions: []runbook.ActionBlock{
			{Name: "deploy", Type: "evm::deploy"},
			{Name: "bootstrap", Type: "flow::setup", Params: map[string]expr.Expr{"amount": expr.Literal(value.Integer(1))}},
		},
	}

	invocations := flowInvocationsFrom(doc)
	require.Len(t, invocations, 1)
	require.Equal(t, "bootstrap", invocations[0].InstanceName)
	require.Equal(t, "setup", invocations[0].FlowName)
}

func TestStripFlowInvocationsRemovesOnlyFlowPlaceholders(t *testing.T) {
	t.Parallel()

	doc := runbook.Document{
		Actions: []runbook.ActionBlock{
			{Name: "deploy", Type: "evm::deploy"},
			{Name: "bootstrap", Type: "flow::setup"},
		},
	}

	stripped := stripFlowInvocations(doc)
	require.Len(t, stripped.Actions, 1)
	require.Equal(t, "deploy", stripped.Actions[0].Name)
}

func TestCoerceInputOverridesUsesDeclaredType(t *testing.T) {
	t.Parallel()

	doc := runbook.Document{
		Inputs: []runbook.InputBlock{
			{Name: "gas_limit", Type: value.Type{Kind: value.TypeInteger}},
		},
	}
	overrides := manifest.InputOverrides{"gas_limit": "21000", "label": "v1"}

	coerced := coerceInputOverrides(doc, overrides)

	gasLimit, ok := coerced["gas_limit"].AsInteger()
	require.True(t, ok)
	require.Equal(t, int64(21000), gasLimit.Int64())

	label, ok := coerced["label"].AsString()
	require.True(t, ok)
	require.Equal(t, "v1", label)
}
