package runbook

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/txtxlabs/txtx/internal/expr"
	"github.com/txtxlabs/txtx/internal/value"
)

func TestDocumentGroupsBlocksByKind(t *testing.T) {
	t.Parallel()

	doc := Document{
		Actions: []ActionBlock{
			{Name: "deploy", Type: "evm::deploy_contract"},
		},
		Variables: []VariableBlock{
			{Name: "rpc_url", Value: expr.Literal(value.String("https://example.test"))},
		},
	}

	require.Len(t, doc.Actions, 1)
	require.Equal(t, "evm::deploy_contract", doc.Actions[0].Type)
	require.Len(t, doc.Variables, 1)
}

func TestPreConditionCarriesAssertion(t *testing.T) {
	t.Parallel()

	pc := PreCondition{
		Behavior:  BehaviorSkip,
		Assertion: expr.Literal(value.Bool(true)),
	}
	require.Equal(t, BehaviorSkip, pc.Behavior)
}

func TestFlowBlockHoldsScopedBody(t *testing.T) {
	t.Parallel()

	flow := FlowBlock{
		Name:   "deploy_to_chain",
		Params: []FlowParam{{Name: "chain_id", Type: value.Type{Kind: value.TypeInteger}}},
		Body: FlowBody{
			Actions: []ActionBlock{{Name: "deploy", Type: "evm::deploy_contract"}},
		},
	}

	require.Equal(t, "chain_id", flow.Params[0].Name)
	require.Len(t, flow.Body.Actions, 1)
}
