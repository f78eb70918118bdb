package flow

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/txtxlabs/txtx/internal/expr"
	"github.com/txtxlabs/txtx/internal/runbook"
	"github.com/txtxlabs/txtx/internal/value"
)

func paramRef(name string) expr.Expr {
	return expr.Reference(expr.ReferencePath{Namespace: "param", Segments: []string{name}})
}

func actionRef(name, field string) expr.Expr {
	return expr.Reference(expr.ReferencePath{Namespace: "action", Segments: []string{name, field}})
}

func sampleDoc() runbook.Document {
	return runbook.Document{
		Flows: []runbook.FlowBlock{
			{
				Name:   "deploy_to_chain",
				Params: []runbook.FlowParam{{Name: "chain_id", Type: value.Type{Kind: value.TypeInteger}}},
				Body: runbook.FlowBody{
					Actions: []runbook.ActionBlock{
						{Name: "deploy", Type: "evm::deploy_contract", Params: map[string]expr.Expr{
							"chain_id": paramRef("chain_id"),
						}},
					},
					Outputs: []runbook.OutputBlock{
						{Name: "address", Value: actionRef("deploy", "contract_address")},
					},
				},
			},
		},
	}
}

func TestExpandSubstitutesParamsAndQualifiesNames(t *testing.T) {
	t.Parallel()

	doc := sampleDoc()
	out, err := Expand(doc, []Invocation{
		{
			InstanceName: "mainnet_deploy",
			FlowName:     "deploy_to_chain",
			Bindings:     map[string]expr.Expr{"chain_id": expr.Literal(value.Integer(1))},
		},
	})
	require.NoError(t, err)
	require.Len(t, out.Actions, 1)
	require.Equal(t, "mainnet_deploy.deploy", out.Actions[0].Name)

	chainIDExpr := out.Actions[0].Params["chain_id"]
	require.Equal(t, expr.KindLiteral, chainIDExpr.Kind)

	require.Len(t, out.Outputs, 1)
	require.Equal(t, "mainnet_deploy.address", out.Outputs[0].Name)
	require.Equal(t, "action", out.Outputs[0].Value.Reference.Namespace)
	require.Equal(t, []string{"mainnet_deploy.deploy", "contract_address"}, out.Outputs[0].Value.Reference.Segments)
}

func TestExpandMultipleInvocationsAreIndependentlyScoped(t *testing.T) {
	t.Parallel()

	doc := sampleDoc()
	out, err := Expand(doc, []Invocation{
		{InstanceName: "mainnet", FlowName: "deploy_to_chain", Bindings: map[string]expr.Expr{"chain_id": expr.Literal(value.Integer(1))}},
		{InstanceName: "sepolia", FlowName: "deploy_to_chain", Bindings: map[string]expr.Expr{"chain_id": expr.Literal(value.Integer(11155111))}},
	})
	require.NoError(t, err)
	require.Len(t, out.Actions, 2)
	require.ElementsMatch(t, []string{"mainnet.deploy", "sepolia.deploy"},
		[]string{out.Actions[0].Name, out.Actions[1].Name})
}

func TestExpandMissingParameterBindingIsError(t *testing.T) {
	t.Parallel()

	doc := sampleDoc()
	_, err := Expand(doc, []Invocation{
		{InstanceName: "mainnet", FlowName: "deploy_to_chain", Bindings: map[string]expr.Expr{}},
	})
	require.Error(t, err)
}

func TestExpandUnknownFlowIsError(t *testing.T) {
	t.Parallel()

	doc := sampleDoc()
	_, err := Expand(doc, []Invocation{
		{InstanceName: "x", FlowName: "missing_flow"},
	})
	require.Error(t, err)
}
