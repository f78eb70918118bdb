package runbookio

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/txtxlabs/txtx/internal/expr"
)

const sampleRunbook = `
variables:
  - name: amount
    value: "100"

inputs:
  - name: gas_limit
    default: 21000
    description: gas limit override

signers:
  - name: deployer
    type: evm::secret_key
    params:
      secret_key: "0xabc"

actions:
  - name: deploy
    type: evm::deploy
    params:
      amount: "${variable.amount}"
      from: "${signer.deployer}"
    post_condition:
      behavior: halt
      retries: 2
      backoff_ms: 500
      assertion: true

outputs:
  - name: tx_hash
    value: "${action.deploy.tx_hash}"
`

func TestParseDecodesAllBlockKinds(t *testing.T) {
	t.Parallel()

	doc, err := Parse([]byte(sampleRunbook), "sample.txtx.yml")
	require.NoError(t, err)

	require.Len(t, doc.Variables, 1)
	require.Equal(t, "amount", doc.Variables[0].Name)
	require.Equal(t, expr.KindLiteral, doc.Variables[0].Value.Kind)

	require.Len(t, doc.Inputs, 1)
	require.NotNil(t, doc.Inputs[0].Default)

	require.Len(t, doc.Signers, 1)
	require.Equal(t, "evm::secret_key", doc.Signers[0].Type)

	require.Len(t, doc.Actions, 1)
	action := doc.Actions[0]
	require.Equal(t, "evm::deploy", action.Type)
	require.NotNil(t, action.PostCondition)
	require.Equal(t, 2, action.PostCondition.Retries)

	amountExpr := action.Params["amount"]
	require.Equal(t, expr.KindReference, amountExpr.Kind)
	require.Equal(t, "variable", amountExpr.Reference.Namespace)
	require.Equal(t, []string{"amount"}, amountExpr.Reference.Segments)

	fromExpr := action.Params["from"]
	require.Equal(t, "signer", fromExpr.Reference.Namespace)

	require.Len(t, doc.Outputs, 1)
	outExpr := doc.Outputs[0].Value
	require.Equal(t, expr.KindReference, outExpr.Kind)
	require.Equal(t, []string{"deploy", "tx_hash"}, outExpr.Reference.Segments)
}

func TestParseRejectsInvalidYAML(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte("actions: [this is not"), "broken.yml")
	require.Error(t, err)
}

func TestParseTreatsPlainStringsAsLiterals(t *testing.T) {
	t.Parallel()

	doc, err := Parse([]byte(`
variables:
  - name: label
    value: "not a reference"
`), "t.yml")
	require.NoError(t, err)

	v := doc.Variables[0].Value
	require.Equal(t, expr.KindLiteral, v.Kind)
	s, ok := v.Literal.AsString()
	require.True(t, ok)
	require.Equal(t, "not a reference", s)
}
