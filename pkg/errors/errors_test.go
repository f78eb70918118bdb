package errors

import (
	stdErrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSyntaxErrorWrapsUnderlying(t *testing.T) {
	t.Parallel()

	underlying := fmt.Errorf("unexpected token")
	err := NewSyntaxError("deploy.tx", 12, underlying)

	var syntaxErr *SyntaxError
	require.ErrorAs(t, err, &syntaxErr)
	require.Equal(t, "deploy.tx", syntaxErr.Path)
	require.Equal(t, 12, syntaxErr.Line)
	require.True(t, stdErrors.Is(err, underlying))
	require.Contains(t, err.Error(), "deploy.tx")
}

func TestReferenceErrorIncludesInstanceAndPath(t *testing.T) {
	t.Parallel()

	err := NewReferenceError("variable.a", "variable.b", "undefined symbol", nil)

	var refErr *ReferenceError
	require.ErrorAs(t, err, &refErr)
	require.Equal(t, "variable.a", refErr.Instance)
	require.Contains(t, err.Error(), "undefined symbol")
}

func TestCycleErrorNamesEveryInstanceInOrder(t *testing.T) {
	t.Parallel()

	err := NewCycleError([]string{"variable.a", "variable.b", "variable.a"})

	var refErr *ReferenceError
	require.ErrorAs(t, err, &refErr)
	require.Equal(t, []string{"variable.a", "variable.b", "variable.a"}, refErr.Cycle)
	require.Contains(t, err.Error(), "variable.a -> variable.b -> variable.a")
}

func TestExecutionErrorIncludesInstanceContext(t *testing.T) {
	t.Parallel()

	underlying := stdErrors.New("rpc call failed")
	err := NewExecutionError("action.deploy", underlying)

	var execErr *ExecutionError
	require.ErrorAs(t, err, &execErr)
	require.Equal(t, "action.deploy", execErr.Instance)
	require.True(t, stdErrors.Is(err, underlying))
}

func TestSignerErrorIncludesPhase(t *testing.T) {
	t.Parallel()

	underlying := stdErrors.New("user rejected")
	err := NewSignerError("signer.deployer", "sign", underlying)

	var signerErr *SignerError
	require.ErrorAs(t, err, &signerErr)
	require.Equal(t, "sign", signerErr.Phase)
	require.True(t, stdErrors.Is(err, underlying))
}

func TestDiagnosticFromErrorCarriesSuggestion(t *testing.T) {
	t.Parallel()

	err := NewReferenceError("variable.a", "variable.db", "undefined symbol 'db'", nil)
	diag := DiagnosticFromError(err, "did you mean 'variable.b'?")

	require.Equal(t, SeverityError, diag.Severity)
	require.Equal(t, "variable.a", diag.Instance)
	require.Contains(t, diag.Error(), "did you mean")
}
