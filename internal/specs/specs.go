// Package specs defines the addon-supplied command and signer
// specifications and the process-wide registry that indexes them by
// namespace. Addons are external collaborators: this package only
// describes the capability interface they implement, never a concrete
// addon.
package specs

import (
	"context"

	"github.com/txtxlabs/txtx/internal/expr"
	"github.com/txtxlabs/txtx/internal/value"
)

// Requirement is what check_executability reports back to the scheduler.
type Requirement int

const (
	// RequirementReady means the command can run immediately.
	RequirementReady Requirement = iota
	// RequirementNeedsOperatorAction means a request_review (or similar)
	// round-trip with the operator is needed before running.
	RequirementNeedsOperatorAction
	// RequirementNeedsSigner means a signer lease and possibly activation
	// is needed before running.
	RequirementNeedsSigner
	// RequirementBlocked means the command cannot proceed; the instance
	// fails.
	RequirementBlocked
)

func (r Requirement) String() string {
	switch r {
	case RequirementReady:
		return "ready"
	case RequirementNeedsOperatorAction:
		return "needs_operator_action"
	case RequirementNeedsSigner:
		return "needs_signer"
	case RequirementBlocked:
		return "blocked"
	default:
		return "unknown"
	}
}

// ParamSpec describes one typed, ordered input parameter.
type ParamSpec struct {
	Name        string
	Type        value.Type
	Required    bool
	Interactive bool // may be filled by the operator rather than by an expression
	Default     *expr.Expr
	Doc         string
}

// OutputSpec describes one typed output field.
type OutputSpec struct {
	Name string
	Type value.Type
	Doc  string
}

// ActionSpec describes a sub-operation a command may enqueue for the
// operator, distinct from its final outputs (e.g. a nested confirmation).
type ActionSpec struct {
	Name string
	Doc  string
}

// SignerHandle is the auth-context view of one activated signer: opaque
// session state plus a bound signing function. The signer coordinator
// constructs these; command implementations only ever see this narrow
// interface, never the coordinator itself.
type SignerHandle struct {
	Namespace string
	Name      string
	State     value.Value
	Sign      func(ctx context.Context, payload []byte) ([]byte, error)
}

// AuthContext is passed to check_executability and run_execution, exposing
// exactly the signers a command declared as reachable.
type AuthContext struct {
	Signers map[string]SignerHandle
}

// ProgressSink lets a running command emit progress events without holding
// a reference to the supervisor protocol directly.
type ProgressSink func(phase, message string)

// RunResult is what run_execution returns.
type RunResult struct {
	Outputs     map[string]value.Value
	Diagnostics []string
}

// RunExecutionFunc performs the command's actual side effect. It must be
// cancellable via ctx.
type RunExecutionFunc func(ctx context.Context, inputs map[string]value.Value, auth AuthContext, progress ProgressSink) (RunResult, error)

// CheckExecutabilityFunc reports whether a command instance can run given
// its current (possibly only-speculatively-known) inputs.
type CheckExecutabilityFunc func(ctx context.Context, inputs map[string]value.Value, auth AuthContext) (Requirement, error)

// CommandSpec is static metadata an addon supplies for one kind of action.
type CommandSpec struct {
	Namespace string
	Name      string
	Doc       string

	Inputs  []ParamSpec
	Outputs []OutputSpec
	Actions []ActionSpec

	// ReachableSigners names which signer input fields this command may
	// consume; the scheduler activates them on RequirementNeedsSigner and
	// passes their handles in the auth context.
	ReachableSigners []string

	// ExclusiveResources names rate-limited external endpoints the
	// scheduler must serialize access to by name.
	ExclusiveResources []string

	// ReentrancySafe allows the scheduler to run multiple instances of
	// this command concurrently within the same wave.
	ReentrancySafe bool

	CheckExecutability CheckExecutabilityFunc
	RunExecution       RunExecutionFunc
}

// QualifiedName returns "namespace::name".
func (c CommandSpec) QualifiedName() string {
	return c.Namespace + "::" + c.Name
}

// InputByName finds a declared input parameter.
func (c CommandSpec) InputByName(name string) (ParamSpec, bool) {
	for _, p := range c.Inputs {
		if p.Name == name {
			return p, true
		}
	}
	return ParamSpec{}, false
}

// SignerState is addon-defined opaque session data carried between signer
// lifecycle phases.
type SignerState struct {
	Data       value.Value
	Generation int
}

// CheckActivabilityFunc mirrors CheckExecutabilityFunc for signers.
type CheckActivabilityFunc func(ctx context.Context, inputs map[string]value.Value) (Requirement, error)

// ActivateFunc performs signer activation, which may require draining
// interactive events through the supervisor protocol before returning.
type ActivateFunc func(ctx context.Context, inputs map[string]value.Value, progress ProgressSink) (SignerState, error)

// SignTransactionFunc signs payload using a previously-activated state.
type SignTransactionFunc func(ctx context.Context, state SignerState, payload []byte, progress ProgressSink) ([]byte, SignerState, error)

// SignerSpec is static metadata an addon supplies for one kind of signer.
type SignerSpec struct {
	Namespace string
	Name      string
	Doc       string

	Inputs []ParamSpec

	CheckActivability CheckActivabilityFunc
	Activate          ActivateFunc
	SignTransaction   SignTransactionFunc

	// Composite members, set for multi-signature signers. Activation over
	// members is sequential (§4.7); Members is empty for a leaf signer.
	Members []string
}

// QualifiedName returns "namespace::name".
func (s SignerSpec) QualifiedName() string {
	return s.Namespace + "::" + s.Name
}

// FunctionImpl is an addon-provided function reachable via namespace::name
// calls from expressions.
type FunctionImpl func(args []value.Value) (value.Value, error)
