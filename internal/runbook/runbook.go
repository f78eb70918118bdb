// Package runbook defines the typed AST consumed by the construction
// graph builder. The document format and grammar are out of scope for
// this engine — a parser elsewhere produces values of these types; this
// package only describes their shape.
package runbook

import (
	"github.com/txtxlabs/txtx/internal/expr"
	"github.com/txtxlabs/txtx/internal/value"
)

// Location pinpoints a block's origin for diagnostics.
type Location struct {
	File string
	Line int
}

// ConditionBehavior enumerates the recognised pre/post condition
// behaviors. Loading and graph construction do not check a behavior
// string against this set; any other string is carried through as is.
type ConditionBehavior string

const (
	BehaviorHalt     ConditionBehavior = "halt"
	BehaviorLog      ConditionBehavior = "log"
	BehaviorSkip     ConditionBehavior = "skip"
	BehaviorContinue ConditionBehavior = "continue"
)

// PreCondition gates whether a block runs at all.
type PreCondition struct {
	Behavior  ConditionBehavior
	Assertion expr.Expr
}

// PostCondition gates how a block's outcome propagates, with optional
// retry policy. Retrying is addon-opt-in: the engine does not assume a
// command is safe to retry merely because a post_condition names retries.
type PostCondition struct {
	Retries   int
	BackoffMS int
	Behavior  ConditionBehavior
	Assertion expr.Expr
}

// AddonBlock scopes subsequent command lookups within a runbook to a
// namespace, with addon-specific configuration parameters.
type AddonBlock struct {
	Namespace string
	Params    map[string]expr.Expr
	Location  Location
}

// SignerBlock declares a named credential/wallet.
type SignerBlock struct {
	Name     string
	Type     string // "namespace::type"
	Params   map[string]expr.Expr
	Location Location
}

// ActionBlock declares a named occurrence of a command.
type ActionBlock struct {
	Name          string
	Type          string // "namespace::type"
	Params        map[string]expr.Expr
	PreCondition  *PreCondition
	PostCondition *PostCondition
	Location      Location
}

// VariableBlock declares a named, possibly-editable value.
type VariableBlock struct {
	Name        string
	Value       expr.Expr
	Description string
	Editable    bool
	Location    Location
}

// OutputBlock declares a named final result.
type OutputBlock struct {
	Name     string
	Value    expr.Expr
	Location Location
}

// InputBlock declares an input parameter consumed from the environment
// (CLI override, manifest default, or operator prompt).
type InputBlock struct {
	Name        string
	Type        value.Type
	Default     *expr.Expr
	Description string
	Location    Location
}

// FlowParam is one parameter of a flow's signature.
type FlowParam struct {
	Name string
	Type value.Type
}

// FlowBody is the set of declarative blocks scoped inside a flow.
type FlowBody struct {
	Signers   []SignerBlock
	Actions   []ActionBlock
	Variables []VariableBlock
	Outputs   []OutputBlock
}

// FlowBlock declares a parameterised, re-instantiable subgraph.
type FlowBlock struct {
	Name     string
	Params   []FlowParam
	Body     FlowBody
	Location Location
}

// RunbookEmbedBlock embeds a sub-runbook as a single composite action.
type RunbookEmbedBlock struct {
	Name          string
	SourceLoc     string // the `location = <path>` field
	ParamBindings map[string]expr.Expr
	Location      Location
}

// Document is a fully parsed runbook: every top-level declarative block,
// grouped by kind.
type Document struct {
	Addons        []AddonBlock
	Signers       []SignerBlock
	Actions       []ActionBlock
	Variables     []VariableBlock
	Outputs       []OutputBlock
	Inputs        []InputBlock
	Flows         []FlowBlock
	RunbookEmbeds []RunbookEmbedBlock
}
