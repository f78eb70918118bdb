// Package flow expands flow blocks into top-level runbook blocks: each
// flow invocation gets its own alpha-renamed copy of the flow body, so the
// construction graph builder never needs to know flows exist.
package flow

import (
	"fmt"
	"strings"

	"github.com/txtxlabs/txtx/internal/expr"
	"github.com/txtxlabs/txtx/internal/runbook"
	txtxerrors "github.com/txtxlabs/txtx/pkg/errors"
)

// MaxDepth bounds recursive flow invocation (a flow invoking itself, or a
// cycle of flows invoking each other) so a malformed runbook fails fast
// instead of exhausting memory.
const MaxDepth = 32

// Invocation is one "invoke a flow" request appearing as an action block
// whose Type names a flow rather than an addon command
// ("flow::<flow_name>").
type Invocation struct {
	InstanceName string
	FlowName     string
	Bindings     map[string]expr.Expr
}

// Expand expands into a copy of doc: for each invocation, it instantiates the
// named flow's body with parameters substituted and every block scoped
// under the invocation's instance name, then appends the result to doc's
// top-level slices. It returns a new Document; the input is not mutated.
func Expand(doc runbook.Document, invocations []Invocation) (runbook.Document, error) {
	flowsByName := make(map[string]runbook.FlowBlock, len(doc.Flows))
	for _, f := range doc.Flows {
		flowsByName[f.Name] = f
	}

	out := cloneDocument(doc)

	for _, inv := range invocations {
		if err := expandOne(&out, flowsByName, inv, 0); err != nil {
			return runbook.Document{}, err
		}
	}
	return out, nil
}

func expandOne(out *runbook.Document, flowsByName map[string]runbook.FlowBlock, inv Invocation, depth int) error {
	if depth >= MaxDepth {
		return txtxerrors.NewInternalError(fmt.Sprintf("flow expansion exceeded max depth %d at %q", MaxDepth, inv.InstanceName), nil)
	}

	f, ok := flowsByName[inv.FlowName]
	if !ok {
		return txtxerrors.NewReferenceError(inv.InstanceName, inv.FlowName, "invocation of unknown flow", nil)
	}

	prefix := inv.InstanceName + "."

	paramValues := make(map[string]expr.Expr, len(f.Params))
	for _, p := range f.Params {
		binding, ok := inv.Bindings[p.Name]
		if !ok {
			return txtxerrors.NewReferenceError(inv.InstanceName, p.Name, "flow invocation missing required parameter", nil)
		}
		paramValues[p.Name] = binding
	}

	renamer := newRenamer(prefix, paramValues)

	for _, s := range f.Body.Signers {
		out.Signers = append(out.Signers, runbook.SignerBlock{
			Name:     prefix + s.Name,
			Type:     s.Type,
			Params:   renamer.rewriteParams(s.Params),
			Location: s.Location,
		})
	}
	for _, v := range f.Body.Variables {
		out.Variables = append(out.Variables, runbook.VariableBlock{
			Name:        prefix + v.Name,
			Value:       renamer.rewrite(v.Value),
			Description: v.Description,
			Editable:    v.Editable,
			Location:    v.Location,
		})
	}
	for _, a := range f.Body.Actions {
		if namespace, name, ok := strings.Cut(a.Type, "::"); ok && namespace == "flow" {
			nested := Invocation{InstanceName: prefix + a.Name, FlowName: name, Bindings: renamer.rewriteParams(a.Params)}
			if err := expandOne(out, flowsByName, nested, depth+1); err != nil {
				return err
			}
			continue
		}
		na := runbook.ActionBlock{
			Name:     prefix + a.Name,
			Type:     a.Type,
			Params:   renamer.rewriteParams(a.Params),
			Location: a.Location,
		}
		if a.PreCondition != nil {
			assertion := renamer.rewrite(a.PreCondition.Assertion)
			na.PreCondition = &runbook.PreCondition{Behavior: a.PreCondition.Behavior, Assertion: assertion}
		}
		if a.PostCondition != nil {
			assertion := renamer.rewrite(a.PostCondition.Assertion)
			na.PostCondition = &runbook.PostCondition{
				Retries:   a.PostCondition.Retries,
				BackoffMS: a.PostCondition.BackoffMS,
				Behavior:  a.PostCondition.Behavior,
				Assertion: assertion,
			}
		}
		out.Actions = append(out.Actions, na)
	}
	for _, o := range f.Body.Outputs {
		out.Outputs = append(out.Outputs, runbook.OutputBlock{
			Name:     prefix + o.Name,
			Value:    renamer.rewrite(o.Value),
			Location: o.Location,
		})
	}

	return nil
}

func cloneDocument(doc runbook.Document) runbook.Document {
	return runbook.Document{
		Addons:        append([]runbook.AddonBlock(nil), doc.Addons...),
		Signers:       append([]runbook.SignerBlock(nil), doc.Signers...),
		Actions:       append([]runbook.ActionBlock(nil), doc.Actions...),
		Variables:     append([]runbook.VariableBlock(nil), doc.Variables...),
		Outputs:       append([]runbook.OutputBlock(nil), doc.Outputs...),
		Inputs:        append([]runbook.InputBlock(nil), doc.Inputs...),
		Flows:         append([]runbook.FlowBlock(nil), doc.Flows...),
		RunbookEmbeds: append([]runbook.RunbookEmbedBlock(nil), doc.RunbookEmbeds...),
	}
}

// renamer rewrites references inside a flow body: references to the
// flow's own parameters are substituted with the caller-supplied
// expression (alpha-renaming the binding away entirely); every
// action/variable/signer/output reference is qualified with the
// instance's prefix so it resolves against the flow's own expanded
// blocks. References to blocks declared outside the flow are prefixed
// too, so they do not resolve: a flow body reaches outside data only
// through its parameters.
type renamer struct {
	prefix string
	params map[string]expr.Expr
}

func newRenamer(prefix string, params map[string]expr.Expr) *renamer {
	return &renamer{prefix: prefix, params: params}
}

func (r *renamer) rewriteParams(params map[string]expr.Expr) map[string]expr.Expr {
	if params == nil {
		return nil
	}
	out := make(map[string]expr.Expr, len(params))
	for k, v := range params {
		out[k] = r.rewrite(v)
	}
	return out
}

func (r *renamer) rewrite(e expr.Expr) expr.Expr {
	switch e.Kind {
	case expr.KindReference:
		if e.Reference.Namespace == "param" && len(e.Reference.Segments) == 1 {
			if bound, ok := r.params[e.Reference.Segments[0]]; ok {
				return bound
			}
		}
		if isFlowScopedNamespace(e.Reference.Namespace) && len(e.Reference.Segments) > 0 {
			segs := append([]string(nil), e.Reference.Segments...)
			segs[0] = r.prefix + segs[0]
			return expr.Reference(expr.ReferencePath{Namespace: e.Reference.Namespace, Segments: segs})
		}
		return e
	case expr.KindCall:
		args := make([]expr.Expr, len(e.CallArgs))
		for i, a := range e.CallArgs {
			args[i] = r.rewrite(a)
		}
		return expr.Call(e.CallNamespace, e.CallFunction, args...)
	case expr.KindObjectLiteral:
		fields := make([]expr.ObjectField, len(e.ObjectFields))
		for i, f := range e.ObjectFields {
			fields[i] = expr.ObjectField{Key: f.Key, Value: r.rewrite(f.Value)}
		}
		return expr.ObjectLiteral(fields...)
	case expr.KindArrayLiteral:
		items := make([]expr.Expr, len(e.ArrayItems))
		for i, it := range e.ArrayItems {
			items[i] = r.rewrite(it)
		}
		return expr.ArrayLiteral(items...)
	case expr.KindBinaryOp:
		left := r.rewrite(*e.BinaryLeft)
		right := r.rewrite(*e.BinaryRight)
		return expr.Binary(e.BinaryOp, left, right)
	case expr.KindConditional:
		test := r.rewrite(*e.CondTest)
		then := r.rewrite(*e.CondThen)
		els := r.rewrite(*e.CondElse)
		return expr.Conditional(test, then, els)
	case expr.KindInterpolation:
		parts := make([]expr.InterpolationPart, len(e.InterpolationParts))
		for i, p := range e.InterpolationParts {
			if p.Expr == nil {
				parts[i] = p
				continue
			}
			rewritten := r.rewrite(*p.Expr)
			parts[i] = expr.InterpolationPart{Literal: p.Literal, Expr: &rewritten}
		}
		return expr.Interpolation(parts...)
	default:
		return e
	}
}

func isFlowScopedNamespace(ns string) bool {
	switch ns {
	case "action", "variable", "signer", "output":
		return true
	default:
		return false
	}
}
