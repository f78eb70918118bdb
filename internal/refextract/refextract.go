// Package refextract walks an expression AST and collects the set of
// unresolved symbolic references it reads, before any value exists. The
// construction graph builder uses this to compute dependency edges.
//
// Extraction must be sound (no false negatives): every reference the
// expression could dereference must be reported. It may be imprecise
// (false positives are fine) because a spurious edge only tightens
// ordering, never relaxes it — so every branch of a conditional and
// every operand of a short-circuit operator is walked, even though
// evaluation itself may skip one of them.
package refextract

import (
	"sort"

	"github.com/txtxlabs/txtx/internal/expr"
)

// Ref is one extracted reference: the namespace is the reference's leading
// segment, e.g. "action", "variable", "signer", "input", "flow", "output",
// "env".
type Ref struct {
	Namespace string
	Path      expr.ReferencePath
}

// Extract walks e and returns every reference path it reads, deduplicated
// and sorted for deterministic edge ordering.
func Extract(e expr.Expr) []Ref {
	seen := make(map[string]Ref)
	walk(e, seen)

	out := make([]Ref, 0, len(seen))
	for _, r := range seen {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Path.String() < out[j].Path.String()
	})
	return out
}

func walk(e expr.Expr, seen map[string]Ref) {
	switch e.Kind {
	case expr.KindLiteral:
		return

	case expr.KindReference:
		key := e.Reference.String()
		seen[key] = Ref{Namespace: e.Reference.Namespace, Path: e.Reference}

	case expr.KindCall:
		for _, arg := range e.CallArgs {
			walk(arg, seen)
		}

	case expr.KindObjectLiteral:
		for _, f := range e.ObjectFields {
			walk(f.Value, seen)
		}

	case expr.KindArrayLiteral:
		for _, item := range e.ArrayItems {
			walk(item, seen)
		}

	case expr.KindBinaryOp:
		if e.BinaryLeft != nil {
			walk(*e.BinaryLeft, seen)
		}
		if e.BinaryRight != nil {
			walk(*e.BinaryRight, seen)
		}

	case expr.KindConditional:
		// Both branches are walked even though only one executes: the
		// extractor must be sound, not precise.
		if e.CondTest != nil {
			walk(*e.CondTest, seen)
		}
		if e.CondThen != nil {
			walk(*e.CondThen, seen)
		}
		if e.CondElse != nil {
			walk(*e.CondElse, seen)
		}

	case expr.KindInterpolation:
		for _, part := range e.InterpolationParts {
			if part.Expr != nil {
				walk(*part.Expr, seen)
			}
		}
	}
}

// Paths returns only the dotted-path strings, in the same deterministic
// order as Extract.
func Paths(e expr.Expr) []string {
	refs := Extract(e)
	out := make([]string, len(refs))
	for i, r := range refs {
		out[i] = r.Path.String()
	}
	return out
}
