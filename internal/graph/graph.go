// Package graph builds the construction graph: the dependency-ordered set
// of command, signer, variable, and output instances materialized from a
// runbook document, ready for the scheduler to walk wave by wave.
package graph

import (
	"sort"

	"github.com/txtxlabs/txtx/internal/expr"
	"github.com/txtxlabs/txtx/internal/refextract"
	"github.com/txtxlabs/txtx/internal/runbook"
	txtxerrors "github.com/txtxlabs/txtx/pkg/errors"
)

// InstanceKind classifies what a Node materializes.
type InstanceKind int

const (
	KindAction InstanceKind = iota
	KindSigner
	KindVariable
	KindOutput
	KindInput
)

func (k InstanceKind) String() string {
	switch k {
	case KindAction:
		return "action"
	case KindSigner:
		return "signer"
	case KindVariable:
		return "variable"
	case KindOutput:
		return "output"
	case KindInput:
		return "input"
	default:
		return "unknown"
	}
}

// Node is one instance in the construction graph: an addressable
// "kind.name" identity, the expressions that must be evaluated to produce
// it, and the edges to other instances it depends on.
type Node struct {
	ID       string // "kind.name", e.g. "action.deploy"
	Kind     InstanceKind
	Name     string
	Type     string // "namespace::name" for actions and signers, empty otherwise
	Params   map[string]expr.Expr
	Value    *expr.Expr // set for variable/output nodes
	PreCond  *runbook.PreCondition
	PostCond *runbook.PostCondition

	DependsOn  []*Node
	Dependents []*Node
}

// Graph is the full construction graph for one runbook (after flow
// expansion has already alpha-renamed any flow-scoped blocks into
// top-level ones).
type Graph struct {
	Nodes  map[string]*Node
	Levels [][]string
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{Nodes: make(map[string]*Node)}
}

func idFor(kind InstanceKind, name string) string {
	return kind.String() + "." + name
}

// addNode inserts a vertex, erroring on a duplicate "kind.name" identity.
func (g *Graph) addNode(n *Node) error {
	if _, exists := g.Nodes[n.ID]; exists {
		return txtxerrors.NewReferenceError(n.ID, "", "duplicate instance identity", nil)
	}
	g.Nodes[n.ID] = n
	return nil
}

// Build materializes a construction graph from a parsed document. It does
// not perform flow expansion; callers pass a document whose flow bodies
// have already been expanded into top-level blocks by internal/flow.
func Build(doc runbook.Document) (*Graph, error) {
	g := New()

	for _, in := range doc.Inputs {
		n := &Node{ID: idFor(KindInput, in.Name), Kind: KindInput, Name: in.Name}
		if in.Default != nil {
			n.Value = in.Default
		}
		if err := g.addNode(n); err != nil {
			return nil, err
		}
	}

	for _, v := range doc.Variables {
		val := v.Value
		n := &Node{ID: idFor(KindVariable, v.Name), Kind: KindVariable, Name: v.Name, Value: &val}
		if err := g.addNode(n); err != nil {
			return nil, err
		}
	}

	for _, s := range doc.Signers {
		n := &Node{ID: idFor(KindSigner, s.Name), Kind: KindSigner, Name: s.Name, Type: s.Type, Params: s.Params}
		if err := g.addNode(n); err != nil {
			return nil, err
		}
	}

	for _, a := range doc.Actions {
		n := &Node{
			ID:       idFor(KindAction, a.Name),
			Kind:     KindAction,
			Name:     a.Name,
			Type:     a.Type,
			Params:   a.Params,
			PreCond:  a.PreCondition,
			PostCond: a.PostCondition,
		}
		if err := g.addNode(n); err != nil {
			return nil, err
		}
	}

	for _, o := range doc.Outputs {
		val := o.Value
		n := &Node{ID: idFor(KindOutput, o.Name), Kind: KindOutput, Name: o.Name, Value: &val}
		if err := g.addNode(n); err != nil {
			return nil, err
		}
	}

	if err := g.wireEdges(); err != nil {
		return nil, err
	}
	if err := g.topologicalSort(); err != nil {
		return nil, err
	}
	return g, nil
}

// referencedExprs collects every expression embedded in a node that must
// be scanned for references: its parameters, its value, and both
// condition assertions.
func (n *Node) referencedExprs() []expr.Expr {
	var exprs []expr.Expr
	for _, p := range n.Params {
		exprs = append(exprs, p)
	}
	if n.Value != nil {
		exprs = append(exprs, *n.Value)
	}
	if n.PreCond != nil {
		exprs = append(exprs, n.PreCond.Assertion)
	}
	if n.PostCond != nil {
		exprs = append(exprs, n.PostCond.Assertion)
	}
	return exprs
}

// referenceToInstanceID maps a reference path's namespace (e.g. "action",
// "variable", "signer", "input") and leading segment (the instance name)
// to a construction-graph node ID. References with more segments (field
// access on a multi-field output) still resolve to the owning instance.
func referenceToInstanceID(ref refextract.Ref) (string, bool) {
	if len(ref.Path.Segments) == 0 {
		return "", false
	}
	switch ref.Path.Namespace {
	case "action", "signer", "variable", "output", "input":
		return ref.Path.Namespace + "." + ref.Path.Segments[0], true
	default:
		return "", false
	}
}

func (g *Graph) wireEdges() error {
	ids := make([]string, 0, len(g.Nodes))
	for id := range g.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		n := g.Nodes[id]
		for _, e := range n.referencedExprs() {
			for _, ref := range refextract.Extract(e) {
				depID, ok := referenceToInstanceID(ref)
				if !ok {
					continue
				}
				dep, exists := g.Nodes[depID]
				if !exists {
					return txtxerrors.NewReferenceError(n.ID, depID, "reference to unknown instance", nil)
				}
				if dep == n {
					continue
				}
				dep.Dependents = append(dep.Dependents, n)
				n.DependsOn = append(n.DependsOn, dep)
			}
		}
	}
	return nil
}

// topologicalSort computes wave levels using Kahn's algorithm, reporting a
// fully-named cycle on failure rather than a bare detection flag.
func (g *Graph) topologicalSort() error {
	indegree := make(map[string]int, len(g.Nodes))
	for id := range g.Nodes {
		indegree[id] = 0
	}
	for _, n := range g.Nodes {
		for _, dep := range n.Dependents {
			indegree[dep.ID]++
		}
	}

	var queue []string
	for id, deg := range indegree {
		if deg == 0 {
			queue = append(queue, id)
		}
	}
	sort.Strings(queue)

	processed := 0
	var levels [][]string

	for len(queue) > 0 {
		level := append([]string(nil), queue...)
		sort.Strings(level)
		levels = append(levels, level)

		var next []string
		for _, id := range level {
			processed++
			for _, dependent := range g.Nodes[id].Dependents {
				indegree[dependent.ID]--
				if indegree[dependent.ID] == 0 {
					next = append(next, dependent.ID)
				}
			}
		}
		sort.Strings(next)
		queue = next
	}

	if processed != len(g.Nodes) {
		return txtxerrors.NewCycleError(remainingCycleMembers(indegree))
	}

	g.Levels = levels
	return nil
}

func remainingCycleMembers(indegree map[string]int) []string {
	var members []string
	for id, deg := range indegree {
		if deg > 0 {
			members = append(members, id)
		}
	}
	sort.Strings(members)
	return members
}
