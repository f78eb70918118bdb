package scheduler

import (
	"github.com/txtxlabs/txtx/internal/execctx"
	"github.com/txtxlabs/txtx/internal/expr"
	"github.com/txtxlabs/txtx/internal/graph"
	"github.com/txtxlabs/txtx/internal/value"
)

// storeEnv implements expr.Env over the execution context store: a
// reference like action.deploy.tx_hash resolves to output field
// "tx_hash" of instance "action.deploy"; a reference like variable.amount
// (no field segment) resolves to the fixed "value" field every
// variable/output/input node is stored under.
type storeEnv struct {
	store *execctx.Store
}

// ValueField is the fixed output field name used for variable, output,
// and input instances, which hold a single value rather than a named
// record the way a command's outputs do.
const ValueField = "value"

func (e storeEnv) Lookup(path expr.ReferencePath) (value.Value, expr.LookupStatus) {
	if len(path.Segments) == 0 {
		return value.Value{}, expr.LookupMissing
	}
	id := path.Namespace + "." + path.Segments[0]

	field := ValueField
	switch path.Namespace {
	case "action", "signer":
		if len(path.Segments) > 1 {
			field = path.Segments[1]
		} else {
			field = ""
		}
	}

	v, ok := e.store.Output(id, field)
	if !ok {
		return value.Value{}, expr.LookupMissing
	}
	return v, expr.LookupFound
}

// instanceFields returns all param field expressions that must be
// resolved before a node is ready, i.e. everything but pre/post
// condition assertions, which are evaluated separately.
func instanceFields(n *graph.Node) map[string]expr.Expr {
	if n.Value != nil {
		return map[string]expr.Expr{ValueField: *n.Value}
	}
	return n.Params
}
