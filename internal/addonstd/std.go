// Package addonstd provides the "util" namespace helpers (registry
// counterparts of the evaluator's inline "std" built-ins), plus a small
// set of first-party addons (repo::clone) shipped with the engine itself.
package addonstd

import (
	"github.com/txtxlabs/txtx/internal/addon"
	"github.com/txtxlabs/txtx/internal/specs"
	"github.com/txtxlabs/txtx/internal/value"
	txtxerrors "github.com/txtxlabs/txtx/pkg/errors"
)

// UtilAddon exposes the std-namespace helper functions under the "util"
// namespace, reachable from runbook expressions as util::concat(...) and
// so on. The "std" namespace itself is reserved for the evaluator's inline
// built-ins and cannot be registered through the addon contract.
type UtilAddon struct{}

func (UtilAddon) Metadata() addon.Metadata {
	return addon.Metadata{Namespace: "util", Version: "1.0.0", Description: "concat/length/not helpers reachable as registry-dispatched functions"}
}

func (UtilAddon) Commands() []specs.CommandSpec { return nil }
func (UtilAddon) Signers() []specs.SignerSpec   { return nil }

func (UtilAddon) Functions() map[string]specs.FunctionImpl {
	out := make(map[string]specs.FunctionImpl, len(Functions()))
	for name, fn := range Functions() {
		out[name] = fn
	}
	return out
}

// Functions returns the helper implementations UtilAddon registers under
// the "util" namespace. They mirror the "std" built-ins the expression
// evaluator handles inline (concat, length, not); std:: calls themselves
// never reach these functions.
func Functions() map[string]func(args []value.Value) (value.Value, error) {
	return map[string]func(args []value.Value) (value.Value, error){
		"concat": concat,
		"length": length,
		"not":    not,
	}
}

func concat(args []value.Value) (value.Value, error) {
	var out string
	for _, a := range args {
		if a.IsUnknown() {
			return value.Unknown(), nil
		}
		s, ok := a.AsString()
		if !ok {
			return value.Value{}, txtxerrors.NewInternalError("concat expects string arguments", nil)
		}
		out += s
	}
	return value.String(out), nil
}

func length(args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return value.Value{}, txtxerrors.NewInternalError("length expects exactly one argument", nil)
	}
	a := args[0]
	if a.IsUnknown() {
		return value.Unknown(), nil
	}
	if a.Kind() == value.KindArray {
		arr, _ := a.AsArray()
		return value.Integer(int64(len(arr))), nil
	}
	s, ok := a.AsString()
	if !ok {
		return value.Value{}, txtxerrors.NewInternalError("length expects a string or array argument", nil)
	}
	return value.Integer(int64(len(s))), nil
}

func not(args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return value.Value{}, txtxerrors.NewInternalError("not expects exactly one argument", nil)
	}
	if args[0].IsUnknown() {
		return value.Unknown(), nil
	}
	b, ok := args[0].AsBool()
	if !ok {
		return value.Value{}, txtxerrors.NewInternalError("not expects a bool argument", nil)
	}
	return value.Bool(!b), nil
}
