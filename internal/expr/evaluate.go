package expr

import (
	"fmt"
	"math/big"

	"github.com/txtxlabs/txtx/internal/value"
	txtxerrors "github.com/txtxlabs/txtx/pkg/errors"
)

// Mode selects between the engine's two evaluation passes.
type Mode int

const (
	// ModeSpeculative never invokes commands and downgrades references to
	// missing symbols to Unknown rather than erroring.
	ModeSpeculative Mode = iota
	// ModeConcrete promotes a missing-symbol reference to a hard error.
	ModeConcrete
)

// LookupStatus reports whether an environment recognises a reference path.
type LookupStatus int

const (
	// LookupFound means the symbol exists; its value may still be Unknown.
	LookupFound LookupStatus = iota
	// LookupMissing means no such symbol is declared anywhere in scope.
	LookupMissing
)

// Env resolves reference paths against the current partial environment:
// variable.*, input.*, env.*, action.*.*, signer.*.*, flow.*.*, output.*.
type Env interface {
	Lookup(path ReferencePath) (value.Value, LookupStatus)
}

// FunctionRegistry dispatches namespace::name calls to addon-provided
// functions. The std namespace (arithmetic, comparison) is handled by the
// evaluator directly and never reaches this interface.
type FunctionRegistry interface {
	Call(namespace, name string, args []value.Value) (value.Value, error)
}

// deferredErr marks a reference to a symbol missing from scope entirely.
// It is the only error the evaluator treats specially across modes: in
// ModeSpeculative it is swallowed into Unknown, in ModeConcrete it becomes
// a hard error.
type deferredErr struct {
	path ReferencePath
}

func (d *deferredErr) Error() string {
	return fmt.Sprintf("undefined symbol %q", d.path.String())
}

// Evaluate reduces expr to a value given env and funcs. A nil error with a
// returned Unknown value means the result genuinely cannot be computed yet;
// diagnostics are informational only for deferred-reference downgrades (they
// carry no message in ModeSpeculative and are omitted), matching the
// contract that "if any lookup returns Unknown, the result is Unknown with
// no diagnostic."
func Evaluate(e Expr, env Env, funcs FunctionRegistry, mode Mode) (value.Value, []txtxerrors.Diagnostic, error) {
	switch e.Kind {
	case KindLiteral:
		return e.Literal, nil, nil

	case KindReference:
		v, status := env.Lookup(e.Reference)
		if status == LookupMissing {
			return evalDeferred(e.Reference, mode)
		}
		return v, nil, nil

	case KindCall:
		return evalCall(e, env, funcs, mode)

	case KindObjectLiteral:
		return evalObject(e, env, funcs, mode)

	case KindArrayLiteral:
		return evalArray(e, env, funcs, mode)

	case KindBinaryOp:
		return evalBinary(e, env, funcs, mode)

	case KindConditional:
		return evalConditional(e, env, funcs, mode)

	case KindInterpolation:
		return evalInterpolation(e, env, funcs, mode)

	default:
		return value.Value{}, nil, txtxerrors.NewInternalError(fmt.Sprintf("unhandled expression kind %d", e.Kind), nil)
	}
}

func evalDeferred(path ReferencePath, mode Mode) (value.Value, []txtxerrors.Diagnostic, error) {
	if mode == ModeSpeculative {
		return value.Unknown(), nil, nil
	}
	err := txtxerrors.NewReferenceError("", path.String(), fmt.Sprintf("undefined symbol %q", path.String()), &deferredErr{path: path})
	diag := txtxerrors.DiagnosticFromError(err, "")
	return value.Value{}, []txtxerrors.Diagnostic{diag}, err
}

func evalCall(e Expr, env Env, funcs FunctionRegistry, mode Mode) (value.Value, []txtxerrors.Diagnostic, error) {
	args := make([]value.Value, 0, len(e.CallArgs))
	var diags []txtxerrors.Diagnostic
	anyUnknown := false

	for _, argExpr := range e.CallArgs {
		v, d, err := Evaluate(argExpr, env, funcs, mode)
		diags = append(diags, d...)
		if err != nil {
			return value.Value{}, diags, err
		}
		if v.IsUnknown() {
			anyUnknown = true
		}
		args = append(args, v)
	}

	if anyUnknown {
		return value.Unknown(), diags, nil
	}

	if e.CallNamespace == "std" {
		v, err := callStd(e.CallFunction, args)
		return v, diags, err
	}

	if funcs == nil {
		return value.Value{}, diags, txtxerrors.NewReferenceError("", e.CallNamespace+"::"+e.CallFunction, "no function registry configured", nil)
	}

	v, err := funcs.Call(e.CallNamespace, e.CallFunction, args)
	if err != nil {
		return value.Value{}, diags, err
	}
	return v, diags, nil
}

func evalObject(e Expr, env Env, funcs FunctionRegistry, mode Mode) (value.Value, []txtxerrors.Diagnostic, error) {
	b := value.NewObject()
	var diags []txtxerrors.Diagnostic
	anyUnknown := false

	for _, f := range e.ObjectFields {
		v, d, err := Evaluate(f.Value, env, funcs, mode)
		diags = append(diags, d...)
		if err != nil {
			return value.Value{}, diags, err
		}
		if v.IsUnknown() {
			anyUnknown = true
		}
		b.Set(f.Key, v)
	}

	if anyUnknown {
		return value.Unknown(), diags, nil
	}
	return b.Build(), diags, nil
}

func evalArray(e Expr, env Env, funcs FunctionRegistry, mode Mode) (value.Value, []txtxerrors.Diagnostic, error) {
	items := make([]value.Value, 0, len(e.ArrayItems))
	var diags []txtxerrors.Diagnostic
	anyUnknown := false

	for _, itemExpr := range e.ArrayItems {
		v, d, err := Evaluate(itemExpr, env, funcs, mode)
		diags = append(diags, d...)
		if err != nil {
			return value.Value{}, diags, err
		}
		if v.IsUnknown() {
			anyUnknown = true
		}
		items = append(items, v)
	}

	if anyUnknown {
		return value.Unknown(), diags, nil
	}
	return value.Array(items), diags, nil
}

func evalBinary(e Expr, env Env, funcs FunctionRegistry, mode Mode) (value.Value, []txtxerrors.Diagnostic, error) {
	if e.BinaryOp == OpAnd || e.BinaryOp == OpOr {
		return evalShortCircuit(e, env, funcs, mode)
	}

	lv, ldiags, lerr := Evaluate(*e.BinaryLeft, env, funcs, mode)
	if lerr != nil {
		return value.Value{}, ldiags, lerr
	}
	rv, rdiags, rerr := Evaluate(*e.BinaryRight, env, funcs, mode)
	diags := append(ldiags, rdiags...)
	if rerr != nil {
		return value.Value{}, diags, rerr
	}

	if lv.IsUnknown() || rv.IsUnknown() {
		return value.Unknown(), diags, nil
	}

	v, err := applyBinary(e.BinaryOp, lv, rv)
	return v, diags, err
}

// evalShortCircuit implements && and || so that an unknown (or erroring) on
// the unused branch never taints a result that the other, determinative
// branch already fixed.
func evalShortCircuit(e Expr, env Env, funcs FunctionRegistry, mode Mode) (value.Value, []txtxerrors.Diagnostic, error) {
	determinative := false // the value that short-circuits: false for &&, true for ||
	if e.BinaryOp == OpOr {
		determinative = true
	}

	lv, ldiags, lerr := Evaluate(*e.BinaryLeft, env, funcs, mode)
	if lerr == nil && !lv.IsUnknown() {
		if lb, ok := lv.AsBool(); ok && lb == determinative {
			return value.Bool(determinative), nil, nil
		}
	}

	rv, rdiags, rerr := Evaluate(*e.BinaryRight, env, funcs, mode)
	if rerr == nil && !rv.IsUnknown() {
		if rb, ok := rv.AsBool(); ok && rb == determinative {
			return value.Bool(determinative), nil, nil
		}
	}

	diags := append(ldiags, rdiags...)
	if lerr != nil {
		return value.Value{}, diags, lerr
	}
	if rerr != nil {
		return value.Value{}, diags, rerr
	}
	if lv.IsUnknown() || rv.IsUnknown() {
		return value.Unknown(), diags, nil
	}

	lb, lok := lv.AsBool()
	rb, rok := rv.AsBool()
	if !lok || !rok {
		return value.Value{}, diags, txtxerrors.NewTypeError("", "bool", "", fmt.Sprintf("%s requires bool operands", e.BinaryOp))
	}
	if e.BinaryOp == OpAnd {
		return value.Bool(lb && rb), diags, nil
	}
	return value.Bool(lb || rb), diags, nil
}

func evalConditional(e Expr, env Env, funcs FunctionRegistry, mode Mode) (value.Value, []txtxerrors.Diagnostic, error) {
	tv, tdiags, terr := Evaluate(*e.CondTest, env, funcs, mode)
	if terr != nil {
		return value.Value{}, tdiags, terr
	}
	if tv.IsUnknown() {
		return value.Unknown(), tdiags, nil
	}

	tb, ok := tv.AsBool()
	if !ok {
		return value.Value{}, tdiags, txtxerrors.NewTypeError("", "bool", TypeName(tv), "conditional test must be bool")
	}

	if tb {
		v, d, err := Evaluate(*e.CondThen, env, funcs, mode)
		return v, append(tdiags, d...), err
	}
	v, d, err := Evaluate(*e.CondElse, env, funcs, mode)
	return v, append(tdiags, d...), err
}

func evalInterpolation(e Expr, env Env, funcs FunctionRegistry, mode Mode) (value.Value, []txtxerrors.Diagnostic, error) {
	var diags []txtxerrors.Diagnostic
	out := ""
	for _, part := range e.InterpolationParts {
		if part.Expr == nil {
			out += part.Literal
			continue
		}
		v, d, err := Evaluate(*part.Expr, env, funcs, mode)
		diags = append(diags, d...)
		if err != nil {
			return value.Value{}, diags, err
		}
		if v.IsUnknown() {
			return value.Unknown(), diags, nil
		}
		out += renderString(v)
	}
	return value.String(out), diags, nil
}

func renderString(v value.Value) string {
	if s, ok := v.AsString(); ok {
		return s
	}
	return v.GoString()
}

// TypeName is a small diagnostics helper used outside this package too.
func TypeName(v value.Value) string {
	return value.TypeOf(v).String()
}

func applyBinary(op BinaryOperator, l, r value.Value) (value.Value, error) {
	switch op {
	case OpEq:
		return value.Bool(value.Equal(l, r)), nil
	case OpNeq:
		return value.Bool(!value.Equal(l, r)), nil
	}

	if isNumeric(l) && isNumeric(r) {
		return applyNumericBinary(op, l, r)
	}

	if op == OpAdd {
		ls, lok := l.AsString()
		rs, rok := r.AsString()
		if lok && rok {
			return value.String(ls + rs), nil
		}
	}

	return value.Value{}, txtxerrors.NewTypeError("", "numeric", fmt.Sprintf("%s, %s", value.TypeOf(l), value.TypeOf(r)), fmt.Sprintf("operator %s not defined for these operand types", op))
}

func isNumeric(v value.Value) bool {
	switch v.Kind() {
	case value.KindInteger, value.KindUnsignedInteger, value.KindFloat:
		return true
	default:
		return false
	}
}

func applyNumericBinary(op BinaryOperator, l, r value.Value) (value.Value, error) {
	if l.Kind() == value.KindFloat || r.Kind() == value.KindFloat {
		lf := toFloat(l)
		rf := toFloat(r)
		switch op {
		case OpAdd:
			return value.Float(lf + rf), nil
		case OpSub:
			return value.Float(lf - rf), nil
		case OpMul:
			return value.Float(lf * rf), nil
		case OpDiv:
			if rf == 0 {
				return value.Value{}, txtxerrors.NewTypeError("", "", "", "division by zero")
			}
			return value.Float(lf / rf), nil
		case OpLt:
			return value.Bool(lf < rf), nil
		case OpLte:
			return value.Bool(lf <= rf), nil
		case OpGt:
			return value.Bool(lf > rf), nil
		case OpGte:
			return value.Bool(lf >= rf), nil
		}
		return value.Value{}, txtxerrors.NewTypeError("", "", "", fmt.Sprintf("operator %s not defined for float", op))
	}

	// Mixing signed and unsigned integers requires explicit coercion.
	if l.Kind() != r.Kind() {
		return value.Value{}, txtxerrors.NewTypeError("", value.TypeOf(l).String(), value.TypeOf(r).String(), "arithmetic on signed/unsigned mixes requires explicit coercion")
	}

	li := toBigInt(l)
	ri := toBigInt(r)
	unsigned := l.Kind() == value.KindUnsignedInteger

	switch op {
	case OpAdd:
		return wrapInt(new(big.Int).Add(li, ri), unsigned), nil
	case OpSub:
		return wrapInt(new(big.Int).Sub(li, ri), unsigned), nil
	case OpMul:
		return wrapInt(new(big.Int).Mul(li, ri), unsigned), nil
	case OpDiv:
		if ri.Sign() == 0 {
			return value.Value{}, txtxerrors.NewTypeError("", "", "", "division by zero")
		}
		return wrapInt(new(big.Int).Quo(li, ri), unsigned), nil
	case OpMod:
		if ri.Sign() == 0 {
			return value.Value{}, txtxerrors.NewTypeError("", "", "", "modulo by zero")
		}
		return wrapInt(new(big.Int).Rem(li, ri), unsigned), nil
	case OpLt:
		return value.Bool(li.Cmp(ri) < 0), nil
	case OpLte:
		return value.Bool(li.Cmp(ri) <= 0), nil
	case OpGt:
		return value.Bool(li.Cmp(ri) > 0), nil
	case OpGte:
		return value.Bool(li.Cmp(ri) >= 0), nil
	}

	return value.Value{}, txtxerrors.NewTypeError("", "", "", fmt.Sprintf("operator %s not defined for integers", op))
}

func wrapInt(i *big.Int, unsigned bool) value.Value {
	if unsigned {
		return value.UnsignedIntegerBig(i)
	}
	return value.IntegerBig(i)
}

func toBigInt(v value.Value) *big.Int {
	if i, ok := v.AsInteger(); ok {
		return i
	}
	if u, ok := v.AsUnsignedInteger(); ok {
		return u
	}
	return big.NewInt(0)
}

func toFloat(v value.Value) float64 {
	if f, ok := v.AsFloat(); ok {
		return f
	}
	i := toBigInt(v)
	f := new(big.Float).SetInt(i)
	f64, _ := f.Float64()
	return f64
}

func callStd(name string, args []value.Value) (value.Value, error) {
	switch name {
	case "concat":
		out := ""
		for _, a := range args {
			out += renderString(a)
		}
		return value.String(out), nil
	case "length":
		if len(args) != 1 {
			return value.Value{}, txtxerrors.NewTypeError("", "1 argument", fmt.Sprintf("%d", len(args)), "std::length takes one argument")
		}
		if arr, ok := args[0].AsArray(); ok {
			return value.Integer(int64(len(arr))), nil
		}
		if s, ok := args[0].AsString(); ok {
			return value.Integer(int64(len(s))), nil
		}
		return value.Value{}, txtxerrors.NewTypeError("", "array or string", value.TypeOf(args[0]).String(), "std::length requires an array or string")
	case "not":
		if len(args) != 1 {
			return value.Value{}, txtxerrors.NewTypeError("", "1 argument", fmt.Sprintf("%d", len(args)), "std::not takes one argument")
		}
		b, ok := args[0].AsBool()
		if !ok {
			return value.Value{}, txtxerrors.NewTypeError("", "bool", value.TypeOf(args[0]).String(), "std::not requires a bool")
		}
		return value.Bool(!b), nil
	default:
		return value.Value{}, txtxerrors.NewReferenceError("", "std::"+name, "unknown std function", nil)
	}
}
