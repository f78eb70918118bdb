// Package expr implements the expression AST and the two-mode (speculative
// and concrete) evaluator that reduces expressions to values given a
// partial environment.
package expr

import (
	"fmt"

	"github.com/txtxlabs/txtx/internal/value"
)

// Kind tags an expression node.
type Kind int

const (
	KindLiteral Kind = iota
	KindReference
	KindCall
	KindObjectLiteral
	KindArrayLiteral
	KindBinaryOp
	KindConditional
	KindInterpolation
)

// BinaryOperator enumerates the built-in std arithmetic and comparison
// operators, plus the short-circuiting boolean operators.
type BinaryOperator string

const (
	OpAdd           BinaryOperator = "+"
	OpSub           BinaryOperator = "-"
	OpMul           BinaryOperator = "*"
	OpDiv           BinaryOperator = "/"
	OpMod           BinaryOperator = "%"
	OpEq            BinaryOperator = "=="
	OpNeq           BinaryOperator = "!="
	OpLt            BinaryOperator = "<"
	OpLte           BinaryOperator = "<="
	OpGt            BinaryOperator = ">"
	OpGte           BinaryOperator = ">="
	OpAnd           BinaryOperator = "&&"
	OpOr            BinaryOperator = "||"
)

// ReferencePath names a dotted symbolic path, e.g. action.get.status_code.
// Namespace is the leading segment (action, signer, variable, input, env,
// output, flow); the remaining segments address the symbol and field.
type ReferencePath struct {
	Namespace string
	Segments  []string
}

func (p ReferencePath) String() string {
	out := p.Namespace
	for _, s := range p.Segments {
		out += "." + s
	}
	return out
}

// Expr is an expression AST node. Exactly one of the typed fields is
// meaningful, selected by Kind — this mirrors a tagged union without
// requiring a type switch on interface implementations for the common case
// of walking or evaluating a node.
type Expr struct {
	Kind Kind

	Literal value.Value

	Reference ReferencePath

	CallNamespace string
	CallFunction  string
	CallArgs      []Expr

	ObjectFields []ObjectField
	ArrayItems   []Expr

	BinaryOp    BinaryOperator
	BinaryLeft  *Expr
	BinaryRight *Expr

	CondTest *Expr
	CondThen *Expr
	CondElse *Expr

	// InterpolationParts alternates literal string segments and embedded
	// expressions; Interpolation evaluation concatenates their string
	// renderings in order.
	InterpolationParts []InterpolationPart
}

// ObjectField is one field of an object literal expression.
type ObjectField struct {
	Key   string
	Value Expr
}

// InterpolationPart is either a literal string segment or an embedded
// expression inside a template string.
type InterpolationPart struct {
	Literal string
	Expr    *Expr
}

// Literal builds a literal expression node.
func Literal(v value.Value) Expr { return Expr{Kind: KindLiteral, Literal: v} }

// Reference builds a reference-path expression node.
func Reference(path ReferencePath) Expr { return Expr{Kind: KindReference, Reference: path} }

// Call builds a function-call expression node.
func Call(namespace, fn string, args ...Expr) Expr {
	return Expr{Kind: KindCall, CallNamespace: namespace, CallFunction: fn, CallArgs: args}
}

// ObjectLiteral builds an object-literal expression node.
func ObjectLiteral(fields ...ObjectField) Expr {
	return Expr{Kind: KindObjectLiteral, ObjectFields: fields}
}

// ArrayLiteral builds an array-literal expression node.
func ArrayLiteral(items ...Expr) Expr {
	return Expr{Kind: KindArrayLiteral, ArrayItems: items}
}

// Binary builds a binary-operator expression node.
func Binary(op BinaryOperator, left, right Expr) Expr {
	return Expr{Kind: KindBinaryOp, BinaryOp: op, BinaryLeft: &left, BinaryRight: &right}
}

// Conditional builds a ternary conditional expression node.
func Conditional(test, then, els Expr) Expr {
	return Expr{Kind: KindConditional, CondTest: &test, CondThen: &then, CondElse: &els}
}

// Interpolation builds a template-string expression node.
func Interpolation(parts ...InterpolationPart) Expr {
	return Expr{Kind: KindInterpolation, InterpolationParts: parts}
}

func (e Expr) String() string {
	switch e.Kind {
	case KindLiteral:
		return e.Literal.GoString()
	case KindReference:
		return e.Reference.String()
	case KindCall:
		return fmt.Sprintf("%s::%s(...)", e.CallNamespace, e.CallFunction)
	default:
		return "<expr>"
	}
}
