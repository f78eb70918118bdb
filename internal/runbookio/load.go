// Package runbookio is a CLI-facing convenience: it decodes a YAML file
// into the typed runbook.Document the construction graph consumes. The
// document grammar itself is out of scope for the engine (spec.md §1);
// this is facade behavior comparable to the teacher's internal/config
// YAML loader, not a general expression parser. A scalar field decodes to
// a literal expr.Expr; a string of the form "${namespace.a.b}" decodes to
// a reference expr.Expr. Anything richer (function calls, arithmetic,
// conditionals) has no textual form here and must be built programmatically.
package runbookio

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/txtxlabs/txtx/internal/expr"
	"github.com/txtxlabs/txtx/internal/runbook"
	"github.com/txtxlabs/txtx/internal/value"
	txtxerrors "github.com/txtxlabs/txtx/pkg/errors"
)

type fileCondition struct {
	Retries   int    `yaml:"retries"`
	BackoffMS int    `yaml:"backoff_ms"`
	Behavior  string `yaml:"behavior"`
	Assertion any    `yaml:"assertion"`
}

type fileAction struct {
	Name          string         `yaml:"name"`
	Type          string         `yaml:"type"`
	Params        map[string]any `yaml:"params"`
	PreCondition  *fileCondition `yaml:"pre_condition"`
	PostCondition *fileCondition `yaml:"post_condition"`
}

type fileSigner struct {
	Name   string         `yaml:"name"`
	Type   string         `yaml:"type"`
	Params map[string]any `yaml:"params"`
}

type fileVariable struct {
	Name        string `yaml:"name"`
	Value       any    `yaml:"value"`
	Description string `yaml:"description"`
	Editable    bool   `yaml:"editable"`
}

type fileOutput struct {
	Name  string `yaml:"name"`
	Value any    `yaml:"value"`
}

type fileInput struct {
	Name        string `yaml:"name"`
	Default     any    `yaml:"default"`
	Description string `yaml:"description"`
}

type fileDocument struct {
	Signers   []fileSigner   `yaml:"signers"`
	Actions   []fileAction   `yaml:"actions"`
	Variables []fileVariable `yaml:"variables"`
	Outputs   []fileOutput   `yaml:"outputs"`
	Inputs    []fileInput    `yaml:"inputs"`
}

// Load reads and decodes one runbook file from path.
func Load(path string) (runbook.Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return runbook.Document{}, txtxerrors.NewInternalError("reading runbook file", err)
	}
	return Parse(raw, path)
}

// Parse decodes raw YAML bytes into a runbook.Document, attributing
// diagnostics to path.
func Parse(raw []byte, path string) (runbook.Document, error) {
	var fd fileDocument
	if err := yaml.Unmarshal(raw, &fd); err != nil {
		return runbook.Document{}, txtxerrors.NewSyntaxError(path, 0, err)
	}

	loc := runbook.Location{File: path}
	doc := runbook.Document{}

	for _, s := range fd.Signers {
		doc.Signers = append(doc.Signers, runbook.SignerBlock{
			Name: s.Name, Type: s.Type, Params: paramsToExprs(s.Params), Location: loc,
		})
	}

	for _, a := range fd.Actions {
		doc.Actions = append(doc.Actions, runbook.ActionBlock{
			Name:          a.Name,
			Type:          a.Type,
			Params:        paramsToExprs(a.Params),
			PreCondition:  toPreCondition(a.PreCondition),
			PostCondition: toPostCondition(a.PostCondition),
			Location:      loc,
		})
	}

	for _, v := range fd.Variables {
		doc.Variables = append(doc.Variables, runbook.VariableBlock{
			Name: v.Name, Value: toExpr(v.Value), Description: v.Description, Editable: v.Editable, Location: loc,
		})
	}

	for _, o := range fd.Outputs {
		doc.Outputs = append(doc.Outputs, runbook.OutputBlock{
			Name: o.Name, Value: toExpr(o.Value), Location: loc,
		})
	}

	for _, in := range fd.Inputs {
		ib := runbook.InputBlock{Name: in.Name, Description: in.Description, Location: loc}
		if in.Default != nil {
			e := toExpr(in.Default)
			ib.Default = &e
		}
		doc.Inputs = append(doc.Inputs, ib)
	}

	return doc, nil
}

func paramsToExprs(params map[string]any) map[string]expr.Expr {
	if len(params) == 0 {
		return nil
	}
	out := make(map[string]expr.Expr, len(params))
	for k, v := range params {
		out[k] = toExpr(v)
	}
	return out
}

func toPreCondition(fc *fileCondition) *runbook.PreCondition {
	if fc == nil {
		return nil
	}
	return &runbook.PreCondition{
		Behavior:  runbook.ConditionBehavior(fc.Behavior),
		Assertion: toExpr(fc.Assertion),
	}
}

func toPostCondition(fc *fileCondition) *runbook.PostCondition {
	if fc == nil {
		return nil
	}
	return &runbook.PostCondition{
		Retries:   fc.Retries,
		BackoffMS: fc.BackoffMS,
		Behavior:  runbook.ConditionBehavior(fc.Behavior),
		Assertion: toExpr(fc.Assertion),
	}
}

// toExpr converts one decoded YAML scalar/sequence/mapping into an
// expression: a "${namespace.a.b}" string becomes a reference, anything
// else becomes a literal value built structurally from the decoded tree.
func toExpr(v any) expr.Expr {
	if s, ok := v.(string); ok {
		if path, ok := parseReference(s); ok {
			return expr.Reference(path)
		}
	}
	return expr.Literal(toValue(v))
}

func parseReference(s string) (expr.ReferencePath, bool) {
	if !strings.HasPrefix(s, "${") || !strings.HasSuffix(s, "}") {
		return expr.ReferencePath{}, false
	}
	inner := strings.TrimSuffix(strings.TrimPrefix(s, "${"), "}")
	parts := strings.Split(inner, ".")
	if len(parts) < 1 || parts[0] == "" {
		return expr.ReferencePath{}, false
	}
	return expr.ReferencePath{Namespace: parts[0], Segments: parts[1:]}, true
}

func toValue(v any) value.Value {
	switch t := v.(type) {
	case nil:
		return value.Null()
	case bool:
		return value.Bool(t)
	case int:
		return value.Integer(int64(t))
	case int64:
		return value.Integer(t)
	case float64:
		if t == float64(int64(t)) {
			return value.Integer(int64(t))
		}
		return value.Float(t)
	case string:
		return value.String(t)
	case []any:
		items := make([]value.Value, len(t))
		for i, e := range t {
			items[i] = toValue(e)
		}
		return value.Array(items)
	case map[string]any:
		b := value.NewObject()
		for k, e := range t {
			b.Set(k, toValue(e))
		}
		return b.Build()
	default:
		return value.String(fmt.Sprintf("%v", t))
	}
}
