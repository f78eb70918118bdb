package main

import (
	"math/big"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/txtxlabs/txtx/internal/flow"
	"github.com/txtxlabs/txtx/internal/manifest"
	"github.com/txtxlabs/txtx/internal/runbook"
	"github.com/txtxlabs/txtx/internal/runbookio"
	"github.com/txtxlabs/txtx/internal/value"
	txtxerrors "github.com/txtxlabs/txtx/pkg/errors"
)

// runRequest names everything one invocation needs to load a runbook and
// resolve its environment-scoped inputs, independent of whether the
// caller is plan, apply, validate, or replay.
type runRequest struct {
	WorkspacePath string
	RunbookName   string
	Environment   string
	CLIInputs     manifest.InputOverrides
}

// loadedRunbook is the fully resolved, flow-expanded document plus the
// merged input overrides ready to seed into the execution context.
type loadedRunbook struct {
	Manifest *manifest.Manifest
	Ref      manifest.RunbookRef
	Doc      runbook.Document
	Inputs   manifest.InputOverrides
	Shadowed []string
}

func loadWorkspace(req runRequest) (*loadedRunbook, error) {
	m, err := manifest.Load(req.WorkspacePath)
	if err != nil {
		return nil, err
	}

	ref, ok := m.RunbookByName(req.RunbookName)
	if !ok {
		return nil, txtxerrors.NewReferenceError(req.RunbookName, req.WorkspacePath, "no such runbook in workspace manifest", nil)
	}

	env, err := m.ResolveEnvironment(req.Environment)
	if err != nil {
		return nil, err
	}
	env, shadowed := manifest.ApplyCLIOverrides(env, req.CLIInputs)

	runbookPath := ref.Location
	if !filepath.IsAbs(runbookPath) {
		runbookPath = filepath.Join(filepath.Dir(req.WorkspacePath), runbookPath)
	}

	doc, err := runbookio.Load(runbookPath)
	if err != nil {
		return nil, err
	}

	invocations := flowInvocationsFrom(doc)
	doc, err = flow.Expand(stripFlowInvocations(doc), invocations)
	if err != nil {
		return nil, err
	}

	return &loadedRunbook{Manifest: m, Ref: ref, Doc: doc, Inputs: env.Inputs, Shadowed: shadowed}, nil
}

// flowInvocationsFrom scans for action blocks naming a flow ("flow::name")
// rather than an addon command and turns them into flow.Invocation
// requests. It leaves doc unchanged; stripFlowInvocations removes those
// placeholders from the top-level actions, since the registry has no
// command to look up for them.
func flowInvocationsFrom(doc runbook.Document) []flow.Invocation {
	var invocations []flow.Invocation
	for _, a := range doc.Actions {
		namespace, name, ok := strings.Cut(a.Type, "::")
		if !ok || namespace != "flow" {
			continue
		}
		invocations = append(invocations, flow.Invocation{
			InstanceName: a.Name,
			FlowName:     name,
			Bindings:     a.Params,
		})
	}
	return invocations
}

func stripFlowInvocations(doc runbook.Document) runbook.Document {
	actions := doc.Actions[:0:0]
	for _, a := range doc.Actions {
		if strings.HasPrefix(a.Type, "flow::") {
			continue
		}
		actions = append(actions, a)
	}
	doc.Actions = actions
	return doc
}

// coerceInputOverrides converts a manifest's flat string overrides into
// typed values ready to seed into the execution context. A CLI or manifest
// override is always text, so this parses by the input's declared type
// rather than calling value.Coerce, which only performs lossless
// same-kind widening, not string parsing; an override that does not parse
// as its declared type is kept as a string and left for the evaluator to
// reject at reference time.
func coerceInputOverrides(doc runbook.Document, overrides manifest.InputOverrides) map[string]value.Value {
	declared := make(map[string]value.Type, len(doc.Inputs))
	for _, in := range doc.Inputs {
		declared[in.Name] = in.Type
	}

	out := make(map[string]value.Value, len(overrides))
	for name, raw := range overrides {
		t, ok := declared[name]
		if !ok {
			out[name] = value.String(raw)
			continue
		}
		out[name] = parseOverride(raw, t)
	}
	return out
}

func parseOverride(raw string, t value.Type) value.Value {
	switch t.Kind {
	case value.TypeBool:
		if b, err := strconv.ParseBool(raw); err == nil {
			return value.Bool(b)
		}
	case value.TypeInteger:
		if i, ok := new(big.Int).SetString(raw, 10); ok {
			return value.IntegerBig(i)
		}
	case value.TypeUnsignedInteger:
		if i, ok := new(big.Int).SetString(raw, 10); ok && i.Sign() >= 0 {
			return value.UnsignedIntegerBig(i)
		}
	case value.TypeFloat:
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return value.Float(f)
		}
	}
	return value.String(raw)
}
