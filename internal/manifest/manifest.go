// Package manifest loads and validates the workspace manifest: the YAML
// document naming which runbooks a workspace exposes and how their inputs
// resolve per environment.
package manifest

import (
	"fmt"
	"os"

	"dario.cat/mergo"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	txtxerrors "github.com/txtxlabs/txtx/pkg/errors"
)

// RunbookRef names one runbook exposed by the workspace.
type RunbookRef struct {
	Name        string `yaml:"name" validate:"required"`
	Location    string `yaml:"location" validate:"required"`
	Description string `yaml:"description,omitempty"`
}

// InputOverrides is a flat name-to-literal-string map, the lowest-level
// representation a manifest can express; higher layers coerce these
// against a runbook's declared input types.
type InputOverrides map[string]string

// Environment is one named deployment target. Fields left unset fall back
// to Global then Defaults, in that merge order (§ manifest environment
// inheritance).
type Environment struct {
	Inputs  InputOverrides `yaml:"inputs,omitempty"`
	Signers map[string]InputOverrides `yaml:"signers,omitempty"`
}

// Manifest is the full workspace document.
type Manifest struct {
	Name        string                 `yaml:"name" validate:"required,min=1,max=100"`
	Description string                 `yaml:"description,omitempty"`
	Runbooks    []RunbookRef           `yaml:"runbooks" validate:"required,min=1,dive"`
	Global      Environment            `yaml:"global,omitempty"`
	Defaults    Environment            `yaml:"defaults,omitempty"`
	Environments map[string]Environment `yaml:"environments,omitempty" validate:"omitempty,dive"`
}

var validatorInstance = validator.New(validator.WithRequiredStructEnabled())

// Load reads and validates a manifest file at path.
func Load(path string) (*Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, txtxerrors.NewInternalError(fmt.Sprintf("reading manifest %q", path), err)
	}
	return Parse(raw, path)
}

// Parse validates and decodes manifest bytes. path is used only for
// diagnostic messages.
func Parse(raw []byte, path string) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, txtxerrors.NewSyntaxError(path, 0, err)
	}

	if err := validatorInstance.Struct(&m); err != nil {
		return nil, txtxerrors.NewSyntaxError(path, 0, fmt.Errorf("manifest failed validation: %w", err))
	}

	seen := make(map[string]struct{}, len(m.Runbooks))
	for _, rb := range m.Runbooks {
		if _, dup := seen[rb.Name]; dup {
			return nil, txtxerrors.NewReferenceError(rb.Name, path, "duplicate runbook name in manifest", nil)
		}
		seen[rb.Name] = struct{}{}
	}

	return &m, nil
}

// RunbookByName finds a runbook reference by name.
func (m *Manifest) RunbookByName(name string) (RunbookRef, bool) {
	for _, rb := range m.Runbooks {
		if rb.Name == name {
			return rb, true
		}
	}
	return RunbookRef{}, false
}

// ResolveEnvironment merges Global, Defaults, and the named environment (in
// that order, later entries winning on conflicting keys) into one effective
// Environment. An empty envName resolves to Global merged with Defaults
// alone.
func (m *Manifest) ResolveEnvironment(envName string) (Environment, error) {
	resolved := Environment{
		Inputs:  InputOverrides{},
		Signers: map[string]InputOverrides{},
	}

	layers := []Environment{m.Global, m.Defaults}
	if envName != "" {
		env, ok := m.Environments[envName]
		if !ok {
			return Environment{}, txtxerrors.NewReferenceError(envName, "", "unknown environment", nil)
		}
		layers = append(layers, env)
	}

	for _, layer := range layers {
		if err := mergeEnvironment(&resolved, layer); err != nil {
			return Environment{}, txtxerrors.NewInternalError("merging environment layers", err)
		}
	}
	return resolved, nil
}

func mergeEnvironment(dst *Environment, src Environment) error {
	if err := mergo.Merge(&dst.Inputs, src.Inputs, mergo.WithOverride); err != nil {
		return err
	}
	if dst.Signers == nil {
		dst.Signers = map[string]InputOverrides{}
	}
	for signerName, overrides := range src.Signers {
		existing := dst.Signers[signerName]
		if existing == nil {
			existing = InputOverrides{}
		}
		if err := mergo.Merge(&existing, overrides, mergo.WithOverride); err != nil {
			return err
		}
		dst.Signers[signerName] = existing
	}
	return nil
}

// ApplyCLIOverrides layers command-line --input flags on top of a resolved
// environment. Any key that shadows an environment-provided value is
// reported so the caller can warn the operator (§ manifest precedence).
func ApplyCLIOverrides(env Environment, cliInputs InputOverrides) (Environment, []string) {
	var shadowed []string
	if env.Inputs == nil {
		env.Inputs = InputOverrides{}
	}
	for k, v := range cliInputs {
		if _, exists := env.Inputs[k]; exists {
			shadowed = append(shadowed, k)
		}
		env.Inputs[k] = v
	}
	return env, shadowed
}
