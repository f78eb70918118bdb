// Package addon defines the capability contract external collaborators
// implement to register commands, signers, and functions under one
// namespace. The engine dispatches to addons polymorphically through this
// interface; it never knows about a concrete addon's type.
package addon

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/txtxlabs/txtx/internal/specs"
)

var namespacePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// Metadata describes an addon's identity.
type Metadata struct {
	Namespace   string
	Version     string
	Description string
}

// Validate ensures metadata is well-formed before an addon is registered.
func (m Metadata) Validate() error {
	if strings.TrimSpace(m.Namespace) == "" {
		return fmt.Errorf("addon metadata requires a non-empty Namespace")
	}
	if !namespacePattern.MatchString(m.Namespace) {
		return fmt.Errorf("addon namespace %q must be lowercase snake_case", m.Namespace)
	}
	if strings.TrimSpace(m.Version) == "" {
		return fmt.Errorf("addon %q metadata requires Version", m.Namespace)
	}
	return nil
}

// Addon is the contract every capability provider implements. Commands(),
// Signers(), and Functions() are called once at startup to populate the
// specification registry; an addon that only provides commands may return
// nil from the other two.
type Addon interface {
	Metadata() Metadata
	Commands() []specs.CommandSpec
	Signers() []specs.SignerSpec
	Functions() map[string]specs.FunctionImpl
}

// RegisterAll validates an addon's metadata and registers every command,
// signer, and function it exposes into reg. Registering a command, signer,
// or function under a namespace::name already taken is a startup error,
// not a silent override; two addons sharing a namespace with disjoint
// names are both accepted.
func RegisterAll(reg *specs.Registry, a Addon) error {
	meta := a.Metadata()
	if err := meta.Validate(); err != nil {
		return err
	}

	for _, cmd := range a.Commands() {
		if cmd.Namespace == "" {
			cmd.Namespace = meta.Namespace
		}
		if err := reg.RegisterCommand(cmd); err != nil {
			return err
		}
	}
	for _, sig := range a.Signers() {
		if sig.Namespace == "" {
			sig.Namespace = meta.Namespace
		}
		if err := reg.RegisterSigner(sig); err != nil {
			return err
		}
	}
	for name, fn := range a.Functions() {
		if err := reg.RegisterFunction(meta.Namespace, name, fn); err != nil {
			return err
		}
	}
	return nil
}
