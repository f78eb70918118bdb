package specs

import (
	"fmt"
	"sort"
	"sync"

	"github.com/txtxlabs/txtx/internal/value"
	txtxerrors "github.com/txtxlabs/txtx/pkg/errors"
)

// Registry is the process-wide table of command and signer specifications,
// keyed by "namespace::name". It is populated at startup by enumerating
// addons and is read-only once construction begins; the scheduler calls
// into it polymorphically but never by inheritance.
type Registry struct {
	mu        sync.RWMutex
	commands  map[string]CommandSpec
	signers   map[string]SignerSpec
	functions map[string]FunctionImpl
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		commands:  make(map[string]CommandSpec),
		signers:   make(map[string]SignerSpec),
		functions: make(map[string]FunctionImpl),
	}
}

// RegisterCommand adds a command specification. A namespace::name
// collision with another command is a startup error; commands and signers
// are keyed separately, so a signer of the same name does not collide.
func (r *Registry) RegisterCommand(spec CommandSpec) error {
	if spec.Namespace == "" || spec.Name == "" {
		return txtxerrors.NewInternalError("command spec requires namespace and name", nil)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := spec.QualifiedName()
	if _, exists := r.commands[key]; exists {
		return txtxerrors.NewInternalError(fmt.Sprintf("command %q already registered", key), nil)
	}
	r.commands[key] = spec
	return nil
}

// RegisterSigner adds a signer specification.
func (r *Registry) RegisterSigner(spec SignerSpec) error {
	if spec.Namespace == "" || spec.Name == "" {
		return txtxerrors.NewInternalError("signer spec requires namespace and name", nil)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := spec.QualifiedName()
	if _, exists := r.signers[key]; exists {
		return txtxerrors.NewInternalError(fmt.Sprintf("signer %q already registered", key), nil)
	}
	r.signers[key] = spec
	return nil
}

// RegisterFunction adds an addon-provided function reachable from
// expressions as namespace::name(...).
func (r *Registry) RegisterFunction(namespace, name string, fn FunctionImpl) error {
	if namespace == "std" {
		return txtxerrors.NewInternalError("the std namespace is reserved for built-in functions", nil)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := namespace + "::" + name
	if _, exists := r.functions[key]; exists {
		return txtxerrors.NewInternalError(fmt.Sprintf("function %q already registered", key), nil)
	}
	r.functions[key] = fn
	return nil
}

// LookupCommand finds a command specification by namespace and name.
func (r *Registry) LookupCommand(namespace, name string) (CommandSpec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	spec, ok := r.commands[namespace+"::"+name]
	return spec, ok
}

// LookupSigner finds a signer specification by namespace and name.
func (r *Registry) LookupSigner(namespace, name string) (SignerSpec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	spec, ok := r.signers[namespace+"::"+name]
	return spec, ok
}

// LookupFunction finds an addon-provided function.
func (r *Registry) LookupFunction(namespace, name string) (FunctionImpl, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.functions[namespace+"::"+name]
	return fn, ok
}

// ListCommandsByNamespace returns every command registered under a
// namespace, sorted by name for deterministic output.
func (r *Registry) ListCommandsByNamespace(namespace string) []CommandSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []CommandSpec
	for _, spec := range r.commands {
		if spec.Namespace == namespace {
			out = append(out, spec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Call implements expr.FunctionRegistry, dispatching namespace::name calls
// to the addon-provided function registered under that key.
func (r *Registry) Call(namespace, name string, args []value.Value) (value.Value, error) {
	fn, ok := r.LookupFunction(namespace, name)
	if !ok {
		return value.Value{}, txtxerrors.NewReferenceError("", namespace+"::"+name, "unknown function", nil)
	}
	return fn(args)
}
