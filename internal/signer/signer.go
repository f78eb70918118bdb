// Package signer coordinates signer lifecycle: activation, lease-based
// exclusive access, and sequential activation of composite (multi-sig)
// signers over their members.
package signer

import (
	"context"
	"sort"
	"sync"

	"github.com/txtxlabs/txtx/internal/specs"
	"github.com/txtxlabs/txtx/internal/value"
	txtxerrors "github.com/txtxlabs/txtx/pkg/errors"
)

// LifecyclePhase is where a signer instance sits in its activation
// lifecycle.
type LifecyclePhase string

const (
	PhaseDeclared   LifecyclePhase = "declared"
	PhaseActivating LifecyclePhase = "activating"
	PhaseActivated  LifecyclePhase = "activated"
	PhaseTerminated LifecyclePhase = "terminated"
)

// instance tracks one signer's runtime state.
type instance struct {
	spec  specs.SignerSpec
	phase LifecyclePhase
	state specs.SignerState
	held  bool // true while a lease is checked out
}

// Coordinator owns every signer instance declared in a runbook and
// arbitrates exclusive access: only one in-flight operation may hold a
// given signer's lease at a time, since most signing backends (hardware
// wallets, remote custodians) are not safe for concurrent use.
type Coordinator struct {
	mu        sync.Mutex
	cond      *sync.Cond
	instances map[string]*instance
}

// New returns a coordinator with no signers registered yet.
func New() *Coordinator {
	c := &Coordinator{instances: make(map[string]*instance)}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// Declare registers a signer instance under name, backed by spec.
func (c *Coordinator) Declare(name string, spec specs.SignerSpec) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.instances[name]; exists {
		return txtxerrors.NewInternalError("signer "+name+" already declared", nil)
	}
	c.instances[name] = &instance{spec: spec, phase: PhaseDeclared}
	return nil
}

// Lease blocks until the named signer's exclusive lease is available, then
// checks it out. The caller must call Release when done.
func (c *Coordinator) Lease(ctx context.Context, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	inst, ok := c.instances[name]
	if !ok {
		return txtxerrors.NewReferenceError(name, "", "unknown signer", nil)
	}

	if inst.held {
		// cond.Wait only wakes on Broadcast/Signal, which Release triggers
		// but ctx cancellation does not; this goroutine rebroadcasts once
		// ctx is done so a cancelled waiter re-checks and exits.
		stop := make(chan struct{})
		defer close(stop)
		go func() {
			select {
			case <-ctx.Done():
				c.mu.Lock()
				c.cond.Broadcast()
				c.mu.Unlock()
			case <-stop:
			}
		}()
	}

	for inst.held {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.cond.Wait()
	}
	inst.held = true
	return nil
}

// Release returns the named signer's lease, waking any waiters.
func (c *Coordinator) Release(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if inst, ok := c.instances[name]; ok {
		inst.held = false
	}
	c.cond.Broadcast()
}

// ResetToDeclared returns every signer to its declared, unleased,
// unactivated state and wakes any lease waiters. A rewind invalidates
// whatever activation state a signer accumulated past the restored tick,
// so the wave loop must reactivate reached signers from scratch rather
// than resume with stale session state.
func (c *Coordinator) ResetToDeclared() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, inst := range c.instances {
		inst.phase = PhaseDeclared
		inst.state = specs.SignerState{}
		inst.held = false
	}
	c.cond.Broadcast()
}

// Activate runs a signer's (and, for composites, every member's) Activate
// function in sequence, recording the result. Composite members activate
// one at a time in sorted name order, not concurrently — a wallet confirming a
// multi-sig threshold typically prompts the operator once per member and
// the prompts must not interleave.
func (c *Coordinator) Activate(ctx context.Context, name string, inputs map[string]value.Value, progress specs.ProgressSink) error {
	c.mu.Lock()
	inst, ok := c.instances[name]
	if !ok {
		c.mu.Unlock()
		return txtxerrors.NewReferenceError(name, "", "unknown signer", nil)
	}
	inst.phase = PhaseActivating
	spec := inst.spec
	c.mu.Unlock()

	if len(spec.Members) > 0 {
		members := append([]string(nil), spec.Members...)
		sort.Strings(members)
		for _, member := range members {
			if err := c.Activate(ctx, member, inputs, progress); err != nil {
				return txtxerrors.NewSignerError(name, "activate", err)
			}
		}
	}

	if spec.Activate == nil {
		c.mu.Lock()
		inst.phase = PhaseActivated
		c.mu.Unlock()
		return nil
	}

	state, err := spec.Activate(ctx, inputs, progress)
	if err != nil {
		return txtxerrors.NewSignerError(name, "activate", err)
	}

	c.mu.Lock()
	inst.state = state
	inst.phase = PhaseActivated
	c.mu.Unlock()
	return nil
}

// Phase reports a signer's current lifecycle phase.
func (c *Coordinator) Phase(name string) LifecyclePhase {
	c.mu.Lock()
	defer c.mu.Unlock()
	inst, ok := c.instances[name]
	if !ok {
		return PhaseTerminated
	}
	return inst.phase
}

// Terminate marks a signer as no longer usable for the remainder of the
// run.
func (c *Coordinator) Terminate(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if inst, ok := c.instances[name]; ok {
		inst.phase = PhaseTerminated
	}
}

// Handle builds the narrow specs.SignerHandle view passed into command
// auth contexts, binding SignTransaction to the instance's current state
// and advancing that state on each signature (some backends rotate
// session nonces per call).
func (c *Coordinator) Handle(name string) (specs.SignerHandle, error) {
	c.mu.Lock()
	inst, ok := c.instances[name]
	if !ok {
		c.mu.Unlock()
		return specs.SignerHandle{}, txtxerrors.NewReferenceError(name, "", "unknown signer", nil)
	}
	if inst.phase != PhaseActivated {
		c.mu.Unlock()
		return specs.SignerHandle{}, txtxerrors.NewSignerError(name, "sign", txtxerrors.NewInternalError("signer not activated", nil))
	}
	spec := inst.spec
	c.mu.Unlock()

	return specs.SignerHandle{
		Namespace: spec.Namespace,
		Name:      spec.Name,
		State:     inst.state.Data,
		Sign: func(ctx context.Context, payload []byte) ([]byte, error) {
			return c.sign(ctx, name, payload)
		},
	}, nil
}

func (c *Coordinator) sign(ctx context.Context, name string, payload []byte) ([]byte, error) {
	c.mu.Lock()
	inst, ok := c.instances[name]
	if !ok {
		c.mu.Unlock()
		return nil, txtxerrors.NewReferenceError(name, "", "unknown signer", nil)
	}
	spec := inst.spec
	state := inst.state
	c.mu.Unlock()

	if spec.SignTransaction == nil {
		return nil, txtxerrors.NewSignerError(name, "sign", txtxerrors.NewInternalError("signer does not implement signing", nil))
	}

	sig, nextState, err := spec.SignTransaction(ctx, state, payload, nil)
	if err != nil {
		return nil, txtxerrors.NewSignerError(name, "sign", err)
	}

	c.mu.Lock()
	inst.state = nextState
	c.mu.Unlock()
	return sig, nil
}
