// Package scheduler drives a construction graph wave by wave: a
// speculative pre-pass resolves everything it can without side effects,
// then an execution loop repeatedly runs whatever is ready, requests
// operator input for whatever is gated on it, and propagates failure as
// skips downstream. The scheduler is the only writer of the execution
// context (§4.9).
package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/txtxlabs/txtx/internal/execctx"
	"github.com/txtxlabs/txtx/internal/expr"
	"github.com/txtxlabs/txtx/internal/graph"
	"github.com/txtxlabs/txtx/internal/obslog"
	"github.com/txtxlabs/txtx/internal/signer"
	"github.com/txtxlabs/txtx/internal/specs"
	"github.com/txtxlabs/txtx/internal/supervisor"
	"github.com/txtxlabs/txtx/internal/value"
	"github.com/txtxlabs/txtx/pkg/diff"
	txtxerrors "github.com/txtxlabs/txtx/pkg/errors"
)

// Outcome is the terminal result of Run.
type Outcome struct {
	Succeeded   bool
	Outputs     map[string]value.Value
	Diagnostics []txtxerrors.Diagnostic
}

// Scheduler owns one construction graph's run from start to completion.
type Scheduler struct {
	g        *graph.Graph
	registry *specs.Registry
	store    *execctx.Store
	signers  *signer.Coordinator
	session  *supervisor.Session
	logger   *obslog.Logger

	resourceLocks   map[string]*sync.Mutex
	resourceLocksMu sync.Mutex

	diagnostics   []txtxerrors.Diagnostic
	diagnosticsMu sync.Mutex

	requestedInput map[string]bool
	inFlight       int
	inFlightCancel map[string]context.CancelFunc
	inFlightMu     sync.Mutex
	resolved       chan struct{}
}

// New builds a scheduler for one construction graph.
func New(g *graph.Graph, registry *specs.Registry, store *execctx.Store, signers *signer.Coordinator, session *supervisor.Session, logger *obslog.Logger) *Scheduler {
	return &Scheduler{
		g:              g,
		registry:       registry,
		store:          store,
		signers:        signers,
		session:        session,
		logger:         logger,
		resourceLocks:  make(map[string]*sync.Mutex),
		requestedInput: make(map[string]bool),
		inFlightCancel: make(map[string]context.CancelFunc),
		resolved:       make(chan struct{}, 1),
	}
}

func (s *Scheduler) env() storeEnv { return storeEnv{store: s.store} }

func (s *Scheduler) addDiagnostic(d txtxerrors.Diagnostic) {
	s.diagnosticsMu.Lock()
	defer s.diagnosticsMu.Unlock()
	s.diagnostics = append(s.diagnostics, d)
}

// Run executes the speculative pre-pass followed by the wave loop until
// every instance is terminal.
func (s *Scheduler) Run(ctx context.Context) (Outcome, error) {
	s.store.Snapshot()
	s.speculativePrepass()

	for {
		if ctx.Err() != nil {
			return Outcome{}, ctx.Err()
		}

		if s.processControl(ctx) {
			break
		}

		ready, needsInput, allTerminal := s.classify()
		if allTerminal {
			break
		}

		if len(ready) == 0 {
			if len(needsInput) == 0 {
				// Nothing ready and nothing gated: either we are waiting
				// on in-flight requests already issued, or the graph has
				// stalled. Block on the next resolution.
				if !s.awaitAnyInFlight(ctx) {
					break
				}
				continue
			}
			s.requestMissingInputs(ctx, needsInput)
			if !s.awaitAnyInFlight(ctx) {
				break
			}
			continue
		}

		s.runWave(ctx, ready)
		s.store.Tick()
		s.store.Snapshot()
	}

	return s.outcome(), nil
}

// processControl drains every control-kind operator response already
// queued (rewind, pause, resume, cancel) without blocking, applying each
// in turn. It reports whether the run should stop entirely.
func (s *Scheduler) processControl(ctx context.Context) bool {
	if s.session == nil {
		return false
	}
	for {
		select {
		case r := <-s.session.Control():
			if s.handleControl(ctx, r) {
				return true
			}
		default:
			return false
		}
	}
}

// handleControl applies one control-kind response and reports whether the
// run should stop entirely (cancel).
func (s *Scheduler) handleControl(ctx context.Context, r supervisor.Response) bool {
	switch r.Kind {
	case supervisor.ResponseCancel:
		s.cancelInFlight()
		return true
	case supervisor.ResponseRewind:
		s.rewind(r.RewindTo)
	case supervisor.ResponsePause:
		return s.awaitResume(ctx)
	case supervisor.ResponseResume:
		// Resume with no pause in progress: nothing to do.
	}
	return false
}

// awaitResume blocks the wave loop until an operator sends resume or
// cancel, applying any rewind it sees meanwhile. It reports whether the
// run should stop entirely.
func (s *Scheduler) awaitResume(ctx context.Context) bool {
	for {
		select {
		case r := <-s.session.Control():
			switch r.Kind {
			case supervisor.ResponseResume:
				return false
			case supervisor.ResponseCancel:
				s.cancelInFlight()
				return true
			case supervisor.ResponseRewind:
				s.rewind(r.RewindTo)
			}
		case <-ctx.Done():
			return true
		}
	}
}

// rewind restores the execution context to the latest snapshot at or
// before to, cancels every in-flight operator request so none of them can
// write into the restored store under a now-stale identity, forgets which
// instances have already been asked for input so classify's next pass
// re-requests whatever is still gated, and resets every signer back to
// its declared, unleased state so reached signers reactivate from
// scratch rather than replaying session state recorded past the rewound
// tick.
func (s *Scheduler) rewind(to uint64) {
	tick, err := s.store.Rewind(to)
	if err != nil {
		s.addDiagnostic(txtxerrors.DiagnosticFromError(err, ""))
		if s.logger != nil {
			s.logger.Error(err, "rewind failed", "requested_tick", to)
		}
		return
	}

	s.cancelInFlight()
	if s.signers != nil {
		s.signers.ResetToDeclared()
	}
	s.requestedInput = make(map[string]bool)

	if s.logger != nil {
		s.logger.Info("rewound execution context", "tick", tick)
	}
	if s.session != nil {
		e := supervisor.NewEvent(supervisor.EventProgress, "")
		e.Phase = "rewind"
		e.Message = fmt.Sprintf("rewound to tick %d", tick)
		s.session.Emit(e)
	}
}

// cancelInFlight cancels every outstanding operator request's context,
// unblocking its goroutine without waiting for a reply that may never
// come.
func (s *Scheduler) cancelInFlight() {
	s.inFlightMu.Lock()
	cancels := make([]context.CancelFunc, 0, len(s.inFlightCancel))
	for id, cancel := range s.inFlightCancel {
		cancels = append(cancels, cancel)
		delete(s.inFlightCancel, id)
	}
	s.inFlightMu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
}

// classify partitions every non-terminal node into the ready set (inputs
// fully known, dependencies satisfied) and the needs-input set (gated on
// an unresolved reference), and reports whether every node has reached a
// terminal status.
func (s *Scheduler) classify() (ready []*graph.Node, needsInput []*graph.Node, allTerminal bool) {
	allTerminal = true

	ids := make([]string, 0, len(s.g.Nodes))
	for id := range s.g.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		n := s.g.Nodes[id]
		status := s.store.Status(id)

		switch status {
		case execctx.StatusSucceeded, execctx.StatusFailed, execctx.StatusSkipped:
			continue
		}
		allTerminal = false

		if !s.dependenciesSatisfied(n) {
			continue
		}

		if s.inputsKnown(n) {
			ready = append(ready, n)
		} else {
			needsInput = append(needsInput, n)
		}
	}

	return ready, needsInput, allTerminal
}

func (s *Scheduler) dependenciesSatisfied(n *graph.Node) bool {
	for _, dep := range n.DependsOn {
		st := s.store.Status(dep.ID)
		if st != execctx.StatusSucceeded && st != execctx.StatusSkipped {
			return false
		}
	}
	return true
}

func (s *Scheduler) inputsKnown(n *graph.Node) bool {
	// An input with no declared default has nothing to evaluate: its
	// value can only come from a manifest override or an operator
	// response already written into the store.
	if n.Kind == graph.KindInput && n.Value == nil {
		_, ok := s.store.Output(n.ID, ValueField)
		return ok
	}

	env := s.env()
	for _, e := range instanceFields(n) {
		v, _, err := expr.Evaluate(e, env, s.registry, expr.ModeSpeculative)
		if err != nil || v.IsUnknown() {
			return false
		}
	}
	return true
}

// speculativePrepass evaluates every instance's fields once, writing
// whatever resolves to known values into the store without invoking any
// command. It never errors: unresolved references just leave the field
// unset, to be retried once their dependency is terminal.
func (s *Scheduler) speculativePrepass() {
	env := s.env()
	for _, level := range s.g.Levels {
		for _, id := range level {
			n := s.g.Nodes[id]
			if n.Kind != graph.KindVariable && n.Kind != graph.KindOutput && n.Kind != graph.KindInput {
				continue
			}
			for field, e := range instanceFields(n) {
				v, _, err := expr.Evaluate(e, env, s.registry, expr.ModeSpeculative)
				if err == nil && !v.IsUnknown() {
					s.store.SetOutput(id, field, v)
				}
			}
		}
	}
}

// runWave executes one batch of ready instances, honoring the
// reentrancy-safe concurrency rule: reentrancy-safe instances run
// concurrently, each holding its declared exclusive resources (no signer
// lease is taken, so two of them may use the same signer at once); instances
// that are not reentrancy-safe run afterward, one at a time, in
// instance-id order.
func (s *Scheduler) runWave(ctx context.Context, ready []*graph.Node) {
	var concurrent, serial []*graph.Node
	for _, n := range ready {
		if n.Kind == graph.KindAction {
			if spec, ok := s.registry.LookupCommand(splitNamespace(n.Type)); ok && spec.ReentrancySafe {
				concurrent = append(concurrent, n)
				continue
			}
		}
		serial = append(serial, n)
	}

	var wg sync.WaitGroup
	for _, n := range concurrent {
		wg.Add(1)
		go func(n *graph.Node) {
			defer wg.Done()
			s.runInstance(ctx, n)
		}(n)
	}
	wg.Wait()

	for _, n := range serial {
		s.runInstance(ctx, n)
	}
}

func splitNamespace(qualified string) (string, string) {
	for i := 0; i < len(qualified)-1; i++ {
		if qualified[i] == ':' && qualified[i+1] == ':' {
			return qualified[:i], qualified[i+2:]
		}
	}
	return "", qualified
}

func (s *Scheduler) runInstance(ctx context.Context, n *graph.Node) {
	switch n.Kind {
	case graph.KindVariable, graph.KindOutput, graph.KindInput:
		s.runValueInstance(n)
	case graph.KindSigner:
		s.runSignerInstance(ctx, n)
	case graph.KindAction:
		s.runActionInstance(ctx, n)
	}
}

func (s *Scheduler) runValueInstance(n *graph.Node) {
	_ = s.store.Transition(n.ID, execctx.StatusRunning)

	// An input with no declared default already has its value in the
	// store, written there by the speculative pre-pass, a manifest
	// override, or an operator response — there is nothing to evaluate.
	if n.Value == nil {
		_ = s.store.Transition(n.ID, execctx.StatusSucceeded)
		return
	}

	env := s.env()
	v, diags, err := expr.Evaluate(*n.Value, env, s.registry, expr.ModeConcrete)
	for _, d := range diags {
		s.addDiagnostic(d)
	}
	if err != nil {
		s.fail(n, err)
		return
	}
	s.store.SetOutput(n.ID, ValueField, v)
	_ = s.store.Transition(n.ID, execctx.StatusSucceeded)
}

func (s *Scheduler) runSignerInstance(ctx context.Context, n *graph.Node) {
	_ = s.store.Transition(n.ID, execctx.StatusRunning)

	namespace, name := splitNamespace(n.Type)
	spec, ok := s.registry.LookupSigner(namespace, name)
	if !ok {
		s.fail(n, txtxerrors.NewReferenceError(n.ID, n.Type, "unknown signer type", nil))
		return
	}

	inputs := s.resolveParams(n)
	if err := s.signers.Declare(n.Name, spec); err != nil {
		s.fail(n, err)
		return
	}
	if err := s.signers.Activate(ctx, n.Name, inputs, s.progressSink(n.ID)); err != nil {
		s.fail(n, err)
		return
	}

	s.store.SetOutput(n.ID, "activated", value.Bool(true))
	_ = s.store.Transition(n.ID, execctx.StatusSucceeded)
}

func (s *Scheduler) runActionInstance(ctx context.Context, n *graph.Node) {
	namespace, name := splitNamespace(n.Type)
	spec, ok := s.registry.LookupCommand(namespace, name)
	if !ok {
		s.fail(n, txtxerrors.NewReferenceError(n.ID, n.Type, "unknown command type", nil))
		return
	}

	releases := s.acquire(ctx, spec)
	defer releases()

	_ = s.store.Transition(n.ID, execctx.StatusRunning)

	inputs := s.resolveParams(n)
	auth := s.buildAuthContext(spec)

	requirement, err := spec.CheckExecutability(ctx, inputs, auth)
	if err != nil {
		s.fail(n, err)
		return
	}

	switch requirement {
	case specs.RequirementBlocked:
		s.fail(n, txtxerrors.NewRequirementError(n.ID, "blocked", "command reported itself blocked", nil))
		return
	case specs.RequirementNeedsOperatorAction:
		if !s.requestReview(ctx, n, inputs) {
			return
		}
	case specs.RequirementNeedsSigner:
		for _, signerField := range spec.ReachableSigners {
			if err := s.signers.Activate(ctx, signerField, inputs, s.progressSink(n.ID)); err != nil {
				s.fail(n, err)
				return
			}
		}
		auth = s.buildAuthContext(spec)
	}

	result, err := spec.RunExecution(ctx, inputs, auth, s.progressSink(n.ID))
	if err != nil {
		s.fail(n, err)
		return
	}

	for field, v := range result.Outputs {
		s.store.SetOutput(n.ID, field, v)
	}
	_ = s.store.Transition(n.ID, execctx.StatusSucceeded)
	if s.session != nil {
		e := supervisor.NewEvent(supervisor.EventCompleted, n.ID)
		e.Outputs = result.Outputs
		s.session.Emit(e)
	}
}

// requestReview blocks the calling instance's goroutine on operator
// approval. A skip response marks the instance Skipped and any other
// non-approve response fails it (both return false); approve lets
// run_execution proceed (returning true). With no
// attached session, a command that reports needs_operator_action cannot
// be satisfied and the instance fails.
func (s *Scheduler) requestReview(ctx context.Context, n *graph.Node, inputs map[string]value.Value) bool {
	if s.session == nil {
		s.fail(n, txtxerrors.NewRequirementError(n.ID, "needs_operator_action", "no supervisor session attached", nil))
		return false
	}

	e := supervisor.NewEvent(supervisor.EventRequestReview, n.ID)
	e.ProposedAction = n.Type
	e.Diff = renderProposedInputsDiff(inputs)

	resp, err := s.session.Request(ctx, e)
	if err != nil {
		s.fail(n, err)
		return false
	}
	switch resp.Kind {
	case supervisor.ResponseApprove:
		return true
	case supervisor.ResponseSkip:
		_ = s.store.Transition(n.ID, execctx.StatusSkipped)
		return false
	default:
		s.fail(n, txtxerrors.NewRequirementError(n.ID, "needs_operator_action", "operator rejected proposed action", nil))
		return false
	}
}

// renderProposedInputsDiff shows the operator what the action is about to
// submit, as an added-lines-only unified diff against nothing, since the
// scheduler has no prior on-chain state to compare against at review time.
func renderProposedInputsDiff(inputs map[string]value.Value) string {
	encoded, err := json.MarshalIndent(inputs, "", "  ")
	if err != nil {
		return ""
	}
	return diff.GenerateUnifiedDiff(nil, encoded, "submitted", "proposed")
}

func (s *Scheduler) resolveParams(n *graph.Node) map[string]value.Value {
	env := s.env()
	out := make(map[string]value.Value, len(n.Params))
	for field, e := range n.Params {
		v, diags, err := expr.Evaluate(e, env, s.registry, expr.ModeConcrete)
		for _, d := range diags {
			s.addDiagnostic(d)
		}
		if err != nil {
			v = value.Unknown()
		}
		out[field] = v
	}
	return out
}

func (s *Scheduler) buildAuthContext(spec specs.CommandSpec) specs.AuthContext {
	handles := make(map[string]specs.SignerHandle, len(spec.ReachableSigners))
	for _, name := range spec.ReachableSigners {
		if h, err := s.signers.Handle(name); err == nil {
			handles[name] = h
		}
	}
	return specs.AuthContext{Signers: handles}
}

func (s *Scheduler) progressSink(instanceID string) specs.ProgressSink {
	return func(phase, message string) {
		if s.session == nil {
			return
		}
		e := supervisor.NewEvent(supervisor.EventProgress, instanceID)
		e.Phase = phase
		e.Message = message
		s.session.Emit(e)
	}
}

// acquire locks every exclusive resource a command spec declares, sorted
// to avoid lock-order inversion across concurrently running instances,
// and returns a function that releases them all.
func (s *Scheduler) acquire(ctx context.Context, spec specs.CommandSpec) func() {
	resources := append([]string(nil), spec.ExclusiveResources...)
	sort.Strings(resources)

	var locks []*sync.Mutex
	for _, r := range resources {
		locks = append(locks, s.resourceLock(r))
	}
	for _, l := range locks {
		l.Lock()
	}
	return func() {
		for i := len(locks) - 1; i >= 0; i-- {
			locks[i].Unlock()
		}
	}
}

func (s *Scheduler) resourceLock(name string) *sync.Mutex {
	s.resourceLocksMu.Lock()
	defer s.resourceLocksMu.Unlock()
	l, ok := s.resourceLocks[name]
	if !ok {
		l = &sync.Mutex{}
		s.resourceLocks[name] = l
	}
	return l
}

func (s *Scheduler) fail(n *graph.Node, err error) {
	s.store.Fail(n.ID, err)
	s.addDiagnostic(txtxerrors.DiagnosticFromError(err, ""))
	if s.logger != nil {
		s.logger.Error(err, "instance failed", "instance", n.ID)
	}
	if s.session != nil {
		e := supervisor.NewEvent(supervisor.EventFailed, n.ID)
		e.Severity = supervisor.SeverityError
		e.Message = err.Error()
		s.session.Emit(e)
	}
	s.propagateSkip(n)
}

// propagateSkip marks every still-pending transitive dependent of a
// failed instance as Skipped, the way a downstream step is never reached
// once its input can no longer resolve.
func (s *Scheduler) propagateSkip(n *graph.Node) {
	queue := append([]*graph.Node(nil), n.Dependents...)
	seen := map[string]bool{}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if seen[cur.ID] {
			continue
		}
		seen[cur.ID] = true

		if s.store.Status(cur.ID) == execctx.StatusPending || s.store.Status(cur.ID) == execctx.StatusNeedsInput {
			_ = s.store.Transition(cur.ID, execctx.StatusSkipped)
		}
		queue = append(queue, cur.Dependents...)
	}
}

// requestMissingInputs issues a request_input event, in instance-id
// order, for every gated instance that does not already have an
// in-flight request. Each request runs in its own goroutine so a missing
// response blocks only that instance.
func (s *Scheduler) requestMissingInputs(ctx context.Context, needsInput []*graph.Node) {
	if s.session == nil {
		return
	}
	for _, n := range needsInput {
		if s.requestedInput[n.ID] {
			continue
		}
		s.requestedInput[n.ID] = true
		_ = s.store.Transition(n.ID, execctx.StatusNeedsInput)

		reqCtx, cancel := context.WithCancel(ctx)

		s.inFlightMu.Lock()
		s.inFlight++
		s.inFlightCancel[n.ID] = cancel
		s.inFlightMu.Unlock()

		go func(n *graph.Node) {
			defer s.signalResolved(n.ID)

			e := supervisor.NewEvent(supervisor.EventRequestInput, n.ID)
			e.Field = ValueField
			resp, err := s.session.Request(reqCtx, e)
			if err != nil || resp.Kind == supervisor.ResponseSkip {
				_ = s.store.Transition(n.ID, execctx.StatusSkipped)
				return
			}
			// Leave the status at NeedsInput: it is not terminal, so the
			// next classify() pass picks the instance back up once its
			// field resolves, and NeedsInput -> Running is a legal
			// transition for when it actually runs.
			s.store.SetOutput(n.ID, ValueField, resp.Value)
		}(n)
	}
}

func (s *Scheduler) signalResolved(id string) {
	s.inFlightMu.Lock()
	s.inFlight--
	if cancel, ok := s.inFlightCancel[id]; ok {
		cancel()
		delete(s.inFlightCancel, id)
	}
	s.inFlightMu.Unlock()

	select {
	case s.resolved <- struct{}{}:
	default:
	}
}

// awaitAnyInFlight blocks until some in-flight request resolves, until a
// control response arrives (applied inline so a rewind or cancel is not
// stuck behind an operator response that may never come), or returns
// false if there is nothing left in flight to wait for.
func (s *Scheduler) awaitAnyInFlight(ctx context.Context) bool {
	s.inFlightMu.Lock()
	n := s.inFlight
	s.inFlightMu.Unlock()
	if n == 0 {
		return false
	}

	var control <-chan supervisor.Response
	if s.session != nil {
		control = s.session.Control()
	}

	select {
	case <-s.resolved:
		return true
	case <-ctx.Done():
		return false
	case r := <-control:
		return !s.handleControl(ctx, r)
	}
}

// Plan runs only the speculative pre-pass: every variable, input, and
// output whose expression is already resolvable without executing an
// addon command gets a known value; everything gated on an action's real
// result stays unresolved. No command runs, no operator input is
// requested, and the execution context records no transitions beyond
// whatever the pre-pass itself wrote. The plan command reports the
// returned Outputs against the number of declared outputs.
func (s *Scheduler) Plan(ctx context.Context) Outcome {
	s.speculativePrepass()
	return s.outcome()
}

func (s *Scheduler) outcome() Outcome {
	outputs := make(map[string]value.Value)
	hasFailure := false

	for id, n := range s.g.Nodes {
		if n.Kind == graph.KindOutput {
			if v, ok := s.store.Output(id, ValueField); ok {
				outputs[n.Name] = v
			}
		}
		if s.store.Status(id) == execctx.StatusFailed {
			hasFailure = true
		}
	}

	hasErrorDiagnostic := false
	for _, d := range s.diagnostics {
		if d.Severity == txtxerrors.SeverityError {
			hasErrorDiagnostic = true
			break
		}
	}

	return Outcome{
		Succeeded:   !hasFailure && !hasErrorDiagnostic,
		Outputs:     outputs,
		Diagnostics: s.diagnostics,
	}
}
