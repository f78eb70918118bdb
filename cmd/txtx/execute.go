package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/txtxlabs/txtx/internal/execctx"
	"github.com/txtxlabs/txtx/internal/graph"
	"github.com/txtxlabs/txtx/internal/scheduler"
	"github.com/txtxlabs/txtx/internal/supervisor"
	"github.com/txtxlabs/txtx/internal/supervisor/tui"
	"github.com/txtxlabs/txtx/internal/value"
)

// executeOptions controls one scheduler run (apply, replay): whether an
// interactive console attaches to the supervisor session, which inputs
// are seeded into the store up front, and which recorded responses are
// fed back. executeRunbook does not read Interactive.
type executeOptions struct {
	Interactive  bool
	AttachTUI    bool
	InputSeed    map[string]value.Value
	ResponseFeed <-chan supervisor.Response // used by replay; nil otherwise
}

func executeRunbook(ctx context.Context, app *AppContext, lr *loadedRunbook, opts executeOptions) (scheduler.Outcome, error) {
	g, err := graph.Build(lr.Doc)
	if err != nil {
		return scheduler.Outcome{}, err
	}

	store := execctx.New()
	for name, v := range opts.InputSeed {
		store.SetOutput("input."+name, scheduler.ValueField, v)
	}

	events := make(chan supervisor.Event, 64)
	session := supervisor.NewSession(events, app.Logger)

	var program *tea.Program
	done := make(chan struct{})
	close(done)

	if opts.AttachTUI {
		responses := make(chan supervisor.Response, 16)
		model := tui.New(responses)
		program = tea.NewProgram(model)

		done = make(chan struct{})
		go func() {
			defer close(done)
			_, _ = program.Run()
		}()
		go pumpEventsToProgram(events, program)
		go pumpResponsesToSession(responses, session)
	} else {
		go logEvents(app, events)
	}

	if opts.ResponseFeed != nil {
		go pumpResponsesToSession(opts.ResponseFeed, session)
	}

	sched := scheduler.New(g, app.Registry, store, app.Signers, session, app.Logger)
	outcome, err := sched.Run(ctx)

	close(events)
	if opts.AttachTUI && program != nil {
		program.Send(tea.QuitMsg{})
		<-done
	}

	return outcome, err
}

// newPlanningScheduler builds a scheduler with no signer coordinator, no
// supervisor session, and no logger: plan never runs a command or asks an
// operator a question, so none of those collaborators are reachable.
func newPlanningScheduler(app *AppContext, g *graph.Graph) (*scheduler.Scheduler, *execctx.Store) {
	store := execctx.New()
	return scheduler.New(g, app.Registry, store, nil, nil, nil), store
}

func pumpEventsToProgram(events <-chan supervisor.Event, program *tea.Program) {
	for e := range events {
		program.Send(tui.EventMsg{Event: e})
	}
}

func pumpResponsesToSession(responses <-chan supervisor.Response, session *supervisor.Session) {
	for r := range responses {
		session.Dispatch(r)
	}
}

// logEvents is the non-interactive fallback: every event is rendered as a
// single line to stderr, the way a headless CI run would want it.
func logEvents(app *AppContext, events <-chan supervisor.Event) {
	for e := range events {
		switch e.Kind {
		case supervisor.EventProgress:
			fmt.Fprintf(os.Stderr, "[%s] %s: %s\n", e.Instance, e.Phase, e.Message)
		case supervisor.EventFailed:
			fmt.Fprintf(os.Stderr, "[%s] failed: %s\n", e.Instance, e.Message)
		case supervisor.EventCompleted:
			fmt.Fprintf(os.Stderr, "[%s] completed\n", e.Instance)
		case supervisor.EventRequestInput, supervisor.EventRequestReview, supervisor.EventRequestSignature:
			fmt.Fprintf(os.Stderr, "[%s] needs operator input (%s) but no console is attached; waiting for a response\n", e.Instance, e.Kind)
		default:
			if app.Logger != nil {
				app.Logger.Info("event", "kind", e.Kind, "instance", e.Instance)
			}
		}
	}
}
