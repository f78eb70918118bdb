// Package tui is the operator-side bubbletea console that drives a
// supervisor session: it renders engine-emitted events (progress,
// diagnostics, completion) and turns keystrokes into protocol responses
// for pending requests.
package tui

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/txtxlabs/txtx/internal/supervisor"
)

// EventMsg wraps one supervisor.Event as a bubbletea message.
type EventMsg struct {
	Event supervisor.Event
}

// instanceStatus tracks what the console has learned about one instance.
type instanceStatus struct {
	status  string // "pending", "running", "awaiting_input", "succeeded", "failed"
	message string
}

// Model is the bubbletea state for the operator console.
type Model struct {
	responses chan<- supervisor.Response

	order     []string
	instances map[string]*instanceStatus

	pending     *supervisor.Event // the open request_* event awaiting a reply, if any
	input       textinput.Model
	finished    bool
	exitMessage string
}

// New builds a console model that writes operator decisions onto
// responses.
func New(responses chan<- supervisor.Response) Model {
	ti := textinput.New()
	ti.Placeholder = "value"
	ti.CharLimit = 256

	return Model{
		responses: responses,
		instances: make(map[string]*instanceStatus),
		input:     ti,
	}
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m *Model) ensure(id string) *instanceStatus {
	st, ok := m.instances[id]
	if !ok {
		st = &instanceStatus{status: "pending"}
		m.instances[id] = st
		m.order = append(m.order, id)
	}
	return st
}
