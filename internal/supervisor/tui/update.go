package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/txtxlabs/txtx/internal/supervisor"
	"github.com/txtxlabs/txtx/internal/value"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case EventMsg:
		return m.handleEvent(msg.Event)
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleEvent(e supervisor.Event) (tea.Model, tea.Cmd) {
	switch e.Kind {
	case supervisor.EventProgress:
		st := m.ensure(e.Instance)
		st.status = "running"
		st.message = e.Message
		return m, nil

	case supervisor.EventRequestInput, supervisor.EventRequestReview, supervisor.EventRequestSignature:
		ev := e
		m.pending = &ev
		m.ensure(e.Instance).status = "awaiting_input"
		m.input.SetValue("")
		m.input.Focus()
		return m, nil

	case supervisor.EventDiagnostic:
		st := m.ensure(e.Instance)
		st.message = e.Message
		return m, nil

	case supervisor.EventCompleted:
		m.ensure(e.Instance).status = "succeeded"
		return m, nil

	case supervisor.EventFailed:
		m.ensure(e.Instance).status = "failed"
		m.ensure(e.Instance).message = e.Message
		return m, nil
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.pending == nil {
		switch msg.Type {
		case tea.KeyCtrlC:
			m.respond(supervisor.Response{Kind: supervisor.ResponseCancel})
			m.finished = true
			m.exitMessage = "cancelled by operator"
			return m, tea.Quit
		case tea.KeyCtrlP:
			m.respond(supervisor.Response{Kind: supervisor.ResponsePause})
			return m, nil
		case tea.KeyCtrlR:
			m.respond(supervisor.Response{Kind: supervisor.ResponseResume})
			return m, nil
		}
		return m, nil
	}

	switch msg.Type {
	case tea.KeyEnter:
		return m.submitPending()
	case tea.KeyEsc:
		m.respond(supervisor.Response{ID: m.pending.ID, Kind: supervisor.ResponseSkip})
		m.pending = nil
		m.input.Blur()
		return m, nil
	case tea.KeyCtrlC:
		m.respond(supervisor.Response{ID: m.pending.ID, Kind: supervisor.ResponseReject})
		m.pending = nil
		m.input.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) submitPending() (tea.Model, tea.Cmd) {
	pending := m.pending
	text := m.input.Value()
	m.input.Blur()
	m.pending = nil

	switch pending.Kind {
	case supervisor.EventRequestInput:
		m.respond(supervisor.Response{ID: pending.ID, Kind: supervisor.ResponseValue, Value: value.String(text)})
	case supervisor.EventRequestReview:
		m.respond(supervisor.Response{ID: pending.ID, Kind: supervisor.ResponseApprove})
	case supervisor.EventRequestSignature:
		m.respond(supervisor.Response{ID: pending.ID, Kind: supervisor.ResponseSignature, Signature: []byte(text)})
	}
	return m, nil
}

func (m Model) respond(r supervisor.Response) {
	if m.responses == nil {
		return
	}
	m.responses <- r
}
