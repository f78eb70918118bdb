package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/txtxlabs/txtx/internal/supervisor"
)

func TestProgressEventMarksInstanceRunning(t *testing.T) {
	t.Parallel()

	m := New(nil)
	updated, _ := m.Update(EventMsg{Event: supervisor.Event{
		Kind: supervisor.EventProgress, Instance: "action.deploy", Message: "broadcasting",
	}})
	next := updated.(Model)

	require.Equal(t, "running", next.instances["action.deploy"].status)
	require.Contains(t, next.View(), "action.deploy")
}

func TestRequestInputSetsPendingAndEnterSubmitsResponse(t *testing.T) {
	t.Parallel()

	responses := make(chan supervisor.Response, 1)
	m := New(responses)

	updated, _ := m.Update(EventMsg{Event: supervisor.Event{
		ID: "req-1", Kind: supervisor.EventRequestInput, Instance: "action.deploy", Prompt: "gas limit?",
	}})
	next := updated.(Model)
	require.NotNil(t, next.pending)

	for _, r := range []rune("21000") {
		updated, _ = next.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
		next = updated.(Model)
	}

	updated, _ = next.Update(tea.KeyMsg{Type: tea.KeyEnter})
	next = updated.(Model)
	require.Nil(t, next.pending)

	resp := <-responses
	require.Equal(t, "req-1", resp.ID)
	require.Equal(t, supervisor.ResponseValue, resp.Kind)
	s, _ := resp.Value.AsString()
	require.Equal(t, "21000", s)
}

func TestEscapeSkipsPendingRequest(t *testing.T) {
	t.Parallel()

	responses := make(chan supervisor.Response, 1)
	m := New(responses)
	updated, _ := m.Update(EventMsg{Event: supervisor.Event{
		ID: "req-2", Kind: supervisor.EventRequestInput, Instance: "action.deploy",
	}})
	next := updated.(Model)

	updated, _ = next.Update(tea.KeyMsg{Type: tea.KeyEsc})
	next = updated.(Model)
	require.Nil(t, next.pending)

	resp := <-responses
	require.Equal(t, supervisor.ResponseSkip, resp.Kind)
}

func TestCtrlCCancelsWhenNoPendingRequest(t *testing.T) {
	t.Parallel()

	responses := make(chan supervisor.Response, 1)
	m := New(responses)

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	next := updated.(Model)
	require.True(t, next.finished)
	require.NotNil(t, cmd)

	resp := <-responses
	require.Equal(t, supervisor.ResponseCancel, resp.Kind)
}
