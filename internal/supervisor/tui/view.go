package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/txtxlabs/txtx/internal/supervisor"
)

func (m Model) View() string {
	var sections []string

	sections = append(sections, titleStyle.Render("txtx supervisor"))

	if len(m.order) > 0 {
		sections = append(sections, sectionStyle.Render("Instances"))
		sections = append(sections, m.renderInstances())
	}

	if m.pending != nil {
		sections = append(sections, promptStyle.Render(m.renderPrompt()))
		sections = append(sections, m.input.View())
	}

	if m.finished {
		sections = append(sections, summaryStyle.Render(m.exitMessage))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderInstances() string {
	var lines []string
	for _, id := range m.order {
		st := m.instances[id]
		line := fmt.Sprintf(" %s %s", statusIcon(st.status), id)
		if strings.TrimSpace(st.message) != "" {
			line = fmt.Sprintf("%s — %s", line, st.message)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderPrompt() string {
	switch m.pending.Kind {
	case supervisor.EventRequestInput:
		return fmt.Sprintf("%s: %s", m.pending.Instance, m.pending.Prompt)
	case supervisor.EventRequestReview:
		return fmt.Sprintf("review %s: %s (enter=approve, esc=skip, ctrl+c=reject)", m.pending.Instance, m.pending.ProposedAction)
	case supervisor.EventRequestSignature:
		return fmt.Sprintf("sign for %s: %s", m.pending.Signer, m.pending.Interpretation)
	default:
		return m.pending.Instance
	}
}

func statusIcon(status string) string {
	switch status {
	case "succeeded":
		return succeededStyle.Render("✓")
	case "running":
		return runningStyle.Render("⏳")
	case "failed":
		return failedStyle.Render("✗")
	case "skipped":
		return skippedStyle.Render("⊘")
	case "awaiting_input":
		return pendingStyle.Render("?")
	default:
		return pendingStyle.Render("…")
	}
}
