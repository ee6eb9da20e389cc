package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/JonMunkholm/uploader/internal/uploader"
)

var (
	titleStyle       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	descriptionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	cursorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	spinnerStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	successStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	failureStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	mutedStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusErrStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
)

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	opts := m.coord.Options()
	b.WriteString(titleStyle.Render(fmt.Sprintf("Uploads %d/%d", len(m.items), m.capacity)))
	b.WriteString("\n")
	if opts.Description != "" {
		b.WriteString(descriptionStyle.Render(opts.Description))
		b.WriteString("\n")
	}
	if accept := opts.Accept(); accept != "" {
		b.WriteString(mutedStyle.Render("Accepts " + accept))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if len(m.items) == 0 {
		b.WriteString(mutedStyle.Render("  No files"))
		b.WriteString("\n")
	}
	for i, v := range m.items {
		b.WriteString(m.renderItem(i, v))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if m.mode == modeInput {
		b.WriteString(m.input.View())
		b.WriteString("\n")
	}

	if m.status != "" {
		if m.statusErr {
			b.WriteString(statusErrStyle.Render(m.status))
		} else {
			b.WriteString(m.status)
		}
		b.WriteString("\n")
	}

	if m.mode == modeInput {
		b.WriteString(m.help.View(inputKeys{m.keys}))
	} else {
		b.WriteString(m.help.View(m.keys))
	}
	return b.String()
}

func (m Model) renderItem(i int, v uploader.View) string {
	pointer := "  "
	if i == m.cursor {
		pointer = cursorStyle.Render("> ")
	}

	var mark, status string
	switch v.Phase {
	case uploader.PhaseInFlight, uploader.PhaseIdle:
		mark = m.spinner.View()
		status = mutedStyle.Render(v.Status)
	case uploader.PhaseSucceeded:
		mark = successStyle.Render("✓")
		status = successStyle.Render(v.Status)
	case uploader.PhaseFailed:
		mark = failureStyle.Render("✗")
		status = failureStyle.Render(v.Status)
	}

	var actions []string
	if v.CanRetry {
		actions = append(actions, "r")
	}
	if v.CanDelete {
		actions = append(actions, "d")
	}
	line := fmt.Sprintf("%s%s %s  %s", pointer, mark, v.DisplayName, status)
	if len(actions) > 0 {
		line += mutedStyle.Render(" [" + strings.Join(actions, "/") + "]")
	}
	return line
}
