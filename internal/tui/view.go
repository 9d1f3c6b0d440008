package tui

import (
	"strings"

	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"

	"github.com/keelanv/parley/internal/session"
)

// View implements tea.Model.
// Uses AltScreen with a viewport for scrollable message history.
func (m *Model) View() tea.View {
	m.viewBuf.Reset()

	_, _ = m.viewBuf.WriteString(m.viewport.View())
	_, _ = m.viewBuf.WriteString("\n")

	_, _ = m.viewBuf.WriteString(m.renderSeparator())
	_, _ = m.viewBuf.WriteString("\n")

	// Input prompt always accepts input, even while streaming.
	_, _ = m.viewBuf.WriteString(m.styles.Prompt.Render("> "))
	_, _ = m.viewBuf.WriteString(m.input.View())
	_, _ = m.viewBuf.WriteString("\n")

	_, _ = m.viewBuf.WriteString(m.renderSeparator())
	_, _ = m.viewBuf.WriteString("\n")

	_, _ = m.viewBuf.WriteString(m.renderStatusBar())

	v := tea.NewView(m.viewBuf.String())
	v.AltScreen = true
	return v
}

// rebuildViewportContent reconstructs the viewport from the mirrored
// conversation state. Called whenever rows, stream text, notices or
// dimensions change.
func (m *Model) rebuildViewportContent() {
	var b strings.Builder

	_, _ = b.WriteString(m.styles.RenderBanner())
	_, _ = b.WriteString("\n")
	_, _ = b.WriteString(m.styles.RenderWelcomeTips())
	_, _ = b.WriteString("\n")

	for _, row := range m.rows {
		switch row.Role {
		case session.RoleUser:
			_, _ = b.WriteString(m.styles.User.Render("You> "))
			_, _ = b.WriteString(row.Text)
		default:
			_, _ = b.WriteString(m.styles.Assistant.Render("Parley> "))
			_, _ = b.WriteString(m.markdown.Render(row.Text))
		}
		_, _ = b.WriteString("\n\n")
	}

	// In-flight assistant text, rendered plain; markdown waits until
	// the reply is complete.
	if m.streamText != "" {
		_, _ = b.WriteString(m.styles.Assistant.Render("Parley> "))
		_, _ = b.WriteString(m.streamText)
		_, _ = b.WriteString("\n\n")
	}

	if m.state == StateThinking {
		_, _ = b.WriteString(m.spinner.View())
		_, _ = b.WriteString(" Thinking...\n\n")
	}

	for _, n := range m.notices {
		switch n.Role {
		case roleError:
			_, _ = b.WriteString(m.styles.Error.Render("Error: " + n.Text))
		default:
			_, _ = b.WriteString(m.styles.System.Render(n.Text))
		}
		_, _ = b.WriteString("\n\n")
	}

	m.viewport.SetContent(b.String())
}

func (m *Model) renderSeparator() string {
	return m.styles.Separator.Render(strings.Repeat("─", max(m.width, 1)))
}

// renderStatusBar shows the model, staged attachments and key hints.
func (m *Model) renderStatusBar() string {
	var b strings.Builder

	_, _ = b.WriteString(m.styles.StatusBar.Render(m.conductor.Model()))

	if len(m.attached) > 0 {
		_, _ = b.WriteString(m.styles.StatusBar.Render("  ·  attached: " + strings.Join(m.attached, ", ")))
	}

	_, _ = b.WriteString("  ")
	_, _ = b.WriteString(m.help.ShortHelpView([]key.Binding{
		m.keys.Submit,
		m.keys.NewLine,
		m.keys.History,
		m.keys.Quit,
	}))

	return b.String()
}
