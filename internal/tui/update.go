package tui

import (
	"fmt"

	"charm.land/bubbles/v2/spinner"
	"charm.land/bubbles/v2/textarea"
	tea "charm.land/bubbletea/v2"

	"github.com/keelanv/parley/internal/chat"
)

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		m.spinner.Tick,
		m.input.Focus(),
		listenForEvents(m.conductor.Events()),
	)
}

// Update implements tea.Model.
//
//nolint:gocognit,gocyclo // Bubble Tea Update requires type switch on all message types
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		inputHeight := m.input.Height() + promptLines
		fixedHeight := separatorLines + inputHeight + helpLines
		vpHeight := max(msg.Height-fixedHeight, minViewport)

		m.viewport.SetWidth(msg.Width)
		m.viewport.SetHeight(vpHeight)
		m.input.SetWidth(msg.Width - 4) // Room for "> " prompt
		m.help.SetWidth(msg.Width)
		m.markdown.UpdateWidth(msg.Width)

		m.rebuildViewportContent()
		return m, nil

	case tea.MouseWheelMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.state == StateThinking {
			m.rebuildViewportContent()
		}
		return m, cmd

	case conductorEventMsg:
		m.applyEvent(msg.event)
		return m, listenForEvents(m.conductor.Events())

	case sendFailedMsg:
		m.state = StateInput
		m.addNotice(roleError, msg.err.Error())
		m.rebuildViewportContent()
		m.viewport.GotoBottom()
		return m, m.input.Focus()

	case switchedMsg:
		if msg.err != nil {
			m.addNotice(roleError, msg.err.Error())
			m.rebuildViewportContent()
			return m, nil
		}
		m.notices = nil
		m.streamText = ""
		m.state = StateInput
		if m.onSessionChange != nil {
			m.onSessionChange(msg.id)
		}
		return m, m.input.Focus()

	case modelListMsg:
		if msg.err != nil {
			m.addNotice(roleError, msg.err.Error())
		} else if len(msg.names) == 0 {
			m.addNotice(roleSystem, "no models installed")
		} else {
			list := "Installed models:"
			for _, name := range msg.names {
				list += "\n  " + name
			}
			m.addNotice(roleSystem, list)
		}
		m.rebuildViewportContent()
		m.viewport.GotoBottom()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// applyEvent folds one conductor event into the view state.
func (m *Model) applyEvent(ev chat.Event) {
	switch {
	case ev.Rows != nil:
		m.rows = ev.Rows
		// A trailing assistant row means a completed exchange: the
		// transient stream text is now part of the durable history.
		if n := len(ev.Rows); n > 0 && ev.Rows[n-1].Role != "user" {
			m.streamText = ""
			m.state = StateInput
		} else if n == 0 && m.streamText == "" {
			m.state = StateInput
		}

	case ev.Fragment != nil:
		m.streamText = ev.Fragment.Text
		m.state = StateStreaming

	case ev.Sessions != nil:
		m.sessions = ev.Sessions
		// The conductor refreshes the list after every exchange; only
		// print it when the user asked.
		if !m.listRequested {
			break
		}
		m.listRequested = false
		if len(ev.Sessions) == 0 {
			m.addNotice(roleSystem, "no past conversations")
		} else {
			list := "Conversations:"
			for i, ref := range ev.Sessions {
				title := ref.Title
				if len(title) > 60 {
					title = title[:57] + "..."
				}
				list += fmt.Sprintf("\n  %d. %s", i+1, title)
			}
			m.addNotice(roleSystem, list)
		}

	case ev.Attachments != nil:
		m.attached = ev.Attachments

	case ev.Err != nil:
		m.streamText = ""
		m.state = StateInput
		m.addNotice(roleError, ev.Err.Error())
	}

	m.rebuildViewportContent()
	m.viewport.GotoBottom()
}
