package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	tea "charm.land/bubbletea/v2"
	"github.com/google/uuid"

	"github.com/keelanv/parley/internal/chat"
	"github.com/keelanv/parley/internal/config"
)

// Slash command constants.
const (
	cmdHelp     = "/help"
	cmdClear    = "/clear"
	cmdNew      = "/new"
	cmdSessions = "/sessions"
	cmdSwitch   = "/switch"
	cmdAttach   = "/attach"
	cmdDetach   = "/detach"
	cmdModel    = "/model"
	cmdModels   = "/models"
	cmdExit     = "/exit"
	cmdQuit     = "/quit"
)

// conductorEventMsg wraps one event from the conductor's channel.
type conductorEventMsg struct {
	event chat.Event
}

// sendFailedMsg reports a rejected dispatch.
type sendFailedMsg struct {
	err error
}

// switchedMsg reports the outcome of a session switch.
type switchedMsg struct {
	id  uuid.UUID
	err error
}

// modelListMsg carries the installed model names.
type modelListMsg struct {
	names []string
	err   error
}

// listenForEvents waits for the next conductor event. Re-armed after
// every received event; the Bubble Tea loop is the single consumer.
func listenForEvents(ch <-chan chat.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return conductorEventMsg{event: ev}
	}
}

// sendCmd dispatches one user message. The synchronous part persists
// the user turn; streaming results arrive later as conductor events.
func (m *Model) sendCmd(text string) tea.Cmd {
	return func() tea.Msg {
		if err := m.conductor.Send(m.ctx, text); err != nil {
			return sendFailedMsg{err: err}
		}
		return nil
	}
}

// switchCmd loads another session into the conductor.
func (m *Model) switchCmd(id uuid.UUID) tea.Cmd {
	return func() tea.Msg {
		err := m.conductor.SwitchTo(m.ctx, id)
		return switchedMsg{id: id, err: err}
	}
}

// refreshSessionsCmd asks the conductor for a fresh session list.
func (m *Model) refreshSessionsCmd() tea.Cmd {
	return func() tea.Msg {
		m.conductor.RefreshSessions(m.ctx)
		return nil
	}
}

// modelListCmd fetches the installed models from the backend.
func (m *Model) modelListCmd() tea.Cmd {
	return func() tea.Msg {
		names, err := m.models.Models(m.ctx)
		return modelListMsg{names: names, err: err}
	}
}

// handleCommand dispatches slash commands. Returns false when input is
// not a command.
func (m *Model) handleCommand(input string) (tea.Cmd, bool) {
	if !strings.HasPrefix(input, "/") {
		return nil, false
	}

	fields := strings.Fields(input)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case cmdHelp:
		m.showHelp()
		return nil, true

	case cmdClear, cmdNew:
		id := m.conductor.StartNew(m.ctx)
		if m.onSessionChange != nil {
			m.onSessionChange(id)
		}
		m.notices = nil
		m.streamText = ""
		m.state = StateInput
		return nil, true

	case cmdSessions:
		m.listRequested = true
		return m.refreshSessionsCmd(), true

	case cmdSwitch:
		return m.handleSwitch(args), true

	case cmdAttach:
		m.handleAttach(args)
		return nil, true

	case cmdDetach:
		m.handleDetach(args)
		return nil, true

	case cmdModels:
		if m.models == nil {
			m.addNotice(roleError, "model listing is not available")
			return nil, true
		}
		return m.modelListCmd(), true

	case cmdModel:
		m.handleModel(args)
		return nil, true

	case cmdExit, cmdQuit:
		return m.cleanup(), true

	default:
		m.addNotice(roleError, fmt.Sprintf("unknown command %s (try /help)", cmd))
		return nil, true
	}
}

func (m *Model) showHelp() {
	m.addNotice(roleSystem, strings.TrimSpace(`
Commands:
  /help            show this help
  /clear, /new     start a fresh conversation
  /sessions        list past conversations
  /switch <n>      switch to conversation n from /sessions
  /attach <path>   stage a file for the next message
  /detach <n>      remove staged attachment n
  /models          list installed models
  /model <name>    switch the active model
  /exit, /quit     leave`))
}

func (m *Model) handleSwitch(args []string) tea.Cmd {
	if len(args) != 1 {
		m.addNotice(roleError, "usage: /switch <number from /sessions>")
		return nil
	}

	n, err := strconv.Atoi(args[0])
	if err == nil {
		if n < 1 || n > len(m.sessions) {
			m.addNotice(roleError, fmt.Sprintf("no session %d, run /sessions first", n))
			return nil
		}
		return m.switchCmd(m.sessions[n-1].ID)
	}

	// Fall back to a raw session ID.
	id, err := uuid.Parse(args[0])
	if err != nil {
		m.addNotice(roleError, "usage: /switch <number from /sessions>")
		return nil
	}
	return m.switchCmd(id)
}

func (m *Model) handleAttach(args []string) {
	if len(args) == 0 {
		m.addNotice(roleError, "usage: /attach <path>")
		return
	}

	// Paths may contain spaces; everything after the command is one path.
	path := strings.Join(args, " ")
	content, err := os.ReadFile(path) //nolint:gosec // user-chosen local file
	if err != nil {
		m.addNotice(roleError, fmt.Sprintf("attach %s: %v", path, err))
		return
	}

	m.conductor.Stage(filepath.Base(path), string(content))
}

func (m *Model) handleDetach(args []string) {
	if len(args) != 1 {
		m.addNotice(roleError, "usage: /detach <number>")
		return
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 || n > len(m.attached) {
		m.addNotice(roleError, "usage: /detach <number>")
		return
	}
	m.conductor.Unstage(n - 1)
}

func (m *Model) handleModel(args []string) {
	if len(args) != 1 {
		m.addNotice(roleSystem, "current model: "+m.conductor.Model())
		return
	}

	name := args[0]
	if m.models != nil {
		m.models.EnsureModel(name)
	}
	m.conductor.SelectModel(config.QualifiedModelName(m.provider, name))
	m.addNotice(roleSystem, "model set to "+name)
}
