// Package tui provides the Bubble Tea terminal interface for Parley.
package tui

import (
	"context"
	"errors"
	"strings"
	"time"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/spinner"
	"charm.land/bubbles/v2/textarea"
	"charm.land/bubbles/v2/viewport"
	"charm.land/lipgloss/v2"
	"github.com/google/uuid"

	"github.com/keelanv/parley/internal/chat"
	"github.com/keelanv/parley/internal/session"
)

// State represents the TUI state machine.
type State int

// TUI state machine states.
const (
	StateInput     State = iota // Awaiting user input
	StateThinking               // Request dispatched, no fragment yet
	StateStreaming              // Fragments arriving
)

// Memory bounds to prevent unbounded growth.
const (
	maxNotices = 50  // Maximum transient notice lines kept
	maxHistory = 100 // Maximum command history entries
)

// Display roles for notice rows. Conversation rows reuse the session
// package's role constants.
const (
	roleSystem = "system"
	roleError  = "error"
)

// Layout constants for viewport height calculation.
const (
	separatorLines = 2 // Two separator lines (above and below input)
	helpLines      = 1 // Help bar height
	promptLines    = 1 // Prompt prefix line
	minViewport    = 3 // Minimum viewport height
)

// notice is a transient display-only line (command output, errors).
// Notices are never persisted and vanish on session switch or clear.
type notice struct {
	Role string // roleSystem or roleError
	Text string
}

// ModelSource lists and registers models with the generation backend.
// Satisfied by *llm.Client.
type ModelSource interface {
	Models(ctx context.Context) ([]string, error)
	EnsureModel(bareName string)
}

// Model is the Bubble Tea model for the Parley terminal interface.
type Model struct {
	// Input (textarea for multi-line support, Shift+Enter for newline)
	input      textarea.Model
	history    []string
	historyIdx int

	// State
	state     State
	lastCtrlC time.Time

	// Conversation view, mirrored from conductor events.
	rows       []chat.Row
	streamText string // cumulative in-flight assistant text
	sessions   []session.Ref
	attached   []string
	notices    []notice

	// listRequested marks that the next session-list event came from
	// an explicit /sessions command and should be printed.
	listRequested bool

	spinner  spinner.Model
	viewBuf  strings.Builder // Reusable buffer for View() to reduce allocations
	viewport viewport.Model

	help help.Model
	keys keyMap

	// Dependencies
	conductor *chat.Conductor
	models    ModelSource
	provider  string

	// onSessionChange is invoked whenever the active session ID
	// changes, so the caller can persist it for resume. Optional.
	onSessionChange func(uuid.UUID)

	ctx       context.Context
	ctxCancel context.CancelFunc

	width  int
	height int

	styles   Styles
	markdown *markdownRenderer
}

// Options configures New.
type Options struct {
	Conductor *chat.Conductor
	Models    ModelSource

	// Provider qualifies bare model names for the conductor,
	// e.g. "ollama" turns "mistral" into "ollama/mistral".
	Provider string

	OnSessionChange func(uuid.UUID)
}

// New creates a Model wired to a running conductor.
//
// ctx must be the same context passed to tea.WithContext() so
// cancellation stays consistent.
func New(ctx context.Context, opts Options) (*Model, error) {
	if opts.Conductor == nil {
		return nil, errors.New("tui.New: conductor is required")
	}
	if ctx == nil {
		return nil, errors.New("tui.New: ctx is required")
	}

	ctx, cancel := context.WithCancel(ctx)

	ta := textarea.New()
	ta.Placeholder = "Ask anything... (/help for commands)"
	ta.SetHeight(1)
	ta.SetWidth(120)
	ta.MaxWidth = 0
	ta.ShowLineNumbers = false

	// Plain text input, no backgrounds.
	cleanStyle := textarea.StyleState{
		Base:        lipgloss.NewStyle(),
		Text:        lipgloss.NewStyle(),
		Placeholder: lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		Prompt:      lipgloss.NewStyle(),
	}
	ta.SetStyles(textarea.Styles{
		Focused: cleanStyle,
		Blurred: cleanStyle,
	})
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	// Built-in viewport key handling is disabled; keys are routed
	// explicitly in handleKey to avoid conflicts with the textarea.
	vp := viewport.New(viewport.WithWidth(80), viewport.WithHeight(20))
	vp.MouseWheelEnabled = true
	vp.SoftWrap = true
	vp.KeyMap = viewport.KeyMap{}

	return &Model{
		conductor:       opts.Conductor,
		models:          opts.Models,
		provider:        opts.Provider,
		onSessionChange: opts.OnSessionChange,
		ctx:             ctx,
		ctxCancel:       cancel,
		input:           ta,
		spinner:         sp,
		viewport:        vp,
		help:            help.New(),
		keys:            newKeyMap(),
		styles:          DefaultStyles(),
		history:         make([]string, 0, maxHistory),
		rows:            opts.Conductor.Rows(),
		markdown:        newMarkdownRenderer(80),
		width:           80,
	}, nil
}

// addNotice appends a transient display line and enforces the bound.
func (m *Model) addNotice(role, text string) {
	m.notices = append(m.notices, notice{Role: role, Text: text})
	if len(m.notices) > maxNotices {
		m.notices = m.notices[len(m.notices)-maxNotices:]
	}
}
