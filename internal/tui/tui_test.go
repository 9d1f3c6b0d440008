package tui

import (
	"context"
	"errors"
	"iter"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/keelanv/parley/internal/chat"
	"github.com/keelanv/parley/internal/session"
)

// stubStore satisfies chat.Store with inert no-ops.
type stubStore struct{}

func (stubStore) CreateSession(context.Context, uuid.UUID, string, time.Time) error {
	return nil
}

func (stubStore) InsertMessage(context.Context, uuid.UUID, string, string) error {
	return nil
}

func (stubStore) ListSessions(context.Context) ([]session.Ref, error) {
	return nil, nil
}

func (stubStore) Messages(context.Context, uuid.UUID, int32) ([]session.Message, error) {
	return nil, nil
}

func (stubStore) UpdateSessionTitle(context.Context, uuid.UUID, string) error {
	return nil
}

// stubGen satisfies chat.Generator and never produces output.
type stubGen struct{}

func (stubGen) StreamChat(context.Context, string, []session.Message) iter.Seq2[string, error] {
	return func(func(string, error) bool) {}
}

func (stubGen) Generate(context.Context, string, string) (string, error) {
	return "", nil
}

// stubModels records ModelSource calls.
type stubModels struct {
	ensured []string
	names   []string
	err     error
}

func (s *stubModels) Models(context.Context) ([]string, error) { return s.names, s.err }
func (s *stubModels) EnsureModel(name string)                  { s.ensured = append(s.ensured, name) }

func newTestModel(t *testing.T) (*Model, *stubModels) {
	t.Helper()

	conductor, err := chat.New(chat.Config{
		Store:     stubStore{},
		Generator: stubGen{},
		Model:     "ollama/llama3",
	})
	if err != nil {
		t.Fatalf("chat.New() error = %v", err)
	}
	t.Cleanup(conductor.Close)

	models := &stubModels{}
	m, err := New(context.Background(), Options{
		Conductor: conductor,
		Models:    models,
		Provider:  "ollama",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(m.ctxCancel)
	return m, models
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(context.Background(), Options{}); err == nil {
		t.Error("New() without conductor error = nil, want error")
	}
}

func TestHandleCommand_NotACommand(t *testing.T) {
	m, _ := newTestModel(t)

	if _, handled := m.handleCommand("just a message"); handled {
		t.Error("handleCommand() treated plain text as a command")
	}
}

func TestHandleCommand_Unknown(t *testing.T) {
	m, _ := newTestModel(t)

	_, handled := m.handleCommand("/bogus")
	if !handled {
		t.Fatal("handleCommand(/bogus) not handled")
	}
	if len(m.notices) != 1 || m.notices[0].Role != roleError {
		t.Errorf("notices = %+v, want one error notice", m.notices)
	}
}

func TestHandleCommand_Help(t *testing.T) {
	m, _ := newTestModel(t)

	_, handled := m.handleCommand("/help")
	if !handled {
		t.Fatal("handleCommand(/help) not handled")
	}
	if len(m.notices) != 1 || !strings.Contains(m.notices[0].Text, "/switch") {
		t.Errorf("help notice = %+v", m.notices)
	}
}

func TestHandleCommand_ClearStartsFreshSession(t *testing.T) {
	m, _ := newTestModel(t)
	before := m.conductor.SessionID()

	var saved []uuid.UUID
	m.onSessionChange = func(id uuid.UUID) { saved = append(saved, id) }

	m.addNotice(roleSystem, "old notice")
	m.streamText = "partial"

	_, handled := m.handleCommand("/clear")
	if !handled {
		t.Fatal("handleCommand(/clear) not handled")
	}

	after := m.conductor.SessionID()
	if after == before {
		t.Error("session ID unchanged after /clear")
	}
	if len(saved) != 1 || saved[0] != after {
		t.Errorf("onSessionChange calls = %v, want new session ID", saved)
	}
	if len(m.notices) != 0 || m.streamText != "" {
		t.Error("transient view state not reset by /clear")
	}
}

func TestHandleCommand_SwitchValidation(t *testing.T) {
	m, _ := newTestModel(t)
	m.sessions = []session.Ref{{ID: uuid.New(), Title: "one"}}

	tests := []struct {
		name  string
		input string
	}{
		{name: "missing argument", input: "/switch"},
		{name: "not a number", input: "/switch abc"},
		{name: "zero index", input: "/switch 0"},
		{name: "out of range", input: "/switch 5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m.notices = nil
			cmd, handled := m.handleCommand(tt.input)
			if !handled {
				t.Fatalf("handleCommand(%q) not handled", tt.input)
			}
			if cmd != nil {
				t.Errorf("handleCommand(%q) returned a command, want rejection", tt.input)
			}
			if len(m.notices) != 1 || m.notices[0].Role != roleError {
				t.Errorf("notices = %+v, want one error notice", m.notices)
			}
		})
	}
}

func TestHandleCommand_SwitchByIndex(t *testing.T) {
	m, _ := newTestModel(t)
	m.sessions = []session.Ref{
		{ID: uuid.New(), Title: "first"},
		{ID: uuid.New(), Title: "second"},
	}

	cmd, handled := m.handleCommand("/switch 2")
	if !handled || cmd == nil {
		t.Fatal("handleCommand(/switch 2) did not return a switch command")
	}

	msg := cmd()
	switched, ok := msg.(switchedMsg)
	if !ok {
		t.Fatalf("command returned %T, want switchedMsg", msg)
	}
	if switched.err != nil {
		t.Fatalf("switch error = %v", switched.err)
	}
	if switched.id != m.sessions[1].ID {
		t.Errorf("switched to %v, want %v", switched.id, m.sessions[1].ID)
	}
}

func TestHandleCommand_Model(t *testing.T) {
	m, models := newTestModel(t)

	// Without arguments: report the current model.
	_, handled := m.handleCommand("/model")
	if !handled {
		t.Fatal("handleCommand(/model) not handled")
	}
	if len(m.notices) != 1 || !strings.Contains(m.notices[0].Text, "ollama/llama3") {
		t.Errorf("notices = %+v, want current model", m.notices)
	}

	// With an argument: register and select.
	if _, handled := m.handleCommand("/model mistral"); !handled {
		t.Fatal("handleCommand(/model mistral) not handled")
	}
	if len(models.ensured) != 1 || models.ensured[0] != "mistral" {
		t.Errorf("EnsureModel calls = %v, want [mistral]", models.ensured)
	}
	if got := m.conductor.Model(); got != "ollama/mistral" {
		t.Errorf("conductor model = %q, want ollama/mistral", got)
	}
}

func TestHandleCommand_DetachBounds(t *testing.T) {
	m, _ := newTestModel(t)
	m.attached = []string{"a.txt"}

	for _, input := range []string{"/detach", "/detach abc", "/detach 0", "/detach 2"} {
		m.notices = nil
		if _, handled := m.handleCommand(input); !handled {
			t.Fatalf("handleCommand(%q) not handled", input)
		}
		if len(m.notices) != 1 || m.notices[0].Role != roleError {
			t.Errorf("handleCommand(%q) notices = %+v, want usage error", input, m.notices)
		}
	}
}

func TestApplyEvent_FragmentAndCompletion(t *testing.T) {
	m, _ := newTestModel(t)
	m.state = StateThinking

	m.applyEvent(chat.Event{Fragment: &chat.Fragment{Text: "Hel", First: true}})
	if m.streamText != "Hel" || m.state != StateStreaming {
		t.Errorf("after first fragment: streamText=%q state=%v", m.streamText, m.state)
	}

	m.applyEvent(chat.Event{Fragment: &chat.Fragment{Text: "Hello"}})
	if m.streamText != "Hello" {
		t.Errorf("streamText = %q, want cumulative replacement", m.streamText)
	}

	// Completed exchange arrives as a row list ending in an assistant row.
	m.applyEvent(chat.Event{Rows: []chat.Row{
		{Role: session.RoleUser, Text: "hi"},
		{Role: session.RoleAssistant, Text: "Hello"},
	}})
	if m.streamText != "" || m.state != StateInput {
		t.Errorf("after completion: streamText=%q state=%v", m.streamText, m.state)
	}
	if len(m.rows) != 2 {
		t.Errorf("rows = %+v", m.rows)
	}
}

func TestApplyEvent_DispatchRowsKeepStreaming(t *testing.T) {
	m, _ := newTestModel(t)
	m.state = StateThinking

	// Row list ending in a user row is a dispatch, not a completion.
	m.applyEvent(chat.Event{Rows: []chat.Row{{Role: session.RoleUser, Text: "hi"}}})
	if m.state != StateThinking {
		t.Errorf("state = %v after dispatch rows, want StateThinking", m.state)
	}
}

func TestApplyEvent_ErrorNotice(t *testing.T) {
	m, _ := newTestModel(t)
	m.state = StateStreaming
	m.streamText = "partial"

	m.applyEvent(chat.Event{Err: errors.New("generation failed: boom")})

	if m.state != StateInput || m.streamText != "" {
		t.Errorf("error did not reset stream state: state=%v streamText=%q", m.state, m.streamText)
	}
	if len(m.notices) != 1 || m.notices[0].Role != roleError {
		t.Errorf("notices = %+v, want one error notice", m.notices)
	}
}

func TestApplyEvent_SessionListGating(t *testing.T) {
	m, _ := newTestModel(t)
	refs := []session.Ref{{ID: uuid.New(), Title: "older chat"}}

	// Unsolicited refresh: cache silently.
	m.applyEvent(chat.Event{Sessions: refs})
	if len(m.notices) != 0 {
		t.Errorf("unsolicited session list produced notices: %+v", m.notices)
	}
	if len(m.sessions) != 1 {
		t.Errorf("sessions not cached: %+v", m.sessions)
	}

	// After /sessions: print once.
	m.listRequested = true
	m.applyEvent(chat.Event{Sessions: refs})
	if len(m.notices) != 1 || !strings.Contains(m.notices[0].Text, "older chat") {
		t.Errorf("notices = %+v, want printed session list", m.notices)
	}
	if m.listRequested {
		t.Error("listRequested not cleared after printing")
	}
}

func TestApplyEvent_Attachments(t *testing.T) {
	m, _ := newTestModel(t)

	m.applyEvent(chat.Event{Attachments: []string{"notes.txt"}})
	if len(m.attached) != 1 || m.attached[0] != "notes.txt" {
		t.Errorf("attached = %v", m.attached)
	}

	m.applyEvent(chat.Event{Attachments: []string{}})
	if len(m.attached) != 0 {
		t.Errorf("attached = %v after clearing event", m.attached)
	}
}

func TestNavigateHistory(t *testing.T) {
	m, _ := newTestModel(t)
	m.history = []string{"first", "second"}
	m.historyIdx = len(m.history)

	m.navigateHistory(-1)
	if got := m.input.Value(); got != "second" {
		t.Errorf("input = %q, want second", got)
	}

	m.navigateHistory(-1)
	if got := m.input.Value(); got != "first" {
		t.Errorf("input = %q, want first", got)
	}

	// Walking past the oldest entry stays put.
	m.navigateHistory(-1)
	if got := m.input.Value(); got != "first" {
		t.Errorf("input = %q, want first", got)
	}

	m.navigateHistory(1)
	m.navigateHistory(1)
	if got := m.input.Value(); got != "" {
		t.Errorf("input = %q, want empty past newest entry", got)
	}
}

func TestAddNotice_Bounded(t *testing.T) {
	m, _ := newTestModel(t)

	for i := 0; i < maxNotices+10; i++ {
		m.addNotice(roleSystem, "notice")
	}
	if len(m.notices) != maxNotices {
		t.Errorf("notices length = %d, want capped at %d", len(m.notices), maxNotices)
	}
}

func TestMarkdownRenderer_NilSafe(t *testing.T) {
	var m *markdownRenderer

	if got := m.Render("**bold**"); got != "**bold**" {
		t.Errorf("nil renderer Render() = %q, want passthrough", got)
	}
	if m.UpdateWidth(100) {
		t.Error("nil renderer UpdateWidth() = true, want false")
	}
}

func TestMarkdownRenderer_WidthCaching(t *testing.T) {
	r := newMarkdownRenderer(80)
	if r == nil {
		t.Skip("glamour unavailable in this environment")
	}

	if r.UpdateWidth(80) {
		t.Error("UpdateWidth(80) = true for unchanged width")
	}
	if !r.UpdateWidth(120) {
		t.Error("UpdateWidth(120) = false, want renderer recreation")
	}
	if r.width != 120 {
		t.Errorf("width = %d, want 120", r.width)
	}
}
