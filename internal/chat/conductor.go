// Package chat implements the session and streaming orchestrator: the
// single owner of mutable conversation state.
//
// A [Conductor] holds the current session identity, the in-memory
// mirror of its persisted messages and the staged attachments, all
// behind one mutex. Sends follow a dispatch / stream / reconcile
// shape: the user turn is persisted synchronously under the lock, the
// generation stream runs in a background goroutine without the lock,
// and the finished reply is written back under the session ID captured
// at dispatch time. The presentation layer never calls into the
// conductor's state directly; it consumes [Event] values from a single
// channel.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/keelanv/parley/internal/session"
)

// Sentinel errors for the conductor.
var (
	ErrStoreNil     = errors.New("store cannot be nil")
	ErrGeneratorNil = errors.New("generator cannot be nil")
	ErrModelEmpty   = errors.New("model name cannot be empty")
	ErrEmptyMessage = errors.New("message cannot be empty")
	ErrEmptyStream  = errors.New("model returned no output")
)

// defaultHistoryLimit bounds how many messages a session switch loads.
const defaultHistoryLimit = 200

// Config assembles a Conductor.
type Config struct {
	Store     Store
	Generator Generator

	// Model is the qualified model name sent to the generator,
	// e.g. "ollama/llama3".
	Model string

	// HistoryLimit caps how many messages are loaded when switching
	// to a session. Zero means the default of 200.
	HistoryLimit int32

	// TitlesEnabled turns on asynchronous title summarization for
	// sessions abandoned by a switch or clear.
	TitlesEnabled bool

	Logger *slog.Logger
}

// Conductor owns the conversation state and drives generation streams.
// All exported methods are safe for concurrent use.
type Conductor struct {
	store  Store
	gen    Generator
	logger *slog.Logger

	mu        sync.Mutex
	sessionID uuid.UUID
	history   []session.Message
	pending   []Attachment
	model     string

	historyLimit  int32
	titlesEnabled bool

	events chan Event

	// gate serializes generation streams: a second send dispatches
	// (its user turn persists and renders immediately) but its stream
	// waits until the previous stream has reconciled.
	gate chan struct{}

	wg        sync.WaitGroup
	done      chan struct{}
	closeOnce sync.Once
}

// New creates a Conductor starting on a fresh session. Nothing is
// persisted until the first send.
func New(cfg Config) (*Conductor, error) {
	if cfg.Store == nil {
		return nil, ErrStoreNil
	}
	if cfg.Generator == nil {
		return nil, ErrGeneratorNil
	}
	if cfg.Model == "" {
		return nil, ErrModelEmpty
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = defaultHistoryLimit
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Conductor{
		store:         cfg.Store,
		gen:           cfg.Generator,
		logger:        cfg.Logger,
		sessionID:     uuid.New(),
		model:         cfg.Model,
		historyLimit:  cfg.HistoryLimit,
		titlesEnabled: cfg.TitlesEnabled,
		events:        make(chan Event, eventBufferSize),
		gate:          make(chan struct{}, 1),
		done:          make(chan struct{}),
	}, nil
}

// Events returns the channel the conductor pushes presentation events
// on. A single consumer should drain it for the conductor's lifetime.
func (c *Conductor) Events() <-chan Event { return c.events }

// SessionID returns the current session identity.
func (c *Conductor) SessionID() uuid.UUID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// Model returns the currently selected model.
func (c *Conductor) Model() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.model
}

// SelectModel switches the model used for subsequent sends. In-flight
// streams keep the model they were dispatched with.
func (c *Conductor) SelectModel(name string) {
	c.mu.Lock()
	c.model = name
	c.mu.Unlock()
}

// Rows returns the current conversation as renderable rows.
func (c *Conductor) Rows() []Row {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rowsLocked()
}

// Send accepts one user message: attachments are folded in, the user
// turn is persisted and rendered synchronously, then a background
// stream drives the generator and reconciles the reply. The returned
// error covers only the synchronous dispatch; stream failures arrive
// as events.
func (c *Conductor) Send(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyMessage
	}

	c.mu.Lock()

	composed := foldAttachments(c.pending, text)

	if len(c.history) == 0 {
		if err := c.store.CreateSession(ctx, c.sessionID, text, time.Now()); err != nil {
			c.mu.Unlock()
			err = fmt.Errorf("create session: %w", err)
			c.emit(Event{Err: err})
			return err
		}
	}
	if err := c.store.InsertMessage(ctx, c.sessionID, session.RoleUser, composed); err != nil {
		c.mu.Unlock()
		err = fmt.Errorf("persist user message: %w", err)
		c.emit(Event{Err: err})
		return err
	}

	// The fold is destructive only once the message is durable.
	c.pending = nil
	c.history = append(c.history, session.Message{
		SessionID: c.sessionID,
		Role:      session.RoleUser,
		Content:   composed,
	})

	dispatchID := c.sessionID
	model := c.model
	snapshot := slices.Clone(c.history)
	rows := c.rowsLocked()

	c.mu.Unlock()

	c.emit(Event{Rows: rows})
	c.emit(Event{Attachments: []string{}})

	c.wg.Add(1)
	go c.stream(ctx, dispatchID, model, snapshot)

	return nil
}

// stream runs one generation outside the state lock. The reply is
// filed under dispatchID no matter where the user has navigated since.
func (c *Conductor) stream(ctx context.Context, dispatchID uuid.UUID, model string, history []session.Message) {
	defer c.wg.Done()

	select {
	case c.gate <- struct{}{}:
	case <-c.done:
		return
	case <-ctx.Done():
		c.emit(Event{Err: fmt.Errorf("generation canceled: %w", ctx.Err())})
		return
	}
	defer func() { <-c.gate }()

	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("stream panic recovered", "panic", r, "session_id", dispatchID)
			c.emit(Event{Err: fmt.Errorf("stream panic: %v", r)})
		}
	}()

	var buf strings.Builder
	first := true
	for chunk, err := range c.gen.StreamChat(ctx, model, history) {
		if err != nil {
			c.logger.Error("generation failed", "error", err, "session_id", dispatchID)
			c.emit(Event{Err: fmt.Errorf("generation failed: %w", err)})
			return
		}
		if chunk == "" {
			continue
		}
		buf.WriteString(chunk)
		c.emit(Event{Fragment: &Fragment{Text: buf.String(), First: first}})
		first = false
	}

	if buf.Len() == 0 {
		c.logger.Warn("stream ended without output", "session_id", dispatchID, "model", model)
		c.emit(Event{Err: ErrEmptyStream})
		return
	}

	c.reconcile(ctx, dispatchID, buf.String())
}

// reconcile writes the finished assistant reply under dispatchID and,
// when the user is still looking at that session, mirrors it into the
// in-memory history.
func (c *Conductor) reconcile(ctx context.Context, dispatchID uuid.UUID, text string) {
	c.mu.Lock()

	if err := c.store.InsertMessage(ctx, dispatchID, session.RoleAssistant, text); err != nil {
		c.mu.Unlock()
		c.logger.Error("persist assistant message failed", "error", err, "session_id", dispatchID)
		c.emit(Event{Err: fmt.Errorf("persist assistant message: %w", err)})
		return
	}

	if dispatchID == c.sessionID {
		c.history = append(c.history, session.Message{
			SessionID: dispatchID,
			Role:      session.RoleAssistant,
			Content:   text,
		})
		rows := c.rowsLocked()
		c.mu.Unlock()
		c.emit(Event{Rows: rows})
	} else {
		c.mu.Unlock()
	}

	c.refreshSessions(ctx)
}

// SwitchTo replaces the conversation context with the persisted
// messages of target. A load failure leaves the state untouched; an
// empty history is a valid outcome. Staged attachments never cross a
// session boundary.
func (c *Conductor) SwitchTo(ctx context.Context, target uuid.UUID) error {
	msgs, err := c.store.Messages(ctx, target, c.historyLimit)
	if err != nil {
		err = fmt.Errorf("load session %s: %w", target, err)
		c.emit(Event{Err: err})
		return err
	}

	c.mu.Lock()
	if target != c.sessionID {
		c.maybeFinalizeTitleLocked(ctx)
	}
	c.sessionID = target
	c.history = msgs
	c.pending = nil
	rows := c.rowsLocked()
	c.mu.Unlock()

	c.emit(Event{Rows: rows})
	c.emit(Event{Attachments: []string{}})
	return nil
}

// StartNew abandons the current conversation for a fresh session ID.
// Nothing is persisted for the new session until its first send.
func (c *Conductor) StartNew(ctx context.Context) uuid.UUID {
	c.mu.Lock()
	c.maybeFinalizeTitleLocked(ctx)
	c.sessionID = uuid.New()
	c.history = nil
	c.pending = nil
	id := c.sessionID
	c.mu.Unlock()

	c.emit(Event{Rows: []Row{}})
	c.emit(Event{Attachments: []string{}})
	return id
}

// RefreshSessions pushes a fresh session list event.
func (c *Conductor) RefreshSessions(ctx context.Context) {
	c.refreshSessions(ctx)
}

func (c *Conductor) refreshSessions(ctx context.Context) {
	refs, err := c.store.ListSessions(ctx)
	if err != nil {
		c.logger.Error("list sessions failed", "error", err)
		c.emit(Event{Err: fmt.Errorf("list sessions: %w", err)})
		return
	}
	if refs == nil {
		refs = []session.Ref{}
	}
	c.emit(Event{Sessions: refs})
}

// Close stops event delivery and waits for in-flight streams and title
// finalizations to finish.
func (c *Conductor) Close() {
	c.closeOnce.Do(func() { close(c.done) })
	c.wg.Wait()
}

func (c *Conductor) rowsLocked() []Row {
	rows := make([]Row, len(c.history))
	for i, m := range c.history {
		rows[i] = Row{Role: m.Role, Text: m.Content}
	}
	return rows
}

// emit delivers an event unless the conductor is closed.
func (c *Conductor) emit(ev Event) {
	select {
	case c.events <- ev:
	case <-c.done:
	}
}
