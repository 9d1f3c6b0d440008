package chat

import (
	"context"
	"iter"
	"time"

	"github.com/google/uuid"

	"github.com/keelanv/parley/internal/session"
)

// Store is the persistence surface the conductor needs. Satisfied by
// *session.Store.
type Store interface {
	CreateSession(ctx context.Context, id uuid.UUID, title string, createdAt time.Time) error
	InsertMessage(ctx context.Context, sessionID uuid.UUID, role, content string) error
	ListSessions(ctx context.Context) ([]session.Ref, error)
	Messages(ctx context.Context, sessionID uuid.UUID, limit int32) ([]session.Message, error)
	UpdateSessionTitle(ctx context.Context, id uuid.UUID, title string) error
}

// Generator is the text-generation surface the conductor needs.
// Satisfied by *llm.Client.
type Generator interface {
	// StreamChat sends history to model and yields incremental text
	// fragments until the stream completes or fails.
	StreamChat(ctx context.Context, model string, history []session.Message) iter.Seq2[string, error]

	// Generate performs a single non-streaming completion. Used for
	// title summarization.
	Generate(ctx context.Context, model, prompt string) (string, error)
}
