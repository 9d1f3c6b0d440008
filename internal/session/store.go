package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Sentinel errors for the store.
var (
	ErrDBNil    = errors.New("database connection cannot be nil")
	ErrNotFound = errors.New("session not found")
)

// DB is the subset of pgxpool.Pool the store needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists sessions and messages in PostgreSQL.
type Store struct {
	db     DB
	logger *slog.Logger
}

// NewStore creates a session store backed by db.
func NewStore(db DB, logger *slog.Logger) (*Store, error) {
	if db == nil {
		return nil, ErrDBNil
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger}, nil
}

// CreateSession inserts a session row. Inserting an ID that already
// exists is a no-op, so retried dispatches stay idempotent.
func (s *Store) CreateSession(ctx context.Context, id uuid.UUID, title string, createdAt time.Time) error {
	const q = `
		INSERT INTO sessions (id, title, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO NOTHING`

	if _, err := s.db.Exec(ctx, q, id, title, createdAt); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// InsertMessage appends a message to a session.
func (s *Store) InsertMessage(ctx context.Context, sessionID uuid.UUID, role, content string) error {
	const q = `
		INSERT INTO messages (session_id, role, content)
		VALUES ($1, $2, $3)`

	if _, err := s.db.Exec(ctx, q, sessionID, role, content); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// ListSessions returns all sessions, newest first.
func (s *Store) ListSessions(ctx context.Context) ([]Ref, error) {
	const q = `
		SELECT id, title
		FROM sessions
		ORDER BY created_at DESC, id DESC`

	rows, err := s.db.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var refs []Ref
	for rows.Next() {
		var r Ref
		if err := rows.Scan(&r.ID, &r.Title); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		refs = append(refs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return refs, nil
}

// Messages returns up to limit messages of a session in insertion order.
// A stored role that is neither "user" nor "assistant" is normalized to
// assistant rather than failing the whole load.
func (s *Store) Messages(ctx context.Context, sessionID uuid.UUID, limit int32) ([]Message, error) {
	const q = `
		SELECT session_id, role, content
		FROM messages
		WHERE session_id = $1
		ORDER BY id ASC
		LIMIT $2`

	rows, err := s.db.Query(ctx, q, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	defer rows.Close()

	var msgs []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.SessionID, &m.Role, &m.Content); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.Role = s.normalizeRole(m.Role)
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return msgs, nil
}

// UpdateSessionTitle replaces a session's title.
func (s *Store) UpdateSessionTitle(ctx context.Context, id uuid.UUID, title string) error {
	const q = `UPDATE sessions SET title = $2 WHERE id = $1`

	tag, err := s.db.Exec(ctx, q, id, title)
	if err != nil {
		return fmt.Errorf("update session title: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update session title %s: %w", id, ErrNotFound)
	}
	return nil
}

// MessageCount reports how many messages a session holds.
func (s *Store) MessageCount(ctx context.Context, sessionID uuid.UUID) (int64, error) {
	const q = `SELECT COUNT(*) FROM messages WHERE session_id = $1`

	var n int64
	if err := s.db.QueryRow(ctx, q, sessionID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return n, nil
}

func (s *Store) normalizeRole(role string) string {
	switch role {
	case RoleUser:
		return RoleUser
	case RoleAssistant:
		return RoleAssistant
	default:
		s.logger.Warn("unknown message role, treating as assistant", "role", role)
		return RoleAssistant
	}
}
