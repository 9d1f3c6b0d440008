// Package session provides conversation persistence with PostgreSQL.
//
// A session is one persisted conversation thread: a row in the sessions
// table plus its ordered messages. The [Store] handles persistence; the
// chat package owns conversation state and logic.
package session

import (
	"time"

	"github.com/google/uuid"
)

// Role constants define valid message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Session represents a conversation session (application-level type).
type Session struct {
	ID        uuid.UUID
	Title     string
	CreatedAt time.Time
}

// Ref is a lightweight session reference for listing.
type Ref struct {
	ID    uuid.UUID
	Title string
}

// Message represents a single conversation message (application-level type).
type Message struct {
	SessionID uuid.UUID
	Role      string // RoleUser | RoleAssistant
	Content   string
}
