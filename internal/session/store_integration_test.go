//go:build integration
// +build integration

package session

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keelanv/parley/internal/testutil"
)

func TestStore_CreateSessionAndInsertMessage_Integration(t *testing.T) {
	dbc, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	store, err := NewStore(dbc.Pool, testutil.QuietLogger())
	require.NoError(t, err)
	ctx := context.Background()

	id := uuid.New()
	require.NoError(t, store.CreateSession(ctx, id, "First words", time.Now()))

	require.NoError(t, store.InsertMessage(ctx, id, RoleUser, "hello"))
	require.NoError(t, store.InsertMessage(ctx, id, RoleAssistant, "hi there"))

	msgs, err := store.Messages(ctx, id, 100)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, RoleUser, msgs[0].Role)
	assert.Equal(t, "hello", msgs[0].Content)
	assert.Equal(t, RoleAssistant, msgs[1].Role)
	assert.Equal(t, "hi there", msgs[1].Content)

	n, err := store.MessageCount(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestStore_CreateSession_Idempotent_Integration(t *testing.T) {
	dbc, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	store, err := NewStore(dbc.Pool, testutil.QuietLogger())
	require.NoError(t, err)
	ctx := context.Background()

	id := uuid.New()
	require.NoError(t, store.CreateSession(ctx, id, "original", time.Now()))
	// Second insert with the same ID is a no-op, not a conflict error.
	require.NoError(t, store.CreateSession(ctx, id, "replayed", time.Now()))

	refs, err := store.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, "original", refs[0].Title)
}

func TestStore_ListSessions_NewestFirst_Integration(t *testing.T) {
	dbc, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	store, err := NewStore(dbc.Pool, testutil.QuietLogger())
	require.NoError(t, err)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		id := uuid.New()
		ids = append(ids, id)
		require.NoError(t, store.CreateSession(ctx,
			id, fmt.Sprintf("Session %d", i+1), base.Add(time.Duration(i)*time.Minute)))
	}

	refs, err := store.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, refs, 3)

	assert.Equal(t, ids[2], refs[0].ID, "newest session first")
	assert.Equal(t, ids[0], refs[2].ID, "oldest session last")
}

func TestStore_Messages_LimitAndOrder_Integration(t *testing.T) {
	dbc, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	store, err := NewStore(dbc.Pool, testutil.QuietLogger())
	require.NoError(t, err)
	ctx := context.Background()

	id := uuid.New()
	require.NoError(t, store.CreateSession(ctx, id, "long chat", time.Now()))
	for i := 0; i < 10; i++ {
		require.NoError(t, store.InsertMessage(ctx, id, RoleUser, fmt.Sprintf("msg %d", i)))
	}

	msgs, err := store.Messages(ctx, id, 4)
	require.NoError(t, err)
	require.Len(t, msgs, 4)
	assert.Equal(t, "msg 0", msgs[0].Content, "oldest message first")
	assert.Equal(t, "msg 3", msgs[3].Content)
}

func TestStore_Messages_NormalizesUnknownRole_Integration(t *testing.T) {
	dbc, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	store, err := NewStore(dbc.Pool, testutil.QuietLogger())
	require.NoError(t, err)
	ctx := context.Background()

	id := uuid.New()
	require.NoError(t, store.CreateSession(ctx, id, "odd roles", time.Now()))

	// Bypass the store to plant a role the application never writes.
	_, err = dbc.Pool.Exec(ctx,
		`INSERT INTO messages (session_id, role, content) VALUES ($1, 'tool', 'raw output')`, id)
	require.NoError(t, err)

	msgs, err := store.Messages(ctx, id, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, RoleAssistant, msgs[0].Role, "unknown role loads as assistant")
}

func TestStore_UpdateSessionTitle_Integration(t *testing.T) {
	dbc, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	store, err := NewStore(dbc.Pool, testutil.QuietLogger())
	require.NoError(t, err)
	ctx := context.Background()

	id := uuid.New()
	require.NoError(t, store.CreateSession(ctx, id, "new conversation", time.Now()))
	require.NoError(t, store.UpdateSessionTitle(ctx, id, "Trip planning for Kyoto"))

	refs, err := store.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, "Trip planning for Kyoto", refs[0].Title)

	err = store.UpdateSessionTitle(ctx, uuid.New(), "nobody home")
	assert.ErrorIs(t, err, ErrNotFound)
}
