// ABOUTME: Tests for the SQLite persistence layer
// ABOUTME: Covers chat-state roundtrips, corrupt data handling, sessions and preferences

package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nosta/ragchat/internal/session"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestChatStateRoundtrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	state := &ChatState{
		Conversations: []Conversation{
			{
				ID:        "conv-1",
				Title:     "First chat",
				CreatedAt: time.Now().UTC().Truncate(time.Second),
				Messages: []Message{
					{ID: "m1", Content: "hello", Sender: SenderUser, Timestamp: time.Now().UTC()},
					{ID: "m2", Content: "hi!", Sender: SenderAI, Timestamp: time.Now().UTC(), AgentID: "legal",
						Images: []string{"chart.png"}},
				},
				ActiveSources: []DocumentRef{{ID: "doc-1", Name: "Handbook.pdf", Kind: "pdf"}},
			},
			{ID: "conv-2", Title: "Second chat", CreatedAt: time.Now().UTC()},
		},
		ActiveConversation: "conv-1",
	}

	require.NoError(t, s.SaveChatState(ctx, "scope-a", state))

	loaded, err := s.LoadChatState(ctx, "scope-a")
	require.NoError(t, err)
	require.Len(t, loaded.Conversations, 2)
	assert.Equal(t, "conv-1", loaded.ActiveConversation)
	assert.Equal(t, "First chat", loaded.Conversations[0].Title)
	require.Len(t, loaded.Conversations[0].Messages, 2)
	assert.Equal(t, "legal", loaded.Conversations[0].Messages[1].AgentID)
	assert.Equal(t, []string{"chart.png"}, loaded.Conversations[0].Messages[1].Images)
	require.Len(t, loaded.Conversations[0].ActiveSources, 1)
	assert.Equal(t, "Handbook.pdf", loaded.Conversations[0].ActiveSources[0].Name)
	assert.False(t, loaded.LastUpdated.IsZero())
}

func TestChatStateOverwrite(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveChatState(ctx, "scope-a", &ChatState{
		Conversations: []Conversation{{ID: "old", Title: "Old"}},
	}))
	require.NoError(t, s.SaveChatState(ctx, "scope-a", &ChatState{
		Conversations: []Conversation{{ID: "new", Title: "New"}},
	}))

	loaded, err := s.LoadChatState(ctx, "scope-a")
	require.NoError(t, err)
	require.Len(t, loaded.Conversations, 1)
	assert.Equal(t, "new", loaded.Conversations[0].ID)
}

func TestChatStateScopeIsolation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveChatState(ctx, "scope-a", &ChatState{
		Conversations: []Conversation{{ID: "a"}},
	}))

	_, err := s.LoadChatState(ctx, "scope-b")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoadChatStateMissing(t *testing.T) {
	s := newTestStore(t)
	_, err := s.LoadChatState(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoadChatStateCorrupt(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_state (scope_key, data, last_updated) VALUES (?, ?, ?)`,
		"scope-a", "{not json", time.Now().Format(time.RFC3339Nano))
	require.NoError(t, err)

	_, err = s.LoadChatState(ctx, "scope-a")
	assert.ErrorIs(t, err, ErrNotFound, "corrupt data reads the same as missing data")
}

func TestClearChatState(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveChatState(ctx, "scope-a", &ChatState{}))
	require.NoError(t, s.ClearChatState(ctx, "scope-a"))

	_, err := s.LoadChatState(ctx, "scope-a")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSessionRoundtrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.LoadSession(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	sess := &session.Session{
		ID:           "session-1",
		CreatedAt:    time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		LastActivity: time.Date(2026, 3, 1, 10, 5, 0, 0, time.UTC),
	}
	require.NoError(t, s.SaveSession(ctx, sess))

	loaded, err := s.LoadSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, "session-1", loaded.ID)
	assert.True(t, loaded.CreatedAt.Equal(sess.CreatedAt))
	assert.True(t, loaded.LastActivity.Equal(sess.LastActivity))
}

func TestSessionSingleRow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveSession(ctx, &session.Session{
		ID: "first", CreatedAt: time.Now(), LastActivity: time.Now(),
	}))
	require.NoError(t, s.SaveSession(ctx, &session.Session{
		ID: "second", CreatedAt: time.Now(), LastActivity: time.Now(),
	}))

	loaded, err := s.LoadSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, "second", loaded.ID, "replacement keeps exactly one row")

	var count int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM app_session`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestPreferences(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.GetPreference(ctx, PrefSelectedAgent)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.SetPreference(ctx, PrefSelectedAgent, "legal"))
	value, err := s.GetPreference(ctx, PrefSelectedAgent)
	require.NoError(t, err)
	assert.Equal(t, "legal", value)

	require.NoError(t, s.SetPreference(ctx, PrefSelectedAgent, "sap"))
	value, err = s.GetPreference(ctx, PrefSelectedAgent)
	require.NoError(t, err)
	assert.Equal(t, "sap", value)
}
