// ABOUTME: SQLite implementation of ragchat persistence using modernc.org/sqlite
// ABOUTME: Chat state is stored as JSON blobs keyed by user scope, plus session and preference rows

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/nosta/ragchat/internal/session"
)

// SQLiteStore persists chat state, the session record and preferences.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (or creates) the database at the given path.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS chat_state (
			scope_key    TEXT PRIMARY KEY,
			data         TEXT NOT NULL,
			last_updated TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS app_session (
			id            INTEGER PRIMARY KEY CHECK (id = 1),
			session_id    TEXT NOT NULL,
			created_at    TEXT NOT NULL,
			last_activity TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS preferences (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	return nil
}

// SaveChatState serializes and upserts the state for a user scope, stamping
// last_updated. Callers treat failures as advisory: in-memory state stays
// authoritative.
func (s *SQLiteStore) SaveChatState(ctx context.Context, scopeKey string, state *ChatState) error {
	state.LastUpdated = time.Now()
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshaling chat state: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO chat_state (scope_key, data, last_updated)
		VALUES (?, ?, ?)
		ON CONFLICT(scope_key) DO UPDATE SET
			data = excluded.data,
			last_updated = excluded.last_updated
	`, scopeKey, string(data), state.LastUpdated.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("saving chat state: %w", err)
	}
	return nil
}

// LoadChatState returns ErrNotFound for both missing and corrupt data: a
// parse that fails is never partially trusted.
func (s *SQLiteStore) LoadChatState(ctx context.Context, scopeKey string) (*ChatState, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM chat_state WHERE scope_key = ?`, scopeKey).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading chat state: %w", err)
	}

	var state ChatState
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		s.logger.Warn("corrupt chat state, treating as absent", "scope_key", scopeKey, "error", err)
		return nil, ErrNotFound
	}
	return &state, nil
}

// ClearChatState removes all persisted data for the scope.
func (s *SQLiteStore) ClearChatState(ctx context.Context, scopeKey string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM chat_state WHERE scope_key = ?`, scopeKey); err != nil {
		return fmt.Errorf("clearing chat state: %w", err)
	}
	return nil
}

// LoadSession implements session.Store.
func (s *SQLiteStore) LoadSession(ctx context.Context) (*session.Session, error) {
	var (
		id           string
		createdAt    string
		lastActivity string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT session_id, created_at, last_activity FROM app_session WHERE id = 1`).
		Scan(&id, &createdAt, &lastActivity)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}

	created, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, ErrNotFound
	}
	activity, err := time.Parse(time.RFC3339Nano, lastActivity)
	if err != nil {
		return nil, ErrNotFound
	}

	return &session.Session{
		ID:           id,
		CreatedAt:    created,
		LastActivity: activity,
	}, nil
}

// SaveSession implements session.Store. The table holds exactly one row.
func (s *SQLiteStore) SaveSession(ctx context.Context, sess *session.Session) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO app_session (id, session_id, created_at, last_activity)
		VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			session_id = excluded.session_id,
			created_at = excluded.created_at,
			last_activity = excluded.last_activity
	`, sess.ID,
		sess.CreatedAt.Format(time.RFC3339Nano),
		sess.LastActivity.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

// GetPreference returns ErrNotFound when the key has never been set.
func (s *SQLiteStore) GetPreference(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM preferences WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("loading preference %q: %w", key, err)
	}
	return value, nil
}

// SetPreference upserts a preference value.
func (s *SQLiteStore) SetPreference(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO preferences (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`, key, value, time.Now().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("saving preference %q: %w", key, err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
