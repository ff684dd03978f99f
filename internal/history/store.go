// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package history

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/jeranaias/relay-tui/internal/model"
	"github.com/jeranaias/relay-tui/internal/util"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrDatabaseError        = errors.New("database error")
)

// =============================================================================
// SCHEMA
// =============================================================================

const schema = `
CREATE TABLE IF NOT EXISTS conversations (
	id            TEXT PRIMARY KEY,
	title         TEXT NOT NULL DEFAULT '',
	provider      TEXT NOT NULL DEFAULT '',
	model         TEXT NOT NULL DEFAULT '',
	system_prompt TEXT NOT NULL DEFAULT '',
	tokens_used   INTEGER NOT NULL DEFAULT 0,
	created_at    TEXT NOT NULL,
	updated_at    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
	id              TEXT PRIMARY KEY,
	conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
	seq             INTEGER NOT NULL,
	role            TEXT NOT NULL,
	content         TEXT NOT NULL,
	token_count     INTEGER NOT NULL DEFAULT 0,
	duration_ms     INTEGER NOT NULL DEFAULT 0,
	ttft_ms         INTEGER NOT NULL DEFAULT 0,
	tokens_per_sec  REAL NOT NULL DEFAULT 0,
	created_at      TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_messages_conversation
	ON messages(conversation_id, seq);
CREATE INDEX IF NOT EXISTS idx_conversations_updated
	ON conversations(updated_at DESC);
`

// =============================================================================
// STORE
// =============================================================================

// historyFileName is the database file under the relay config directory.
const historyFileName = "history.db"

// DefaultMaxConversations is the retention limit applied by NewStore.
const DefaultMaxConversations = 100

// Store persists conversations in SQLite.
type Store struct {
	mu sync.Mutex
	db *sql.DB

	// MaxConversations limits stored conversations (0 = unlimited).
	// Oldest conversations are pruned on save when over the limit.
	MaxConversations int
}

// NewStore opens the store at the default location (~/.relay/history.db).
func NewStore() (*Store, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return NewStoreAt(filepath.Join(home, ".relay", historyFileName))
}

// NewStoreAt opens the store backed by an explicit database path.
func NewStoreAt(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}

	// SQLite only supports one writer at a time, so limit connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}

	return &Store{db: db, MaxConversations: DefaultMaxConversations}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// =============================================================================
// SAVE
// =============================================================================

// Save persists a conversation and its messages, replacing any prior state
// for the same ID, and returns the conversation ID.
func (s *Store) Save(conv *model.Conversation) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if conv.ID == "" {
		conv.ID = uuid.NewString()
	}
	conv.UpdatedAt = time.Now()
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = conv.UpdatedAt
	}

	tx, err := s.db.Begin()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO conversations (id, title, provider, model, system_prompt, tokens_used, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			provider = excluded.provider,
			model = excluded.model,
			system_prompt = excluded.system_prompt,
			tokens_used = excluded.tokens_used,
			updated_at = excluded.updated_at`,
		conv.ID, conv.GetTitle(), conv.Provider, conv.Model, conv.SystemPrompt,
		conv.TokensUsed, conv.CreatedAt.Format(time.RFC3339Nano), conv.UpdatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}

	// Rewrite the message set whole; partial diffs are not worth the
	// bookkeeping at this scale.
	if _, err := tx.Exec("DELETE FROM messages WHERE conversation_id = ?", conv.ID); err != nil {
		return "", fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO messages (id, conversation_id, seq, role, content, token_count, duration_ms, ttft_ms, tokens_per_sec, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer stmt.Close()

	for i, msg := range conv.Messages {
		id := msg.ID
		if id == "" {
			id = uuid.NewString()
		}
		_, err := stmt.Exec(id, conv.ID, i, msg.Role.String(), msg.GetDisplayContent(),
			msg.TokenCount, msg.TotalDuration.Milliseconds(), msg.TTFT.Milliseconds(),
			msg.TokensPerSec, msg.Timestamp.Format(time.RFC3339Nano))
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}

	if s.MaxConversations > 0 {
		s.enforceLimit()
	}

	return conv.ID, nil
}

// enforceLimit prunes the oldest conversations when over the retention
// limit. Failures are ignored; retention is best-effort.
func (s *Store) enforceLimit() {
	_, _ = s.db.Exec(`
		DELETE FROM conversations WHERE id IN (
			SELECT id FROM conversations
			ORDER BY updated_at DESC
			LIMIT -1 OFFSET ?
		)`, s.MaxConversations)
}

// =============================================================================
// LOAD
// =============================================================================

// Load retrieves a conversation by ID.
func (s *Store) Load(id string) (*model.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv := &model.Conversation{ID: id}
	var createdAt, updatedAt string

	err := s.db.QueryRow(`
		SELECT title, provider, model, system_prompt, tokens_used, created_at, updated_at
		FROM conversations WHERE id = ?`, id).
		Scan(&conv.Title, &conv.Provider, &conv.Model, &conv.SystemPrompt,
			&conv.TokensUsed, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrConversationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}

	conv.CreatedAt = parseTime(createdAt)
	conv.UpdatedAt = parseTime(updatedAt)

	rows, err := s.db.Query(`
		SELECT id, role, content, token_count, duration_ms, ttft_ms, tokens_per_sec, created_at
		FROM messages WHERE conversation_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	for rows.Next() {
		var msg model.Message
		var role, ts string
		var durationMs, ttftMs int64
		if err := rows.Scan(&msg.ID, &role, &msg.Content, &msg.TokenCount,
			&durationMs, &ttftMs, &msg.TokensPerSec, &ts); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
		msg.Role = model.Role(role)
		msg.TotalDuration = time.Duration(durationMs) * time.Millisecond
		msg.TTFT = time.Duration(ttftMs) * time.Millisecond
		msg.Timestamp = parseTime(ts)
		conv.Messages = append(conv.Messages, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}

	return conv, nil
}

// LoadByIndex loads a conversation by its list position (0 = most recent).
func (s *Store) LoadByIndex(index int) (*model.Conversation, error) {
	metas, err := s.List()
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(metas) {
		return nil, ErrConversationNotFound
	}
	return s.Load(metas[index].ID)
}

// =============================================================================
// LIST AND SEARCH
// =============================================================================

const metaQuery = `
	SELECT c.id, c.title, c.provider, c.model, c.created_at, c.updated_at,
		(SELECT COUNT(*) FROM messages m WHERE m.conversation_id = c.id),
		COALESCE((SELECT m.content FROM messages m
			WHERE m.conversation_id = c.id AND m.role = 'user'
			ORDER BY m.seq LIMIT 1), '')
	FROM conversations c`

// List returns metadata for all conversations, most recent first.
func (s *Store) List() ([]model.ConversationMeta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queryMetas(metaQuery + " ORDER BY c.updated_at DESC")
}

// Search finds conversations whose title or message content contains the
// query, case-insensitively. An empty query lists everything.
func (s *Store) Search(query string) ([]model.ConversationMeta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if query == "" {
		return s.queryMetas(metaQuery + " ORDER BY c.updated_at DESC")
	}

	pattern := "%" + query + "%"
	return s.queryMetas(metaQuery+`
		WHERE c.title LIKE ? COLLATE NOCASE
			OR EXISTS (SELECT 1 FROM messages m
				WHERE m.conversation_id = c.id AND m.content LIKE ? COLLATE NOCASE)
		ORDER BY c.updated_at DESC`, pattern, pattern)
}

func (s *Store) queryMetas(query string, args ...any) ([]model.ConversationMeta, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	metas := []model.ConversationMeta{}
	for rows.Next() {
		var m model.ConversationMeta
		var createdAt, updatedAt string
		if err := rows.Scan(&m.ID, &m.Title, &m.Provider, &m.Model,
			&createdAt, &updatedAt, &m.MessageCount, &m.Preview); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
		m.CreatedAt = parseTime(createdAt)
		m.UpdatedAt = parseTime(updatedAt)
		m.Preview = util.TruncateRunes(m.Preview, 80)
		metas = append(metas, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return metas, nil
}

// =============================================================================
// DELETE
// =============================================================================

// Delete removes a conversation and its messages.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec("DELETE FROM conversations WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrConversationNotFound
	}
	return nil
}

// Clear removes all conversations.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec("DELETE FROM conversations"); err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

// parseTime decodes a stored timestamp; a malformed value degrades to the
// zero time rather than failing the whole load.
func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
