package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/taskyapp/tasky-backend/internal/models"
	"github.com/taskyapp/tasky-backend/internal/storage"
)

// ChatStore implements the thread, message and checkpoint stores on PostgreSQL.
type ChatStore struct {
	db *sql.DB
}

// NewChatStore opens a pooled connection and verifies it.
func NewChatStore(dataSourceName string) (*ChatStore, error) {
	db, err := sql.Open("postgres", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &ChatStore{db: db}, nil
}

// EnsureSchema creates the chat tables if they do not exist.
func (s *ChatStore) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS threads (
			id TEXT PRIMARY KEY,
			participant_low TEXT NOT NULL,
			participant_high TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS threads_low_idx ON threads (participant_low)`,
		`CREATE INDEX IF NOT EXISTS threads_high_idx ON threads (participant_high)`,
		`CREATE TABLE IF NOT EXISTS messages (
			seq BIGSERIAL PRIMARY KEY,
			id TEXT NOT NULL UNIQUE,
			thread_id TEXT NOT NULL REFERENCES threads (id),
			sender_id TEXT NOT NULL,
			body TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS messages_thread_idx ON messages (thread_id, created_at, seq)`,
		`CREATE TABLE IF NOT EXISTS checkpoints (
			user_id TEXT NOT NULL,
			thread_id TEXT NOT NULL,
			opened_at TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (user_id, thread_id)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure chat schema: %w", err)
		}
	}
	return nil
}

// EnsureThread inserts the thread if absent. The deterministic id makes the
// insert naturally idempotent; ON CONFLICT DO NOTHING absorbs concurrent
// creators and the follow-up select reads whichever row won.
func (s *ChatStore) EnsureThread(ctx context.Context, id string, participants [2]string, createdAt time.Time) (*models.Thread, bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO threads (id, participant_low, participant_high, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING
	`, id, participants[0], participants[1], createdAt)
	if err != nil {
		return nil, false, fmt.Errorf("ensure thread: %w", err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("ensure thread: %w", err)
	}

	t := &models.Thread{}
	err = s.db.QueryRowContext(ctx, `
		SELECT id, participant_low, participant_high, created_at
		FROM threads WHERE id = $1
	`, id).Scan(&t.ID, &t.Participants[0], &t.Participants[1], &t.CreatedAt)
	if err != nil {
		return nil, false, fmt.Errorf("ensure thread: %w", err)
	}
	return t, inserted > 0, nil
}

func (s *ChatStore) ThreadByID(ctx context.Context, id string) (*models.Thread, error) {
	t := &models.Thread{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, participant_low, participant_high, created_at
		FROM threads WHERE id = $1
	`, id).Scan(&t.ID, &t.Participants[0], &t.Participants[1], &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get thread %s: %w", id, err)
	}
	return t, nil
}

func (s *ChatStore) ThreadsFor(ctx context.Context, userID string) ([]*models.Thread, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, participant_low, participant_high, created_at
		FROM threads
		WHERE participant_low = $1 OR participant_high = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list threads for %s: %w", userID, err)
	}
	defer rows.Close()

	var threads []*models.Thread
	for rows.Next() {
		t := &models.Thread{}
		if err := rows.Scan(&t.ID, &t.Participants[0], &t.Participants[1], &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan thread row: %w", err)
		}
		threads = append(threads, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate thread rows: %w", err)
	}
	return threads, nil
}

func (s *ChatStore) AppendMessage(ctx context.Context, threadID, senderID, text string, createdAt time.Time) (*models.Message, error) {
	msg := &models.Message{
		ID:        uuid.NewString(),
		ThreadID:  threadID,
		SenderID:  senderID,
		Text:      text,
		CreatedAt: createdAt,
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO messages (id, thread_id, sender_id, body, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING seq
	`, msg.ID, threadID, senderID, text, createdAt).Scan(&msg.Seq)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "foreign_key_violation" {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("append message to %s: %w", threadID, err)
	}
	return msg, nil
}

func (s *ChatStore) RecentMessages(ctx context.Context, threadID string, limit int) ([]models.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, thread_id, sender_id, body, created_at, seq
		FROM messages
		WHERE thread_id = $1
		ORDER BY created_at DESC, seq DESC
		LIMIT $2
	`, threadID, limit)
	if err != nil {
		return nil, fmt.Errorf("read messages of %s: %w", threadID, err)
	}
	defer rows.Close()

	var msgs []models.Message
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.ThreadID, &m.SenderID, &m.Text, &m.CreatedAt, &m.Seq); err != nil {
			return nil, fmt.Errorf("scan message row: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate message rows: %w", err)
	}
	return msgs, nil
}

func (s *ChatStore) LatestMessageAt(ctx context.Context, threadID string) (time.Time, bool, error) {
	var at time.Time
	err := s.db.QueryRowContext(ctx, `
		SELECT created_at FROM messages
		WHERE thread_id = $1
		ORDER BY created_at DESC, seq DESC
		LIMIT 1
	`, threadID).Scan(&at)
	if err == sql.ErrNoRows {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("latest message of %s: %w", threadID, err)
	}
	return at, true, nil
}

func (s *ChatStore) UpsertCheckpoint(ctx context.Context, userID, threadID string, openedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO checkpoints (user_id, thread_id, opened_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, thread_id) DO UPDATE SET opened_at = EXCLUDED.opened_at
	`, userID, threadID, openedAt)
	if err != nil {
		return fmt.Errorf("upsert checkpoint: %w", err)
	}
	return nil
}

func (s *ChatStore) Checkpoint(ctx context.Context, userID, threadID string) (time.Time, bool, error) {
	var at time.Time
	err := s.db.QueryRowContext(ctx, `
		SELECT opened_at FROM checkpoints WHERE user_id = $1 AND thread_id = $2
	`, userID, threadID).Scan(&at)
	if err == sql.ErrNoRows {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("get checkpoint: %w", err)
	}
	return at, true, nil
}

// Close closes the database connection.
func (s *ChatStore) Close() error {
	return s.db.Close()
}
