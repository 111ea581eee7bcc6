package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/taskyapp/tasky-backend/internal/models"
	"github.com/taskyapp/tasky-backend/internal/storage"
)

// TaskStore implements task storage on PostgreSQL, sharing the ChatStore's
// connection pool.
type TaskStore struct {
	db *sql.DB
}

func NewTaskStore(chat *ChatStore) *TaskStore {
	return &TaskStore{db: chat.db}
}

// EnsureSchema creates the tasks table if it does not exist.
func (s *TaskStore) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS tasks (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			title TEXT NOT NULL,
			status TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS tasks_user_idx ON tasks (user_id, created_at)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure tasks schema: %w", err)
		}
	}
	return nil
}

func (s *TaskStore) CreateTask(ctx context.Context, t *models.Task) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (id, user_id, title, status, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, t.ID, t.UserID, t.Title, t.Status, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

func (s *TaskStore) TasksFor(ctx context.Context, userID string) ([]*models.Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, title, status, created_at
		FROM tasks
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list tasks for %s: %w", userID, err)
	}
	defer rows.Close()

	var tasks []*models.Task
	for rows.Next() {
		t := &models.Task{}
		if err := rows.Scan(&t.ID, &t.UserID, &t.Title, &t.Status, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan task row: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate task rows: %w", err)
	}
	return tasks, nil
}

func (s *TaskStore) SetTaskStatus(ctx context.Context, userID, taskID, status string) (*models.Task, error) {
	t := &models.Task{}
	err := s.db.QueryRowContext(ctx, `
		UPDATE tasks SET status = $3
		WHERE id = $1 AND user_id = $2
		RETURNING id, user_id, title, status, created_at
	`, taskID, userID, status).Scan(&t.ID, &t.UserID, &t.Title, &t.Status, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update task status: %w", err)
	}
	return t, nil
}

func (s *TaskStore) DeleteTask(ctx context.Context, userID, taskID string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM tasks WHERE id = $1 AND user_id = $2
	`, taskID, userID)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}
