package storage

import (
	"context"
	"errors"
	"time"

	"github.com/taskyapp/tasky-backend/internal/models"
)

var (
	// ErrNotFound is returned for lookups of rows that do not exist. Absent
	// checkpoints and latest-message timestamps are not errors; those reads
	// report absence through their bool result instead.
	ErrNotFound = errors.New("not found")

	// ErrUsernameTaken is returned by CreateUser when the username is already
	// registered.
	ErrUsernameTaken = errors.New("username already taken")
)

// ThreadStore persists conversation threads.
type ThreadStore interface {
	// EnsureThread creates the thread with the given id if it does not exist
	// yet and reports whether this call created it. Creation is idempotent:
	// concurrent calls with the same id converge on the same row.
	EnsureThread(ctx context.Context, id string, participants [2]string, createdAt time.Time) (*models.Thread, bool, error)
	ThreadByID(ctx context.Context, id string) (*models.Thread, error)
	ThreadsFor(ctx context.Context, userID string) ([]*models.Thread, error)
}

// MessageStore persists the append-only message log of each thread.
type MessageStore interface {
	AppendMessage(ctx context.Context, threadID, senderID, text string, createdAt time.Time) (*models.Message, error)
	// RecentMessages returns the newest `limit` messages of the thread, newest
	// first. Ordering is by creation time; ties fall back to insertion order.
	RecentMessages(ctx context.Context, threadID string, limit int) ([]models.Message, error)
	// LatestMessageAt reports the creation time of the thread's newest message.
	// The bool is false when the thread has no messages.
	LatestMessageAt(ctx context.Context, threadID string) (time.Time, bool, error)
}

// CheckpointStore persists per-(user, thread) last-opened timestamps.
type CheckpointStore interface {
	UpsertCheckpoint(ctx context.Context, userID, threadID string, openedAt time.Time) error
	// Checkpoint reports the user's last-opened time for the thread; false when
	// the user never opened it.
	Checkpoint(ctx context.Context, userID, threadID string) (time.Time, bool, error)
}

// TaskStore persists each user's to-do list.
type TaskStore interface {
	CreateTask(ctx context.Context, t *models.Task) error
	// TasksFor returns the user's tasks, newest first.
	TasksFor(ctx context.Context, userID string) ([]*models.Task, error)
	// SetTaskStatus updates the status of a task owned by userID. ErrNotFound
	// covers both a missing task and a task owned by someone else.
	SetTaskStatus(ctx context.Context, userID, taskID, status string) (*models.Task, error)
	DeleteTask(ctx context.Context, userID, taskID string) error
}

// UserStore persists accounts and profiles.
type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	UserByID(ctx context.Context, id string) (*models.User, error)
	UserByUsername(ctx context.Context, username string) (*models.User, error)
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	SearchUsers(ctx context.Context, prefix string, limit int) ([]*models.User, error)
	UpdateProfile(ctx context.Context, id string, upd models.ProfileUpdate) (*models.User, error)
}
