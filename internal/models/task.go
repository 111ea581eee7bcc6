package models

import "time"

// Task status values. A task starts pending and is flipped to done from the
// task list.
const (
	TaskPending = "pending"
	TaskDone    = "done"
)

// Task is one to-do item owned by a single user.
type Task struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}
