package memory

import (
	"context"
	"sync"

	"github.com/taskyapp/tasky-backend/internal/models"
	"github.com/taskyapp/tasky-backend/internal/storage"
)

// TaskStore keeps tasks in process memory.
type TaskStore struct {
	mu      sync.RWMutex
	byID    map[string]*models.Task
	byOwner map[string][]string // userID -> []taskID, creation order
}

func NewTaskStore() *TaskStore {
	return &TaskStore{
		byID:    make(map[string]*models.Task),
		byOwner: make(map[string][]string),
	}
}

func (s *TaskStore) CreateTask(ctx context.Context, t *models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *t
	s.byID[t.ID] = &cp
	s.byOwner[t.UserID] = append(s.byOwner[t.UserID], t.ID)
	return nil
}

func (s *TaskStore) TasksFor(ctx context.Context, userID string) ([]*models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byOwner[userID]
	tasks := make([]*models.Task, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		cp := *s.byID[ids[i]]
		tasks = append(tasks, &cp)
	}
	return tasks, nil
}

func (s *TaskStore) SetTaskStatus(ctx context.Context, userID, taskID, status string) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.byID[taskID]
	if !ok || t.UserID != userID {
		return nil, storage.ErrNotFound
	}
	t.Status = status
	cp := *t
	return &cp, nil
}

func (s *TaskStore) DeleteTask(ctx context.Context, userID, taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.byID[taskID]
	if !ok || t.UserID != userID {
		return storage.ErrNotFound
	}
	delete(s.byID, taskID)
	ids := s.byOwner[userID]
	for i, id := range ids {
		if id == taskID {
			s.byOwner[userID] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	return nil
}
