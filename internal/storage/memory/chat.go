package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/taskyapp/tasky-backend/internal/models"
	"github.com/taskyapp/tasky-backend/internal/storage"
)

// ChatStore keeps threads, messages and read checkpoints in process memory.
// It backs the dev server and the test suite.
type ChatStore struct {
	mu          sync.RWMutex
	threads     map[string]*models.Thread // threadID -> thread
	userIndex   map[string][]string       // userID -> []threadID
	messages    map[string][]models.Message
	checkpoints map[string]time.Time // userID+"\x00"+threadID -> openedAt
	seq         int64
}

func NewChatStore() *ChatStore {
	return &ChatStore{
		threads:     make(map[string]*models.Thread),
		userIndex:   make(map[string][]string),
		messages:    make(map[string][]models.Message),
		checkpoints: make(map[string]time.Time),
	}
}

func (s *ChatStore) EnsureThread(ctx context.Context, id string, participants [2]string, createdAt time.Time) (*models.Thread, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.threads[id]; ok {
		return t, false, nil
	}
	t := &models.Thread{ID: id, Participants: participants, CreatedAt: createdAt}
	s.threads[id] = t
	s.userIndex[participants[0]] = append(s.userIndex[participants[0]], id)
	s.userIndex[participants[1]] = append(s.userIndex[participants[1]], id)
	return t, true, nil
}

func (s *ChatStore) ThreadByID(ctx context.Context, id string) (*models.Thread, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.threads[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return t, nil
}

func (s *ChatStore) ThreadsFor(ctx context.Context, userID string) ([]*models.Thread, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*models.Thread
	for _, id := range s.userIndex[userID] {
		result = append(result, s.threads[id])
	}
	return result, nil
}

func (s *ChatStore) AppendMessage(ctx context.Context, threadID, senderID, text string, createdAt time.Time) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.threads[threadID]; !ok {
		return nil, storage.ErrNotFound
	}
	s.seq++
	msg := models.Message{
		ID:        uuid.NewString(),
		ThreadID:  threadID,
		SenderID:  senderID,
		Text:      text,
		CreatedAt: createdAt,
		Seq:       s.seq,
	}
	s.messages[threadID] = append(s.messages[threadID], msg)
	return &msg, nil
}

func (s *ChatStore) RecentMessages(ctx context.Context, threadID string, limit int) ([]models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := s.messages[threadID]
	out := make([]models.Message, len(msgs))
	copy(out, msgs)
	// Client-stamped times may arrive out of order; the stable sort keeps
	// insertion order for equal timestamps.
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (s *ChatStore) LatestMessageAt(ctx context.Context, threadID string) (time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest time.Time
	found := false
	for _, m := range s.messages[threadID] {
		if !found || m.CreatedAt.After(latest) {
			latest = m.CreatedAt
			found = true
		}
	}
	return latest, found, nil
}

func (s *ChatStore) UpsertCheckpoint(ctx context.Context, userID, threadID string, openedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkpoints[userID+"\x00"+threadID] = openedAt
	return nil
}

func (s *ChatStore) Checkpoint(ctx context.Context, userID, threadID string) (time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	at, ok := s.checkpoints[userID+"\x00"+threadID]
	return at, ok, nil
}
