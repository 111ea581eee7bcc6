package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/taskyapp/tasky-backend/internal/models"
	"github.com/taskyapp/tasky-backend/internal/storage"
)

// UserStore keeps accounts in process memory.
type UserStore struct {
	mu      sync.RWMutex
	byID    map[string]*models.User
	byName  map[string]string // lowercased username -> id
	byEmail map[string]string
	ordered []string // ids in creation order, for stable search results
}

func NewUserStore() *UserStore {
	return &UserStore{
		byID:    make(map[string]*models.User),
		byName:  make(map[string]string),
		byEmail: make(map[string]string),
	}
}

func (s *UserStore) CreateUser(ctx context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byName[strings.ToLower(u.Username)]; taken {
		return storage.ErrUsernameTaken
	}
	cp := *u
	s.byID[u.ID] = &cp
	s.byName[strings.ToLower(u.Username)] = u.ID
	if u.Email != "" {
		s.byEmail[strings.ToLower(u.Email)] = u.ID
	}
	s.ordered = append(s.ordered, u.ID)
	return nil
}

func (s *UserStore) UserByID(ctx context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byID[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *UserStore) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byName[strings.ToLower(username)]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *s.byID[id]
	return &cp, nil
}

func (s *UserStore) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *s.byID[id]
	return &cp, nil
}

func (s *UserStore) SearchUsers(ctx context.Context, prefix string, limit int) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	prefix = strings.ToLower(prefix)
	var result []*models.User
	for _, id := range s.ordered {
		u := s.byID[id]
		if strings.HasPrefix(strings.ToLower(u.Username), prefix) {
			cp := *u
			result = append(result, &cp)
			if limit > 0 && len(result) >= limit {
				break
			}
		}
	}
	return result, nil
}

func (s *UserStore) UpdateProfile(ctx context.Context, id string, upd models.ProfileUpdate) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	if upd.Bio != nil {
		u.Bio = *upd.Bio
	}
	if upd.PhotoURL != nil {
		u.PhotoURL = *upd.PhotoURL
	}
	cp := *u
	return &cp, nil
}
