package store

import (
	"context"
	"slices"
	"strings"
	"sync"

	"examsite/internal/auth/models"
	id "examsite/pkg/domain"
	"examsite/pkg/platform/sentinel"
)

// InMemoryUsers keeps usernames unique case-insensitively.
type InMemoryUsers struct {
	mu    sync.RWMutex
	users map[id.UserID]*models.User
}

func NewInMemoryUsers() *InMemoryUsers {
	return &InMemoryUsers{users: make(map[id.UserID]*models.User)}
}

func (s *InMemoryUsers) Create(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if strings.EqualFold(existing.Username, u.Username) {
			return sentinel.ErrConflict
		}
	}
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *InMemoryUsers) FindByID(_ context.Context, userID id.UserID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *InMemoryUsers) FindByUsername(_ context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Username, username) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryUsers) List(_ context.Context) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.User, 0, len(s.users))
	for _, u := range s.users {
		cp := *u
		out = append(out, &cp)
	}
	slices.SortFunc(out, func(a, b *models.User) int { return strings.Compare(a.Username, b.Username) })
	return out, nil
}
