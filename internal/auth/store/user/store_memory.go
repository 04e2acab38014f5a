package user

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"authcore/internal/auth/models"
	"authcore/pkg/platform/sentinel"
)

// InMemoryUserStore keeps users in memory for tests and development. It is
// NOT the production store: it exists so the core can run without external
// storage, and so the in-memory Unit of Work has something to snapshot.
type InMemoryUserStore struct {
	mu    sync.RWMutex
	users map[uuid.UUID]models.User
}

// New constructs an empty in-memory user store.
func New() *InMemoryUserStore {
	return &InMemoryUserStore{users: make(map[uuid.UUID]models.User)}
}

func (s *InMemoryUserStore) Create(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == user.Email {
			return fmt.Errorf("email %q already registered: %w", user.Email, sentinel.ErrConflict)
		}
	}
	s.users[user.ID] = *user
	return nil
}

func (s *InMemoryUserStore) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if user, ok := s.users[id]; ok {
		return &user, nil
	}
	return nil, fmt.Errorf("user %s: %w", id, sentinel.ErrNotFound)
}

func (s *InMemoryUserStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.users {
		if user.Email == email {
			u := user
			return &u, nil
		}
	}
	return nil, fmt.Errorf("user %q: %w", email, sentinel.ErrNotFound)
}

func (s *InMemoryUserStore) Update(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; !ok {
		return fmt.Errorf("user %s: %w", user.ID, sentinel.ErrNotFound)
	}
	for id, existing := range s.users {
		if id != user.ID && existing.Email == user.Email {
			return fmt.Errorf("email %q already registered: %w", user.Email, sentinel.ErrConflict)
		}
	}
	s.users[user.ID] = *user
	return nil
}

func (s *InMemoryUserStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return fmt.Errorf("user %s: %w", id, sentinel.ErrNotFound)
	}
	delete(s.users, id)
	return nil
}

// Snapshot captures the current state and returns a function that restores
// it. The in-memory Unit of Work calls this at transaction start and invokes
// the restore on rollback.
func (s *InMemoryUserStore) Snapshot() (restore func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	backup := make(map[uuid.UUID]models.User, len(s.users))
	for id, u := range s.users {
		backup[id] = u
	}
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.users = backup
	}
}
