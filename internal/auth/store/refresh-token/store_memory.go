package refreshtoken

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"authcore/internal/auth/models"
	"authcore/pkg/platform/sentinel"
)

// InMemoryRefreshTokenStore stores refresh-token records in memory for tests
// and development. Production deployments use the PostgreSQL store; rotation
// correctness depends on durable, lockable storage.
type InMemoryRefreshTokenStore struct {
	mu     sync.Mutex
	tokens map[string]models.RefreshTokenRecord
}

// New constructs an empty in-memory refresh token store.
func New() *InMemoryRefreshTokenStore {
	return &InMemoryRefreshTokenStore{tokens: make(map[string]models.RefreshTokenRecord)}
}

func (s *InMemoryRefreshTokenStore) Create(_ context.Context, record *models.RefreshTokenRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tokens[record.Token]; ok {
		return fmt.Errorf("refresh token already exists: %w", sentinel.ErrConflict)
	}
	s.tokens[record.Token] = *record
	return nil
}

func (s *InMemoryRefreshTokenStore) Find(_ context.Context, token string) (*models.RefreshTokenRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record, ok := s.tokens[token]; ok {
		return &record, nil
	}
	return nil, fmt.Errorf("refresh token not found: %w", sentinel.ErrNotFound)
}

// ConsumeForRotation implements the compare-and-swap on the replaced-by
// field under the store mutex: the whole check-and-mark runs inside one
// critical section, so two concurrent rotations of the same token cannot
// both succeed.
func (s *InMemoryRefreshTokenStore) ConsumeForRotation(_ context.Context, token, successor string, now time.Time) (*models.RefreshTokenRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.tokens[token]
	if !ok {
		return nil, fmt.Errorf("refresh token not found: %w", sentinel.ErrNotFound)
	}

	if err := record.ValidateForRotation(now); err != nil {
		// Return the record even on failure so the caller can see the
		// family lineage for replay escalation.
		return &record, err
	}

	record.MarkReplaced(successor)
	s.tokens[token] = record
	return &record, nil
}

func (s *InMemoryRefreshTokenStore) Revoke(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.tokens[token]
	if !ok {
		// Idempotent: absent record reads as already logged out.
		return nil
	}
	record.MarkRevoked()
	s.tokens[token] = record
	return nil
}

func (s *InMemoryRefreshTokenStore) RevokeFamily(_ context.Context, familyID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	revoked := 0
	for token, record := range s.tokens {
		if record.FamilyID != familyID || record.Revoked {
			continue
		}
		record.MarkRevoked()
		s.tokens[token] = record
		revoked++
	}
	return revoked, nil
}

func (s *InMemoryRefreshTokenStore) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := 0
	for token, record := range s.tokens {
		if record.ExpiresAt.Before(now) {
			delete(s.tokens, token)
			deleted++
		}
	}
	return deleted, nil
}

// Snapshot captures the current state and returns a function that restores
// it. Used by the in-memory Unit of Work for rollback.
func (s *InMemoryRefreshTokenStore) Snapshot() (restore func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	backup := make(map[string]models.RefreshTokenRecord, len(s.tokens))
	for token, record := range s.tokens {
		backup[token] = record
	}
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.tokens = backup
	}
}
