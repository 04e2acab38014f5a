// Package service implements user management: registration and the
// entity-method mutations (rename, email change, deactivation). Every write
// runs in its own Unit of Work scope.
package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"authcore/internal/auth/models"
	"authcore/internal/auth/store"
	"authcore/internal/platform/metrics"
	dErrors "authcore/pkg/domain-errors"
	"authcore/pkg/platform/sentinel"
	"authcore/pkg/requestcontext"
)

// Hasher is the credential-hashing capability.
type Hasher interface {
	Hash(password string) (string, error)
}

// Service implements user management over a Unit of Work.
type Service struct {
	uow     store.UnitOfWork
	hasher  Hasher
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewService wires the user service. metrics may be nil.
func NewService(uow store.UnitOfWork, hasher Hasher, logger *slog.Logger, m *metrics.Metrics) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{uow: uow, hasher: hasher, logger: logger, metrics: m}
}

// Register hashes the credential, constructs the entity (structural
// validation happens there), and persists it. A duplicate email is a
// business-rule violation, not an infrastructure error.
func (s *Service) Register(ctx context.Context, email, name, password string) (*models.User, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidEntityState, "invalid password")
	}

	now := requestcontext.Now(ctx)
	user, err := models.NewUser(email, name, hash, now)
	if err != nil {
		return nil, err
	}

	err = s.uow.RunInTx(ctx, func(ctx context.Context, stores store.TxStores) error {
		if err := stores.Users.Create(ctx, user); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeBusinessRuleViolation, "email already registered")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create user")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncrementUsersCreated()
	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID.String())
	return user, nil
}

// Get loads a user by ID.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user *models.User
	err := s.uow.RunInTx(ctx, func(ctx context.Context, stores store.TxStores) error {
		var err error
		user, err = stores.Users.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "user not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Rename changes the display name through the entity method.
func (s *Service) Rename(ctx context.Context, id uuid.UUID, name string) (*models.User, error) {
	return s.mutate(ctx, id, func(user *models.User) error {
		return user.Rename(name, requestcontext.Now(ctx))
	})
}

// ChangeEmail changes the email address. A collision with another account is
// a business-rule violation.
func (s *Service) ChangeEmail(ctx context.Context, id uuid.UUID, email string) (*models.User, error) {
	return s.mutate(ctx, id, func(user *models.User) error {
		return user.ChangeEmail(email, requestcontext.Now(ctx))
	})
}

// Deactivate disables the user. Outstanding tokens keep working until their
// own lifecycle ends them; login and refresh reject inactive users.
func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.mutate(ctx, id, func(user *models.User) error {
		return user.Deactivate(requestcontext.Now(ctx))
	})
}

// Delete removes the user record.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.uow.RunInTx(ctx, func(ctx context.Context, stores store.TxStores) error {
		if err := stores.Users.Delete(ctx, id); err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "user not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete user")
		}
		return nil
	})
}

// mutate is the load-mutate-store template every entity mutation follows.
// The entity method decides validity; the scope makes it atomic.
func (s *Service) mutate(ctx context.Context, id uuid.UUID, fn func(*models.User) error) (*models.User, error) {
	var user *models.User
	err := s.uow.RunInTx(ctx, func(ctx context.Context, stores store.TxStores) error {
		var err error
		user, err = stores.Users.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "user not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
		}
		if err := fn(user); err != nil {
			return err
		}
		if err := stores.Users.Update(ctx, user); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeBusinessRuleViolation, "email already registered")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update user")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}
