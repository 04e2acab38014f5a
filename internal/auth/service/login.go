package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"authcore/internal/auth/models"
	"authcore/internal/auth/store"
	dErrors "authcore/pkg/domain-errors"
	"authcore/pkg/platform/sentinel"
	"authcore/pkg/requestcontext"
)

// errInvalidCredentials is the single login failure callers see. Absent user,
// inactive user, and wrong password are indistinguishable from outside.
var errInvalidCredentials = dErrors.New(dErrors.CodeInvalidCredentials, "invalid email or password")

// Login verifies the credentials and issues a fresh token pair. The refresh
// record starts a new rotation family.
func (s *Service) Login(ctx context.Context, email, password string) (*models.TokenPair, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		s.metrics.ObserveLogin("failure")
		return nil, errInvalidCredentials
	}

	now := requestcontext.Now(ctx)
	refreshToken, err := newRefreshToken()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate refresh token")
	}

	var pair *models.TokenPair
	err = s.uow.RunInTx(ctx, func(ctx context.Context, stores store.TxStores) error {
		user, err := stores.Users.FindByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return errInvalidCredentials
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
		}
		if !user.Active {
			return errInvalidCredentials
		}

		ok, err := s.hasher.Verify(password, user.CredentialHash)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to verify credentials")
		}
		if !ok {
			return errInvalidCredentials
		}

		pair, err = s.mint(ctx, stores, user.ID, uuid.New(), refreshToken, now)
		return err
	})
	if err != nil {
		s.metrics.ObserveLogin("failure")
		return nil, err
	}

	s.metrics.ObserveLogin("success")
	return pair, nil
}
