package service

import (
	"context"
	"errors"
	"time"

	"authcore/internal/auth/models"
	"authcore/internal/auth/store"
	dErrors "authcore/pkg/domain-errors"
	"authcore/pkg/platform/sentinel"
	"authcore/pkg/requestcontext"
)

// Refresh rotates the presented refresh token: the old record becomes
// terminal (rotated) and a successor in the same family is issued together
// with a new access token.
//
// Reuse of a rotated or revoked token is treated as theft: the whole family
// is revoked before TokenReuseDetected surfaces. The revocation runs in its
// own transactional scope — the rotation scope has already rolled back by
// then, and the side effect must survive that rollback.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	if refreshToken == "" {
		return nil, dErrors.New(dErrors.CodeTokenInvalid, "refresh token is required")
	}

	start := time.Now()
	now := requestcontext.Now(ctx)
	successor, err := newRefreshToken()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate refresh token")
	}

	var pair *models.TokenPair
	var reused *models.RefreshTokenRecord
	err = s.uow.RunInTx(ctx, func(ctx context.Context, stores store.TxStores) error {
		record, err := stores.RefreshTokens.ConsumeForRotation(ctx, refreshToken, successor, now)
		if err != nil {
			switch {
			case errors.Is(err, sentinel.ErrNotFound):
				return dErrors.New(dErrors.CodeTokenInvalid, "unknown refresh token")
			case errors.Is(err, sentinel.ErrExpired):
				return dErrors.New(dErrors.CodeTokenExpired, "refresh token has expired")
			case errors.Is(err, sentinel.ErrAlreadyUsed):
				reused = record
				return dErrors.New(dErrors.CodeTokenReuseDetected, "refresh token reuse detected")
			default:
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to consume refresh token")
			}
		}

		user, err := stores.Users.FindByID(ctx, record.UserID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeTokenInvalid, "user no longer exists")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
		}
		if !user.Active {
			return dErrors.New(dErrors.CodeTokenInvalid, "user inactive")
		}

		pair, err = s.mint(ctx, stores, record.UserID, record.FamilyID, successor, now)
		return err
	})
	if err != nil {
		if reused != nil {
			s.revokeFamily(ctx, reused)
		}
		return nil, err
	}

	s.metrics.IncrementTokenRotations()
	s.metrics.ObserveRotationDuration(float64(time.Since(start).Milliseconds()))
	return pair, nil
}

// revokeFamily kills every record in the reused token's family. Best effort:
// a failure here is logged, and the caller still surfaces TokenReuseDetected.
func (s *Service) revokeFamily(ctx context.Context, record *models.RefreshTokenRecord) {
	err := s.uow.RunInTx(ctx, func(ctx context.Context, stores store.TxStores) error {
		revoked, err := stores.RefreshTokens.RevokeFamily(ctx, record.FamilyID)
		if err != nil {
			return err
		}
		s.logger.WarnContext(ctx, "refresh token reuse detected, family revoked",
			"family_id", record.FamilyID.String(),
			"user_id", record.UserID.String(),
			"revoked_count", revoked,
		)
		return nil
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to revoke token family after reuse detection",
			"error", err,
			"family_id", record.FamilyID.String(),
		)
		return
	}
	s.metrics.IncrementReuseDetections()
}
