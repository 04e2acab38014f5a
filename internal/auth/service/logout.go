package service

import (
	"context"

	"authcore/internal/auth/store"
	dErrors "authcore/pkg/domain-errors"
	"authcore/pkg/requestcontext"
)

// Logout revokes the presented refresh token. Idempotent: revoking an
// already-revoked or never-issued token reports success, so a client can
// always converge on logged-out.
//
// accessToken is optional. When supplied and still valid, its JTI goes on
// the revocation list for the remainder of its lifetime so Authenticate
// rejects it immediately instead of waiting out the expiry.
func (s *Service) Logout(ctx context.Context, refreshToken, accessToken string) error {
	now := requestcontext.Now(ctx)

	if refreshToken != "" {
		err := s.uow.RunInTx(ctx, func(ctx context.Context, stores store.TxStores) error {
			if err := stores.RefreshTokens.Revoke(ctx, refreshToken); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke refresh token")
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	if accessToken == "" || s.trl == nil {
		return nil
	}

	claims, err := s.signer.ValidateToken(accessToken, now)
	if err != nil {
		// Expired or malformed access tokens have nothing left to revoke.
		return nil
	}
	ttl := claims.ExpiresAt.Time.Sub(now)
	if ttl <= 0 {
		return nil
	}
	if err := s.trl.RevokeToken(ctx, claims.ID, ttl); err != nil {
		s.logger.ErrorContext(ctx, "failed to add token to revocation list",
			"error", err, "jti", claims.ID)
		if s.TRLFailureMode == TRLFailureModeFail {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to add token to revocation list")
		}
	}
	return nil
}
