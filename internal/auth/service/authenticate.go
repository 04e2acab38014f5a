package service

import (
	"context"

	"github.com/google/uuid"

	dErrors "authcore/pkg/domain-errors"
	"authcore/pkg/requestcontext"
)

// Authenticate verifies an access token and returns the subject's user ID.
// Pure verification plus a revocation-list check; no store round trip.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (uuid.UUID, error) {
	if accessToken == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeTokenInvalid, "access token is required")
	}

	now := requestcontext.Now(ctx)
	claims, err := s.signer.ValidateToken(accessToken, now)
	if err != nil {
		return uuid.Nil, err
	}

	if s.trl != nil {
		revoked, err := s.trl.IsRevoked(ctx, claims.ID)
		if err != nil {
			return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check token revocation")
		}
		if revoked {
			return uuid.Nil, dErrors.New(dErrors.CodeTokenInvalid, "token has been revoked")
		}
	}

	userID, err := claims.UserID()
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeTokenInvalid, "invalid token subject")
	}
	return userID, nil
}
