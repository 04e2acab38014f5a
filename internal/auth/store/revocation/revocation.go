// Package revocation implements the access-token revocation list (TRL).
// Logout revokes the access token minted alongside the presented refresh
// token; Authenticate consults the list so a revoked access token dies
// before its natural expiry. Entries carry a TTL equal to the remaining
// token lifetime, so the list stays small without a sweeper.
package revocation

import (
	"context"
	"fmt"
	"time"

	"authcore/pkg/platform/sentinel"
)

// TokenRevocationList is the capability consumed by the auth workflow.
type TokenRevocationList interface {
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

func validateTTL(ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive: %w", sentinel.ErrInvalidState)
	}
	return nil
}
