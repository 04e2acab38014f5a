// Package store defines the persistence contracts of the authentication
// core: one repository per entity plus the Unit of Work binding them to a
// single atomic commit/rollback boundary.
//
// Error Contract:
// All store methods follow this pattern:
// - Return sentinel.ErrNotFound when the requested entity does not exist
// - Return sentinel.ErrConflict on unique-constraint violations
// - Return nil for successful operations
// - Return wrapped errors with context for infrastructure failures
//
// No store method commits on its own; durability is deferred entirely to the
// Unit of Work that owns the session.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"authcore/internal/auth/models"
)

// UserStore is the repository contract for users. Implementations return
// copies; an entity loaded in one session never aliases another session's
// state.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// RefreshTokenStore is the repository contract for refresh-token records.
type RefreshTokenStore interface {
	Create(ctx context.Context, record *models.RefreshTokenRecord) error
	Find(ctx context.Context, token string) (*models.RefreshTokenRecord, error)

	// ConsumeForRotation is the rotation critical section. Atomically, at the
	// granularity of the token identifier: look the record up, validate it is
	// current and unexpired, and mark it replaced by successor. Exactly one of
	// two concurrent calls for the same token can succeed; the loser observes
	// sentinel.ErrAlreadyUsed.
	//
	// Returns the (pre-consume) record on success. IMPORTANT: also returns
	// the record alongside ErrAlreadyUsed so callers can revoke its family —
	// reuse of a rotated or revoked token is a theft signal.
	// Other failures: ErrNotFound, ErrExpired (record returned for context).
	ConsumeForRotation(ctx context.Context, token, successor string, now time.Time) (*models.RefreshTokenRecord, error)

	// Revoke marks the record revoked. Idempotent: revoking an absent or
	// already-revoked record is not an error.
	Revoke(ctx context.Context, token string) error

	// RevokeFamily revokes every record sharing the family lineage,
	// regardless of chain position. Returns the number of records touched.
	RevokeFamily(ctx context.Context, familyID uuid.UUID) (int, error)

	// DeleteExpired removes records expired as of now. The time is injected
	// for testability (no hidden time.Now() calls).
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

// TxStores is the fixed repository set exposed inside a Unit of Work. All
// access through these stores joins the session's transaction.
type TxStores struct {
	Users         UserStore
	RefreshTokens RefreshTokenStore
}

// UnitOfWork runs fn inside one transactional scope. The context passed to
// fn carries the session's transaction; stores resolve it from there. On a
// nil return from fn the work is committed atomically — a failed commit
// surfaces as a CodeTransaction domain error and leaves no partial effect.
// On error, panic, or context cancellation everything fn did through the
// stores is rolled back.
//
// Nesting is disallowed: an operation needing two transactional steps uses
// two sequential RunInTx calls and accepts non-atomicity between them.
type UnitOfWork interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, stores TxStores) error) error
}
