// Package uow implements the Unit of Work over the two persistence
// backends. Both variants share the contract in the store package: commit
// on nil, roll back on error or panic, release the session either way.
package uow

import (
	"context"
	"sync"
	"time"

	"authcore/internal/auth/store"
	refreshtoken "authcore/internal/auth/store/refresh-token"
	"authcore/internal/auth/store/user"
	dErrors "authcore/pkg/domain-errors"
)

// defaultTxTimeout bounds a transactional scope that arrives without a
// deadline of its own.
const defaultTxTimeout = 5 * time.Second

// MemoryUnitOfWork serializes all transactional scopes behind one mutex and
// implements rollback by snapshot/restore of the in-memory stores. Coarse,
// but it gives the memory backend the same atomicity and isolation the
// Postgres backend gets from real transactions, which is what the tests
// depend on.
type MemoryUnitOfWork struct {
	mu      sync.Mutex
	users   *user.InMemoryUserStore
	tokens  *refreshtoken.InMemoryRefreshTokenStore
	timeout time.Duration
}

// NewMemory builds a Unit of Work over in-memory stores.
func NewMemory(users *user.InMemoryUserStore, tokens *refreshtoken.InMemoryRefreshTokenStore) *MemoryUnitOfWork {
	return &MemoryUnitOfWork{users: users, tokens: tokens}
}

// RunInTx runs fn under the global lock. On error or panic every mutation fn
// made through the stores is undone by restoring the pre-scope snapshots.
func (u *MemoryUnitOfWork) RunInTx(ctx context.Context, fn func(ctx context.Context, stores store.TxStores) error) (err error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return dErrors.Wrap(ctxErr, dErrors.CodeTransaction, "transaction aborted: context cancelled")
	}

	timeout := u.timeout
	if timeout == 0 {
		timeout = defaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	// Check again after acquiring the lock.
	if ctxErr := ctx.Err(); ctxErr != nil {
		return dErrors.Wrap(ctxErr, dErrors.CodeTransaction, "transaction aborted: context cancelled")
	}

	restoreUsers := u.users.Snapshot()
	restoreTokens := u.tokens.Snapshot()
	rollback := func() {
		restoreTokens()
		restoreUsers()
	}

	defer func() {
		if r := recover(); r != nil {
			rollback()
			panic(r)
		}
	}()

	err = fn(ctx, store.TxStores{Users: u.users, RefreshTokens: u.tokens})
	if err != nil {
		rollback()
		return err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		rollback()
		return dErrors.Wrap(ctxErr, dErrors.CodeTransaction, "transaction aborted: context cancelled")
	}
	return nil
}
