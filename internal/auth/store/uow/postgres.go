package uow

import (
	"context"
	"database/sql"
	"time"

	"authcore/internal/auth/store"
	refreshtoken "authcore/internal/auth/store/refresh-token"
	"authcore/internal/auth/store/user"
	dErrors "authcore/pkg/domain-errors"
	platformtx "authcore/pkg/platform/tx"
)

// PostgresUnitOfWork runs scopes inside real database transactions. The
// transaction handle travels in the context (pkg/platform/tx); the Postgres
// stores pick it up there, so the same store instances serve transactional
// and non-transactional reads.
type PostgresUnitOfWork struct {
	db      *sql.DB
	users   *user.PostgresUserStore
	tokens  *refreshtoken.PostgresRefreshTokenStore
	timeout time.Duration
}

// NewPostgres builds a Unit of Work over PostgreSQL-backed stores.
func NewPostgres(db *sql.DB, users *user.PostgresUserStore, tokens *refreshtoken.PostgresRefreshTokenStore) *PostgresUnitOfWork {
	return &PostgresUnitOfWork{db: db, users: users, tokens: tokens}
}

// RunInTx begins a transaction, injects it into the context, and commits on
// a nil return from fn. The deferred Rollback is a no-op after a successful
// commit; on error or panic it releases the connection and discards the work.
func (u *PostgresUnitOfWork) RunInTx(ctx context.Context, fn func(ctx context.Context, stores store.TxStores) error) error {
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

	tx, err := u.db.BeginTx(ctx, nil)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeTransaction, "begin transaction")
	}
	defer func() {
		_ = tx.Rollback()
	}()

	txCtx := platformtx.WithTx(ctx, tx)
	if err := fn(txCtx, store.TxStores{Users: u.users, RefreshTokens: u.tokens}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTransaction, "commit transaction")
	}
	return nil
}
