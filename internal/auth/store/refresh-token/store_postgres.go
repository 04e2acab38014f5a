package refreshtoken

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"authcore/internal/auth/models"
	"authcore/pkg/platform/sentinel"
	platformtx "authcore/pkg/platform/tx"
)

// PostgresRefreshTokenStore persists refresh-token records in PostgreSQL.
// The rotation critical section relies on row-level locking, so
// ConsumeForRotation must run inside a Unit of Work transaction.
type PostgresRefreshTokenStore struct {
	db *sql.DB
}

// NewPostgresRefreshTokenStore constructs a PostgreSQL-backed refresh token store.
func NewPostgresRefreshTokenStore(db *sql.DB) *PostgresRefreshTokenStore {
	return &PostgresRefreshTokenStore{db: db}
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresRefreshTokenStore) q(ctx context.Context) querier {
	if t, ok := platformtx.From(ctx); ok {
		return t
	}
	return s.db
}

const recordColumns = "token, user_id, family_id, issued_at, expires_at, revoked, replaced_by"

func scanRecord(row *sql.Row) (*models.RefreshTokenRecord, error) {
	var r models.RefreshTokenRecord
	var replacedBy sql.NullString
	err := row.Scan(&r.Token, &r.UserID, &r.FamilyID, &r.IssuedAt, &r.ExpiresAt, &r.Revoked, &replacedBy)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("refresh token not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("scan refresh token: %w", err)
	}
	if replacedBy.Valid {
		r.ReplacedBy = &replacedBy.String
	}
	return &r, nil
}

func (s *PostgresRefreshTokenStore) Create(ctx context.Context, record *models.RefreshTokenRecord) error {
	query := `
		INSERT INTO refresh_tokens (token, user_id, family_id, issued_at, expires_at, revoked, replaced_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	var replacedBy any
	if record.ReplacedBy != nil {
		replacedBy = *record.ReplacedBy
	}
	_, err := s.q(ctx).ExecContext(ctx, query,
		record.Token, record.UserID, record.FamilyID, record.IssuedAt, record.ExpiresAt, record.Revoked, replacedBy)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return fmt.Errorf("refresh token already exists: %w", sentinel.ErrConflict)
		}
		return fmt.Errorf("insert refresh token: %w", err)
	}
	return nil
}

func (s *PostgresRefreshTokenStore) Find(ctx context.Context, token string) (*models.RefreshTokenRecord, error) {
	row := s.q(ctx).QueryRowContext(ctx, `SELECT `+recordColumns+` FROM refresh_tokens WHERE token = $1`, token)
	return scanRecord(row)
}

// ConsumeForRotation locks the row (FOR UPDATE within the session's
// transaction), validates the record, and compare-and-swaps the replaced_by
// field. The second of two concurrent rotations blocks on the row lock until
// the first commits, then observes replaced_by set and fails with
// ErrAlreadyUsed.
func (s *PostgresRefreshTokenStore) ConsumeForRotation(ctx context.Context, token, successor string, now time.Time) (*models.RefreshTokenRecord, error) {
	row := s.q(ctx).QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM refresh_tokens WHERE token = $1 FOR UPDATE`, token)
	record, err := scanRecord(row)
	if err != nil {
		return nil, err
	}

	if err := record.ValidateForRotation(now); err != nil {
		// Record comes back with the error so the caller can revoke its family.
		return record, err
	}

	res, err := s.q(ctx).ExecContext(ctx,
		`UPDATE refresh_tokens SET replaced_by = $2 WHERE token = $1 AND revoked = FALSE AND replaced_by IS NULL`,
		token, successor)
	if err != nil {
		return nil, fmt.Errorf("mark refresh token replaced: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("mark refresh token replaced: %w", err)
	}
	if affected == 0 {
		// Lost the race despite the row lock; treat as replay.
		return record, fmt.Errorf("refresh token concurrently consumed: %w", sentinel.ErrAlreadyUsed)
	}

	record.MarkReplaced(successor)
	return record, nil
}

func (s *PostgresRefreshTokenStore) Revoke(ctx context.Context, token string) error {
	// Idempotent by construction: zero affected rows is success.
	_, err := s.q(ctx).ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked = TRUE WHERE token = $1`, token)
	if err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

func (s *PostgresRefreshTokenStore) RevokeFamily(ctx context.Context, familyID uuid.UUID) (int, error) {
	res, err := s.q(ctx).ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked = TRUE WHERE family_id = $1 AND revoked = FALSE`, familyID)
	if err != nil {
		return 0, fmt.Errorf("revoke refresh token family: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("revoke refresh token family: %w", err)
	}
	return int(affected), nil
}

func (s *PostgresRefreshTokenStore) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	res, err := s.q(ctx).ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE expires_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired refresh tokens: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete expired refresh tokens: %w", err)
	}
	return int(affected), nil
}
