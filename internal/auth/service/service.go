// Package service orchestrates the authentication workflows: login, refresh,
// logout, and authenticate. It is the composition point of the core — Unit of
// Work, token signer, credential hasher, and revocation list meet here, and
// every failure a caller can observe leaves as a coded domain error.
package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"authcore/internal/auth/models"
	"authcore/internal/auth/store"
	"authcore/internal/auth/store/revocation"
	"authcore/internal/jwt_token"
	"authcore/internal/platform/metrics"
	dErrors "authcore/pkg/domain-errors"
)

// TokenSigner is the access-token capability. Stateless: the caller supplies
// the instant so expiry is deterministic under test.
type TokenSigner interface {
	GenerateAccessToken(userID uuid.UUID, now time.Time, expiresIn time.Duration) (token string, jti string, err error)
	ValidateToken(token string, now time.Time) (*jwttoken.Claims, error)
}

// Hasher is the credential-hashing capability. Verify reports a mismatch as
// (false, nil); errors are reserved for malformed hashes.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(password, encodedHash string) (bool, error)
}

// TRLFailureMode controls what happens when the revocation-list write on
// logout fails.
type TRLFailureMode int

const (
	// TRLFailureModeLog logs the failure and reports logout success. The
	// refresh token is revoked either way; the access token dies at its
	// natural expiry.
	TRLFailureModeLog TRLFailureMode = iota
	// TRLFailureModeFail surfaces the failure to the caller.
	TRLFailureModeFail
)

const (
	// DefaultAccessTokenTTL is the access-token lifetime.
	DefaultAccessTokenTTL = 15 * time.Minute
	// DefaultRefreshTokenTTL is the refresh-token lifetime.
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour

	refreshTokenPrefix = "rt_"
	refreshTokenBytes  = 32
)

// Service implements the authentication workflows over a Unit of Work.
type Service struct {
	uow     store.UnitOfWork
	signer  TokenSigner
	hasher  Hasher
	trl     revocation.TokenRevocationList
	logger  *slog.Logger
	metrics *metrics.Metrics

	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	TRLFailureMode  TRLFailureMode
}

// NewService wires the authentication service. metrics may be nil.
func NewService(
	uow store.UnitOfWork,
	signer TokenSigner,
	hasher Hasher,
	trl revocation.TokenRevocationList,
	logger *slog.Logger,
	m *metrics.Metrics,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		uow:             uow,
		signer:          signer,
		hasher:          hasher,
		trl:             trl,
		logger:          logger,
		metrics:         m,
		AccessTokenTTL:  DefaultAccessTokenTTL,
		RefreshTokenTTL: DefaultRefreshTokenTTL,
	}
}

// newRefreshToken draws an opaque, unguessable refresh-token identifier.
// No embedded claims; everything about the token lives in its store record.
func newRefreshToken() (string, error) {
	buf := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return refreshTokenPrefix + base64.RawURLEncoding.EncodeToString(buf), nil
}

// mint persists a refresh-token record and signs the matching access token.
// Must run inside a Unit of Work scope: the record write joins the session's
// transaction.
func (s *Service) mint(
	ctx context.Context,
	stores store.TxStores,
	userID, familyID uuid.UUID,
	refreshToken string,
	now time.Time,
) (*models.TokenPair, error) {
	record := &models.RefreshTokenRecord{
		Token:     refreshToken,
		UserID:    userID,
		FamilyID:  familyID,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.RefreshTokenTTL),
	}
	if err := stores.RefreshTokens.Create(ctx, record); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create refresh token")
	}

	accessToken, _, err := s.signer.GenerateAccessToken(userID, now, s.AccessTokenTTL)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign access token")
	}

	return &models.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(s.AccessTokenTTL.Seconds()),
	}, nil
}
