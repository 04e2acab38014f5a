package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	jwttoken "authcore/internal/jwt_token"
	dErrors "authcore/pkg/domain-errors"
	"authcore/pkg/platform/sentinel"
)

func (s *ServiceSuite) TestAuthenticate() {
	userID := uuid.New()
	claims := &jwttoken.Claims{
		TokenType: jwttoken.TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ID:        "jti-1",
			ExpiresAt: jwt.NewNumericDate(s.now.Add(10 * time.Minute)),
		},
	}

	s.T().Run("valid token", func(t *testing.T) {
		s.mockSigner.EXPECT().ValidateToken("access.token", s.now).Return(claims, nil)
		s.mockTRL.EXPECT().IsRevoked(gomock.Any(), "jti-1").Return(false, nil)

		got, err := s.service.Authenticate(s.ctx(), "access.token")
		require.NoError(t, err)
		assert.Equal(t, userID, got)
	})

	s.T().Run("revoked token", func(t *testing.T) {
		s.mockSigner.EXPECT().ValidateToken("access.token", s.now).Return(claims, nil)
		s.mockTRL.EXPECT().IsRevoked(gomock.Any(), "jti-1").Return(true, nil)

		got, err := s.service.Authenticate(s.ctx(), "access.token")
		assert.Equal(t, uuid.Nil, got)
		assert.True(t, dErrors.Is(err, dErrors.CodeTokenInvalid))
	})

	s.T().Run("expired token passes the signer error through", func(t *testing.T) {
		s.mockSigner.EXPECT().ValidateToken("stale.token", s.now).
			Return(nil, dErrors.New(dErrors.CodeTokenExpired, "token has expired"))

		_, err := s.service.Authenticate(s.ctx(), "stale.token")
		assert.True(t, dErrors.Is(err, dErrors.CodeTokenExpired))
	})

	s.T().Run("revocation check failure", func(t *testing.T) {
		s.mockSigner.EXPECT().ValidateToken("access.token", s.now).Return(claims, nil)
		s.mockTRL.EXPECT().IsRevoked(gomock.Any(), "jti-1").Return(false, sentinel.ErrUnavailable)

		_, err := s.service.Authenticate(s.ctx(), "access.token")
		assert.True(t, dErrors.Is(err, dErrors.CodeInternal))
	})

	s.T().Run("malformed subject", func(t *testing.T) {
		bad := &jwttoken.Claims{
			TokenType: jwttoken.TokenTypeAccess,
			RegisteredClaims: jwt.RegisteredClaims{
				Subject: "not-a-uuid",
				ID:      "jti-2",
			},
		}
		s.mockSigner.EXPECT().ValidateToken("odd.token", s.now).Return(bad, nil)
		s.mockTRL.EXPECT().IsRevoked(gomock.Any(), "jti-2").Return(false, nil)

		_, err := s.service.Authenticate(s.ctx(), "odd.token")
		assert.True(t, dErrors.Is(err, dErrors.CodeTokenInvalid))
	})

	s.T().Run("empty token", func(t *testing.T) {
		_, err := s.service.Authenticate(s.ctx(), "")
		assert.True(t, dErrors.Is(err, dErrors.CodeTokenInvalid))
	})
}
