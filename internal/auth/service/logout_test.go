package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	jwttoken "authcore/internal/jwt_token"
	dErrors "authcore/pkg/domain-errors"
	"authcore/pkg/platform/sentinel"
)

func (s *ServiceSuite) accessClaims(jti string, expiresAt time.Time) *jwttoken.Claims {
	return &jwttoken.Claims{
		TokenType: jwttoken.TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.NewString(),
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(s.now.Add(-5 * time.Minute)),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
}

func (s *ServiceSuite) TestLogout() {
	s.T().Run("revokes refresh token and access JTI", func(t *testing.T) {
		claims := s.accessClaims("jti-1", s.now.Add(10*time.Minute))

		s.expectTx()
		s.mockRefreshStore.EXPECT().Revoke(gomock.Any(), "rt_1").Return(nil)
		s.mockSigner.EXPECT().ValidateToken("access.token", s.now).Return(claims, nil)
		s.mockTRL.EXPECT().RevokeToken(gomock.Any(), "jti-1", 10*time.Minute).Return(nil)

		assert.NoError(t, s.service.Logout(s.ctx(), "rt_1", "access.token"))
	})

	s.T().Run("idempotent - unknown refresh token still succeeds", func(t *testing.T) {
		s.expectTx()
		s.mockRefreshStore.EXPECT().Revoke(gomock.Any(), "rt_never_issued").Return(nil)

		assert.NoError(t, s.service.Logout(s.ctx(), "rt_never_issued", ""))
	})

	s.T().Run("calling twice succeeds both times", func(t *testing.T) {
		s.expectTx()
		s.mockRefreshStore.EXPECT().Revoke(gomock.Any(), "rt_1").Return(nil)
		assert.NoError(t, s.service.Logout(s.ctx(), "rt_1", ""))

		s.expectTx()
		s.mockRefreshStore.EXPECT().Revoke(gomock.Any(), "rt_1").Return(nil)
		assert.NoError(t, s.service.Logout(s.ctx(), "rt_1", ""))
	})

	s.T().Run("expired access token has nothing to revoke", func(t *testing.T) {
		s.expectTx()
		s.mockRefreshStore.EXPECT().Revoke(gomock.Any(), "rt_1").Return(nil)
		s.mockSigner.EXPECT().ValidateToken("stale.token", s.now).
			Return(nil, dErrors.New(dErrors.CodeTokenExpired, "token has expired"))

		assert.NoError(t, s.service.Logout(s.ctx(), "rt_1", "stale.token"))
	})

	s.T().Run("revocation list failure is logged, not surfaced", func(t *testing.T) {
		claims := s.accessClaims("jti-1", s.now.Add(10*time.Minute))

		s.expectTx()
		s.mockRefreshStore.EXPECT().Revoke(gomock.Any(), "rt_1").Return(nil)
		s.mockSigner.EXPECT().ValidateToken("access.token", s.now).Return(claims, nil)
		s.mockTRL.EXPECT().RevokeToken(gomock.Any(), "jti-1", 10*time.Minute).
			Return(sentinel.ErrUnavailable)

		assert.NoError(t, s.service.Logout(s.ctx(), "rt_1", "access.token"))
	})

	s.T().Run("revocation list failure surfaces in fail mode", func(t *testing.T) {
		claims := s.accessClaims("jti-1", s.now.Add(10*time.Minute))
		s.service.TRLFailureMode = TRLFailureModeFail
		t.Cleanup(func() { s.service.TRLFailureMode = TRLFailureModeLog })

		s.expectTx()
		s.mockRefreshStore.EXPECT().Revoke(gomock.Any(), "rt_1").Return(nil)
		s.mockSigner.EXPECT().ValidateToken("access.token", s.now).Return(claims, nil)
		s.mockTRL.EXPECT().RevokeToken(gomock.Any(), "jti-1", 10*time.Minute).
			Return(sentinel.ErrUnavailable)

		err := s.service.Logout(s.ctx(), "rt_1", "access.token")
		assert.True(t, dErrors.Is(err, dErrors.CodeInternal))
	})

	s.T().Run("store failure surfaces", func(t *testing.T) {
		s.expectTx()
		s.mockRefreshStore.EXPECT().Revoke(gomock.Any(), "rt_1").Return(sentinel.ErrUnavailable)

		err := s.service.Logout(s.ctx(), "rt_1", "")
		assert.True(t, dErrors.Is(err, dErrors.CodeInternal))
	})
}
