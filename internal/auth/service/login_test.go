package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"authcore/internal/auth/models"
	dErrors "authcore/pkg/domain-errors"
	"authcore/pkg/platform/sentinel"
)

func (s *ServiceSuite) TestLogin() {
	email := "a@example.com"
	password := "Secret123!"

	s.T().Run("happy path", func(t *testing.T) {
		user := s.newActiveUser(email)
		var created *models.RefreshTokenRecord

		s.expectTx()
		s.mockUserStore.EXPECT().FindByEmail(gomock.Any(), email).Return(user, nil)
		s.mockHasher.EXPECT().Verify(password, user.CredentialHash).Return(true, nil)
		s.mockRefreshStore.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
			func(ctx context.Context, record *models.RefreshTokenRecord) error {
				created = record
				return nil
			})
		s.mockSigner.EXPECT().GenerateAccessToken(user.ID, s.now, 15*time.Minute).
			Return("signed.access.token", "jti-1", nil)

		pair, err := s.service.Login(s.ctx(), email, password)
		require.NoError(t, err)
		assert.Equal(t, "signed.access.token", pair.AccessToken)
		assert.Equal(t, "Bearer", pair.TokenType)
		assert.Equal(t, 900, pair.ExpiresIn)

		require.NotNil(t, created)
		assert.Equal(t, pair.RefreshToken, created.Token)
		assert.True(t, strings.HasPrefix(created.Token, "rt_"))
		assert.Equal(t, user.ID, created.UserID)
		assert.Equal(t, s.now, created.IssuedAt)
		assert.Equal(t, s.now.Add(7*24*time.Hour), created.ExpiresAt)
		assert.Equal(t, models.ChainStateActive, created.State())
	})

	s.T().Run("unknown email", func(t *testing.T) {
		s.expectTx()
		s.mockUserStore.EXPECT().FindByEmail(gomock.Any(), "nobody@example.com").
			Return(nil, sentinel.ErrNotFound)

		pair, err := s.service.Login(s.ctx(), "nobody@example.com", password)
		assert.Nil(t, pair)
		assert.True(t, dErrors.Is(err, dErrors.CodeInvalidCredentials))
	})

	s.T().Run("wrong password", func(t *testing.T) {
		user := s.newActiveUser(email)

		s.expectTx()
		s.mockUserStore.EXPECT().FindByEmail(gomock.Any(), email).Return(user, nil)
		s.mockHasher.EXPECT().Verify("wrong", user.CredentialHash).Return(false, nil)

		pair, err := s.service.Login(s.ctx(), email, "wrong")
		assert.Nil(t, pair)
		assert.True(t, dErrors.Is(err, dErrors.CodeInvalidCredentials))
	})

	s.T().Run("wrong password and unknown email are indistinguishable", func(t *testing.T) {
		user := s.newActiveUser(email)

		s.expectTx()
		s.mockUserStore.EXPECT().FindByEmail(gomock.Any(), email).Return(user, nil)
		s.mockHasher.EXPECT().Verify("wrong", user.CredentialHash).Return(false, nil)
		_, errWrongPassword := s.service.Login(s.ctx(), email, "wrong")

		s.expectTx()
		s.mockUserStore.EXPECT().FindByEmail(gomock.Any(), "nobody@example.com").
			Return(nil, sentinel.ErrNotFound)
		_, errUnknownUser := s.service.Login(s.ctx(), "nobody@example.com", "wrong")

		require.Error(t, errWrongPassword)
		require.Error(t, errUnknownUser)
		assert.Equal(t, errWrongPassword.Error(), errUnknownUser.Error())
	})

	s.T().Run("inactive user", func(t *testing.T) {
		user := s.newActiveUser(email)
		require.NoError(t, user.Deactivate(s.now))

		s.expectTx()
		s.mockUserStore.EXPECT().FindByEmail(gomock.Any(), email).Return(user, nil)

		pair, err := s.service.Login(s.ctx(), email, password)
		assert.Nil(t, pair)
		assert.True(t, dErrors.Is(err, dErrors.CodeInvalidCredentials))
	})

	s.T().Run("empty credentials rejected before any store access", func(t *testing.T) {
		_, err := s.service.Login(s.ctx(), "", password)
		assert.True(t, dErrors.Is(err, dErrors.CodeInvalidCredentials))
		_, err = s.service.Login(s.ctx(), email, "")
		assert.True(t, dErrors.Is(err, dErrors.CodeInvalidCredentials))
	})

	s.T().Run("email is normalized", func(t *testing.T) {
		user := s.newActiveUser(email)

		s.expectTx()
		s.mockUserStore.EXPECT().FindByEmail(gomock.Any(), email).Return(user, nil)
		s.mockHasher.EXPECT().Verify(password, user.CredentialHash).Return(true, nil)
		s.mockRefreshStore.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
		s.mockSigner.EXPECT().GenerateAccessToken(user.ID, s.now, 15*time.Minute).
			Return("signed.access.token", "jti-1", nil)

		_, err := s.service.Login(s.ctx(), "  A@Example.COM ", password)
		assert.NoError(t, err)
	})

	s.T().Run("transaction rollback surfaces the inner error", func(t *testing.T) {
		user := s.newActiveUser(email)

		s.expectTx()
		s.mockUserStore.EXPECT().FindByEmail(gomock.Any(), email).Return(user, nil)
		s.mockHasher.EXPECT().Verify(password, user.CredentialHash).Return(true, nil)
		s.mockRefreshStore.EXPECT().Create(gomock.Any(), gomock.Any()).Return(sentinel.ErrUnavailable)

		pair, err := s.service.Login(s.ctx(), email, password)
		assert.Nil(t, pair)
		assert.True(t, dErrors.Is(err, dErrors.CodeInternal))
	})
}
