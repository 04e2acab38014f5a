package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"authcore/internal/auth/models"
	dErrors "authcore/pkg/domain-errors"
	"authcore/pkg/platform/sentinel"
)

func (s *ServiceSuite) validRecord(token string, userID uuid.UUID) *models.RefreshTokenRecord {
	return &models.RefreshTokenRecord{
		Token:     token,
		UserID:    userID,
		FamilyID:  uuid.New(),
		IssuedAt:  s.now.Add(-time.Hour),
		ExpiresAt: s.now.Add(6 * 24 * time.Hour),
	}
}

func (s *ServiceSuite) TestRefresh() {
	oldToken := "rt_old"

	s.T().Run("happy path - rotation", func(t *testing.T) {
		user := s.newActiveUser("a@example.com")
		record := s.validRecord(oldToken, user.ID)
		var successor string
		var created *models.RefreshTokenRecord

		s.expectTx()
		s.mockRefreshStore.EXPECT().ConsumeForRotation(gomock.Any(), oldToken, gomock.Any(), s.now).DoAndReturn(
			func(ctx context.Context, token, succ string, now time.Time) (*models.RefreshTokenRecord, error) {
				successor = succ
				rotated := *record
				rotated.MarkReplaced(succ)
				return &rotated, nil
			})
		s.mockUserStore.EXPECT().FindByID(gomock.Any(), user.ID).Return(user, nil)
		s.mockRefreshStore.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
			func(ctx context.Context, rec *models.RefreshTokenRecord) error {
				created = rec
				return nil
			})
		s.mockSigner.EXPECT().GenerateAccessToken(user.ID, s.now, 15*time.Minute).
			Return("new.access.token", "jti-2", nil)

		pair, err := s.service.Refresh(s.ctx(), oldToken)
		require.NoError(t, err)
		assert.Equal(t, "new.access.token", pair.AccessToken)
		assert.Equal(t, successor, pair.RefreshToken, "successor handed to the store must be the one returned")

		require.NotNil(t, created)
		assert.Equal(t, successor, created.Token)
		assert.Equal(t, record.FamilyID, created.FamilyID, "rotation stays within the family")
		assert.Equal(t, user.ID, created.UserID)
		assert.Equal(t, s.now.Add(7*24*time.Hour), created.ExpiresAt)
	})

	s.T().Run("unknown token", func(t *testing.T) {
		s.expectTx()
		s.mockRefreshStore.EXPECT().ConsumeForRotation(gomock.Any(), "rt_missing", gomock.Any(), s.now).
			Return(nil, sentinel.ErrNotFound)

		pair, err := s.service.Refresh(s.ctx(), "rt_missing")
		assert.Nil(t, pair)
		assert.True(t, dErrors.Is(err, dErrors.CodeTokenInvalid))
	})

	s.T().Run("expired token", func(t *testing.T) {
		record := s.validRecord(oldToken, uuid.New())
		record.ExpiresAt = s.now.Add(-time.Minute)

		s.expectTx()
		s.mockRefreshStore.EXPECT().ConsumeForRotation(gomock.Any(), oldToken, gomock.Any(), s.now).
			Return(record, sentinel.ErrExpired)

		pair, err := s.service.Refresh(s.ctx(), oldToken)
		assert.Nil(t, pair)
		assert.True(t, dErrors.Is(err, dErrors.CodeTokenExpired))
	})

	s.T().Run("reuse detected - family revoked in follow-up scope", func(t *testing.T) {
		record := s.validRecord(oldToken, uuid.New())
		record.MarkReplaced("rt_successor")

		// First scope: rotation attempt fails and rolls back.
		s.expectTx()
		s.mockRefreshStore.EXPECT().ConsumeForRotation(gomock.Any(), oldToken, gomock.Any(), s.now).
			Return(record, sentinel.ErrAlreadyUsed)
		// Second scope: the family revocation that must survive the rollback.
		s.expectTx()
		s.mockRefreshStore.EXPECT().RevokeFamily(gomock.Any(), record.FamilyID).Return(2, nil)

		pair, err := s.service.Refresh(s.ctx(), oldToken)
		assert.Nil(t, pair)
		assert.True(t, dErrors.Is(err, dErrors.CodeTokenReuseDetected))
	})

	s.T().Run("reuse of revoked token also escalates", func(t *testing.T) {
		record := s.validRecord(oldToken, uuid.New())
		record.MarkRevoked()

		s.expectTx()
		s.mockRefreshStore.EXPECT().ConsumeForRotation(gomock.Any(), oldToken, gomock.Any(), s.now).
			Return(record, sentinel.ErrAlreadyUsed)
		s.expectTx()
		s.mockRefreshStore.EXPECT().RevokeFamily(gomock.Any(), record.FamilyID).Return(0, nil)

		pair, err := s.service.Refresh(s.ctx(), oldToken)
		assert.Nil(t, pair)
		assert.True(t, dErrors.Is(err, dErrors.CodeTokenReuseDetected))
	})

	s.T().Run("reuse detected even when family revocation fails", func(t *testing.T) {
		record := s.validRecord(oldToken, uuid.New())
		record.MarkReplaced("rt_successor")

		s.expectTx()
		s.mockRefreshStore.EXPECT().ConsumeForRotation(gomock.Any(), oldToken, gomock.Any(), s.now).
			Return(record, sentinel.ErrAlreadyUsed)
		s.expectTx()
		s.mockRefreshStore.EXPECT().RevokeFamily(gomock.Any(), record.FamilyID).
			Return(0, sentinel.ErrUnavailable)

		pair, err := s.service.Refresh(s.ctx(), oldToken)
		assert.Nil(t, pair)
		assert.True(t, dErrors.Is(err, dErrors.CodeTokenReuseDetected))
	})

	s.T().Run("inactive user", func(t *testing.T) {
		user := s.newActiveUser("a@example.com")
		require.NoError(t, user.Deactivate(s.now))
		record := s.validRecord(oldToken, user.ID)

		s.expectTx()
		s.mockRefreshStore.EXPECT().ConsumeForRotation(gomock.Any(), oldToken, gomock.Any(), s.now).
			Return(record, nil)
		s.mockUserStore.EXPECT().FindByID(gomock.Any(), user.ID).Return(user, nil)

		pair, err := s.service.Refresh(s.ctx(), oldToken)
		assert.Nil(t, pair)
		assert.True(t, dErrors.Is(err, dErrors.CodeTokenInvalid))
	})

	s.T().Run("empty token", func(t *testing.T) {
		pair, err := s.service.Refresh(s.ctx(), "")
		assert.Nil(t, pair)
		assert.True(t, dErrors.Is(err, dErrors.CodeTokenInvalid))
	})
}
