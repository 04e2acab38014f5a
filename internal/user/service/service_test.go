package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"authcore/internal/auth/mocks"
	"authcore/internal/auth/models"
	"authcore/internal/auth/store"
	dErrors "authcore/pkg/domain-errors"
	"authcore/pkg/platform/sentinel"
	"authcore/pkg/requestcontext"
)

type UserServiceSuite struct {
	suite.Suite
	ctrl          *gomock.Controller
	mockUow       *mocks.MockUnitOfWork
	mockUserStore *mocks.MockUserStore
	mockHasher    *mocks.MockHasher
	service       *Service
	now           time.Time
}

func (s *UserServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockUow = mocks.NewMockUnitOfWork(s.ctrl)
	s.mockUserStore = mocks.NewMockUserStore(s.ctrl)
	s.mockHasher = mocks.NewMockHasher(s.ctrl)
	s.now = time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.service = NewService(s.mockUow, s.mockHasher, logger, nil)
}

func (s *UserServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *UserServiceSuite) ctx() context.Context {
	return requestcontext.WithTime(context.Background(), s.now)
}

func (s *UserServiceSuite) expectTx() *gomock.Call {
	return s.mockUow.EXPECT().RunInTx(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, fn func(context.Context, store.TxStores) error) error {
			return fn(ctx, store.TxStores{Users: s.mockUserStore})
		})
}

func (s *UserServiceSuite) existingUser() *models.User {
	user, err := models.NewUser("a@example.com", "Test User", "argon2-hash", s.now.Add(-24*time.Hour))
	s.Require().NoError(err)
	return user
}

func (s *UserServiceSuite) TestRegister() {
	s.T().Run("happy path", func(t *testing.T) {
		s.mockHasher.EXPECT().Hash("Secret123!").Return("argon2-hash", nil)
		s.expectTx()
		s.mockUserStore.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
			func(ctx context.Context, user *models.User) error {
				assert.Equal(t, "a@example.com", user.Email)
				assert.Equal(t, "argon2-hash", user.CredentialHash)
				assert.True(t, user.Active)
				assert.Equal(t, s.now, user.CreatedAt)
				return nil
			})

		user, err := s.service.Register(s.ctx(), "A@Example.com", "Test User", "Secret123!")
		require.NoError(t, err)
		assert.Equal(t, "a@example.com", user.Email)
	})

	s.T().Run("duplicate email", func(t *testing.T) {
		s.mockHasher.EXPECT().Hash("Secret123!").Return("argon2-hash", nil)
		s.expectTx()
		s.mockUserStore.EXPECT().Create(gomock.Any(), gomock.Any()).Return(sentinel.ErrConflict)

		user, err := s.service.Register(s.ctx(), "a@example.com", "Test User", "Secret123!")
		assert.Nil(t, user)
		assert.True(t, dErrors.Is(err, dErrors.CodeBusinessRuleViolation))
	})

	s.T().Run("invalid email fails construction, nothing persisted", func(t *testing.T) {
		s.mockHasher.EXPECT().Hash("Secret123!").Return("argon2-hash", nil)

		user, err := s.service.Register(s.ctx(), "not-an-email", "Test User", "Secret123!")
		assert.Nil(t, user)
		assert.True(t, dErrors.Is(err, dErrors.CodeInvalidEntityState))
	})

	s.T().Run("empty password rejected by hasher", func(t *testing.T) {
		s.mockHasher.EXPECT().Hash("").Return("", sentinel.ErrInvalidState)

		user, err := s.service.Register(s.ctx(), "a@example.com", "Test User", "")
		assert.Nil(t, user)
		assert.True(t, dErrors.Is(err, dErrors.CodeInvalidEntityState))
	})
}

func (s *UserServiceSuite) TestGet() {
	s.T().Run("found", func(t *testing.T) {
		user := s.existingUser()
		s.expectTx()
		s.mockUserStore.EXPECT().FindByID(gomock.Any(), user.ID).Return(user, nil)

		got, err := s.service.Get(s.ctx(), user.ID)
		require.NoError(t, err)
		assert.Equal(t, user, got)
	})

	s.T().Run("not found", func(t *testing.T) {
		id := uuid.New()
		s.expectTx()
		s.mockUserStore.EXPECT().FindByID(gomock.Any(), id).Return(nil, sentinel.ErrNotFound)

		got, err := s.service.Get(s.ctx(), id)
		assert.Nil(t, got)
		assert.True(t, dErrors.Is(err, dErrors.CodeNotFound))
	})
}

func (s *UserServiceSuite) TestRename() {
	s.T().Run("happy path", func(t *testing.T) {
		user := s.existingUser()
		s.expectTx()
		s.mockUserStore.EXPECT().FindByID(gomock.Any(), user.ID).Return(user, nil)
		s.mockUserStore.EXPECT().Update(gomock.Any(), gomock.Any()).DoAndReturn(
			func(ctx context.Context, updated *models.User) error {
				assert.Equal(t, "New Name", updated.Name)
				assert.Equal(t, s.now, updated.UpdatedAt)
				return nil
			})

		got, err := s.service.Rename(s.ctx(), user.ID, "New Name")
		require.NoError(t, err)
		assert.Equal(t, "New Name", got.Name)
	})

	s.T().Run("empty name - no update issued", func(t *testing.T) {
		user := s.existingUser()
		s.expectTx()
		s.mockUserStore.EXPECT().FindByID(gomock.Any(), user.ID).Return(user, nil)

		got, err := s.service.Rename(s.ctx(), user.ID, "  ")
		assert.Nil(t, got)
		assert.True(t, dErrors.Is(err, dErrors.CodeInvalidEntityState))
	})
}

func (s *UserServiceSuite) TestChangeEmail() {
	s.T().Run("collision with another account", func(t *testing.T) {
		user := s.existingUser()
		s.expectTx()
		s.mockUserStore.EXPECT().FindByID(gomock.Any(), user.ID).Return(user, nil)
		s.mockUserStore.EXPECT().Update(gomock.Any(), gomock.Any()).Return(sentinel.ErrConflict)

		got, err := s.service.ChangeEmail(s.ctx(), user.ID, "taken@example.com")
		assert.Nil(t, got)
		assert.True(t, dErrors.Is(err, dErrors.CodeBusinessRuleViolation))
	})
}

func (s *UserServiceSuite) TestDeactivate() {
	s.T().Run("happy path", func(t *testing.T) {
		user := s.existingUser()
		s.expectTx()
		s.mockUserStore.EXPECT().FindByID(gomock.Any(), user.ID).Return(user, nil)
		s.mockUserStore.EXPECT().Update(gomock.Any(), gomock.Any()).Return(nil)

		got, err := s.service.Deactivate(s.ctx(), user.ID)
		require.NoError(t, err)
		assert.False(t, got.Active)
	})

	s.T().Run("already inactive", func(t *testing.T) {
		user := s.existingUser()
		require.NoError(s.T(), user.Deactivate(s.now.Add(-time.Hour)))

		s.expectTx()
		s.mockUserStore.EXPECT().FindByID(gomock.Any(), user.ID).Return(user, nil)

		got, err := s.service.Deactivate(s.ctx(), user.ID)
		assert.Nil(t, got)
		assert.True(t, dErrors.Is(err, dErrors.CodeBusinessRuleViolation))
	})
}

func (s *UserServiceSuite) TestDelete() {
	s.T().Run("happy path", func(t *testing.T) {
		id := uuid.New()
		s.expectTx()
		s.mockUserStore.EXPECT().Delete(gomock.Any(), id).Return(nil)

		assert.NoError(t, s.service.Delete(s.ctx(), id))
	})

	s.T().Run("not found", func(t *testing.T) {
		id := uuid.New()
		s.expectTx()
		s.mockUserStore.EXPECT().Delete(gomock.Any(), id).Return(sentinel.ErrNotFound)

		err := s.service.Delete(s.ctx(), id)
		assert.True(t, dErrors.Is(err, dErrors.CodeNotFound))
	})
}

func TestUserServiceSuite(t *testing.T) {
	suite.Run(t, new(UserServiceSuite))
}
