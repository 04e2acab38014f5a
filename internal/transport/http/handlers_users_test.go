package httptransport

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"authcore/internal/auth/models"
	"authcore/internal/transport/http/mocks"
	dErrors "authcore/pkg/domain-errors"
)

type UsersHandlerSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	mockAuth  *mocks.MockAuthService
	mockUsers *mocks.MockUserService
	router    http.Handler
	user      *models.User
}

func (s *UsersHandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockAuth = mocks.NewMockAuthService(s.ctrl)
	s.mockUsers = mocks.NewMockUserService(s.ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.router = NewRouter(
		NewAuthHandler(s.mockAuth, s.mockUsers),
		NewUsersHandler(s.mockUsers),
		s.mockAuth,
		logger,
	)

	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	user, err := models.NewUser("a@example.com", "Test User", "argon2-hash", now)
	s.Require().NoError(err)
	s.user = user
}

func (s *UsersHandlerSuite) TearDownTest() {
	s.ctrl.Finish()
}

// authed issues a request with a bearer token the mock authenticator accepts
// as s.user.
func (s *UsersHandlerSuite) authed(method, path, body string) *httptest.ResponseRecorder {
	s.mockAuth.EXPECT().Authenticate(gomock.Any(), "valid.token").Return(s.user.ID, nil)

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer valid.token")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *UsersHandlerSuite) TestRegister() {
	s.T().Run("success", func(t *testing.T) {
		s.mockUsers.EXPECT().Register(gomock.Any(), "a@example.com", "Test User", "Secret123!").
			Return(s.user, nil)

		req := httptest.NewRequest(http.MethodPost, "/users",
			strings.NewReader(`{"email":"a@example.com","name":"Test User","password":"Secret123!"}`))
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code)
		var got userResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, s.user.ID.String(), got.ID)
		assert.True(t, got.Active)
	})

	s.T().Run("duplicate email", func(t *testing.T) {
		s.mockUsers.EXPECT().Register(gomock.Any(), "a@example.com", "Test User", "Secret123!").
			Return(nil, dErrors.New(dErrors.CodeBusinessRuleViolation, "email already registered"))

		req := httptest.NewRequest(http.MethodPost, "/users",
			strings.NewReader(`{"email":"a@example.com","name":"Test User","password":"Secret123!"}`))
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	s.T().Run("short password rejected without a service call", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/users",
			strings.NewReader(`{"email":"a@example.com","name":"Test User","password":"short"}`))
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	s.T().Run("invalid email", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/users",
			strings.NewReader(`{"email":"nope","name":"Test User","password":"Secret123!"}`))
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func (s *UsersHandlerSuite) TestGet() {
	s.T().Run("found", func(t *testing.T) {
		s.mockUsers.EXPECT().Get(gomock.Any(), s.user.ID).Return(s.user, nil)

		rec := s.authed(http.MethodGet, "/users/"+s.user.ID.String(), "")
		require.Equal(t, http.StatusOK, rec.Code)

		var got userResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, "a@example.com", got.Email)
	})

	s.T().Run("not found", func(t *testing.T) {
		missing := uuid.New()
		s.mockUsers.EXPECT().Get(gomock.Any(), missing).
			Return(nil, dErrors.New(dErrors.CodeNotFound, "user not found"))

		rec := s.authed(http.MethodGet, "/users/"+missing.String(), "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	s.T().Run("malformed id", func(t *testing.T) {
		rec := s.authed(http.MethodGet, "/users/not-a-uuid", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	s.T().Run("unauthenticated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/users/"+s.user.ID.String(), nil)
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func (s *UsersHandlerSuite) TestRename() {
	renamed := *s.user
	renamed.Name = "New Name"

	s.mockUsers.EXPECT().Rename(gomock.Any(), s.user.ID, "New Name").Return(&renamed, nil)

	rec := s.authed(http.MethodPatch, "/users/"+s.user.ID.String()+"/name", `{"name":"New Name"}`)
	s.Require().Equal(http.StatusOK, rec.Code)

	var got userResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &got))
	s.Equal("New Name", got.Name)
}

func (s *UsersHandlerSuite) TestChangeEmail() {
	s.T().Run("success", func(t *testing.T) {
		changed := *s.user
		changed.Email = "b@example.com"
		s.mockUsers.EXPECT().ChangeEmail(gomock.Any(), s.user.ID, "b@example.com").Return(&changed, nil)

		rec := s.authed(http.MethodPatch, "/users/"+s.user.ID.String()+"/email", `{"email":"b@example.com"}`)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	s.T().Run("collision", func(t *testing.T) {
		s.mockUsers.EXPECT().ChangeEmail(gomock.Any(), s.user.ID, "taken@example.com").
			Return(nil, dErrors.New(dErrors.CodeBusinessRuleViolation, "email already registered"))

		rec := s.authed(http.MethodPatch, "/users/"+s.user.ID.String()+"/email", `{"email":"taken@example.com"}`)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func (s *UsersHandlerSuite) TestDeactivate() {
	s.T().Run("success", func(t *testing.T) {
		deactivated := *s.user
		deactivated.Active = false
		s.mockUsers.EXPECT().Deactivate(gomock.Any(), s.user.ID).Return(&deactivated, nil)

		rec := s.authed(http.MethodPost, "/users/"+s.user.ID.String()+"/deactivate", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var got userResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.False(t, got.Active)
	})

	s.T().Run("already inactive", func(t *testing.T) {
		s.mockUsers.EXPECT().Deactivate(gomock.Any(), s.user.ID).
			Return(nil, dErrors.New(dErrors.CodeBusinessRuleViolation, "user already inactive"))

		rec := s.authed(http.MethodPost, "/users/"+s.user.ID.String()+"/deactivate", "")
		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func (s *UsersHandlerSuite) TestDelete() {
	s.mockUsers.EXPECT().Delete(gomock.Any(), s.user.ID).Return(nil)

	rec := s.authed(http.MethodDelete, "/users/"+s.user.ID.String(), "")
	s.Equal(http.StatusNoContent, rec.Code)
}

func TestUsersHandlerSuite(t *testing.T) {
	suite.Run(t, new(UsersHandlerSuite))
}
