package httptransport

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/asaskevich/govalidator"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	authModel "authcore/internal/auth/models"
	dErrors "authcore/pkg/domain-errors"
	authmw "authcore/pkg/platform/middleware/auth"
	"authcore/pkg/requestcontext"
)

// AuthService is the slice of the auth workflow the transport needs.
type AuthService interface {
	Login(ctx context.Context, email, password string) (*authModel.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*authModel.TokenPair, error)
	Logout(ctx context.Context, refreshToken, accessToken string) error
	Authenticate(ctx context.Context, accessToken string) (uuid.UUID, error)
}

// UserReader resolves the authenticated user for /auth/me.
type UserReader interface {
	Get(ctx context.Context, id uuid.UUID) (*authModel.User, error)
}

// AuthHandler wires the authentication endpoints to the auth service.
type AuthHandler struct {
	auth  AuthService
	users UserReader
}

func NewAuthHandler(auth AuthService, users UserReader) *AuthHandler {
	return &AuthHandler{auth: auth, users: users}
}

// Register mounts the public auth endpoints. /auth/me is mounted separately
// behind the auth middleware in the router.
func (h *AuthHandler) Register(r chi.Router) {
	r.Post("/auth/login", h.handleLogin)
	r.Post("/auth/refresh", h.handleRefresh)
	r.Post("/auth/logout", h.handleLogout)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeInvalidEntityState, "invalid request body"))
		return
	}
	if !govalidator.StringLength(req.Email, "1", "255") || !govalidator.IsEmail(req.Email) {
		writeError(w, dErrors.New(dErrors.CodeInvalidCredentials, "invalid email or password"))
		return
	}
	if !govalidator.StringLength(req.Password, "1", "1024") {
		writeError(w, dErrors.New(dErrors.CodeInvalidCredentials, "invalid email or password"))
		return
	}

	pair, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (h *AuthHandler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeInvalidEntityState, "invalid request body"))
		return
	}
	if req.RefreshToken == "" {
		writeError(w, dErrors.New(dErrors.CodeTokenInvalid, "refresh_token is required"))
		return
	}

	pair, err := h.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

func (h *AuthHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeInvalidEntityState, "invalid request body"))
		return
	}

	// The bearer token, when present, gets its JTI revoked alongside the
	// refresh token.
	accessToken, _ := authmw.BearerToken(r)

	if err := h.auth.Logout(r.Context(), req.RefreshToken, accessToken); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type userResponse struct {
	ID     string `json:"id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

func toUserResponse(user *authModel.User) userResponse {
	return userResponse{
		ID:     user.ID.String(),
		Email:  user.Email,
		Name:   user.Name,
		Active: user.Active,
	}
}

// HandleMe serves the authenticated user's own record. Mounted behind
// RequireAuth, so the user ID is always in the context here.
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID := requestcontext.UserID(r.Context())
	if userID == uuid.Nil {
		writeError(w, dErrors.New(dErrors.CodeTokenInvalid, "authentication required"))
		return
	}

	user, err := h.users.Get(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(user))
}
