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
)

// UserService is the slice of user management the transport needs.
type UserService interface {
	Register(ctx context.Context, email, name, password string) (*authModel.User, error)
	Get(ctx context.Context, id uuid.UUID) (*authModel.User, error)
	Rename(ctx context.Context, id uuid.UUID, name string) (*authModel.User, error)
	ChangeEmail(ctx context.Context, id uuid.UUID, email string) (*authModel.User, error)
	Deactivate(ctx context.Context, id uuid.UUID) (*authModel.User, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// UsersHandler wires user management endpoints to the user service.
type UsersHandler struct {
	users UserService
}

func NewUsersHandler(users UserService) *UsersHandler {
	return &UsersHandler{users: users}
}

// Register mounts the user endpoints. Registration is public; everything
// else sits behind the auth middleware via the router.
func (h *UsersHandler) Register(r chi.Router) {
	r.Post("/users", h.handleRegister)
}

// RegisterProtected mounts the endpoints that need an authenticated caller.
func (h *UsersHandler) RegisterProtected(r chi.Router) {
	r.Get("/users/{id}", h.handleGet)
	r.Patch("/users/{id}/name", h.handleRename)
	r.Patch("/users/{id}/email", h.handleChangeEmail)
	r.Post("/users/{id}/deactivate", h.handleDeactivate)
	r.Delete("/users/{id}", h.handleDelete)
}

type registerRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

func (h *UsersHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeInvalidEntityState, "invalid request body"))
		return
	}
	if !govalidator.StringLength(req.Email, "1", "255") || !govalidator.IsEmail(req.Email) {
		writeError(w, dErrors.New(dErrors.CodeInvalidEntityState, "invalid email"))
		return
	}
	if !govalidator.StringLength(req.Name, "1", "255") {
		writeError(w, dErrors.New(dErrors.CodeInvalidEntityState, "invalid name"))
		return
	}
	if !govalidator.StringLength(req.Password, "8", "1024") {
		writeError(w, dErrors.New(dErrors.CodeInvalidEntityState, "password must be at least 8 characters"))
		return
	}

	user, err := h.users.Register(r.Context(), req.Email, req.Name, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserResponse(user))
}

func (h *UsersHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	user, err := h.users.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(user))
}

type renameRequest struct {
	Name string `json:"name"`
}

func (h *UsersHandler) handleRename(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req renameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeInvalidEntityState, "invalid request body"))
		return
	}
	user, err := h.users.Rename(r.Context(), id, req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(user))
}

type changeEmailRequest struct {
	Email string `json:"email"`
}

func (h *UsersHandler) handleChangeEmail(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req changeEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeInvalidEntityState, "invalid request body"))
		return
	}
	user, err := h.users.ChangeEmail(r.Context(), id, req.Email)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(user))
}

func (h *UsersHandler) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	user, err := h.users.Deactivate(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(user))
}

func (h *UsersHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.users.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, dErrors.New(dErrors.CodeNotFound, "user not found"))
		return uuid.Nil, false
	}
	return id, true
}
