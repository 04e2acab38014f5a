// Package httptransport is the thin HTTP layer. Handlers delegate to the
// services without embedding business logic so transport concerns remain
// isolated.
package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	authmw "authcore/pkg/platform/middleware/auth"
	"authcore/pkg/platform/middleware/requesttime"
	"authcore/pkg/requestcontext"
)

// NewRouter wires all endpoints. Public routes: registration, login,
// refresh, logout, health, metrics. Everything else requires a valid,
// unrevoked access token.
func NewRouter(auth *AuthHandler, users *UsersHandler, authenticator authmw.Authenticator, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(requesttime.Middleware)

	auth.Register(r)
	users.Register(r)

	r.Group(func(r chi.Router) {
		r.Use(authmw.RequireAuth(authenticator, logger))
		r.Get("/auth/me", auth.HandleMe)
		users.RegisterProtected(r)
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}

// requestIDMiddleware tags every request with an ID for log correlation.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-Id")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", requestID)
		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
