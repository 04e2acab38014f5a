package httptransport

import (
	"encoding/json"
	"net/http"

	dErrors "authcore/pkg/domain-errors"
)

// writeError centralizes domain error translation to HTTP responses so every
// handler returns the same JSON error envelope.
func writeError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus(code))
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error": string(code),
	})
}

func httpStatus(code dErrors.Code) int {
	switch code {
	case dErrors.CodeInvalidEntityState:
		return http.StatusBadRequest
	case dErrors.CodeBusinessRuleViolation:
		return http.StatusConflict
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeInvalidCredentials,
		dErrors.CodeTokenInvalid,
		dErrors.CodeTokenExpired,
		dErrors.CodeTokenReuseDetected:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
