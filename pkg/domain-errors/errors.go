// Package domainerrors defines the coded errors surfaced by services.
//
// Stores return sentinel errors (pkg/platform/sentinel) describing
// infrastructure facts; services translate those facts into coded domain
// errors that transport layers can map to external representations. The code
// set is closed: every failure a caller can observe carries exactly one of
// the codes below.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code identifies a category of domain failure.
type Code string

const (
	// CodeInvalidEntityState marks structural invariant violations. The
	// entity must not exist; the operation is never retried.
	CodeInvalidEntityState Code = "invalid_entity_state"
	// CodeBusinessRuleViolation marks operations disallowed on an otherwise
	// valid entity (e.g. deactivating an already-inactive user).
	CodeBusinessRuleViolation Code = "business_rule_violation"
	// CodeNotFound marks absent entities or records.
	CodeNotFound Code = "not_found"
	// CodeInvalidCredentials is surfaced uniformly for login failures,
	// whether the user is absent or the password mismatched.
	CodeInvalidCredentials Code = "invalid_credentials"
	// CodeTokenInvalid marks tokens with bad signatures, bad structure, or
	// unknown identifiers.
	CodeTokenInvalid Code = "token_invalid"
	// CodeTokenExpired marks structurally valid tokens past their expiry.
	CodeTokenExpired Code = "token_expired"
	// CodeTokenReuseDetected marks presentation of a rotated or revoked
	// refresh token. Its side effect (chain revocation) has already happened
	// by the time the error is observed.
	CodeTokenReuseDetected Code = "token_reuse_detected"
	// CodeTransaction marks a failed commit. No partial effect is observable.
	CodeTransaction Code = "transaction_failed"
	// CodeInternal covers unexpected faults (persistence unreachable, signer
	// failure). Never used for business outcomes.
	CodeInternal Code = "internal"
)

// Error is the concrete coded error type. Services construct these with New
// and Wrap; callers inspect them with HasCode.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// Is reports a match against another coded error by code, and by message
// when the target specifies one. This lets tests assert with
// require.ErrorIs(err, domainerrors.New(code, msg)).
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	if e.Code != t.Code {
		return false
	}
	return t.Message == "" || t.Message == e.Message
}

// New builds a coded error with no underlying cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf builds a coded error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying cause. The cause stays
// reachable through errors.Is/errors.As.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

// Is is a readability alias for HasCode used throughout service tests.
func Is(err error, code Code) bool { return HasCode(err, code) }

// CodeOf extracts the code from err, defaulting to CodeInternal for errors
// that never passed through a service boundary.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}
