// Package models holds the entities of the authentication core. Entities are
// pure: they validate themselves at construction and on every mutating
// method, and never reach into stores or clocks.
package models

import (
	"strings"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/google/uuid"

	dErrors "authcore/pkg/domain-errors"
	"authcore/pkg/platform/sentinel"
)

// User is the primary identity entity. Construct with NewUser and mutate only
// through entity methods so a structurally invalid user is never observable.
type User struct {
	ID             uuid.UUID
	Email          string
	Name           string
	CredentialHash string
	Active         bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewUser builds a valid user or fails with CodeInvalidEntityState. The
// credential hash is opaque here; hashing happens behind the Hasher
// capability.
func NewUser(email, name, credentialHash string, now time.Time) (*User, error) {
	u := &User{
		ID:             uuid.New(),
		Email:          strings.ToLower(strings.TrimSpace(email)),
		Name:           strings.TrimSpace(name),
		CredentialHash: credentialHash,
		Active:         true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := u.validate(); err != nil {
		return nil, err
	}
	return u, nil
}

func (u *User) validate() error {
	if u.Email == "" || !govalidator.IsEmail(u.Email) {
		return dErrors.Newf(dErrors.CodeInvalidEntityState, "invalid email address: %q", u.Email)
	}
	if u.Name == "" {
		return dErrors.New(dErrors.CodeInvalidEntityState, "name must not be empty")
	}
	if u.CredentialHash == "" {
		return dErrors.New(dErrors.CodeInvalidEntityState, "credential hash is required")
	}
	return nil
}

// Rename changes the display name. Structural rule: names must not be empty.
func (u *User) Rename(name string, now time.Time) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return dErrors.New(dErrors.CodeInvalidEntityState, "name must not be empty")
	}
	u.Name = name
	u.UpdatedAt = now
	return nil
}

// ChangeEmail changes the email address after structural validation.
func (u *User) ChangeEmail(email string, now time.Time) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !govalidator.IsEmail(email) {
		return dErrors.Newf(dErrors.CodeInvalidEntityState, "invalid email address: %q", email)
	}
	u.Email = email
	u.UpdatedAt = now
	return nil
}

// Deactivate disables the user. Deactivating an already-inactive user is a
// business-rule violation: the entity is valid, the operation is not.
func (u *User) Deactivate(now time.Time) error {
	if !u.Active {
		return dErrors.New(dErrors.CodeBusinessRuleViolation, "user is already inactive")
	}
	u.Active = false
	u.UpdatedAt = now
	return nil
}

// ChainState describes where a refresh-token record sits in its rotation
// chain.
type ChainState string

const (
	// ChainStateActive: current, unused; the only state a rotation or logout
	// may act on.
	ChainStateActive ChainState = "active"
	// ChainStateRotated: replaced by a successor. Terminal for this record;
	// the chain continues under the successor's identifier.
	ChainStateRotated ChainState = "rotated"
	// ChainStateRevoked: terminal, chain dead.
	ChainStateRevoked ChainState = "revoked"
)

// RefreshTokenRecord is the persisted state of one opaque refresh token.
// Records linked by ReplacedBy form a rotation chain; FamilyID names the
// chain's lineage so reuse detection can revoke it wholesale.
type RefreshTokenRecord struct {
	Token      string
	UserID     uuid.UUID
	FamilyID   uuid.UUID
	IssuedAt   time.Time
	ExpiresAt  time.Time
	Revoked    bool
	ReplacedBy *string
}

// State derives the chain state from the revoked/replaced-by fields.
// Revocation wins over replacement so a cascaded chain reads as revoked.
func (r *RefreshTokenRecord) State() ChainState {
	switch {
	case r.Revoked:
		return ChainStateRevoked
	case r.ReplacedBy != nil:
		return ChainStateRotated
	default:
		return ChainStateActive
	}
}

// ValidateForRotation reports whether this record may be rotated at the given
// instant. Returns sentinel errors per the store boundary contract:
// ErrAlreadyUsed for rotated/revoked records (a replay signal the caller must
// escalate), ErrExpired for current-but-expired ones.
func (r *RefreshTokenRecord) ValidateForRotation(now time.Time) error {
	if r.State() != ChainStateActive {
		return sentinel.ErrAlreadyUsed
	}
	if !r.ExpiresAt.After(now) {
		return sentinel.ErrExpired
	}
	return nil
}

// MarkReplaced links this record to its successor. Terminal: a replaced
// record is never reactivated.
func (r *RefreshTokenRecord) MarkReplaced(successor string) {
	r.ReplacedBy = &successor
}

// MarkRevoked kills this record. Terminal.
func (r *RefreshTokenRecord) MarkRevoked() {
	r.Revoked = true
}

// TokenPair is the credential pair returned by login and refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}
