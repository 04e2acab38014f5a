// Package jwttoken implements the token-signer capability for access tokens.
// Refresh tokens never pass through here: they are opaque identifiers with no
// embedded claims, managed entirely by the refresh-token store.
package jwttoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	dErrors "authcore/pkg/domain-errors"
)

// TokenTypeAccess is the type discriminator carried in access-token claims.
// A signed token of any other type is rejected at verification.
const TokenTypeAccess = "access"

// Claims represents the JWT claims for our access tokens.
type Claims struct {
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// UserID parses the subject claim into a user identifier.
func (c *Claims) UserID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}

// JWTService handles access-token creation and validation. It is stateless;
// the caller supplies the instant for both operations so expiry is
// deterministic under test.
type JWTService struct {
	signingKey []byte
	issuer     string
	audience   string
}

func NewJWTService(signingKey, issuer, audience string) *JWTService {
	return &JWTService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
	}
}

// GenerateAccessToken signs an access token for the user, valid from now
// until now+expiresIn. Returns the signed token and its JTI for revocation
// tracking.
func (s *JWTService) GenerateAccessToken(userID uuid.UUID, now time.Time, expiresIn time.Duration) (string, string, error) {
	jti := uuid.NewString()
	newToken := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		TokenType: TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			Audience:  []string{s.audience},
			ID:        jti,
		},
	})

	signedToken, err := newToken.SignedString(s.signingKey)
	if err != nil {
		return "", "", err
	}
	return signedToken, jti, nil
}

// ValidateToken parses and verifies an access token at the given instant.
// Fails with CodeTokenExpired when now is at or past expiry, and with
// CodeTokenInvalid for anything structurally or cryptographically wrong.
func (s *JWTService) ValidateToken(tokenString string, now time.Time) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	},
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
	)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeTokenExpired, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeTokenInvalid, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeTokenInvalid, "invalid token claims")
	}
	if claims.TokenType != TokenTypeAccess {
		return nil, dErrors.New(dErrors.CodeTokenInvalid, "not an access token")
	}

	return claims, nil
}
