package service

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenPurpose scopes a signed token to exactly one flow. A token minted for
// one purpose never verifies for another.
type TokenPurpose string

const (
	PurposeEmailVerify   TokenPurpose = "email-verify"
	PurposePasswordReset TokenPurpose = "password-reset"
)

// TokenCodec mints and verifies short-lived bearer tokens bound to a user
// and a purpose. Tokens are never stored; validity is entirely a function of
// the signature and the embedded expiry.
type TokenCodec struct {
	Secret []byte
	Issuer string
	// Now is swappable for tests; defaults to time.Now.
	Now func() time.Time
}

type purposeClaims struct {
	Purpose string `json:"purpose"`
	// Secondary carries flow-specific payload, e.g. the pending new email
	// address on an email-change verification token.
	Secondary string `json:"sec,omitempty"`
	jwt.RegisteredClaims
}

func userAudience(userID uuid.UUID) string {
	return "user:" + userID.String()
}

func (c TokenCodec) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

func (c TokenCodec) Issue(userID uuid.UUID, purpose TokenPurpose, secondary string, ttl time.Duration) (string, error) {
	now := c.now()
	claims := purposeClaims{
		Purpose:   string(purpose),
		Secondary: secondary,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.Issuer,
			Subject:   userID.String(),
			Audience:  jwt.ClaimStrings{userAudience(userID)},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(c.Secret)
}

// Verify recomputes the signature and checks audience, purpose and expiry.
// Every failure mode collapses to (false, ""): callers must not be able to
// tell a malformed token from an expired one.
func (c TokenCodec) Verify(token string, userID uuid.UUID, purpose TokenPurpose) (bool, string) {
	parsed, err := jwt.ParseWithClaims(
		token,
		&purposeClaims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, ErrInvalidToken
			}
			return c.Secret, nil
		},
		jwt.WithAudience(userAudience(userID)),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return false, ""
	}
	claims, ok := parsed.Claims.(*purposeClaims)
	if !ok || !parsed.Valid || claims.Purpose != string(purpose) {
		return false, ""
	}
	return true, claims.Secondary
}
