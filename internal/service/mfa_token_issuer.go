package service

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidMFAToken = errors.New("invalid mfa token")

const (
	stepUpPurpose    = "mfa-step-up"
	defaultStepUpTTL = 5 * time.Minute
)

// MFATokenIssuer mints the short-lived step-up token handed out after a
// correct password when a second factor is still outstanding. The token is
// only good for finishing that login: a purpose claim keeps it from passing
// as an access token, and it expires within minutes.
type MFATokenIssuer struct {
	Secret []byte
	Issuer string
	TTL    time.Duration

	// Now is overridable in tests. Nil means time.Now.
	Now func() time.Time
}

type stepUpClaims struct {
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

func (m MFATokenIssuer) IssueMFAToken(userID uuid.UUID) (string, time.Duration, error) {
	ttl := m.TTL
	if ttl <= 0 {
		ttl = defaultStepUpTTL
	}
	now := m.now()
	claims := stepUpClaims{
		Purpose: stepUpPurpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.Issuer,
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.Secret)
	if err != nil {
		return "", 0, err
	}
	return signed, ttl, nil
}

func (m MFATokenIssuer) ParseMFAToken(token string) (uuid.UUID, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
	}
	if m.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.Issuer))
	}
	var claims stepUpClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return m.Secret, nil
	}, options...)
	if err != nil || claims.Purpose != stepUpPurpose {
		return uuid.Nil, ErrInvalidMFAToken
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, ErrInvalidMFAToken
	}
	return userID, nil
}

func (m MFATokenIssuer) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}
