package middleware

import (
	"errors"
	"net/http"
	"strings"

	"classforge/internal/utils"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type AuthMiddleware struct {
	JWT *utils.JWTManager
}

// RequireAuth rejects the request unless it carries a valid bearer access
// token, and records the token's principal on the context for handlers
// downstream. Session revocation is not checked here; services that act on
// the session load it themselves.
func (m AuthMiddleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		principal, err := m.authenticate(c.Request().Header.Get("Authorization"))
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
		}
		SetPrincipal(c, principal)
		return next(c)
	}
}

func (m AuthMiddleware) authenticate(authorization string) (Principal, error) {
	if m.JWT == nil {
		return Principal{}, errors.New("jwt manager not configured")
	}
	scheme, token, found := strings.Cut(authorization, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return Principal{}, errors.New("missing bearer token")
	}
	claims, err := m.JWT.ParseAccessToken(strings.TrimSpace(token))
	if err != nil {
		return Principal{}, err
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return Principal{}, err
	}
	sessionID, err := uuid.Parse(claims.SessionID)
	if err != nil {
		return Principal{}, err
	}
	return Principal{UserID: userID, Role: claims.Role, SessionID: sessionID}, nil
}
