package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// principalKey is the echo context slot the auth middleware fills after a
// successful token check.
const principalKey = "principal"

// Principal identifies the authenticated caller for the rest of the request:
// who they are, which role their access token carries, and which session the
// token was minted under.
type Principal struct {
	UserID    uuid.UUID
	Role      string
	SessionID uuid.UUID
}

func SetPrincipal(c echo.Context, p Principal) {
	c.Set(principalKey, p)
}

func principalFromContext(c echo.Context) (Principal, bool) {
	p, ok := c.Get(principalKey).(Principal)
	return p, ok
}

func UserIDFromContext(c echo.Context) (uuid.UUID, bool) {
	p, ok := principalFromContext(c)
	return p.UserID, ok
}

func RoleFromContext(c echo.Context) (string, bool) {
	p, ok := principalFromContext(c)
	return p.Role, ok
}

func SessionIDFromContext(c echo.Context) (uuid.UUID, bool) {
	p, ok := principalFromContext(c)
	return p.SessionID, ok
}
