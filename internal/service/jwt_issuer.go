package service

import (
	"time"

	"classforge/internal/entity"
	"classforge/internal/utils"

	"github.com/google/uuid"
)

// RoleOf maps a user's profile to the role carried in access token claims.
func RoleOf(user entity.User) string {
	switch {
	case user.IsTeacher():
		return "teacher"
	case user.IsStudent():
		return "student"
	default:
		return "independent"
	}
}

type JWTAccessIssuer struct {
	Manager *utils.JWTManager
}

func (j JWTAccessIssuer) IssueAccessToken(user entity.User, sessionID uuid.UUID) (string, time.Duration, error) {
	if j.Manager == nil {
		return "", 0, ErrInvalidToken
	}
	return j.Manager.IssueAccessToken(user.ID.String(), RoleOf(user), sessionID.String())
}
