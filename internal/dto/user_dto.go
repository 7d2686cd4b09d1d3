package dto

import (
	"time"

	"classforge/internal/entity"
	"classforge/internal/service"
)

type CreateUserRequest struct {
	FirstName string `json:"first_name" validate:"required,min=1"`
	LastName  string `json:"last_name" validate:"required,min=1"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
}

type UpdateUserRequest struct {
	FirstName       *string `json:"first_name,omitempty" validate:"omitempty,min=1"`
	LastName        *string `json:"last_name,omitempty" validate:"omitempty,min=1"`
	Email           *string `json:"email,omitempty" validate:"omitempty,email"`
	Password        *string `json:"password,omitempty" validate:"omitempty,min=8"`
	CurrentPassword *string `json:"current_password,omitempty"`
}

type RequestPasswordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

type UserResponse struct {
	ID         string     `json:"id"`
	Email      string     `json:"email"`
	Username   string     `json:"username"`
	FirstName  string     `json:"first_name"`
	LastName   string     `json:"last_name"`
	Role       string     `json:"role"`
	IsActive   bool       `json:"is_active"`
	IsVerified bool       `json:"is_verified"`
	CreatedAt  time.Time  `json:"created_at"`
	LastLogin  *time.Time `json:"last_login_at,omitempty"`
}

func UserResponseFromEntity(user *entity.User) UserResponse {
	return UserResponse{
		ID:         user.ID.String(),
		Email:      user.Email,
		Username:   user.Username,
		FirstName:  user.FirstName,
		LastName:   user.LastName,
		Role:       service.RoleOf(*user),
		IsActive:   user.IsActive,
		IsVerified: user.IsVerified,
		CreatedAt:  user.CreatedAt,
		LastLogin:  user.LastLoginAt,
	}
}
