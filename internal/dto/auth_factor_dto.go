package dto

import (
	"time"

	"classforge/internal/entity"
)

type EnableAuthFactorRequest struct {
	Type string `json:"type" validate:"required"`
	Otp  string `json:"otp,omitempty"`
}

type AuthFactorResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
}

type EnableAuthFactorResponse struct {
	Factor       AuthFactorResponse `json:"factor"`
	BypassTokens []string           `json:"bypass_tokens,omitempty"`
}

type AuthFactorCheckResponse struct {
	Exists bool `json:"exists"`
}

func AuthFactorResponseFromEntity(factor *entity.AuthFactor) AuthFactorResponse {
	return AuthFactorResponse{
		ID:        factor.ID.String(),
		UserID:    factor.UserID.String(),
		Type:      string(factor.Type),
		CreatedAt: factor.CreatedAt,
	}
}

func AuthFactorResponsesFromEntities(factors []entity.AuthFactor) []AuthFactorResponse {
	responses := make([]AuthFactorResponse, 0, len(factors))
	for i := range factors {
		responses = append(responses, AuthFactorResponseFromEntity(&factors[i]))
	}
	return responses
}
