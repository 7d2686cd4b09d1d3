package dto

import (
	"time"

	"classforge/internal/entity"
)

type CreateInvitationRequest struct {
	FirstName string `json:"invited_teacher_first_name" validate:"required,min=1"`
	LastName  string `json:"invited_teacher_last_name" validate:"required,min=1"`
	Email     string `json:"invited_teacher_email" validate:"required,email"`
	IsAdmin   bool   `json:"invited_teacher_is_admin"`
}

type AcceptInvitationRequest struct {
	Token string `json:"token" validate:"required"`
	// User is only present when the invitee has no existing account.
	User *NewTeacherRequest `json:"user,omitempty"`
}

type NewTeacherRequest struct {
	FirstName string `json:"first_name" validate:"required,min=1"`
	LastName  string `json:"last_name" validate:"required,min=1"`
	Password  string `json:"password" validate:"required,min=8"`
}

type RejectInvitationRequest struct {
	Token string `json:"token" validate:"required"`
}

type InvitationResponse struct {
	ID               string    `json:"id"`
	InvitedFirstName string    `json:"invited_teacher_first_name"`
	InvitedLastName  string    `json:"invited_teacher_last_name"`
	InvitedEmail     string    `json:"invited_teacher_email"`
	InvitedIsAdmin   bool      `json:"invited_teacher_is_admin"`
	ExpiresAt        time.Time `json:"expires_at"`
}

func InvitationResponseFromEntity(invitation *entity.SchoolTeacherInvitation) InvitationResponse {
	return InvitationResponse{
		ID:               invitation.ID.String(),
		InvitedFirstName: invitation.InvitedFirstName,
		InvitedLastName:  invitation.InvitedLastName,
		InvitedEmail:     invitation.InvitedEmail,
		InvitedIsAdmin:   invitation.InvitedIsAdmin,
		ExpiresAt:        invitation.Expiry,
	}
}

func InvitationResponsesFromEntities(invitations []entity.SchoolTeacherInvitation) []InvitationResponse {
	responses := make([]InvitationResponse, 0, len(invitations))
	for i := range invitations {
		responses = append(responses, InvitationResponseFromEntity(&invitations[i]))
	}
	return responses
}
