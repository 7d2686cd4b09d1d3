package handler

import (
	"errors"
	"net/http"

	"classforge/internal/dto"
	"classforge/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type InvitationHandler struct {
	Invitations *service.InvitationService
	Users       *service.UserService
	Validate    *validator.Validate
}

func NewInvitationHandler(
	invitations *service.InvitationService,
	users *service.UserService,
	validate *validator.Validate,
) *InvitationHandler {
	return &InvitationHandler{Invitations: invitations, Users: users, Validate: validate}
}

func (h *InvitationHandler) List(c echo.Context) error {
	user, err := requestingUser(c, h.Users)
	if err != nil {
		return err
	}
	invitations, err := h.Invitations.List(c.Request().Context(), user)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.InvitationResponsesFromEntities(invitations))
}

func (h *InvitationHandler) Create(c echo.Context) error {
	user, err := requestingUser(c, h.Users)
	if err != nil {
		return err
	}
	var req dto.CreateInvitationRequest
	if err := decodeJSON(c, &req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	if err := h.validate(req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	creation, err := h.Invitations.Create(c.Request().Context(), user, service.InvitationInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		IsAdmin:   req.IsAdmin,
	})
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, dto.InvitationResponseFromEntity(creation.Invitation))
}

func (h *InvitationHandler) Refresh(c echo.Context) error {
	user, err := requestingUser(c, h.Users)
	if err != nil {
		return err
	}
	invitationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return writeError(c, http.StatusBadRequest, errors.New("invalid invitation id"))
	}
	creation, err := h.Invitations.Refresh(c.Request().Context(), user, invitationID)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.InvitationResponseFromEntity(creation.Invitation))
}

func (h *InvitationHandler) Delete(c echo.Context) error {
	user, err := requestingUser(c, h.Users)
	if err != nil {
		return err
	}
	invitationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return writeError(c, http.StatusBadRequest, errors.New("invalid invitation id"))
	}
	if err := h.Invitations.Delete(c.Request().Context(), user, invitationID); err != nil {
		return writeServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Accept and Reject are unauthenticated: the invitee proves themselves with
// the emailed token, which is bound to the targeted invitation row.

func (h *InvitationHandler) Accept(c echo.Context) error {
	invitationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return writeError(c, http.StatusBadRequest, errors.New("invalid invitation id"))
	}
	var req dto.AcceptInvitationRequest
	if err := decodeJSON(c, &req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	if err := h.validate(req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	var newAccount *service.NewTeacherInput
	if req.User != nil {
		newAccount = &service.NewTeacherInput{
			FirstName: req.User.FirstName,
			LastName:  req.User.LastName,
			Password:  req.User.Password,
		}
	}
	if err := h.Invitations.Accept(c.Request().Context(), invitationID, req.Token, newAccount); err != nil {
		return writeServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *InvitationHandler) Reject(c echo.Context) error {
	invitationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return writeError(c, http.StatusBadRequest, errors.New("invalid invitation id"))
	}
	var req dto.RejectInvitationRequest
	if err := decodeJSON(c, &req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	if err := h.validate(req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	if err := h.Invitations.Reject(c.Request().Context(), invitationID, req.Token); err != nil {
		return writeServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *InvitationHandler) validate(payload any) error {
	if h.Validate == nil {
		return nil
	}
	return h.Validate.Struct(payload)
}
