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

type UserHandler struct {
	Users    *service.UserService
	Validate *validator.Validate

	PageTeacherLogin string
	PageIndyLogin    string
}

func NewUserHandler(users *service.UserService, validate *validator.Validate) *UserHandler {
	return &UserHandler{Users: users, Validate: validate}
}

// Create registers an independent account. The response is 201 whether or
// not a row was created; email existence must not be observable.
func (h *UserHandler) Create(c echo.Context) error {
	var req dto.CreateUserRequest
	if err := decodeJSON(c, &req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	if err := h.validate(req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	err := h.Users.Create(c.Request().Context(), service.CreateUserInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
	})
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.NoContent(http.StatusCreated)
}

func (h *UserHandler) Update(c echo.Context) error {
	user, err := requestingUser(c, h.Users)
	if err != nil {
		return err
	}
	targetID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return writeError(c, http.StatusBadRequest, errors.New("invalid user id"))
	}
	if targetID != user.ID {
		return writeError(c, http.StatusForbidden, errors.New("forbidden"))
	}

	var req dto.UpdateUserRequest
	if err := decodeJSON(c, &req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	if err := h.validate(req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	err = h.Users.Update(c.Request().Context(), user, service.UpdateUserInput{
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Email:           req.Email,
		Password:        req.Password,
		CurrentPassword: req.CurrentPassword,
	})
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.UserResponseFromEntity(user))
}

// Destroy anonymizes the account rather than deleting the row.
func (h *UserHandler) Destroy(c echo.Context) error {
	user, err := requestingUser(c, h.Users)
	if err != nil {
		return err
	}
	targetID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return writeError(c, http.StatusBadRequest, errors.New("invalid user id"))
	}
	if targetID != user.ID {
		return writeError(c, http.StatusForbidden, errors.New("forbidden"))
	}
	if err := h.Users.Anonymize(c.Request().Context(), user); err != nil {
		return writeServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// RequestPasswordReset answers 200 regardless of whether the email resolves
// to an account.
func (h *UserHandler) RequestPasswordReset(c echo.Context) error {
	var req dto.RequestPasswordResetRequest
	if err := decodeJSON(c, &req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	if err := h.validate(req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	if err := h.Users.RequestPasswordReset(c.Request().Context(), req.Email); err != nil {
		return writeServiceError(c, err)
	}
	return c.NoContent(http.StatusOK)
}

func (h *UserHandler) ResetPassword(c echo.Context) error {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return writeError(c, http.StatusBadRequest, errors.New("invalid user id"))
	}
	var req dto.ResetPasswordRequest
	if err := decodeJSON(c, &req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	if err := h.validate(req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	err = h.Users.ResetPassword(c.Request().Context(), userID, c.Param("token"), req.NewPassword)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// VerifyEmail handles the GET link from the verification email and redirects
// to the login page matching the account type.
func (h *UserHandler) VerifyEmail(c echo.Context) error {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return writeError(c, http.StatusBadRequest, errors.New("invalid user id"))
	}
	user, err := h.Users.VerifyEmail(c.Request().Context(), userID, c.Param("token"))
	if err != nil {
		return writeServiceError(c, err)
	}
	location := h.PageIndyLogin
	if user.IsTeacher() {
		location = h.PageTeacherLogin
	}
	if location == "" {
		return c.NoContent(http.StatusNoContent)
	}
	return c.Redirect(http.StatusSeeOther, location)
}

func (h *UserHandler) validate(payload any) error {
	if h.Validate == nil {
		return nil
	}
	return h.Validate.Struct(payload)
}
