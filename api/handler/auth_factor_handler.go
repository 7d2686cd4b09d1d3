package handler

import (
	"errors"
	"net/http"

	"classforge/internal/dto"
	"classforge/internal/entity"
	"classforge/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type AuthFactorHandler struct {
	Factors  *service.AuthFactorService
	Vault    *service.BypassVault
	Users    *service.UserService
	Validate *validator.Validate
}

func NewAuthFactorHandler(
	factors *service.AuthFactorService,
	vault *service.BypassVault,
	users *service.UserService,
	validate *validator.Validate,
) *AuthFactorHandler {
	return &AuthFactorHandler{Factors: factors, Vault: vault, Users: users, Validate: validate}
}

func (h *AuthFactorHandler) List(c echo.Context) error {
	user, err := requestingUser(c, h.Users)
	if err != nil {
		return err
	}
	factors, err := h.Factors.List(c.Request().Context(), user)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.AuthFactorResponsesFromEntities(factors))
}

func (h *AuthFactorHandler) Enable(c echo.Context) error {
	user, err := requestingUser(c, h.Users)
	if err != nil {
		return err
	}
	var req dto.EnableAuthFactorRequest
	if err := decodeJSON(c, &req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	if err := h.validate(req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	result, err := h.Factors.Enable(c.Request().Context(), user, entity.AuthFactorType(req.Type), req.Otp)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, dto.EnableAuthFactorResponse{
		Factor:       dto.AuthFactorResponseFromEntity(result.Factor),
		BypassTokens: result.BypassTokens,
	})
}

func (h *AuthFactorHandler) Disable(c echo.Context) error {
	user, err := requestingUser(c, h.Users)
	if err != nil {
		return err
	}
	factorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return writeError(c, http.StatusBadRequest, errors.New("invalid factor id"))
	}
	if err := h.Factors.Disable(c.Request().Context(), user, factorID); err != nil {
		return writeServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Check reports only whether the requester has a factor of the given type.
func (h *AuthFactorHandler) Check(c echo.Context) error {
	user, err := requestingUser(c, h.Users)
	if err != nil {
		return err
	}
	factorType := entity.AuthFactorType(c.QueryParam("type"))
	if factorType == "" {
		return writeError(c, http.StatusBadRequest, errors.New("type is required"))
	}
	exists, err := h.Factors.Exists(c.Request().Context(), user.ID, factorType)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.AuthFactorCheckResponse{Exists: exists})
}

// ProvisionOtp returns the otpauth:// URI for enrollment. Refused once an
// OTP factor is already enabled.
func (h *AuthFactorHandler) ProvisionOtp(c echo.Context) error {
	user, err := requestingUser(c, h.Users)
	if err != nil {
		return err
	}
	uri, err := h.Factors.ProvisionOtp(c.Request().Context(), user)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.String(http.StatusOK, uri)
}

// GenerateBypassTokens reissues the full recovery batch. Only reachable with
// an OTP factor already enabled.
func (h *AuthFactorHandler) GenerateBypassTokens(c echo.Context) error {
	user, err := requestingUser(c, h.Users)
	if err != nil {
		return err
	}
	hasOtp, err := h.Factors.Exists(c.Request().Context(), user.ID, entity.AuthFactorOtp)
	if err != nil {
		return writeServiceError(c, err)
	}
	if !hasOtp {
		return writeServiceError(c, service.ErrForbidden)
	}
	tokens, err := h.Vault.Generate(c.Request().Context(), user.ID)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, tokens)
}

func (h *AuthFactorHandler) validate(payload any) error {
	if h.Validate == nil {
		return nil
	}
	return h.Validate.Struct(payload)
}
