package handler

import (
	"errors"
	"net/http"
	"time"

	"classforge/api/middleware"
	"classforge/internal/dto"
	"classforge/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type AuthHandler struct {
	Auth              *service.AuthService
	Users             *service.UserService
	Validate          *validator.Validate
	RefreshCookieName string
	CookieDomain      string
	SecureCookies     bool
	SameSite          http.SameSite
}

func NewAuthHandler(auth *service.AuthService, users *service.UserService, validate *validator.Validate) *AuthHandler {
	return &AuthHandler{
		Auth:              auth,
		Users:             users,
		Validate:          validate,
		RefreshCookieName: "refresh_token",
		SecureCookies:     true,
		SameSite:          http.SameSiteStrictMode,
	}
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req dto.LoginRequest
	if err := decodeJSON(c, &req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	if err := h.validate(req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	result, err := h.Auth.Login(c.Request().Context(), service.LoginInput{
		Email:     req.Email,
		Password:  req.Password,
		IPAddress: stringPtr(c.RealIP()),
		UserAgent: stringPtr(c.Request().UserAgent()),
	})
	if err != nil {
		return writeServiceError(c, err)
	}
	return h.writeLoginResult(c, result)
}

func (h *AuthHandler) LoginOtp(c echo.Context) error {
	var req dto.LoginOtpRequest
	if err := decodeJSON(c, &req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	if err := h.validate(req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	result, err := h.Auth.LoginOtp(c.Request().Context(), service.LoginOtpInput{
		MFAToken:  req.MFAToken,
		Code:      req.Code,
		IPAddress: stringPtr(c.RealIP()),
		UserAgent: stringPtr(c.Request().UserAgent()),
	})
	if err != nil {
		return writeServiceError(c, err)
	}
	return h.writeLoginResult(c, result)
}

func (h *AuthHandler) LoginOtpBypass(c echo.Context) error {
	var req dto.LoginBypassRequest
	if err := decodeJSON(c, &req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	if err := h.validate(req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	result, err := h.Auth.LoginOtpBypass(c.Request().Context(), service.LoginBypassInput{
		MFAToken:  req.MFAToken,
		Token:     req.Token,
		IPAddress: stringPtr(c.RealIP()),
		UserAgent: stringPtr(c.Request().UserAgent()),
	})
	if err != nil {
		return writeServiceError(c, err)
	}
	return h.writeLoginResult(c, result)
}

func (h *AuthHandler) Refresh(c echo.Context) error {
	refreshToken := h.readRefreshCookie(c)
	if refreshToken == "" {
		return writeError(c, http.StatusUnauthorized, errors.New("missing refresh token"))
	}
	result, err := h.Auth.Refresh(c.Request().Context(), refreshToken)
	if err != nil {
		return writeServiceError(c, err)
	}
	return h.writeLoginResult(c, result)
}

func (h *AuthHandler) Logout(c echo.Context) error {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, errors.New("unauthorized"))
	}
	sessionID, ok := middleware.SessionIDFromContext(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, errors.New("unauthorized"))
	}
	if err := h.Auth.Logout(c.Request().Context(), sessionID, &userID, stringPtr(c.RealIP())); err != nil {
		return writeServiceError(c, err)
	}
	h.clearRefreshCookie(c)
	return c.NoContent(http.StatusNoContent)
}

func (h *AuthHandler) LogoutAll(c echo.Context) error {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, errors.New("unauthorized"))
	}
	if err := h.Auth.LogoutAll(c.Request().Context(), userID, stringPtr(c.RealIP())); err != nil {
		return writeServiceError(c, err)
	}
	h.clearRefreshCookie(c)
	return c.NoContent(http.StatusNoContent)
}

func (h *AuthHandler) Me(c echo.Context) error {
	user, err := requestingUser(c, h.Users)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dto.UserResponseFromEntity(user))
}

func (h *AuthHandler) validate(payload any) error {
	if h.Validate == nil {
		return nil
	}
	return h.Validate.Struct(payload)
}

// writeLoginResult moves the refresh token into an HTTP-only cookie so it
// never appears in the JSON body.
func (h *AuthHandler) writeLoginResult(c echo.Context, result *service.LoginResult) error {
	response := dto.LoginResponse{
		AccessToken:       result.AccessToken,
		ExpiresIn:         result.ExpiresIn,
		MFARequired:       result.MFARequired,
		MFAToken:          result.MFAToken,
		MFATokenExpiresIn: result.MFATokenExpiresIn,
	}
	if !result.MFARequired {
		h.setRefreshCookie(c, result.RefreshToken, result.RefreshExpiresIn)
	}
	return c.JSON(http.StatusOK, response)
}

func (h *AuthHandler) setRefreshCookie(c echo.Context, token string, expiresIn int64) {
	if token == "" {
		return
	}
	maxAge := int(expiresIn)
	if maxAge < 0 {
		maxAge = 0
	}
	c.SetCookie(&http.Cookie{
		Name:     h.RefreshCookieName,
		Value:    token,
		Path:     "/",
		Domain:   h.CookieDomain,
		MaxAge:   maxAge,
		Expires:  time.Now().Add(time.Duration(expiresIn) * time.Second),
		HttpOnly: true,
		Secure:   h.SecureCookies,
		SameSite: h.SameSite,
	})
}

func (h *AuthHandler) clearRefreshCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     h.RefreshCookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.SecureCookies,
		SameSite: h.SameSite,
	})
}

func (h *AuthHandler) readRefreshCookie(c echo.Context) string {
	cookie, err := c.Cookie(h.RefreshCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}
