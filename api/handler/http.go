package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"classforge/api/middleware"
	"classforge/internal/entity"
	"classforge/internal/service"

	"github.com/labstack/echo/v4"
)

func decodeJSON(c echo.Context, target any) error {
	decoder := json.NewDecoder(c.Request().Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}

func writeError(c echo.Context, status int, err error) error {
	return c.JSON(status, map[string]string{"message": err.Error()})
}

func writeServiceError(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrOtpRequired),
		errors.Is(err, service.ErrCurrentPasswordMissing),
		errors.Is(err, service.ErrCurrentPasswordWrong):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrInvalidToken),
		errors.Is(err, service.ErrInvalidOtp):
		status = http.StatusUnauthorized
	case errors.Is(err, service.ErrEmailNotVerified),
		errors.Is(err, service.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, service.ErrNotFound),
		errors.Is(err, service.ErrUserNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrAlreadyExists),
		errors.Is(err, service.ErrAlreadyInSchool),
		errors.Is(err, service.ErrNonTeacherAccount),
		errors.Is(err, service.ErrLastAdminInSchool):
		status = http.StatusConflict
	case errors.Is(err, service.ErrGone):
		status = http.StatusGone
	}
	return writeError(c, status, err)
}

// requestingUser loads the full account for the authenticated user ID on the
// request context.
func requestingUser(c echo.Context, users *service.UserService) (*entity.User, error) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	user, err := users.GetByID(c.Request().Context(), userID)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.IsActive {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	return user, nil
}

func stringPtr(value string) *string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return &value
}
