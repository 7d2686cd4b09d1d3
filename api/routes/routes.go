package routes

import (
	"time"

	"classforge/api/handler"
	"classforge/api/middleware"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

type Router struct {
	Echo           *echo.Echo
	Auth           *handler.AuthHandler
	Users          *handler.UserHandler
	Factors        *handler.AuthFactorHandler
	Invitations    *handler.InvitationHandler
	AuthMiddleware middleware.AuthMiddleware
	AuthRate       *middleware.RateLimiter
	LoginRate      *middleware.RateLimiter
}

func NewRouter(
	e *echo.Echo,
	auth *handler.AuthHandler,
	users *handler.UserHandler,
	factors *handler.AuthFactorHandler,
	invitations *handler.InvitationHandler,
	authMiddleware middleware.AuthMiddleware,
	logger logrus.FieldLogger,
) *Router {
	return &Router{
		Echo:           e,
		Auth:           auth,
		Users:          users,
		Factors:        factors,
		Invitations:    invitations,
		AuthMiddleware: authMiddleware,
		AuthRate:       middleware.NewRateLimiter(rate.Limit(5), 10, 5*time.Minute, logger),
		LoginRate:      middleware.NewRateLimiter(rate.Limit(2), 4, 10*time.Minute, logger),
	}
}

func (r *Router) RegisterRoutes() {
	e := r.Echo
	requireAuth := r.AuthMiddleware.RequireAuth
	requireTeacher := middleware.RequireRole("teacher")

	e.POST("/auth/login", r.Auth.Login, r.LoginRate.Middleware())
	e.POST("/auth/login/otp", r.Auth.LoginOtp, r.LoginRate.Middleware())
	e.POST("/auth/login/otp-bypass", r.Auth.LoginOtpBypass, r.LoginRate.Middleware())
	e.POST("/auth/refresh", r.Auth.Refresh, r.AuthRate.Middleware())
	e.POST("/auth/logout", r.Auth.Logout, requireAuth)
	e.POST("/auth/logout-all", r.Auth.LogoutAll, requireAuth)
	e.GET("/me", r.Auth.Me, requireAuth)

	e.POST("/users", r.Users.Create, r.AuthRate.Middleware())
	e.PATCH("/users/:id", r.Users.Update, requireAuth)
	e.DELETE("/users/:id", r.Users.Destroy, requireAuth)
	e.POST("/users/request-password-reset", r.Users.RequestPasswordReset, r.LoginRate.Middleware())
	e.PUT("/users/:id/reset-password/:token", r.Users.ResetPassword, r.AuthRate.Middleware())
	e.GET("/users/:id/verify-email/:token", r.Users.VerifyEmail, r.AuthRate.Middleware())

	e.GET("/auth-factors", r.Factors.List, requireAuth, requireTeacher)
	e.POST("/auth-factors", r.Factors.Enable, requireAuth, requireTeacher)
	e.DELETE("/auth-factors/:id", r.Factors.Disable, requireAuth, requireTeacher)
	e.GET("/auth-factors/check", r.Factors.Check, requireAuth)
	e.POST("/auth-factors/otp-provisioning-uri", r.Factors.ProvisionOtp, requireAuth)
	e.POST("/otp-bypass-tokens/generate", r.Factors.GenerateBypassTokens, requireAuth, requireTeacher)

	e.GET("/school-teacher-invitations", r.Invitations.List, requireAuth, requireTeacher)
	e.POST("/school-teacher-invitations", r.Invitations.Create, requireAuth, requireTeacher)
	e.PUT("/school-teacher-invitations/:id/refresh", r.Invitations.Refresh, requireAuth, requireTeacher)
	e.DELETE("/school-teacher-invitations/:id", r.Invitations.Delete, requireAuth, requireTeacher)
	e.DELETE("/school-teacher-invitations/:id/accept", r.Invitations.Accept, r.AuthRate.Middleware())
	e.DELETE("/school-teacher-invitations/:id/reject", r.Invitations.Reject, r.AuthRate.Middleware())
}
