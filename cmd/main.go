package main

import (
	"net/http"
	"os"
	"time"

	"classforge/api/handler"
	apiMiddleware "classforge/api/middleware"
	"classforge/api/routes"
	"classforge/config"
	"classforge/internal/repository"
	"classforge/internal/service"
	"classforge/internal/utils"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("load config")
	}

	db, err := config.ConnectDB(cfg.DatabaseURL)
	if err != nil {
		logger.WithError(err).Fatal("connect database")
	}

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	schoolRepo := repository.NewSchoolRepository(db)
	factorRepo := repository.NewAuthFactorRepository(db)
	bypassRepo := repository.NewOtpBypassTokenRepository(db)
	invitationRepo := repository.NewInvitationRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	securityRepo := repository.NewSecurityLogRepository(db)

	serviceConfig := service.Config{
		AccessTokenTTL:   cfg.AccessTokenTTL,
		RefreshTokenTTL:  cfg.RefreshTokenTTL,
		EmailVerifyTTL:   cfg.EmailVerifyTTL,
		PasswordResetTTL: cfg.PasswordResetTTL,
		MFATokenTTL:      cfg.MFATokenTTL,
		OtpIssuer:        cfg.OtpIssuer,
		ServiceBaseURL:   cfg.ServiceBaseURL,
		PageTeacherLogin: cfg.PageTeacherLogin,
		PageIndyLogin:    cfg.PageIndyLogin,
	}

	accessManager := utils.JWTManager{
		Secret:         []byte(cfg.JWTSecret),
		Issuer:         cfg.JWTIssuer,
		AccessTokenTTL: cfg.AccessTokenTTL,
	}
	accessIssuer := service.JWTAccessIssuer{Manager: &accessManager}
	mfaIssuer := service.MFATokenIssuer{
		Secret: []byte(cfg.MFAJWTSecret),
		Issuer: cfg.JWTIssuer,
		TTL:    cfg.MFATokenTTL,
	}
	tokenCodec := service.TokenCodec{
		Secret: []byte(cfg.JWTSecret),
		Issuer: cfg.JWTIssuer,
	}

	hasher := service.BcryptPasswordHasher{}
	clock := service.RealClock{}
	mailer := service.NewResendMailer(cfg.ResendAPIKey, cfg.MailFrom)
	otpProvider := service.NewTOTPProvider(cfg.OtpIssuer)
	vault := service.NewBypassVault(bypassRepo)

	userService := service.NewUserService(
		userRepo, teacherRepo, sessionRepo, securityRepo,
		tokenCodec, hasher, mailer, clock, logger, serviceConfig,
	)
	factorService := service.NewAuthFactorService(
		factorRepo, teacherRepo, userRepo, vault, otpProvider, securityRepo, logger,
	)
	invitationService := service.NewInvitationService(
		invitationRepo, userRepo, teacherRepo, schoolRepo, sessionRepo, securityRepo,
		mailer, hasher, clock, logger, serviceConfig,
	)
	authService := service.NewAuthService(
		userRepo, sessionRepo, factorRepo, securityRepo, vault, otpProvider,
		accessIssuer, mfaIssuer, hasher, clock, logger, serviceConfig,
	)

	authHandler := handler.NewAuthHandler(authService, userService, validate)
	authHandler.CookieDomain = cfg.CookieDomain
	authHandler.SecureCookies = cfg.CookieSecure

	userHandler := handler.NewUserHandler(userService, validate)
	userHandler.PageTeacherLogin = cfg.PageTeacherLogin
	userHandler.PageIndyLogin = cfg.PageIndyLogin

	factorHandler := handler.NewAuthFactorHandler(factorService, vault, userService, validate)
	invitationHandler := handler.NewInvitationHandler(invitationService, userService, validate)

	app := echo.New()
	app.HideBanner = true
	app.HidePort = true
	app.Use(echoMiddleware.Recover())
	app.Use(echoMiddleware.RequestLoggerWithConfig(echoMiddleware.RequestLoggerConfig{
		LogStatus:   true,
		LogMethod:   true,
		LogURI:      true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v echoMiddleware.RequestLoggerValues) error {
			entry := logger.WithFields(logrus.Fields{
				"status": v.Status,
				"method": v.Method,
				"uri":    v.URI,
				"ip":     v.RemoteIP,
			})
			if v.Error != nil {
				entry.WithError(v.Error).Error("request")
				return nil
			}
			entry.Info("request")
			return nil
		},
	}))

	authMiddleware := apiMiddleware.AuthMiddleware{JWT: &accessManager}
	router := routes.NewRouter(app, authHandler, userHandler, factorHandler, invitationHandler, authMiddleware, logger)
	router.RegisterRoutes()

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.WithField("addr", cfg.HTTPAddr).Info("server started")
	if err := app.StartServer(server); err != nil {
		logger.WithError(err).Fatal("server stopped")
	}
}
