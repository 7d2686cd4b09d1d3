package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr    string `env:"HTTP_ADDR" envDefault:":8080"`
	DatabaseURL string `env:"DATABASE_URL"`

	JWTSecret    string `env:"JWT_SECRET,required"`
	JWTIssuer    string `env:"JWT_ISSUER" envDefault:"classforge"`
	MFAJWTSecret string `env:"MFA_JWT_SECRET"`

	AccessTokenTTL   time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"15m"`
	RefreshTokenTTL  time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"720h"`
	EmailVerifyTTL   time.Duration `env:"EMAIL_VERIFY_TTL" envDefault:"24h"`
	PasswordResetTTL time.Duration `env:"PASSWORD_RESET_TTL" envDefault:"30m"`
	MFATokenTTL      time.Duration `env:"MFA_TOKEN_TTL" envDefault:"5m"`

	OtpIssuer string `env:"OTP_ISSUER" envDefault:"Classforge"`

	ServiceBaseURL   string `env:"SERVICE_BASE_URL" envDefault:"http://localhost:8080"`
	PageTeacherLogin string `env:"PAGE_TEACHER_LOGIN"`
	PageIndyLogin    string `env:"PAGE_INDY_LOGIN"`

	ResendAPIKey string `env:"RESEND_API_KEY"`
	MailFrom     string `env:"MAIL_FROM"`

	CookieDomain  string `env:"COOKIE_DOMAIN"`
	CookieSecure  bool   `env:"COOKIE_SECURE" envDefault:"true"`
}

// Load reads .env when present, then parses the environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}
	if cfg.MFAJWTSecret == "" {
		cfg.MFAJWTSecret = cfg.JWTSecret
	}
	return cfg, nil
}
