package service

import (
	"context"
	"time"

	"classforge/internal/entity"
	"classforge/internal/repository"
	"classforge/internal/utils"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// dummyPasswordHash is verified against when the email resolves to no
// account, so both outcomes cost one bcrypt comparison.
const dummyPasswordHash = "$2a$10$CwTycUXWue0Thq9StjUM0uJ8yQbWc1x9uxw2sQ2sXUNx5x9xJ9F2S"

type LoginInput struct {
	Email     string
	Password  string
	IPAddress *string
	UserAgent *string
}

type LoginOtpInput struct {
	MFAToken  string
	Code      string
	IPAddress *string
	UserAgent *string
}

type LoginBypassInput struct {
	MFAToken  string
	Token     string
	IPAddress *string
	UserAgent *string
}

type LoginResult struct {
	AccessToken       string
	ExpiresIn         int64
	RefreshToken      string
	RefreshExpiresIn  int64
	MFARequired       bool
	MFAToken          string
	MFATokenExpiresIn int64
}

type AccessTokenIssuer interface {
	IssueAccessToken(user entity.User, sessionID uuid.UUID) (string, time.Duration, error)
}

type AuthService struct {
	users        repository.UserRepository
	sessions     repository.SessionRepository
	factors      repository.AuthFactorRepository
	securityLogs repository.SecurityLogRepository
	vault        *BypassVault
	otpProvider  *TOTPProvider
	accessTokens AccessTokenIssuer
	mfaTokens    MFATokenIssuer
	hasher       PasswordHasher
	clock        Clock
	logger       *logrus.Logger
	config       Config
}

func NewAuthService(
	users repository.UserRepository,
	sessions repository.SessionRepository,
	factors repository.AuthFactorRepository,
	securityLogs repository.SecurityLogRepository,
	vault *BypassVault,
	otpProvider *TOTPProvider,
	accessTokens AccessTokenIssuer,
	mfaTokens MFATokenIssuer,
	hasher PasswordHasher,
	clock Clock,
	logger *logrus.Logger,
	config Config,
) *AuthService {
	return &AuthService{
		users:        users,
		sessions:     sessions,
		factors:      factors,
		securityLogs: securityLogs,
		vault:        vault,
		otpProvider:  otpProvider,
		accessTokens: accessTokens,
		mfaTokens:    mfaTokens,
		hasher:       hasher,
		clock:        clock,
		logger:       logger,
		config:       config,
	}
}

// Login checks the password and either opens a session or, when the user has
// an OTP factor enabled, hands back a step-up token for the second factor.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	if input.Email == "" || input.Password == "" {
		return nil, ErrInvalidInput
	}

	user, err := s.users.FindByEmail(ctx, utils.NormalizeEmail(input.Email))
	if err != nil {
		return nil, err
	}
	if user == nil || !user.IsActive || user.PasswordHash == nil {
		_ = s.hasher.Verify(dummyPasswordHash, input.Password)
		logSecurity(ctx, s.securityLogs, s.logger, nil, input.IPAddress, entity.LoginFailed, nil)
		return nil, ErrInvalidCredentials
	}
	if !s.hasher.Verify(*user.PasswordHash, input.Password) {
		logSecurity(ctx, s.securityLogs, s.logger, &user.ID, input.IPAddress, entity.LoginFailed, nil)
		return nil, ErrInvalidCredentials
	}
	if !user.IsVerified {
		return nil, ErrEmailNotVerified
	}

	hasOtp, err := s.factors.ExistsByUserAndType(ctx, user.ID, entity.AuthFactorOtp)
	if err != nil {
		return nil, err
	}
	if hasOtp {
		mfaToken, expiresIn, err := s.mfaTokens.IssueMFAToken(user.ID)
		if err != nil {
			return nil, err
		}
		return &LoginResult{
			MFARequired:       true,
			MFAToken:          mfaToken,
			MFATokenExpiresIn: int64(expiresIn.Seconds()),
		}, nil
	}

	return s.openSession(ctx, user, input.IPAddress, input.UserAgent, nil)
}

// LoginOtp completes a step-up login with a TOTP code.
func (s *AuthService) LoginOtp(ctx context.Context, input LoginOtpInput) (*LoginResult, error) {
	user, err := s.resolveMFAUser(ctx, input.MFAToken)
	if err != nil {
		return nil, err
	}
	if user.OtpSecret == nil || !s.otpProvider.ValidateCode(*user.OtpSecret, input.Code) {
		logSecurity(ctx, s.securityLogs, s.logger, &user.ID, input.IPAddress, entity.OtpFailed, nil)
		return nil, ErrInvalidOtp
	}
	return s.openSession(ctx, user, input.IPAddress, input.UserAgent, map[string]any{"mfa": "otp"})
}

// LoginOtpBypass completes a step-up login by consuming one single-use
// recovery token.
func (s *AuthService) LoginOtpBypass(ctx context.Context, input LoginBypassInput) (*LoginResult, error) {
	user, err := s.resolveMFAUser(ctx, input.MFAToken)
	if err != nil {
		return nil, err
	}
	consumed, err := s.vault.Consume(ctx, user.ID, input.Token)
	if err != nil {
		return nil, err
	}
	if !consumed {
		logSecurity(ctx, s.securityLogs, s.logger, &user.ID, input.IPAddress, entity.OtpFailed, map[string]any{"bypass": true})
		return nil, ErrInvalidCredentials
	}
	logSecurity(ctx, s.securityLogs, s.logger, &user.ID, input.IPAddress, entity.BypassTokenUsed, nil)
	return s.openSession(ctx, user, input.IPAddress, input.UserAgent, map[string]any{"mfa": "bypass"})
}

func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	if refreshToken == "" {
		return nil, ErrInvalidInput
	}
	session, err := s.sessions.FindByTokenHash(ctx, utils.HashToken(refreshToken))
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrInvalidToken
	}
	user, err := s.users.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.IsActive {
		return nil, ErrUserNotFound
	}

	newToken, newHash, newExpiry, err := s.buildRefreshToken()
	if err != nil {
		return nil, err
	}
	if err := s.sessions.RotateToken(ctx, session.ID, newHash, newExpiry); err != nil {
		return nil, err
	}
	accessToken, expiresIn, err := s.accessTokens.IssueAccessToken(*user, session.ID)
	if err != nil {
		return nil, err
	}
	return &LoginResult{
		AccessToken:      accessToken,
		ExpiresIn:        int64(expiresIn.Seconds()),
		RefreshToken:     newToken,
		RefreshExpiresIn: int64(newExpiry.Sub(s.clock.Now()).Seconds()),
	}, nil
}

func (s *AuthService) Logout(ctx context.Context, sessionID uuid.UUID, userID *uuid.UUID, ipAddress *string) error {
	if err := s.sessions.Revoke(ctx, sessionID); err != nil {
		return err
	}
	logSecurity(ctx, s.securityLogs, s.logger, userID, ipAddress, entity.Logout, nil)
	return nil
}

func (s *AuthService) LogoutAll(ctx context.Context, userID uuid.UUID, ipAddress *string) error {
	if err := s.sessions.RevokeAllByUser(ctx, userID); err != nil {
		return err
	}
	logSecurity(ctx, s.securityLogs, s.logger, &userID, ipAddress, entity.SessionRevoked, map[string]any{"scope": "all"})
	return nil
}

func (s *AuthService) resolveMFAUser(ctx context.Context, mfaToken string) (*entity.User, error) {
	if mfaToken == "" {
		return nil, ErrInvalidInput
	}
	userID, err := s.mfaTokens.ParseMFAToken(mfaToken)
	if err != nil {
		return nil, ErrInvalidToken
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.IsActive {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (s *AuthService) openSession(
	ctx context.Context,
	user *entity.User,
	ipAddress *string,
	userAgent *string,
	metadata map[string]any,
) (*LoginResult, error) {
	refreshToken, refreshHash, refreshExpiry, err := s.buildRefreshToken()
	if err != nil {
		return nil, err
	}
	session := &entity.Session{
		UserID:    user.ID,
		TokenHash: refreshHash,
		IPAddress: ipAddress,
		UserAgent: userAgent,
		ExpiresAt: refreshExpiry,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}
	accessToken, expiresIn, err := s.accessTokens.IssueAccessToken(*user, session.ID)
	if err != nil {
		return nil, err
	}

	if err := s.users.TouchLastLogin(ctx, user.ID); err != nil && s.logger != nil {
		s.logger.WithError(err).Warn("touch last login failed")
	}
	logSecurity(ctx, s.securityLogs, s.logger, &user.ID, ipAddress, entity.LoginSuccess, metadata)

	return &LoginResult{
		AccessToken:      accessToken,
		ExpiresIn:        int64(expiresIn.Seconds()),
		RefreshToken:     refreshToken,
		RefreshExpiresIn: int64(refreshExpiry.Sub(s.clock.Now()).Seconds()),
	}, nil
}

func (s *AuthService) buildRefreshToken() (string, string, time.Time, error) {
	rawToken, err := utils.GenerateRandomToken(48)
	if err != nil {
		return "", "", time.Time{}, err
	}
	ttl := s.config.RefreshTokenTTL
	if ttl == 0 {
		ttl = 30 * 24 * time.Hour
	}
	return rawToken, utils.HashToken(rawToken), s.clock.Now().Add(ttl), nil
}
