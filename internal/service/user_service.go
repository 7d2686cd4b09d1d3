package service

import (
	"context"
	"fmt"

	"classforge/internal/entity"
	"classforge/internal/repository"
	"classforge/internal/utils"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type CreateUserInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

// UpdateUserInput carries a partial update. Email and password are the
// credential-bearing fields; changing either demands proof of the current
// password.
type UpdateUserInput struct {
	FirstName       *string
	LastName        *string
	Email           *string
	Password        *string
	CurrentPassword *string
}

type UserService struct {
	users        repository.UserRepository
	teachers     repository.TeacherRepository
	sessions     repository.SessionRepository
	securityLogs repository.SecurityLogRepository
	codec        TokenCodec
	hasher       PasswordHasher
	mailer       Mailer
	clock        Clock
	logger       *logrus.Logger
	config       Config
}

func NewUserService(
	users repository.UserRepository,
	teachers repository.TeacherRepository,
	sessions repository.SessionRepository,
	securityLogs repository.SecurityLogRepository,
	codec TokenCodec,
	hasher PasswordHasher,
	mailer Mailer,
	clock Clock,
	logger *logrus.Logger,
	config Config,
) *UserService {
	return &UserService{
		users:        users,
		teachers:     teachers,
		sessions:     sessions,
		securityLogs: securityLogs,
		codec:        codec,
		hasher:       hasher,
		mailer:       mailer,
		clock:        clock,
		logger:       logger,
		config:       config,
	}
}

// Create registers an independent account and sends the verification email.
// When the email is already taken nothing is created and no error is
// returned: the response must not reveal whether an email is registered.
func (s *UserService) Create(ctx context.Context, input CreateUserInput) error {
	email := utils.NormalizeEmail(input.Email)
	if email == "" || input.Password == "" {
		return ErrInvalidInput
	}

	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return err
	}
	user := &entity.User{
		Email:        email,
		Username:     email,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		PasswordHash: &hash,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if isDuplicateKey(err) {
			return nil
		}
		return err
	}

	s.sendVerificationEmail(ctx, user.ID, email, "")
	return nil
}

// Update applies a partial update to an existing user. Mutating email or
// password requires the current password; the check happens before any state
// is touched.
func (s *UserService) Update(ctx context.Context, user *entity.User, input UpdateUserInput) error {
	if input.Email != nil || input.Password != nil {
		if input.CurrentPassword == nil {
			return ErrCurrentPasswordMissing
		}
		if user.PasswordHash == nil || !s.hasher.Verify(*user.PasswordHash, *input.CurrentPassword) {
			return ErrCurrentPasswordWrong
		}
	}

	if input.FirstName != nil {
		user.FirstName = *input.FirstName
	}
	if input.LastName != nil {
		user.LastName = *input.LastName
	}

	if input.Password != nil {
		hash, err := s.hasher.Hash(*input.Password)
		if err != nil {
			return err
		}
		user.PasswordHash = &hash
		if err := s.sessions.RevokeAllByUser(ctx, user.ID); err != nil {
			return err
		}
		logSecurity(ctx, s.securityLogs, s.logger, &user.ID, nil, entity.PasswordReset, map[string]any{"source": "update"})
	}

	if err := s.users.Update(ctx, user); err != nil {
		return err
	}

	if input.Email != nil {
		newEmail := utils.NormalizeEmail(*input.Email)
		if newEmail != "" && newEmail != utils.NormalizeEmail(user.Email) {
			// The address only switches once the new one is verified; until
			// then the pending value travels inside the signed token.
			sendMail(ctx, s.mailer, s.logger, CampaignEmailWillChange, []string{user.Email}, nil, map[string]string{
				"new_email_address": newEmail,
			})
			s.sendVerificationEmail(ctx, user.ID, newEmail, newEmail)
		}
	}
	return nil
}

// RequestPasswordReset emails a reset link when the address belongs to a
// verified account. It reports success either way; the caller learns nothing
// about whether the email exists.
func (s *UserService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, utils.NormalizeEmail(email))
	if err != nil {
		return err
	}
	if user == nil || !user.IsVerified || !user.IsActive {
		return nil
	}

	token, err := s.codec.Issue(user.ID, PurposePasswordReset, "", s.config.PasswordResetTTL)
	if err != nil {
		return err
	}
	link := fmt.Sprintf("%s/users/%s/reset-password/%s", s.config.ServiceBaseURL, user.ID, token)
	sendMail(ctx, s.mailer, s.logger, CampaignPasswordReset, []string{user.Email}, nil, map[string]string{
		"reset_link": link,
	})
	return nil
}

// ResetPassword completes the dedicated reset flow. The signed token stands
// in for current-password proof here; the two mechanisms are never combined.
func (s *UserService) ResetPassword(ctx context.Context, userID uuid.UUID, token string, newPassword string) error {
	if newPassword == "" {
		return ErrInvalidInput
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrInvalidToken
	}
	if valid, _ := s.codec.Verify(token, user.ID, PurposePasswordReset); !valid {
		return ErrInvalidToken
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	user.PasswordHash = &hash
	if err := s.users.Update(ctx, user); err != nil {
		return err
	}
	if err := s.sessions.RevokeAllByUser(ctx, user.ID); err != nil {
		return err
	}
	logSecurity(ctx, s.securityLogs, s.logger, &user.ID, nil, entity.PasswordReset, map[string]any{"source": "reset_token"})
	return nil
}

// VerifyEmail marks the account verified, applying a pending email change if
// the token carries one. The verified user is returned so the handler can
// pick the right login page to redirect to.
func (s *UserService) VerifyEmail(ctx context.Context, userID uuid.UUID, token string) (*entity.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidToken
	}
	valid, pendingEmail := s.codec.Verify(token, user.ID, PurposeEmailVerify)
	if !valid {
		return nil, ErrInvalidToken
	}

	if pendingEmail != "" {
		user.Email = pendingEmail
		user.Username = pendingEmail
		user.IsVerified = true
		if err := s.users.Update(ctx, user); err != nil {
			// The pending address was claimed by another account since the
			// change was requested. Report it like a bad token so the link
			// leaks nothing about the address.
			if isDuplicateKey(err) {
				return nil, ErrInvalidToken
			}
			return nil, err
		}
	} else {
		if err := s.users.MarkVerified(ctx, user.ID); err != nil {
			return nil, err
		}
		user.IsVerified = true
	}
	logSecurity(ctx, s.securityLogs, s.logger, &user.ID, nil, entity.EmailVerified, nil)
	return user, nil
}

// Anonymize scrubs personal data instead of deleting the row, keeping
// referential history intact. Factors, bypass tokens and invitations cascade
// away with their owner; sessions are revoked. The last admin of a school
// that still has other teachers cannot leave.
func (s *UserService) Anonymize(ctx context.Context, user *entity.User) error {
	if user.IsSchoolAdmin() {
		schoolID := *user.Teacher.SchoolID
		admins, err := s.teachers.CountAdminsBySchool(ctx, schoolID)
		if err != nil {
			return err
		}
		total, err := s.teachers.CountBySchool(ctx, schoolID)
		if err != nil {
			return err
		}
		if admins == 1 && total > 1 {
			return ErrLastAdminInSchool
		}
	}

	user.Email = ""
	user.Username = user.ID.String()
	user.FirstName = ""
	user.LastName = ""
	user.IsActive = false
	user.IsVerified = false
	if err := s.users.Update(ctx, user); err != nil {
		return err
	}
	if err := s.sessions.RevokeAllByUser(ctx, user.ID); err != nil {
		return err
	}
	logSecurity(ctx, s.securityLogs, s.logger, &user.ID, nil, entity.UserAnonymized, nil)
	return nil
}

func (s *UserService) GetByID(ctx context.Context, userID uuid.UUID) (*entity.User, error) {
	return s.users.FindByID(ctx, userID)
}

// sendVerificationEmail issues an email-verify token for the user. The
// pendingEmail secondary payload is set on email-change flows and empty on
// first registration.
func (s *UserService) sendVerificationEmail(ctx context.Context, userID uuid.UUID, toAddress string, pendingEmail string) {
	token, err := s.codec.Issue(userID, PurposeEmailVerify, pendingEmail, s.config.EmailVerifyTTL)
	if err != nil {
		if s.logger != nil {
			s.logger.WithError(err).Warn("issue verification token failed")
		}
		return
	}
	link := fmt.Sprintf("%s/users/%s/verify-email/%s", s.config.ServiceBaseURL, userID, token)
	sendMail(ctx, s.mailer, s.logger, CampaignVerifyEmail, []string{toAddress}, nil, map[string]string{
		"verification_link": link,
	})
}
