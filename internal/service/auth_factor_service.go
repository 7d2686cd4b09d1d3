package service

import (
	"context"

	"classforge/internal/entity"
	"classforge/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// EnableFactorResult carries the persisted factor together with the one-time
// plaintext recovery tokens issued alongside it. The plaintexts exist only in
// this value; they are not recoverable afterwards.
type EnableFactorResult struct {
	Factor       *entity.AuthFactor
	BypassTokens []string
}

type AuthFactorService struct {
	factors      repository.AuthFactorRepository
	teachers     repository.TeacherRepository
	users        repository.UserRepository
	vault        *BypassVault
	otpProvider  *TOTPProvider
	securityLogs repository.SecurityLogRepository
	logger       *logrus.Logger
}

func NewAuthFactorService(
	factors repository.AuthFactorRepository,
	teachers repository.TeacherRepository,
	users repository.UserRepository,
	vault *BypassVault,
	otpProvider *TOTPProvider,
	securityLogs repository.SecurityLogRepository,
	logger *logrus.Logger,
) *AuthFactorService {
	return &AuthFactorService{
		factors:      factors,
		teachers:     teachers,
		users:        users,
		vault:        vault,
		otpProvider:  otpProvider,
		securityLogs: securityLogs,
		logger:       logger,
	}
}

// ProvisionOtp lazily generates the user's shared secret, persists it and
// returns the otpauth:// URI. Idempotent while the secret is unprovisioned;
// refused once an OTP factor is enabled, so the secret is never revealed
// again after enrollment completes.
func (s *AuthFactorService) ProvisionOtp(ctx context.Context, user *entity.User) (string, error) {
	enabled, err := s.factors.ExistsByUserAndType(ctx, user.ID, entity.AuthFactorOtp)
	if err != nil {
		return "", err
	}
	if enabled {
		return "", ErrAlreadyExists
	}

	if user.OtpSecret == nil {
		secret, err := s.otpProvider.GenerateSecret()
		if err != nil {
			return "", err
		}
		user.OtpSecret = &secret
		if err := s.users.Update(ctx, user); err != nil {
			return "", err
		}
	}
	return s.otpProvider.ProvisioningURI(user.Email, *user.OtpSecret), nil
}

// Enable registers an auth factor for the user. OTP is the only type that
// demands proof of possession: a currently valid code must accompany the
// request. Enabling OTP also issues a fresh batch of bypass tokens as the
// recovery path.
func (s *AuthFactorService) Enable(
	ctx context.Context,
	user *entity.User,
	factorType entity.AuthFactorType,
	otpCode string,
) (*EnableFactorResult, error) {
	if factorType != entity.AuthFactorOtp {
		return nil, ErrInvalidInput
	}

	exists, err := s.factors.ExistsByUserAndType(ctx, user.ID, factorType)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrAlreadyExists
	}

	if factorType == entity.AuthFactorOtp {
		if otpCode == "" {
			return nil, ErrOtpRequired
		}
		if user.OtpSecret == nil || !s.otpProvider.ValidateCode(*user.OtpSecret, otpCode) {
			return nil, ErrInvalidOtp
		}
	}

	factor := &entity.AuthFactor{
		UserID: user.ID,
		Type:   factorType,
	}
	if err := s.factors.Create(ctx, factor); err != nil {
		return nil, err
	}

	result := &EnableFactorResult{Factor: factor}
	if factorType == entity.AuthFactorOtp {
		tokens, err := s.vault.Generate(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		result.BypassTokens = tokens
	}

	logSecurity(ctx, s.securityLogs, s.logger, &user.ID, nil, entity.AuthFactorEnabled, map[string]any{"type": string(factorType)})
	return result, nil
}

// List returns the requester's own factors, or every factor within the
// requester's school when the requester is an admin teacher. Factors of
// other schools are never reachable.
func (s *AuthFactorService) List(ctx context.Context, requester *entity.User) ([]entity.AuthFactor, error) {
	if requester.IsSchoolAdmin() {
		return s.factors.ListBySchool(ctx, *requester.Teacher.SchoolID)
	}
	return s.factors.ListByUser(ctx, requester.ID)
}

// Disable removes a factor. The same visibility rule as List decides which
// factor IDs resolve at all: anything outside the requester's scope is a
// plain not-found.
func (s *AuthFactorService) Disable(ctx context.Context, requester *entity.User, factorID uuid.UUID) error {
	factor, err := s.factors.FindByID(ctx, factorID)
	if err != nil {
		return err
	}
	if factor == nil {
		return ErrNotFound
	}

	visible, err := s.canSee(ctx, requester, factor.UserID)
	if err != nil {
		return err
	}
	if !visible {
		return ErrNotFound
	}

	if err := s.factors.Delete(ctx, factor.ID); err != nil {
		return err
	}
	logSecurity(ctx, s.securityLogs, s.logger, &factor.UserID, nil, entity.AuthFactorDisabled, map[string]any{"type": string(factor.Type)})
	return nil
}

// Exists reports only a boolean; no counts, timestamps or other users' data
// leak through this check.
func (s *AuthFactorService) Exists(ctx context.Context, userID uuid.UUID, factorType entity.AuthFactorType) (bool, error) {
	return s.factors.ExistsByUserAndType(ctx, userID, factorType)
}

// canSee is the single authorization predicate shared by the list and
// disable paths: a user sees their own rows, and a school admin sees rows of
// teachers within the same school.
func (s *AuthFactorService) canSee(ctx context.Context, requester *entity.User, ownerUserID uuid.UUID) (bool, error) {
	if requester.ID == ownerUserID {
		return true, nil
	}
	if !requester.IsSchoolAdmin() {
		return false, nil
	}
	owner, err := s.teachers.FindByUserID(ctx, ownerUserID)
	if err != nil {
		return false, err
	}
	return owner != nil && owner.SchoolID != nil && *owner.SchoolID == *requester.Teacher.SchoolID, nil
}
