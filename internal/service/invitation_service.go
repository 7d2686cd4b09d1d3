package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"classforge/internal/entity"
	"classforge/internal/repository"
	"classforge/internal/utils"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	invitationTTL         = 30 * 24 * time.Hour
	invitationTokenLength = 32
)

// InvitationCreation pairs the persisted invitation with its one-time
// plaintext token, which goes into the emailed acceptance link and is never
// recoverable afterwards.
type InvitationCreation struct {
	Invitation *entity.SchoolTeacherInvitation
	Token      string
}

type InvitationInput struct {
	FirstName string
	LastName  string
	Email     string
	IsAdmin   bool
}

// NewTeacherInput holds the account fields an invitee without an existing
// account supplies on acceptance.
type NewTeacherInput struct {
	FirstName string
	LastName  string
	Password  string
}

type InvitationService struct {
	invitations  repository.InvitationRepository
	users        repository.UserRepository
	teachers     repository.TeacherRepository
	schools      repository.SchoolRepository
	sessions     repository.SessionRepository
	securityLogs repository.SecurityLogRepository
	mailer       Mailer
	hasher       PasswordHasher
	clock        Clock
	logger       *logrus.Logger
	config       Config
}

func NewInvitationService(
	invitations repository.InvitationRepository,
	users repository.UserRepository,
	teachers repository.TeacherRepository,
	schools repository.SchoolRepository,
	sessions repository.SessionRepository,
	securityLogs repository.SecurityLogRepository,
	mailer Mailer,
	hasher PasswordHasher,
	clock Clock,
	logger *logrus.Logger,
	config Config,
) *InvitationService {
	return &InvitationService{
		invitations:  invitations,
		users:        users,
		teachers:     teachers,
		schools:      schools,
		sessions:     sessions,
		securityLogs: securityLogs,
		mailer:       mailer,
		hasher:       hasher,
		clock:        clock,
		logger:       logger,
		config:       config,
	}
}

// Create issues an invitation from an admin teacher's school to the given
// email address. The plaintext token is returned once for the emailed link;
// only its hash is stored.
func (s *InvitationService) Create(ctx context.Context, inviter *entity.User, input InvitationInput) (*InvitationCreation, error) {
	if !inviter.IsSchoolAdmin() {
		return nil, ErrForbidden
	}
	email := utils.NormalizeEmail(input.Email)
	if email == "" || input.FirstName == "" || input.LastName == "" {
		return nil, ErrInvalidInput
	}

	token, err := utils.GenerateRandomToken(invitationTokenLength)
	if err != nil {
		return nil, err
	}

	invitation := &entity.SchoolTeacherInvitation{
		SchoolID:         *inviter.Teacher.SchoolID,
		FromTeacherID:    inviter.Teacher.ID,
		InvitedFirstName: input.FirstName,
		InvitedLastName:  input.LastName,
		InvitedEmail:     email,
		InvitedIsAdmin:   input.IsAdmin,
		TokenHash:        utils.HashToken(token),
		Expiry:           s.clock.Now().Add(invitationTTL),
	}
	if err := s.invitations.Create(ctx, invitation); err != nil {
		return nil, err
	}

	s.sendInviteEmail(ctx, invitation, token)
	return &InvitationCreation{Invitation: invitation, Token: token}, nil
}

// Refresh resets the expiry window and reissues the acceptance token. The
// previous token stops resolving as soon as the new hash is stored.
func (s *InvitationService) Refresh(ctx context.Context, requester *entity.User, invitationID uuid.UUID) (*InvitationCreation, error) {
	invitation, err := s.findForAdmin(ctx, requester, invitationID)
	if err != nil {
		return nil, err
	}

	token, err := utils.GenerateRandomToken(invitationTokenLength)
	if err != nil {
		return nil, err
	}
	invitation.TokenHash = utils.HashToken(token)
	invitation.Expiry = s.clock.Now().Add(invitationTTL)
	if err := s.invitations.Update(ctx, invitation); err != nil {
		return nil, err
	}

	s.sendInviteEmail(ctx, invitation, token)
	return &InvitationCreation{Invitation: invitation, Token: token}, nil
}

func (s *InvitationService) List(ctx context.Context, requester *entity.User) ([]entity.SchoolTeacherInvitation, error) {
	if !requester.IsSchoolAdmin() {
		return nil, ErrForbidden
	}
	return s.invitations.ListBySchool(ctx, *requester.Teacher.SchoolID)
}

// Delete lets an admin of the owning school withdraw a pending invitation.
func (s *InvitationService) Delete(ctx context.Context, requester *entity.User, invitationID uuid.UUID) error {
	invitation, err := s.findForAdmin(ctx, requester, invitationID)
	if err != nil {
		return err
	}
	return s.invitations.Delete(ctx, invitation.ID)
}

// Accept terminates the invitation by binding its email to a teacher of the
// inviting school: promoting an unaffiliated existing teacher, or creating a
// new pre-verified account from the supplied fields. The invitation row is
// deleted on success; a second accept finds nothing to resolve.
func (s *InvitationService) Accept(
	ctx context.Context,
	invitationID uuid.UUID,
	token string,
	newAccount *NewTeacherInput,
) error {
	invitation, err := s.invitations.FindByID(ctx, invitationID)
	if err != nil {
		return err
	}
	if invitation == nil {
		return ErrNotFound
	}
	if invitation.IsExpired(s.clock.Now()) {
		return ErrGone
	}
	// The token must match this specific row; a valid token for a different
	// invitation never authorizes this one.
	if !utils.CheckToken(token, invitation.TokenHash) {
		return ErrForbidden
	}

	existing, err := s.users.FindByEmail(ctx, invitation.InvitedEmail)
	if err != nil {
		return err
	}

	if existing != nil && newAccount != nil {
		// The caller believed no account existed and supplied new-account
		// fields, but the email is already taken. Answering with anything
		// other than the success shape would confirm the email is
		// registered, so consume the invitation and report nothing.
		return s.invitations.Delete(ctx, invitation.ID)
	}

	if existing != nil {
		if !existing.IsTeacher() {
			return ErrNonTeacherAccount
		}
		if existing.Teacher.SchoolID != nil {
			return ErrAlreadyInSchool
		}
		existing.Teacher.SchoolID = &invitation.SchoolID
		existing.Teacher.IsAdmin = invitation.InvitedIsAdmin
		if err := s.teachers.Update(ctx, existing.Teacher); err != nil {
			return err
		}
		if err := s.invitations.Delete(ctx, invitation.ID); err != nil {
			return err
		}
		logSecurity(ctx, s.securityLogs, s.logger, &existing.ID, nil, entity.InvitationAccepted, map[string]any{"school_id": invitation.SchoolID.String()})
		return nil
	}

	if newAccount == nil {
		// No account exists for the invited email; the client must collect
		// new-account fields first.
		return ErrNotFound
	}
	if newAccount.Password == "" {
		return ErrInvalidInput
	}

	hash, err := s.hasher.Hash(newAccount.Password)
	if err != nil {
		return err
	}
	user := &entity.User{
		Email:        invitation.InvitedEmail,
		Username:     invitation.InvitedEmail,
		FirstName:    newAccount.FirstName,
		LastName:     newAccount.LastName,
		PasswordHash: &hash,
		IsActive:     true,
		// The acceptance link arrived at the invited address; that already
		// proves email ownership, so skip the separate verification flow.
		IsVerified: true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		// A clashing account surfacing only at insert time must not be
		// distinguishable from success, or the endpoint becomes an email
		// existence oracle.
		if isDuplicateKey(err) {
			return s.invitations.Delete(ctx, invitation.ID)
		}
		return err
	}
	teacher := &entity.Teacher{
		UserID:   user.ID,
		SchoolID: &invitation.SchoolID,
		IsAdmin:  invitation.InvitedIsAdmin,
	}
	if err := s.teachers.Create(ctx, teacher); err != nil {
		return err
	}
	if err := s.invitations.Delete(ctx, invitation.ID); err != nil {
		return err
	}
	logSecurity(ctx, s.securityLogs, s.logger, &user.ID, nil, entity.InvitationAccepted, map[string]any{"school_id": invitation.SchoolID.String(), "new_account": true})
	return nil
}

// Reject deletes the invitation and notifies the inviter, with every other
// admin of the school on cc.
func (s *InvitationService) Reject(ctx context.Context, invitationID uuid.UUID, token string) error {
	invitation, err := s.invitations.FindByID(ctx, invitationID)
	if err != nil {
		return err
	}
	if invitation == nil {
		return ErrNotFound
	}
	if invitation.IsExpired(s.clock.Now()) {
		return ErrGone
	}
	if !utils.CheckToken(token, invitation.TokenHash) {
		return ErrForbidden
	}

	inviter, err := s.teachers.FindByID(ctx, invitation.FromTeacherID)
	if err != nil {
		return err
	}

	if err := s.invitations.Delete(ctx, invitation.ID); err != nil {
		return err
	}
	logSecurity(ctx, s.securityLogs, s.logger, nil, nil, entity.InvitationRejected, map[string]any{"school_id": invitation.SchoolID.String()})

	if inviter == nil || inviter.User == nil {
		return nil
	}
	toAddresses := []string{inviter.User.Email}
	admins, err := s.teachers.ListAdminUsersBySchool(ctx, invitation.SchoolID)
	if err != nil {
		admins = nil
	}
	var ccAddresses []string
	for _, admin := range admins {
		if admin.ID == inviter.UserID {
			continue
		}
		ccAddresses = append(ccAddresses, admin.Email)
	}
	sendMail(ctx, s.mailer, s.logger, CampaignInvitationRejected, toAddresses, ccAddresses, map[string]string{
		"invited_teacher_email":      invitation.InvitedEmail,
		"invited_teacher_first_name": invitation.InvitedFirstName,
		"invited_teacher_last_name":  invitation.InvitedLastName,
	})
	return nil
}

func (s *InvitationService) findForAdmin(ctx context.Context, requester *entity.User, invitationID uuid.UUID) (*entity.SchoolTeacherInvitation, error) {
	if !requester.IsSchoolAdmin() {
		return nil, ErrForbidden
	}
	invitation, err := s.invitations.FindByID(ctx, invitationID)
	if err != nil {
		return nil, err
	}
	if invitation == nil || invitation.SchoolID != *requester.Teacher.SchoolID {
		return nil, ErrNotFound
	}
	return invitation, nil
}

func (s *InvitationService) sendInviteEmail(ctx context.Context, invitation *entity.SchoolTeacherInvitation, token string) {
	campaignID := CampaignInviteTeacher
	existing, err := s.users.FindByEmail(ctx, invitation.InvitedEmail)
	if err == nil && existing != nil {
		campaignID = CampaignInviteTeacherExistingUser
	}

	schoolName := ""
	if school, err := s.schools.FindByID(ctx, invitation.SchoolID); err == nil && school != nil {
		schoolName = school.Name
	}
	acceptLink := fmt.Sprintf("%s/school-teacher-invitations/%s/accept/%s", s.config.ServiceBaseURL, invitation.ID, token)
	sendMail(ctx, s.mailer, s.logger, campaignID, []string{invitation.InvitedEmail}, nil, map[string]string{
		"school_name": schoolName,
		"accept_link": acceptLink,
	})
}

func isDuplicateKey(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
