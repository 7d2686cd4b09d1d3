package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"classforge/internal/entity"
	"classforge/internal/utils"

	"github.com/google/uuid"
)

type invitationTestEnv struct {
	invitations *fakeInvitationRepo
	users       *fakeUserRepo
	teachers    *fakeTeacherRepo
	schools     *fakeSchoolRepo
	mailer      *fakeMailer
	clock       *fakeClock
	svc         *InvitationService
	school      *entity.School
	admin       *entity.User
}

func newInvitationTestEnv(t *testing.T) *invitationTestEnv {
	t.Helper()
	users := newFakeUserRepo()
	teachers := newFakeTeacherRepo(users)
	invitations := newFakeInvitationRepo()
	schools := newFakeSchoolRepo()
	mailer := &fakeMailer{}
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}

	svc := NewInvitationService(
		invitations, users, teachers, schools,
		newFakeSessionRepo(), &fakeSecurityLogRepo{},
		mailer, fakeHasher{}, clock, newTestLogger(),
		Config{ServiceBaseURL: "https://classforge.example.com"},
	)

	school := &entity.School{Name: "Hillside Primary"}
	if err := schools.Create(context.Background(), school); err != nil {
		t.Fatalf("create school: %v", err)
	}

	env := &invitationTestEnv{
		invitations: invitations,
		users:       users,
		teachers:    teachers,
		schools:     schools,
		mailer:      mailer,
		clock:       clock,
		svc:         svc,
		school:      school,
	}
	env.admin = env.createTeacher(t, "admin@example.com", &school.ID, true)
	return env
}

func (e *invitationTestEnv) createTeacher(t *testing.T, email string, schoolID *uuid.UUID, isAdmin bool) *entity.User {
	t.Helper()
	hash := "hashed:password"
	user := &entity.User{
		Email:        email,
		Username:     email,
		PasswordHash: &hash,
		IsActive:     true,
		IsVerified:   true,
	}
	if err := e.users.Create(context.Background(), user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	teacher := &entity.Teacher{UserID: user.ID, SchoolID: schoolID, IsAdmin: isAdmin}
	if err := e.teachers.Create(context.Background(), teacher); err != nil {
		t.Fatalf("create teacher: %v", err)
	}
	user.Teacher = teacher
	return user
}

func (e *invitationTestEnv) invite(t *testing.T, email string) *InvitationCreation {
	t.Helper()
	creation, err := e.svc.Create(context.Background(), e.admin, InvitationInput{
		FirstName: "Invited",
		LastName:  "Teacher",
		Email:     email,
	})
	if err != nil {
		t.Fatalf("create invitation: %v", err)
	}
	return creation
}

func TestInvitationCreateStoresHashAndExpiry(t *testing.T) {
	env := newInvitationTestEnv(t)
	creation := env.invite(t, "New.Teacher@Example.com")

	invitation := creation.Invitation
	if invitation.InvitedEmail != "new.teacher@example.com" {
		t.Fatalf("email not normalized: %q", invitation.InvitedEmail)
	}
	if invitation.TokenHash == creation.Token {
		t.Fatalf("plaintext token stored")
	}
	if !utils.CheckToken(creation.Token, invitation.TokenHash) {
		t.Fatalf("stored hash does not match issued token")
	}

	wantExpiry := env.clock.Now().Add(30 * 24 * time.Hour)
	if !invitation.Expiry.Equal(wantExpiry) {
		t.Fatalf("expiry = %v, want %v", invitation.Expiry, wantExpiry)
	}

	if len(env.mailer.sent) != 1 || env.mailer.sent[0].CampaignID != CampaignInviteTeacher {
		t.Fatalf("invite email not sent")
	}
}

func TestInvitationEmailCarriesAcceptanceLink(t *testing.T) {
	env := newInvitationTestEnv(t)
	creation := env.invite(t, "linked@example.com")

	if len(env.mailer.sent) != 1 {
		t.Fatalf("sent %d emails, want 1", len(env.mailer.sent))
	}
	mail := env.mailer.sent[0]
	link := mail.Personalization["accept_link"]
	if link == "" {
		t.Fatalf("invite email has no accept_link: %v", mail.Personalization)
	}
	// The link is the invitee's only path to the token: it must carry both
	// the invitation id and the one-time plaintext token.
	if !strings.Contains(link, creation.Invitation.ID.String()) {
		t.Fatalf("accept link %q missing invitation id %s", link, creation.Invitation.ID)
	}
	if !strings.Contains(link, creation.Token) {
		t.Fatalf("accept link %q missing the issued token", link)
	}
	if mail.Personalization["school_name"] != "Hillside Primary" {
		t.Fatalf("school name missing from invite email")
	}
}

func TestInvitationCreateRequiresSchoolAdmin(t *testing.T) {
	env := newInvitationTestEnv(t)
	plain := env.createTeacher(t, "plain@example.com", &env.school.ID, false)

	_, err := env.svc.Create(context.Background(), plain, InvitationInput{
		FirstName: "A", LastName: "B", Email: "x@example.com",
	})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
}

func TestInvitationTokenBoundToRow(t *testing.T) {
	env := newInvitationTestEnv(t)
	first := env.invite(t, "first@example.com")
	second := env.invite(t, "second@example.com")

	err := env.svc.Accept(context.Background(), first.Invitation.ID, second.Token, nil)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}

	// The row survives a failed attempt.
	stored, findErr := env.invitations.FindByID(context.Background(), first.Invitation.ID)
	if findErr != nil || stored == nil {
		t.Fatalf("invitation consumed by rejected token")
	}
}

func TestInvitationExpiryBeatsTokenCheck(t *testing.T) {
	env := newInvitationTestEnv(t)
	creation := env.invite(t, "late@example.com")

	env.clock.Advance(30*24*time.Hour + time.Minute)

	if err := env.svc.Accept(context.Background(), creation.Invitation.ID, creation.Token, nil); !errors.Is(err, ErrGone) {
		t.Fatalf("accept err = %v, want ErrGone", err)
	}
	if err := env.svc.Accept(context.Background(), creation.Invitation.ID, "wrong-token", nil); !errors.Is(err, ErrGone) {
		t.Fatalf("expired invitation leaked token validity: err = %v", err)
	}
	if err := env.svc.Reject(context.Background(), creation.Invitation.ID, creation.Token); !errors.Is(err, ErrGone) {
		t.Fatalf("reject err = %v, want ErrGone", err)
	}
}

func TestInvitationRefreshReissuesToken(t *testing.T) {
	env := newInvitationTestEnv(t)
	creation := env.invite(t, "refresh@example.com")
	env.clock.Advance(20 * 24 * time.Hour)

	refreshed, err := env.svc.Refresh(context.Background(), env.admin, creation.Invitation.ID)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if refreshed.Token == creation.Token {
		t.Fatalf("refresh kept the old token")
	}
	wantExpiry := env.clock.Now().Add(30 * 24 * time.Hour)
	if !refreshed.Invitation.Expiry.Equal(wantExpiry) {
		t.Fatalf("expiry not reset")
	}

	if err := env.svc.Accept(context.Background(), creation.Invitation.ID, creation.Token, nil); !errors.Is(err, ErrForbidden) {
		t.Fatalf("old token still accepted after refresh: err = %v", err)
	}
}

func TestInvitationAcceptCreatesNewTeacher(t *testing.T) {
	env := newInvitationTestEnv(t)
	creation := env.invite(t, "new@example.com")

	err := env.svc.Accept(context.Background(), creation.Invitation.ID, creation.Token, &NewTeacherInput{
		FirstName: "New",
		LastName:  "Teacher",
		Password:  "long-enough-password",
	})
	if err != nil {
		t.Fatalf("accept: %v", err)
	}

	user, err := env.users.FindByEmail(context.Background(), "new@example.com")
	if err != nil || user == nil {
		t.Fatalf("account not created")
	}
	if !user.IsVerified {
		t.Fatalf("invited account should be pre-verified")
	}
	teacher, err := env.teachers.FindByUserID(context.Background(), user.ID)
	if err != nil || teacher == nil {
		t.Fatalf("teacher profile not created")
	}
	if teacher.SchoolID == nil || *teacher.SchoolID != env.school.ID {
		t.Fatalf("teacher not joined to the inviting school")
	}

	// The invitation is consumed; a second accept finds nothing.
	err = env.svc.Accept(context.Background(), creation.Invitation.ID, creation.Token, nil)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("second accept err = %v, want ErrNotFound", err)
	}
}

func TestInvitationAcceptPromotesExistingTeacher(t *testing.T) {
	env := newInvitationTestEnv(t)
	existing := env.createTeacher(t, "existing@example.com", nil, false)
	creation := env.invite(t, "existing@example.com")

	if err := env.svc.Accept(context.Background(), creation.Invitation.ID, creation.Token, nil); err != nil {
		t.Fatalf("accept: %v", err)
	}

	teacher, err := env.teachers.FindByUserID(context.Background(), existing.ID)
	if err != nil || teacher == nil {
		t.Fatalf("teacher missing")
	}
	if teacher.SchoolID == nil || *teacher.SchoolID != env.school.ID {
		t.Fatalf("teacher not promoted into school")
	}
}

func TestInvitationAcceptExistingAccountWithNewFieldsStaysSilent(t *testing.T) {
	env := newInvitationTestEnv(t)
	env.createTeacher(t, "taken@example.com", nil, false)
	creation := env.invite(t, "taken@example.com")

	// Supplying new-account fields for a taken email must look exactly like
	// success, or the endpoint confirms the email is registered.
	err := env.svc.Accept(context.Background(), creation.Invitation.ID, creation.Token, &NewTeacherInput{
		FirstName: "X", LastName: "Y", Password: "irrelevant-password",
	})
	if err != nil {
		t.Fatalf("accept leaked account existence: %v", err)
	}

	stored, err := env.invitations.FindByID(context.Background(), creation.Invitation.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if stored != nil {
		t.Fatalf("invitation not consumed")
	}
}

func TestInvitationAcceptRejectsConflictingAccounts(t *testing.T) {
	env := newInvitationTestEnv(t)

	hash := "hashed:password"
	student := &entity.User{
		Email: "student@example.com", Username: "student@example.com",
		PasswordHash: &hash, IsActive: true, IsVerified: true,
	}
	if err := env.users.Create(context.Background(), student); err != nil {
		t.Fatalf("create student user: %v", err)
	}
	studentCreation := env.invite(t, "student@example.com")
	// FindByEmail yields a user with no teacher profile.
	if err := env.svc.Accept(context.Background(), studentCreation.Invitation.ID, studentCreation.Token, nil); !errors.Is(err, ErrNonTeacherAccount) {
		t.Fatalf("err = %v, want ErrNonTeacherAccount", err)
	}

	otherSchool := &entity.School{Name: "Riverside Secondary"}
	if err := env.schools.Create(context.Background(), otherSchool); err != nil {
		t.Fatalf("create school: %v", err)
	}
	env.createTeacher(t, "affiliated@example.com", &otherSchool.ID, false)
	affiliatedCreation := env.invite(t, "affiliated@example.com")
	if err := env.svc.Accept(context.Background(), affiliatedCreation.Invitation.ID, affiliatedCreation.Token, nil); !errors.Is(err, ErrAlreadyInSchool) {
		t.Fatalf("err = %v, want ErrAlreadyInSchool", err)
	}
}

func TestInvitationRejectNotifiesSchoolAdmins(t *testing.T) {
	env := newInvitationTestEnv(t)
	otherAdmin := env.createTeacher(t, "other.admin@example.com", &env.school.ID, true)
	env.createTeacher(t, "plain@example.com", &env.school.ID, false)

	creation := env.invite(t, "declined@example.com")
	env.mailer.sent = nil

	if err := env.svc.Reject(context.Background(), creation.Invitation.ID, creation.Token); err != nil {
		t.Fatalf("reject: %v", err)
	}

	stored, err := env.invitations.FindByID(context.Background(), creation.Invitation.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if stored != nil {
		t.Fatalf("invitation not deleted")
	}

	if len(env.mailer.sent) != 1 {
		t.Fatalf("sent %d mails, want 1", len(env.mailer.sent))
	}
	mail := env.mailer.sent[0]
	if mail.CampaignID != CampaignInvitationRejected {
		t.Fatalf("campaign = %d, want %d", mail.CampaignID, CampaignInvitationRejected)
	}
	if len(mail.To) != 1 || mail.To[0] != "admin@example.com" {
		t.Fatalf("to = %v, want the inviter", mail.To)
	}
	if len(mail.Cc) != 1 || mail.Cc[0] != otherAdmin.Email {
		t.Fatalf("cc = %v, want the other school admins", mail.Cc)
	}
	if mail.Personalization["invited_teacher_email"] != "declined@example.com" {
		t.Fatalf("personalization missing invited email")
	}
}

func TestInvitationManagementScopedToOwningSchool(t *testing.T) {
	env := newInvitationTestEnv(t)
	creation := env.invite(t, "managed@example.com")

	otherSchool := &entity.School{Name: "Riverside Secondary"}
	if err := env.schools.Create(context.Background(), otherSchool); err != nil {
		t.Fatalf("create school: %v", err)
	}
	foreignAdmin := env.createTeacher(t, "foreign.admin@example.com", &otherSchool.ID, true)

	if _, err := env.svc.Refresh(context.Background(), foreignAdmin, creation.Invitation.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("refresh err = %v, want ErrNotFound", err)
	}
	if err := env.svc.Delete(context.Background(), foreignAdmin, creation.Invitation.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("delete err = %v, want ErrNotFound", err)
	}

	listed, err := env.svc.List(context.Background(), foreignAdmin)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listed) != 0 {
		t.Fatalf("foreign admin sees %d invitations", len(listed))
	}
}

func TestInvitationExistingUserGetsDifferentInviteEmail(t *testing.T) {
	env := newInvitationTestEnv(t)
	env.createTeacher(t, "known@example.com", nil, false)

	env.invite(t, "known@example.com")
	if len(env.mailer.sent) != 1 || env.mailer.sent[0].CampaignID != CampaignInviteTeacherExistingUser {
		t.Fatalf("existing-user invite campaign not used")
	}
}
