package service

import (
	"context"
	"io"
	"time"

	"classforge/internal/entity"
	"classforge/internal/utils"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// In-memory fakes for the repository interfaces, shared across the service
// tests in this package.

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

type fakeHasher struct{}

func (fakeHasher) Hash(password string) (string, error) {
	return "hashed:" + password, nil
}

func (fakeHasher) Verify(hash string, password string) bool {
	return hash == "hashed:"+password
}

type sentMail struct {
	CampaignID      int
	To              []string
	Cc              []string
	Personalization map[string]string
}

type fakeMailer struct {
	sent []sentMail
}

func (m *fakeMailer) Send(_ context.Context, campaignID int, to []string, cc []string, personalization map[string]string) error {
	m.sent = append(m.sent, sentMail{CampaignID: campaignID, To: to, Cc: cc, Personalization: personalization})
	return nil
}

type fakeUserRepo struct {
	users map[uuid.UUID]*entity.User
	// teachers mirrors the Preload("Teacher") the real repository does; set
	// by newFakeTeacherRepo.
	teachers *fakeTeacherRepo
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]*entity.User)}
}

func (r *fakeUserRepo) withProfile(user *entity.User) *entity.User {
	copied := *user
	copied.Teacher = nil
	if r.teachers != nil {
		for _, teacher := range r.teachers.teachers {
			if teacher.UserID == user.ID {
				teacherCopy := *teacher
				copied.Teacher = &teacherCopy
				break
			}
		}
	}
	return &copied
}

func (r *fakeUserRepo) Create(_ context.Context, user *entity.User) error {
	for _, existing := range r.users {
		if existing.Username == user.Username {
			return gorm.ErrDuplicatedKey
		}
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *fakeUserRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	return r.withProfile(user), nil
}

func (r *fakeUserRepo) FindByEmail(_ context.Context, email string) (*entity.User, error) {
	for _, user := range r.users {
		if user.Email != "" && utils.NormalizeEmail(user.Email) == utils.NormalizeEmail(email) {
			return r.withProfile(user), nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) Update(_ context.Context, user *entity.User) error {
	for _, existing := range r.users {
		if existing.ID != user.ID && existing.Username == user.Username {
			return gorm.ErrDuplicatedKey
		}
	}
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *fakeUserRepo) MarkVerified(_ context.Context, userID uuid.UUID) error {
	if user, ok := r.users[userID]; ok {
		user.IsVerified = true
	}
	return nil
}

func (r *fakeUserRepo) TouchLastLogin(_ context.Context, userID uuid.UUID) error {
	if user, ok := r.users[userID]; ok {
		now := time.Now()
		user.LastLoginAt = &now
	}
	return nil
}

type fakeTeacherRepo struct {
	teachers map[uuid.UUID]*entity.Teacher
	users    *fakeUserRepo
}

func newFakeTeacherRepo(users *fakeUserRepo) *fakeTeacherRepo {
	repo := &fakeTeacherRepo{teachers: make(map[uuid.UUID]*entity.Teacher), users: users}
	users.teachers = repo
	return repo
}

func (r *fakeTeacherRepo) Create(_ context.Context, teacher *entity.Teacher) error {
	if teacher.ID == uuid.Nil {
		teacher.ID = uuid.New()
	}
	copied := *teacher
	r.teachers[teacher.ID] = &copied
	return nil
}

func (r *fakeTeacherRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Teacher, error) {
	teacher, ok := r.teachers[id]
	if !ok {
		return nil, nil
	}
	copied := *teacher
	if user, ok := r.users.users[teacher.UserID]; ok {
		userCopy := *user
		copied.User = &userCopy
	}
	return &copied, nil
}

func (r *fakeTeacherRepo) FindByUserID(_ context.Context, userID uuid.UUID) (*entity.Teacher, error) {
	for _, teacher := range r.teachers {
		if teacher.UserID == userID {
			copied := *teacher
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeTeacherRepo) Update(_ context.Context, teacher *entity.Teacher) error {
	copied := *teacher
	r.teachers[teacher.ID] = &copied
	return nil
}

func (r *fakeTeacherRepo) ListAdminUsersBySchool(_ context.Context, schoolID uuid.UUID) ([]entity.User, error) {
	var admins []entity.User
	for _, teacher := range r.teachers {
		if teacher.SchoolID == nil || *teacher.SchoolID != schoolID || !teacher.IsAdmin {
			continue
		}
		if user, ok := r.users.users[teacher.UserID]; ok {
			admins = append(admins, *user)
		}
	}
	return admins, nil
}

func (r *fakeTeacherRepo) CountAdminsBySchool(_ context.Context, schoolID uuid.UUID) (int64, error) {
	var count int64
	for _, teacher := range r.teachers {
		if teacher.SchoolID != nil && *teacher.SchoolID == schoolID && teacher.IsAdmin {
			count++
		}
	}
	return count, nil
}

func (r *fakeTeacherRepo) CountBySchool(_ context.Context, schoolID uuid.UUID) (int64, error) {
	var count int64
	for _, teacher := range r.teachers {
		if teacher.SchoolID != nil && *teacher.SchoolID == schoolID {
			count++
		}
	}
	return count, nil
}

type fakeAuthFactorRepo struct {
	factors  map[uuid.UUID]*entity.AuthFactor
	teachers *fakeTeacherRepo
}

func newFakeAuthFactorRepo(teachers *fakeTeacherRepo) *fakeAuthFactorRepo {
	return &fakeAuthFactorRepo{factors: make(map[uuid.UUID]*entity.AuthFactor), teachers: teachers}
}

func (r *fakeAuthFactorRepo) Create(_ context.Context, factor *entity.AuthFactor) error {
	for _, existing := range r.factors {
		if existing.UserID == factor.UserID && existing.Type == factor.Type {
			return gorm.ErrDuplicatedKey
		}
	}
	if factor.ID == uuid.Nil {
		factor.ID = uuid.New()
	}
	copied := *factor
	r.factors[factor.ID] = &copied
	return nil
}

func (r *fakeAuthFactorRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.AuthFactor, error) {
	factor, ok := r.factors[id]
	if !ok {
		return nil, nil
	}
	copied := *factor
	return &copied, nil
}

func (r *fakeAuthFactorRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]entity.AuthFactor, error) {
	var factors []entity.AuthFactor
	for _, factor := range r.factors {
		if factor.UserID == userID {
			factors = append(factors, *factor)
		}
	}
	return factors, nil
}

func (r *fakeAuthFactorRepo) ListBySchool(ctx context.Context, schoolID uuid.UUID) ([]entity.AuthFactor, error) {
	var factors []entity.AuthFactor
	for _, factor := range r.factors {
		teacher, err := r.teachers.FindByUserID(ctx, factor.UserID)
		if err != nil {
			return nil, err
		}
		if teacher != nil && teacher.SchoolID != nil && *teacher.SchoolID == schoolID {
			factors = append(factors, *factor)
		}
	}
	return factors, nil
}

func (r *fakeAuthFactorRepo) ExistsByUserAndType(_ context.Context, userID uuid.UUID, factorType entity.AuthFactorType) (bool, error) {
	for _, factor := range r.factors {
		if factor.UserID == userID && factor.Type == factorType {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeAuthFactorRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.factors, id)
	return nil
}

type fakeBypassTokenRepo struct {
	tokens map[uuid.UUID]*entity.OtpBypassToken
}

func newFakeBypassTokenRepo() *fakeBypassTokenRepo {
	return &fakeBypassTokenRepo{tokens: make(map[uuid.UUID]*entity.OtpBypassToken)}
}

func (r *fakeBypassTokenRepo) ReplaceForUser(_ context.Context, userID uuid.UUID, tokenHashes []string) error {
	for id, token := range r.tokens {
		if token.UserID == userID {
			delete(r.tokens, id)
		}
	}
	for _, hash := range tokenHashes {
		id := uuid.New()
		r.tokens[id] = &entity.OtpBypassToken{ID: id, UserID: userID, TokenHash: hash}
	}
	return nil
}

func (r *fakeBypassTokenRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]entity.OtpBypassToken, error) {
	var tokens []entity.OtpBypassToken
	for _, token := range r.tokens {
		if token.UserID == userID {
			tokens = append(tokens, *token)
		}
	}
	return tokens, nil
}

func (r *fakeBypassTokenRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.tokens, id)
	return nil
}

type fakeInvitationRepo struct {
	invitations map[uuid.UUID]*entity.SchoolTeacherInvitation
}

func newFakeInvitationRepo() *fakeInvitationRepo {
	return &fakeInvitationRepo{invitations: make(map[uuid.UUID]*entity.SchoolTeacherInvitation)}
}

func (r *fakeInvitationRepo) Create(_ context.Context, invitation *entity.SchoolTeacherInvitation) error {
	if invitation.ID == uuid.Nil {
		invitation.ID = uuid.New()
	}
	copied := *invitation
	r.invitations[invitation.ID] = &copied
	return nil
}

func (r *fakeInvitationRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.SchoolTeacherInvitation, error) {
	invitation, ok := r.invitations[id]
	if !ok {
		return nil, nil
	}
	copied := *invitation
	return &copied, nil
}

func (r *fakeInvitationRepo) ListBySchool(_ context.Context, schoolID uuid.UUID) ([]entity.SchoolTeacherInvitation, error) {
	var invitations []entity.SchoolTeacherInvitation
	for _, invitation := range r.invitations {
		if invitation.SchoolID == schoolID {
			invitations = append(invitations, *invitation)
		}
	}
	return invitations, nil
}

func (r *fakeInvitationRepo) Update(_ context.Context, invitation *entity.SchoolTeacherInvitation) error {
	copied := *invitation
	r.invitations[invitation.ID] = &copied
	return nil
}

func (r *fakeInvitationRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.invitations, id)
	return nil
}

type fakeSchoolRepo struct {
	schools map[uuid.UUID]*entity.School
}

func newFakeSchoolRepo() *fakeSchoolRepo {
	return &fakeSchoolRepo{schools: make(map[uuid.UUID]*entity.School)}
}

func (r *fakeSchoolRepo) Create(_ context.Context, school *entity.School) error {
	if school.ID == uuid.Nil {
		school.ID = uuid.New()
	}
	copied := *school
	r.schools[school.ID] = &copied
	return nil
}

func (r *fakeSchoolRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.School, error) {
	school, ok := r.schools[id]
	if !ok {
		return nil, nil
	}
	copied := *school
	return &copied, nil
}

type fakeSessionRepo struct {
	sessions map[uuid.UUID]*entity.Session
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[uuid.UUID]*entity.Session)}
}

func (r *fakeSessionRepo) Create(_ context.Context, session *entity.Session) error {
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	copied := *session
	r.sessions[session.ID] = &copied
	return nil
}

func (r *fakeSessionRepo) FindByTokenHash(_ context.Context, tokenHash string) (*entity.Session, error) {
	for _, session := range r.sessions {
		if session.TokenHash == tokenHash && session.RevokedAt == nil && session.ExpiresAt.After(time.Now()) {
			copied := *session
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeSessionRepo) RotateToken(_ context.Context, id uuid.UUID, tokenHash string, expiresAt time.Time) error {
	if session, ok := r.sessions[id]; ok {
		session.TokenHash = tokenHash
		session.ExpiresAt = expiresAt
	}
	return nil
}

func (r *fakeSessionRepo) Revoke(_ context.Context, id uuid.UUID) error {
	if session, ok := r.sessions[id]; ok {
		now := time.Now()
		session.RevokedAt = &now
	}
	return nil
}

func (r *fakeSessionRepo) RevokeAllByUser(_ context.Context, userID uuid.UUID) error {
	for _, session := range r.sessions {
		if session.UserID == userID && session.RevokedAt == nil {
			now := time.Now()
			session.RevokedAt = &now
		}
	}
	return nil
}

func (r *fakeSessionRepo) activeCount(userID uuid.UUID) int {
	count := 0
	for _, session := range r.sessions {
		if session.UserID == userID && session.RevokedAt == nil {
			count++
		}
	}
	return count
}

type fakeSecurityLogRepo struct {
	logs []entity.SecurityLog
}

func (r *fakeSecurityLogRepo) Log(_ context.Context, log *entity.SecurityLog) error {
	r.logs = append(r.logs, *log)
	return nil
}
