package service

import (
	"context"
	"time"

	"golang.org/x/crypto/bcrypt"
)

type Config struct {
	AccessTokenTTL   time.Duration
	RefreshTokenTTL  time.Duration
	EmailVerifyTTL   time.Duration
	PasswordResetTTL time.Duration
	MFATokenTTL      time.Duration

	OtpIssuer string

	// ServiceBaseURL is prefixed onto token links embedded in emails.
	ServiceBaseURL string
	// PageTeacherLogin and PageIndyLogin are the post-verification redirect
	// targets.
	PageTeacherLogin string
	PageIndyLogin    string
}

// Mailer dispatches a templated campaign email. Implementations are
// fire-and-forget from the caller's point of view: services log failures and
// never let them block a state transition that already happened.
type Mailer interface {
	Send(ctx context.Context, campaignID int, to []string, cc []string, personalization map[string]string) error
}

// Campaign identifiers understood by the Mailer.
const (
	CampaignVerifyEmail               = 1
	CampaignPasswordReset             = 2
	CampaignEmailWillChange           = 3
	CampaignInviteTeacher             = 4
	CampaignInviteTeacherExistingUser = 5
	CampaignInvitationRejected        = 6
)

type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(hash string, password string) bool
}

type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (RealClock) Now() time.Time {
	return time.Now()
}

type BcryptPasswordHasher struct {
	Cost int
}

func (h BcryptPasswordHasher) Hash(password string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

func (h BcryptPasswordHasher) Verify(hash string, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
