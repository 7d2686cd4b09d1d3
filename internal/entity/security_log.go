package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type SecurityAction string

const (
	LoginSuccess       SecurityAction = "login_success"
	LoginFailed        SecurityAction = "login_failed"
	Logout             SecurityAction = "logout"
	PasswordReset      SecurityAction = "password_reset"
	EmailVerified      SecurityAction = "email_verified"
	OtpFailed          SecurityAction = "otp_failed"
	AuthFactorEnabled  SecurityAction = "auth_factor_enabled"
	AuthFactorDisabled SecurityAction = "auth_factor_disabled"
	BypassTokenUsed    SecurityAction = "bypass_token_used"
	InvitationAccepted SecurityAction = "invitation_accepted"
	InvitationRejected SecurityAction = "invitation_rejected"
	UserAnonymized     SecurityAction = "user_anonymized"
	SessionRevoked     SecurityAction = "session_revoked"
)

type SecurityLog struct {
	ID uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`

	UserID *uuid.UUID `gorm:"type:uuid;index"`
	User   *User      `gorm:"constraint:OnDelete:SET NULL"`

	IPAddress *string        `gorm:"type:varchar(45)"`
	Action    SecurityAction `gorm:"type:varchar(32);not null"`

	Metadata datatypes.JSON

	CreatedAt time.Time
}
