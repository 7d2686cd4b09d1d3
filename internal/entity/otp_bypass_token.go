package entity

import (
	"time"

	"github.com/google/uuid"
)

// OtpBypassToken is a single-use recovery credential. Only a hash of the
// 8-character token is stored; the plaintext exists once, at generation time.
type OtpBypassToken struct {
	ID     uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID uuid.UUID `gorm:"type:uuid;not null;index"`
	User   *User     `gorm:"constraint:OnDelete:CASCADE"`

	TokenHash string `gorm:"type:text;not null"`

	CreatedAt time.Time
}
