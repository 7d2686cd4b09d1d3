package entity

import (
	"time"

	"github.com/google/uuid"
)

type AuthFactorType string

const (
	// AuthFactorOtp is currently the only factor type, but the registry is
	// keyed on (user, type) so further types slot in without schema changes.
	AuthFactorOtp AuthFactorType = "otp"
)

type AuthFactor struct {
	ID     uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_auth_factors_user_type"`
	User   *User     `gorm:"constraint:OnDelete:CASCADE"`

	Type AuthFactorType `gorm:"type:varchar(32);not null;uniqueIndex:idx_auth_factors_user_type"`

	CreatedAt time.Time
}
