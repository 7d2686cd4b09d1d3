package entity

import (
	"time"

	"github.com/google/uuid"
)

// SchoolTeacherInvitation invites a teacher (by email) to join a school.
// The acceptance token is stored hashed; the row is deleted on acceptance or
// rejection, and expiry is computed against the wall clock rather than stored
// as a state flag.
type SchoolTeacherInvitation struct {
	ID uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`

	SchoolID uuid.UUID `gorm:"type:uuid;not null;index"`
	School   *School   `gorm:"constraint:OnDelete:CASCADE"`

	FromTeacherID uuid.UUID `gorm:"type:uuid;not null"`
	FromTeacher   *Teacher  `gorm:"constraint:OnDelete:CASCADE"`

	InvitedFirstName string `gorm:"type:varchar(150);not null"`
	InvitedLastName  string `gorm:"type:varchar(150);not null"`
	InvitedEmail     string `gorm:"type:varchar(255);not null"`
	InvitedIsAdmin   bool   `gorm:"default:false"`

	TokenHash string `gorm:"type:text;not null"`

	Expiry time.Time `gorm:"not null"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (i *SchoolTeacherInvitation) IsExpired(now time.Time) bool {
	return now.After(i.Expiry)
}
