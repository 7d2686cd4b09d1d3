package entity

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`

	// Email is blank once the account has been anonymized. Username mirrors
	// the email unless the account is anonymized.
	Email    string `gorm:"type:varchar(255);index"`
	Username string `gorm:"type:varchar(255);uniqueIndex;not null"`

	FirstName string `gorm:"type:varchar(150)"`
	LastName  string `gorm:"type:varchar(150)"`

	PasswordHash *string `gorm:"type:text"`

	IsActive   bool `gorm:"default:true"`
	IsVerified bool `gorm:"default:false"`

	// OtpSecret stays nil until the user first provisions TOTP.
	OtpSecret *string `gorm:"type:varchar(64)"`

	LastLoginAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time

	Teacher *Teacher
	Student *Student

	AuthFactors     []AuthFactor
	OtpBypassTokens []OtpBypassToken
	Sessions        []Session
}

// Anonymized reports whether the account has been scrubbed of personal data.
// An anonymized user must never be active.
func (u *User) Anonymized() bool {
	return u.Email == ""
}

func (u *User) IsTeacher() bool {
	return u.Teacher != nil
}

func (u *User) IsStudent() bool {
	return u.Student != nil
}

// IsSchoolAdmin reports whether the user is an admin teacher of a school.
func (u *User) IsSchoolAdmin() bool {
	return u.Teacher != nil && u.Teacher.SchoolID != nil && u.Teacher.IsAdmin
}
