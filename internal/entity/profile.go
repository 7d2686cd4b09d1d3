package entity

import (
	"time"

	"github.com/google/uuid"
)

type Teacher struct {
	ID     uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null"`
	User   *User     `gorm:"constraint:OnDelete:CASCADE"`

	SchoolID *uuid.UUID `gorm:"type:uuid;index"`
	School   *School    `gorm:"constraint:OnDelete:SET NULL"`

	IsAdmin bool `gorm:"default:false"`

	CreatedAt time.Time
}

type Student struct {
	ID     uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null"`
	User   *User     `gorm:"constraint:OnDelete:CASCADE"`

	CreatedAt time.Time
}

type School struct {
	ID   uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name string    `gorm:"type:varchar(200);uniqueIndex;not null"`

	CreatedAt time.Time
	UpdatedAt time.Time
}
