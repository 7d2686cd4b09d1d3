package config

import (
	"classforge/internal/entity"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func ConnectDB(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		PrepareStmt:    false,
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	err = db.AutoMigrate(
		&entity.School{},
		&entity.User{},
		&entity.Teacher{},
		&entity.Student{},
		&entity.AuthFactor{},
		&entity.OtpBypassToken{},
		&entity.SchoolTeacherInvitation{},
		&entity.Session{},
		&entity.SecurityLog{},
	)
	if err != nil {
		return nil, err
	}
	return db, nil
}
