package repository

import (
	"context"
	"errors"

	"classforge/internal/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SchoolRepository interface {
	Create(ctx context.Context, school *entity.School) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.School, error)
}

type schoolRepository struct {
	db *gorm.DB
}

func NewSchoolRepository(db *gorm.DB) SchoolRepository {
	return &schoolRepository{db: db}
}

func (r *schoolRepository) Create(ctx context.Context, school *entity.School) error {
	return r.db.WithContext(ctx).Create(school).Error
}

func (r *schoolRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.School, error) {
	var school entity.School
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&school).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &school, err
}
