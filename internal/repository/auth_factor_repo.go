package repository

import (
	"context"
	"errors"

	"classforge/internal/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AuthFactorRepository interface {
	Create(ctx context.Context, factor *entity.AuthFactor) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.AuthFactor, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]entity.AuthFactor, error)
	ListBySchool(ctx context.Context, schoolID uuid.UUID) ([]entity.AuthFactor, error)
	ExistsByUserAndType(ctx context.Context, userID uuid.UUID, factorType entity.AuthFactorType) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type authFactorRepository struct {
	db *gorm.DB
}

func NewAuthFactorRepository(db *gorm.DB) AuthFactorRepository {
	return &authFactorRepository{db: db}
}

func (r *authFactorRepository) Create(ctx context.Context, factor *entity.AuthFactor) error {
	return r.db.WithContext(ctx).Create(factor).Error
}

func (r *authFactorRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.AuthFactor, error) {
	var factor entity.AuthFactor
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&factor).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &factor, err
}

func (r *authFactorRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]entity.AuthFactor, error) {
	var factors []entity.AuthFactor
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at").
		Find(&factors).Error
	if err != nil {
		return nil, err
	}
	return factors, nil
}

// ListBySchool returns every auth factor belonging to a teacher of the given
// school. Used for admin oversight; callers must have already checked the
// requesting user administers that school.
func (r *authFactorRepository) ListBySchool(ctx context.Context, schoolID uuid.UUID) ([]entity.AuthFactor, error) {
	var factors []entity.AuthFactor
	err := r.db.WithContext(ctx).
		Joins("JOIN teachers ON teachers.user_id = auth_factors.user_id").
		Where("teachers.school_id = ?", schoolID).
		Order("auth_factors.created_at").
		Find(&factors).Error
	if err != nil {
		return nil, err
	}
	return factors, nil
}

func (r *authFactorRepository) ExistsByUserAndType(
	ctx context.Context,
	userID uuid.UUID,
	factorType entity.AuthFactorType,
) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.AuthFactor{}).
		Where("user_id = ? AND type = ?", userID, factorType).
		Count(&count).Error
	return count > 0, err
}

func (r *authFactorRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&entity.AuthFactor{}, "id = ?", id).Error
}
