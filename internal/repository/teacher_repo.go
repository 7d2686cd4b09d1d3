package repository

import (
	"context"
	"errors"

	"classforge/internal/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TeacherRepository interface {
	Create(ctx context.Context, teacher *entity.Teacher) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Teacher, error)
	FindByUserID(ctx context.Context, userID uuid.UUID) (*entity.Teacher, error)
	Update(ctx context.Context, teacher *entity.Teacher) error
	ListAdminUsersBySchool(ctx context.Context, schoolID uuid.UUID) ([]entity.User, error)
	CountAdminsBySchool(ctx context.Context, schoolID uuid.UUID) (int64, error)
	CountBySchool(ctx context.Context, schoolID uuid.UUID) (int64, error)
}

type teacherRepository struct {
	db *gorm.DB
}

func NewTeacherRepository(db *gorm.DB) TeacherRepository {
	return &teacherRepository{db: db}
}

func (r *teacherRepository) Create(ctx context.Context, teacher *entity.Teacher) error {
	return r.db.WithContext(ctx).Create(teacher).Error
}

func (r *teacherRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Teacher, error) {
	var teacher entity.Teacher
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("id = ?", id).
		First(&teacher).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &teacher, err
}

func (r *teacherRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*entity.Teacher, error) {
	var teacher entity.Teacher
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&teacher).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &teacher, err
}

func (r *teacherRepository) Update(ctx context.Context, teacher *entity.Teacher) error {
	return r.db.WithContext(ctx).Save(teacher).Error
}

func (r *teacherRepository) ListAdminUsersBySchool(ctx context.Context, schoolID uuid.UUID) ([]entity.User, error) {
	var users []entity.User
	err := r.db.WithContext(ctx).
		Joins("JOIN teachers ON teachers.user_id = users.id").
		Where("teachers.school_id = ? AND teachers.is_admin = true AND users.is_active = true", schoolID).
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (r *teacherRepository) CountAdminsBySchool(ctx context.Context, schoolID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.Teacher{}).
		Where("school_id = ? AND is_admin = true", schoolID).
		Count(&count).Error
	return count, err
}

func (r *teacherRepository) CountBySchool(ctx context.Context, schoolID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.Teacher{}).
		Where("school_id = ?", schoolID).
		Count(&count).Error
	return count, err
}
