package repository

import (
	"context"
	"errors"

	"classforge/internal/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type InvitationRepository interface {
	Create(ctx context.Context, invitation *entity.SchoolTeacherInvitation) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.SchoolTeacherInvitation, error)
	ListBySchool(ctx context.Context, schoolID uuid.UUID) ([]entity.SchoolTeacherInvitation, error)
	Update(ctx context.Context, invitation *entity.SchoolTeacherInvitation) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type invitationRepository struct {
	db *gorm.DB
}

func NewInvitationRepository(db *gorm.DB) InvitationRepository {
	return &invitationRepository{db: db}
}

func (r *invitationRepository) Create(ctx context.Context, invitation *entity.SchoolTeacherInvitation) error {
	return r.db.WithContext(ctx).Create(invitation).Error
}

func (r *invitationRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.SchoolTeacherInvitation, error) {
	var invitation entity.SchoolTeacherInvitation
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&invitation).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &invitation, err
}

func (r *invitationRepository) ListBySchool(ctx context.Context, schoolID uuid.UUID) ([]entity.SchoolTeacherInvitation, error) {
	var invitations []entity.SchoolTeacherInvitation
	err := r.db.WithContext(ctx).
		Where("school_id = ?", schoolID).
		Order("created_at DESC").
		Find(&invitations).Error
	if err != nil {
		return nil, err
	}
	return invitations, nil
}

func (r *invitationRepository) Update(ctx context.Context, invitation *entity.SchoolTeacherInvitation) error {
	return r.db.WithContext(ctx).Save(invitation).Error
}

func (r *invitationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&entity.SchoolTeacherInvitation{}, "id = ?", id).Error
}
