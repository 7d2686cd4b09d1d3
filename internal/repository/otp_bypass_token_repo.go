package repository

import (
	"context"

	"classforge/internal/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type OtpBypassTokenRepository interface {
	// ReplaceForUser deletes every bypass token the user holds and inserts
	// the new batch in one transaction, so a concurrent reader sees either
	// the old complete set or the new one.
	ReplaceForUser(ctx context.Context, userID uuid.UUID, tokenHashes []string) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]entity.OtpBypassToken, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type otpBypassTokenRepository struct {
	db *gorm.DB
}

func NewOtpBypassTokenRepository(db *gorm.DB) OtpBypassTokenRepository {
	return &otpBypassTokenRepository{db: db}
}

func (r *otpBypassTokenRepository) ReplaceForUser(
	ctx context.Context,
	userID uuid.UUID,
	tokenHashes []string,
) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&entity.OtpBypassToken{}, "user_id = ?", userID).Error; err != nil {
			return err
		}
		tokens := make([]entity.OtpBypassToken, 0, len(tokenHashes))
		for _, hash := range tokenHashes {
			tokens = append(tokens, entity.OtpBypassToken{
				UserID:    userID,
				TokenHash: hash,
			})
		}
		return tx.Create(&tokens).Error
	})
}

func (r *otpBypassTokenRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]entity.OtpBypassToken, error) {
	var tokens []entity.OtpBypassToken
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Find(&tokens).Error
	if err != nil {
		return nil, err
	}
	return tokens, nil
}

func (r *otpBypassTokenRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&entity.OtpBypassToken{}, "id = ?", id).Error
}
