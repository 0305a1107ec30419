package repositories

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"codereview/internal/models/db_models"
)

type PasswordResetRepository interface {
	// Create stores token and invalidates the user's older unused tokens.
	Create(ctx context.Context, token *db_models.PasswordResetToken) error
	FindByJTI(ctx context.Context, jti string) (*db_models.PasswordResetToken, error)
	MarkUsed(ctx context.Context, jti string, at time.Time) (bool, error)
}

type passwordResetRepository struct {
	db *gorm.DB
}

func NewPasswordResetRepository(db *gorm.DB) PasswordResetRepository {
	return &passwordResetRepository{db: db}
}

func (p *passwordResetRepository) Create(ctx context.Context, token *db_models.PasswordResetToken) error {
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&db_models.PasswordResetToken{}).
			Where("user_id = ? AND used_at IS NULL", token.UserID).
			Update("used_at", time.Now().UTC()).Error; err != nil {
			return err
		}
		return tx.Create(token).Error
	})
}

func (p *passwordResetRepository) FindByJTI(ctx context.Context, jti string) (*db_models.PasswordResetToken, error) {
	var token db_models.PasswordResetToken
	err := p.db.WithContext(ctx).First(&token, "jti = ?", jti).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &token, nil
}

func (p *passwordResetRepository) MarkUsed(ctx context.Context, jti string, at time.Time) (bool, error) {
	res := p.db.WithContext(ctx).
		Model(&db_models.PasswordResetToken{}).
		Where("jti = ? AND used_at IS NULL", jti).
		Update("used_at", at)
	return res.RowsAffected == 1, res.Error
}
