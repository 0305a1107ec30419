package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"codereview/internal/models/db_models"
)

type OtpRepository interface {
	// Issue stores code and drops every unconsumed code for the same
	// email and purpose, so only the newest one can be verified.
	Issue(ctx context.Context, code *db_models.OneTimeCode) error
	FindActive(ctx context.Context, email string, purpose db_models.OtpPurpose) (*db_models.OneTimeCode, error)
	// Consume marks the code used. Returns false if it was already used.
	Consume(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	IncrementAttempts(ctx context.Context, id uuid.UUID) error
}

type otpRepository struct {
	db *gorm.DB
}

func NewOtpRepository(db *gorm.DB) OtpRepository {
	return &otpRepository{db: db}
}

func (o *otpRepository) Issue(ctx context.Context, code *db_models.OneTimeCode) error {
	return o.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("email = ? AND purpose = ? AND consumed_at IS NULL", code.Email, code.Purpose).
			Delete(&db_models.OneTimeCode{}).Error; err != nil {
			return err
		}
		return tx.Create(code).Error
	})
}

func (o *otpRepository) FindActive(ctx context.Context, email string, purpose db_models.OtpPurpose) (*db_models.OneTimeCode, error) {
	var code db_models.OneTimeCode
	err := o.db.WithContext(ctx).
		Where("email = ? AND purpose = ? AND consumed_at IS NULL", email, purpose).
		Order("created_at DESC").
		First(&code).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &code, nil
}

func (o *otpRepository) Consume(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	res := o.db.WithContext(ctx).
		Model(&db_models.OneTimeCode{}).
		Where("id = ? AND consumed_at IS NULL", id).
		Update("consumed_at", at)
	return res.RowsAffected == 1, res.Error
}

func (o *otpRepository) IncrementAttempts(ctx context.Context, id uuid.UUID) error {
	return o.db.WithContext(ctx).
		Model(&db_models.OneTimeCode{}).
		Where("id = ?", id).
		UpdateColumn("attempts", gorm.Expr("attempts + 1")).Error
}
