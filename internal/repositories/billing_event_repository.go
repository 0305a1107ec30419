package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"codereview/internal/models/db_models"
)

type BillingEventRepository interface {
	FindByEventId(ctx context.Context, eventID string) (*db_models.BillingEvent, error)
	// Save records the outcome of a delivery, overwriting an earlier failed attempt.
	Save(ctx context.Context, event *db_models.BillingEvent) error
}

type billingEventRepository struct {
	db *gorm.DB
}

func NewBillingEventRepository(db *gorm.DB) BillingEventRepository {
	return &billingEventRepository{db: db}
}

func (b *billingEventRepository) FindByEventId(ctx context.Context, eventID string) (*db_models.BillingEvent, error) {
	var event db_models.BillingEvent
	err := b.db.WithContext(ctx).First(&event, "provider_event_id = ?", eventID).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &event, nil
}

func (b *billingEventRepository) Save(ctx context.Context, event *db_models.BillingEvent) error {
	return b.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "provider_event_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"type", "status", "error", "payload", "processed_at", "updated_at"}),
	}).Create(event).Error
}
