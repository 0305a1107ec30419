package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"codereview/internal/models/db_models"
)

type SubscriptionRepository interface {
	FindByUserId(ctx context.Context, userID uuid.UUID) (*db_models.Subscription, error)
	FindByCustomerId(ctx context.Context, customerID string) (*db_models.Subscription, error)
	// EnsurePlaceholder creates the inactive row for a user starting checkout,
	// or attaches the customer id to the existing row. Plan and status are
	// never touched here.
	EnsurePlaceholder(ctx context.Context, userID uuid.UUID, customerID string) (*db_models.Subscription, error)
	// Upsert writes the full provider state keyed by user id.
	Upsert(ctx context.Context, sub *db_models.Subscription) error
}

type subscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

func (s *subscriptionRepository) FindByUserId(ctx context.Context, userID uuid.UUID) (*db_models.Subscription, error) {
	return s.findOne(ctx, "user_id = ?", userID)
}

func (s *subscriptionRepository) FindByCustomerId(ctx context.Context, customerID string) (*db_models.Subscription, error) {
	return s.findOne(ctx, "provider_customer_id = ?", customerID)
}

func (s *subscriptionRepository) findOne(ctx context.Context, query string, args ...interface{}) (*db_models.Subscription, error) {
	var sub db_models.Subscription
	err := s.db.WithContext(ctx).Where(query, args...).First(&sub).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &sub, nil
}

func (s *subscriptionRepository) EnsurePlaceholder(ctx context.Context, userID uuid.UUID, customerID string) (*db_models.Subscription, error) {
	placeholder := &db_models.Subscription{
		UserID:             userID,
		Plan:               db_models.PlanNone,
		Status:             db_models.SubStatusInactive,
		ProviderCustomerID: customerID,
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"provider_customer_id", "updated_at"}),
	}).Create(placeholder).Error
	if err != nil {
		return nil, err
	}

	return s.FindByUserId(ctx, userID)
}

func (s *subscriptionRepository) Upsert(ctx context.Context, sub *db_models.Subscription) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"plan",
			"status",
			"provider_customer_id",
			"provider_sub_id",
			"provider_price_id",
			"current_period_start",
			"current_period_end",
			"cancel_at_period_end",
			"metadata",
			"updated_at",
		}),
	}).Create(sub).Error
}
