package db_models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type PlanTier string

const (
	PlanNone       PlanTier = "none"
	PlanBasic      PlanTier = "basic"
	PlanAdvanced   PlanTier = "advanced"
	PlanEnterprise PlanTier = "enterprise"
)

func (p PlanTier) IsValid() bool {
	switch p {
	case PlanNone, PlanBasic, PlanAdvanced, PlanEnterprise:
		return true
	}
	return false
}

type SubscriptionStatus string

const (
	SubStatusInactive SubscriptionStatus = "inactive"
	SubStatusActive   SubscriptionStatus = "active"
	SubStatusPastDue  SubscriptionStatus = "past_due"
	SubStatusCanceled SubscriptionStatus = "canceled"
	SubStatusUnpaid   SubscriptionStatus = "unpaid"
)

type Subscription struct {
	BaseModel
	UserID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null"`

	Plan   PlanTier           `gorm:"type:varchar(20);not null;default:'none'"`
	Status SubscriptionStatus `gorm:"type:varchar(20);not null;default:'inactive';index"`

	ProviderCustomerID string  `gorm:"index"`
	ProviderSubID      *string `gorm:"uniqueIndex"`
	ProviderPriceID    string

	CurrentPeriodStart *time.Time
	CurrentPeriodEnd   *time.Time
	CancelAtPeriodEnd  bool `gorm:"not null;default:false"`

	Metadata datatypes.JSON `gorm:"type:jsonb;default:'{}'"`
}

// GrantsPlan reports whether the stored plan currently entitles the user.
// past_due keeps the plan while the provider retries the charge.
func (s *Subscription) GrantsPlan() bool {
	return s.Status == SubStatusActive || s.Status == SubStatusPastDue
}
