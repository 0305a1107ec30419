package db_models

import (
	"time"

	"gorm.io/datatypes"
)

type BillingEventStatus string

const (
	BillingEventProcessed BillingEventStatus = "processed"
	BillingEventIgnored   BillingEventStatus = "ignored"
	BillingEventFailed    BillingEventStatus = "failed"
)

// BillingEvent records provider webhook deliveries for replay de-duplication.
type BillingEvent struct {
	BaseModel
	ProviderEventID string             `gorm:"uniqueIndex;not null"`
	Type            string             `gorm:"index;not null"`
	Status          BillingEventStatus `gorm:"type:varchar(20);not null"`
	Error           string
	Payload         datatypes.JSON `gorm:"type:jsonb;default:'{}'"`
	ProcessedAt     time.Time      `gorm:"not null"`
}

// Settled events are never re-applied on redelivery.
func (e *BillingEvent) Settled() bool {
	return e.Status == BillingEventProcessed || e.Status == BillingEventIgnored
}
