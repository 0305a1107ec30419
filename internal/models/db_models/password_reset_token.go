package db_models

import (
	"time"

	"github.com/google/uuid"
)

// PasswordResetToken tracks the JTI of an issued reset JWT so it can be used once.
type PasswordResetToken struct {
	BaseModel
	JTI       string    `gorm:"column:jti;uniqueIndex;not null"`
	UserID    uuid.UUID `gorm:"type:uuid;index;not null"`
	Email     string    `gorm:"not null"`
	ExpiresAt time.Time `gorm:"not null"`
	UsedAt    *time.Time
}
