package db_models

import (
	"time"

	"github.com/google/uuid"
)

type Session struct {
	BaseModel
	Token     string    `gorm:"uniqueIndex;not null"`
	UserID    uuid.UUID `gorm:"type:uuid;index;not null"`
	ExpiresAt time.Time `gorm:"index;not null"`

	User User `gorm:"foreignKey:UserID"`
}

func (s *Session) IsExpired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}
