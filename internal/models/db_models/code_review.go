package db_models

import "github.com/google/uuid"

type ReviewStatus string

const (
	ReviewStatusPending    ReviewStatus = "pending"
	ReviewStatusInProgress ReviewStatus = "in_progress"
	ReviewStatusCompleted  ReviewStatus = "completed"
	ReviewStatusFailed     ReviewStatus = "failed"
)

type CodeReview struct {
	BaseModel
	UserID      uuid.UUID `gorm:"type:uuid;index:idx_reviews_user_created,priority:1;not null"`
	FileName    *string
	Code        string `gorm:"type:text;not null"`
	Review      string `gorm:"type:text;not null"`
	Score       int    `gorm:"not null;default:0"`
	IssuesFound int    `gorm:"not null;default:0"`
	Language    string
	Status      ReviewStatus `gorm:"type:varchar(20);not null;default:'completed'"`
}
