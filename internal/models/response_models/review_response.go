package response_models

import (
	"time"

	"github.com/google/uuid"
)

type ReviewResponse struct {
	ID          uuid.UUID `json:"id"`
	FileName    *string   `json:"file_name,omitempty"`
	Code        string    `json:"code"`
	Review      string    `json:"review"`
	Score       int       `json:"score"`
	IssuesFound int       `json:"issues_found"`
	Language    string    `json:"language,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

type ReviewSummary struct {
	ID          uuid.UUID `json:"id"`
	FileName    *string   `json:"file_name,omitempty"`
	Score       int       `json:"score"`
	IssuesFound int       `json:"issues_found"`
	Language    string    `json:"language,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

type ReviewPage struct {
	Items    []ReviewSummary `json:"items"`
	Page     int             `json:"page"`
	PageSize int             `json:"page_size"`
	Total    int64           `json:"total"`
}

// UsageResponse reports Limit and Remaining as nil when Unlimited.
type UsageResponse struct {
	Plan        string    `json:"plan"`
	Used        int64     `json:"used"`
	Limit       *int64    `json:"limit"`
	Remaining   *int64    `json:"remaining"`
	Unlimited   bool      `json:"unlimited"`
	Window      string    `json:"window"`
	WindowStart *time.Time `json:"window_start,omitempty"`
}
