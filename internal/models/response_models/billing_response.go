package response_models

import "time"

type RedirectResponse struct {
	URL string `json:"url"`
}

type SubscriptionResponse struct {
	Plan               string     `json:"plan"`
	EffectivePlan      string     `json:"effective_plan"`
	Status             string     `json:"status"`
	CurrentPeriodStart *time.Time `json:"current_period_start,omitempty"`
	CurrentPeriodEnd   *time.Time `json:"current_period_end,omitempty"`
	CancelAtPeriodEnd  bool       `json:"cancel_at_period_end"`
	HasBillingAccount  bool       `json:"has_billing_account"`
}

type WebhookAck struct {
	Received  bool   `json:"received"`
	EventID   string `json:"event_id,omitempty"`
	Duplicate bool   `json:"duplicate,omitempty"`
	Outcome   string `json:"outcome,omitempty"`
}

type PlanResponse struct {
	Plan        string `json:"plan"`
	ReviewLimit *int64 `json:"review_limit,omitempty"`
	Unlimited   bool   `json:"unlimited"`
	Purchasable bool   `json:"purchasable"`
}
