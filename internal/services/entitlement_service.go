package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"codereview/internal/config"
	"codereview/internal/models/db_models"
	"codereview/internal/models/response_models"
	"codereview/internal/repositories"
	"codereview/pkg/utils"
)

// UnlimitedQuota marks a plan without a review cap.
const UnlimitedQuota int64 = -1

var planQuotas = map[db_models.PlanTier]int64{
	db_models.PlanNone:       5,
	db_models.PlanBasic:      30,
	db_models.PlanAdvanced:   200,
	db_models.PlanEnterprise: UnlimitedQuota,
}

// QuotaForPlan returns the review cap of plan. Unknown plans get the free cap.
func QuotaForPlan(plan db_models.PlanTier) int64 {
	if limit, ok := planQuotas[plan]; ok {
		return limit
	}
	return planQuotas[db_models.PlanNone]
}

// EffectivePlan is the stored plan while the subscription grants it, otherwise none.
func EffectivePlan(sub *db_models.Subscription) db_models.PlanTier {
	if sub == nil || !sub.GrantsPlan() || !sub.Plan.IsValid() {
		return db_models.PlanNone
	}
	return sub.Plan
}

type QuotaState struct {
	Plan  db_models.PlanTier
	Limit int64
	// Since is the start of the counting window; zero counts everything.
	Since time.Time
	Used  int64
}

func (q QuotaState) Unlimited() bool { return q.Limit == UnlimitedQuota }

func (q QuotaState) Allows() bool { return q.Unlimited() || q.Used < q.Limit }

func (q QuotaState) Exceeded() error {
	return &utils.QuotaExceededError{Plan: string(q.Plan), Used: q.Used, Limit: q.Limit}
}

type EntitlementServiceInterface interface {
	Quota(ctx context.Context, userID uuid.UUID) (*QuotaState, error)
	CanCreateReview(ctx context.Context, userID uuid.UUID) (bool, error)
	Usage(ctx context.Context, userID uuid.UUID) (*response_models.UsageResponse, error)
}

type EntitlementService struct {
	subscriptionRepo repositories.SubscriptionRepository
	reviewRepo       repositories.ReviewRepository
	window           config.QuotaWindow
	now              func() time.Time
}

func NewEntitlementService(
	subscriptionRepo repositories.SubscriptionRepository,
	reviewRepo repositories.ReviewRepository,
	cfg *config.Config,
) EntitlementServiceInterface {
	return &EntitlementService{
		subscriptionRepo: subscriptionRepo,
		reviewRepo:       reviewRepo,
		window:           cfg.Auth.QuotaWindow,
		now:              utils.NowUTC,
	}
}

func (e *EntitlementService) Quota(ctx context.Context, userID uuid.UUID) (*QuotaState, error) {
	sub, err := e.subscriptionRepo.FindByUserId(ctx, userID)
	if err != nil {
		return nil, utils.Database("find subscription", err)
	}

	plan := EffectivePlan(sub)
	state := &QuotaState{
		Plan:  plan,
		Limit: QuotaForPlan(plan),
		Since: WindowStart(e.window, plan, sub, e.now()),
	}

	state.Used, err = e.reviewRepo.CountByUser(ctx, userID, state.Since)
	if err != nil {
		return nil, utils.Database("count reviews", err)
	}

	return state, nil
}

func (e *EntitlementService) CanCreateReview(ctx context.Context, userID uuid.UUID) (bool, error) {
	state, err := e.Quota(ctx, userID)
	if err != nil {
		return false, err
	}
	return state.Allows(), nil
}

func (e *EntitlementService) Usage(ctx context.Context, userID uuid.UUID) (*response_models.UsageResponse, error) {
	state, err := e.Quota(ctx, userID)
	if err != nil {
		return nil, err
	}

	resp := &response_models.UsageResponse{
		Plan:      string(state.Plan),
		Used:      state.Used,
		Unlimited: state.Unlimited(),
		Window:    string(e.window),
	}
	if !state.Unlimited() {
		limit := state.Limit
		remaining := limit - state.Used
		if remaining < 0 {
			remaining = 0
		}
		resp.Limit = &limit
		resp.Remaining = &remaining
	}
	if !state.Since.IsZero() {
		since := state.Since
		resp.WindowStart = &since
	}

	return resp, nil
}

// WindowStart resolves where quota counting begins for the configured window.
func WindowStart(window config.QuotaWindow, plan db_models.PlanTier, sub *db_models.Subscription, now time.Time) time.Time {
	switch window {
	case config.QuotaWindowAllTime:
		return time.Time{}
	case config.QuotaWindowBillingPeriod:
		if plan != db_models.PlanNone && sub != nil && sub.CurrentPeriodStart != nil &&
			!sub.CurrentPeriodStart.After(now) &&
			(sub.CurrentPeriodEnd == nil || sub.CurrentPeriodEnd.After(now)) {
			return sub.CurrentPeriodStart.UTC()
		}
		return utils.StartOfMonthUTC(now)
	default:
		return utils.StartOfMonthUTC(now)
	}
}
