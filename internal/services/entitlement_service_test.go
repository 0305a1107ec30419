package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codereview/internal/config"
	"codereview/internal/models/db_models"
)

func TestQuotaForPlan(t *testing.T) {
	assert.Equal(t, int64(5), QuotaForPlan(db_models.PlanNone))
	assert.Equal(t, int64(30), QuotaForPlan(db_models.PlanBasic))
	assert.Equal(t, int64(200), QuotaForPlan(db_models.PlanAdvanced))
	assert.Equal(t, UnlimitedQuota, QuotaForPlan(db_models.PlanEnterprise))
	assert.Equal(t, int64(5), QuotaForPlan("gold"))
}

func TestEffectivePlan(t *testing.T) {
	assert.Equal(t, db_models.PlanNone, EffectivePlan(nil))

	cases := map[db_models.SubscriptionStatus]db_models.PlanTier{
		db_models.SubStatusActive:   db_models.PlanAdvanced,
		db_models.SubStatusPastDue:  db_models.PlanAdvanced,
		db_models.SubStatusCanceled: db_models.PlanNone,
		db_models.SubStatusUnpaid:   db_models.PlanNone,
		db_models.SubStatusInactive: db_models.PlanNone,
	}
	for status, want := range cases {
		sub := &db_models.Subscription{Plan: db_models.PlanAdvanced, Status: status}
		assert.Equal(t, want, EffectivePlan(sub), status)
	}
}

func TestWindowStart(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	month := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	periodStart := time.Date(2026, 2, 20, 8, 0, 0, 0, time.UTC)
	periodEnd := periodStart.Add(30 * 24 * time.Hour)
	sub := &db_models.Subscription{Plan: db_models.PlanBasic, Status: db_models.SubStatusActive, CurrentPeriodStart: &periodStart, CurrentPeriodEnd: &periodEnd}

	assert.True(t, WindowStart(config.QuotaWindowAllTime, db_models.PlanBasic, sub, now).IsZero())
	assert.Equal(t, month, WindowStart(config.QuotaWindowCalendarMonth, db_models.PlanBasic, sub, now))
	assert.Equal(t, periodStart, WindowStart(config.QuotaWindowBillingPeriod, db_models.PlanBasic, sub, now))
	assert.Equal(t, month, WindowStart(config.QuotaWindowBillingPeriod, db_models.PlanNone, sub, now))
	assert.Equal(t, month, WindowStart(config.QuotaWindowBillingPeriod, db_models.PlanBasic, nil, now))

	stale := now.Add(-time.Hour)
	sub.CurrentPeriodEnd = &stale
	assert.Equal(t, month, WindowStart(config.QuotaWindowBillingPeriod, db_models.PlanBasic, sub, now))
}

func TestEntitlementService_UsageBillingPeriod(t *testing.T) {
	f := newReviewFixture(t, config.QuotaWindowBillingPeriod)
	f.subscribe(db_models.PlanAdvanced, db_models.SubStatusPastDue)
	f.reviews.seed(f.userID, 7, f.clock.Now().Add(-48*time.Hour))
	f.reviews.seed(f.userID, 3, f.clock.Now())

	usage, err := f.entitlement.Usage(context.Background(), f.userID)
	require.NoError(t, err)
	assert.Equal(t, "advanced", usage.Plan)
	assert.Equal(t, int64(3), usage.Used, "reviews before the period start are not counted")
	require.NotNil(t, usage.Limit)
	assert.Equal(t, int64(200), *usage.Limit)
	assert.Equal(t, int64(197), *usage.Remaining)
	assert.Equal(t, "billing_period", usage.Window)

	allowed, err := f.entitlement.CanCreateReview(context.Background(), f.userID)
	require.NoError(t, err)
	assert.True(t, allowed)
}
