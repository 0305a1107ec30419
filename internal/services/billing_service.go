package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v79"
	"gorm.io/datatypes"

	"codereview/internal/config"
	"codereview/internal/models/db_models"
	"codereview/internal/models/request_models"
	"codereview/internal/models/response_models"
	"codereview/internal/repositories"
	"codereview/pkg/utils"
)

const checkoutPeriod = 30 * 24 * time.Hour

// ErrUnresolvedCustomer means a billing event could not be tied to a local user.
var ErrUnresolvedCustomer = fmt.Errorf("%w: billing customer has no matching user", utils.ErrNotFound)

// PlanCatalog maps configured provider price ids to plan tiers.
type PlanCatalog struct {
	byPrice map[string]db_models.PlanTier
	byPlan  map[db_models.PlanTier]string
}

func NewPlanCatalog(cfg *config.Config) *PlanCatalog {
	c := &PlanCatalog{
		byPrice: map[string]db_models.PlanTier{},
		byPlan:  map[db_models.PlanTier]string{},
	}
	c.add(cfg.Billing.PriceBasic, db_models.PlanBasic)
	c.add(cfg.Billing.PriceAdvanced, db_models.PlanAdvanced)
	c.add(cfg.Billing.PriceEnterprise, db_models.PlanEnterprise)
	return c
}

func (c *PlanCatalog) add(priceID string, plan db_models.PlanTier) {
	if priceID == "" {
		return
	}
	c.byPrice[priceID] = plan
	c.byPlan[plan] = priceID
}

func (c *PlanCatalog) GetPlanFromPriceID(priceID string) (db_models.PlanTier, error) {
	plan, ok := c.byPrice[priceID]
	if !ok {
		return db_models.PlanNone, utils.InvalidPlan(priceID)
	}
	return plan, nil
}

func (c *PlanCatalog) PriceForPlan(plan db_models.PlanTier) (string, error) {
	price, ok := c.byPlan[plan]
	if !ok {
		return "", utils.InvalidPlan(string(plan))
	}
	return price, nil
}

// MapProviderStatus folds provider subscription states onto the local set.
func MapProviderStatus(status stripe.SubscriptionStatus) db_models.SubscriptionStatus {
	switch status {
	case stripe.SubscriptionStatusActive, stripe.SubscriptionStatusTrialing:
		return db_models.SubStatusActive
	case stripe.SubscriptionStatusPastDue:
		return db_models.SubStatusPastDue
	case stripe.SubscriptionStatusCanceled, stripe.SubscriptionStatusIncompleteExpired:
		return db_models.SubStatusCanceled
	case stripe.SubscriptionStatusUnpaid:
		return db_models.SubStatusUnpaid
	default:
		return db_models.SubStatusInactive
	}
}

type BillingServiceInterface interface {
	HandleBillingEvent(ctx context.Context, payload []byte, signature string) (*response_models.WebhookAck, error)
	CreateCheckoutSession(ctx context.Context, userID uuid.UUID, plan string) (*response_models.RedirectResponse, error)
	CreatePortalSession(ctx context.Context, userID uuid.UUID) (*response_models.RedirectResponse, error)
	GetSubscription(ctx context.Context, userID uuid.UUID) (*response_models.SubscriptionResponse, error)
	ListPlans() []response_models.PlanResponse
}

type BillingService struct {
	gateway          BillingGateway
	catalog          *PlanCatalog
	accountRepo      repositories.AccountRepository
	subscriptionRepo repositories.SubscriptionRepository
	eventRepo        repositories.BillingEventRepository
	appBaseURL       string
	log              *zerolog.Logger
	now              func() time.Time
}

func NewBillingService(
	gateway BillingGateway,
	catalog *PlanCatalog,
	accountRepo repositories.AccountRepository,
	subscriptionRepo repositories.SubscriptionRepository,
	eventRepo repositories.BillingEventRepository,
	cfg *config.Config,
	log *zerolog.Logger,
) BillingServiceInterface {
	return &BillingService{
		gateway:          gateway,
		catalog:          catalog,
		accountRepo:      accountRepo,
		subscriptionRepo: subscriptionRepo,
		eventRepo:        eventRepo,
		appBaseURL:       strings.TrimRight(cfg.AppBaseURL, "/"),
		log:              log,
		now:              utils.NowUTC,
	}
}

// HandleBillingEvent verifies, de-duplicates and applies one webhook delivery.
// Signature failures, unknown customers and unknown prices are returned so
// the provider retries; any other failure is recorded and acknowledged.
func (b *BillingService) HandleBillingEvent(ctx context.Context, payload []byte, signature string) (*response_models.WebhookAck, error) {
	event, err := b.gateway.ConstructEvent(payload, signature)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrSignature, err)
	}

	log := b.log.With().Str("event_id", event.ID).Str("event_type", string(event.Type)).Logger()

	existing, err := b.eventRepo.FindByEventId(ctx, event.ID)
	if err != nil {
		return nil, utils.Database("find billing event", err)
	}
	if existing != nil && existing.Settled() {
		log.Info().Msg("billing event already handled")
		return &response_models.WebhookAck{Received: true, EventID: event.ID, Duplicate: true, Outcome: string(existing.Status)}, nil
	}

	status, applyErr := b.dispatch(ctx, event)

	record := &db_models.BillingEvent{
		ProviderEventID: event.ID,
		Type:            string(event.Type),
		Status:          status,
		ProcessedAt:     b.now(),
	}
	if event.Data != nil && len(event.Data.Raw) > 0 {
		record.Payload = datatypes.JSON(event.Data.Raw)
	}
	if applyErr != nil {
		record.Status = db_models.BillingEventFailed
		record.Error = applyErr.Error()
	}
	if err := b.eventRepo.Save(ctx, record); err != nil {
		log.Error().Err(err).Msg("record billing event")
	}

	if applyErr != nil {
		if isRetryableBillingError(applyErr) {
			log.Warn().Err(applyErr).Msg("billing event rejected")
			return nil, applyErr
		}
		log.Error().Err(applyErr).Msg("billing event failed")
		return &response_models.WebhookAck{Received: true, EventID: event.ID, Outcome: string(db_models.BillingEventFailed)}, nil
	}

	if status == db_models.BillingEventIgnored {
		log.Info().Msg("billing event ignored")
	} else {
		log.Info().Msg("billing event processed")
	}
	return &response_models.WebhookAck{Received: true, EventID: event.ID, Outcome: string(status)}, nil
}

func isRetryableBillingError(err error) bool {
	return errors.Is(err, utils.ErrInvalidPlan) || errors.Is(err, ErrUnresolvedCustomer)
}

func (b *BillingService) dispatch(ctx context.Context, event stripe.Event) (db_models.BillingEventStatus, error) {
	var raw json.RawMessage
	if event.Data != nil {
		raw = event.Data.Raw
	}

	switch event.Type {
	case stripe.EventTypeCustomerSubscriptionCreated, stripe.EventTypeCustomerSubscriptionUpdated:
		return b.applySubscription(ctx, raw, false)
	case stripe.EventTypeCustomerSubscriptionDeleted:
		return b.applySubscription(ctx, raw, true)
	case stripe.EventTypeCheckoutSessionCompleted:
		return b.applyCheckout(ctx, raw)
	default:
		return db_models.BillingEventIgnored, nil
	}
}

// tracksOtherSubscription reports whether row belongs to a different
// provider subscription that still grants a plan. Events for any other
// subscription id must not touch it.
func tracksOtherSubscription(row *db_models.Subscription, subID string) bool {
	return row != nil && subID != "" &&
		row.ProviderSubID != nil && *row.ProviderSubID != subID &&
		row.GrantsPlan()
}

func (b *BillingService) applySubscription(ctx context.Context, raw json.RawMessage, deleted bool) (db_models.BillingEventStatus, error) {
	var sub stripe.Subscription
	if err := json.Unmarshal(raw, &sub); err != nil {
		return db_models.BillingEventFailed, fmt.Errorf("decode subscription: %w", err)
	}

	customerID := ""
	if sub.Customer != nil {
		customerID = sub.Customer.ID
	}

	userID, row, err := b.resolveUser(ctx, customerID, sub.Metadata[customerUserIDKey])
	if err != nil {
		return db_models.BillingEventFailed, err
	}
	if tracksOtherSubscription(row, sub.ID) {
		b.log.Warn().Str("subscription_id", sub.ID).Str("current_subscription_id", *row.ProviderSubID).
			Msg("event for a superseded subscription")
		return db_models.BillingEventIgnored, nil
	}
	if row == nil {
		row = &db_models.Subscription{UserID: userID, Plan: db_models.PlanNone}
	}

	priceID := ""
	if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
		priceID = sub.Items.Data[0].Price.ID
	}

	if deleted {
		row.Status = db_models.SubStatusCanceled
		if plan, err := b.catalog.GetPlanFromPriceID(priceID); err == nil && row.Plan == db_models.PlanNone {
			row.Plan = plan
		}
	} else {
		plan, err := b.catalog.GetPlanFromPriceID(priceID)
		if err != nil {
			return db_models.BillingEventFailed, err
		}
		row.Plan = plan
		row.Status = MapProviderStatus(sub.Status)
	}

	if customerID != "" {
		row.ProviderCustomerID = customerID
	}
	if sub.ID != "" {
		subID := sub.ID
		row.ProviderSubID = &subID
	}
	if priceID != "" {
		row.ProviderPriceID = priceID
	}
	if start := utils.FromUnixSeconds(sub.CurrentPeriodStart); start != nil {
		row.CurrentPeriodStart = start
	}
	if end := utils.FromUnixSeconds(sub.CurrentPeriodEnd); end != nil {
		row.CurrentPeriodEnd = end
	}
	row.CancelAtPeriodEnd = sub.CancelAtPeriodEnd
	row.Metadata = subscriptionMetadata(string(sub.Status), sub.Metadata)

	if err := b.subscriptionRepo.Upsert(ctx, row); err != nil {
		return db_models.BillingEventFailed, utils.Database("upsert subscription", err)
	}
	return db_models.BillingEventProcessed, nil
}

func (b *BillingService) applyCheckout(ctx context.Context, raw json.RawMessage) (db_models.BillingEventStatus, error) {
	var cs stripe.CheckoutSession
	if err := json.Unmarshal(raw, &cs); err != nil {
		return db_models.BillingEventFailed, fmt.Errorf("decode checkout session: %w", err)
	}

	customerID := ""
	if cs.Customer != nil {
		customerID = cs.Customer.ID
	}

	subID := ""
	if cs.Subscription != nil {
		subID = cs.Subscription.ID
	}

	userID, row, err := b.resolveUser(ctx, customerID, cs.ClientReferenceID)
	if err != nil {
		return db_models.BillingEventFailed, err
	}
	if tracksOtherSubscription(row, subID) {
		b.log.Warn().Str("subscription_id", subID).Str("current_subscription_id", *row.ProviderSubID).
			Msg("checkout for a second subscription")
		return db_models.BillingEventIgnored, nil
	}
	if row == nil {
		row = &db_models.Subscription{UserID: userID, Plan: db_models.PlanNone}
	}

	if customerID != "" {
		row.ProviderCustomerID = customerID
	}
	if subID != "" {
		row.ProviderSubID = &subID
	}
	if plan := db_models.PlanTier(cs.Metadata["plan"]); plan != db_models.PlanNone && plan.IsValid() {
		row.Plan = plan
		if price, err := b.catalog.PriceForPlan(plan); err == nil {
			row.ProviderPriceID = price
		}
	}
	row.Status = db_models.SubStatusActive

	// a subscription event may already have delivered the real period
	now := b.now()
	if row.CurrentPeriodEnd == nil || !row.CurrentPeriodEnd.After(now) {
		end := now.Add(checkoutPeriod)
		row.CurrentPeriodStart = &now
		row.CurrentPeriodEnd = &end
	}
	row.Metadata = subscriptionMetadata("checkout_completed", cs.Metadata)

	if err := b.subscriptionRepo.Upsert(ctx, row); err != nil {
		return db_models.BillingEventFailed, utils.Database("upsert subscription", err)
	}
	return db_models.BillingEventProcessed, nil
}

// resolveUser finds the local user for a provider customer. The stored
// customer id wins, then the user id carried by the event, then the customer
// metadata at the provider.
func (b *BillingService) resolveUser(ctx context.Context, customerID, userRef string) (uuid.UUID, *db_models.Subscription, error) {
	if customerID != "" {
		sub, err := b.subscriptionRepo.FindByCustomerId(ctx, customerID)
		if err != nil {
			return uuid.Nil, nil, utils.Database("find subscription by customer", err)
		}
		if sub != nil {
			return sub.UserID, sub, nil
		}
	}

	var userID uuid.UUID
	if id, err := uuid.Parse(userRef); err == nil {
		userID = id
	}
	if userID == uuid.Nil && customerID != "" {
		id, ok, err := b.gateway.CustomerUserID(ctx, customerID)
		if err != nil {
			return uuid.Nil, nil, fmt.Errorf("%w: %v", ErrUnresolvedCustomer, err)
		}
		if ok {
			userID = id
		}
	}
	if userID == uuid.Nil {
		return uuid.Nil, nil, ErrUnresolvedCustomer
	}

	user, err := b.accountRepo.FindById(ctx, userID)
	if err != nil {
		return uuid.Nil, nil, utils.Database("find account", err)
	}
	if user == nil {
		return uuid.Nil, nil, ErrUnresolvedCustomer
	}

	sub, err := b.subscriptionRepo.FindByUserId(ctx, userID)
	if err != nil {
		return uuid.Nil, nil, utils.Database("find subscription", err)
	}
	return userID, sub, nil
}

func subscriptionMetadata(providerStatus string, meta map[string]string) datatypes.JSON {
	payload := map[string]interface{}{"provider_status": providerStatus}
	if len(meta) > 0 {
		payload["metadata"] = meta
	}
	raw, _ := json.Marshal(payload)
	return datatypes.JSON(raw)
}

func (b *BillingService) CreateCheckoutSession(ctx context.Context, userID uuid.UUID, plan string) (*response_models.RedirectResponse, error) {
	if err := utils.ValidateStruct(request_models.CheckoutRequest{Plan: plan}); err != nil {
		return nil, utils.InvalidPlan(plan)
	}

	tier := db_models.PlanTier(plan)
	priceID, err := b.catalog.PriceForPlan(tier)
	if err != nil {
		return nil, err
	}

	user, err := b.accountRepo.FindById(ctx, userID)
	if err != nil {
		return nil, utils.Database("find account", err)
	}
	if user == nil {
		return nil, utils.ErrNotFound
	}

	sub, err := b.subscriptionRepo.FindByUserId(ctx, userID)
	if err != nil {
		return nil, utils.Database("find subscription", err)
	}

	// plan changes on a live subscription go through the portal
	if sub != nil && sub.GrantsPlan() {
		return nil, utils.ErrSubscriptionActive
	}

	customerID := ""
	if sub != nil {
		customerID = sub.ProviderCustomerID
	}
	if customerID == "" {
		customerID, err = b.gateway.CreateCustomer(ctx, user.ID, user.Email, user.FullName())
		if err != nil {
			return nil, utils.Upstream("create customer", err)
		}
	}

	if _, err := b.subscriptionRepo.EnsurePlaceholder(ctx, user.ID, customerID); err != nil {
		return nil, utils.Database("ensure subscription", err)
	}

	url, err := b.gateway.CreateCheckoutSession(ctx, CheckoutParams{
		CustomerID: customerID,
		PriceID:    priceID,
		UserID:     user.ID,
		Plan:       plan,
		SuccessURL: b.appBaseURL + "/billing/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  b.appBaseURL + "/billing/cancel",
	})
	if err != nil {
		return nil, utils.Upstream("create checkout session", err)
	}

	return &response_models.RedirectResponse{URL: url}, nil
}

func (b *BillingService) CreatePortalSession(ctx context.Context, userID uuid.UUID) (*response_models.RedirectResponse, error) {
	sub, err := b.subscriptionRepo.FindByUserId(ctx, userID)
	if err != nil {
		return nil, utils.Database("find subscription", err)
	}
	if sub == nil || sub.ProviderCustomerID == "" {
		return nil, utils.NewValidationError("no billing account yet, start a checkout first")
	}

	url, err := b.gateway.CreatePortalSession(ctx, sub.ProviderCustomerID, b.appBaseURL+"/settings/billing")
	if err != nil {
		return nil, utils.Upstream("create portal session", err)
	}

	return &response_models.RedirectResponse{URL: url}, nil
}

func (b *BillingService) GetSubscription(ctx context.Context, userID uuid.UUID) (*response_models.SubscriptionResponse, error) {
	sub, err := b.subscriptionRepo.FindByUserId(ctx, userID)
	if err != nil {
		return nil, utils.Database("find subscription", err)
	}
	if sub == nil {
		return &response_models.SubscriptionResponse{
			Plan:          string(db_models.PlanNone),
			EffectivePlan: string(db_models.PlanNone),
			Status:        string(db_models.SubStatusInactive),
		}, nil
	}

	return &response_models.SubscriptionResponse{
		Plan:               string(sub.Plan),
		EffectivePlan:      string(EffectivePlan(sub)),
		Status:             string(sub.Status),
		CurrentPeriodStart: sub.CurrentPeriodStart,
		CurrentPeriodEnd:   sub.CurrentPeriodEnd,
		CancelAtPeriodEnd:  sub.CancelAtPeriodEnd,
		HasBillingAccount:  sub.ProviderCustomerID != "",
	}, nil
}

// ListPlans describes every tier with its review cap. Paid tiers are
// purchasable only when a price id is configured for them.
func (b *BillingService) ListPlans() []response_models.PlanResponse {
	tiers := []db_models.PlanTier{db_models.PlanNone, db_models.PlanBasic, db_models.PlanAdvanced, db_models.PlanEnterprise}

	plans := make([]response_models.PlanResponse, 0, len(tiers))
	for _, tier := range tiers {
		p := response_models.PlanResponse{Plan: string(tier)}
		if limit := QuotaForPlan(tier); limit == UnlimitedQuota {
			p.Unlimited = true
		} else {
			p.ReviewLimit = &limit
		}
		if _, err := b.catalog.PriceForPlan(tier); err == nil {
			p.Purchasable = true
		}
		plans = append(plans, p)
	}
	return plans
}
