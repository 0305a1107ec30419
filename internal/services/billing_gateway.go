package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"github.com/stripe/stripe-go/v79/webhook"

	"codereview/internal/config"
)

const customerUserIDKey = "user_id"

type CheckoutParams struct {
	CustomerID string
	PriceID    string
	UserID     uuid.UUID
	Plan       string
	SuccessURL string
	CancelURL  string
}

// BillingGateway is the slice of the payment provider the service needs.
type BillingGateway interface {
	ConstructEvent(payload []byte, signature string) (stripe.Event, error)
	CreateCustomer(ctx context.Context, userID uuid.UUID, email, name string) (string, error)
	// CustomerUserID reads the user id stored in the customer metadata.
	CustomerUserID(ctx context.Context, customerID string) (uuid.UUID, bool, error)
	CreateCheckoutSession(ctx context.Context, params CheckoutParams) (string, error)
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error)
}

type stripeGateway struct {
	sc            *client.API
	webhookSecret string
}

func NewStripeGateway(cfg *config.Config) BillingGateway {
	return &stripeGateway{
		sc:            client.New(cfg.Billing.SecretKey, nil),
		webhookSecret: cfg.Billing.WebhookSecret,
	}
}

func (s *stripeGateway) ConstructEvent(payload []byte, signature string) (stripe.Event, error) {
	return webhook.ConstructEventWithOptions(payload, signature, s.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
}

func (s *stripeGateway) CreateCustomer(ctx context.Context, userID uuid.UUID, email, name string) (string, error) {
	params := &stripe.CustomerParams{
		Email:    stripe.String(email),
		Metadata: map[string]string{customerUserIDKey: userID.String()},
	}
	if name != "" {
		params.Name = stripe.String(name)
	}
	params.Context = ctx

	cust, err := s.sc.Customers.New(params)
	if err != nil {
		return "", err
	}
	return cust.ID, nil
}

func (s *stripeGateway) CustomerUserID(ctx context.Context, customerID string) (uuid.UUID, bool, error) {
	params := &stripe.CustomerParams{}
	params.Context = ctx

	cust, err := s.sc.Customers.Get(customerID, params)
	if err != nil {
		return uuid.Nil, false, err
	}
	if cust.Deleted {
		return uuid.Nil, false, nil
	}

	id, err := uuid.Parse(cust.Metadata[customerUserIDKey])
	if err != nil {
		return uuid.Nil, false, nil
	}
	return id, true, nil
}

func (s *stripeGateway) CreateCheckoutSession(ctx context.Context, p CheckoutParams) (string, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		Customer:          stripe.String(p.CustomerID),
		ClientReferenceID: stripe.String(p.UserID.String()),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(p.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(p.SuccessURL),
		CancelURL:  stripe.String(p.CancelURL),
		Metadata: map[string]string{
			customerUserIDKey: p.UserID.String(),
			"plan":            p.Plan,
		},
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{
				customerUserIDKey: p.UserID.String(),
				"plan":            p.Plan,
			},
		},
	}
	params.Context = ctx

	sess, err := s.sc.CheckoutSessions.New(params)
	if err != nil {
		return "", err
	}
	return sess.URL, nil
}

func (s *stripeGateway) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}
	params.Context = ctx

	sess, err := s.sc.BillingPortalSessions.New(params)
	if err != nil {
		return "", err
	}
	return sess.URL, nil
}
