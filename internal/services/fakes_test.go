package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"
	"gorm.io/gorm"

	"codereview/internal/config"
	"codereview/internal/models/db_models"
	"codereview/internal/repositories"
	"codereview/pkg/utils"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *clock {
	return &clock{t: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func testLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

func testConfig() *config.Config {
	return &config.Config{
		AppName:    "CodeReview",
		AppBaseURL: "https://app.example.com",
		Auth: config.AuthConfig{
			ResetTokenSecret: "reset-secret-for-tests-only",
			ResetTokenTTL:    time.Hour,
			SessionTTL:       30 * 24 * time.Hour,
			OtpTTL:           10 * time.Minute,
			OtpLength:        6,
			OtpMaxAttempts:   5,
			BcryptCost:       4,
			QuotaWindow:      config.QuotaWindowAllTime,
		},
		Billing: config.BillingConfig{
			SecretKey:       "sk_test_123",
			WebhookSecret:   "whsec_test_secret",
			PriceBasic:      "price_basic",
			PriceAdvanced:   "price_advanced",
			PriceEnterprise: "price_enterprise",
		},
		SMTP: config.SMTPConfig{QueueSize: 10},
		AI:   config.AIConfig{Provider: "openai", OpenAIAPIKey: "sk", Timeout: time.Second},
	}
}

func stamp(b *db_models.BaseModel, now time.Time) {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
}

// accounts

type fakeAccountRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]db_models.User
	now   func() time.Time
}

func newFakeAccountRepo(now func() time.Time) *fakeAccountRepo {
	return &fakeAccountRepo{users: map[uuid.UUID]db_models.User{}, now: now}
}

func (f *fakeAccountRepo) Insert(_ context.Context, user *db_models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == user.Email {
			return repositories.ErrDuplicate
		}
	}
	stamp(&user.BaseModel, f.now())
	f.users[user.ID] = *user
	return nil
}

func (f *fakeAccountRepo) FindById(_ context.Context, id uuid.UUID) (*db_models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (f *fakeAccountRepo) FindByEmail(_ context.Context, email string) (*db_models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, nil
}

func (f *fakeAccountRepo) MarkEmailVerified(_ context.Context, id uuid.UUID, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.users[id]
	if u.EmailVerifiedAt == nil {
		u.EmailVerifiedAt = &at
	}
	f.users[id] = u
	return nil
}

func (f *fakeAccountRepo) UpdatePassword(_ context.Context, id uuid.UUID, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.users[id]
	u.PasswordHash = hash
	f.users[id] = u
	return nil
}

func (f *fakeAccountRepo) UpdateProfile(_ context.Context, id uuid.UUID, first, last, phone string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.users[id]
	u.FirstName, u.LastName, u.Phone = first, last, phone
	f.users[id] = u
	return nil
}

func (f *fakeAccountRepo) delete(id uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.users, id)
}

// sessions

type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]db_models.Session
	accounts *fakeAccountRepo
}

func (f *fakeSessionRepo) Create(_ context.Context, s *db_models.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stamp(&s.BaseModel, time.Now())
	f.sessions[s.Token] = *s
	return nil
}

func (f *fakeSessionRepo) FindValidByToken(ctx context.Context, token string, _ time.Time) (*db_models.Session, error) {
	f.mu.Lock()
	s, ok := f.sessions[token]
	f.mu.Unlock()
	if !ok {
		return nil, nil
	}
	// expiry is left to the caller so the service check is exercised
	user, _ := f.accounts.FindById(ctx, s.UserID)
	if user == nil {
		return nil, nil
	}
	s.User = *user
	return &s, nil
}

func (f *fakeSessionRepo) DeleteByToken(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, token)
	return nil
}

func (f *fakeSessionRepo) DeleteByUser(_ context.Context, userID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for k, s := range f.sessions {
		if s.UserID == userID {
			delete(f.sessions, k)
			n++
		}
	}
	return n, nil
}

func (f *fakeSessionRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for k, s := range f.sessions {
		if s.IsExpired(now) {
			delete(f.sessions, k)
			n++
		}
	}
	return n, nil
}

// one-time codes

type fakeOtpRepo struct {
	mu    sync.Mutex
	codes []db_models.OneTimeCode
	now   func() time.Time
}

func (f *fakeOtpRepo) Issue(_ context.Context, code *db_models.OneTimeCode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.codes[:0]
	for _, c := range f.codes {
		if c.Email == code.Email && c.Purpose == code.Purpose && c.ConsumedAt == nil {
			continue
		}
		kept = append(kept, c)
	}
	stamp(&code.BaseModel, f.now())
	f.codes = append(kept, *code)
	return nil
}

func (f *fakeOtpRepo) FindActive(_ context.Context, email string, purpose db_models.OtpPurpose) (*db_models.OneTimeCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.codes) - 1; i >= 0; i-- {
		c := f.codes[i]
		if c.Email == email && c.Purpose == purpose && c.ConsumedAt == nil {
			return &c, nil
		}
	}
	return nil, nil
}

func (f *fakeOtpRepo) Consume(_ context.Context, id uuid.UUID, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.codes {
		if f.codes[i].ID == id && f.codes[i].ConsumedAt == nil {
			f.codes[i].ConsumedAt = &at
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeOtpRepo) IncrementAttempts(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.codes {
		if f.codes[i].ID == id {
			f.codes[i].Attempts++
		}
	}
	return nil
}

// password reset tokens

type fakeResetRepo struct {
	mu     sync.Mutex
	tokens map[string]db_models.PasswordResetToken
}

func (f *fakeResetRepo) Create(_ context.Context, t *db_models.PasswordResetToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now()
	for k, old := range f.tokens {
		if old.UserID == t.UserID && old.UsedAt == nil {
			old.UsedAt = &now
			f.tokens[k] = old
		}
	}
	stamp(&t.BaseModel, now)
	f.tokens[t.JTI] = *t
	return nil
}

func (f *fakeResetRepo) FindByJTI(_ context.Context, jti string) (*db_models.PasswordResetToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tokens[jti]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (f *fakeResetRepo) MarkUsed(_ context.Context, jti string, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tokens[jti]
	if !ok || t.UsedAt != nil {
		return false, nil
	}
	t.UsedAt = &at
	f.tokens[jti] = t
	return true, nil
}

// subscriptions

type fakeSubscriptionRepo struct {
	mu   sync.Mutex
	subs map[uuid.UUID]db_models.Subscription
	now  func() time.Time
}

func newFakeSubscriptionRepo(now func() time.Time) *fakeSubscriptionRepo {
	return &fakeSubscriptionRepo{subs: map[uuid.UUID]db_models.Subscription{}, now: now}
}

func (f *fakeSubscriptionRepo) FindByUserId(_ context.Context, userID uuid.UUID) (*db_models.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.subs[userID]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (f *fakeSubscriptionRepo) FindByCustomerId(_ context.Context, customerID string) (*db_models.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.subs {
		if s.ProviderCustomerID == customerID {
			s := s
			return &s, nil
		}
	}
	return nil, nil
}

func (f *fakeSubscriptionRepo) EnsurePlaceholder(ctx context.Context, userID uuid.UUID, customerID string) (*db_models.Subscription, error) {
	f.mu.Lock()
	s, ok := f.subs[userID]
	if !ok {
		s = db_models.Subscription{UserID: userID, Plan: db_models.PlanNone, Status: db_models.SubStatusInactive}
		stamp(&s.BaseModel, f.now())
	}
	s.ProviderCustomerID = customerID
	f.subs[userID] = s
	f.mu.Unlock()
	return f.FindByUserId(ctx, userID)
}

func (f *fakeSubscriptionRepo) Upsert(_ context.Context, sub *db_models.Subscription) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.subs[sub.UserID]; ok {
		sub.ID = existing.ID
		sub.CreatedAt = existing.CreatedAt
	}
	stamp(&sub.BaseModel, f.now())
	f.subs[sub.UserID] = *sub
	return nil
}

func (f *fakeSubscriptionRepo) put(sub db_models.Subscription) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stamp(&sub.BaseModel, f.now())
	f.subs[sub.UserID] = sub
}

// reviews

type fakeReviewRepo struct {
	mu      sync.Mutex
	reviews []db_models.CodeReview
	users   *fakeAccountRepo
	now     func() time.Time
}

func (f *fakeReviewRepo) countLocked(userID uuid.UUID, since time.Time) int64 {
	var n int64
	for _, r := range f.reviews {
		if r.UserID == userID && (since.IsZero() || !r.CreatedAt.Before(since)) {
			n++
		}
	}
	return n
}

func (f *fakeReviewRepo) CountByUser(_ context.Context, userID uuid.UUID, since time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.countLocked(userID, since), nil
}

func (f *fakeReviewRepo) CreateWithinQuota(ctx context.Context, review *db_models.CodeReview, limit int64, since time.Time) (int64, error) {
	if f.users != nil {
		if u, _ := f.users.FindById(ctx, review.UserID); u == nil {
			return 0, gorm.ErrRecordNotFound
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	used := f.countLocked(review.UserID, since)
	if limit >= 0 && used >= limit {
		return used, repositories.ErrQuotaReached
	}
	stamp(&review.BaseModel, f.now())
	f.reviews = append(f.reviews, *review)
	return used + 1, nil
}

func (f *fakeReviewRepo) ListByUser(_ context.Context, userID uuid.UUID, offset, limit int) ([]db_models.CodeReview, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var mine []db_models.CodeReview
	for _, r := range f.reviews {
		if r.UserID == userID {
			mine = append(mine, r)
		}
	}
	sort.SliceStable(mine, func(i, j int) bool { return mine[i].CreatedAt.After(mine[j].CreatedAt) })
	total := int64(len(mine))
	if offset >= len(mine) {
		return []db_models.CodeReview{}, total, nil
	}
	end := offset + limit
	if end > len(mine) {
		end = len(mine)
	}
	return mine[offset:end], total, nil
}

func (f *fakeReviewRepo) FindByIdForUser(_ context.Context, id, userID uuid.UUID) (*db_models.CodeReview, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.reviews {
		if r.ID == id && r.UserID == userID {
			r := r
			return &r, nil
		}
	}
	return nil, nil
}

func (f *fakeReviewRepo) DeleteForUser(_ context.Context, id, userID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, r := range f.reviews {
		if r.ID == id && r.UserID == userID {
			f.reviews = append(f.reviews[:i], f.reviews[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeReviewRepo) seed(userID uuid.UUID, n int, at time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := 0; i < n; i++ {
		r := db_models.CodeReview{UserID: userID, Code: "x", Review: "ok", Status: db_models.ReviewStatusCompleted}
		stamp(&r.BaseModel, at)
		f.reviews = append(f.reviews, r)
	}
}

// billing events

type fakeBillingEventRepo struct {
	mu     sync.Mutex
	events map[string]db_models.BillingEvent
}

func (f *fakeBillingEventRepo) FindByEventId(_ context.Context, id string) (*db_models.BillingEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.events[id]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (f *fakeBillingEventRepo) Save(_ context.Context, e *db_models.BillingEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stamp(&e.BaseModel, time.Now())
	f.events[e.ProviderEventID] = *e
	return nil
}

// mail

type sentCode struct {
	Code            string
	IsLogin2FA      bool
	IsPasswordReset bool
}

type fakeMailer struct {
	mu          sync.Mutex
	codes       map[string][]sentCode
	resetTokens map[string][]string
}

func newFakeMailer() *fakeMailer {
	return &fakeMailer{codes: map[string][]sentCode{}, resetTokens: map[string][]string{}}
}

func (f *fakeMailer) SendVerificationEmail(to, code, _ string, isLogin2FA, isPasswordReset bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.codes[to] = append(f.codes[to], sentCode{Code: code, IsLogin2FA: isLogin2FA, IsPasswordReset: isPasswordReset})
}

func (f *fakeMailer) SendPasswordResetEmail(to, _, token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resetTokens[to] = append(f.resetTokens[to], token)
}

func (f *fakeMailer) lastCode(email string) sentCode {
	f.mu.Lock()
	defer f.mu.Unlock()
	codes := f.codes[email]
	if len(codes) == 0 {
		return sentCode{}
	}
	return codes[len(codes)-1]
}

func (f *fakeMailer) lastResetToken(email string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	tokens := f.resetTokens[email]
	if len(tokens) == 0 {
		return ""
	}
	return tokens[len(tokens)-1]
}

// ai reviewer

type fakeReviewer struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeReviewer) ReviewCode(_ context.Context, input utils.CodeReviewInput) (*utils.CodeReviewOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &utils.CodeReviewOutput{Review: "Looks fine. " + input.FileName, Score: 80, IssuesFound: 1}, nil
}

func (f *fakeReviewer) Close() error { return nil }

// billing gateway

type fakeGateway struct {
	secret        string
	customers     map[string]uuid.UUID
	created       []string
	lastCheckout  CheckoutParams
	checkoutCalls int
	lookupErr     error
}

func newFakeGateway(secret string) *fakeGateway {
	return &fakeGateway{secret: secret, customers: map[string]uuid.UUID{}}
}

func (g *fakeGateway) ConstructEvent(payload []byte, signature string) (stripe.Event, error) {
	return webhook.ConstructEventWithOptions(payload, signature, g.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
}

func (g *fakeGateway) CreateCustomer(_ context.Context, userID uuid.UUID, _, _ string) (string, error) {
	id := "cus_" + userID.String()[:8]
	g.customers[id] = userID
	g.created = append(g.created, id)
	return id, nil
}

func (g *fakeGateway) CustomerUserID(_ context.Context, customerID string) (uuid.UUID, bool, error) {
	if g.lookupErr != nil {
		return uuid.Nil, false, g.lookupErr
	}
	id, ok := g.customers[customerID]
	return id, ok, nil
}

func (g *fakeGateway) CreateCheckoutSession(_ context.Context, p CheckoutParams) (string, error) {
	g.lastCheckout = p
	g.checkoutCalls++
	return "https://checkout.stripe.test/" + p.CustomerID, nil
}

func (g *fakeGateway) CreatePortalSession(_ context.Context, customerID, _ string) (string, error) {
	return "https://billing.stripe.test/" + customerID, nil
}
