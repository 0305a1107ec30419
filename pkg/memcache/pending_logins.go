// pkg/memcache/pending_logins.go
package mem

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// PendingLogin is the state between a successful password check and the
// second factor.
type PendingLogin struct {
	UserID   uuid.UUID `json:"user_id"`
	Email    string    `json:"email"`
	IssuedAt time.Time `json:"issued_at"`
}

type PendingLoginStore interface {
	Put(ctx context.Context, login PendingLogin, ttl time.Duration) error

	// Peek reads without consuming. Returns nil if missing or expired.
	Peek(ctx context.Context, email string) (*PendingLogin, error)

	// Take returns the pending login and removes it (single use).
	Take(ctx context.Context, email string) (*PendingLogin, error)
}

type entry struct {
	login     PendingLogin
	expiresAt time.Time
}

type PendingLogins struct {
	mu   sync.Mutex
	data map[string]entry
	now  func() time.Time
}

func NewPendingLogins() *PendingLogins {
	return NewPendingLoginsWithClock(time.Now)
}

func NewPendingLoginsWithClock(now func() time.Time) *PendingLogins {
	return &PendingLogins{
		data: make(map[string]entry),
		now:  now,
	}
}

func pendingKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *PendingLogins) Put(_ context.Context, login PendingLogin, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked()
	s.data[pendingKey(login.Email)] = entry{
		login:     login,
		expiresAt: s.now().Add(ttl),
	}
	return nil
}

func (s *PendingLogins) Peek(_ context.Context, email string) (*PendingLogin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.data[pendingKey(email)]
	if !ok {
		return nil, nil
	}
	if !s.now().Before(e.expiresAt) {
		delete(s.data, pendingKey(email))
		return nil, nil
	}
	login := e.login
	return &login, nil
}

func (s *PendingLogins) Take(ctx context.Context, email string) (*PendingLogin, error) {
	login, err := s.Peek(ctx, email)
	if err != nil || login == nil {
		return login, err
	}

	s.mu.Lock()
	delete(s.data, pendingKey(email))
	s.mu.Unlock()
	return login, nil
}

// sweepLocked drops expired entries so abandoned logins do not accumulate.
func (s *PendingLogins) sweepLocked() {
	now := s.now()
	for k, e := range s.data {
		if !now.Before(e.expiresAt) {
			delete(s.data, k)
		}
	}
}
