package mem

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const pendingLoginPrefix = "pending_login:"

// RedisPendingLogins shares pending logins between API replicas.
type RedisPendingLogins struct {
	client *redis.Client
}

func NewRedisPendingLogins(client *redis.Client) *RedisPendingLogins {
	return &RedisPendingLogins{client: client}
}

func (s *RedisPendingLogins) Put(ctx context.Context, login PendingLogin, ttl time.Duration) error {
	b, err := json.Marshal(login)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, pendingLoginPrefix+pendingKey(login.Email), b, ttl).Err(); err != nil {
		return fmt.Errorf("store pending login: %w", err)
	}
	return nil
}

func (s *RedisPendingLogins) Peek(ctx context.Context, email string) (*PendingLogin, error) {
	raw, err := s.client.Get(ctx, pendingLoginPrefix+pendingKey(email)).Bytes()
	return decodePendingLogin(raw, err)
}

func (s *RedisPendingLogins) Take(ctx context.Context, email string) (*PendingLogin, error) {
	raw, err := s.client.GetDel(ctx, pendingLoginPrefix+pendingKey(email)).Bytes()
	return decodePendingLogin(raw, err)
}

func decodePendingLogin(raw []byte, err error) (*PendingLogin, error) {
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load pending login: %w", err)
	}

	var login PendingLogin
	if err := json.Unmarshal(raw, &login); err != nil {
		return nil, fmt.Errorf("decode pending login: %w", err)
	}
	return &login, nil
}
