package mem

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(now *time.Time) *PendingLogins {
	s := NewPendingLogins()
	s.now = func() time.Time { return *now }
	return s
}

func TestPendingLogins_PutPeekTake(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s := newTestStore(&now)
	ctx := context.Background()
	id := uuid.New()

	require.NoError(t, s.Put(ctx, PendingLogin{UserID: id, Email: "A@x.com", IssuedAt: now}, time.Minute))

	got, err := s.Peek(ctx, "a@x.com")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, id, got.UserID)

	got, err = s.Take(ctx, "a@x.com")
	require.NoError(t, err)
	require.NotNil(t, got)

	got, err = s.Take(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Nil(t, got, "pending login must be single use")
}

func TestPendingLogins_Expires(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s := newTestStore(&now)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, PendingLogin{UserID: uuid.New(), Email: "a@x.com"}, time.Minute))

	now = now.Add(time.Minute)
	got, err := s.Peek(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestPendingLogins_PutReplacesPrevious(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s := newTestStore(&now)
	ctx := context.Background()
	second := uuid.New()

	require.NoError(t, s.Put(ctx, PendingLogin{UserID: uuid.New(), Email: "a@x.com"}, time.Minute))
	require.NoError(t, s.Put(ctx, PendingLogin{UserID: second, Email: "a@x.com"}, time.Minute))

	got, err := s.Peek(ctx, "a@x.com")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, second, got.UserID)
}
