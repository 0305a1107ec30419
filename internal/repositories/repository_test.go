package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"codereview/internal/models/db_models"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	return db, mock
}

func TestAccountRepository_FindByEmail(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAccountRepository(db)
	id := uuid.New()

	mock.ExpectQuery(`SELECT \* FROM "users" WHERE email = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password_hash", "otp_secret"}).
			AddRow(id.String(), "dev@example.com", "hash", "secret"))

	user, err := repo.FindByEmail(context.Background(), "dev@example.com")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, id, user.ID)
	assert.Equal(t, "hash", user.PasswordHash)

	mock.ExpectQuery(`SELECT \* FROM "users" WHERE email = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	user, err = repo.FindByEmail(context.Background(), "missing@example.com")
	require.NoError(t, err)
	assert.Nil(t, user)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepository_FindByEmail_Error(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAccountRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "users"`).WillReturnError(errors.New("connection reset"))

	user, err := repo.FindByEmail(context.Background(), "dev@example.com")
	assert.Error(t, err)
	assert.Nil(t, user)
}

func TestReviewRepository_CountByUser(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewReviewRepository(db)
	userID := uuid.New()

	mock.ExpectQuery(`SELECT count\(\*\) FROM "code_reviews" WHERE user_id = \$1 AND created_at >= \$2`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	count, err := repo.CountByUser(context.Background(), userID, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, int64(7), count)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "code_reviews" WHERE user_id = \$1$`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))

	count, err = repo.CountByUser(context.Background(), userID, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, int64(12), count)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_CreateWithinQuota_Blocked(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewReviewRepository(db)
	userID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT "id" FROM "users" WHERE id = \$1 .*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(userID.String()))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "code_reviews"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(5))
	mock.ExpectRollback()

	used, err := repo.CreateWithinQuota(context.Background(), &db_models.CodeReview{
		UserID: userID,
		Code:   "package main",
		Review: "ok",
	}, 5, time.Time{})

	assert.ErrorIs(t, err, ErrQuotaReached)
	assert.Equal(t, int64(5), used)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepository_FindValidByToken_Missing(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSessionRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "sessions" WHERE token = \$1 AND expires_at > \$2`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	session, err := repo.FindValidByToken(context.Background(), "tok", time.Now())
	require.NoError(t, err)
	assert.Nil(t, session)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBillingEventRepository_FindByEventId(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewBillingEventRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "billing_events" WHERE provider_event_id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "provider_event_id", "type", "status"}).
			AddRow(uuid.NewString(), "evt_1", "customer.subscription.updated", "processed"))

	event, err := repo.FindByEventId(context.Background(), "evt_1")
	require.NoError(t, err)
	require.NotNil(t, event)
	assert.True(t, event.Settled())
	require.NoError(t, mock.ExpectationsWereMet())
}
