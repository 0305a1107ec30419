package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"codereview/internal/models/db_models"
)

type SessionRepository interface {
	Create(ctx context.Context, session *db_models.Session) error
	// FindValidByToken returns the session with its user, or nil when the
	// token is unknown or expired at now.
	FindValidByToken(ctx context.Context, token string, now time.Time) (*db_models.Session, error)
	DeleteByToken(ctx context.Context, token string) error
	DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type sessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepository{db: db}
}

func (s *sessionRepository) Create(ctx context.Context, session *db_models.Session) error {
	return s.db.WithContext(ctx).Omit("User").Create(session).Error
}

func (s *sessionRepository) FindValidByToken(ctx context.Context, token string, now time.Time) (*db_models.Session, error) {
	var session db_models.Session
	err := s.db.WithContext(ctx).
		Preload("User").
		Where("token = ? AND expires_at > ?", token, now).
		First(&session).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &session, nil
}

func (s *sessionRepository) DeleteByToken(ctx context.Context, token string) error {
	return s.db.WithContext(ctx).
		Where("token = ?", token).
		Delete(&db_models.Session{}).Error
}

func (s *sessionRepository) DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&db_models.Session{})
	return res.RowsAffected, res.Error
}

func (s *sessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("expires_at <= ?", now).
		Delete(&db_models.Session{})
	return res.RowsAffected, res.Error
}
