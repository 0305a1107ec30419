package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"codereview/internal/models/db_models"
)

type ReviewRepository interface {
	// CountByUser counts reviews created at or after since; a zero since counts all.
	CountByUser(ctx context.Context, userID uuid.UUID, since time.Time) (int64, error)
	// CreateWithinQuota locks the owner row, recounts and inserts only while
	// the count is below limit. A negative limit means unlimited. On
	// ErrQuotaReached the returned count is the usage that blocked the insert.
	CreateWithinQuota(ctx context.Context, review *db_models.CodeReview, limit int64, since time.Time) (int64, error)
	ListByUser(ctx context.Context, userID uuid.UUID, offset, limit int) ([]db_models.CodeReview, int64, error)
	FindByIdForUser(ctx context.Context, id, userID uuid.UUID) (*db_models.CodeReview, error)
	DeleteForUser(ctx context.Context, id, userID uuid.UUID) (bool, error)
}

type reviewRepository struct {
	db *gorm.DB
}

func NewReviewRepository(db *gorm.DB) ReviewRepository {
	return &reviewRepository{db: db}
}

func countQuery(db *gorm.DB, userID uuid.UUID, since time.Time) *gorm.DB {
	q := db.Model(&db_models.CodeReview{}).Where("user_id = ?", userID)
	if !since.IsZero() {
		q = q.Where("created_at >= ?", since)
	}
	return q
}

func (r *reviewRepository) CountByUser(ctx context.Context, userID uuid.UUID, since time.Time) (int64, error) {
	var count int64
	err := countQuery(r.db.WithContext(ctx), userID, since).Count(&count).Error
	return count, err
}

func (r *reviewRepository) CreateWithinQuota(ctx context.Context, review *db_models.CodeReview, limit int64, since time.Time) (int64, error) {
	var used int64

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// serializes concurrent submissions of the same user
		var owner db_models.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id").
			First(&owner, "id = ?", review.UserID).Error; err != nil {
			return err
		}

		if err := countQuery(tx, review.UserID, since).Count(&used).Error; err != nil {
			return err
		}
		if limit >= 0 && used >= limit {
			return ErrQuotaReached
		}

		return tx.Create(review).Error
	})
	if err != nil {
		return used, err
	}

	return used + 1, nil
}

func (r *reviewRepository) ListByUser(ctx context.Context, userID uuid.UUID, offset, limit int) ([]db_models.CodeReview, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).
		Model(&db_models.CodeReview{}).
		Where("user_id = ?", userID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var reviews []db_models.CodeReview
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&reviews).Error
	if err != nil {
		return nil, 0, err
	}

	return reviews, total, nil
}

func (r *reviewRepository) FindByIdForUser(ctx context.Context, id, userID uuid.UUID) (*db_models.CodeReview, error) {
	var review db_models.CodeReview
	err := r.db.WithContext(ctx).
		First(&review, "id = ? AND user_id = ?", id, userID).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &review, nil
}

func (r *reviewRepository) DeleteForUser(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&db_models.CodeReview{})
	return res.RowsAffected == 1, res.Error
}
