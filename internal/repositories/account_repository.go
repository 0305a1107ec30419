package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"codereview/internal/models/db_models"
)

type AccountRepository interface {
	Insert(ctx context.Context, user *db_models.User) error
	FindById(ctx context.Context, id uuid.UUID) (*db_models.User, error)
	FindByEmail(ctx context.Context, email string) (*db_models.User, error)
	MarkEmailVerified(ctx context.Context, id uuid.UUID, at time.Time) error
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	UpdateProfile(ctx context.Context, id uuid.UUID, firstName, lastName, phone string) error
}

type accountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepository{
		db: db,
	}
}

func (a *accountRepository) Insert(ctx context.Context, user *db_models.User) error {
	err := a.db.WithContext(ctx).Create(user).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	return err
}

func (a *accountRepository) FindById(ctx context.Context, id uuid.UUID) (*db_models.User, error) {
	var user db_models.User
	err := a.db.WithContext(ctx).First(&user, "id = ?", id).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &user, nil
}

func (a *accountRepository) FindByEmail(ctx context.Context, email string) (*db_models.User, error) {
	var user db_models.User
	err := a.db.WithContext(ctx).First(&user, "email = ?", email).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &user, nil
}

func (a *accountRepository) MarkEmailVerified(ctx context.Context, id uuid.UUID, at time.Time) error {
	return a.db.WithContext(ctx).
		Model(&db_models.User{}).
		Where("id = ? AND email_verified_at IS NULL", id).
		Update("email_verified_at", at).Error
}

func (a *accountRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	return a.db.WithContext(ctx).
		Model(&db_models.User{}).
		Where("id = ?", id).
		Update("password_hash", passwordHash).Error
}

func (a *accountRepository) UpdateProfile(ctx context.Context, id uuid.UUID, firstName, lastName, phone string) error {
	return a.db.WithContext(ctx).
		Model(&db_models.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"first_name": firstName,
			"last_name":  lastName,
			"phone":      phone,
		}).Error
}
