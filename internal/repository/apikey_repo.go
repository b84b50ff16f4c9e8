package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/Ryan-Karimov/notification-service/internal/domain"
)

type APIKeyRepository interface {
	FindByID(ctx context.Context, id string) (*domain.APIKey, error)
	FindByKey(ctx context.Context, key string) (*domain.APIKey, error)
}

type GormAPIKeyRepo struct {
	db *gorm.DB
}

func NewGormAPIKeyRepo(db *gorm.DB) *GormAPIKeyRepo {
	return &GormAPIKeyRepo{db: db}
}

func (r *GormAPIKeyRepo) FindByID(ctx context.Context, id string) (*domain.APIKey, error) {
	var model APIKeyModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return apiKeyModelToDomain(&model), nil
}

// FindByKey resolves an active API key by its secret value. Inactive keys
// are treated as absent so revocation takes effect immediately.
func (r *GormAPIKeyRepo) FindByKey(ctx context.Context, key string) (*domain.APIKey, error) {
	var model APIKeyModel
	err := r.db.WithContext(ctx).
		Where("key = ? AND is_active = ?", key, true).
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return apiKeyModelToDomain(&model), nil
}
