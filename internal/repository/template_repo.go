package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/Ryan-Karimov/notification-service/internal/domain"
)

type TemplateRepository interface {
	Create(ctx context.Context, t *domain.Template) error
	FindByID(ctx context.Context, id, apiKeyID string) (*domain.Template, error)
	FindByCode(ctx context.Context, apiKeyID, code string) (*domain.Template, error)
	List(ctx context.Context, apiKeyID string) ([]domain.Template, error)
	Update(ctx context.Context, t *domain.Template) error
	Delete(ctx context.Context, id, apiKeyID string) error
}

type GormTemplateRepo struct {
	db *gorm.DB
}

func NewGormTemplateRepo(db *gorm.DB) *GormTemplateRepo {
	return &GormTemplateRepo{db: db}
}

func (r *GormTemplateRepo) Create(ctx context.Context, t *domain.Template) error {
	model := templateModelFromDomain(t)
	err := r.db.WithContext(ctx).Create(model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.ErrConflict
		}
		return err
	}
	if t != nil {
		*t = *templateModelToDomain(model)
	}
	return nil
}

func (r *GormTemplateRepo) FindByID(ctx context.Context, id, apiKeyID string) (*domain.Template, error) {
	var model TemplateModel
	err := r.db.WithContext(ctx).
		Where("id = ? AND api_key_id = ?", id, apiKeyID).
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return templateModelToDomain(&model), nil
}

func (r *GormTemplateRepo) FindByCode(ctx context.Context, apiKeyID, code string) (*domain.Template, error) {
	var model TemplateModel
	err := r.db.WithContext(ctx).
		Where("api_key_id = ? AND code = ?", apiKeyID, code).
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return templateModelToDomain(&model), nil
}

func (r *GormTemplateRepo) List(ctx context.Context, apiKeyID string) ([]domain.Template, error) {
	var models []TemplateModel
	err := r.db.WithContext(ctx).
		Where("api_key_id = ?", apiKeyID).
		Order("created_at DESC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	templates := make([]domain.Template, 0, len(models))
	for i := range models {
		templates = append(templates, *templateModelToDomain(&models[i]))
	}

	return templates, nil
}

func (r *GormTemplateRepo) Update(ctx context.Context, t *domain.Template) error {
	model := templateModelFromDomain(t)
	result := r.db.WithContext(ctx).
		Model(&TemplateModel{}).
		Where("id = ? AND api_key_id = ?", t.ID, t.APIKeyID).
		Select("name", "channel", "subject", "body", "variables").
		Updates(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GormTemplateRepo) Delete(ctx context.Context, id, apiKeyID string) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND api_key_id = ?", id, apiKeyID).
		Delete(&TemplateModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
