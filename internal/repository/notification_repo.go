package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/Ryan-Karimov/notification-service/internal/domain"
)

type ListParams struct {
	APIKeyID string
	Status   *domain.Status
	Channel  *domain.Channel
	Priority *domain.Priority
	From     *time.Time
	To       *time.Time
	Limit    int
	Offset   int
}

type NotificationRepository interface {
	Create(ctx context.Context, n *domain.Notification) error
	CreateMany(ctx context.Context, notifications []*domain.Notification) error
	FindByID(ctx context.Context, id string) (*domain.Notification, error)
	List(ctx context.Context, params ListParams) ([]domain.Notification, int64, error)
	MarkAsQueued(ctx context.Context, id string) error
	MarkQueuedIfScheduled(ctx context.Context, id string) (bool, error)
	MarkScheduledIfQueued(ctx context.Context, id string) (bool, error)
	MarkAsProcessing(ctx context.Context, id string) (*domain.Notification, error)
	MarkAsSent(ctx context.Context, id string, sentAt time.Time) error
	MarkAsFailed(ctx context.Context, id string, errorMessage string, nextRetryAt *time.Time) error
	ClearNextRetryAt(ctx context.Context, id string) error
	Cancel(ctx context.Context, id, apiKeyID string) error
	FindScheduled(ctx context.Context, now time.Time, limit int) ([]domain.Notification, error)
	FindRetryable(ctx context.Context, now time.Time, limit int) ([]domain.Notification, error)
}

type GormNotificationRepo struct {
	db *gorm.DB
}

func NewGormNotificationRepo(db *gorm.DB) *GormNotificationRepo {
	return &GormNotificationRepo{db: db}
}

func (r *GormNotificationRepo) Create(ctx context.Context, n *domain.Notification) error {
	model := notificationModelFromDomain(n)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	if n != nil {
		*n = *notificationModelToDomain(model)
	}
	return nil
}

func (r *GormNotificationRepo) CreateMany(ctx context.Context, notifications []*domain.Notification) error {
	models := make([]NotificationModel, 0, len(notifications))
	modelIndexes := make([]int, 0, len(notifications))
	for i, n := range notifications {
		model := notificationModelFromDomain(n)
		if model != nil {
			models = append(models, *model)
			modelIndexes = append(modelIndexes, i)
		}
	}

	if len(models) == 0 {
		return nil
	}

	if err := r.db.WithContext(ctx).CreateInBatches(&models, 100).Error; err != nil {
		return err
	}

	for i := range models {
		idx := modelIndexes[i]
		if idx < len(notifications) && notifications[idx] != nil {
			*notifications[idx] = *notificationModelToDomain(&models[i])
		}
	}

	return nil
}

func (r *GormNotificationRepo) FindByID(ctx context.Context, id string) (*domain.Notification, error) {
	var model NotificationModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return notificationModelToDomain(&model), nil
}

func (r *GormNotificationRepo) List(ctx context.Context, params ListParams) ([]domain.Notification, int64, error) {
	query := r.db.WithContext(ctx).Model(&NotificationModel{}).
		Where("api_key_id = ?", params.APIKeyID)

	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.Channel != nil {
		query = query.Where("channel = ?", *params.Channel)
	}
	if params.Priority != nil {
		query = query.Where("priority = ?", *params.Priority)
	}
	if params.From != nil {
		query = query.Where("created_at >= ?", *params.From)
	}
	if params.To != nil {
		query = query.Where("created_at <= ?", *params.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := params.Limit
	if limit < 1 {
		limit = 20
	}
	limit = min(limit, 100)

	offset := max(params.Offset, 0)

	var models []NotificationModel
	err := query.
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, 0, err
	}

	notifications := make([]domain.Notification, 0, len(models))
	for i := range models {
		notifications = append(notifications, *notificationModelToDomain(&models[i]))
	}

	return notifications, total, nil
}

func (r *GormNotificationRepo) MarkAsQueued(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).
		Model(&NotificationModel{}).
		Where("id = ?", id).
		Update("status", domain.StatusQueued)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// MarkQueuedIfScheduled claims a scheduled notification for publishing. The
// conditional update means only one scheduler scan wins when the row is
// picked up twice; a false return tells the caller to skip publishing.
func (r *GormNotificationRepo) MarkQueuedIfScheduled(ctx context.Context, id string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&NotificationModel{}).
		Where("id = ? AND status = ?", id, domain.StatusScheduled).
		Update("status", domain.StatusQueued)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// MarkScheduledIfQueued releases a claim taken by MarkQueuedIfScheduled when
// the follow-up publish fails, so a later scan can pick the row up again.
// The condition keeps it from undoing a consumer that already advanced the
// row to processing.
func (r *GormNotificationRepo) MarkScheduledIfQueued(ctx context.Context, id string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&NotificationModel{}).
		Where("id = ? AND status = ?", id, domain.StatusQueued).
		Update("status", domain.StatusScheduled)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// MarkAsProcessing moves the row to processing and consumes one attempt,
// then returns the fresh row so the caller sees the incremented count.
func (r *GormNotificationRepo) MarkAsProcessing(ctx context.Context, id string) (*domain.Notification, error) {
	result := r.db.WithContext(ctx).
		Model(&NotificationModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":        domain.StatusProcessing,
			"attempt_count": gorm.Expr("attempt_count + 1"),
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, domain.ErrNotFound
	}

	return r.FindByID(ctx, id)
}

func (r *GormNotificationRepo) MarkAsSent(ctx context.Context, id string, sentAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&NotificationModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":        domain.StatusSent,
			"sent_at":       sentAt,
			"error_message": nil,
			"next_retry_at": nil,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// MarkAsFailed records a failed attempt. With a nextRetryAt the row stays in
// processing awaiting the retry scan; without one the failure is final.
func (r *GormNotificationRepo) MarkAsFailed(ctx context.Context, id string, errorMessage string, nextRetryAt *time.Time) error {
	status := domain.StatusFailed
	if nextRetryAt != nil {
		status = domain.StatusProcessing
	}

	result := r.db.WithContext(ctx).
		Model(&NotificationModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":        status,
			"error_message": errorMessage,
			"next_retry_at": nextRetryAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GormNotificationRepo) ClearNextRetryAt(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Model(&NotificationModel{}).
		Where("id = ?", id).
		Update("next_retry_at", nil).Error
}

func (r *GormNotificationRepo) Cancel(ctx context.Context, id, apiKeyID string) error {
	result := r.db.WithContext(ctx).
		Model(&NotificationModel{}).
		Where("id = ? AND api_key_id = ? AND status IN ?", id, apiKeyID,
			[]domain.Status{domain.StatusPending, domain.StatusScheduled, domain.StatusQueued}).
		Update("status", domain.StatusCancelled)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrConflict
	}
	return nil
}

func (r *GormNotificationRepo) FindScheduled(ctx context.Context, now time.Time, limit int) ([]domain.Notification, error) {
	var models []NotificationModel
	err := r.db.WithContext(ctx).
		Where("status = ? AND scheduled_at <= ?", domain.StatusScheduled, now).
		Order("scheduled_at ASC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	notifications := make([]domain.Notification, 0, len(models))
	for i := range models {
		notifications = append(notifications, *notificationModelToDomain(&models[i]))
	}

	return notifications, nil
}

func (r *GormNotificationRepo) FindRetryable(ctx context.Context, now time.Time, limit int) ([]domain.Notification, error) {
	var models []NotificationModel
	err := r.db.WithContext(ctx).
		Where("status = ? AND next_retry_at IS NOT NULL AND next_retry_at <= ? AND attempt_count < max_attempts",
			domain.StatusProcessing, now).
		Order("next_retry_at ASC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	notifications := make([]domain.Notification, 0, len(models))
	for i := range models {
		notifications = append(notifications, *notificationModelToDomain(&models[i]))
	}

	return notifications, nil
}
