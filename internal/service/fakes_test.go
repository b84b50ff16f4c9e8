package service

import (
	"context"
	"time"

	"github.com/Ryan-Karimov/notification-service/internal/domain"
	"github.com/Ryan-Karimov/notification-service/internal/queue"
	"github.com/Ryan-Karimov/notification-service/internal/repository"
)

type fakeNotificationRepo struct {
	createFn                func(ctx context.Context, n *domain.Notification) error
	createManyFn            func(ctx context.Context, notifications []*domain.Notification) error
	findByIDFn              func(ctx context.Context, id string) (*domain.Notification, error)
	listFn                  func(ctx context.Context, params repository.ListParams) ([]domain.Notification, int64, error)
	markAsQueuedFn          func(ctx context.Context, id string) error
	markQueuedIfScheduledFn func(ctx context.Context, id string) (bool, error)
	markScheduledIfQueuedFn func(ctx context.Context, id string) (bool, error)
	markAsProcessingFn      func(ctx context.Context, id string) (*domain.Notification, error)
	markAsSentFn            func(ctx context.Context, id string, sentAt time.Time) error
	markAsFailedFn          func(ctx context.Context, id string, errorMessage string, nextRetryAt *time.Time) error
	clearNextRetryAtFn      func(ctx context.Context, id string) error
	cancelFn                func(ctx context.Context, id, apiKeyID string) error
	findScheduledFn         func(ctx context.Context, now time.Time, limit int) ([]domain.Notification, error)
	findRetryableFn         func(ctx context.Context, now time.Time, limit int) ([]domain.Notification, error)
}

func (f *fakeNotificationRepo) Create(ctx context.Context, n *domain.Notification) error {
	if f.createFn != nil {
		return f.createFn(ctx, n)
	}
	return nil
}

func (f *fakeNotificationRepo) CreateMany(ctx context.Context, notifications []*domain.Notification) error {
	if f.createManyFn != nil {
		return f.createManyFn(ctx, notifications)
	}
	return nil
}

func (f *fakeNotificationRepo) FindByID(ctx context.Context, id string) (*domain.Notification, error) {
	if f.findByIDFn != nil {
		return f.findByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (f *fakeNotificationRepo) List(ctx context.Context, params repository.ListParams) ([]domain.Notification, int64, error) {
	if f.listFn != nil {
		return f.listFn(ctx, params)
	}
	return nil, 0, nil
}

func (f *fakeNotificationRepo) MarkAsQueued(ctx context.Context, id string) error {
	if f.markAsQueuedFn != nil {
		return f.markAsQueuedFn(ctx, id)
	}
	return nil
}

func (f *fakeNotificationRepo) MarkQueuedIfScheduled(ctx context.Context, id string) (bool, error) {
	if f.markQueuedIfScheduledFn != nil {
		return f.markQueuedIfScheduledFn(ctx, id)
	}
	return true, nil
}

func (f *fakeNotificationRepo) MarkScheduledIfQueued(ctx context.Context, id string) (bool, error) {
	if f.markScheduledIfQueuedFn != nil {
		return f.markScheduledIfQueuedFn(ctx, id)
	}
	return true, nil
}

func (f *fakeNotificationRepo) MarkAsProcessing(ctx context.Context, id string) (*domain.Notification, error) {
	if f.markAsProcessingFn != nil {
		return f.markAsProcessingFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (f *fakeNotificationRepo) MarkAsSent(ctx context.Context, id string, sentAt time.Time) error {
	if f.markAsSentFn != nil {
		return f.markAsSentFn(ctx, id, sentAt)
	}
	return nil
}

func (f *fakeNotificationRepo) MarkAsFailed(ctx context.Context, id string, errorMessage string, nextRetryAt *time.Time) error {
	if f.markAsFailedFn != nil {
		return f.markAsFailedFn(ctx, id, errorMessage, nextRetryAt)
	}
	return nil
}

func (f *fakeNotificationRepo) ClearNextRetryAt(ctx context.Context, id string) error {
	if f.clearNextRetryAtFn != nil {
		return f.clearNextRetryAtFn(ctx, id)
	}
	return nil
}

func (f *fakeNotificationRepo) Cancel(ctx context.Context, id, apiKeyID string) error {
	if f.cancelFn != nil {
		return f.cancelFn(ctx, id, apiKeyID)
	}
	return nil
}

func (f *fakeNotificationRepo) FindScheduled(ctx context.Context, now time.Time, limit int) ([]domain.Notification, error) {
	if f.findScheduledFn != nil {
		return f.findScheduledFn(ctx, now, limit)
	}
	return nil, nil
}

func (f *fakeNotificationRepo) FindRetryable(ctx context.Context, now time.Time, limit int) ([]domain.Notification, error) {
	if f.findRetryableFn != nil {
		return f.findRetryableFn(ctx, now, limit)
	}
	return nil, nil
}

type fakeAttemptRepo struct {
	createFn              func(ctx context.Context, a *domain.DeliveryAttempt) error
	getByNotificationIDFn func(ctx context.Context, notificationID string) ([]domain.DeliveryAttempt, error)
}

func (f *fakeAttemptRepo) Create(ctx context.Context, a *domain.DeliveryAttempt) error {
	if f.createFn != nil {
		return f.createFn(ctx, a)
	}
	return nil
}

func (f *fakeAttemptRepo) GetByNotificationID(ctx context.Context, notificationID string) ([]domain.DeliveryAttempt, error) {
	if f.getByNotificationIDFn != nil {
		return f.getByNotificationIDFn(ctx, notificationID)
	}
	return nil, nil
}

type fakeAPIKeyRepo struct {
	findByIDFn  func(ctx context.Context, id string) (*domain.APIKey, error)
	findByKeyFn func(ctx context.Context, key string) (*domain.APIKey, error)
}

func (f *fakeAPIKeyRepo) FindByID(ctx context.Context, id string) (*domain.APIKey, error) {
	if f.findByIDFn != nil {
		return f.findByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (f *fakeAPIKeyRepo) FindByKey(ctx context.Context, key string) (*domain.APIKey, error) {
	if f.findByKeyFn != nil {
		return f.findByKeyFn(ctx, key)
	}
	return nil, domain.ErrNotFound
}

type fakeTemplateRepo struct {
	createFn     func(ctx context.Context, t *domain.Template) error
	findByIDFn   func(ctx context.Context, id, apiKeyID string) (*domain.Template, error)
	findByCodeFn func(ctx context.Context, apiKeyID, code string) (*domain.Template, error)
	listFn       func(ctx context.Context, apiKeyID string) ([]domain.Template, error)
	updateFn     func(ctx context.Context, t *domain.Template) error
	deleteFn     func(ctx context.Context, id, apiKeyID string) error
}

func (f *fakeTemplateRepo) Create(ctx context.Context, t *domain.Template) error {
	if f.createFn != nil {
		return f.createFn(ctx, t)
	}
	return nil
}

func (f *fakeTemplateRepo) FindByID(ctx context.Context, id, apiKeyID string) (*domain.Template, error) {
	if f.findByIDFn != nil {
		return f.findByIDFn(ctx, id, apiKeyID)
	}
	return nil, domain.ErrNotFound
}

func (f *fakeTemplateRepo) FindByCode(ctx context.Context, apiKeyID, code string) (*domain.Template, error) {
	if f.findByCodeFn != nil {
		return f.findByCodeFn(ctx, apiKeyID, code)
	}
	return nil, domain.ErrNotFound
}

func (f *fakeTemplateRepo) List(ctx context.Context, apiKeyID string) ([]domain.Template, error) {
	if f.listFn != nil {
		return f.listFn(ctx, apiKeyID)
	}
	return nil, nil
}

func (f *fakeTemplateRepo) Update(ctx context.Context, t *domain.Template) error {
	if f.updateFn != nil {
		return f.updateFn(ctx, t)
	}
	return nil
}

func (f *fakeTemplateRepo) Delete(ctx context.Context, id, apiKeyID string) error {
	if f.deleteFn != nil {
		return f.deleteFn(ctx, id, apiKeyID)
	}
	return nil
}

type fakePublisher struct {
	publishNotificationFn func(ctx context.Context, msg queue.NotificationMessage) error
	publishScheduledFn    func(ctx context.Context, msg queue.NotificationMessage) error
	publishWebhookFn      func(ctx context.Context, msg queue.WebhookMessage) error
	closeFn               func() error
}

func (f *fakePublisher) PublishNotification(ctx context.Context, msg queue.NotificationMessage) error {
	if f.publishNotificationFn != nil {
		return f.publishNotificationFn(ctx, msg)
	}
	return nil
}

func (f *fakePublisher) PublishScheduled(ctx context.Context, msg queue.NotificationMessage) error {
	if f.publishScheduledFn != nil {
		return f.publishScheduledFn(ctx, msg)
	}
	return nil
}

func (f *fakePublisher) PublishWebhook(ctx context.Context, msg queue.WebhookMessage) error {
	if f.publishWebhookFn != nil {
		return f.publishWebhookFn(ctx, msg)
	}
	return nil
}

func (f *fakePublisher) Close() error {
	if f.closeFn != nil {
		return f.closeFn()
	}
	return nil
}

type fakeConsumer struct {
	consumeFn func(ctx context.Context, queueName string, handler queue.Handler) error
	closeFn   func() error
}

func (f *fakeConsumer) Consume(ctx context.Context, queueName string, handler queue.Handler) error {
	if f.consumeFn != nil {
		return f.consumeFn(ctx, queueName, handler)
	}
	return nil
}

func (f *fakeConsumer) Close() error {
	if f.closeFn != nil {
		return f.closeFn()
	}
	return nil
}
