package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Ryan-Karimov/notification-service/internal/domain"
	"github.com/Ryan-Karimov/notification-service/internal/observability"
	"github.com/Ryan-Karimov/notification-service/internal/queue"
	"github.com/Ryan-Karimov/notification-service/internal/repository"
	"github.com/Ryan-Karimov/notification-service/internal/template"
)

const maxBulkSize = 100

// CreateInput carries one creation request. Template fields and inline
// subject/body are mutually exclusive sources of content.
type CreateInput struct {
	Channel      string
	Recipient    string
	Subject      *string
	Body         string
	Priority     string
	ScheduledAt  *time.Time
	TemplateCode string
	Variables    map[string]any
	Metadata     map[string]any
}

type NotificationService struct {
	notifications repository.NotificationRepository
	templates     repository.TemplateRepository
	attempts      repository.AttemptRepository
	publisher     queue.Publisher
	engine        *template.Engine
	metrics       *observability.Metrics
	logger        *zap.Logger
	now           func() time.Time
}

func NewNotificationService(
	notifications repository.NotificationRepository,
	templates repository.TemplateRepository,
	attempts repository.AttemptRepository,
	publisher queue.Publisher,
	engine *template.Engine,
	logger *zap.Logger,
) (*NotificationService, error) {
	if engine == nil {
		engine = template.NewEngine()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &NotificationService{
		notifications: notifications,
		templates:     templates,
		attempts:      attempts,
		publisher:     publisher,
		engine:        engine,
		logger:        logger,
		now:           time.Now,
	}, nil
}

func (s *NotificationService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// Create validates, persists and routes one notification. Immediate
// notifications go straight to their work queue; future-dated ones are
// parked on the scheduled queue for the scheduler to promote.
func (s *NotificationService) Create(ctx context.Context, apiKeyID string, input CreateInput) (*domain.Notification, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	notification, err := s.buildNotification(ctx, apiKeyID, input)
	if err != nil {
		return nil, err
	}

	if err := s.notifications.Create(ctx, notification); err != nil {
		return nil, fmt.Errorf("failed to persist notification: %w", err)
	}

	if s.metrics != nil {
		s.metrics.IncNotificationCreated(string(notification.Channel), string(notification.Priority))
	}

	if err := s.route(ctx, notification); err != nil {
		return nil, err
	}

	return notification, nil
}

// CreateBulk persists and routes up to maxBulkSize notifications. Rows are
// created in one batch; routing failures mark the affected row failed and do
// not abort the rest.
func (s *NotificationService) CreateBulk(ctx context.Context, apiKeyID string, inputs []CreateInput) ([]domain.Notification, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	if len(inputs) == 0 {
		return nil, fmt.Errorf("%w: at least one notification is required", domain.ErrValidation)
	}
	if len(inputs) > maxBulkSize {
		return nil, fmt.Errorf("%w: bulk size exceeds %d", domain.ErrValidation, maxBulkSize)
	}

	notifications := make([]*domain.Notification, len(inputs))
	for i, input := range inputs {
		n, err := s.buildNotification(ctx, apiKeyID, input)
		if err != nil {
			return nil, fmt.Errorf("notification %d: %w", i, err)
		}
		notifications[i] = n
	}

	if err := s.notifications.CreateMany(ctx, notifications); err != nil {
		return nil, fmt.Errorf("failed to persist notifications: %w", err)
	}

	created := make([]domain.Notification, 0, len(notifications))
	for _, n := range notifications {
		if s.metrics != nil {
			s.metrics.IncNotificationCreated(string(n.Channel), string(n.Priority))
		}
		if err := s.route(ctx, n); err != nil {
			s.logger.Error("bulk: failed to route notification",
				zap.String("notificationId", n.ID),
				zap.Error(err),
			)
		}
		created = append(created, *n)
	}

	return created, nil
}

// GetByID returns one notification scoped to the calling API key.
func (s *NotificationService) GetByID(ctx context.Context, apiKeyID, id string) (*domain.Notification, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: notification id is required", domain.ErrValidation)
	}

	notification, err := s.notifications.FindByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, err
	}
	if notification.APIKeyID != apiKeyID {
		return nil, domain.ErrNotFound
	}
	return notification, nil
}

// GetDetail returns one notification together with its delivery attempt
// history, scoped to the calling API key.
func (s *NotificationService) GetDetail(ctx context.Context, apiKeyID, id string) (*domain.Notification, []domain.DeliveryAttempt, error) {
	notification, err := s.GetByID(ctx, apiKeyID, id)
	if err != nil {
		return nil, nil, err
	}

	attempts, err := s.attempts.GetByNotificationID(ctx, notification.ID)
	if err != nil {
		return nil, nil, err
	}
	return notification, attempts, nil
}

func (s *NotificationService) List(ctx context.Context, params repository.ListParams) ([]domain.Notification, int64, error) {
	return s.notifications.List(ctx, params)
}

// Cancel cancels a notification that has not yet been picked up by a worker.
func (s *NotificationService) Cancel(ctx context.Context, apiKeyID, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: notification id is required", domain.ErrValidation)
	}

	err := s.notifications.Cancel(ctx, strings.TrimSpace(id), apiKeyID)
	if errors.Is(err, domain.ErrConflict) {
		notification, findErr := s.notifications.FindByID(ctx, strings.TrimSpace(id))
		if findErr == nil && notification.APIKeyID != apiKeyID {
			return domain.ErrNotFound
		}
		if findErr != nil {
			return findErr
		}
		return fmt.Errorf("%w: cannot cancel notification with status %s", domain.ErrConflict, notification.Status)
	}
	return err
}

func (s *NotificationService) buildNotification(ctx context.Context, apiKeyID string, input CreateInput) (*domain.Notification, error) {
	channel, err := domain.ParseChannelFromString(input.Channel)
	if err != nil {
		return nil, err
	}

	priority := domain.PriorityNormal
	if strings.TrimSpace(input.Priority) != "" {
		priority, err = domain.ParsePriorityFromString(input.Priority)
		if err != nil {
			return nil, err
		}
	}

	subject := normalizeOptionalString(input.Subject)
	body := strings.TrimSpace(input.Body)
	var templateID *string

	if code := strings.TrimSpace(input.TemplateCode); code != "" {
		tpl, err := s.templates.FindByCode(ctx, apiKeyID, code)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, fmt.Errorf("%w: template %q", domain.ErrNotFound, code)
			}
			return nil, err
		}
		if tpl.Channel != channel {
			return nil, fmt.Errorf("%w: template %q is for channel %s, not %s", domain.ErrValidation, code, tpl.Channel, channel)
		}

		rendered, err := s.engine.Render(tpl.Subject, tpl.Body, input.Variables)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
		}

		body = rendered.Body
		if subject == nil {
			subject = rendered.Subject
		}
		templateID = &tpl.ID
	}

	now := s.now().UTC()

	status := domain.StatusPending
	var scheduledAt *time.Time
	if input.ScheduledAt != nil && input.ScheduledAt.After(now) {
		status = domain.StatusScheduled
		at := input.ScheduledAt.UTC()
		scheduledAt = &at
	}

	notification := &domain.Notification{
		ID:          uuid.NewString(),
		APIKeyID:    apiKeyID,
		TemplateID:  templateID,
		Channel:     channel,
		Recipient:   strings.TrimSpace(input.Recipient),
		Subject:     subject,
		Body:        body,
		Priority:    priority,
		ScheduledAt: scheduledAt,
		Status:      status,
		MaxAttempts: domain.DefaultMaxAttempts,
		Metadata:    input.Metadata,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := notification.Validate(); err != nil {
		return nil, err
	}

	return notification, nil
}

// route publishes a freshly created notification. Pending rows are marked
// queued after a successful publish; a publish failure marks the row failed
// so it does not sit in pending forever.
func (s *NotificationService) route(ctx context.Context, n *domain.Notification) error {
	msg := notificationMessage(n)

	if n.Status == domain.StatusScheduled {
		if err := s.publisher.PublishScheduled(ctx, msg); err != nil {
			s.logger.Error("failed to publish scheduled notification",
				zap.String("notificationId", n.ID),
				zap.Error(err),
			)
			return fmt.Errorf("failed to publish scheduled notification: %w", err)
		}
		return nil
	}

	if err := s.publisher.PublishNotification(ctx, msg); err != nil {
		s.logger.Error("failed to publish notification",
			zap.String("notificationId", n.ID),
			zap.String("channel", string(n.Channel)),
			zap.Error(err),
		)
		if markErr := s.notifications.MarkAsFailed(ctx, n.ID, "failed to enqueue", nil); markErr != nil {
			return fmt.Errorf("failed to publish notification: %w (failed to mark as failed: %v)", err, markErr)
		}
		n.Status = domain.StatusFailed
		return fmt.Errorf("failed to publish notification: %w", err)
	}

	if err := s.notifications.MarkAsQueued(ctx, n.ID); err != nil {
		return fmt.Errorf("failed to mark notification as queued: %w", err)
	}
	n.Status = domain.StatusQueued

	return nil
}

func notificationMessage(n *domain.Notification) queue.NotificationMessage {
	return queue.NotificationMessage{
		NotificationID: n.ID,
		APIKeyID:       n.APIKeyID,
		Channel:        string(n.Channel),
		Priority:       string(n.Priority),
		Recipient:      n.Recipient,
		Subject:        n.Subject,
		Body:           n.Body,
		AttemptCount:   n.AttemptCount,
		MaxAttempts:    n.MaxAttempts,
		Metadata:       n.Metadata,
	}
}

func normalizeOptionalString(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
