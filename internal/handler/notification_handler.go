package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/Ryan-Karimov/notification-service/internal/domain"
	"github.com/Ryan-Karimov/notification-service/internal/repository"
	"github.com/Ryan-Karimov/notification-service/internal/service"
	"github.com/Ryan-Karimov/notification-service/internal/transport"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

type NotificationService interface {
	Create(ctx context.Context, apiKeyID string, input service.CreateInput) (*domain.Notification, error)
	CreateBulk(ctx context.Context, apiKeyID string, inputs []service.CreateInput) ([]domain.Notification, error)
	GetDetail(ctx context.Context, apiKeyID, id string) (*domain.Notification, []domain.DeliveryAttempt, error)
	List(ctx context.Context, params repository.ListParams) ([]domain.Notification, int64, error)
	Cancel(ctx context.Context, apiKeyID, id string) error
}

type NotificationHandler struct {
	service NotificationService
}

func NewNotificationHandler(service NotificationService) (*NotificationHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("notification service is required")
	}
	return &NotificationHandler{service: service}, nil
}

func RegisterNotificationRoutes(router fiber.Router, service NotificationService) error {
	h, err := NewNotificationHandler(service)
	if err != nil {
		return err
	}

	router.Post("/notifications", h.CreateNotification)
	router.Post("/notifications/bulk", h.CreateBulk)
	router.Get("/notifications", h.ListNotifications)
	router.Get("/notifications/:id", h.GetNotification)
	router.Delete("/notifications/:id", h.CancelNotification)

	return nil
}

type createNotificationRequest struct {
	Channel      string         `json:"channel"`
	Recipient    string         `json:"recipient"`
	Subject      *string        `json:"subject,omitempty"`
	Body         string         `json:"body"`
	Priority     string         `json:"priority"`
	ScheduledAt  *time.Time     `json:"scheduledAt,omitempty"`
	TemplateCode string         `json:"templateCode,omitempty"`
	Variables    map[string]any `json:"variables,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

type createBulkRequest struct {
	Notifications []createNotificationRequest `json:"notifications"`
}

type notificationResponse struct {
	ID           string         `json:"id"`
	TemplateID   *string        `json:"templateId,omitempty"`
	Channel      string         `json:"channel"`
	Recipient    string         `json:"recipient"`
	Subject      *string        `json:"subject,omitempty"`
	Body         string         `json:"body"`
	Priority     string         `json:"priority"`
	ScheduledAt  *time.Time     `json:"scheduledAt,omitempty"`
	Status       string         `json:"status"`
	AttemptCount int            `json:"attemptCount"`
	MaxAttempts  int            `json:"maxAttempts"`
	NextRetryAt  *time.Time     `json:"nextRetryAt,omitempty"`
	SentAt       *time.Time     `json:"sentAt,omitempty"`
	ErrorMessage *string        `json:"errorMessage,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

type attemptResponse struct {
	AttemptNumber int       `json:"attemptNumber"`
	Status        string    `json:"status"`
	ErrorMessage  *string   `json:"errorMessage,omitempty"`
	DurationMS    int       `json:"durationMs"`
	CreatedAt     time.Time `json:"createdAt"`
}

type notificationDetailResponse struct {
	notificationResponse
	DeliveryAttempts []attemptResponse `json:"deliveryAttempts"`
}

type createBulkResponse struct {
	Created       int                    `json:"created"`
	Notifications []notificationResponse `json:"notifications"`
}

type listNotificationsResponse struct {
	Data []notificationResponse `json:"data"`
	Meta listMeta               `json:"meta"`
}

type listMeta struct {
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
	Total  int64 `json:"total"`
}

func (h *NotificationHandler) CreateNotification(c *fiber.Ctx) error {
	key, err := transport.APIKeyFromCtx(c)
	if err != nil {
		return err
	}

	var req createNotificationRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	created, err := h.service.Create(c.Context(), key.ID, requestToCreateInput(req))
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(toNotificationResponse(created))
}

func (h *NotificationHandler) CreateBulk(c *fiber.Ctx) error {
	key, err := transport.APIKeyFromCtx(c)
	if err != nil {
		return err
	}

	var req createBulkRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	inputs := make([]service.CreateInput, 0, len(req.Notifications))
	for _, item := range req.Notifications {
		inputs = append(inputs, requestToCreateInput(item))
	}

	created, err := h.service.CreateBulk(c.Context(), key.ID, inputs)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(createBulkResponse{
		Created:       len(created),
		Notifications: toNotificationResponses(created),
	})
}

func (h *NotificationHandler) GetNotification(c *fiber.Ctx) error {
	key, err := transport.APIKeyFromCtx(c)
	if err != nil {
		return err
	}

	id := strings.TrimSpace(c.Params("id"))
	notification, attempts, err := h.service.GetDetail(c.Context(), key.ID, id)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(notificationDetailResponse{
		notificationResponse: toNotificationResponse(notification),
		DeliveryAttempts:     toAttemptResponses(attempts),
	})
}

func (h *NotificationHandler) CancelNotification(c *fiber.Ctx) error {
	key, err := transport.APIKeyFromCtx(c)
	if err != nil {
		return err
	}

	id := strings.TrimSpace(c.Params("id"))
	if err := h.service.Cancel(c.Context(), key.ID, id); err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"notificationId": id,
		"status":         domain.StatusCancelled.String(),
	})
}

func (h *NotificationHandler) ListNotifications(c *fiber.Ctx) error {
	key, err := transport.APIKeyFromCtx(c)
	if err != nil {
		return err
	}

	params, err := parseListParams(c, key.ID)
	if err != nil {
		return toHTTPError(err)
	}

	notifications, total, err := h.service.List(c.Context(), params)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(listNotificationsResponse{
		Data: toNotificationResponses(notifications),
		Meta: listMeta{
			Limit:  params.Limit,
			Offset: params.Offset,
			Total:  total,
		},
	})
}

func parseListParams(c *fiber.Ctx, apiKeyID string) (repository.ListParams, error) {
	params := repository.ListParams{
		APIKeyID: apiKeyID,
		Limit:    c.QueryInt("limit", defaultListLimit),
		Offset:   c.QueryInt("offset", 0),
	}

	if params.Limit < 1 || params.Limit > maxListLimit {
		return repository.ListParams{}, fmt.Errorf("%w: limit must be between 1 and %d", domain.ErrValidation, maxListLimit)
	}
	if params.Offset < 0 {
		return repository.ListParams{}, fmt.Errorf("%w: offset must be >= 0", domain.ErrValidation)
	}

	if rawStatus := strings.TrimSpace(c.Query("status")); rawStatus != "" {
		status, err := domain.ParseStatusFromString(rawStatus)
		if err != nil {
			return repository.ListParams{}, err
		}
		params.Status = &status
	}

	if rawChannel := strings.TrimSpace(c.Query("channel")); rawChannel != "" {
		channel, err := domain.ParseChannelFromString(rawChannel)
		if err != nil {
			return repository.ListParams{}, err
		}
		params.Channel = &channel
	}

	if rawPriority := strings.TrimSpace(c.Query("priority")); rawPriority != "" {
		priority, err := domain.ParsePriorityFromString(rawPriority)
		if err != nil {
			return repository.ListParams{}, err
		}
		params.Priority = &priority
	}

	from, err := parseRFC3339Query(c.Query("from"), "from")
	if err != nil {
		return repository.ListParams{}, err
	}
	to, err := parseRFC3339Query(c.Query("to"), "to")
	if err != nil {
		return repository.ListParams{}, err
	}
	params.From = from
	params.To = to

	return params, nil
}

func parseRFC3339Query(value string, field string) (*time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}

	t, err := time.Parse(time.RFC3339, trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be RFC3339", domain.ErrValidation, field)
	}
	return &t, nil
}

func requestToCreateInput(req createNotificationRequest) service.CreateInput {
	return service.CreateInput{
		Channel:      req.Channel,
		Recipient:    req.Recipient,
		Subject:      req.Subject,
		Body:         req.Body,
		Priority:     req.Priority,
		ScheduledAt:  req.ScheduledAt,
		TemplateCode: req.TemplateCode,
		Variables:    req.Variables,
		Metadata:     req.Metadata,
	}
}

func toAttemptResponses(attempts []domain.DeliveryAttempt) []attemptResponse {
	responses := make([]attemptResponse, 0, len(attempts))
	for _, a := range attempts {
		responses = append(responses, attemptResponse{
			AttemptNumber: a.AttemptNumber,
			Status:        a.Status.String(),
			ErrorMessage:  a.ErrorMessage,
			DurationMS:    a.DurationMS,
			CreatedAt:     a.CreatedAt,
		})
	}
	return responses
}

func toNotificationResponses(notifications []domain.Notification) []notificationResponse {
	responses := make([]notificationResponse, 0, len(notifications))
	for i := range notifications {
		responses = append(responses, toNotificationResponse(&notifications[i]))
	}
	return responses
}

func toNotificationResponse(n *domain.Notification) notificationResponse {
	if n == nil {
		return notificationResponse{}
	}

	return notificationResponse{
		ID:           n.ID,
		TemplateID:   n.TemplateID,
		Channel:      n.Channel.String(),
		Recipient:    n.Recipient,
		Subject:      n.Subject,
		Body:         n.Body,
		Priority:     n.Priority.String(),
		ScheduledAt:  n.ScheduledAt,
		Status:       n.Status.String(),
		AttemptCount: n.AttemptCount,
		MaxAttempts:  n.MaxAttempts,
		NextRetryAt:  n.NextRetryAt,
		SentAt:       n.SentAt,
		ErrorMessage: n.ErrorMessage,
		Metadata:     n.Metadata,
		CreatedAt:    n.CreatedAt,
		UpdatedAt:    n.UpdatedAt,
	}
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		return fiber.NewError(fiber.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrRateLimited):
		return fiber.NewError(fiber.StatusTooManyRequests, err.Error())
	default:
		return err
	}
}
