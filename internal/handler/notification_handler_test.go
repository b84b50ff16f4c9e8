package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/Ryan-Karimov/notification-service/internal/domain"
	"github.com/Ryan-Karimov/notification-service/internal/repository"
	"github.com/Ryan-Karimov/notification-service/internal/service"
	"github.com/Ryan-Karimov/notification-service/internal/transport"
)

type stubNotificationService struct {
	createFn     func(ctx context.Context, apiKeyID string, input service.CreateInput) (*domain.Notification, error)
	createBulkFn func(ctx context.Context, apiKeyID string, inputs []service.CreateInput) ([]domain.Notification, error)
	getDetailFn  func(ctx context.Context, apiKeyID, id string) (*domain.Notification, []domain.DeliveryAttempt, error)
	listFn       func(ctx context.Context, params repository.ListParams) ([]domain.Notification, int64, error)
	cancelFn     func(ctx context.Context, apiKeyID, id string) error
}

func (s *stubNotificationService) Create(ctx context.Context, apiKeyID string, input service.CreateInput) (*domain.Notification, error) {
	if s.createFn != nil {
		return s.createFn(ctx, apiKeyID, input)
	}
	return nil, domain.ErrValidation
}

func (s *stubNotificationService) CreateBulk(ctx context.Context, apiKeyID string, inputs []service.CreateInput) ([]domain.Notification, error) {
	if s.createBulkFn != nil {
		return s.createBulkFn(ctx, apiKeyID, inputs)
	}
	return nil, domain.ErrValidation
}

func (s *stubNotificationService) GetDetail(ctx context.Context, apiKeyID, id string) (*domain.Notification, []domain.DeliveryAttempt, error) {
	if s.getDetailFn != nil {
		return s.getDetailFn(ctx, apiKeyID, id)
	}
	return nil, nil, domain.ErrNotFound
}

func (s *stubNotificationService) List(ctx context.Context, params repository.ListParams) ([]domain.Notification, int64, error) {
	if s.listFn != nil {
		return s.listFn(ctx, params)
	}
	return nil, 0, nil
}

func (s *stubNotificationService) Cancel(ctx context.Context, apiKeyID, id string) error {
	if s.cancelFn != nil {
		return s.cancelFn(ctx, apiKeyID, id)
	}
	return domain.ErrNotFound
}

type stubKeyResolver struct {
	key *domain.APIKey
}

func (s *stubKeyResolver) FindByKey(ctx context.Context, key string) (*domain.APIKey, error) {
	if s.key != nil && s.key.Key == key {
		return s.key, nil
	}
	return nil, domain.ErrNotFound
}

func newNotificationTestApp(t *testing.T, svc NotificationService) *fiber.App {
	t.Helper()

	app := fiber.New(fiber.Config{
		ErrorHandler: transport.ErrorHandler(zap.NewNop()),
	})

	resolver := &stubKeyResolver{key: &domain.APIKey{ID: "key-1", Key: "secret-key", IsActive: true}}
	api := app.Group("/api/v1", transport.APIKeyAuth(resolver, zap.NewNop()))

	if err := RegisterNotificationRoutes(api, svc); err != nil {
		t.Fatalf("RegisterNotificationRoutes() error = %v", err)
	}

	return app
}

func performRequest(t *testing.T, app *fiber.App, method, target, body string) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", "secret-key")

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	_ = resp.Body.Close()

	return resp, respBody
}

func TestCreateNotificationEndpoint(t *testing.T) {
	t.Parallel()

	svc := &stubNotificationService{
		createFn: func(ctx context.Context, apiKeyID string, input service.CreateInput) (*domain.Notification, error) {
			if apiKeyID != "key-1" {
				t.Fatalf("apiKeyID = %q, want key-1", apiKeyID)
			}
			return &domain.Notification{
				ID:        "n-created",
				APIKeyID:  apiKeyID,
				Channel:   domain.ChannelSMS,
				Recipient: input.Recipient,
				Body:      input.Body,
				Priority:  domain.PriorityNormal,
				Status:    domain.StatusQueued,
			}, nil
		},
	}

	app := newNotificationTestApp(t, svc)

	resp, body := performRequest(t, app, http.MethodPost, "/api/v1/notifications",
		`{"channel":"sms","recipient":"+15550100","body":"hello"}`)
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("status = %d, want 201, body=%s", resp.StatusCode, string(body))
	}

	var parsed map[string]any
	if err := json.Unmarshal(body, &parsed); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if parsed["id"] != "n-created" {
		t.Fatalf("id = %v, want n-created", parsed["id"])
	}
	if parsed["status"] != "queued" {
		t.Fatalf("status = %v, want queued", parsed["status"])
	}
}

func TestCreateNotificationEndpointValidation(t *testing.T) {
	t.Parallel()

	svc := &stubNotificationService{
		createFn: func(ctx context.Context, apiKeyID string, input service.CreateInput) (*domain.Notification, error) {
			return nil, fmt.Errorf("%w: recipient is required", domain.ErrValidation)
		},
	}

	app := newNotificationTestApp(t, svc)

	resp, _ := performRequest(t, app, http.MethodPost, "/api/v1/notifications",
		`{"channel":"sms","body":"hello"}`)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestCreateNotificationEndpointUnauthorized(t *testing.T) {
	t.Parallel()

	app := newNotificationTestApp(t, &stubNotificationService{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/notifications", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestCancelNotificationEndpointConflict(t *testing.T) {
	t.Parallel()

	svc := &stubNotificationService{
		cancelFn: func(ctx context.Context, apiKeyID, id string) error {
			return fmt.Errorf("%w: cannot cancel notification with status sent", domain.ErrConflict)
		},
	}

	app := newNotificationTestApp(t, svc)

	resp, _ := performRequest(t, app, http.MethodDelete, "/api/v1/notifications/n1", "")
	if resp.StatusCode != fiber.StatusConflict {
		t.Fatalf("status = %d, want 409", resp.StatusCode)
	}
}

func TestListNotificationsEndpoint(t *testing.T) {
	t.Parallel()

	svc := &stubNotificationService{
		listFn: func(ctx context.Context, params repository.ListParams) ([]domain.Notification, int64, error) {
			if params.APIKeyID != "key-1" {
				t.Fatalf("APIKeyID = %q, want key-1", params.APIKeyID)
			}
			if params.Status == nil || *params.Status != domain.StatusSent {
				t.Fatalf("Status = %v, want sent", params.Status)
			}
			if params.Limit != 10 || params.Offset != 5 {
				t.Fatalf("limit/offset = %d/%d, want 10/5", params.Limit, params.Offset)
			}
			return []domain.Notification{{ID: "n1", Status: domain.StatusSent}}, 42, nil
		},
	}

	app := newNotificationTestApp(t, svc)

	resp, body := performRequest(t, app, http.MethodGet, "/api/v1/notifications?status=sent&limit=10&offset=5", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, string(body))
	}

	var parsed listNotificationsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if parsed.Meta.Total != 42 {
		t.Fatalf("total = %d, want 42", parsed.Meta.Total)
	}
	if len(parsed.Data) != 1 || parsed.Data[0].ID != "n1" {
		t.Fatalf("data = %+v, want one row n1", parsed.Data)
	}
}

func TestListNotificationsEndpointBadFilter(t *testing.T) {
	t.Parallel()

	app := newNotificationTestApp(t, &stubNotificationService{})

	resp, _ := performRequest(t, app, http.MethodGet, "/api/v1/notifications?status=bogus", "")
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestGetNotificationEndpointIncludesAttempts(t *testing.T) {
	t.Parallel()

	errorMessage := "smtp timeout"
	svc := &stubNotificationService{
		getDetailFn: func(ctx context.Context, apiKeyID, id string) (*domain.Notification, []domain.DeliveryAttempt, error) {
			if id != "n1" {
				t.Fatalf("id = %q, want n1", id)
			}
			return &domain.Notification{
					ID:       "n1",
					APIKeyID: apiKeyID,
					Channel:  domain.ChannelEmail,
					Status:   domain.StatusSent,
				}, []domain.DeliveryAttempt{
					{NotificationID: "n1", AttemptNumber: 1, Status: domain.AttemptFailed, ErrorMessage: &errorMessage, DurationMS: 1200},
					{NotificationID: "n1", AttemptNumber: 2, Status: domain.AttemptSuccess, DurationMS: 340},
				}, nil
		},
	}

	app := newNotificationTestApp(t, svc)

	resp, body := performRequest(t, app, http.MethodGet, "/api/v1/notifications/n1", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, string(body))
	}

	var parsed notificationDetailResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if parsed.ID != "n1" {
		t.Fatalf("id = %q, want n1", parsed.ID)
	}
	if len(parsed.DeliveryAttempts) != 2 {
		t.Fatalf("deliveryAttempts = %d, want 2", len(parsed.DeliveryAttempts))
	}
	if parsed.DeliveryAttempts[0].Status != "failed" || parsed.DeliveryAttempts[0].ErrorMessage == nil {
		t.Fatalf("first attempt = %+v, want failed with error message", parsed.DeliveryAttempts[0])
	}
	if parsed.DeliveryAttempts[1].AttemptNumber != 2 {
		t.Fatalf("second attempt number = %d, want 2", parsed.DeliveryAttempts[1].AttemptNumber)
	}
}

func TestGetNotificationEndpointNotFound(t *testing.T) {
	t.Parallel()

	app := newNotificationTestApp(t, &stubNotificationService{})

	resp, _ := performRequest(t, app, http.MethodGet, "/api/v1/notifications/nope", "")
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestCreateBulkEndpoint(t *testing.T) {
	t.Parallel()

	svc := &stubNotificationService{
		createBulkFn: func(ctx context.Context, apiKeyID string, inputs []service.CreateInput) ([]domain.Notification, error) {
			created := make([]domain.Notification, len(inputs))
			for i := range inputs {
				created[i] = domain.Notification{ID: fmt.Sprintf("n%d", i), Status: domain.StatusQueued}
			}
			return created, nil
		},
	}

	app := newNotificationTestApp(t, svc)

	resp, body := performRequest(t, app, http.MethodPost, "/api/v1/notifications/bulk",
		`{"notifications":[{"channel":"sms","recipient":"+15550100","body":"a"},{"channel":"telegram","recipient":"123","body":"b"}]}`)
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("status = %d, want 201, body=%s", resp.StatusCode, string(body))
	}

	var parsed createBulkResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if parsed.Created != 2 {
		t.Fatalf("created = %d, want 2", parsed.Created)
	}
}
