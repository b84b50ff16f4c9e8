package service

import (
	"context"
	"crypto/hmac"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Ryan-Karimov/notification-service/internal/domain"
	"github.com/Ryan-Karimov/notification-service/internal/queue"
)

func newTestWebhookService(t *testing.T) *WebhookService {
	t.Helper()

	svc, err := NewWebhookService(&fakeConsumer{}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewWebhookService() error = %v", err)
	}
	svc.now = func() time.Time { return time.Unix(1_700_000_000, 0) }
	return svc
}

func webhookBody(t *testing.T, msg queue.WebhookMessage) []byte {
	t.Helper()

	body, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("failed to marshal message: %v", err)
	}
	return body
}

func TestWebhookServiceDelivers(t *testing.T) {
	t.Parallel()

	var gotSignature string
	var gotUserAgent string
	var gotBody []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSignature = r.Header.Get("X-Webhook-Signature")
		gotUserAgent = r.Header.Get("User-Agent")

		var err error
		gotBody, err = io.ReadAll(r.Body)
		if err != nil {
			t.Fatalf("failed to read request body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	svc := newTestWebhookService(t)

	sentAt := time.Unix(1_699_999_000, 0).UTC()
	err := svc.processEvent(context.Background(), webhookBody(t, queue.WebhookMessage{
		NotificationID: "n1",
		APIKeyID:       "key-1",
		Status:         string(domain.StatusSent),
		Channel:        "email",
		Recipient:      "ada@example.com",
		SentAt:         &sentAt,
		WebhookURL:     server.URL,
		WebhookSecret:  "s3cret",
	}))
	if err != nil {
		t.Fatalf("processEvent() error = %v", err)
	}

	if gotUserAgent != webhookUserAgent {
		t.Fatalf("User-Agent = %q, want %q", gotUserAgent, webhookUserAgent)
	}

	wantSignature := SignPayload(gotBody, "s3cret")
	if !hmac.Equal([]byte(gotSignature), []byte(wantSignature)) {
		t.Fatalf("signature = %q, want %q", gotSignature, wantSignature)
	}

	var payload WebhookPayload
	if err := json.Unmarshal(gotBody, &payload); err != nil {
		t.Fatalf("failed to decode payload: %v", err)
	}
	if payload.Event != EventNotificationSent {
		t.Fatalf("event = %q, want %q", payload.Event, EventNotificationSent)
	}
	if payload.Data.NotificationID != "n1" {
		t.Fatalf("notificationId = %q, want n1", payload.Data.NotificationID)
	}
	if payload.Data.SentAt == nil || !payload.Data.SentAt.Equal(sentAt) {
		t.Fatalf("sentAt = %v, want %v", payload.Data.SentAt, sentAt)
	}
}

func TestWebhookServiceFailedEvent(t *testing.T) {
	t.Parallel()

	var payload WebhookPayload

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("failed to decode payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	svc := newTestWebhookService(t)

	errorMessage := "provider unavailable"
	err := svc.processEvent(context.Background(), webhookBody(t, queue.WebhookMessage{
		NotificationID: "n2",
		Status:         string(domain.StatusFailed),
		Channel:        "sms",
		Recipient:      "+15550100",
		ErrorMessage:   &errorMessage,
		WebhookURL:     server.URL,
	}))
	if err != nil {
		t.Fatalf("processEvent() error = %v", err)
	}

	if payload.Event != EventNotificationFailed {
		t.Fatalf("event = %q, want %q", payload.Event, EventNotificationFailed)
	}
	if payload.Data.ErrorMessage == nil || *payload.Data.ErrorMessage != errorMessage {
		t.Fatalf("errorMessage = %v, want %q", payload.Data.ErrorMessage, errorMessage)
	}
}

func TestWebhookServiceEndpointErrorIsSwallowed(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	svc := newTestWebhookService(t)

	err := svc.processEvent(context.Background(), webhookBody(t, queue.WebhookMessage{
		NotificationID: "n3",
		Status:         string(domain.StatusSent),
		WebhookURL:     server.URL,
	}))
	if err != nil {
		t.Fatalf("processEvent() error = %v, delivery failures must be swallowed", err)
	}
}

func TestWebhookServiceBadPayload(t *testing.T) {
	t.Parallel()

	svc := newTestWebhookService(t)

	if err := svc.processEvent(context.Background(), []byte("{not json")); err == nil {
		t.Fatal("malformed payloads must surface an error to the consumer")
	}
}

func TestSignPayload(t *testing.T) {
	t.Parallel()

	got := SignPayload([]byte(`{"event":"notification.sent"}`), "secret")
	if len(got) != 64 {
		t.Fatalf("signature length = %d, want 64 hex chars", len(got))
	}
	if got == SignPayload([]byte(`{"event":"notification.sent"}`), "other") {
		t.Fatal("different secrets must produce different signatures")
	}
}

func TestWebhookServiceNoSecretSkipsSignature(t *testing.T) {
	t.Parallel()

	var signatureHeaderSet bool

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, signatureHeaderSet = r.Header["X-Webhook-Signature"]
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	svc := newTestWebhookService(t)

	err := svc.processEvent(context.Background(), webhookBody(t, queue.WebhookMessage{
		NotificationID: "n4",
		Status:         string(domain.StatusSent),
		WebhookURL:     server.URL,
	}))
	if err != nil {
		t.Fatalf("processEvent() error = %v", err)
	}
	if signatureHeaderSet {
		t.Fatal("unsigned deliveries must not carry a signature header")
	}
}
