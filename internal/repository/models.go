package repository

import (
	"time"

	"github.com/Ryan-Karimov/notification-service/internal/domain"
)

// APIKeyModel is the persistence model for the api_keys table.
type APIKeyModel struct {
	ID            string  `gorm:"type:uuid;primaryKey"`
	Key           string  `gorm:"type:varchar(64);not null"`
	Name          string  `gorm:"type:varchar(255);not null"`
	RateLimit     int     `gorm:"not null;default:100"`
	RateWindowMS  int     `gorm:"not null;default:60000"`
	WebhookURL    *string `gorm:"type:text"`
	WebhookSecret *string `gorm:"type:varchar(255)"`
	IsActive      bool    `gorm:"not null;default:true"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (APIKeyModel) TableName() string {
	return "api_keys"
}

// TemplateModel is the persistence model for the templates table.
type TemplateModel struct {
	ID        string         `gorm:"type:uuid;primaryKey"`
	APIKeyID  string         `gorm:"type:uuid;not null"`
	Code      string         `gorm:"type:varchar(100);not null"`
	Name      string         `gorm:"type:varchar(255);not null"`
	Channel   domain.Channel `gorm:"type:varchar(10);not null"`
	Subject   *string        `gorm:"type:varchar(500)"`
	Body      string         `gorm:"type:text;not null"`
	Variables []string       `gorm:"type:jsonb;serializer:json"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (TemplateModel) TableName() string {
	return "templates"
}

// NotificationModel is the persistence model for the notifications table.
type NotificationModel struct {
	ID           string          `gorm:"type:uuid;primaryKey"`
	APIKeyID     string          `gorm:"type:uuid;not null"`
	TemplateID   *string         `gorm:"type:uuid"`
	Channel      domain.Channel  `gorm:"type:varchar(10);not null"`
	Recipient    string          `gorm:"type:varchar(255);not null"`
	Subject      *string         `gorm:"type:varchar(500)"`
	Body         string          `gorm:"type:text;not null"`
	Priority     domain.Priority `gorm:"type:varchar(10);not null"`
	ScheduledAt  *time.Time      `gorm:"type:timestamptz"`
	Status       domain.Status   `gorm:"type:varchar(20);not null"`
	AttemptCount int             `gorm:"not null;default:0"`
	MaxAttempts  int             `gorm:"not null;default:4"`
	NextRetryAt  *time.Time      `gorm:"type:timestamptz"`
	SentAt       *time.Time      `gorm:"type:timestamptz"`
	ErrorMessage *string         `gorm:"type:text"`
	Metadata     map[string]any  `gorm:"type:jsonb;serializer:json"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (NotificationModel) TableName() string {
	return "notifications"
}

// DeliveryAttemptModel is the persistence model for the delivery_attempts table.
type DeliveryAttemptModel struct {
	ID             string               `gorm:"type:uuid;primaryKey"`
	NotificationID string               `gorm:"type:uuid;not null"`
	AttemptNumber  int                  `gorm:"not null"`
	Status         domain.AttemptStatus `gorm:"type:varchar(10);not null"`
	ErrorMessage   *string              `gorm:"type:text"`
	DurationMS     int                  `gorm:"column:duration_ms;not null;default:0"`
	CreatedAt      time.Time
}

func (DeliveryAttemptModel) TableName() string {
	return "delivery_attempts"
}

func apiKeyModelToDomain(m *APIKeyModel) *domain.APIKey {
	if m == nil {
		return nil
	}

	return &domain.APIKey{
		ID:            m.ID,
		Key:           m.Key,
		Name:          m.Name,
		RateLimit:     m.RateLimit,
		RateWindowMS:  m.RateWindowMS,
		WebhookURL:    m.WebhookURL,
		WebhookSecret: m.WebhookSecret,
		IsActive:      m.IsActive,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func templateModelFromDomain(t *domain.Template) *TemplateModel {
	if t == nil {
		return nil
	}

	return &TemplateModel{
		ID:        t.ID,
		APIKeyID:  t.APIKeyID,
		Code:      t.Code,
		Name:      t.Name,
		Channel:   t.Channel,
		Subject:   t.Subject,
		Body:      t.Body,
		Variables: t.Variables,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

func templateModelToDomain(m *TemplateModel) *domain.Template {
	if m == nil {
		return nil
	}

	return &domain.Template{
		ID:        m.ID,
		APIKeyID:  m.APIKeyID,
		Code:      m.Code,
		Name:      m.Name,
		Channel:   m.Channel,
		Subject:   m.Subject,
		Body:      m.Body,
		Variables: m.Variables,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func notificationModelFromDomain(n *domain.Notification) *NotificationModel {
	if n == nil {
		return nil
	}

	return &NotificationModel{
		ID:           n.ID,
		APIKeyID:     n.APIKeyID,
		TemplateID:   n.TemplateID,
		Channel:      n.Channel,
		Recipient:    n.Recipient,
		Subject:      n.Subject,
		Body:         n.Body,
		Priority:     n.Priority,
		ScheduledAt:  n.ScheduledAt,
		Status:       n.Status,
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

func notificationModelToDomain(m *NotificationModel) *domain.Notification {
	if m == nil {
		return nil
	}

	return &domain.Notification{
		ID:           m.ID,
		APIKeyID:     m.APIKeyID,
		TemplateID:   m.TemplateID,
		Channel:      m.Channel,
		Recipient:    m.Recipient,
		Subject:      m.Subject,
		Body:         m.Body,
		Priority:     m.Priority,
		ScheduledAt:  m.ScheduledAt,
		Status:       m.Status,
		AttemptCount: m.AttemptCount,
		MaxAttempts:  m.MaxAttempts,
		NextRetryAt:  m.NextRetryAt,
		SentAt:       m.SentAt,
		ErrorMessage: m.ErrorMessage,
		Metadata:     m.Metadata,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func attemptModelFromDomain(a *domain.DeliveryAttempt) *DeliveryAttemptModel {
	if a == nil {
		return nil
	}

	return &DeliveryAttemptModel{
		ID:             a.ID,
		NotificationID: a.NotificationID,
		AttemptNumber:  a.AttemptNumber,
		Status:         a.Status,
		ErrorMessage:   a.ErrorMessage,
		DurationMS:     a.DurationMS,
		CreatedAt:      a.CreatedAt,
	}
}

func attemptModelToDomain(m *DeliveryAttemptModel) *domain.DeliveryAttempt {
	if m == nil {
		return nil
	}

	return &domain.DeliveryAttempt{
		ID:             m.ID,
		NotificationID: m.NotificationID,
		AttemptNumber:  m.AttemptNumber,
		Status:         m.Status,
		ErrorMessage:   m.ErrorMessage,
		DurationMS:     m.DurationMS,
		CreatedAt:      m.CreatedAt,
	}
}
