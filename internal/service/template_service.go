package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Ryan-Karimov/notification-service/internal/domain"
	"github.com/Ryan-Karimov/notification-service/internal/repository"
	"github.com/Ryan-Karimov/notification-service/internal/template"
)

// TemplateInput carries a create or update request for a stored template.
type TemplateInput struct {
	Code    string
	Name    string
	Channel string
	Subject *string
	Body    string
}

type TemplateService struct {
	templates repository.TemplateRepository
	engine    *template.Engine
	logger    *zap.Logger
	now       func() time.Time
}

func NewTemplateService(templates repository.TemplateRepository, engine *template.Engine, logger *zap.Logger) (*TemplateService, error) {
	if engine == nil {
		engine = template.NewEngine()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &TemplateService{
		templates: templates,
		engine:    engine,
		logger:    logger,
		now:       time.Now,
	}, nil
}

func (s *TemplateService) Create(ctx context.Context, apiKeyID string, input TemplateInput) (*domain.Template, error) {
	tpl, err := s.buildTemplate(apiKeyID, input)
	if err != nil {
		return nil, err
	}

	tpl.ID = uuid.NewString()
	now := s.now().UTC()
	tpl.CreatedAt = now
	tpl.UpdatedAt = now

	if err := s.templates.Create(ctx, tpl); err != nil {
		return nil, err
	}
	return tpl, nil
}

func (s *TemplateService) GetByID(ctx context.Context, apiKeyID, id string) (*domain.Template, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: template id is required", domain.ErrValidation)
	}
	return s.templates.FindByID(ctx, strings.TrimSpace(id), apiKeyID)
}

func (s *TemplateService) List(ctx context.Context, apiKeyID string) ([]domain.Template, error) {
	return s.templates.List(ctx, apiKeyID)
}

func (s *TemplateService) Update(ctx context.Context, apiKeyID, id string, input TemplateInput) (*domain.Template, error) {
	existing, err := s.templates.FindByID(ctx, id, apiKeyID)
	if err != nil {
		return nil, err
	}

	tpl, err := s.buildTemplate(apiKeyID, input)
	if err != nil {
		return nil, err
	}

	tpl.ID = existing.ID
	tpl.Code = existing.Code
	tpl.CreatedAt = existing.CreatedAt
	tpl.UpdatedAt = s.now().UTC()

	if err := s.templates.Update(ctx, tpl); err != nil {
		return nil, err
	}
	return tpl, nil
}

func (s *TemplateService) Delete(ctx context.Context, apiKeyID, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: template id is required", domain.ErrValidation)
	}
	return s.templates.Delete(ctx, strings.TrimSpace(id), apiKeyID)
}

// Preview renders a stored template against caller-supplied variables
// without creating a notification.
func (s *TemplateService) Preview(ctx context.Context, apiKeyID, id string, variables map[string]any) (template.RenderResult, error) {
	tpl, err := s.templates.FindByID(ctx, id, apiKeyID)
	if err != nil {
		return template.RenderResult{}, err
	}

	result, err := s.engine.Render(tpl.Subject, tpl.Body, variables)
	if err != nil {
		return template.RenderResult{}, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	return result, nil
}

func (s *TemplateService) buildTemplate(apiKeyID string, input TemplateInput) (*domain.Template, error) {
	channel, err := domain.ParseChannelFromString(input.Channel)
	if err != nil {
		return nil, err
	}

	tpl := &domain.Template{
		APIKeyID: apiKeyID,
		Code:     strings.TrimSpace(input.Code),
		Name:     strings.TrimSpace(input.Name),
		Channel:  channel,
		Subject:  normalizeOptionalString(input.Subject),
		Body:     strings.TrimSpace(input.Body),
	}

	if err := tpl.Validate(); err != nil {
		return nil, err
	}

	if err := s.engine.Validate(tpl.Body); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	variables := s.engine.ExtractVariables(tpl.Body)

	if tpl.Subject != nil {
		if err := s.engine.Validate(*tpl.Subject); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
		}
		for _, name := range s.engine.ExtractVariables(*tpl.Subject) {
			if !containsString(variables, name) {
				variables = append(variables, name)
			}
		}
	}
	tpl.Variables = variables

	return tpl, nil
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
