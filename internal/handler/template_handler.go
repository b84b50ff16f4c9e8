package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/Ryan-Karimov/notification-service/internal/domain"
	"github.com/Ryan-Karimov/notification-service/internal/service"
	"github.com/Ryan-Karimov/notification-service/internal/template"
	"github.com/Ryan-Karimov/notification-service/internal/transport"
)

type TemplateService interface {
	Create(ctx context.Context, apiKeyID string, input service.TemplateInput) (*domain.Template, error)
	GetByID(ctx context.Context, apiKeyID, id string) (*domain.Template, error)
	List(ctx context.Context, apiKeyID string) ([]domain.Template, error)
	Update(ctx context.Context, apiKeyID, id string, input service.TemplateInput) (*domain.Template, error)
	Delete(ctx context.Context, apiKeyID, id string) error
	Preview(ctx context.Context, apiKeyID, id string, variables map[string]any) (template.RenderResult, error)
}

type TemplateHandler struct {
	service TemplateService
}

func NewTemplateHandler(service TemplateService) (*TemplateHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("template service is required")
	}
	return &TemplateHandler{service: service}, nil
}

func RegisterTemplateRoutes(router fiber.Router, service TemplateService) error {
	h, err := NewTemplateHandler(service)
	if err != nil {
		return err
	}

	router.Post("/templates", h.CreateTemplate)
	router.Get("/templates", h.ListTemplates)
	router.Get("/templates/:id", h.GetTemplate)
	router.Put("/templates/:id", h.UpdateTemplate)
	router.Delete("/templates/:id", h.DeleteTemplate)
	router.Post("/templates/:id/preview", h.PreviewTemplate)

	return nil
}

type templateRequest struct {
	Code    string  `json:"code"`
	Name    string  `json:"name"`
	Channel string  `json:"channel"`
	Subject *string `json:"subject,omitempty"`
	Body    string  `json:"body"`
}

type templateResponse struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Channel   string    `json:"channel"`
	Subject   *string   `json:"subject,omitempty"`
	Body      string    `json:"body"`
	Variables []string  `json:"variables"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type previewRequest struct {
	Variables map[string]any `json:"variables"`
}

type previewResponse struct {
	Subject *string `json:"subject,omitempty"`
	Body    string  `json:"body"`
}

func (h *TemplateHandler) CreateTemplate(c *fiber.Ctx) error {
	key, err := transport.APIKeyFromCtx(c)
	if err != nil {
		return err
	}

	var req templateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	created, err := h.service.Create(c.Context(), key.ID, requestToTemplateInput(req))
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(toTemplateResponse(created))
}

func (h *TemplateHandler) ListTemplates(c *fiber.Ctx) error {
	key, err := transport.APIKeyFromCtx(c)
	if err != nil {
		return err
	}

	templates, err := h.service.List(c.Context(), key.ID)
	if err != nil {
		return toHTTPError(err)
	}

	responses := make([]templateResponse, 0, len(templates))
	for i := range templates {
		responses = append(responses, toTemplateResponse(&templates[i]))
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"data": responses})
}

func (h *TemplateHandler) GetTemplate(c *fiber.Ctx) error {
	key, err := transport.APIKeyFromCtx(c)
	if err != nil {
		return err
	}

	tpl, err := h.service.GetByID(c.Context(), key.ID, strings.TrimSpace(c.Params("id")))
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toTemplateResponse(tpl))
}

func (h *TemplateHandler) UpdateTemplate(c *fiber.Ctx) error {
	key, err := transport.APIKeyFromCtx(c)
	if err != nil {
		return err
	}

	var req templateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	updated, err := h.service.Update(c.Context(), key.ID, strings.TrimSpace(c.Params("id")), requestToTemplateInput(req))
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toTemplateResponse(updated))
}

func (h *TemplateHandler) DeleteTemplate(c *fiber.Ctx) error {
	key, err := transport.APIKeyFromCtx(c)
	if err != nil {
		return err
	}

	if err := h.service.Delete(c.Context(), key.ID, strings.TrimSpace(c.Params("id"))); err != nil {
		return toHTTPError(err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *TemplateHandler) PreviewTemplate(c *fiber.Ctx) error {
	key, err := transport.APIKeyFromCtx(c)
	if err != nil {
		return err
	}

	var req previewRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.service.Preview(c.Context(), key.ID, strings.TrimSpace(c.Params("id")), req.Variables)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(previewResponse{
		Subject: result.Subject,
		Body:    result.Body,
	})
}

func requestToTemplateInput(req templateRequest) service.TemplateInput {
	return service.TemplateInput{
		Code:    req.Code,
		Name:    req.Name,
		Channel: req.Channel,
		Subject: req.Subject,
		Body:    req.Body,
	}
}

func toTemplateResponse(t *domain.Template) templateResponse {
	if t == nil {
		return templateResponse{}
	}

	variables := t.Variables
	if variables == nil {
		variables = []string{}
	}

	return templateResponse{
		ID:        t.ID,
		Code:      t.Code,
		Name:      t.Name,
		Channel:   t.Channel.String(),
		Subject:   t.Subject,
		Body:      t.Body,
		Variables: variables,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}
