package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-sync/internal/api/dto"
	"github.com/spec-kit/support-sync/internal/auth"
	"github.com/spec-kit/support-sync/internal/domain"
	"github.com/spec-kit/support-sync/internal/service"
	apperrors "github.com/spec-kit/support-sync/pkg/util"
)

// TicketsHandler manages end-user ticket endpoints.
type TicketsHandler struct {
	support *service.SupportService
	unified *service.UnifiedService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(support *service.SupportService, unified *service.UnifiedService) *TicketsHandler {
	return &TicketsHandler{support: support, unified: unified}
}

// CreateRequest POST /tickets.
func (h *TicketsHandler) CreateRequest(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.CreateRequestPayload
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Message) == "" {
		return apperrors.NewValidationError("message required", nil)
	}

	created, err := h.support.CreateRequest(c.UserContext(), service.CreateRequestInput{
		UserID:    principal.ID,
		UserName:  principal.Name,
		UserEmail: principal.Email,
		Message:   req.Message,
		RepoRef:   req.RepoRef,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": fiber.Map{
		"id":         domain.UnifiedIDPrefixInternal + created.ID,
		"status":     created.Status,
		"created_at": created.CreatedAt.UnixMilli(),
	}})
}

// ListUnified GET /tickets/unified.
func (h *TicketsHandler) ListUnified(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	tickets, err := h.unified.ListForUser(c.UserContext(), principal.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromUnifiedTickets(tickets)})
}

// AppendNote POST /tickets/:id/notes.
func (h *TicketsHandler) AppendNote(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.AppendNotePayload
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Message) == "" {
		return apperrors.NewValidationError("message required", nil)
	}

	err := h.unified.AppendNoteForUser(c.UserContext(), principal.ID, c.Params("id"), service.UnifiedNoteInput{
		AuthorID:    principal.ID,
		AuthorName:  principal.Name,
		AuthorEmail: principal.Email,
		Message:     req.Message,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": fiber.Map{"appended": true}})
}

// CloseTicket POST /tickets/:id/close.
func (h *TicketsHandler) CloseTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	if err := h.unified.CloseAsUser(c.UserContext(), principal.ID, c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"closed": true}})
}
