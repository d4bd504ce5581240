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

// AdminTicketsHandler manages the administrative ticket endpoints.
type AdminTicketsHandler struct {
	unified *service.UnifiedService
	issues  *service.IssueService
}

// NewAdminTicketsHandler constructs handler.
func NewAdminTicketsHandler(unified *service.UnifiedService, issues *service.IssueService) *AdminTicketsHandler {
	return &AdminTicketsHandler{unified: unified, issues: issues}
}

// ListUnified GET /admin/tickets/unified.
func (h *AdminTicketsHandler) ListUnified(c *fiber.Ctx) error {
	emails := parseEmailFilter(c.Query("user_email"))
	tickets, err := h.unified.ListForAdmin(c.UserContext(), emails)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromUnifiedTickets(tickets)})
}

// SetStatus PATCH /admin/tickets/:id/status.
func (h *AdminTicketsHandler) SetStatus(c *fiber.Ctx) error {
	var req dto.SetStatusPayload
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if !domain.KnownRequestStatus(req.Status) {
		return apperrors.NewValidationError("unknown status", map[string]any{"status": req.Status})
	}
	if err := h.unified.SetStatus(c.UserContext(), c.Params("id"), req.Status); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"status": req.Status}})
}

// AppendNote POST /admin/tickets/:id/notes.
func (h *AdminTicketsHandler) AppendNote(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("admin required")
	}
	var req dto.AppendNotePayload
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Message) == "" {
		return apperrors.NewValidationError("message required", nil)
	}

	err := h.unified.AppendNote(c.UserContext(), c.Params("id"), service.UnifiedNoteInput{
		AuthorID:    principal.ID,
		AuthorName:  principal.Name,
		AuthorEmail: principal.Email,
		Message:     req.Message,
		Internal:    req.Internal,
		Role:        domain.NoteRoleAdmin,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": fiber.Map{"appended": true}})
}

// RemoveIssue DELETE /admin/issues/:id. Removes the imported record only;
// the tracker issue is untouched.
func (h *AdminTicketsHandler) RemoveIssue(c *fiber.Ctx) error {
	if err := h.issues.RemoveFromView(c.UserContext(), issueID(c)); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"removed": true}})
}

// CloseIssuePermanently POST /admin/issues/:id/close-permanently. Closes the
// issue on the tracker and removes the imported record. Irreversible.
func (h *AdminTicketsHandler) CloseIssuePermanently(c *fiber.Ctx) error {
	id := issueID(c)
	issue, err := h.issues.GetWithNotes(c.UserContext(), id)
	if err != nil {
		return err
	}
	err = h.issues.ClosePermanently(c.UserContext(), id, issue.InstallationRef, issue.Repository, issue.ExternalIssueID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"closed": true}})
}

// issueID accepts both the raw record id and the unified external id.
func issueID(c *fiber.Ctx) string {
	return strings.TrimPrefix(c.Params("id"), domain.UnifiedIDPrefixExternal)
}

func parseEmailFilter(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	emails := make([]string, 0, len(parts))
	for _, part := range parts {
		email := strings.TrimSpace(part)
		if email != "" {
			emails = append(emails, email)
		}
	}
	return emails
}
