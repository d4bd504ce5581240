package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-sync/internal/api/dto"
	"github.com/spec-kit/support-sync/internal/service"
	apperrors "github.com/spec-kit/support-sync/pkg/util"
)

// SyncHandler exposes the issue import flow to administrators. All endpoints
// return quickly; tracker I/O happens in the background and progress is
// observed through the state endpoint.
type SyncHandler struct {
	controller *service.SyncController
}

// NewSyncHandler constructs handler.
func NewSyncHandler(controller *service.SyncController) *SyncHandler {
	return &SyncHandler{controller: controller}
}

// LoadCandidates POST /admin/sync/load.
func (h *SyncHandler) LoadCandidates(c *fiber.Ctx) error {
	var req dto.SyncLoadRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.UserID == "" {
		return apperrors.NewValidationError("user_id required", nil)
	}
	key := service.SyncKey{InstallationRef: req.InstallationRef, Repository: req.Repository}
	err := h.controller.Load(key, service.ImportAttribution{
		UserID:    req.UserID,
		UserName:  req.UserName,
		UserEmail: req.UserEmail,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"data": dto.FromSyncSnapshot(h.controller.Snapshot(key))})
}

// SelectSubset POST /admin/sync/select.
func (h *SyncHandler) SelectSubset(c *fiber.Ctx) error {
	var req dto.SyncSelectRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	key := service.SyncKey{InstallationRef: req.InstallationRef, Repository: req.Repository}
	if err := h.controller.SelectSubset(key, req.ExternalIssueIDs); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromSyncSnapshot(h.controller.Snapshot(key))})
}

// RunSync POST /admin/sync/run.
func (h *SyncHandler) RunSync(c *fiber.Ctx) error {
	var req dto.SyncRunRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	key := service.SyncKey{InstallationRef: req.InstallationRef, Repository: req.Repository}
	if err := h.controller.Sync(key); err != nil {
		return err
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"data": dto.FromSyncSnapshot(h.controller.Snapshot(key))})
}

// Cancel POST /admin/sync/cancel.
func (h *SyncHandler) Cancel(c *fiber.Ctx) error {
	var req dto.SyncRunRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	key := service.SyncKey{InstallationRef: req.InstallationRef, Repository: req.Repository}
	if err := h.controller.Cancel(key); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromSyncSnapshot(h.controller.Snapshot(key))})
}

// Retry POST /admin/sync/retry.
func (h *SyncHandler) Retry(c *fiber.Ctx) error {
	var req dto.SyncRunRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	key := service.SyncKey{InstallationRef: req.InstallationRef, Repository: req.Repository}
	if err := h.controller.Retry(key); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromSyncSnapshot(h.controller.Snapshot(key))})
}

// State GET /admin/sync/state.
func (h *SyncHandler) State(c *fiber.Ctx) error {
	key := service.SyncKey{
		InstallationRef: c.Query("installation_ref"),
		Repository:      c.Query("repository"),
	}
	if key.InstallationRef == "" || key.Repository == "" {
		return apperrors.NewValidationError("installation_ref and repository required", nil)
	}
	return c.JSON(fiber.Map{"data": dto.FromSyncSnapshot(h.controller.Snapshot(key))})
}
