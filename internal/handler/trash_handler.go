package handler

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/catalogkit/promotion-system/internal/model"
	"github.com/catalogkit/promotion-system/internal/service"
)

// TrashServiceInterface defines the interface for trash operations.
type TrashServiceInterface interface {
	ListTrash(ctx context.Context) ([]model.TrashedPromotionResponse, error)
	ListTrashPurgeable(ctx context.Context) ([]model.TrashedPromotionResponse, error)
	ListTrashByUser(ctx context.Context, userID uuid.UUID) ([]model.TrashedPromotionResponse, error)
	Restore(ctx context.Context, id uuid.UUID) (bool, error)
	PermanentDelete(ctx context.Context, id uuid.UUID) (bool, error)
}

// TrashHandler handles HTTP requests for the promotion trash subsystem.
type TrashHandler struct {
	service   TrashServiceInterface
	validator *validator.Validate
}

// NewTrashHandler creates a new TrashHandler.
func NewTrashHandler(svc TrashServiceInterface, v *validator.Validate) *TrashHandler {
	return &TrashHandler{service: svc, validator: v}
}

// ListTrash handles GET /api/trash: the currently-restorable records. Rows
// past the retention window are excluded even before any purge runs.
func (h *TrashHandler) ListTrash(c *fiber.Ctx) error {
	trashed, err := h.service.ListTrash(c.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to list trash")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
	return c.JSON(trashed)
}

// ListPurgeable handles GET /api/trash/purgeable: records past the retention
// window, awaiting an explicit purge.
func (h *TrashHandler) ListPurgeable(c *fiber.Ctx) error {
	trashed, err := h.service.ListTrashPurgeable(c.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to list purgeable trash")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
	return c.JSON(trashed)
}

// ListByUser handles GET /api/trash/users/:user_id: every record deleted by
// the user, regardless of age.
func (h *TrashHandler) ListByUser(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Params("user_id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request: user_id must be a valid uuid"})
	}

	trashed, err := h.service.ListTrashByUser(c.Context(), userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID.String()).Msg("failed to list trash by user")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
	return c.JSON(trashed)
}

// Restore handles POST /api/trash/:id/restore. A restore past the retention
// window returns 410 so callers can tell it apart from a missing record.
func (h *TrashHandler) Restore(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request: id must be a valid uuid"})
	}

	var actor string
	if len(c.Body()) > 0 {
		var req model.RestorePromotionRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
		if err := h.validator.Struct(req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
		}
		if req.UserID != nil {
			actor = *req.UserID
		}
	}

	restored, err := h.service.Restore(c.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrRetentionExpired) {
			return c.Status(fiber.StatusGone).JSON(fiber.Map{
				"restored": false,
				"error":    "retention window expired",
			})
		}
		log.Error().Err(err).Str("promotion_id", id.String()).Msg("failed to restore promotion")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
	if !restored {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"restored": false, "error": "promotion not found in trash"})
	}

	log.Info().
		Str("promotion_id", id.String()).
		Str("restored_by", actor).
		Msg("promotion restored from trash")
	return c.JSON(fiber.Map{"restored": true})
}

// PermanentDelete handles DELETE /api/trash/:id. No retention gate applies:
// a caller may purge early.
func (h *TrashHandler) PermanentDelete(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request: id must be a valid uuid"})
	}

	deleted, err := h.service.PermanentDelete(c.Context(), id)
	if err != nil {
		log.Error().Err(err).Str("promotion_id", id.String()).Msg("failed to permanently delete promotion")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
	if !deleted {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"deleted": false, "error": "promotion not found in trash"})
	}

	log.Info().Str("promotion_id", id.String()).Msg("promotion purged from trash")
	return c.JSON(fiber.Map{"deleted": true})
}
