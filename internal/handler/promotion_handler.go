package handler

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/catalogkit/promotion-system/internal/model"
	"github.com/catalogkit/promotion-system/internal/service"
)

// PromotionServiceInterface defines the interface for promotion lifecycle logic.
type PromotionServiceInterface interface {
	Create(ctx context.Context, req *model.CreatePromotionRequest) (*model.PromotionResponse, error)
	Get(ctx context.Context, id uuid.UUID) (*model.PromotionResponse, error)
	Update(ctx context.Context, id uuid.UUID, req *model.UpdatePromotionRequest) (*model.PromotionResponse, error)
	Delete(ctx context.Context, id uuid.UUID, deletedBy *uuid.UUID) (bool, error)
	ListByCategory(ctx context.Context, categoryID uuid.UUID) ([]model.Promotion, error)
	ListByStatus(ctx context.Context, status string) ([]model.Promotion, error)
	ListValidOn(ctx context.Context, day time.Time) ([]model.Promotion, error)
	AssociateProducts(ctx context.Context, promotionID uuid.UUID, productIDs []uuid.UUID) (bool, error)
	RemoveProducts(ctx context.Context, promotionID uuid.UUID, productIDs []uuid.UUID) (bool, error)
}

// PromotionHandler handles HTTP requests for promotion lifecycle operations.
type PromotionHandler struct {
	service   PromotionServiceInterface
	overlaps  service.OverlapCounter
	validator *validator.Validate
}

// NewPromotionHandler creates a new PromotionHandler.
func NewPromotionHandler(svc PromotionServiceInterface, overlaps service.OverlapCounter, v *validator.Validate) *PromotionHandler {
	return &PromotionHandler{service: svc, overlaps: overlaps, validator: v}
}

// formatValidationError converts validator errors to stable API messages.
func formatValidationError(err error) string {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			field := fe.Field()
			tag := fe.Tag()

			switch field {
			case "Name":
				if tag == "required" {
					return "invalid request: name is required"
				}
				if tag == "notblank" {
					return "invalid request: name cannot be whitespace only"
				}
				if tag == "max" {
					return "invalid request: name exceeds maximum length of 255"
				}
				return "invalid request: name is invalid"
			case "StartDate", "EndDate":
				fieldName := "start_date"
				if field == "EndDate" {
					fieldName = "end_date"
				}
				if tag == "required" {
					return "invalid request: " + fieldName + " is required"
				}
				return "invalid request: " + fieldName + " must be a date in YYYY-MM-DD format"
			case "DiscountValue":
				return "invalid request: discount_value is required"
			case "ProductIDs":
				if tag == "required" || tag == "min" {
					return "invalid request: product_ids must contain at least one id"
				}
				return "invalid request: product_ids must be valid uuids"
			default:
				if tag == "required" {
					return "invalid request: " + field + " is required"
				}
				if tag == "uuid4" {
					return "invalid request: " + field + " must be a valid uuid"
				}
				return "invalid request: " + field + " is invalid"
			}
		}
	}
	return "invalid request"
}

func parseIDParam(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

// CreatePromotion handles POST /api/promotions.
func (h *PromotionHandler) CreatePromotion(c *fiber.Ctx) error {
	var req model.CreatePromotionRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	resp, err := h.service.Create(c.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRequest) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
		}
		log.Error().Err(err).Str("promotion_name", req.Name).Msg("failed to create promotion")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	log.Info().
		Str("promotion_id", resp.ID.String()).
		Str("promotion_name", resp.Name).
		Int("resolution_warnings", len(resp.ResolutionWarnings)).
		Msg("promotion created")

	return c.Status(fiber.StatusCreated).JSON(resp)
}

// GetPromotion handles GET /api/promotions/:id.
func (h *PromotionHandler) GetPromotion(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request: id must be a valid uuid"})
	}

	resp, err := h.service.Get(c.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrPromotionNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "promotion not found"})
		}
		log.Error().Err(err).Str("promotion_id", id.String()).Msg("failed to get promotion")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	return c.JSON(resp)
}

// UpdatePromotion handles PATCH /api/promotions/:id with partial update
// semantics: absent fields keep their stored values.
func (h *PromotionHandler) UpdatePromotion(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request: id must be a valid uuid"})
	}

	var req model.UpdatePromotionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	resp, err := h.service.Update(c.Context(), id, &req)
	if err != nil {
		if errors.Is(err, service.ErrPromotionNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "promotion not found"})
		}
		if errors.Is(err, service.ErrInvalidRequest) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
		}
		log.Error().Err(err).Str("promotion_id", id.String()).Msg("failed to update promotion")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	return c.JSON(resp)
}

// DeletePromotion handles DELETE /api/promotions/:id: the soft-delete path
// into trash. An optional body carries the acting user for the audit trail.
func (h *PromotionHandler) DeletePromotion(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request: id must be a valid uuid"})
	}

	var deletedBy *uuid.UUID
	if len(c.Body()) > 0 {
		var req model.DeletePromotionRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
		if err := h.validator.Struct(req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
		}
		if req.DeletedBy != nil {
			actor, err := uuid.Parse(*req.DeletedBy)
			if err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request: deleted_by must be a valid uuid"})
			}
			deletedBy = &actor
		}
	}

	deleted, err := h.service.Delete(c.Context(), id, deletedBy)
	if err != nil {
		if errors.Is(err, service.ErrAlreadyTrashed) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "promotion already in trash"})
		}
		log.Error().Err(err).Str("promotion_id", id.String()).Msg("failed to delete promotion")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
	if !deleted {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"deleted": false, "error": "promotion not found"})
	}

	log.Info().Str("promotion_id", id.String()).Msg("promotion moved to trash")
	return c.JSON(fiber.Map{"deleted": true})
}

// ListPromotions handles GET /api/promotions. Exactly one filter is required:
// category_id, status, or valid_on (YYYY-MM-DD).
func (h *PromotionHandler) ListPromotions(c *fiber.Ctx) error {
	switch {
	case c.Query("category_id") != "":
		categoryID, err := uuid.Parse(c.Query("category_id"))
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request: category_id must be a valid uuid"})
		}
		return h.respondList(c, func() ([]model.Promotion, error) {
			return h.service.ListByCategory(c.Context(), categoryID)
		})
	case c.Query("status") != "":
		return h.respondList(c, func() ([]model.Promotion, error) {
			return h.service.ListByStatus(c.Context(), c.Query("status"))
		})
	case c.Query("valid_on") != "":
		day, err := time.Parse(model.DateLayout, c.Query("valid_on"))
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request: valid_on must be a date in YYYY-MM-DD format"})
		}
		return h.respondList(c, func() ([]model.Promotion, error) {
			return h.service.ListValidOn(c.Context(), day)
		})
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request: one of category_id, status, valid_on is required",
		})
	}
}

func (h *PromotionHandler) respondList(c *fiber.Ctx, list func() ([]model.Promotion, error)) error {
	promotions, err := list()
	if err != nil {
		log.Error().Err(err).Msg("failed to list promotions")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	responses := make([]model.PromotionResponse, 0, len(promotions))
	for i := range promotions {
		responses = append(responses, *model.NewPromotionResponse(&promotions[i]))
	}
	return c.JSON(responses)
}

// CountOverlaps handles GET /api/promotions/overlaps. The count is advisory:
// callers decide what to do with a conflict.
func (h *PromotionHandler) CountOverlaps(c *fiber.Ctx) error {
	categoryID, err := uuid.Parse(c.Query("category_id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request: category_id must be a valid uuid"})
	}
	start, err := time.Parse(model.DateLayout, c.Query("start_date"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request: start_date must be a date in YYYY-MM-DD format"})
	}
	end, err := time.Parse(model.DateLayout, c.Query("end_date"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request: end_date must be a date in YYYY-MM-DD format"})
	}

	count, err := h.overlaps.CountActiveOverlaps(c.Context(), categoryID, start, end)
	if err != nil {
		log.Error().Err(err).Str("category_id", categoryID.String()).Msg("failed to count overlaps")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	return c.JSON(fiber.Map{"count": count})
}

// parseProductLink parses the :id param and product_ids body shared by the
// associate/remove endpoints. When ok is false the response is already written.
func (h *PromotionHandler) parseProductLink(c *fiber.Ctx) (id uuid.UUID, productIDs []uuid.UUID, ok bool, err error) {
	id, parseErr := parseIDParam(c, "id")
	if parseErr != nil {
		return uuid.Nil, nil, false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request: id must be a valid uuid"})
	}

	var req model.ProductLinkRequest
	if err := c.BodyParser(&req); err != nil {
		return uuid.Nil, nil, false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validator.Struct(req); err != nil {
		return uuid.Nil, nil, false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	productIDs = make([]uuid.UUID, 0, len(req.ProductIDs))
	for _, raw := range req.ProductIDs {
		productID, parseErr := uuid.Parse(raw)
		if parseErr != nil {
			return uuid.Nil, nil, false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request: product_ids must be valid uuids"})
		}
		productIDs = append(productIDs, productID)
	}
	return id, productIDs, true, nil
}

// AssociateProducts handles POST /api/promotions/:id/products.
func (h *PromotionHandler) AssociateProducts(c *fiber.Ctx) error {
	id, productIDs, ok, err := h.parseProductLink(c)
	if !ok {
		return err
	}

	found, err := h.service.AssociateProducts(c.Context(), id, productIDs)
	if err != nil {
		log.Error().Err(err).Str("promotion_id", id.String()).Msg("failed to associate products")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
	if !found {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "promotion not found"})
	}

	return c.JSON(fiber.Map{"associated": len(productIDs)})
}

// RemoveProducts handles DELETE /api/promotions/:id/products.
func (h *PromotionHandler) RemoveProducts(c *fiber.Ctx) error {
	id, productIDs, ok, err := h.parseProductLink(c)
	if !ok {
		return err
	}

	found, err := h.service.RemoveProducts(c.Context(), id, productIDs)
	if err != nil {
		log.Error().Err(err).Str("promotion_id", id.String()).Msg("failed to remove products")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
	if !found {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "promotion not found"})
	}

	return c.JSON(fiber.Map{"removed": len(productIDs)})
}
