package model

import (
	"time"

	"github.com/google/uuid"
)

// Promotion status vocabulary. Deletion is modeled by absence from the live
// store, not by a status value.
const (
	StatusActive    = "ACTIVE"
	StatusScheduled = "SCHEDULED"
	StatusExpired   = "EXPIRED"
)

// DateLayout is the wire format for promotion validity dates.
const DateLayout = "2006-01-02"

// Promotion represents a live promotion. Its validity window is
// [StartDate, EndDate] inclusive at date granularity.
type Promotion struct {
	ID            uuid.UUID  `json:"id"`
	Name          string     `json:"name"`
	Description   string     `json:"description,omitempty"`
	StartDate     time.Time  `json:"start_date"`
	EndDate       time.Time  `json:"end_date"`
	DiscountValue float64    `json:"discount_value"`
	Status        string     `json:"status,omitempty"`
	CategoryID    *uuid.UUID `json:"category_id,omitempty"`
	CreatedBy     *uuid.UUID `json:"created_by,omitempty"`
	CreatedAt     time.Time  `json:"-"` // Not exposed in API
}

// CurrentlyValid reports whether now falls inside the promotion's validity
// window, endpoints included.
func (p *Promotion) CurrentlyValid(now time.Time) bool {
	day := now.Truncate(24 * time.Hour)
	return !day.Before(p.StartDate.Truncate(24*time.Hour)) &&
		!day.After(p.EndDate.Truncate(24*time.Hour))
}

// TrashedPromotion is a snapshot of a promotion taken at deletion time.
// It copies every Promotion field by value so restoring never depends on the
// original row still existing anywhere.
type TrashedPromotion struct {
	Promotion
	DeletedAt time.Time  `json:"deleted_at"`
	DeletedBy *uuid.UUID `json:"deleted_by,omitempty"`
}

// DaysUntilPurge returns how many whole days remain before the trashed
// promotion passes the retention window, floored at 0. At exactly
// retentionDays elapsed the result is 0 and the record is no longer
// restorable.
func (t *TrashedPromotion) DaysUntilPurge(now time.Time, retentionDays int) int {
	elapsed := int(now.Sub(t.DeletedAt).Hours() / 24)
	remaining := retentionDays - elapsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Restorable reports whether the trashed promotion can still be restored.
func (t *TrashedPromotion) Restorable(now time.Time, retentionDays int) bool {
	return t.DaysUntilPurge(now, retentionDays) > 0
}

// CreatePromotionRequest is the DTO for creating a promotion.
// Relation ids (status/user/category) are best-effort: an id that does not
// resolve leaves the relation unset instead of failing the request.
type CreatePromotionRequest struct {
	Name          string   `json:"name" validate:"required,notblank,max=255"`
	Description   string   `json:"description" validate:"max=2000"`
	StartDate     string   `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate       string   `json:"end_date" validate:"required,datetime=2006-01-02"`
	DiscountValue *float64 `json:"discount_value" validate:"required"`
	StatusID      *string  `json:"status_id" validate:"omitempty,uuid4"`
	UserID        *string  `json:"user_id" validate:"omitempty,uuid4"`
	CategoryID    *string  `json:"category_id" validate:"omitempty,uuid4"`
}

// UpdatePromotionRequest is the DTO for partially updating a promotion.
// Nil fields leave the stored value unchanged.
type UpdatePromotionRequest struct {
	Name          *string  `json:"name" validate:"omitempty,notblank,max=255"`
	Description   *string  `json:"description" validate:"omitempty,max=2000"`
	StartDate     *string  `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate       *string  `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	DiscountValue *float64 `json:"discount_value"`
	StatusID      *string  `json:"status_id" validate:"omitempty,uuid4"`
	UserID        *string  `json:"user_id" validate:"omitempty,uuid4"`
	CategoryID    *string  `json:"category_id" validate:"omitempty,uuid4"`
}

// DeletePromotionRequest carries the optional actor of a soft delete.
type DeletePromotionRequest struct {
	DeletedBy *string `json:"deleted_by" validate:"omitempty,uuid4"`
}

// RestorePromotionRequest carries the actor requesting a restore.
type RestorePromotionRequest struct {
	UserID *string `json:"user_id" validate:"omitempty,uuid4"`
}

// ProductLinkRequest is the DTO for bulk attaching or detaching products.
type ProductLinkRequest struct {
	ProductIDs []string `json:"product_ids" validate:"required,min=1,dive,uuid4"`
}

// PromotionResponse is the API response DTO for a live promotion.
type PromotionResponse struct {
	ID                 uuid.UUID  `json:"id"`
	Name               string     `json:"name"`
	Description        string     `json:"description,omitempty"`
	StartDate          string     `json:"start_date"`
	EndDate            string     `json:"end_date"`
	DiscountValue      float64    `json:"discount_value"`
	Status             string     `json:"status,omitempty"`
	CategoryID         *uuid.UUID `json:"category_id,omitempty"`
	CreatedBy          *uuid.UUID `json:"created_by,omitempty"`
	OverlapCount       *int       `json:"overlap_count,omitempty"`
	ResolutionWarnings []string   `json:"resolution_warnings,omitempty"`
}

// NewPromotionResponse maps a Promotion to its response DTO.
func NewPromotionResponse(p *Promotion) *PromotionResponse {
	return &PromotionResponse{
		ID:            p.ID,
		Name:          p.Name,
		Description:   p.Description,
		StartDate:     p.StartDate.Format(DateLayout),
		EndDate:       p.EndDate.Format(DateLayout),
		DiscountValue: p.DiscountValue,
		Status:        p.Status,
		CategoryID:    p.CategoryID,
		CreatedBy:     p.CreatedBy,
	}
}

// TrashedPromotionResponse is the API response DTO for a trashed promotion.
// DaysUntilPurge is derived at read time, never stored.
type TrashedPromotionResponse struct {
	ID             uuid.UUID  `json:"id"`
	Name           string     `json:"name"`
	Description    string     `json:"description,omitempty"`
	StartDate      string     `json:"start_date"`
	EndDate        string     `json:"end_date"`
	DiscountValue  float64    `json:"discount_value"`
	Status         string     `json:"status,omitempty"`
	CategoryID     *uuid.UUID `json:"category_id,omitempty"`
	DeletedAt      time.Time  `json:"deleted_at"`
	DeletedBy      *uuid.UUID `json:"deleted_by,omitempty"`
	DaysUntilPurge int        `json:"days_until_purge"`
}

// NewTrashedPromotionResponse maps a TrashedPromotion to its response DTO.
func NewTrashedPromotionResponse(t *TrashedPromotion, now time.Time, retentionDays int) *TrashedPromotionResponse {
	return &TrashedPromotionResponse{
		ID:             t.ID,
		Name:           t.Name,
		Description:    t.Description,
		StartDate:      t.StartDate.Format(DateLayout),
		EndDate:        t.EndDate.Format(DateLayout),
		DiscountValue:  t.DiscountValue,
		Status:         t.Status,
		CategoryID:     t.CategoryID,
		DeletedAt:      t.DeletedAt,
		DeletedBy:      t.DeletedBy,
		DaysUntilPurge: t.DaysUntilPurge(now, retentionDays),
	}
}
