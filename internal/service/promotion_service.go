package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/catalogkit/promotion-system/internal/clock"
	"github.com/catalogkit/promotion-system/internal/model"
	"github.com/catalogkit/promotion-system/pkg/database"
)

// PromotionRepositoryInterface defines the interface for live promotion data access.
type PromotionRepositoryInterface interface {
	Insert(ctx context.Context, q database.TxQuerier, p *model.Promotion) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Promotion, error)
	GetForUpdate(ctx context.Context, tx database.TxQuerier, id uuid.UUID) (*model.Promotion, error)
	Update(ctx context.Context, p *model.Promotion) error
	Delete(ctx context.Context, tx database.TxQuerier, id uuid.UUID) error
	ListByCategory(ctx context.Context, categoryID uuid.UUID) ([]model.Promotion, error)
	ListByStatus(ctx context.Context, status string) ([]model.Promotion, error)
	ListValidOn(ctx context.Context, day time.Time) ([]model.Promotion, error)
	LinkProducts(ctx context.Context, promotionID uuid.UUID, productIDs []uuid.UUID) error
	UnlinkProducts(ctx context.Context, promotionID uuid.UUID, productIDs []uuid.UUID) error
}

// TrashRepositoryInterface defines the interface for trashed promotion data access.
type TrashRepositoryInterface interface {
	Insert(ctx context.Context, tx database.TxQuerier, t *model.TrashedPromotion) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.TrashedPromotion, error)
	GetForUpdate(ctx context.Context, tx database.TxQuerier, id uuid.UUID) (*model.TrashedPromotion, error)
	ListRestorable(ctx context.Context, cutoff time.Time) ([]model.TrashedPromotion, error)
	ListPurgeable(ctx context.Context, cutoff time.Time) ([]model.TrashedPromotion, error)
	ListByDeleter(ctx context.Context, userID uuid.UUID) ([]model.TrashedPromotion, error)
	Delete(ctx context.Context, q database.TxQuerier, id uuid.UUID) (bool, error)
}

// RelationResolver resolves the optional relation ids carried by create and
// update requests. Misses are reported, never fatal.
type RelationResolver interface {
	ResolveStatus(ctx context.Context, id uuid.UUID) (string, error)
	ResolveUser(ctx context.Context, id uuid.UUID) (bool, error)
	ResolveCategory(ctx context.Context, id uuid.UUID) (bool, error)
}

// TxBeginner defines the interface for beginning transactions.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PromotionService orchestrates the promotion lifecycle: create, update,
// soft delete into trash, restore within the retention window, and permanent
// purge. Soft delete and restore each run as a single transaction so two
// concurrent callers cannot both win the same transition.
type PromotionService struct {
	pool          TxBeginner
	db            database.TxQuerier
	promoRepo     PromotionRepositoryInterface
	trashRepo     TrashRepositoryInterface
	resolver      RelationResolver
	overlaps      OverlapCounter
	clock         clock.Clock
	retentionDays int
}

// NewPromotionService creates a new PromotionService with the given pool,
// repositories, resolver, overlap validator, clock and retention window.
func NewPromotionService(
	pool *pgxpool.Pool,
	promoRepo PromotionRepositoryInterface,
	trashRepo TrashRepositoryInterface,
	resolver RelationResolver,
	overlaps OverlapCounter,
	clk clock.Clock,
	retentionDays int,
) *PromotionService {
	return &PromotionService{
		pool:          pool,
		db:            pool,
		promoRepo:     promoRepo,
		trashRepo:     trashRepo,
		resolver:      resolver,
		overlaps:      overlaps,
		clock:         clk,
		retentionDays: retentionDays,
	}
}

// NewPromotionServiceWithTxBeginner creates a PromotionService with custom
// pool interfaces. Primarily used for testing.
func NewPromotionServiceWithTxBeginner(
	pool TxBeginner,
	db database.TxQuerier,
	promoRepo PromotionRepositoryInterface,
	trashRepo TrashRepositoryInterface,
	resolver RelationResolver,
	overlaps OverlapCounter,
	clk clock.Clock,
	retentionDays int,
) *PromotionService {
	return &PromotionService{
		pool:          pool,
		db:            db,
		promoRepo:     promoRepo,
		trashRepo:     trashRepo,
		resolver:      resolver,
		overlaps:      overlaps,
		clock:         clk,
		retentionDays: retentionDays,
	}
}

// RetentionDays returns the configured trash retention window.
func (s *PromotionService) RetentionDays() int { return s.retentionDays }

// Now returns the service clock's current time.
func (s *PromotionService) Now() time.Time { return s.clock.Now() }

// resolveRelations applies the optional status/user/category ids from a
// request onto the promotion. An id that does not resolve leaves the relation
// unchanged and contributes a warning instead of failing the operation.
func (s *PromotionService) resolveRelations(ctx context.Context, p *model.Promotion, statusID, userID, categoryID *string) ([]string, error) {
	var warnings []string

	if statusID != nil {
		id, err := uuid.Parse(*statusID)
		if err != nil {
			return nil, ErrInvalidRequest
		}
		code, err := s.resolver.ResolveStatus(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("resolve status: %w", err)
		}
		if code == "" {
			warnings = append(warnings, fmt.Sprintf("status %s not found, left unset", id))
		} else {
			p.Status = code
		}
	}

	if userID != nil {
		id, err := uuid.Parse(*userID)
		if err != nil {
			return nil, ErrInvalidRequest
		}
		exists, err := s.resolver.ResolveUser(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("resolve user: %w", err)
		}
		if !exists {
			warnings = append(warnings, fmt.Sprintf("user %s not found, left unset", id))
		} else {
			p.CreatedBy = &id
		}
	}

	if categoryID != nil {
		id, err := uuid.Parse(*categoryID)
		if err != nil {
			return nil, ErrInvalidRequest
		}
		exists, err := s.resolver.ResolveCategory(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("resolve category: %w", err)
		}
		if !exists {
			warnings = append(warnings, fmt.Sprintf("category %s not found, left unset", id))
		} else {
			p.CategoryID = &id
		}
	}

	return warnings, nil
}

// advisoryOverlapCount counts conflicting active promotions for the
// promotion's category and range. The count is surfaced to the caller, never
// enforced; policy on conflicts is deliberately left outside the lifecycle.
func (s *PromotionService) advisoryOverlapCount(ctx context.Context, p *model.Promotion) (*int, error) {
	if p.Status != model.StatusActive || p.CategoryID == nil {
		return nil, nil
	}
	count, err := s.overlaps.CountActiveOverlaps(ctx, *p.CategoryID, p.StartDate, p.EndDate)
	if err != nil {
		return nil, fmt.Errorf("advisory overlap count: %w", err)
	}
	return &count, nil
}

// Create persists a new live promotion. Relation ids are resolved
// best-effort; misses are returned as resolution warnings on the response.
// For ACTIVE candidates with a category, the response carries the number of
// already-active promotions in the category whose ranges intersect.
func (s *PromotionService) Create(ctx context.Context, req *model.CreatePromotionRequest) (*model.PromotionResponse, error) {
	// Defense-in-depth: check for nil pointer even though handler validates
	if req == nil || req.DiscountValue == nil {
		return nil, ErrInvalidRequest
	}

	startDate, err := time.Parse(model.DateLayout, req.StartDate)
	if err != nil {
		return nil, ErrInvalidRequest
	}
	endDate, err := time.Parse(model.DateLayout, req.EndDate)
	if err != nil {
		return nil, ErrInvalidRequest
	}

	p := &model.Promotion{
		ID:            uuid.New(),
		Name:          req.Name,
		Description:   req.Description,
		StartDate:     startDate,
		EndDate:       endDate,
		DiscountValue: *req.DiscountValue,
		CreatedAt:     s.clock.Now(),
	}

	warnings, err := s.resolveRelations(ctx, p, req.StatusID, req.UserID, req.CategoryID)
	if err != nil {
		return nil, err
	}

	// Counted before insert so the new promotion does not count itself.
	overlapCount, err := s.advisoryOverlapCount(ctx, p)
	if err != nil {
		return nil, err
	}

	if err := s.promoRepo.Insert(ctx, s.db, p); err != nil {
		return nil, fmt.Errorf("create promotion: %w", err)
	}

	resp := model.NewPromotionResponse(p)
	resp.OverlapCount = overlapCount
	resp.ResolutionWarnings = warnings
	return resp, nil
}

// Get retrieves a live promotion by id.
// Returns ErrPromotionNotFound if no live promotion has the id.
func (s *PromotionService) Get(ctx context.Context, id uuid.UUID) (*model.PromotionResponse, error) {
	p, err := s.promoRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get promotion: %w", err)
	}
	if p == nil {
		return nil, ErrPromotionNotFound
	}
	return model.NewPromotionResponse(p), nil
}

// Update partially updates a live promotion: nil request fields keep the
// stored values, relation ids are re-resolved exactly as in Create.
// Returns ErrPromotionNotFound if no live promotion has the id.
func (s *PromotionService) Update(ctx context.Context, id uuid.UUID, req *model.UpdatePromotionRequest) (*model.PromotionResponse, error) {
	if req == nil {
		return nil, ErrInvalidRequest
	}

	p, err := s.promoRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load promotion for update: %w", err)
	}
	if p == nil {
		return nil, ErrPromotionNotFound
	}

	if req.Name != nil {
		p.Name = *req.Name
	}
	if req.Description != nil {
		p.Description = *req.Description
	}
	if req.StartDate != nil {
		startDate, err := time.Parse(model.DateLayout, *req.StartDate)
		if err != nil {
			return nil, ErrInvalidRequest
		}
		p.StartDate = startDate
	}
	if req.EndDate != nil {
		endDate, err := time.Parse(model.DateLayout, *req.EndDate)
		if err != nil {
			return nil, ErrInvalidRequest
		}
		p.EndDate = endDate
	}
	if req.DiscountValue != nil {
		p.DiscountValue = *req.DiscountValue
	}

	warnings, err := s.resolveRelations(ctx, p, req.StatusID, req.UserID, req.CategoryID)
	if err != nil {
		return nil, err
	}

	if err := s.promoRepo.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("update promotion: %w", err)
	}

	resp := model.NewPromotionResponse(p)
	resp.ResolutionWarnings = warnings
	return resp, nil
}

// Delete soft-deletes a live promotion: inside one transaction the live row
// is locked, snapshotted into trash with the deletion time and actor, and
// removed. Returns false when no live promotion has the id; there is no
// direct hard delete of a live promotion.
func (s *PromotionService) Delete(ctx context.Context, id uuid.UUID, deletedBy *uuid.UUID) (bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }() // Safe: no-op if committed

	// 1. Lock the live row so a concurrent delete/restore cannot race us
	p, err := s.promoRepo.GetForUpdate(ctx, tx, id)
	if err != nil {
		if errors.Is(err, ErrPromotionNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("get promotion for delete: %w", err)
	}

	// 2. Snapshot into trash with actor and timestamp
	trashed := &model.TrashedPromotion{
		Promotion: *p,
		DeletedAt: s.clock.Now(),
		DeletedBy: deletedBy,
	}
	if err := s.trashRepo.Insert(ctx, tx, trashed); err != nil {
		if errors.Is(err, ErrAlreadyTrashed) {
			return false, ErrAlreadyTrashed
		}
		return false, fmt.Errorf("insert trash snapshot: %w", err)
	}

	// 3. Remove the live row
	if err := s.promoRepo.Delete(ctx, tx, id); err != nil {
		return false, fmt.Errorf("remove live promotion: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit delete: %w", err)
	}
	return true, nil
}

// Restore moves a trashed promotion back into the live store if it is still
// inside the retention window. Returns false when no trash row has the id,
// and ErrRetentionExpired when the row exists but the window has elapsed
// (exactly retentionDays elapsed is already expired). Overlap validation is
// not re-run on restore; the count stays advisory as in Create.
func (s *PromotionService) Restore(ctx context.Context, id uuid.UUID) (bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// 1. Lock the trash row
	trashed, err := s.trashRepo.GetForUpdate(ctx, tx, id)
	if err != nil {
		if errors.Is(err, ErrTrashNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("get trashed promotion for restore: %w", err)
	}

	// 2. Enforce the retention window
	if !trashed.Restorable(s.clock.Now(), s.retentionDays) {
		return false, ErrRetentionExpired
	}

	// 3. Re-insert the live promotion from the snapshot
	restored := trashed.Promotion
	if err := s.promoRepo.Insert(ctx, tx, &restored); err != nil {
		return false, fmt.Errorf("reinsert promotion: %w", err)
	}

	// 4. Remove the trash row
	if _, err := s.trashRepo.Delete(ctx, tx, id); err != nil {
		return false, fmt.Errorf("remove trash row: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit restore: %w", err)
	}
	return true, nil
}

// PermanentDelete removes a trash row unconditionally. The retention window
// does not apply: a caller may purge early. Returns false when the id is not
// in trash.
func (s *PromotionService) PermanentDelete(ctx context.Context, id uuid.UUID) (bool, error) {
	removed, err := s.trashRepo.Delete(ctx, s.db, id)
	if err != nil {
		return false, fmt.Errorf("permanent delete: %w", err)
	}
	return removed, nil
}

// retentionCutoff is the deletion instant at which a trash row stops being
// restorable under the current clock.
func (s *PromotionService) retentionCutoff() time.Time {
	return s.clock.Now().Add(-time.Duration(s.retentionDays) * 24 * time.Hour)
}

// ListTrash returns the currently-restorable trash rows (deleted less than
// retentionDays ago) with their derived days-until-purge.
func (s *PromotionService) ListTrash(ctx context.Context) ([]model.TrashedPromotionResponse, error) {
	trashed, err := s.trashRepo.ListRestorable(ctx, s.retentionCutoff())
	if err != nil {
		return nil, fmt.Errorf("list trash: %w", err)
	}
	return s.trashResponses(trashed), nil
}

// ListTrashPurgeable returns the trash rows past the retention window. They
// persist until explicitly purged; the core never deletes them on a timer.
func (s *PromotionService) ListTrashPurgeable(ctx context.Context) ([]model.TrashedPromotionResponse, error) {
	trashed, err := s.trashRepo.ListPurgeable(ctx, s.retentionCutoff())
	if err != nil {
		return nil, fmt.Errorf("list purgeable trash: %w", err)
	}
	return s.trashResponses(trashed), nil
}

// ListTrashByUser returns every trash row deleted by the user, regardless of
// age.
func (s *PromotionService) ListTrashByUser(ctx context.Context, userID uuid.UUID) ([]model.TrashedPromotionResponse, error) {
	trashed, err := s.trashRepo.ListByDeleter(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list trash by user: %w", err)
	}
	return s.trashResponses(trashed), nil
}

func (s *PromotionService) trashResponses(trashed []model.TrashedPromotion) []model.TrashedPromotionResponse {
	now := s.clock.Now()
	responses := make([]model.TrashedPromotionResponse, 0, len(trashed))
	for i := range trashed {
		responses = append(responses, *model.NewTrashedPromotionResponse(&trashed[i], now, s.retentionDays))
	}
	return responses
}

// ListByCategory returns the live promotions attached to a category.
func (s *PromotionService) ListByCategory(ctx context.Context, categoryID uuid.UUID) ([]model.Promotion, error) {
	return s.promoRepo.ListByCategory(ctx, categoryID)
}

// ListByStatus returns the live promotions with the given status.
func (s *PromotionService) ListByStatus(ctx context.Context, status string) ([]model.Promotion, error) {
	return s.promoRepo.ListByStatus(ctx, status)
}

// ListValidOn returns the live promotions whose validity window contains the
// given day.
func (s *PromotionService) ListValidOn(ctx context.Context, day time.Time) ([]model.Promotion, error) {
	return s.promoRepo.ListValidOn(ctx, day)
}

// AssociateProducts bulk-attaches products to a promotion. Returns false when
// no live promotion has the id; link mechanics are delegated to the store.
func (s *PromotionService) AssociateProducts(ctx context.Context, promotionID uuid.UUID, productIDs []uuid.UUID) (bool, error) {
	p, err := s.promoRepo.GetByID(ctx, promotionID)
	if err != nil {
		return false, fmt.Errorf("load promotion for product link: %w", err)
	}
	if p == nil {
		return false, nil
	}
	if err := s.promoRepo.LinkProducts(ctx, promotionID, productIDs); err != nil {
		return false, err
	}
	return true, nil
}

// RemoveProducts bulk-detaches products from a promotion. Returns false when
// no live promotion has the id.
func (s *PromotionService) RemoveProducts(ctx context.Context, promotionID uuid.UUID, productIDs []uuid.UUID) (bool, error) {
	p, err := s.promoRepo.GetByID(ctx, promotionID)
	if err != nil {
		return false, fmt.Errorf("load promotion for product unlink: %w", err)
	}
	if p == nil {
		return false, nil
	}
	if err := s.promoRepo.UnlinkProducts(ctx, promotionID, productIDs); err != nil {
		return false, err
	}
	return true, nil
}
