package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/catalogkit/promotion-system/internal/model"
	"github.com/catalogkit/promotion-system/internal/service"
	"github.com/catalogkit/promotion-system/pkg/database"
)

// PoolInterface defines the database operations needed by repositories.
// This allows for easier testing with mocks.
type PoolInterface interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const promotionColumns = `id, name, description, start_date, end_date, discount_value, status, category_id, created_by, created_at`

// PromotionRepository provides data access for live promotions using pgx.
type PromotionRepository struct {
	pool PoolInterface
}

// NewPromotionRepository creates a new PromotionRepository with the given pool.
func NewPromotionRepository(pool *pgxpool.Pool) *PromotionRepository {
	return &PromotionRepository{pool: pool}
}

// NewPromotionRepositoryWithPool creates a new PromotionRepository with a custom
// pool interface. This is primarily used for testing.
func NewPromotionRepositoryWithPool(pool PoolInterface) *PromotionRepository {
	return &PromotionRepository{pool: pool}
}

func scanPromotion(row pgx.Row) (*model.Promotion, error) {
	var p model.Promotion
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&p.StartDate,
		&p.EndDate,
		&p.DiscountValue,
		&p.Status,
		&p.CategoryID,
		&p.CreatedBy,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Insert inserts a new live promotion. It accepts a TxQuerier so restore can
// run it inside the same transaction that removes the trash row.
func (r *PromotionRepository) Insert(ctx context.Context, q database.TxQuerier, p *model.Promotion) error {
	_, err := q.Exec(ctx,
		`INSERT INTO promotions (id, name, description, start_date, end_date, discount_value, status, category_id, created_by, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		p.ID, p.Name, p.Description, p.StartDate, p.EndDate, p.DiscountValue, p.Status, p.CategoryID, p.CreatedBy, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert promotion: %w", err)
	}
	return nil
}

// GetByID retrieves a live promotion by id.
// Returns nil, nil if the promotion is not found (service layer handles this).
func (r *PromotionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Promotion, error) {
	query := `SELECT ` + promotionColumns + ` FROM promotions WHERE id = $1`

	p, err := scanPromotion(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found - let service handle
		}
		return nil, fmt.Errorf("get promotion %s: %w", id, err)
	}
	return p, nil
}

// GetForUpdate retrieves a live promotion with a row lock (SELECT FOR UPDATE)
// so a concurrent delete of the same id cannot race this transaction.
// Returns service.ErrPromotionNotFound if the promotion doesn't exist.
func (r *PromotionRepository) GetForUpdate(ctx context.Context, tx database.TxQuerier, id uuid.UUID) (*model.Promotion, error) {
	query := `SELECT ` + promotionColumns + ` FROM promotions WHERE id = $1 FOR UPDATE`

	p, err := scanPromotion(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrPromotionNotFound
		}
		return nil, fmt.Errorf("get promotion for update %s: %w", id, err)
	}
	return p, nil
}

// Update persists all mutable fields of an existing promotion.
func (r *PromotionRepository) Update(ctx context.Context, p *model.Promotion) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE promotions SET name = $2, description = $3, start_date = $4, end_date = $5,
		 discount_value = $6, status = $7, category_id = $8, created_by = $9 WHERE id = $1`,
		p.ID, p.Name, p.Description, p.StartDate, p.EndDate, p.DiscountValue, p.Status, p.CategoryID, p.CreatedBy)
	if err != nil {
		return fmt.Errorf("update promotion %s: %w", p.ID, err)
	}
	return nil
}

// Delete removes a live promotion row. Must run inside the soft-delete
// transaction, after the row has been locked and snapshotted into trash.
func (r *PromotionRepository) Delete(ctx context.Context, tx database.TxQuerier, id uuid.UUID) error {
	_, err := tx.Exec(ctx, `DELETE FROM promotions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete promotion %s: %w", id, err)
	}
	return nil
}

func (r *PromotionRepository) list(ctx context.Context, query string, args ...any) ([]model.Promotion, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list promotions: %w", err)
	}
	defer rows.Close()

	promotions := []model.Promotion{}
	for rows.Next() {
		p, err := scanPromotion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan promotion row: %w", err)
		}
		promotions = append(promotions, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate promotion rows: %w", err)
	}
	return promotions, nil
}

// ListByCategory retrieves all live promotions attached to a category.
func (r *PromotionRepository) ListByCategory(ctx context.Context, categoryID uuid.UUID) ([]model.Promotion, error) {
	return r.list(ctx,
		`SELECT `+promotionColumns+` FROM promotions WHERE category_id = $1 ORDER BY start_date`,
		categoryID)
}

// ListByStatus retrieves all live promotions with the given status.
func (r *PromotionRepository) ListByStatus(ctx context.Context, status string) ([]model.Promotion, error) {
	return r.list(ctx,
		`SELECT `+promotionColumns+` FROM promotions WHERE status = $1 ORDER BY start_date`,
		status)
}

// ListValidOn retrieves all live promotions whose inclusive validity window
// contains the given date.
func (r *PromotionRepository) ListValidOn(ctx context.Context, day time.Time) ([]model.Promotion, error) {
	return r.list(ctx,
		`SELECT `+promotionColumns+` FROM promotions WHERE start_date <= $1 AND end_date >= $1 ORDER BY start_date`,
		day)
}

// CountActiveOverlaps counts live ACTIVE promotions in the category whose
// inclusive date ranges intersect the candidate range.
func (r *PromotionRepository) CountActiveOverlaps(ctx context.Context, categoryID uuid.UUID, start, end time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM promotions
	          WHERE category_id = $1 AND status = $2 AND start_date <= $4 AND end_date >= $3`

	var count int
	err := r.pool.QueryRow(ctx, query, categoryID, model.StatusActive, start, end).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count active overlaps in category %s: %w", categoryID, err)
	}
	return count, nil
}

// LinkProducts bulk-attaches products to a promotion. Existing links are kept
// as-is (ON CONFLICT DO NOTHING), so re-linking is idempotent.
func (r *PromotionRepository) LinkProducts(ctx context.Context, promotionID uuid.UUID, productIDs []uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO promotion_products (promotion_id, product_id)
		 SELECT $1, unnest($2::uuid[]) ON CONFLICT DO NOTHING`,
		promotionID, productIDs)
	if err != nil {
		return fmt.Errorf("link products to promotion %s: %w", promotionID, err)
	}
	return nil
}

// UnlinkProducts bulk-detaches products from a promotion.
func (r *PromotionRepository) UnlinkProducts(ctx context.Context, promotionID uuid.UUID, productIDs []uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM promotion_products WHERE promotion_id = $1 AND product_id = ANY($2::uuid[])`,
		promotionID, productIDs)
	if err != nil {
		return fmt.Errorf("unlink products from promotion %s: %w", promotionID, err)
	}
	return nil
}
