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

const trashColumns = `promotion_id, name, description, start_date, end_date, discount_value, status, category_id, created_by, created_at, deleted_at, deleted_by`

// TrashRepository provides data access for soft-deleted promotions using pgx.
// Trash rows are keyed by the original promotion id, one row per id.
type TrashRepository struct {
	pool PoolInterface
}

// NewTrashRepository creates a new TrashRepository with the given pool.
func NewTrashRepository(pool *pgxpool.Pool) *TrashRepository {
	return &TrashRepository{pool: pool}
}

// NewTrashRepositoryWithPool creates a new TrashRepository with a custom pool
// interface. This is primarily used for testing.
func NewTrashRepositoryWithPool(pool PoolInterface) *TrashRepository {
	return &TrashRepository{pool: pool}
}

func scanTrashed(row pgx.Row) (*model.TrashedPromotion, error) {
	var t model.TrashedPromotion
	err := row.Scan(
		&t.ID,
		&t.Name,
		&t.Description,
		&t.StartDate,
		&t.EndDate,
		&t.DiscountValue,
		&t.Status,
		&t.CategoryID,
		&t.CreatedBy,
		&t.CreatedAt,
		&t.DeletedAt,
		&t.DeletedBy,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Insert snapshots a promotion into trash. Must run inside the soft-delete
// transaction. Returns service.ErrAlreadyTrashed if a trash row already
// exists for the promotion id.
func (r *TrashRepository) Insert(ctx context.Context, tx database.TxQuerier, t *model.TrashedPromotion) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO trashed_promotions (promotion_id, name, description, start_date, end_date, discount_value, status, category_id, created_by, created_at, deleted_at, deleted_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		t.ID, t.Name, t.Description, t.StartDate, t.EndDate, t.DiscountValue, t.Status, t.CategoryID, t.CreatedBy, t.CreatedAt, t.DeletedAt, t.DeletedBy)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return service.ErrAlreadyTrashed
		}
		return fmt.Errorf("insert trashed promotion: %w", err)
	}
	return nil
}

// GetByID retrieves a trashed promotion by its original promotion id.
// Returns nil, nil if not found (service layer handles this).
func (r *TrashRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.TrashedPromotion, error) {
	query := `SELECT ` + trashColumns + ` FROM trashed_promotions WHERE promotion_id = $1`

	t, err := scanTrashed(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get trashed promotion %s: %w", id, err)
	}
	return t, nil
}

// GetForUpdate retrieves a trashed promotion with a row lock so a concurrent
// restore or purge of the same id cannot race this transaction.
// Returns service.ErrTrashNotFound if no trash row exists for the id.
func (r *TrashRepository) GetForUpdate(ctx context.Context, tx database.TxQuerier, id uuid.UUID) (*model.TrashedPromotion, error) {
	query := `SELECT ` + trashColumns + ` FROM trashed_promotions WHERE promotion_id = $1 FOR UPDATE`

	t, err := scanTrashed(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrTrashNotFound
		}
		return nil, fmt.Errorf("get trashed promotion for update %s: %w", id, err)
	}
	return t, nil
}

func (r *TrashRepository) listRows(ctx context.Context, query string, args ...any) ([]model.TrashedPromotion, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list trashed promotions: %w", err)
	}
	defer rows.Close()

	trashed := []model.TrashedPromotion{}
	for rows.Next() {
		t, err := scanTrashed(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trashed promotion row: %w", err)
		}
		trashed = append(trashed, *t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trashed promotion rows: %w", err)
	}
	return trashed, nil
}

// ListRestorable retrieves trash rows deleted after the cutoff, i.e. still
// inside the retention window.
func (r *TrashRepository) ListRestorable(ctx context.Context, cutoff time.Time) ([]model.TrashedPromotion, error) {
	return r.listRows(ctx,
		`SELECT `+trashColumns+` FROM trashed_promotions WHERE deleted_at > $1 ORDER BY deleted_at DESC`,
		cutoff)
}

// ListPurgeable retrieves trash rows deleted at or before the cutoff, i.e.
// past the retention window. These are the input to an operator purge sweep;
// nothing purges them automatically.
func (r *TrashRepository) ListPurgeable(ctx context.Context, cutoff time.Time) ([]model.TrashedPromotion, error) {
	return r.listRows(ctx,
		`SELECT `+trashColumns+` FROM trashed_promotions WHERE deleted_at <= $1 ORDER BY deleted_at`,
		cutoff)
}

// ListByDeleter retrieves all trash rows deleted by the given user,
// regardless of age.
func (r *TrashRepository) ListByDeleter(ctx context.Context, userID uuid.UUID) ([]model.TrashedPromotion, error) {
	return r.listRows(ctx,
		`SELECT `+trashColumns+` FROM trashed_promotions WHERE deleted_by = $1 ORDER BY deleted_at DESC`,
		userID)
}

// Delete removes a trash row. It accepts a TxQuerier so restore can run it in
// the same transaction that re-inserts the live promotion; permanent delete
// calls it directly on the pool. Reports whether a row was removed.
func (r *TrashRepository) Delete(ctx context.Context, q database.TxQuerier, id uuid.UUID) (bool, error) {
	tag, err := q.Exec(ctx, `DELETE FROM trashed_promotions WHERE promotion_id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete trashed promotion %s: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}
