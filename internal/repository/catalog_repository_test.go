package repository

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogRepository_ResolveStatus_Found(t *testing.T) {
	mock := &mockPool{
		queryRowFn: func(ctx context.Context, sql string, args ...any) pgx.Row {
			return &mockRow{scanFn: func(dest ...any) error {
				*dest[0].(*string) = "ACTIVE"
				return nil
			}}
		},
	}

	repo := NewCatalogRepositoryWithPool(mock)
	code, err := repo.ResolveStatus(context.Background(), uuid.New())

	require.NoError(t, err)
	assert.Equal(t, "ACTIVE", code)
}

func TestCatalogRepository_ResolveStatus_NotFound(t *testing.T) {
	mock := &mockPool{
		queryRowFn: func(ctx context.Context, sql string, args ...any) pgx.Row {
			return &mockRow{scanFn: func(dest ...any) error {
				return pgx.ErrNoRows
			}}
		},
	}

	repo := NewCatalogRepositoryWithPool(mock)
	code, err := repo.ResolveStatus(context.Background(), uuid.New())

	require.NoError(t, err, "unresolved status is a miss, not an error")
	assert.Equal(t, "", code)
}

func TestCatalogRepository_ResolveUser_Exists(t *testing.T) {
	var capturedSQL string
	mock := &mockPool{
		queryRowFn: func(ctx context.Context, sql string, args ...any) pgx.Row {
			capturedSQL = sql
			return &mockRow{scanFn: func(dest ...any) error {
				*dest[0].(*bool) = true
				return nil
			}}
		},
	}

	repo := NewCatalogRepositoryWithPool(mock)
	exists, err := repo.ResolveUser(context.Background(), uuid.New())

	require.NoError(t, err)
	assert.True(t, exists)
	assert.Contains(t, capturedSQL, "SELECT EXISTS")
}

func TestCatalogRepository_ListProducts_CategoryFilter(t *testing.T) {
	categoryID := uuid.New()
	var capturedSQL string
	var capturedArgs []any
	mock := &mockPool{
		queryFn: func(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
			capturedSQL = sql
			capturedArgs = args
			return &mockRows{}, nil
		},
	}

	repo := NewCatalogRepositoryWithPool(mock)
	products, err := repo.ListProducts(context.Background(), &categoryID)

	require.NoError(t, err)
	assert.Empty(t, products)
	assert.Contains(t, capturedSQL, "WHERE category_id = $1")
	require.Len(t, capturedArgs, 1)
	assert.Equal(t, categoryID, capturedArgs[0])
}

func TestCatalogRepository_ListProducts_NoFilter(t *testing.T) {
	var capturedSQL string
	mock := &mockPool{
		queryFn: func(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
			capturedSQL = sql
			return &mockRows{}, nil
		},
	}

	repo := NewCatalogRepositoryWithPool(mock)
	_, err := repo.ListProducts(context.Background(), nil)

	require.NoError(t, err)
	assert.NotContains(t, capturedSQL, "WHERE")
}
