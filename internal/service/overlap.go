package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// OverlapCounter is the store query the validator consumes: live ACTIVE
// promotions in a category whose inclusive date ranges intersect a candidate.
type OverlapCounter interface {
	CountActiveOverlaps(ctx context.Context, categoryID uuid.UUID, start, end time.Time) (int, error)
}

// OverlapValidator counts conflicting active promotions for a candidate date
// range. It is advisory: a count > 0 signals a conflict, and what to do with
// that is the caller's policy. Nothing in the lifecycle rejects on conflict.
type OverlapValidator struct {
	store OverlapCounter
}

// NewOverlapValidator creates an OverlapValidator over the given store.
func NewOverlapValidator(store OverlapCounter) *OverlapValidator {
	return &OverlapValidator{store: store}
}

// CountActiveOverlaps counts live ACTIVE promotions in the category whose
// ranges intersect [start, end]. Endpoints are inclusive: ranges that touch
// on a shared day overlap, ranges on adjacent days do not.
func (v *OverlapValidator) CountActiveOverlaps(ctx context.Context, categoryID uuid.UUID, start, end time.Time) (int, error) {
	count, err := v.store.CountActiveOverlaps(ctx, categoryID, start, end)
	if err != nil {
		return 0, fmt.Errorf("count active overlaps: %w", err)
	}
	return count, nil
}

// RangesOverlap reports whether two inclusive date ranges intersect:
// aStart <= bEnd AND bStart <= aEnd.
func RangesOverlap(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !aStart.After(bEnd) && !bStart.After(aEnd)
}
