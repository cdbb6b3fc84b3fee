package service

import "errors"

var (
	// ErrPromotionNotFound is returned when a live promotion cannot be found
	ErrPromotionNotFound = errors.New("promotion not found")

	// ErrTrashNotFound is returned when a trashed promotion cannot be found
	ErrTrashNotFound = errors.New("promotion not found in trash")

	// ErrRetentionExpired is returned when a restore is attempted past the retention window
	ErrRetentionExpired = errors.New("promotion retention window expired")

	// ErrAlreadyTrashed is returned when a trash row already exists for the promotion id
	ErrAlreadyTrashed = errors.New("promotion already in trash")

	// ErrInvalidRequest is returned when request data is invalid or incomplete
	ErrInvalidRequest = errors.New("invalid request")
)
