package model

import "github.com/google/uuid"

// Category groups products and scopes promotion overlap checks.
type Category struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// Product belongs to a category and can be attached to promotions.
type Product struct {
	ID         uuid.UUID  `json:"id"`
	Name       string     `json:"name"`
	Price      float64    `json:"price"`
	CategoryID *uuid.UUID `json:"category_id,omitempty"`
}
