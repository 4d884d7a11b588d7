package domain

import (
	"time"

	"github.com/google/uuid"
)

// Category groups products on the register screen. Names are unique.
type Category struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// ProductCount is populated by list queries; it is not a column.
	ProductCount int `json:"product_count,omitempty" db:"-"`
}

// Product is a sellable inventory item. Stock is decremented on every
// completed sale and must never go negative.
type Product struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	Price       float64   `json:"price" db:"price"`
	Stock       int       `json:"stock" db:"stock"`
	ImageURL    string    `json:"image_url" db:"image_url"`
	CategoryID  uuid.UUID `json:"category_id" db:"category_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`

	// Category is joined by list/get queries for display.
	Category *Category `json:"category,omitempty" db:"-"`
}
