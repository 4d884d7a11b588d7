package domain

import (
	"time"

	"github.com/google/uuid"
)

// Sale statuses. Reporting and the dashboard only consider completed sales.
const (
	SaleStatusCompleted = "COMPLETED"
	SaleStatusPending   = "PENDING"
	SaleStatusCancelled = "CANCELLED"
)

// Sale is a recorded transaction. Amounts are supplied by the register at
// commit time and are immutable afterwards: Total = Subtotal + Tax and
// Change = CashGiven - Total by construction.
type Sale struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	UserID     uuid.UUID  `json:"user_id" db:"user_id"`
	CustomerID *uuid.UUID `json:"customer_id,omitempty" db:"customer_id"`
	Subtotal   float64    `json:"subtotal" db:"subtotal"`
	Tax        float64    `json:"tax" db:"tax"`
	Total      float64    `json:"total" db:"total"`
	CashGiven  float64    `json:"cash_given" db:"cash_given"`
	Change     float64    `json:"change" db:"change"`
	Status     string     `json:"status" db:"status"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`

	Items    []SaleItem `json:"items" db:"-"`
	User     *User      `json:"user,omitempty" db:"-"`
	Customer *Customer  `json:"customer,omitempty" db:"-"`
}

// SaleItem is one cart line of a sale. Price is the unit price captured at
// sale time; it may diverge from the product's current price later.
type SaleItem struct {
	ID        uuid.UUID `json:"id" db:"id"`
	SaleID    uuid.UUID `json:"sale_id" db:"sale_id"`
	ProductID uuid.UUID `json:"product_id" db:"product_id"`
	Quantity  int       `json:"quantity" db:"quantity"`
	Price     float64   `json:"price" db:"price"`
	Subtotal  float64   `json:"subtotal" db:"subtotal"`

	Product *Product `json:"product,omitempty" db:"-"`
}
