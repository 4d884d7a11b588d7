// Package checkout implements the register's cart arithmetic. It is pure:
// it only reads the price and stock already loaded into the cart lines and
// never touches the database.
package checkout

import (
	"errors"
	"math"

	"retail-pos/internal/domain"

	"github.com/google/uuid"
)

// TaxRate is the fixed 12% VAT applied to every ticket.
const TaxRate = 0.12

var (
	ErrOutOfStock        = errors.New("product is out of stock")
	ErrInsufficientStock = errors.New("not enough stock available")
	ErrInsufficientCash  = errors.New("cash tendered is less than the total")
)

// Line is one cart entry: a product and how many units of it.
type Line struct {
	Product  domain.Product
	Quantity int
}

// Subtotal returns the line amount, rounded to cents.
func (l Line) Subtotal() float64 {
	return Round2(l.Product.Price * float64(l.Quantity))
}

// Cart is an ordered collection of lines, one per product.
type Cart struct {
	lines []Line
}

// Totals is the financial summary of a ticket.
type Totals struct {
	Subtotal float64
	Tax      float64
	Total    float64
}

// Round2 rounds an amount to cent precision.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Lines returns a copy of the cart lines in insertion order.
func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

// Size returns the number of distinct lines.
func (c *Cart) Size() int {
	return len(c.lines)
}

// AddProduct adds one unit of a product, or increments its existing line.
// Products with no stock cannot be added, and a line can never exceed the
// product's current stock.
func (c *Cart) AddProduct(p domain.Product) error {
	if p.Stock <= 0 {
		return ErrOutOfStock
	}

	for i := range c.lines {
		if c.lines[i].Product.ID == p.ID {
			if c.lines[i].Quantity >= p.Stock {
				return ErrInsufficientStock
			}
			c.lines[i].Quantity++
			return nil
		}
	}

	c.lines = append(c.lines, Line{Product: p, Quantity: 1})
	return nil
}

// SetQuantity sets a line's quantity. A quantity below one removes the
// line; a quantity above the product's stock is rejected.
func (c *Cart) SetQuantity(productID uuid.UUID, quantity int) error {
	for i := range c.lines {
		if c.lines[i].Product.ID != productID {
			continue
		}

		if quantity < 1 {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
			return nil
		}

		if quantity > c.lines[i].Product.Stock {
			return ErrInsufficientStock
		}

		c.lines[i].Quantity = quantity
		return nil
	}

	return nil
}

// Totals computes subtotal, 12% tax and total for the current cart.
func (c *Cart) Totals() Totals {
	var subtotal float64
	for _, l := range c.lines {
		subtotal += l.Product.Price * float64(l.Quantity)
	}
	subtotal = Round2(subtotal)

	tax := Round2(subtotal * TaxRate)

	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Total:    Round2(subtotal + tax),
	}
}

// ChangeDue returns the change owed for the tendered cash. Submission must
// be rejected while the cash does not cover the total.
func (c *Cart) ChangeDue(cash float64) (float64, error) {
	t := c.Totals()
	if cash < t.Total {
		return 0, ErrInsufficientCash
	}
	return Round2(cash - t.Total), nil
}
