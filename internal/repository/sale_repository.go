package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"retail-pos/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrSaleNotFound = errors.New("sale not found")

	// ErrInsufficientStock is returned when a sale would drive a product's
	// stock below zero. The whole sale rolls back.
	ErrInsufficientStock = errors.New("insufficient stock")
)

// DayTotals aggregates completed sales inside a half-open time window.
type DayTotals struct {
	SalesTotal float64
	UnitsSold  int
	Customers  int
}

// SaleRepository defines the interface for the sale ledger.
type SaleRepository interface {
	// Create records a sale, its items and the stock decrements in one
	// transaction. Any failure, including a stock underflow, rolls back
	// everything.
	Create(ctx context.Context, sale *domain.Sale) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Sale, error)
	List(ctx context.Context) ([]*domain.Sale, error)
	ListCompletedBetween(ctx context.Context, from, to time.Time) ([]*domain.Sale, error)
	RecentCompleted(ctx context.Context, limit int) ([]*domain.Sale, error)
	TotalsBetween(ctx context.Context, from, to time.Time) (DayTotals, error)
	ClearAll(ctx context.Context) error
}

type saleRepository struct {
	db *sql.DB
}

// NewSaleRepository creates a new instance of SaleRepository
func NewSaleRepository(db *sql.DB) SaleRepository {
	return &saleRepository{db: db}
}

func (r *saleRepository) Create(ctx context.Context, sale *domain.Sale) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	insertSale := `
		INSERT INTO sales (id, user_id, customer_id, subtotal, tax, total, cash_given, change, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err = tx.ExecContext(ctx, insertSale,
		sale.ID,
		sale.UserID,
		sale.CustomerID,
		sale.Subtotal,
		sale.Tax,
		sale.Total,
		sale.CashGiven,
		sale.Change,
		sale.Status,
		sale.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create sale: %w", err)
	}

	insertItem := `
		INSERT INTO sale_items (id, sale_id, product_id, quantity, price, subtotal)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	// Conditional decrement: zero rows affected means the sale would
	// oversell the product.
	decrement := `
		UPDATE products
		SET stock = stock - $2, updated_at = $3
		WHERE id = $1 AND stock >= $2
	`

	now := time.Now()
	for i := range sale.Items {
		item := &sale.Items[i]
		item.SaleID = sale.ID

		_, err = tx.ExecContext(ctx, insertItem,
			item.ID,
			item.SaleID,
			item.ProductID,
			item.Quantity,
			item.Price,
			item.Subtotal,
		)
		if err != nil {
			if isPgError(err, pgForeignKeyViolation) {
				return fmt.Errorf("product %s: %w", item.ProductID, ErrProductNotFound)
			}
			return fmt.Errorf("failed to create sale item: %w", err)
		}

		result, err := tx.ExecContext(ctx, decrement, item.ProductID, item.Quantity, now)
		if err != nil {
			return fmt.Errorf("failed to decrement stock: %w", err)
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return fmt.Errorf("product %s: %w", item.ProductID, ErrInsufficientStock)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit sale: %w", err)
	}

	return nil
}

const saleColumns = `
	s.id, s.user_id, s.customer_id, s.subtotal, s.tax, s.total, s.cash_given, s.change, s.status, s.created_at,
	u.id, u.email, u.name, u.role,
	c.id, c.name, c.email, c.phone
`

const saleFrom = `
	FROM sales s
	JOIN users u ON u.id = s.user_id
	LEFT JOIN customers c ON c.id = s.customer_id
`

func (r *saleRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Sale, error) {
	query := `SELECT ` + saleColumns + saleFrom + ` WHERE s.id = $1`

	sale, err := scanSale(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSaleNotFound
		}
		return nil, fmt.Errorf("failed to find sale by ID: %w", err)
	}

	items, err := r.itemsWhere(ctx, `si.sale_id = $1`, id)
	if err != nil {
		return nil, err
	}
	sale.Items = items[sale.ID]
	if sale.Items == nil {
		sale.Items = []domain.SaleItem{}
	}

	return sale, nil
}

// List retrieves every sale with user, customer and items joined, newest
// first.
func (r *saleRepository) List(ctx context.Context) ([]*domain.Sale, error) {
	query := `SELECT ` + saleColumns + saleFrom + ` ORDER BY s.created_at DESC`

	sales, err := r.querySales(ctx, query)
	if err != nil {
		return nil, err
	}

	return r.attachItems(ctx, sales, `TRUE`)
}

// ListCompletedBetween retrieves completed sales inside [from, to] with
// their items, for the reporting aggregator.
func (r *saleRepository) ListCompletedBetween(ctx context.Context, from, to time.Time) ([]*domain.Sale, error) {
	query := `SELECT ` + saleColumns + saleFrom + `
		WHERE s.status = $1 AND s.created_at >= $2 AND s.created_at <= $3
		ORDER BY s.created_at ASC`

	sales, err := r.querySales(ctx, query, domain.SaleStatusCompleted, from, to)
	if err != nil {
		return nil, err
	}

	return r.attachItems(ctx, sales,
		`si.sale_id IN (SELECT id FROM sales WHERE status = $1 AND created_at >= $2 AND created_at <= $3)`,
		domain.SaleStatusCompleted, from, to)
}

// RecentCompleted retrieves the most recent completed sales for the
// dashboard's activity list.
func (r *saleRepository) RecentCompleted(ctx context.Context, limit int) ([]*domain.Sale, error) {
	query := `SELECT ` + saleColumns + saleFrom + `
		WHERE s.status = $1
		ORDER BY s.created_at DESC
		LIMIT $2`

	sales, err := r.querySales(ctx, query, domain.SaleStatusCompleted, limit)
	if err != nil {
		return nil, err
	}

	return r.attachItems(ctx, sales,
		`si.sale_id IN (SELECT id FROM sales WHERE status = $1 ORDER BY created_at DESC LIMIT $2)`,
		domain.SaleStatusCompleted, limit)
}

// TotalsBetween aggregates completed sales in [from, to): total amount,
// units sold and distinct customers. Walk-in sales (no customer) count as
// one customer group, matching the register's grouping.
func (r *saleRepository) TotalsBetween(ctx context.Context, from, to time.Time) (DayTotals, error) {
	var totals DayTotals

	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(total), 0)
		FROM sales
		WHERE status = $1 AND created_at >= $2 AND created_at < $3
	`, domain.SaleStatusCompleted, from, to).Scan(&totals.SalesTotal)
	if err != nil {
		return totals, fmt.Errorf("failed to sum sales: %w", err)
	}

	err = r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(si.quantity), 0)
		FROM sale_items si
		JOIN sales s ON s.id = si.sale_id
		WHERE s.status = $1 AND s.created_at >= $2 AND s.created_at < $3
	`, domain.SaleStatusCompleted, from, to).Scan(&totals.UnitsSold)
	if err != nil {
		return totals, fmt.Errorf("failed to sum units sold: %w", err)
	}

	err = r.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM (
			SELECT DISTINCT customer_id
			FROM sales
			WHERE status = $1 AND created_at >= $2 AND created_at < $3
		) groups
	`, domain.SaleStatusCompleted, from, to).Scan(&totals.Customers)
	if err != nil {
		return totals, fmt.Errorf("failed to count customers: %w", err)
	}

	return totals, nil
}

// ClearAll wipes the whole ledger: items first, then sales, in one
// transaction. Irreversible.
func (r *saleRepository) ClearAll(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM sale_items`); err != nil {
		return fmt.Errorf("failed to clear sale items: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sales`); err != nil {
		return fmt.Errorf("failed to clear sales: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit clear: %w", err)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSale(row rowScanner) (*domain.Sale, error) {
	sale := &domain.Sale{}
	user := &domain.User{}

	var (
		custID    sql.Null[uuid.UUID]
		custName  sql.NullString
		custEmail sql.NullString
		custPhone sql.NullString
	)

	var saleCustomerID sql.Null[uuid.UUID]

	err := row.Scan(
		&sale.ID, &sale.UserID, &saleCustomerID,
		&sale.Subtotal, &sale.Tax, &sale.Total, &sale.CashGiven, &sale.Change,
		&sale.Status, &sale.CreatedAt,
		&user.ID, &user.Email, &user.Name, &user.Role,
		&custID, &custName, &custEmail, &custPhone,
	)
	if err != nil {
		return nil, err
	}

	sale.User = user
	if saleCustomerID.Valid {
		id := saleCustomerID.V
		sale.CustomerID = &id
	}
	if custID.Valid {
		sale.Customer = &domain.Customer{
			ID:    custID.V,
			Name:  custName.String,
			Email: custEmail.String,
			Phone: custPhone.String,
		}
	}

	return sale, nil
}

func (r *saleRepository) querySales(ctx context.Context, query string, args ...any) ([]*domain.Sale, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sales: %w", err)
	}
	defer rows.Close()

	sales := []*domain.Sale{}
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sale: %w", err)
		}
		sale.Items = []domain.SaleItem{}
		sales = append(sales, sale)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sales: %w", err)
	}

	return sales, nil
}

// itemsWhere loads sale items (with product joined) matching the given
// condition, keyed by sale ID.
func (r *saleRepository) itemsWhere(ctx context.Context, where string, args ...any) (map[uuid.UUID][]domain.SaleItem, error) {
	query := `
		SELECT si.id, si.sale_id, si.product_id, si.quantity, si.price, si.subtotal,
		       p.id, p.name, p.description, p.price, p.stock, p.image_url, p.category_id
		FROM sale_items si
		JOIN products p ON p.id = si.product_id
		WHERE ` + where + `
		ORDER BY si.id
	`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sale items: %w", err)
	}
	defer rows.Close()

	items := map[uuid.UUID][]domain.SaleItem{}
	for rows.Next() {
		item := domain.SaleItem{Product: &domain.Product{}}
		err := rows.Scan(
			&item.ID, &item.SaleID, &item.ProductID, &item.Quantity, &item.Price, &item.Subtotal,
			&item.Product.ID, &item.Product.Name, &item.Product.Description,
			&item.Product.Price, &item.Product.Stock, &item.Product.ImageURL, &item.Product.CategoryID,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sale item: %w", err)
		}
		items[item.SaleID] = append(items[item.SaleID], item)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sale items: %w", err)
	}

	return items, nil
}

func (r *saleRepository) attachItems(ctx context.Context, sales []*domain.Sale, where string, args ...any) ([]*domain.Sale, error) {
	if len(sales) == 0 {
		return sales, nil
	}

	items, err := r.itemsWhere(ctx, where, args...)
	if err != nil {
		return nil, err
	}

	for _, sale := range sales {
		if got, ok := items[sale.ID]; ok {
			sale.Items = got
		}
	}

	return sales, nil
}
