package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"retail-pos/internal/domain"
	"retail-pos/internal/repository"

	"github.com/google/uuid"
)

var (
	ErrEmptySale        = errors.New("sale must contain at least one item")
	ErrInvalidAmounts   = errors.New("subtotal, tax and total must be valid amounts")
	ErrInsufficientCash = errors.New("cash given must cover the total")
	ErrInvalidSaleItem  = errors.New("sale item must have a product, positive quantity, price and subtotal")
)

// SaleItemInput is one cart line as submitted by the register.
type SaleItemInput struct {
	ProductID uuid.UUID
	Quantity  int
	Price     float64
	Subtotal  float64
}

// SaleInput is the payload of a sale commit. Amounts are computed by the
// register; the service validates them but does not reprice the cart.
type SaleInput struct {
	Items      []SaleItemInput
	Subtotal   float64
	Tax        float64
	Total      float64
	Cash       float64
	Change     float64
	CustomerID *uuid.UUID
}

// SaleService records and reads sales.
type SaleService interface {
	// Commit validates and durably records a completed sale, decrementing
	// stock in the same transaction. actorID is the authenticated user when
	// known; a nil actorID falls back to the first admin account.
	Commit(ctx context.Context, actorID *uuid.UUID, input SaleInput) (*domain.Sale, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Sale, error)
	List(ctx context.Context) ([]*domain.Sale, error)
	ClearAll(ctx context.Context) error
}

type saleService struct {
	saleRepo repository.SaleRepository
	userRepo repository.UserRepository
}

// NewSaleService creates a new instance of SaleService
func NewSaleService(saleRepo repository.SaleRepository, userRepo repository.UserRepository) SaleService {
	return &saleService{
		saleRepo: saleRepo,
		userRepo: userRepo,
	}
}

func validAmount(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}

func (s *saleService) Commit(ctx context.Context, actorID *uuid.UUID, input SaleInput) (*domain.Sale, error) {
	// Validation order mirrors the register's submit flow; each failure is
	// a distinct client error.
	if len(input.Items) == 0 {
		return nil, ErrEmptySale
	}
	if !validAmount(input.Subtotal) || !validAmount(input.Tax) || !validAmount(input.Total) {
		return nil, ErrInvalidAmounts
	}
	if !validAmount(input.Cash) || input.Cash < input.Total {
		return nil, ErrInsufficientCash
	}
	for _, item := range input.Items {
		if item.ProductID == uuid.Nil || item.Quantity <= 0 || item.Price <= 0 || item.Subtotal <= 0 {
			return nil, ErrInvalidSaleItem
		}
	}

	actor, err := s.resolveActor(ctx, actorID)
	if err != nil {
		return nil, err
	}

	sale := &domain.Sale{
		ID:         uuid.New(),
		UserID:     actor.ID,
		CustomerID: input.CustomerID,
		Subtotal:   input.Subtotal,
		Tax:        input.Tax,
		Total:      input.Total,
		CashGiven:  input.Cash,
		Change:     input.Change,
		Status:     domain.SaleStatusCompleted,
		CreatedAt:  time.Now(),
		Items:      make([]domain.SaleItem, 0, len(input.Items)),
	}

	for _, item := range input.Items {
		sale.Items = append(sale.Items, domain.SaleItem{
			ID:        uuid.New(),
			SaleID:    sale.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Price,
			Subtotal:  item.Subtotal,
		})
	}

	if err := s.saleRepo.Create(ctx, sale); err != nil {
		return nil, err
	}

	// Read the sale back with products joined for display.
	created, err := s.saleRepo.FindByID(ctx, sale.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load created sale: %w", err)
	}

	return created, nil
}

// resolveActor attributes the sale to the authenticated user, or to the
// first admin account when the register is not logged in.
func (s *saleService) resolveActor(ctx context.Context, actorID *uuid.UUID) (*domain.User, error) {
	if actorID != nil {
		return s.userRepo.FindByID(ctx, *actorID)
	}
	return s.userRepo.FindFirstAdmin(ctx)
}

func (s *saleService) Get(ctx context.Context, id uuid.UUID) (*domain.Sale, error) {
	return s.saleRepo.FindByID(ctx, id)
}

func (s *saleService) List(ctx context.Context) ([]*domain.Sale, error) {
	return s.saleRepo.List(ctx)
}

func (s *saleService) ClearAll(ctx context.Context) error {
	return s.saleRepo.ClearAll(ctx)
}
