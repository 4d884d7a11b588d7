package transport

import (
	"encoding/json"
	"errors"
	"net/http"

	"retail-pos/internal/middleware"
	"retail-pos/internal/repository"
	"retail-pos/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SaleItemRequest is one cart line in a sale commit.
type SaleItemRequest struct {
	ProductID string  `json:"productId"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
	Subtotal  float64 `json:"subtotal"`
}

// CreateSaleRequest is the payload of POST /api/sales. Amounts arrive
// precomputed by the register; validation order is owned by the service so
// each violation surfaces as its own 400.
type CreateSaleRequest struct {
	Items      []SaleItemRequest `json:"items"`
	Subtotal   float64           `json:"subtotal"`
	Tax        float64           `json:"tax"`
	Total      float64           `json:"total"`
	Cash       float64           `json:"cash"`
	Change     float64           `json:"change"`
	CustomerID string            `json:"customerId,omitempty"`
}

// SaleHandler handles HTTP requests for sales
type SaleHandler struct {
	saleService service.SaleService
	logger      *zap.Logger
}

// NewSaleHandler creates a new SaleHandler
func NewSaleHandler(saleService service.SaleService, logger *zap.Logger) *SaleHandler {
	return &SaleHandler{
		saleService: saleService,
		logger:      logger,
	}
}

// RegisterRoutes registers all sale routes. Committing a sale works with or
// without a session; reading and clearing require one, clearing admin-only.
func (h *SaleHandler) RegisterRoutes(r chi.Router, authMiddleware, adminMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/sales", func(r chi.Router) {
		r.Post("/", h.Create)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			r.Get("/", h.List)
			r.Get("/{id}", h.Get)
		})

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware, adminMiddleware)
			r.Delete("/", h.ClearAll)
		})
	})
}

// Create commits a sale: validates, records it and decrements stock in one
// transaction, then returns the stored sale with its items.
func (h *SaleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateSaleRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debug("Sale decode failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	input := service.SaleInput{
		Subtotal: req.Subtotal,
		Tax:      req.Tax,
		Total:    req.Total,
		Cash:     req.Cash,
		Change:   req.Change,
	}

	for _, item := range req.Items {
		productID, err := uuid.Parse(item.ProductID)
		if err != nil {
			middleware.RespondWithError(w, http.StatusBadRequest, "invalid product id in items")
			return
		}

		input.Items = append(input.Items, service.SaleItemInput{
			ProductID: productID,
			Quantity:  item.Quantity,
			Price:     item.Price,
			Subtotal:  item.Subtotal,
		})
	}

	if req.CustomerID != "" {
		customerID, err := uuid.Parse(req.CustomerID)
		if err != nil {
			middleware.RespondWithError(w, http.StatusBadRequest, "invalid customer id")
			return
		}
		input.CustomerID = &customerID
	}

	// The actor is the session user when one is present; unauthenticated
	// registers fall back to the first admin account inside the service.
	var actorID *uuid.UUID
	if userIDStr, ok := middleware.GetUserID(r.Context()); ok {
		if parsed, err := uuid.Parse(userIDStr); err == nil {
			actorID = &parsed
		}
	}

	sale, err := h.saleService.Commit(r.Context(), actorID, input)
	if err != nil {
		h.respondSaleError(w, err)
		return
	}

	h.logger.Info("Sale recorded",
		zap.String("sale_id", sale.ID.String()),
		zap.Float64("total", sale.Total),
		zap.Int("items", len(sale.Items)),
	)
	middleware.RespondWithJSON(w, http.StatusCreated, sale)
}

// List returns all sales newest first with items, product, user and
// customer joined.
func (h *SaleHandler) List(w http.ResponseWriter, r *http.Request) {
	sales, err := h.saleService.List(r.Context())
	if err != nil {
		h.logger.Error("Failed to list sales", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to list sales")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, sales)
}

// Get returns a single sale by id
func (h *SaleHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid sale id")
		return
	}

	sale, err := h.saleService.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrSaleNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, err.Error())
			return
		}

		h.logger.Error("Failed to get sale", zap.Error(err), zap.String("sale_id", id.String()))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to get sale")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, sale)
}

// ClearAll irreversibly deletes every sale and sale item.
func (h *SaleHandler) ClearAll(w http.ResponseWriter, r *http.Request) {
	if err := h.saleService.ClearAll(r.Context()); err != nil {
		h.logger.Error("Failed to clear sales", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to clear sales")
		return
	}

	h.logger.Warn("All sales cleared")
	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "all sales cleared"})
}

func (h *SaleHandler) respondSaleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrEmptySale),
		errors.Is(err, service.ErrInvalidAmounts),
		errors.Is(err, service.ErrInsufficientCash),
		errors.Is(err, service.ErrInvalidSaleItem):
		middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, repository.ErrProductNotFound):
		middleware.RespondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, repository.ErrInsufficientStock):
		middleware.RespondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, repository.ErrNoAdminUser):
		middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("Failed to record sale", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to record sale")
	}
}
