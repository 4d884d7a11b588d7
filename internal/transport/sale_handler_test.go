package transport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"retail-pos/internal/domain"
	"retail-pos/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type saleFixture struct {
	handler  *SaleHandler
	saleRepo *mockSaleRepository
	userRepo *mockUserRepository
	admin    *domain.User
}

func newSaleFixture() *saleFixture {
	saleRepo := newMockSaleRepository()
	userRepo := newMockUserRepository()

	admin := &domain.User{
		ID:        uuid.New(),
		Email:     "admin@store.com",
		Name:      "Admin",
		Role:      domain.RoleAdmin,
		CreatedAt: time.Now().Add(-time.Hour),
	}
	userRepo.users[admin.Email] = admin

	saleService := service.NewSaleService(saleRepo, userRepo)
	return &saleFixture{
		handler:  NewSaleHandler(saleService, zap.NewNop()),
		saleRepo: saleRepo,
		userRepo: userRepo,
		admin:    admin,
	}
}

// newSaleRouter mounts the URL-parameterized routes so chi can resolve {id}.
func newSaleRouter(h *SaleHandler) chi.Router {
	r := chi.NewRouter()
	r.Get("/api/sales/{id}", h.Get)
	return r
}

func postSale(t *testing.T, handler *SaleHandler, payload any) *httptest.ResponseRecorder {
	t.Helper()

	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/sales", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	handler.Create(w, req)
	return w
}

func TestCreateSaleRecordsAndReturnsSale(t *testing.T) {
	fx := newSaleFixture()
	productID := uuid.New()
	fx.saleRepo.stock[productID] = 10

	// The worked example: two colas at 15.00 with 12% VAT, paid with 40.
	w := postSale(t, fx.handler, CreateSaleRequest{
		Items: []SaleItemRequest{
			{ProductID: productID.String(), Quantity: 2, Price: 15.00, Subtotal: 30.00},
		},
		Subtotal: 30.00,
		Tax:      3.60,
		Total:    33.60,
		Cash:     40.00,
		Change:   6.40,
	})

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var sale domain.Sale
	require.NoError(t, json.NewDecoder(w.Body).Decode(&sale))
	assert.Equal(t, 33.60, sale.Total)
	assert.Equal(t, 6.40, sale.Change)
	assert.Equal(t, domain.SaleStatusCompleted, sale.Status)
	assert.Len(t, sale.Items, 1)
	assert.Equal(t, fx.admin.ID, sale.UserID, "unauthenticated sale falls back to the first admin")
	assert.Equal(t, 8, fx.saleRepo.stock[productID])
}

func TestCreateSaleValidationFailures(t *testing.T) {
	productID := uuid.New()

	valid := func() CreateSaleRequest {
		return CreateSaleRequest{
			Items: []SaleItemRequest{
				{ProductID: productID.String(), Quantity: 1, Price: 15.00, Subtotal: 15.00},
			},
			Subtotal: 15.00,
			Tax:      1.80,
			Total:    16.80,
			Cash:     20.00,
			Change:   3.20,
		}
	}

	tests := []struct {
		name   string
		mutate func(*CreateSaleRequest)
		want   int
	}{
		{"empty items", func(r *CreateSaleRequest) { r.Items = nil }, http.StatusBadRequest},
		{"negative total", func(r *CreateSaleRequest) { r.Total = -5 }, http.StatusBadRequest},
		{"cash below total", func(r *CreateSaleRequest) { r.Cash = 10 }, http.StatusBadRequest},
		{"zero quantity", func(r *CreateSaleRequest) { r.Items[0].Quantity = 0 }, http.StatusBadRequest},
		{"bad product id", func(r *CreateSaleRequest) { r.Items[0].ProductID = "nope" }, http.StatusBadRequest},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fx := newSaleFixture()
			fx.saleRepo.stock[productID] = 10

			req := valid()
			tc.mutate(&req)

			w := postSale(t, fx.handler, req)
			assert.Equal(t, tc.want, w.Code, w.Body.String())

			var response map[string]any
			require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
			assert.Contains(t, response, "error")
		})
	}
}

func TestCreateSaleInsufficientStockConflicts(t *testing.T) {
	fx := newSaleFixture()
	productID := uuid.New()
	fx.saleRepo.stock[productID] = 1

	w := postSale(t, fx.handler, CreateSaleRequest{
		Items: []SaleItemRequest{
			{ProductID: productID.String(), Quantity: 2, Price: 15.00, Subtotal: 30.00},
		},
		Subtotal: 30.00,
		Tax:      3.60,
		Total:    33.60,
		Cash:     40.00,
		Change:   6.40,
	})

	assert.Equal(t, http.StatusConflict, w.Code, w.Body.String())
	assert.Equal(t, 1, fx.saleRepo.stock[productID], "failed commit must not touch stock")
	assert.Empty(t, fx.saleRepo.sales)
}

func TestGetSaleRoundTrip(t *testing.T) {
	fx := newSaleFixture()
	productID := uuid.New()
	fx.saleRepo.stock[productID] = 10

	w := postSale(t, fx.handler, CreateSaleRequest{
		Items: []SaleItemRequest{
			{ProductID: productID.String(), Quantity: 2, Price: 15.00, Subtotal: 30.00},
		},
		Subtotal: 30.00,
		Tax:      3.60,
		Total:    33.60,
		Cash:     40.00,
		Change:   6.40,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var created domain.Sale
	require.NoError(t, json.NewDecoder(w.Body).Decode(&created))

	r := newSaleRouter(fx.handler)
	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/sales/%s", created.ID), nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var fetched domain.Sale
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&fetched))
	assert.Equal(t, created.ID, fetched.ID)
	assert.Equal(t, created.Total, fetched.Total)
	assert.Len(t, fetched.Items, len(created.Items))
}

func TestGetSaleNotFound(t *testing.T) {
	fx := newSaleFixture()

	r := newSaleRouter(fx.handler)
	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/sales/%s", uuid.New()), nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestClearAllSales(t *testing.T) {
	fx := newSaleFixture()
	productID := uuid.New()
	fx.saleRepo.stock[productID] = 10

	w := postSale(t, fx.handler, CreateSaleRequest{
		Items: []SaleItemRequest{
			{ProductID: productID.String(), Quantity: 1, Price: 15.00, Subtotal: 15.00},
		},
		Subtotal: 15.00,
		Tax:      1.80,
		Total:    16.80,
		Cash:     20.00,
		Change:   3.20,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	req := httptest.NewRequest(http.MethodDelete, "/api/sales", nil)
	rec := httptest.NewRecorder()
	fx.handler.ClearAll(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, fx.saleRepo.sales)
}
