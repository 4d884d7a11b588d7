package transport

import (
	"context"
	"fmt"
	"sort"
	"time"

	"retail-pos/internal/domain"
	"retail-pos/internal/repository"

	"github.com/google/uuid"
)

// In-memory repositories shared by the handler tests.

type mockUserRepository struct {
	users map[string]*domain.User
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{users: make(map[string]*domain.User)}
}

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	if _, exists := m.users[user.Email]; exists {
		return repository.ErrUserAlreadyExists
	}
	m.users[user.Email] = user
	return nil
}

func (m *mockUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, exists := m.users[email]
	if !exists {
		return nil, repository.ErrUserNotFound
	}
	return user, nil
}

func (m *mockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	for _, user := range m.users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *mockUserRepository) FindFirstAdmin(ctx context.Context) (*domain.User, error) {
	var admins []*domain.User
	for _, user := range m.users {
		if user.Role == domain.RoleAdmin {
			admins = append(admins, user)
		}
	}
	if len(admins) == 0 {
		return nil, repository.ErrNoAdminUser
	}
	sort.Slice(admins, func(i, j int) bool { return admins[i].CreatedAt.Before(admins[j].CreatedAt) })
	return admins[0], nil
}

type mockRefreshTokenRepository struct {
	tokens map[string]*domain.RefreshToken
}

func newMockRefreshTokenRepository() *mockRefreshTokenRepository {
	return &mockRefreshTokenRepository{tokens: make(map[string]*domain.RefreshToken)}
}

func (m *mockRefreshTokenRepository) Create(ctx context.Context, token *domain.RefreshToken) error {
	m.tokens[token.Token] = token
	return nil
}

func (m *mockRefreshTokenRepository) FindByToken(ctx context.Context, token string) (*domain.RefreshToken, error) {
	rt, exists := m.tokens[token]
	if !exists {
		return nil, repository.ErrRefreshTokenNotFound
	}
	if rt.Revoked {
		return nil, repository.ErrRefreshTokenRevoked
	}
	return rt, nil
}

func (m *mockRefreshTokenRepository) Revoke(ctx context.Context, token string) error {
	rt, exists := m.tokens[token]
	if !exists {
		return repository.ErrRefreshTokenNotFound
	}
	rt.Revoked = true
	return nil
}

// mockSaleRepository keeps sales in memory and simulates the conditional
// stock decrement against a stock map.
type mockSaleRepository struct {
	sales []*domain.Sale
	stock map[uuid.UUID]int
}

func newMockSaleRepository() *mockSaleRepository {
	return &mockSaleRepository{stock: make(map[uuid.UUID]int)}
}

func (m *mockSaleRepository) Create(ctx context.Context, sale *domain.Sale) error {
	adjusted := map[uuid.UUID]int{}
	for _, item := range sale.Items {
		remaining := m.stock[item.ProductID] - adjusted[item.ProductID]
		if remaining < item.Quantity {
			return fmt.Errorf("product %s: %w", item.ProductID, repository.ErrInsufficientStock)
		}
		adjusted[item.ProductID] += item.Quantity
	}
	for id, qty := range adjusted {
		m.stock[id] -= qty
	}

	copied := *sale
	copied.Items = append([]domain.SaleItem(nil), sale.Items...)
	m.sales = append(m.sales, &copied)
	return nil
}

func (m *mockSaleRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Sale, error) {
	for _, sale := range m.sales {
		if sale.ID == id {
			return sale, nil
		}
	}
	return nil, repository.ErrSaleNotFound
}

func (m *mockSaleRepository) List(ctx context.Context) ([]*domain.Sale, error) {
	out := append([]*domain.Sale(nil), m.sales...)
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *mockSaleRepository) ListCompletedBetween(ctx context.Context, from, to time.Time) ([]*domain.Sale, error) {
	out := []*domain.Sale{}
	for _, sale := range m.sales {
		if sale.Status != domain.SaleStatusCompleted {
			continue
		}
		if sale.CreatedAt.Before(from) || sale.CreatedAt.After(to) {
			continue
		}
		out = append(out, sale)
	}
	return out, nil
}

func (m *mockSaleRepository) RecentCompleted(ctx context.Context, limit int) ([]*domain.Sale, error) {
	out := []*domain.Sale{}
	for _, sale := range m.sales {
		if sale.Status == domain.SaleStatusCompleted {
			out = append(out, sale)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockSaleRepository) TotalsBetween(ctx context.Context, from, to time.Time) (repository.DayTotals, error) {
	var totals repository.DayTotals
	customers := map[string]bool{}

	for _, sale := range m.sales {
		if sale.Status != domain.SaleStatusCompleted {
			continue
		}
		if sale.CreatedAt.Before(from) || !sale.CreatedAt.Before(to) {
			continue
		}
		totals.SalesTotal += sale.Total
		for _, item := range sale.Items {
			totals.UnitsSold += item.Quantity
		}
		key := "walk-in"
		if sale.CustomerID != nil {
			key = sale.CustomerID.String()
		}
		customers[key] = true
	}

	totals.Customers = len(customers)
	return totals, nil
}

func (m *mockSaleRepository) ClearAll(ctx context.Context) error {
	m.sales = nil
	return nil
}

type mockCategoryRepository struct {
	categories map[uuid.UUID]*domain.Category
	inUse      map[uuid.UUID]bool
}

func newMockCategoryRepository() *mockCategoryRepository {
	return &mockCategoryRepository{
		categories: make(map[uuid.UUID]*domain.Category),
		inUse:      make(map[uuid.UUID]bool),
	}
}

func (m *mockCategoryRepository) Create(ctx context.Context, category *domain.Category) error {
	for _, existing := range m.categories {
		if existing.Name == category.Name {
			return repository.ErrCategoryAlreadyExists
		}
	}
	m.categories[category.ID] = category
	return nil
}

func (m *mockCategoryRepository) List(ctx context.Context) ([]*domain.Category, error) {
	out := []*domain.Category{}
	for _, category := range m.categories {
		out = append(out, category)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *mockCategoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	category, exists := m.categories[id]
	if !exists {
		return nil, repository.ErrCategoryNotFound
	}
	return category, nil
}

func (m *mockCategoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, exists := m.categories[id]; !exists {
		return repository.ErrCategoryNotFound
	}
	if m.inUse[id] {
		return repository.ErrCategoryInUse
	}
	delete(m.categories, id)
	return nil
}

type mockProductRepository struct {
	products map[uuid.UUID]*domain.Product
}

func newMockProductRepository() *mockProductRepository {
	return &mockProductRepository{products: make(map[uuid.UUID]*domain.Product)}
}

func (m *mockProductRepository) Create(ctx context.Context, product *domain.Product) error {
	copied := *product
	m.products[product.ID] = &copied
	return nil
}

func (m *mockProductRepository) Update(ctx context.Context, product *domain.Product) error {
	if _, exists := m.products[product.ID]; !exists {
		return repository.ErrProductNotFound
	}
	copied := *product
	m.products[product.ID] = &copied
	return nil
}

func (m *mockProductRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, exists := m.products[id]; !exists {
		return repository.ErrProductNotFound
	}
	delete(m.products, id)
	return nil
}

func (m *mockProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	product, exists := m.products[id]
	if !exists {
		return nil, repository.ErrProductNotFound
	}
	copied := *product
	return &copied, nil
}

func (m *mockProductRepository) List(ctx context.Context) ([]*domain.Product, error) {
	out := []*domain.Product{}
	for _, product := range m.products {
		copied := *product
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// mockUploader returns deterministic URLs, or fails when told to.
type mockUploader struct {
	fail    bool
	uploads int
}

func (m *mockUploader) Upload(ctx context.Context, filename, contentType string, data []byte) (string, error) {
	if m.fail {
		return "", fmt.Errorf("media host rejected upload: boom")
	}
	m.uploads++
	return fmt.Sprintf("https://media.test/%s", filename), nil
}

func (m *mockUploader) UploadBase64(ctx context.Context, payload string) (string, error) {
	if m.fail {
		return "", fmt.Errorf("media host rejected upload: boom")
	}
	m.uploads++
	return "https://media.test/base64-upload", nil
}
