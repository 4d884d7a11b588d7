package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"retail-pos/internal/domain"
	"retail-pos/internal/repository"
	"retail-pos/internal/upload"

	"github.com/google/uuid"
)

var (
	ErrEmptyCategoryName = errors.New("category name must not be empty")
	ErrInvalidProduct    = errors.New("product must have a name, non-negative price and stock, and a category")
)

// ImageMode selects how a product image is supplied. The three modes map
// to what clients actually send: nothing, a multipart file, or a base64
// payload inside JSON.
type ImageMode int

const (
	ImageNone ImageMode = iota
	ImageFile
	ImageBase64
)

// ImageInput carries an optional product image in one of the three modes.
type ImageInput struct {
	Mode        ImageMode
	Filename    string
	ContentType string
	Data        []byte
	Base64      string
}

// ProductInput is the payload of a product create or update.
type ProductInput struct {
	Name        string
	Description string
	Price       float64
	Stock       int
	CategoryID  uuid.UUID
	Image       ImageInput
}

// CatalogService manages categories and products, including image intake.
type CatalogService interface {
	ListCategories(ctx context.Context) ([]*domain.Category, error)
	CreateCategory(ctx context.Context, name string) (*domain.Category, error)
	DeleteCategory(ctx context.Context, id uuid.UUID) error

	ListProducts(ctx context.Context) ([]*domain.Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	CreateProduct(ctx context.Context, input ProductInput) (*domain.Product, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, input ProductInput) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error
}

type catalogService struct {
	categoryRepo   repository.CategoryRepository
	productRepo    repository.ProductRepository
	uploader       upload.Uploader
	placeholderURL string
}

// NewCatalogService creates a new instance of CatalogService
func NewCatalogService(
	categoryRepo repository.CategoryRepository,
	productRepo repository.ProductRepository,
	uploader upload.Uploader,
	placeholderURL string,
) CatalogService {
	return &catalogService{
		categoryRepo:   categoryRepo,
		productRepo:    productRepo,
		uploader:       uploader,
		placeholderURL: placeholderURL,
	}
}

func (s *catalogService) ListCategories(ctx context.Context) ([]*domain.Category, error) {
	return s.categoryRepo.List(ctx)
}

func (s *catalogService) CreateCategory(ctx context.Context, name string) (*domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyCategoryName
	}

	category := &domain.Category{
		ID:        uuid.New(),
		Name:      name,
		CreatedAt: time.Now(),
	}

	if err := s.categoryRepo.Create(ctx, category); err != nil {
		return nil, err
	}

	return category, nil
}

func (s *catalogService) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	return s.categoryRepo.Delete(ctx, id)
}

func (s *catalogService) ListProducts(ctx context.Context) ([]*domain.Product, error) {
	return s.productRepo.List(ctx)
}

func (s *catalogService) GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	return s.productRepo.FindByID(ctx, id)
}

func (s *catalogService) CreateProduct(ctx context.Context, input ProductInput) (*domain.Product, error) {
	if err := validateProductInput(input); err != nil {
		return nil, err
	}

	// Image upload failure aborts the whole write; the placeholder is only
	// used when no image was supplied at all.
	imageURL, err := s.resolveImage(ctx, input.Image, s.placeholderURL)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	product := &domain.Product{
		ID:          uuid.New(),
		Name:        strings.TrimSpace(input.Name),
		Description: input.Description,
		Price:       input.Price,
		Stock:       input.Stock,
		ImageURL:    imageURL,
		CategoryID:  input.CategoryID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, err
	}

	return s.productRepo.FindByID(ctx, product.ID)
}

func (s *catalogService) UpdateProduct(ctx context.Context, id uuid.UUID, input ProductInput) (*domain.Product, error) {
	if err := validateProductInput(input); err != nil {
		return nil, err
	}

	existing, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// Without a new image the existing URL is retained.
	imageURL, err := s.resolveImage(ctx, input.Image, existing.ImageURL)
	if err != nil {
		return nil, err
	}

	existing.Name = strings.TrimSpace(input.Name)
	existing.Description = input.Description
	existing.Price = input.Price
	existing.Stock = input.Stock
	existing.CategoryID = input.CategoryID
	existing.ImageURL = imageURL
	existing.UpdatedAt = time.Now()

	if err := s.productRepo.Update(ctx, existing); err != nil {
		return nil, err
	}

	return s.productRepo.FindByID(ctx, id)
}

func (s *catalogService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	return s.productRepo.Delete(ctx, id)
}

func validateProductInput(input ProductInput) error {
	if strings.TrimSpace(input.Name) == "" || input.Price < 0 || input.Stock < 0 || input.CategoryID == uuid.Nil {
		return ErrInvalidProduct
	}
	return nil
}

// resolveImage turns an ImageInput into a stored URL, falling back to the
// given URL when no image is supplied.
func (s *catalogService) resolveImage(ctx context.Context, img ImageInput, fallback string) (string, error) {
	switch img.Mode {
	case ImageFile:
		url, err := s.uploader.Upload(ctx, img.Filename, img.ContentType, img.Data)
		if err != nil {
			return "", fmt.Errorf("image upload failed: %w", err)
		}
		return url, nil
	case ImageBase64:
		url, err := s.uploader.UploadBase64(ctx, img.Base64)
		if err != nil {
			return "", fmt.Errorf("image upload failed: %w", err)
		}
		return url, nil
	default:
		return fallback, nil
	}
}
