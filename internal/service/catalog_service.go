package service

import (
	"context"
	"errors"
	"time"

	"okean/internal/domain"
	"okean/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductInput carries the admin-editable product fields.
type ProductInput struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
	ImageURL    string
	IsActive    bool
	CategoryID  uuid.UUID
}

// CatalogService manages products and categories. Stock adjustments go
// through the inventory service so the reservation path stays the only
// writer of the stock counter.
type CatalogService interface {
	CreateProduct(ctx context.Context, in ProductInput) (*domain.Product, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, in ProductInput) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	ListProducts(ctx context.Context, categoryID *uuid.UUID, page, pageSize int, sortBy string, sortOrder repository.SortOrder) ([]*domain.Product, int, error)
	SearchProducts(ctx context.Context, query string, page, pageSize int) ([]*domain.Product, int, error)
	AdjustStock(ctx context.Context, id uuid.UUID, delta int) (*domain.Product, error)

	CreateCategory(ctx context.Context, name, description, imageURL string) (*domain.Category, error)
	UpdateCategory(ctx context.Context, category *domain.Category) (*domain.Category, error)
	DeleteCategory(ctx context.Context, id uuid.UUID) error
	GetCategory(ctx context.Context, id uuid.UUID) (*domain.Category, error)
	ListCategories(ctx context.Context) ([]*domain.Category, error)
}

type catalogService struct {
	store     repository.Storer
	inventory InventoryService
}

// NewCatalogService creates a new instance of CatalogService
func NewCatalogService(store repository.Storer, inventory InventoryService) CatalogService {
	return &catalogService{store: store, inventory: inventory}
}

// CreateProduct inserts a new product after checking the category exists.
func (s *catalogService) CreateProduct(ctx context.Context, in ProductInput) (*domain.Product, error) {
	if _, err := s.store.Categories().FindByID(ctx, in.CategoryID); err != nil {
		return nil, err
	}
	if in.Price.IsNegative() {
		return nil, errors.New("price must not be negative")
	}
	if in.Stock < 0 {
		in.Stock = 0
	}

	now := time.Now()
	product := &domain.Product{
		ID:          uuid.New(),
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		Stock:       in.Stock,
		ImageURL:    in.ImageURL,
		IsActive:    in.IsActive,
		CategoryID:  in.CategoryID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.store.Products().Create(ctx, product); err != nil {
		return nil, err
	}

	return product, nil
}

// UpdateProduct edits a product's descriptive fields. Stock is not touched
// here; use AdjustStock.
func (s *catalogService) UpdateProduct(ctx context.Context, id uuid.UUID, in ProductInput) (*domain.Product, error) {
	if in.Price.IsNegative() {
		return nil, errors.New("price must not be negative")
	}

	product, err := s.store.Products().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.CategoryID != product.CategoryID {
		if _, err := s.store.Categories().FindByID(ctx, in.CategoryID); err != nil {
			return nil, err
		}
	}

	product.Name = in.Name
	product.Description = in.Description
	product.Price = in.Price
	product.ImageURL = in.ImageURL
	product.IsActive = in.IsActive
	product.CategoryID = in.CategoryID
	product.UpdatedAt = time.Now()

	if err := s.store.Products().Update(ctx, product); err != nil {
		return nil, err
	}

	return product, nil
}

// DeleteProduct removes a product from the catalog.
func (s *catalogService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	return s.store.Products().Delete(ctx, id)
}

// GetProduct retrieves one product.
func (s *catalogService) GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	return s.store.Products().FindByID(ctx, id)
}

// ListProducts retrieves products with filtering, pagination and sorting.
func (s *catalogService) ListProducts(ctx context.Context, categoryID *uuid.UUID, page, pageSize int, sortBy string, sortOrder repository.SortOrder) ([]*domain.Product, int, error) {
	return s.store.Products().List(ctx, categoryID, page, pageSize, sortBy, sortOrder)
}

// SearchProducts searches products by name or description.
func (s *catalogService) SearchProducts(ctx context.Context, query string, page, pageSize int) ([]*domain.Product, int, error) {
	return s.store.Products().Search(ctx, query, page, pageSize)
}

// AdjustStock changes available stock by delta through the inventory
// service. A negative delta fails with insufficient stock when it would
// drive the counter below zero.
func (s *catalogService) AdjustStock(ctx context.Context, id uuid.UUID, delta int) (*domain.Product, error) {
	if delta == 0 {
		return s.store.Products().FindByID(ctx, id)
	}

	var product *domain.Product
	err := s.store.WithTx(ctx, func(tx repository.Storer) error {
		line := []StockLine{{ProductID: id, Quantity: delta}}
		if delta < 0 {
			line[0].Quantity = -delta
			if err := s.inventory.Commit(ctx, tx.Products(), line); err != nil {
				return err
			}
		} else {
			if err := s.inventory.Restore(ctx, tx.Products(), line); err != nil {
				return err
			}
		}

		var err error
		product, err = tx.Products().FindByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	return product, nil
}

// CreateCategory inserts a new category; names are unique.
func (s *catalogService) CreateCategory(ctx context.Context, name, description, imageURL string) (*domain.Category, error) {
	now := time.Now()
	category := &domain.Category{
		ID:          uuid.New(),
		Name:        name,
		Description: description,
		ImageURL:    imageURL,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.store.Categories().Create(ctx, category); err != nil {
		return nil, err
	}

	return category, nil
}

// UpdateCategory edits a category.
func (s *catalogService) UpdateCategory(ctx context.Context, category *domain.Category) (*domain.Category, error) {
	category.UpdatedAt = time.Now()
	if err := s.store.Categories().Update(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

// DeleteCategory removes a category, blocked while products reference it.
func (s *catalogService) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	return s.store.WithTx(ctx, func(tx repository.Storer) error {
		count, err := tx.Products().CountByCategory(ctx, id)
		if err != nil {
			return err
		}
		if count > 0 {
			return ErrCategoryInUse
		}
		return tx.Categories().Delete(ctx, id)
	})
}

// GetCategory retrieves one category.
func (s *catalogService) GetCategory(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	return s.store.Categories().FindByID(ctx, id)
}

// ListCategories retrieves all categories.
func (s *catalogService) ListCategories(ctx context.Context) ([]*domain.Category, error) {
	return s.store.Categories().List(ctx)
}
