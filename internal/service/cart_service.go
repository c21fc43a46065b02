package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"okean/internal/domain"
	"okean/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartService manages per-user carts. Carts are advisory: the stock check on
// add is a read-only courtesy against current availability, stock is only
// committed at order creation.
type CartService interface {
	Get(ctx context.Context, userID uuid.UUID) (*domain.Cart, error)
	AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*domain.Cart, error)
	UpdateItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*domain.Cart, error)
	RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*domain.Cart, error)
	Clear(ctx context.Context, userID uuid.UUID) (*domain.Cart, error)
}

type cartService struct {
	store repository.Storer
}

// NewCartService creates a new instance of CartService
func NewCartService(store repository.Storer) CartService {
	return &cartService{store: store}
}

// Get returns the user's cart, creating an empty one on first access.
func (s *cartService) Get(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	return s.getOrCreate(ctx, s.store, userID)
}

func (s *cartService) getOrCreate(ctx context.Context, store repository.Storer, userID uuid.UUID) (*domain.Cart, error) {
	cart, err := store.Carts().FindByUserID(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, repository.ErrCartNotFound) {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	now := time.Now()
	cart = &domain.Cart{
		ID:         uuid.New(),
		UserID:     userID,
		TotalPrice: decimal.Zero,
		Items:      []*domain.CartItem{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := store.Carts().Create(ctx, cart); err != nil {
		return nil, fmt.Errorf("failed to create cart: %w", err)
	}

	return cart, nil
}

// AddItem puts quantity units of a product into the cart, merging with an
// existing line. The unit price is captured at add time.
func (s *cartService) AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*domain.Cart, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	var result *domain.Cart
	err := s.store.WithTx(ctx, func(tx repository.Storer) error {
		product, err := tx.Products().FindByID(ctx, productID)
		if err != nil {
			return err
		}
		if !product.IsActive {
			return ErrProductInactive
		}
		if product.Stock < quantity {
			return &InsufficientStockError{ProductID: productID}
		}

		cart, err := s.getOrCreate(ctx, tx, userID)
		if err != nil {
			return err
		}

		now := time.Now()
		line := s.findItem(cart, productID)
		if line != nil {
			line.Quantity += quantity
			line.Price = product.Price
			line.UpdatedAt = now
		} else {
			line = &domain.CartItem{
				ID:        uuid.New(),
				CartID:    cart.ID,
				ProductID: productID,
				Quantity:  quantity,
				Price:     product.Price,
				CreatedAt: now,
				UpdatedAt: now,
			}
			cart.Items = append(cart.Items, line)
		}

		if err := tx.Carts().UpsertItem(ctx, line); err != nil {
			return err
		}

		result, err = s.saveTotal(ctx, tx, cart)
		return err
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// UpdateItem replaces a line's quantity; a quantity of zero or less removes
// the line.
func (s *cartService) UpdateItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*domain.Cart, error) {
	if quantity <= 0 {
		return s.RemoveItem(ctx, userID, productID)
	}

	var result *domain.Cart
	err := s.store.WithTx(ctx, func(tx repository.Storer) error {
		cart, err := tx.Carts().FindByUserID(ctx, userID)
		if err != nil {
			return err
		}

		line := s.findItem(cart, productID)
		if line == nil {
			return repository.ErrCartItemNotFound
		}

		line.Quantity = quantity
		line.UpdatedAt = time.Now()

		if err := tx.Carts().UpsertItem(ctx, line); err != nil {
			return err
		}

		result, err = s.saveTotal(ctx, tx, cart)
		return err
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// RemoveItem deletes one line from the cart.
func (s *cartService) RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*domain.Cart, error) {
	var result *domain.Cart
	err := s.store.WithTx(ctx, func(tx repository.Storer) error {
		cart, err := tx.Carts().FindByUserID(ctx, userID)
		if err != nil {
			return err
		}

		if err := tx.Carts().RemoveItem(ctx, cart.ID, productID); err != nil {
			return err
		}

		kept := cart.Items[:0]
		for _, item := range cart.Items {
			if item.ProductID != productID {
				kept = append(kept, item)
			}
		}
		cart.Items = kept

		result, err = s.saveTotal(ctx, tx, cart)
		return err
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// Clear empties the cart and zeroes its total.
func (s *cartService) Clear(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	var result *domain.Cart
	err := s.store.WithTx(ctx, func(tx repository.Storer) error {
		cart, err := s.getOrCreate(ctx, tx, userID)
		if err != nil {
			return err
		}

		if err := tx.Carts().Clear(ctx, cart.ID); err != nil {
			return err
		}
		cart.Items = []*domain.CartItem{}

		result, err = s.saveTotal(ctx, tx, cart)
		return err
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (s *cartService) findItem(cart *domain.Cart, productID uuid.UUID) *domain.CartItem {
	for _, item := range cart.Items {
		if item.ProductID == productID {
			return item
		}
	}
	return nil
}

func (s *cartService) saveTotal(ctx context.Context, tx repository.Storer, cart *domain.Cart) (*domain.Cart, error) {
	cart.TotalPrice = cart.ComputeTotal()
	if err := tx.Carts().SetTotal(ctx, cart.ID, cart.TotalPrice); err != nil {
		return nil, err
	}
	return cart, nil
}
