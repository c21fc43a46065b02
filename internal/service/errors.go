package service

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrEmptyOrder is returned when order creation has no explicit lines
	// and the user's cart is empty.
	ErrEmptyOrder = errors.New("order has no lines")
	// ErrInvalidTransition is returned when a requested status change is
	// not a legal edge in the order state machine, including losing a race
	// against a concurrent transition.
	ErrInvalidTransition = errors.New("invalid order status transition")
	// ErrForbidden is returned when the actor lacks ownership or privilege.
	ErrForbidden = errors.New("forbidden")
	// ErrDuplicateReview is returned on a second review for the same
	// (user, product) pair.
	ErrDuplicateReview = errors.New("review for this product already exists")
	// ErrCategoryInUse blocks deleting a category that products reference.
	ErrCategoryInUse = errors.New("category has products and cannot be deleted")
	// ErrInvalidQuantity is returned for non-positive quantities.
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	// ErrProductInactive is returned when a deactivated product is added to
	// a cart.
	ErrProductInactive = errors.New("product is not available")
)

// InsufficientStockError reports which product could not cover the requested
// quantity.
type InsufficientStockError struct {
	ProductID uuid.UUID
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s", e.ProductID)
}

// IsInsufficientStock reports whether err is an InsufficientStockError.
func IsInsufficientStock(err error) bool {
	var target *InsufficientStockError
	return errors.As(err, &target)
}
