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

// Actor identifies who is performing an operation, as established by the
// authentication middleware. The service trusts the pair and layers its own
// ownership and role checks on top.
type Actor struct {
	UserID uuid.UUID
	Role   string
}

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool { return a.Role == domain.RoleAdmin }

// OrderLineInput is a client-supplied demand. Only the product id and
// quantity are trusted; name and price are re-read from the catalog inside
// the creation transaction.
type OrderLineInput struct {
	ProductID uuid.UUID
	Quantity  int
}

// CreateOrderInput carries the checkout request.
type CreateOrderInput struct {
	ShippingAddress string
	PhoneNumber     string
	Note            string
	PaymentMethod   domain.PaymentMethod
	Lines           []OrderLineInput
}

// OrderService owns the order lifecycle: creation with stock commitment,
// status transitions, and cancellation with stock restoration.
type OrderService interface {
	Create(ctx context.Context, userID uuid.UUID, in CreateOrderInput) (*domain.Order, error)
	GetByID(ctx context.Context, id uuid.UUID, actor Actor) (*domain.Order, error)
	ListForUser(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]*domain.Order, int, error)
	ListAll(ctx context.Context, status *domain.OrderStatus, page, pageSize int) ([]*domain.Order, int, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, next domain.OrderStatus) (*domain.Order, error)
	Cancel(ctx context.Context, id uuid.UUID, actor Actor) (*domain.Order, error)
	MarkPayment(ctx context.Context, id uuid.UUID, status domain.PaymentStatus) (*domain.Order, error)
	Summary(ctx context.Context) (*domain.OrderSummary, error)
}

type orderService struct {
	store     repository.Storer
	inventory InventoryService
	notifier  Notifier
}

// NewOrderService creates a new instance of OrderService
func NewOrderService(store repository.Storer, inventory InventoryService, notifier Notifier) OrderService {
	return &orderService{
		store:     store,
		inventory: inventory,
		notifier:  notifier,
	}
}

// Create builds an order from the request lines or, when none are given,
// from the user's cart. Stock commitment, order insertion and cart clearing
// happen inside one transaction: if any step fails, no order row exists, no
// stock moved and the cart is untouched.
func (s *orderService) Create(ctx context.Context, userID uuid.UUID, in CreateOrderInput) (*domain.Order, error) {
	if in.PaymentMethod == "" {
		in.PaymentMethod = domain.PaymentMethodCOD
	}
	if !in.PaymentMethod.Valid() {
		return nil, fmt.Errorf("unknown payment method %q", in.PaymentMethod)
	}

	var order *domain.Order
	err := s.store.WithTx(ctx, func(tx repository.Storer) error {
		demands := make([]StockLine, 0, len(in.Lines))
		for _, line := range in.Lines {
			demands = append(demands, StockLine{ProductID: line.ProductID, Quantity: line.Quantity})
		}

		var cart *domain.Cart
		if len(demands) == 0 {
			var err error
			cart, err = tx.Carts().FindByUserID(ctx, userID)
			if err != nil {
				if errors.Is(err, repository.ErrCartNotFound) {
					return ErrEmptyOrder
				}
				return err
			}
			for _, item := range cart.Items {
				demands = append(demands, StockLine{ProductID: item.ProductID, Quantity: item.Quantity})
			}
		}

		if len(demands) == 0 {
			return ErrEmptyOrder
		}

		normalized, err := normalizeLines(demands)
		if err != nil {
			return err
		}

		now := time.Now()
		order = &domain.Order{
			ID:              uuid.New(),
			UserID:          userID,
			Status:          domain.OrderStatusPending,
			ShippingAddress: in.ShippingAddress,
			PhoneNumber:     in.PhoneNumber,
			Note:            in.Note,
			PaymentMethod:   in.PaymentMethod,
			PaymentStatus:   domain.PaymentStatusUnpaid,
			CreatedAt:       now,
			UpdatedAt:       now,
		}

		// Snapshot name and price from the current product rows. Client
		// prices are never trusted as the subtotal source.
		total := decimal.Zero
		items := make([]*domain.OrderItem, 0, len(normalized))
		for _, line := range normalized {
			product, err := tx.Products().FindByID(ctx, line.ProductID)
			if err != nil {
				return err
			}

			subtotal := product.Price.Mul(decimal.NewFromInt(int64(line.Quantity)))
			items = append(items, &domain.OrderItem{
				ID:          uuid.New(),
				OrderID:     order.ID,
				ProductID:   product.ID,
				ProductName: product.Name,
				Quantity:    line.Quantity,
				Price:       product.Price,
				Subtotal:    subtotal,
			})
			total = total.Add(subtotal)
		}

		if err := s.inventory.Commit(ctx, tx.Products(), normalized); err != nil {
			return err
		}

		order.TotalAmount = total
		order.Items = items

		if err := tx.Orders().Create(ctx, order); err != nil {
			return err
		}
		if err := tx.Orders().CreateItems(ctx, items); err != nil {
			return err
		}

		// Checkout always empties the database cart, also when the lines
		// came in explicitly.
		if cart == nil {
			cart, err = tx.Carts().FindByUserID(ctx, userID)
			if err != nil {
				if errors.Is(err, repository.ErrCartNotFound) {
					return nil
				}
				return err
			}
		}
		if err := tx.Carts().Clear(ctx, cart.ID); err != nil {
			return err
		}
		return tx.Carts().SetTotal(ctx, cart.ID, decimal.Zero)
	})
	if err != nil {
		return nil, err
	}

	// Best effort: a notification failure must never fail the order.
	s.notifier.OrderCreated(ctx, order)

	return order, nil
}

// GetByID returns an order to its owner or an admin.
func (s *orderService) GetByID(ctx context.Context, id uuid.UUID, actor Actor) (*domain.Order, error) {
	order, err := s.store.Orders().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if order.UserID != actor.UserID && !actor.IsAdmin() {
		return nil, ErrForbidden
	}

	return order, nil
}

// ListForUser returns a user's own orders, newest first.
func (s *orderService) ListForUser(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]*domain.Order, int, error) {
	return s.store.Orders().ListByUser(ctx, userID, page, pageSize)
}

// ListAll returns all orders with an optional status filter.
func (s *orderService) ListAll(ctx context.Context, status *domain.OrderStatus, page, pageSize int) ([]*domain.Order, int, error) {
	return s.store.Orders().List(ctx, status, page, pageSize)
}

// UpdateStatus applies a forward transition of the state machine. Cancelled
// is not reachable here; cancellation has its own path because it restores
// stock. The write is conditional on the status read in the same
// transaction, so concurrent duplicate calls resolve to exactly one winner.
func (s *orderService) UpdateStatus(ctx context.Context, id uuid.UUID, next domain.OrderStatus) (*domain.Order, error) {
	if !next.Valid() || next == domain.OrderStatusCancelled {
		return nil, ErrInvalidTransition
	}

	var order *domain.Order
	err := s.store.WithTx(ctx, func(tx repository.Storer) error {
		var err error
		order, err = tx.Orders().FindByID(ctx, id)
		if err != nil {
			return err
		}

		if !order.Status.CanTransitionTo(next) {
			return ErrInvalidTransition
		}

		ok, err := tx.Orders().UpdateStatus(ctx, id, order.Status, next)
		if err != nil {
			return err
		}
		if !ok {
			return ErrInvalidTransition
		}

		order.Status = next
		return nil
	})
	if err != nil {
		return nil, err
	}

	return order, nil
}

// Cancel moves a Pending order to Cancelled and restores its stock. The
// conditional Pending->Cancelled flip is the exclusive gate: of two
// concurrent cancels only the one that wins the flip restores stock, so a
// double cancel can never restore twice.
func (s *orderService) Cancel(ctx context.Context, id uuid.UUID, actor Actor) (*domain.Order, error) {
	var order *domain.Order
	err := s.store.WithTx(ctx, func(tx repository.Storer) error {
		var err error
		order, err = tx.Orders().FindByID(ctx, id)
		if err != nil {
			return err
		}

		if order.UserID != actor.UserID && !actor.IsAdmin() {
			return ErrForbidden
		}

		ok, err := tx.Orders().UpdateStatus(ctx, id, domain.OrderStatusPending, domain.OrderStatusCancelled)
		if err != nil {
			return err
		}
		if !ok {
			return ErrInvalidTransition
		}

		lines := make([]StockLine, 0, len(order.Items))
		for _, item := range order.Items {
			lines = append(lines, StockLine{ProductID: item.ProductID, Quantity: item.Quantity})
		}
		if err := s.inventory.Restore(ctx, tx.Products(), lines); err != nil {
			return err
		}

		order.Status = domain.OrderStatusCancelled
		return nil
	})
	if err != nil {
		return nil, err
	}

	return order, nil
}

// MarkPayment records the settlement state reported by a payment gateway.
func (s *orderService) MarkPayment(ctx context.Context, id uuid.UUID, status domain.PaymentStatus) (*domain.Order, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("unknown payment status %q", status)
	}

	if err := s.store.Orders().UpdatePaymentStatus(ctx, id, status); err != nil {
		return nil, err
	}

	return s.store.Orders().FindByID(ctx, id)
}

// Summary returns the back-office dashboard aggregates.
func (s *orderService) Summary(ctx context.Context) (*domain.OrderSummary, error) {
	return s.store.Orders().Summary(ctx)
}
