package service

import (
	"context"
	"errors"
	"testing"

	"okean/internal/repository"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
)

func TestCartGet_CreatesEmptyCartOnFirstAccess(t *testing.T) {
	store := newMemStore()
	svc := NewCartService(store)

	cart, err := svc.Get(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	if len(cart.Items) != 0 {
		t.Errorf("Expected empty cart, got %d items", len(cart.Items))
	}
	if !cart.TotalPrice.IsZero() {
		t.Errorf("Expected zero total, got %s", cart.TotalPrice)
	}
}

func TestCartAddItem_MergesExistingLine(t *testing.T) {
	store := newMemStore()
	svc := NewCartService(store)
	ctx := context.Background()

	product := seedProduct(store, 15, 10)
	userID := uuid.New()

	if _, err := svc.AddItem(ctx, userID, product.ID, 2); err != nil {
		t.Fatalf("AddItem failed: %v", err)
	}
	cart, err := svc.AddItem(ctx, userID, product.ID, 3)
	if err != nil {
		t.Fatalf("AddItem failed: %v", err)
	}

	if len(cart.Items) != 1 {
		t.Fatalf("Expected merged single line, got %d", len(cart.Items))
	}
	if cart.Items[0].Quantity != 5 {
		t.Errorf("Expected quantity 5, got %d", cart.Items[0].Quantity)
	}
	if !cart.TotalPrice.Equal(decimal.NewFromInt(75)) {
		t.Errorf("Expected total 75, got %s", cart.TotalPrice)
	}
}

func TestCartAddItem_Rejections(t *testing.T) {
	store := newMemStore()
	svc := NewCartService(store)
	ctx := context.Background()
	userID := uuid.New()

	if _, err := svc.AddItem(ctx, userID, uuid.New(), 0); !errors.Is(err, ErrInvalidQuantity) {
		t.Errorf("Expected ErrInvalidQuantity, got: %v", err)
	}

	if _, err := svc.AddItem(ctx, userID, uuid.New(), 1); !errors.Is(err, repository.ErrProductNotFound) {
		t.Errorf("Expected ErrProductNotFound, got: %v", err)
	}

	inactive := seedProduct(store, 10, 10)
	inactive.IsActive = false
	if _, err := svc.AddItem(ctx, userID, inactive.ID, 1); !errors.Is(err, ErrProductInactive) {
		t.Errorf("Expected ErrProductInactive, got: %v", err)
	}

	scarce := seedProduct(store, 10, 2)
	if _, err := svc.AddItem(ctx, userID, scarce.ID, 3); !IsInsufficientStock(err) {
		t.Errorf("Expected insufficient stock error, got: %v", err)
	}
}

func TestCartAddItem_DoesNotReserveStock(t *testing.T) {
	store := newMemStore()
	svc := NewCartService(store)
	ctx := context.Background()

	product := seedProduct(store, 10, 4)

	if _, err := svc.AddItem(ctx, uuid.New(), product.ID, 4); err != nil {
		t.Fatalf("AddItem failed: %v", err)
	}

	// The stock check on add is advisory only
	if got := store.data.products[product.ID].Stock; got != 4 {
		t.Errorf("Expected stock untouched at 4, got %d", got)
	}
}

func TestCartUpdateItem_ZeroRemovesLine(t *testing.T) {
	store := newMemStore()
	svc := NewCartService(store)
	ctx := context.Background()

	product := seedProduct(store, 10, 10)
	userID := uuid.New()

	if _, err := svc.AddItem(ctx, userID, product.ID, 2); err != nil {
		t.Fatalf("AddItem failed: %v", err)
	}

	cart, err := svc.UpdateItem(ctx, userID, product.ID, 0)
	if err != nil {
		t.Fatalf("UpdateItem failed: %v", err)
	}

	if len(cart.Items) != 0 {
		t.Errorf("Expected line removed, got %d items", len(cart.Items))
	}
	if !cart.TotalPrice.IsZero() {
		t.Errorf("Expected zero total, got %s", cart.TotalPrice)
	}
}

func TestCartUpdateItem_ReplacesQuantity(t *testing.T) {
	store := newMemStore()
	svc := NewCartService(store)
	ctx := context.Background()

	product := seedProduct(store, 10, 10)
	userID := uuid.New()

	if _, err := svc.AddItem(ctx, userID, product.ID, 2); err != nil {
		t.Fatalf("AddItem failed: %v", err)
	}

	cart, err := svc.UpdateItem(ctx, userID, product.ID, 7)
	if err != nil {
		t.Fatalf("UpdateItem failed: %v", err)
	}

	if cart.Items[0].Quantity != 7 {
		t.Errorf("Expected quantity 7, got %d", cart.Items[0].Quantity)
	}
	if !cart.TotalPrice.Equal(decimal.NewFromInt(70)) {
		t.Errorf("Expected total 70, got %s", cart.TotalPrice)
	}
}

func TestCartUpdateItem_MissingLine(t *testing.T) {
	store := newMemStore()
	svc := NewCartService(store)
	ctx := context.Background()

	product := seedProduct(store, 10, 10)
	other := seedProduct(store, 10, 10)
	userID := uuid.New()

	if _, err := svc.AddItem(ctx, userID, product.ID, 1); err != nil {
		t.Fatalf("AddItem failed: %v", err)
	}

	_, err := svc.UpdateItem(ctx, userID, other.ID, 2)
	if !errors.Is(err, repository.ErrCartItemNotFound) {
		t.Errorf("Expected ErrCartItemNotFound, got: %v", err)
	}
}

func TestCartClear(t *testing.T) {
	store := newMemStore()
	svc := NewCartService(store)
	ctx := context.Background()

	first := seedProduct(store, 10, 10)
	second := seedProduct(store, 20, 10)
	userID := uuid.New()

	if _, err := svc.AddItem(ctx, userID, first.ID, 1); err != nil {
		t.Fatalf("AddItem failed: %v", err)
	}
	if _, err := svc.AddItem(ctx, userID, second.ID, 2); err != nil {
		t.Fatalf("AddItem failed: %v", err)
	}

	cart, err := svc.Clear(ctx, userID)
	if err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	if len(cart.Items) != 0 {
		t.Errorf("Expected empty cart, got %d items", len(cart.Items))
	}
	if !cart.TotalPrice.IsZero() {
		t.Errorf("Expected zero total, got %s", cart.TotalPrice)
	}
}

func TestProperty_CartTotalEqualsSumOfSubtotals(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50

	properties := gopter.NewProperties(parameters)

	properties.Property("total price equals the sum of line subtotals", prop.ForAll(
		func(prices []int64, quantities []int) bool {
			store := newMemStore()
			svc := NewCartService(store)
			ctx := context.Background()
			userID := uuid.New()

			n := len(prices)
			if len(quantities) < n {
				n = len(quantities)
			}

			want := decimal.Zero
			result := decimal.Zero
			for i := 0; i < n; i++ {
				product := seedProduct(store, prices[i], 1000)
				got, err := svc.AddItem(ctx, userID, product.ID, quantities[i])
				if err != nil {
					return false
				}
				want = want.Add(product.Price.Mul(decimal.NewFromInt(int64(quantities[i]))))
				result = got.TotalPrice
			}

			if n == 0 {
				return true
			}
			return result.Equal(want)
		},
		gen.SliceOfN(4, gen.Int64Range(1, 500)),
		gen.SliceOfN(4, gen.IntRange(1, 9)),
	))

	properties.TestingRun(t)
}
