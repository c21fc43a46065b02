package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"

	"okean/internal/repository"

	"github.com/google/uuid"
)

// StockLine is a (product, quantity) demand against inventory.
type StockLine struct {
	ProductID uuid.UUID
	Quantity  int
}

// InventoryService owns every stock mutation. Commit and Restore operate on
// a transaction-bound ProductRepository: the caller opens the transaction
// (Storer.WithTx) and a failed Commit rolls the whole transaction back, so a
// multi-line commit is all-or-nothing.
type InventoryService interface {
	Commit(ctx context.Context, products repository.ProductRepository, lines []StockLine) error
	Restore(ctx context.Context, products repository.ProductRepository, lines []StockLine) error
}

type inventoryService struct{}

// NewInventoryService creates a new instance of InventoryService
func NewInventoryService() InventoryService {
	return &inventoryService{}
}

// normalizeLines coalesces duplicate product ids and orders lines by product
// id. The fixed global order means two overlapping multi-line commits always
// take their row locks in the same sequence and cannot deadlock.
func normalizeLines(lines []StockLine) ([]StockLine, error) {
	merged := make(map[uuid.UUID]int, len(lines))
	for _, line := range lines {
		if line.Quantity < 1 {
			return nil, ErrInvalidQuantity
		}
		merged[line.ProductID] += line.Quantity
	}

	out := make([]StockLine, 0, len(merged))
	for id, qty := range merged {
		out = append(out, StockLine{ProductID: id, Quantity: qty})
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].ProductID[:], out[j].ProductID[:]) < 0
	})

	return out, nil
}

// Commit decrements stock for every line or fails without touching anything.
// Each decrement is a conditional single-statement update; the first line
// whose guard fails aborts the loop and the error propagates to the caller,
// which rolls back the decrements already applied.
func (s *inventoryService) Commit(ctx context.Context, products repository.ProductRepository, lines []StockLine) error {
	if len(lines) == 0 {
		return ErrEmptyOrder
	}

	normalized, err := normalizeLines(lines)
	if err != nil {
		return err
	}

	for _, line := range normalized {
		ok, err := products.DecrementStock(ctx, line.ProductID, line.Quantity)
		if err != nil {
			return fmt.Errorf("failed to commit stock: %w", err)
		}
		if ok {
			continue
		}

		// The guard failed; a missing product and a real shortfall
		// surface differently.
		if _, err := products.FindByID(ctx, line.ProductID); err != nil {
			if errors.Is(err, repository.ErrProductNotFound) {
				return repository.ErrProductNotFound
			}
			return fmt.Errorf("failed to commit stock: %w", err)
		}
		return &InsufficientStockError{ProductID: line.ProductID}
	}

	return nil
}

// Restore increments stock for every line. Restoring is not capacity-bounded
// and cannot fail short of a storage error; idempotency is the caller's
// responsibility (the order state machine invokes it at most once per order).
func (s *inventoryService) Restore(ctx context.Context, products repository.ProductRepository, lines []StockLine) error {
	normalized, err := normalizeLines(lines)
	if err != nil {
		return err
	}

	for _, line := range normalized {
		if err := products.IncrementStock(ctx, line.ProductID, line.Quantity); err != nil {
			return fmt.Errorf("failed to restore stock: %w", err)
		}
	}

	return nil
}
