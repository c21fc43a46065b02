package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// DBTX is the subset of database/sql used by the repositories. Both *sql.DB
// and *sql.Tx satisfy it, so every repository works standalone and inside a
// transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Storer bundles all repositories and provides transactional execution.
type Storer interface {
	Users() UserRepository
	RefreshTokens() RefreshTokenRepository
	Products() ProductRepository
	Categories() CategoryRepository
	Carts() CartRepository
	Orders() OrderRepository
	Reviews() ReviewRepository

	// WithTx runs fn with a store whose repositories are bound to a single
	// database transaction. A non-nil error from fn rolls the transaction
	// back; otherwise it is committed.
	WithTx(ctx context.Context, fn func(Storer) error) error
}

type store struct {
	db *sql.DB

	users         UserRepository
	refreshTokens RefreshTokenRepository
	products      ProductRepository
	categories    CategoryRepository
	carts         CartRepository
	orders        OrderRepository
	reviews       ReviewRepository
}

// NewStore creates a Storer backed by db.
func NewStore(db *sql.DB) Storer {
	s := &store{db: db}
	s.bind(db)
	return s
}

func (s *store) bind(q DBTX) {
	s.users = NewUserRepository(q)
	s.refreshTokens = NewRefreshTokenRepository(q)
	s.products = NewProductRepository(q)
	s.categories = NewCategoryRepository(q)
	s.carts = NewCartRepository(q)
	s.orders = NewOrderRepository(q)
	s.reviews = NewReviewRepository(q)
}

func (s *store) Users() UserRepository                 { return s.users }
func (s *store) RefreshTokens() RefreshTokenRepository { return s.refreshTokens }
func (s *store) Products() ProductRepository           { return s.products }
func (s *store) Categories() CategoryRepository        { return s.categories }
func (s *store) Carts() CartRepository                 { return s.carts }
func (s *store) Orders() OrderRepository               { return s.orders }
func (s *store) Reviews() ReviewRepository             { return s.reviews }

func (s *store) WithTx(ctx context.Context, fn func(Storer) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	txStore := &store{db: s.db}
	txStore.bind(tx)

	if err := fn(txStore); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
