package service

import (
	"context"
	"sort"
	"strings"
	"sync"

	"okean/internal/domain"
	"okean/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// memStore is an in-memory Storer for service tests. WithTx serializes on a
// mutex and snapshots the data, so a failed transaction really rolls back.
type memStore struct {
	mu   *sync.Mutex
	data *memData
	inTx bool
}

type memData struct {
	users    map[uuid.UUID]*domain.User
	tokens   map[string]*domain.RefreshToken
	products map[uuid.UUID]*domain.Product
	cats     map[uuid.UUID]*domain.Category
	carts    map[uuid.UUID]*domain.Cart
	orders   map[uuid.UUID]*domain.Order
	reviews  map[uuid.UUID]*domain.Review
}

func newMemStore() *memStore {
	return &memStore{
		mu: &sync.Mutex{},
		data: &memData{
			users:    map[uuid.UUID]*domain.User{},
			tokens:   map[string]*domain.RefreshToken{},
			products: map[uuid.UUID]*domain.Product{},
			cats:     map[uuid.UUID]*domain.Category{},
			carts:    map[uuid.UUID]*domain.Cart{},
			orders:   map[uuid.UUID]*domain.Order{},
			reviews:  map[uuid.UUID]*domain.Review{},
		},
	}
}

func cloneCart(c *domain.Cart) *domain.Cart {
	out := *c
	out.Items = make([]*domain.CartItem, len(c.Items))
	for i, item := range c.Items {
		clone := *item
		out.Items[i] = &clone
	}
	return &out
}

func cloneOrder(o *domain.Order) *domain.Order {
	out := *o
	out.Items = make([]*domain.OrderItem, len(o.Items))
	for i, item := range o.Items {
		clone := *item
		out.Items[i] = &clone
	}
	return &out
}

func (d *memData) clone() *memData {
	out := &memData{
		users:    map[uuid.UUID]*domain.User{},
		tokens:   map[string]*domain.RefreshToken{},
		products: map[uuid.UUID]*domain.Product{},
		cats:     map[uuid.UUID]*domain.Category{},
		carts:    map[uuid.UUID]*domain.Cart{},
		orders:   map[uuid.UUID]*domain.Order{},
		reviews:  map[uuid.UUID]*domain.Review{},
	}
	for id, u := range d.users {
		clone := *u
		out.users[id] = &clone
	}
	for token, t := range d.tokens {
		clone := *t
		out.tokens[token] = &clone
	}
	for id, p := range d.products {
		clone := *p
		out.products[id] = &clone
	}
	for id, c := range d.cats {
		clone := *c
		out.cats[id] = &clone
	}
	for id, c := range d.carts {
		out.carts[id] = cloneCart(c)
	}
	for id, o := range d.orders {
		out.orders[id] = cloneOrder(o)
	}
	for id, r := range d.reviews {
		clone := *r
		out.reviews[id] = &clone
	}
	return out
}

func (s *memStore) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *memStore) WithTx(ctx context.Context, fn func(repository.Storer) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	tx := &memStore{mu: s.mu, data: s.data, inTx: true}
	if err := fn(tx); err != nil {
		*s.data = *snapshot
		return err
	}
	return nil
}

func (s *memStore) Users() repository.UserRepository                 { return &memUsers{s} }
func (s *memStore) RefreshTokens() repository.RefreshTokenRepository { return &memTokens{s} }
func (s *memStore) Products() repository.ProductRepository           { return &memProducts{s} }
func (s *memStore) Categories() repository.CategoryRepository        { return &memCategories{s} }
func (s *memStore) Carts() repository.CartRepository                 { return &memCarts{s} }
func (s *memStore) Orders() repository.OrderRepository               { return &memOrders{s} }
func (s *memStore) Reviews() repository.ReviewRepository             { return &memReviews{s} }

type memUsers struct{ s *memStore }

func (r *memUsers) Create(ctx context.Context, user *domain.User) error {
	defer r.s.lock()()
	for _, existing := range r.s.data.users {
		if existing.Email == user.Email || existing.Username == user.Username {
			return repository.ErrUserAlreadyExists
		}
	}
	clone := *user
	r.s.data.users[user.ID] = &clone
	return nil
}

func (r *memUsers) Update(ctx context.Context, user *domain.User) error {
	defer r.s.lock()()
	if _, ok := r.s.data.users[user.ID]; !ok {
		return repository.ErrUserNotFound
	}
	clone := *user
	r.s.data.users[user.ID] = &clone
	return nil
}

func (r *memUsers) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	defer r.s.lock()()
	for _, u := range r.s.data.users {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (r *memUsers) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	defer r.s.lock()()
	u, ok := r.s.data.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	clone := *u
	return &clone, nil
}

func (r *memUsers) List(ctx context.Context, page, pageSize int) ([]*domain.User, int, error) {
	defer r.s.lock()()
	var out []*domain.User
	for _, u := range r.s.data.users {
		clone := *u
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return paginate(out, page, pageSize)
}

func (r *memUsers) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	defer r.s.lock()()
	u, ok := r.s.data.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.IsActive = active
	return nil
}

type memTokens struct{ s *memStore }

func (r *memTokens) Create(ctx context.Context, token *domain.RefreshToken) error {
	defer r.s.lock()()
	clone := *token
	r.s.data.tokens[token.Token] = &clone
	return nil
}

func (r *memTokens) FindByToken(ctx context.Context, token string) (*domain.RefreshToken, error) {
	defer r.s.lock()()
	t, ok := r.s.data.tokens[token]
	if !ok {
		return nil, repository.ErrRefreshTokenNotFound
	}
	if t.Revoked {
		return nil, repository.ErrRefreshTokenRevoked
	}
	clone := *t
	return &clone, nil
}

func (r *memTokens) Revoke(ctx context.Context, token string) error {
	defer r.s.lock()()
	t, ok := r.s.data.tokens[token]
	if !ok {
		return repository.ErrRefreshTokenNotFound
	}
	t.Revoked = true
	return nil
}

type memProducts struct{ s *memStore }

func (r *memProducts) Create(ctx context.Context, product *domain.Product) error {
	defer r.s.lock()()
	clone := *product
	r.s.data.products[product.ID] = &clone
	return nil
}

func (r *memProducts) Update(ctx context.Context, product *domain.Product) error {
	defer r.s.lock()()
	existing, ok := r.s.data.products[product.ID]
	if !ok {
		return repository.ErrProductNotFound
	}
	clone := *product
	clone.Stock = existing.Stock
	clone.Rating = existing.Rating
	clone.ReviewCount = existing.ReviewCount
	r.s.data.products[product.ID] = &clone
	return nil
}

func (r *memProducts) Delete(ctx context.Context, id uuid.UUID) error {
	defer r.s.lock()()
	if _, ok := r.s.data.products[id]; !ok {
		return repository.ErrProductNotFound
	}
	delete(r.s.data.products, id)
	return nil
}

func (r *memProducts) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	defer r.s.lock()()
	p, ok := r.s.data.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	clone := *p
	return &clone, nil
}

func (r *memProducts) List(ctx context.Context, categoryID *uuid.UUID, page, pageSize int, sortBy string, sortOrder repository.SortOrder) ([]*domain.Product, int, error) {
	defer r.s.lock()()
	var out []*domain.Product
	for _, p := range r.s.data.products {
		if categoryID != nil && p.CategoryID != *categoryID {
			continue
		}
		clone := *p
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return paginate(out, page, pageSize)
}

func (r *memProducts) Search(ctx context.Context, query string, page, pageSize int) ([]*domain.Product, int, error) {
	defer r.s.lock()()
	var out []*domain.Product
	for _, p := range r.s.data.products {
		if strings.Contains(strings.ToLower(p.Name), strings.ToLower(query)) {
			clone := *p
			out = append(out, &clone)
		}
	}
	return paginate(out, page, pageSize)
}

func (r *memProducts) CountByCategory(ctx context.Context, categoryID uuid.UUID) (int, error) {
	defer r.s.lock()()
	count := 0
	for _, p := range r.s.data.products {
		if p.CategoryID == categoryID {
			count++
		}
	}
	return count, nil
}

func (r *memProducts) DecrementStock(ctx context.Context, id uuid.UUID, qty int) (bool, error) {
	defer r.s.lock()()
	p, ok := r.s.data.products[id]
	if !ok || p.Stock < qty {
		return false, nil
	}
	p.Stock -= qty
	return true, nil
}

func (r *memProducts) IncrementStock(ctx context.Context, id uuid.UUID, qty int) error {
	defer r.s.lock()()
	p, ok := r.s.data.products[id]
	if !ok {
		return repository.ErrProductNotFound
	}
	p.Stock += qty
	return nil
}

func (r *memProducts) UpdateRating(ctx context.Context, id uuid.UUID, rating float64, reviewCount int) error {
	defer r.s.lock()()
	p, ok := r.s.data.products[id]
	if !ok {
		return repository.ErrProductNotFound
	}
	p.Rating = rating
	p.ReviewCount = reviewCount
	return nil
}

type memCategories struct{ s *memStore }

func (r *memCategories) Create(ctx context.Context, category *domain.Category) error {
	defer r.s.lock()()
	for _, existing := range r.s.data.cats {
		if existing.Name == category.Name {
			return repository.ErrCategoryAlreadyExists
		}
	}
	clone := *category
	r.s.data.cats[category.ID] = &clone
	return nil
}

func (r *memCategories) Update(ctx context.Context, category *domain.Category) error {
	defer r.s.lock()()
	if _, ok := r.s.data.cats[category.ID]; !ok {
		return repository.ErrCategoryNotFound
	}
	clone := *category
	r.s.data.cats[category.ID] = &clone
	return nil
}

func (r *memCategories) Delete(ctx context.Context, id uuid.UUID) error {
	defer r.s.lock()()
	if _, ok := r.s.data.cats[id]; !ok {
		return repository.ErrCategoryNotFound
	}
	delete(r.s.data.cats, id)
	return nil
}

func (r *memCategories) List(ctx context.Context) ([]*domain.Category, error) {
	defer r.s.lock()()
	var out []*domain.Category
	for _, c := range r.s.data.cats {
		clone := *c
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *memCategories) FindByID(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	defer r.s.lock()()
	c, ok := r.s.data.cats[id]
	if !ok {
		return nil, repository.ErrCategoryNotFound
	}
	clone := *c
	return &clone, nil
}

type memCarts struct{ s *memStore }

func (r *memCarts) Create(ctx context.Context, cart *domain.Cart) error {
	defer r.s.lock()()
	r.s.data.carts[cart.ID] = cloneCart(cart)
	return nil
}

func (r *memCarts) FindByUserID(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	defer r.s.lock()()
	for _, c := range r.s.data.carts {
		if c.UserID == userID {
			return cloneCart(c), nil
		}
	}
	return nil, repository.ErrCartNotFound
}

func (r *memCarts) UpsertItem(ctx context.Context, item *domain.CartItem) error {
	defer r.s.lock()()
	cart, ok := r.s.data.carts[item.CartID]
	if !ok {
		return repository.ErrCartNotFound
	}
	clone := *item
	for i, existing := range cart.Items {
		if existing.ProductID == item.ProductID {
			cart.Items[i] = &clone
			return nil
		}
	}
	cart.Items = append(cart.Items, &clone)
	return nil
}

func (r *memCarts) RemoveItem(ctx context.Context, cartID, productID uuid.UUID) error {
	defer r.s.lock()()
	cart, ok := r.s.data.carts[cartID]
	if !ok {
		return repository.ErrCartNotFound
	}
	for i, item := range cart.Items {
		if item.ProductID == productID {
			cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
			return nil
		}
	}
	return repository.ErrCartItemNotFound
}

func (r *memCarts) Clear(ctx context.Context, cartID uuid.UUID) error {
	defer r.s.lock()()
	cart, ok := r.s.data.carts[cartID]
	if !ok {
		return repository.ErrCartNotFound
	}
	cart.Items = nil
	return nil
}

func (r *memCarts) SetTotal(ctx context.Context, cartID uuid.UUID, total decimal.Decimal) error {
	defer r.s.lock()()
	cart, ok := r.s.data.carts[cartID]
	if !ok {
		return repository.ErrCartNotFound
	}
	cart.TotalPrice = total
	return nil
}

type memOrders struct{ s *memStore }

func (r *memOrders) Create(ctx context.Context, order *domain.Order) error {
	defer r.s.lock()()
	clone := cloneOrder(order)
	clone.Items = nil
	r.s.data.orders[order.ID] = clone
	return nil
}

func (r *memOrders) CreateItems(ctx context.Context, items []*domain.OrderItem) error {
	defer r.s.lock()()
	for _, item := range items {
		order, ok := r.s.data.orders[item.OrderID]
		if !ok {
			return repository.ErrOrderNotFound
		}
		clone := *item
		order.Items = append(order.Items, &clone)
	}
	return nil
}

func (r *memOrders) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	defer r.s.lock()()
	o, ok := r.s.data.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	return cloneOrder(o), nil
}

func (r *memOrders) ListByUser(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]*domain.Order, int, error) {
	defer r.s.lock()()
	var out []*domain.Order
	for _, o := range r.s.data.orders {
		if o.UserID == userID {
			out = append(out, cloneOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return paginate(out, page, pageSize)
}

func (r *memOrders) List(ctx context.Context, status *domain.OrderStatus, page, pageSize int) ([]*domain.Order, int, error) {
	defer r.s.lock()()
	var out []*domain.Order
	for _, o := range r.s.data.orders {
		if status != nil && o.Status != *status {
			continue
		}
		out = append(out, cloneOrder(o))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return paginate(out, page, pageSize)
}

func (r *memOrders) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.OrderStatus) (bool, error) {
	defer r.s.lock()()
	o, ok := r.s.data.orders[id]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	return true, nil
}

func (r *memOrders) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status domain.PaymentStatus) error {
	defer r.s.lock()()
	o, ok := r.s.data.orders[id]
	if !ok {
		return repository.ErrOrderNotFound
	}
	o.PaymentStatus = status
	return nil
}

func (r *memOrders) Summary(ctx context.Context) (*domain.OrderSummary, error) {
	defer r.s.lock()()
	summary := &domain.OrderSummary{
		TotalRevenue: decimal.Zero,
		ByStatus:     map[domain.OrderStatus]int{},
	}
	for _, o := range r.s.data.orders {
		summary.TotalOrders++
		summary.ByStatus[o.Status]++
		if o.Status != domain.OrderStatusCancelled {
			summary.TotalRevenue = summary.TotalRevenue.Add(o.TotalAmount)
		}
	}
	return summary, nil
}

type memReviews struct{ s *memStore }

func (r *memReviews) Create(ctx context.Context, review *domain.Review) error {
	defer r.s.lock()()
	for _, existing := range r.s.data.reviews {
		if existing.ProductID == review.ProductID && existing.UserID == review.UserID {
			return repository.ErrReviewAlreadyExists
		}
	}
	clone := *review
	r.s.data.reviews[review.ID] = &clone
	return nil
}

func (r *memReviews) FindByID(ctx context.Context, id uuid.UUID) (*domain.Review, error) {
	defer r.s.lock()()
	rev, ok := r.s.data.reviews[id]
	if !ok {
		return nil, repository.ErrReviewNotFound
	}
	clone := *rev
	return &clone, nil
}

func (r *memReviews) FindByUserAndProduct(ctx context.Context, userID, productID uuid.UUID) (*domain.Review, error) {
	defer r.s.lock()()
	for _, rev := range r.s.data.reviews {
		if rev.UserID == userID && rev.ProductID == productID {
			clone := *rev
			return &clone, nil
		}
	}
	return nil, repository.ErrReviewNotFound
}

func (r *memReviews) Delete(ctx context.Context, id uuid.UUID) error {
	defer r.s.lock()()
	if _, ok := r.s.data.reviews[id]; !ok {
		return repository.ErrReviewNotFound
	}
	delete(r.s.data.reviews, id)
	return nil
}

func (r *memReviews) SetApproved(ctx context.Context, id uuid.UUID, approved bool) error {
	defer r.s.lock()()
	rev, ok := r.s.data.reviews[id]
	if !ok {
		return repository.ErrReviewNotFound
	}
	rev.Approved = approved
	return nil
}

func (r *memReviews) ListApprovedByProduct(ctx context.Context, productID uuid.UUID, page, pageSize int) ([]*domain.Review, int, error) {
	defer r.s.lock()()
	var out []*domain.Review
	for _, rev := range r.s.data.reviews {
		if rev.ProductID == productID && rev.Approved {
			clone := *rev
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return paginate(out, page, pageSize)
}

func (r *memReviews) AggregateApproved(ctx context.Context, productID uuid.UUID) (float64, int, error) {
	defer r.s.lock()()
	sum, count := 0, 0
	for _, rev := range r.s.data.reviews {
		if rev.ProductID == productID && rev.Approved {
			sum += rev.Rating
			count++
		}
	}
	if count == 0 {
		return 0, 0, nil
	}
	return float64(sum) / float64(count), count, nil
}

func paginate[T any](items []T, page, pageSize int) ([]T, int, error) {
	total := len(items)
	start := (page - 1) * pageSize
	if start >= total {
		return []T{}, total, nil
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	return items[start:end], total, nil
}
