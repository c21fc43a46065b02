package repository

import (
	"context"
	"database/sql"
	"fmt"

	"okean/internal/domain"

	"github.com/google/uuid"
)

// ReviewRepository defines the interface for review data access
type ReviewRepository interface {
	Create(ctx context.Context, review *domain.Review) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Review, error)
	FindByUserAndProduct(ctx context.Context, userID, productID uuid.UUID) (*domain.Review, error)
	Delete(ctx context.Context, id uuid.UUID) error
	SetApproved(ctx context.Context, id uuid.UUID, approved bool) error
	ListApprovedByProduct(ctx context.Context, productID uuid.UUID, page, pageSize int) ([]*domain.Review, int, error)

	// AggregateApproved returns the mean rating and count over a product's
	// approved reviews; rating is 0 when there are none.
	AggregateApproved(ctx context.Context, productID uuid.UUID) (float64, int, error)
}

type reviewRepository struct {
	db DBTX
}

// NewReviewRepository creates a new instance of ReviewRepository
func NewReviewRepository(db DBTX) ReviewRepository {
	return &reviewRepository{db: db}
}

const reviewColumns = `id, product_id, user_id, rating, comment, approved, created_at, updated_at`

func scanReview(row interface{ Scan(...interface{}) error }) (*domain.Review, error) {
	review := &domain.Review{}
	err := row.Scan(
		&review.ID,
		&review.ProductID,
		&review.UserID,
		&review.Rating,
		&review.Comment,
		&review.Approved,
		&review.CreatedAt,
		&review.UpdatedAt,
	)
	return review, err
}

// Create inserts a new review. The (product_id, user_id) unique constraint
// enforces one review per user per product.
func (r *reviewRepository) Create(ctx context.Context, review *domain.Review) error {
	query := `
		INSERT INTO reviews (id, product_id, user_id, rating, comment, approved, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		review.ID,
		review.ProductID,
		review.UserID,
		review.Rating,
		review.Comment,
		review.Approved,
		review.CreatedAt,
		review.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err, "reviews_product_id_user_id_key") {
			return ErrReviewAlreadyExists
		}
		return fmt.Errorf("failed to create review: %w", err)
	}

	return nil
}

// FindByID retrieves a review by ID
func (r *reviewRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Review, error) {
	query := fmt.Sprintf(`SELECT %s FROM reviews WHERE id = $1`, reviewColumns)

	review, err := scanReview(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrReviewNotFound
		}
		return nil, fmt.Errorf("failed to find review by ID: %w", err)
	}

	return review, nil
}

// FindByUserAndProduct retrieves the review a user left on a product
func (r *reviewRepository) FindByUserAndProduct(ctx context.Context, userID, productID uuid.UUID) (*domain.Review, error) {
	query := fmt.Sprintf(`SELECT %s FROM reviews WHERE user_id = $1 AND product_id = $2`, reviewColumns)

	review, err := scanReview(r.db.QueryRowContext(ctx, query, userID, productID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrReviewNotFound
		}
		return nil, fmt.Errorf("failed to find review: %w", err)
	}

	return review, nil
}

// Delete removes a review
func (r *reviewRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete review: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrReviewNotFound
	}

	return nil
}

// SetApproved updates a review's approval flag
func (r *reviewRepository) SetApproved(ctx context.Context, id uuid.UUID, approved bool) error {
	query := `
		UPDATE reviews
		SET approved = $2, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, id, approved)
	if err != nil {
		return fmt.Errorf("failed to set review approval: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrReviewNotFound
	}

	return nil
}

// ListApprovedByProduct retrieves approved reviews for a product, newest first
func (r *reviewRepository) ListApprovedByProduct(ctx context.Context, productID uuid.UUID, page, pageSize int) ([]*domain.Review, int, error) {
	var total int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reviews WHERE product_id = $1 AND approved`, productID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count reviews: %w", err)
	}

	offset := (page - 1) * pageSize

	query := fmt.Sprintf(`
		SELECT %s
		FROM reviews
		WHERE product_id = $1 AND approved
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, reviewColumns)

	rows, err := r.db.QueryContext(ctx, query, productID, pageSize, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list reviews: %w", err)
	}
	defer rows.Close()

	reviews := []*domain.Review{}
	for rows.Next() {
		review, err := scanReview(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan review: %w", err)
		}
		reviews = append(reviews, review)
	}

	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating reviews: %w", err)
	}

	return reviews, total, nil
}

// AggregateApproved computes the mean rating and count over approved reviews
func (r *reviewRepository) AggregateApproved(ctx context.Context, productID uuid.UUID) (float64, int, error) {
	var rating float64
	var count int

	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(AVG(rating), 0), COUNT(*)
		FROM reviews
		WHERE product_id = $1 AND approved
	`, productID).Scan(&rating, &count)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to aggregate reviews: %w", err)
	}

	return rating, count, nil
}
