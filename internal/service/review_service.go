package service

import (
	"context"
	"errors"
	"time"

	"okean/internal/domain"
	"okean/internal/repository"

	"github.com/google/uuid"
)

// ReviewService manages reviews and keeps the product rating aggregate in
// step with the set of approved reviews.
type ReviewService interface {
	Submit(ctx context.Context, userID, productID uuid.UUID, rating int, comment string) (*domain.Review, error)
	Approve(ctx context.Context, id uuid.UUID) (*domain.Review, error)
	Delete(ctx context.Context, id uuid.UUID, actor Actor) error
	ListForProduct(ctx context.Context, productID uuid.UUID, page, pageSize int) ([]*domain.Review, int, error)
}

type reviewService struct {
	store repository.Storer
}

// NewReviewService creates a new instance of ReviewService
func NewReviewService(store repository.Storer) ReviewService {
	return &reviewService{store: store}
}

// Submit creates an unapproved review. One review per (user, product) pair.
func (s *reviewService) Submit(ctx context.Context, userID, productID uuid.UUID, rating int, comment string) (*domain.Review, error) {
	if rating < 1 || rating > 5 {
		return nil, errors.New("rating must be between 1 and 5")
	}

	if _, err := s.store.Products().FindByID(ctx, productID); err != nil {
		return nil, err
	}

	existing, err := s.store.Reviews().FindByUserAndProduct(ctx, userID, productID)
	if err != nil && !errors.Is(err, repository.ErrReviewNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, ErrDuplicateReview
	}

	now := time.Now()
	review := &domain.Review{
		ID:        uuid.New(),
		ProductID: productID,
		UserID:    userID,
		Rating:    rating,
		Comment:   comment,
		Approved:  false,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.store.Reviews().Create(ctx, review); err != nil {
		// The pre-check races with concurrent submits; the unique
		// constraint is the final arbiter.
		if errors.Is(err, repository.ErrReviewAlreadyExists) {
			return nil, ErrDuplicateReview
		}
		return nil, err
	}

	return review, nil
}

// Approve marks a review approved and recomputes the product's rating as the
// mean of its currently approved ratings, in the same transaction.
func (s *reviewService) Approve(ctx context.Context, id uuid.UUID) (*domain.Review, error) {
	var review *domain.Review
	err := s.store.WithTx(ctx, func(tx repository.Storer) error {
		var err error
		review, err = tx.Reviews().FindByID(ctx, id)
		if err != nil {
			return err
		}

		if !review.Approved {
			if err := tx.Reviews().SetApproved(ctx, id, true); err != nil {
				return err
			}
			review.Approved = true
		}

		return s.recomputeRating(ctx, tx, review.ProductID)
	})
	if err != nil {
		return nil, err
	}

	return review, nil
}

// Delete removes a review; allowed for its author or an admin. If the review
// was approved the product aggregate is recomputed.
func (s *reviewService) Delete(ctx context.Context, id uuid.UUID, actor Actor) error {
	return s.store.WithTx(ctx, func(tx repository.Storer) error {
		review, err := tx.Reviews().FindByID(ctx, id)
		if err != nil {
			return err
		}

		if review.UserID != actor.UserID && !actor.IsAdmin() {
			return ErrForbidden
		}

		if err := tx.Reviews().Delete(ctx, id); err != nil {
			return err
		}

		if review.Approved {
			return s.recomputeRating(ctx, tx, review.ProductID)
		}
		return nil
	})
}

// ListForProduct returns approved reviews for a product.
func (s *reviewService) ListForProduct(ctx context.Context, productID uuid.UUID, page, pageSize int) ([]*domain.Review, int, error) {
	return s.store.Reviews().ListApprovedByProduct(ctx, productID, page, pageSize)
}

func (s *reviewService) recomputeRating(ctx context.Context, tx repository.Storer, productID uuid.UUID) error {
	rating, count, err := tx.Reviews().AggregateApproved(ctx, productID)
	if err != nil {
		return err
	}
	return tx.Products().UpdateRating(ctx, productID, rating, count)
}
