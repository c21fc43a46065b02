package transport

import (
	"net/http"

	"okean/internal/middleware"
	"okean/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReviewRequest represents the submit review payload
type ReviewRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Rating    int    `json:"rating" validate:"required,min=1,max=5"`
	Comment   string `json:"comment" validate:"max=2000"`
}

// ReviewListResponse is the paginated review list envelope
type ReviewListResponse struct {
	Reviews    interface{} `json:"reviews"`
	Pagination Pagination  `json:"pagination"`
}

// ReviewHandler handles HTTP requests for product reviews
type ReviewHandler struct {
	reviewService service.ReviewService
	logger        *zap.Logger
}

// NewReviewHandler creates a new ReviewHandler
func NewReviewHandler(reviewService service.ReviewService, logger *zap.Logger) *ReviewHandler {
	return &ReviewHandler{
		reviewService: reviewService,
		logger:        logger,
	}
}

// RegisterRoutes registers all review routes
func (h *ReviewHandler) RegisterRoutes(r chi.Router, authMiddleware, adminMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/reviews", func(r chi.Router) {
		// Public routes
		r.Get("/product/{productID}", h.ListForProduct)

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			r.Post("/", h.Submit)
			r.Delete("/{id}", h.Delete)
		})

		// Admin routes
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			r.Use(adminMiddleware)
			r.Post("/{id}/approve", h.Approve)
		})
	})
}

// Submit handles creating a review. Reviews start unapproved.
func (h *ReviewHandler) Submit(w http.ResponseWriter, r *http.Request) {
	actor, ok := requestActor(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req ReviewRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Review validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	review, err := h.reviewService.Submit(r.Context(), actor.UserID, productID, req.Rating, req.Comment)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("Review submitted",
		zap.String("review_id", review.ID.String()),
		zap.String("product_id", productID.String()))
	middleware.RespondWithJSON(w, http.StatusCreated, review)
}

// Approve handles an admin approving a review, which folds its rating into
// the product aggregate.
func (h *ReviewHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusNotFound, "review not found")
		return
	}

	review, err := h.reviewService.Approve(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("Review approved", zap.String("review_id", review.ID.String()))
	middleware.RespondWithJSON(w, http.StatusOK, review)
}

// Delete handles removing a review. Authors may delete their own; admins
// may delete any.
func (h *ReviewHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := requestActor(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusNotFound, "review not found")
		return
	}

	if err := h.reviewService.Delete(r.Context(), id, actor); err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "review deleted"})
}

// ListForProduct handles listing the approved reviews of a product
func (h *ReviewHandler) ListForProduct(w http.ResponseWriter, r *http.Request) {
	productID, err := uuid.Parse(chi.URLParam(r, "productID"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusNotFound, "product not found")
		return
	}

	page := queryInt(r, "page", 1)
	pageSize := queryInt(r, "page_size", 20)

	reviews, total, err := h.reviewService.ListForProduct(r.Context(), productID, page, pageSize)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, ReviewListResponse{
		Reviews:    reviews,
		Pagination: newPagination(total, page, pageSize),
	})
}
