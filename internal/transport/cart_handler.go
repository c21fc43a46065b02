package transport

import (
	"net/http"

	"okean/internal/middleware"
	"okean/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CartItemRequest represents the add/update cart line payload
type CartItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity"`
}

// CartHandler handles HTTP requests for the shopping cart
type CartHandler struct {
	cartService service.CartService
	logger      *zap.Logger
}

// NewCartHandler creates a new CartHandler
func NewCartHandler(cartService service.CartService, logger *zap.Logger) *CartHandler {
	return &CartHandler{
		cartService: cartService,
		logger:      logger,
	}
}

// RegisterRoutes registers all cart routes. Everything requires auth.
func (h *CartHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/cart", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/", h.Get)
		r.Post("/items", h.AddItem)
		r.Put("/items", h.UpdateItem)
		r.Delete("/items/{productID}", h.RemoveItem)
		r.Delete("/", h.Clear)
	})
}

func (h *CartHandler) parseItem(w http.ResponseWriter, r *http.Request) (uuid.UUID, int, bool) {
	var req CartItemRequest

	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Cart item validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return uuid.Nil, 0, false
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return uuid.Nil, 0, false
	}

	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product id")
		return uuid.Nil, 0, false
	}

	return productID, req.Quantity, true
}

// Get handles fetching the current user's cart
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := requestActor(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	cart, err := h.cartService.Get(r.Context(), actor.UserID)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, cart)
}

// AddItem handles adding a product to the cart. Quantities for a product
// already in the cart are merged.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	actor, ok := requestActor(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	productID, quantity, ok := h.parseItem(w, r)
	if !ok {
		return
	}

	cart, err := h.cartService.AddItem(r.Context(), actor.UserID, productID, quantity)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, cart)
}

// UpdateItem handles setting a line's quantity. A quantity of zero or less
// removes the line.
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	actor, ok := requestActor(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	productID, quantity, ok := h.parseItem(w, r)
	if !ok {
		return
	}

	cart, err := h.cartService.UpdateItem(r.Context(), actor.UserID, productID, quantity)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, cart)
}

// RemoveItem handles removing a product from the cart
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	actor, ok := requestActor(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	productID, err := uuid.Parse(chi.URLParam(r, "productID"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusNotFound, "cart item not found")
		return
	}

	cart, err := h.cartService.RemoveItem(r.Context(), actor.UserID, productID)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, cart)
}

// Clear handles emptying the cart
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	actor, ok := requestActor(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	cart, err := h.cartService.Clear(r.Context(), actor.UserID)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, cart)
}
