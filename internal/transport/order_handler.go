package transport

import (
	"net/http"

	"okean/internal/domain"
	"okean/internal/middleware"
	"okean/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderLineRequest is one requested line of a checkout. Quantity and product
// id are all a client may state; prices come from the catalog.
type OrderLineRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

// CreateOrderRequest represents the checkout payload. With no lines the
// order is built from the user's cart.
type CreateOrderRequest struct {
	ShippingAddress string             `json:"shipping_address" validate:"required,min=5,max=500"`
	PhoneNumber     string             `json:"phone_number" validate:"required,min=7,max=20"`
	Note            string             `json:"note" validate:"max=1000"`
	PaymentMethod   string             `json:"payment_method" validate:"required"`
	Lines           []OrderLineRequest `json:"lines" validate:"omitempty,dive"`
}

// UpdateOrderStatusRequest represents an admin status transition
type UpdateOrderStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// PaymentRequest represents a payment settlement callback
type PaymentRequest struct {
	Status string `json:"status" validate:"required"`
}

// OrderListResponse is the paginated order list envelope
type OrderListResponse struct {
	Orders     interface{} `json:"orders"`
	Pagination Pagination  `json:"pagination"`
}

// OrderHandler handles HTTP requests for orders
type OrderHandler struct {
	orderService service.OrderService
	logger       *zap.Logger
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orderService service.OrderService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		logger:       logger,
	}
}

// RegisterRoutes registers all order routes
func (h *OrderHandler) RegisterRoutes(r chi.Router, authMiddleware, adminMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/orders", func(r chi.Router) {
		r.Use(authMiddleware)

		r.Post("/", h.Create)
		r.Get("/", h.ListMine)
		r.Get("/{id}", h.Get)
		r.Post("/{id}/cancel", h.Cancel)
		r.Post("/{id}/payment", h.Payment)

		// Admin routes
		r.Group(func(r chi.Router) {
			r.Use(adminMiddleware)
			r.Get("/all", h.ListAll)
			r.Get("/summary", h.Summary)
			r.Put("/{id}/status", h.UpdateStatus)
		})
	})
}

// Create handles checkout
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := requestActor(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CreateOrderRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Order validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	method := domain.PaymentMethod(req.PaymentMethod)
	if !method.Valid() {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid payment method")
		return
	}

	lines := make([]service.OrderLineInput, 0, len(req.Lines))
	for _, line := range req.Lines {
		productID, err := uuid.Parse(line.ProductID)
		if err != nil {
			middleware.RespondWithError(w, http.StatusBadRequest, "invalid product id")
			return
		}
		lines = append(lines, service.OrderLineInput{ProductID: productID, Quantity: line.Quantity})
	}

	order, err := h.orderService.Create(r.Context(), actor.UserID, service.CreateOrderInput{
		ShippingAddress: req.ShippingAddress,
		PhoneNumber:     req.PhoneNumber,
		Note:            req.Note,
		PaymentMethod:   method,
		Lines:           lines,
	})
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("Order created",
		zap.String("order_id", order.ID.String()),
		zap.String("user_id", actor.UserID.String()))
	middleware.RespondWithJSON(w, http.StatusCreated, order)
}

// Get handles fetching a single order. Customers only see their own.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := requestActor(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusNotFound, "order not found")
		return
	}

	order, err := h.orderService.GetByID(r.Context(), id, actor)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, order)
}

// ListMine handles listing the current user's orders
func (h *OrderHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	actor, ok := requestActor(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	page := queryInt(r, "page", 1)
	pageSize := queryInt(r, "page_size", 20)

	orders, total, err := h.orderService.ListForUser(r.Context(), actor.UserID, page, pageSize)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, OrderListResponse{
		Orders:     orders,
		Pagination: newPagination(total, page, pageSize),
	})
}

// ListAll handles the admin order listing with optional status filter
func (h *OrderHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	pageSize := queryInt(r, "page_size", 20)

	var status *domain.OrderStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		s := domain.OrderStatus(raw)
		if !s.Valid() {
			middleware.RespondWithError(w, http.StatusBadRequest, "invalid order status")
			return
		}
		status = &s
	}

	orders, total, err := h.orderService.ListAll(r.Context(), status, page, pageSize)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, OrderListResponse{
		Orders:     orders,
		Pagination: newPagination(total, page, pageSize),
	})
}

// UpdateStatus handles an admin moving an order along its lifecycle.
// Cancellation has its own endpoint and is rejected here.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusNotFound, "order not found")
		return
	}

	var req UpdateOrderStatusRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	next := domain.OrderStatus(req.Status)
	if !next.Valid() {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid order status")
		return
	}

	order, err := h.orderService.UpdateStatus(r.Context(), id, next)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("Order status updated",
		zap.String("order_id", order.ID.String()),
		zap.String("status", string(order.Status)))
	middleware.RespondWithJSON(w, http.StatusOK, order)
}

// Cancel handles a customer or admin cancelling a pending order
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	actor, ok := requestActor(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusNotFound, "order not found")
		return
	}

	order, err := h.orderService.Cancel(r.Context(), id, actor)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("Order cancelled", zap.String("order_id", order.ID.String()))
	middleware.RespondWithJSON(w, http.StatusOK, order)
}

// Payment handles a payment settlement result for an order
func (h *OrderHandler) Payment(w http.ResponseWriter, r *http.Request) {
	actor, ok := requestActor(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusNotFound, "order not found")
		return
	}

	var req PaymentRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	status := domain.PaymentStatus(req.Status)
	if !status.Valid() {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid payment status")
		return
	}

	// Ownership check rides on GetByID before the payment state changes.
	if _, err := h.orderService.GetByID(r.Context(), id, actor); err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	order, err := h.orderService.MarkPayment(r.Context(), id, status)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, order)
}

// Summary handles the admin dashboard aggregate
func (h *OrderHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.orderService.Summary(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, summary)
}
