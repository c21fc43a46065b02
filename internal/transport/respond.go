package transport

import (
	"errors"
	"net/http"
	"strconv"

	"okean/internal/middleware"
	"okean/internal/repository"
	"okean/internal/service"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Pagination is the standard list envelope
type Pagination struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Pages int `json:"pages"`
}

func newPagination(total, page, pageSize int) Pagination {
	pages := total / pageSize
	if total%pageSize != 0 {
		pages++
	}
	return Pagination{Total: total, Page: page, Pages: pages}
}

// requestActor builds the acting identity from the authenticated request
// context.
func requestActor(r *http.Request) (service.Actor, bool) {
	idStr, ok := middleware.GetUserID(r.Context())
	if !ok {
		return service.Actor{}, false
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return service.Actor{}, false
	}
	role, _ := middleware.GetUserRole(r.Context())
	return service.Actor{UserID: id, Role: role}, true
}

// queryInt reads an integer query parameter with a default and floor of 1
func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 1 {
		return def
	}
	return value
}

// respondServiceError maps service and repository error kinds onto HTTP
// status codes. Everything unrecognized is an internal error and gets
// logged; expected failures do not.
func respondServiceError(w http.ResponseWriter, logger *zap.Logger, err error) {
	switch {
	case errors.Is(err, repository.ErrProductNotFound),
		errors.Is(err, repository.ErrCategoryNotFound),
		errors.Is(err, repository.ErrCartNotFound),
		errors.Is(err, repository.ErrCartItemNotFound),
		errors.Is(err, repository.ErrOrderNotFound),
		errors.Is(err, repository.ErrReviewNotFound),
		errors.Is(err, repository.ErrUserNotFound):
		middleware.RespondWithError(w, http.StatusNotFound, err.Error())

	case service.IsInsufficientStock(err),
		errors.Is(err, service.ErrEmptyOrder),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrDuplicateReview),
		errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrProductInactive),
		errors.Is(err, service.ErrCategoryInUse),
		errors.Is(err, repository.ErrCategoryAlreadyExists),
		errors.Is(err, repository.ErrReviewAlreadyExists):
		middleware.RespondWithError(w, http.StatusBadRequest, err.Error())

	case errors.Is(err, repository.ErrUserAlreadyExists):
		middleware.RespondWithError(w, http.StatusConflict, err.Error())

	case errors.Is(err, service.ErrForbidden):
		middleware.RespondWithError(w, http.StatusForbidden, err.Error())

	default:
		logger.Error("Unexpected error", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "internal server error")
	}
}
