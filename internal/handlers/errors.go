package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"rental-inventory/internal/dto"
	"rental-inventory/internal/repository"
	"rental-inventory/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// writeError maps ledger errors onto HTTP responses.
func writeError(c *gin.Context, log *zap.Logger, err error) {
	switch {
	case errors.Is(err, service.ErrProductNotFound),
		errors.Is(err, service.ErrOrderNotFound),
		errors.Is(err, service.ErrOrderItemNotFound),
		errors.Is(err, service.ErrCustomerNotFound):
		c.JSON(http.StatusNotFound, dto.NewNotFoundError(err.Error()))

	case errors.Is(err, service.ErrInsufficientStock):
		c.JSON(http.StatusUnprocessableEntity, dto.NewUnprocessableError("insufficient_stock", err.Error(), ""))
	case errors.Is(err, service.ErrUnavailable):
		c.JSON(http.StatusUnprocessableEntity, dto.NewUnprocessableError("unavailable", service.ErrUnavailable.Error(), err.Error()))
	case errors.Is(err, service.ErrExceedsOrderedQuantity):
		c.JSON(http.StatusUnprocessableEntity, dto.NewUnprocessableError("exceeds_ordered_quantity", err.Error(), ""))

	case errors.Is(err, service.ErrCodeAlreadyExists),
		errors.Is(err, service.ErrOrderClosed),
		errors.Is(err, service.ErrOrderNotCancellable),
		errors.Is(err, service.ErrOrderNotDeletable),
		errors.Is(err, service.ErrProductInUse):
		c.JSON(http.StatusConflict, dto.NewConflictError(err.Error()))
	case errors.Is(err, repository.ErrConflict):
		c.JSON(http.StatusConflict, dto.NewConflictError("record was changed concurrently, retry the request"))

	case errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrInvalidActionType),
		errors.Is(err, service.ErrInvalidDateRange),
		errors.Is(err, service.ErrInvalidName),
		errors.Is(err, service.ErrEmptyItems),
		errors.Is(err, service.ErrMixedLineSources):
		c.JSON(http.StatusBadRequest, dto.NewValidationError(err.Error(), nil))

	default:
		log.Error("ledger operation failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.NewInternalError(""))
	}
}

func badRequest(c *gin.Context, log *zap.Logger, msg string, err error) {
	log.Warn("invalid request", zap.String("path", c.FullPath()), zap.Error(err))
	c.JSON(http.StatusBadRequest, dto.NewValidationError(msg, []dto.FieldError{}))
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid "+name, []dto.FieldError{{Field: name, Message: "must be a positive integer"}}))
		return 0, false
	}
	return id, true
}

func queryInt64(c *gin.Context, name string) (int64, bool) {
	v := c.Query(name)
	if v == "" {
		return 0, true
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid "+name, []dto.FieldError{{Field: name, Message: "must be a non-negative integer"}}))
		return 0, false
	}
	return n, true
}

// queryDate parses a YYYY-MM-DD query parameter, using def when absent.
func queryDate(c *gin.Context, name string, def time.Time) (time.Time, bool) {
	v := c.Query(name)
	if v == "" {
		return def, true
	}
	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid "+name, []dto.FieldError{{Field: name, Message: "expected YYYY-MM-DD", Tag: "date"}}))
		return time.Time{}, false
	}
	return t, true
}
