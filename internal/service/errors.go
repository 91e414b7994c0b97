package service

import (
	"errors"
	"fmt"
)

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrOrderNotFound     = errors.New("order not found")
	ErrOrderItemNotFound = errors.New("order has no item for product")
	ErrCustomerNotFound  = errors.New("customer not found")

	ErrInsufficientStock      = errors.New("insufficient physical stock")
	ErrInvalidQuantity        = errors.New("quantity must be > 0")
	ErrExceedsOrderedQuantity = errors.New("quantity exceeds ordered quantity")
	ErrInvalidActionType      = errors.New("invalid action type")
	ErrInvalidDateRange       = errors.New("invalid date range")
	ErrInvalidName            = errors.New("name must not be empty")
	ErrUnavailable            = errors.New("not enough units available for the requested period")
	ErrEmptyItems             = errors.New("empty items")
	ErrMixedLineSources       = errors.New("product must come from one source per order")

	ErrOrderClosed         = errors.New("order is already completed or cancelled")
	ErrOrderNotCancellable = errors.New("only booked orders can be cancelled")
	ErrOrderNotDeletable   = errors.New("only cancelled orders can be deleted")
	ErrCodeAlreadyExists   = errors.New("product code already exists")
	ErrProductInUse        = errors.New("product is referenced by orders")

	// ErrPersistence wraps repository failures. The store is left untouched
	// when a mutation returns it.
	ErrPersistence = errors.New("persistence failure")
)

var domainErrors = []error{
	ErrProductNotFound, ErrOrderNotFound, ErrOrderItemNotFound, ErrCustomerNotFound,
	ErrInsufficientStock, ErrInvalidQuantity, ErrExceedsOrderedQuantity, ErrInvalidActionType,
	ErrInvalidDateRange, ErrInvalidName, ErrUnavailable, ErrEmptyItems, ErrMixedLineSources,
	ErrOrderClosed, ErrOrderNotCancellable, ErrOrderNotDeletable, ErrCodeAlreadyExists, ErrProductInUse,
	ErrPersistence,
}

// persistence wraps any error that is not already a ledger error.
func persistence(err error) error {
	if err == nil {
		return nil
	}
	for _, d := range domainErrors {
		if errors.Is(err, d) {
			return err
		}
	}
	return fmt.Errorf("%w: %w", ErrPersistence, err)
}
