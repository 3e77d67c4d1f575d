package service

import (
	"errors"
	"fmt"
)

// Errors in this package form the taxonomy the HTTP layer maps onto status
// codes: NotFoundError -> 404, ValidationError, InsufficientStockError and
// the empty-collection sentinels -> 400. Anything else propagates to the
// generic 500 handler.
var (
	ErrEmptyCart      = errors.New("cart is empty")
	ErrEmptySmartList = errors.New("smart list is empty")
)

// NotFoundError reports a missing product, cart, list or line.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

func notFound(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// ValidationError reports malformed caller input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// InsufficientStockError reports a request for more units than the catalog
// holds, with the remaining stock for context.
type InsufficientStockError struct {
	ProductName string
	Remaining   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("not enough stock available for %s, only %d left", e.ProductName, e.Remaining)
}
