package service

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Sentinel errors, matched with errors.Is.
var (
	ErrValidation             = errors.New("validation failed")
	ErrNotFound               = errors.New("not found")
	ErrCrossTenant            = errors.New("resource belongs to another business")
	ErrInsufficientStock      = errors.New("insufficient stock")
	ErrInsufficientPayment    = errors.New("insufficient payment")
	ErrInvalidTotal           = errors.New("invalid total")
	ErrIdentifierCollision    = errors.New("could not allocate a unique transaction identifier")
	ErrStockRaceLost          = errors.New("stock changed concurrently")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrPersistence            = errors.New("persistence failure")
)

type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Unwrap() error { return ErrValidation }

func validationf(format string, args ...interface{}) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// NotFoundError covers both missing rows and rows owned by another
// business. Callers see the same 404 for both.
type NotFoundError struct {
	Resource    string
	ID          string
	CrossTenant bool
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

func (e *NotFoundError) Is(target error) bool {
	return target == ErrCrossTenant && e.CrossTenant
}

type InsufficientStockError struct {
	ProductID   uuid.UUID
	ProductName string
	Available   int
	Requested   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %q: available %d, requested %d",
		e.ProductName, e.Available, e.Requested)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

type InsufficientPaymentError struct {
	Required decimal.Decimal
	Paid     decimal.Decimal
}

func (e *InsufficientPaymentError) Error() string {
	return fmt.Sprintf("insufficient payment: required %s, paid %s",
		e.Required.StringFixed(2), e.Paid.StringFixed(2))
}

func (e *InsufficientPaymentError) Unwrap() error { return ErrInsufficientPayment }

type InvalidTotalError struct {
	Reason string
}

func (e *InvalidTotalError) Error() string { return "invalid total: " + e.Reason }

func (e *InvalidTotalError) Unwrap() error { return ErrInvalidTotal }

// StockRaceLostError means the guarded decrement lost to a concurrent
// writer after validation passed. The whole cart may be retried.
type StockRaceLostError struct {
	ProductID   uuid.UUID
	ProductName string
}

func (e *StockRaceLostError) Error() string {
	return fmt.Sprintf("stock for %q changed during checkout, retry the sale", e.ProductName)
}

func (e *StockRaceLostError) Unwrap() error { return ErrStockRaceLost }

type InvalidStateTransitionError struct {
	From string
	To   string
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("cannot move transaction from %s to %s", e.From, e.To)
}

func (e *InvalidStateTransitionError) Unwrap() error { return ErrInvalidStateTransition }

// PersistenceError wraps a storage failure. Both ErrPersistence and the
// driver error stay reachable through errors.Is/As.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() []error { return []error{ErrPersistence, e.Err} }

func persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Op: op, Err: err}
}

// IsRetryable reports whether the client may resubmit the same request.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStockRaceLost) || errors.Is(err, ErrIdentifierCollision)
}

// IsClientError reports whether err was caused by the request itself.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrInsufficientPayment) ||
		errors.Is(err, ErrInvalidTotal) ||
		errors.Is(err, ErrInvalidStateTransition)
}
