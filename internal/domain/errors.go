package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Error kinds. Concrete errors below match one of these with errors.Is.
var (
	ErrValidation            = errors.New("validation error")
	ErrNotFound              = errors.New("not found")
	ErrStockConflict         = errors.New("stock conflict")
	ErrStateConflict         = errors.New("state conflict")
	ErrPaymentDeclined       = errors.New("payment declined")
	ErrPaymentReconciliation = errors.New("payment reconciliation required")
)

// ValidationError reports bad input shape or range.
type ValidationError struct {
	Field   string
	Message string
	Details []string
}

func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NotFoundError reports a missing entity.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// StockShortage names one line that cannot be served from current stock.
type StockShortage struct {
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name,omitempty"`
	Requested   int       `json:"requested"`
	Available   int       `json:"available"`
}

// StockConflictError carries every offending line so the caller can fix the
// cart in one round trip.
type StockConflictError struct {
	Items []StockShortage
}

func (e *StockConflictError) Error() string {
	parts := make([]string, 0, len(e.Items))
	for _, item := range e.Items {
		name := item.ProductName
		if name == "" {
			name = item.ProductID.String()
		}
		parts = append(parts, fmt.Sprintf("%s (requested %d, available %d)", name, item.Requested, item.Available))
	}
	return "insufficient stock: " + strings.Join(parts, ", ")
}

func (e *StockConflictError) Is(target error) bool { return target == ErrStockConflict }

// StateConflictError reports an operation attempted from the wrong lifecycle state.
type StateConflictError struct {
	Entity   string
	ID       string
	Current  string
	Required string
}

func (e *StateConflictError) Error() string {
	return fmt.Sprintf("%s %s is %q, operation requires %q", e.Entity, e.ID, e.Current, e.Required)
}

func (e *StateConflictError) Is(target error) bool { return target == ErrStateConflict }

// PaymentDeclinedError carries the gateway's decline reason verbatim.
type PaymentDeclinedError struct {
	Reason string
}

func (e *PaymentDeclinedError) Error() string {
	return "payment declined: " + e.Reason
}

func (e *PaymentDeclinedError) Is(target error) bool { return target == ErrPaymentDeclined }

// PaymentReconciliationError means money moved at the gateway but the sale was
// not committed. It wraps the commit failure.
type PaymentReconciliationError struct {
	GatewayReference string
	ReconciliationID uuid.UUID
	Cause            error
}

func (e *PaymentReconciliationError) Error() string {
	return fmt.Sprintf("payment %s captured but sale not committed: %v", e.GatewayReference, e.Cause)
}

func (e *PaymentReconciliationError) Is(target error) bool {
	return target == ErrPaymentReconciliation
}

func (e *PaymentReconciliationError) Unwrap() error { return e.Cause }
