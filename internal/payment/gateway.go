// Package payment defines the payment gateway contract used by checkout.
package payment

import (
	"context"
	"errors"
)

var (
	ErrIntentNotFound = errors.New("payment intent not found")
	// ErrIdempotencyMismatch is returned when an idempotency key is reused
	// with different parameters.
	ErrIdempotencyMismatch = errors.New("idempotency key reused with different parameters")
)

type Status string

const (
	StatusRequiresConfirmation Status = "requires_confirmation"
	StatusSucceeded            Status = "succeeded"
	StatusDeclined             Status = "declined"
)

// IntentRequest asks the gateway for a payment intent. Gateways must return
// the same intent for the same IdempotencyKey.
type IntentRequest struct {
	IdempotencyKey string
	AmountMinor    int64
	Currency       string
	Metadata       map[string]string
}

// Intent is the gateway's view of a payment.
type Intent struct {
	Reference     string
	ClientSecret  string
	AmountMinor   int64
	Currency      string
	Status        Status
	DeclineReason string
}

type Gateway interface {
	CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error)
	RetrieveIntent(ctx context.Context, reference string) (*Intent, error)
}
