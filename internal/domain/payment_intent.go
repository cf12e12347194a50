package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type IntentStatus string

const (
	IntentRequiresConfirmation IntentStatus = "requires_confirmation"
	IntentSucceeded            IntentStatus = "succeeded"
	// IntentReconciliationRequired is terminal: the payment was captured but
	// its sale could not be committed, and a manager must resolve it.
	IntentReconciliationRequired IntentStatus = "reconciliation_required"
)

// PaymentIntent is the locally recorded half of a gateway payment intent. One
// row exists per idempotency key.
type PaymentIntent struct {
	ID               uuid.UUID       `json:"id"`
	UserID           uuid.UUID       `json:"user_id"`
	IdempotencyKey   string          `json:"idempotency_key"`
	GatewayReference string          `json:"gateway_reference"`
	ClientSecret     string          `json:"client_secret"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	Currency         string          `json:"currency"`
	Status           IntentStatus    `json:"status"`
	Lines            []ValidatedLine `json:"lines"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}
