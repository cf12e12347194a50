package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ReconciliationStatus string

const (
	ReconciliationOpen     ReconciliationStatus = "open"
	ReconciliationResolved ReconciliationStatus = "resolved"
)

// Reconciliation records a captured payment whose sale could not be committed.
type Reconciliation struct {
	ID               uuid.UUID            `json:"id"`
	GatewayReference string               `json:"gateway_reference"`
	IntentID         uuid.UUID            `json:"intent_id"`
	UserID           uuid.UUID            `json:"user_id"`
	Amount           decimal.Decimal      `json:"amount"`
	Currency         string               `json:"currency"`
	Reason           string               `json:"reason"`
	Items            []StockShortage      `json:"items"`
	Status           ReconciliationStatus `json:"status"`
	CreatedAt        time.Time            `json:"created_at"`
}
