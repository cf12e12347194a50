package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type SaleType string

const (
	SaleOnline  SaleType = "ONLINE"
	SaleOffline SaleType = "OFFLINE"
)

type SaleStatus string

const (
	SalePaid      SaleStatus = "paid"
	SalePacked    SaleStatus = "packed_and_ready_for_pickup"
	SaleCompleted SaleStatus = "completed"
)

// saleTransitions maps each target status to the only status it may be
// entered from.
var saleTransitions = map[SaleStatus]SaleStatus{
	SalePacked:    SalePaid,
	SaleCompleted: SalePacked,
}

// RequiredPredecessor returns the status a sale must be in before moving to target.
func RequiredPredecessor(target SaleStatus) (SaleStatus, bool) {
	from, ok := saleTransitions[target]
	return from, ok
}

// Sale is a committed sale with its point-in-time item snapshot
type Sale struct {
	ID               uuid.UUID       `json:"id"`
	Number           int64           `json:"number"`
	Type             SaleType        `json:"sale_type"`
	Status           SaleStatus      `json:"status"`
	CustomerID       *uuid.UUID      `json:"customer_id,omitempty"`
	CustomerName     string          `json:"customer_name,omitempty"`
	CustomerPhone    string          `json:"customer_phone,omitempty"`
	PaymentMethod    string          `json:"payment_method"`
	PaymentReference *string         `json:"payment_reference,omitempty"`
	Items            []SaleItem      `json:"items"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	CreatedBy        *uuid.UUID      `json:"created_by,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	PackedAt         *time.Time      `json:"packed_at,omitempty"`
	PackedBy         *uuid.UUID      `json:"packed_by,omitempty"`
	CompletedAt      *time.Time      `json:"completed_at,omitempty"`
	CompletedBy      *uuid.UUID      `json:"completed_by,omitempty"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// SaleItem is a snapshot of a product line at the time of sale.
type SaleItem struct {
	ID          uuid.UUID       `json:"id"`
	SaleID      uuid.UUID       `json:"sale_id"`
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// DisplayNumber renders the customer-facing order number.
func (s *Sale) DisplayNumber() string {
	return fmt.Sprintf("ORD-%06d", s.Number)
}

// IsPending reports whether the sale still needs biller work.
func (s *Sale) IsPending() bool {
	return s.Type == SaleOnline && s.Status != SaleCompleted
}

// Transition advances an ONLINE sale one step. The sale is left unchanged if
// the transition is not allowed.
func (s *Sale) Transition(target SaleStatus, actor uuid.UUID, at time.Time) error {
	required, ok := RequiredPredecessor(target)
	if !ok || s.Type != SaleOnline || s.Status != required {
		return &StateConflictError{
			Entity:   "sale",
			ID:       s.ID.String(),
			Current:  string(s.Status),
			Required: string(required),
		}
	}

	s.Status = target
	s.UpdatedAt = at
	switch target {
	case SalePacked:
		s.PackedAt = &at
		s.PackedBy = &actor
	case SaleCompleted:
		s.CompletedAt = &at
		s.CompletedBy = &actor
	}
	return nil
}

// NewSaleItems snapshots validated lines into sale items, rounding to
// currency precision for persistence.
func NewSaleItems(saleID uuid.UUID, lines []ValidatedLine) []SaleItem {
	items := make([]SaleItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, SaleItem{
			ID:          uuid.New(),
			SaleID:      saleID,
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			UnitPrice:   RoundMoney(line.UnitPrice),
			Quantity:    line.Quantity,
			Subtotal:    RoundMoney(line.Subtotal),
		})
	}
	return items
}

// StockDemand sums requested quantities per product.
func (s *Sale) StockDemand() map[uuid.UUID]int {
	demand := make(map[uuid.UUID]int, len(s.Items))
	for _, item := range s.Items {
		demand[item.ProductID] += item.Quantity
	}
	return demand
}
