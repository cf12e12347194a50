package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PurchaseOrderStatus string

const (
	PurchaseOrderPlaced   PurchaseOrderStatus = "placed"
	PurchaseOrderReceived PurchaseOrderStatus = "received"
)

// PurchaseOrder is an order placed with a supplier. Once placed it only ever
// changes through Receive.
type PurchaseOrder struct {
	ID          uuid.UUID           `json:"id"`
	OrderNumber string              `json:"order_number"`
	SupplierID  uuid.UUID           `json:"supplier_id"`
	Items       []PurchaseOrderItem `json:"items"`
	TotalAmount decimal.Decimal     `json:"total_amount"`
	Status      PurchaseOrderStatus `json:"status"`
	Notes       string              `json:"notes,omitempty"`
	PlacedBy    uuid.UUID           `json:"placed_by"`
	CreatedAt   time.Time           `json:"created_at"`
	ReceivedAt  *time.Time          `json:"received_at,omitempty"`
	ReceivedBy  *uuid.UUID          `json:"received_by,omitempty"`
}

type PurchaseOrderItem struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
	TotalCost   decimal.Decimal `json:"total_cost"`
}

// NewPurchaseOrderItem prices a line at the given unit cost.
func NewPurchaseOrderItem(product *Product, quantity int, unitCost decimal.Decimal) PurchaseOrderItem {
	return PurchaseOrderItem{
		ID:          uuid.New(),
		ProductID:   product.ID,
		ProductName: product.Name,
		Quantity:    quantity,
		UnitCost:    RoundMoney(unitCost),
		TotalCost:   RoundMoney(unitCost.Mul(decimal.NewFromInt(int64(quantity)))),
	}
}

// NewOrderNumber generates a PO-YYYYMMDD-XXXXXXXX order number.
func NewOrderNumber(at time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("PO-%s-%s", at.UTC().Format("20060102"), suffix)
}

// SumItemCosts totals the item costs of an order.
func SumItemCosts(items []PurchaseOrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.TotalCost)
	}
	return total
}

// Receive moves a placed order to received. Calling it on an order in any
// other state fails without side effects.
func (o *PurchaseOrder) Receive(actor uuid.UUID, at time.Time) error {
	if o.Status != PurchaseOrderPlaced {
		return &StateConflictError{
			Entity:   "purchase_order",
			ID:       o.ID.String(),
			Current:  string(o.Status),
			Required: string(PurchaseOrderPlaced),
		}
	}
	o.Status = PurchaseOrderReceived
	o.ReceivedAt = &at
	o.ReceivedBy = &actor
	return nil
}
