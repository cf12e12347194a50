// Package notification informs downstream channels about placed purchase
// orders and confirmed sales. Callers treat every failure as non-fatal.
package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"retail-ops/internal/domain"
)

const (
	EventPurchaseOrderPlaced = "purchase_order.placed"
	EventSaleConfirmed       = "sale.confirmed"
)

type Notifier interface {
	PurchaseOrderPlaced(ctx context.Context, order *domain.PurchaseOrder, supplier *domain.Supplier) error
	SaleConfirmed(ctx context.Context, sale *domain.Sale) error
}

// Event is the envelope published for every notification.
type Event struct {
	ID         uuid.UUID `json:"id"`
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Data       any       `json:"data"`
}

type PurchaseOrderPlacedData struct {
	OrderID       uuid.UUID                  `json:"order_id"`
	OrderNumber   string                     `json:"order_number"`
	SupplierID    uuid.UUID                  `json:"supplier_id"`
	SupplierName  string                     `json:"supplier_name"`
	SupplierEmail string                     `json:"supplier_email"`
	CompanyName   string                     `json:"company_name"`
	Items         []domain.PurchaseOrderItem `json:"items"`
	TotalAmount   decimal.Decimal            `json:"total_amount"`
	Notes         string                     `json:"notes,omitempty"`
}

type SaleConfirmedData struct {
	SaleID      uuid.UUID       `json:"sale_id"`
	OrderNumber string          `json:"order_number"`
	SaleType    domain.SaleType `json:"sale_type"`
	CustomerID  *uuid.UUID      `json:"customer_id,omitempty"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Items       int             `json:"items"`
}

func newPurchaseOrderPlaced(order *domain.PurchaseOrder, supplier *domain.Supplier) Event {
	return Event{
		ID:         uuid.New(),
		Type:       EventPurchaseOrderPlaced,
		OccurredAt: time.Now().UTC(),
		Data: PurchaseOrderPlacedData{
			OrderID:       order.ID,
			OrderNumber:   order.OrderNumber,
			SupplierID:    supplier.ID,
			SupplierName:  supplier.FullName,
			SupplierEmail: supplier.Email,
			CompanyName:   supplier.CompanyName,
			Items:         order.Items,
			TotalAmount:   order.TotalAmount,
			Notes:         order.Notes,
		},
	}
}

func newSaleConfirmed(sale *domain.Sale) Event {
	return Event{
		ID:         uuid.New(),
		Type:       EventSaleConfirmed,
		OccurredAt: time.Now().UTC(),
		Data: SaleConfirmedData{
			SaleID:      sale.ID,
			OrderNumber: sale.DisplayNumber(),
			SaleType:    sale.Type,
			CustomerID:  sale.CustomerID,
			TotalAmount: sale.TotalAmount,
			Items:       len(sale.Items),
		},
	}
}

// LogNotifier writes notifications to the log. Used when no broker is configured.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) PurchaseOrderPlaced(ctx context.Context, order *domain.PurchaseOrder, supplier *domain.Supplier) error {
	n.logger.Info("Purchase order placed",
		zap.String("order_number", order.OrderNumber),
		zap.String("supplier_email", supplier.Email),
		zap.Int("items", len(order.Items)),
		zap.String("total_amount", order.TotalAmount.StringFixed(domain.CurrencyPlaces)),
	)
	return nil
}

func (n *LogNotifier) SaleConfirmed(ctx context.Context, sale *domain.Sale) error {
	n.logger.Info("Sale confirmed",
		zap.String("sale_id", sale.ID.String()),
		zap.String("order_number", sale.DisplayNumber()),
		zap.String("total_amount", sale.TotalAmount.StringFixed(domain.CurrencyPlaces)),
	)
	return nil
}
