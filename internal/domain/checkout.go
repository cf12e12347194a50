package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CheckoutItem is a product/quantity pair submitted for validation or payment.
// It carries no price: prices are always re-read from the catalog.
type CheckoutItem struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity"`
}

// ValidatedLine is a line re-priced and re-checked against authoritative
// stock. Only the checkout validator constructs these.
type ValidatedLine struct {
	ProductID       uuid.UUID       `json:"product_id"`
	ProductName     string          `json:"product_name"`
	Quantity        int             `json:"quantity"`
	BasePrice       decimal.Decimal `json:"base_price"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	Subtotal        decimal.Decimal `json:"subtotal"`
}

// ValidationResult is the outcome of re-validating a cart.
type ValidationResult struct {
	ValidItems []ValidatedLine `json:"validItems"`
	Errors     []string        `json:"errors"`
	Shortages  []StockShortage `json:"-"`
	Total      decimal.Decimal `json:"total"`
}

func (r *ValidationResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// SumSubtotals totals lines the way they are charged and persisted: each
// subtotal is rounded to currency precision, then the rounded values are
// added. A sale total therefore always equals the sum of its item subtotals.
func SumSubtotals(lines []ValidatedLine) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(RoundMoney(line.Subtotal))
	}
	return total
}

// SameItems reports whether items request exactly the products and quantities
// of lines, ignoring order.
func SameItems(items []CheckoutItem, lines []ValidatedLine) bool {
	if len(items) != len(lines) {
		return false
	}
	want := make(map[uuid.UUID]int, len(lines))
	for _, line := range lines {
		want[line.ProductID] += line.Quantity
	}
	for _, item := range items {
		qty, ok := want[item.ProductID]
		if !ok || qty != item.Quantity {
			return false
		}
		delete(want, item.ProductID)
	}
	return len(want) == 0
}
