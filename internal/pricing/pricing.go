// Package pricing computes effective unit prices from catalog discounts.
package pricing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"retail-ops/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// Precedence decides which discount wins when a product has both a festival
// and a flash sale discount active.
type Precedence string

const (
	// PrecedenceFestivalFirst applies the festival discount whenever it is
	// active and falls back to the flash sale discount otherwise.
	PrecedenceFestivalFirst Precedence = "festival_first"
	// PrecedenceHighest applies whichever active discount is larger.
	PrecedenceHighest Precedence = "highest"
)

func ParsePrecedence(s string) (Precedence, error) {
	switch p := Precedence(s); p {
	case PrecedenceFestivalFirst, PrecedenceHighest:
		return p, nil
	case "":
		return PrecedenceFestivalFirst, nil
	default:
		return "", fmt.Errorf("unknown discount precedence %q", s)
	}
}

// Policy resolves the discount applying to a product.
type Policy struct {
	Precedence Precedence
}

func DefaultPolicy() Policy {
	return Policy{Precedence: PrecedenceFestivalFirst}
}

// Quote is the authoritative price of one unit of a product at a given instant.
type Quote struct {
	BasePrice       decimal.Decimal
	DiscountPercent decimal.Decimal
	UnitPrice       decimal.Decimal
}

// ValidateDiscount rejects percentages outside [0, 100].
func ValidateDiscount(percent decimal.Decimal) error {
	if percent.IsNegative() || percent.GreaterThan(hundred) {
		return domain.NewValidationError("discount_percent", "must be between 0 and 100, got %s", percent.String())
	}
	return nil
}

// EffectivePrice returns base * (1 - percent/100) without rounding.
func EffectivePrice(base, percent decimal.Decimal) (decimal.Decimal, error) {
	if base.IsNegative() {
		return decimal.Zero, domain.NewValidationError("price", "must not be negative, got %s", base.String())
	}
	if err := ValidateDiscount(percent); err != nil {
		return decimal.Zero, err
	}
	return base.Mul(hundred.Sub(percent)).Div(hundred), nil
}

// ActiveDiscount returns the discount percent that applies to the product at
// the given instant, or zero.
func (p Policy) ActiveDiscount(product *domain.Product, at time.Time) decimal.Decimal {
	festival := decimal.Zero
	if product.FestivalDiscount.ActiveAt(at) {
		festival = product.FestivalDiscount.Percent
	}
	flash := decimal.Zero
	if product.FlashSaleDiscount.ActiveAt(at) {
		flash = product.FlashSaleDiscount.Percent
	}

	switch p.Precedence {
	case PrecedenceHighest:
		return decimal.Max(festival, flash)
	default:
		if festival.IsPositive() {
			return festival
		}
		return flash
	}
}

// Quote prices one unit of the product at the given instant.
func (p Policy) Quote(product *domain.Product, at time.Time) (Quote, error) {
	discount := p.ActiveDiscount(product, at)
	unit, err := EffectivePrice(product.SellingPrice, discount)
	if err != nil {
		return Quote{}, fmt.Errorf("pricing product %s: %w", product.ID, err)
	}
	return Quote{
		BasePrice:       product.SellingPrice,
		DiscountPercent: discount,
		UnitPrice:       unit,
	}, nil
}

// LineTotal multiplies an effective unit price by a quantity.
func LineTotal(unit decimal.Decimal, quantity int) decimal.Decimal {
	return unit.Mul(decimal.NewFromInt(int64(quantity)))
}
