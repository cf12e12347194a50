// Package cart holds a customer's advisory shopping cart. Prices stored here
// are display values only and are re-validated at checkout.
package cart

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"retail-ops/internal/domain"
	"retail-ops/internal/pricing"
)

// Line is a cart entry with the price the customer saw when adding it.
type Line struct {
	ProductID       uuid.UUID       `json:"product_id"`
	ProductName     string          `json:"product_name"`
	Quantity        int             `json:"quantity"`
	Price           decimal.Decimal `json:"price"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
}

// Cart is one user's ordered set of lines, unique by product.
type Cart struct {
	UserID    uuid.UUID `json:"user_id"`
	Lines     []Line    `json:"lines"`
	UpdatedAt time.Time `json:"updated_at"`
}

func New(userID uuid.UUID) *Cart {
	return &Cart{UserID: userID, Lines: []Line{}}
}

func (c *Cart) index(productID uuid.UUID) int {
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// Add appends a line, or increments the existing line for the same product.
// The display price of an existing line is refreshed.
func (c *Cart) Add(line Line) error {
	if line.Quantity == 0 {
		line.Quantity = 1
	}
	if line.Quantity < 0 {
		return domain.NewValidationError("quantity", "must be at least 1")
	}
	if err := validatePrice(line); err != nil {
		return err
	}

	if i := c.index(line.ProductID); i >= 0 {
		existing := &c.Lines[i]
		existing.Quantity += line.Quantity
		existing.Price = line.Price
		existing.DiscountPercent = line.DiscountPercent
		if line.ProductName != "" {
			existing.ProductName = line.ProductName
		}
		return nil
	}
	c.Lines = append(c.Lines, line)
	return nil
}

func validatePrice(line Line) error {
	_, err := pricing.EffectivePrice(line.Price, line.DiscountPercent)
	return err
}

// Validate checks every line the way Add does. A cart decoded from storage
// must pass before it is used.
func (c *Cart) Validate() error {
	for _, line := range c.Lines {
		if line.Quantity < 1 {
			return domain.NewValidationError("quantity", "must be at least 1")
		}
		if err := validatePrice(line); err != nil {
			return err
		}
	}
	return nil
}

// SetQuantity adjusts a line by delta, never letting it drop below 1.
func (c *Cart) SetQuantity(productID uuid.UUID, delta int) error {
	i := c.index(productID)
	if i < 0 {
		return &domain.NotFoundError{Entity: "cart line", ID: productID.String()}
	}
	next := c.Lines[i].Quantity + delta
	if next < 1 {
		next = 1
	}
	c.Lines[i].Quantity = next
	return nil
}

// UpdateQuantity sets an absolute quantity; zero removes the line.
func (c *Cart) UpdateQuantity(productID uuid.UUID, quantity int) error {
	if quantity < 0 {
		return domain.NewValidationError("quantity", "must not be negative")
	}
	i := c.index(productID)
	if i < 0 {
		return &domain.NotFoundError{Entity: "cart line", ID: productID.String()}
	}
	if quantity == 0 {
		c.Remove(productID)
		return nil
	}
	c.Lines[i].Quantity = quantity
	return nil
}

// Remove deletes the line for productID and reports whether it was present.
func (c *Cart) Remove(productID uuid.UUID) bool {
	i := c.index(productID)
	if i < 0 {
		return false
	}
	c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
	return true
}

// Total sums effectivePrice * quantity over all lines at display prices.
// Every line counts: one whose discount cannot be applied is summed at its
// listed price.
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, line := range c.Lines {
		unit, err := pricing.EffectivePrice(line.Price, line.DiscountPercent)
		if err != nil {
			unit = line.Price
		}
		total = total.Add(pricing.LineTotal(unit, line.Quantity))
	}
	return total
}

// Count returns the number of units in the cart.
func (c *Cart) Count() int {
	n := 0
	for _, line := range c.Lines {
		n += line.Quantity
	}
	return n
}

// Items converts the cart into checkout items for validation.
func (c *Cart) Items() []domain.CheckoutItem {
	items := make([]domain.CheckoutItem, 0, len(c.Lines))
	for _, line := range c.Lines {
		items = append(items, domain.CheckoutItem{ProductID: line.ProductID, Quantity: line.Quantity})
	}
	return items
}

func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}
