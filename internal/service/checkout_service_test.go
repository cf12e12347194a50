package service

import (
	"context"
	"testing"
	"time"

	"retail-ops/internal/domain"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckout_ScenarioB_InsufficientStockIsReported(t *testing.T) {
	env := newTestEnv()
	rice := env.store.addProduct("Basmati Rice", 3, "120")

	result, err := env.Checkout.Validate(context.Background(), []domain.CheckoutItem{
		{ProductID: rice.ID, Quantity: 5},
	})
	require.NoError(t, err)

	assert.True(t, result.HasErrors())
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "Basmati Rice")
	assert.Empty(t, result.ValidItems)
	assert.True(t, result.Total.IsZero())
	require.Len(t, result.Shortages, 1)
	assert.Equal(t, 3, result.Shortages[0].Available)
}

func TestCheckout_CollectsEveryProblem(t *testing.T) {
	env := newTestEnv()
	tea := env.store.addProduct("Tea", 10, "100")
	salt := env.store.addProduct("Salt", 1, "20")
	oil := env.store.addProduct("Oil", 5, "150")

	result, err := env.Checkout.Validate(context.Background(), []domain.CheckoutItem{
		{ProductID: tea.ID, Quantity: 2},
		{ProductID: uuid.New(), Quantity: 1},
		{ProductID: salt.ID, Quantity: 4},
		{ProductID: oil.ID, Quantity: 0},
	})
	require.NoError(t, err)

	assert.Len(t, result.Errors, 3)
	require.Len(t, result.ValidItems, 1)
	assert.Equal(t, tea.ID, result.ValidItems[0].ProductID)
	assert.True(t, result.Total.Equal(decimal.NewFromInt(200)))
}

func TestCheckout_UsesAuthoritativePriceNotCartPrice(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	user := customer()
	coffee := env.store.addProduct("Coffee", 10, "100")

	_, err := env.Cart.AddItem(ctx, user.UserID, coffee.ID, 2)
	require.NoError(t, err)

	// price rises after the line was added
	env.store.mu.Lock()
	env.store.products[coffee.ID].SellingPrice = decimal.NewFromInt(150)
	env.store.mu.Unlock()

	c, err := env.Cart.Get(ctx, user.UserID)
	require.NoError(t, err)
	assert.True(t, c.Total().Equal(decimal.NewFromInt(200)), "cart keeps the display price")

	result, err := env.Checkout.Validate(ctx, c.Items())
	require.NoError(t, err)
	require.False(t, result.HasErrors())
	assert.True(t, result.ValidItems[0].UnitPrice.Equal(decimal.NewFromInt(150)))
	assert.True(t, result.Total.Equal(decimal.NewFromInt(300)))
}

func TestCheckout_AppliesActiveDiscountWindow(t *testing.T) {
	env := newTestEnv()
	now := time.Date(2026, 10, 20, 12, 0, 0, 0, time.UTC)
	start, end := now.Add(-time.Hour), now.Add(time.Hour)
	sweets := env.store.addProduct("Sweets Box", 10, "500")
	env.store.mu.Lock()
	env.store.products[sweets.ID].FestivalDiscount = &domain.Discount{Percent: decimal.NewFromInt(20), StartsAt: &start, EndsAt: &end}
	env.store.mu.Unlock()

	env.Checkout.(*checkoutService).now = fixedClock(now)
	result, err := env.Checkout.Validate(context.Background(), []domain.CheckoutItem{{ProductID: sweets.ID, Quantity: 1}})
	require.NoError(t, err)
	assert.True(t, result.ValidItems[0].DiscountPercent.Equal(decimal.NewFromInt(20)))
	assert.True(t, result.Total.Equal(decimal.NewFromInt(400)))

	env.Checkout.(*checkoutService).now = fixedClock(end)
	result, err = env.Checkout.Validate(context.Background(), []domain.CheckoutItem{{ProductID: sweets.ID, Quantity: 1}})
	require.NoError(t, err)
	assert.True(t, result.Total.Equal(decimal.NewFromInt(500)))
}

func TestCheckout_RejectsDuplicateLinesAndEmptyCarts(t *testing.T) {
	env := newTestEnv()
	milk := env.store.addProduct("Milk", 10, "60")

	result, err := env.Checkout.Validate(context.Background(), []domain.CheckoutItem{
		{ProductID: milk.ID, Quantity: 1},
		{ProductID: milk.ID, Quantity: 1},
	})
	require.NoError(t, err)
	assert.Len(t, result.Errors, 1)
	assert.Len(t, result.ValidItems, 1)

	result, err = env.Checkout.Validate(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, result.HasErrors())
}

// Feature: retail-ops, Property 4: Checkout validation is idempotent
// Validates: Checkout Validator
func TestProperty_ValidationIsIdempotent(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("validating the same cart twice gives the same result", prop.ForAll(
		func(stock int, requested int) bool {
			env := newTestEnv()
			p := env.store.addProduct("Biscuits", stock, "35.50")
			items := []domain.CheckoutItem{{ProductID: p.ID, Quantity: requested}}

			first, err := env.Checkout.Validate(context.Background(), items)
			if err != nil {
				return false
			}
			second, err := env.Checkout.Validate(context.Background(), items)
			if err != nil {
				return false
			}

			if first.HasErrors() != second.HasErrors() || len(first.ValidItems) != len(second.ValidItems) {
				t.Logf("FAIL: results differ for stock=%d requested=%d", stock, requested)
				return false
			}
			return first.Total.Equal(second.Total) && (requested > stock || requested <= 0) == first.HasErrors()
		},
		gen.IntRange(0, 50),
		gen.IntRange(-2, 60),
	))

	properties.TestingRun(t)
}

// Feature: retail-ops, Property 15: Line quantities below one are rejected
// Validates: the checkout validator reports and excludes lines ordering no units
func TestProperty_NonPositiveQuantityRejected(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("a line with quantity below one is reported and never priced", prop.ForAll(
		func(quantity int) bool {
			env := newTestEnv()
			jam := env.store.addProduct("Jam", 100, "80")
			bread := env.store.addProduct("Bread", 100, "40")

			result, err := env.Checkout.Validate(context.Background(), []domain.CheckoutItem{
				{ProductID: jam.ID, Quantity: quantity},
				{ProductID: bread.ID, Quantity: 1},
			})
			if err != nil {
				return false
			}

			if !result.HasErrors() || len(result.ValidItems) != 1 {
				t.Logf("FAIL: quantity=%d errors=%v valid=%d", quantity, result.Errors, len(result.ValidItems))
				return false
			}
			return result.ValidItems[0].ProductID == bread.ID && result.Total.Equal(decimal.NewFromInt(40))
		},
		gen.IntRange(-1000, 0),
	))

	properties.TestingRun(t)
}
