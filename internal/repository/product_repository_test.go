package repository

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

// Feature: retail-ops, Property 10: Product creation preserves attributes
// Validates: Product directory
func TestProperty_ProductCreationPreservesAttributes(t *testing.T) {
	requireDB(t)
	productRepo := NewProductRepository(testDB)

	properties := gopter.NewProperties(nil)

	properties.Property("creating and retrieving a product preserves all attributes", prop.ForAll(
		func(name string, priceCents int64, stock int, discount int64) bool {
			ctx := context.Background()
			now := time.Now().UTC().Truncate(time.Microsecond)
			ends := now.Add(48 * time.Hour)

			product := &domain.Product{
				ID:               uuid.New(),
				Name:             name,
				Category:         "Snacks",
				CostPrice:        decimal.New(priceCents/2, -2),
				SellingPrice:     decimal.New(priceCents, -2),
				CurrentStock:     stock,
				SafetyStock:      3,
				FestivalDiscount: &domain.Discount{Percent: decimal.NewFromInt(discount), EndsAt: &ends},
				CreatedAt:        now,
				UpdatedAt:        now,
			}

			if err := productRepo.Create(ctx, product); err != nil {
				t.Logf("FAIL: Failed to create product: %v", err)
				return false
			}

			retrieved, err := productRepo.FindByID(ctx, product.ID)
			if err != nil {
				t.Logf("FAIL: Failed to retrieve product: %v", err)
				return false
			}

			if retrieved.Name != product.Name {
				t.Logf("FAIL: Name mismatch. Expected %s, got %s", product.Name, retrieved.Name)
				return false
			}
			if !retrieved.SellingPrice.Equal(product.SellingPrice) {
				t.Logf("FAIL: Price mismatch. Expected %s, got %s", product.SellingPrice, retrieved.SellingPrice)
				return false
			}
			if retrieved.CurrentStock != product.CurrentStock {
				t.Logf("FAIL: Stock mismatch. Expected %d, got %d", product.CurrentStock, retrieved.CurrentStock)
				return false
			}
			if retrieved.FestivalDiscount == nil || !retrieved.FestivalDiscount.Percent.Equal(product.FestivalDiscount.Percent) {
				t.Logf("FAIL: Festival discount not preserved")
				return false
			}
			if retrieved.FestivalDiscount.EndsAt == nil || !retrieved.FestivalDiscount.EndsAt.Equal(ends) {
				t.Logf("FAIL: Festival window not preserved")
				return false
			}
			if retrieved.FlashSaleDiscount != nil {
				t.Logf("FAIL: Unexpected flash sale discount")
				return false
			}
			return true
		},
		gen.RegexMatch(`[A-Z][a-z]{2,20}`),
		gen.Int64Range(1, 999_999),
		gen.IntRange(0, 1000),
		gen.Int64Range(0, 100),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProductRepository_FindByIDs(t *testing.T) {
	requireDB(t)
	repo := NewProductRepository(testDB)
	a := seedProduct(t, "Paneer 200g", 4, "90", nil)
	b := seedProduct(t, "Curd 400g", 9, "45", nil)

	found, err := repo.FindByIDs(context.Background(), []uuid.UUID{a.ID, b.ID, uuid.New()})
	require.NoError(t, err)
	assert.Len(t, found, 2)
	assert.Equal(t, "Paneer 200g", found[a.ID].Name)

	_, err = repo.FindByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestProductRepository_ListByCategory(t *testing.T) {
	requireDB(t)
	repo := NewProductRepository(testDB)
	category := "Cat-" + uuid.NewString()[:8]

	for _, name := range []string{"b-item", "a-item", "c-item"} {
		p := seedProduct(t, name, 1, "10", nil)
		_, err := testDB.Exec(`UPDATE products SET category = $2 WHERE id = $1`, p.ID, category)
		require.NoError(t, err)
	}

	products, total, err := repo.List(context.Background(), &category, 1, 2, "name", SortOrderAsc)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, products, 2)
	assert.Equal(t, "a-item", products[0].Name)
	assert.Equal(t, "b-item", products[1].Name)
}
