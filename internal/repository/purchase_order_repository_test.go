package repository

import (
	"context"
	"testing"
	"time"

	"retail-ops/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPurchaseOrderRepository_ScenarioE_ReceiveCreditsStockOnce(t *testing.T) {
	requireDB(t)
	ctx := context.Background()
	repo := NewPurchaseOrderRepository(testDB)
	supplier := seedSupplier(t)
	rice := seedProduct(t, "Rice 5kg", 2, "350", &supplier.ID)
	dal := seedProduct(t, "Toor Dal 1kg", 0, "160", &supplier.ID)

	items := []domain.PurchaseOrderItem{
		domain.NewPurchaseOrderItem(rice, 40, rice.CostPrice),
		domain.NewPurchaseOrderItem(dal, 25, dal.CostPrice),
	}
	order := &domain.PurchaseOrder{
		ID:          uuid.New(),
		OrderNumber: domain.NewOrderNumber(time.Now()),
		SupplierID:  supplier.ID,
		Items:       items,
		TotalAmount: domain.SumItemCosts(items),
		Status:      domain.PurchaseOrderPlaced,
		PlacedBy:    uuid.New(),
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, repo.Create(ctx, order))

	manager := uuid.New()
	received, levels, err := repo.Receive(ctx, order.ID, manager, time.Now().UTC())
	require.NoError(t, err)

	assert.Equal(t, domain.PurchaseOrderReceived, received.Status)
	require.NotNil(t, received.ReceivedAt)
	assert.Equal(t, 42, currentStock(t, rice.ID))
	assert.Equal(t, 25, currentStock(t, dal.ID))
	assert.Equal(t, 42, levels[rice.ID])

	_, _, err = repo.Receive(ctx, order.ID, manager, time.Now().UTC())
	assert.ErrorIs(t, err, domain.ErrStateConflict)
	assert.Equal(t, 42, currentStock(t, rice.ID))
	assert.Equal(t, 25, currentStock(t, dal.ID))

	stored, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PurchaseOrderReceived, stored.Status)
	assert.Len(t, stored.Items, 2)
	assert.True(t, stored.TotalAmount.Equal(domain.RoundMoney(order.TotalAmount)))
}

func TestPurchaseOrderRepository_ListNewestFirst(t *testing.T) {
	requireDB(t)
	ctx := context.Background()
	repo := NewPurchaseOrderRepository(testDB)
	supplier := seedSupplier(t)
	product := seedProduct(t, "Sugar 1kg", 0, "50", &supplier.ID)

	var ids []uuid.UUID
	for i := 0; i < 2; i++ {
		items := []domain.PurchaseOrderItem{domain.NewPurchaseOrderItem(product, 10, decimal.NewFromInt(35))}
		order := &domain.PurchaseOrder{
			ID:          uuid.New(),
			OrderNumber: domain.NewOrderNumber(time.Now()),
			SupplierID:  supplier.ID,
			Items:       items,
			TotalAmount: domain.SumItemCosts(items),
			Status:      domain.PurchaseOrderPlaced,
			PlacedBy:    uuid.New(),
			CreatedAt:   time.Now().UTC().Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, repo.Create(ctx, order))
		ids = append(ids, order.ID)
	}

	orders, err := repo.List(ctx)
	require.NoError(t, err)
	positions := map[uuid.UUID]int{}
	for i, o := range orders {
		positions[o.ID] = i
	}
	assert.Less(t, positions[ids[1]], positions[ids[0]])
}

func TestPurchaseOrderRepository_ReceiveUnknownOrder(t *testing.T) {
	requireDB(t)
	_, _, err := NewPurchaseOrderRepository(testDB).Receive(context.Background(), uuid.New(), uuid.New(), time.Now())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
