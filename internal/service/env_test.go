package service

import (
	"context"
	"testing"
	"time"

	"retail-ops/internal/domain"
	"retail-ops/internal/forecast"
	"retail-ops/internal/metrics"
	"retail-ops/internal/payment"
	"retail-ops/internal/pricing"
	"retail-ops/internal/reorder"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// testEnv wires every service against in-memory repositories and the
// sandbox gateway.
type testEnv struct {
	store      *mockStore
	gateway    *payment.Sandbox
	notifier   *mockNotifier
	forecaster *forecast.Static
	carts      *mockCartRepository
	recs       *mockReconciliationRepository
	orders     *mockPurchaseOrderRepository

	Checkout       CheckoutService
	Cart           CartService
	Payments       PaymentService
	Sales          SaleService
	Reorder        ReorderService
	PurchaseOrders PurchaseOrderService
}

func newTestEnv() *testEnv {
	store := newMockStore()
	logger := zap.NewNop()
	m := metrics.NewNoop()

	env := &testEnv{
		store:      store,
		gateway:    payment.NewSandbox(),
		notifier:   &mockNotifier{},
		forecaster: &forecast.Static{Daily: map[uuid.UUID]float64{}},
		carts:      &mockCartRepository{store: store},
		recs:       &mockReconciliationRepository{store: store},
		orders:     &mockPurchaseOrderRepository{store: store},
	}

	products := &mockProductRepository{store: store}
	sales := &mockSaleRepository{store: store}

	env.Checkout = NewCheckoutService(products, pricing.DefaultPolicy(), logger)
	env.Cart = NewCartService(env.carts, products, pricing.DefaultPolicy())
	env.Payments = NewPaymentService(PaymentDeps{
		Intents:         &mockPaymentIntentRepository{store: store},
		Sales:           sales,
		Reconciliations: env.recs,
		Carts:           env.carts,
		Checkout:        env.Checkout,
		Gateway:         env.gateway,
		Notifier:        env.notifier,
		Metrics:         m,
		Currency:        "inr",
		Logger:          logger,
	})
	env.Sales = NewSaleService(sales, env.Checkout, env.notifier, m, logger)
	env.Reorder = NewReorderService(products, env.forecaster, reorder.DefaultPolicy(), logger)
	env.PurchaseOrders = NewPurchaseOrderService(PurchaseOrderDeps{
		Orders:    env.orders,
		Products:  products,
		Suppliers: &mockSupplierRepository{store: store},
		Reorder:   env.Reorder,
		Notifier:  env.notifier,
		Metrics:   m,
		Logger:    logger,
	})
	return env
}

func customer() domain.Actor {
	return domain.Actor{UserID: uuid.New(), Role: domain.RoleCustomer}
}

func biller() domain.Actor {
	return domain.Actor{UserID: uuid.New(), Role: domain.RoleBiller}
}

func manager() domain.Actor {
	return domain.Actor{UserID: uuid.New(), Role: domain.RoleManager}
}

// paidIntent creates and authorizes an intent for items.
func (e *testEnv) paidIntent(t *testing.T, actor domain.Actor, items ...domain.CheckoutItem) *domain.PaymentIntent {
	t.Helper()
	intent, err := e.Payments.CreateIntent(context.Background(), actor, uuid.NewString(), items)
	require.NoError(t, err)
	require.NoError(t, e.gateway.Authorize(intent.GatewayReference))
	return intent
}

// onlineSale commits a paid online sale for a fresh customer.
func (e *testEnv) onlineSale(t *testing.T, product *domain.Product, qty int) (*domain.Sale, domain.Actor) {
	t.Helper()
	buyer := customer()
	intent := e.paidIntent(t, buyer, domain.CheckoutItem{ProductID: product.ID, Quantity: qty})
	sale, err := e.Payments.Confirm(context.Background(), buyer, intent.GatewayReference, nil)
	require.NoError(t, err)
	return sale, buyer
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}
