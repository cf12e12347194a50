package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"retail-ops/internal/cart"
	"retail-ops/internal/domain"
	"retail-ops/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// mockStore is an in-memory stand-in for the database. One mutex guards
// everything so Commit and Receive are atomic like their SQL versions.
type mockStore struct {
	mu              sync.Mutex
	products        map[uuid.UUID]*domain.Product
	suppliers       map[uuid.UUID]*domain.Supplier
	intents         map[string]*domain.PaymentIntent
	sales           map[uuid.UUID]*domain.Sale
	orders          map[uuid.UUID]*domain.PurchaseOrder
	reconciliations []*domain.Reconciliation
	carts           map[uuid.UUID]*cart.Cart
	nextSaleNumber  int64
	commitErr       error
}

func newMockStore() *mockStore {
	return &mockStore{
		products:  make(map[uuid.UUID]*domain.Product),
		suppliers: make(map[uuid.UUID]*domain.Supplier),
		intents:   make(map[string]*domain.PaymentIntent),
		sales:     make(map[uuid.UUID]*domain.Sale),
		orders:    make(map[uuid.UUID]*domain.PurchaseOrder),
		carts:     make(map[uuid.UUID]*cart.Cart),
	}
}

func (s *mockStore) addProduct(name string, stock int, price string) *domain.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := &domain.Product{
		ID:           uuid.New(),
		Name:         name,
		Category:     "Grocery",
		CostPrice:    decimal.RequireFromString(price).Div(decimal.NewFromInt(2)),
		SellingPrice: decimal.RequireFromString(price),
		CurrentStock: stock,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	s.products[p.ID] = p
	return p
}

func (s *mockStore) addSupplier() *domain.Supplier {
	s.mu.Lock()
	defer s.mu.Unlock()
	sup := &domain.Supplier{
		ID:          uuid.New(),
		FullName:    "Meera Shah",
		Email:       "meera@example.com",
		CompanyName: "Shah Traders",
		Status:      domain.SupplierActive,
		CreatedAt:   time.Now(),
	}
	s.suppliers[sup.ID] = sup
	return sup
}

// intentByID and openReconciliation expect mu to be held.
func (s *mockStore) intentByID(id uuid.UUID) *domain.PaymentIntent {
	for _, intent := range s.intents {
		if intent.ID == id {
			return intent
		}
	}
	return nil
}

func (s *mockStore) openReconciliation(reference string) *domain.Reconciliation {
	for _, rec := range s.reconciliations {
		if rec.GatewayReference == reference && rec.Status == domain.ReconciliationOpen {
			return rec
		}
	}
	return nil
}

func (s *mockStore) setStock(id uuid.UUID, stock int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[id].CurrentStock = stock
}

func (s *mockStore) stock(id uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.products[id].CurrentStock
}

func (s *mockStore) saleCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sales)
}

type mockProductRepository struct{ store *mockStore }

func (m *mockProductRepository) Create(ctx context.Context, product *domain.Product) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	m.store.products[product.ID] = product
	return nil
}

func (m *mockProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	p, ok := m.store.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockProductRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.Product, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	out := make(map[uuid.UUID]*domain.Product, len(ids))
	for _, id := range ids {
		if p, ok := m.store.products[id]; ok {
			cp := *p
			out[id] = &cp
		}
	}
	return out, nil
}

func (m *mockProductRepository) List(ctx context.Context, category *string, page, pageSize int, sortBy string, sortOrder repository.SortOrder) ([]*domain.Product, int, error) {
	all, _ := m.ListAll(ctx)
	var filtered []*domain.Product
	for _, p := range all {
		if category == nil || p.Category == *category {
			filtered = append(filtered, p)
		}
	}
	start := (page - 1) * pageSize
	if start > len(filtered) {
		start = len(filtered)
	}
	end := start + pageSize
	if end > len(filtered) {
		end = len(filtered)
	}
	return filtered[start:end], len(filtered), nil
}

func (m *mockProductRepository) ListAll(ctx context.Context) ([]*domain.Product, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	out := make([]*domain.Product, 0, len(m.store.products))
	for _, p := range m.store.products {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type mockSupplierRepository struct{ store *mockStore }

func (m *mockSupplierRepository) Create(ctx context.Context, supplier *domain.Supplier) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	m.store.suppliers[supplier.ID] = supplier
	return nil
}

func (m *mockSupplierRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Supplier, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	s, ok := m.store.suppliers[id]
	if !ok {
		return nil, repository.ErrSupplierNotFound
	}
	return s, nil
}

type mockPaymentIntentRepository struct{ store *mockStore }

func (m *mockPaymentIntentRepository) Create(ctx context.Context, intent *domain.PaymentIntent) (bool, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	if _, ok := m.store.intents[intent.IdempotencyKey]; ok {
		return false, nil
	}
	cp := *intent
	m.store.intents[intent.IdempotencyKey] = &cp
	return true, nil
}

func (m *mockPaymentIntentRepository) FindByIdempotencyKey(ctx context.Context, key string) (*domain.PaymentIntent, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	if intent, ok := m.store.intents[key]; ok {
		cp := *intent
		return &cp, nil
	}
	return nil, repository.ErrPaymentIntentNotFound
}

func (m *mockPaymentIntentRepository) FindByGatewayReference(ctx context.Context, reference string) (*domain.PaymentIntent, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	for _, intent := range m.store.intents {
		if intent.GatewayReference == reference {
			cp := *intent
			return &cp, nil
		}
	}
	return nil, repository.ErrPaymentIntentNotFound
}

type mockSaleRepository struct{ store *mockStore }

func (m *mockSaleRepository) Commit(ctx context.Context, sale *domain.Sale, intentID *uuid.UUID) (repository.StockLevels, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	if m.store.commitErr != nil {
		return nil, m.store.commitErr
	}

	// same order as the SQL commit: intent row first, then stock, then the
	// unique payment reference on insert
	if intentID != nil {
		intent := m.store.intentByID(*intentID)
		if intent == nil {
			return nil, repository.ErrPaymentIntentNotFound
		}
		switch intent.Status {
		case domain.IntentSucceeded:
			return nil, repository.ErrDuplicatePaymentReference
		case domain.IntentReconciliationRequired:
			return nil, repository.ErrIntentAwaitingReconciliation
		}
	}

	demand := sale.StockDemand()
	var shortages []domain.StockShortage
	for id, qty := range demand {
		p, ok := m.store.products[id]
		if !ok || p.CurrentStock < qty {
			available, name := 0, ""
			if ok {
				available, name = p.CurrentStock, p.Name
			}
			shortages = append(shortages, domain.StockShortage{ProductID: id, ProductName: name, Requested: qty, Available: available})
		}
	}
	if len(shortages) > 0 {
		return nil, &domain.StockConflictError{Items: shortages}
	}

	if sale.PaymentReference != nil {
		for _, existing := range m.store.sales {
			if existing.PaymentReference != nil && *existing.PaymentReference == *sale.PaymentReference {
				return nil, repository.ErrDuplicatePaymentReference
			}
		}
	}

	levels := repository.StockLevels{}
	for id, qty := range demand {
		m.store.products[id].CurrentStock -= qty
		levels[id] = m.store.products[id].CurrentStock
	}
	m.store.nextSaleNumber++
	sale.Number = m.store.nextSaleNumber
	cp := *sale
	m.store.sales[sale.ID] = &cp

	if intentID != nil {
		m.store.intentByID(*intentID).Status = domain.IntentSucceeded
	}
	return levels, nil
}

func (m *mockSaleRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Sale, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	sale, ok := m.store.sales[id]
	if !ok {
		return nil, repository.ErrSaleNotFound
	}
	cp := *sale
	return &cp, nil
}

func (m *mockSaleRepository) FindByPaymentReference(ctx context.Context, reference string) (*domain.Sale, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	for _, sale := range m.store.sales {
		if sale.PaymentReference != nil && *sale.PaymentReference == reference {
			cp := *sale
			return &cp, nil
		}
	}
	return nil, repository.ErrSaleNotFound
}

func (m *mockSaleRepository) ListPending(ctx context.Context) ([]*domain.Sale, error) {
	return m.list(func(s *domain.Sale) bool { return s.IsPending() }, true), nil
}

func (m *mockSaleRepository) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]*domain.Sale, error) {
	return m.list(func(s *domain.Sale) bool {
		return s.CustomerID != nil && *s.CustomerID == customerID
	}, false), nil
}

func (m *mockSaleRepository) list(keep func(*domain.Sale) bool, oldestFirst bool) []*domain.Sale {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	out := []*domain.Sale{}
	for _, sale := range m.store.sales {
		if keep(sale) {
			cp := *sale
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if oldestFirst {
			return out[i].Number < out[j].Number
		}
		return out[i].Number > out[j].Number
	})
	return out
}

func (m *mockSaleRepository) UpdateStatus(ctx context.Context, sale *domain.Sale, from domain.SaleStatus) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	stored, ok := m.store.sales[sale.ID]
	if !ok {
		return repository.ErrSaleNotFound
	}
	if stored.Status != from {
		return repository.ErrSaleStatusChanged
	}
	cp := *sale
	m.store.sales[sale.ID] = &cp
	return nil
}

type mockPurchaseOrderRepository struct {
	store      *mockStore
	collisions int
}

func (m *mockPurchaseOrderRepository) Create(ctx context.Context, order *domain.PurchaseOrder) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	if m.collisions > 0 {
		m.collisions--
		return repository.ErrDuplicateOrderNumber
	}
	cp := *order
	m.store.orders[order.ID] = &cp
	return nil
}

func (m *mockPurchaseOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.PurchaseOrder, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	order, ok := m.store.orders[id]
	if !ok {
		return nil, repository.ErrPurchaseOrderNotFound
	}
	cp := *order
	return &cp, nil
}

func (m *mockPurchaseOrderRepository) List(ctx context.Context) ([]*domain.PurchaseOrder, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	out := []*domain.PurchaseOrder{}
	for _, order := range m.store.orders {
		cp := *order
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *mockPurchaseOrderRepository) Receive(ctx context.Context, id uuid.UUID, actor uuid.UUID, at time.Time) (*domain.PurchaseOrder, repository.StockLevels, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	stored, ok := m.store.orders[id]
	if !ok {
		return nil, nil, repository.ErrPurchaseOrderNotFound
	}
	order := *stored
	if err := order.Receive(actor, at); err != nil {
		return nil, nil, err
	}
	levels := repository.StockLevels{}
	for _, item := range order.Items {
		p := m.store.products[item.ProductID]
		p.CurrentStock += item.Quantity
		levels[p.ID] = p.CurrentStock
	}
	m.store.orders[id] = &order
	cp := order
	return &cp, levels, nil
}

type mockReconciliationRepository struct {
	store *mockStore
	err   error
}

func (m *mockReconciliationRepository) Open(ctx context.Context, rec *domain.Reconciliation) (*domain.Reconciliation, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	intent := m.store.intentByID(rec.IntentID)
	if intent == nil {
		return nil, repository.ErrPaymentIntentNotFound
	}
	if intent.Status == domain.IntentSucceeded {
		return nil, repository.ErrDuplicatePaymentReference
	}
	intent.Status = domain.IntentReconciliationRequired
	if open := m.store.openReconciliation(rec.GatewayReference); open != nil {
		cp := *open
		return &cp, nil
	}
	cp := *rec
	m.store.reconciliations = append(m.store.reconciliations, &cp)
	return rec, nil
}

func (m *mockReconciliationRepository) FindOpenByGatewayReference(ctx context.Context, reference string) (*domain.Reconciliation, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	if open := m.store.openReconciliation(reference); open != nil {
		cp := *open
		return &cp, nil
	}
	return nil, repository.ErrReconciliationNotFound
}

func (m *mockReconciliationRepository) ListOpen(ctx context.Context) ([]*domain.Reconciliation, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	out := []*domain.Reconciliation{}
	for _, rec := range m.store.reconciliations {
		if rec.Status == domain.ReconciliationOpen {
			out = append(out, rec)
		}
	}
	return out, nil
}

type mockCartRepository struct {
	store     *mockStore
	deleteErr error
}

func (m *mockCartRepository) Get(ctx context.Context, userID uuid.UUID) (*cart.Cart, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	c, ok := m.store.carts[userID]
	if !ok {
		return cart.New(userID), nil
	}
	cp := *c
	cp.Lines = append([]cart.Line{}, c.Lines...)
	return &cp, nil
}

func (m *mockCartRepository) Update(ctx context.Context, userID uuid.UUID, fn func(c *cart.Cart) error) (*cart.Cart, error) {
	current, _ := m.Get(ctx, userID)
	if err := fn(current); err != nil {
		return nil, err
	}
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	if current.IsEmpty() {
		delete(m.store.carts, userID)
	} else {
		m.store.carts[userID] = current
	}
	return current, nil
}

func (m *mockCartRepository) Delete(ctx context.Context, userID uuid.UUID) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	delete(m.store.carts, userID)
	return nil
}

type mockNotifier struct {
	mu     sync.Mutex
	err    error
	orders []*domain.PurchaseOrder
	sales  []*domain.Sale
}

func (m *mockNotifier) PurchaseOrderPlaced(ctx context.Context, order *domain.PurchaseOrder, supplier *domain.Supplier) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders = append(m.orders, order)
	return m.err
}

func (m *mockNotifier) SaleConfirmed(ctx context.Context, sale *domain.Sale) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sales = append(m.sales, sale)
	return m.err
}

var errBrokerDown = errors.New("broker unavailable")
