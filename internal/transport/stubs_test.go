package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"retail-ops/internal/cart"
	"retail-ops/internal/domain"
	"retail-ops/internal/middleware"
	"retail-ops/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

type stubCatalog struct {
	list func(ctx context.Context, q service.CatalogQuery) (*service.CatalogPage, error)
}

func (s *stubCatalog) List(ctx context.Context, q service.CatalogQuery) (*service.CatalogPage, error) {
	return s.list(ctx, q)
}

type stubCarts struct {
	carts map[uuid.UUID]*cart.Cart
}

func newStubCarts() *stubCarts {
	return &stubCarts{carts: make(map[uuid.UUID]*cart.Cart)}
}

func (s *stubCarts) cart(userID uuid.UUID) *cart.Cart {
	c, ok := s.carts[userID]
	if !ok {
		c = cart.New(userID)
		s.carts[userID] = c
	}
	return c
}

func (s *stubCarts) Get(ctx context.Context, userID uuid.UUID) (*cart.Cart, error) {
	return s.cart(userID), nil
}

func (s *stubCarts) AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*cart.Cart, error) {
	c := s.cart(userID)
	err := c.Add(cart.Line{ProductID: productID, ProductName: "Rice", Quantity: quantity, Price: dec("10.00")})
	return c, err
}

func (s *stubCarts) ChangeQuantity(ctx context.Context, userID, productID uuid.UUID, delta int) (*cart.Cart, error) {
	c := s.cart(userID)
	return c, c.SetQuantity(productID, delta)
}

func (s *stubCarts) SetQuantity(ctx context.Context, userID, productID uuid.UUID, quantity int) (*cart.Cart, error) {
	c := s.cart(userID)
	return c, c.UpdateQuantity(productID, quantity)
}

func (s *stubCarts) RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*cart.Cart, error) {
	c := s.cart(userID)
	if !c.Remove(productID) {
		return nil, &domain.NotFoundError{Entity: "cart line", ID: productID.String()}
	}
	return c, nil
}

func (s *stubCarts) Clear(ctx context.Context, userID uuid.UUID) error {
	delete(s.carts, userID)
	return nil
}

type stubCheckout struct {
	validate func(ctx context.Context, items []domain.CheckoutItem) (*domain.ValidationResult, error)
}

func (s *stubCheckout) Validate(ctx context.Context, items []domain.CheckoutItem) (*domain.ValidationResult, error) {
	return s.validate(ctx, items)
}

type stubPayments struct {
	createIntent func(ctx context.Context, actor domain.Actor, key string, items []domain.CheckoutItem) (*domain.PaymentIntent, error)
	confirm      func(ctx context.Context, actor domain.Actor, ref string, items []domain.CheckoutItem) (*domain.Sale, error)
	open         []*domain.Reconciliation
}

func (s *stubPayments) CreateIntent(ctx context.Context, actor domain.Actor, key string, items []domain.CheckoutItem) (*domain.PaymentIntent, error) {
	return s.createIntent(ctx, actor, key, items)
}

func (s *stubPayments) Confirm(ctx context.Context, actor domain.Actor, ref string, items []domain.CheckoutItem) (*domain.Sale, error) {
	return s.confirm(ctx, actor, ref, items)
}

func (s *stubPayments) ListOpenReconciliations(ctx context.Context) ([]*domain.Reconciliation, error) {
	return s.open, nil
}

type stubSales struct {
	recordOffline func(ctx context.Context, actor domain.Actor, req service.OfflineSale) (*domain.Sale, error)
	transition    func(ctx context.Context, actor domain.Actor, id uuid.UUID, target domain.SaleStatus) (*domain.Sale, error)
	get           func(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Sale, error)
	pending       []*domain.Sale
	mine          map[uuid.UUID][]*domain.Sale
}

func (s *stubSales) RecordOfflineSale(ctx context.Context, actor domain.Actor, req service.OfflineSale) (*domain.Sale, error) {
	return s.recordOffline(ctx, actor, req)
}

func (s *stubSales) MarkPacked(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Sale, error) {
	return s.transition(ctx, actor, id, domain.SalePacked)
}

func (s *stubSales) MarkCompleted(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Sale, error) {
	return s.transition(ctx, actor, id, domain.SaleCompleted)
}

func (s *stubSales) ListPending(ctx context.Context) ([]*domain.Sale, error) {
	return s.pending, nil
}

func (s *stubSales) ListCustomerOrders(ctx context.Context, actor domain.Actor) ([]*domain.Sale, error) {
	return s.mine[actor.UserID], nil
}

func (s *stubSales) GetSale(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Sale, error) {
	return s.get(ctx, actor, id)
}

type stubOrders struct {
	place   func(ctx context.Context, actor domain.Actor, req service.PlaceOrder) (*domain.PurchaseOrder, error)
	orders  map[uuid.UUID]*domain.PurchaseOrder
	receive func(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.PurchaseOrder, error)
}

func (s *stubOrders) PlaceOrder(ctx context.Context, actor domain.Actor, req service.PlaceOrder) (*domain.PurchaseOrder, error) {
	return s.place(ctx, actor, req)
}

func (s *stubOrders) ListOrders(ctx context.Context) ([]*domain.PurchaseOrder, error) {
	var out []*domain.PurchaseOrder
	for _, o := range s.orders {
		out = append(out, o)
	}
	return out, nil
}

func (s *stubOrders) GetOrder(ctx context.Context, id uuid.UUID) (*domain.PurchaseOrder, error) {
	o, ok := s.orders[id]
	if !ok {
		return nil, &domain.NotFoundError{Entity: "purchase order", ID: id.String()}
	}
	return o, nil
}

func (s *stubOrders) ReceiveOrder(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.PurchaseOrder, error) {
	return s.receive(ctx, actor, id)
}

type stubReorder struct {
	report         *service.ReorderReport
	actionableOnly bool
}

func (s *stubReorder) Recommendations(ctx context.Context, actionableOnly bool) (*service.ReorderReport, error) {
	s.actionableOnly = actionableOnly
	return s.report, nil
}

func (s *stubReorder) Minimums(ctx context.Context, products []*domain.Product) (map[uuid.UUID]int, error) {
	return map[uuid.UUID]int{}, nil
}

// routes is anything that mounts itself on an authenticated router.
type routes interface {
	RegisterRoutes(r chi.Router)
}

func authedRouter(handlers ...routes) chi.Router {
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(testSecret, zap.NewNop()))
		for _, h := range handlers {
			h.RegisterRoutes(r)
		}
	})
	return r
}

func bearer(t *testing.T, actor domain.Actor) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": actor.UserID.String(),
		"role":    string(actor.Role),
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return "Bearer " + signed
}

func do(t *testing.T, h http.Handler, actor *domain.Actor, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	return doWithHeader(t, h, actor, method, path, body, "", "")
}

func doWithHeader(t *testing.T, h http.Handler, actor *domain.Actor, method, path string, body interface{}, header, value string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if actor != nil {
		req.Header.Set("Authorization", bearer(t, *actor))
	}
	if header != "" {
		req.Header.Set(header, value)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp middleware.ErrorResponse
	decode(t, w, &resp)
	return resp.Error.Code
}

func customer() *domain.Actor {
	return &domain.Actor{UserID: uuid.New(), Role: domain.RoleCustomer}
}

func biller() *domain.Actor {
	return &domain.Actor{UserID: uuid.New(), Role: domain.RoleBiller}
}

func manager() *domain.Actor {
	return &domain.Actor{UserID: uuid.New(), Role: domain.RoleManager}
}
