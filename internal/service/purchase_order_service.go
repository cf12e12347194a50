package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"retail-ops/internal/domain"
	"retail-ops/internal/metrics"
	"retail-ops/internal/notification"
	"retail-ops/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// orderNumberAttempts bounds retries on the rare order number collision.
const orderNumberAttempts = 3

type PlaceOrderItem struct {
	ProductID uuid.UUID
	Quantity  int
}

type PlaceOrder struct {
	SupplierID uuid.UUID
	Items      []PlaceOrderItem
	Notes      string
}

// PurchaseOrderService places supplier orders from reorder recommendations and
// credits stock when they arrive.
type PurchaseOrderService interface {
	PlaceOrder(ctx context.Context, actor domain.Actor, req PlaceOrder) (*domain.PurchaseOrder, error)
	ListOrders(ctx context.Context) ([]*domain.PurchaseOrder, error)
	GetOrder(ctx context.Context, orderID uuid.UUID) (*domain.PurchaseOrder, error)
	ReceiveOrder(ctx context.Context, actor domain.Actor, orderID uuid.UUID) (*domain.PurchaseOrder, error)
}

type purchaseOrderService struct {
	orderRepo    repository.PurchaseOrderRepository
	productRepo  repository.ProductRepository
	supplierRepo repository.SupplierRepository
	reorder      ReorderService
	notifier     notification.Notifier
	metrics      *metrics.AppMetrics
	now          func() time.Time
	logger       *zap.Logger
}

// PurchaseOrderDeps groups the collaborators of PurchaseOrderService
type PurchaseOrderDeps struct {
	Orders    repository.PurchaseOrderRepository
	Products  repository.ProductRepository
	Suppliers repository.SupplierRepository
	Reorder   ReorderService
	Notifier  notification.Notifier
	Metrics   *metrics.AppMetrics
	Logger    *zap.Logger
}

// NewPurchaseOrderService creates a new instance of PurchaseOrderService
func NewPurchaseOrderService(deps PurchaseOrderDeps) PurchaseOrderService {
	return &purchaseOrderService{
		orderRepo:    deps.Orders,
		productRepo:  deps.Products,
		supplierRepo: deps.Suppliers,
		reorder:      deps.Reorder,
		notifier:     deps.Notifier,
		metrics:      deps.Metrics,
		now:          time.Now,
		logger:       deps.Logger,
	}
}

// PlaceOrder enforces that every quantity is at least the current reorder
// recommendation for its product and that every product comes from the
// chosen supplier. Unit costs are the products' cost prices.
func (s *purchaseOrderService) PlaceOrder(ctx context.Context, actor domain.Actor, req PlaceOrder) (*domain.PurchaseOrder, error) {
	if len(req.Items) == 0 {
		return nil, domain.NewValidationError("items", "at least one item is required")
	}

	ids := make([]uuid.UUID, 0, len(req.Items))
	seen := make(map[uuid.UUID]bool, len(req.Items))
	for _, item := range req.Items {
		if seen[item.ProductID] {
			return nil, domain.NewValidationError("items", "product %s is listed more than once", item.ProductID)
		}
		seen[item.ProductID] = true
		if item.Quantity < 1 {
			return nil, domain.NewValidationError("quantity", "must be at least 1 for product %s", item.ProductID)
		}
		ids = append(ids, item.ProductID)
	}

	supplier, err := s.supplierRepo.FindByID(ctx, req.SupplierID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, &domain.NotFoundError{Entity: "supplier", ID: req.SupplierID.String()}
		}
		return nil, fmt.Errorf("failed to load supplier: %w", err)
	}
	if supplier.Status != domain.SupplierActive {
		return nil, domain.NewValidationError("supplier_id", "supplier %s is not active", supplier.CompanyName)
	}

	products, err := s.productRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}
	ordered := make([]*domain.Product, 0, len(ids))
	for _, id := range ids {
		product, ok := products[id]
		if !ok {
			return nil, &domain.NotFoundError{Entity: "product", ID: id.String()}
		}
		if !product.SuppliedBy(supplier.ID) {
			return nil, domain.NewValidationError("items",
				"%s is not supplied by %s; review the product's supplier before ordering", product.Name, supplier.CompanyName)
		}
		ordered = append(ordered, product)
	}

	minimums, err := s.reorder.Minimums(ctx, ordered)
	if err != nil {
		return nil, err
	}

	var (
		items      = make([]domain.PurchaseOrderItem, 0, len(req.Items))
		violations []string
	)
	for _, item := range req.Items {
		product := products[item.ProductID]
		if minimum := minimums[item.ProductID]; item.Quantity < minimum {
			violations = append(violations, fmt.Sprintf(
				"quantity for %s must be at least the recommended %d, got %d", product.Name, minimum, item.Quantity))
			continue
		}
		items = append(items, domain.NewPurchaseOrderItem(product, item.Quantity, product.CostPrice))
	}
	if len(violations) > 0 {
		return nil, &domain.ValidationError{
			Field:   "items",
			Message: "quantities below the recommended minimum",
			Details: violations,
		}
	}

	now := s.now().UTC()
	order := &domain.PurchaseOrder{
		ID:          uuid.New(),
		SupplierID:  supplier.ID,
		Items:       items,
		TotalAmount: domain.SumItemCosts(items),
		Status:      domain.PurchaseOrderPlaced,
		Notes:       req.Notes,
		PlacedBy:    actor.UserID,
		CreatedAt:   now,
	}
	for attempt := 1; ; attempt++ {
		order.OrderNumber = domain.NewOrderNumber(now)
		err = s.orderRepo.Create(ctx, order)
		if err == nil {
			break
		}
		if !errors.Is(err, repository.ErrDuplicateOrderNumber) || attempt == orderNumberAttempts {
			return nil, fmt.Errorf("failed to place purchase order: %w", err)
		}
	}

	s.logger.Info("purchase order placed",
		zap.String("order_number", order.OrderNumber),
		zap.String("supplier_id", supplier.ID.String()),
		zap.String("total_amount", order.TotalAmount.StringFixed(domain.CurrencyPlaces)),
	)
	s.metrics.RecordPurchaseOrderPlaced(ctx, order)
	if err := s.notifier.PurchaseOrderPlaced(ctx, order, supplier); err != nil {
		s.logger.Warn("failed to notify supplier of purchase order",
			zap.String("order_number", order.OrderNumber),
			zap.Error(err),
		)
	}
	return order, nil
}

func (s *purchaseOrderService) ListOrders(ctx context.Context) ([]*domain.PurchaseOrder, error) {
	return s.orderRepo.List(ctx)
}

func (s *purchaseOrderService) GetOrder(ctx context.Context, orderID uuid.UUID) (*domain.PurchaseOrder, error) {
	return s.orderRepo.FindByID(ctx, orderID)
}

// ReceiveOrder credits every item's quantity to stock and marks the order
// received. Receiving twice is a state conflict.
func (s *purchaseOrderService) ReceiveOrder(ctx context.Context, actor domain.Actor, orderID uuid.UUID) (*domain.PurchaseOrder, error) {
	order, levels, err := s.orderRepo.Receive(ctx, orderID, actor.UserID, s.now().UTC())
	if err != nil {
		return nil, err
	}

	s.logger.Info("purchase order received",
		zap.String("order_number", order.OrderNumber),
		zap.Int("items", len(order.Items)),
	)
	s.metrics.RecordPurchaseOrderReceived(ctx, order)
	s.metrics.RecordStockLevels(ctx, levels.Strings())
	return order, nil
}
