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

// OfflineSale is a counter sale rung up by a biller
type OfflineSale struct {
	CustomerName  string
	CustomerPhone string
	PaymentMethod string
	Items         []domain.CheckoutItem
}

// SaleService covers biller work on committed sales: counter sales, the
// online fulfillment state machine and the order views.
type SaleService interface {
	RecordOfflineSale(ctx context.Context, actor domain.Actor, req OfflineSale) (*domain.Sale, error)
	MarkPacked(ctx context.Context, actor domain.Actor, saleID uuid.UUID) (*domain.Sale, error)
	MarkCompleted(ctx context.Context, actor domain.Actor, saleID uuid.UUID) (*domain.Sale, error)
	ListPending(ctx context.Context) ([]*domain.Sale, error)
	ListCustomerOrders(ctx context.Context, actor domain.Actor) ([]*domain.Sale, error)
	GetSale(ctx context.Context, actor domain.Actor, saleID uuid.UUID) (*domain.Sale, error)
}

type saleService struct {
	saleRepo repository.SaleRepository
	checkout CheckoutService
	notifier notification.Notifier
	metrics  *metrics.AppMetrics
	now      func() time.Time
	logger   *zap.Logger
}

// NewSaleService creates a new instance of SaleService
func NewSaleService(
	saleRepo repository.SaleRepository,
	checkout CheckoutService,
	notifier notification.Notifier,
	appMetrics *metrics.AppMetrics,
	logger *zap.Logger,
) SaleService {
	return &saleService{
		saleRepo: saleRepo,
		checkout: checkout,
		notifier: notifier,
		metrics:  appMetrics,
		now:      time.Now,
		logger:   logger,
	}
}

// RecordOfflineSale validates and commits a counter sale. Offline sales skip
// fulfillment and are stored completed.
func (s *saleService) RecordOfflineSale(ctx context.Context, actor domain.Actor, req OfflineSale) (*domain.Sale, error) {
	if req.CustomerName == "" {
		return nil, domain.NewValidationError("customer_name", "is required")
	}
	if req.PaymentMethod == "" {
		req.PaymentMethod = "cash"
	}

	result, err := s.checkout.Validate(ctx, req.Items)
	if err != nil {
		return nil, err
	}
	if result.HasErrors() {
		return nil, rejection(result)
	}

	now := s.now().UTC()
	biller := actor.UserID
	sale := &domain.Sale{
		ID:            uuid.New(),
		Type:          domain.SaleOffline,
		Status:        domain.SaleCompleted,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		PaymentMethod: req.PaymentMethod,
		TotalAmount:   result.Total,
		CreatedBy:     &biller,
		CreatedAt:     now,
		CompletedAt:   &now,
		CompletedBy:   &biller,
		UpdatedAt:     now,
	}
	sale.Items = domain.NewSaleItems(sale.ID, result.ValidItems)

	levels, err := s.saleRepo.Commit(ctx, sale, nil)
	if err != nil {
		if errors.Is(err, domain.ErrStockConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to record offline sale: %w", err)
	}

	s.logger.Info("offline sale recorded",
		zap.String("sale_id", sale.ID.String()),
		zap.String("order_number", sale.DisplayNumber()),
		zap.String("biller_id", biller.String()),
	)
	s.metrics.RecordSale(ctx, sale)
	s.metrics.RecordStockLevels(ctx, levels.Strings())
	if err := s.notifier.SaleConfirmed(ctx, sale); err != nil {
		s.logger.Warn("failed to publish sale confirmation", zap.String("sale_id", sale.ID.String()), zap.Error(err))
	}
	return sale, nil
}

func (s *saleService) MarkPacked(ctx context.Context, actor domain.Actor, saleID uuid.UUID) (*domain.Sale, error) {
	return s.transition(ctx, actor, saleID, domain.SalePacked)
}

func (s *saleService) MarkCompleted(ctx context.Context, actor domain.Actor, saleID uuid.UUID) (*domain.Sale, error) {
	return s.transition(ctx, actor, saleID, domain.SaleCompleted)
}

func (s *saleService) transition(ctx context.Context, actor domain.Actor, saleID uuid.UUID, target domain.SaleStatus) (*domain.Sale, error) {
	sale, err := s.saleRepo.FindByID(ctx, saleID)
	if err != nil {
		return nil, err
	}

	from := sale.Status
	if err := sale.Transition(target, actor.UserID, s.now().UTC()); err != nil {
		return nil, err
	}

	if err := s.saleRepo.UpdateStatus(ctx, sale, from); err != nil {
		if !errors.Is(err, repository.ErrSaleStatusChanged) {
			return nil, fmt.Errorf("failed to update sale status: %w", err)
		}
		// another biller moved the sale first; report where it is now
		current, findErr := s.saleRepo.FindByID(ctx, saleID)
		if findErr != nil {
			return nil, findErr
		}
		required, _ := domain.RequiredPredecessor(target)
		return nil, &domain.StateConflictError{
			Entity:   "sale",
			ID:       saleID.String(),
			Current:  string(current.Status),
			Required: string(required),
		}
	}

	s.logger.Info("sale status changed",
		zap.String("sale_id", sale.ID.String()),
		zap.String("from", string(from)),
		zap.String("to", string(target)),
		zap.String("biller_id", actor.UserID.String()),
	)
	return sale, nil
}

// ListPending returns online sales that still need packing or handover,
// oldest first.
func (s *saleService) ListPending(ctx context.Context) ([]*domain.Sale, error) {
	return s.saleRepo.ListPending(ctx)
}

func (s *saleService) ListCustomerOrders(ctx context.Context, actor domain.Actor) ([]*domain.Sale, error) {
	return s.saleRepo.ListByCustomer(ctx, actor.UserID)
}

// GetSale hides other customers' sales behind a not-found error.
func (s *saleService) GetSale(ctx context.Context, actor domain.Actor, saleID uuid.UUID) (*domain.Sale, error) {
	sale, err := s.saleRepo.FindByID(ctx, saleID)
	if err != nil {
		return nil, err
	}
	if actor.Is(domain.RoleCustomer) && (sale.CustomerID == nil || *sale.CustomerID != actor.UserID) {
		return nil, &domain.NotFoundError{Entity: "sale", ID: saleID.String()}
	}
	return sale, nil
}
