package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"retail-ops/internal/domain"
	"retail-ops/internal/metrics"
	"retail-ops/internal/notification"
	"retail-ops/internal/payment"
	"retail-ops/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	reasonInsufficientStock = "insufficient_stock"
	reasonAmountMismatch    = "amount_mismatch"
	reasonCommitFailed      = "commit_failed"
)

// PaymentService drives the two-phase checkout: an idempotent payment intent,
// then confirmation that commits the sale exactly once.
type PaymentService interface {
	CreateIntent(ctx context.Context, actor domain.Actor, idempotencyKey string, items []domain.CheckoutItem) (*domain.PaymentIntent, error)
	Confirm(ctx context.Context, actor domain.Actor, gatewayReference string, items []domain.CheckoutItem) (*domain.Sale, error)
	ListOpenReconciliations(ctx context.Context) ([]*domain.Reconciliation, error)
}

type paymentService struct {
	intentRepo repository.PaymentIntentRepository
	saleRepo   repository.SaleRepository
	recRepo    repository.ReconciliationRepository
	cartRepo   repository.CartRepository
	checkout   CheckoutService
	gateway    payment.Gateway
	notifier   notification.Notifier
	metrics    *metrics.AppMetrics
	currency   string
	now        func() time.Time
	logger     *zap.Logger
}

// PaymentDeps groups the collaborators of PaymentService
type PaymentDeps struct {
	Intents         repository.PaymentIntentRepository
	Sales           repository.SaleRepository
	Reconciliations repository.ReconciliationRepository
	Carts           repository.CartRepository
	Checkout        CheckoutService
	Gateway         payment.Gateway
	Notifier        notification.Notifier
	Metrics         *metrics.AppMetrics
	Currency        string
	Logger          *zap.Logger
}

// NewPaymentService creates a new instance of PaymentService
func NewPaymentService(deps PaymentDeps) PaymentService {
	return &paymentService{
		intentRepo: deps.Intents,
		saleRepo:   deps.Sales,
		recRepo:    deps.Reconciliations,
		cartRepo:   deps.Carts,
		checkout:   deps.Checkout,
		gateway:    deps.Gateway,
		notifier:   deps.Notifier,
		metrics:    deps.Metrics,
		currency:   deps.Currency,
		now:        time.Now,
		logger:     deps.Logger,
	}
}

// CreateIntent returns the intent for idempotencyKey, creating it on first
// use. A retry of the same attempt gets the stored intent back without
// re-pricing; reusing the key for a different cart is rejected.
func (s *paymentService) CreateIntent(ctx context.Context, actor domain.Actor, idempotencyKey string, items []domain.CheckoutItem) (*domain.PaymentIntent, error) {
	if idempotencyKey == "" {
		return nil, domain.NewValidationError("idempotency_key", "is required")
	}

	existing, err := s.intentRepo.FindByIdempotencyKey(ctx, idempotencyKey)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up payment intent: %w", err)
	}
	if existing != nil {
		return s.reuse(ctx, actor, existing, items)
	}

	result, err := s.checkout.Validate(ctx, items)
	if err != nil {
		return nil, err
	}
	if result.HasErrors() {
		return nil, rejection(result)
	}

	total := result.Total
	if !total.IsPositive() {
		return nil, domain.NewValidationError("items", "order total must be positive")
	}

	gw, err := s.gateway.CreateIntent(ctx, payment.IntentRequest{
		IdempotencyKey: idempotencyKey,
		AmountMinor:    domain.ToMinorUnits(total),
		Currency:       s.currency,
		Metadata: map[string]string{
			"user_id": actor.UserID.String(),
		},
	})
	if err != nil {
		if errors.Is(err, payment.ErrIdempotencyMismatch) {
			return nil, domain.NewValidationError("idempotency_key", "was already used for a different payment")
		}
		return nil, fmt.Errorf("failed to create gateway intent: %w", err)
	}

	now := s.now().UTC()
	intent := &domain.PaymentIntent{
		ID:               uuid.New(),
		UserID:           actor.UserID,
		IdempotencyKey:   idempotencyKey,
		GatewayReference: gw.Reference,
		ClientSecret:     gw.ClientSecret,
		TotalAmount:      total,
		Currency:         gw.Currency,
		Status:           domain.IntentRequiresConfirmation,
		Lines:            result.ValidItems,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	created, err := s.intentRepo.Create(ctx, intent)
	if err != nil {
		return nil, fmt.Errorf("failed to save payment intent: %w", err)
	}
	if !created {
		// A concurrent request with the same key won the insert. The gateway
		// returned the same intent to both, so the stored row is authoritative.
		stored, err := s.intentRepo.FindByIdempotencyKey(ctx, idempotencyKey)
		if err != nil {
			return nil, fmt.Errorf("failed to load payment intent: %w", err)
		}
		s.metrics.RecordPaymentIntent(ctx, true)
		return stored, nil
	}

	s.metrics.RecordPaymentIntent(ctx, false)
	s.logger.Info("payment intent created",
		zap.String("idempotency_key", idempotencyKey),
		zap.String("gateway_reference", intent.GatewayReference),
		zap.String("total_amount", total.StringFixed(domain.CurrencyPlaces)),
	)
	return intent, nil
}

func (s *paymentService) reuse(ctx context.Context, actor domain.Actor, existing *domain.PaymentIntent, items []domain.CheckoutItem) (*domain.PaymentIntent, error) {
	if existing.UserID != actor.UserID {
		return nil, domain.NewValidationError("idempotency_key", "was already used for a different payment")
	}
	if !domain.SameItems(items, existing.Lines) {
		return nil, domain.NewValidationError("idempotency_key", "was already used for a different cart; generate a new key for a new checkout attempt")
	}
	s.metrics.RecordPaymentIntent(ctx, true)
	return existing, nil
}

// Confirm commits the sale for an authorized gateway payment. Confirming the
// same reference again returns the sale committed the first time.
//
// The sale is always built from the lines the intent was priced and charged
// for. items is optional; when given and different from the intent, the paid
// lines still win and the difference is logged.
func (s *paymentService) Confirm(ctx context.Context, actor domain.Actor, gatewayReference string, items []domain.CheckoutItem) (*domain.Sale, error) {
	if gatewayReference == "" {
		return nil, domain.NewValidationError("payment_reference", "is required")
	}

	if sale, err := s.committedSale(ctx, actor, gatewayReference); sale != nil || err != nil {
		return sale, err
	}

	intent, err := s.intentRepo.FindByGatewayReference(ctx, gatewayReference)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, &domain.NotFoundError{Entity: "payment intent", ID: gatewayReference}
		}
		return nil, fmt.Errorf("failed to load payment intent: %w", err)
	}
	if intent.UserID != actor.UserID {
		return nil, &domain.NotFoundError{Entity: "payment intent", ID: gatewayReference}
	}
	if intent.Status == domain.IntentReconciliationRequired {
		return nil, s.awaitingReconciliation(ctx, intent)
	}

	gw, err := s.gateway.RetrieveIntent(ctx, gatewayReference)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve gateway intent: %w", err)
	}
	switch gw.Status {
	case payment.StatusSucceeded:
	case payment.StatusDeclined:
		return nil, &domain.PaymentDeclinedError{Reason: gw.DeclineReason}
	default:
		return nil, &domain.StateConflictError{
			Entity:   "payment intent",
			ID:       gatewayReference,
			Current:  string(gw.Status),
			Required: string(payment.StatusSucceeded),
		}
	}

	if len(items) > 0 && !domain.SameItems(items, intent.Lines) {
		s.logger.Warn("confirmation items differ from the paid intent, committing the paid lines",
			zap.String("gateway_reference", gatewayReference),
			zap.Any("requested", items),
		)
	}

	if gw.AmountMinor != domain.ToMinorUnits(intent.TotalAmount) {
		cause := fmt.Errorf("gateway captured %d minor units, intent is for %s", gw.AmountMinor, intent.TotalAmount.StringFixed(domain.CurrencyPlaces))
		return s.escalate(ctx, intent, reasonAmountMismatch, cause)
	}

	now := s.now().UTC()
	customer := actor.UserID
	reference := gatewayReference
	sale := &domain.Sale{
		ID:               uuid.New(),
		Type:             domain.SaleOnline,
		Status:           domain.SalePaid,
		CustomerID:       &customer,
		PaymentMethod:    "card",
		PaymentReference: &reference,
		TotalAmount:      domain.SumSubtotals(intent.Lines),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	sale.Items = domain.NewSaleItems(sale.ID, intent.Lines)

	levels, err := s.saleRepo.Commit(ctx, sale, &intent.ID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicatePaymentReference):
			// lost a race with a concurrent confirmation of the same payment
			return s.saleRepo.FindByPaymentReference(ctx, gatewayReference)
		case errors.Is(err, repository.ErrIntentAwaitingReconciliation):
			return nil, s.awaitingReconciliation(ctx, intent)
		}
		reason := reasonCommitFailed
		if errors.Is(err, domain.ErrStockConflict) {
			reason = reasonInsufficientStock
		}
		return s.escalate(ctx, intent, reason, err)
	}

	s.logger.Info("sale committed",
		zap.String("sale_id", sale.ID.String()),
		zap.String("order_number", sale.DisplayNumber()),
		zap.String("gateway_reference", gatewayReference),
	)
	s.metrics.RecordSale(ctx, sale)
	s.metrics.RecordStockLevels(ctx, levels.Strings())

	if err := s.cartRepo.Delete(ctx, actor.UserID); err != nil {
		s.logger.Warn("failed to clear cart after checkout", zap.String("user_id", actor.UserID.String()), zap.Error(err))
	}
	if err := s.notifier.SaleConfirmed(ctx, sale); err != nil {
		s.logger.Warn("failed to publish sale confirmation", zap.String("sale_id", sale.ID.String()), zap.Error(err))
	}
	return sale, nil
}

func (s *paymentService) committedSale(ctx context.Context, actor domain.Actor, reference string) (*domain.Sale, error) {
	sale, err := s.saleRepo.FindByPaymentReference(ctx, reference)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up sale: %w", err)
	}
	if sale.CustomerID == nil || *sale.CustomerID != actor.UserID {
		return nil, &domain.NotFoundError{Entity: "payment intent", ID: reference}
	}
	return sale, nil
}

// awaitingReconciliation reports a payment that was already escalated. It
// never commits and never queues another entry.
func (s *paymentService) awaitingReconciliation(ctx context.Context, intent *domain.PaymentIntent) error {
	recErr := &domain.PaymentReconciliationError{
		GatewayReference: intent.GatewayReference,
		Cause:            errors.New("payment is awaiting reconciliation"),
	}
	rec, err := s.recRepo.FindOpenByGatewayReference(ctx, intent.GatewayReference)
	switch {
	case err == nil:
		recErr.ReconciliationID = rec.ID
		recErr.Cause = fmt.Errorf("payment is awaiting reconciliation (%s)", rec.Reason)
	case !errors.Is(err, domain.ErrNotFound):
		s.logger.Warn("failed to load reconciliation", zap.String("gateway_reference", intent.GatewayReference), zap.Error(err))
	}
	return recErr
}

// escalate queues a captured payment whose sale could not be committed and
// moves its intent to reconciliation_required. The returned error always
// reports the reconciliation, even if queueing it failed. If a concurrent
// confirmation committed the sale first, that sale is returned instead.
func (s *paymentService) escalate(ctx context.Context, intent *domain.PaymentIntent, reason string, cause error) (*domain.Sale, error) {
	rec := &domain.Reconciliation{
		ID:               uuid.New(),
		GatewayReference: intent.GatewayReference,
		IntentID:         intent.ID,
		UserID:           intent.UserID,
		Amount:           intent.TotalAmount,
		Currency:         intent.Currency,
		Reason:           reason,
		Items:            []domain.StockShortage{},
		Status:           domain.ReconciliationOpen,
		CreatedAt:        s.now().UTC(),
	}
	var conflict *domain.StockConflictError
	if errors.As(cause, &conflict) {
		rec.Items = conflict.Items
	}

	fields := []zap.Field{
		zap.String("gateway_reference", intent.GatewayReference),
		zap.String("intent_id", intent.ID.String()),
		zap.String("user_id", intent.UserID.String()),
		zap.String("amount", intent.TotalAmount.StringFixed(domain.CurrencyPlaces)),
		zap.String("reason", reason),
		zap.Any("items", rec.Items),
		zap.Error(cause),
	}

	// the request may already be cancelled; the queue entry must still be written
	stored, err := s.recRepo.Open(context.WithoutCancel(ctx), rec)
	switch {
	case errors.Is(err, repository.ErrDuplicatePaymentReference):
		return s.saleRepo.FindByPaymentReference(ctx, intent.GatewayReference)
	case err != nil:
		s.logger.Error("captured payment not committed and reconciliation could not be queued",
			append(fields, zap.NamedError("queue_error", err))...)
		s.metrics.RecordReconciliation(ctx, reason)
		rec.ID = uuid.Nil
	case stored.ID != rec.ID:
		s.logger.Warn("captured payment already queued for reconciliation",
			append(fields, zap.String("reconciliation_id", stored.ID.String()))...)
		rec.ID = stored.ID
	default:
		s.logger.Error("captured payment not committed, queued for reconciliation",
			append(fields, zap.String("reconciliation_id", rec.ID.String()))...)
		s.metrics.RecordReconciliation(ctx, reason)
	}

	return nil, &domain.PaymentReconciliationError{
		GatewayReference: intent.GatewayReference,
		ReconciliationID: rec.ID,
		Cause:            cause,
	}
}

func (s *paymentService) ListOpenReconciliations(ctx context.Context) ([]*domain.Reconciliation, error) {
	recs, err := s.recRepo.ListOpen(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list reconciliations: %w", err)
	}
	return recs, nil
}
