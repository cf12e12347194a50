package service

import (
	"context"
	"fmt"
	"time"

	"retail-ops/internal/domain"
	"retail-ops/internal/pricing"
	"retail-ops/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CheckoutService re-validates cart lines against the product directory
type CheckoutService interface {
	Validate(ctx context.Context, items []domain.CheckoutItem) (*domain.ValidationResult, error)
}

type checkoutService struct {
	productRepo repository.ProductRepository
	policy      pricing.Policy
	now         func() time.Time
	logger      *zap.Logger
}

// NewCheckoutService creates a new instance of CheckoutService
func NewCheckoutService(productRepo repository.ProductRepository, policy pricing.Policy, logger *zap.Logger) CheckoutService {
	return &checkoutService{
		productRepo: productRepo,
		policy:      policy,
		now:         time.Now,
		logger:      logger,
	}
}

// Validate checks every line and collects all problems instead of stopping
// at the first one. Valid lines are priced from the catalog, never from the
// client.
func (s *checkoutService) Validate(ctx context.Context, items []domain.CheckoutItem) (*domain.ValidationResult, error) {
	result := &domain.ValidationResult{
		ValidItems: []domain.ValidatedLine{},
		Errors:     []string{},
	}
	if len(items) == 0 {
		result.Errors = append(result.Errors, "cart is empty")
		return result, nil
	}

	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	products, err := s.productRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}

	at := s.now()
	seen := make(map[uuid.UUID]bool, len(items))
	for _, item := range items {
		if seen[item.ProductID] {
			result.Errors = append(result.Errors, fmt.Sprintf("product %s is listed more than once", item.ProductID))
			continue
		}
		seen[item.ProductID] = true

		product, ok := products[item.ProductID]
		if !ok {
			result.Errors = append(result.Errors, fmt.Sprintf("product %s no longer exists", item.ProductID))
			continue
		}
		if item.Quantity <= 0 {
			result.Errors = append(result.Errors, fmt.Sprintf("quantity for %s must be at least 1", product.Name))
			continue
		}
		if item.Quantity > product.CurrentStock {
			result.Errors = append(result.Errors, fmt.Sprintf(
				"insufficient stock for %s: requested %d, available %d",
				product.Name, item.Quantity, product.CurrentStock))
			result.Shortages = append(result.Shortages, domain.StockShortage{
				ProductID:   product.ID,
				ProductName: product.Name,
				Requested:   item.Quantity,
				Available:   product.CurrentStock,
			})
			continue
		}

		quote, err := s.policy.Quote(product, at)
		if err != nil {
			s.logger.Warn("product has an unusable price",
				zap.String("product_id", product.ID.String()),
				zap.Error(err),
			)
			result.Errors = append(result.Errors, fmt.Sprintf("%s cannot be priced right now", product.Name))
			continue
		}
		result.ValidItems = append(result.ValidItems, domain.ValidatedLine{
			ProductID:       product.ID,
			ProductName:     product.Name,
			Quantity:        item.Quantity,
			BasePrice:       quote.BasePrice,
			DiscountPercent: quote.DiscountPercent,
			UnitPrice:       quote.UnitPrice,
			Subtotal:        pricing.LineTotal(quote.UnitPrice, item.Quantity),
		})
	}

	result.Total = domain.SumSubtotals(result.ValidItems)
	return result, nil
}

// rejection turns a failed validation into the error handed to callers that
// cannot proceed: a stock conflict when stock is the only problem, otherwise
// a validation error listing every issue.
func rejection(result *domain.ValidationResult) error {
	if len(result.Shortages) > 0 && len(result.Shortages) == len(result.Errors) {
		return &domain.StockConflictError{Items: result.Shortages}
	}
	return &domain.ValidationError{
		Field:   "items",
		Message: "cart has invalid items",
		Details: result.Errors,
	}
}
