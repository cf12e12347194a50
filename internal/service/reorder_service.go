package service

import (
	"context"
	"fmt"
	"time"

	"retail-ops/internal/domain"
	"retail-ops/internal/forecast"
	"retail-ops/internal/reorder"
	"retail-ops/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReorderReport is computed fresh on every request and never stored.
type ReorderReport struct {
	GeneratedAt     time.Time                `json:"generated_at"`
	HorizonDays     int                      `json:"horizon_days"`
	Recommendations []reorder.Recommendation `json:"recommendations"`
	Summary         reorder.Summary          `json:"summary"`
}

type ReorderService interface {
	// Recommendations evaluates the whole catalog. With actionableOnly set,
	// products needing no order are left out of the list but still counted
	// in the summary.
	Recommendations(ctx context.Context, actionableOnly bool) (*ReorderReport, error)
	// Minimums recomputes the recommended order quantity for the given
	// products.
	Minimums(ctx context.Context, products []*domain.Product) (map[uuid.UUID]int, error)
}

type reorderService struct {
	productRepo repository.ProductRepository
	forecaster  forecast.Provider
	policy      reorder.Policy
	now         func() time.Time
	logger      *zap.Logger
}

// NewReorderService creates a new instance of ReorderService
func NewReorderService(productRepo repository.ProductRepository, forecaster forecast.Provider, policy reorder.Policy, logger *zap.Logger) ReorderService {
	return &reorderService{
		productRepo: productRepo,
		forecaster:  forecaster,
		policy:      policy,
		now:         time.Now,
		logger:      logger,
	}
}

func (s *reorderService) Recommendations(ctx context.Context, actionableOnly bool) (*ReorderReport, error) {
	products, err := s.productRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}

	recs, err := s.evaluate(ctx, products)
	if err != nil {
		return nil, err
	}

	report := &ReorderReport{
		GeneratedAt:     s.now().UTC(),
		HorizonDays:     s.policy.HorizonDays,
		Recommendations: recs,
		Summary:         reorder.Summarize(recs),
	}
	if actionableOnly {
		report.Recommendations = reorder.Actionable(recs)
	}
	if report.Recommendations == nil {
		report.Recommendations = []reorder.Recommendation{}
	}

	s.logger.Info("reorder recommendations generated",
		zap.Int("products", report.Summary.TotalProducts),
		zap.Int("critical", report.Summary.Critical),
		zap.Int("needing_order", report.Summary.ProductsNeedingOrder),
	)
	return report, nil
}

func (s *reorderService) Minimums(ctx context.Context, products []*domain.Product) (map[uuid.UUID]int, error) {
	recs, err := s.evaluate(ctx, products)
	if err != nil {
		return nil, err
	}
	minimums := make(map[uuid.UUID]int, len(recs))
	for _, rec := range recs {
		minimums[rec.ProductID] = rec.RecommendedOrderQty
	}
	return minimums, nil
}

func (s *reorderService) evaluate(ctx context.Context, products []*domain.Product) ([]reorder.Recommendation, error) {
	if len(products) == 0 {
		return []reorder.Recommendation{}, nil
	}

	stock := make([]forecast.StockLevel, 0, len(products))
	for _, p := range products {
		stock = append(stock, forecast.StockLevel{
			ProductID:    p.ID,
			ProductName:  p.Name,
			Category:     p.Category,
			CurrentStock: p.CurrentStock,
		})
	}

	forecasts, err := s.forecaster.Forecast(ctx, s.policy.HorizonDays, stock)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch demand forecast: %w", err)
	}

	inputs := make([]reorder.Input, 0, len(products))
	for _, p := range products {
		total := 0.0
		if f, ok := forecasts[p.ID]; ok {
			total = f.Total(s.policy.HorizonDays)
		}
		inputs = append(inputs, reorder.Input{
			ProductID:     p.ID,
			ProductName:   p.Name,
			Category:      p.Category,
			SupplierID:    p.SupplierID,
			CurrentStock:  p.CurrentStock,
			SafetyStock:   p.SafetyStock,
			ForecastTotal: total,
		})
	}
	return s.policy.EvaluateAll(inputs)
}
