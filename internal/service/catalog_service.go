package service

import (
	"context"
	"fmt"
	"time"

	"retail-ops/internal/domain"
	"retail-ops/internal/pricing"
	"retail-ops/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CatalogEntry is a product as a shopper sees it right now.
type CatalogEntry struct {
	ProductID       uuid.UUID       `json:"product_id"`
	Name            string          `json:"name"`
	Category        string          `json:"category"`
	BasePrice       decimal.Decimal `json:"base_price"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	InStock         bool            `json:"in_stock"`
	CurrentStock    int             `json:"current_stock"`
}

type CatalogPage struct {
	Products []CatalogEntry `json:"products"`
	Total    int            `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
}

// CatalogQuery filters and orders a catalog listing
type CatalogQuery struct {
	Category  *string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder repository.SortOrder
}

type CatalogService interface {
	List(ctx context.Context, q CatalogQuery) (*CatalogPage, error)
}

type catalogService struct {
	productRepo repository.ProductRepository
	policy      pricing.Policy
	now         func() time.Time
	logger      *zap.Logger
}

// NewCatalogService creates a new instance of CatalogService
func NewCatalogService(productRepo repository.ProductRepository, policy pricing.Policy, logger *zap.Logger) CatalogService {
	return &catalogService{productRepo: productRepo, policy: policy, now: time.Now, logger: logger}
}

func (s *catalogService) List(ctx context.Context, q CatalogQuery) (*CatalogPage, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 || q.PageSize > 100 {
		q.PageSize = 20
	}

	products, total, err := s.productRepo.List(ctx, q.Category, q.Page, q.PageSize, q.SortBy, q.SortOrder)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	at := s.now()
	page := &CatalogPage{
		Products: make([]CatalogEntry, 0, len(products)),
		Total:    total,
		Page:     q.Page,
		PageSize: q.PageSize,
	}
	for _, p := range products {
		quote, err := s.policy.Quote(p, at)
		if err != nil {
			// hide unpriceable products rather than failing the whole page
			s.logger.Warn("skipping product with invalid price", zap.String("product_id", p.ID.String()), zap.Error(err))
			continue
		}
		page.Products = append(page.Products, CatalogEntry{
			ProductID:       p.ID,
			Name:            p.Name,
			Category:        p.Category,
			BasePrice:       domain.RoundMoney(quote.BasePrice),
			DiscountPercent: quote.DiscountPercent,
			UnitPrice:       domain.RoundMoney(quote.UnitPrice),
			InStock:         p.CurrentStock > 0,
			CurrentStock:    p.CurrentStock,
		})
	}
	return page, nil
}
