package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"retail-ops/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrProductNotFound = fmt.Errorf("product %w", domain.ErrNotFound)
)

// SortOrder represents the sort direction
type SortOrder string

const (
	SortOrderAsc  SortOrder = "ASC"
	SortOrderDesc SortOrder = "DESC"
)

// ProductRepository is the read side of the product directory plus the
// insert used for seeding.
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.Product, error)
	List(ctx context.Context, category *string, page, pageSize int, sortBy string, sortOrder SortOrder) ([]*domain.Product, int, error)
	ListAll(ctx context.Context) ([]*domain.Product, error)
}

type productRepository struct {
	db *sql.DB
}

// NewProductRepository creates a new instance of ProductRepository
func NewProductRepository(db *sql.DB) ProductRepository {
	return &productRepository{db: db}
}

const productColumns = `
	id, name, category, cost_price, selling_price, current_stock, safety_stock,
	festival_discount_percent, festival_starts_at, festival_ends_at,
	flash_sale_discount_percent, flash_sale_starts_at, flash_sale_ends_at,
	supplier_id, created_at, updated_at`

func scanProduct(row rowScanner) (*domain.Product, error) {
	var (
		product                    domain.Product
		festivalPct, flashPct      decimal.NullDecimal
		festivalStart, festivalEnd sql.NullTime
		flashStart, flashEnd       sql.NullTime
		supplierID                 uuid.NullUUID
	)
	err := row.Scan(
		&product.ID,
		&product.Name,
		&product.Category,
		&product.CostPrice,
		&product.SellingPrice,
		&product.CurrentStock,
		&product.SafetyStock,
		&festivalPct, &festivalStart, &festivalEnd,
		&flashPct, &flashStart, &flashEnd,
		&supplierID,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	product.FestivalDiscount = discountFromColumns(festivalPct, festivalStart, festivalEnd)
	product.FlashSaleDiscount = discountFromColumns(flashPct, flashStart, flashEnd)
	product.SupplierID = uuidPtr(supplierID)
	return &product, nil
}

func discountFromColumns(pct decimal.NullDecimal, start, end sql.NullTime) *domain.Discount {
	if !pct.Valid {
		return nil
	}
	return &domain.Discount{Percent: pct.Decimal, StartsAt: timePtr(start), EndsAt: timePtr(end)}
}

func discountColumns(d *domain.Discount) (decimal.NullDecimal, sql.NullTime, sql.NullTime) {
	if d == nil {
		return decimal.NullDecimal{}, sql.NullTime{}, sql.NullTime{}
	}
	return decimal.NullDecimal{Decimal: d.Percent, Valid: true}, nullTime(d.StartsAt), nullTime(d.EndsAt)
}

// Create inserts a new product into the database using parameterized queries
func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	query := `
		INSERT INTO products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	festivalPct, festivalStart, festivalEnd := discountColumns(product.FestivalDiscount)
	flashPct, flashStart, flashEnd := discountColumns(product.FlashSaleDiscount)

	_, err := r.db.ExecContext(
		ctx,
		query,
		product.ID,
		product.Name,
		product.Category,
		domain.RoundMoney(product.CostPrice),
		domain.RoundMoney(product.SellingPrice),
		product.CurrentStock,
		product.SafetyStock,
		festivalPct, festivalStart, festivalEnd,
		flashPct, flashStart, flashEnd,
		nullUUID(product.SupplierID),
		product.CreatedAt,
		product.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}

	return nil
}

// FindByID retrieves a product by ID using parameterized queries
func (r *productRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	product, err := scanProduct(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}

	return product, nil
}

// FindByIDs loads the given products in one round trip. Missing ids are
// simply absent from the result.
func (r *productRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.Product, error) {
	result := make(map[uuid.UUID]*domain.Product, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	query := `SELECT ` + productColumns + ` FROM products WHERE id = ANY($1::uuid[])`
	rows, err := r.db.QueryContext(ctx, query, uuidStrings(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to find products: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		result[product.ID] = product
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return result, nil
}

// List retrieves products with optional category filtering, pagination, and sorting
func (r *productRepository) List(ctx context.Context, category *string, page, pageSize int, sortBy string, sortOrder SortOrder) ([]*domain.Product, int, error) {
	// Validate sort field to prevent SQL injection
	validSortFields := map[string]bool{
		"name":          true,
		"selling_price": true,
		"created_at":    true,
		"current_stock": true,
	}

	if !validSortFields[sortBy] {
		sortBy = "name"
	}

	if sortOrder != SortOrderAsc && sortOrder != SortOrderDesc {
		sortOrder = SortOrderAsc
	}

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	whereClause := ""
	args := []any{}
	argIndex := 1

	if category != nil {
		whereClause = fmt.Sprintf("WHERE category = $%d", argIndex)
		args = append(args, *category)
		argIndex++
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM products %s", whereClause)
	var total int
	err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	offset := (page - 1) * pageSize

	query := fmt.Sprintf(`
		SELECT %s
		FROM products
		%s
		ORDER BY %s %s, id
		LIMIT $%d OFFSET $%d
	`, productColumns, whereClause, sortBy, sortOrder, argIndex, argIndex+1)

	args = append(args, pageSize, offset)

	products, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

// ListAll returns the whole catalog ordered by name.
func (r *productRepository) ListAll(ctx context.Context) ([]*domain.Product, error) {
	return r.query(ctx, `SELECT `+productColumns+` FROM products ORDER BY name, id`)
}

func (r *productRepository) query(ctx context.Context, query string, args ...any) ([]*domain.Product, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := []*domain.Product{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return products, nil
}
