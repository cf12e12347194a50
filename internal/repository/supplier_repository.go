package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"retail-ops/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrSupplierNotFound = fmt.Errorf("supplier %w", domain.ErrNotFound)
)

type SupplierRepository interface {
	Create(ctx context.Context, supplier *domain.Supplier) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Supplier, error)
}

type supplierRepository struct {
	db *sql.DB
}

func NewSupplierRepository(db *sql.DB) SupplierRepository {
	return &supplierRepository{db: db}
}

func (r *supplierRepository) Create(ctx context.Context, supplier *domain.Supplier) error {
	query := `
		INSERT INTO suppliers (id, full_name, email, phone, company_name, address, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx, query,
		supplier.ID,
		supplier.FullName,
		supplier.Email,
		supplier.Phone,
		supplier.CompanyName,
		supplier.Address,
		supplier.Status,
		supplier.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create supplier: %w", err)
	}
	return nil
}

func (r *supplierRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Supplier, error) {
	query := `
		SELECT id, full_name, email, phone, company_name, address, status, created_at
		FROM suppliers
		WHERE id = $1
	`

	supplier := &domain.Supplier{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&supplier.ID,
		&supplier.FullName,
		&supplier.Email,
		&supplier.Phone,
		&supplier.CompanyName,
		&supplier.Address,
		&supplier.Status,
		&supplier.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSupplierNotFound
		}
		return nil, fmt.Errorf("failed to find supplier by ID: %w", err)
	}

	return supplier, nil
}
