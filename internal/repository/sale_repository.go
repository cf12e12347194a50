package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"retail-ops/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrSaleNotFound = fmt.Errorf("sale %w", domain.ErrNotFound)
	// ErrDuplicatePaymentReference means a sale for the gateway reference
	// was already committed.
	ErrDuplicatePaymentReference = errors.New("sale already committed for payment reference")
	// ErrSaleStatusChanged means the conditional status update found the
	// sale in a different state than expected.
	ErrSaleStatusChanged = errors.New("sale status changed concurrently")
)

// StockLevels maps product ids to stock after a mutation.
type StockLevels map[uuid.UUID]int

// Strings re-keys the levels by product id string.
func (l StockLevels) Strings() map[string]int {
	out := make(map[string]int, len(l))
	for id, level := range l {
		out[id.String()] = level
	}
	return out
}

// SaleRepository persists sales. Commit is the only path that decrements stock.
type SaleRepository interface {
	// Commit atomically checks and decrements stock for every item, inserts
	// the sale and its items, and marks the paying intent succeeded when
	// intentID is set. Nothing is written if any item is short. With an
	// intent, its status is checked first: an already committed payment
	// reports ErrDuplicatePaymentReference and an escalated one
	// ErrIntentAwaitingReconciliation, whatever the stock.
	Commit(ctx context.Context, sale *domain.Sale, intentID *uuid.UUID) (StockLevels, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Sale, error)
	FindByPaymentReference(ctx context.Context, reference string) (*domain.Sale, error)
	ListPending(ctx context.Context) ([]*domain.Sale, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]*domain.Sale, error)
	// UpdateStatus persists a transition only if the stored status still
	// equals from.
	UpdateStatus(ctx context.Context, sale *domain.Sale, from domain.SaleStatus) error
}

type saleRepository struct {
	db *sql.DB
}

func NewSaleRepository(db *sql.DB) SaleRepository {
	return &saleRepository{db: db}
}

func (r *saleRepository) Commit(ctx context.Context, sale *domain.Sale, intentID *uuid.UUID) (StockLevels, error) {
	demand := sale.StockDemand()
	ids := make([]uuid.UUID, 0, len(demand))
	for id := range demand {
		ids = append(ids, id)
	}
	// Lock rows in a stable order so concurrent commits cannot deadlock.
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	levels := make(StockLevels, len(ids))
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		if intentID != nil {
			if err := claimIntent(ctx, tx, *intentID); err != nil {
				return err
			}
		}

		stock, err := lockStock(ctx, tx, ids)
		if err != nil {
			return err
		}

		var shortages []domain.StockShortage
		for _, id := range ids {
			row, ok := stock[id]
			if !ok || row.available < demand[id] {
				shortages = append(shortages, domain.StockShortage{
					ProductID:   id,
					ProductName: row.name,
					Requested:   demand[id],
					Available:   row.available,
				})
			}
		}
		if len(shortages) > 0 {
			return &domain.StockConflictError{Items: shortages}
		}

		for _, id := range ids {
			var remaining int
			err := tx.QueryRowContext(ctx,
				`UPDATE products SET current_stock = current_stock - $2 WHERE id = $1 RETURNING current_stock`,
				id, demand[id],
			).Scan(&remaining)
			if err != nil {
				return fmt.Errorf("failed to decrement stock for %s: %w", id, err)
			}
			levels[id] = remaining
		}

		if err := insertSale(ctx, tx, sale); err != nil {
			return err
		}

		if intentID != nil {
			if err := markIntentSucceeded(ctx, tx, *intentID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return levels, nil
}

func claimIntent(ctx context.Context, tx *sql.Tx, intentID uuid.UUID) error {
	status, err := lockIntent(ctx, tx, intentID)
	if err != nil {
		return err
	}
	switch status {
	case domain.IntentSucceeded:
		return ErrDuplicatePaymentReference
	case domain.IntentReconciliationRequired:
		return ErrIntentAwaitingReconciliation
	}
	return nil
}

type stockRow struct {
	name      string
	available int
}

func lockStock(ctx context.Context, tx *sql.Tx, ids []uuid.UUID) (map[uuid.UUID]stockRow, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT id, name, current_stock FROM products WHERE id = ANY($1::uuid[]) ORDER BY id FOR UPDATE`,
		uuidStrings(ids),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to lock product stock: %w", err)
	}
	defer rows.Close()

	stock := make(map[uuid.UUID]stockRow, len(ids))
	for rows.Next() {
		var id uuid.UUID
		var row stockRow
		if err := rows.Scan(&id, &row.name, &row.available); err != nil {
			return nil, fmt.Errorf("failed to scan product stock: %w", err)
		}
		stock[id] = row
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating product stock: %w", err)
	}
	return stock, nil
}

func insertSale(ctx context.Context, tx *sql.Tx, sale *domain.Sale) error {
	query := `
		INSERT INTO sales (
			id, sale_type, status, customer_id, customer_name, customer_phone,
			payment_method, payment_reference, total_amount, created_by,
			created_at, completed_at, completed_by, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $11)
		RETURNING sale_number
	`

	var reference sql.NullString
	if sale.PaymentReference != nil {
		reference = sql.NullString{String: *sale.PaymentReference, Valid: true}
	}

	err := tx.QueryRowContext(ctx, query,
		sale.ID,
		sale.Type,
		sale.Status,
		nullUUID(sale.CustomerID),
		sale.CustomerName,
		sale.CustomerPhone,
		sale.PaymentMethod,
		reference,
		domain.RoundMoney(sale.TotalAmount),
		nullUUID(sale.CreatedBy),
		sale.CreatedAt,
		nullTime(sale.CompletedAt),
		nullUUID(sale.CompletedBy),
	).Scan(&sale.Number)
	if err != nil {
		if isUniqueViolation(err, "uq_sales_payment_reference") {
			return ErrDuplicatePaymentReference
		}
		return fmt.Errorf("failed to create sale: %w", err)
	}

	for _, item := range sale.Items {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO sale_items (id, sale_id, product_id, product_name, unit_price, quantity, subtotal)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`,
			item.ID,
			sale.ID,
			item.ProductID,
			item.ProductName,
			domain.RoundMoney(item.UnitPrice),
			item.Quantity,
			domain.RoundMoney(item.Subtotal),
		)
		if err != nil {
			return fmt.Errorf("failed to create sale item: %w", err)
		}
	}
	sale.UpdatedAt = sale.CreatedAt
	return nil
}

const saleColumns = `
	id, sale_number, sale_type, status, customer_id, customer_name, customer_phone,
	payment_method, payment_reference, total_amount, created_by, created_at,
	packed_at, packed_by, completed_at, completed_by, updated_at`

func scanSale(row rowScanner) (*domain.Sale, error) {
	var (
		sale                  domain.Sale
		customerID, createdBy uuid.NullUUID
		packedBy, completedBy uuid.NullUUID
		reference             sql.NullString
		packedAt, completedAt sql.NullTime
	)
	err := row.Scan(
		&sale.ID,
		&sale.Number,
		&sale.Type,
		&sale.Status,
		&customerID,
		&sale.CustomerName,
		&sale.CustomerPhone,
		&sale.PaymentMethod,
		&reference,
		&sale.TotalAmount,
		&createdBy,
		&sale.CreatedAt,
		&packedAt,
		&packedBy,
		&completedAt,
		&completedBy,
		&sale.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	sale.CustomerID = uuidPtr(customerID)
	sale.CreatedBy = uuidPtr(createdBy)
	sale.PackedBy = uuidPtr(packedBy)
	sale.CompletedBy = uuidPtr(completedBy)
	sale.PackedAt = timePtr(packedAt)
	sale.CompletedAt = timePtr(completedAt)
	if reference.Valid {
		ref := reference.String
		sale.PaymentReference = &ref
	}
	sale.Items = []domain.SaleItem{}
	return &sale, nil
}

func (r *saleRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Sale, error) {
	return r.findOne(ctx, `SELECT `+saleColumns+` FROM sales WHERE id = $1`, id)
}

func (r *saleRepository) FindByPaymentReference(ctx context.Context, reference string) (*domain.Sale, error) {
	return r.findOne(ctx, `SELECT `+saleColumns+` FROM sales WHERE payment_reference = $1`, reference)
}

func (r *saleRepository) findOne(ctx context.Context, query string, arg any) (*domain.Sale, error) {
	sale, err := scanSale(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSaleNotFound
		}
		return nil, fmt.Errorf("failed to find sale: %w", err)
	}

	if err := r.attachItems(ctx, []*domain.Sale{sale}); err != nil {
		return nil, err
	}
	return sale, nil
}

// ListPending returns ONLINE sales that are not completed, oldest first.
func (r *saleRepository) ListPending(ctx context.Context) ([]*domain.Sale, error) {
	return r.list(ctx, `
		SELECT `+saleColumns+`
		FROM sales
		WHERE sale_type = 'ONLINE' AND status <> 'completed'
		ORDER BY created_at ASC, sale_number ASC
	`)
}

// ListByCustomer returns a customer's sales, newest first.
func (r *saleRepository) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]*domain.Sale, error) {
	return r.list(ctx, `
		SELECT `+saleColumns+`
		FROM sales
		WHERE customer_id = $1
		ORDER BY created_at DESC, sale_number DESC
	`, customerID)
}

func (r *saleRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Sale, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sales: %w", err)
	}
	defer rows.Close()

	sales := []*domain.Sale{}
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sale: %w", err)
		}
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sales: %w", err)
	}

	if err := r.attachItems(ctx, sales); err != nil {
		return nil, err
	}
	return sales, nil
}

func (r *saleRepository) attachItems(ctx context.Context, sales []*domain.Sale) error {
	if len(sales) == 0 {
		return nil
	}
	byID := make(map[uuid.UUID]*domain.Sale, len(sales))
	ids := make([]uuid.UUID, 0, len(sales))
	for _, s := range sales {
		byID[s.ID] = s
		ids = append(ids, s.ID)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, sale_id, product_id, product_name, unit_price, quantity, subtotal
		FROM sale_items
		WHERE sale_id = ANY($1::uuid[])
		ORDER BY product_name, id
	`, uuidStrings(ids))
	if err != nil {
		return fmt.Errorf("failed to load sale items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.SaleItem
		if err := rows.Scan(
			&item.ID,
			&item.SaleID,
			&item.ProductID,
			&item.ProductName,
			&item.UnitPrice,
			&item.Quantity,
			&item.Subtotal,
		); err != nil {
			return fmt.Errorf("failed to scan sale item: %w", err)
		}
		if s, ok := byID[item.SaleID]; ok {
			s.Items = append(s.Items, item)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating sale items: %w", err)
	}
	return nil
}

func (r *saleRepository) UpdateStatus(ctx context.Context, sale *domain.Sale, from domain.SaleStatus) error {
	query := `
		UPDATE sales
		SET status = $2, packed_at = $3, packed_by = $4, completed_at = $5, completed_by = $6
		WHERE id = $1 AND status = $7
	`

	result, err := r.db.ExecContext(ctx, query,
		sale.ID,
		sale.Status,
		nullTime(sale.PackedAt),
		nullUUID(sale.PackedBy),
		nullTime(sale.CompletedAt),
		nullUUID(sale.CompletedBy),
		from,
	)
	if err != nil {
		return fmt.Errorf("failed to update sale status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrSaleStatusChanged
	}

	return nil
}
