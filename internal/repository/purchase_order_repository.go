package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"retail-ops/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrPurchaseOrderNotFound = fmt.Errorf("purchase order %w", domain.ErrNotFound)
	ErrDuplicateOrderNumber  = errors.New("purchase order number already exists")
)

type PurchaseOrderRepository interface {
	Create(ctx context.Context, order *domain.PurchaseOrder) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.PurchaseOrder, error)
	List(ctx context.Context) ([]*domain.PurchaseOrder, error)
	// Receive credits stock for every item and marks the order received, all
	// in one transaction. Only orders in state placed can be received.
	Receive(ctx context.Context, id uuid.UUID, actor uuid.UUID, at time.Time) (*domain.PurchaseOrder, StockLevels, error)
}

type purchaseOrderRepository struct {
	db *sql.DB
}

func NewPurchaseOrderRepository(db *sql.DB) PurchaseOrderRepository {
	return &purchaseOrderRepository{db: db}
}

const purchaseOrderColumns = `
	id, order_number, supplier_id, total_amount, status, notes, placed_by,
	created_at, received_at, received_by`

func (r *purchaseOrderRepository) Create(ctx context.Context, order *domain.PurchaseOrder) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO purchase_orders (`+purchaseOrderColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`,
			order.ID,
			order.OrderNumber,
			order.SupplierID,
			domain.RoundMoney(order.TotalAmount),
			order.Status,
			order.Notes,
			order.PlacedBy,
			order.CreatedAt,
			nullTime(order.ReceivedAt),
			nullUUID(order.ReceivedBy),
		)
		if err != nil {
			if isUniqueViolation(err, "uq_purchase_orders_order_number") {
				return ErrDuplicateOrderNumber
			}
			return fmt.Errorf("failed to create purchase order: %w", err)
		}

		for _, item := range order.Items {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO purchase_order_items (id, purchase_order_id, product_id, product_name, quantity, unit_cost, total_cost)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
			`,
				item.ID,
				order.ID,
				item.ProductID,
				item.ProductName,
				item.Quantity,
				item.UnitCost,
				item.TotalCost,
			)
			if err != nil {
				return fmt.Errorf("failed to create purchase order item: %w", err)
			}
		}
		return nil
	})
}

func scanPurchaseOrder(row rowScanner) (*domain.PurchaseOrder, error) {
	var (
		order      domain.PurchaseOrder
		receivedAt sql.NullTime
		receivedBy uuid.NullUUID
	)
	err := row.Scan(
		&order.ID,
		&order.OrderNumber,
		&order.SupplierID,
		&order.TotalAmount,
		&order.Status,
		&order.Notes,
		&order.PlacedBy,
		&order.CreatedAt,
		&receivedAt,
		&receivedBy,
	)
	if err != nil {
		return nil, err
	}
	order.ReceivedAt = timePtr(receivedAt)
	order.ReceivedBy = uuidPtr(receivedBy)
	order.Items = []domain.PurchaseOrderItem{}
	return &order, nil
}

func (r *purchaseOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.PurchaseOrder, error) {
	order, err := scanPurchaseOrder(r.db.QueryRowContext(ctx,
		`SELECT `+purchaseOrderColumns+` FROM purchase_orders WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPurchaseOrderNotFound
		}
		return nil, fmt.Errorf("failed to find purchase order: %w", err)
	}

	if err := loadPurchaseOrderItems(ctx, r.db, []*domain.PurchaseOrder{order}); err != nil {
		return nil, err
	}
	return order, nil
}

// List returns every purchase order, newest first.
func (r *purchaseOrderRepository) List(ctx context.Context) ([]*domain.PurchaseOrder, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+purchaseOrderColumns+` FROM purchase_orders ORDER BY created_at DESC, order_number DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list purchase orders: %w", err)
	}
	defer rows.Close()

	orders := []*domain.PurchaseOrder{}
	for rows.Next() {
		order, err := scanPurchaseOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan purchase order: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating purchase orders: %w", err)
	}

	if err := loadPurchaseOrderItems(ctx, r.db, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func loadPurchaseOrderItems(ctx context.Context, q querier, orders []*domain.PurchaseOrder) error {
	if len(orders) == 0 {
		return nil
	}
	byID := make(map[uuid.UUID]*domain.PurchaseOrder, len(orders))
	ids := make([]uuid.UUID, 0, len(orders))
	for _, o := range orders {
		byID[o.ID] = o
		ids = append(ids, o.ID)
	}

	rows, err := q.QueryContext(ctx, `
		SELECT id, purchase_order_id, product_id, product_name, quantity, unit_cost, total_cost
		FROM purchase_order_items
		WHERE purchase_order_id = ANY($1::uuid[])
		ORDER BY product_id
	`, uuidStrings(ids))
	if err != nil {
		return fmt.Errorf("failed to load purchase order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.PurchaseOrderItem
		var orderID uuid.UUID
		if err := rows.Scan(
			&item.ID,
			&orderID,
			&item.ProductID,
			&item.ProductName,
			&item.Quantity,
			&item.UnitCost,
			&item.TotalCost,
		); err != nil {
			return fmt.Errorf("failed to scan purchase order item: %w", err)
		}
		if o, ok := byID[orderID]; ok {
			o.Items = append(o.Items, item)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating purchase order items: %w", err)
	}
	return nil
}

func (r *purchaseOrderRepository) Receive(ctx context.Context, id uuid.UUID, actor uuid.UUID, at time.Time) (*domain.PurchaseOrder, StockLevels, error) {
	var (
		order  *domain.PurchaseOrder
		levels = StockLevels{}
	)

	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		var err error
		order, err = scanPurchaseOrder(tx.QueryRowContext(ctx,
			`SELECT `+purchaseOrderColumns+` FROM purchase_orders WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrPurchaseOrderNotFound
			}
			return fmt.Errorf("failed to lock purchase order: %w", err)
		}

		if err := order.Receive(actor, at); err != nil {
			return err
		}

		if err := loadPurchaseOrderItems(ctx, tx, []*domain.PurchaseOrder{order}); err != nil {
			return err
		}

		items := append([]domain.PurchaseOrderItem(nil), order.Items...)
		sort.Slice(items, func(i, j int) bool { return items[i].ProductID.String() < items[j].ProductID.String() })

		for _, item := range items {
			var stock int
			err := tx.QueryRowContext(ctx,
				`UPDATE products SET current_stock = current_stock + $2 WHERE id = $1 RETURNING current_stock`,
				item.ProductID, item.Quantity,
			).Scan(&stock)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return fmt.Errorf("receiving %s: %w", item.ProductID, ErrProductNotFound)
				}
				return fmt.Errorf("failed to credit stock for %s: %w", item.ProductID, err)
			}
			levels[item.ProductID] = stock
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE purchase_orders SET status = $2, received_at = $3, received_by = $4 WHERE id = $1`,
			order.ID, order.Status, at, actor,
		)
		if err != nil {
			return fmt.Errorf("failed to mark purchase order received: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return order, levels, nil
}
