package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"retail-ops/internal/domain"
)

var ErrReconciliationNotFound = fmt.Errorf("reconciliation %w", domain.ErrNotFound)

// ReconciliationRepository is the queue of captured payments that need
// manual resolution.
type ReconciliationRepository interface {
	// Open queues rec and moves its intent to reconciliation_required in one
	// transaction. A payment has at most one open reconciliation: if one is
	// already queued for the gateway reference, that row is returned and
	// nothing new is written. An intent that already committed its sale
	// reports ErrDuplicatePaymentReference.
	Open(ctx context.Context, rec *domain.Reconciliation) (*domain.Reconciliation, error)
	FindOpenByGatewayReference(ctx context.Context, reference string) (*domain.Reconciliation, error)
	ListOpen(ctx context.Context) ([]*domain.Reconciliation, error)
}

type reconciliationRepository struct {
	db *sql.DB
}

func NewReconciliationRepository(db *sql.DB) ReconciliationRepository {
	return &reconciliationRepository{db: db}
}

const reconciliationColumns = `
	id, gateway_reference, intent_id, user_id, amount, currency, reason, items, status, created_at`

func (r *reconciliationRepository) Open(ctx context.Context, rec *domain.Reconciliation) (*domain.Reconciliation, error) {
	items, err := json.Marshal(rec.Items)
	if err != nil {
		return nil, fmt.Errorf("failed to encode reconciliation items: %w", err)
	}

	var stored *domain.Reconciliation
	err = withTx(ctx, r.db, func(tx *sql.Tx) error {
		status, err := lockIntent(ctx, tx, rec.IntentID)
		if err != nil {
			return err
		}
		if status == domain.IntentSucceeded {
			return ErrDuplicatePaymentReference
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO payment_reconciliations (`+reconciliationColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (gateway_reference) WHERE status = 'open' DO NOTHING
		`,
			rec.ID,
			rec.GatewayReference,
			rec.IntentID,
			rec.UserID,
			domain.RoundMoney(rec.Amount),
			rec.Currency,
			rec.Reason,
			string(items),
			domain.ReconciliationOpen,
			rec.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create reconciliation: %w", err)
		}

		stored, err = findOpenReconciliation(ctx, tx, rec.GatewayReference)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE payment_intents SET status = $2, updated_at = NOW() WHERE id = $1`,
			rec.IntentID, domain.IntentReconciliationRequired,
		)
		if err != nil {
			return fmt.Errorf("failed to mark payment intent for reconciliation: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stored, nil
}

func (r *reconciliationRepository) FindOpenByGatewayReference(ctx context.Context, reference string) (*domain.Reconciliation, error) {
	return findOpenReconciliation(ctx, r.db, reference)
}

func findOpenReconciliation(ctx context.Context, q querier, reference string) (*domain.Reconciliation, error) {
	rec, err := scanReconciliation(q.QueryRowContext(ctx,
		`SELECT `+reconciliationColumns+` FROM payment_reconciliations WHERE gateway_reference = $1 AND status = 'open'`,
		reference,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReconciliationNotFound
		}
		return nil, fmt.Errorf("failed to find reconciliation: %w", err)
	}
	return rec, nil
}

func scanReconciliation(row rowScanner) (*domain.Reconciliation, error) {
	rec := &domain.Reconciliation{}
	var items []byte
	if err := row.Scan(
		&rec.ID,
		&rec.GatewayReference,
		&rec.IntentID,
		&rec.UserID,
		&rec.Amount,
		&rec.Currency,
		&rec.Reason,
		&items,
		&rec.Status,
		&rec.CreatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(items, &rec.Items); err != nil {
		return nil, fmt.Errorf("failed to decode reconciliation items: %w", err)
	}
	return rec, nil
}

// ListOpen returns unresolved reconciliations, oldest first.
func (r *reconciliationRepository) ListOpen(ctx context.Context) ([]*domain.Reconciliation, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+reconciliationColumns+`
		FROM payment_reconciliations
		WHERE status = 'open'
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list reconciliations: %w", err)
	}
	defer rows.Close()

	recs := []*domain.Reconciliation{}
	for rows.Next() {
		rec, err := scanReconciliation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reconciliation: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reconciliations: %w", err)
	}
	return recs, nil
}
