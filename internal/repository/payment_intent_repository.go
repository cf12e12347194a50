package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"retail-ops/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrPaymentIntentNotFound = fmt.Errorf("payment intent %w", domain.ErrNotFound)
	// ErrIntentAwaitingReconciliation means the intent's payment was queued
	// for manual resolution and must not be committed as a sale.
	ErrIntentAwaitingReconciliation = errors.New("payment intent is awaiting reconciliation")
)

// PaymentIntentRepository stores one intent per idempotency key.
type PaymentIntentRepository interface {
	// Create inserts the intent unless one already exists for its
	// idempotency key, and reports whether this call inserted it.
	Create(ctx context.Context, intent *domain.PaymentIntent) (bool, error)
	FindByIdempotencyKey(ctx context.Context, key string) (*domain.PaymentIntent, error)
	FindByGatewayReference(ctx context.Context, reference string) (*domain.PaymentIntent, error)
}

type paymentIntentRepository struct {
	db *sql.DB
}

func NewPaymentIntentRepository(db *sql.DB) PaymentIntentRepository {
	return &paymentIntentRepository{db: db}
}

const paymentIntentColumns = `
	id, user_id, idempotency_key, gateway_reference, client_secret,
	total_amount, currency, status, lines, created_at, updated_at`

func (r *paymentIntentRepository) Create(ctx context.Context, intent *domain.PaymentIntent) (bool, error) {
	lines, err := json.Marshal(intent.Lines)
	if err != nil {
		return false, fmt.Errorf("failed to encode intent lines: %w", err)
	}

	query := `
		INSERT INTO payment_intents (` + paymentIntentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (idempotency_key) DO NOTHING
	`

	result, err := r.db.ExecContext(ctx, query,
		intent.ID,
		intent.UserID,
		intent.IdempotencyKey,
		intent.GatewayReference,
		intent.ClientSecret,
		domain.RoundMoney(intent.TotalAmount),
		intent.Currency,
		intent.Status,
		string(lines),
		intent.CreatedAt,
		intent.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to create payment intent: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected == 1, nil
}

func (r *paymentIntentRepository) FindByIdempotencyKey(ctx context.Context, key string) (*domain.PaymentIntent, error) {
	return r.findOne(ctx, `SELECT `+paymentIntentColumns+` FROM payment_intents WHERE idempotency_key = $1`, key)
}

func (r *paymentIntentRepository) FindByGatewayReference(ctx context.Context, reference string) (*domain.PaymentIntent, error) {
	return r.findOne(ctx, `SELECT `+paymentIntentColumns+` FROM payment_intents WHERE gateway_reference = $1`, reference)
}

func (r *paymentIntentRepository) findOne(ctx context.Context, query string, arg any) (*domain.PaymentIntent, error) {
	intent := &domain.PaymentIntent{}
	var lines []byte
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&intent.ID,
		&intent.UserID,
		&intent.IdempotencyKey,
		&intent.GatewayReference,
		&intent.ClientSecret,
		&intent.TotalAmount,
		&intent.Currency,
		&intent.Status,
		&lines,
		&intent.CreatedAt,
		&intent.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPaymentIntentNotFound
		}
		return nil, fmt.Errorf("failed to find payment intent: %w", err)
	}

	if err := json.Unmarshal(lines, &intent.Lines); err != nil {
		return nil, fmt.Errorf("failed to decode intent lines: %w", err)
	}
	return intent, nil
}

// lockIntent takes a row lock on the intent and returns its status. Callers
// that commit or escalate a payment lock the intent before anything else, so
// the first writer decides the outcome and later writers see its status.
func lockIntent(ctx context.Context, tx *sql.Tx, intentID uuid.UUID) (domain.IntentStatus, error) {
	var status domain.IntentStatus
	err := tx.QueryRowContext(ctx,
		`SELECT status FROM payment_intents WHERE id = $1 FOR UPDATE`,
		intentID,
	).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrPaymentIntentNotFound
		}
		return "", fmt.Errorf("failed to lock payment intent: %w", err)
	}
	return status, nil
}

// markIntentSucceeded flips the intent inside the sale commit transaction.
func markIntentSucceeded(ctx context.Context, q querier, intentID any) error {
	_, err := q.ExecContext(ctx,
		`UPDATE payment_intents SET status = $2, updated_at = NOW() WHERE id = $1`,
		intentID, domain.IntentSucceeded,
	)
	if err != nil {
		return fmt.Errorf("failed to mark payment intent succeeded: %w", err)
	}
	return nil
}
