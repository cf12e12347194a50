package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"retail-ops/internal/cart"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	cartKeyPrefix  = "cart:"
	cartTTL        = 30 * 24 * time.Hour
	cartMaxRetries = 5
)

var ErrCartContention = errors.New("cart is being modified concurrently")

// CartRepository keeps one cart per user in Redis.
type CartRepository interface {
	Get(ctx context.Context, userID uuid.UUID) (*cart.Cart, error)
	// Update applies fn to the stored cart under optimistic locking and
	// saves the result. A failing fn leaves the stored cart untouched.
	Update(ctx context.Context, userID uuid.UUID, fn func(c *cart.Cart) error) (*cart.Cart, error)
	Delete(ctx context.Context, userID uuid.UUID) error
}

type cartRepository struct {
	client *redis.Client
}

func NewCartRepository(client *redis.Client) CartRepository {
	return &cartRepository{client: client}
}

// stringGetter is satisfied by both *redis.Client and *redis.Tx.
type stringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func cartKey(userID uuid.UUID) string {
	return cartKeyPrefix + userID.String()
}

func (r *cartRepository) Get(ctx context.Context, userID uuid.UUID) (*cart.Cart, error) {
	return r.load(ctx, r.client, userID)
}

func (r *cartRepository) load(ctx context.Context, c stringGetter, userID uuid.UUID) (*cart.Cart, error) {
	raw, err := c.Get(ctx, cartKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return cart.New(userID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	stored := cart.New(userID)
	if err := json.Unmarshal(raw, stored); err != nil {
		return nil, fmt.Errorf("failed to decode cart: %w", err)
	}
	if stored.Lines == nil {
		stored.Lines = []cart.Line{}
	}
	if err := stored.Validate(); err != nil {
		return nil, fmt.Errorf("stored cart is invalid: %w", err)
	}
	return stored, nil
}

func (r *cartRepository) Update(ctx context.Context, userID uuid.UUID, fn func(c *cart.Cart) error) (*cart.Cart, error) {
	key := cartKey(userID)
	var result *cart.Cart

	txf := func(tx *redis.Tx) error {
		current, err := r.load(ctx, tx, userID)
		if err != nil {
			return err
		}
		if err := fn(current); err != nil {
			return err
		}
		current.UpdatedAt = time.Now().UTC()

		raw, err := json.Marshal(current)
		if err != nil {
			return fmt.Errorf("failed to encode cart: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if current.IsEmpty() {
				pipe.Del(ctx, key)
				return nil
			}
			pipe.Set(ctx, key, raw, cartTTL)
			return nil
		})
		if err != nil {
			return err
		}
		result = current
		return nil
	}

	for i := 0; i < cartMaxRetries; i++ {
		err := r.client.Watch(ctx, txf, key)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return nil, err
	}
	return nil, ErrCartContention
}

func (r *cartRepository) Delete(ctx context.Context, userID uuid.UUID) error {
	if err := r.client.Del(ctx, cartKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}
