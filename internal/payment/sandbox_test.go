package payment

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSandbox_SameKeySameIntent(t *testing.T) {
	gw := NewSandbox()
	ctx := context.Background()

	first, err := gw.CreateIntent(ctx, IntentRequest{IdempotencyKey: "K", AmountMinor: 50000, Currency: "usd"})
	require.NoError(t, err)
	second, err := gw.CreateIntent(ctx, IntentRequest{IdempotencyKey: "K", AmountMinor: 50000, Currency: "USD"})
	require.NoError(t, err)

	assert.Equal(t, first.Reference, second.Reference)
	assert.Equal(t, first.ClientSecret, second.ClientSecret)
	assert.Equal(t, 1, gw.IntentsCreated())
}

func TestSandbox_KeyReuseWithDifferentAmount(t *testing.T) {
	gw := NewSandbox()
	ctx := context.Background()

	_, err := gw.CreateIntent(ctx, IntentRequest{IdempotencyKey: "K", AmountMinor: 50000, Currency: "usd"})
	require.NoError(t, err)
	_, err = gw.CreateIntent(ctx, IntentRequest{IdempotencyKey: "K", AmountMinor: 100, Currency: "usd"})
	assert.ErrorIs(t, err, ErrIdempotencyMismatch)
}

func TestSandbox_ConcurrentRetriesCreateOneIntent(t *testing.T) {
	gw := NewSandbox()
	ctx := context.Background()

	var wg sync.WaitGroup
	refs := make([]string, 20)
	for i := range refs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			intent, err := gw.CreateIntent(ctx, IntentRequest{IdempotencyKey: "retry", AmountMinor: 999, Currency: "usd"})
			if err == nil {
				refs[i] = intent.Reference
			}
		}(i)
	}
	wg.Wait()

	for _, ref := range refs {
		assert.Equal(t, refs[0], ref)
	}
	assert.Equal(t, 1, gw.IntentsCreated())
}

func TestSandbox_AuthorizeAndDecline(t *testing.T) {
	gw := NewSandbox()
	ctx := context.Background()

	paid, err := gw.CreateIntent(ctx, IntentRequest{IdempotencyKey: "a", AmountMinor: 100, Currency: "usd"})
	require.NoError(t, err)
	require.NoError(t, gw.Authorize(paid.Reference))

	got, err := gw.RetrieveIntent(ctx, paid.Reference)
	require.NoError(t, err)
	assert.Equal(t, StatusSucceeded, got.Status)
	assert.Error(t, gw.Decline(paid.Reference, "too late"))

	declined, err := gw.CreateIntent(ctx, IntentRequest{IdempotencyKey: "b", AmountMinor: 100, Currency: "usd"})
	require.NoError(t, err)
	require.NoError(t, gw.Decline(declined.Reference, "card_declined: insufficient funds"))

	got, err = gw.RetrieveIntent(ctx, declined.Reference)
	require.NoError(t, err)
	assert.Equal(t, StatusDeclined, got.Status)
	assert.Equal(t, "card_declined: insufficient funds", got.DeclineReason)

	_, err = gw.RetrieveIntent(ctx, "pi_missing")
	assert.ErrorIs(t, err, ErrIntentNotFound)
}

func TestSandbox_RejectsInvalidRequests(t *testing.T) {
	gw := NewSandbox()
	_, err := gw.CreateIntent(context.Background(), IntentRequest{AmountMinor: 100})
	assert.Error(t, err)
	_, err = gw.CreateIntent(context.Background(), IntentRequest{IdempotencyKey: "x", AmountMinor: 0})
	assert.Error(t, err)
}
