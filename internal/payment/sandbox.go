package payment

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Sandbox is an in-process gateway for development and tests. Intents stay in
// requires_confirmation until Authorize or Decline is called, standing in for
// the client-side card step.
type Sandbox struct {
	mu      sync.Mutex
	byKey   map[string]*Intent
	byRef   map[string]*Intent
	created int
}

func NewSandbox() *Sandbox {
	return &Sandbox{
		byKey: make(map[string]*Intent),
		byRef: make(map[string]*Intent),
	}
}

func (s *Sandbox) CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.IdempotencyKey == "" {
		return nil, fmt.Errorf("idempotency key is required")
	}
	if req.AmountMinor <= 0 {
		return nil, fmt.Errorf("amount must be positive, got %d", req.AmountMinor)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.byKey[req.IdempotencyKey]; ok {
		if existing.AmountMinor != req.AmountMinor || !strings.EqualFold(existing.Currency, req.Currency) {
			return nil, ErrIdempotencyMismatch
		}
		cp := *existing
		return &cp, nil
	}

	ref := "pi_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	intent := &Intent{
		Reference:    ref,
		ClientSecret: ref + "_secret_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12],
		AmountMinor:  req.AmountMinor,
		Currency:     strings.ToLower(req.Currency),
		Status:       StatusRequiresConfirmation,
	}
	s.byKey[req.IdempotencyKey] = intent
	s.byRef[ref] = intent
	s.created++

	cp := *intent
	return &cp, nil
}

func (s *Sandbox) RetrieveIntent(ctx context.Context, reference string) (*Intent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	intent, ok := s.byRef[reference]
	if !ok {
		return nil, ErrIntentNotFound
	}
	cp := *intent
	return &cp, nil
}

// Authorize marks an intent as paid.
func (s *Sandbox) Authorize(reference string) error {
	return s.settle(reference, StatusSucceeded, "")
}

// Decline marks an intent as declined with the given reason.
func (s *Sandbox) Decline(reference, reason string) error {
	return s.settle(reference, StatusDeclined, reason)
}

func (s *Sandbox) settle(reference string, status Status, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	intent, ok := s.byRef[reference]
	if !ok {
		return ErrIntentNotFound
	}
	if intent.Status != StatusRequiresConfirmation {
		return fmt.Errorf("intent %s already %s", reference, intent.Status)
	}
	intent.Status = status
	intent.DeclineReason = reason
	return nil
}

// IntentsCreated returns how many distinct intents the sandbox has issued.
func (s *Sandbox) IntentsCreated() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.created
}
