package transport

import (
	"net/http"
	"strings"
	"time"

	"retail-ops/internal/domain"
	"retail-ops/internal/middleware"
	"retail-ops/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CheckoutRequest lists the lines to validate or pay for. Customers may omit
// items to check out their saved cart.
type CheckoutRequest struct {
	Items []ItemRequest `json:"items" validate:"omitempty,dive"`
}

// PaymentIntentRequest represents the create-payment-intent payload. The key
// may also be sent as an Idempotency-Key header.
type PaymentIntentRequest struct {
	IdempotencyKey string        `json:"idempotency_key" validate:"omitempty,max=255"`
	Items          []ItemRequest `json:"items" validate:"omitempty,dive"`
}

// ConfirmPaymentRequest represents the confirm-payment payload. Items are
// optional; the sale is always committed from the lines the intent charged.
type ConfirmPaymentRequest struct {
	GatewayReference string        `json:"gateway_reference" validate:"required"`
	Items            []ItemRequest `json:"items" validate:"omitempty,dive"`
}

// ValidationResponse is the outcome of re-validating a cart
type ValidationResponse struct {
	ValidItems []LineResponse         `json:"validItems"`
	Errors     []string               `json:"errors"`
	Shortages  []domain.StockShortage `json:"shortages,omitempty"`
	HasErrors  bool                   `json:"hasErrors"`
	Total      string                 `json:"total"`
}

// PaymentIntentResponse is what a client needs to authorize the payment
type PaymentIntentResponse struct {
	ID               uuid.UUID      `json:"id"`
	GatewayReference string         `json:"gateway_reference"`
	ClientSecret     string         `json:"client_secret"`
	Status           string         `json:"status"`
	TotalAmount      string         `json:"total_amount"`
	Currency         string         `json:"currency"`
	Lines            []LineResponse `json:"lines"`
	CreatedAt        time.Time      `json:"created_at"`
}

func validationResponse(result *domain.ValidationResult) ValidationResponse {
	errs := result.Errors
	if errs == nil {
		errs = []string{}
	}
	return ValidationResponse{
		ValidItems: lineResponses(result.ValidItems),
		Errors:     errs,
		Shortages:  result.Shortages,
		HasErrors:  result.HasErrors(),
		Total:      money(result.Total),
	}
}

func paymentIntentResponse(intent *domain.PaymentIntent) PaymentIntentResponse {
	return PaymentIntentResponse{
		ID:               intent.ID,
		GatewayReference: intent.GatewayReference,
		ClientSecret:     intent.ClientSecret,
		Status:           string(intent.Status),
		TotalAmount:      money(intent.TotalAmount),
		Currency:         intent.Currency,
		Lines:            lineResponses(intent.Lines),
		CreatedAt:        intent.CreatedAt,
	}
}

// CheckoutHandler handles cart validation and the online payment flow
type CheckoutHandler struct {
	checkout service.CheckoutService
	payments service.PaymentService
	carts    service.CartService
	logger   *zap.Logger
}

func NewCheckoutHandler(
	checkout service.CheckoutService,
	payments service.PaymentService,
	carts service.CartService,
	logger *zap.Logger,
) *CheckoutHandler {
	return &CheckoutHandler{
		checkout: checkout,
		payments: payments,
		carts:    carts,
		logger:   logger,
	}
}

// RegisterRoutes mounts checkout and reconciliation routes on an
// authenticated router. limiter guards the payment calls.
func (h *CheckoutHandler) RegisterRoutes(r chi.Router, limiter func(http.Handler) http.Handler) {
	r.Route("/api/checkout", func(r chi.Router) {
		r.With(middleware.RequireRole(h.logger, domain.RoleCustomer, domain.RoleBiller)).
			Post("/validate", h.Validate)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(h.logger, domain.RoleCustomer))
			r.Use(limiter)
			r.Post("/payment-intents", h.CreatePaymentIntent)
			r.Post("/confirm", h.ConfirmPayment)
		})
	})

	r.With(middleware.RequireRole(h.logger, domain.RoleManager)).
		Get("/api/reconciliations", h.ListReconciliations)
}

// items returns the requested lines, falling back to the customer's cart.
func (h *CheckoutHandler) items(r *http.Request, actor domain.Actor, requested []ItemRequest) ([]domain.CheckoutItem, error) {
	if len(requested) > 0 || actor.Role != domain.RoleCustomer {
		return checkoutItems(requested), nil
	}
	c, err := h.carts.Get(r.Context(), actor.UserID)
	if err != nil {
		return nil, err
	}
	return c.Items(), nil
}

// Validate handles POST /api/checkout/validate. Line problems are reported in
// the body with a 200; only malformed requests are errors.
func (h *CheckoutHandler) Validate(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req CheckoutRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	items, err := h.items(r, actor, req.Items)
	if err != nil {
		middleware.RespondWithDomainError(w, r, err, h.logger)
		return
	}
	result, err := h.checkout.Validate(r.Context(), items)
	if err != nil {
		middleware.RespondWithDomainError(w, r, err, h.logger)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, validationResponse(result))
}

// CreatePaymentIntent handles POST /api/checkout/payment-intents
func (h *CheckoutHandler) CreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req PaymentIntentRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}
	key := strings.TrimSpace(req.IdempotencyKey)
	if key == "" {
		key = strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	}

	items, err := h.items(r, actor, req.Items)
	if err != nil {
		middleware.RespondWithDomainError(w, r, err, h.logger)
		return
	}
	intent, err := h.payments.CreateIntent(r.Context(), actor, key, items)
	if err != nil {
		middleware.RespondWithDomainError(w, r, err, h.logger)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, paymentIntentResponse(intent))
}

// ConfirmPayment handles POST /api/checkout/confirm
func (h *CheckoutHandler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req ConfirmPaymentRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	// never the saved cart: it may have changed since the customer paid
	sale, err := h.payments.Confirm(r.Context(), actor, req.GatewayReference, checkoutItems(req.Items))
	if err != nil {
		middleware.RespondWithDomainError(w, r, err, h.logger)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, saleResponse(sale))
}

// ListReconciliations handles GET /api/reconciliations
func (h *CheckoutHandler) ListReconciliations(w http.ResponseWriter, r *http.Request) {
	recs, err := h.payments.ListOpenReconciliations(r.Context())
	if err != nil {
		middleware.RespondWithDomainError(w, r, err, h.logger)
		return
	}
	if recs == nil {
		recs = []*domain.Reconciliation{}
	}
	middleware.RespondWithJSON(w, http.StatusOK, recs)
}
