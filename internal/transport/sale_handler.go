package transport

import (
	"context"
	"net/http"

	"retail-ops/internal/domain"
	"retail-ops/internal/middleware"
	"retail-ops/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OfflineSaleRequest represents a counter sale rung up by a biller
type OfflineSaleRequest struct {
	CustomerName  string        `json:"customer_name" validate:"required,max=255"`
	CustomerPhone string        `json:"customer_phone" validate:"max=32"`
	PaymentMethod string        `json:"payment_method" validate:"omitempty,oneof=cash card upi"`
	Items         []ItemRequest `json:"items" validate:"required,min=1,dive"`
}

// SaleHandler handles committed sales and their fulfillment
type SaleHandler struct {
	sales  service.SaleService
	logger *zap.Logger
}

func NewSaleHandler(sales service.SaleService, logger *zap.Logger) *SaleHandler {
	return &SaleHandler{sales: sales, logger: logger}
}

// RegisterRoutes mounts the sale routes on an authenticated router
func (h *SaleHandler) RegisterRoutes(r chi.Router) {
	biller := middleware.RequireRole(h.logger, domain.RoleBiller)

	r.Route("/api/sales", func(r chi.Router) {
		r.With(biller).Post("/offline", h.RecordOfflineSale)
		r.With(biller).Get("/pending", h.ListPending)
		r.With(middleware.RequireRole(h.logger, domain.RoleCustomer)).Get("/mine", h.ListMine)
		r.Get("/{saleID}", h.Get)
		r.With(biller).Put("/{saleID}/packed", h.MarkPacked)
		r.With(biller).Put("/{saleID}/completed", h.MarkCompleted)
	})
}

func (h *SaleHandler) RecordOfflineSale(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req OfflineSaleRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	sale, err := h.sales.RecordOfflineSale(r.Context(), actor, service.OfflineSale{
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		PaymentMethod: req.PaymentMethod,
		Items:         checkoutItems(req.Items),
	})
	if err != nil {
		middleware.RespondWithDomainError(w, r, err, h.logger)
		return
	}
	middleware.RespondWithJSON(w, http.StatusCreated, saleResponse(sale))
}

func (h *SaleHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	sales, err := h.sales.ListPending(r.Context())
	if err != nil {
		middleware.RespondWithDomainError(w, r, err, h.logger)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, saleResponses(sales))
}

func (h *SaleHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	sales, err := h.sales.ListCustomerOrders(r.Context(), actor)
	if err != nil {
		middleware.RespondWithDomainError(w, r, err, h.logger)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, saleResponses(sales))
}

// Get is open to every role; customers only see their own orders.
func (h *SaleHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	saleID, ok := uuidParam(w, r, "saleID")
	if !ok {
		return
	}
	sale, err := h.sales.GetSale(r.Context(), actor, saleID)
	if err != nil {
		middleware.RespondWithDomainError(w, r, err, h.logger)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, saleResponse(sale))
}

func (h *SaleHandler) MarkPacked(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.sales.MarkPacked)
}

func (h *SaleHandler) MarkCompleted(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.sales.MarkCompleted)
}

func (h *SaleHandler) transition(w http.ResponseWriter, r *http.Request, move func(context.Context, domain.Actor, uuid.UUID) (*domain.Sale, error)) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	saleID, ok := uuidParam(w, r, "saleID")
	if !ok {
		return
	}
	sale, err := move(r.Context(), actor, saleID)
	if err != nil {
		middleware.RespondWithDomainError(w, r, err, h.logger)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, saleResponse(sale))
}
