package transport

import (
	"net/http"
	"strconv"

	"retail-ops/internal/domain"
	"retail-ops/internal/middleware"
	"retail-ops/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PlaceOrderRequest represents a purchase order placed by a manager
type PlaceOrderRequest struct {
	SupplierID uuid.UUID     `json:"supplier_id" validate:"required"`
	Items      []ItemRequest `json:"items" validate:"required,min=1,dive"`
	Notes      string        `json:"notes" validate:"max=1000"`
}

// PurchaseOrderHandler handles replenishment: reorder recommendations and
// purchase orders.
type PurchaseOrderHandler struct {
	orders  service.PurchaseOrderService
	reorder service.ReorderService
	logger  *zap.Logger
}

func NewPurchaseOrderHandler(orders service.PurchaseOrderService, reorder service.ReorderService, logger *zap.Logger) *PurchaseOrderHandler {
	return &PurchaseOrderHandler{orders: orders, reorder: reorder, logger: logger}
}

// RegisterRoutes mounts the manager-only replenishment routes
func (h *PurchaseOrderHandler) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole(h.logger, domain.RoleManager))

		r.Get("/api/reorder/recommendations", h.Recommendations)

		r.Route("/api/purchase-orders", func(r chi.Router) {
			r.Post("/", h.PlaceOrder)
			r.Get("/", h.ListOrders)
			r.Get("/{orderID}", h.GetOrder)
			r.Post("/{orderID}/receive", h.ReceiveOrder)
		})
	})
}

// Recommendations handles GET /api/reorder/recommendations?actionable=true
func (h *PurchaseOrderHandler) Recommendations(w http.ResponseWriter, r *http.Request) {
	actionableOnly, _ := strconv.ParseBool(r.URL.Query().Get("actionable"))

	report, err := h.reorder.Recommendations(r.Context(), actionableOnly)
	if err != nil {
		middleware.RespondWithDomainError(w, r, err, h.logger)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, report)
}

func (h *PurchaseOrderHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req PlaceOrderRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	items := make([]service.PlaceOrderItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, service.PlaceOrderItem{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	order, err := h.orders.PlaceOrder(r.Context(), actor, service.PlaceOrder{
		SupplierID: req.SupplierID,
		Items:      items,
		Notes:      req.Notes,
	})
	if err != nil {
		middleware.RespondWithDomainError(w, r, err, h.logger)
		return
	}
	middleware.RespondWithJSON(w, http.StatusCreated, order)
}

func (h *PurchaseOrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListOrders(r.Context())
	if err != nil {
		middleware.RespondWithDomainError(w, r, err, h.logger)
		return
	}
	if orders == nil {
		orders = []*domain.PurchaseOrder{}
	}
	middleware.RespondWithJSON(w, http.StatusOK, orders)
}

func (h *PurchaseOrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := uuidParam(w, r, "orderID")
	if !ok {
		return
	}
	order, err := h.orders.GetOrder(r.Context(), orderID)
	if err != nil {
		middleware.RespondWithDomainError(w, r, err, h.logger)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, order)
}

func (h *PurchaseOrderHandler) ReceiveOrder(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	orderID, ok := uuidParam(w, r, "orderID")
	if !ok {
		return
	}
	order, err := h.orders.ReceiveOrder(r.Context(), actor, orderID)
	if err != nil {
		middleware.RespondWithDomainError(w, r, err, h.logger)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, order)
}
