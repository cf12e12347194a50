package transport

import (
	"net/http"

	"retail-ops/internal/cart"
	"retail-ops/internal/domain"
	"retail-ops/internal/middleware"
	"retail-ops/internal/pricing"
	"retail-ops/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AddCartItemRequest represents the add-to-cart payload
type AddCartItemRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"gte=0"`
}

// UpdateCartItemRequest carries either a relative delta or an absolute
// quantity, never both.
type UpdateCartItemRequest struct {
	Delta    *int `json:"delta"`
	Quantity *int `json:"quantity" validate:"omitempty,gte=0"`
}

// CartLineResponse is a cart line at display prices
type CartLineResponse struct {
	ProductID       uuid.UUID `json:"product_id"`
	ProductName     string    `json:"product_name"`
	Quantity        int       `json:"quantity"`
	Price           string    `json:"price"`
	DiscountPercent string    `json:"discount_percent"`
	UnitPrice       string    `json:"unit_price"`
	Subtotal        string    `json:"subtotal"`
}

// CartResponse is the customer's cart with its advisory total
type CartResponse struct {
	Lines []CartLineResponse `json:"lines"`
	Total string             `json:"total"`
	Count int                `json:"count"`
}

func cartResponse(c *cart.Cart) CartResponse {
	lines := make([]CartLineResponse, 0, len(c.Lines))
	for _, line := range c.Lines {
		unit, err := pricing.EffectivePrice(line.Price, line.DiscountPercent)
		if err != nil {
			unit = line.Price
		}
		lines = append(lines, CartLineResponse{
			ProductID:       line.ProductID,
			ProductName:     line.ProductName,
			Quantity:        line.Quantity,
			Price:           money(line.Price),
			DiscountPercent: line.DiscountPercent.String(),
			UnitPrice:       money(unit),
			Subtotal:        money(pricing.LineTotal(unit, line.Quantity)),
		})
	}
	return CartResponse{Lines: lines, Total: money(c.Total()), Count: c.Count()}
}

// CartHandler handles the customer's cart
type CartHandler struct {
	carts  service.CartService
	logger *zap.Logger
}

func NewCartHandler(carts service.CartService, logger *zap.Logger) *CartHandler {
	return &CartHandler{carts: carts, logger: logger}
}

// RegisterRoutes mounts the cart routes on an authenticated router
func (h *CartHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/cart", func(r chi.Router) {
		r.Use(middleware.RequireRole(h.logger, domain.RoleCustomer))
		r.Get("/", h.Get)
		r.Post("/items", h.AddItem)
		r.Patch("/items/{productID}", h.UpdateItem)
		r.Delete("/items/{productID}", h.RemoveItem)
	})
}

func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	c, err := h.carts.Get(r.Context(), actor.UserID)
	if err != nil {
		middleware.RespondWithDomainError(w, r, err, h.logger)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, cartResponse(c))
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req AddCartItemRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	c, err := h.carts.AddItem(r.Context(), actor.UserID, req.ProductID, req.Quantity)
	if err != nil {
		middleware.RespondWithDomainError(w, r, err, h.logger)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, cartResponse(c))
}

// UpdateItem handles PATCH /api/cart/items/{productID}
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	productID, ok := uuidParam(w, r, "productID")
	if !ok {
		return
	}
	var req UpdateCartItemRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}
	if (req.Delta == nil) == (req.Quantity == nil) {
		middleware.RespondWithError(w, http.StatusBadRequest, "exactly one of delta or quantity is required")
		return
	}

	var (
		c   *cart.Cart
		err error
	)
	if req.Delta != nil {
		c, err = h.carts.ChangeQuantity(r.Context(), actor.UserID, productID, *req.Delta)
	} else {
		c, err = h.carts.SetQuantity(r.Context(), actor.UserID, productID, *req.Quantity)
	}
	if err != nil {
		middleware.RespondWithDomainError(w, r, err, h.logger)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, cartResponse(c))
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	productID, ok := uuidParam(w, r, "productID")
	if !ok {
		return
	}
	c, err := h.carts.RemoveItem(r.Context(), actor.UserID, productID)
	if err != nil {
		middleware.RespondWithDomainError(w, r, err, h.logger)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, cartResponse(c))
}
