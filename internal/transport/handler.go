// Package transport exposes the retail operations over HTTP.
package transport

import (
	"net/http"
	"strconv"

	"retail-ops/internal/domain"
	"retail-ops/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// requireActor returns the authenticated caller or writes a 401.
func requireActor(w http.ResponseWriter, r *http.Request) (domain.Actor, bool) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "user not authenticated")
		return domain.Actor{}, false
	}
	return actor, true
}

// uuidParam parses a uuid path parameter or writes a 400.
func uuidParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

func intQuery(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

// money renders an amount at currency precision.
func money(amount decimal.Decimal) string {
	return domain.RoundMoney(amount).StringFixed(domain.CurrencyPlaces)
}

// ItemRequest is one product line in a request body
type ItemRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity"`
}

func checkoutItems(items []ItemRequest) []domain.CheckoutItem {
	out := make([]domain.CheckoutItem, 0, len(items))
	for _, item := range items {
		out = append(out, domain.CheckoutItem{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return out
}

// LineResponse is a priced line as shown to clients
type LineResponse struct {
	ProductID       uuid.UUID `json:"product_id"`
	ProductName     string    `json:"product_name"`
	Quantity        int       `json:"quantity"`
	BasePrice       string    `json:"base_price"`
	DiscountPercent string    `json:"discount_percent"`
	UnitPrice       string    `json:"unit_price"`
	Subtotal        string    `json:"subtotal"`
}

func lineResponses(lines []domain.ValidatedLine) []LineResponse {
	out := make([]LineResponse, 0, len(lines))
	for _, line := range lines {
		out = append(out, LineResponse{
			ProductID:       line.ProductID,
			ProductName:     line.ProductName,
			Quantity:        line.Quantity,
			BasePrice:       money(line.BasePrice),
			DiscountPercent: line.DiscountPercent.String(),
			UnitPrice:       money(line.UnitPrice),
			Subtotal:        money(line.Subtotal),
		})
	}
	return out
}

// SaleResponse is a committed sale with its display number
type SaleResponse struct {
	*domain.Sale
	OrderNumber string `json:"order_number"`
}

func saleResponse(sale *domain.Sale) SaleResponse {
	return SaleResponse{Sale: sale, OrderNumber: sale.DisplayNumber()}
}

func saleResponses(sales []*domain.Sale) []SaleResponse {
	out := make([]SaleResponse, 0, len(sales))
	for _, sale := range sales {
		out = append(out, saleResponse(sale))
	}
	return out
}
