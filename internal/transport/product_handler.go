package transport

import (
	"net/http"
	"strings"

	"retail-ops/internal/middleware"
	"retail-ops/internal/repository"
	"retail-ops/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ProductHandler serves the priced catalog
type ProductHandler struct {
	catalog service.CatalogService
	logger  *zap.Logger
}

func NewProductHandler(catalog service.CatalogService, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{catalog: catalog, logger: logger}
}

// RegisterRoutes mounts the catalog on an authenticated router
func (h *ProductHandler) RegisterRoutes(r chi.Router) {
	r.Get("/api/products", h.List)
}

// List handles GET /api/products?category=&page=&page_size=&sort_by=&sort_order=
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	q := service.CatalogQuery{
		Page:      intQuery(r, "page", 1),
		PageSize:  intQuery(r, "page_size", 20),
		SortBy:    r.URL.Query().Get("sort_by"),
		SortOrder: repository.SortOrder(strings.ToUpper(r.URL.Query().Get("sort_order"))),
	}
	if category := r.URL.Query().Get("category"); category != "" {
		q.Category = &category
	}

	page, err := h.catalog.List(r.Context(), q)
	if err != nil {
		middleware.RespondWithDomainError(w, r, err, h.logger)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, page)
}
