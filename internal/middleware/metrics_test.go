package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"retail-ops/internal/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

func TestMetricsMiddleware_PassesThrough(t *testing.T) {
	r := chi.NewRouter()
	r.Use(MetricsMiddleware(metrics.NewNoop()))
	r.Get("/api/sales/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/api/sales/123", nil))

	assert.Equal(t, http.StatusTeapot, w.Code)
}
