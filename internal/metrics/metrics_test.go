package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestStatusClass(t *testing.T) {
	assert.Equal(t, "2xx", StatusClass(201))
	assert.Equal(t, "5xx", StatusClass(503))
	assert.Equal(t, "error", StatusClass(0))
}

func TestMiddleware_RecordsRoutePattern(t *testing.T) {
	c := NewCollector()
	r := chi.NewRouter()
	r.Use(c.Middleware)
	r.Get("/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/items/42", nil))

	assert.Equal(t, 1, testutil.CollectAndCount(c.HTTPRequestDuration))
	expected := `
# HELP storefront_cart_mutations_total Cart mutations by operation
# TYPE storefront_cart_mutations_total counter
storefront_cart_mutations_total{operation="add"} 1
`
	c.CartMutations.WithLabelValues("add").Inc()
	assert.NoError(t, testutil.CollectAndCompare(c.CartMutations, strings.NewReader(expected)))
}

func TestHandler_ServesRegistry(t *testing.T) {
	c := NewCollector()
	c.TrackActiveCarts(func() float64 { return 3 })

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "storefront_active_carts 3")
}
