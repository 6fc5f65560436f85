package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fjod/hebec-shop/internal/api"
	"github.com/fjod/hebec-shop/internal/domain"
)

const defaultPageSize = 20

// Catalog is the public product catalog of the Hebec API.
type Catalog interface {
	ProductLookup
	ListProducts(ctx context.Context, q api.ListQuery) (domain.Page[domain.Product], error)
	ListCategories(ctx context.Context, q api.ListQuery) (domain.Page[domain.Category], error)
}

type CatalogHandler struct {
	catalog Catalog
	timeout time.Duration
}

func NewCatalogHandler(catalog Catalog, timeout time.Duration) *CatalogHandler {
	return &CatalogHandler{
		catalog: catalog,
		timeout: timeout,
	}
}

func listQuery(r *http.Request) api.ListQuery {
	q := r.URL.Query()
	return api.ListQuery{
		Page:       queryInt(r, "page", 1),
		Size:       queryInt(r, "size", defaultPageSize),
		Search:     q.Get("search"),
		CategoryID: q.Get("categoryId"),
	}
}

// GET /api/v1/catalog/products
func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	page, err := h.catalog.ListProducts(ctx, listQuery(r))
	if err != nil {
		handleUpstreamError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, page)
}

// GET /api/v1/catalog/products/{product_id}
func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	product, err := h.catalog.GetProduct(ctx, chi.URLParam(r, "product_id"))
	if err != nil {
		handleUpstreamError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, product)
}

// GET /api/v1/catalog/categories
func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	page, err := h.catalog.ListCategories(ctx, listQuery(r))
	if err != nil {
		handleUpstreamError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, page)
}
