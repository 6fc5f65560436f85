package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/hebec-shop/internal/api"
	"github.com/fjod/hebec-shop/internal/domain"
)

// AdminDirectory lists back-office records. The remote API enforces the admin role.
type AdminDirectory interface {
	AdminCustomers(ctx context.Context, token string, q api.ListQuery) (domain.Page[domain.Customer], error)
	AdminOrders(ctx context.Context, token string, q api.ListQuery) (domain.Page[domain.Order], error)
	AdminProducts(ctx context.Context, token string, q api.ListQuery) (domain.Page[domain.Product], error)
	AdminCategories(ctx context.Context, token string, q api.ListQuery) (domain.Page[domain.Category], error)
}

type AdminHandler struct {
	dir     AdminDirectory
	timeout time.Duration
}

func NewAdminHandler(dir AdminDirectory, timeout time.Duration) *AdminHandler {
	return &AdminHandler{dir: dir, timeout: timeout}
}

func serveAdminList[T any](h *AdminHandler, w http.ResponseWriter, r *http.Request,
	fetch func(ctx context.Context, token string, q api.ListQuery) (domain.Page[T], error)) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	session, _ := getSession(r)
	page, err := fetch(ctx, session.RemoteToken(), listQuery(r))
	if err != nil {
		handleUpstreamError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, page)
}

// GET /api/v1/admin/customers
func (h *AdminHandler) Customers(w http.ResponseWriter, r *http.Request) {
	serveAdminList(h, w, r, h.dir.AdminCustomers)
}

// GET /api/v1/admin/orders
func (h *AdminHandler) Orders(w http.ResponseWriter, r *http.Request) {
	serveAdminList(h, w, r, h.dir.AdminOrders)
}

// GET /api/v1/admin/products
func (h *AdminHandler) Products(w http.ResponseWriter, r *http.Request) {
	serveAdminList(h, w, r, h.dir.AdminProducts)
}

// GET /api/v1/admin/categories
func (h *AdminHandler) Categories(w http.ResponseWriter, r *http.Request) {
	serveAdminList(h, w, r, h.dir.AdminCategories)
}
