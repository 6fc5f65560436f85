package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fjod/hebec-shop/internal/domain"
)

// AddressBook serves the province, district and ward hierarchy.
type AddressBook interface {
	Provinces(ctx context.Context) ([]domain.Region, error)
	Districts(ctx context.Context, provinceCode string) ([]domain.Region, error)
	Wards(ctx context.Context, districtCode string) ([]domain.Region, error)
}

type AddressHandler struct {
	book    AddressBook
	timeout time.Duration
}

func NewAddressHandler(book AddressBook, timeout time.Duration) *AddressHandler {
	return &AddressHandler{book: book, timeout: timeout}
}

type RegionsResponse struct {
	Items []domain.Region `json:"items"`
}

func (h *AddressHandler) serve(w http.ResponseWriter, r *http.Request, fetch func(ctx context.Context) ([]domain.Region, error)) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	regions, err := fetch(ctx)
	if err != nil {
		handleUpstreamError(w, r, err)
		return
	}
	if regions == nil {
		regions = []domain.Region{}
	}
	respondJSON(w, http.StatusOK, RegionsResponse{Items: regions})
}

// GET /api/v1/address/provinces
func (h *AddressHandler) Provinces(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.book.Provinces)
}

// GET /api/v1/address/provinces/{code}/districts
func (h *AddressHandler) Districts(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	h.serve(w, r, func(ctx context.Context) ([]domain.Region, error) {
		return h.book.Districts(ctx, code)
	})
}

// GET /api/v1/address/districts/{code}/wards
func (h *AddressHandler) Wards(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	h.serve(w, r, func(ctx context.Context) ([]domain.Region, error) {
		return h.book.Wards(ctx, code)
	})
}
