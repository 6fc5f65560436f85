package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/fjod/hebec-shop/internal/cart"
	"github.com/fjod/hebec-shop/internal/domain"
	"github.com/fjod/hebec-shop/internal/logger"
)

const maxQuantity = 99

// ProductLookup resolves catalog products added to a cart.
type ProductLookup interface {
	GetProduct(ctx context.Context, id string) (domain.Product, error)
}

type CartHandler struct {
	carts    *cart.Service
	products ProductLookup
	timeout  time.Duration
}

func NewCartHandler(carts *cart.Service, products ProductLookup, timeout time.Duration) *CartHandler {
	return &CartHandler{
		carts:    carts,
		products: products,
		timeout:  timeout,
	}
}

type AddItemRequestDTO struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

type CartResponseDTO struct {
	Items         domain.CartSnapshot `json:"items"`
	ItemCount     int                 `json:"itemCount"`
	TotalQuantity int                 `json:"totalQuantity"`
	TotalPrice    decimal.Decimal     `json:"totalPrice"`
	IsEmpty       bool                `json:"isEmpty"`
}

func cartResponse(s *cart.Store) CartResponseDTO {
	items := s.Items()
	return CartResponseDTO{
		Items:         items,
		ItemCount:     len(items),
		TotalQuantity: items.TotalQuantity(),
		TotalPrice:    items.Subtotal(),
		IsEmpty:       len(items) == 0,
	}
}

// loadCart resolves the session's cart or writes the error response.
func (h *CartHandler) loadCart(ctx context.Context, w http.ResponseWriter, r *http.Request) (*cart.Store, bool) {
	session, ok := getSession(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return nil, false
	}
	store, err := h.carts.Cart(ctx, session.ID)
	if err != nil {
		logger.FromContext(ctx).Error("failed to load cart", zap.Error(err))
		respondError(w, http.StatusServiceUnavailable, "storage_unavailable", "cart storage is unavailable")
		return nil, false
	}
	return store, true
}

func respondCartError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, cart.ErrInvalidItem) {
		respondError(w, http.StatusBadRequest, "invalid_product_id", err.Error())
		return
	}
	logger.FromContext(r.Context()).Error("failed to persist cart", zap.Error(err))
	respondError(w, http.StatusServiceUnavailable, "storage_unavailable", "cart could not be saved, try again")
}

// GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	store, ok := h.loadCart(ctx, w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, cartResponse(store))
}

// POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AddItemRequestDTO
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ProductID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "productId is required")
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	if req.Quantity < 1 || req.Quantity > maxQuantity {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 1 and 99")
		return
	}

	store, ok := h.loadCart(ctx, w, r)
	if !ok {
		return
	}

	product, err := h.products.GetProduct(ctx, req.ProductID)
	if err != nil {
		handleUpstreamError(w, r, err)
		return
	}

	if err := store.AddItem(ctx, product.LineItem(req.Quantity), req.Quantity); err != nil {
		respondCartError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, cartResponse(store))
}

// PUT /api/v1/cart/items/{item_id}
// A quantity below 1 leaves the line unchanged; removal has its own route.
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	itemID := chi.URLParam(r, "item_id")
	var req UpdateQuantityRequestDTO
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Quantity > maxQuantity {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 1 and 99")
		return
	}

	store, ok := h.loadCart(ctx, w, r)
	if !ok {
		return
	}
	if err := store.UpdateQuantity(ctx, itemID, req.Quantity); err != nil {
		respondCartError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, cartResponse(store))
}

// DELETE /api/v1/cart/items/{item_id}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	store, ok := h.loadCart(ctx, w, r)
	if !ok {
		return
	}
	if err := store.RemoveItem(ctx, chi.URLParam(r, "item_id")); err != nil {
		respondCartError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, cartResponse(store))
}

// DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	store, ok := h.loadCart(ctx, w, r)
	if !ok {
		return
	}
	if err := store.Clear(ctx); err != nil {
		respondCartError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, cartResponse(store))
}
