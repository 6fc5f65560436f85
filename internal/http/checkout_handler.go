package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/fjod/hebec-shop/internal/checkout"
	"github.com/fjod/hebec-shop/internal/logger"
)

type CheckoutHandler struct {
	checkouts *checkout.Service
	timeout   time.Duration
}

func NewCheckoutHandler(checkouts *checkout.Service, timeout time.Duration) *CheckoutHandler {
	return &CheckoutHandler{
		checkouts: checkouts,
		timeout:   timeout,
	}
}

type BeginCheckoutRequestDTO struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// respondCheckoutError maps state machine errors; anything else is an upstream failure.
func respondCheckoutError(w http.ResponseWriter, r *http.Request, err error) {
	var vErr *checkout.ValidationError
	var submitErr *checkout.SubmitError
	switch {
	case errors.As(err, &vErr):
		respondJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:  "some fields are invalid",
			Code:   "validation_failed",
			Fields: vErr.Fields,
		})
	case errors.As(err, &submitErr):
		if submitErr.Kind == checkout.SubmitRejected {
			respondError(w, http.StatusUnprocessableEntity, "order_rejected", submitErr.Message)
			return
		}
		respondError(w, http.StatusBadGateway, "order_submission_failed", submitErr.Message)
	case errors.Is(err, checkout.ErrNoCheckout):
		respondError(w, http.StatusNotFound, "no_checkout", "no checkout in progress")
	case errors.Is(err, checkout.ErrSubmissionInFlight):
		respondError(w, http.StatusConflict, "submission_in_flight", "the order is already being submitted")
	case errors.Is(err, checkout.ErrIllegalTransition):
		respondError(w, http.StatusConflict, "illegal_transition", "that action is not available at this checkout step")
	case errors.Is(err, checkout.ErrEmptyDraft):
		respondError(w, http.StatusUnprocessableEntity, "empty_draft", "there is nothing to order")
	case errors.Is(err, checkout.ErrInvalidQuantity):
		respondError(w, http.StatusBadRequest, "invalid_quantity", err.Error())
	default:
		handleUpstreamError(w, r, err)
	}
}

func (h *CheckoutHandler) current(w http.ResponseWriter, r *http.Request) (*checkout.Aggregator, bool) {
	session, ok := getSession(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return nil, false
	}
	agg, err := h.checkouts.Get(session.ID)
	if err != nil {
		respondCheckoutError(w, r, err)
		return nil, false
	}
	return agg, true
}

// POST /api/v1/checkout
func (h *CheckoutHandler) Begin(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	session, ok := getSession(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}

	// an empty body checks out the whole cart
	var req BeginCheckoutRequestDTO
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ProductID != "" && req.Quantity == 0 {
		req.Quantity = 1
	}

	agg, err := h.checkouts.Begin(ctx, session.ID, checkout.BeginRequest{
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
		SignedIn:  session.SignedIn(),
	})
	if err != nil {
		respondCheckoutError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, agg.View())
}

// GET /api/v1/checkout
func (h *CheckoutHandler) Get(w http.ResponseWriter, r *http.Request) {
	agg, ok := h.current(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, agg.View())
}

// POST /api/v1/checkout/next
func (h *CheckoutHandler) Next(w http.ResponseWriter, r *http.Request) {
	agg, ok := h.current(w, r)
	if !ok {
		return
	}

	var in checkout.StepInput
	if err := decodeJSON(r, &in); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if err := agg.Next(in); err != nil {
		respondCheckoutError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, agg.View())
}

// POST /api/v1/checkout/back
func (h *CheckoutHandler) Back(w http.ResponseWriter, r *http.Request) {
	agg, ok := h.current(w, r)
	if !ok {
		return
	}
	if err := agg.Back(); err != nil {
		respondCheckoutError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, agg.View())
}

// POST /api/v1/checkout/confirm
func (h *CheckoutHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	session, _ := getSession(r)
	agg, ok := h.current(w, r)
	if !ok {
		return
	}

	placed, err := agg.Confirm(ctx, session.RemoteToken())
	if err != nil {
		respondCheckoutError(w, r, err)
		return
	}
	logger.FromContext(ctx).Info("checkout confirmed", zap.String("order_code", placed.Code))
	respondJSON(w, http.StatusCreated, agg.View())
}

// DELETE /api/v1/checkout
func (h *CheckoutHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	session, ok := getSession(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}
	if err := h.checkouts.Discard(session.ID); err != nil {
		respondCheckoutError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
