package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fjod/hebec-shop/internal/api"
)

func TestHandleUpstreamError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"breaker open", api.ErrUnavailable, http.StatusServiceUnavailable, "service_unavailable"},
		{"transport", fmt.Errorf("%w: dial tcp", api.ErrTransport), http.StatusBadGateway, "bad_gateway"},
		{"odd shape", fmt.Errorf("products_list: %w", api.ErrUnexpectedShape), http.StatusBadGateway, "bad_gateway"},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout, "timeout"},
		{"bad request", &api.APIError{Status: 400}, http.StatusBadRequest, "invalid_argument"},
		{"unauthenticated", &api.APIError{Status: 401}, http.StatusUnauthorized, "unauthenticated"},
		{"forbidden", &api.APIError{Status: 403}, http.StatusForbidden, "permission_denied"},
		{"not found", &api.APIError{Status: 404}, http.StatusNotFound, "not_found"},
		{"conflict", &api.APIError{Status: 409}, http.StatusConflict, "already_exists"},
		{"throttled", &api.APIError{Status: 429}, http.StatusTooManyRequests, "rate_limit_exceeded"},
		{"upstream 500", &api.APIError{Status: 500}, http.StatusBadGateway, "upstream_error"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			handleUpstreamError(rec, req, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			resp := decode[ErrorResponse](t, rec)
			assert.Equal(t, tt.wantCode, resp.Code)
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestHandleUpstreamError_KeepsRemoteMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	handleUpstreamError(rec, httptest.NewRequest(http.MethodGet, "/", nil),
		&api.APIError{Status: http.StatusNotFound, Message: "no such product"})
	assert.Equal(t, "no such product", decode[ErrorResponse](t, rec).Error)
}
