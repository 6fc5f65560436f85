package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/fjod/hebec-shop/internal/api"
	"github.com/fjod/hebec-shop/internal/logger"
)

type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code,omitempty"`
	Details string            `json:"details,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zap.L().Warn("failed to encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// handleUpstreamError maps failures of the Hebec API to storefront responses.
func handleUpstreamError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *api.APIError
	switch {
	case errors.Is(err, api.ErrUnavailable):
		respondError(w, http.StatusServiceUnavailable, "service_unavailable", "the shop backend is temporarily unavailable")
		return
	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, http.StatusGatewayTimeout, "timeout", "the shop backend did not answer in time")
		return
	case errors.Is(err, api.ErrTransport), errors.Is(err, api.ErrUnexpectedShape):
		logger.FromContext(r.Context()).Warn("upstream call failed", zap.Error(err))
		respondError(w, http.StatusBadGateway, "bad_gateway", "the shop backend could not be reached")
		return
	case errors.As(err, &apiErr):
	default:
		logger.FromContext(r.Context()).Error("unexpected error", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	var httpStatus int
	var code string

	switch apiErr.Status {
	case http.StatusBadRequest:
		httpStatus = http.StatusBadRequest
		code = "invalid_argument"
	case http.StatusUnauthorized:
		httpStatus = http.StatusUnauthorized
		code = "unauthenticated"
	case http.StatusForbidden:
		httpStatus = http.StatusForbidden
		code = "permission_denied"
	case http.StatusNotFound:
		httpStatus = http.StatusNotFound
		code = "not_found"
	case http.StatusConflict:
		httpStatus = http.StatusConflict
		code = "already_exists"
	case http.StatusUnprocessableEntity:
		httpStatus = http.StatusUnprocessableEntity
		code = "unprocessable"
	case http.StatusTooManyRequests:
		httpStatus = http.StatusTooManyRequests
		code = "rate_limit_exceeded"
	default:
		httpStatus = http.StatusBadGateway
		code = "upstream_error"
	}

	message := apiErr.Message
	if message == "" {
		message = http.StatusText(httpStatus)
	}
	respondError(w, httpStatus, code, message)
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}
