package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fjod/hebec-shop/internal/auth"
	"github.com/fjod/hebec-shop/internal/domain"
	"github.com/fjod/hebec-shop/internal/logger"
)

// Accounts signs customers in against the Hebec API.
type Accounts interface {
	Login(ctx context.Context, username, password string) (string, error)
	Profile(ctx context.Context, token string) (domain.Customer, error)
}

type AuthHandler struct {
	accounts Accounts
	sessions *auth.Sessions
	timeout  time.Duration
}

func NewAuthHandler(accounts Accounts, sessions *auth.Sessions, timeout time.Duration) *AuthHandler {
	return &AuthHandler{
		accounts: accounts,
		sessions: sessions,
		timeout:  timeout,
	}
}

type LoginRequestDTO struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type MeResponseDTO struct {
	SessionID string           `json:"sessionId"`
	SignedIn  bool             `json:"signedIn"`
	Customer  *domain.Customer `json:"customer,omitempty"`
}

// POST /api/v1/auth/login
// The cart stays with the session, so signing in keeps whatever the guest collected.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	session, ok := getSession(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}

	var req LoginRequestDTO
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "invalid_credentials", "username and password are required")
		return
	}

	token, err := h.accounts.Login(ctx, req.Username, req.Password)
	if err != nil {
		handleUpstreamError(w, r, err)
		return
	}
	customer, err := h.accounts.Profile(ctx, token)
	if err != nil {
		handleUpstreamError(w, r, err)
		return
	}

	if err := h.sessions.SaveCredentials(ctx, session.ID, auth.Credentials{Token: token, Customer: customer}); err != nil {
		logger.FromContext(ctx).Error("failed to save credentials", zap.Error(err))
		respondError(w, http.StatusServiceUnavailable, "storage_unavailable", "could not sign in, try again")
		return
	}
	logger.FromContext(ctx).Info("customer signed in", zap.String("customer_id", customer.ID))
	respondJSON(w, http.StatusOK, MeResponseDTO{SessionID: session.ID, SignedIn: true, Customer: &customer})
}

// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	session, ok := getSession(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}
	if err := h.sessions.ForgetCredentials(ctx, session.ID); err != nil {
		logger.FromContext(ctx).Error("failed to forget credentials", zap.Error(err))
		respondError(w, http.StatusServiceUnavailable, "storage_unavailable", "could not sign out, try again")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/v1/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	session, ok := getSession(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}
	resp := MeResponseDTO{SessionID: session.ID, SignedIn: session.SignedIn()}
	if session.SignedIn() {
		customer := session.Credentials.Customer
		resp.Customer = &customer
	}
	respondJSON(w, http.StatusOK, resp)
}
