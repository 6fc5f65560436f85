package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fjod/hebec-shop/internal/domain"
	"github.com/fjod/hebec-shop/internal/logger"
	"github.com/fjod/hebec-shop/internal/storage"
)

const (
	CookieName  = "hebec_session"
	TokenHeader = "X-Session-Token"
	issuer      = "hebec-storefront"
)

var ErrInvalidToken = errors.New("invalid session token")

// Claims identify a storefront session. Customer credentials never go into the token.
type Claims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// Credentials are what a signed-in session holds for the Hebec API.
type Credentials struct {
	Token    string          `json:"token"`
	Customer domain.Customer `json:"customer"`
}

// Session is attached to every request context by the middleware.
type Session struct {
	ID          string
	Credentials *Credentials
}

func (s Session) SignedIn() bool {
	return s.Credentials != nil && s.Credentials.Token != ""
}

// RemoteToken is the bearer token for the Hebec API, empty for guests.
func (s Session) RemoteToken() string {
	if s.Credentials == nil {
		return ""
	}
	return s.Credentials.Token
}

type sessionKey struct{}

func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

func FromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(Session)
	return s, ok
}

// Sessions issues session tokens and keeps per-session credentials in storage.
type Sessions struct {
	secret []byte
	ttl    time.Duration
	store  storage.Store
	now    func() time.Time
}

func NewSessions(secret string, ttl time.Duration, st storage.Store) *Sessions {
	return &Sessions{
		secret: []byte(secret),
		ttl:    ttl,
		store:  st,
		now:    time.Now,
	}
}

func credentialsKey(sessionID string) string {
	return "auth:" + sessionID
}

// Issue signs a token for sessionID.
func (s *Sessions) Issue(sessionID string) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.ttl)
	claims := &Claims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   sessionID,
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return token, expiresAt, nil
}

// Parse validates a session token and returns its claims.
func (s *Sessions) Parse(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.SessionID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *Sessions) SaveCredentials(ctx context.Context, sessionID string, c Credentials) error {
	blob, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}
	return s.store.Set(ctx, credentialsKey(sessionID), blob)
}

// Credentials returns the stored credentials of sessionID, or nil for a guest session.
func (s *Sessions) Credentials(ctx context.Context, sessionID string) (*Credentials, error) {
	blob, err := s.store.Get(ctx, credentialsKey(sessionID))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var c Credentials
	if err := json.Unmarshal(blob, &c); err != nil {
		return nil, fmt.Errorf("failed to decode credentials: %w", err)
	}
	return &c, nil
}

func (s *Sessions) ForgetCredentials(ctx context.Context, sessionID string) error {
	return s.store.Delete(ctx, credentialsKey(sessionID))
}

// Middleware resolves the session of each request from the cookie or a bearer token,
// minting a new anonymous session when neither is valid.
func (s *Sessions) Middleware(secureCookies bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log := logger.FromContext(r.Context())

			sessionID := ""
			if raw := tokenFromRequest(r); raw != "" {
				if claims, err := s.Parse(raw); err == nil {
					sessionID = claims.SessionID
				} else {
					log.Debug("discarding session token", zap.Error(err))
				}
			}

			if sessionID == "" {
				sessionID = uuid.NewString()
				token, expiresAt, err := s.Issue(sessionID)
				if err != nil {
					log.Error("failed to issue session token", zap.Error(err))
					http.Error(w, "internal server error", http.StatusInternalServerError)
					return
				}
				http.SetCookie(w, &http.Cookie{
					Name:     CookieName,
					Value:    token,
					Path:     "/",
					Expires:  expiresAt,
					HttpOnly: true,
					Secure:   secureCookies,
					SameSite: http.SameSiteLaxMode,
				})
				w.Header().Set(TokenHeader, token)
			}

			session := Session{ID: sessionID}
			creds, err := s.Credentials(r.Context(), sessionID)
			if err != nil {
				log.Warn("failed to load session credentials", zap.String("session_id", sessionID), zap.Error(err))
			}
			session.Credentials = creds

			ctx := WithSession(r.Context(), session)
			ctx = logger.WithContext(ctx, log.With(zap.String("session_id", sessionID)))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func tokenFromRequest(r *http.Request) string {
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	if c, err := r.Cookie(CookieName); err == nil {
		return c.Value
	}
	return ""
}
