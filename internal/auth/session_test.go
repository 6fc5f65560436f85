package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fjod/hebec-shop/internal/domain"
	"github.com/fjod/hebec-shop/internal/storage"
)

func TestIssueAndParse(t *testing.T) {
	s := NewSessions("secret", time.Hour, storage.NewMemoryStore())

	token, expiresAt, err := s.Issue("session-1")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := s.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "session-1", claims.SessionID)
	assert.Equal(t, issuer, claims.Issuer)
}

func TestParse_Rejects(t *testing.T) {
	s := NewSessions("secret", time.Hour, storage.NewMemoryStore())
	other := NewSessions("other-secret", time.Hour, storage.NewMemoryStore())

	foreign, _, err := other.Issue("session-1")
	require.NoError(t, err)
	_, err = s.Parse(foreign)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = s.Parse("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := NewSessions("secret", time.Hour, storage.NewMemoryStore())
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, _, err := expired.Issue("session-1")
	require.NoError(t, err)
	_, err = s.Parse(old)
	assert.ErrorIs(t, err, ErrInvalidToken)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{SessionID: "x"})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = s.Parse(unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestCredentials_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewSessions("secret", time.Hour, storage.NewMemoryStore())

	creds, err := s.Credentials(ctx, "session-1")
	require.NoError(t, err)
	assert.Nil(t, creds)

	require.NoError(t, s.SaveCredentials(ctx, "session-1", Credentials{
		Token:    "remote-token",
		Customer: domain.Customer{ID: "c1", FullName: "An"},
	}))
	creds, err = s.Credentials(ctx, "session-1")
	require.NoError(t, err)
	require.NotNil(t, creds)
	assert.Equal(t, "remote-token", creds.Token)
	assert.Equal(t, "An", creds.Customer.FullName)

	require.NoError(t, s.ForgetCredentials(ctx, "session-1"))
	creds, err = s.Credentials(ctx, "session-1")
	require.NoError(t, err)
	assert.Nil(t, creds)
}

func captureSession(t *testing.T, s *Sessions, req *http.Request) (Session, *httptest.ResponseRecorder) {
	t.Helper()
	var got Session
	h := s.Middleware(false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var ok bool
		got, ok = FromContext(r.Context())
		require.True(t, ok)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return got, rec
}

func TestMiddleware_MintsAnonymousSession(t *testing.T) {
	s := NewSessions("secret", time.Hour, storage.NewMemoryStore())

	session, rec := captureSession(t, s, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, session.ID)
	assert.False(t, session.SignedIn())

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, cookies[0].Value, rec.Header().Get(TokenHeader))

	// the cookie brings the same session back
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	again, rec2 := captureSession(t, s, req)
	assert.Equal(t, session.ID, again.ID)
	assert.Empty(t, rec2.Result().Cookies())
}

func TestMiddleware_BearerTokenAndCredentials(t *testing.T) {
	s := NewSessions("secret", time.Hour, storage.NewMemoryStore())
	require.NoError(t, s.SaveCredentials(context.Background(), "session-9", Credentials{Token: "remote"}))
	token, _, err := s.Issue("session-9")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	session, _ := captureSession(t, s, req)

	assert.Equal(t, "session-9", session.ID)
	assert.True(t, session.SignedIn())
	assert.Equal(t, "remote", session.RemoteToken())
}

func TestMiddleware_ReplacesInvalidToken(t *testing.T) {
	s := NewSessions("secret", time.Hour, storage.NewMemoryStore())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "garbage"})

	session, rec := captureSession(t, s, req)
	assert.NotEmpty(t, session.ID)
	assert.NotEmpty(t, rec.Header().Get(TokenHeader))
}
