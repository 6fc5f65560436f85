package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fjod/hebec-shop/internal/domain"
	"github.com/fjod/hebec-shop/internal/metrics"
)

func newTestClient(t *testing.T, h http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, 2*time.Second, zap.NewNop(), opts...)
}

func TestLogin_TokenVariants(t *testing.T) {
	for _, body := range []string{
		`{"token":"tok"}`,
		`{"accessToken":"tok"}`,
		`{"data":{"token":"tok"}}`,
		`{"data":{"accessToken":"tok"}}`,
	} {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/auth/login", r.URL.Path)
			var creds map[string]string
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
			assert.Equal(t, "alice", creds["username"])
			_, _ = w.Write([]byte(body))
		})

		token, err := c.Login(context.Background(), "alice", "secret")
		require.NoError(t, err, body)
		assert.Equal(t, "tok", token)
	}
}

func TestLogin_NoToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	_, err := c.Login(context.Background(), "alice", "secret")
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestClient_RejectionCarriesMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"invalid credentials"}`))
	})

	_, err := c.Login(context.Background(), "alice", "wrong")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	msg, ok := HasMessage(err)
	assert.True(t, ok)
	assert.Equal(t, "invalid credentials", msg)
}

func TestClient_ClientErrorsDoNotTripBreaker(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for i := 0; i < 10; i++ {
		_, err := c.GetProduct(context.Background(), "missing")
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusNotFound, apiErr.Status)
	}
}

func TestClient_ServerErrorsOpenBreaker(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})

	for i := 0; i < 5; i++ {
		_, err := c.ListCategories(context.Background(), ListQuery{})
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
	}

	_, err := c.ListCategories(context.Background(), ListQuery{})
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, int32(5), calls.Load())
}

func TestClient_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewClient(url, time.Second, zap.NewNop())
	_, err := c.Provinces(context.Background())
	assert.ErrorIs(t, err, ErrTransport)
	_, ok := HasMessage(err)
	assert.False(t, ok)
}

func TestListProducts_QueryAndNormalization(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/products", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "20", r.URL.Query().Get("size"))
		assert.Equal(t, "tea", r.URL.Query().Get("search"))
		_, _ = w.Write([]byte(`{"data":{"items":[{"id":7,"name":"Green tea","price":"50000","imageUrl":"/t.png"}],"total":31}}`))
	})

	page, err := c.ListProducts(context.Background(), ListQuery{Page: 2, Size: 20, Search: "tea"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, 31, page.Total)
	assert.Equal(t, "7", page.Items[0].ID)
	assert.Equal(t, "/t.png", page.Items[0].ImageRef)
	assert.True(t, decimal.NewFromInt(50000).Equal(page.Items[0].Price))
}

func TestAdminOrders_SendsBearerToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer admin-token", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"content":[{"id":"o1","orderCode":"HB-1","total":150000}],"totalElements":1}`))
	})

	page, err := c.AdminOrders(context.Background(), "admin-token", ListQuery{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "HB-1", page.Items[0].Code)
}

func TestCreateOrder_Payload(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/orders", r.URL.Path)
		assert.Equal(t, "key-1", r.Header.Get("Idempotency-Key"))
		assert.Empty(t, r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"id":99,"code":"HB-99"}}`))
	})

	placed, err := c.CreateOrder(context.Background(), "", domain.OrderRequest{
		IdempotencyKey: "key-1",
		Shipping:       domain.ShippingInfo{RecipientName: "An", Phone: "0912345678"},
		Address:        "12 Le Loi, Ben Nghe, District 1, HCMC",
		PaymentMethod:  domain.PaymentCOD,
		Subtotal:       decimal.NewFromInt(150000),
		ShippingFee:    decimal.Zero,
		Total:          decimal.NewFromInt(150000),
		TotalWeight:    1500,
		Items: []domain.OrderItemRequest{{
			Quantity: 3, ProductID: "p1", Name: "Tea",
			Price: decimal.NewFromInt(50000), FinalPrice: decimal.NewFromInt(50000), WeightGrams: 500,
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.PlacedOrder{ID: "99", Code: "HB-99"}, placed)

	assert.Equal(t, "COD", got["paymentMethod"])
	assert.Equal(t, float64(150000), got["total"])
	assert.Equal(t, float64(0), got["shippingFee"])
	assert.Equal(t, float64(1500), got["totalWeight"])
	items := got["items"].([]any)
	require.Len(t, items, 1)
	item := items[0].(map[string]any)
	assert.Equal(t, "p1", item["productId"])
	assert.Equal(t, float64(50000), item["finalPrice"])
	assert.Equal(t, false, item["isGift"])
}

func TestCreateOrder_UnreadableSuccessBodyCountsAsPlaced(t *testing.T) {
	for _, body := range []string{``, `<html>created</html>`, `{"id":`} {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(body))
		})

		placed, err := c.CreateOrder(context.Background(), "", domain.OrderRequest{IdempotencyKey: "key-2"})
		require.NoError(t, err, body)
		assert.Equal(t, domain.PlacedOrder{}, placed, body)
	}
}

func TestClient_RecordsUpstreamMetrics(t *testing.T) {
	m := metrics.NewCollector()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}, WithMetrics(m))

	_, err := c.Provinces(context.Background())
	require.NoError(t, err)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.UpstreamRequests.WithLabelValues("address_provinces", "2xx")))
}
