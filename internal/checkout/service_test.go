package checkout

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fjod/hebec-shop/internal/api"
	"github.com/fjod/hebec-shop/internal/cart"
	"github.com/fjod/hebec-shop/internal/domain"
	"github.com/fjod/hebec-shop/internal/storage"
)

type MockProductLookup struct {
	products map[string]domain.Product
}

func (m *MockProductLookup) GetProduct(_ context.Context, id string) (domain.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return domain.Product{}, errors.New("product not found")
	}
	return p, nil
}

func newTestService(t *testing.T, orders OrderCreator) (*Service, *cart.Service) {
	t.Helper()
	carts := cart.NewService(storage.NewMemoryStore(), zap.NewNop())
	products := &MockProductLookup{products: map[string]domain.Product{
		"p1": {ID: "p1", Name: "Green tea", Price: decimal.NewFromInt(50000)},
	}}
	return NewService(carts, products, orders, nil, zap.NewNop()), carts
}

func TestService_BeginDirectPurchaseResolvesProduct(t *testing.T) {
	svc, _ := newTestService(t, &MockOrderCreator{})

	agg, err := svc.Begin(context.Background(), "s1", BeginRequest{ProductID: "p1", Quantity: 3})
	require.NoError(t, err)

	view := agg.View()
	assert.True(t, view.Draft.IsDirectPurchase)
	require.Len(t, view.Draft.Items, 1)
	assert.Equal(t, "Green tea", view.Draft.Items[0].Name)
	assert.Equal(t, 1500, view.Totals.TotalWeight)
}

func TestService_BeginErrors(t *testing.T) {
	svc, _ := newTestService(t, &MockOrderCreator{})

	_, err := svc.Begin(context.Background(), "s1", BeginRequest{ProductID: "p1"})
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = svc.Begin(context.Background(), "s1", BeginRequest{ProductID: "missing", Quantity: 1})
	assert.ErrorContains(t, err, "failed to resolve product missing")

	_, err = svc.Get("s1")
	assert.ErrorIs(t, err, ErrNoCheckout)
}

func TestService_BeginFromCartAndReplace(t *testing.T) {
	svc, carts := newTestService(t, &MockOrderCreator{})
	store, err := carts.Cart(context.Background(), "s1")
	require.NoError(t, err)
	require.NoError(t, store.AddItem(context.Background(), domain.LineItem{ID: "1", UnitPrice: decimal.NewFromInt(37000)}, 1))

	first, err := svc.Begin(context.Background(), "s1", BeginRequest{})
	require.NoError(t, err)
	assert.Len(t, first.View().Draft.Items, 1)

	second, err := svc.Begin(context.Background(), "s1", BeginRequest{ProductID: "p1", Quantity: 1})
	require.NoError(t, err)

	got, err := svc.Get("s1")
	require.NoError(t, err)
	assert.Same(t, second, got)
}

func TestService_Discard(t *testing.T) {
	svc, _ := newTestService(t, &MockOrderCreator{})
	agg, err := svc.Begin(context.Background(), "s1", BeginRequest{})
	require.NoError(t, err)

	require.NoError(t, svc.Discard("s1"))
	assert.Equal(t, StateCancelled, agg.State())
	_, err = svc.Get("s1")
	assert.ErrorIs(t, err, ErrNoCheckout)
	assert.ErrorIs(t, svc.Discard("s1"), ErrNoCheckout)
}

func TestService_OnPlacedFires(t *testing.T) {
	svc, _ := newTestService(t, &MockOrderCreator{placed: domain.PlacedOrder{Code: "HB-5"}})
	var got []Placed
	svc.OnPlaced(func(p Placed) { got = append(got, p) })

	agg, err := svc.Begin(context.Background(), "s1", BeginRequest{ProductID: "p1", Quantity: 2})
	require.NoError(t, err)
	advance(t, agg, domain.PaymentCOD)
	_, err = agg.Confirm(context.Background(), "")
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, "s1", got[0].SessionID)
	assert.Equal(t, "HB-5", got[0].Order.Code)
	assert.True(t, got[0].Direct)
	assert.True(t, decimal.NewFromInt(100000).Equal(got[0].Total))
}

func TestService_ConfirmClearsLiveCartAfterEviction(t *testing.T) {
	ctx := context.Background()
	svc, carts := newTestService(t, &MockOrderCreator{placed: domain.PlacedOrder{Code: "HB-7"}})
	store, err := carts.Cart(ctx, "s1")
	require.NoError(t, err)
	require.NoError(t, store.AddItem(ctx, domain.LineItem{ID: "1", UnitPrice: decimal.NewFromInt(37000)}, 1))

	agg, err := svc.Begin(ctx, "s1", BeginRequest{})
	require.NoError(t, err)
	advance(t, agg, domain.PaymentCOD)

	// the idle janitor or a remote cart.changed event drops the store mid-checkout
	carts.Evict("s1")
	fresh, err := carts.Cart(ctx, "s1")
	require.NoError(t, err)
	require.NotSame(t, store, fresh)
	require.Equal(t, 1, fresh.ItemCount())

	_, err = agg.Confirm(ctx, "")
	require.NoError(t, err)
	assert.True(t, fresh.IsEmpty())

	require.NoError(t, fresh.AddItem(ctx, domain.LineItem{ID: "2", UnitPrice: decimal.NewFromInt(1000)}, 1))
	require.NoError(t, fresh.Reload(ctx))
	items := fresh.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "2", items[0].ID)
}

func TestService_ConfirmClearsPersistedCartWhenEvictedAndNotReloaded(t *testing.T) {
	ctx := context.Background()
	svc, carts := newTestService(t, &MockOrderCreator{placed: domain.PlacedOrder{Code: "HB-8"}})
	store, err := carts.Cart(ctx, "s1")
	require.NoError(t, err)
	require.NoError(t, store.AddItem(ctx, domain.LineItem{ID: "1", UnitPrice: decimal.NewFromInt(37000)}, 2))

	agg, err := svc.Begin(ctx, "s1", BeginRequest{})
	require.NoError(t, err)
	advance(t, agg, domain.PaymentCOD)

	carts.Evict("s1")
	_, err = agg.Confirm(ctx, "")
	require.NoError(t, err)

	live, err := carts.Cart(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, live.IsEmpty())
}

func TestService_ReleasesCheckoutOncePlaced(t *testing.T) {
	svc, _ := newTestService(t, &MockOrderCreator{placed: domain.PlacedOrder{Code: "HB-9"}})

	for i := 0; i < 50; i++ {
		session := fmt.Sprintf("s%d", i)
		agg, err := svc.Begin(context.Background(), session, BeginRequest{ProductID: "p1", Quantity: 1})
		require.NoError(t, err)
		advance(t, agg, domain.PaymentCOD)
		_, err = agg.Confirm(context.Background(), "")
		require.NoError(t, err)
		assert.Equal(t, StateSucceeded, agg.State())
	}

	assert.Zero(t, svc.Len())
	_, err := svc.Get("s0")
	assert.ErrorIs(t, err, ErrNoCheckout)
}

func TestService_FailedSubmissionKeepsCheckout(t *testing.T) {
	svc, _ := newTestService(t, &MockOrderCreator{err: &api.APIError{Status: 409, Message: "out of stock"}})

	agg, err := svc.Begin(context.Background(), "s1", BeginRequest{ProductID: "p1", Quantity: 1})
	require.NoError(t, err)
	advance(t, agg, domain.PaymentCOD)
	_, err = agg.Confirm(context.Background(), "")
	require.Error(t, err)

	got, err := svc.Get("s1")
	require.NoError(t, err)
	assert.Same(t, agg, got)
}

func TestService_EvictIdle(t *testing.T) {
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	orders := &MockOrderCreator{block: make(chan struct{}), started: make(chan struct{})}
	svc, _ := newTestService(t, orders)
	svc.now = func() time.Time { return now }

	_, err := svc.Begin(context.Background(), "idle", BeginRequest{})
	require.NoError(t, err)
	submitting, err := svc.Begin(context.Background(), "submitting", BeginRequest{ProductID: "p1", Quantity: 1})
	require.NoError(t, err)
	advance(t, submitting, domain.PaymentCOD)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = submitting.Confirm(context.Background(), "")
	}()
	<-orders.started

	now = now.Add(2 * time.Hour)
	_, err = svc.Begin(context.Background(), "recent", BeginRequest{})
	require.NoError(t, err)

	assert.Equal(t, 1, svc.EvictIdle(time.Hour))
	_, err = svc.Get("idle")
	assert.ErrorIs(t, err, ErrNoCheckout)
	_, err = svc.Get("recent")
	assert.NoError(t, err)
	_, err = svc.Get("submitting")
	assert.NoError(t, err)

	close(orders.block)
	<-done
	assert.Equal(t, 1, svc.Len())
}
