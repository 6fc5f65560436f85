package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/fjod/hebec-shop/internal/api"
	"github.com/fjod/hebec-shop/internal/domain"
	"github.com/fjod/hebec-shop/internal/logger"
	"github.com/fjod/hebec-shop/internal/metrics"
)

// OrderCreator submits composed orders to the remote system.
type OrderCreator interface {
	CreateOrder(ctx context.Context, token string, req domain.OrderRequest) (domain.PlacedOrder, error)
}

// CartSource is the session cart a checkout reads from and clears after a successful order.
type CartSource interface {
	Items() domain.CartSnapshot
	Clear(ctx context.Context) error
}

// CartResolver returns the session's current cart store.
type CartResolver func(ctx context.Context) (CartSource, error)

// Source selects what a checkout buys: the whole cart, or one item bought directly.
// When Resolve is set the cart is looked up again before it is cleared, since the
// store read at Begin may have been evicted and re-hydrated in the meantime.
type Source struct {
	Cart     CartSource
	Resolve  CartResolver
	Direct   *domain.LineItem
	SignedIn bool
}

// StepInput carries the fields of the current step.
type StepInput struct {
	Shipping      *domain.ShippingInfo `json:"shippingInfo,omitempty"`
	PaymentMethod domain.PaymentMethod `json:"paymentMethod,omitempty"`
}

// Placed describes an order the remote system accepted.
type Placed struct {
	SessionID string
	Order     domain.PlacedOrder
	Direct    bool
	Total     decimal.Decimal
}

type PlacedListener func(Placed)

// View is a point-in-time copy of an aggregator.
type View struct {
	State  State               `json:"state"`
	Step   string              `json:"step"`
	Draft  domain.OrderDraft   `json:"draft"`
	Totals Totals              `json:"totals"`
	Error  *SubmitError        `json:"error,omitempty"`
	Order  *domain.PlacedOrder `json:"order,omitempty"`
}

// Aggregator walks one order draft from item selection to submission.
type Aggregator struct {
	mu             sync.Mutex
	sessionID      string
	state          State
	step           Step
	draft          domain.OrderDraft
	cart           CartSource
	resolve        CartResolver
	signedIn       bool
	idempotencyKey string
	submitErr      *SubmitError
	order          *domain.PlacedOrder
	onPlaced       PlacedListener

	orders  OrderCreator
	metrics *metrics.Collector
	log     *zap.Logger
}

func NewAggregator(sessionID string, orders OrderCreator, m *metrics.Collector, log *zap.Logger) *Aggregator {
	return &Aggregator{
		sessionID: sessionID,
		state:     StateLoading,
		orders:    orders,
		metrics:   m,
		log:       log.With(zap.String("session_id", sessionID)),
	}
}

// OnPlaced registers l to run after a successful submission.
func (a *Aggregator) OnPlaced(l PlacedListener) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onPlaced = l
}

// Begin resolves the participating items and opens the first step. The cart is copied,
// so later cart changes do not reach this draft.
func (a *Aggregator) Begin(src Source) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state != StateLoading {
		return ErrIllegalTransition
	}

	var items domain.CartSnapshot
	switch {
	case src.Direct != nil:
		if src.Direct.Quantity < 1 {
			return ErrInvalidQuantity
		}
		direct := *src.Direct
		if direct.WeightGrams <= 0 {
			direct.WeightGrams = domain.DefaultWeightGrams
		}
		items = domain.CartSnapshot{direct}
	case src.Cart != nil:
		items = src.Cart.Items().Clone()
	default:
		items = domain.CartSnapshot{}
	}

	a.draft = domain.OrderDraft{Items: items, IsDirectPurchase: src.Direct != nil}
	a.cart = src.Cart
	a.resolve = src.Resolve
	a.signedIn = src.SignedIn
	a.idempotencyKey = uuid.NewString()
	a.step = StepShipping
	a.state = StateEditing
	return nil
}

// Next validates the current step and advances. After the last step the draft awaits confirmation.
func (a *Aggregator) Next(in StepInput) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state != StateEditing {
		return ErrIllegalTransition
	}

	switch a.step {
	case StepShipping:
		var shipping domain.ShippingInfo
		if in.Shipping != nil {
			shipping = normalizeShipping(*in.Shipping)
		}
		if errs := ValidateShipping(shipping); errs != nil {
			return &ValidationError{Step: StepShipping, Fields: errs}
		}
		a.draft.ShippingInfo = shipping
	case StepPayment:
		if errs := ValidatePayment(in.PaymentMethod, a.signedIn); errs != nil {
			return &ValidationError{Step: StepPayment, Fields: errs}
		}
		a.draft.PaymentMethod = in.PaymentMethod
	}

	if a.step == lastStep {
		a.state = StateAwaitingConfirmation
		return nil
	}
	a.step++
	return nil
}

// Back goes one step back without re-validating. From the review it reopens the last step.
func (a *Aggregator) Back() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch a.state {
	case StateEditing:
		if a.step > StepShipping {
			a.step--
		}
	case StateAwaitingConfirmation:
		a.state = StateEditing
		a.step = lastStep
	default:
		return ErrIllegalTransition
	}
	return nil
}

// Cancel discards the draft.
func (a *Aggregator) Cancel() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !CanTransitionTo(a.state, StateCancelled) {
		return ErrIllegalTransition
	}
	a.state = StateCancelled
	a.draft = domain.OrderDraft{}
	a.submitErr = nil
	return nil
}

// Confirm submits the draft. The lock is not held during the remote call; the SUBMITTING
// state keeps a second Confirm out. token is the customer's remote token, empty for guests.
func (a *Aggregator) Confirm(ctx context.Context, token string) (domain.PlacedOrder, error) {
	a.mu.Lock()
	if a.state == StateSubmitting {
		a.mu.Unlock()
		return domain.PlacedOrder{}, ErrSubmissionInFlight
	}
	if a.state != StateAwaitingConfirmation {
		a.mu.Unlock()
		return domain.PlacedOrder{}, ErrIllegalTransition
	}
	if len(a.draft.Items) == 0 {
		a.state = StateEditing
		a.step = lastStep
		a.mu.Unlock()
		return domain.PlacedOrder{}, ErrEmptyDraft
	}

	req := Compose(a.draft, a.idempotencyKey)
	direct := a.draft.IsDirectPurchase
	cart, resolve := a.cart, a.resolve
	a.state = StateSubmitting
	a.submitErr = nil
	a.mu.Unlock()

	log := logger.FromContext(ctx).With(zap.String("session_id", a.sessionID))
	placed, err := a.orders.CreateOrder(ctx, token, req)
	if err != nil {
		submitErr := classify(err)
		log.Warn("order submission failed",
			zap.String("kind", string(submitErr.Kind)),
			zap.Error(err))
		a.record("failed", direct)

		a.mu.Lock()
		a.state = StateEditing
		a.step = lastStep
		a.submitErr = submitErr
		a.mu.Unlock()
		return domain.PlacedOrder{}, submitErr
	}

	if !direct {
		// the order is already placed, so a failed clear is only logged
		if err := clearCart(ctx, cart, resolve); err != nil {
			log.Error("failed to clear cart after order", zap.String("order_code", placed.Code), zap.Error(err))
		}
	}
	log.Info("order placed", zap.String("order_code", placed.Code), zap.Bool("direct", direct))
	a.record("succeeded", direct)

	a.mu.Lock()
	a.state = StateSucceeded
	a.order = &placed
	a.draft = domain.OrderDraft{}
	onPlaced := a.onPlaced
	a.mu.Unlock()

	if onPlaced != nil {
		onPlaced(Placed{SessionID: a.sessionID, Order: placed, Direct: direct, Total: req.Total})
	}
	return placed, nil
}

func clearCart(ctx context.Context, cart CartSource, resolve CartResolver) error {
	if resolve != nil {
		live, err := resolve(ctx)
		if err != nil {
			return fmt.Errorf("failed to resolve cart: %w", err)
		}
		cart = live
	}
	if cart == nil {
		return nil
	}
	return cart.Clear(ctx)
}

func (a *Aggregator) record(result string, direct bool) {
	if a.metrics == nil {
		return
	}
	kind := "cart"
	if direct {
		kind = "direct"
	}
	a.metrics.OrderSubmissions.WithLabelValues(result, kind).Inc()
}

func classify(err error) *SubmitError {
	var submitErr *SubmitError
	if errors.As(err, &submitErr) {
		return submitErr
	}
	if msg, ok := api.HasMessage(err); ok {
		return &SubmitError{Kind: SubmitRejected, Message: msg}
	}
	return &SubmitError{Kind: SubmitTransport, Message: genericSubmitMessage}
}

func (a *Aggregator) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *Aggregator) View() View {
	a.mu.Lock()
	defer a.mu.Unlock()

	draft := a.draft
	draft.Items = a.draft.Items.Clone()
	v := View{
		State:  a.state,
		Step:   a.step.String(),
		Draft:  draft,
		Totals: ComputeTotals(draft.Items),
	}
	if a.submitErr != nil {
		e := *a.submitErr
		v.Error = &e
	}
	if a.order != nil {
		o := *a.order
		v.Order = &o
	}
	return v
}
