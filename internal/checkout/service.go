package checkout

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fjod/hebec-shop/internal/cart"
	"github.com/fjod/hebec-shop/internal/domain"
	"github.com/fjod/hebec-shop/internal/metrics"
)

// ProductLookup resolves the product of a direct purchase.
type ProductLookup interface {
	GetProduct(ctx context.Context, id string) (domain.Product, error)
}

// BeginRequest starts a checkout. An empty ProductID checks out the session cart.
type BeginRequest struct {
	ProductID string `json:"productId,omitempty"`
	Quantity  int    `json:"quantity,omitempty"`
	SignedIn  bool   `json:"-"`
}

type draft struct {
	agg        *Aggregator
	lastAccess time.Time
}

// Service keeps one checkout per session. A checkout is released once its order
// is placed, when it is discarded, or after it sits idle.
type Service struct {
	mu       sync.Mutex
	drafts   map[string]*draft
	carts    *cart.Service
	products ProductLookup
	orders   OrderCreator
	metrics  *metrics.Collector
	log      *zap.Logger
	onPlaced PlacedListener

	now func() time.Time
}

func NewService(carts *cart.Service, products ProductLookup, orders OrderCreator, m *metrics.Collector, log *zap.Logger) *Service {
	return &Service{
		drafts:   make(map[string]*draft),
		carts:    carts,
		products: products,
		orders:   orders,
		metrics:  m,
		log:      log,
		now:      time.Now,
	}
}

// OnPlaced registers l for orders placed by any checkout of this service.
func (s *Service) OnPlaced(l PlacedListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onPlaced = l
}

// Begin opens a checkout for sessionID, replacing any earlier draft that is not being submitted.
func (s *Service) Begin(ctx context.Context, sessionID string, req BeginRequest) (*Aggregator, error) {
	if existing := s.lookup(sessionID); existing != nil && existing.State() == StateSubmitting {
		return nil, ErrSubmissionInFlight
	}

	store, err := s.carts.Cart(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	src := Source{
		Cart:     store,
		Resolve:  s.cartResolver(sessionID),
		SignedIn: req.SignedIn,
	}

	if req.ProductID != "" {
		if req.Quantity < 1 {
			return nil, ErrInvalidQuantity
		}
		product, err := s.products.GetProduct(ctx, req.ProductID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve product %s: %w", req.ProductID, err)
		}
		item := product.LineItem(req.Quantity)
		src.Direct = &item
	}

	agg := NewAggregator(sessionID, s.orders, s.metrics, s.log)
	agg.OnPlaced(func(p Placed) { s.placed(agg, p) })
	if err := agg.Begin(src); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if current, ok := s.drafts[sessionID]; ok && current.agg.State() == StateSubmitting {
		return nil, ErrSubmissionInFlight
	}
	s.drafts[sessionID] = &draft{agg: agg, lastAccess: s.now()}
	return agg, nil
}

func (s *Service) cartResolver(sessionID string) CartResolver {
	return func(ctx context.Context) (CartSource, error) {
		store, err := s.carts.Cart(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
}

// placed forgets a checkout whose order went through, then notifies the listener.
func (s *Service) placed(agg *Aggregator, p Placed) {
	s.mu.Lock()
	if d, ok := s.drafts[p.SessionID]; ok && d.agg == agg {
		delete(s.drafts, p.SessionID)
	}
	l := s.onPlaced
	s.mu.Unlock()

	if l != nil {
		l(p)
	}
}

// Get returns the session's checkout or ErrNoCheckout.
func (s *Service) Get(sessionID string) (*Aggregator, error) {
	if agg := s.lookup(sessionID); agg != nil {
		return agg, nil
	}
	return nil, ErrNoCheckout
}

// Discard cancels and forgets the session's checkout.
func (s *Service) Discard(sessionID string) error {
	s.mu.Lock()
	d, ok := s.drafts[sessionID]
	if !ok {
		s.mu.Unlock()
		return ErrNoCheckout
	}
	agg := d.agg
	if agg.State() == StateSubmitting {
		s.mu.Unlock()
		return ErrSubmissionInFlight
	}
	delete(s.drafts, sessionID)
	s.mu.Unlock()

	if agg.State().IsTerminal() {
		return nil
	}
	return agg.Cancel()
}

// EvictIdle drops checkouts not accessed within idle and returns how many were removed.
// Checkouts being submitted are kept.
func (s *Service) EvictIdle(idle time.Duration) int {
	cutoff := s.now().Add(-idle)
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int
	for id, d := range s.drafts {
		if d.lastAccess.Before(cutoff) && d.agg.State() != StateSubmitting {
			delete(s.drafts, id)
			n++
		}
	}
	return n
}

// Run evicts idle checkouts every interval until ctx is done.
func (s *Service) Run(ctx context.Context, interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n := s.EvictIdle(idle); n > 0 {
				s.log.Debug("evicted idle checkouts", zap.Int("count", n))
			}
		case <-ctx.Done():
			return
		}
	}
}

func (s *Service) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.drafts)
}

func (s *Service) lookup(sessionID string) *Aggregator {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drafts[sessionID]
	if !ok {
		return nil
	}
	d.lastAccess = s.now()
	return d.agg
}
