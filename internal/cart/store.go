package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/fjod/hebec-shop/internal/domain"
	"github.com/fjod/hebec-shop/internal/storage"
)

var ErrInvalidItem = errors.New("line item must have an id")

type Operation string

const (
	OpAdd    Operation = "add"
	OpRemove Operation = "remove"
	OpUpdate Operation = "update"
	OpClear  Operation = "clear"
)

// Event describes a successful cart mutation. Items is a copy of the cart after the change.
type Event struct {
	SessionID string
	Op        Operation
	Items     domain.CartSnapshot
}

type Listener func(Event)

// Key is the storage key holding a session's cart.
func Key(sessionID string) string {
	return "cart:" + sessionID
}

// Store is one session's cart. Every mutation is written to storage before it
// becomes visible; a failed write leaves the cart as it was.
type Store struct {
	mu        sync.Mutex
	sessionID string
	storage   storage.Store
	items     domain.CartSnapshot
	log       *zap.Logger
	stale     atomic.Bool // set on eviction; the next mutation re-reads storage first

	listeners map[uint64]Listener
	nextID    uint64
}

// NewStore hydrates the cart of sessionID. A missing or unreadable blob yields an
// empty cart; only storage failures are returned.
func NewStore(ctx context.Context, st storage.Store, sessionID string, log *zap.Logger) (*Store, error) {
	s := &Store{
		sessionID: sessionID,
		storage:   st,
		items:     domain.CartSnapshot{},
		log:       log.With(zap.String("session_id", sessionID)),
		listeners: make(map[uint64]Listener),
	}
	if err := s.Reload(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload replaces the in-memory cart with the persisted one.
func (s *Store) Reload(ctx context.Context) error {
	data, err := s.storage.Get(ctx, Key(s.sessionID))
	if errors.Is(err, storage.ErrNotFound) {
		s.replace(domain.CartSnapshot{})
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load cart: %w", err)
	}

	var items domain.CartSnapshot
	if err := json.Unmarshal(data, &items); err != nil {
		s.log.Warn("discarding unreadable cart", zap.Error(err))
		s.replace(domain.CartSnapshot{})
		return nil
	}

	s.replace(sanitize(items, s.log))
	return nil
}

func (s *Store) replace(items domain.CartSnapshot) {
	s.mu.Lock()
	s.items = items
	s.mu.Unlock()
}

// sanitize drops entries without an id or with a non-positive quantity and merges duplicates.
func sanitize(items domain.CartSnapshot, log *zap.Logger) domain.CartSnapshot {
	out := make(domain.CartSnapshot, 0, len(items))
	for _, item := range items {
		if item.ID == "" || item.Quantity < 1 {
			log.Warn("dropping invalid cart entry", zap.String("item_id", item.ID), zap.Int("quantity", item.Quantity))
			continue
		}
		if item.WeightGrams <= 0 {
			item.WeightGrams = domain.DefaultWeightGrams
		}
		if i := out.IndexOf(item.ID); i >= 0 {
			out[i].Quantity += item.Quantity
			continue
		}
		out = append(out, item)
	}
	return out
}

func (s *Store) SessionID() string {
	return s.sessionID
}

// AddItem merges quantity into the line with the same id, or appends a new line.
// A quantity below 1 is ignored.
func (s *Store) AddItem(ctx context.Context, item domain.LineItem, quantity int) error {
	if item.ID == "" {
		return ErrInvalidItem
	}
	return s.mutate(ctx, OpAdd, func(items domain.CartSnapshot) (domain.CartSnapshot, bool) {
		if quantity < 1 {
			return items, false
		}
		if i := items.IndexOf(item.ID); i >= 0 {
			items[i].Quantity += quantity
			return items, true
		}
		item.Quantity = quantity
		if item.WeightGrams <= 0 {
			item.WeightGrams = domain.DefaultWeightGrams
		}
		return append(items, item), true
	})
}

// RemoveItem deletes the line with the given id; a missing id is not an error.
func (s *Store) RemoveItem(ctx context.Context, id string) error {
	return s.mutate(ctx, OpRemove, func(items domain.CartSnapshot) (domain.CartSnapshot, bool) {
		i := items.IndexOf(id)
		if i < 0 {
			return items, false
		}
		return append(items[:i], items[i+1:]...), true
	})
}

// UpdateQuantity sets a line's quantity exactly. Quantities below 1 are rejected as
// a no-op; removal goes through RemoveItem.
func (s *Store) UpdateQuantity(ctx context.Context, id string, quantity int) error {
	return s.mutate(ctx, OpUpdate, func(items domain.CartSnapshot) (domain.CartSnapshot, bool) {
		if quantity < 1 {
			return items, false
		}
		i := items.IndexOf(id)
		if i < 0 || items[i].Quantity == quantity {
			return items, false
		}
		items[i].Quantity = quantity
		return items, true
	})
}

func (s *Store) Clear(ctx context.Context) error {
	return s.mutate(ctx, OpClear, func(domain.CartSnapshot) (domain.CartSnapshot, bool) {
		return domain.CartSnapshot{}, true
	})
}

// markStale is called when the store leaves the service registry. Callers still
// holding it then mutate on top of the persisted cart, not their old copy.
func (s *Store) markStale() {
	s.stale.Store(true)
}

func (s *Store) mutate(ctx context.Context, op Operation, fn func(domain.CartSnapshot) (domain.CartSnapshot, bool)) error {
	if s.stale.Load() {
		if err := s.Reload(ctx); err != nil {
			return err
		}
		s.stale.Store(false)
	}

	s.mu.Lock()
	next, changed := fn(s.items.Clone())
	if !changed {
		s.mu.Unlock()
		return nil
	}

	data, err := json.Marshal(next)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to marshal cart: %w", err)
	}
	if err := s.storage.Set(ctx, Key(s.sessionID), data); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to persist cart: %w", err)
	}
	s.items = next

	event := Event{SessionID: s.sessionID, Op: op, Items: next.Clone()}
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l(event)
	}
	return nil
}

// Subscribe registers l for every successful mutation. Call the returned func to unsubscribe.
func (s *Store) Subscribe(l Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

func (s *Store) Items() domain.CartSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items.Clone()
}

// ItemCount is the number of distinct lines.
func (s *Store) ItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func (s *Store) TotalQuantity() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items.TotalQuantity()
}

func (s *Store) TotalPrice() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items.Subtotal()
}

func (s *Store) IsEmpty() bool {
	return s.ItemCount() == 0
}
