package cart

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/fjod/hebec-shop/internal/storage"
)

type entry struct {
	store      *Store
	lastAccess time.Time
}

// Service hands out one Store per session and fans their events out to
// service-wide listeners.
type Service struct {
	storage storage.Store
	log     *zap.Logger
	sfg     singleflight.Group // collapses concurrent hydration of one session

	mu     sync.Mutex
	stores map[string]*entry

	lmu       sync.RWMutex
	listeners map[uint64]Listener
	nextID    uint64

	now func() time.Time
}

func NewService(st storage.Store, log *zap.Logger) *Service {
	return &Service{
		storage:   st,
		log:       log,
		stores:    make(map[string]*entry),
		listeners: make(map[uint64]Listener),
		now:       time.Now,
	}
}

// Cart returns the session's store, hydrating it from storage on first use.
func (s *Service) Cart(ctx context.Context, sessionID string) (*Store, error) {
	if st := s.lookup(sessionID); st != nil {
		return st, nil
	}

	// the hydration is shared by every waiting caller
	hctx := context.WithoutCancel(ctx)
	v, err, _ := s.sfg.Do(sessionID, func() (interface{}, error) {
		if st := s.lookup(sessionID); st != nil {
			return st, nil
		}
		st, err := NewStore(hctx, s.storage, sessionID, s.log)
		if err != nil {
			return nil, err
		}
		st.Subscribe(s.dispatch)

		s.mu.Lock()
		s.stores[sessionID] = &entry{store: st, lastAccess: s.now()}
		s.mu.Unlock()
		return st, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Store), nil
}

func (s *Service) lookup(sessionID string) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.stores[sessionID]
	if !ok {
		return nil
	}
	e.lastAccess = s.now()
	return e.store
}

// Evict drops the in-memory copy of a session's cart; the next access re-reads storage.
func (s *Service) Evict(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.stores[sessionID]; ok {
		e.store.markStale()
		delete(s.stores, sessionID)
	}
}

// EvictIdle drops carts not accessed within idle and returns how many were removed.
func (s *Service) EvictIdle(idle time.Duration) int {
	cutoff := s.now().Add(-idle)
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int
	for id, e := range s.stores {
		if e.lastAccess.Before(cutoff) {
			e.store.markStale()
			delete(s.stores, id)
			n++
		}
	}
	return n
}

// Run evicts idle carts every interval until ctx is done.
func (s *Service) Run(ctx context.Context, interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n := s.EvictIdle(idle); n > 0 {
				s.log.Debug("evicted idle carts", zap.Int("count", n))
			}
		case <-ctx.Done():
			return
		}
	}
}

func (s *Service) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.stores)
}

// Subscribe registers l for mutations of every session's cart.
func (s *Service) Subscribe(l Listener) func() {
	s.lmu.Lock()
	defer s.lmu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l

	return func() {
		s.lmu.Lock()
		defer s.lmu.Unlock()
		delete(s.listeners, id)
	}
}

func (s *Service) dispatch(e Event) {
	s.lmu.RLock()
	defer s.lmu.RUnlock()
	for _, l := range s.listeners {
		l(e)
	}
}
