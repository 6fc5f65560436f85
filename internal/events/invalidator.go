package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// MessageReader is the part of *kafka.Reader the invalidator needs.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Evicter drops a session's in-memory cart so the next access re-reads storage.
type Evicter interface {
	Evict(sessionID string)
}

// NewKafkaReader builds a reader in a group of its own, so every instance sees every event.
func NewKafkaReader(brokers []string, topic, instanceID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		GroupID:  "storefront-" + instanceID,
		Topic:    topic,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
}

// Invalidator evicts carts changed by other instances.
type Invalidator struct {
	r          MessageReader
	carts      Evicter
	instanceID string
	backoff    time.Duration
	log        *zap.Logger
}

func NewInvalidator(r MessageReader, carts Evicter, instanceID string, log *zap.Logger) *Invalidator {
	return &Invalidator{
		r:          r,
		carts:      carts,
		instanceID: instanceID,
		backoff:    200 * time.Millisecond,
		log:        log,
	}
}

// Run consumes until ctx is done.
func (i *Invalidator) Run(ctx context.Context) {
	defer func() {
		if err := i.r.Close(); err != nil {
			i.log.Warn("failed to close kafka reader", zap.Error(err))
		}
	}()

	for {
		m, err := i.r.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			i.log.Warn("failed to read event", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(i.backoff):
			}
			continue
		}
		i.handle(m)
	}
}

func (i *Invalidator) handle(m kafka.Message) {
	if header(m, HeaderEventType) != TypeCartChanged || header(m, HeaderInstance) == i.instanceID {
		return
	}

	var e CartChanged
	if err := json.Unmarshal(m.Value, &e); err != nil {
		i.log.Warn("failed to decode cart event", zap.Int64("offset", m.Offset), zap.Error(err))
		return
	}
	if e.SessionID == "" {
		return
	}
	i.carts.Evict(e.SessionID)
	i.log.Debug("evicted cart changed elsewhere", zap.String("session_id", e.SessionID))
}

func header(m kafka.Message, key string) string {
	for _, h := range m.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
