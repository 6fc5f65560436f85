package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/fjod/hebec-shop/internal/cart"
	"github.com/fjod/hebec-shop/internal/checkout"
)

// MessageWriter is the part of *kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
}

// Publisher queues events in memory and writes them from a single goroutine,
// so request handlers never wait on the broker.
type Publisher struct {
	w          MessageWriter
	inbox      chan kafka.Message
	done       chan struct{}
	instanceID string
	timeout    time.Duration
	log        *zap.Logger
}

func NewPublisher(w MessageWriter, instanceID string, buf int, log *zap.Logger) *Publisher {
	return &Publisher{
		w:          w,
		inbox:      make(chan kafka.Message, buf),
		done:       make(chan struct{}),
		instanceID: instanceID,
		timeout:    5 * time.Second,
		log:        log,
	}
}

// Start runs the write loop until ctx is done, then flushes what is queued and closes the writer.
func (p *Publisher) Start(ctx context.Context) {
	go func() {
		defer close(p.done)
		for {
			select {
			case <-ctx.Done():
				p.flush()
				if err := p.w.Close(); err != nil {
					p.log.Warn("failed to close kafka writer", zap.Error(err))
				}
				return
			case m := <-p.inbox:
				p.write(m)
			}
		}
	}()
}

func (p *Publisher) flush() {
	for {
		select {
		case m := <-p.inbox:
			p.write(m)
		default:
			return
		}
	}
}

func (p *Publisher) write(m kafka.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	if err := p.w.WriteMessages(ctx, m); err != nil {
		p.log.Warn("failed to publish event",
			zap.String("key", string(m.Key)),
			zap.Error(err))
	}
}

// Wait blocks until the write loop has exited.
func (p *Publisher) Wait() {
	<-p.done
}

// Publish enqueues an event keyed by key. A full queue drops the event.
func (p *Publisher) Publish(eventType, key string, payload any) {
	value, err := json.Marshal(payload)
	if err != nil {
		p.log.Error("failed to encode event", zap.String("event_type", eventType), zap.Error(err))
		return
	}

	m := kafka.Message{
		Key:   []byte(key),
		Value: value,
		Time:  time.Now(),
		Headers: []kafka.Header{
			{Key: HeaderEventType, Value: []byte(eventType)},
			{Key: HeaderInstance, Value: []byte(p.instanceID)},
		},
	}
	select {
	case p.inbox <- m:
	default:
		p.log.Warn("event queue full, dropping event",
			zap.String("event_type", eventType),
			zap.String("key", key))
	}
}

// CartChanged is a cart.Listener publishing every mutation.
func (p *Publisher) CartChanged(e cart.Event) {
	p.Publish(TypeCartChanged, e.SessionID, CartChanged{
		SessionID:     e.SessionID,
		Operation:     string(e.Op),
		ItemCount:     len(e.Items),
		TotalQuantity: e.Items.TotalQuantity(),
		Subtotal:      e.Items.Subtotal(),
		OccurredAt:    time.Now().UTC(),
	})
}

// OrderPlaced is a checkout.PlacedListener publishing every accepted order.
func (p *Publisher) OrderPlaced(e checkout.Placed) {
	p.Publish(TypeOrderPlaced, e.SessionID, OrderPlaced{
		SessionID:  e.SessionID,
		OrderCode:  e.Order.Code,
		Direct:     e.Direct,
		Total:      e.Total,
		OccurredAt: time.Now().UTC(),
	})
}
