package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/config"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/middleware"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/models"
)

// EventType names a storefront event.
type EventType string

const (
	EventTypeOrderPlaced    EventType = "order.placed"
	EventTypeOrderDeleted   EventType = "order.deleted"
	EventTypeSessionChanged EventType = "session.changed"
)

// Event is the envelope written to Kafka.
type Event struct {
	ID            string            `json:"id"`
	Type          EventType         `json:"type"`
	Key           string            `json:"key"`
	UserID        string            `json:"user_id"`
	Source        string            `json:"source"`
	Data          json.RawMessage   `json:"data"`
	Metadata      map[string]string `json:"metadata"`
	Timestamp     time.Time         `json:"timestamp"`
	CorrelationID string            `json:"correlation_id,omitempty"`
}

// Publisher emits storefront events. Publishing is best effort: callers log
// failures and carry on.
type Publisher interface {
	PublishOrderPlaced(ctx context.Context, uid string, order *models.Order) error
	PublishOrderDeleted(ctx context.Context, uid, orderID string) error
	PublishSessionChanged(ctx context.Context, ev models.SessionEvent) error
	Close() error
}

// KafkaPublisher publishes events to Kafka. Order events go to the orders
// topic keyed by order id; session events go to the sessions topic keyed by
// user id.
type KafkaPublisher struct {
	writer        *kafka.Writer
	ordersTopic   string
	sessionsTopic string
	source        string
	logger        *logging.LoggerV2
}

// NewKafkaPublisher creates a new Kafka-based event publisher. source
// identifies this process so its own session events can be skipped on
// consumption.
func NewKafkaPublisher(cfg config.KafkaConfig, source string, logger *logging.LoggerV2) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.LeastBytes{},
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
	}

	return &KafkaPublisher{
		writer:        writer,
		ordersTopic:   cfg.OrdersTopic,
		sessionsTopic: cfg.SessionsTopic,
		source:        source,
		logger:        logger,
	}
}

// PublishOrderPlaced publishes an order placed event.
func (p *KafkaPublisher) PublishOrderPlaced(ctx context.Context, uid string, order *models.Order) error {
	data, err := json.Marshal(order)
	if err != nil {
		return err
	}
	event := newEvent(ctx, EventTypeOrderPlaced, order.ID, uid, p.source, data)
	return p.publish(ctx, p.ordersTopic, event)
}

// PublishOrderDeleted publishes an order deleted event.
func (p *KafkaPublisher) PublishOrderDeleted(ctx context.Context, uid, orderID string) error {
	data, err := json.Marshal(map[string]string{"order_id": orderID})
	if err != nil {
		return err
	}
	event := newEvent(ctx, EventTypeOrderDeleted, orderID, uid, p.source, data)
	return p.publish(ctx, p.ordersTopic, event)
}

// PublishSessionChanged publishes a sign-in or sign-out.
func (p *KafkaPublisher) PublishSessionChanged(ctx context.Context, ev models.SessionEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	event := newEvent(ctx, EventTypeSessionChanged, ev.UserID, ev.UserID, p.source, data)
	return p.publish(ctx, p.sessionsTopic, event)
}

func newEvent(ctx context.Context, eventType EventType, key, uid, source string, data []byte) *Event {
	return &Event{
		ID:            uuid.NewString(),
		Type:          eventType,
		Key:           key,
		UserID:        uid,
		Source:        source,
		Data:          data,
		Metadata:      make(map[string]string),
		Timestamp:     time.Now(),
		CorrelationID: middleware.RequestIDFromContext(ctx),
	}
}

func (p *KafkaPublisher) publish(ctx context.Context, topic string, event *Event) error {
	eventData, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(event.Key),
		Value: eventData,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
			{Key: "event_id", Value: []byte(event.ID)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish event", logging.Fields{
			"event_id":   event.ID,
			"event_type": event.Type,
			"key":        event.Key,
			"error":      err.Error(),
		})
		return err
	}

	p.logger.Info("Event published", logging.Fields{
		"event_id":   event.ID,
		"event_type": event.Type,
		"key":        event.Key,
	})
	return nil
}

// Close closes the Kafka writer.
func (p *KafkaPublisher) Close() error {
	p.logger.Info("Closing Kafka publisher")
	return p.writer.Close()
}

// NoopPublisher drops every event. It is used when events are disabled.
type NoopPublisher struct{}

func (NoopPublisher) PublishOrderPlaced(ctx context.Context, uid string, order *models.Order) error {
	return nil
}

func (NoopPublisher) PublishOrderDeleted(ctx context.Context, uid, orderID string) error {
	return nil
}

func (NoopPublisher) PublishSessionChanged(ctx context.Context, ev models.SessionEvent) error {
	return nil
}

func (NoopPublisher) Close() error { return nil }

// MockEventPublisher records events for tests.
type MockEventPublisher struct {
	mu     sync.Mutex
	Events []*Event
	Err    error
}

func NewMockEventPublisher() *MockEventPublisher {
	return &MockEventPublisher{
		Events: make([]*Event, 0),
	}
}

func (m *MockEventPublisher) record(eventType EventType, key, uid string, v interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	data, _ := json.Marshal(v)
	m.Events = append(m.Events, &Event{Type: eventType, Key: key, UserID: uid, Data: data})
	return nil
}

func (m *MockEventPublisher) PublishOrderPlaced(ctx context.Context, uid string, order *models.Order) error {
	return m.record(EventTypeOrderPlaced, order.ID, uid, order)
}

func (m *MockEventPublisher) PublishOrderDeleted(ctx context.Context, uid, orderID string) error {
	return m.record(EventTypeOrderDeleted, orderID, uid, nil)
}

func (m *MockEventPublisher) PublishSessionChanged(ctx context.Context, ev models.SessionEvent) error {
	return m.record(EventTypeSessionChanged, ev.UserID, ev.UserID, ev)
}

func (m *MockEventPublisher) Close() error { return nil }

// Types returns the recorded event types in order.
func (m *MockEventPublisher) Types() []EventType {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]EventType, len(m.Events))
	for i, e := range m.Events {
		out[i] = e.Type
	}
	return out
}
