package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/config"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/models"
)

// SessionHandler receives session changes published by other instances.
type SessionHandler func(ctx context.Context, ev models.SessionEvent)

const (
	minReadBackoff = 500 * time.Millisecond
	maxReadBackoff = 30 * time.Second
)

// messageReader is the part of *kafka.Reader the consumer uses.
type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// SessionConsumer reads session events from Kafka and hands the ones
// published by other instances to a handler.
type SessionConsumer struct {
	reader     messageReader
	topic      string
	source     string
	handler    SessionHandler
	logger     *logging.LoggerV2
	stopCh     chan struct{}
	minBackoff time.Duration
	maxBackoff time.Duration
}

// NewSessionConsumer creates a consumer. Every instance needs its own
// consumer group so that each one sees every event.
func NewSessionConsumer(cfg config.KafkaConfig, source string, handler SessionHandler, logger *logging.LoggerV2) *SessionConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.SessionsTopic,
		GroupID:     cfg.ConsumerGroup + "-" + source,
		MinBytes:    1,
		MaxBytes:    10e6,
		MaxWait:     time.Second,
		StartOffset: kafka.LastOffset,
	})

	return &SessionConsumer{
		reader:     reader,
		topic:      cfg.SessionsTopic,
		source:     source,
		handler:    handler,
		logger:     logger,
		stopCh:     make(chan struct{}),
		minBackoff: minReadBackoff,
		maxBackoff: maxReadBackoff,
	}
}

// Start consumes until ctx is cancelled or Stop is called.
func (c *SessionConsumer) Start(ctx context.Context) error {
	c.logger.Info("Starting Kafka consumer", logging.Fields{"topic": c.topic})

	backoff := c.minBackoff
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.stopCh:
			c.logger.Info("Kafka consumer stopped")
			return nil
		default:
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				select {
				case <-c.stopCh:
					return nil
				default:
				}
				if ctx.Err() != nil {
					return ctx.Err()
				}
				c.logger.Error("Failed to read message", logging.Fields{
					"error":    err.Error(),
					"retry_in": backoff.String(),
				})

				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-c.stopCh:
					return nil
				case <-time.After(backoff):
				}
				backoff *= 2
				if backoff > c.maxBackoff {
					backoff = c.maxBackoff
				}
				continue
			}

			backoff = c.minBackoff
			c.HandleMessage(ctx, msg.Value)
		}
	}
}

// Stop stops the consumer.
func (c *SessionConsumer) Stop() {
	close(c.stopCh)
	c.reader.Close()
}

// HandleMessage decodes one envelope and dispatches it.
func (c *SessionConsumer) HandleMessage(ctx context.Context, value []byte) {
	var event Event
	if err := json.Unmarshal(value, &event); err != nil {
		c.logger.Error("Failed to unmarshal event", logging.Fields{"error": err.Error()})
		return
	}

	if event.Source == c.source {
		return
	}

	switch event.Type {
	case EventTypeSessionChanged:
		var ev models.SessionEvent
		if err := json.Unmarshal(event.Data, &ev); err != nil {
			c.logger.Error("Failed to unmarshal session event", logging.Fields{
				"event_id": event.ID,
				"error":    err.Error(),
			})
			return
		}
		c.logger.Debug("Session change received", logging.Fields{
			"user_id":   ev.UserID,
			"signed_in": ev.SignedIn,
			"source":    event.Source,
		})
		c.handler(ctx, ev)
	default:
		c.logger.Debug("Ignoring unknown event type", logging.Fields{"type": event.Type})
	}
}
