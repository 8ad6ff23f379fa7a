package events

import (
	"context"
	"encoding/json"
	"time"

	"rescuelink/pkg/logger"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Routing keys for domain events.
const (
	SOSRaised    = "sos.raised"
	SOSAccepted  = "sos.accepted"
	SOSResolved  = "sos.resolved"
	SOSDeleted   = "sos.deleted"
	ChatMessage  = "chat.message"
	ReminderSent = "sos.reminder"

	UserApproved      = "user.approved"
	UserRejected      = "user.rejected"
	UserBlacklisted   = "user.blacklisted"
	UserUnblacklisted = "user.unblacklisted"
)

type Event struct {
	Type       string      `json:"type"`
	OccurredAt time.Time   `json:"occurred_at"`
	Payload    interface{} `json:"payload"`
}

func NewEvent(eventType string, payload interface{}) Event {
	return Event{Type: eventType, OccurredAt: time.Now().UTC(), Payload: payload}
}

type Publisher interface {
	Publish(ctx context.Context, routingKey string, event Event) error
	Close() error
}

// NewPublisher returns an AMQP publisher, or a noop publisher when the broker
// is not configured or unreachable.
func NewPublisher(amqpURL, exchange string, log *logger.Logger) Publisher {
	if amqpURL == "" {
		log.Info("Event publishing disabled, using noop publisher")
		return noopPublisher{log: log}
	}

	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		log.WithError(err).Warn("AMQP dial failed, using noop publisher")
		return noopPublisher{log: log}
	}

	ch, err := conn.Channel()
	if err != nil {
		log.WithError(err).Warn("AMQP channel failed, using noop publisher")
		_ = conn.Close()
		return noopPublisher{log: log}
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		log.WithError(err).Warn("AMQP exchange declare failed, using noop publisher")
		_ = ch.Close()
		_ = conn.Close()
		return noopPublisher{log: log}
	}

	log.WithField("exchange", exchange).Info("Connected to AMQP broker")
	return &amqpPublisher{conn: conn, ch: ch, exchange: exchange}
}

type amqpPublisher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

func (p *amqpPublisher) Publish(ctx context.Context, routingKey string, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return p.ch.PublishWithContext(ctx, p.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    event.OccurredAt,
		Type:         event.Type,
		Body:         body,
	})
}

func (p *amqpPublisher) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

type noopPublisher struct {
	log *logger.Logger
}

func (n noopPublisher) Publish(ctx context.Context, routingKey string, event Event) error {
	n.log.WithField("routing_key", routingKey).Debug("Noop event publish")
	return nil
}

func (noopPublisher) Close() error {
	return nil
}

// Mode reports the publisher mode for logging.
func Mode(p Publisher) string {
	switch p.(type) {
	case *amqpPublisher:
		return "amqp"
	case noopPublisher:
		return "noop"
	default:
		return "unknown"
	}
}
