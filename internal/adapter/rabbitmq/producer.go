// Package rabbitmq publishes marketplace events to a topic exchange.
package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"kol-market/internal/core/domain"
	"kol-market/internal/core/port"
)

// EventProducer publishes events with the event type as routing key. A
// channel is not safe for concurrent publishing, so Publish is serialized.
type EventProducer struct {
	exchange string
	logger   *slog.Logger

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel
}

var _ port.EventPublisher = (*EventProducer)(nil)

// NewEventProducer dials amqpURL and declares exchange as a durable topic.
func NewEventProducer(amqpURL, exchange string, logger *slog.Logger) (*EventProducer, error) {
	cleanURL, err := sanitizeAMQPURL(amqpURL)
	if err != nil {
		return nil, err
	}

	conn, err := amqp091.DialConfig(cleanURL, amqp091.Config{Dial: amqp091.DefaultDial(10 * time.Second)})
	if err != nil {
		return nil, fmt.Errorf("dial broker: %w", err)
	}

	p := &EventProducer{exchange: exchange, logger: logger.With(slog.String("component", "rabbitmq_producer")), conn: conn}
	if err = p.reopen(); err != nil {
		conn.Close()
		return nil, err
	}
	return p, nil
}

func (p *EventProducer) reopen() error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	if err = ch.ExchangeDeclare(p.exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		return fmt.Errorf("declare exchange %s: %w", p.exchange, err)
	}
	if p.channel != nil {
		p.channel.Close()
	}
	p.channel = ch
	return nil
}

// Publish implements port.EventPublisher. A failed publish reopens the
// channel and is retried once.
func (p *EventProducer) Publish(ctx context.Context, ev domain.Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg := amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		MessageId:    ev.RequestID,
		Timestamp:    ev.OccurredAt,
		Type:         string(ev.Type),
		Body:         body,
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.channel.PublishWithContext(ctx, p.exchange, string(ev.Type), false, false, msg)
	if err == nil {
		return nil
	}
	p.logger.WarnContext(ctx, "publish failed; reopening channel",
		slog.String("routing_key", string(ev.Type)), slog.Any("error", err))
	if reErr := p.reopen(); reErr != nil {
		return errors.Join(err, reErr)
	}
	return p.channel.PublishWithContext(ctx, p.exchange, string(ev.Type), false, false, msg)
}

// Close closes the channel and the connection.
func (p *EventProducer) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
}

// EventProducerFallback stands in when no broker is configured or reachable.
// Events are only logged.
type EventProducerFallback struct {
	Logger *slog.Logger
}

var _ port.EventPublisher = EventProducerFallback{}

// Publish implements port.EventPublisher.
func (p EventProducerFallback) Publish(ctx context.Context, ev domain.Event) error {
	p.Logger.DebugContext(ctx, "publish skipped",
		slog.String("component", "rabbitmq_producer"),
		slog.String("mode", "fallback"),
		slog.String("routing_key", string(ev.Type)),
		slog.String("request_id", ev.RequestID))
	return nil
}

func sanitizeAMQPURL(raw string) (string, error) {
	clean := strings.Trim(strings.TrimSpace(raw), "\"'")
	// drop stray characters before the scheme
	if idx := strings.Index(strings.ToLower(clean), "amqp"); idx > 0 {
		clean = clean[idx:]
	}
	u, err := url.Parse(clean)
	if err != nil {
		return "", err
	}
	if u.Scheme != "amqp" && u.Scheme != "amqps" {
		return "", errors.New("AMQP scheme must be either 'amqp://' or 'amqps://'")
	}
	return clean, nil
}
