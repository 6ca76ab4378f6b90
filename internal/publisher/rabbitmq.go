package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"linksignal/internal/domain"
)

// Event names carried on the wire.
const (
	EventLinkCreated     = "link.created"
	EventLinkUpdated     = "link.updated"
	EventMentionRecorded = "mention.recorded"
)

type RabbitMQ struct {
	conn       *amqp.Connection
	channel    *amqp.Channel
	exchange   string
	routingKey string
	logger     *slog.Logger
}

type Config struct {
	URL        string
	Exchange   string
	RoutingKey string
	QueueName  string
}

func NewRabbitMQ(cfg Config, logger *slog.Logger) (*RabbitMQ, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		cfg.Exchange,
		"direct",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	q, err := ch.QueueDeclare(
		cfg.QueueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}

	err = ch.QueueBind(
		q.Name,
		cfg.RoutingKey,
		cfg.Exchange,
		false,
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("bind queue: %w", err)
	}

	logger.Info("connected to rabbitmq",
		"exchange", cfg.Exchange,
		"queue", cfg.QueueName,
		"routing_key", cfg.RoutingKey,
	)

	return &RabbitMQ{
		conn:       conn,
		channel:    ch,
		exchange:   cfg.Exchange,
		routingKey: cfg.RoutingKey,
		logger:     logger,
	}, nil
}

// LinkEvent is the wire format for link and mention events consumed by
// downstream digest and dashboard collaborators.
type LinkEvent struct {
	Event     string      `json:"event"`
	Link      domain.Link `json:"link"`
	SourceID  string      `json:"source_id,omitempty"`
	SeenAt    *time.Time  `json:"seen_at,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// PublishLink emits link.created or link.updated for the given link.
func (r *RabbitMQ) PublishLink(ctx context.Context, link *domain.Link, isNew bool) error {
	event := EventLinkUpdated
	if isNew {
		event = EventLinkCreated
	}
	return r.publish(ctx, LinkEvent{
		Event:     event,
		Link:      *link,
		Timestamp: time.Now().UTC(),
	})
}

// PublishMention emits mention.recorded for a new (link, source) pair.
func (r *RabbitMQ) PublishMention(ctx context.Context, link *domain.Link, sourceID string, seenAt time.Time) error {
	return r.publish(ctx, LinkEvent{
		Event:     EventMentionRecorded,
		Link:      *link,
		SourceID:  sourceID,
		SeenAt:    &seenAt,
		Timestamp: time.Now().UTC(),
	})
}

func (r *RabbitMQ) publish(ctx context.Context, event LinkEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	err = r.channel.PublishWithContext(
		ctx,
		r.exchange,
		r.routingKey,
		false,
		false,
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Body:         body,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("publish event: %w", err)
	}

	r.logger.Debug("published event",
		"event", event.Event,
		"link_id", event.Link.ID,
	)

	return nil
}

func (r *RabbitMQ) Close() error {
	if r.channel != nil {
		r.channel.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}
