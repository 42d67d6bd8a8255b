package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// confirmation is the broker's answer for a single published message.
type confirmation interface {
	WaitContext(ctx context.Context) (bool, error)
}

type confirmChannel interface {
	publish(ctx context.Context, exchange, key string, msg amqp.Publishing) (confirmation, error)
	Close() error
}

// amqpChannel adapts a channel in confirm mode. Each publish gets its own
// deferred confirmation keyed by delivery tag.
type amqpChannel struct {
	ch *amqp.Channel
}

func (a amqpChannel) publish(ctx context.Context, exchange, key string, msg amqp.Publishing) (confirmation, error) {
	dc, err := a.ch.PublishWithDeferredConfirmWithContext(ctx, exchange, key, false, false, msg)
	if err != nil {
		return nil, err
	}
	if dc == nil {
		return nil, errors.New("channel is not in confirm mode")
	}
	return dc, nil
}

func (a amqpChannel) Close() error { return a.ch.Close() }

// RabbitPublisher sends order events to a durable topic exchange and waits
// for the broker to confirm each message.
type RabbitPublisher struct {
	conn     *amqp.Connection
	ch       confirmChannel
	exchange string
}

func DialRabbit(url, exchange string) (*RabbitPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("enable confirms: %w", err)
	}

	return &RabbitPublisher{conn: conn, ch: amqpChannel{ch: ch}, exchange: exchange}, nil
}

func (p *RabbitPublisher) Publish(ctx context.Context, event OrderEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	conf, err := p.ch.publish(ctx, p.exchange, event.RoutingKey(), amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		Timestamp:    time.Now(),
		Type:         string(event.Type),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", event.RoutingKey(), err)
	}

	acked, err := conf.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("wait for confirm of %s: %w", event.RoutingKey(), err)
	}
	if !acked {
		return errors.New("publish NACK from broker")
	}
	return nil
}

// Ping reports whether the broker connection is still open.
func (p *RabbitPublisher) Ping(context.Context) error {
	if p.conn == nil || p.conn.IsClosed() {
		return errors.New("rabbitmq connection is closed")
	}
	return nil
}

func (p *RabbitPublisher) Close() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}
