package exporter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ncobase/lamet/types"
	amqp "github.com/rabbitmq/amqp091-go"
)

const defaultRoutingKey = "lamet.metrics"

type amqpConnection interface {
	Channel() (*amqp.Channel, error)
	IsClosed() bool
	Close() error
}

type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// RabbitMQ publishes each batch as one persistent JSON message.
type RabbitMQ struct {
	mu         sync.Mutex
	conn       amqpConnection
	ch         amqpChannel
	exchange   string
	routingKey string
	source     string
	now        func() time.Time
}

// NewRabbitMQ opens a channel on conn and, when exchange is set, declares it
// as a durable topic exchange.
func NewRabbitMQ(conn amqpConnection, exchange, routingKey, source string) (*RabbitMQ, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("exporter: open channel: %w", err)
	}
	if exchange != "" {
		if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
			_ = ch.Close()
			return nil, fmt.Errorf("exporter: declare exchange %s: %w", exchange, err)
		}
	}
	return newRabbitMQ(conn, ch, exchange, routingKey, source), nil
}

func newRabbitMQ(conn amqpConnection, ch amqpChannel, exchange, routingKey, source string) *RabbitMQ {
	if routingKey == "" {
		routingKey = defaultRoutingKey
	}
	return &RabbitMQ{
		conn:       conn,
		ch:         ch,
		exchange:   exchange,
		routingKey: routingKey,
		source:     source,
		now:        time.Now,
	}
}

func (r *RabbitMQ) Publish(ctx context.Context, records []types.Record) error {
	if len(records) == 0 {
		return nil
	}
	now := r.now()
	body, err := Encode(r.source, records, now)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	err = r.ch.PublishWithContext(ctx, r.exchange, r.routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    now,
		AppId:        r.source,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("exporter: rabbitmq publish: %w", err)
	}
	return nil
}

func (r *RabbitMQ) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	err := r.ch.Close()
	if r.conn != nil && !r.conn.IsClosed() {
		if cerr := r.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
