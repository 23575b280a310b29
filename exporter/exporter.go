// Package exporter forwards flushed metrics to a message broker.
package exporter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ncobase/lamet/config"
	"github.com/ncobase/lamet/data"
	"github.com/ncobase/lamet/types"
	"github.com/segmentio/kafka-go"
)

// Publisher receives every batch persisted by a flush.
type Publisher interface {
	Publish(ctx context.Context, records []types.Record) error
	Close() error
}

// Batch is the wire form of a published batch.
type Batch struct {
	Source      string         `json:"source"`
	PublishedAt time.Time      `json:"published_at"`
	Metrics     []types.Record `json:"metrics"`
}

// Encode renders records as a JSON Batch.
func Encode(source string, records []types.Record, now time.Time) ([]byte, error) {
	if records == nil {
		records = []types.Record{}
	}
	b, err := json.Marshal(Batch{Source: source, PublishedAt: now.UTC(), Metrics: records})
	if err != nil {
		return nil, fmt.Errorf("exporter: encode: %w", err)
	}
	return b, nil
}

// Open connects the publisher named by cfg.Metrics.Exporter.Driver. It
// returns nil, nil when no exporter is configured. Driver packages must be
// imported (see github.com/ncobase/lamet/data/all).
func Open(ctx context.Context, cfg *config.Config) (Publisher, error) {
	name := cfg.Metrics.Exporter.Driver
	if name == "" {
		return nil, nil
	}

	driver, err := data.GetMessageDriver(name)
	if err != nil {
		return nil, err
	}

	switch name {
	case "kafka":
		conn, err := driver.Connect(ctx, cfg.Data.Kafka)
		if err != nil {
			return nil, err
		}
		w, ok := conn.(*kafka.Writer)
		if !ok {
			_ = driver.Close(conn)
			return nil, fmt.Errorf("exporter: driver %q returned %T, want *kafka.Writer", name, conn)
		}
		return NewKafka(w, cfg.AppName), nil
	case "rabbitmq":
		conn, err := driver.Connect(ctx, cfg.Data.RabbitMQ)
		if err != nil {
			return nil, err
		}
		c, ok := conn.(amqpConnection)
		if !ok {
			_ = driver.Close(conn)
			return nil, fmt.Errorf("exporter: driver %q returned %T, want *amqp.Connection", name, conn)
		}
		r, err := NewRabbitMQ(c, cfg.Data.RabbitMQ.Exchange, cfg.Data.RabbitMQ.RoutingKey, cfg.AppName)
		if err != nil {
			_ = driver.Close(conn)
			return nil, err
		}
		return r, nil
	default:
		return nil, fmt.Errorf("exporter: unsupported driver %q", name)
	}
}
