// Package kafka provides a Kafka message driver for lamet/data.
//
// This driver uses kafka-go (github.com/segmentio/kafka-go). It registers
// itself automatically when imported:
//
//	import _ "github.com/ncobase/lamet/data/kafka"
//
// Connect verifies the first broker is reachable and returns a *kafka.Writer
// bound to the configured topic.
package kafka

import (
	"context"
	"fmt"

	"github.com/ncobase/lamet/data"
	"github.com/ncobase/lamet/data/config"
	"github.com/segmentio/kafka-go"
)

// driver implements data.MessageDriver for Kafka.
type driver struct{}

// Name returns the driver identifier used in configuration files.
func (d *driver) Name() string {
	return "kafka"
}

// NewWriter builds a writer for the configured brokers and topic.
func NewWriter(cfg *config.Kafka) *kafka.Writer {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
	if cfg.WriteTimeout > 0 {
		w.WriteTimeout = cfg.WriteTimeout
	}
	if cfg.BatchTimeout > 0 {
		w.BatchTimeout = cfg.BatchTimeout
	}
	if cfg.ClientID != "" {
		w.Transport = &kafka.Transport{ClientID: cfg.ClientID}
	}
	return w
}

func (d *driver) Connect(ctx context.Context, cfg any) (any, error) {
	kafkaCfg, ok := cfg.(*config.Kafka)
	if !ok {
		return nil, fmt.Errorf("kafka: invalid configuration type, expected *config.Kafka")
	}
	if len(kafkaCfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka: brokers are empty")
	}
	if kafkaCfg.Topic == "" {
		return nil, fmt.Errorf("kafka: topic is empty")
	}

	conn, err := kafka.DialContext(ctx, "tcp", kafkaCfg.Brokers[0])
	if err != nil {
		return nil, fmt.Errorf("kafka: failed to connect: %w", err)
	}
	_ = conn.Close()

	return NewWriter(kafkaCfg), nil
}

func (d *driver) Close(conn any) error {
	w, ok := conn.(*kafka.Writer)
	if !ok {
		return fmt.Errorf("kafka: invalid connection type, expected *kafka.Writer")
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("kafka: failed to close writer: %w", err)
	}
	return nil
}

func init() {
	data.RegisterMessageDriver(&driver{})
}
