package exporter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ncobase/lamet/types"
	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Kafka writes one message per record, keyed by metric name so a metric
// always lands on the same partition.
type Kafka struct {
	writer messageWriter
	source string
	now    func() time.Time
}

// NewKafka publishes through w, whose Topic must be set.
func NewKafka(w *kafka.Writer, source string) *Kafka {
	return &Kafka{writer: w, source: source, now: time.Now}
}

func (k *Kafka) Publish(ctx context.Context, records []types.Record) error {
	if len(records) == 0 {
		return nil
	}
	now := k.now()
	msgs := make([]kafka.Message, len(records))
	for i, r := range records {
		value, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("exporter: encode %s: %w", r.Name, err)
		}
		msgs[i] = kafka.Message{
			Key:   []byte(r.Name),
			Value: value,
			Time:  now,
			Headers: []kafka.Header{
				{Key: "source", Value: []byte(k.source)},
				{Key: "type", Value: []byte(r.Kind)},
			},
		}
	}
	if err := k.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("exporter: kafka write: %w", err)
	}
	return nil
}

func (k *Kafka) Close() error {
	return k.writer.Close()
}
