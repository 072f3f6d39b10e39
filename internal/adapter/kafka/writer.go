// Package kafka publishes query-cycle results to a Kafka topic. The sink is
// optional; when disabled the pipeline runs without a publisher.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/hazard-intel-service/internal/domain"
)

// Writer produces snapshot and in-AOI event messages to a Kafka topic.
// It implements pipeline.Publisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(brokers []string, topic string, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// PublishSnapshot serializes the snapshot plus every in-AOI event and writes
// them in a single WriteMessages call. Event messages are keyed by source so
// consumers partition by feed; the snapshot is keyed by its cycle id.
func (w *Writer) PublishSnapshot(ctx context.Context, snap domain.Snapshot, events map[domain.Source][]domain.FilteredEvent) error {
	msgs := make([]kafkago.Message, 0, 1+len(events))

	for _, src := range domain.AllSources {
		for _, ev := range events[src] {
			msg, err := serializeEvent(snap.ID, ev)
			if err != nil {
				return err
			}
			msgs = append(msgs, msg)
		}
	}

	snapMsg, err := serializeSnapshot(snap)
	if err != nil {
		return err
	}
	msgs = append(msgs, snapMsg)

	return w.writer.WriteMessages(ctx, msgs...)
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

func serializeEvent(snapshotID string, ev domain.FilteredEvent) (kafkago.Message, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize filtered event: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(ev.Source),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "kind", Value: []byte("event")},
			{Key: "snapshot_id", Value: []byte(snapshotID)},
			{Key: "observed_at", Value: []byte(ev.ObservedAt.Format(time.RFC3339))},
		},
	}, nil
}

func serializeSnapshot(snap domain.Snapshot) (kafkago.Message, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize snapshot: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(snap.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "kind", Value: []byte("snapshot")},
			{Key: "generated_at", Value: []byte(snap.GeneratedAt.Format(time.RFC3339))},
		},
	}, nil
}
