package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/capitalize-ai/dispatch-core/internal/model"
)

const (
	// StreamName is the name of the delivery log stream.
	StreamName = "DELIVERIES"

	// SubjectPrefix is the prefix for all delivery subjects.
	SubjectPrefix = "delivery"
)

// Publisher is the subset of jetstream.JetStream used to write records.
type Publisher interface {
	Publish(ctx context.Context, subject string, payload []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// StreamManager handles JetStream stream operations.
type StreamManager struct {
	client *Client
}

// NewStreamManager creates a new stream manager.
func NewStreamManager(client *Client) *StreamManager {
	return &StreamManager{client: client}
}

// EnsureStream ensures the delivery stream exists with proper configuration.
func (m *StreamManager) EnsureStream(ctx context.Context) error {
	js := m.client.JetStream()

	_, err := js.Stream(ctx, StreamName)
	if err == nil {
		return nil
	}
	if !errors.Is(err, jetstream.ErrStreamNotFound) {
		return fmt.Errorf("failed to look up stream: %w", err)
	}

	_, err = js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{fmt.Sprintf("%s.>", SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      90 * 24 * time.Hour,
		MaxBytes:    10 * 1024 * 1024 * 1024,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Compression: jetstream.S2Compression,
		Duplicates:  2 * time.Minute,
		DenyDelete:  true,
		Description: "Outbound message delivery log",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	return nil
}

// DeliverySubject returns the subject a record is published on.
func DeliverySubject(status model.DeliveryStatus, kind string) string {
	return fmt.Sprintf("%s.%s.%s", SubjectPrefix, token(string(status)), token(kind))
}

// DeliveryFilter returns a filter subject; empty arguments match everything.
func DeliveryFilter(status model.DeliveryStatus, kind string) string {
	s, k := "*", "*"
	if status != "" {
		s = token(string(status))
	}
	if kind != "" {
		k = token(kind)
	}
	return fmt.Sprintf("%s.%s.%s", SubjectPrefix, s, k)
}

// token makes s safe for use as a single subject token.
func token(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "unknown"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\n', '\r':
			return '_'
		}
		return r
	}, s)
}

// DeliveryLog writes delivery records to JetStream.
type DeliveryLog struct {
	pub Publisher
}

// NewDeliveryLog creates a delivery log publishing through pub.
func NewDeliveryLog(pub Publisher) *DeliveryLog {
	return &DeliveryLog{pub: pub}
}

// Record publishes rec. The record ID doubles as the JetStream message ID so
// retried writes are deduplicated by the server.
func (l *DeliveryLog) Record(ctx context.Context, rec *model.DeliveryRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal delivery record: %w", err)
	}

	var opts []jetstream.PublishOpt
	if rec.ID != "" {
		opts = append(opts, jetstream.WithMsgID(rec.ID))
	}

	if _, err := l.pub.Publish(ctx, DeliverySubject(rec.Status, rec.Kind), data, opts...); err != nil {
		return fmt.Errorf("failed to publish delivery record: %w", err)
	}
	return nil
}

// RecentDeliveries reads up to limit records matching status and kind,
// starting after the given stream sequence. It returns the records, the last
// sequence read and whether more may be available.
func (m *StreamManager) RecentDeliveries(ctx context.Context, status model.DeliveryStatus, kind string, afterSequence uint64, limit int) ([]model.DeliveryRecord, uint64, bool, error) {
	js := m.client.JetStream()

	consumerConfig := jetstream.OrderedConsumerConfig{
		FilterSubjects: []string{DeliveryFilter(status, kind)},
		DeliverPolicy:  jetstream.DeliverAllPolicy,
	}
	if afterSequence > 0 {
		consumerConfig.DeliverPolicy = jetstream.DeliverByStartSequencePolicy
		consumerConfig.OptStartSeq = afterSequence + 1
	}

	consumer, err := js.OrderedConsumer(ctx, StreamName, consumerConfig)
	if err != nil {
		return nil, 0, false, fmt.Errorf("failed to create consumer: %w", err)
	}

	batch, err := consumer.Fetch(limit, jetstream.FetchMaxWait(2*time.Second))
	if err != nil {
		return nil, 0, false, fmt.Errorf("failed to fetch deliveries: %w", err)
	}

	var (
		records      []model.DeliveryRecord
		lastSequence uint64
	)
	for msg := range batch.Messages() {
		var rec model.DeliveryRecord
		if err := json.Unmarshal(msg.Data(), &rec); err != nil {
			continue
		}
		if meta, err := msg.Metadata(); err == nil {
			lastSequence = meta.Sequence.Stream
		}
		records = append(records, rec)
	}

	if err := batch.Error(); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return nil, 0, false, fmt.Errorf("batch error: %w", err)
	}

	return records, lastSequence, len(records) == limit, nil
}
