package nats

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/dispatch-core/internal/model"
)

type fakePublisher struct {
	subjects []string
	payloads [][]byte
	opts     [][]jetstream.PublishOpt
	err      error
}

func (f *fakePublisher) Publish(_ context.Context, subject string, payload []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.subjects = append(f.subjects, subject)
	f.payloads = append(f.payloads, payload)
	f.opts = append(f.opts, opts)
	return &jetstream.PubAck{Stream: StreamName, Sequence: uint64(len(f.subjects))}, nil
}

func TestDeliverySubject(t *testing.T) {
	require.Equal(t, "delivery.sent.text", DeliverySubject(model.DeliverySent, "text"))
	require.Equal(t, "delivery.failed.interactive", DeliverySubject(model.DeliveryFailed, "Interactive"))
	require.Equal(t, "delivery.unknown.unknown", DeliverySubject("", " "))
	require.Equal(t, "delivery.sent.a_b_c", DeliverySubject(model.DeliverySent, "a.b*c"))
}

func TestDeliveryFilter(t *testing.T) {
	require.Equal(t, "delivery.*.*", DeliveryFilter("", ""))
	require.Equal(t, "delivery.failed.*", DeliveryFilter(model.DeliveryFailed, ""))
	require.Equal(t, "delivery.*.template", DeliveryFilter("", "template"))
}

func TestDeliveryLogRecord(t *testing.T) {
	pub := &fakePublisher{}
	log := NewDeliveryLog(pub)

	rec := &model.DeliveryRecord{
		ID:        "rec-1",
		Recipient: "919800000000",
		Kind:      "text",
		Size:      11,
		Direction: model.DirectionOutgoing,
		Status:    model.DeliveryFailed,
		Timestamp: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		ErrorCode: 131047,
	}
	require.NoError(t, log.Record(context.Background(), rec))

	require.Equal(t, []string{"delivery.failed.text"}, pub.subjects)
	require.Len(t, pub.opts[0], 1)

	var got model.DeliveryRecord
	require.NoError(t, json.Unmarshal(pub.payloads[0], &got))
	require.Equal(t, *rec, got)
}

func TestDeliveryLogRecord_WithoutID(t *testing.T) {
	pub := &fakePublisher{}
	require.NoError(t, NewDeliveryLog(pub).Record(context.Background(), &model.DeliveryRecord{Kind: "text", Status: model.DeliverySent}))
	require.Empty(t, pub.opts[0])
}

func TestDeliveryLogRecord_PublishError(t *testing.T) {
	boom := errors.New("no responders")
	err := NewDeliveryLog(&fakePublisher{err: boom}).Record(context.Background(), &model.DeliveryRecord{ID: "x"})
	require.ErrorIs(t, err, boom)
}
