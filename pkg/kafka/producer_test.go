package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func header(msg kafka.Message, key string) string {
	return NewHeaderCarrier(&msg.Headers).Get(key)
}

func TestNewEvent(t *testing.T) {
	before := time.Now().UTC()
	ev, err := NewEvent("product.created", "p-1", "product", "catalog", map[string]string{"slug": "widget"})
	require.NoError(t, err)

	assert.Len(t, ev.EventID, 36)
	assert.Equal(t, 1, ev.Version)
	assert.False(t, ev.Timestamp.Before(before))
	assert.JSONEq(t, `{"slug":"widget"}`, string(ev.Data))

	var payload struct{ Slug string }
	require.NoError(t, ev.UnmarshalData(&payload))
	assert.Equal(t, "widget", payload.Slug)
}

func TestNewEvent_UnmarshalablePayload(t *testing.T) {
	_, err := NewEvent("x", "1", "y", "catalog", make(chan int))
	assert.Error(t, err)
}

func TestEvent_RoundTrip(t *testing.T) {
	ev, err := NewEvent("category.deleted", "c-1", "category", "catalog", nil)
	require.NoError(t, err)
	ev.WithCorrelationID("corr-1").WithMetadata("actor", "u-admin")

	data, err := ev.Marshal()
	require.NoError(t, err)
	got, err := UnmarshalEvent(data)
	require.NoError(t, err)

	assert.Equal(t, ev.EventID, got.EventID)
	assert.Equal(t, "corr-1", got.CorrelationID)
	assert.Equal(t, "u-admin", got.Metadata["actor"])

	_, err = UnmarshalEvent([]byte("{"))
	assert.Error(t, err)
}

func TestTopic(t *testing.T) {
	assert.Equal(t, "ecommerce.product.rating_updated", Topic("product", "rating_updated"))
	assert.Equal(t, "ecommerce.user.deleted", Topic("user", "deleted"))
}

func TestProducer_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, []string{"localhost:9092"}, testLogger())

	ev, err := NewEvent("product.created", "p-1", "product", "catalog", nil)
	require.NoError(t, err)
	ev.WithCorrelationID("corr-9")

	require.NoError(t, p.Publish(context.Background(), "ecommerce.product.created", ev))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "ecommerce.product.created", msg.Topic)
	assert.Equal(t, "p-1", string(msg.Key))
	assert.Equal(t, "product.created", header(msg, "event_type"))
	assert.Equal(t, "catalog", header(msg, "source"))
	assert.Equal(t, "corr-9", header(msg, "correlation_id"))

	decoded, err := UnmarshalEvent(msg.Value)
	require.NoError(t, err)
	assert.Equal(t, ev.EventID, decoded.EventID)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestProducer_PublishError(t *testing.T) {
	p := newProducer(&fakeWriter{err: errors.New("leader not available")}, nil, testLogger())
	ev, _ := NewEvent("product.deleted", "p-1", "product", "catalog", nil)

	err := p.Publish(context.Background(), "ecommerce.product.deleted", ev)
	assert.ErrorContains(t, err, "publish product.deleted to ecommerce.product.deleted")
}

func TestPingBrokers_NoBrokers(t *testing.T) {
	assert.ErrorContains(t, PingBrokers(context.Background(), nil), "no brokers configured")
}
