package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/bookcatalog/pkg/logger"
)

type ratingPayload struct {
	BookID       string  `json:"book_id"`
	AverageScore float64 `json:"average_rating"`
}

func TestNewEvent_Fields(t *testing.T) {
	ctx := logger.WithCorrelationID(context.Background(), "corr-1")
	data := ratingPayload{BookID: "b-1", AverageScore: 3.5}

	event, err := NewEvent(ctx, "book.rating_changed", "b-1", "book", "catalog", data)
	require.NoError(t, err)

	assert.NotEmpty(t, event.EventID)
	assert.Equal(t, "book.rating_changed", event.EventType)
	assert.Equal(t, "b-1", event.AggregateID)
	assert.Equal(t, "book", event.AggregateType)
	assert.Equal(t, "catalog", event.Source)
	assert.Equal(t, "corr-1", event.CorrelationID)
	assert.Equal(t, 1, event.Version)
	assert.WithinDuration(t, time.Now().UTC(), event.Timestamp, 2*time.Second)

	var decoded ratingPayload
	require.NoError(t, event.UnmarshalData(&decoded))
	assert.Equal(t, data, decoded)
}

func TestNewEvent_UnserializablePayload(t *testing.T) {
	_, err := NewEvent(context.Background(), "x", "a", "t", "s", make(chan int))
	assert.Error(t, err)
}

func TestEvent_MarshalRoundTrip(t *testing.T) {
	original, err := NewEvent(context.Background(), "review.created", "r-1", "review", "catalog", map[string]int{"rating": 4})
	require.NoError(t, err)
	original.WithMetadata("book_id", "b-1")

	raw, err := original.Marshal()
	require.NoError(t, err)
	restored, err := UnmarshalEvent(raw)
	require.NoError(t, err)

	assert.Equal(t, original.EventID, restored.EventID)
	assert.Equal(t, "b-1", restored.Metadata["book_id"])
	assert.JSONEq(t, string(original.Data), string(restored.Data))

	_, err = UnmarshalEvent([]byte(`{broken`))
	assert.Error(t, err)
}

func TestTopic(t *testing.T) {
	assert.Equal(t, "bookcatalog.review.created", Topic("review", "created"))
	assert.Equal(t, "bookcatalog.dlq.bookcatalog.book.imported", DLQTopic(Topic("book", "imported")))
}

func TestProducer_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := NewProducerWithWriter(w, []string{"localhost:9092"}, testLogger())

	ctx := logger.WithCorrelationID(context.Background(), "corr-9")
	event, err := NewEvent(ctx, "review.created", "b-1", "book", "catalog", map[string]string{"review_id": "r-1"})
	require.NoError(t, err)

	require.NoError(t, p.Publish(ctx, "bookcatalog.review.created", event))

	msgs := w.written()
	require.Len(t, msgs, 1)
	assert.Equal(t, "bookcatalog.review.created", msgs[0].Topic)
	assert.Equal(t, []byte("b-1"), msgs[0].Key)

	carrier := NewHeaderCarrier(&msgs[0].Headers)
	assert.Equal(t, "review.created", carrier.Get("event_type"))
	assert.Equal(t, "catalog", carrier.Get("source"))
	assert.Equal(t, "corr-9", carrier.Get("correlation_id"))

	decoded, err := UnmarshalEvent(msgs[0].Value)
	require.NoError(t, err)
	assert.Equal(t, event.EventID, decoded.EventID)
}

func TestProducer_PublishError(t *testing.T) {
	w := &fakeWriter{err: errors.New("leader not available")}
	p := NewProducerWithWriter(w, nil, testLogger())

	event, err := NewEvent(context.Background(), "review.created", "b-1", "book", "catalog", nil)
	require.NoError(t, err)

	err = p.Publish(context.Background(), "bookcatalog.review.created", event)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "leader not available")
}

func TestProducer_Close(t *testing.T) {
	w := &fakeWriter{}
	require.NoError(t, NewProducerWithWriter(w, nil, nil).Close())
	assert.True(t, w.closed)
}

func TestPingBrokers_NoBrokers(t *testing.T) {
	err := PingBrokers(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no brokers configured")
}
