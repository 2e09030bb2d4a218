package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func header(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestNewEvent_Envelope(t *testing.T) {
	evt, err := NewEvent("pipeline.candidate_moved", "cand-1", "candidate", "recruiter-service",
		map[string]string{"to_stage_id": "s3"})
	require.NoError(t, err)

	assert.NotEmpty(t, evt.EventID)
	assert.Equal(t, 1, evt.Version)
	assert.False(t, evt.Timestamp.IsZero())

	raw, err := evt.WithCorrelationID("req-1").Marshal()
	require.NoError(t, err)

	var parsed Event
	require.NoError(t, json.Unmarshal(raw, &parsed))
	assert.Equal(t, "req-1", parsed.CorrelationID)
	assert.Empty(t, parsed.Metadata)

	var data map[string]string
	require.NoError(t, json.Unmarshal(parsed.Data, &data))
	assert.Equal(t, "s3", data["to_stage_id"])
}

func TestPublish_WritesKeyedMessageWithHeaders(t *testing.T) {
	w := &fakeWriter{}
	p := NewProducerWithWriter(w, nil, testLogger())

	evt, err := NewEvent("pipeline.candidate_moved", "cand-1", "candidate", "recruiter-service", struct{}{})
	require.NoError(t, err)
	evt.WithCorrelationID("req-9")

	require.NoError(t, p.Publish(context.Background(), "recruiter.pipeline", evt))

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, "recruiter.pipeline", msg.Topic)
	assert.Equal(t, "cand-1", string(msg.Key))
	assert.Equal(t, "pipeline.candidate_moved", header(msg, "event_type"))
	assert.Equal(t, "req-9", header(msg, "correlation_id"))
}

func TestPublish_WrapsWriterError(t *testing.T) {
	boom := errors.New("leader not available")
	p := NewProducerWithWriter(&fakeWriter{err: boom}, nil, testLogger())

	evt, err := NewEvent("notification.sent", "msg-1", "notification", "recruiter-service", struct{}{})
	require.NoError(t, err)

	err = p.Publish(context.Background(), "recruiter.notifications", evt)
	assert.ErrorIs(t, err, boom)
}

func TestPingBrokers_NoneConfigured(t *testing.T) {
	err := PingBrokers(context.Background(), nil)
	assert.EqualError(t, err, "kafka: no brokers configured")
}
