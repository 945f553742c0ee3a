package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/molnotation/internal/testutil"
	pkgerrors "github.com/turtacn/molnotation/pkg/errors"
)

type mockKafkaWriter struct {
	mu       sync.Mutex
	written  []kafka.Message
	writeErr error
	closed   int
}

func (m *mockKafkaWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	m.written = append(m.written, msgs...)
	return nil
}

func (m *mockKafkaWriter) Close() error {
	m.closed++
	return nil
}

func newTestProducer(w WriterInterface) *Producer {
	return newProducer(w, ProducerConfig{Brokers: []string{"localhost:9092"}, MaxMessageBytes: 64}, testutil.NewMockLogger())
}

func TestValidateProducerConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ProducerConfig
		wantErr bool
	}{
		{"valid", ProducerConfig{Brokers: []string{"b:9092"}}, false},
		{"no brokers", ProducerConfig{}, true},
		{"negative retries", ProducerConfig{Brokers: []string{"b:9092"}, MaxRetries: -1}, true},
		{"sasl without credentials", ProducerConfig{Brokers: []string{"b:9092"}, SASLEnabled: true}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateProducerConfig(tt.cfg)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeValidation))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestPublish(t *testing.T) {
	w := &mockKafkaWriter{}
	p := newTestProducer(w)

	err := p.Publish(context.Background(), &ProducerMessage{
		Topic:   TopicAnalysisRequested,
		Key:     []byte("job-1"),
		Value:   []byte(`{"x":1}`),
		Headers: map[string]string{"h": "v"},
	})
	require.NoError(t, err)
	require.Len(t, w.written, 1)
	got := w.written[0]
	assert.Equal(t, TopicAnalysisRequested, got.Topic)
	assert.Equal(t, "job-1", string(got.Key))
	assert.Equal(t, []kafka.Header{{Key: "h", Value: []byte("v")}}, got.Headers)
	assert.False(t, got.Time.IsZero())

	sent, failed, bytes := p.Metrics()
	assert.Equal(t, int64(1), sent)
	assert.Zero(t, failed)
	assert.Equal(t, int64(7), bytes)
}

func TestPublish_Rejects(t *testing.T) {
	tests := []struct {
		name string
		msg  *ProducerMessage
	}{
		{"nil", nil},
		{"no topic", &ProducerMessage{Value: []byte("x")}},
		{"no value", &ProducerMessage{Topic: "t"}},
		{"too large", &ProducerMessage{Topic: "t", Value: []byte(strings.Repeat("x", 65))}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &mockKafkaWriter{}
			err := newTestProducer(w).Publish(context.Background(), tt.msg)
			require.Error(t, err)
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeValidation))
			assert.Empty(t, w.written)
		})
	}
}

func TestPublish_WriterError(t *testing.T) {
	w := &mockKafkaWriter{writeErr: fmt.Errorf("broker down")}
	p := newTestProducer(w)

	err := p.Publish(context.Background(), &ProducerMessage{Topic: "t", Value: []byte("x")})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeMessagingError))
	_, failed, _ := p.Metrics()
	assert.Equal(t, int64(1), failed)
}

func TestPublishJSON(t *testing.T) {
	w := &mockKafkaWriter{}
	p := newTestProducer(w)

	require.NoError(t, p.PublishJSON(context.Background(), TopicAnalysisCompleted, "job-9", map[string]string{"a": "b"}))
	require.Len(t, w.written, 1)
	var got map[string]string
	require.NoError(t, json.Unmarshal(w.written[0].Value, &got))
	assert.Equal(t, "b", got["a"])
	assert.Equal(t, "job-9", string(w.written[0].Key))

	err := p.PublishJSON(context.Background(), "t", "k", make(chan int))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeSerialization))
}

func TestProducer_Close(t *testing.T) {
	w := &mockKafkaWriter{}
	p := newTestProducer(w)

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	assert.Equal(t, 1, w.closed)
	assert.Equal(t, ErrProducerClosed, p.Publish(context.Background(), &ProducerMessage{Topic: "t", Value: []byte("x")}))
}

func TestBuildSASL(t *testing.T) {
	mech, err := buildSASL(false, "", "", "")
	assert.NoError(t, err)
	assert.Nil(t, mech)

	for _, name := range []string{"PLAIN", "SCRAM-SHA-256", "SCRAM-SHA-512"} {
		mech, err := buildSASL(true, name, "u", "p")
		require.NoError(t, err, name)
		assert.Equal(t, name, mech.Name())
	}

	_, err = buildSASL(true, "GSSAPI", "u", "p")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeValidation))
}
