package outbox

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	batch  []Event
	sent   []string
	failed map[string]string
}

func (s *fakeStore) Save(ctx context.Context, e Event, tx *sql.Tx) error {
	s.batch = append(s.batch, e)
	return nil
}

func (s *fakeStore) LockBatch(ctx context.Context, relayID string, batchSize int, lease time.Duration) ([]Event, error) {
	out := s.batch
	s.batch = nil
	return out, nil
}

func (s *fakeStore) MarkSent(ctx context.Context, ID string) error {
	s.sent = append(s.sent, ID)
	return nil
}

func (s *fakeStore) MarkFailed(ctx context.Context, ID string, errMsg string, maxRetry int) error {
	if s.failed == nil {
		s.failed = map[string]string{}
	}
	s.failed[ID] = errMsg
	return nil
}

type published struct {
	topic   string
	key     string
	headers map[string]string
	payload []byte
}

type fakePublisher struct {
	messages []published
	failKey  string
}

func (p *fakePublisher) Publish(ctx context.Context, topic string, key string, headers map[string]string, payload []byte) error {
	if key == p.failKey {
		return errors.New("broker unavailable")
	}
	p.messages = append(p.messages, published{topic: topic, key: key, headers: headers, payload: payload})
	return nil
}

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestRelayFlush(t *testing.T) {
	store := &fakeStore{}
	publisher := &fakePublisher{failKey: "PU-2"}
	relay := NewRelay(newTestLogger(), store, publisher, RelayProperty{ID: "relay-1"})

	ctx := context.Background()
	require.NoError(t, store.Save(ctx, Event{ID: "e1", AggregateID: "PU-1", Type: "purchase.paid", Topic: "purchase-paid", Payload: []byte(`{"id":"PU-1"}`)}, nil))
	require.NoError(t, store.Save(ctx, Event{ID: "e2", AggregateID: "PU-2", Type: "purchase.paid", Topic: "purchase-paid", Payload: []byte(`{"id":"PU-2"}`)}, nil))

	sent, err := relay.Flush(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, sent)
	assert.Equal(t, []string{"e1"}, store.sent)
	assert.Contains(t, store.failed, "e2")

	require.Len(t, publisher.messages, 1)
	msg := publisher.messages[0]
	assert.Equal(t, "purchase-paid", msg.topic)
	assert.Equal(t, "PU-1", msg.key)
	assert.Equal(t, "e1", msg.headers["event_id"])
	assert.Equal(t, "purchase.paid", msg.headers["event_type"])
}

func TestRelayRunStopsOnCancel(t *testing.T) {
	relay := NewRelay(newTestLogger(), &fakeStore{}, &fakePublisher{}, RelayProperty{ID: "relay-1", Interval: time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- relay.Run(ctx)
	}()

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("relay did not stop")
	}
}
