package messaging

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsumeDeliversAndReportsErrors(t *testing.T) {
	b := NewMemoryBroker()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan string, 3)
	failed := make(chan string, 3)
	done := make(chan error, 1)

	msgs, err := b.Subscribe(ctx, "lab-results")
	require.NoError(t, err)

	// Drive Consume through a broker wrapper that hands back the channel
	// subscribed above, so nothing is published before the subscription.
	go func() {
		done <- Consume(ctx, fixedSub{b, msgs}, "lab-results", func(_ context.Context, p []byte) error {
			if string(p) == "bad" {
				return errors.New("malformed")
			}
			got <- string(p)
			return nil
		}, func(p []byte, _ error) { failed <- string(p) })
	}()

	require.NoError(t, b.Publish(ctx, "lab-results", "", []byte("one")))
	require.NoError(t, b.Publish(ctx, "lab-results", "", []byte("bad")))
	require.NoError(t, b.Publish(ctx, "lab-results", "", []byte("two")))

	assert.Equal(t, "one", recv(t, got))
	assert.Equal(t, "bad", recv(t, failed))
	assert.Equal(t, "two", recv(t, got))

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("consume did not stop")
	}
}

func TestMemoryBrokerRecordsAndCloses(t *testing.T) {
	b := NewMemoryBroker()
	ctx := context.Background()

	require.NoError(t, b.Publish(ctx, "events", "k", []byte(`{"a":1}`)))
	assert.Equal(t, [][]byte{[]byte(`{"a":1}`)}, b.Published("events"))

	require.NoError(t, b.Close())
	assert.ErrorIs(t, b.Publish(ctx, "events", "k", nil), ErrClosed)
	_, err := b.Subscribe(ctx, "events")
	assert.ErrorIs(t, err, ErrClosed)
}

type fixedSub struct {
	*MemoryBroker
	ch <-chan []byte
}

func (f fixedSub) Subscribe(context.Context, string) (<-chan []byte, error) { return f.ch, nil }

func recv(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return ""
	}
}
