package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/followup-api/internal/model"
	"github.com/jwalitptl/followup-api/internal/repository/memory"
	"github.com/jwalitptl/followup-api/pkg/logger"
	"github.com/jwalitptl/followup-api/pkg/messaging"
)

type failingBroker struct {
	*messaging.MemoryBroker
	calls int
}

func (b *failingBroker) Publish(context.Context, string, string, []byte) error {
	b.calls++
	return errors.New("broker unavailable")
}

func addEvent(t *testing.T, store *memory.Store, eventType string) *model.OutboxEvent {
	t.Helper()
	e := &model.OutboxEvent{
		ID:          uuid.New(),
		EventType:   eventType,
		AggregateID: uuid.New(),
		Payload:     json.RawMessage(`{"type":"` + eventType + `"}`),
		Status:      model.OutboxStatusPending,
		CreatedAt:   time.Now(),
	}
	require.NoError(t, store.Outbox().Create(context.Background(), e))
	return e
}

func config() OutboxProcessorConfig {
	return OutboxProcessorConfig{BatchSize: 10, PollInterval: time.Second, RetryAttempts: 2, RetryDelay: time.Millisecond, Topic: "followup-events"}
}

func TestProcessOncePublishesAndRunsHooks(t *testing.T) {
	store := memory.NewStore()
	broker := messaging.NewMemoryBroker()
	first := addEvent(t, store, "patient.created")
	addEvent(t, store, "followup.completed")

	var hooked []string
	p, err := NewOutboxProcessor(store.Outbox(), broker, config(), logger.Nop(), nil,
		func(_ context.Context, e *model.OutboxEvent) error {
			hooked = append(hooked, e.EventType)
			return errors.New("hook errors are only logged")
		})
	require.NoError(t, err)

	processed, failed, err := p.ProcessOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, processed)
	assert.Equal(t, 0, failed)
	assert.Equal(t, []string{"patient.created", "followup.completed"}, hooked)

	published := broker.Published("followup-events")
	require.Len(t, published, 2)
	assert.JSONEq(t, string(first.Payload), string(published[0]))

	for _, e := range store.Outbox().Events() {
		assert.Equal(t, model.OutboxStatusProcessed, e.Status)
	}

	processed, _, err = p.ProcessOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, processed)
}

func TestProcessOnceMarksFailuresAndRetries(t *testing.T) {
	store := memory.NewStore()
	broker := &failingBroker{MemoryBroker: messaging.NewMemoryBroker()}
	addEvent(t, store, "readmission.recorded")

	p, err := NewOutboxProcessor(store.Outbox(), broker, config(), logger.Nop(), nil)
	require.NoError(t, err)

	processed, failed, err := p.ProcessOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, processed)
	assert.Equal(t, 1, failed)
	assert.Equal(t, 2, broker.calls)

	events := store.Outbox().Events()
	require.Len(t, events, 1)
	assert.Equal(t, model.OutboxStatusFailed, events[0].Status)
	assert.Equal(t, 1, events[0].RetryCount)
	require.NotNil(t, events[0].ErrorMessage)
	assert.Contains(t, *events[0].ErrorMessage, "broker unavailable")
}

func TestHooksRunAfterCommitWithDeadline(t *testing.T) {
	store := memory.NewStore()
	broker := messaging.NewMemoryBroker()
	evt := addEvent(t, store, "followup.completed")

	cfg := config()
	cfg.HookTimeout = 250 * time.Millisecond

	var (
		statuses []model.OutboxStatus
		deadline time.Time
	)
	p, err := NewOutboxProcessor(store.Outbox(), broker, cfg, logger.Nop(), nil,
		func(ctx context.Context, e *model.OutboxEvent) error {
			assert.Equal(t, evt.ID, e.ID)
			// reading the store here would block if the batch were still open
			for _, stored := range store.Outbox().Events() {
				statuses = append(statuses, stored.Status)
			}
			var ok bool
			deadline, ok = ctx.Deadline()
			assert.True(t, ok)
			return nil
		})
	require.NoError(t, err)

	start := time.Now()
	processed, _, err := p.ProcessOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, processed)
	assert.Equal(t, []model.OutboxStatus{model.OutboxStatusProcessed}, statuses)
	assert.WithinDuration(t, start.Add(cfg.HookTimeout), deadline, 200*time.Millisecond)
}

func TestHooksSkipFailedPublishes(t *testing.T) {
	store := memory.NewStore()
	broker := &failingBroker{MemoryBroker: messaging.NewMemoryBroker()}
	addEvent(t, store, "followup.completed")

	var calls int
	p, err := NewOutboxProcessor(store.Outbox(), broker, config(), logger.Nop(), nil,
		func(context.Context, *model.OutboxEvent) error {
			calls++
			return nil
		})
	require.NoError(t, err)

	_, failed, err := p.ProcessOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, failed)
	assert.Zero(t, calls)
}

func TestNewOutboxProcessorValidatesConfig(t *testing.T) {
	store := memory.NewStore()
	cfg := config()
	cfg.BatchSize = 0
	_, err := NewOutboxProcessor(store.Outbox(), messaging.NewMemoryBroker(), cfg, logger.Nop(), nil)
	assert.Error(t, err)

	cfg = config()
	cfg.Topic = ""
	_, err = NewOutboxProcessor(store.Outbox(), messaging.NewMemoryBroker(), cfg, logger.Nop(), nil)
	assert.Error(t, err)
}

func TestCleanupDeletesOldProcessedEvents(t *testing.T) {
	store := memory.NewStore()
	broker := messaging.NewMemoryBroker()
	addEvent(t, store, "patient.updated")

	p, err := NewOutboxProcessor(store.Outbox(), broker, config(), logger.Nop(), nil)
	require.NoError(t, err)
	_, _, err = p.ProcessOnce(context.Background())
	require.NoError(t, err)

	w := NewOutboxCleanupWorker(store.Outbox(), time.Hour, time.Minute, logger.Nop())

	n, err := w.Cleanup(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)

	w.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	n, err = w.Cleanup(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Empty(t, store.Outbox().Events())
}
