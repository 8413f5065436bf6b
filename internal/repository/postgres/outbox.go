package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/followup-api/internal/model"
	"github.com/jwalitptl/followup-api/internal/repository"
)

const outboxColumns = `id, event_type, aggregate_id, payload, status, error_message,
	retry_count, created_at, processed_at, updated_at`

// DefaultOutboxMaxRetries bounds how often a failed event is picked up again.
const DefaultOutboxMaxRetries = 3

type outboxRepository struct {
	BaseRepository
	maxRetries int
}

func NewOutboxRepository(base BaseRepository, maxRetries int) repository.OutboxRepository {
	if maxRetries <= 0 {
		maxRetries = DefaultOutboxMaxRetries
	}
	return &outboxRepository{BaseRepository: base, maxRetries: maxRetries}
}

func (r *outboxRepository) Create(ctx context.Context, event *model.OutboxEvent) (err error) {
	defer func(start time.Time) { r.observe("outbox_create", start, err) }(time.Now())

	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}
	if event.Payload == nil {
		return fmt.Errorf("event payload cannot be nil")
	}
	if event.Status == "" {
		event.Status = model.OutboxStatusPending
	}

	query := `
		INSERT INTO outbox_events (` + outboxColumns + `)
		VALUES (
			:id, :event_type, :aggregate_id, :payload, :status, :error_message,
			:retry_count, :created_at, :processed_at, :updated_at
		)
	`
	if _, err = r.db.NamedExecContext(ctx, query, event); err != nil {
		return mapErr("outbox event", "create outbox event", err)
	}
	return nil
}

// ProcessPending locks a batch with FOR UPDATE SKIP LOCKED so several
// workers can drain the outbox concurrently.
func (r *outboxRepository) ProcessPending(ctx context.Context, limit int, fn func(*model.OutboxEvent) error) (processed int, failed int, err error) {
	defer func(start time.Time) { r.observe("outbox_process", start, err) }(time.Now())

	err = r.WithTx(ctx, func(tx *sqlx.Tx) error {
		query := `
			SELECT ` + outboxColumns + `
			FROM outbox_events
			WHERE status = 'pending'
			OR (status = 'failed' AND retry_count < $2)
			ORDER BY created_at ASC
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		`
		var events []*model.OutboxEvent
		if err := tx.SelectContext(ctx, &events, query, limit, r.maxRetries); err != nil {
			return mapErr("outbox event", "select pending events", err)
		}

		for _, evt := range events {
			if procErr := fn(evt); procErr != nil {
				msg := procErr.Error()
				update := `
					UPDATE outbox_events
					SET status = 'failed',
						error_message = $2,
						retry_count = retry_count + 1,
						updated_at = NOW()
					WHERE id = $1
				`
				if _, err := tx.ExecContext(ctx, update, evt.ID, msg); err != nil {
					return mapErr("outbox event", "mark event failed", err)
				}
				failed++
				continue
			}

			update := `
				UPDATE outbox_events
				SET status = 'processed',
					error_message = NULL,
					processed_at = NOW(),
					updated_at = NOW()
				WHERE id = $1
			`
			if _, err := tx.ExecContext(ctx, update, evt.ID); err != nil {
				return mapErr("outbox event", "mark event processed", err)
			}
			processed++
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return processed, failed, nil
}

func (r *outboxRepository) DeleteProcessedBefore(ctx context.Context, before time.Time) (n int64, err error) {
	defer func(start time.Time) { r.observe("outbox_cleanup", start, err) }(time.Now())

	query := `
		DELETE FROM outbox_events
		WHERE status = 'processed'
		AND processed_at < $1
	`
	result, err := r.db.ExecContext(ctx, query, before)
	if err != nil {
		return 0, mapErr("outbox event", "delete processed events", err)
	}

	return result.RowsAffected()
}
