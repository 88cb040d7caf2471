package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/alsalam/hospital-api/internal/model"
)

func (r *outboxRepository) Create(ctx context.Context, event *model.OutboxEvent) error {
	query := `
		INSERT INTO outbox_events (id, event_type, payload, status, retry_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 0, $5, $6)
	`
	now := time.Now()
	event.Status = model.OutboxStatusPending
	event.CreatedAt = now
	event.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, query,
		event.ID, event.EventType, event.Payload, event.Status, event.CreatedAt, event.UpdatedAt)
	return wrapErr("failed to create outbox event", err)
}

// ClaimPending moves up to limit pending events to processing and returns
// them. The status transition keeps claimed rows invisible to other workers
// after the statement commits; SKIP LOCKED only covers claims racing within
// the same statement window. Rows stuck in processing are reclaimed after ten
// minutes in case a worker died mid-publish.
func (r *outboxRepository) ClaimPending(ctx context.Context, limit int) ([]*model.OutboxEvent, error) {
	query := `
		UPDATE outbox_events
		SET status = 'processing', updated_at = now()
		WHERE id IN (
			SELECT id FROM outbox_events
			WHERE (status = 'pending' AND (retry_at IS NULL OR retry_at <= now()))
			   OR (status = 'processing' AND updated_at < now() - interval '10 minutes')
			ORDER BY created_at
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING *
	`
	events := []*model.OutboxEvent{}
	if err := r.db.SelectContext(ctx, &events, query, limit); err != nil {
		return nil, wrapErr("failed to claim pending events", err)
	}
	return events, nil
}

func (r *outboxRepository) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE outbox_events
		SET status = 'processed', processed_at = now(), updated_at = now(), error_message = NULL
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return wrapErr("failed to mark event processed", err)
	}
	return requireRow(result, "failed to mark event processed")
}

// MarkFailed records the error and schedules a retry with linear backoff;
// after five attempts the event is parked as failed.
func (r *outboxRepository) MarkFailed(ctx context.Context, id uuid.UUID, errorMessage string) error {
	query := `
		UPDATE outbox_events
		SET retry_count = retry_count + 1,
		    error_message = $2,
		    retry_at = now() + (retry_count + 1) * interval '1 minute',
		    status = CASE WHEN retry_count + 1 >= 5 THEN 'failed' ELSE 'pending' END,
		    updated_at = now()
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query, id, errorMessage)
	if err != nil {
		return wrapErr("failed to mark event failed", err)
	}
	return requireRow(result, "failed to mark event failed")
}

func (r *outboxRepository) DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	query := `DELETE FROM outbox_events WHERE status = 'processed' AND processed_at < $1`
	result, err := r.db.ExecContext(ctx, query, before)
	if err != nil {
		return 0, wrapErr("failed to delete processed events", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, wrapErr("failed to delete processed events", err)
	}
	return deleted, nil
}
