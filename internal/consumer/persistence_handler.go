package consumer

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/goshak24/ScolioFrontend-sub001/internal/observability"
)

const eventLogSchema = `CREATE TABLE IF NOT EXISTS adherence_event_log (
    id            BIGSERIAL PRIMARY KEY,
    event_type    TEXT NOT NULL,
    patient_id    TEXT NOT NULL,
    topic         TEXT NOT NULL,
    partition     INT NOT NULL,
    record_offset BIGINT NOT NULL,
    payload       JSONB NOT NULL,
    received_at   TIMESTAMPTZ NOT NULL,
    UNIQUE (topic, partition, record_offset)
)`

// PersistenceHandler writes consumed events into Postgres for auditing and reporting.
type PersistenceHandler struct {
	pool *pgxpool.Pool
}

// NewPersistenceHandler constructs a handler backed by the provided pool.
func NewPersistenceHandler(pool *pgxpool.Pool) *PersistenceHandler {
	return &PersistenceHandler{pool: pool}
}

// EnsureSchema creates the adherence_event_log table when missing.
func (h *PersistenceHandler) EnsureSchema(ctx context.Context) error {
	if _, err := h.pool.Exec(ctx, eventLogSchema); err != nil {
		return fmt.Errorf("create adherence_event_log: %w", err)
	}
	return nil
}

// Handle stores the event payload. Redelivered records are ignored.
func (h *PersistenceHandler) Handle(ctx context.Context, msg Message) error {
	conn, err := h.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx,
		`INSERT INTO adherence_event_log (event_type, patient_id, topic, partition, record_offset, payload, received_at)
         VALUES ($1,$2,$3,$4,$5,$6,$7)
         ON CONFLICT (topic, partition, record_offset) DO NOTHING`,
		msg.EventType,
		msg.PatientID,
		msg.Topic,
		msg.Partition,
		msg.Offset,
		msg.Payload,
		msg.Timestamp,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		recordDuplicate(msg.EventType)
		return nil
	}
	observability.RecordEventPersisted(msg.Timestamp)
	return nil
}
