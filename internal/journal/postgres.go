// internal/journal/postgres.go
package journal

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"libris/internal/database"
)

const selectEvent = `
	SELECT id, aggregate_id, aggregate_type, event_type, event_data, version, created_at
	FROM circulation_events
`

// Journal reads and writes circulation_events. Bound to a transaction it
// appends in the same unit of work as the transition it records.
type Journal struct {
	q      database.Queryer
	tracer trace.Tracer
}

func New(q database.Queryer) *Journal {
	return &Journal{
		q:      q,
		tracer: otel.Tracer("libris/journal"),
	}
}

// Append stores e with the next version of its aggregate and fills in ID and
// Version. Two writers racing for the same version get ErrConcurrencyConflict.
func (j *Journal) Append(ctx context.Context, e *Event) error {
	ctx, span := j.tracer.Start(ctx, "journal.append",
		trace.WithAttributes(
			attribute.String("aggregate.id", e.AggregateID.String()),
			attribute.String("aggregate.type", e.AggregateType),
			attribute.String("event.type", e.EventType),
		),
	)
	defer span.End()

	if err := e.Validate(); err != nil {
		return err
	}

	row := j.q.QueryRowxContext(ctx, `
		INSERT INTO circulation_events (aggregate_id, aggregate_type, event_type, event_data, version, created_at)
		SELECT $1::uuid, $2::text, $3::text, $4::jsonb, COALESCE(MAX(version), 0) + 1, $5::timestamptz
		FROM circulation_events
		WHERE aggregate_id = $1::uuid
		RETURNING id, version
	`, e.AggregateID, e.AggregateType, e.EventType, string(e.EventData), e.CreatedAt)

	if err := row.Scan(&e.ID, &e.Version); err != nil {
		if database.IsUniqueViolation(err) {
			span.SetAttributes(attribute.Bool("conflict.detected", true))
			return ErrConcurrencyConflict
		}
		return fmt.Errorf("insert event: %w", err)
	}

	span.AddEvent("event.appended", trace.WithAttributes(
		attribute.Int64("event.id", e.ID),
		attribute.Int("event.version", e.Version),
	))
	return nil
}

func (j *Journal) Stream(ctx context.Context, afterID int64, limit int) ([]Event, error) {
	ctx, span := j.tracer.Start(ctx, "journal.stream",
		trace.WithAttributes(
			attribute.Int64("from.id", afterID),
			attribute.Int("batch.size", limit),
		),
	)
	defer span.End()

	events := []Event{}
	if err := j.q.SelectContext(ctx, &events, selectEvent+`
		WHERE id > $1
		ORDER BY id ASC
		LIMIT $2
	`, afterID, limit); err != nil {
		return nil, fmt.Errorf("query event stream: %w", err)
	}

	span.SetAttributes(attribute.Int("events.streamed", len(events)))
	return events, nil
}

func (j *Journal) Load(ctx context.Context, aggregateID uuid.UUID) ([]Event, error) {
	ctx, span := j.tracer.Start(ctx, "journal.load",
		trace.WithAttributes(attribute.String("aggregate.id", aggregateID.String())),
	)
	defer span.End()

	events := []Event{}
	if err := j.q.SelectContext(ctx, &events, selectEvent+`
		WHERE aggregate_id = $1
		ORDER BY version ASC
	`, aggregateID); err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}

	span.SetAttributes(attribute.Int("events.loaded", len(events)))
	return events, nil
}
