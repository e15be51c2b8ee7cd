// internal/admin/admin.go
package admin

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"libris/internal/journal"
)

const (
	DefaultEventBatch = 100
	MaxEventBatch     = 500
)

// Dashboard holds the back-office counters.
type Dashboard struct {
	TotalBooks          int `json:"total_books" db:"total_books"`
	TotalUsers          int `json:"total_users" db:"total_users"`
	PendingReservations int `json:"pending_reservations" db:"pending_reservations"`
	ActiveLoans         int `json:"active_loans" db:"active_loans"`
	OverdueLoans        int `json:"overdue_loans" db:"overdue_loans"`
}

type Store interface {
	Dashboard(ctx context.Context) (*Dashboard, error)
}

type Service interface {
	Dashboard(ctx context.Context) (*Dashboard, error)
	// Events pages through the circulation journal by id.
	Events(ctx context.Context, afterID int64, limit int) ([]journal.Event, error)
	// History returns the events of one reservation or loan.
	History(ctx context.Context, aggregateID uuid.UUID) ([]journal.Event, error)
}

type service struct {
	store  Store
	events journal.Reader
	tracer trace.Tracer
}

func NewService(store Store, events journal.Reader) Service {
	return &service{
		store:  store,
		events: events,
		tracer: otel.Tracer("libris/admin"),
	}
}

func (s *service) Dashboard(ctx context.Context) (*Dashboard, error) {
	ctx, span := s.tracer.Start(ctx, "admin.dashboard")
	defer span.End()

	d, err := s.store.Dashboard(ctx)
	if err != nil {
		return nil, fmt.Errorf("load dashboard: %w", err)
	}
	return d, nil
}

func (s *service) Events(ctx context.Context, afterID int64, limit int) ([]journal.Event, error) {
	if limit <= 0 {
		limit = DefaultEventBatch
	}
	limit = min(limit, MaxEventBatch)
	afterID = max(afterID, 0)

	ctx, span := s.tracer.Start(ctx, "admin.events",
		trace.WithAttributes(attribute.Int64("after.id", afterID), attribute.Int("limit", limit)))
	defer span.End()

	events, err := s.events.Stream(ctx, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("stream events: %w", err)
	}
	return events, nil
}

func (s *service) History(ctx context.Context, aggregateID uuid.UUID) ([]journal.Event, error) {
	events, err := s.events.Load(ctx, aggregateID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return events, nil
}
