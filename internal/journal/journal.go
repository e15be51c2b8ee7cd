// internal/journal/journal.go
package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
)

var (
	ErrConcurrencyConflict = errors.New("concurrency conflict: version already taken")
	ErrInvalidEvent        = errors.New("event needs an aggregate id, aggregate type and event type")
)

// Aggregate types recorded by the circulation engine.
const (
	AggregateReservation = "reservation"
	AggregateLoan        = "loan"
)

// Event is one recorded state transition. Version counts from 1 per aggregate.
type Event struct {
	ID            int64           `json:"id" db:"id"`
	AggregateID   uuid.UUID       `json:"aggregate_id" db:"aggregate_id"`
	AggregateType string          `json:"aggregate_type" db:"aggregate_type"`
	EventType     string          `json:"event_type" db:"event_type"`
	EventData     json.RawMessage `json:"event_data" db:"event_data"`
	Version       int             `json:"version" db:"version"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
}

// Reader serves the event feed.
type Reader interface {
	// Stream returns up to limit events with an id greater than afterID, oldest first.
	Stream(ctx context.Context, afterID int64, limit int) ([]Event, error)
	// Load returns every event of one aggregate in version order.
	Load(ctx context.Context, aggregateID uuid.UUID) ([]Event, error)
}

// NewEvent encodes payload and stamps the event. ID and Version are assigned
// when the event is appended.
func NewEvent(aggregateID uuid.UUID, aggregateType, eventType string, payload interface{}, at time.Time) (*Event, error) {
	data, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}

	e := &Event{
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     eventType,
		EventData:     data,
		CreatedAt:     at.UTC(),
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Event) Validate() error {
	if e.AggregateID == uuid.Nil || e.AggregateType == "" || e.EventType == "" {
		return ErrInvalidEvent
	}
	return nil
}

// Decode unmarshals the payload into v.
func (e *Event) Decode(v interface{}) error {
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(e.EventData, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.EventType, err)
	}
	return nil
}
