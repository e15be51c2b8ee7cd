package journal_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libris/internal/database/dbtest"
	"libris/internal/journal"
)

type loanIssued struct {
	LoanID uuid.UUID `json:"loan_id"`
	Due    time.Time `json:"due"`
}

func TestNewEventEncodesPayload(t *testing.T) {
	id := uuid.New()
	due := time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC)

	e, err := journal.NewEvent(id, journal.AggregateLoan, "LoanIssued", loanIssued{LoanID: id, Due: due}, due)
	require.NoError(t, err)
	assert.JSONEq(t, `{"loan_id":"`+id.String()+`","due":"2025-03-15T10:00:00Z"}`, string(e.EventData))

	var decoded loanIssued
	require.NoError(t, e.Decode(&decoded))
	assert.Equal(t, id, decoded.LoanID)
	assert.True(t, due.Equal(decoded.Due))
}

func TestNewEventRejectsIncompleteEvents(t *testing.T) {
	_, err := journal.NewEvent(uuid.Nil, journal.AggregateLoan, "LoanIssued", nil, time.Now())
	assert.ErrorIs(t, err, journal.ErrInvalidEvent)

	_, err = journal.NewEvent(uuid.New(), journal.AggregateLoan, "", nil, time.Now())
	assert.ErrorIs(t, err, journal.ErrInvalidEvent)
}

func TestPostgresAppendAssignsVersions(t *testing.T) {
	db := dbtest.Setup(t)
	j := journal.New(db)
	ctx := context.Background()
	id := uuid.New()

	for i := 1; i <= 3; i++ {
		e, err := journal.NewEvent(id, journal.AggregateReservation, "Step", map[string]int{"n": i}, time.Now())
		require.NoError(t, err)
		require.NoError(t, j.Append(ctx, e))
		assert.Equal(t, i, e.Version)
		assert.NotZero(t, e.ID)
	}

	events, err := j.Load(ctx, id)
	require.NoError(t, err)
	require.Len(t, events, 3)
	for i, e := range events {
		assert.Equal(t, i+1, e.Version)
	}

	stream, err := j.Stream(ctx, events[0].ID, 10)
	require.NoError(t, err)
	assert.Len(t, stream, 2)
}

func TestPostgresConcurrentAppendsNeverShareVersion(t *testing.T) {
	db := dbtest.Setup(t)
	j := journal.New(db)
	ctx := context.Background()
	id := uuid.New()

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e, err := journal.NewEvent(id, journal.AggregateLoan, "Touched", struct{}{}, time.Now())
			if err != nil {
				errs <- err
				return
			}
			errs <- j.Append(ctx, e)
		}()
	}
	wg.Wait()
	close(errs)

	appended := 0
	for err := range errs {
		if err == nil {
			appended++
			continue
		}
		assert.ErrorIs(t, err, journal.ErrConcurrencyConflict)
	}

	events, err := j.Load(ctx, id)
	require.NoError(t, err)
	assert.Len(t, events, appended)
	for i, e := range events {
		assert.Equal(t, i+1, e.Version)
	}
}
