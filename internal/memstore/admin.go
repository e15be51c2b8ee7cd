// internal/memstore/admin.go
package memstore

import (
	"context"

	"github.com/google/uuid"

	"libris/internal/admin"
	"libris/internal/circulation"
	"libris/internal/journal"
)

type adminStore struct {
	s session
}

func (a *adminStore) Dashboard(ctx context.Context) (*admin.Dashboard, error) {
	d := &admin.Dashboard{}
	err := a.s.do(func(st *state) error {
		d.TotalBooks = len(st.books)
		d.TotalUsers = len(st.users)
		for _, r := range st.reservations {
			if r.Status == circulation.ReservationPending {
				d.PendingReservations++
			}
		}
		for _, l := range st.loans {
			switch l.Status {
			case circulation.LoanActive:
				d.ActiveLoans++
			case circulation.LoanOverdue:
				d.OverdueLoans++
			}
		}
		return nil
	})
	return d, err
}

type journalStore struct {
	s session
}

// Stream relies on ids being assigned in append order.
func (j *journalStore) Stream(ctx context.Context, afterID int64, limit int) ([]journal.Event, error) {
	events := []journal.Event{}
	err := j.s.do(func(st *state) error {
		for _, e := range st.events {
			if len(events) == limit {
				break
			}
			if e.ID > afterID {
				events = append(events, e)
			}
		}
		return nil
	})
	return events, err
}

func (j *journalStore) Load(ctx context.Context, aggregateID uuid.UUID) ([]journal.Event, error) {
	events := []journal.Event{}
	err := j.s.do(func(st *state) error {
		for _, e := range st.events {
			if e.AggregateID == aggregateID {
				events = append(events, e)
			}
		}
		return nil
	})
	return events, err
}
