// internal/memstore/circulation.go
package memstore

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/google/uuid"

	"libris/internal/catalog"
	"libris/internal/circulation"
	"libris/internal/journal"
)

type circulationStore struct {
	s session
}

func (c *circulationStore) WithTx(ctx context.Context, fn func(tx circulation.Store) error) error {
	return c.s.withTx(func(tx session) error {
		return fn(&circulationStore{tx})
	})
}

func (c *circulationStore) GetBook(ctx context.Context, id uuid.UUID) (*catalog.Book, error) {
	return (&catalogStore{c.s}).Get(ctx, id, false)
}

func (c *circulationStore) IssueCopy(ctx context.Context, bookID uuid.UUID) error {
	return c.s.do(func(st *state) error {
		b, ok := st.books[bookID]
		if !ok {
			return catalog.ErrOutOfStock
		}
		if err := b.Issue(); err != nil {
			return err
		}
		st.books[bookID] = b
		return nil
	})
}

func (c *circulationStore) ReturnCopy(ctx context.Context, bookID uuid.UUID) error {
	return c.s.do(func(st *state) error {
		b, ok := st.books[bookID]
		if !ok {
			return catalog.ErrBookNotFound
		}
		b.Return()
		st.books[bookID] = b
		return nil
	})
}

func (c *circulationStore) PenaltyUntil(ctx context.Context, userID uuid.UUID) (*time.Time, error) {
	var until *time.Time
	err := c.s.do(func(st *state) error {
		u, ok := st.users[userID]
		if !ok {
			return circulation.ErrUserNotFound
		}
		until = u.PenaltyUntil
		return nil
	})
	return until, err
}

func (c *circulationStore) HasPendingReservation(ctx context.Context, userID, bookID uuid.UUID) (bool, error) {
	var found bool
	err := c.s.do(func(st *state) error {
		found = hasPending(st, userID, bookID)
		return nil
	})
	return found, err
}

func hasPending(st *state, userID, bookID uuid.UUID) bool {
	for _, r := range st.reservations {
		if r.UserID == userID && r.BookID == bookID && r.Status == circulation.ReservationPending {
			return true
		}
	}
	return false
}

func (c *circulationStore) InsertReservation(ctx context.Context, r *circulation.Reservation) error {
	return c.s.do(func(st *state) error {
		if _, ok := st.reservations[r.ID]; ok {
			return errUniqueViolation
		}
		if r.Status == circulation.ReservationPending && hasPending(st, r.UserID, r.BookID) {
			return circulation.ErrDuplicatePending
		}
		st.reservations[r.ID] = *r
		return nil
	})
}

func (c *circulationStore) GetReservation(ctx context.Context, id uuid.UUID, forUpdate bool) (*circulation.Reservation, error) {
	var r circulation.Reservation
	err := c.s.do(func(st *state) error {
		found, ok := st.reservations[id]
		if !ok {
			return circulation.ErrReservationNotFound
		}
		r = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (c *circulationStore) UpdateReservationStatus(ctx context.Context, id uuid.UUID, status circulation.ReservationStatus) error {
	return c.s.do(func(st *state) error {
		r, ok := st.reservations[id]
		if !ok {
			return circulation.ErrReservationNotFound
		}
		r.Status = status
		st.reservations[id] = r
		return nil
	})
}

// party resolves the joined columns. ok is false when the book or user is
// gone, matching the inner join of the SQL store.
func party(st *state, userID, bookID uuid.UUID) (circulation.Party, bool) {
	b, ok := st.books[bookID]
	if !ok {
		return circulation.Party{}, false
	}
	u, ok := st.users[userID]
	if !ok {
		return circulation.Party{}, false
	}
	return circulation.Party{BookTitle: b.Title, Username: u.Username, Email: u.Email}, true
}

func inScope(scope circulation.Scope, userID uuid.UUID) bool {
	return scope.All() || scope.UserID == userID
}

func (c *circulationStore) ListReservations(ctx context.Context, scope circulation.Scope) ([]*circulation.ReservationView, error) {
	views := []*circulation.ReservationView{}
	err := c.s.do(func(st *state) error {
		for _, r := range st.reservations {
			if !inScope(scope, r.UserID) {
				continue
			}
			if p, ok := party(st, r.UserID, r.BookID); ok {
				views = append(views, &circulation.ReservationView{Reservation: r, Party: p})
			}
		}
		return nil
	})
	newestFirst(views,
		func(v *circulation.ReservationView) time.Time { return v.ReservationDate },
		func(v *circulation.ReservationView) uuid.UUID { return v.ID })
	return views, err
}

func (c *circulationStore) InsertLoan(ctx context.Context, l *circulation.Loan) error {
	return c.s.do(func(st *state) error {
		if _, ok := st.loans[l.ID]; ok {
			return errUniqueViolation
		}
		st.loans[l.ID] = *l
		return nil
	})
}

func (c *circulationStore) GetLoan(ctx context.Context, id uuid.UUID, forUpdate bool) (*circulation.Loan, error) {
	var l circulation.Loan
	err := c.s.do(func(st *state) error {
		found, ok := st.loans[id]
		if !ok {
			return circulation.ErrLoanNotFound
		}
		l = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (c *circulationStore) UpdateLoan(ctx context.Context, l *circulation.Loan) error {
	return c.s.do(func(st *state) error {
		existing, ok := st.loans[l.ID]
		if !ok {
			return circulation.ErrLoanNotFound
		}
		existing.Status = l.Status
		existing.ReturnDate = l.ReturnDate
		st.loans[l.ID] = existing
		return nil
	})
}

func (c *circulationStore) ListLoans(ctx context.Context, scope circulation.Scope) ([]*circulation.LoanView, error) {
	views := []*circulation.LoanView{}
	err := c.s.do(func(st *state) error {
		for _, l := range st.loans {
			if !inScope(scope, l.UserID) {
				continue
			}
			if p, ok := party(st, l.UserID, l.BookID); ok {
				views = append(views, &circulation.LoanView{Loan: l, Party: p})
			}
		}
		return nil
	})
	newestFirst(views,
		func(v *circulation.LoanView) time.Time { return v.LoanDate },
		func(v *circulation.LoanView) uuid.UUID { return v.ID })
	return views, err
}

func (c *circulationStore) MarkOverdue(ctx context.Context, ids []uuid.UUID, now time.Time) (int64, error) {
	var n int64
	err := c.s.do(func(st *state) error {
		for _, id := range ids {
			if l, ok := st.loans[id]; ok && promote(&l, now) {
				st.loans[id] = l
				n++
			}
		}
		return nil
	})
	return n, err
}

func (c *circulationStore) PromoteOverdue(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	err := c.s.do(func(st *state) error {
		for id, l := range st.loans {
			if promote(&l, now) {
				st.loans[id] = l
				n++
			}
		}
		return nil
	})
	return n, err
}

func promote(l *circulation.Loan, now time.Time) bool {
	if l.Status != circulation.LoanActive || !l.DueDate.Before(now) {
		return false
	}
	l.Status = circulation.LoanOverdue
	return true
}

func (c *circulationStore) TopBorrowed(ctx context.Context, limit int) ([]*circulation.BookRanking, error) {
	rankings := []*circulation.BookRanking{}
	err := c.s.do(func(st *state) error {
		counts := make(map[uuid.UUID]int)
		for _, l := range st.loans {
			if _, ok := st.books[l.BookID]; ok {
				counts[l.BookID]++
			}
		}
		for id, n := range counts {
			b := st.books[id]
			rankings = append(rankings, &circulation.BookRanking{
				BookID: id, Title: b.Title, Author: b.Author, LoanCount: n,
			})
		}
		return nil
	})
	slices.SortFunc(rankings, func(a, b *circulation.BookRanking) int {
		if c := cmp.Compare(b.LoanCount, a.LoanCount); c != 0 {
			return c
		}
		return cmp.Compare(a.Title, b.Title)
	})
	if len(rankings) > limit {
		rankings = rankings[:limit]
	}
	return rankings, err
}

func (c *circulationStore) AppendEvent(ctx context.Context, e *journal.Event) error {
	if err := e.Validate(); err != nil {
		return err
	}
	return c.s.do(func(st *state) error {
		version := 1
		for _, prev := range st.events {
			if prev.AggregateID == e.AggregateID {
				version = prev.Version + 1
			}
		}
		e.ID = int64(len(st.events) + 1)
		e.Version = version
		st.events = append(st.events, *e)
		return nil
	})
}
