// internal/circulation/lifecycle.go
package circulation

import (
	"time"

	"github.com/google/uuid"
)

var reservationTransitions = map[ReservationStatus][]ReservationStatus{
	ReservationPending: {ReservationConfirmed, ReservationCancelled, ReservationExpired},
}

// NewReservation creates a pending hold that expires after HoldPeriod.
func NewReservation(userID, bookID uuid.UUID, now time.Time) *Reservation {
	return &Reservation{
		ID:              uuid.New(),
		UserID:          userID,
		BookID:          bookID,
		Status:          ReservationPending,
		ReservationDate: now,
		ExpiryDate:      now.Add(HoldPeriod),
	}
}

// CanTransitionTo reports whether next is reachable from the current status.
// Only pending reservations move; every other status is terminal.
func (r *Reservation) CanTransitionTo(next ReservationStatus) bool {
	for _, s := range reservationTransitions[r.Status] {
		if s == next {
			return true
		}
	}
	return false
}

func (r *Reservation) Cancel() error {
	if r.Status == ReservationCancelled {
		return ErrAlreadyCancelled
	}
	if !r.CanTransitionTo(ReservationCancelled) {
		return ErrNotPending
	}
	r.Status = ReservationCancelled
	return nil
}

func (r *Reservation) Confirm() error {
	if !r.CanTransitionTo(ReservationConfirmed) {
		return ErrNotPending
	}
	r.Status = ReservationConfirmed
	return nil
}

// IsExpired reports whether the hold period has passed. Nothing transitions a
// reservation to expired; callers only display it.
func (r *Reservation) IsExpired(now time.Time) bool {
	return r.Status == ReservationPending && now.After(r.ExpiryDate)
}

// CanBeCancelledBy checks ownership. Admins may cancel any reservation.
func (r *Reservation) CanBeCancelledBy(a Actor) bool {
	return a.Admin || a.UserID == r.UserID
}

// NewLoan issues an active loan due after LoanPeriod.
func NewLoan(userID, bookID uuid.UUID, now time.Time) *Loan {
	return &Loan{
		ID:       uuid.New(),
		UserID:   userID,
		BookID:   bookID,
		LoanDate: now,
		DueDate:  now.Add(LoanPeriod),
		Status:   LoanActive,
	}
}

func (l *Loan) Return(now time.Time) error {
	if l.Status == LoanReturned {
		return ErrAlreadyReturned
	}
	l.ReturnDate = &now
	l.Status = LoanReturned
	return nil
}

// RefreshOverdue promotes an active loan past its due date to overdue and
// reports whether it changed.
func (l *Loan) RefreshOverdue(now time.Time) bool {
	if l.Status != LoanActive || !l.DueDate.Before(now) {
		return false
	}
	l.Status = LoanOverdue
	return true
}

// IsUnderPenalty reports whether a penalty is still running at now.
func IsUnderPenalty(penaltyUntil *time.Time, now time.Time) bool {
	return penaltyUntil != nil && now.Before(*penaltyUntil)
}
