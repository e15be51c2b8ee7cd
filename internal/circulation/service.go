// internal/circulation/service.go
package circulation

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"

	"libris/internal/catalog"
	"libris/internal/journal"
)

// Service defines the interface for the circulation service.
type Service interface {
	CreateReservation(ctx context.Context, userID, bookID uuid.UUID) (*Reservation, error)
	CancelReservation(ctx context.Context, reservationID uuid.UUID, actor Actor) error
	ConvertReservationToLoan(ctx context.Context, reservationID uuid.UUID) (*Loan, error)
	ReturnLoan(ctx context.Context, loanID uuid.UUID) (*Loan, error)
	ListReservations(ctx context.Context, scope Scope) ([]*ReservationView, error)
	ListLoans(ctx context.Context, scope Scope) ([]*LoanView, error)
	HasPendingReservation(ctx context.Context, userID, bookID uuid.UUID) (bool, error)
	SweepOverdue(ctx context.Context) (int64, error)
	ExportLoans(ctx context.Context, w io.Writer) error
	TopBooks(ctx context.Context, limit int) ([]*BookRanking, error)
}

// Store persists reservations, loans and the inventory counters they move.
// Lookups return the package's NotFound errors for unknown ids.
type Store interface {
	// WithTx runs fn against a store bound to one transaction. Everything fn
	// writes is committed together or not at all.
	WithTx(ctx context.Context, fn func(tx Store) error) error

	GetBook(ctx context.Context, id uuid.UUID) (*catalog.Book, error)
	// IssueCopy takes one copy out of stock and fails with
	// catalog.ErrOutOfStock when none is left.
	IssueCopy(ctx context.Context, bookID uuid.UUID) error
	// ReturnCopy puts one copy back, never beyond the book's total.
	ReturnCopy(ctx context.Context, bookID uuid.UUID) error
	PenaltyUntil(ctx context.Context, userID uuid.UUID) (*time.Time, error)

	HasPendingReservation(ctx context.Context, userID, bookID uuid.UUID) (bool, error)
	InsertReservation(ctx context.Context, r *Reservation) error
	GetReservation(ctx context.Context, id uuid.UUID, forUpdate bool) (*Reservation, error)
	UpdateReservationStatus(ctx context.Context, id uuid.UUID, status ReservationStatus) error
	ListReservations(ctx context.Context, scope Scope) ([]*ReservationView, error)

	InsertLoan(ctx context.Context, l *Loan) error
	GetLoan(ctx context.Context, id uuid.UUID, forUpdate bool) (*Loan, error)
	UpdateLoan(ctx context.Context, l *Loan) error
	ListLoans(ctx context.Context, scope Scope) ([]*LoanView, error)
	// MarkOverdue promotes the given loans if they are still active and due
	// before now.
	MarkOverdue(ctx context.Context, ids []uuid.UUID, now time.Time) (int64, error)
	// PromoteOverdue promotes every active loan due before now.
	PromoteOverdue(ctx context.Context, now time.Time) (int64, error)
	TopBorrowed(ctx context.Context, limit int) ([]*BookRanking, error)

	AppendEvent(ctx context.Context, e *journal.Event) error
}

// Notifier delivers a message to a user after a transition commits.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, kind, message string) error
}
