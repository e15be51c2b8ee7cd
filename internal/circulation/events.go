// internal/circulation/events.go
package circulation

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventReservationCreated   = "ReservationCreated"
	EventReservationCancelled = "ReservationCancelled"
	EventReservationConfirmed = "ReservationConfirmed"
	EventLoanIssued           = "LoanIssued"
	EventLoanReturned         = "LoanReturned"
)

// ReservationCreatedEvent is recorded when a user places a hold.
type ReservationCreatedEvent struct {
	ReservationID uuid.UUID `json:"reservation_id"`
	UserID        uuid.UUID `json:"user_id"`
	BookID        uuid.UUID `json:"book_id"`
	ExpiryDate    time.Time `json:"expiry_date"`
}

// ReservationStatusEvent is recorded when a hold is cancelled or confirmed.
type ReservationStatusEvent struct {
	ReservationID uuid.UUID         `json:"reservation_id"`
	Status        ReservationStatus `json:"status"`
	ActorID       uuid.UUID         `json:"actor_id,omitempty"`
}

// LoanIssuedEvent is recorded when a reservation becomes a loan.
type LoanIssuedEvent struct {
	LoanID        uuid.UUID `json:"loan_id"`
	ReservationID uuid.UUID `json:"reservation_id"`
	UserID        uuid.UUID `json:"user_id"`
	BookID        uuid.UUID `json:"book_id"`
	DueDate       time.Time `json:"due_date"`
}

// LoanReturnedEvent is recorded when a copy comes back.
type LoanReturnedEvent struct {
	LoanID     uuid.UUID `json:"loan_id"`
	UserID     uuid.UUID `json:"user_id"`
	BookID     uuid.UUID `json:"book_id"`
	ReturnDate time.Time `json:"return_date"`
	Late       bool      `json:"late"`
}
