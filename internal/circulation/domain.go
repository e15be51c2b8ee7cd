// internal/circulation/domain.go
package circulation

import (
	"time"

	"github.com/google/uuid"
)

const (
	// HoldPeriod is how long a pending reservation stays valid.
	HoldPeriod = 7 * 24 * time.Hour
	// LoanPeriod is the time between issuing a loan and its due date.
	LoanPeriod = 14 * 24 * time.Hour
)

type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "pending"
	ReservationConfirmed ReservationStatus = "confirmed"
	ReservationCancelled ReservationStatus = "cancelled"
	ReservationExpired   ReservationStatus = "expired"
)

type LoanStatus string

const (
	LoanActive   LoanStatus = "active"
	LoanOverdue  LoanStatus = "overdue"
	LoanReturned LoanStatus = "returned"
)

// Reservation is a user's hold on a book.
type Reservation struct {
	ID              uuid.UUID         `json:"id" db:"id"`
	UserID          uuid.UUID         `json:"user_id" db:"user_id"`
	BookID          uuid.UUID         `json:"book_id" db:"book_id"`
	Status          ReservationStatus `json:"status" db:"status"`
	ReservationDate time.Time         `json:"reservation_date" db:"reservation_date"`
	ExpiryDate      time.Time         `json:"expiry_date" db:"expiry_date"`
}

// Loan is one copy of a book lent to a user.
type Loan struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	UserID     uuid.UUID  `json:"user_id" db:"user_id"`
	BookID     uuid.UUID  `json:"book_id" db:"book_id"`
	LoanDate   time.Time  `json:"loan_date" db:"loan_date"`
	DueDate    time.Time  `json:"due_date" db:"due_date"`
	ReturnDate *time.Time `json:"return_date,omitempty" db:"return_date"`
	Status     LoanStatus `json:"status" db:"status"`
}

// Party names the user and book a reservation or loan refers to.
type Party struct {
	BookTitle string `json:"book_title" db:"book_title"`
	Username  string `json:"username" db:"username"`
	Email     string `json:"email" db:"email"`
}

type ReservationView struct {
	Reservation
	Party
}

type LoanView struct {
	Loan
	Party
}

// BookRanking counts how often a book has been lent.
type BookRanking struct {
	BookID    uuid.UUID `json:"book_id" db:"book_id"`
	Title     string    `json:"title" db:"title"`
	Author    string    `json:"author" db:"author"`
	LoanCount int       `json:"loan_count" db:"loan_count"`
}

// Actor is the authenticated principal performing an operation.
type Actor struct {
	UserID uuid.UUID
	Admin  bool
}

// Scope restricts a listing to one user. The zero Scope covers everyone.
type Scope struct {
	UserID uuid.UUID
}

func (s Scope) All() bool {
	return s.UserID == uuid.Nil
}

// ScopeFor lets admins see every record and users only their own.
func ScopeFor(a Actor) Scope {
	if a.Admin {
		return Scope{}
	}
	return Scope{UserID: a.UserID}
}
