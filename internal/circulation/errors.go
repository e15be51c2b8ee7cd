// internal/circulation/errors.go
package circulation

import (
	"libris/internal/apperr"
)

var (
	ErrReservationNotFound = apperr.NotFound("reservation_not_found", "reservation not found")
	ErrLoanNotFound        = apperr.NotFound("loan_not_found", "loan not found")
	ErrUserNotFound        = apperr.NotFound("user_not_found", "user not found")

	ErrBookUnavailable  = apperr.New(apperr.KindOutOfStock, "book_unavailable", "this book is currently unavailable")
	ErrUnderPenalty     = apperr.New(apperr.KindUnderPenalty, "under_penalty", "you cannot reserve books while under penalty")
	ErrDuplicatePending = apperr.Conflict("duplicate_pending", "you already have a pending reservation for this book")
	ErrNotPending       = apperr.Conflict("not_pending", "reservation is not pending")
	ErrAlreadyCancelled = apperr.Conflict("already_cancelled", "reservation is already cancelled")
	ErrAlreadyReturned  = apperr.Conflict("already_returned", "loan is already returned")
	ErrNotOwner         = apperr.Forbidden("you can only cancel your own reservations")
)
