// internal/catalog/ledger.go
package catalog

import (
	"libris/internal/apperr"
)

var (
	ErrBookNotFound   = apperr.NotFound("book_not_found", "book not found")
	ErrOutOfStock     = apperr.New(apperr.KindOutOfStock, "out_of_stock", "no copies of this book are available")
	ErrNegativeCopies = apperr.New(apperr.KindValidation, "negative_copies", "total copies must not be negative")
)

// The methods below are the inventory ledger. Stores that keep copies in SQL
// express the same rules as conditional updates.

// IsAvailable reports whether at least one copy can be lent.
func (b *Book) IsAvailable() bool {
	return b.AvailableCopies > 0
}

// Issue takes one copy out of circulation.
func (b *Book) Issue() error {
	if b.AvailableCopies <= 0 {
		return ErrOutOfStock
	}
	b.AvailableCopies--
	return nil
}

// Return puts one copy back, never beyond the total.
func (b *Book) Return() {
	b.AvailableCopies = max(0, min(b.AvailableCopies+1, b.TotalCopies))
}

// ResizeTo changes the total and shifts the available count by the same
// delta, clamped to [0, newTotal].
func (b *Book) ResizeTo(newTotal int) error {
	if newTotal < 0 {
		return ErrNegativeCopies
	}
	available := b.AvailableCopies + (newTotal - b.TotalCopies)
	b.TotalCopies = newTotal
	b.AvailableCopies = max(0, min(available, newTotal))
	return nil
}
