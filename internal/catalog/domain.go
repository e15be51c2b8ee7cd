// internal/catalog/domain.go
package catalog

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// PerPage is the size of a public catalog page.
const PerPage = 20

// maxPage keeps the page offset within int range.
const maxPage = math.MaxInt/PerPage + 1

// Book is a catalog title together with its copy inventory.
type Book struct {
	ID              uuid.UUID  `json:"id" db:"id"`
	Title           string     `json:"title" db:"title"`
	Author          string     `json:"author" db:"author"`
	ISBN            *string    `json:"isbn,omitempty" db:"isbn"`
	Publisher       *string    `json:"publisher,omitempty" db:"publisher"`
	PublicationDate *time.Time `json:"publication_date,omitempty" db:"publication_date"`
	TotalCopies     int        `json:"total_copies" db:"total_copies"`
	AvailableCopies int        `json:"available_copies" db:"available_copies"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
}

// BookPage is one page of a catalog search.
type BookPage struct {
	Books      []*Book `json:"books"`
	Page       int     `json:"page"`
	PerPage    int     `json:"per_page"`
	Total      int     `json:"total"`
	TotalPages int     `json:"total_pages"`
}

// BookInput carries the editable fields of a book. A non-positive
// TotalCopies means one copy.
type BookInput struct {
	Title           string `json:"title" validate:"required,max=200"`
	Author          string `json:"author" validate:"required,max=100"`
	ISBN            string `json:"isbn" validate:"omitempty,max=20"`
	Publisher       string `json:"publisher" validate:"omitempty,max=100"`
	PublicationDate string `json:"publication_date" validate:"omitempty,datetime=2006-01-02"`
	TotalCopies     int    `json:"total_copies"`
}

func (in BookInput) copies() int {
	if in.TotalCopies <= 0 {
		return 1
	}
	return in.TotalCopies
}

func (in BookInput) apply(b *Book) {
	b.Title = in.Title
	b.Author = in.Author
	b.ISBN = optional(in.ISBN)
	b.Publisher = optional(in.Publisher)
	b.PublicationDate = nil
	if in.PublicationDate != "" {
		// already checked by the datetime validator
		if d, err := time.Parse(time.DateOnly, in.PublicationDate); err == nil {
			b.PublicationDate = &d
		}
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
