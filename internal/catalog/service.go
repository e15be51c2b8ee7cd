// internal/catalog/service.go
package catalog

import (
	"context"
	"io"

	"github.com/google/uuid"
)

// Service defines the interface for the catalog service.
type Service interface {
	ListBooks(ctx context.Context, query string, page int) (*BookPage, error)
	GetBook(ctx context.Context, id uuid.UUID) (*Book, error)
	ListAllBooks(ctx context.Context) ([]*Book, error)
	AddBook(ctx context.Context, in BookInput) (*Book, error)
	UpdateBook(ctx context.Context, id uuid.UUID, in BookInput) (*Book, error)
	EditBookCopies(ctx context.Context, id uuid.UUID, newTotal int) (*Book, error)
	DeleteBook(ctx context.Context, id uuid.UUID) error
	ImportBooks(ctx context.Context, r io.Reader) (int, error)
}

// Store persists books. Get returns ErrBookNotFound for unknown ids.
type Store interface {
	// WithTx runs fn against a store bound to one transaction.
	WithTx(ctx context.Context, fn func(tx Store) error) error
	Search(ctx context.Context, query string, limit, offset int) ([]*Book, int, error)
	List(ctx context.Context) ([]*Book, error)
	Get(ctx context.Context, id uuid.UUID, forUpdate bool) (*Book, error)
	Insert(ctx context.Context, b *Book) error
	Update(ctx context.Context, b *Book) error
	Delete(ctx context.Context, id uuid.UUID) error
}
