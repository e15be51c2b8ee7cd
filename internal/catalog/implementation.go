// internal/catalog/implementation.go
package catalog

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"libris/internal/validation"
)

// service implements the Service interface.
type service struct {
	store  Store
	logger *zap.Logger
	tracer trace.Tracer
	now    func() time.Time
}

// NewService creates a new catalog service instance.
func NewService(store Store, logger *zap.Logger) Service {
	return &service{
		store:  store,
		logger: logger.Named("catalog"),
		tracer: otel.Tracer("libris/catalog"),
		now:    time.Now,
	}
}

// ListBooks returns one page of books matching query in title, author or
// isbn, newest first. Pages start at 1.
func (s *service) ListBooks(ctx context.Context, query string, page int) (*BookPage, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.list_books",
		trace.WithAttributes(attribute.String("query", query), attribute.Int("page", page)))
	defer span.End()

	page = max(1, min(page, maxPage))

	books, total, err := s.store.Search(ctx, query, PerPage, (page-1)*PerPage)
	if err != nil {
		return nil, fmt.Errorf("search books: %w", err)
	}

	return &BookPage{
		Books:      books,
		Page:       page,
		PerPage:    PerPage,
		Total:      total,
		TotalPages: (total + PerPage - 1) / PerPage,
	}, nil
}

// GetBook retrieves a book by its ID.
func (s *service) GetBook(ctx context.Context, id uuid.UUID) (*Book, error) {
	return s.store.Get(ctx, id, false)
}

func (s *service) ListAllBooks(ctx context.Context) ([]*Book, error) {
	return s.store.List(ctx)
}

// AddBook creates a book with all of its copies available.
func (s *service) AddBook(ctx context.Context, in BookInput) (*Book, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	book := s.newBook(in)
	if err := s.store.Insert(ctx, book); err != nil {
		return nil, fmt.Errorf("insert book: %w", err)
	}

	s.logger.Info("book added", zap.String("bookId", book.ID.String()), zap.String("title", book.Title))
	return book, nil
}

// UpdateBook replaces the editable fields of a book and resizes its
// inventory to the new total.
func (s *service) UpdateBook(ctx context.Context, id uuid.UUID, in BookInput) (*Book, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	return s.mutate(ctx, id, func(b *Book) error {
		in.apply(b)
		return b.ResizeTo(in.copies())
	})
}

// EditBookCopies changes only the total number of copies.
func (s *service) EditBookCopies(ctx context.Context, id uuid.UUID, newTotal int) (*Book, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.edit_copies",
		trace.WithAttributes(attribute.String("book.id", id.String()), attribute.Int("new.total", newTotal)))
	defer span.End()

	return s.mutate(ctx, id, func(b *Book) error {
		return b.ResizeTo(newTotal)
	})
}

func (s *service) mutate(ctx context.Context, id uuid.UUID, change func(*Book) error) (*Book, error) {
	var updated *Book
	err := s.store.WithTx(ctx, func(tx Store) error {
		book, err := tx.Get(ctx, id, true)
		if err != nil {
			return err
		}
		if err := change(book); err != nil {
			return err
		}
		if err := tx.Update(ctx, book); err != nil {
			return fmt.Errorf("update book: %w", err)
		}
		updated = book
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("book updated",
		zap.String("bookId", id.String()),
		zap.Int("totalCopies", updated.TotalCopies),
		zap.Int("availableCopies", updated.AvailableCopies))
	return updated, nil
}

func (s *service) DeleteBook(ctx context.Context, id uuid.UUID) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("book deleted", zap.String("bookId", id.String()))
	return nil
}

// ImportBooks creates one book per CSV record. The import is all or nothing.
func (s *service) ImportBooks(ctx context.Context, r io.Reader) (int, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.import_books")
	defer span.End()

	inputs, err := ParseBooksCSV(r)
	if err != nil {
		return 0, err
	}

	err = s.store.WithTx(ctx, func(tx Store) error {
		for i, in := range inputs {
			if err := tx.Insert(ctx, s.newBook(in)); err != nil {
				return fmt.Errorf("insert record %d: %w", i+1, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	span.SetAttributes(attribute.Int("books.imported", len(inputs)))
	s.logger.Info("books imported", zap.Int("count", len(inputs)))
	return len(inputs), nil
}

func (s *service) newBook(in BookInput) *Book {
	book := &Book{
		ID:              uuid.New(),
		TotalCopies:     in.copies(),
		AvailableCopies: in.copies(),
		CreatedAt:       s.now().UTC(),
	}
	in.apply(book)
	return book
}
