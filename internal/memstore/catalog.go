// internal/memstore/catalog.go
package memstore

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"libris/internal/catalog"
)

type catalogStore struct {
	s session
}

func (c *catalogStore) WithTx(ctx context.Context, fn func(tx catalog.Store) error) error {
	return c.s.withTx(func(tx session) error {
		return fn(&catalogStore{tx})
	})
}

func (c *catalogStore) Search(ctx context.Context, query string, limit, offset int) ([]*catalog.Book, int, error) {
	var matches []*catalog.Book
	err := c.s.do(func(st *state) error {
		needle := strings.ToLower(query)
		for _, b := range st.books {
			if needle == "" || bookMatches(b, needle) {
				book := b
				matches = append(matches, &book)
			}
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	sortBooks(matches)
	total := len(matches)
	start := min(max(offset, 0), total)
	end := min(start+limit, total)
	return append([]*catalog.Book{}, matches[start:end]...), total, nil
}

func bookMatches(b catalog.Book, needle string) bool {
	if strings.Contains(strings.ToLower(b.Title), needle) || strings.Contains(strings.ToLower(b.Author), needle) {
		return true
	}
	return b.ISBN != nil && strings.Contains(strings.ToLower(*b.ISBN), needle)
}

func sortBooks(books []*catalog.Book) {
	newestFirst(books,
		func(b *catalog.Book) time.Time { return b.CreatedAt },
		func(b *catalog.Book) uuid.UUID { return b.ID })
}

func (c *catalogStore) List(ctx context.Context) ([]*catalog.Book, error) {
	books := []*catalog.Book{}
	err := c.s.do(func(st *state) error {
		for _, b := range st.books {
			book := b
			books = append(books, &book)
		}
		return nil
	})
	sortBooks(books)
	return books, err
}

func (c *catalogStore) Get(ctx context.Context, id uuid.UUID, forUpdate bool) (*catalog.Book, error) {
	var book catalog.Book
	err := c.s.do(func(st *state) error {
		b, ok := st.books[id]
		if !ok {
			return catalog.ErrBookNotFound
		}
		book = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &book, nil
}

func (c *catalogStore) Insert(ctx context.Context, b *catalog.Book) error {
	return c.s.do(func(st *state) error {
		if _, ok := st.books[b.ID]; ok {
			return errUniqueViolation
		}
		if err := checkInventory(b); err != nil {
			return err
		}
		st.books[b.ID] = *b
		return nil
	})
}

func (c *catalogStore) Update(ctx context.Context, b *catalog.Book) error {
	return c.s.do(func(st *state) error {
		if _, ok := st.books[b.ID]; !ok {
			return catalog.ErrBookNotFound
		}
		if err := checkInventory(b); err != nil {
			return err
		}
		st.books[b.ID] = *b
		return nil
	})
}

// Delete removes the book and everything that references it.
func (c *catalogStore) Delete(ctx context.Context, id uuid.UUID) error {
	return c.s.do(func(st *state) error {
		if _, ok := st.books[id]; !ok {
			return catalog.ErrBookNotFound
		}
		delete(st.books, id)
		for rid, r := range st.reservations {
			if r.BookID == id {
				delete(st.reservations, rid)
			}
		}
		for lid, l := range st.loans {
			if l.BookID == id {
				delete(st.loans, lid)
			}
		}
		for key := range st.favorites {
			if key.bookID == id {
				delete(st.favorites, key)
			}
		}
		for rid, r := range st.reviews {
			if r.BookID == id {
				delete(st.reviews, rid)
			}
		}
		return nil
	})
}

// checkInventory mirrors the CHECK constraints on the books table.
func checkInventory(b *catalog.Book) error {
	if b.TotalCopies < 0 || b.AvailableCopies < 0 || b.AvailableCopies > b.TotalCopies {
		return catalog.ErrNegativeCopies
	}
	return nil
}
