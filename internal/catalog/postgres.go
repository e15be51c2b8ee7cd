// internal/catalog/postgres.go
package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"libris/internal/database"
)

var bookColumns = []interface{}{
	"id", "title", "author", "isbn", "publisher", "publication_date",
	"total_copies", "available_copies", "created_at",
}

const selectBook = `
	SELECT id, title, author, isbn, publisher, publication_date, total_copies, available_copies, created_at
	FROM books
`

type pgStore struct {
	db *sqlx.DB
	q  database.Queryer
}

// NewPostgresStore returns a Store backed by the books table.
func NewPostgresStore(db *sqlx.DB) Store {
	return &pgStore{db: db, q: db}
}

func (s *pgStore) WithTx(ctx context.Context, fn func(tx Store) error) error {
	if _, inTx := s.q.(*sqlx.Tx); inTx {
		return fn(s)
	}
	return database.RunInTx(ctx, s.db, func(tx *sqlx.Tx) error {
		return fn(&pgStore{db: s.db, q: tx})
	})
}

// likeEscaper quotes the ILIKE wildcards so a query matches literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (s *pgStore) Search(ctx context.Context, query string, limit, offset int) ([]*Book, int, error) {
	ds := goqu.Dialect("postgres").From("books").Prepared(true)
	if query != "" {
		pattern := "%" + likeEscaper.Replace(query) + "%"
		ds = ds.Where(goqu.Or(
			goqu.C("title").ILike(pattern),
			goqu.C("author").ILike(pattern),
			goqu.C("isbn").ILike(pattern),
		))
	}

	countSQL, countArgs, err := ds.Select(goqu.COUNT("*")).ToSQL()
	if err != nil {
		return nil, 0, fmt.Errorf("build count query: %w", err)
	}
	var total int
	if err := s.q.GetContext(ctx, &total, countSQL, countArgs...); err != nil {
		return nil, 0, database.MapError(err)
	}

	listSQL, listArgs, err := ds.Select(bookColumns...).
		Order(goqu.C("created_at").Desc(), goqu.C("id").Asc()).
		Limit(uint(limit)).
		Offset(uint(offset)).
		ToSQL()
	if err != nil {
		return nil, 0, fmt.Errorf("build search query: %w", err)
	}
	books := []*Book{}
	if err := s.q.SelectContext(ctx, &books, listSQL, listArgs...); err != nil {
		return nil, 0, database.MapError(err)
	}

	return books, total, nil
}

func (s *pgStore) List(ctx context.Context) ([]*Book, error) {
	books := []*Book{}
	if err := s.q.SelectContext(ctx, &books, selectBook+` ORDER BY created_at DESC`); err != nil {
		return nil, database.MapError(err)
	}
	return books, nil
}

func (s *pgStore) Get(ctx context.Context, id uuid.UUID, forUpdate bool) (*Book, error) {
	query := selectBook + ` WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	book := &Book{}
	if err := s.q.GetContext(ctx, book, query, id); err != nil {
		if database.IsNoRows(err) {
			return nil, ErrBookNotFound
		}
		return nil, database.MapError(err)
	}
	return book, nil
}

func (s *pgStore) Insert(ctx context.Context, b *Book) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO books (id, title, author, isbn, publisher, publication_date, total_copies, available_copies, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, b.ID, b.Title, b.Author, b.ISBN, b.Publisher, b.PublicationDate, b.TotalCopies, b.AvailableCopies, b.CreatedAt)
	return database.MapError(err)
}

func (s *pgStore) Update(ctx context.Context, b *Book) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE books
		SET title = $1, author = $2, isbn = $3, publisher = $4, publication_date = $5,
		    total_copies = $6, available_copies = $7
		WHERE id = $8
	`, b.Title, b.Author, b.ISBN, b.Publisher, b.PublicationDate, b.TotalCopies, b.AvailableCopies, b.ID)
	if err != nil {
		return database.MapError(err)
	}
	return expectOne(res.RowsAffected())
}

func (s *pgStore) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.q.ExecContext(ctx, `DELETE FROM books WHERE id = $1`, id)
	if err != nil {
		return database.MapError(err)
	}
	return expectOne(res.RowsAffected())
}

func expectOne(n int64, err error) error {
	if err != nil {
		return database.MapError(err)
	}
	if n == 0 {
		return ErrBookNotFound
	}
	return nil
}
