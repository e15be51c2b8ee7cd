package catalog_test

import (
	"context"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"libris/internal/apperr"
	"libris/internal/catalog"
	"libris/internal/memstore"
)

func newService(t *testing.T) (catalog.Service, *memstore.DB) {
	t.Helper()
	db := memstore.New()
	return catalog.NewService(db.Catalog(), zap.NewNop()), db
}

func TestAddBookDefaultsToOneCopy(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	book, err := svc.AddBook(ctx, catalog.BookInput{Title: "Dune", Author: "Frank Herbert"})
	require.NoError(t, err)
	assert.Equal(t, 1, book.TotalCopies)
	assert.Equal(t, 1, book.AvailableCopies)
	assert.Nil(t, book.ISBN)

	stored, err := svc.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, book.Title, stored.Title)
}

func TestAddBookValidatesInput(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.AddBook(context.Background(), catalog.BookInput{Title: "No author"})
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = svc.AddBook(context.Background(), catalog.BookInput{Title: "T", Author: "A", PublicationDate: "yesterday"})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestListBooksPaginatesAndSearches(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	for i := 0; i < 23; i++ {
		_, err := svc.AddBook(ctx, catalog.BookInput{Title: fmt.Sprintf("Volume %d", i), Author: "Anon"})
		require.NoError(t, err)
	}
	_, err := svc.AddBook(ctx, catalog.BookInput{Title: "Learning Go", Author: "Jon Bodner", ISBN: "978-1492077213"})
	require.NoError(t, err)

	first, err := svc.ListBooks(ctx, "", 1)
	require.NoError(t, err)
	assert.Len(t, first.Books, catalog.PerPage)
	assert.Equal(t, 24, first.Total)
	assert.Equal(t, 2, first.TotalPages)

	second, err := svc.ListBooks(ctx, "", 2)
	require.NoError(t, err)
	assert.Len(t, second.Books, 4)

	past, err := svc.ListBooks(ctx, "", 9)
	require.NoError(t, err)
	assert.Empty(t, past.Books)

	byAuthor, err := svc.ListBooks(ctx, "bodner", 1)
	require.NoError(t, err)
	require.Len(t, byAuthor.Books, 1)
	assert.Equal(t, "Learning Go", byAuthor.Books[0].Title)

	byISBN, err := svc.ListBooks(ctx, "1492077", 0)
	require.NoError(t, err)
	assert.Equal(t, 1, byISBN.Page)
	assert.Len(t, byISBN.Books, 1)
}

func TestEditBookCopies(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	book, err := svc.AddBook(ctx, catalog.BookInput{Title: "Emma", Author: "Jane Austen", TotalCopies: 5})
	require.NoError(t, err)

	grown, err := svc.EditBookCopies(ctx, book.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, 7, grown.TotalCopies)
	assert.Equal(t, 7, grown.AvailableCopies)

	shrunk, err := svc.EditBookCopies(ctx, book.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, shrunk.AvailableCopies)

	_, err = svc.EditBookCopies(ctx, book.ID, -1)
	assert.ErrorIs(t, err, catalog.ErrNegativeCopies)

	unchanged, err := svc.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, unchanged.TotalCopies)

	_, err = svc.EditBookCopies(ctx, uuid.New(), 3)
	assert.ErrorIs(t, err, catalog.ErrBookNotFound)
}

func TestUpdateBookReplacesFields(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	book, err := svc.AddBook(ctx, catalog.BookInput{Title: "Draft", Author: "Someone", ISBN: "123", TotalCopies: 2})
	require.NoError(t, err)

	updated, err := svc.UpdateBook(ctx, book.ID, catalog.BookInput{
		Title:           "Final",
		Author:          "Someone Else",
		PublicationDate: "2020-05-01",
		TotalCopies:     4,
	})
	require.NoError(t, err)
	assert.Equal(t, "Final", updated.Title)
	assert.Nil(t, updated.ISBN)
	require.NotNil(t, updated.PublicationDate)
	assert.Equal(t, 2020, updated.PublicationDate.Year())
	assert.Equal(t, 4, updated.AvailableCopies)
	assert.Equal(t, book.CreatedAt, updated.CreatedAt)
}

func TestDeleteBook(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	book, err := svc.AddBook(ctx, catalog.BookInput{Title: "Gone", Author: "Soon"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteBook(ctx, book.ID))
	_, err = svc.GetBook(ctx, book.ID)
	assert.ErrorIs(t, err, catalog.ErrBookNotFound)
	assert.ErrorIs(t, svc.DeleteBook(ctx, book.ID), catalog.ErrBookNotFound)
}

func TestImportBooks(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	n, err := svc.ImportBooks(ctx, strings.NewReader("title,author,totalCopies\nA,X,2\nB,Y,\n"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	books, err := svc.ListAllBooks(ctx)
	require.NoError(t, err)
	assert.Len(t, books, 2)
}

func TestImportBooksIsAllOrNothing(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.ImportBooks(ctx, strings.NewReader("title,author\nGood,Row\n,Missing title\n"))
	require.Error(t, err)

	books, err := svc.ListAllBooks(ctx)
	require.NoError(t, err)
	assert.Empty(t, books)
}

func TestListBooksPastTheLastPage(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.AddBook(ctx, catalog.BookInput{Title: "Emma", Author: "Jane Austen"})
	require.NoError(t, err)

	for _, page := range []int{2, math.MaxInt/catalog.PerPage + 2, math.MaxInt} {
		var result *catalog.BookPage
		require.NotPanics(t, func() {
			result, err = svc.ListBooks(ctx, "", page)
		}, page)
		require.NoError(t, err)
		assert.Empty(t, result.Books)
		assert.Equal(t, 1, result.Total)
	}
}

func TestSearchTreatsWildcardsLiterally(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.AddBook(ctx, catalog.BookInput{Title: "100% Human", Author: "Anon"})
	require.NoError(t, err)
	_, err = svc.AddBook(ctx, catalog.BookInput{Title: "snake_case", Author: "Anon"})
	require.NoError(t, err)
	_, err = svc.AddBook(ctx, catalog.BookInput{Title: "Plain", Author: "Anon"})
	require.NoError(t, err)

	for query, want := range map[string]int{"%": 1, "_": 1, "e_c": 1, "x%": 0} {
		page, err := svc.ListBooks(ctx, query, 1)
		require.NoError(t, err)
		assert.Equal(t, want, page.Total, query)
	}
}
