package catalog_test

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"libris/internal/catalog"
	"libris/internal/database/dbtest"
)

func TestPostgresStore(t *testing.T) {
	db := dbtest.Setup(t)
	svc := catalog.NewService(catalog.NewPostgresStore(db), zap.NewNop())
	ctx := context.Background()

	book, err := svc.AddBook(ctx, catalog.BookInput{
		Title:           "The Pragmatic Programmer",
		Author:          "Andrew Hunt",
		ISBN:            "978-0135957059",
		PublicationDate: "2019-09-13",
		TotalCopies:     3,
	})
	require.NoError(t, err)
	_, err = svc.AddBook(ctx, catalog.BookInput{Title: "Refactoring", Author: "Martin Fowler"})
	require.NoError(t, err)

	page, err := svc.ListBooks(ctx, "PRAGMATIC", 1)
	require.NoError(t, err)
	require.Equal(t, 1, page.Total)
	assert.Equal(t, book.ID, page.Books[0].ID)
	require.NotNil(t, page.Books[0].PublicationDate)

	all, err := svc.ListBooks(ctx, "", 1)
	require.NoError(t, err)
	assert.Equal(t, 2, all.Total)

	edited, err := svc.EditBookCopies(ctx, book.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, edited.AvailableCopies)

	require.NoError(t, svc.DeleteBook(ctx, book.ID))
	_, err = svc.GetBook(ctx, book.ID)
	assert.ErrorIs(t, err, catalog.ErrBookNotFound)
}

func TestPostgresSearchTreatsWildcardsLiterally(t *testing.T) {
	db := dbtest.Setup(t)
	svc := catalog.NewService(catalog.NewPostgresStore(db), zap.NewNop())
	ctx := context.Background()

	for _, title := range []string{"100% Human", "snake_case", "Plain", `back\slash`} {
		_, err := svc.AddBook(ctx, catalog.BookInput{Title: title, Author: "Anon"})
		require.NoError(t, err)
	}

	for query, want := range map[string]int{"%": 1, "_": 1, "e_c": 1, "x%": 0, `\`: 1} {
		page, err := svc.ListBooks(ctx, query, 1)
		require.NoError(t, err)
		assert.Equal(t, want, page.Total, query)
	}

	page, err := svc.ListBooks(ctx, "", math.MaxInt/catalog.PerPage+2)
	require.NoError(t, err)
	assert.Empty(t, page.Books)
}
