// internal/admin/postgres.go
package admin

import (
	"context"

	"github.com/jmoiron/sqlx"

	"libris/internal/database"
)

type pgStore struct {
	db *sqlx.DB
}

func NewPostgresStore(db *sqlx.DB) Store {
	return &pgStore{db: db}
}

func (s *pgStore) Dashboard(ctx context.Context) (*Dashboard, error) {
	d := &Dashboard{}
	err := s.db.GetContext(ctx, d, `
		SELECT
			(SELECT COUNT(*) FROM books) AS total_books,
			(SELECT COUNT(*) FROM users) AS total_users,
			(SELECT COUNT(*) FROM reservations WHERE status = 'pending') AS pending_reservations,
			(SELECT COUNT(*) FROM loans WHERE status = 'active') AS active_loans,
			(SELECT COUNT(*) FROM loans WHERE status = 'overdue') AS overdue_loans
	`)
	if err != nil {
		return nil, database.MapError(err)
	}
	return d, nil
}
