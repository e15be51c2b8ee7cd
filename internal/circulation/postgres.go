// internal/circulation/postgres.go
package circulation

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"libris/internal/catalog"
	"libris/internal/database"
	"libris/internal/journal"
)

type pgStore struct {
	db *sqlx.DB
	q  database.Queryer
}

// NewPostgresStore returns a Store over the reservations, loans, books and
// circulation_events tables.
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

func (s *pgStore) GetBook(ctx context.Context, id uuid.UUID) (*catalog.Book, error) {
	book := &catalog.Book{}
	err := s.q.GetContext(ctx, book, `
		SELECT id, title, author, isbn, publisher, publication_date, total_copies, available_copies, created_at
		FROM books
		WHERE id = $1
	`, id)
	if database.IsNoRows(err) {
		return nil, catalog.ErrBookNotFound
	}
	if err != nil {
		return nil, database.MapError(err)
	}
	return book, nil
}

func (s *pgStore) IssueCopy(ctx context.Context, bookID uuid.UUID) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE books
		SET available_copies = available_copies - 1
		WHERE id = $1 AND available_copies > 0
	`, bookID)
	if err != nil {
		return database.MapError(err)
	}
	return expectRows(res, catalog.ErrOutOfStock)
}

func (s *pgStore) ReturnCopy(ctx context.Context, bookID uuid.UUID) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE books
		SET available_copies = GREATEST(0, LEAST(available_copies + 1, total_copies))
		WHERE id = $1
	`, bookID)
	if err != nil {
		return database.MapError(err)
	}
	return expectRows(res, catalog.ErrBookNotFound)
}

func (s *pgStore) PenaltyUntil(ctx context.Context, userID uuid.UUID) (*time.Time, error) {
	var until *time.Time
	err := s.q.GetContext(ctx, &until, `SELECT penalty_until FROM users WHERE id = $1`, userID)
	if database.IsNoRows(err) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, database.MapError(err)
	}
	return until, nil
}

func (s *pgStore) HasPendingReservation(ctx context.Context, userID, bookID uuid.UUID) (bool, error) {
	var exists bool
	err := s.q.GetContext(ctx, &exists, `
		SELECT EXISTS (
			SELECT 1 FROM reservations
			WHERE user_id = $1 AND book_id = $2 AND status = 'pending'
		)
	`, userID, bookID)
	if err != nil {
		return false, database.MapError(err)
	}
	return exists, nil
}

func (s *pgStore) InsertReservation(ctx context.Context, r *Reservation) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO reservations (id, user_id, book_id, status, reservation_date, expiry_date)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, r.ID, r.UserID, r.BookID, r.Status, r.ReservationDate, r.ExpiryDate)
	if database.IsUniqueViolation(err) {
		// reservations_one_pending caught a concurrent duplicate
		return ErrDuplicatePending
	}
	return database.MapError(err)
}

func (s *pgStore) GetReservation(ctx context.Context, id uuid.UUID, forUpdate bool) (*Reservation, error) {
	query := `
		SELECT id, user_id, book_id, status, reservation_date, expiry_date
		FROM reservations
		WHERE id = $1
	`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	r := &Reservation{}
	err := s.q.GetContext(ctx, r, query, id)
	if database.IsNoRows(err) {
		return nil, ErrReservationNotFound
	}
	if err != nil {
		return nil, database.MapError(err)
	}
	return r, nil
}

func (s *pgStore) UpdateReservationStatus(ctx context.Context, id uuid.UUID, status ReservationStatus) error {
	res, err := s.q.ExecContext(ctx, `UPDATE reservations SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return database.MapError(err)
	}
	return expectRows(res, ErrReservationNotFound)
}

func (s *pgStore) ListReservations(ctx context.Context, scope Scope) ([]*ReservationView, error) {
	ds := joinParties(goqu.T("reservations").As("r"), "r").
		Select(
			"r.id", "r.user_id", "r.book_id", "r.status", "r.reservation_date", "r.expiry_date",
			goqu.I("b.title").As("book_title"), "u.username", "u.email",
		).
		Order(goqu.I("r.reservation_date").Desc())
	if !scope.All() {
		ds = ds.Where(goqu.I("r.user_id").Eq(scope.UserID.String()))
	}

	reservations := []*ReservationView{}
	if err := s.selectDataset(ctx, &reservations, ds); err != nil {
		return nil, err
	}
	return reservations, nil
}

func (s *pgStore) InsertLoan(ctx context.Context, l *Loan) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO loans (id, user_id, book_id, loan_date, due_date, return_date, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, l.ID, l.UserID, l.BookID, l.LoanDate, l.DueDate, l.ReturnDate, l.Status)
	return database.MapError(err)
}

func (s *pgStore) GetLoan(ctx context.Context, id uuid.UUID, forUpdate bool) (*Loan, error) {
	query := `
		SELECT id, user_id, book_id, loan_date, due_date, return_date, status
		FROM loans
		WHERE id = $1
	`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	l := &Loan{}
	err := s.q.GetContext(ctx, l, query, id)
	if database.IsNoRows(err) {
		return nil, ErrLoanNotFound
	}
	if err != nil {
		return nil, database.MapError(err)
	}
	return l, nil
}

func (s *pgStore) UpdateLoan(ctx context.Context, l *Loan) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE loans SET status = $1, return_date = $2 WHERE id = $3
	`, l.Status, l.ReturnDate, l.ID)
	if err != nil {
		return database.MapError(err)
	}
	return expectRows(res, ErrLoanNotFound)
}

func (s *pgStore) ListLoans(ctx context.Context, scope Scope) ([]*LoanView, error) {
	ds := joinParties(goqu.T("loans").As("l"), "l").
		Select(
			"l.id", "l.user_id", "l.book_id", "l.loan_date", "l.due_date", "l.return_date", "l.status",
			goqu.I("b.title").As("book_title"), "u.username", "u.email",
		).
		Order(goqu.I("l.loan_date").Desc())
	if !scope.All() {
		ds = ds.Where(goqu.I("l.user_id").Eq(scope.UserID.String()))
	}

	loans := []*LoanView{}
	if err := s.selectDataset(ctx, &loans, ds); err != nil {
		return nil, err
	}
	return loans, nil
}

func (s *pgStore) MarkOverdue(ctx context.Context, ids []uuid.UUID, now time.Time) (int64, error) {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = id.String()
	}

	res, err := s.q.ExecContext(ctx, `
		UPDATE loans
		SET status = 'overdue'
		WHERE id = ANY($1::uuid[]) AND status = 'active' AND due_date < $2
	`, pq.Array(keys), now)
	if err != nil {
		return 0, database.MapError(err)
	}
	return res.RowsAffected()
}

func (s *pgStore) PromoteOverdue(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.q.ExecContext(ctx, `
		UPDATE loans
		SET status = 'overdue'
		WHERE status = 'active' AND due_date < $1
	`, now)
	if err != nil {
		return 0, database.MapError(err)
	}
	return res.RowsAffected()
}

func (s *pgStore) TopBorrowed(ctx context.Context, limit int) ([]*BookRanking, error) {
	rankings := []*BookRanking{}
	err := s.q.SelectContext(ctx, &rankings, `
		SELECT b.id AS book_id, b.title, b.author, COUNT(l.id) AS loan_count
		FROM loans l
		JOIN books b ON b.id = l.book_id
		GROUP BY b.id, b.title, b.author
		ORDER BY loan_count DESC, b.title ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, database.MapError(err)
	}
	return rankings, nil
}

func (s *pgStore) AppendEvent(ctx context.Context, e *journal.Event) error {
	return journal.New(s.q).Append(ctx, e)
}

func (s *pgStore) selectDataset(ctx context.Context, dest interface{}, ds *goqu.SelectDataset) error {
	query, args, err := ds.ToSQL()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	if err := s.q.SelectContext(ctx, dest, query, args...); err != nil {
		return database.MapError(err)
	}
	return nil
}

// joinParties selects from table (aliased as alias) joined with the book and
// user it references.
func joinParties(table goqu.Expression, alias string) *goqu.SelectDataset {
	return goqu.Dialect("postgres").From(table).Prepared(true).
		Join(goqu.T("books").As("b"), goqu.On(goqu.I("b.id").Eq(goqu.I(alias+".book_id")))).
		Join(goqu.T("users").As("u"), goqu.On(goqu.I("u.id").Eq(goqu.I(alias+".user_id"))))
}

func expectRows(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return database.MapError(err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
