// internal/engagement/postgres.go
package engagement

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"libris/internal/database"
)

type pgStore struct {
	db *sqlx.DB
}

// NewPostgresStore returns a Store over the favorites, reviews and
// notifications tables.
func NewPostgresStore(db *sqlx.DB) Store {
	return &pgStore{db: db}
}

func (s *pgStore) BookExists(ctx context.Context, bookID uuid.UUID) (bool, error) {
	return s.exists(ctx, `SELECT EXISTS (SELECT 1 FROM books WHERE id = $1)`, bookID)
}

func (s *pgStore) FavoriteExists(ctx context.Context, userID, bookID uuid.UUID) (bool, error) {
	return s.exists(ctx, `SELECT EXISTS (SELECT 1 FROM favorites WHERE user_id = $1 AND book_id = $2)`, userID, bookID)
}

func (s *pgStore) InsertFavorite(ctx context.Context, f *Favorite) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO favorites (user_id, book_id, created_at) VALUES ($1, $2, $3)
	`, f.UserID, f.BookID, f.CreatedAt)
	if database.IsUniqueViolation(err) {
		return ErrDuplicateFavorite
	}
	return database.MapError(err)
}

func (s *pgStore) DeleteFavorite(ctx context.Context, userID, bookID uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM favorites WHERE user_id = $1 AND book_id = $2`, userID, bookID)
	if err != nil {
		return database.MapError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return database.MapError(err)
	}
	if n == 0 {
		return ErrFavoriteNotFound
	}
	return nil
}

func (s *pgStore) ListFavorites(ctx context.Context, userID uuid.UUID) ([]*FavoriteView, error) {
	favorites := []*FavoriteView{}
	err := s.db.SelectContext(ctx, &favorites, `
		SELECT f.user_id, f.book_id, f.created_at, b.title, b.author
		FROM favorites f
		JOIN books b ON b.id = f.book_id
		WHERE f.user_id = $1
		ORDER BY f.created_at DESC
	`, userID)
	if err != nil {
		return nil, database.MapError(err)
	}
	return favorites, nil
}

func (s *pgStore) ReviewExists(ctx context.Context, userID, bookID uuid.UUID) (bool, error) {
	return s.exists(ctx, `SELECT EXISTS (SELECT 1 FROM reviews WHERE user_id = $1 AND book_id = $2)`, userID, bookID)
}

func (s *pgStore) InsertReview(ctx context.Context, r *Review) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO reviews (id, user_id, book_id, rating, comment, created_at)
		VALUES (:id, :user_id, :book_id, :rating, :comment, :created_at)
	`, r)
	if database.IsUniqueViolation(err) {
		return ErrDuplicateReview
	}
	return database.MapError(err)
}

func (s *pgStore) ListReviews(ctx context.Context, bookID uuid.UUID) ([]*ReviewView, error) {
	reviews := []*ReviewView{}
	err := s.db.SelectContext(ctx, &reviews, `
		SELECT r.id, r.user_id, r.book_id, r.rating, r.comment, r.created_at, u.username
		FROM reviews r
		JOIN users u ON u.id = r.user_id
		WHERE r.book_id = $1
		ORDER BY r.created_at DESC
	`, bookID)
	if err != nil {
		return nil, database.MapError(err)
	}
	return reviews, nil
}

func (s *pgStore) InsertNotification(ctx context.Context, n *Notification) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO notifications (id, user_id, message, type, is_read, created_at)
		VALUES (:id, :user_id, :message, :type, :is_read, :created_at)
	`, n)
	return database.MapError(err)
}

func (s *pgStore) ListNotifications(ctx context.Context, userID uuid.UUID) ([]*Notification, error) {
	notifications := []*Notification{}
	err := s.db.SelectContext(ctx, &notifications, `
		SELECT id, user_id, message, type, is_read, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, database.MapError(err)
	}
	return notifications, nil
}

func (s *pgStore) MarkNotificationRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2
	`, notificationID, userID)
	if err != nil {
		return database.MapError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return database.MapError(err)
	}
	if n == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

func (s *pgStore) exists(ctx context.Context, query string, args ...interface{}) (bool, error) {
	var found bool
	if err := s.db.GetContext(ctx, &found, query, args...); err != nil {
		return false, database.MapError(err)
	}
	return found, nil
}
