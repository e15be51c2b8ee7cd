// internal/engagement/service.go
package engagement

import (
	"context"

	"github.com/google/uuid"
)

// Service covers the reader side features around books: favorites, reviews
// and the notification inbox.
type Service interface {
	AddFavorite(ctx context.Context, userID, bookID uuid.UUID) (*Favorite, error)
	RemoveFavorite(ctx context.Context, userID, bookID uuid.UUID) error
	ListFavorites(ctx context.Context, userID uuid.UUID) ([]*FavoriteView, error)
	// IsFavorite reports false when the lookup fails.
	IsFavorite(ctx context.Context, userID, bookID uuid.UUID) bool

	CreateReview(ctx context.Context, userID uuid.UUID, in ReviewInput) (*Review, error)
	ListReviews(ctx context.Context, bookID uuid.UUID) ([]*ReviewView, error)

	Notify(ctx context.Context, userID uuid.UUID, kind, message string) error
	ListNotifications(ctx context.Context, userID uuid.UUID) ([]*Notification, error)
	MarkNotificationRead(ctx context.Context, userID, notificationID uuid.UUID) error
}

type Store interface {
	BookExists(ctx context.Context, bookID uuid.UUID) (bool, error)

	FavoriteExists(ctx context.Context, userID, bookID uuid.UUID) (bool, error)
	InsertFavorite(ctx context.Context, f *Favorite) error
	// DeleteFavorite returns ErrFavoriteNotFound when nothing was removed.
	DeleteFavorite(ctx context.Context, userID, bookID uuid.UUID) error
	ListFavorites(ctx context.Context, userID uuid.UUID) ([]*FavoriteView, error)

	ReviewExists(ctx context.Context, userID, bookID uuid.UUID) (bool, error)
	InsertReview(ctx context.Context, r *Review) error
	ListReviews(ctx context.Context, bookID uuid.UUID) ([]*ReviewView, error)

	InsertNotification(ctx context.Context, n *Notification) error
	ListNotifications(ctx context.Context, userID uuid.UUID) ([]*Notification, error)
	// MarkNotificationRead only touches notifications owned by userID.
	MarkNotificationRead(ctx context.Context, userID, notificationID uuid.UUID) error
}
