// internal/engagement/domain.go
package engagement

import (
	"time"

	"github.com/google/uuid"

	"libris/internal/apperr"
)

const (
	NotificationInfo    = "info"
	NotificationAlert   = "alert"
	NotificationSuccess = "success"
)

var (
	ErrBookNotFound         = apperr.NotFound("book_not_found", "book not found")
	ErrFavoriteNotFound     = apperr.NotFound("favorite_not_found", "book is not in your favorites")
	ErrNotificationNotFound = apperr.NotFound("notification_not_found", "notification not found")
	ErrDuplicateFavorite    = apperr.Conflict("duplicate_favorite", "book is already in your favorites")
	ErrDuplicateReview      = apperr.Conflict("duplicate_review", "you have already reviewed this book")
	ErrUnknownNotification  = apperr.New(apperr.KindValidation, "unknown_notification_type", "unknown notification type")
)

type Favorite struct {
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	BookID    uuid.UUID `json:"book_id" db:"book_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// FavoriteView is a favorite with the book it points at.
type FavoriteView struct {
	Favorite
	Title  string `json:"title" db:"title"`
	Author string `json:"author" db:"author"`
}

type Review struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	BookID    uuid.UUID `json:"book_id" db:"book_id"`
	Rating    int       `json:"rating" db:"rating"`
	Comment   *string   `json:"comment,omitempty" db:"comment"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type ReviewView struct {
	Review
	Username string `json:"username" db:"username"`
}

type Notification struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	Message   string    `json:"message" db:"message"`
	Type      string    `json:"type" db:"type"`
	IsRead    bool      `json:"is_read" db:"is_read"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type FavoriteInput struct {
	BookID uuid.UUID `json:"book_id" validate:"required"`
}

type ReviewInput struct {
	BookID  uuid.UUID `json:"book_id" validate:"required"`
	Rating  int       `json:"rating" validate:"min=1,max=5"`
	Comment string    `json:"comment" validate:"max=2000"`
}

func validNotificationType(kind string) bool {
	switch kind {
	case NotificationInfo, NotificationAlert, NotificationSuccess:
		return true
	}
	return false
}
