// internal/memstore/engagement.go
package memstore

import (
	"context"
	"time"

	"github.com/google/uuid"

	"libris/internal/engagement"
)

type engagementStore struct {
	s session
}

func (e *engagementStore) BookExists(ctx context.Context, bookID uuid.UUID) (bool, error) {
	var found bool
	err := e.s.do(func(st *state) error {
		_, found = st.books[bookID]
		return nil
	})
	return found, err
}

func (e *engagementStore) FavoriteExists(ctx context.Context, userID, bookID uuid.UUID) (bool, error) {
	var found bool
	err := e.s.do(func(st *state) error {
		_, found = st.favorites[pairKey{userID, bookID}]
		return nil
	})
	return found, err
}

func (e *engagementStore) InsertFavorite(ctx context.Context, f *engagement.Favorite) error {
	return e.s.do(func(st *state) error {
		key := pairKey{f.UserID, f.BookID}
		if _, ok := st.favorites[key]; ok {
			return engagement.ErrDuplicateFavorite
		}
		st.favorites[key] = *f
		return nil
	})
}

func (e *engagementStore) DeleteFavorite(ctx context.Context, userID, bookID uuid.UUID) error {
	return e.s.do(func(st *state) error {
		key := pairKey{userID, bookID}
		if _, ok := st.favorites[key]; !ok {
			return engagement.ErrFavoriteNotFound
		}
		delete(st.favorites, key)
		return nil
	})
}

func (e *engagementStore) ListFavorites(ctx context.Context, userID uuid.UUID) ([]*engagement.FavoriteView, error) {
	views := []*engagement.FavoriteView{}
	err := e.s.do(func(st *state) error {
		for key, f := range st.favorites {
			if key.userID != userID {
				continue
			}
			if b, ok := st.books[key.bookID]; ok {
				views = append(views, &engagement.FavoriteView{Favorite: f, Title: b.Title, Author: b.Author})
			}
		}
		return nil
	})
	newestFirst(views,
		func(v *engagement.FavoriteView) time.Time { return v.CreatedAt },
		func(v *engagement.FavoriteView) uuid.UUID { return v.BookID })
	return views, err
}

func (e *engagementStore) ReviewExists(ctx context.Context, userID, bookID uuid.UUID) (bool, error) {
	var found bool
	err := e.s.do(func(st *state) error {
		found = hasReview(st, userID, bookID)
		return nil
	})
	return found, err
}

func hasReview(st *state, userID, bookID uuid.UUID) bool {
	for _, r := range st.reviews {
		if r.UserID == userID && r.BookID == bookID {
			return true
		}
	}
	return false
}

func (e *engagementStore) InsertReview(ctx context.Context, r *engagement.Review) error {
	return e.s.do(func(st *state) error {
		if hasReview(st, r.UserID, r.BookID) {
			return engagement.ErrDuplicateReview
		}
		st.reviews[r.ID] = *r
		return nil
	})
}

func (e *engagementStore) ListReviews(ctx context.Context, bookID uuid.UUID) ([]*engagement.ReviewView, error) {
	views := []*engagement.ReviewView{}
	err := e.s.do(func(st *state) error {
		for _, r := range st.reviews {
			if r.BookID != bookID {
				continue
			}
			if u, ok := st.users[r.UserID]; ok {
				views = append(views, &engagement.ReviewView{Review: r, Username: u.Username})
			}
		}
		return nil
	})
	newestFirst(views,
		func(v *engagement.ReviewView) time.Time { return v.CreatedAt },
		func(v *engagement.ReviewView) uuid.UUID { return v.ID })
	return views, err
}

func (e *engagementStore) InsertNotification(ctx context.Context, n *engagement.Notification) error {
	return e.s.do(func(st *state) error {
		if _, ok := st.notifications[n.ID]; ok {
			return errUniqueViolation
		}
		st.notifications[n.ID] = *n
		return nil
	})
}

func (e *engagementStore) ListNotifications(ctx context.Context, userID uuid.UUID) ([]*engagement.Notification, error) {
	notifications := []*engagement.Notification{}
	err := e.s.do(func(st *state) error {
		for _, n := range st.notifications {
			if n.UserID == userID {
				notifications = append(notifications, &n)
			}
		}
		return nil
	})
	newestFirst(notifications,
		func(n *engagement.Notification) time.Time { return n.CreatedAt },
		func(n *engagement.Notification) uuid.UUID { return n.ID })
	return notifications, err
}

func (e *engagementStore) MarkNotificationRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	return e.s.do(func(st *state) error {
		n, ok := st.notifications[notificationID]
		if !ok || n.UserID != userID {
			return engagement.ErrNotificationNotFound
		}
		n.IsRead = true
		st.notifications[notificationID] = n
		return nil
	})
}
