// internal/engagement/implementation.go
package engagement

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"libris/internal/validation"
)

type service struct {
	store  Store
	logger *zap.Logger
	tracer trace.Tracer
	now    func() time.Time
}

func NewService(store Store, logger *zap.Logger) Service {
	return &service{
		store:  store,
		logger: logger.Named("engagement"),
		tracer: otel.Tracer("libris/engagement"),
		now:    time.Now,
	}
}

func (s *service) AddFavorite(ctx context.Context, userID, bookID uuid.UUID) (*Favorite, error) {
	ctx, span := s.tracer.Start(ctx, "engagement.add_favorite",
		trace.WithAttributes(attribute.String("book_id", bookID.String())))
	defer span.End()

	if err := validation.Struct(FavoriteInput{BookID: bookID}); err != nil {
		return nil, err
	}
	if err := s.requireBook(ctx, bookID); err != nil {
		return nil, err
	}

	exists, err := s.store.FavoriteExists(ctx, userID, bookID)
	if err != nil {
		return nil, fmt.Errorf("check favorite: %w", err)
	}
	if exists {
		return nil, ErrDuplicateFavorite
	}

	f := &Favorite{UserID: userID, BookID: bookID, CreatedAt: s.now().UTC()}
	if err := s.store.InsertFavorite(ctx, f); err != nil {
		return nil, fmt.Errorf("insert favorite: %w", err)
	}
	return f, nil
}

func (s *service) RemoveFavorite(ctx context.Context, userID, bookID uuid.UUID) error {
	return s.store.DeleteFavorite(ctx, userID, bookID)
}

func (s *service) ListFavorites(ctx context.Context, userID uuid.UUID) ([]*FavoriteView, error) {
	favorites, err := s.store.ListFavorites(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	return favorites, nil
}

func (s *service) IsFavorite(ctx context.Context, userID, bookID uuid.UUID) bool {
	exists, err := s.store.FavoriteExists(ctx, userID, bookID)
	if err != nil {
		s.logger.Warn("favorite lookup failed", zap.String("bookId", bookID.String()), zap.Error(err))
		return false
	}
	return exists
}

// CreateReview stores a 1 to 5 star review. Each user reviews a book once.
func (s *service) CreateReview(ctx context.Context, userID uuid.UUID, in ReviewInput) (*Review, error) {
	ctx, span := s.tracer.Start(ctx, "engagement.create_review",
		trace.WithAttributes(attribute.String("book_id", in.BookID.String()), attribute.Int("rating", in.Rating)))
	defer span.End()

	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if err := s.requireBook(ctx, in.BookID); err != nil {
		return nil, err
	}

	exists, err := s.store.ReviewExists(ctx, userID, in.BookID)
	if err != nil {
		return nil, fmt.Errorf("check review: %w", err)
	}
	if exists {
		return nil, ErrDuplicateReview
	}

	review := &Review{
		ID:        uuid.New(),
		UserID:    userID,
		BookID:    in.BookID,
		Rating:    in.Rating,
		CreatedAt: s.now().UTC(),
	}
	if comment := strings.TrimSpace(in.Comment); comment != "" {
		review.Comment = &comment
	}

	if err := s.store.InsertReview(ctx, review); err != nil {
		return nil, fmt.Errorf("insert review: %w", err)
	}

	s.logger.Info("review created",
		zap.String("reviewId", review.ID.String()),
		zap.String("bookId", review.BookID.String()),
		zap.Int("rating", review.Rating))
	return review, nil
}

func (s *service) ListReviews(ctx context.Context, bookID uuid.UUID) ([]*ReviewView, error) {
	reviews, err := s.store.ListReviews(ctx, bookID)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	return reviews, nil
}

func (s *service) Notify(ctx context.Context, userID uuid.UUID, kind, message string) error {
	if !validNotificationType(kind) {
		return ErrUnknownNotification
	}

	n := &Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Message:   message,
		Type:      kind,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.InsertNotification(ctx, n); err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (s *service) ListNotifications(ctx context.Context, userID uuid.UUID) ([]*Notification, error) {
	notifications, err := s.store.ListNotifications(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return notifications, nil
}

func (s *service) MarkNotificationRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	return s.store.MarkNotificationRead(ctx, userID, notificationID)
}

func (s *service) requireBook(ctx context.Context, bookID uuid.UUID) error {
	exists, err := s.store.BookExists(ctx, bookID)
	if err != nil {
		return fmt.Errorf("check book: %w", err)
	}
	if !exists {
		return ErrBookNotFound
	}
	return nil
}
