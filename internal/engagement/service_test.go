package engagement_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"

	"libris/internal/apperr"
	"libris/internal/auth"
	"libris/internal/catalog"
	"libris/internal/engagement"
	"libris/internal/membership"
	"libris/internal/memstore"
)

type fixture struct {
	svc    engagement.Service
	userID uuid.UUID
	bookID uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	db := memstore.New()

	user := &membership.User{
		ID:           uuid.New(),
		Username:     "reader",
		Email:        "reader@example.com",
		PasswordHash: "unused",
		Role:         auth.RoleUser,
		CreatedAt:    time.Now(),
	}
	require.NoError(t, db.Membership().Insert(ctx, user))

	book := &catalog.Book{ID: uuid.New(), Title: "Persuasion", Author: "Jane Austen", TotalCopies: 1, AvailableCopies: 1, CreatedAt: time.Now()}
	require.NoError(t, db.Catalog().Insert(ctx, book))

	return &fixture{
		svc:    engagement.NewService(db.Engagement(), zap.NewNop()),
		userID: user.ID,
		bookID: book.ID,
	}
}

func TestFavorites(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	assert.False(t, fx.svc.IsFavorite(ctx, fx.userID, fx.bookID))

	_, err := fx.svc.AddFavorite(ctx, fx.userID, fx.bookID)
	require.NoError(t, err)
	assert.True(t, fx.svc.IsFavorite(ctx, fx.userID, fx.bookID))

	_, err = fx.svc.AddFavorite(ctx, fx.userID, fx.bookID)
	assert.ErrorIs(t, err, engagement.ErrDuplicateFavorite)

	favorites, err := fx.svc.ListFavorites(ctx, fx.userID)
	require.NoError(t, err)
	require.Len(t, favorites, 1)
	assert.Equal(t, "Persuasion", favorites[0].Title)

	require.NoError(t, fx.svc.RemoveFavorite(ctx, fx.userID, fx.bookID))
	assert.ErrorIs(t, fx.svc.RemoveFavorite(ctx, fx.userID, fx.bookID), engagement.ErrFavoriteNotFound)
	assert.False(t, fx.svc.IsFavorite(ctx, fx.userID, fx.bookID))
}

func TestAddFavoriteRequiresBook(t *testing.T) {
	fx := newFixture(t)

	_, err := fx.svc.AddFavorite(context.Background(), fx.userID, uuid.New())
	assert.ErrorIs(t, err, engagement.ErrBookNotFound)

	_, err = fx.svc.AddFavorite(context.Background(), fx.userID, uuid.Nil)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

type failingStore struct {
	engagement.Store
}

func (failingStore) FavoriteExists(ctx context.Context, userID, bookID uuid.UUID) (bool, error) {
	return false, errors.New("connection reset")
}

func TestIsFavoriteSwallowsErrors(t *testing.T) {
	svc := engagement.NewService(failingStore{}, zap.NewNop())
	assert.False(t, svc.IsFavorite(context.Background(), uuid.New(), uuid.New()))
}

func TestReviews(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	review, err := fx.svc.CreateReview(ctx, fx.userID, engagement.ReviewInput{BookID: fx.bookID, Rating: 4, Comment: "  lovely  "})
	require.NoError(t, err)
	require.NotNil(t, review.Comment)
	assert.Equal(t, "lovely", *review.Comment)

	_, err = fx.svc.CreateReview(ctx, fx.userID, engagement.ReviewInput{BookID: fx.bookID, Rating: 2})
	assert.ErrorIs(t, err, engagement.ErrDuplicateReview)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	reviews, err := fx.svc.ListReviews(ctx, fx.bookID)
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, "reader", reviews[0].Username)
	assert.Equal(t, 4, reviews[0].Rating)
}

func TestCreateReviewValidates(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	for _, rating := range []int{0, 6, -1} {
		_, err := fx.svc.CreateReview(ctx, fx.userID, engagement.ReviewInput{BookID: fx.bookID, Rating: rating})
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err), "rating %d", rating)
	}

	review, err := fx.svc.CreateReview(ctx, fx.userID, engagement.ReviewInput{BookID: fx.bookID, Rating: 5, Comment: "   "})
	require.NoError(t, err)
	assert.Nil(t, review.Comment)

	_, err = fx.svc.CreateReview(ctx, fx.userID, engagement.ReviewInput{BookID: uuid.New(), Rating: 3})
	assert.ErrorIs(t, err, engagement.ErrBookNotFound)
}

func TestNotifications(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	require.NoError(t, fx.svc.Notify(ctx, fx.userID, engagement.NotificationSuccess, "your loan is ready"))
	assert.ErrorIs(t, fx.svc.Notify(ctx, fx.userID, "shout", "nope"), engagement.ErrUnknownNotification)

	notifications, err := fx.svc.ListNotifications(ctx, fx.userID)
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	assert.False(t, notifications[0].IsRead)

	stranger := uuid.New()
	err = fx.svc.MarkNotificationRead(ctx, stranger, notifications[0].ID)
	assert.ErrorIs(t, err, engagement.ErrNotificationNotFound)

	require.NoError(t, fx.svc.MarkNotificationRead(ctx, fx.userID, notifications[0].ID))
	notifications, err = fx.svc.ListNotifications(ctx, fx.userID)
	require.NoError(t, err)
	assert.True(t, notifications[0].IsRead)
}

func TestWritesAreTraced(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))
	t.Cleanup(func() { otel.SetTracerProvider(previous) })

	fx := newFixture(t)
	ctx := context.Background()

	_, err := fx.svc.AddFavorite(ctx, fx.userID, fx.bookID)
	require.NoError(t, err)
	_, err = fx.svc.CreateReview(ctx, fx.userID, engagement.ReviewInput{BookID: fx.bookID, Rating: 4})
	require.NoError(t, err)

	var names []string
	for _, span := range recorder.Ended() {
		names = append(names, span.Name())
	}
	assert.Equal(t, []string{"engagement.add_favorite", "engagement.create_review"}, names)
}
