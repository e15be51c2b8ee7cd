// internal/httpapi/router.go
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"libris/internal/admin"
	"libris/internal/auth"
	"libris/internal/catalog"
	"libris/internal/circulation"
	"libris/internal/engagement"
	"libris/internal/httpx"
	"libris/internal/membership"
)

// Services is everything the HTTP surface dispatches to.
type Services struct {
	Catalog     catalog.Service
	Circulation circulation.Service
	Membership  membership.Service
	Engagement  engagement.Service
	Admin       admin.Service
	Tokens      *auth.Tokens
}

// NewRouter mounts every route of the service.
func NewRouter(svc Services, logger *zap.Logger) http.Handler {
	books := catalog.NewHandler(svc.Catalog, svc.Circulation, logger)
	circ := circulation.NewHandler(svc.Circulation, logger)
	members := membership.NewHandler(svc.Membership)
	engage := engagement.NewHandler(svc.Engagement)
	back := admin.NewHandler(svc.Admin)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog(logger.Named("http")))
	r.Use(middleware.Recoverer)
	r.Use(auth.Middleware(svc.Tokens))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/books", books.HandleListBooks)
	r.Get("/books/{id}", books.HandleGetBook)
	r.Get("/books/{id}/reviews", engage.HandleListReviews)
	r.Get("/rankings", circ.HandleRankings)
	r.Get("/favorites/{bookId}", engage.HandleIsFavorite)

	r.Post("/auth/register", members.HandleRegister)
	r.Post("/auth/login", members.HandleLogin)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireUser)

		r.Get("/auth/me", members.HandleMe)

		r.Post("/books/{id}/reserve", circ.HandleReserve)
		r.Get("/reservations", circ.HandleListReservations)
		r.Post("/reservations/{id}/cancel", circ.HandleCancelReservation)
		r.Get("/loans", circ.HandleListLoans)

		r.Get("/favorites", engage.HandleListFavorites)
		r.Post("/favorites", engage.HandleAddFavorite)
		r.Delete("/favorites", engage.HandleRemoveFavorite)

		r.Post("/reviews", engage.HandleCreateReview)

		r.Get("/notifications", engage.HandleListNotifications)
		r.Post("/notifications/{id}/read", engage.HandleMarkNotificationRead)
	})

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAdmin)

		r.Post("/reservations/{id}/loan", circ.HandleConvertToLoan)
		r.Post("/loans/{id}/return", circ.HandleReturnLoan)

		r.Route("/admin", func(r chi.Router) {
			r.Get("/books", books.HandleAdminListBooks)
			r.Post("/books", books.HandleAddBook)
			r.Post("/books/import", books.HandleImport)
			r.Put("/books/{id}", books.HandleUpdateBook)
			r.Patch("/books/{id}/copies", books.HandleEditCopies)
			r.Delete("/books/{id}", books.HandleDeleteBook)

			r.Get("/loans/export", circ.HandleExportLoans)
			r.Get("/users", members.HandleListUsers)
			r.Get("/dashboard", back.HandleDashboard)
			r.Get("/events", back.HandleEvents)
		})
	})

	return r
}

func accessLog(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			logger.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
