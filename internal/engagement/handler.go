// internal/engagement/handler.go
package engagement

import (
	"net/http"

	"libris/internal/auth"
	"libris/internal/httpx"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) HandleListFavorites(w http.ResponseWriter, r *http.Request) {
	p, err := auth.MustPrincipal(r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	favorites, err := h.service.ListFavorites(r.Context(), p.UserID)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]interface{}{"favorites": favorites})
}

func (h *Handler) HandleAddFavorite(w http.ResponseWriter, r *http.Request) {
	p, err := auth.MustPrincipal(r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	var in FavoriteInput
	if err := httpx.ReadJSON(r, &in); err != nil {
		httpx.WriteError(w, err)
		return
	}

	favorite, err := h.service.AddFavorite(r.Context(), p.UserID, in.BookID)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, favorite)
}

func (h *Handler) HandleRemoveFavorite(w http.ResponseWriter, r *http.Request) {
	p, err := auth.MustPrincipal(r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	var in FavoriteInput
	if err := httpx.ReadJSON(r, &in); err != nil {
		httpx.WriteError(w, err)
		return
	}

	if err := h.service.RemoveFavorite(r.Context(), p.UserID, in.BookID); err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteMessage(w, http.StatusOK, "favorite removed")
}

// HandleIsFavorite answers false for anonymous callers instead of 401.
func (h *Handler) HandleIsFavorite(w http.ResponseWriter, r *http.Request) {
	bookID, err := httpx.UUIDParam(r, "bookId")
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	favorite := false
	if p, ok := auth.FromContext(r.Context()); ok {
		favorite = h.service.IsFavorite(r.Context(), p.UserID, bookID)
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]bool{"is_favorite": favorite})
}

func (h *Handler) HandleCreateReview(w http.ResponseWriter, r *http.Request) {
	p, err := auth.MustPrincipal(r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	var in ReviewInput
	if err := httpx.ReadJSON(r, &in); err != nil {
		httpx.WriteError(w, err)
		return
	}

	review, err := h.service.CreateReview(r.Context(), p.UserID, in)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, review)
}

func (h *Handler) HandleListReviews(w http.ResponseWriter, r *http.Request) {
	bookID, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	reviews, err := h.service.ListReviews(r.Context(), bookID)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]interface{}{"reviews": reviews})
}

func (h *Handler) HandleListNotifications(w http.ResponseWriter, r *http.Request) {
	p, err := auth.MustPrincipal(r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	notifications, err := h.service.ListNotifications(r.Context(), p.UserID)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]interface{}{"notifications": notifications})
}

func (h *Handler) HandleMarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	p, err := auth.MustPrincipal(r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	id, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	if err := h.service.MarkNotificationRead(r.Context(), p.UserID, id); err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteMessage(w, http.StatusOK, "notification marked as read")
}
