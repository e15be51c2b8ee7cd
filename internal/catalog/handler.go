// internal/catalog/handler.go
package catalog

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"libris/internal/apperr"
	"libris/internal/auth"
	"libris/internal/httpx"
)

const maxImportBytes = 10 << 20

// HoldChecker reports whether a user already holds a pending reservation.
type HoldChecker interface {
	HasPendingReservation(ctx context.Context, userID, bookID uuid.UUID) (bool, error)
}

type Handler struct {
	service Service
	holds   HoldChecker
	logger  *zap.Logger
}

func NewHandler(service Service, holds HoldChecker, logger *zap.Logger) *Handler {
	return &Handler{service: service, holds: holds, logger: logger.Named("catalog.http")}
}

func (h *Handler) HandleListBooks(w http.ResponseWriter, r *http.Request) {
	page, err := h.service.ListBooks(r.Context(), r.URL.Query().Get("q"), httpx.IntQuery(r, "page", 1))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, page)
}

func (h *Handler) HandleGetBook(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	book, err := h.service.GetBook(r.Context(), id)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	hasReservation := false
	if p, ok := auth.FromContext(r.Context()); ok {
		hasReservation, err = h.holds.HasPendingReservation(r.Context(), p.UserID, id)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"book":            book,
		"has_reservation": hasReservation,
	})
}

func (h *Handler) HandleAdminListBooks(w http.ResponseWriter, r *http.Request) {
	books, err := h.service.ListAllBooks(r.Context())
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]interface{}{"books": books})
}

func (h *Handler) HandleAddBook(w http.ResponseWriter, r *http.Request) {
	var in BookInput
	if err := httpx.ReadJSON(r, &in); err != nil {
		httpx.WriteError(w, err)
		return
	}

	book, err := h.service.AddBook(r.Context(), in)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, map[string]interface{}{"message": "book added", "book": book})
}

func (h *Handler) HandleUpdateBook(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	var in BookInput
	if err := httpx.ReadJSON(r, &in); err != nil {
		httpx.WriteError(w, err)
		return
	}

	book, err := h.service.UpdateBook(r.Context(), id, in)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]interface{}{"message": "book updated", "book": book})
}

func (h *Handler) HandleEditCopies(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	var req struct {
		TotalCopies *int `json:"total_copies"`
	}
	if err := httpx.ReadJSON(r, &req); err != nil {
		httpx.WriteError(w, err)
		return
	}
	if req.TotalCopies == nil {
		httpx.WriteError(w, apperr.Validation("total_copies is required", nil))
		return
	}

	book, err := h.service.EditBookCopies(r.Context(), id, *req.TotalCopies)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, book)
}

func (h *Handler) HandleDeleteBook(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	if err := h.service.DeleteBook(r.Context(), id); err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteMessage(w, http.StatusOK, "book deleted")
}

// HandleImport accepts a multipart form with the CSV in the "file" field.
func (h *Handler) HandleImport(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxImportBytes); err != nil {
		httpx.WriteError(w, apperr.Validation("expected a multipart form", err))
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		httpx.WriteError(w, apperr.Validation("file is missing", err))
		return
	}
	defer file.Close()

	count, err := h.service.ImportBooks(r.Context(), file)
	if err != nil {
		h.logger.Warn("book import failed", zap.Error(err))
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]interface{}{"message": "books imported", "count": count})
}
