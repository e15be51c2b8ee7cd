// internal/circulation/handler.go
package circulation

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"libris/internal/auth"
	"libris/internal/httpx"
)

type Handler struct {
	service Service
	logger  *zap.Logger
}

func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger.Named("circulation.http")}
}

func actorFor(p auth.Principal) Actor {
	return Actor{UserID: p.UserID, Admin: p.IsAdmin()}
}

func (h *Handler) HandleReserve(w http.ResponseWriter, r *http.Request) {
	p, err := auth.MustPrincipal(r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	bookID, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	reservation, err := h.service.CreateReservation(r.Context(), p.UserID, bookID)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"message":     "reservation created",
		"reservation": reservation,
	})
}

func (h *Handler) HandleListReservations(w http.ResponseWriter, r *http.Request) {
	p, err := auth.MustPrincipal(r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	reservations, err := h.service.ListReservations(r.Context(), ScopeFor(actorFor(p)))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]interface{}{"reservations": reservations})
}

func (h *Handler) HandleCancelReservation(w http.ResponseWriter, r *http.Request) {
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

	if err := h.service.CancelReservation(r.Context(), id, actorFor(p)); err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteMessage(w, http.StatusOK, "reservation cancelled")
}

func (h *Handler) HandleConvertToLoan(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	loan, err := h.service.ConvertReservationToLoan(r.Context(), id)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "reservation converted to loan",
		"loan":    loan,
	})
}

func (h *Handler) HandleListLoans(w http.ResponseWriter, r *http.Request) {
	p, err := auth.MustPrincipal(r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	loans, err := h.service.ListLoans(r.Context(), ScopeFor(actorFor(p)))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]interface{}{"loans": loans})
}

func (h *Handler) HandleReturnLoan(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	loan, err := h.service.ReturnLoan(r.Context(), id)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"message": "loan returned",
		"loan":    loan,
	})
}

func (h *Handler) HandleExportLoans(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.service.ExportLoans(r.Context(), &buf); err != nil {
		h.logger.Error("loan export failed", zap.Error(err))
		httpx.WriteError(w, err)
		return
	}

	filename := fmt.Sprintf("loans-%s.csv", time.Now().UTC().Format("20060102"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) HandleRankings(w http.ResponseWriter, r *http.Request) {
	rankings, err := h.service.TopBooks(r.Context(), httpx.IntQuery(r, "limit", defaultRankingSize))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]interface{}{"rankings": rankings})
}
