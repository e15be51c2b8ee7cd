// internal/admin/handler.go
package admin

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"libris/internal/apperr"
	"libris/internal/httpx"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.service.Dashboard(r.Context())
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, d)
}

// HandleEvents serves ?aggregate=<id> as one aggregate's history, otherwise a
// page of the feed after ?after=<event id>.
func (h *Handler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if raw := q.Get("aggregate"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			httpx.WriteError(w, apperr.Validation("invalid aggregate", err))
			return
		}
		events, err := h.service.History(r.Context(), id)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]interface{}{"events": events})
		return
	}

	var after int64
	if raw := q.Get("after"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpx.WriteError(w, apperr.Validation("invalid after", err))
			return
		}
		after = n
	}

	events, err := h.service.Events(r.Context(), after, httpx.IntQuery(r, "limit", DefaultEventBatch))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	next := after
	if len(events) > 0 {
		next = events[len(events)-1].ID
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]interface{}{"events": events, "next": next})
}
