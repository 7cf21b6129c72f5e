// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/ribslabs/ribs/internal/domain/model"
)

// EventsDependencies defines the interface for recent-event reads.
type EventsDependencies interface {
	RecentEvents(ctx context.Context, limit int) ([]model.Event, error)
}

// EventsHandler handles recent-event requests.
type EventsHandler struct {
	deps EventsDependencies
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(deps EventsDependencies) *EventsHandler {
	return &EventsHandler{deps: deps}
}

type eventsResponse struct {
	OK     bool        `json:"ok"`
	Events []eventView `json:"events"`
}

// HandleGetEvents handles GET /api/events?limit=N requests. A missing
// or malformed limit falls back to the service default; the store caps
// it regardless.
func (h *EventsHandler) HandleGetEvents(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_events"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	// limit <= 0 signals the default to the service.
	var limit int
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	events, err := h.deps.RecentEvents(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "store_unavailable", Wrap(op, err))
		return
	}

	views := make([]eventView, 0, len(events))
	for _, e := range events {
		views = append(views, eventView{
			TS:   model.FormatTS(e.TS),
			Type: string(e.Type),
			Prob: e.Probability,
		})
	}
	writeJSON(w, http.StatusOK, eventsResponse{OK: true, Events: views})
}
