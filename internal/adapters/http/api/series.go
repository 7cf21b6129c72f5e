// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/ribslabs/ribs/internal/domain/model"
)

// SeriesDependencies defines the interface for windowed series reads.
type SeriesDependencies interface {
	Series(ctx context.Context, window time.Duration) ([]model.Sample, time.Time, error)
}

// SeriesHandler handles time-series requests.
type SeriesHandler struct {
	deps SeriesDependencies
}

// NewSeriesHandler creates a new series handler.
func NewSeriesHandler(deps SeriesDependencies) *SeriesHandler {
	return &SeriesHandler{deps: deps}
}

type seriesResponse struct {
	OK     bool          `json:"ok"`
	Series []seriesPoint `json:"series"`
	Since  string        `json:"since"`
}

// HandleGetSeries handles GET /api/series?window_minutes=N requests.
// A missing or malformed window falls back to the service default.
func (h *SeriesHandler) HandleGetSeries(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_series"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	// window <= 0 signals the default to the service.
	var window time.Duration
	if raw := r.URL.Query().Get("window_minutes"); raw != "" {
		if minutes, err := strconv.Atoi(raw); err == nil && minutes > 0 {
			window = time.Duration(minutes) * time.Minute
		}
	}

	samples, since, err := h.deps.Series(r.Context(), window)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "store_unavailable", Wrap(op, err))
		return
	}

	points := make([]seriesPoint, 0, len(samples))
	for _, s := range samples {
		points = append(points, seriesPoint{
			TS:         model.FormatTS(s.TS),
			SlouchProb: s.Probability,
		})
	}
	writeJSON(w, http.StatusOK, seriesResponse{
		OK:     true,
		Series: points,
		Since:  model.FormatTS(since),
	})
}
