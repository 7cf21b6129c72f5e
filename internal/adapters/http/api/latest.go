// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"

	"github.com/ribslabs/ribs/internal/domain/model"
)

// LatestDependencies defines the interface for latest-sample reads.
type LatestDependencies interface {
	Latest(ctx context.Context) (model.Sample, bool, error)
	Threshold() float64
}

// LatestHandler handles latest-sample requests.
type LatestHandler struct {
	deps LatestDependencies
}

// NewLatestHandler creates a new latest handler.
func NewLatestHandler(deps LatestDependencies) *LatestHandler {
	return &LatestHandler{deps: deps}
}

type latestResponse struct {
	OK        bool        `json:"ok"`
	Latest    *latestView `json:"latest"`
	Threshold float64     `json:"threshold"`
}

// HandleGetLatest handles GET /api/latest requests. An empty store is
// a well-formed null result, never an error.
func (h *LatestHandler) HandleGetLatest(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_latest"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	threshold := h.deps.Threshold()
	sample, ok, err := h.deps.Latest(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "store_unavailable", Wrap(op, err))
		return
	}
	if !ok {
		writeJSON(w, http.StatusOK, latestResponse{OK: true, Latest: nil, Threshold: threshold})
		return
	}

	writeJSON(w, http.StatusOK, latestResponse{
		OK: true,
		Latest: &latestView{
			TS:         model.FormatTS(sample.TS),
			SlouchProb: sample.Probability,
			Label:      string(sample.Label),
			IsSlouch:   sample.Probability >= threshold,
		},
		Threshold: threshold,
	})
}
