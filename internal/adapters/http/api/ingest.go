// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ribslabs/ribs/internal/domain/model"
)

// IngestDependencies defines the interface for the dev write endpoints.
type IngestDependencies interface {
	Ingest(ctx context.Context, probability float64) (model.Sample, error)
	RecordEvent(ctx context.Context, eventType model.EventType, probability float64) error
}

// IngestHandler handles dev ingestion requests. These endpoints exist
// for test/dev injection; production samples arrive through the
// monitoring loop.
type IngestHandler struct {
	deps   IngestDependencies
	apiKey string
}

// NewIngestHandler creates a new ingest handler.
func NewIngestHandler(deps IngestDependencies) *IngestHandler {
	return &IngestHandler{deps: deps}
}

// sampleRequest mirrors the sample document's probability field.
type sampleRequest struct {
	SlouchProb float64 `json:"slouch_prob"`
}

// eventRequest mirrors the event document fields.
type eventRequest struct {
	Type string  `json:"type"`
	Prob float64 `json:"prob"`
}

type ingestResponse struct {
	OK     bool        `json:"ok"`
	Sample *latestView `json:"sample,omitempty"`
}

// authorized enforces the placeholder API key when one is configured.
// The default "change-me" and the empty string disable the check.
func (h *IngestHandler) authorized(r *http.Request) bool {
	if h.apiKey == "" || h.apiKey == "change-me" {
		return true
	}
	return r.Header.Get("X-API-Key") == h.apiKey
}

// HandleIngestSample handles POST /api/dev/ingest-sample requests.
func (h *IngestHandler) HandleIngestSample(w http.ResponseWriter, r *http.Request) {
	const op = "api.ingest_sample"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	if !h.authorized(r) {
		writeError(w, http.StatusUnauthorized, "unauthorized", NewKind(op, ErrUnauthorized))
		return
	}

	var req sampleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	sample, err := h.deps.Ingest(r.Context(), req.SlouchProb)
	if err != nil {
		if errors.Is(err, model.ErrInvalidProbability) {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
			return
		}
		writeError(w, http.StatusInternalServerError, "store_unavailable", Wrap(op, err))
		return
	}

	writeJSON(w, http.StatusOK, ingestResponse{
		OK: true,
		Sample: &latestView{
			TS:         model.FormatTS(sample.TS),
			SlouchProb: sample.Probability,
			Label:      string(sample.Label),
			IsSlouch:   sample.Label == model.LabelSlouch,
		},
	})
}

// HandleIngestEvent handles POST /api/dev/ingest-event requests. The
// event bypasses the classifier entirely.
func (h *IngestHandler) HandleIngestEvent(w http.ResponseWriter, r *http.Request) {
	const op = "api.ingest_event"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	if !h.authorized(r) {
		writeError(w, http.StatusUnauthorized, "unauthorized", NewKind(op, ErrUnauthorized))
		return
	}

	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	if err := h.deps.RecordEvent(r.Context(), model.EventType(req.Type), req.Prob); err != nil {
		if errors.Is(err, model.ErrInvalidProbability) {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
			return
		}
		writeError(w, http.StatusInternalServerError, "store_unavailable", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, ingestResponse{OK: true})
}
