// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/ribslabs/ribs/internal/domain/model"
)

// Dependencies required by HTTP handlers. Using an interface bundle
// keeps the handler layer loosely coupled to implementations in other
// packages.
type Dependencies interface {
	// Write side.
	Ingest(ctx context.Context, probability float64) (model.Sample, error)
	RecordEvent(ctx context.Context, eventType model.EventType, probability float64) error

	// Read side.
	Latest(ctx context.Context) (model.Sample, bool, error)
	Series(ctx context.Context, window time.Duration) ([]model.Sample, time.Time, error)
	RecentEvents(ctx context.Context, limit int) ([]model.Event, error)
	Threshold() float64
}

// Server wires HTTP routes for the business API.
type Server struct {
	latestHandler *LatestHandler
	seriesHandler *SeriesHandler
	eventsHandler *EventsHandler
	ingestHandler *IngestHandler
	statsHandler  *StatsHandler
	healthHandler *HealthHandler
}

// ServerOption applies a configuration option to the Server.
type ServerOption func(*Server)

// WithAPIKey guards the dev ingestion endpoints with a static key.
// The default placeholder "change-me" and the empty string disable the
// check.
func WithAPIKey(key string) ServerOption {
	return func(s *Server) {
		s.ingestHandler.apiKey = key
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...ServerOption) *Server {
	s := &Server{
		latestHandler: NewLatestHandler(deps),
		seriesHandler: NewSeriesHandler(deps),
		eventsHandler: NewEventsHandler(deps),
		ingestHandler: NewIngestHandler(deps),
		statsHandler:  NewStatsHandler(statsProvider),
		healthHandler: NewHealthHandler(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/api/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/api/latest", MetricsMiddleware(RequestIDMiddleware(s.latestHandler.HandleGetLatest), "latest"))
	mux.HandleFunc("/api/series", MetricsMiddleware(RequestIDMiddleware(s.seriesHandler.HandleGetSeries), "series"))
	mux.HandleFunc("/api/events", MetricsMiddleware(RequestIDMiddleware(s.eventsHandler.HandleGetEvents), "events"))
	mux.HandleFunc("/api/dev/ingest-sample", MetricsMiddleware(RequestIDMiddleware(s.ingestHandler.HandleIngestSample), "ingest_sample"))
	mux.HandleFunc("/api/dev/ingest-event", MetricsMiddleware(RequestIDMiddleware(s.ingestHandler.HandleIngestEvent), "ingest_event"))
}

// Wire views. Field names mirror the deployed collections.

type latestView struct {
	TS         string  `json:"ts"`
	SlouchProb float64 `json:"slouch_prob"`
	Label      string  `json:"label"`
	IsSlouch   bool    `json:"is_slouch"`
}

type seriesPoint struct {
	TS         string  `json:"ts"`
	SlouchProb float64 `json:"slouch_prob"`
}

type eventView struct {
	TS   string  `json:"ts"`
	Type string  `json:"type"`
	Prob float64 `json:"prob"`
}

type errorResponse struct {
	OK      bool   `json:"ok"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{OK: false, Code: code, Message: msg})
}
