// Package service provides the core posture service that implements
// the dependencies required by the HTTP API and the monitoring loop.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ribslabs/ribs/internal/adapters/capture"
	repository "github.com/ribslabs/ribs/internal/adapters/repository"
	"github.com/ribslabs/ribs/internal/domain/classify"
	"github.com/ribslabs/ribs/internal/domain/model"
	"github.com/ribslabs/ribs/internal/domain/predict"
	"github.com/ribslabs/ribs/pkg/logger"
	"github.com/ribslabs/ribs/pkg/metrics"
)

// Defaults applied when no option overrides them.
const (
	defaultThreshold    = 0.6
	defaultSeriesWindow = 30 * time.Minute
	defaultEventsLimit  = 25
)

// Service implements the ingestion pipeline and the query service.
// It holds no mutable state beyond the stores themselves, so
// concurrent invocation is safe; racing ingests may still both observe
// the same previous label and emit a duplicate transition pair, which
// is an accepted limitation of the single-writer design.
type Service struct {
	mu sync.RWMutex

	samples    repository.SampleStore
	events     repository.EventStore
	classifier *classify.Classifier

	threshold    float64
	seriesWindow time.Duration
	eventsLimit  int
	backend      string

	started   bool
	startedAt time.Time

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithThreshold sets the slouch probability cutoff.
func WithThreshold(t float64) Option {
	return func(s *Service) {
		if t >= 0 && t <= 1 {
			s.threshold = t
		}
	}
}

// WithStores injects the backing stores. Defaults to in-memory stores
// when unset.
func WithStores(samples repository.SampleStore, events repository.EventStore) Option {
	return func(s *Service) {
		if samples != nil {
			s.samples = samples
		}
		if events != nil {
			s.events = events
		}
	}
}

// WithSeriesWindow sets the default trailing window for series queries.
func WithSeriesWindow(w time.Duration) Option {
	return func(s *Service) {
		if w > 0 {
			s.seriesWindow = w
		}
	}
}

// WithEventsLimit sets the default limit for recent-event queries.
func WithEventsLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.eventsLimit = n
		}
	}
}

// WithBackendName labels the storage backend for stats reporting.
func WithBackendName(name string) Option {
	return func(s *Service) {
		if name != "" {
			s.backend = name
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		threshold:    defaultThreshold,
		seriesWindow: defaultSeriesWindow,
		eventsLimit:  defaultEventsLimit,
		backend:      "memory",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}
	if s.samples == nil {
		s.samples = repository.NewMemorySampleStore()
	}
	if s.events == nil {
		s.events = repository.NewMemoryEventStore()
	}
	s.classifier = classify.New(s.samples, classify.WithThreshold(s.threshold))

	s.started = true
	s.startedAt = time.Now()
	s.logger.Info(ctx, "posture service started",
		logger.Float64("threshold", s.threshold),
		logger.String("backend", s.backend),
	)
	return nil
}

// Stop shuts the service down. Stores are closed by their owner in
// main; there is nothing else to release.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.started = false
	s.logger.Info(context.Background(), "posture service stopped")
}

// Threshold returns the process-wide slouch cutoff.
func (s *Service) Threshold() float64 {
	return s.threshold
}

// Ingest validates a probability, classifies it against the previous
// stored label, appends the sample, and appends a transition event
// when the label changed. The two appends are not atomic; a failed
// event write leaves the sample in place (accepted inconsistency).
func (s *Service) Ingest(ctx context.Context, probability float64) (model.Sample, error) {
	if err := model.ValidateProbability(probability); err != nil {
		metrics.RecordIngestionRejected()
		return model.Sample{}, err
	}

	decision := s.classifier.Decide(ctx, probability)

	sample := model.Sample{
		TS:          time.Now().UTC().Truncate(time.Second),
		Probability: probability,
		Label:       decision.Label,
	}
	if err := s.samples.Append(ctx, sample); err != nil {
		metrics.RecordStoreError()
		return model.Sample{}, fmt.Errorf("ingest: %w", err)
	}
	metrics.RecordSampleIngested(probability)

	if decision.Transitioned {
		event := model.Event{
			TS:          sample.TS,
			Type:        decision.Transition,
			Probability: probability,
		}
		if err := s.events.Append(ctx, event); err != nil {
			// No rollback: the sample stays without its event.
			metrics.RecordStoreError()
			s.logger.Error(ctx, "event append failed after sample write",
				logger.String("type", string(decision.Transition)),
				logger.Error(err),
			)
			return sample, fmt.Errorf("ingest event: %w", err)
		}
		metrics.RecordTransition(string(decision.Transition))
		s.logger.Info(ctx, "posture transition",
			logger.String("type", string(decision.Transition)),
			logger.Float64("probability", probability),
		)
	}

	return sample, nil
}

// IngestLive captures a frame, predicts a probability, and delegates to
// Ingest. Both abort paths (no frame, no prediction) return
// produced=false with no error and touch neither store.
func (s *Service) IngestLive(ctx context.Context, src capture.Source, p predict.Predictor) (model.Sample, bool, error) {
	frame, ok := src.Frame(ctx)
	if !ok {
		metrics.RecordCaptureFailure()
		s.logger.Debug(ctx, "no frame captured; skipping sample")
		return model.Sample{}, false, nil
	}

	probability, ok := p.Predict(ctx, frame)
	if !ok {
		metrics.RecordPredictionFailure()
		s.logger.Debug(ctx, "no prediction produced; skipping sample")
		return model.Sample{}, false, nil
	}

	sample, err := s.Ingest(ctx, probability)
	if err != nil {
		return model.Sample{}, false, err
	}
	return sample, true, nil
}

// RecordEvent writes a transition event directly, bypassing the
// classifier. Dev/test injection only; production ingestion routes
// through Ingest.
func (s *Service) RecordEvent(ctx context.Context, eventType model.EventType, probability float64) error {
	if err := model.ValidateProbability(probability); err != nil {
		metrics.RecordIngestionRejected()
		return err
	}
	if eventType == "" {
		eventType = "event"
	}
	event := model.Event{
		TS:          time.Now().UTC().Truncate(time.Second),
		Type:        eventType,
		Probability: probability,
	}
	if err := s.events.Append(ctx, event); err != nil {
		metrics.RecordStoreError()
		return fmt.Errorf("record event: %w", err)
	}
	return nil
}

// Latest returns the most recent sample, ok=false when none exists.
func (s *Service) Latest(ctx context.Context) (model.Sample, bool, error) {
	return s.samples.Latest(ctx)
}

// Series returns all samples inside the trailing window, ascending,
// together with the cutoff used. A non-positive window falls back to
// the configured default.
func (s *Service) Series(ctx context.Context, window time.Duration) ([]model.Sample, time.Time, error) {
	if window <= 0 {
		window = s.seriesWindow
	}
	since := time.Now().UTC().Truncate(time.Second).Add(-window)
	samples, err := s.samples.RangeSince(ctx, since)
	if err != nil {
		return nil, since, fmt.Errorf("series: %w", err)
	}
	return samples, since, nil
}

// RecentEvents returns up to limit most recent events, descending. A
// non-positive limit falls back to the configured default; the store
// caps the result regardless.
func (s *Service) RecentEvents(ctx context.Context, limit int) ([]model.Event, error) {
	if limit <= 0 {
		limit = s.eventsLimit
	}
	events, err := s.events.Recent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("recent events: %w", err)
	}
	return events, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":   s.started,
		"backend":   s.backend,
		"threshold": s.threshold,
	}

	if s.started {
		sampleCount := s.samples.Count(ctx)
		eventCount := s.events.Count(ctx)

		stats["samples"] = sampleCount
		stats["events"] = eventCount
		stats["uptime_seconds"] = int(time.Since(s.startedAt).Seconds())

		metrics.UpdateStoreRecords("samples", sampleCount)
		metrics.UpdateStoreRecords("events", eventCount)
	}

	return stats
}
