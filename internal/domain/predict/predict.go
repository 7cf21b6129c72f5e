// Package predict defines the pose-model boundary.
//
// The model is a black box frame -> probability. Like capture, it fails
// closed: malformed output or a runtime error reports ok=false, which
// the ingestion pipeline treats as a defined no-op rather than a
// failure.
package predict

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/ribslabs/ribs/internal/adapters/capture"
)

// Predictor turns a frame into a slouch probability.
type Predictor interface {
	// Predict returns the slouch probability for frame, ok=false when
	// no usable prediction could be produced.
	Predict(ctx context.Context, frame capture.Frame) (float64, bool)
}

// Default simulation parameters.
const (
	defaultSeed       = 42
	defaultStart      = 0.3
	defaultStep       = 0.15
	defaultMinLatency = 0
	defaultMaxLatency = 0
)

// Option applies a configuration option to the Simulated predictor.
type Option func(*Simulated)

// WithSeed sets the random seed for a reproducible walk.
func WithSeed(seed int64) Option {
	return func(s *Simulated) {
		s.rng = rand.New(rand.NewSource(seed)) //nolint:gosec // deterministic simulation
	}
}

// WithStart sets the initial probability of the walk.
func WithStart(p float64) Option {
	return func(s *Simulated) {
		if p >= 0 && p <= 1 {
			s.current = p
		}
	}
}

// WithStep sets the maximum per-sample probability change.
func WithStep(step float64) Option {
	return func(s *Simulated) {
		if step > 0 && step <= 1 {
			s.step = step
		}
	}
}

// WithLatencyRange simulates model inference latency.
func WithLatencyRange(minLatency, maxLatency time.Duration) Option {
	return func(s *Simulated) {
		if minLatency >= 0 && maxLatency > minLatency {
			s.minLatency = minLatency
			s.maxLatency = maxLatency
		}
	}
}

// Simulated implements Predictor with a bounded random walk. It stands
// in for the pose-estimation model in dev and test environments.
type Simulated struct {
	mu         sync.Mutex
	rng        *rand.Rand
	current    float64
	step       float64
	minLatency time.Duration
	maxLatency time.Duration
}

// NewSimulated creates a simulated predictor with configuration
// options.
func NewSimulated(opts ...Option) *Simulated {
	s := &Simulated{
		rng:        rand.New(rand.NewSource(defaultSeed)), //nolint:gosec // deterministic simulation
		current:    defaultStart,
		step:       defaultStep,
		minLatency: defaultMinLatency,
		maxLatency: defaultMaxLatency,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Predict advances the walk and returns the new probability, clamped
// to [0, 1]. Honors ctx when simulating latency.
func (s *Simulated) Predict(ctx context.Context, _ capture.Frame) (float64, bool) {
	if s.maxLatency > s.minLatency {
		latency := s.minLatency + time.Duration(s.rng.Int63n(int64(s.maxLatency-s.minLatency)))
		select {
		case <-ctx.Done():
			return 0, false
		case <-time.After(latency):
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.current += (s.rng.Float64()*2 - 1) * s.step
	s.current = math.Max(0, math.Min(1, s.current))
	return s.current, true
}
