// Package monitor runs the periodic capture -> predict -> ingest loop.
//
// The loop paces itself with a ticker; a missed frame or prediction is
// a logged no-op and the loop continues on its next interval, because
// a busy or absent camera is an expected operating condition.
package monitor

import (
	"context"
	"time"

	"github.com/ribslabs/ribs/internal/adapters/capture"
	"github.com/ribslabs/ribs/internal/domain/model"
	"github.com/ribslabs/ribs/internal/domain/predict"
	"github.com/ribslabs/ribs/pkg/logger"
)

// Default sampling interval matching the original deployment.
const defaultInterval = 5 * time.Second

// Ingester is the slice of the posture service the loop needs.
type Ingester interface {
	IngestLive(ctx context.Context, src capture.Source, p predict.Predictor) (model.Sample, bool, error)
}

// Option applies a configuration option to the Runner.
type Option func(*Runner)

// WithInterval sets the sampling interval.
func WithInterval(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithLogger sets a custom logger for the runner.
func WithLogger(l logger.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// Runner drives the monitoring loop.
type Runner struct {
	ingester  Ingester
	source    capture.Source
	predictor predict.Predictor
	interval  time.Duration
	logger    logger.Logger
}

// New constructs a Runner over the given collaborators.
func New(ingester Ingester, source capture.Source, predictor predict.Predictor, opts ...Option) *Runner {
	r := &Runner{
		ingester:  ingester,
		source:    source,
		predictor: predictor,
		interval:  defaultInterval,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run samples once immediately and then on every tick until ctx is
// cancelled. Store failures are logged and the loop keeps going; only
// cancellation stops it.
func (r *Runner) Run(ctx context.Context) error {
	if r.logger == nil {
		r.logger = logger.Get()
	}

	r.logger.Info(ctx, "starting posture monitoring",
		logger.String("interval", r.interval.String()),
	)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.sample(ctx)
	for {
		select {
		case <-ctx.Done():
			r.logger.Info(ctx, "stopped monitoring")
			return nil
		case <-ticker.C:
			r.sample(ctx)
		}
	}
}

func (r *Runner) sample(ctx context.Context) {
	sample, produced, err := r.ingester.IngestLive(ctx, r.source, r.predictor)
	if err != nil {
		r.logger.Error(ctx, "ingest failed", logger.Error(err))
		return
	}
	if !produced {
		return
	}
	r.logger.Info(ctx, "sample ingested",
		logger.String("ts", model.FormatTS(sample.TS)),
		logger.String("label", string(sample.Label)),
		logger.Float64("probability", sample.Probability),
	)
}
