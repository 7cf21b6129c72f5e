// Package classify implements the posture state machine.
//
// The classifier holds no state between calls: the "current" posture is
// whatever the most recent stored sample says, recovered lazily at
// classification time. Restarting the process therefore loses nothing.
package classify

import (
	"context"

	"github.com/ribslabs/ribs/internal/domain/model"
)

// Default threshold matching the original deployment.
const defaultThreshold = 0.6

// LatestReader is the slice of the sample store the classifier needs.
type LatestReader interface {
	// Latest returns the most recent sample, or ok=false on an empty
	// store. err is reserved for storage-layer failures.
	Latest(ctx context.Context) (model.Sample, bool, error)
}

// Decision is the outcome of classifying one probability reading.
type Decision struct {
	Label        model.Label
	Transition   model.EventType // valid only when Transitioned
	Transitioned bool
}

// Option applies a configuration option to the Classifier.
type Option func(*Classifier)

// WithThreshold sets the slouch probability cutoff.
func WithThreshold(t float64) Option {
	return func(c *Classifier) {
		if t >= 0 && t <= 1 {
			c.threshold = t
		}
	}
}

// Classifier decides labels and transitions against a fixed threshold.
type Classifier struct {
	threshold float64
	latest    LatestReader
}

// New constructs a Classifier reading previous state from latest.
func New(latest LatestReader, opts ...Option) *Classifier {
	c := &Classifier{
		threshold: defaultThreshold,
		latest:    latest,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Threshold returns the configured cutoff.
func (c *Classifier) Threshold() float64 {
	return c.threshold
}

// Decide classifies a probability reading. A transition is reported iff
// a previous label exists and differs from the new one; the very first
// sample never transitions. A failed Latest read degrades to "no
// transition" rather than failing the classification.
func (c *Classifier) Decide(ctx context.Context, probability float64) Decision {
	d := Decision{Label: model.LabelFor(probability, c.threshold)}

	prev, ok, err := c.latest.Latest(ctx)
	if err != nil || !ok {
		return d
	}
	if prev.Label != d.Label {
		d.Transition = model.TransitionFor(d.Label)
		d.Transitioned = true
	}
	return d
}
