// Package repository defines the posture record stores and errors.
//
// Both stores are append-only: records are immutable once written and
// every append is durable before the call returns. Reads always
// re-query the backing store; nothing is cached across calls.
package repository

import (
	"context"
	"time"

	"github.com/ribslabs/ribs/internal/domain/model"
)

// MaxRecentLimit caps Recent() regardless of the caller-requested
// limit.
const MaxRecentLimit = 200

// SampleStore provides access to the posture sample series.
type SampleStore interface {
	// Append inserts a new immutable sample. Content is not validated
	// here; validation happens at the ingestion boundary.
	Append(ctx context.Context, s model.Sample) error

	// Latest returns the sample with the maximum timestamp, ok=false
	// when the store is empty. Ties break toward the most recently
	// inserted record.
	Latest(ctx context.Context) (model.Sample, bool, error)

	// RangeSince returns all samples with TS >= cutoff, ascending by
	// timestamp. The caller is responsible for bounding cutoff.
	RangeSince(ctx context.Context, cutoff time.Time) ([]model.Sample, error)

	// Recent returns up to min(limit, MaxRecentLimit) samples,
	// descending by timestamp.
	Recent(ctx context.Context, limit int) ([]model.Sample, error)

	// Count returns the number of stored samples.
	Count(ctx context.Context) int

	// Clear deletes all samples. Test support only; not part of the
	// production-facing boundary.
	Clear(ctx context.Context) error
}

// EventStore provides access to the posture transition events.
type EventStore interface {
	Append(ctx context.Context, e model.Event) error
	Latest(ctx context.Context) (model.Event, bool, error)
	RangeSince(ctx context.Context, cutoff time.Time) ([]model.Event, error)
	Recent(ctx context.Context, limit int) ([]model.Event, error)
	Count(ctx context.Context) int
	Clear(ctx context.Context) error
}

// clampLimit applies the shared Recent() limit policy.
func clampLimit(limit int) int {
	if limit < 1 {
		return 1
	}
	if limit > MaxRecentLimit {
		return MaxRecentLimit
	}
	return limit
}
