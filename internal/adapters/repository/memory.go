package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ribslabs/ribs/internal/domain/model"
)

// In-memory Store implementations.
//
// Records are kept in insertion order; timestamp ordering is resolved
// at read time with a stable sort so that equal timestamps preserve
// insertion order, which gives Latest() its most-recently-inserted
// tie-break for free. These back the service in environments without
// MongoDB credentials and double as the test store.

// MemorySampleStore implements SampleStore on a mutex-guarded slice.
type MemorySampleStore struct {
	mu      sync.RWMutex
	samples []model.Sample
}

// NewMemorySampleStore creates an empty in-memory sample store.
func NewMemorySampleStore() *MemorySampleStore {
	return &MemorySampleStore{}
}

// Append inserts a sample.
func (s *MemorySampleStore) Append(_ context.Context, smp model.Sample) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.samples = append(s.samples, smp)
	return nil
}

// Latest returns the newest sample, preferring later insertions on
// equal timestamps.
func (s *MemorySampleStore) Latest(_ context.Context) (model.Sample, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.samples) == 0 {
		return model.Sample{}, false, nil
	}
	best := s.samples[0]
	for _, smp := range s.samples[1:] {
		if !smp.TS.Before(best.TS) {
			best = smp
		}
	}
	return best, true, nil
}

// RangeSince returns samples with TS >= cutoff, ascending.
func (s *MemorySampleStore) RangeSince(_ context.Context, cutoff time.Time) ([]model.Sample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Sample, 0)
	for _, smp := range s.samples {
		if !smp.TS.Before(cutoff) {
			out = append(out, smp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].TS.Before(out[j].TS) })
	return out, nil
}

// Recent returns up to min(limit, MaxRecentLimit) samples, descending.
func (s *MemorySampleStore) Recent(_ context.Context, limit int) ([]model.Sample, error) {
	limit = clampLimit(limit)

	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Sample, len(s.samples))
	copy(out, s.samples)
	// Stable sort ascending, then walk backwards so the newest
	// insertion wins among equal timestamps.
	sort.SliceStable(out, func(i, j int) bool { return out[i].TS.Before(out[j].TS) })
	desc := make([]model.Sample, 0, limit)
	for i := len(out) - 1; i >= 0 && len(desc) < limit; i-- {
		desc = append(desc, out[i])
	}
	return desc, nil
}

// Count returns the number of stored samples.
func (s *MemorySampleStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.samples)
}

// Clear removes all samples. Test support only.
func (s *MemorySampleStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.samples = nil
	return nil
}

// MemoryEventStore implements EventStore on a mutex-guarded slice.
type MemoryEventStore struct {
	mu     sync.RWMutex
	events []model.Event
}

// NewMemoryEventStore creates an empty in-memory event store.
func NewMemoryEventStore() *MemoryEventStore {
	return &MemoryEventStore{}
}

// Append inserts an event.
func (s *MemoryEventStore) Append(_ context.Context, ev model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

// Latest returns the newest event, preferring later insertions on
// equal timestamps.
func (s *MemoryEventStore) Latest(_ context.Context) (model.Event, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.events) == 0 {
		return model.Event{}, false, nil
	}
	best := s.events[0]
	for _, ev := range s.events[1:] {
		if !ev.TS.Before(best.TS) {
			best = ev
		}
	}
	return best, true, nil
}

// RangeSince returns events with TS >= cutoff, ascending.
func (s *MemoryEventStore) RangeSince(_ context.Context, cutoff time.Time) ([]model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Event, 0)
	for _, ev := range s.events {
		if !ev.TS.Before(cutoff) {
			out = append(out, ev)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].TS.Before(out[j].TS) })
	return out, nil
}

// Recent returns up to min(limit, MaxRecentLimit) events, descending.
func (s *MemoryEventStore) Recent(_ context.Context, limit int) ([]model.Event, error) {
	limit = clampLimit(limit)

	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Event, len(s.events))
	copy(out, s.events)
	sort.SliceStable(out, func(i, j int) bool { return out[i].TS.Before(out[j].TS) })
	desc := make([]model.Event, 0, limit)
	for i := len(out) - 1; i >= 0 && len(desc) < limit; i-- {
		desc = append(desc, out[i])
	}
	return desc, nil
}

// Count returns the number of stored events.
func (s *MemoryEventStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

// Clear removes all events. Test support only.
func (s *MemoryEventStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
	return nil
}
