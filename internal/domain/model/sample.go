// Package model contains domain records passed between layers.
package model

import "time"

// Label classifies a posture observation.
type Label string

// Posture labels.
const (
	LabelGood   Label = "good"
	LabelSlouch Label = "slouch"
)

// EventType identifies a transition between posture labels.
type EventType string

// Transition event types.
const (
	EventEnterSlouch EventType = "enter_slouch"
	EventExitSlouch  EventType = "exit_slouch"
)

// Sample is one timestamped posture observation. Samples are immutable
// once written; TS is UTC with second precision on the wire.
type Sample struct {
	TS          time.Time // observation time, UTC
	Probability float64   // slouch probability in [0, 1]
	Label       Label     // derived from Probability at ingestion time
}

// Event records a detected label transition. TS and Probability are
// taken from the sample that triggered the transition.
type Event struct {
	TS          time.Time
	Type        EventType
	Probability float64
}

// LabelFor derives the label for a probability against a threshold.
// The boundary is inclusive on the high side: p == threshold is slouch.
func LabelFor(probability, threshold float64) Label {
	if probability >= threshold {
		return LabelSlouch
	}
	return LabelGood
}

// TransitionFor returns the event type for a transition into label.
func TransitionFor(label Label) EventType {
	if label == LabelSlouch {
		return EventEnterSlouch
	}
	return EventExitSlouch
}

// FormatTS renders a timestamp in the wire format: ISO-8601,
// second-truncated, UTC, Z-suffixed.
func FormatTS(ts time.Time) string {
	return ts.UTC().Truncate(time.Second).Format(time.RFC3339)
}
