// Package region holds the authoritative collection of labeled time
// intervals for one annotation document.
//
// A region is a `[start, end)` interval over the audio timeline, optionally
// assigned to a speaker. The [Store] enforces the interval invariants
// (non-degenerate, inside the timeline, at least the configured minimum
// length), assigns stable ids, and notifies observers synchronously on every
// mutation so that selection state, playback bounding, and the export
// projection always see a consistent collection within the same event turn.
//
// All store operations are safe for concurrent use.
package region

// Region is a labeled time interval over the audio timeline.
type Region struct {
	// ID is an opaque unique identifier, assigned at creation and never
	// reused.
	ID string `json:"id"`

	// Start is the interval start in seconds (inclusive).
	Start float64 `json:"start"`

	// End is the interval end in seconds (exclusive). Always strictly
	// greater than Start.
	End float64 `json:"end"`

	// Speaker is the assigned speaker name, or empty when unassigned.
	Speaker string `json:"speaker,omitempty"`
}

// Length returns the interval length in seconds.
func (r Region) Length() float64 {
	return r.End - r.Start
}

// Contains reports whether t lies inside the half-open interval [Start, End).
func (r Region) Contains(t float64) bool {
	return t >= r.Start && t < r.End
}

// EventType classifies store mutations delivered to observers.
type EventType int

const (
	// EventCreated is emitted after a new region is added.
	EventCreated EventType = iota

	// EventUpdated is emitted after a region's bounds or speaker change.
	EventUpdated

	// EventRemoved is emitted after a region is deleted.
	EventRemoved
)

// String returns the human-readable name of the event type.
func (e EventType) String() string {
	switch e {
	case EventCreated:
		return "CREATED"
	case EventUpdated:
		return "UPDATED"
	case EventRemoved:
		return "REMOVED"
	default:
		return "UNKNOWN"
	}
}

// Event describes a single store mutation. Observers registered via
// [Store.Subscribe] receive values of this type.
type Event struct {
	// Type indicates what happened.
	Type EventType

	// Region is the affected region's state after the mutation (for
	// EventRemoved, its last state before removal).
	Region Region
}
