package region

import (
	"errors"
	"slices"
	"sync"

	"github.com/google/uuid"
)

// DefaultMinLength is the minimum region length in seconds applied when a
// store is created with a non-positive minimum.
const DefaultMinLength = 1.0

// ErrNotFound is returned when the requested region does not exist.
var ErrNotFound = errors.New("region: not found")

// ErrTooShort is returned by Create and UpdateBounds when the interval is
// shorter than the store's minimum region length.
var ErrTooShort = errors.New("region: interval shorter than minimum length")

// ErrInvalidInterval is returned when an interval is degenerate
// (end <= start after normalization).
var ErrInvalidInterval = errors.New("region: end must be greater than start")

// ErrOutOfRange is returned when an interval extends outside [0, duration].
var ErrOutOfRange = errors.New("region: interval outside the timeline")

// Store is the authoritative collection of regions for one document.
//
// Internal order is insertion order; [Store.List] sorts by start at the
// consumption boundary. Mutations notify subscribers synchronously, after
// the store's own state is updated, so an observer reading the store from
// inside its callback sees the mutation applied.
type Store struct {
	mu        sync.RWMutex
	duration  float64
	minLength float64
	regions   []Region
	index     map[string]int // id -> position in regions

	subMu sync.RWMutex
	subs  []func(Event)
}

// NewStore creates a store for a timeline of the given duration (seconds).
// A non-positive minLength falls back to [DefaultMinLength].
func NewStore(duration, minLength float64) *Store {
	if minLength <= 0 {
		minLength = DefaultMinLength
	}
	return &Store{
		duration:  duration,
		minLength: minLength,
		index:     make(map[string]int),
	}
}

// Subscribe registers cb to be invoked synchronously after every mutation.
// Subscriptions cannot be removed; the store's lifetime is the document's.
func (s *Store) Subscribe(cb func(Event)) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.subs = append(s.subs, cb)
}

// Duration returns the timeline duration the store validates against.
func (s *Store) Duration() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.duration
}

// MinLength returns the minimum region length in seconds.
func (s *Store) MinLength() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.minLength
}

// Create validates and adds a new region with a fresh id and no speaker.
//
// Bounds are normalized by swapping when passed reversed; the gesture
// controller already orders them, so the swap is a defensive re-check.
// Returns [ErrTooShort], [ErrInvalidInterval], or [ErrOutOfRange] on
// rejection, leaving the store unchanged.
func (s *Store) Create(start, end float64) (Region, error) {
	s.mu.Lock()
	start, end = normalize(start, end)
	if err := s.validate(start, end); err != nil {
		s.mu.Unlock()
		return Region{}, err
	}

	r := Region{
		ID:    uuid.NewString(),
		Start: start,
		End:   end,
	}
	s.regions = append(s.regions, r)
	s.index[r.ID] = len(s.regions) - 1
	s.mu.Unlock()

	s.notify(Event{Type: EventCreated, Region: r})
	return r, nil
}

// Get retrieves a region by id. Returns [ErrNotFound] when it does not exist.
func (s *Store) Get(id string) (Region, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[id]
	if !ok {
		return Region{}, ErrNotFound
	}
	return s.regions[i], nil
}

// UpdateBounds replaces a region's interval, applying the same validation as
// [Store.Create]. The speaker assignment is untouched. On rejection the
// region keeps its previous bounds.
func (s *Store) UpdateBounds(id string, start, end float64) (Region, error) {
	s.mu.Lock()
	i, ok := s.index[id]
	if !ok {
		s.mu.Unlock()
		return Region{}, ErrNotFound
	}

	start, end = normalize(start, end)
	if err := s.validate(start, end); err != nil {
		s.mu.Unlock()
		return Region{}, err
	}

	s.regions[i].Start = start
	s.regions[i].End = end
	r := s.regions[i]
	s.mu.Unlock()

	s.notify(Event{Type: EventUpdated, Region: r})
	return r, nil
}

// AssignSpeaker unconditionally overwrites a region's speaker reference.
// An empty name clears the assignment. Roster membership is the caller's
// responsibility; the store does not know the roster.
func (s *Store) AssignSpeaker(id, name string) (Region, error) {
	s.mu.Lock()
	i, ok := s.index[id]
	if !ok {
		s.mu.Unlock()
		return Region{}, ErrNotFound
	}

	s.regions[i].Speaker = name
	r := s.regions[i]
	s.mu.Unlock()

	s.notify(Event{Type: EventUpdated, Region: r})
	return r, nil
}

// Delete removes a region and its speaker assignment together. Observers
// that hold the id (selection, bounded playback) react to the removal event;
// the store itself knows nothing about selection state.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	i, ok := s.index[id]
	if !ok {
		s.mu.Unlock()
		return ErrNotFound
	}

	r := s.regions[i]
	s.regions = slices.Delete(s.regions, i, i+1)
	delete(s.index, id)
	for j := i; j < len(s.regions); j++ {
		s.index[s.regions[j].ID] = j
	}
	s.mu.Unlock()

	s.notify(Event{Type: EventRemoved, Region: r})
	return nil
}

// ClearSpeaker resets the speaker reference of every region assigned to name
// and returns the number of regions touched. The regions themselves survive;
// this is what happens when the roster shrinks, not a cascade delete.
func (s *Store) ClearSpeaker(name string) int {
	if name == "" {
		return 0
	}

	s.mu.Lock()
	var cleared []Region
	for i := range s.regions {
		if s.regions[i].Speaker == name {
			s.regions[i].Speaker = ""
			cleared = append(cleared, s.regions[i])
		}
	}
	s.mu.Unlock()

	for _, r := range cleared {
		s.notify(Event{Type: EventUpdated, Region: r})
	}
	return len(cleared)
}

// List returns a copy of all regions ordered by start ascending.
func (s *Store) List() []Region {
	s.mu.RLock()
	out := make([]Region, len(s.regions))
	copy(out, s.regions)
	s.mu.RUnlock()

	slices.SortStableFunc(out, func(a, b Region) int {
		switch {
		case a.Start < b.Start:
			return -1
		case a.Start > b.Start:
			return 1
		default:
			return 0
		}
	})
	return out
}

// Len returns the number of regions in the store.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.regions)
}

// validate checks an already-normalized interval against the store's
// invariants. Callers hold s.mu.
func (s *Store) validate(start, end float64) error {
	if end <= start {
		return ErrInvalidInterval
	}
	if start < 0 || end > s.duration {
		return ErrOutOfRange
	}
	if end-start < s.minLength {
		return ErrTooShort
	}
	return nil
}

// notify delivers ev to all subscribers in registration order.
func (s *Store) notify(ev Event) {
	s.subMu.RLock()
	subs := make([]func(Event), len(s.subs))
	copy(subs, s.subs)
	s.subMu.RUnlock()

	for _, cb := range subs {
		cb(ev)
	}
}

// normalize orders a pair of bounds so that start <= end.
func normalize(a, b float64) (start, end float64) {
	if a > b {
		return b, a
	}
	return a, b
}
