// Package selection tracks which region is selected, which speaker is
// highlighted, and which speakers are hidden, and derives the per-region
// visual style from that state.
//
// The state machine by itself never mutates the region store; it only holds
// references (region ids, speaker names) and reacts to removal notifications
// so that no reference outlives its target. Style derivation is a pure
// function of a region plus the current state, so the rendering side can
// recompute every region's appearance after any state change.
//
// All operations are safe for concurrent use.
package selection

import (
	"slices"
	"sync"

	"github.com/labelwave/labelwave/internal/region"
	"github.com/labelwave/labelwave/internal/speaker"
)

// dimmedOpacity is applied to regions outside the highlighted speaker.
const dimmedOpacity = 0.3

// Style is the derived appearance of a single region.
type Style struct {
	// Fill and Border are CSS color strings.
	Fill   string `json:"fill"`
	Border string `json:"border"`

	// Opacity is 1.0 for fully visible regions, reduced while another
	// speaker is highlighted, and 0 for hidden speakers.
	Opacity float64 `json:"opacity"`

	// Interactive reports whether the region responds to pointer input.
	// Hidden regions do not.
	Interactive bool `json:"interactive"`
}

// State holds the single-session selection, highlight, and hidden-speaker
// state for one document.
type State struct {
	mu          sync.RWMutex
	roster      *speaker.Roster
	selected    string
	highlighted string
	hidden      map[string]bool
}

// New creates an empty selection state bound to the given roster (used for
// color lookup during style derivation).
func New(roster *speaker.Roster) *State {
	return &State{
		roster: roster,
		hidden: make(map[string]bool),
	}
}

// Select marks the region id as selected. At most one region is selected at
// a time; selecting replaces any previous selection.
func (s *State) Select(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = id
}

// Deselect clears the selection.
func (s *State) Deselect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = ""
}

// Selected returns the selected region id, or "" when nothing is selected.
func (s *State) Selected() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected
}

// Highlight sets the hover/focus-emphasised speaker. An empty name clears
// the highlight. Highlight is independent of selection.
func (s *State) Highlight(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.highlighted = name
}

// ToggleHighlight highlights name, or clears the highlight when name is
// already highlighted.
func (s *State) ToggleHighlight(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.highlighted == name {
		s.highlighted = ""
	} else {
		s.highlighted = name
	}
}

// Highlighted returns the highlighted speaker name, or "".
func (s *State) Highlighted() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.highlighted
}

// ToggleHidden flips whether the named speaker's regions are suppressed.
func (s *State) ToggleHidden(name string) {
	if name == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hidden[name] {
		delete(s.hidden, name)
	} else {
		s.hidden[name] = true
	}
}

// IsHidden reports whether the named speaker is hidden.
func (s *State) IsHidden(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hidden[name]
}

// HiddenSpeakers returns the sorted set of hidden speaker names.
func (s *State) HiddenSpeakers() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.hidden))
	for name := range s.hidden {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

// HandleRemoved reacts to a region removal: when the removed region was
// selected, the selection is cleared. Wire this to the region store's
// removal notifications.
func (s *State) HandleRemoved(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected == id {
		s.selected = ""
	}
}

// SpeakerRemoved drops any highlight or hidden flag referring to a speaker
// that left the roster.
func (s *State) SpeakerRemoved(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.highlighted == name {
		s.highlighted = ""
	}
	delete(s.hidden, name)
}

// StyleFor derives the visual style for r from the current state.
//
// Precedence when rules conflict: hidden beats everything, then the
// highlight-derived opacity, then the base speaker color with its selected
// variant.
func (s *State) StyleFor(r region.Region) Style {
	s.mu.RLock()
	selected := s.selected == r.ID
	highlighted := s.highlighted
	hidden := r.Speaker != "" && s.hidden[r.Speaker]
	s.mu.RUnlock()

	colors := speaker.NeutralColors
	if r.Speaker != "" {
		colors = s.roster.ColorsFor(r.Speaker)
	}
	pair := colors.Default
	if selected {
		pair = colors.Selected
	}

	st := Style{
		Fill:        pair.Fill,
		Border:      pair.Border,
		Opacity:     1.0,
		Interactive: true,
	}
	if highlighted != "" && r.Speaker != highlighted {
		st.Opacity = dimmedOpacity
	}
	if hidden {
		st.Opacity = 0
		st.Interactive = false
	}
	return st
}
