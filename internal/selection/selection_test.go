package selection_test

import (
	"testing"

	"github.com/labelwave/labelwave/internal/region"
	"github.com/labelwave/labelwave/internal/selection"
	"github.com/labelwave/labelwave/internal/speaker"
)

func newState() (*selection.State, *speaker.Roster) {
	roster := speaker.NewRoster()
	return selection.New(roster), roster
}

func TestState_SingleSelection(t *testing.T) {
	t.Parallel()

	s, _ := newState()
	s.Select("r1")
	if got := s.Selected(); got != "r1" {
		t.Errorf("Selected() = %q, want %q", got, "r1")
	}
	s.Select("r2")
	if got := s.Selected(); got != "r2" {
		t.Errorf("Selected() after reselect = %q, want %q", got, "r2")
	}
	s.Deselect()
	if got := s.Selected(); got != "" {
		t.Errorf("Selected() after Deselect = %q, want empty", got)
	}
}

func TestState_HandleRemoved(t *testing.T) {
	t.Parallel()

	s, _ := newState()
	s.Select("r1")
	s.HandleRemoved("other")
	if got := s.Selected(); got != "r1" {
		t.Errorf("removing an unrelated region cleared the selection")
	}
	s.HandleRemoved("r1")
	if got := s.Selected(); got != "" {
		t.Errorf("Selected() after removal = %q, want empty", got)
	}
}

func TestState_ToggleHighlight(t *testing.T) {
	t.Parallel()

	s, _ := newState()
	s.ToggleHighlight("Speaker A")
	if got := s.Highlighted(); got != "Speaker A" {
		t.Errorf("Highlighted() = %q, want %q", got, "Speaker A")
	}
	s.ToggleHighlight("Speaker A")
	if got := s.Highlighted(); got != "" {
		t.Errorf("Highlighted() after second toggle = %q, want empty", got)
	}
}

func TestState_HighlightOpacity(t *testing.T) {
	t.Parallel()

	s, _ := newState()
	assigned := region.Region{ID: "r1", Start: 0, End: 5, Speaker: "Speaker A"}
	other := region.Region{ID: "r2", Start: 10, End: 15, Speaker: "Speaker B"}
	unassigned := region.Region{ID: "r3", Start: 20, End: 25}

	s.Highlight("Speaker A")

	if got := s.StyleFor(assigned); got.Opacity != 1.0 {
		t.Errorf("highlighted speaker's region opacity = %v, want 1.0", got.Opacity)
	}
	if got := s.StyleFor(other); got.Opacity >= 1.0 {
		t.Errorf("other speaker's region opacity = %v, want dimmed", got.Opacity)
	}
	if got := s.StyleFor(unassigned); got.Opacity >= 1.0 {
		t.Errorf("unassigned region opacity = %v, want dimmed while highlighting", got.Opacity)
	}

	s.Highlight("")
	if got := s.StyleFor(other); got.Opacity != 1.0 {
		t.Errorf("opacity after clearing highlight = %v, want 1.0", got.Opacity)
	}
}

func TestState_StyleColors(t *testing.T) {
	t.Parallel()

	s, roster := newState()
	r := region.Region{ID: "r1", Start: 0, End: 5, Speaker: "Speaker A"}

	base := s.StyleFor(r)
	want := roster.ColorsFor("Speaker A")
	if base.Fill != want.Default.Fill {
		t.Errorf("fill = %q, want speaker default %q", base.Fill, want.Default.Fill)
	}

	s.Select("r1")
	sel := s.StyleFor(r)
	if sel.Fill != want.Selected.Fill {
		t.Errorf("selected fill = %q, want heavier variant %q", sel.Fill, want.Selected.Fill)
	}

	unassigned := region.Region{ID: "r2", Start: 6, End: 9}
	if got := s.StyleFor(unassigned); got.Fill != speaker.NeutralColors.Default.Fill {
		t.Errorf("unassigned fill = %q, want neutral", got.Fill)
	}
}

func TestState_HiddenBeatsEverything(t *testing.T) {
	t.Parallel()

	s, _ := newState()
	r := region.Region{ID: "r1", Start: 0, End: 5, Speaker: "Speaker A"}

	s.Select("r1")
	s.Highlight("Speaker A")
	s.ToggleHidden("Speaker A")

	got := s.StyleFor(r)
	if got.Opacity != 0 {
		t.Errorf("hidden region opacity = %v, want 0", got.Opacity)
	}
	if got.Interactive {
		t.Error("hidden region must not be interactive")
	}

	s.ToggleHidden("Speaker A")
	if got := s.StyleFor(r); got.Opacity != 1.0 || !got.Interactive {
		t.Errorf("unhidden region style = %+v, want fully visible", got)
	}
}

func TestState_SpeakerRemoved(t *testing.T) {
	t.Parallel()

	s, _ := newState()
	s.Highlight("Speaker C")
	s.ToggleHidden("Speaker C")
	s.SpeakerRemoved("Speaker C")

	if got := s.Highlighted(); got != "" {
		t.Errorf("Highlighted() = %q after speaker removal, want empty", got)
	}
	if s.IsHidden("Speaker C") {
		t.Error("removed speaker still in hidden set")
	}
}
