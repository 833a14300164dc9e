package speaker_test

import (
	"errors"
	"testing"

	"github.com/labelwave/labelwave/internal/speaker"
)

func TestNewRosterSeedsDefaults(t *testing.T) {
	t.Parallel()

	r := speaker.NewRoster()
	got := r.Names()
	want := []string{"Speaker A", "Speaker B"}
	if len(got) != len(want) {
		t.Fatalf("Names() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Names()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestRoster_AddSequentialNames(t *testing.T) {
	t.Parallel()

	r := speaker.NewRoster()
	if got := r.Add(); got != "Speaker C" {
		t.Errorf("Add() = %q, want %q", got, "Speaker C")
	}
	if got := r.Add(); got != "Speaker D" {
		t.Errorf("Add() = %q, want %q", got, "Speaker D")
	}

	// Past "Speaker Z" the suffix grows instead of drifting into
	// punctuation.
	for r.Len() < 26 {
		r.Add()
	}
	if got := r.Add(); got != "Speaker AA" {
		t.Errorf("27th name = %q, want %q", got, "Speaker AA")
	}
}

func TestRoster_RemoveLast(t *testing.T) {
	t.Parallel()

	r := speaker.NewRoster()

	// At minimum size, removal is rejected and the roster is unchanged.
	if _, err := r.RemoveLast(); !errors.Is(err, speaker.ErrRosterMinimum) {
		t.Fatalf("RemoveLast() at minimum error = %v, want ErrRosterMinimum", err)
	}
	if r.Len() != 2 {
		t.Fatalf("roster changed by rejected removal: len=%d", r.Len())
	}

	r.Add()
	name, err := r.RemoveLast()
	if err != nil {
		t.Fatalf("RemoveLast() error: %v", err)
	}
	if name != "Speaker C" {
		t.Errorf("RemoveLast() = %q, want %q", name, "Speaker C")
	}
	if r.Contains("Speaker C") {
		t.Error("removed speaker still present")
	}
}

func TestRoster_ColorsFor(t *testing.T) {
	t.Parallel()

	r := speaker.NewRoster()
	a := r.ColorsFor("Speaker A")
	b := r.ColorsFor("Speaker B")
	if a == b {
		t.Error("distinct speakers share a color assignment")
	}
	if a.Default.Border != "#1976d2" {
		t.Errorf("Speaker A border = %q, want %q", a.Default.Border, "#1976d2")
	}

	if got := r.ColorsFor("nobody"); got != speaker.NeutralColors {
		t.Errorf("unknown speaker colors = %+v, want neutral", got)
	}

	// The palette wraps instead of running out.
	for i := 0; i < 15; i++ {
		r.Add()
	}
	names := r.Names()
	last := names[len(names)-1]
	if got := r.ColorsFor(last); got == speaker.NeutralColors {
		t.Errorf("speaker %q beyond palette size got neutral colors", last)
	}
}
