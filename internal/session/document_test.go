package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel/metric/noop"

	"github.com/labelwave/labelwave/internal/config"
	"github.com/labelwave/labelwave/internal/export"
	"github.com/labelwave/labelwave/internal/observe"
	"github.com/labelwave/labelwave/pkg/timeline"
	"github.com/labelwave/labelwave/pkg/timeline/mock"
)

func testMetrics(t *testing.T) *observe.Metrics {
	t.Helper()
	met, err := observe.NewMetrics(noop.NewMeterProvider())
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return met
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// newReadyDoc returns a document attached to a ready 100s mock source with
// a 1000px viewport, so 10px = 1s.
func newReadyDoc(t *testing.T) (*Document, *mock.Source) {
	t.Helper()
	d := NewDocument("interview.wav", config.Default(), testMetrics(t), testLogger())
	t.Cleanup(func() { _ = d.Close() })

	src := mock.NewSource(100)
	d.SetViewport(1000)
	d.Attach(src)
	src.EmitReady()

	if v := d.View(); v.State != "READY" {
		t.Fatalf("state after EmitReady = %s, want READY", v.State)
	}
	return d, src
}

// drag runs a full pointer-down/move/up sequence over the waveform.
func drag(t *testing.T, d *Document, downX, upX float64) {
	t.Helper()
	d.PointerDown(downX)
	d.PointerMove(upX)
	d.PointerUp(context.Background(), upX)
}

func TestNewDocument_StartsLoading(t *testing.T) {
	t.Parallel()
	d := NewDocument("a.wav", config.Default(), testMetrics(t), testLogger())
	defer d.Close()

	v := d.View()
	if v.State != "LOADING" {
		t.Errorf("state = %s, want LOADING", v.State)
	}
	if !v.Saved {
		t.Error("fresh document should be saved")
	}
	if len(v.Speakers) != 2 {
		t.Fatalf("speakers = %d, want 2", len(v.Speakers))
	}
	if v.Speakers[0].Name != "Speaker A" || v.Speakers[1].Name != "Speaker B" {
		t.Errorf("default roster = %q, %q", v.Speakers[0].Name, v.Speakers[1].Name)
	}
}

func TestAttach_ReadyExposesDuration(t *testing.T) {
	t.Parallel()
	d, _ := newReadyDoc(t)

	v := d.View()
	if v.Duration != 100 {
		t.Errorf("duration = %v, want 100", v.Duration)
	}
	if v.TimeText != "00:00:00.000" {
		t.Errorf("time text = %q", v.TimeText)
	}
}

func TestAttach_SwapIgnoresStaleSource(t *testing.T) {
	t.Parallel()
	d := NewDocument("a.wav", config.Default(), testMetrics(t), testLogger())
	defer d.Close()

	old := mock.NewSource(50)
	d.Attach(old)

	next := mock.NewSource(200)
	d.Attach(next)

	if !old.Closed {
		t.Error("replaced source was not closed")
	}

	// A stale failure must not flip the document to FAILED.
	old.EmitError(errors.New("decode failed"))
	if v := d.View(); v.State != "LOADING" {
		t.Errorf("state after stale error = %s, want LOADING", v.State)
	}

	next.EmitReady()
	v := d.View()
	if v.State != "READY" || v.Duration != 200 {
		t.Errorf("state = %s duration = %v, want READY 200", v.State, v.Duration)
	}
}

func TestAttach_AbortedLoadSuppressed(t *testing.T) {
	t.Parallel()
	d := NewDocument("a.wav", config.Default(), testMetrics(t), testLogger())
	defer d.Close()

	src := mock.NewSource(50)
	d.Attach(src)
	src.EmitError(timeline.ErrAborted)

	if v := d.View(); v.State != "LOADING" {
		t.Errorf("state after aborted load = %s, want LOADING", v.State)
	}
}

func TestAttach_LoadFailure(t *testing.T) {
	t.Parallel()
	d := NewDocument("a.wav", config.Default(), testMetrics(t), testLogger())
	defer d.Close()

	src := mock.NewSource(50)
	d.Attach(src)
	src.EmitError(errors.New("unsupported codec"))

	v := d.View()
	if v.State != "FAILED" {
		t.Errorf("state = %s, want FAILED", v.State)
	}
	if !strings.Contains(v.LoadErr, "unsupported codec") {
		t.Errorf("load error = %q", v.LoadErr)
	}
}

func TestDrag_CreatesSelectsAndPreviews(t *testing.T) {
	t.Parallel()
	d, src := newReadyDoc(t)

	drag(t, d, 100, 300)

	v := d.View()
	if len(v.Regions) != 1 {
		t.Fatalf("regions = %d, want 1", len(v.Regions))
	}
	r := v.Regions[0]
	if r.Start != 10 || r.End != 30 {
		t.Errorf("bounds = [%v, %v], want [10, 30]", r.Start, r.End)
	}
	if r.StartText != "00:00:10.000" || r.EndText != "00:00:30.000" {
		t.Errorf("timecodes = %q, %q", r.StartText, r.EndText)
	}
	if v.Selected != r.ID {
		t.Errorf("selected = %q, want new region %q", v.Selected, r.ID)
	}
	if v.Mode != "PLAYING_REGION" || v.BoundedTo != r.ID {
		t.Errorf("mode = %s bounded to %q, want PLAYING_REGION on new region", v.Mode, v.BoundedTo)
	}
	if len(src.SeekCalls) == 0 || src.SeekCalls[len(src.SeekCalls)-1] != 10 {
		t.Errorf("seek calls = %v, want final seek to 10", src.SeekCalls)
	}
}

func TestDrag_TooShortDiscarded(t *testing.T) {
	t.Parallel()
	d, _ := newReadyDoc(t)

	drag(t, d, 100, 105) // 0.5s, under the 1s minimum

	v := d.View()
	if len(v.Regions) != 0 {
		t.Fatalf("regions = %d, want 0", len(v.Regions))
	}
	if v.Mode != "STOPPED" {
		t.Errorf("mode = %s, want STOPPED", v.Mode)
	}
	if !v.Saved {
		t.Error("discarded drag must not dirty the document")
	}
}

func TestHandleKey_DeleteRemovesSelection(t *testing.T) {
	t.Parallel()
	d, _ := newReadyDoc(t)
	drag(t, d, 100, 300)

	if !d.HandleKey(context.Background(), "Delete") {
		t.Fatal("Delete with a selection should be handled")
	}
	v := d.View()
	if len(v.Regions) != 0 {
		t.Errorf("regions = %d, want 0", len(v.Regions))
	}
	if v.Selected != "" {
		t.Errorf("selected = %q, want empty", v.Selected)
	}
	if v.Mode != "STOPPED" {
		t.Errorf("mode = %s, want STOPPED after deleting the bounded region", v.Mode)
	}

	if d.HandleKey(context.Background(), "Backspace") {
		t.Error("Backspace without a selection must not be handled")
	}
}

func TestHandleKey_SpaceTogglesRegionPlayback(t *testing.T) {
	t.Parallel()
	d, _ := newReadyDoc(t)
	drag(t, d, 100, 300)

	if !d.HandleKey(context.Background(), " ") {
		t.Fatal("space should be handled")
	}
	if v := d.View(); v.Mode != "STOPPED" {
		t.Fatalf("mode after pause = %s, want STOPPED", v.Mode)
	}

	if !d.HandleKey(context.Background(), " ") {
		t.Fatal("space should be handled")
	}
	if v := d.View(); v.Mode != "PLAYING_REGION" {
		t.Errorf("mode after resume = %s, want PLAYING_REGION", v.Mode)
	}
}

func TestHandleKey_ArrowsSkip(t *testing.T) {
	t.Parallel()
	d, src := newReadyDoc(t)

	if !d.HandleKey(context.Background(), "ArrowRight") {
		t.Fatal("ArrowRight should be handled")
	}
	if got := src.SeekCalls[len(src.SeekCalls)-1]; got != 10 {
		t.Errorf("seek = %v, want 10", got)
	}
	if !d.HandleKey(context.Background(), "ArrowLeft") {
		t.Fatal("ArrowLeft should be handled")
	}
	if got := src.SeekCalls[len(src.SeekCalls)-1]; got != 0 {
		t.Errorf("seek = %v, want 0", got)
	}

	if d.HandleKey(context.Background(), "x") {
		t.Error("unknown key must not be handled")
	}
}

func TestTimelineClick_DeselectsAndSeeks(t *testing.T) {
	t.Parallel()
	d, src := newReadyDoc(t)
	drag(t, d, 100, 300)

	d.TimelineClick(500)

	v := d.View()
	if v.Selected != "" {
		t.Errorf("selected = %q, want empty", v.Selected)
	}
	if v.Mode != "STOPPED" {
		t.Errorf("mode = %s, want STOPPED", v.Mode)
	}
	if got := src.SeekCalls[len(src.SeekCalls)-1]; got != 50 {
		t.Errorf("seek = %v, want 50", got)
	}
}

func TestAssignSpeaker(t *testing.T) {
	t.Parallel()
	d, _ := newReadyDoc(t)
	drag(t, d, 100, 300)

	if err := d.AssignSpeaker("Speaker B"); err != nil {
		t.Fatalf("AssignSpeaker: %v", err)
	}
	v := d.View()
	if v.Regions[0].Speaker != "Speaker B" {
		t.Errorf("speaker = %q, want Speaker B", v.Regions[0].Speaker)
	}

	// Unknown names are ignored.
	if err := d.AssignSpeaker("Speaker Z"); err != nil {
		t.Fatalf("AssignSpeaker unknown: %v", err)
	}
	if got := d.View().Regions[0].Speaker; got != "Speaker B" {
		t.Errorf("speaker after unknown assign = %q, want Speaker B", got)
	}
}

func TestRemoveSpeaker_ClearsAssignments(t *testing.T) {
	t.Parallel()
	d, _ := newReadyDoc(t)
	drag(t, d, 100, 300)
	d.AddSpeaker() // Speaker C
	if err := d.AssignSpeaker("Speaker C"); err != nil {
		t.Fatalf("AssignSpeaker: %v", err)
	}

	if err := d.RemoveSpeaker(); err != nil {
		t.Fatalf("RemoveSpeaker: %v", err)
	}
	v := d.View()
	if len(v.Speakers) != 2 {
		t.Errorf("speakers = %d, want 2", len(v.Speakers))
	}
	if v.Regions[0].Speaker != "" {
		t.Errorf("speaker = %q, want unassigned", v.Regions[0].Speaker)
	}

	// The two seeded speakers are the floor.
	d.RemoveSpeaker()
	if err := d.RemoveSpeaker(); err == nil {
		t.Error("RemoveSpeaker below minimum should fail")
	}
}

func TestEditBounds(t *testing.T) {
	t.Parallel()
	d, _ := newReadyDoc(t)
	drag(t, d, 100, 300)
	id := d.View().Regions[0].ID

	if err := d.EditBounds(id, "00:00:05.000", "00:00:40.500"); err != nil {
		t.Fatalf("EditBounds: %v", err)
	}
	r := d.View().Regions[0]
	if r.Start != 5 || r.End != 40.5 {
		t.Errorf("bounds = [%v, %v], want [5, 40.5]", r.Start, r.End)
	}

	if err := d.EditBounds(id, "not a time", "00:00:40.000"); err == nil {
		t.Error("malformed start text should be rejected")
	}
	if err := d.EditBounds(id, "00:00:39.000", "00:00:39.500"); err == nil {
		t.Error("interval under the minimum length should be rejected")
	}
	r = d.View().Regions[0]
	if r.Start != 5 || r.End != 40.5 {
		t.Errorf("bounds after rejected edits = [%v, %v], want unchanged", r.Start, r.End)
	}
}

func TestSetRate_Clamps(t *testing.T) {
	t.Parallel()
	d, src := newReadyDoc(t)

	d.SetRate(5.0)
	if got := src.RateCalls[len(src.RateCalls)-1]; got != 2.0 {
		t.Errorf("rate = %v, want clamped to 2.0", got)
	}
	d.SetRate(0.1)
	if got := src.RateCalls[len(src.RateCalls)-1]; got != 0.5 {
		t.Errorf("rate = %v, want clamped to 0.5", got)
	}
	if v := d.View(); v.Rate != 0.5 {
		t.Errorf("view rate = %v, want 0.5", v.Rate)
	}
}

func TestSaveLifecycle(t *testing.T) {
	t.Parallel()
	d, _ := newReadyDoc(t)

	drag(t, d, 100, 300)
	if d.Saved() {
		t.Fatal("document should be dirty after creating a region")
	}
	d.Save()
	if !d.Saved() {
		t.Fatal("document should be saved after Save")
	}
	d.SetMeta("diarization", "two speakers")
	if d.Saved() {
		t.Error("meta edit should dirty the document")
	}
}

func TestExport(t *testing.T) {
	t.Parallel()
	d, _ := newReadyDoc(t)
	drag(t, d, 100, 300)
	d.SetMeta("diarization", "sample")

	raw, err := d.Export()
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	for _, want := range []string{`"interview.wav"`, `"diarization"`, `"speaker": null`, `"participants": 2`} {
		if !strings.Contains(string(raw), want) {
			t.Errorf("export payload missing %s:\n%s", want, raw)
		}
	}
}

func TestOnLabels_NotifiedOnChange(t *testing.T) {
	t.Parallel()
	d := NewDocument("a.wav", config.Default(), testMetrics(t), testLogger())
	defer d.Close()

	var got []export.Labels
	d.OnLabels(func(l export.Labels) { got = append(got, l) })

	src := mock.NewSource(100)
	d.SetViewport(1000)
	d.Attach(src)
	src.EmitReady()

	drag(t, d, 100, 300)
	if len(got) != 1 {
		t.Fatalf("label pushes = %d, want 1", len(got))
	}
	if len(got[0].Regions) != 1 {
		t.Errorf("projected regions = %d, want 1", len(got[0].Regions))
	}

	// A pointer sequence with no commit must not push again.
	drag(t, d, 500, 503)
	if len(got) != 1 {
		t.Errorf("label pushes after discarded drag = %d, want 1", len(got))
	}
}

func TestHiddenRegion_NotClickable(t *testing.T) {
	t.Parallel()
	d, _ := newReadyDoc(t)
	drag(t, d, 100, 300)
	id := d.View().Regions[0].ID
	d.AssignSpeaker("Speaker A")
	d.TimelineClick(0) // clear selection and stop preview

	d.ToggleHidden("Speaker A")
	if err := d.RegionClick(context.Background(), id); err != nil {
		t.Fatalf("RegionClick: %v", err)
	}
	v := d.View()
	if v.Selected != "" {
		t.Errorf("selected = %q, want empty for hidden region", v.Selected)
	}
	if v.Mode != "STOPPED" {
		t.Errorf("mode = %s, want STOPPED", v.Mode)
	}
}

func TestEditBounds_ReversedRejected(t *testing.T) {
	t.Parallel()
	d, _ := newReadyDoc(t)
	drag(t, d, 100, 300)
	id := d.View().Regions[0].ID

	// The swapped interval [2, 10] would be valid, so a swap-then-accept
	// implementation is caught here.
	if err := d.EditBounds(id, "00:00:10.000", "00:00:02.000"); err == nil {
		t.Error("reversed times should be rejected, not swapped")
	}
	if err := d.EditBounds(id, "00:00:15.000", "00:00:15.000"); err == nil {
		t.Error("equal times should be rejected")
	}
	r := d.View().Regions[0]
	if r.Start != 10 || r.End != 30 {
		t.Errorf("bounds after rejected edits = [%v, %v], want [10, 30]", r.Start, r.End)
	}
}

func TestSpeakerClick_AssignsWhenSelected(t *testing.T) {
	t.Parallel()
	d, _ := newReadyDoc(t)
	drag(t, d, 100, 300)

	if err := d.SpeakerClick("Speaker B"); err != nil {
		t.Fatalf("SpeakerClick: %v", err)
	}
	v := d.View()
	if v.Regions[0].Speaker != "Speaker B" {
		t.Errorf("speaker = %q, want Speaker B", v.Regions[0].Speaker)
	}
	if got := highlightedSpeaker(v); got != "" {
		t.Errorf("highlight after assign = %q, want none", got)
	}
}

func TestSpeakerClick_TogglesHighlightWithoutSelection(t *testing.T) {
	t.Parallel()
	d, _ := newReadyDoc(t)

	if err := d.SpeakerClick("Speaker A"); err != nil {
		t.Fatalf("SpeakerClick: %v", err)
	}
	if got := highlightedSpeaker(d.View()); got != "Speaker A" {
		t.Errorf("highlighted = %q, want Speaker A", got)
	}
	if err := d.SpeakerClick("Speaker A"); err != nil {
		t.Fatalf("SpeakerClick: %v", err)
	}
	if got := highlightedSpeaker(d.View()); got != "" {
		t.Errorf("highlighted after second click = %q, want none", got)
	}

	// Unknown names are ignored.
	if err := d.SpeakerClick("Speaker Z"); err != nil {
		t.Fatalf("SpeakerClick unknown: %v", err)
	}
	if got := highlightedSpeaker(d.View()); got != "" {
		t.Errorf("highlighted after unknown click = %q, want none", got)
	}
}

func TestHighlight_HoverSetAndClear(t *testing.T) {
	t.Parallel()
	d, _ := newReadyDoc(t)

	d.Highlight("Speaker B")
	if got := highlightedSpeaker(d.View()); got != "Speaker B" {
		t.Errorf("highlighted = %q, want Speaker B", got)
	}

	// Hovering another chip replaces rather than toggles.
	d.Highlight("Speaker A")
	if got := highlightedSpeaker(d.View()); got != "Speaker A" {
		t.Errorf("highlighted = %q, want Speaker A", got)
	}

	d.Highlight("Speaker Z")
	if got := highlightedSpeaker(d.View()); got != "Speaker A" {
		t.Errorf("highlighted after unknown hover = %q, want Speaker A", got)
	}

	d.Highlight("")
	if got := highlightedSpeaker(d.View()); got != "" {
		t.Errorf("highlighted after clear = %q, want none", got)
	}
}

// highlightedSpeaker returns the name of the highlighted roster chip, or "".
func highlightedSpeaker(v DocumentView) string {
	for _, s := range v.Speakers {
		if s.Highlighted {
			return s.Name
		}
	}
	return ""
}

func TestEditBounds_ShrinksPlayingRegionBoundary(t *testing.T) {
	t.Parallel()
	d, src := newReadyDoc(t)
	drag(t, d, 100, 300) // [10, 30], playing bounded

	id := d.View().Regions[0].ID
	if err := d.EditBounds(id, "00:00:10.000", "00:00:12.000"); err != nil {
		t.Fatalf("EditBounds: %v", err)
	}

	src.AdvanceTo(12.05)
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if d.View().Mode == "STOPPED" {
			break
		}
		time.Sleep(2 * time.Millisecond)
	}
	v := d.View()
	if v.Mode != "STOPPED" {
		t.Fatalf("mode = %s, want STOPPED at the edited boundary", v.Mode)
	}
	if v.CurrentTime != 10 {
		t.Errorf("playhead = %v, want rewound to 10", v.CurrentTime)
	}
}

func TestView_RegionPixelGeometry(t *testing.T) {
	t.Parallel()
	d, _ := newReadyDoc(t)
	drag(t, d, 100, 300)

	r := d.View().Regions[0]
	if r.Left != 100 || r.Width != 200 {
		t.Errorf("geometry = (%v, %v), want (100, 200)", r.Left, r.Width)
	}
}
