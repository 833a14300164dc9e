// Package session ties one annotation document together: the attached
// timeline source, its region store, roster, selection state, gesture and
// playback controllers, and the label projection. A [Manager] holds the open
// documents and the tab selection between them.
//
// The document is the single entry point for user intent. The server layer
// translates protocol messages into Document method calls and pushes the
// resulting [DocumentView] snapshots back out; it never reaches into the
// underlying components directly.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/google/uuid"

	"github.com/labelwave/labelwave/internal/config"
	"github.com/labelwave/labelwave/internal/export"
	"github.com/labelwave/labelwave/internal/gesture"
	"github.com/labelwave/labelwave/internal/observe"
	"github.com/labelwave/labelwave/internal/playback"
	"github.com/labelwave/labelwave/internal/region"
	"github.com/labelwave/labelwave/internal/selection"
	"github.com/labelwave/labelwave/internal/speaker"
	"github.com/labelwave/labelwave/internal/timecode"
	"github.com/labelwave/labelwave/pkg/timeline"
)

// LoadState describes where a document's source is in its load lifecycle.
type LoadState int

const (
	// StateLoading means the source is attached but the duration is not
	// known yet (or no source is attached at all).
	StateLoading LoadState = iota

	// StateReady means the source loaded and the annotation surface is
	// usable.
	StateReady

	// StateFailed means the source reported a load error. The document
	// stays open so the user can attach a different source.
	StateFailed
)

// String returns the human-readable name of the load state.
func (s LoadState) String() string {
	switch s {
	case StateLoading:
		return "LOADING"
	case StateReady:
		return "READY"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// ErrNotReady is returned by operations that need a loaded source while the
// document is still loading or failed.
var ErrNotReady = errors.New("session: document source not ready")

// Document is one open annotation document.
//
// All exported methods are safe for concurrent use. Every mutation of the
// document's region store flows through these methods, so the store
// subscription installed in handleReady always runs under the document
// mutex.
type Document struct {
	id  string
	cfg *config.Config
	met *observe.Metrics
	log *slog.Logger

	// cbmu guards the outward callbacks only. Internal callbacks (store
	// subscription, playback OnChange) fire while mu is held, so they must
	// never take mu themselves; cbmu keeps registration race-free without
	// risking that deadlock.
	cbmu     sync.Mutex
	onUpdate func()
	onLabels func(export.Labels)

	mu       sync.Mutex
	filename string
	purpose  string
	desc     string
	saved    bool
	state    LoadState
	loadErr  error
	rate     float64
	width    float64

	src    timeline.Source
	roster *speaker.Roster
	sel    *selection.State
	store  *region.Store
	pb     *playback.Controller
	gest   *gesture.Controller
	proj   *export.Projector
}

// NewDocument creates a document for the named audio file. The document
// starts in StateLoading with no source; call [Document.Attach] to load one.
func NewDocument(filename string, cfg *config.Config, met *observe.Metrics, log *slog.Logger) *Document {
	roster := speaker.NewRoster()
	d := &Document{
		id:       uuid.NewString(),
		cfg:      cfg,
		met:      met,
		log:      log.With(slog.String("document", filename)),
		filename: filename,
		saved:    true,
		state:    StateLoading,
		rate:     1.0,
		roster:   roster,
		sel:      selection.New(roster),
	}
	return d
}

// ID returns the document's stable identifier.
func (d *Document) ID() string { return d.id }

// Filename returns the audio filename the document annotates.
func (d *Document) Filename() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.filename
}

// OnUpdate registers cb to be invoked after any state change worth pushing
// to clients. Only one callback may be registered; subsequent calls replace
// it. Register before the first Attach.
func (d *Document) OnUpdate(cb func()) {
	d.cbmu.Lock()
	defer d.cbmu.Unlock()
	d.onUpdate = cb
}

// OnLabels registers cb for label projection changes. Replacement semantics
// match OnUpdate. The callback only fires when the projection actually
// differs from the last one delivered.
func (d *Document) OnLabels(cb func(export.Labels)) {
	d.cbmu.Lock()
	defer d.cbmu.Unlock()
	d.onLabels = cb
}

// Attach loads the document from src, replacing any previously attached
// source. The old source's playback stops and its late callbacks are
// ignored; regions from the old source are discarded and a fresh store is
// created once the new source reports ready.
func (d *Document) Attach(src timeline.Source) {
	d.mu.Lock()
	if d.pb != nil {
		d.pb.Close()
	}
	if d.src != nil {
		if err := d.src.Close(); err != nil {
			d.log.Warn("closing replaced source", "err", err)
		}
	}
	d.src = src
	d.state = StateLoading
	d.loadErr = nil
	d.store = nil
	d.pb = nil
	d.gest = nil
	d.proj = nil
	d.sel.Deselect()
	d.mu.Unlock()

	// Registered outside the lock: a source that is already ready invokes
	// the callback inline.
	src.OnReady(func(duration float64) { d.handleReady(src, duration) })
	src.OnError(func(err error) { d.handleLoadError(src, err) })
	src.OnTimeUpdate(func(float64) { d.notifyUpdate() })
	src.OnPlayState(func(bool) { d.notifyUpdate() })
	d.notifyUpdate()
}

// handleReady wires the annotation machinery for a freshly loaded source.
// Late readiness from a source that has since been replaced is dropped.
func (d *Document) handleReady(src timeline.Source, duration float64) {
	d.mu.Lock()
	if d.src != src {
		d.mu.Unlock()
		return
	}

	d.state = StateReady
	d.store = region.NewStore(duration, d.cfg.Annotation.MinRegionLength)
	d.proj = export.NewProjector(d.store, d.roster)
	d.pb = playback.New(src, d.store,
		playback.WithPollInterval(d.cfg.Playback.BoundaryPollInterval),
		playback.WithSkipSeconds(d.cfg.Playback.SkipSeconds),
		playback.WithBoundaryHook(func(string) {
			d.met.BoundaryStops.Add(context.Background(), 1)
		}),
	)
	d.pb.OnChange(func(playback.Snapshot) { d.notifyUpdate() })
	d.gest = gesture.New(d.store, d.sel, d.pb)
	if d.width > 0 {
		d.gest.SetMapping(timeline.PixelMap{Width: d.width, Duration: duration})
	}
	d.proj.OnChange(func(l export.Labels) {
		d.met.ExportPushes.Add(context.Background(), 1)
		d.notifyLabels(l)
	})

	// Runs under d.mu: every store mutation goes through this document's
	// methods.
	d.store.Subscribe(func(ev region.Event) {
		switch ev.Type {
		case region.EventCreated:
			d.met.RegionsCreated.Add(context.Background(), 1)
		case region.EventUpdated:
			d.pb.HandleUpdated(ev.Region)
		case region.EventRemoved:
			d.met.RegionsDeleted.Add(context.Background(), 1)
			d.sel.HandleRemoved(ev.Region.ID)
			d.pb.HandleRemoved(ev.Region.ID)
		}
		d.saved = false
		d.proj.Recompute()
	})

	src.SetRate(d.rate)
	d.log.Info("source ready", "duration", duration)
	d.mu.Unlock()
	d.notifyUpdate()
}

// handleLoadError records a failed load. Aborted loads — the expected result
// of swapping sources — are suppressed entirely.
func (d *Document) handleLoadError(src timeline.Source, err error) {
	if errors.Is(err, timeline.ErrAborted) {
		return
	}
	d.mu.Lock()
	if d.src != src {
		d.mu.Unlock()
		return
	}
	d.state = StateFailed
	d.loadErr = err
	d.met.LoadFailures.Add(context.Background(), 1)
	d.log.Error("source load failed", "err", err)
	d.mu.Unlock()
	d.notifyUpdate()
}

// SetViewport records the waveform container width in pixels and refreshes
// the gesture mapping. Safe to call in any load state; the width is applied
// once the source is ready.
func (d *Document) SetViewport(width float64) {
	d.mu.Lock()
	d.width = width
	if d.state == StateReady {
		d.gest.SetMapping(timeline.PixelMap{Width: width, Duration: d.store.Duration()})
	}
	d.mu.Unlock()
	d.notifyUpdate()
}

// PointerDown forwards a pointer press on the waveform surface.
func (d *Document) PointerDown(x float64) {
	d.mu.Lock()
	if d.state == StateReady {
		d.gest.PointerDown(x)
	}
	d.mu.Unlock()
	d.notifyUpdate()
}

// PointerMove forwards pointer movement (hover readout and live drag).
func (d *Document) PointerMove(x float64) {
	d.mu.Lock()
	if d.state == StateReady {
		d.gest.PointerMove(x)
	}
	d.mu.Unlock()
	d.notifyUpdate()
}

// PointerLeave clears the hover readout. A drag in progress continues.
func (d *Document) PointerLeave() {
	d.mu.Lock()
	if d.state == StateReady {
		d.gest.PointerLeave()
	}
	d.mu.Unlock()
	d.notifyUpdate()
}

// PointerUp completes a drag. A successful commit selects the new region
// and starts its bounded preview; a too-short or degenerate drag is
// discarded silently and counted.
func (d *Document) PointerUp(ctx context.Context, x float64) {
	d.mu.Lock()
	if d.state != StateReady {
		d.mu.Unlock()
		return
	}
	iv, wasDragging := d.gest.Provisional()
	_, ok := d.gest.PointerUp(ctx, x)
	if !ok && wasDragging {
		reason := "invalid"
		if math.Abs(iv.End-iv.Start) < d.store.MinLength() {
			reason = "too_short"
		}
		d.met.RecordGestureRejection(ctx, reason)
	}
	d.mu.Unlock()
	d.notifyUpdate()
}

// RegionClick selects the region and starts its bounded preview.
func (d *Document) RegionClick(ctx context.Context, id string) error {
	d.mu.Lock()
	if d.state != StateReady {
		d.mu.Unlock()
		return ErrNotReady
	}
	if d.sel.IsHidden(d.speakerOfLocked(id)) {
		// Hidden regions are not interactive.
		d.mu.Unlock()
		return nil
	}
	d.sel.Select(id)
	err := d.pb.PlayRegion(ctx, id)
	d.mu.Unlock()
	d.notifyUpdate()
	return err
}

// TimelineClick handles a click on empty waveform space: the selection
// clears and the playhead moves to the clicked position.
func (d *Document) TimelineClick(x float64) {
	d.mu.Lock()
	if d.state != StateReady {
		d.mu.Unlock()
		return
	}
	d.sel.Deselect()
	d.pb.SeekFree(d.gestureTimeLocked(x))
	d.mu.Unlock()
	d.notifyUpdate()
}

// HandleKey dispatches a keyboard event. It reports whether the key was
// consumed, so the caller can suppress the browser default only for handled
// keys.
func (d *Document) HandleKey(ctx context.Context, key string) bool {
	d.mu.Lock()
	if d.state != StateReady {
		d.mu.Unlock()
		return false
	}

	handled := true
	var err error
	switch key {
	case "Delete", "Backspace":
		id := d.sel.Selected()
		if id == "" {
			handled = false
			break
		}
		err = d.store.Delete(id)
	case " ":
		err = d.pb.Toggle(ctx, d.sel.Selected())
	case "ArrowLeft":
		d.pb.Skip(false)
	case "ArrowRight":
		d.pb.Skip(true)
	default:
		handled = false
	}
	d.mu.Unlock()

	if err != nil {
		d.log.Warn("key handling", "key", key, "err", err)
	}
	if handled {
		d.notifyUpdate()
	}
	return handled
}

// AssignSpeaker assigns the named speaker to the currently selected region.
// Without a selection it is a no-op.
func (d *Document) AssignSpeaker(name string) error {
	d.mu.Lock()
	if d.state != StateReady {
		d.mu.Unlock()
		return ErrNotReady
	}
	id := d.sel.Selected()
	if id == "" || !d.roster.Contains(name) {
		d.mu.Unlock()
		return nil
	}
	_, err := d.store.AssignSpeaker(id, name)
	d.mu.Unlock()
	d.notifyUpdate()
	return err
}

// SpeakerClick handles a click on a roster chip: with a region selected the
// speaker is assigned to it, otherwise the click toggles that speaker's
// dim-others highlight. Unknown names are ignored.
func (d *Document) SpeakerClick(name string) error {
	d.mu.Lock()
	if !d.roster.Contains(name) {
		d.mu.Unlock()
		return nil
	}
	var id string
	if d.state == StateReady {
		id = d.sel.Selected()
	}
	if id == "" {
		d.sel.ToggleHighlight(name)
		d.mu.Unlock()
		d.notifyUpdate()
		return nil
	}
	_, err := d.store.AssignSpeaker(id, name)
	d.mu.Unlock()
	d.notifyUpdate()
	return err
}

// Highlight sets the hover highlight on the named speaker; an empty name
// clears it. Unlike [Document.SpeakerClick] this never assigns.
func (d *Document) Highlight(name string) {
	d.mu.Lock()
	if name != "" && !d.roster.Contains(name) {
		d.mu.Unlock()
		return
	}
	d.sel.Highlight(name)
	d.mu.Unlock()
	d.notifyUpdate()
}

// ToggleHighlight toggles the dim-others highlight for the named speaker.
func (d *Document) ToggleHighlight(name string) {
	d.mu.Lock()
	d.sel.ToggleHighlight(name)
	d.mu.Unlock()
	d.notifyUpdate()
}

// ToggleHidden toggles visibility of the named speaker's regions.
func (d *Document) ToggleHidden(name string) {
	d.mu.Lock()
	d.sel.ToggleHidden(name)
	d.mu.Unlock()
	d.notifyUpdate()
}

// AddSpeaker appends the next auto-named speaker to the roster and returns
// its name.
func (d *Document) AddSpeaker() string {
	d.mu.Lock()
	name := d.roster.Add()
	d.saved = false
	if d.proj != nil {
		d.proj.Recompute()
	}
	d.mu.Unlock()
	d.notifyUpdate()
	return name
}

// RemoveSpeaker removes the last roster entry. Regions assigned to it
// become unassigned; highlight and hidden state referencing it clear.
func (d *Document) RemoveSpeaker() error {
	d.mu.Lock()
	name, err := d.roster.RemoveLast()
	if err != nil {
		d.mu.Unlock()
		return err
	}
	if d.store != nil {
		d.store.ClearSpeaker(name)
	}
	d.sel.SpeakerRemoved(name)
	d.saved = false
	if d.proj != nil {
		d.proj.Recompute()
	}
	d.mu.Unlock()
	d.notifyUpdate()
	return nil
}

// EditBounds applies a manual two-field time edit to the region. Both texts
// must parse as HH:MM:SS.mmm timecodes and the resulting interval must be
// valid; rejection leaves the region untouched.
func (d *Document) EditBounds(id, startText, endText string) error {
	d.mu.Lock()
	if d.state != StateReady {
		d.mu.Unlock()
		return ErrNotReady
	}
	err := d.editBoundsLocked(id, startText, endText)
	if err != nil {
		d.met.EditRejections.Add(context.Background(), 1)
	}
	d.mu.Unlock()
	d.notifyUpdate()
	return err
}

func (d *Document) editBoundsLocked(id, startText, endText string) error {
	start, err := timecode.Parse(startText)
	if err != nil {
		return fmt.Errorf("session: start time: %w", err)
	}
	end, err := timecode.Parse(endText)
	if err != nil {
		return fmt.Errorf("session: end time: %w", err)
	}
	// Manual edits are rejected outright when reversed; the store's
	// normalization is for raw drag coordinates only.
	if end <= start {
		return region.ErrInvalidInterval
	}
	if _, err := d.store.UpdateBounds(id, start, end); err != nil {
		return err
	}
	return nil
}

// SetRate changes the playback rate, clamped to the configured bounds.
func (d *Document) SetRate(rate float64) {
	d.mu.Lock()
	if rate < d.cfg.Playback.MinRate {
		rate = d.cfg.Playback.MinRate
	}
	if rate > d.cfg.Playback.MaxRate {
		rate = d.cfg.Playback.MaxRate
	}
	d.rate = rate
	if d.src != nil && d.state == StateReady {
		d.src.SetRate(rate)
	}
	d.mu.Unlock()
	d.notifyUpdate()
}

// SetMeta updates the document's free-text metadata.
func (d *Document) SetMeta(purpose, desc string) {
	d.mu.Lock()
	d.purpose = purpose
	d.desc = desc
	d.saved = false
	d.mu.Unlock()
	d.notifyUpdate()
}

// Save marks the document as saved. Labelwave keeps no server-side
// persistence; "saved" means the current state has been exported by the
// client.
func (d *Document) Save() {
	d.mu.Lock()
	d.saved = true
	d.mu.Unlock()
	d.notifyUpdate()
}

// Saved reports whether the document has unexported changes.
func (d *Document) Saved() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.saved
}

// Export builds the download payload for the document's current labels.
func (d *Document) Export() ([]byte, error) {
	d.mu.Lock()
	if d.proj == nil {
		d.mu.Unlock()
		return nil, ErrNotReady
	}
	doc := d.proj.Document(d.filename, d.purpose, d.desc)
	d.mu.Unlock()
	return export.MarshalDocument(doc)
}

// Labels returns the current label projection, or a zero value before the
// source is ready.
func (d *Document) Labels() export.Labels {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.proj == nil {
		return export.Labels{Speakers: d.roster.Names()}
	}
	return d.proj.Current()
}

// Close releases the document's playback and source resources.
func (d *Document) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pb != nil {
		d.pb.Close()
	}
	if d.src != nil {
		return d.src.Close()
	}
	return nil
}

// speakerOfLocked returns the speaker of region id, or "" when the region
// is unknown or unassigned. Callers hold d.mu.
func (d *Document) speakerOfLocked(id string) string {
	r, err := d.store.Get(id)
	if err != nil {
		return ""
	}
	return r.Speaker
}

// gestureTimeLocked maps pixel offset x through the current viewport.
// Callers hold d.mu.
func (d *Document) gestureTimeLocked(x float64) float64 {
	m := timeline.PixelMap{Width: d.width, Duration: d.store.Duration()}
	return m.TimeAt(x)
}

func (d *Document) notifyUpdate() {
	d.cbmu.Lock()
	cb := d.onUpdate
	d.cbmu.Unlock()
	if cb != nil {
		cb()
	}
}

func (d *Document) notifyLabels(l export.Labels) {
	d.cbmu.Lock()
	cb := d.onLabels
	d.cbmu.Unlock()
	if cb != nil {
		cb(l)
	}
}
