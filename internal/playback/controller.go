// Package playback constrains transport playback to region boundaries.
//
// The controller owns the only code path that calls Play/Pause/Seek on the
// timeline source during normal operation. While a region is active it runs
// a fine-grained boundary poll — the source's own time-update cadence can be
// coarser than the audible overrun budget — and stops exactly once at the
// region end, rewinding to the region start.
//
// The poll's lifetime is tied 1:1 to the PlayingRegion state: every exit
// transition (boundary hit, pause, free playback, region deletion, Close)
// cancels it, so a stale tick can never act on a region that is no longer
// active.
//
// All exported methods are safe for concurrent use.
package playback

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/labelwave/labelwave/internal/region"
	"github.com/labelwave/labelwave/pkg/timeline"
)

// DefaultPollInterval is the boundary check cadence while a region plays.
const DefaultPollInterval = 25 * time.Millisecond

// DefaultSkipSeconds is the distance of the skip-forward/back operations.
const DefaultSkipSeconds = 10.0

// Mode is the controller's transport state.
type Mode int

const (
	// Stopped means no playback is in progress.
	Stopped Mode = iota

	// PlayingFree means ordinary unbounded transport playback.
	PlayingFree

	// PlayingRegion means playback is confined to one region's interval.
	PlayingRegion
)

// String returns the human-readable name of the mode.
func (m Mode) String() string {
	switch m {
	case Stopped:
		return "STOPPED"
	case PlayingFree:
		return "PLAYING_FREE"
	case PlayingRegion:
		return "PLAYING_REGION"
	default:
		return "UNKNOWN"
	}
}

// Snapshot is the externally visible transport state.
type Snapshot struct {
	// Mode is the current transport mode.
	Mode Mode

	// RegionID is the bounded region's id while Mode is PlayingRegion,
	// otherwise empty.
	RegionID string
}

// poll is one boundary-check loop. A new poll is created on every entry
// into PlayingRegion; identity comparison against the controller's current
// poll guards against stale ticks.
type poll struct {
	regionID string
	bounds   region.Region
	stop     chan struct{}
	once     sync.Once
}

func (p *poll) cancel() {
	p.once.Do(func() { close(p.stop) })
}

// Controller drives a [timeline.Source] while honouring region bounds.
type Controller struct {
	src          timeline.Source
	store        *region.Store
	pollInterval time.Duration
	skip         float64

	onBoundary func(regionID string)

	mu       sync.Mutex
	mode     Mode
	active   *poll
	onChange func(Snapshot)
}

// Option configures a [Controller].
type Option func(*Controller)

// WithPollInterval overrides the boundary check cadence. Non-positive
// values keep the default.
func WithPollInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// WithSkipSeconds overrides the skip distance. Non-positive values keep
// the default.
func WithSkipSeconds(s float64) Option {
	return func(c *Controller) {
		if s > 0 {
			c.skip = s
		}
	}
}

// WithBoundaryHook registers hook to be called each time bounded playback
// stops at a region end. The hook runs on the poll goroutine after the stop
// completed and must not block.
func WithBoundaryHook(hook func(regionID string)) Option {
	return func(c *Controller) {
		c.onBoundary = hook
	}
}

// New creates a controller for the given source and region store. The store
// is consulted for fresh bounds on entry into PlayingRegion; wire
// [Controller.HandleRemoved] and [Controller.HandleUpdated] to its removal
// and update notifications.
func New(src timeline.Source, store *region.Store, opts ...Option) *Controller {
	c := &Controller{
		src:          src,
		store:        store,
		pollInterval: DefaultPollInterval,
		skip:         DefaultSkipSeconds,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// OnChange registers cb to be invoked after every mode transition. Only one
// callback may be registered at a time; subsequent calls replace the
// previous registration. The callback must not call back into the
// controller.
func (c *Controller) OnChange(cb func(Snapshot)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = cb
}

// State returns the current transport snapshot.
func (c *Controller) State() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// PlayRegion enters bounded playback for the region id: any previous
// playback stops, the playhead seeks to the region start, and the boundary
// poll begins. A failed Play is treated as "still paused" — the controller
// returns to Stopped and the error is logged, never surfaced as fatal.
func (c *Controller) PlayRegion(ctx context.Context, id string) error {
	r, err := c.store.Get(id)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.cancelPollLocked()
	c.src.Seek(r.Start)

	if err := c.src.Play(ctx); err != nil {
		c.mode = Stopped
		snap, cb := c.snapshotLocked(), c.onChange
		c.mu.Unlock()
		slog.Warn("playback start refused; staying paused", "region", id, "err", err)
		notify(cb, snap)
		return nil
	}

	p := &poll{regionID: r.ID, bounds: r, stop: make(chan struct{})}
	c.active = p
	c.mode = PlayingRegion
	snap, cb := c.snapshotLocked(), c.onChange
	c.mu.Unlock()

	go c.watch(p)
	notify(cb, snap)
	return nil
}

// PlayFree starts unbounded transport playback from the current position.
func (c *Controller) PlayFree(ctx context.Context) {
	c.mu.Lock()
	c.cancelPollLocked()

	if err := c.src.Play(ctx); err != nil {
		c.mode = Stopped
		snap, cb := c.snapshotLocked(), c.onChange
		c.mu.Unlock()
		slog.Warn("playback start refused; staying paused", "err", err)
		notify(cb, snap)
		return
	}

	c.mode = PlayingFree
	snap, cb := c.snapshotLocked(), c.onChange
	c.mu.Unlock()
	notify(cb, snap)
}

// Pause stops playback, keeping the current position, and cancels any
// boundary poll.
func (c *Controller) Pause() {
	c.mu.Lock()
	c.cancelPollLocked()
	c.src.Pause()
	c.mode = Stopped
	snap, cb := c.snapshotLocked(), c.onChange
	c.mu.Unlock()
	notify(cb, snap)
}

// Toggle implements the space-bar behaviour: pause when playing; otherwise
// re-enter bounded playback for the selected region when one is given, or
// fall back to free playback.
func (c *Controller) Toggle(ctx context.Context, selectedRegionID string) error {
	c.mu.Lock()
	playing := c.mode != Stopped
	c.mu.Unlock()

	if playing {
		c.Pause()
		return nil
	}
	if selectedRegionID != "" {
		return c.PlayRegion(ctx, selectedRegionID)
	}
	c.PlayFree(ctx)
	return nil
}

// Skip moves the playhead by the configured distance (negative = backward),
// clamped to the timeline. Bounded playback survives the jump while the new
// position stays inside the active region's interval; leaving the interval
// demotes to free playback at the new position.
func (c *Controller) Skip(forward bool) {
	delta := c.skip
	if !forward {
		delta = -delta
	}

	c.mu.Lock()
	target := c.src.CurrentTime() + delta
	if target < 0 {
		target = 0
	}
	if d := c.src.Duration(); target > d {
		target = d
	}

	if c.mode == PlayingRegion && c.active != nil && !c.active.bounds.Contains(target) {
		c.cancelPollLocked()
		c.mode = PlayingFree
	}
	c.src.Seek(target)
	snap, cb := c.snapshotLocked(), c.onChange
	c.mu.Unlock()
	notify(cb, snap)
}

// SeekFree pauses any bounded playback and moves the playhead, implementing
// the empty-timeline click.
func (c *Controller) SeekFree(seconds float64) {
	c.mu.Lock()
	if c.mode == PlayingRegion {
		c.cancelPollLocked()
		c.src.Pause()
		c.mode = Stopped
	}
	c.src.Seek(seconds)
	snap, cb := c.snapshotLocked(), c.onChange
	c.mu.Unlock()
	notify(cb, snap)
}

// HandleRemoved cancels the boundary poll when the bounded region is
// deleted, in the same synchronous step that processes the deletion. Wire
// this to the region store's removal notifications.
func (c *Controller) HandleRemoved(id string) {
	c.mu.Lock()
	if c.active == nil || c.active.regionID != id {
		c.mu.Unlock()
		return
	}
	c.cancelPollLocked()
	c.src.Pause()
	c.mode = Stopped
	snap, cb := c.snapshotLocked(), c.onChange
	c.mu.Unlock()
	notify(cb, snap)
}

// HandleUpdated refreshes the boundary poll's interval when the bounded
// region's bounds change mid-playback. Wire this to the region store's
// update notifications.
func (c *Controller) HandleUpdated(r region.Region) {
	c.mu.Lock()
	if c.active != nil && c.active.regionID == r.ID {
		c.active.bounds = r
	}
	c.mu.Unlock()
}

// Close stops playback and cancels the boundary poll. The controller must
// not be used afterwards.
func (c *Controller) Close() {
	c.mu.Lock()
	c.cancelPollLocked()
	c.mode = Stopped
	c.mu.Unlock()
}

// watch is the boundary poll loop for one PlayingRegion entry.
func (c *Controller) watch(p *poll) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			c.mu.Lock()
			if c.active != p {
				// A newer state owns the transport now.
				c.mu.Unlock()
				return
			}
			// Bounds may have been refreshed by HandleUpdated, so
			// read them under the lock.
			if c.src.CurrentTime() < p.bounds.End {
				c.mu.Unlock()
				continue
			}
			c.cancelPollLocked()
			c.src.Pause()
			c.src.Seek(p.bounds.Start)
			c.mode = Stopped
			snap, cb := c.snapshotLocked(), c.onChange
			c.mu.Unlock()
			notify(cb, snap)
			if c.onBoundary != nil {
				c.onBoundary(p.regionID)
			}
			return
		}
	}
}

// cancelPollLocked cancels the active poll, if any. Callers hold c.mu.
func (c *Controller) cancelPollLocked() {
	if c.active != nil {
		c.active.cancel()
		c.active = nil
	}
}

// snapshotLocked builds the current snapshot. Callers hold c.mu.
func (c *Controller) snapshotLocked() Snapshot {
	snap := Snapshot{Mode: c.mode}
	if c.mode == PlayingRegion && c.active != nil {
		snap.RegionID = c.active.regionID
	}
	return snap
}

func notify(cb func(Snapshot), snap Snapshot) {
	if cb != nil {
		cb(snap)
	}
}
