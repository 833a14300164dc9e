// Package gesture turns raw pointer events over the waveform surface into
// committed regions.
//
// The controller is a two-state machine (idle, dragging). Pointer-down
// captures the drag origin through the timeline's pixel→time mapping;
// moves update the provisional interval without ever touching the region
// store; pointer-up orders the bounds and commits. A drag shorter than the
// store's minimum region length is discarded silently — it is
// indistinguishable from a click and not an error.
//
// Once a drag starts, the caller is expected to route pointer events from
// the whole viewport here (not just the waveform element), so a drag that
// leaves the surface still completes; out-of-surface coordinates clamp to
// the timeline through the pixel map. Pointer-leave only clears the hover
// readout and never cancels a drag in progress.
//
// All methods are safe for concurrent use.
package gesture

import (
	"context"
	"errors"
	"sync"

	"github.com/labelwave/labelwave/internal/playback"
	"github.com/labelwave/labelwave/internal/region"
	"github.com/labelwave/labelwave/internal/selection"
	"github.com/labelwave/labelwave/pkg/timeline"
)

// Interval is a provisional drag interval. It may be shorter than the
// minimum region length; it only becomes a region on commit.
type Interval struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Controller converts pointer-down/move/up sequences into region creations.
type Controller struct {
	store *region.Store
	sel   *selection.State
	pb    *playback.Controller

	mu       sync.Mutex
	mapping  timeline.PixelMap
	dragging bool
	origin   float64
	live     float64
	hover    float64
	hasHover bool
}

// New creates a controller committing into store, selecting via sel, and
// starting the auto-preview playback via pb.
func New(store *region.Store, sel *selection.State, pb *playback.Controller) *Controller {
	return &Controller{store: store, sel: sel, pb: pb}
}

// SetMapping installs the pixel→time mapping. Call it when the source
// becomes ready and again whenever the container width or zoom changes.
func (c *Controller) SetMapping(m timeline.PixelMap) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mapping = m
}

// PointerDown starts a drag at pixel offset x. Any running playback stops
// first so a new region's auto-preview never overlaps old audio.
func (c *Controller) PointerDown(x float64) {
	c.mu.Lock()
	t := c.mapping.TimeAt(x)
	c.dragging = true
	c.origin = t
	c.live = t
	c.hover = t
	c.hasHover = true
	c.mu.Unlock()

	c.pb.Pause()
}

// PointerMove updates the live drag position, or just the hover readout
// when no drag is in progress. The store is never touched here.
func (c *Controller) PointerMove(x float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.mapping.TimeAt(x)
	c.hover = t
	c.hasHover = true
	if c.dragging {
		c.live = t
	}
}

// PointerLeave clears the hover readout. An in-progress drag keeps running;
// only pointer-up ends it.
func (c *Controller) PointerLeave() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hasHover = false
}

// PointerUp ends the drag at pixel offset x and commits the interval.
//
// The committed bounds are min/max of origin and release. Drags shorter
// than the minimum region length are dropped silently and ok is false. On
// success the new region is selected and bounded preview playback starts
// immediately.
func (c *Controller) PointerUp(ctx context.Context, x float64) (r region.Region, ok bool) {
	c.mu.Lock()
	if !c.dragging {
		c.mu.Unlock()
		return region.Region{}, false
	}
	c.dragging = false
	release := c.mapping.TimeAt(x)
	start, end := c.origin, release
	if start > end {
		start, end = end, start
	}
	c.mu.Unlock()

	r, err := c.store.Create(start, end)
	if err != nil {
		if errors.Is(err, region.ErrTooShort) || errors.Is(err, region.ErrInvalidInterval) {
			// A short drag is a click, not a failure.
			return region.Region{}, false
		}
		return region.Region{}, false
	}

	c.sel.Select(r.ID)
	// Auto-preview on creation is intentional.
	_ = c.pb.PlayRegion(ctx, r.ID)
	return r, true
}

// Dragging reports whether a drag is in progress.
func (c *Controller) Dragging() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dragging
}

// Provisional returns the current drag interval with ordered bounds.
// ok is false when no drag is in progress.
func (c *Controller) Provisional() (iv Interval, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.dragging {
		return Interval{}, false
	}
	start, end := c.origin, c.live
	if start > end {
		start, end = end, start
	}
	return Interval{Start: start, End: end}, true
}

// Hover returns the time under the pointer for the hover readout. ok is
// false after the pointer left the surface.
func (c *Controller) Hover() (t float64, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hover, c.hasHover
}
