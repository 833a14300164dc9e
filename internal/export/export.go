// Package export flattens the region store and speaker roster into the
// label document consumed by the download/persistence side.
//
// The projection is pure and cheap, so it is recomputed on every store or
// roster change; a deep-equality gate suppresses notifications when the
// recomputed labels match the previous value, keeping downstream
// "unsaved changes" flags honest.
package export

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/labelwave/labelwave/internal/region"
	"github.com/labelwave/labelwave/internal/speaker"
)

// RegionLabel is one exported region entry. Speaker is null (not "") for
// unassigned regions in the serialized form.
type RegionLabel struct {
	ID      string  `json:"id"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker *string `json:"speaker"`
}

// Labels is the flattened label set for one document: the roster in order
// plus every region sorted by start.
type Labels struct {
	Speakers []string      `json:"speakers"`
	Regions  []RegionLabel `json:"regions"`
}

// Meta carries the document's free-text metadata. Participants mirrors the
// roster size.
type Meta struct {
	Purpose      string `json:"purpose"`
	Desc         string `json:"desc"`
	Participants int    `json:"participants"`
}

// Document is the complete export payload.
type Document struct {
	Filename  string `json:"filename"`
	Meta      Meta   `json:"meta"`
	Labels    Labels `json:"labels"`
	Timestamp string `json:"timestamp"`
}

// Projector recomputes [Labels] from a store/roster pair and notifies a
// consumer only when the projection actually changed.
//
// All methods are safe for concurrent use.
type Projector struct {
	store  *region.Store
	roster *speaker.Roster

	mu       sync.Mutex
	last     Labels
	hasLast  bool
	onChange func(Labels)

	// now is swappable for tests.
	now func() time.Time
}

// NewProjector creates a projector over the given store and roster. Call
// [Projector.Recompute] after every mutation; wiring it to the store's
// notifications is the session's job.
func NewProjector(store *region.Store, roster *speaker.Roster) *Projector {
	return &Projector{
		store:  store,
		roster: roster,
		now:    time.Now,
	}
}

// OnChange registers cb to receive every distinct projection. Only one
// callback may be registered at a time; subsequent calls replace the
// previous registration.
func (p *Projector) OnChange(cb func(Labels)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onChange = cb
}

// Current returns the latest projection, computing it on first use.
func (p *Projector) Current() Labels {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.hasLast {
		p.last = p.project()
		p.hasLast = true
	}
	return p.last
}

// Recompute rebuilds the projection and, when it differs from the previous
// one, stores it and notifies the registered consumer. It reports whether a
// change was pushed.
func (p *Projector) Recompute() bool {
	p.mu.Lock()
	next := p.project()
	if p.hasLast && reflect.DeepEqual(next, p.last) {
		p.mu.Unlock()
		return false
	}
	p.last = next
	p.hasLast = true
	cb := p.onChange
	p.mu.Unlock()

	if cb != nil {
		cb(next)
	}
	return true
}

// Document wraps the current projection into the full export payload with
// an ISO-8601 timestamp. Participants is derived from the roster, matching
// the exported speaker list.
func (p *Projector) Document(filename, purpose, desc string) Document {
	labels := p.Current()
	return Document{
		Filename: filename,
		Meta: Meta{
			Purpose:      purpose,
			Desc:         desc,
			Participants: len(labels.Speakers),
		},
		Labels:    labels,
		Timestamp: p.now().UTC().Format(time.RFC3339),
	}
}

// MarshalDocument serializes a document as indented JSON, the shape written
// to the downloaded file.
func MarshalDocument(doc Document) ([]byte, error) {
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("export: marshal document: %w", err)
	}
	return b, nil
}

// project builds the labels snapshot. Callers hold p.mu.
func (p *Projector) project() Labels {
	regions := p.store.List()
	out := Labels{
		Speakers: p.roster.Names(),
		Regions:  make([]RegionLabel, 0, len(regions)),
	}
	for _, r := range regions {
		entry := RegionLabel{ID: r.ID, Start: r.Start, End: r.End}
		if r.Speaker != "" {
			name := r.Speaker
			entry.Speaker = &name
		}
		out.Regions = append(out.Regions, entry)
	}
	return out
}
