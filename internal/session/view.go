package session

import (
	"github.com/labelwave/labelwave/internal/gesture"
	"github.com/labelwave/labelwave/internal/selection"
	"github.com/labelwave/labelwave/internal/speaker"
	"github.com/labelwave/labelwave/internal/timecode"
	"github.com/labelwave/labelwave/pkg/timeline"
)

// RegionView is one region as rendered by the client: its bounds, its
// formatted timecodes, its pixel geometry inside the reported viewport,
// and the style resolved from selection, highlight, and hidden state.
type RegionView struct {
	ID        string          `json:"id"`
	Start     float64         `json:"start"`
	End       float64         `json:"end"`
	StartText string          `json:"start_text"`
	EndText   string          `json:"end_text"`
	Left      float64         `json:"left"`
	Width     float64         `json:"width"`
	Speaker   string          `json:"speaker,omitempty"`
	Style     selection.Style `json:"style"`
}

// SpeakerView is one roster chip.
type SpeakerView struct {
	Name        string         `json:"name"`
	Colors      speaker.Colors `json:"colors"`
	Highlighted bool           `json:"highlighted"`
	Hidden      bool           `json:"hidden"`
}

// DocumentView is the full client-facing snapshot of one document.
type DocumentView struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	Purpose  string `json:"purpose"`
	Desc     string `json:"desc"`
	State    string `json:"state"`
	LoadErr  string `json:"load_err,omitempty"`
	Saved    bool   `json:"saved"`

	Duration    float64 `json:"duration"`
	CurrentTime float64 `json:"current_time"`
	TimeText    string  `json:"time_text"`
	Rate        float64 `json:"rate"`
	Playing     bool    `json:"playing"`
	Mode        string  `json:"mode"`
	BoundedTo   string  `json:"bounded_to,omitempty"`

	Selected    string            `json:"selected,omitempty"`
	Regions     []RegionView      `json:"regions"`
	Speakers    []SpeakerView     `json:"speakers"`
	Provisional *gesture.Interval `json:"provisional,omitempty"`
	Hover       *float64          `json:"hover,omitempty"`
}

// View builds the client-facing snapshot of the document's current state.
func (d *Document) View() DocumentView {
	d.mu.Lock()
	defer d.mu.Unlock()

	v := DocumentView{
		ID:       d.id,
		Filename: d.filename,
		Purpose:  d.purpose,
		Desc:     d.desc,
		State:    d.state.String(),
		Saved:    d.saved,
		Rate:     d.rate,
		Mode:     "STOPPED",
		Regions:  []RegionView{},
	}
	if d.loadErr != nil {
		v.LoadErr = d.loadErr.Error()
	}

	for _, name := range d.roster.Names() {
		v.Speakers = append(v.Speakers, SpeakerView{
			Name:        name,
			Colors:      d.roster.ColorsFor(name),
			Highlighted: d.sel.Highlighted() == name,
			Hidden:      d.sel.IsHidden(name),
		})
	}

	if d.state != StateReady {
		return v
	}

	v.Duration = d.store.Duration()
	v.CurrentTime = d.src.CurrentTime()
	v.TimeText = timecode.Format(v.CurrentTime)
	v.Playing = d.src.Playing()
	v.Selected = d.sel.Selected()

	snap := d.pb.State()
	v.Mode = snap.Mode.String()
	v.BoundedTo = snap.RegionID

	m := timeline.PixelMap{Width: d.width, Duration: v.Duration}
	for _, r := range d.store.List() {
		rv := RegionView{
			ID:        r.ID,
			Start:     r.Start,
			End:       r.End,
			StartText: timecode.Format(r.Start),
			EndText:   timecode.Format(r.End),
			Speaker:   r.Speaker,
			Style:     d.sel.StyleFor(r),
		}
		if d.width > 0 {
			rv.Left = m.PixelAt(r.Start)
			rv.Width = m.PixelAt(r.End) - rv.Left
		}
		v.Regions = append(v.Regions, rv)
	}

	if iv, ok := d.gest.Provisional(); ok {
		v.Provisional = &iv
	}
	if t, ok := d.gest.Hover(); ok {
		v.Hover = &t
	}
	return v
}
