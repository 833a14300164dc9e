package speaker

// ColorPair holds the fill and border colors for one visual variant of a
// speaker's regions. Values are CSS color strings consumed verbatim by the
// rendering client.
type ColorPair struct {
	Fill   string `json:"fill"`
	Border string `json:"border"`
}

// Colors is the full color assignment for a speaker: the resting fill and
// the heavier variant used while one of the speaker's regions is selected.
type Colors struct {
	Default  ColorPair `json:"default"`
	Selected ColorPair `json:"selected"`
}

// NeutralColors is the appearance of regions with no speaker assigned.
var NeutralColors = Colors{
	Default:  ColorPair{Fill: "rgba(120, 120, 120, 0.18)", Border: "#9e9e9e"},
	Selected: ColorPair{Fill: "rgba(120, 120, 120, 0.32)", Border: "#9e9e9e"},
}

// palette is the fixed speaker color cycle. Position i in the roster gets
// palette[i % len(palette)].
var palette = []Colors{
	{Default: ColorPair{"rgba(25, 118, 210, 0.25)", "#1976d2"}, Selected: ColorPair{"rgba(25, 118, 210, 0.4)", "#1976d2"}},
	{Default: ColorPair{"rgba(76, 175, 80, 0.25)", "#4caf50"}, Selected: ColorPair{"rgba(76, 175, 80, 0.4)", "#4caf50"}},
	{Default: ColorPair{"rgba(255, 152, 0, 0.25)", "#ff9800"}, Selected: ColorPair{"rgba(255, 152, 0, 0.4)", "#ff9800"}},
	{Default: ColorPair{"rgba(244, 67, 54, 0.25)", "#f44336"}, Selected: ColorPair{"rgba(244, 67, 54, 0.4)", "#f44336"}},
	{Default: ColorPair{"rgba(156, 39, 176, 0.25)", "#9c27b0"}, Selected: ColorPair{"rgba(156, 39, 176, 0.4)", "#9c27b0"}},
	{Default: ColorPair{"rgba(121, 85, 72, 0.25)", "#795548"}, Selected: ColorPair{"rgba(121, 85, 72, 0.4)", "#795548"}},
	{Default: ColorPair{"rgba(0, 150, 136, 0.25)", "#009688"}, Selected: ColorPair{"rgba(0, 150, 136, 0.4)", "#009688"}},
	{Default: ColorPair{"rgba(63, 81, 181, 0.25)", "#3f51b5"}, Selected: ColorPair{"rgba(63, 81, 181, 0.4)", "#3f51b5"}},
	{Default: ColorPair{"rgba(233, 30, 99, 0.25)", "#e91e63"}, Selected: ColorPair{"rgba(233, 30, 99, 0.4)", "#e91e63"}},
	{Default: ColorPair{"rgba(158, 158, 158, 0.25)", "#9e9e9e"}, Selected: ColorPair{"rgba(158, 158, 158, 0.4)", "#9e9e9e"}},
}

// ColorsFor returns the color assignment for the named speaker based on its
// roster position. Unknown names get [NeutralColors].
func (r *Roster) ColorsFor(name string) Colors {
	i := r.IndexOf(name)
	if i < 0 {
		return NeutralColors
	}
	return palette[i%len(palette)]
}
