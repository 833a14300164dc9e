package timeline

// PixelMap converts between horizontal pixel offsets inside the waveform
// container and timeline seconds. The gesture controller uses it to turn raw
// pointer coordinates into candidate region bounds.
//
// When PxPerSec is positive the mapping is a fixed zoom level; otherwise the
// whole duration is assumed to span Width pixels, matching an unzoomed
// waveform that fills its container.
type PixelMap struct {
	// Width is the container width in pixels.
	Width float64

	// Duration is the timeline length in seconds.
	Duration float64

	// PxPerSec is the zoom level in pixels per second. Zero means
	// proportional mapping across Width.
	PxPerSec float64
}

// TimeAt returns the timeline position for pixel offset x, clamped to
// [0, Duration]. A drag that leaves the container therefore still yields a
// valid bound.
func (m PixelMap) TimeAt(x float64) float64 {
	var t float64
	switch {
	case m.PxPerSec > 0:
		t = x / m.PxPerSec
	case m.Width > 0:
		t = x / m.Width * m.Duration
	}
	return clamp(t, 0, m.Duration)
}

// PixelAt returns the pixel offset for timeline position t, clamped to
// [0, Width].
func (m PixelMap) PixelAt(t float64) float64 {
	var x float64
	switch {
	case m.PxPerSec > 0:
		x = t * m.PxPerSec
	case m.Duration > 0:
		x = t / m.Duration * m.Width
	}
	return clamp(x, 0, m.Width)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
