// Package beep adapts the gopxl/beep audio engine to the [timeline.Source]
// contract, decoding WAV and MP3 files and playing them through the system
// speaker.
//
// Decoding runs asynchronously: Open returns immediately and readiness is
// reported through OnReady once the file is decoded and the speaker is
// initialised, matching the contract's load lifecycle. Closing a source
// mid-load reports [timeline.ErrAborted].
package beep

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	beeplib "github.com/gopxl/beep"
	"github.com/gopxl/beep/mp3"
	"github.com/gopxl/beep/speaker"
	"github.com/gopxl/beep/wav"

	"github.com/labelwave/labelwave/pkg/timeline"
)

// Compile-time assertion that Source satisfies the timeline interface.
var _ timeline.Source = (*Source)(nil)

const (
	// resampleQuality is the beep resampler quality used for rate changes.
	resampleQuality = 4

	// tickInterval is the cadence of OnTimeUpdate notifications while
	// playing. Position-critical logic polls CurrentTime instead.
	tickInterval = 200 * time.Millisecond
)

// Source plays one audio file through the system speaker.
type Source struct {
	mu        sync.Mutex
	stream    beeplib.StreamSeekCloser
	format    beeplib.Format
	ctrl      *beeplib.Ctrl
	resampler *beeplib.Resampler

	ready   bool
	playing bool
	rate    float64
	loadErr error

	onReady     func(float64)
	onTime      func(float64)
	onPlayState func(bool)
	onError     func(error)

	closed    chan struct{}
	closeOnce sync.Once
}

// Open starts loading the audio file at path. The returned source is not
// ready until OnReady fires.
func Open(path string) *Source {
	s := &Source{rate: 1.0, closed: make(chan struct{})}
	go s.load(path)
	return s
}

// decode opens and decodes the file by extension.
func decode(path string) (beeplib.StreamSeekCloser, beeplib.Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, beeplib.Format{}, fmt.Errorf("beep: open %s: %w", path, err)
	}

	var (
		stream beeplib.StreamSeekCloser
		format beeplib.Format
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		stream, format, err = wav.Decode(f)
	case ".mp3":
		stream, format, err = mp3.Decode(f)
	default:
		f.Close()
		return nil, beeplib.Format{}, fmt.Errorf("beep: unsupported audio format %q", filepath.Ext(path))
	}
	if err != nil {
		f.Close()
		return nil, beeplib.Format{}, fmt.Errorf("beep: decode %s: %w", path, err)
	}
	return stream, format, nil
}

func (s *Source) load(path string) {
	stream, format, err := decode(path)

	s.mu.Lock()
	select {
	case <-s.closed:
		s.mu.Unlock()
		if stream != nil {
			stream.Close()
		}
		return
	default:
	}
	if err != nil {
		s.loadErr = err
		cb := s.onError
		s.mu.Unlock()
		if cb != nil {
			cb(err)
		}
		return
	}

	if err := speaker.Init(format.SampleRate, format.SampleRate.N(100*time.Millisecond)); err != nil {
		stream.Close()
		s.loadErr = fmt.Errorf("beep: speaker init: %w", err)
		cb, loadErr := s.onError, s.loadErr
		s.mu.Unlock()
		if cb != nil {
			cb(loadErr)
		}
		return
	}

	s.stream = stream
	s.format = format
	s.ctrl = &beeplib.Ctrl{Streamer: stream, Paused: true}
	s.resampler = beeplib.ResampleRatio(resampleQuality, s.rate, s.ctrl)
	s.ready = true
	duration := s.durationLocked()
	cb := s.onReady
	s.mu.Unlock()

	speaker.Play(s.resampler)
	go s.tickLoop()

	if cb != nil {
		cb(duration)
	}
}

// tickLoop emits periodic time updates while playing and detects the
// natural end of the clip.
func (s *Source) tickLoop() {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.closed:
			return
		case <-ticker.C:
			s.mu.Lock()
			if !s.playing {
				s.mu.Unlock()
				continue
			}
			pos := s.positionLocked()
			atEnd := pos >= s.durationLocked()
			if atEnd {
				s.playing = false
			}
			timeCB, stateCB := s.onTime, s.onPlayState
			s.mu.Unlock()

			if timeCB != nil {
				timeCB(pos)
			}
			if atEnd && stateCB != nil {
				stateCB(false)
			}
		}
	}
}

// Duration implements [timeline.Source].
func (s *Source) Duration() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return 0
	}
	return s.durationLocked()
}

func (s *Source) durationLocked() float64 {
	return s.format.SampleRate.D(s.stream.Len()).Seconds()
}

// CurrentTime implements [timeline.Source].
func (s *Source) CurrentTime() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return 0
	}
	return s.positionLocked()
}

func (s *Source) positionLocked() float64 {
	speaker.Lock()
	pos := s.stream.Position()
	speaker.Unlock()
	return s.format.SampleRate.D(pos).Seconds()
}

// Seek implements [timeline.Source], clamping to the clip bounds.
func (s *Source) Seek(seconds float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return
	}
	sample := s.format.SampleRate.N(time.Duration(seconds * float64(time.Second)))
	if sample < 0 {
		sample = 0
	}
	if end := s.stream.Len(); sample > end {
		sample = end
	}
	speaker.Lock()
	err := s.stream.Seek(sample)
	speaker.Unlock()
	if err != nil {
		slog.Warn("beep: seek failed", "sample", sample, "err", err)
	}
}

// Play implements [timeline.Source]. Playing a source that is not ready or
// already at its end is refused; the caller treats that as "still paused".
func (s *Source) Play(_ context.Context) error {
	s.mu.Lock()
	if !s.ready {
		s.mu.Unlock()
		return errors.New("beep: source not ready")
	}
	if s.positionLocked() >= s.durationLocked() {
		s.mu.Unlock()
		return errors.New("beep: playhead at end of clip")
	}
	speaker.Lock()
	s.ctrl.Paused = false
	speaker.Unlock()
	s.playing = true
	cb := s.onPlayState
	s.mu.Unlock()

	if cb != nil {
		cb(true)
	}
	return nil
}

// Pause implements [timeline.Source].
func (s *Source) Pause() {
	s.mu.Lock()
	if !s.ready {
		s.mu.Unlock()
		return
	}
	speaker.Lock()
	s.ctrl.Paused = true
	speaker.Unlock()
	wasPlaying := s.playing
	s.playing = false
	cb := s.onPlayState
	s.mu.Unlock()

	if wasPlaying && cb != nil {
		cb(false)
	}
}

// Playing implements [timeline.Source].
func (s *Source) Playing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

// SetRate implements [timeline.Source] via the beep resampler.
func (s *Source) SetRate(rate float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rate = rate
	if !s.ready {
		return
	}
	speaker.Lock()
	s.resampler.SetRatio(rate)
	speaker.Unlock()
}

// OnReady implements [timeline.Source]. If the source is already ready, cb
// fires immediately.
func (s *Source) OnReady(cb func(duration float64)) {
	s.mu.Lock()
	s.onReady = cb
	ready := s.ready
	var duration float64
	if ready {
		duration = s.durationLocked()
	}
	s.mu.Unlock()

	if ready && cb != nil {
		cb(duration)
	}
}

// OnTimeUpdate implements [timeline.Source].
func (s *Source) OnTimeUpdate(cb func(seconds float64)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onTime = cb
}

// OnPlayState implements [timeline.Source].
func (s *Source) OnPlayState(cb func(playing bool)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onPlayState = cb
}

// OnError implements [timeline.Source]. A load failure that happened before
// registration is delivered immediately.
func (s *Source) OnError(cb func(err error)) {
	s.mu.Lock()
	s.onError = cb
	pending := s.loadErr
	s.mu.Unlock()

	if pending != nil && cb != nil {
		cb(pending)
	}
}

// Close implements [timeline.Source]. Closing mid-load reports
// [timeline.ErrAborted] through OnError.
func (s *Source) Close() error {
	var aborted bool
	s.closeOnce.Do(func() {
		s.mu.Lock()
		close(s.closed)
		if s.ready {
			speaker.Lock()
			s.ctrl.Paused = true
			speaker.Unlock()
			s.playing = false
		} else {
			aborted = true
			s.loadErr = timeline.ErrAborted
		}
		stream, cb := s.stream, s.onError
		s.stream = nil
		s.ready = false
		s.mu.Unlock()

		if stream != nil {
			stream.Close()
		}
		if aborted && cb != nil {
			cb(timeline.ErrAborted)
		}
	})
	return nil
}
