// Package mock provides an in-memory implementation of [timeline.Source]
// for unit tests.
//
// The mock records every method call so that tests can assert on call counts
// and arguments, exposes exported fields to control return values, and has
// Emit* helpers to simulate engine-side events (readiness, time updates,
// play-state changes, load errors).
//
// Typical usage:
//
//	src := mock.NewSource(120.0)
//	src.EmitReady()
//	src.AdvanceTo(12.05)   // position moves, OnTimeUpdate fires
//
// All methods are safe for concurrent use.
package mock

import (
	"context"
	"sync"

	"github.com/labelwave/labelwave/pkg/timeline"
)

// Compile-time assertion that Source satisfies the timeline interface.
var _ timeline.Source = (*Source)(nil)

// Source is a mock implementation of [timeline.Source].
// Set the exported fields before use; inspect the Call/recorded fields after.
type Source struct {
	mu sync.Mutex

	// DurationResult is returned by Duration once the source is ready.
	DurationResult float64

	// PlayError, when non-nil, is returned by Play and the source stays
	// paused.
	PlayError error

	// Closed reports whether Close has been called.
	Closed bool

	ready    bool
	playing  bool
	position float64
	rate     float64

	// SeekCalls records every Seek argument after clamping.
	SeekCalls []float64

	// PlayCalls records how many times Play was called.
	PlayCalls int

	// PauseCalls records how many times Pause was called.
	PauseCalls int

	// RateCalls records every SetRate argument.
	RateCalls []float64

	onReady     func(float64)
	onTime      func(float64)
	onPlayState func(bool)
	onError     func(error)
}

// NewSource creates a mock source with the given duration. The source starts
// not ready; call [Source.EmitReady] to signal readiness.
func NewSource(duration float64) *Source {
	return &Source{DurationResult: duration, rate: 1.0}
}

// Duration implements [timeline.Source].
func (s *Source) Duration() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return 0
	}
	return s.DurationResult
}

// CurrentTime implements [timeline.Source].
func (s *Source) CurrentTime() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.position
}

// Seek implements [timeline.Source]. The position is clamped to
// [0, DurationResult] and recorded in SeekCalls.
func (s *Source) Seek(seconds float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seconds < 0 {
		seconds = 0
	}
	if seconds > s.DurationResult {
		seconds = s.DurationResult
	}
	s.position = seconds
	s.SeekCalls = append(s.SeekCalls, seconds)
}

// Play implements [timeline.Source]. Returns PlayError; on nil the source
// transitions to playing and the play-state callback fires.
func (s *Source) Play(ctx context.Context) error {
	s.mu.Lock()
	s.PlayCalls++
	if s.PlayError != nil {
		err := s.PlayError
		s.mu.Unlock()
		return err
	}
	changed := !s.playing
	s.playing = true
	cb := s.onPlayState
	s.mu.Unlock()

	if changed && cb != nil {
		cb(true)
	}
	return nil
}

// Pause implements [timeline.Source].
func (s *Source) Pause() {
	s.mu.Lock()
	s.PauseCalls++
	changed := s.playing
	s.playing = false
	cb := s.onPlayState
	s.mu.Unlock()

	if changed && cb != nil {
		cb(false)
	}
}

// Playing implements [timeline.Source].
func (s *Source) Playing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

// SetRate implements [timeline.Source]. The rate is recorded in RateCalls.
func (s *Source) SetRate(rate float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rate = rate
	s.RateCalls = append(s.RateCalls, rate)
}

// Rate returns the last rate passed to SetRate (1.0 initially).
func (s *Source) Rate() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rate
}

// OnReady implements [timeline.Source]. If the source is already ready, cb
// fires immediately.
func (s *Source) OnReady(cb func(duration float64)) {
	s.mu.Lock()
	s.onReady = cb
	ready, d := s.ready, s.DurationResult
	s.mu.Unlock()

	if ready && cb != nil {
		cb(d)
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

// OnError implements [timeline.Source].
func (s *Source) OnError(cb func(err error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onError = cb
}

// Close implements [timeline.Source]. After Close no Emit* helper fires a
// callback.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Closed = true
	s.playing = false
	return nil
}

// EmitReady marks the source ready and fires the ready callback with
// DurationResult.
func (s *Source) EmitReady() {
	s.mu.Lock()
	if s.Closed {
		s.mu.Unlock()
		return
	}
	s.ready = true
	cb, d := s.onReady, s.DurationResult
	s.mu.Unlock()

	if cb != nil {
		cb(d)
	}
}

// AdvanceTo moves the playhead to the given position and fires the
// time-update callback, simulating the engine's clock.
func (s *Source) AdvanceTo(seconds float64) {
	s.mu.Lock()
	if s.Closed {
		s.mu.Unlock()
		return
	}
	s.position = seconds
	cb := s.onTime
	s.mu.Unlock()

	if cb != nil {
		cb(seconds)
	}
}

// EmitError fires the error callback, simulating a failed or aborted load.
func (s *Source) EmitError(err error) {
	s.mu.Lock()
	if s.Closed {
		s.mu.Unlock()
		return
	}
	cb := s.onError
	s.mu.Unlock()

	if cb != nil {
		cb(err)
	}
}
