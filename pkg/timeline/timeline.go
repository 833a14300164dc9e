// Package timeline defines the contract between the annotation core and an
// audio timeline source: a waveform rendering/playback engine that knows the
// clip's duration, its current position, and how to play, pause, and seek.
//
// The core never talks to a concrete engine directly. Everything it needs is
// expressed by the [Source] interface, so the whole region/selection/playback
// machinery can be driven in tests by the mock implementation in
// timeline/mock, and in a real deployment by an engine adapter such as
// timeline/beep.
//
// This package lives under pkg/ because external engine adapters are
// expected to implement [Source].
package timeline

import (
	"context"
	"errors"
)

// ErrAborted is reported through [Source.OnError] when a load is cancelled
// because the source was swapped for a new one. It is expected during normal
// operation and callers suppress it entirely.
var ErrAborted = errors.New("timeline: load aborted")

// Source is an attached audio timeline.
//
// A Source is created already loading its audio; readiness is signalled via
// [Source.OnReady] once the duration is known. All position values are in
// seconds. Implementations must be safe for concurrent use: the boundary
// poll of the playback controller reads the position from its own goroutine
// while command handlers seek and pause.
type Source interface {
	// Duration returns the clip length in seconds, or 0 before the source
	// is ready.
	Duration() float64

	// CurrentTime returns the current playback position in seconds.
	CurrentTime() float64

	// Seek moves the playback position. The value is clamped to
	// [0, Duration]; Seek never fails.
	Seek(seconds float64)

	// Play starts playback from the current position. Playback start is
	// asynchronous and may fail (the engine may refuse to start); a non-nil
	// error means the source is still paused. Callers treat the error as a
	// state, never as fatal.
	Play(ctx context.Context) error

	// Pause stops playback, keeping the current position.
	Pause()

	// Playing reports whether the source is currently playing.
	Playing() bool

	// SetRate changes the playback rate (1.0 = normal speed).
	SetRate(rate float64)

	// OnReady registers cb to be invoked once the duration is known. Only
	// one callback may be registered at a time; subsequent calls replace
	// the previous registration. If the source is already ready, cb is
	// invoked immediately. The callback may run on an internal goroutine
	// and must not block.
	OnReady(cb func(duration float64))

	// OnTimeUpdate registers cb for periodic position notifications while
	// playing. Replacement semantics match OnReady. The cadence is
	// implementation-defined and may be coarse; position-critical logic
	// must poll [Source.CurrentTime] instead.
	OnTimeUpdate(cb func(seconds float64))

	// OnPlayState registers cb for play/pause transitions. Replacement
	// semantics match OnReady.
	OnPlayState(cb func(playing bool))

	// OnError registers cb for load failures. [ErrAborted] is delivered
	// when the load is cancelled by a source swap; any other error means
	// the audio could not be loaded. Replacement semantics match OnReady.
	OnError(cb func(err error))

	// Close tears the source down: playback stops, internal goroutines
	// exit, and no callback fires afterwards. Close is idempotent.
	Close() error
}
