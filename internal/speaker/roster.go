// Package speaker manages the ordered roster of speaker labels for one
// annotation document.
//
// The roster is deliberately simple: names are the identity (there is no
// separate id, so a rename would orphan existing assignments — renaming is
// not offered), at least [MinSpeakers] entries always exist, and only the
// last entry in insertion order may be removed. The removal policy is
// isolated behind [Roster.RemoveLast] so a future relaxation to arbitrary
// deletion stays a local change.
//
// All operations are safe for concurrent use.
package speaker

import (
	"errors"
	"fmt"
	"slices"
	"sync"
)

// MinSpeakers is the smallest roster size; removal below it is rejected.
const MinSpeakers = 2

// ErrRosterMinimum is returned by RemoveLast when the roster is already at
// its minimum size.
var ErrRosterMinimum = errors.New("speaker: roster already at minimum size")

// Roster is an ordered sequence of unique speaker names.
type Roster struct {
	mu    sync.RWMutex
	names []string
}

// NewRoster creates a roster seeded with [MinSpeakers] default speakers
// ("Speaker A", "Speaker B").
func NewRoster() *Roster {
	r := &Roster{}
	for i := 0; i < MinSpeakers; i++ {
		r.names = append(r.names, autoName(i))
	}
	return r
}

// Names returns a copy of the roster in insertion order.
func (r *Roster) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Len returns the roster size.
func (r *Roster) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.names)
}

// Contains reports whether name is in the roster.
func (r *Roster) Contains(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Contains(r.names, name)
}

// IndexOf returns the roster position of name, or -1 when absent.
func (r *Roster) IndexOf(name string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Index(r.names, name)
}

// Add appends a speaker with the next auto-generated sequential name and
// returns it.
func (r *Roster) Add() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := autoName(len(r.names))
	r.names = append(r.names, name)
	return name
}

// RemoveLast removes the last speaker in insertion order and returns its
// name. Returns [ErrRosterMinimum] when the roster holds only [MinSpeakers]
// entries; the roster is left unchanged.
//
// Callers are responsible for clearing region assignments that referenced
// the removed name (the regions themselves are kept).
func (r *Roster) RemoveLast() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.names) <= MinSpeakers {
		return "", ErrRosterMinimum
	}
	last := r.names[len(r.names)-1]
	r.names = r.names[:len(r.names)-1]
	return last, nil
}

// autoName produces the sequential display name for roster position i:
// "Speaker A" … "Speaker Z", then "Speaker AA", "Speaker AB", and so on.
func autoName(i int) string {
	var suffix []byte
	n := i
	for {
		suffix = append([]byte{byte('A' + n%26)}, suffix...)
		n = n/26 - 1
		if n < 0 {
			break
		}
	}
	return fmt.Sprintf("Speaker %s", suffix)
}
