package server

import (
	"github.com/labelwave/labelwave/internal/export"
	"github.com/labelwave/labelwave/internal/session"
)

// command is the client→server message envelope. Type selects the
// operation; the remaining fields are populated per type.
type command struct {
	Type string `json:"type"`

	// open
	Filename string `json:"filename,omitempty"`

	// close_doc / select_doc
	Index int `json:"index,omitempty"`

	// pointer_* / timeline_click
	X float64 `json:"x,omitempty"`

	// viewport
	Width float64 `json:"width,omitempty"`

	// region_click / edit_bounds
	ID string `json:"id,omitempty"`

	// key
	Key string `json:"key,omitempty"`

	// assign_speaker / toggle_highlight / toggle_hidden
	Name string `json:"name,omitempty"`

	// edit_bounds
	StartText string `json:"start_text,omitempty"`
	EndText   string `json:"end_text,omitempty"`

	// set_rate
	Rate float64 `json:"rate,omitempty"`

	// set_meta
	Purpose string `json:"purpose,omitempty"`
	Desc    string `json:"desc,omitempty"`
}

// stateEvent is the full snapshot pushed to every client after a change.
type stateEvent struct {
	Type      string                 `json:"type"` // "state"
	Selected  int                    `json:"selected"`
	Documents []session.DocumentView `json:"documents"`
}

// labelsEvent carries a changed label projection for one document.
type labelsEvent struct {
	Type       string        `json:"type"` // "labels"
	DocumentID string        `json:"document_id"`
	Labels     export.Labels `json:"labels"`
}

// errorEvent reports a rejected command to the issuing client only.
type errorEvent struct {
	Type    string `json:"type"` // "error"
	Message string `json:"message"`
}
