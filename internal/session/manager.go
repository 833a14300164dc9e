package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/labelwave/labelwave/internal/config"
	"github.com/labelwave/labelwave/internal/observe"
)

// ErrNoDocument is returned by manager operations that need an open
// document when none is open or the index is out of range.
var ErrNoDocument = errors.New("session: no such document")

// Manager holds the open documents and the tab selection between them.
// Documents are ordered by when they were opened.
//
// All methods are safe for concurrent use.
type Manager struct {
	cfg *config.Config
	met *observe.Metrics
	log *slog.Logger

	mu       sync.Mutex
	docs     []*Document
	selected int
}

// NewManager creates an empty manager.
func NewManager(cfg *config.Config, met *observe.Metrics, log *slog.Logger) *Manager {
	return &Manager{cfg: cfg, met: met, log: log, selected: -1}
}

// Open creates a document for the named audio file, appends it, and makes
// it the selected tab. Call [Document.Attach] on the result to load audio.
func (m *Manager) Open(filename string) *Document {
	d := NewDocument(filename, m.cfg, m.met, m.log)

	m.mu.Lock()
	m.docs = append(m.docs, d)
	m.selected = len(m.docs) - 1
	m.mu.Unlock()

	m.met.ActiveDocuments.Add(context.Background(), 1)
	m.log.Info("document opened", "filename", filename, "id", d.ID())
	return d
}

// Close closes the document at index i and removes it. Selection moves to
// the previous tab when the selected document closes.
func (m *Manager) Close(i int) error {
	m.mu.Lock()
	if i < 0 || i >= len(m.docs) {
		m.mu.Unlock()
		return ErrNoDocument
	}
	d := m.docs[i]
	m.docs = append(m.docs[:i], m.docs[i+1:]...)
	switch {
	case len(m.docs) == 0:
		m.selected = -1
	case m.selected >= len(m.docs):
		m.selected = len(m.docs) - 1
	case i < m.selected:
		m.selected--
	}
	m.mu.Unlock()

	m.met.ActiveDocuments.Add(context.Background(), -1)
	if err := d.Close(); err != nil {
		m.log.Warn("closing document", "id", d.ID(), "err", err)
	}
	m.log.Info("document closed", "filename", d.Filename(), "id", d.ID())
	return nil
}

// Select makes the document at index i the current tab.
func (m *Manager) Select(i int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i < 0 || i >= len(m.docs) {
		return ErrNoDocument
	}
	m.selected = i
	return nil
}

// Current returns the selected document, or nil when none is open.
func (m *Manager) Current() *Document {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.selected < 0 {
		return nil
	}
	return m.docs[m.selected]
}

// SelectedIndex returns the selected tab index, or -1 when none is open.
func (m *Manager) SelectedIndex() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.selected
}

// Documents returns the open documents in tab order.
func (m *Manager) Documents() []*Document {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Document, len(m.docs))
	copy(out, m.docs)
	return out
}

// Len returns the number of open documents.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.docs)
}

// UnsavedCount returns how many open documents carry unexported changes.
func (m *Manager) UnsavedCount() int {
	n := 0
	for _, d := range m.Documents() {
		if !d.Saved() {
			n++
		}
	}
	return n
}

// CloseAll closes every open document.
func (m *Manager) CloseAll() {
	for m.Len() > 0 {
		_ = m.Close(0)
	}
}
