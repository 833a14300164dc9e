// Package server exposes the annotation engine over HTTP.
//
// Clients connect via a WebSocket at /ws and exchange JSON messages: tagged
// commands inbound (pointer events, keyboard events, roster and document
// operations) and state snapshots outbound. Every mutation triggers a
// coalesced broadcast of the full [session.DocumentView] set, so clients
// render from snapshots instead of tracking deltas. Label projections are
// pushed separately and only when they actually changed.
//
// Plain HTTP endpoints cover the rest: /export downloads the label document,
// /metrics serves Prometheus, /healthz and /readyz serve probes.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/labelwave/labelwave/internal/config"
	"github.com/labelwave/labelwave/internal/export"
	"github.com/labelwave/labelwave/internal/health"
	"github.com/labelwave/labelwave/internal/observe"
	"github.com/labelwave/labelwave/internal/session"
	"github.com/labelwave/labelwave/pkg/timeline"
)

const shutdownTimeout = 10 * time.Second

// OpenSource creates a timeline source for the named audio file. The real
// implementation decodes from the media directory; tests supply mocks.
type OpenSource func(ctx context.Context, filename string) (timeline.Source, error)

// Server serves the annotation engine to WebSocket clients.
type Server struct {
	cfg  *config.Config
	log  *slog.Logger
	met  *observe.Metrics
	mgr  *session.Manager
	open OpenSource

	mu      sync.Mutex
	clients map[*client]struct{}

	stateDirty chan struct{}
	done       chan struct{}
	closeOnce  sync.Once
}

// New creates a server around the document manager. The broadcast loop
// starts immediately; call [Server.Close] (or let [Server.Run] return) to
// stop it.
func New(cfg *config.Config, mgr *session.Manager, open OpenSource, met *observe.Metrics, log *slog.Logger) *Server {
	s := &Server{
		cfg:        cfg,
		log:        log,
		met:        met,
		mgr:        mgr,
		open:       open,
		clients:    make(map[*client]struct{}),
		stateDirty: make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
	go s.broadcastLoop()
	return s
}

// Handler returns the full HTTP handler: probes, metrics, export download,
// and the WebSocket endpoint.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	h := health.New(health.Checker{
		Name: "documents",
		Check: func(context.Context) error {
			select {
			case <-s.done:
				return errors.New("server closed")
			default:
				return nil
			}
		},
	})
	h.Register(mux)

	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /ws", s.handleWS)
	mux.HandleFunc("GET /export", s.handleExport)

	return observe.Middleware(s.met)(mux)
}

// Run serves HTTP on the configured address until ctx is cancelled, then
// shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.ListenAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.log.Info("listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shCtx)
	})

	err := g.Wait()
	s.Close()
	return err
}

// Close stops the broadcast loop, disconnects all clients, and closes every
// open document.
func (s *Server) Close() {
	s.closeOnce.Do(func() {
		close(s.done)

		s.mu.Lock()
		clients := make([]*client, 0, len(s.clients))
		for c := range s.clients {
			clients = append(clients, c)
		}
		s.clients = make(map[*client]struct{})
		s.mu.Unlock()

		for _, c := range clients {
			c.close()
		}
		s.mgr.CloseAll()
	})
}

// handleExport serves the label document as a JSON download. The doc query
// parameter selects the tab index; it defaults to the selected tab. A
// successful download marks the document saved.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	d := s.mgr.Current()
	if q := r.URL.Query().Get("doc"); q != "" {
		i, err := strconv.Atoi(q)
		if err != nil {
			http.Error(w, "bad doc index", http.StatusBadRequest)
			return
		}
		docs := s.mgr.Documents()
		if i < 0 || i >= len(docs) {
			http.Error(w, "no such document", http.StatusNotFound)
			return
		}
		d = docs[i]
	}
	if d == nil {
		http.Error(w, "no document open", http.StatusNotFound)
		return
	}

	payload, err := d.Export()
	if err != nil {
		if errors.Is(err, session.ErrNotReady) {
			http.Error(w, "document not ready", http.StatusConflict)
			return
		}
		s.log.Error("export", "err", err)
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}

	d.Save()
	name := exportName(d.Filename())
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	if _, err := w.Write(payload); err != nil {
		s.log.Warn("export write", "err", err)
	}
}

// exportName derives the download filename from the audio filename:
// interview.wav → interview_labels.json.
func exportName(audio string) string {
	base := strings.TrimSuffix(audio, filepath.Ext(audio))
	if base == "" {
		base = "labels"
	}
	return base + "_labels.json"
}

// openDocument opens a tab for filename and starts loading its source. A
// source that cannot even be opened flags the document failed via the
// source's own error path, so the client sees the failure in the snapshot.
func (s *Server) openDocument(ctx context.Context, filename string) error {
	d := s.mgr.Open(filename)
	d.OnUpdate(s.markDirty)
	docID := d.ID()
	d.OnLabels(func(l export.Labels) { s.broadcastLabels(docID, l) })

	src, err := s.open(ctx, filename)
	if err != nil {
		s.markDirty()
		return fmt.Errorf("server: open %s: %w", filename, err)
	}
	d.Attach(src)
	return nil
}

// markDirty schedules a coalesced state broadcast.
func (s *Server) markDirty() {
	select {
	case s.stateDirty <- struct{}{}:
	default:
	}
}

// broadcastLoop serialises all state pushes. Document callbacks only set
// the dirty flag; snapshots are built here, outside any document call
// path.
func (s *Server) broadcastLoop() {
	for {
		select {
		case <-s.done:
			return
		case <-s.stateDirty:
			s.pushState()
		}
	}
}

func (s *Server) pushState() {
	payload, err := encodeMessage(s.stateSnapshot())
	if err != nil {
		s.log.Error("encoding state", "err", err)
		return
	}
	s.fanout(payload)
}

func (s *Server) stateSnapshot() stateEvent {
	docs := s.mgr.Documents()
	views := make([]session.DocumentView, len(docs))
	for i, d := range docs {
		views[i] = d.View()
	}
	return stateEvent{Type: "state", Selected: s.mgr.SelectedIndex(), Documents: views}
}

func (s *Server) broadcastLabels(docID string, labels export.Labels) {
	payload, err := encodeMessage(labelsEvent{Type: "labels", DocumentID: docID, Labels: labels})
	if err != nil {
		s.log.Error("encoding labels", "err", err)
		return
	}
	s.fanout(payload)
}

// fanout enqueues payload for every connected client. A client whose queue
// is full is too far behind to recover and gets dropped.
func (s *Server) fanout(payload []byte) {
	s.mu.Lock()
	var stalled []*client
	for c := range s.clients {
		select {
		case c.out <- payload:
		default:
			stalled = append(stalled, c)
			delete(s.clients, c)
		}
	}
	s.mu.Unlock()

	for _, c := range stalled {
		s.log.Warn("dropping stalled client")
		s.met.ConnectedClients.Add(context.Background(), -1)
		c.close()
	}
}

func (s *Server) addClient(c *client) {
	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()
	s.met.ConnectedClients.Add(context.Background(), 1)
}

func (s *Server) removeClient(c *client) {
	s.mu.Lock()
	_, present := s.clients[c]
	delete(s.clients, c)
	s.mu.Unlock()
	if present {
		s.met.ConnectedClients.Add(context.Background(), -1)
	}
}
