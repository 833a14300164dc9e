package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
)

const (
	// outQueueSize bounds the per-client send queue. A client that cannot
	// drain this many snapshots is dropped by fanout.
	outQueueSize = 32

	writeTimeout = 5 * time.Second
)

// client is one WebSocket connection. The read loop runs on the HTTP
// handler goroutine; writeLoop owns all writes.
type client struct {
	conn *websocket.Conn
	out  chan []byte

	closeOnce sync.Once
	closed    chan struct{}
}

func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.conn.Close(websocket.StatusGoingAway, "closing")
	})
}

// send enqueues a message for this client only. Best effort: a full queue
// drops the message, not the client — fanout handles the drop policy for
// broadcasts.
func (c *client) send(payload []byte) {
	select {
	case c.out <- payload:
	default:
	}
}

func encodeMessage(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("server: marshal: %w", err)
	}
	return data, nil
}

// handleWS upgrades the connection and runs the client's read loop until
// the client disconnects or the server closes.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.log.Warn("websocket accept", "err", err)
		return
	}

	c := &client{
		conn:   conn,
		out:    make(chan []byte, outQueueSize),
		closed: make(chan struct{}),
	}
	s.addClient(c)
	s.log.Debug("client connected", "remote", r.RemoteAddr)

	go s.writeLoop(c)

	// The fresh client needs a snapshot before the first change arrives.
	if payload, err := encodeMessage(s.stateSnapshot()); err == nil {
		c.send(payload)
	}

	s.readLoop(r.Context(), c)

	s.removeClient(c)
	c.close()
	s.log.Debug("client disconnected", "remote", r.RemoteAddr)
}

func (s *Server) writeLoop(c *client) {
	for {
		select {
		case <-s.done:
			c.close()
			return
		case <-c.closed:
			return
		case payload := <-c.out:
			ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
			err := c.conn.Write(ctx, websocket.MessageText, payload)
			cancel()
			if err != nil {
				c.close()
				return
			}
		}
	}
}

func (s *Server) readLoop(ctx context.Context, c *client) {
	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			return
		}

		var cmd command
		if err := json.Unmarshal(data, &cmd); err != nil {
			s.sendError(c, "malformed command: "+err.Error())
			continue
		}
		s.dispatch(ctx, c, cmd)
	}
}

func (s *Server) sendError(c *client, msg string) {
	payload, err := encodeMessage(errorEvent{Type: "error", Message: msg})
	if err != nil {
		return
	}
	c.send(payload)
}

// dispatch routes one command. Commands that fail report to the issuing
// client; every command schedules a state broadcast so all clients converge
// on the result.
func (s *Server) dispatch(ctx context.Context, c *client, cmd command) {
	var err error

	switch cmd.Type {
	case "open":
		err = s.openDocument(ctx, cmd.Filename)
	case "close_doc":
		err = s.mgr.Close(cmd.Index)
	case "select_doc":
		err = s.mgr.Select(cmd.Index)
	default:
		err = s.dispatchDocument(ctx, cmd)
	}

	if err != nil {
		s.sendError(c, err.Error())
	}
	s.markDirty()
}

// dispatchDocument routes commands that target the selected document.
func (s *Server) dispatchDocument(ctx context.Context, cmd command) error {
	d := s.mgr.Current()
	if d == nil {
		return fmt.Errorf("server: no document open")
	}

	switch cmd.Type {
	case "viewport":
		d.SetViewport(cmd.Width)
	case "pointer_down":
		d.PointerDown(cmd.X)
	case "pointer_move":
		d.PointerMove(cmd.X)
	case "pointer_up":
		d.PointerUp(ctx, cmd.X)
	case "pointer_leave":
		d.PointerLeave()
	case "region_click":
		return d.RegionClick(ctx, cmd.ID)
	case "timeline_click":
		d.TimelineClick(cmd.X)
	case "key":
		d.HandleKey(ctx, cmd.Key)
	case "assign_speaker":
		return d.AssignSpeaker(cmd.Name)
	case "speaker_click":
		return d.SpeakerClick(cmd.Name)
	case "highlight":
		d.Highlight(cmd.Name)
	case "add_speaker":
		d.AddSpeaker()
	case "remove_speaker":
		return d.RemoveSpeaker()
	case "toggle_highlight":
		d.ToggleHighlight(cmd.Name)
	case "toggle_hidden":
		d.ToggleHidden(cmd.Name)
	case "edit_bounds":
		return d.EditBounds(cmd.ID, cmd.StartText, cmd.EndText)
	case "set_rate":
		d.SetRate(cmd.Rate)
	case "set_meta":
		d.SetMeta(cmd.Purpose, cmd.Desc)
	case "save":
		d.Save()
	default:
		return fmt.Errorf("server: unknown command %q", cmd.Type)
	}
	return nil
}
