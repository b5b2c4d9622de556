package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"ctfdojo/internal/app"
	"ctfdojo/internal/catalog"
	"ctfdojo/internal/game"
	"ctfdojo/internal/telemetry"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait    = 5 * time.Second
	maxFrameSize = 4096
)

// Message is one websocket frame in either direction.
type Message struct {
	Type  string         `json:"type"`
	Data  string         `json:"data,omitempty"`
	State *game.Snapshot `json:"state,omitempty"`
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("catalog")
	if id == "" {
		id = "dns"
	}
	cat, err := catalog.Find(s.catalogs, id)
	if err != nil {
		respondError(w, http.StatusNotFound, "catalog_not_found", err.Error())
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxFrameSize)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sess := s.newWSSession(ctx, conn, cat)
	s.events.Info(telemetry.EventWSConnect, map[string]any{
		"session": sess.sessionID,
		"catalog": cat.CatalogID,
		"remote":  r.RemoteAddr,
	})
	defer func() {
		sess.close()
		s.events.Info(telemetry.EventWSDisconnect, map[string]any{
			"session": sess.sessionID,
			"catalog": cat.CatalogID,
		})
	}()

	sess.sendState()
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Debug("websocket read error", "error", err)
			}
			return
		}
		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			sess.send(Message{Type: "error", Data: "invalid message"})
			continue
		}
		sess.handle(msg)
	}
}

// wsSession is one connection's game. It mirrors app.App without a view:
// events are reduced under mu and every change is pushed as a state frame.
type wsSession struct {
	conn      *websocket.Conn
	engine    *game.Engine
	rounds    *app.RoundRecorder
	sessionID string
	tick      time.Duration

	writeMu sync.Mutex

	mu        sync.Mutex
	ctx       context.Context
	session   game.Session
	countdown *game.Countdown
	gen       uint64
	closed    bool
}

func (s *Server) newWSSession(ctx context.Context, conn *websocket.Conn, cat catalog.Catalog) *wsSession {
	id := uuid.NewString()
	return &wsSession{
		conn:      conn,
		engine:    game.NewEngine(game.WithRand(game.NewRand(s.sessionSeed()))),
		rounds:    app.NewRoundRecorder(s.store, s.events, id),
		sessionID: id,
		tick:      s.tick,
		ctx:       ctx,
		session:   game.NewSession(cat, s.duration),
	}
}

func (c *wsSession) handle(msg Message) {
	switch msg.Type {
	case "start":
		c.dispatch(game.Start{})
	case "command":
		c.dispatch(game.Command{Line: msg.Data})
	case "restart":
		c.dispatch(game.Restart{})
	case "state":
		c.sendState()
	case "ping":
		c.send(Message{Type: "pong"})
	default:
		c.send(Message{Type: "error", Data: "unknown message type " + msg.Type})
	}
}

// dispatch reduces ev and sends the resulting state while still holding mu
// so frames leave in the order the session changed.
func (c *wsSession) dispatch(ev game.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.dispatchLocked(ev)
}

func (c *wsSession) dispatchLocked(ev game.Event) {
	prev := c.session
	next := c.engine.Reduce(prev, ev)
	c.session = next
	tr := c.rounds.Observe(c.ctx, ev, prev, next)
	switch {
	case tr.Started:
		c.gen++
		gen := c.gen
		c.countdown = game.StartCountdown(c.ctx, c.tick, func() { c.onPulse(gen) })
	case tr.Ended, tr.Restarted:
		c.stopLocked()
	}
	snap := next.Snapshot()
	c.send(Message{Type: "state", State: &snap})
}

func (c *wsSession) onPulse(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || gen != c.gen || c.countdown == nil {
		return
	}
	c.dispatchLocked(game.Tick{})
}

func (c *wsSession) stopLocked() *game.Countdown {
	cd := c.countdown
	if cd == nil {
		return nil
	}
	cd.Stop()
	c.countdown = nil
	c.gen++
	return cd
}

func (c *wsSession) sendState() {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := c.session.Snapshot()
	c.send(Message{Type: "state", State: &snap})
}

func (c *wsSession) send(msg Message) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	// A failed write surfaces as a read error on the next ReadMessage.
	_ = c.conn.WriteJSON(msg)
}

// close stops the countdown and settles a round left running.
func (c *wsSession) close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	cd := c.stopLocked()
	s := c.session
	c.mu.Unlock()

	cd.Wait()
	c.rounds.Abandon(context.Background(), s)
}
