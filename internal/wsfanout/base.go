// Package wsfanout implements the WebSocket fan-out layer (C17): a shared
// connection-management base (welcome envelope, heartbeat ping/pong with
// timeout disconnect, a typed dispatch hook for subclasses) plus the
// task-list channel built on top of it.
package wsfanout

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/l1jgo/mcagent/internal/clock"
)

// Config tunes the heartbeat cadence every handler shares.
type Config struct {
	HeartbeatInterval time.Duration // server->client ping cadence
	HeartbeatTimeout  time.Duration // no client activity within this: force-disconnect
}

// DefaultConfig matches the source's defaults.
func DefaultConfig() Config {
	return Config{HeartbeatInterval: 60 * time.Second, HeartbeatTimeout: 90 * time.Second}
}

// clientState is the per-connection bookkeeping the base handler keeps;
// subclasses may stash their own fields in Extra.
type clientState struct {
	mu            sync.Mutex
	id            string
	lastHeartbeat time.Time
	lastActivity  time.Time
	Extra         map[string]any
}

func newClientState() *clientState {
	now := time.Now()
	return &clientState{id: clock.NewID(), lastHeartbeat: now, lastActivity: now, Extra: make(map[string]any)}
}

// ID returns the client's process-unique connection ID, assigned once at
// HandleConnection time.
func (s *clientState) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// Handler is implemented by each WebSocket channel (e.g. the task-list
// channel) to add message types beyond the shared ping/pong envelope.
type Handler interface {
	// HandleCustomMessage processes a message type the base handler
	// doesn't already understand (anything but ping/pong).
	HandleCustomMessage(conn *websocket.Conn, state *clientState, messageType string, data map[string]any)
	// CleanupClient releases any per-connection state the subclass holds.
	CleanupClient(conn *websocket.Conn)
}

// Base is the shared connection manager every WebSocket channel embeds:
// it accepts the connection, sends a welcome envelope, runs a heartbeat
// ping loop, and dispatches incoming messages to ping/pong handling or
// the embedding handler's HandleCustomMessage.
type Base struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]*clientState

	name   string
	log    *zap.Logger
	cfg    Config
	sub    Handler
}

// NewBase returns a Base for a channel named name, dispatching
// non-ping/pong messages to sub.
func NewBase(name string, log *zap.Logger, cfg Config, sub Handler) *Base {
	return &Base{
		clients: make(map[*websocket.Conn]*clientState),
		name:    name,
		log:     log.With(zap.String("channel", name)),
		cfg:     cfg,
		sub:     sub,
	}
}

type envelope map[string]any

func nowMillis() int64 { return time.Now().UnixMilli() }

// HandleConnection runs the full lifecycle of one client connection:
// welcome, heartbeat loop, and message read loop, until the client
// disconnects, times out, or conn.Close returns.
func (b *Base) HandleConnection(conn *websocket.Conn) {
	state := newClientState()

	b.mu.Lock()
	b.clients[conn] = state
	b.mu.Unlock()

	defer b.cleanupConnection(conn)

	b.log.Info("client connected", zap.String("client_id", state.id))

	if err := b.sendJSON(conn, envelope{
		"type":      "welcome",
		"client_id": state.id,
		"message":   "connected to " + b.name + " service",
		"timestamp": nowMillis(),
		"config": envelope{
			"heartbeat_interval": b.cfg.HeartbeatInterval.Milliseconds(),
			"timeout":            b.cfg.HeartbeatTimeout.Milliseconds(),
		},
	}); err != nil {
		return
	}

	heartbeatDone := make(chan struct{})
	go b.heartbeatLoop(conn, state, heartbeatDone)
	defer close(heartbeatDone)

	b.receiveLoop(conn, state)
}

// heartbeatLoop sends a server ping every HeartbeatInterval and
// force-disconnects the client if no activity was seen within
// HeartbeatTimeout.
func (b *Base) heartbeatLoop(conn *websocket.Conn, state *clientState, done <-chan struct{}) {
	ticker := time.NewTicker(b.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			state.mu.Lock()
			sinceLastHeartbeat := time.Since(state.lastHeartbeat)
			state.mu.Unlock()

			if sinceLastHeartbeat > b.cfg.HeartbeatTimeout {
				b.log.Warn("client heartbeat timed out, disconnecting")
				_ = conn.Close()
				return
			}

			if err := b.sendJSON(conn, envelope{
				"type":      "ping",
				"timestamp": nowMillis(),
				"message":   "server heartbeat - " + b.name,
			}); err != nil {
				return
			}
		}
	}
}

// receiveLoop reads messages until the connection closes, the read
// deadline (the timeout analog of the source's asyncio.wait_for) trips,
// or a fatal read error occurs.
func (b *Base) receiveLoop(conn *websocket.Conn, state *clientState) {
	for {
		_ = conn.SetReadDeadline(time.Now().Add(b.cfg.HeartbeatTimeout))
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				b.log.Info("client disconnected unexpectedly")
			}
			return
		}

		state.mu.Lock()
		state.lastActivity = time.Now()
		state.mu.Unlock()

		b.handleMessage(conn, state, raw)
	}
}

func (b *Base) handleMessage(conn *websocket.Conn, state *clientState, raw []byte) {
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		b.sendError(conn, "invalid JSON payload", "INVALID_JSON")
		return
	}

	messageType, _ := data["type"].(string)

	state.mu.Lock()
	state.lastHeartbeat = time.Now()
	state.mu.Unlock()

	switch messageType {
	case "ping":
		b.handlePing(conn, data)
	case "pong":
		// client acked our ping; lastHeartbeat was already bumped above.
	default:
		b.sub.HandleCustomMessage(conn, state, messageType, data)
	}
}

func (b *Base) handlePing(conn *websocket.Conn, data map[string]any) {
	clientTimestamp := data["timestamp"]
	_ = b.sendJSON(conn, envelope{
		"type":             "pong",
		"timestamp":        clientTimestamp,
		"server_timestamp": nowMillis(),
	})
}

func (b *Base) sendError(conn *websocket.Conn, message, code string) {
	_ = b.sendJSON(conn, envelope{
		"type":       "error",
		"error_code": code,
		"message":    message,
		"timestamp":  nowMillis(),
	})
}

// sendJSON serializes and writes msg, serializing concurrent writers per
// connection (gorilla's Conn forbids concurrent writes).
func (b *Base) sendJSON(conn *websocket.Conn, msg envelope) error {
	b.mu.Lock()
	state, ok := b.clients[conn]
	b.mu.Unlock()
	if !ok {
		return websocket.ErrCloseSent
	}
	state.mu.Lock()
	defer state.mu.Unlock()
	return conn.WriteJSON(msg)
}

func (b *Base) cleanupConnection(conn *websocket.Conn) {
	b.mu.Lock()
	state, ok := b.clients[conn]
	delete(b.clients, conn)
	b.mu.Unlock()
	b.sub.CleanupClient(conn)
	_ = conn.Close()
	if ok {
		b.log.Info("cleaned up client connection", zap.String("client_id", state.ID()))
	} else {
		b.log.Info("cleaned up client connection")
	}
}

// BroadcastToClients sends msg to every connected client except exclude
// (nil excludes none), dropping and cleaning up any client whose write
// fails.
func (b *Base) BroadcastToClients(msg map[string]any, exclude *websocket.Conn) {
	b.mu.Lock()
	targets := make([]*websocket.Conn, 0, len(b.clients))
	for c := range b.clients {
		if c == exclude {
			continue
		}
		targets = append(targets, c)
	}
	b.mu.Unlock()

	for _, c := range targets {
		if err := b.sendJSON(c, msg); err != nil {
			b.log.Warn("broadcast failed, cleaning up client", zap.Error(err))
			b.cleanupConnection(c)
		}
	}
}

// ClientState returns the per-connection state bag a subclass may have
// stashed values in, or nil if conn isn't (or is no longer) connected.
func (b *Base) ClientState(conn *websocket.Conn) *clientState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.clients[conn]
}

// Connections returns a snapshot of the currently connected clients.
func (b *Base) Connections() []*websocket.Conn {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*websocket.Conn, 0, len(b.clients))
	for c := range b.clients {
		out = append(out, c)
	}
	return out
}
