// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/bureau-foundation/ghost/lib/netutil"
	"github.com/bureau-foundation/ghost/lib/room"
)

// ErrMissingRoom is returned (as HTTP 400) to a connection that does
// not name a room.
var ErrMissingRoom = errors.New("missing room")

const (
	// DefaultMaxFrameSize bounds one inbound websocket message.
	DefaultMaxFrameSize = 1 << 20

	// DefaultSendQueue is the per-connection outbound queue depth.
	DefaultSendQueue = 64

	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// ServerConfig holds the parameters of a Server. Zero fields take
// defaults.
type ServerConfig struct {
	// MaxFrameSize bounds one inbound message. Larger messages close
	// the connection. Default: DefaultMaxFrameSize.
	MaxFrameSize int64

	// SendQueue is the outbound queue depth per connection. A member
	// whose queue is full misses frames instead of stalling its room.
	// Default: DefaultSendQueue.
	SendQueue int

	// Logger receives connection events. Default: discard.
	Logger *slog.Logger
}

// Server is the relay's websocket endpoint.
type Server struct {
	hub      *Hub
	config   ServerConfig
	logger   *slog.Logger
	upgrader websocket.Upgrader

	connections atomic.Int64
}

// NewServer creates a Server that registers connections in hub.
func NewServer(hub *Hub, config ServerConfig) *Server {
	if config.MaxFrameSize <= 0 {
		config.MaxFrameSize = DefaultMaxFrameSize
	}
	if config.SendQueue <= 0 {
		config.SendQueue = DefaultSendQueue
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Server{
		hub:    hub,
		config: config,
		logger: config.Logger,
		upgrader: websocket.Upgrader{
			// Browsers on any origin may use the relay; it only ever
			// sees sealed frames.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Connections returns the number of open websocket connections.
func (s *Server) Connections() int64 { return s.connections.Load() }

// ServeHTTP upgrades the request and serves one member until it
// disconnects.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	roomID := r.URL.Query().Get("room")
	if roomID == "" {
		http.Error(w, ErrMissingRoom.Error(), http.StatusBadRequest)
		return
	}
	if err := room.ValidateID(roomID); err != nil {
		http.Error(w, fmt.Sprintf("invalid room: %v", err), http.StatusBadRequest)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error response.
		s.logger.Debug("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	member := &connection{
		conn:   conn,
		send:   make(chan Frame, s.config.SendQueue),
		done:   make(chan struct{}),
		roomID: roomID,
		logger: s.logger.With("room", roomID, "remote", r.RemoteAddr),
	}
	s.connections.Add(1)
	defer s.connections.Add(-1)

	var writer sync.WaitGroup
	writer.Add(1)
	go func() {
		defer writer.Done()
		member.writeLoop()
	}()

	count := s.hub.Join(roomID, member)
	member.logger.Info("relay member connected", "members", count)

	err = s.readLoop(member)
	s.hub.Leave(roomID, member)
	close(member.done)
	writer.Wait()
	conn.Close()

	if err != nil && !isExpectedClose(err) {
		member.logger.Warn("relay member disconnected", "error", err, "dropped", member.dropped.Load())
	} else {
		member.logger.Info("relay member disconnected", "dropped", member.dropped.Load())
	}
}

// readLoop forwards every inbound message to the rest of the room.
func (s *Server) readLoop(member *connection) error {
	conn := member.conn
	conn.SetReadLimit(s.config.MaxFrameSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		messageType, frame, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		if messageType != websocket.TextMessage && messageType != websocket.BinaryMessage {
			continue
		}
		s.hub.Broadcast(member.roomID, member, Frame{
			Binary: messageType == websocket.BinaryMessage,
			Data:   frame,
		})
	}
}

func isExpectedClose(err error) bool {
	if netutil.IsExpectedCloseError(err) {
		return true
	}
	return websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
		websocket.CloseAbnormalClosure,
	)
}

// connection is a Member backed by a websocket. Deliver only enqueues;
// writeLoop owns all writes to conn.
type connection struct {
	conn    *websocket.Conn
	send    chan Frame
	done    chan struct{}
	roomID  string
	logger  *slog.Logger
	dropped atomic.Int64
}

// Deliver queues frame, dropping it if the queue is full.
func (c *connection) Deliver(frame Frame) {
	select {
	case c.send <- frame:
	default:
		if c.dropped.Add(1) == 1 {
			c.logger.Warn("relay send queue full, dropping frames", "queue", cap(c.send))
		}
	}
}

func (c *connection) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case frame := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			messageType := websocket.TextMessage
			if frame.Binary {
				messageType = websocket.BinaryMessage
			}
			if err := c.conn.WriteMessage(messageType, frame.Data); err != nil {
				// Unblock the reader so the member leaves the room.
				c.conn.Close()
				c.drain()
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.conn.Close()
				c.drain()
				return
			}
		case <-c.done:
			c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}

// drain discards queued frames until done, so Deliver never sees a
// stuck queue from a dead writer.
func (c *connection) drain() {
	for {
		select {
		case <-c.send:
		case <-c.done:
			return
		}
	}
}
