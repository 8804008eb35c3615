// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ErrClientClosed is returned by Send after the connection ended.
var ErrClientClosed = errors.New("relay connection closed")

const clientBuffer = 64

// Client is one member connection to a relay.
type Client struct {
	conn   *websocket.Conn
	logger *slog.Logger

	frames  chan string
	notices chan Notice
	done    chan struct{}

	writeMu sync.Mutex

	mu        sync.Mutex
	err       error
	closeOnce sync.Once
}

// Dial connects to the relay at relayURL and joins roomID. relayURL is
// a ws:// or wss:// URL; any existing "room" query parameter is
// replaced.
func Dial(ctx context.Context, relayURL, roomID string, logger *slog.Logger) (*Client, error) {
	if roomID == "" {
		return nil, ErrMissingRoom
	}
	target, err := url.Parse(relayURL)
	if err != nil {
		return nil, fmt.Errorf("parsing relay URL: %w", err)
	}
	switch target.Scheme {
	case "ws", "wss":
	case "http":
		target.Scheme = "ws"
	case "https":
		target.Scheme = "wss"
	default:
		return nil, fmt.Errorf("relay URL %q: scheme must be ws or wss", relayURL)
	}
	query := target.Query()
	query.Set("room", roomID)
	target.RawQuery = query.Encode()

	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	conn, response, err := websocket.DefaultDialer.DialContext(ctx, target.String(), nil)
	if err != nil {
		if response != nil {
			return nil, fmt.Errorf("dialing relay: %w (HTTP %d)", err, response.StatusCode)
		}
		return nil, fmt.Errorf("dialing relay: %w", err)
	}

	client := &Client{
		conn:    conn,
		logger:  logger.With("room", roomID),
		frames:  make(chan string, clientBuffer),
		notices: make(chan Notice, clientBuffer),
		done:    make(chan struct{}),
	}
	go client.readLoop()
	return client, nil
}

// Send transmits one frame to the other members of the room.
func (c *Client) Send(frame string) error {
	select {
	case <-c.done:
		return ErrClientClosed
	default:
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
		return fmt.Errorf("relay send: %w", err)
	}
	return nil
}

// Frames delivers opaque frames from other members.
func (c *Client) Frames() <-chan string { return c.frames }

// Notices delivers relay notices.
func (c *Client) Notices() <-chan Notice { return c.notices }

// Done is closed when the connection ends.
func (c *Client) Done() <-chan struct{} { return c.done }

// Err returns why the connection ended, nil after a local Close.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Close leaves the room and closes the connection. Idempotent.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		c.writeMu.Unlock()
		err = c.conn.Close()
		<-c.done
	})
	return err
}

func (c *Client) readLoop() {
	defer close(c.done)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if !isExpectedClose(err) {
				c.mu.Lock()
				c.err = err
				c.mu.Unlock()
				c.logger.Warn("relay connection lost", "error", err)
			}
			return
		}
		if notice, ok := ParseNotice(data); ok {
			c.deliverNotice(notice)
			continue
		}
		select {
		case c.frames <- string(data):
		default:
			c.logger.Warn("relay client frame buffer full, dropping frame")
		}
	}
}

func (c *Client) deliverNotice(notice Notice) {
	select {
	case c.notices <- notice:
	default:
		// Notices are advisory.
		c.logger.Debug("dropping relay notice", "type", notice.Type)
	}
}
