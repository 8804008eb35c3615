// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/bureau-foundation/ghost/lib/testutil"
)

func startRelay(t *testing.T) (*Hub, *Server, string) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hub := NewHub(logger)
	server := NewServer(hub, ServerConfig{Logger: logger})
	httpServer := httptest.NewServer(server)
	t.Cleanup(httpServer.Close)
	return hub, server, "ws" + strings.TrimPrefix(httpServer.URL, "http")
}

func dialRelay(t *testing.T, url, roomID string) *Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	client, err := Dial(ctx, url, roomID, nil)
	if err != nil {
		t.Fatalf("Dial(%q): %v", roomID, err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func requireNotice(t *testing.T, client *Client, want Notice) {
	t.Helper()
	got := testutil.RequireReceive(t, client.Notices(), 5*time.Second, "waiting for %s notice", want.Type)
	if got != want {
		t.Fatalf("notice = %+v, want %+v", got, want)
	}
}

func waitMembers(t *testing.T, hub *Hub, roomID string, want int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for hub.Members(roomID) != want {
		if time.Now().After(deadline) {
			t.Fatalf("room %q has %d members, want %d", roomID, hub.Members(roomID), want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestServerFanOut(t *testing.T) {
	hub, server, url := startRelay(t)

	a := dialRelay(t, url, "abc")
	requireNotice(t, a, Notice{Type: NoticePeers, Count: 1})
	b := dialRelay(t, url, "abc")
	requireNotice(t, b, Notice{Type: NoticePeers, Count: 2})
	requireNotice(t, a, Notice{Type: NoticeJoin})
	c := dialRelay(t, url, "abc")
	requireNotice(t, c, Notice{Type: NoticePeers, Count: 3})
	requireNotice(t, a, Notice{Type: NoticeJoin})
	requireNotice(t, b, Notice{Type: NoticeJoin})

	if server.Connections() != 3 {
		t.Errorf("Connections = %d, want 3", server.Connections())
	}

	if err := a.Send("opaque-ciphertext"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	for name, client := range map[string]*Client{"b": b, "c": c} {
		if got := testutil.RequireReceive(t, client.Frames(), 5*time.Second, "%s frame", name); got != "opaque-ciphertext" {
			t.Errorf("%s received %q", name, got)
		}
	}
	testutil.RequireNoReceive(t, a.Frames(), 100*time.Millisecond, "sender received its own frame")

	if hub.Members("abc") != 3 {
		t.Errorf("Members = %d, want 3", hub.Members("abc"))
	}
}

// dialRaw connects without the Client so tests control message types.
func dialRaw(t *testing.T, url, roomID string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url+"/?room="+roomID, nil)
	if err != nil {
		t.Fatalf("Dial(%q): %v", roomID, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readRaw(t *testing.T, conn *websocket.Conn) (int, []byte) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	messageType, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	return messageType, data
}

func TestServerPreservesMessageType(t *testing.T) {
	hub, _, url := startRelay(t)

	a := dialRaw(t, url, "abc")
	if _, data := readRaw(t, a); string(data) != `{"type":"peers","count":1}` {
		t.Fatalf("a first frame = %s", data)
	}
	b := dialRaw(t, url, "abc")
	messageType, data := readRaw(t, b)
	if messageType != websocket.TextMessage || string(data) != `{"type":"peers","count":2}` {
		t.Fatalf("b first frame = type %d %s", messageType, data)
	}
	if _, data := readRaw(t, a); string(data) != `{"type":"join"}` {
		t.Fatalf("a join notice = %s", data)
	}
	waitMembers(t, hub, "abc", 2)

	tests := []struct {
		name        string
		messageType int
		data        []byte
	}{
		{"binary", websocket.BinaryMessage, []byte{0xff, 0xfe, 0x00, 0x01}},
		{"text", websocket.TextMessage, []byte("sealed-text")},
	}
	for _, test := range tests {
		if err := a.WriteMessage(test.messageType, test.data); err != nil {
			t.Fatalf("%s: WriteMessage: %v", test.name, err)
		}
		messageType, data := readRaw(t, b)
		if messageType != test.messageType {
			t.Errorf("%s: type = %d, want %d", test.name, messageType, test.messageType)
		}
		if !bytes.Equal(data, test.data) {
			t.Errorf("%s: data = %x, want %x", test.name, data, test.data)
		}
	}
}

func TestServerRoomsAreIsolated(t *testing.T) {
	_, _, url := startRelay(t)

	a := dialRelay(t, url, "room-one")
	requireNotice(t, a, Notice{Type: NoticePeers, Count: 1})
	b := dialRelay(t, url, "room-two")
	requireNotice(t, b, Notice{Type: NoticePeers, Count: 1})

	if err := a.Send("for room one"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	testutil.RequireNoReceive(t, b.Frames(), 100*time.Millisecond, "frame crossed rooms")
	testutil.RequireNoReceive(t, b.Notices(), 10*time.Millisecond, "notice crossed rooms")
}

func TestServerLeaveAndCleanup(t *testing.T) {
	hub, _, url := startRelay(t)

	a := dialRelay(t, url, "abc")
	requireNotice(t, a, Notice{Type: NoticePeers, Count: 1})
	b := dialRelay(t, url, "abc")
	requireNotice(t, b, Notice{Type: NoticePeers, Count: 2})
	requireNotice(t, a, Notice{Type: NoticeJoin})

	if err := b.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	requireNotice(t, a, Notice{Type: NoticeLeave})

	a.Close()
	waitMembers(t, hub, "abc", 0)
	if rooms := hub.Rooms(); len(rooms) != 0 {
		t.Fatalf("rooms after everyone left: %v", rooms)
	}

	fresh := dialRelay(t, url, "abc")
	requireNotice(t, fresh, Notice{Type: NoticePeers, Count: 1})
}

func TestServerRejectsMissingRoom(t *testing.T) {
	_, _, url := startRelay(t)
	httpURL := "http" + strings.TrimPrefix(url, "ws")

	for _, query := range []string{"", "?room=", "?room=" + strings.Repeat("a", 65), "?room=has%20space"} {
		response, err := http.Get(httpURL + "/" + query)
		if err != nil {
			t.Fatalf("GET %q: %v", query, err)
		}
		body, _ := io.ReadAll(response.Body)
		response.Body.Close()
		if response.StatusCode != http.StatusBadRequest {
			t.Errorf("GET %q: status %d, want 400 (body %q)", query, response.StatusCode, body)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := Dial(ctx, url, "", nil); !errors.Is(err, ErrMissingRoom) {
		t.Errorf("Dial without room: err = %v, want ErrMissingRoom", err)
	}
}

func TestServerFrameSizeLimit(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hub := NewHub(logger)
	httpServer := httptest.NewServer(NewServer(hub, ServerConfig{Logger: logger, MaxFrameSize: 64}))
	defer httpServer.Close()
	url := "ws" + strings.TrimPrefix(httpServer.URL, "http")

	big := dialRelay(t, url, "abc")
	requireNotice(t, big, Notice{Type: NoticePeers, Count: 1})
	listener := dialRelay(t, url, "abc")
	requireNotice(t, listener, Notice{Type: NoticePeers, Count: 2})

	if err := big.Send(strings.Repeat("x", 65)); err != nil {
		t.Fatalf("Send: %v", err)
	}
	testutil.RequireClosed(t, big.Done(), 5*time.Second, "oversized frame did not close the connection")
	requireNotice(t, listener, Notice{Type: NoticeLeave})
	testutil.RequireNoReceive(t, listener.Frames(), 50*time.Millisecond, "oversized frame was forwarded")
}

func TestConnectionDropsWhenQueueFull(t *testing.T) {
	member := &connection{
		send:   make(chan Frame, 2),
		done:   make(chan struct{}),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for range 5 {
		member.Deliver(textFrame([]byte("frame")))
	}
	if len(member.send) != 2 {
		t.Errorf("queued = %d, want 2", len(member.send))
	}
	if member.dropped.Load() != 3 {
		t.Errorf("dropped = %d, want 3", member.dropped.Load())
	}
}

func TestParseNotice(t *testing.T) {
	tests := []struct {
		frame string
		want  Notice
		ok    bool
	}{
		{`{"type":"peers","count":4}`, Notice{Type: NoticePeers, Count: 4}, true},
		{`{"type":"join"}`, Notice{Type: NoticeJoin}, true},
		{`{"type":"leave"}`, Notice{Type: NoticeLeave}, true},
		{`{"type":"chat","text":"hi"}`, Notice{}, false},
		{`AAECAwQFBgcICQoLDA0ODxAREhMUFRYXGBkaGxw`, Notice{}, false},
		{``, Notice{}, false},
		{`{not json`, Notice{}, false},
	}
	for _, test := range tests {
		got, ok := ParseNotice([]byte(test.frame))
		if ok != test.ok || got != test.want {
			t.Errorf("ParseNotice(%q) = %+v, %v; want %+v, %v", test.frame, got, ok, test.want, test.ok)
		}
	}
}
