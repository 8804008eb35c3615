// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
)

// recorder is a Member that keeps every delivered frame.
type recorder struct {
	mu     sync.Mutex
	frames []string
}

func (r *recorder) Deliver(frame Frame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, string(frame.Data))
}

func (r *recorder) received() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.frames...)
}

func newTestHub() *Hub {
	return NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestHubJoinNotices(t *testing.T) {
	hub := newTestHub()
	a, b, c := &recorder{}, &recorder{}, &recorder{}

	if count := hub.Join("abc", a); count != 1 {
		t.Errorf("first join count = %d, want 1", count)
	}
	if count := hub.Join("abc", b); count != 2 {
		t.Errorf("second join count = %d, want 2", count)
	}
	if count := hub.Join("abc", c); count != 3 {
		t.Errorf("third join count = %d, want 3", count)
	}

	wantA := []string{`{"type":"peers","count":1}`, `{"type":"join"}`, `{"type":"join"}`}
	wantB := []string{`{"type":"peers","count":2}`, `{"type":"join"}`}
	wantC := []string{`{"type":"peers","count":3}`}
	for _, test := range []struct {
		name   string
		member *recorder
		want   []string
	}{
		{"a", a, wantA},
		{"b", b, wantB},
		{"c", c, wantC},
	} {
		got := test.member.received()
		if fmt.Sprint(got) != fmt.Sprint(test.want) {
			t.Errorf("%s received %q, want %q", test.name, got, test.want)
		}
	}
}

// typedRecorder keeps whole frames.
type typedRecorder struct {
	mu     sync.Mutex
	frames []Frame
}

func (r *typedRecorder) Deliver(frame Frame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, frame)
}

func TestHubBroadcastKeepsBinaryFlag(t *testing.T) {
	hub := newTestHub()
	sender, receiver := &recorder{}, &typedRecorder{}
	hub.Join("abc", sender)
	hub.Join("abc", receiver)

	hub.Broadcast("abc", sender, Frame{Binary: true, Data: []byte{0x00, 0xff}})

	receiver.mu.Lock()
	defer receiver.mu.Unlock()
	if len(receiver.frames) != 2 {
		t.Fatalf("receiver frames = %d, want peers notice and one frame", len(receiver.frames))
	}
	if receiver.frames[0].Binary {
		t.Error("peers notice was delivered as binary")
	}
	if last := receiver.frames[1]; !last.Binary || string(last.Data) != "\x00\xff" {
		t.Errorf("broadcast frame = %+v", last)
	}
}

func TestHubBroadcastSkipsSender(t *testing.T) {
	hub := newTestHub()
	a, b, c := &recorder{}, &recorder{}, &recorder{}
	other := &recorder{}
	hub.Join("abc", a)
	hub.Join("abc", b)
	hub.Join("abc", c)
	hub.Join("xyz", other)

	hub.Broadcast("abc", a, textFrame([]byte("sealed-frame")))

	last := func(r *recorder) string {
		frames := r.received()
		return frames[len(frames)-1]
	}
	if last(b) != "sealed-frame" || last(c) != "sealed-frame" {
		t.Errorf("b/c did not receive the frame: %q / %q", b.received(), c.received())
	}
	for _, frame := range a.received() {
		if frame == "sealed-frame" {
			t.Error("sender received its own frame")
		}
	}
	for _, frame := range other.received() {
		if frame == "sealed-frame" {
			t.Error("frame crossed into another room")
		}
	}
}

func TestHubLeave(t *testing.T) {
	hub := newTestHub()
	a, b := &recorder{}, &recorder{}
	hub.Join("abc", a)
	hub.Join("abc", b)

	hub.Leave("abc", b)
	frames := a.received()
	if frames[len(frames)-1] != `{"type":"leave"}` {
		t.Errorf("a's last frame = %q, want leave notice", frames[len(frames)-1])
	}
	if hub.Members("abc") != 1 {
		t.Errorf("Members = %d, want 1", hub.Members("abc"))
	}

	// Leaving twice, or leaving an unknown room, is a no-op.
	hub.Leave("abc", b)
	hub.Leave("nope", b)

	hub.Leave("abc", a)
	if rooms := hub.Rooms(); len(rooms) != 0 {
		t.Errorf("Rooms after last leave = %v, want none", rooms)
	}
	if hub.Members("abc") != 0 {
		t.Errorf("Members of dropped room = %d", hub.Members("abc"))
	}

	fresh := &recorder{}
	if count := hub.Join("abc", fresh); count != 1 {
		t.Errorf("join after cleanup count = %d, want 1 (fresh room)", count)
	}
}

func TestHubRooms(t *testing.T) {
	hub := newTestHub()
	hub.Join("room-b", &recorder{})
	hub.Join("room-a", &recorder{})
	rooms := hub.Rooms()
	if fmt.Sprint(rooms) != "[room-a room-b]" {
		t.Errorf("Rooms = %v", rooms)
	}
}

func TestHubConcurrentChurn(t *testing.T) {
	hub := newTestHub()
	var workers sync.WaitGroup
	for worker := range 16 {
		workers.Add(1)
		go func() {
			defer workers.Done()
			roomID := fmt.Sprintf("room-%d", worker%4)
			for range 200 {
				member := &recorder{}
				hub.Join(roomID, member)
				hub.Broadcast(roomID, member, textFrame([]byte("x")))
				hub.Leave(roomID, member)
			}
		}()
	}
	workers.Wait()

	if rooms := hub.Rooms(); len(rooms) != 0 {
		t.Errorf("rooms left after churn: %v", rooms)
	}
}
