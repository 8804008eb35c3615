// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"log/slog"
	"sort"
	"sync"
)

// Frame is one websocket message. Binary preserves the sender's
// message type so frames are forwarded exactly as received.
type Frame struct {
	Binary bool
	Data   []byte
}

// textFrame wraps relay-generated text.
func textFrame(data []byte) Frame {
	return Frame{Data: data}
}

// Member is one connection in a room. Deliver must not block: it is
// called with the room's lock held.
type Member interface {
	Deliver(frame Frame)
}

// Hub is the registry of live rooms.
type Hub struct {
	logger *slog.Logger

	mu    sync.Mutex
	rooms map[string]*hubRoom
}

// hubRoom is one room's membership. Once removed from the registry it
// is marked retired and never accepts members again.
type hubRoom struct {
	id      string
	mu      sync.Mutex
	members map[Member]struct{}
	retired bool
}

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger: logger,
		rooms:  make(map[string]*hubRoom),
	}
}

// Join adds member to roomID, creating the room if needed. The joiner
// receives a peers notice with the new member count and every other
// member receives a join notice. Returns the member count.
func (h *Hub) Join(roomID string, member Member) int {
	for {
		room := h.lookup(roomID)

		room.mu.Lock()
		if room.retired {
			// Emptied and removed between lookup and lock. The next
			// lookup creates a fresh room.
			room.mu.Unlock()
			continue
		}
		room.members[member] = struct{}{}
		count := len(room.members)
		member.Deliver(textFrame(peersNotice(count)))
		for other := range room.members {
			if other != member {
				other.Deliver(textFrame(joinNotice))
			}
		}
		room.mu.Unlock()

		h.logger.Debug("member joined", "room", roomID, "members", count)
		return count
	}
}

// Leave removes member from roomID. An emptied room is dropped from
// the registry; otherwise the remaining members receive a leave notice.
func (h *Hub) Leave(roomID string, member Member) {
	h.mu.Lock()
	room := h.rooms[roomID]
	h.mu.Unlock()
	if room == nil {
		return
	}

	room.mu.Lock()
	if _, ok := room.members[member]; !ok {
		room.mu.Unlock()
		return
	}
	delete(room.members, member)
	remaining := len(room.members)
	if remaining == 0 {
		room.retired = true
		h.mu.Lock()
		// Only drop the registry entry if it is still this room.
		if h.rooms[roomID] == room {
			delete(h.rooms, roomID)
		}
		h.mu.Unlock()
	} else {
		for other := range room.members {
			other.Deliver(textFrame(leaveNotice))
		}
	}
	room.mu.Unlock()

	h.logger.Debug("member left", "room", roomID, "members", remaining)
}

// Broadcast forwards frame verbatim, message type included, to every
// member of roomID except from.
func (h *Hub) Broadcast(roomID string, from Member, frame Frame) {
	h.mu.Lock()
	room := h.rooms[roomID]
	h.mu.Unlock()
	if room == nil {
		return
	}

	room.mu.Lock()
	defer room.mu.Unlock()
	for member := range room.members {
		if member != from {
			member.Deliver(frame)
		}
	}
}

// Rooms returns the IDs of live rooms, sorted.
func (h *Hub) Rooms() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	ids := make([]string, 0, len(h.rooms))
	for id := range h.rooms {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Members returns the member count of roomID, zero if it does not
// exist.
func (h *Hub) Members(roomID string) int {
	h.mu.Lock()
	room := h.rooms[roomID]
	h.mu.Unlock()
	if room == nil {
		return 0
	}
	room.mu.Lock()
	defer room.mu.Unlock()
	return len(room.members)
}

func (h *Hub) lookup(roomID string) *hubRoom {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[roomID]
	if !ok {
		room = &hubRoom{id: roomID, members: make(map[Member]struct{})}
		h.rooms[roomID] = room
	}
	return room
}
