// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"encoding/json"
)

// Notice types generated by the relay.
const (
	NoticePeers = "peers"
	NoticeJoin  = "join"
	NoticeLeave = "leave"
)

// Notice is a relay-generated message. Count is set only on peers
// notices.
type Notice struct {
	Type  string `json:"type"`
	Count int    `json:"count,omitempty"`
}

var (
	joinNotice  = mustMarshalNotice(Notice{Type: NoticeJoin})
	leaveNotice = mustMarshalNotice(Notice{Type: NoticeLeave})
)

func peersNotice(count int) []byte {
	return mustMarshalNotice(Notice{Type: NoticePeers, Count: count})
}

func mustMarshalNotice(notice Notice) []byte {
	data, err := json.Marshal(notice)
	if err != nil {
		panic("relay: marshaling notice: " + err.Error())
	}
	return data
}

// ParseNotice reports whether frame is a relay notice and returns it.
// Sealed frames are base64url text and never parse as notices.
func ParseNotice(frame []byte) (Notice, bool) {
	if len(frame) == 0 || frame[0] != '{' {
		return Notice{}, false
	}
	var notice Notice
	if err := json.Unmarshal(frame, &notice); err != nil {
		return Notice{}, false
	}
	switch notice.Type {
	case NoticePeers, NoticeJoin, NoticeLeave:
		return notice, true
	}
	return Notice{}, false
}
