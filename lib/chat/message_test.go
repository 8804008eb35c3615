// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chat

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/bureau-foundation/ghost/lib/roomcipher"
	"github.com/bureau-foundation/ghost/lib/secret"
)

func newCipher(t *testing.T) *roomcipher.Cipher {
	t.Helper()
	key, err := secret.NewRandom(roomcipher.KeySize)
	if err != nil {
		t.Fatalf("secret.NewRandom: %v", err)
	}
	t.Cleanup(func() { key.Close() })
	roomCipher, err := roomcipher.New(roomcipher.AES256GCM, key)
	if err != nil {
		t.Fatalf("roomcipher.New: %v", err)
	}
	return roomCipher
}

func TestWireFieldNames(t *testing.T) {
	now := time.UnixMilli(1760000000123)
	data, err := Marshal(NewChat("peer-1", "alice", "hi", now))
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("json.Unmarshal: %v", err)
	}
	want := map[string]any{
		"type": "chat",
		"from": "peer-1",
		"nick": "alice",
		"text": "hi",
		"ts":   float64(1760000000123),
	}
	for key, value := range want {
		if fields[key] != value {
			t.Errorf("field %q = %v, want %v", key, fields[key], value)
		}
	}
	if id, _ := fields["id"].(string); id == "" {
		t.Error("chat message has no id")
	}
	if _, present := fields["messages"]; present {
		t.Error("empty messages field should be omitted")
	}
}

func TestDestroyWireForm(t *testing.T) {
	data, err := Marshal(NewDestroy())
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(data) != `{"type":"destroy"}` {
		t.Errorf("destroy = %s", data)
	}
}

func TestUnmarshalBrowserJoin(t *testing.T) {
	message, err := Unmarshal([]byte(`{"type":"join","peerId":"abc","nick":"bob"}`))
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if message.Kind != KindJoin || message.From != "abc" || message.Nick != "bob" {
		t.Errorf("message = %+v", message)
	}
}

func TestUnmarshalTimestampForms(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  int64
	}{
		{"integer", `{"type":"chat","text":"hi","ts":1760884800123}`, 1760884800123},
		{"fractional", `{"type":"chat","text":"hi","ts":1760884800123.456}`, 1760884800123},
		{"exponent", `{"type":"chat","text":"hi","ts":1.760884800123e12}`, 1760884800123},
		{"absent", `{"type":"chat","text":"hi"}`, 0},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			message, err := Unmarshal([]byte(test.input))
			if err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}
			if message.Timestamp != test.want {
				t.Errorf("Timestamp = %d, want %d", message.Timestamp, test.want)
			}
			if message.Kind != KindChat || message.Text != "hi" {
				t.Errorf("message = %+v", message)
			}
		})
	}
}

func TestUnmarshalFractionalTimestampInSync(t *testing.T) {
	input := `{"type":"sync","messages":[{"type":"chat","id":"m1","from":"p","text":"x","ts":5.9}]}`
	message, err := Unmarshal([]byte(input))
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(message.Messages) != 1 || message.Messages[0].Timestamp != 5 {
		t.Errorf("messages = %+v", message.Messages)
	}
}

func TestUnmarshalErrors(t *testing.T) {
	for _, input := range []string{``, `not json`, `[]`, `{}`, `{"type":5}`, `{"type":"chat","ts":"soon"}`} {
		if _, err := Unmarshal([]byte(input)); !errors.Is(err, ErrMalformedMessage) {
			t.Errorf("Unmarshal(%q): err = %v, want ErrMalformedMessage", input, err)
		}
	}
}

func TestEncodeDecode(t *testing.T) {
	roomCipher := newCipher(t)
	original := NewSync([]Message{
		NewChat("a", "alice", "one", time.UnixMilli(1)),
		NewChat("b", "bob", "two", time.UnixMilli(2)),
	})

	frame, err := Encode(roomCipher, original)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := Decode(roomCipher, frame)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded.Kind != KindSync || len(decoded.Messages) != 2 {
		t.Fatalf("decoded = %+v", decoded)
	}
	if decoded.Messages[1].Text != "two" || decoded.Messages[1].Time() != time.UnixMilli(2) {
		t.Errorf("second embedded message = %+v", decoded.Messages[1])
	}
}

func TestDecodeErrors(t *testing.T) {
	roomCipher := newCipher(t)
	otherCipher := newCipher(t)

	frame, err := Encode(otherCipher, NewChat("a", "alice", "hi", time.Now()))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if _, err := Decode(roomCipher, frame); !errors.Is(err, roomcipher.ErrAuthenticationFailure) {
		t.Errorf("foreign key: err = %v, want ErrAuthenticationFailure", err)
	}

	garbage, err := roomCipher.SealString([]byte("not json"))
	if err != nil {
		t.Fatalf("SealString: %v", err)
	}
	if _, err := Decode(roomCipher, garbage); !errors.Is(err, ErrMalformedMessage) {
		t.Errorf("sealed garbage: err = %v, want ErrMalformedMessage", err)
	}
}

func TestNewSyncCopies(t *testing.T) {
	history := []Message{NewChat("a", "alice", "one", time.Now())}
	sync := NewSync(history)
	history[0].Text = "changed"
	if sync.Messages[0].Text != "one" {
		t.Error("NewSync aliases the caller's slice")
	}
}
