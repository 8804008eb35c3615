// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package room holds the rendezvous identity of a conversation: a
// short public room ID and a 32-byte secret key, plus the string forms
// used to share them out of band.
//
// The key lives in a [secret.Buffer] and is never logged. Log lines
// identify a room by its ID and by [Room.Fingerprint], a keyed hash
// that two participants can compare to confirm they hold the same key
// without revealing it.
package room

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/zeebo/blake3"

	"github.com/bureau-foundation/ghost/lib/exchange"
	"github.com/bureau-foundation/ghost/lib/secret"
)

// KeySize is the size of a room key in bytes.
const KeySize = 32

// MaxIDLength bounds room IDs accepted from others. Generated IDs are
// eight hex characters.
const MaxIDLength = 64

var (
	// ErrInvalidCredential is returned when a credential string does
	// not have the form "<room_id>.<base64url key>".
	ErrInvalidCredential = errors.New("invalid room credential")

	// ErrInvalidInvite is returned when an invite string does not have
	// the form "G:<room_id>.<key>.<offer payload>".
	ErrInvalidInvite = errors.New("invalid room invite")
)

// fingerprintDomain prefixes the hashed data so a fingerprint can never
// collide with another keyed BLAKE3 use of the same key.
var fingerprintDomain = []byte("ghost.room.fingerprint.v1\x00")

// Room pairs a room ID with its key. Close zeroes the key.
type Room struct {
	ID  string
	Key *secret.Buffer
}

// New generates a room with a random four-byte ID and a random key.
func New() (*Room, error) {
	var idBytes [4]byte
	if _, err := rand.Read(idBytes[:]); err != nil {
		return nil, fmt.Errorf("generating room id: %w", err)
	}
	key, err := secret.NewRandom(KeySize)
	if err != nil {
		return nil, fmt.Errorf("generating room key: %w", err)
	}
	return &Room{ID: hex.EncodeToString(idBytes[:]), Key: key}, nil
}

// EncodedKey returns the key as unpadded base64url. The result is
// secret material on the heap; callers hand it to the user and drop it.
func (room *Room) EncodedKey() string {
	return base64.RawURLEncoding.EncodeToString(room.Key.Bytes())
}

// Credential returns the shareable "<room_id>.<key>" form.
func (room *Room) Credential() Credential {
	return Credential(room.ID + "." + room.EncodedKey())
}

// Fingerprint returns 16 hex characters identifying the key, safe to
// log and to compare aloud.
func (room *Room) Fingerprint() string {
	hasher, err := blake3.NewKeyed(room.Key.Bytes())
	if err != nil {
		// NewKeyed only fails for keys that are not 32 bytes, which
		// New and Parse never produce.
		return "invalid"
	}
	hasher.Write(fingerprintDomain)
	hasher.Write([]byte(room.ID))
	sum := hasher.Sum(nil)
	return hex.EncodeToString(sum[:8])
}

// String returns the room ID. The key is never part of the string form.
func (room *Room) String() string {
	if room == nil {
		return "<no room>"
	}
	return room.ID
}

// Close zeroes and releases the key. Idempotent.
func (room *Room) Close() error {
	if room == nil || room.Key == nil {
		return nil
	}
	return room.Key.Close()
}

// Credential is the "<room_id>.<key_b64url>" string shared between
// participants. It contains the key and must be treated as a secret.
type Credential string

// Parse validates the credential and returns the Room it names. The
// caller owns the returned Room and must Close it.
func (credential Credential) Parse() (*Room, error) {
	text := strings.TrimSpace(string(credential))
	separator := strings.LastIndexByte(text, '.')
	if separator < 0 {
		return nil, fmt.Errorf("%w: missing '.' separator", ErrInvalidCredential)
	}
	roomID, encodedKey := text[:separator], text[separator+1:]
	if err := ValidateID(roomID); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}
	keyBytes, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(encodedKey, "="))
	if err != nil {
		return nil, fmt.Errorf("%w: key is not base64url", ErrInvalidCredential)
	}
	if len(keyBytes) != KeySize {
		secret.Zero(keyBytes)
		return nil, fmt.Errorf("%w: key is %d bytes, want %d", ErrInvalidCredential, len(keyBytes), KeySize)
	}
	key, err := secret.NewFromBytes(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("storing room key: %w", err)
	}
	return &Room{ID: roomID, Key: key}, nil
}

// ValidateID checks a room ID received from a peer or a relay client.
// IDs are non-empty, at most MaxIDLength bytes, and limited to
// characters that survive a URL query and a credential string.
func ValidateID(roomID string) error {
	if roomID == "" {
		return errors.New("room id is empty")
	}
	if len(roomID) > MaxIDLength {
		return fmt.Errorf("room id is %d bytes, maximum is %d", len(roomID), MaxIDLength)
	}
	for _, character := range roomID {
		switch {
		case character >= 'a' && character <= 'z',
			character >= 'A' && character <= 'Z',
			character >= '0' && character <= '9',
			character == '-', character == '_':
		default:
			return fmt.Errorf("room id contains %q", character)
		}
	}
	return nil
}

// invitePrefix starts an invite string.
const invitePrefix = "G:"

// Invite builds the single-string form that carries a credential and
// an offer together: "G:<room_id>.<key>.<offer payload>". It is what a
// host hands to an unattended joiner such as the bot.
func Invite(credential Credential, offer exchange.Code) (string, error) {
	if offer.Tag != exchange.TagOffer {
		return "", fmt.Errorf("%w: invite needs an offer code, got %s", ErrInvalidInvite, offer.Tag)
	}
	return invitePrefix + string(credential) + "." + offer.Payload, nil
}

// IsInvite reports whether text looks like an invite rather than a
// bare exchange code.
func IsInvite(text string) bool {
	return strings.HasPrefix(strings.TrimSpace(text), invitePrefix)
}

// ParseInvite splits an invite into its credential and offer code. The
// offer payload is validated.
func ParseInvite(text string) (Credential, exchange.Code, error) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, invitePrefix) {
		return "", exchange.Code{}, fmt.Errorf("%w: missing %q prefix", ErrInvalidInvite, invitePrefix)
	}
	parts := strings.SplitN(text[len(invitePrefix):], ".", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return "", exchange.Code{}, fmt.Errorf("%w: want three '.'-separated fields", ErrInvalidInvite)
	}
	credential := Credential(parts[0] + "." + parts[1])
	code, err := exchange.ParseCode(string(exchange.TagOffer) + ":" + parts[2])
	if err != nil {
		return "", exchange.Code{}, fmt.Errorf("%w: %w", ErrInvalidInvite, err)
	}
	return credential, code, nil
}
