// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package roomcipher

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"github.com/bureau-foundation/ghost/lib/secret"
)

// KeySize is the size in bytes of a room key and of every derived key.
const KeySize = 32

// NonceSize is the size of the random nonce prepended to every frame.
const NonceSize = 12

// Overhead is the number of bytes Seal adds to a plaintext.
const Overhead = NonceSize + 16

var (
	// ErrAuthenticationFailure is returned by Open for any frame that
	// does not verify under the key.
	ErrAuthenticationFailure = errors.New("frame authentication failed")

	// ErrInvalidKeySize is returned for keys that are not KeySize bytes.
	ErrInvalidKeySize = errors.New("room key must be 32 bytes")
)

// Suite selects the AEAD construction.
type Suite uint8

const (
	// AES256GCM is AES-256 in Galois/Counter Mode. Compatible with the
	// browser client.
	AES256GCM Suite = iota

	// ChaCha20Poly1305 is the RFC 8439 AEAD.
	ChaCha20Poly1305
)

// String returns the configuration name of the suite.
func (suite Suite) String() string {
	switch suite {
	case AES256GCM:
		return "aes-256-gcm"
	case ChaCha20Poly1305:
		return "chacha20-poly1305"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(suite))
	}
}

// ParseSuite parses a suite name as written in configuration.
func ParseSuite(name string) (Suite, error) {
	switch name {
	case "aes-256-gcm", "":
		return AES256GCM, nil
	case "chacha20-poly1305":
		return ChaCha20Poly1305, nil
	default:
		return 0, fmt.Errorf("unknown cipher suite %q", name)
	}
}

func (suite Suite) aead(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w, got %d", ErrInvalidKeySize, len(key))
	}
	switch suite {
	case AES256GCM:
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, fmt.Errorf("creating AES cipher: %w", err)
		}
		return cipher.NewGCM(block)
	case ChaCha20Poly1305:
		return chacha20poly1305.New(key)
	default:
		return nil, fmt.Errorf("unknown cipher suite %d", uint8(suite))
	}
}

// Seal encrypts plaintext under key with the default suite.
func Seal(key, plaintext []byte) ([]byte, error) {
	return AES256GCM.Seal(key, plaintext)
}

// Open decrypts a frame produced by Seal.
func Open(key, sealed []byte) ([]byte, error) {
	return AES256GCM.Open(key, sealed)
}

// Seal encrypts plaintext under key and returns nonce || ciphertext || tag.
func (suite Suite) Seal(key, plaintext []byte) ([]byte, error) {
	aead, err := suite.aead(key)
	if err != nil {
		return nil, err
	}

	output := make([]byte, NonceSize, NonceSize+len(plaintext)+aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, output); err != nil {
		return nil, fmt.Errorf("generating random nonce: %w", err)
	}
	return aead.Seal(output, output[:NonceSize], plaintext, nil), nil
}

// Open verifies and decrypts a sealed frame.
func (suite Suite) Open(key, sealed []byte) ([]byte, error) {
	aead, err := suite.aead(key)
	if err != nil {
		return nil, err
	}
	if len(sealed) < NonceSize+aead.Overhead() {
		return nil, ErrAuthenticationFailure
	}
	plaintext, err := aead.Open(nil, sealed[:NonceSize], sealed[NonceSize:], nil)
	if err != nil {
		return nil, ErrAuthenticationFailure
	}
	return plaintext, nil
}

// DeriveKey derives a purpose-specific subkey from a room key with
// HKDF-SHA256. The room ID is the salt, so equal keys in different
// rooms still derive different subkeys. The returned Buffer must be
// closed by the caller.
func DeriveKey(roomKey *secret.Buffer, roomID, purpose string) (*secret.Buffer, error) {
	if roomKey.Len() != KeySize {
		return nil, fmt.Errorf("%w, got %d", ErrInvalidKeySize, roomKey.Len())
	}
	reader := hkdf.New(sha256.New, roomKey.Bytes(), []byte(roomID), []byte("ghost."+purpose+".v1"))
	derived := make([]byte, KeySize)
	if _, err := io.ReadFull(reader, derived); err != nil {
		secret.Zero(derived)
		return nil, fmt.Errorf("deriving %s key: %w", purpose, err)
	}
	return secret.NewFromBytes(derived)
}

// Cipher binds a suite to a key for sealing chat frames. The key is
// borrowed: Close on the Cipher does not close it.
type Cipher struct {
	suite Suite
	key   *secret.Buffer
}

// New returns a Cipher for key. The key must be KeySize bytes.
func New(suite Suite, key *secret.Buffer) (*Cipher, error) {
	if key.Len() != KeySize {
		return nil, fmt.Errorf("%w, got %d", ErrInvalidKeySize, key.Len())
	}
	if _, err := suite.aead(key.Bytes()); err != nil {
		return nil, err
	}
	return &Cipher{suite: suite, key: key}, nil
}

// Suite returns the cipher's suite.
func (c *Cipher) Suite() Suite { return c.suite }

// Seal encrypts plaintext.
func (c *Cipher) Seal(plaintext []byte) ([]byte, error) {
	return c.suite.Seal(c.key.Bytes(), plaintext)
}

// Open decrypts a sealed frame.
func (c *Cipher) Open(sealed []byte) ([]byte, error) {
	return c.suite.Open(c.key.Bytes(), sealed)
}

// SealString encrypts plaintext and returns the text frame.
func (c *Cipher) SealString(plaintext []byte) (string, error) {
	sealed, err := c.Seal(plaintext)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// OpenString decodes and decrypts a text frame. Frames that are not
// base64url are reported as ErrAuthenticationFailure: to the receiver
// they are indistinguishable from any other forged frame.
func (c *Cipher) OpenString(frame string) ([]byte, error) {
	sealed, err := base64.RawURLEncoding.DecodeString(frame)
	if err != nil {
		return nil, ErrAuthenticationFailure
	}
	return c.Open(sealed)
}
