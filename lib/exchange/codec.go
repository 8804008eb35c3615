// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package exchange

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/zlib"
)

// MaxDescriptorSize bounds the decompressed size of a payload. Real
// SDP descriptors are a few kilobytes; the cap stops a small hostile
// code from expanding into unbounded memory.
const MaxDescriptorSize = 1 << 20

// ErrMalformedPayload is returned when a payload is not valid
// base64url, is not a well-formed zlib stream, or fails its checksum.
var ErrMalformedPayload = errors.New("malformed exchange payload")

// Encode compresses a descriptor and returns its base64url payload.
func Encode(descriptor string) string {
	var compressed bytes.Buffer
	writer, err := zlib.NewWriterLevel(&compressed, zlib.BestCompression)
	if err != nil {
		// Only reachable with an invalid level constant.
		panic(fmt.Sprintf("exchange: creating zlib writer: %v", err))
	}
	// Writes to a bytes.Buffer cannot fail.
	writer.Write([]byte(descriptor))
	writer.Close()
	return base64.RawURLEncoding.EncodeToString(compressed.Bytes())
}

// Decode reverses Encode. Trailing "=" padding is tolerated.
func Decode(payload string) (string, error) {
	compressed, err := decodeBase64(payload)
	if err != nil {
		return "", err
	}

	// bytes.Reader is an io.ByteReader, so the inflater consumes
	// exactly the stream and source.Len() is what follows the trailer.
	source := bytes.NewReader(compressed)
	reader, err := zlib.NewReader(source)
	if err != nil {
		return "", fmt.Errorf("%w: zlib header: %v", ErrMalformedPayload, err)
	}
	defer reader.Close()

	// Read one byte past the cap so an oversized stream is detectable.
	descriptor, err := io.ReadAll(io.LimitReader(reader, MaxDescriptorSize+1))
	if err != nil {
		return "", fmt.Errorf("%w: zlib stream: %v", ErrMalformedPayload, err)
	}
	if len(descriptor) > MaxDescriptorSize {
		return "", fmt.Errorf("%w: descriptor exceeds %d bytes", ErrMalformedPayload, MaxDescriptorSize)
	}
	if extra := source.Len(); extra > 0 {
		return "", fmt.Errorf("%w: %d bytes after zlib trailer", ErrMalformedPayload, extra)
	}

	return string(descriptor), nil
}

// decodeBase64 accepts the unpadded form and, for pasted codes, the
// padded form. Padding is stripped and re-derived from the length.
func decodeBase64(payload string) ([]byte, error) {
	if payload == "" {
		return nil, fmt.Errorf("%w: empty payload", ErrMalformedPayload)
	}
	trimmed := strings.TrimRight(payload, "=")
	if len(trimmed)%4 == 1 {
		return nil, fmt.Errorf("%w: base64 length %d is impossible", ErrMalformedPayload, len(trimmed))
	}
	decoded, err := base64.RawURLEncoding.DecodeString(trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: base64: %v", ErrMalformedPayload, err)
	}
	return decoded, nil
}
