// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"testing"
)

type sampleEnvelope struct {
	Tag    string `cbor:"tag"`
	Code   string `cbor:"code"`
	Sender string `cbor:"sender,omitempty"`
}

func TestMarshalUnmarshalRoundtrip(t *testing.T) {
	original := sampleEnvelope{Tag: "O", Code: "O:eJzLSM3JyQcABiwCFQ", Sender: "peer-1"}

	data, err := Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded sampleEnvelope
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded != original {
		t.Errorf("roundtrip mismatch: got %+v, want %+v", decoded, original)
	}
}

func TestMarshalDeterministic(t *testing.T) {
	envelope := sampleEnvelope{Tag: "A", Code: "A:payload"}
	first, err := Marshal(envelope)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	second, err := Marshal(envelope)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Errorf("non-deterministic output: %x vs %x", first, second)
	}
}

func TestUnmarshalIgnoresUnknownFields(t *testing.T) {
	type extended struct {
		Tag   string `cbor:"tag"`
		Code  string `cbor:"code"`
		Extra int    `cbor:"extra"`
	}
	data, err := Marshal(extended{Tag: "O", Code: "O:x", Extra: 7})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded sampleEnvelope
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.Tag != "O" || decoded.Code != "O:x" {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestUnmarshalRejectsGarbage(t *testing.T) {
	var decoded sampleEnvelope
	if err := Unmarshal([]byte{0xff, 0x00, 0x13}, &decoded); err == nil {
		t.Error("expected error for invalid CBOR")
	}
}

func TestUnmarshalRejectsOversizedContainers(t *testing.T) {
	data, err := Marshal(make([]int, 1<<12+1))
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var list []int
	if err := Unmarshal(data, &list); err == nil {
		t.Errorf("decoded %d array elements, want a limit error", len(list))
	}

	pairs := make(map[int]int, 1<<12+1)
	for index := range 1<<12 + 1 {
		pairs[index] = index
	}
	data, err = Marshal(pairs)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var decoded map[int]int
	if err := Unmarshal(data, &decoded); err == nil {
		t.Errorf("decoded %d map pairs, want a limit error", len(decoded))
	}
}

func TestUnmarshalAcceptsContainersAtLimit(t *testing.T) {
	data, err := Marshal(make([]int, 1<<12))
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var list []int
	if err := Unmarshal(data, &list); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(list) != 1<<12 {
		t.Errorf("decoded %d elements, want %d", len(list), 1<<12)
	}
}
