// Copyright (c) 2013-2024 The bchd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package scripthex

import (
	"bytes"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

func TestDecodeScript(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    []byte
		wantErr bool
	}{
		{"empty", "", nil, false},
		{"simple", "76a9", []byte{0x76, 0xa9}, false},
		{"odd length", "76a", nil, true},
		{"non-hex", "zz", nil, true},
	}

	for _, test := range tests {
		got, err := DecodeScript(test.in)
		if (err != nil) != test.wantErr {
			t.Errorf("%s: got err=%v, wantErr=%v", test.name, err, test.wantErr)
			continue
		}
		if err == nil && !bytes.Equal(got, test.want) {
			t.Errorf("%s: got %x, want %x", test.name, got, test.want)
		}
	}
}

func TestDecodeExternalStateEmpty(t *testing.T) {
	external, err := DecodeExternalState(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if external.Version != 0 || external.OutpointValue != 0 {
		t.Fatalf("expected a zero-valued ExternalState, got %+v", external)
	}
}

func TestDecodeExternalStateFields(t *testing.T) {
	doc := []byte(`{
		"version": 2,
		"outpointTransactionHash": "00000000000000000000000000000000000000000000000000000000000000aa",
		"outpointIndex": 1,
		"outpointValue": 123456,
		"sequenceNumber": 4294967295,
		"lockTime": 500000001
	}`)

	external, err := DecodeExternalState(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if external.Version != 2 {
		t.Errorf("got version %d, want 2", external.Version)
	}
	if external.OutpointIndex != 1 {
		t.Errorf("got outpoint index %d, want 1", external.OutpointIndex)
	}
	if external.OutpointValue != 123456 {
		t.Errorf("got outpoint value %d, want 123456", external.OutpointValue)
	}
	if external.SequenceNumber != 4294967295 {
		t.Errorf("got sequence number %d, want 4294967295", external.SequenceNumber)
	}
	if external.LockTime != 500000001 {
		t.Errorf("got lock time %d, want 500000001", external.LockTime)
	}
	if external.OutpointTransactionHash == (chainhash.Hash{}) {
		t.Error("expected a non-zero outpoint transaction hash")
	}
}

func TestDecodeExternalStateInvalidHash(t *testing.T) {
	doc := []byte(`{"outpointTransactionHash": "not-hex"}`)
	if _, err := DecodeExternalState(doc); err == nil {
		t.Fatal("expected an error for a malformed hash string")
	}
}

func TestDecodeExternalStateInvalidJSON(t *testing.T) {
	if _, err := DecodeExternalState([]byte(`{not json`)); err == nil {
		t.Fatal("expected an error for malformed JSON")
	}
}
