// Copyright (c) 2013-2024 The bchd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
)

// hexToBytes converts the passed hex string into bytes and will panic if
// there is an error. This is only provided for the hard-coded constants so
// errors in the source code can be detected. It will only (and must only) be
// called with hard-coded values.
func hexToBytes(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic("invalid hex in source file: " + s)
	}
	return b
}

func TestScriptNumBytes(t *testing.T) {
	tests := []struct {
		num        scriptNum
		serialized []byte
	}{
		{0, nil},
		{1, hexToBytes("01")},
		{-1, hexToBytes("81")},
		{127, hexToBytes("7f")},
		{-127, hexToBytes("ff")},
		{128, hexToBytes("8000")},
		{-128, hexToBytes("8080")},
		{129, hexToBytes("8100")},
		{-129, hexToBytes("8180")},
		{256, hexToBytes("0001")},
		{-256, hexToBytes("0081")},
		{32767, hexToBytes("ff7f")},
		{-32767, hexToBytes("ffff")},
		{32768, hexToBytes("008000")},
		{-32768, hexToBytes("008080")},
		{2147483647, hexToBytes("ffffff7f")},
		{-2147483647, hexToBytes("ffffffff")},
		{4294967295, hexToBytes("ffffffff00")},
		{-4294967295, hexToBytes("ffffffff80")},
	}

	for _, test := range tests {
		got := test.num.Bytes()
		require.Equalf(t, test.serialized, got, "Bytes(%d)", test.num)
	}
}

func TestMakeScriptNum(t *testing.T) {
	tests := []struct {
		serialized []byte
		num        scriptNum
		numLen     int
		wantErr    ErrorCode
	}{
		{nil, 0, defaultScriptNumLen, -1},
		{hexToBytes("01"), 1, defaultScriptNumLen, -1},
		{hexToBytes("81"), -1, defaultScriptNumLen, -1},
		{hexToBytes("8000"), 128, defaultScriptNumLen, -1},
		{hexToBytes("ffffff7f"), 2147483647, defaultScriptNumLen, -1},
		{hexToBytes("ffffffffff"), -549755813887, 5, -1},

		// Negative zero must be rejected even though it is a single byte.
		{hexToBytes("80"), 0, defaultScriptNumLen, ErrInvalidScriptNumber},

		// Non-minimal encodings are rejected regardless of numLen.
		{hexToBytes("00"), 0, defaultScriptNumLen, ErrInvalidScriptNumber},
		{hexToBytes("0100"), 0, defaultScriptNumLen, ErrInvalidScriptNumber},
		{hexToBytes("ff7f00"), 0, defaultScriptNumLen, ErrInvalidScriptNumber},

		// Minimally encoded but longer than the requested bound.
		{hexToBytes("0000008000"), 0, defaultScriptNumLen, ErrInvalidScriptNumber},
	}

	for _, test := range tests {
		got, err := makeScriptNum(test.serialized, test.numLen)
		if test.wantErr == -1 {
			if err != nil {
				t.Errorf("makeScriptNum(%x): unexpected error %v", test.serialized, err)
				continue
			}
			if got != test.num {
				t.Errorf("makeScriptNum(%x): got %d, want %d", test.serialized, got, test.num)
			}
			continue
		}
		scriptErr, ok := err.(*Error)
		if !ok || scriptErr.Code != test.wantErr {
			t.Errorf("makeScriptNum(%x): got error %v, want code %v", test.serialized, err, test.wantErr)
		}
	}
}

func TestScriptNumRoundTrip(t *testing.T) {
	values := []int64{
		0, 1, -1, 2, -2, 127, -127, 128, -128, 255, -255,
		1000000, -1000000, 1<<31 - 1, -(1<<31 - 1),
	}
	for _, v := range values {
		n := scriptNum(v)
		encoded := n.Bytes()
		decoded, err := makeScriptNum(encoded, 8)
		if err != nil {
			t.Errorf("round trip %d: unexpected error %v", v, err)
			continue
		}
		if int64(decoded) != v {
			t.Errorf("round trip %d: got %d", v, decoded)
		}
	}
}

func TestScriptNumInt32(t *testing.T) {
	tests := []struct {
		in   scriptNum
		want int32
	}{
		{0, 0},
		{2147483647, 2147483647},
		{-2147483648, -2147483648},
		{2147483648, 2147483647},
		{-2147483649, -2147483648},
		{9223372036854775807, 2147483647},
	}
	for _, test := range tests {
		require.Equalf(t, test.want, test.in.Int32(), "Int32(%d)", test.in)
	}
}

func TestDecodeBinaryScriptNum(t *testing.T) {
	// Unlike makeScriptNum, decodeBinaryScriptNum accepts non-minimal
	// input, since OP_BIN2NUM's whole purpose is to shrink it.
	n, err := decodeBinaryScriptNum(hexToBytes("0100"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 {
		t.Errorf("got %d, want 1", n)
	}

	if _, err := decodeBinaryScriptNum(make([]byte, 9)); err == nil {
		t.Error("expected an error decoding a 9-byte binary value")
	}
}
