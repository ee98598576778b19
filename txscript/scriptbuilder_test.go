// Copyright (c) 2013-2024 The bchd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"bytes"
	"strings"
	"testing"
)

func TestScriptBuilderAddOp(t *testing.T) {
	script, err := NewScriptBuilder().AddOp(OP_DUP).AddOp(OP_HASH160).Script()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []byte{OP_DUP, OP_HASH160}
	if !bytes.Equal(script, want) {
		t.Errorf("got %x, want %x", script, want)
	}
}

func TestScriptBuilderAddInt64(t *testing.T) {
	tests := []struct {
		val  int64
		want []byte
	}{
		{0, []byte{OP_0}},
		{1, []byte{OP_1}},
		{16, []byte{OP_16}},
		{-1, []byte{OP_1NEGATE}},
		{17, []byte{0x01, 0x11}},
		{-17, []byte{0x01, 0x91}},
		{127, []byte{0x01, 0x7f}},
		{128, []byte{0x02, 0x80, 0x00}},
	}

	for _, test := range tests {
		script, err := NewScriptBuilder().AddInt64(test.val).Script()
		if err != nil {
			t.Fatalf("AddInt64(%d): unexpected error %v", test.val, err)
		}
		if !bytes.Equal(script, test.want) {
			t.Errorf("AddInt64(%d): got %x, want %x", test.val, script, test.want)
		}
	}
}

// TestScriptBuilderAddInt64NegativeOne is a targeted regression test: -1 must
// always produce OP_1NEGATE, not the byte that naive arithmetic on OP_1 would
// wrap around to.
func TestScriptBuilderAddInt64NegativeOne(t *testing.T) {
	script, err := NewScriptBuilder().AddInt64(-1).Script()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(script) != 1 || script[0] != OP_1NEGATE {
		t.Fatalf("AddInt64(-1): got %x, want [OP_1NEGATE]", script)
	}

	decoded, err := makeScriptNum([]byte{0x81}, defaultScriptNumLen)
	if err != nil {
		t.Fatalf("sanity check: %v", err)
	}
	if decoded != -1 {
		t.Fatalf("sanity check: decoded %d, want -1", decoded)
	}
}

func TestScriptBuilderAddData(t *testing.T) {
	tests := []struct {
		data []byte
		want []byte
	}{
		{nil, []byte{OP_0}},
		{[]byte{0x01}, []byte{OP_1}},
		{[]byte{0x05}, []byte{OP_5}},
		{bytes.Repeat([]byte{0xff}, 75), append([]byte{75}, bytes.Repeat([]byte{0xff}, 75)...)},
		{bytes.Repeat([]byte{0xff}, 76), append([]byte{OP_PUSHDATA1, 76}, bytes.Repeat([]byte{0xff}, 76)...)},
	}

	for i, test := range tests {
		script, err := NewScriptBuilder().AddData(test.data).Script()
		if err != nil {
			t.Fatalf("test %d: unexpected error %v", i, err)
		}
		if !bytes.Equal(script, test.want) {
			t.Errorf("test %d: got %x, want %x", i, script, test.want)
		}
	}
}

func TestScriptBuilderAddDataTooLarge(t *testing.T) {
	_, err := NewScriptBuilder().AddData(bytes.Repeat([]byte{0x00}, maxScriptElementSize+1)).Script()
	if err == nil {
		t.Fatal("expected an error pushing data larger than maxScriptElementSize")
	}
	if !strings.Contains(err.Error(), "script element size") {
		t.Errorf("unexpected error message: %v", err)
	}
}

func TestScriptBuilderErrorSticky(t *testing.T) {
	b := NewScriptBuilder().AddData(bytes.Repeat([]byte{0x00}, maxScriptElementSize+1))
	_, err := b.AddOp(OP_DUP).AddInt64(5).Script()
	if err == nil {
		t.Fatal("expected the first error to stick across subsequent calls")
	}
}

func TestScriptBuilderReset(t *testing.T) {
	b := NewScriptBuilder().AddOp(OP_DUP)
	b.Reset()
	script, err := b.AddOp(OP_HASH160).Script()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(script, []byte{OP_HASH160}) {
		t.Errorf("got %x, want [OP_HASH160]", script)
	}
}
