// Copyright (c) 2013-2024 The bchd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import "fmt"

// maxScriptBuilderSize is the largest script ScriptBuilder will produce
// without reporting ErrScriptNotCanonical, matching the maximum a P2SH
// redeem script or unlocking script is ever expected to reach.
const maxScriptBuilderSize = 10000

// ErrScriptNotCanonical identifies a ScriptBuilder operation that would
// either exceed maxScriptBuilderSize or push more than maxScriptElementSize
// bytes in a single data push.
type ErrScriptNotCanonical string

// Error satisfies the error interface.
func (e ErrScriptNotCanonical) Error() string {
	return string(e)
}

// ScriptBuilder assembles raw script bytes one operator at a time, using
// the minimal push encoding for every AddInt64/AddData call. It is the
// construction-side counterpart of the decoding helpers in opcode.go and
// scriptnum.go: scripts it emits always pass checkMinimalPush.
type ScriptBuilder struct {
	script []byte
	err    error
}

// NewScriptBuilder returns an empty ScriptBuilder ready for use.
func NewScriptBuilder() *ScriptBuilder {
	return &ScriptBuilder{script: make([]byte, 0, 512)}
}

// Reset clears b back to an empty script with no accumulated error, and
// returns b for chaining.
func (b *ScriptBuilder) Reset() *ScriptBuilder {
	b.script = b.script[:0]
	b.err = nil
	return b
}

// AddOp appends a single non-push opcode byte to the script under
// construction.
func (b *ScriptBuilder) AddOp(opcode byte) *ScriptBuilder {
	if b.err != nil {
		return b
	}
	if len(b.script)+1 > maxScriptBuilderSize {
		b.err = ErrScriptNotCanonical(fmt.Sprintf(
			"adding opcode 0x%x would exceed the maximum script size", opcode))
		return b
	}
	b.script = append(b.script, opcode)
	return b
}

// AddOps appends every opcode byte in opcodes, in order.
func (b *ScriptBuilder) AddOps(opcodes []byte) *ScriptBuilder {
	for _, op := range opcodes {
		b.AddOp(op)
	}
	return b
}

// AddInt64 appends the minimal push encoding of val: OP_1NEGATE or
// OP_0/OP_1..OP_16 for the values those opcodes cover, otherwise the
// scriptNum byte encoding behind an OP_DATA_N push.
func (b *ScriptBuilder) AddInt64(val int64) *ScriptBuilder {
	if b.err != nil {
		return b
	}

	if val == 0 {
		return b.AddOp(OP_0)
	}
	if val == -1 {
		return b.AddOp(OP_1NEGATE)
	}
	if val >= 1 && val <= 16 {
		return b.AddOp(byte(OP_1) + byte(val) - 1)
	}

	return b.AddFullData(scriptNum(val).Bytes())
}

// AddData appends the minimal push encoding of data, rejecting data longer
// than maxScriptElementSize.
func (b *ScriptBuilder) AddData(data []byte) *ScriptBuilder {
	if b.err != nil {
		return b
	}
	if len(data) > maxScriptElementSize {
		b.err = ErrScriptNotCanonical(fmt.Sprintf(
			"adding %d-byte data push would exceed the maximum script element size", len(data)))
		return b
	}
	return b.AddFullData(data)
}

// AddFullData appends the minimal push encoding of data with no maximum
// element size check, for callers (principally tests) that intentionally
// construct elements larger than the engine accepts.
func (b *ScriptBuilder) AddFullData(data []byte) *ScriptBuilder {
	if b.err != nil {
		return b
	}

	if op, ok := minimalPushOpcodeFor(data); ok {
		return b.AddOp(op)
	}

	n := len(data)
	var header []byte
	switch {
	case n <= 75:
		header = []byte{byte(n)}
	case n <= 255:
		header = []byte{OP_PUSHDATA1, byte(n)}
	case n <= 65535:
		header = []byte{OP_PUSHDATA2, byte(n), byte(n >> 8)}
	default:
		header = []byte{OP_PUSHDATA4, byte(n), byte(n >> 8), byte(n >> 16), byte(n >> 24)}
	}

	if len(b.script)+len(header)+n > maxScriptBuilderSize {
		b.err = ErrScriptNotCanonical(fmt.Sprintf(
			"adding %d-byte data push would exceed the maximum script size", n))
		return b
	}

	b.script = append(b.script, header...)
	b.script = append(b.script, data...)
	return b
}

// Script returns the accumulated script bytes, or the first error
// encountered while building it.
func (b *ScriptBuilder) Script() ([]byte, error) {
	if b.err != nil {
		return nil, b.err
	}
	return append([]byte(nil), b.script...), nil
}
