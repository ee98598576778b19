// Copyright (c) 2013-2024 The bchd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"encoding/binary"
	"fmt"
)

// Opcode constants, named per the BCH_2019May ruleset.
const (
	OP_0         = 0x00
	OP_FALSE     = 0x00
	OP_PUSHDATA1 = 0x4c
	OP_PUSHDATA2 = 0x4d
	OP_PUSHDATA4 = 0x4e
	OP_1NEGATE   = 0x4f
	OP_RESERVED  = 0x50
	OP_1         = 0x51
	OP_TRUE      = 0x51
	OP_2         = 0x52
	OP_3         = 0x53
	OP_4         = 0x54
	OP_5         = 0x55
	OP_6         = 0x56
	OP_7         = 0x57
	OP_8         = 0x58
	OP_9         = 0x59
	OP_10        = 0x5a
	OP_11        = 0x5b
	OP_12        = 0x5c
	OP_13        = 0x5d
	OP_14        = 0x5e
	OP_15        = 0x5f
	OP_16        = 0x60

	OP_NOP      = 0x61
	OP_VER      = 0x62
	OP_IF       = 0x63
	OP_NOTIF    = 0x64
	OP_VERIF    = 0x65
	OP_VERNOTIF = 0x66
	OP_ELSE     = 0x67
	OP_ENDIF    = 0x68
	OP_VERIFY   = 0x69
	OP_RETURN   = 0x6a

	OP_TOALTSTACK   = 0x6b
	OP_FROMALTSTACK = 0x6c
	OP_2DROP        = 0x6d
	OP_2DUP         = 0x6e
	OP_3DUP         = 0x6f
	OP_2OVER        = 0x70
	OP_2ROT         = 0x71
	OP_2SWAP        = 0x72
	OP_IFDUP        = 0x73
	OP_DEPTH        = 0x74
	OP_DROP         = 0x75
	OP_DUP          = 0x76
	OP_NIP          = 0x77
	OP_OVER         = 0x78
	OP_PICK         = 0x79
	OP_ROLL         = 0x7a
	OP_ROT          = 0x7b
	OP_SWAP         = 0x7c
	OP_TUCK         = 0x7d

	OP_CAT    = 0x7e
	OP_SPLIT  = 0x7f
	OP_NUM2BIN = 0x80
	OP_BIN2NUM = 0x81
	OP_SIZE   = 0x82

	OP_INVERT      = 0x83
	OP_AND         = 0x84
	OP_OR          = 0x85
	OP_XOR         = 0x86
	OP_EQUAL       = 0x87
	OP_EQUALVERIFY = 0x88

	OP_1ADD      = 0x8b
	OP_1SUB      = 0x8c
	OP_2MUL      = 0x8d
	OP_2DIV      = 0x8e
	OP_NEGATE    = 0x8f
	OP_ABS       = 0x90
	OP_NOT       = 0x91
	OP_0NOTEQUAL = 0x92

	OP_ADD               = 0x93
	OP_SUB               = 0x94
	OP_MUL               = 0x95
	OP_DIV               = 0x96
	OP_MOD               = 0x97
	OP_LSHIFT            = 0x98
	OP_RSHIFT            = 0x99
	OP_BOOLAND           = 0x9a
	OP_BOOLOR            = 0x9b
	OP_NUMEQUAL          = 0x9c
	OP_NUMEQUALVERIFY    = 0x9d
	OP_NUMNOTEQUAL       = 0x9e
	OP_LESSTHAN          = 0x9f
	OP_GREATERTHAN       = 0xa0
	OP_LESSTHANOREQUAL   = 0xa1
	OP_GREATERTHANOREQUAL = 0xa2
	OP_MIN               = 0xa3
	OP_MAX               = 0xa4
	OP_WITHIN            = 0xa5

	OP_RIPEMD160           = 0xa6
	OP_SHA1                = 0xa7
	OP_SHA256              = 0xa8
	OP_HASH160             = 0xa9
	OP_HASH256             = 0xaa
	OP_CODESEPARATOR       = 0xab
	OP_CHECKSIG            = 0xac
	OP_CHECKSIGVERIFY      = 0xad
	OP_CHECKMULTISIG       = 0xae
	OP_CHECKMULTISIGVERIFY = 0xaf

	OP_NOP1                = 0xb0
	OP_CHECKLOCKTIMEVERIFY = 0xb1
	OP_CHECKSEQUENCEVERIFY = 0xb2
	OP_NOP4                = 0xb3
	OP_NOP5                = 0xb4
	OP_NOP6                = 0xb5
	OP_NOP7                = 0xb6
	OP_NOP8                = 0xb7
	OP_NOP9                = 0xb8
	OP_NOP10               = 0xb9

	OP_CHECKDATASIG       = 0xba
	OP_CHECKDATASIGVERIFY = 0xbb
)

// opcodeMeta mirrors the teacher's opcode struct: a byte value, a display
// name, and a length used only to drive push-payload parsing (positive for
// a fixed-size push of that many bytes including the opcode itself,
// negative for a push whose length is -length little-endian bytes
// following the opcode, 1 for every non-push opcode).
type opcodeMeta struct {
	value  byte
	name   string
	length int
}

// opcodeMetaArray is a dense, total table from opcode byte to its metadata.
// Every unassigned index defaults to the zero value, whose length of 0 is
// never a real push length and is guarded against in readPushPayload.
var opcodeMetaArray [256]opcodeMeta

func init() {
	// OP_0 is a zero-length push (length 1: the opcode carries no
	// payload bytes of its own).
	opcodeMetaArray[OP_0] = opcodeMeta{OP_0, "OP_0", 1}

	// OP_DATA_1 through OP_DATA_75: push the next N bytes.
	for i := 1; i <= 75; i++ {
		opcodeMetaArray[i] = opcodeMeta{byte(i), fmt.Sprintf("OP_DATA_%d", i), i + 1}
	}

	opcodeMetaArray[OP_PUSHDATA1] = opcodeMeta{OP_PUSHDATA1, "OP_PUSHDATA1", -1}
	opcodeMetaArray[OP_PUSHDATA2] = opcodeMeta{OP_PUSHDATA2, "OP_PUSHDATA2", -2}
	opcodeMetaArray[OP_PUSHDATA4] = opcodeMeta{OP_PUSHDATA4, "OP_PUSHDATA4", -4}
	opcodeMetaArray[OP_1NEGATE] = opcodeMeta{OP_1NEGATE, "OP_1NEGATE", 1}
	opcodeMetaArray[OP_RESERVED] = opcodeMeta{OP_RESERVED, "OP_RESERVED", 1}

	for i := OP_1; i <= OP_16; i++ {
		opcodeMetaArray[i] = opcodeMeta{byte(i), fmt.Sprintf("OP_%d", i-OP_1+1), 1}
	}

	// Every remaining assigned opcode (flow control, stack, splice,
	// bitwise, arithmetic, crypto) carries no inline payload.
	for value, name := range nonPushOpcodeNames {
		opcodeMetaArray[value] = opcodeMeta{byte(value), name, 1}
	}
}

// nonPushOpcodeNames names every opcode that is not a push operator, for
// opcodeMetaArray initialization and for asm rendering.
var nonPushOpcodeNames = map[int]string{
	OP_NOP: "OP_NOP", OP_VER: "OP_VER", OP_IF: "OP_IF", OP_NOTIF: "OP_NOTIF",
	OP_VERIF: "OP_VERIF", OP_VERNOTIF: "OP_VERNOTIF", OP_ELSE: "OP_ELSE",
	OP_ENDIF: "OP_ENDIF", OP_VERIFY: "OP_VERIFY", OP_RETURN: "OP_RETURN",

	OP_TOALTSTACK: "OP_TOALTSTACK", OP_FROMALTSTACK: "OP_FROMALTSTACK",
	OP_2DROP: "OP_2DROP", OP_2DUP: "OP_2DUP", OP_3DUP: "OP_3DUP",
	OP_2OVER: "OP_2OVER", OP_2ROT: "OP_2ROT", OP_2SWAP: "OP_2SWAP",
	OP_IFDUP: "OP_IFDUP", OP_DEPTH: "OP_DEPTH", OP_DROP: "OP_DROP",
	OP_DUP: "OP_DUP", OP_NIP: "OP_NIP", OP_OVER: "OP_OVER", OP_PICK: "OP_PICK",
	OP_ROLL: "OP_ROLL", OP_ROT: "OP_ROT", OP_SWAP: "OP_SWAP", OP_TUCK: "OP_TUCK",

	OP_CAT: "OP_CAT", OP_SPLIT: "OP_SPLIT", OP_NUM2BIN: "OP_NUM2BIN",
	OP_BIN2NUM: "OP_BIN2NUM", OP_SIZE: "OP_SIZE",

	OP_INVERT: "OP_INVERT", OP_AND: "OP_AND", OP_OR: "OP_OR", OP_XOR: "OP_XOR",
	OP_EQUAL: "OP_EQUAL", OP_EQUALVERIFY: "OP_EQUALVERIFY",

	OP_1ADD: "OP_1ADD", OP_1SUB: "OP_1SUB", OP_2MUL: "OP_2MUL", OP_2DIV: "OP_2DIV",
	OP_NEGATE: "OP_NEGATE", OP_ABS: "OP_ABS", OP_NOT: "OP_NOT",
	OP_0NOTEQUAL: "OP_0NOTEQUAL",

	OP_ADD: "OP_ADD", OP_SUB: "OP_SUB", OP_MUL: "OP_MUL", OP_DIV: "OP_DIV",
	OP_MOD: "OP_MOD", OP_LSHIFT: "OP_LSHIFT", OP_RSHIFT: "OP_RSHIFT",
	OP_BOOLAND: "OP_BOOLAND", OP_BOOLOR: "OP_BOOLOR", OP_NUMEQUAL: "OP_NUMEQUAL",
	OP_NUMEQUALVERIFY: "OP_NUMEQUALVERIFY", OP_NUMNOTEQUAL: "OP_NUMNOTEQUAL",
	OP_LESSTHAN: "OP_LESSTHAN", OP_GREATERTHAN: "OP_GREATERTHAN",
	OP_LESSTHANOREQUAL: "OP_LESSTHANOREQUAL", OP_GREATERTHANOREQUAL: "OP_GREATERTHANOREQUAL",
	OP_MIN: "OP_MIN", OP_MAX: "OP_MAX", OP_WITHIN: "OP_WITHIN",

	OP_RIPEMD160: "OP_RIPEMD160", OP_SHA1: "OP_SHA1", OP_SHA256: "OP_SHA256",
	OP_HASH160: "OP_HASH160", OP_HASH256: "OP_HASH256",
	OP_CODESEPARATOR: "OP_CODESEPARATOR", OP_CHECKSIG: "OP_CHECKSIG",
	OP_CHECKSIGVERIFY: "OP_CHECKSIGVERIFY", OP_CHECKMULTISIG: "OP_CHECKMULTISIG",
	OP_CHECKMULTISIGVERIFY: "OP_CHECKMULTISIGVERIFY",

	OP_NOP1: "OP_NOP1", OP_CHECKLOCKTIMEVERIFY: "OP_CHECKLOCKTIMEVERIFY",
	OP_CHECKSEQUENCEVERIFY: "OP_CHECKSEQUENCEVERIFY", OP_NOP4: "OP_NOP4",
	OP_NOP5: "OP_NOP5", OP_NOP6: "OP_NOP6", OP_NOP7: "OP_NOP7",
	OP_NOP8: "OP_NOP8", OP_NOP9: "OP_NOP9", OP_NOP10: "OP_NOP10",

	OP_CHECKDATASIG: "OP_CHECKDATASIG", OP_CHECKDATASIGVERIFY: "OP_CHECKDATASIGVERIFY",
}

// disabledOpcodes are assigned opcodes that the BCH_2019May ruleset refuses
// to execute, distinct from simply-unassigned bytes.
var disabledOpcodes = map[byte]bool{
	OP_VER: true, OP_VERIF: true, OP_VERNOTIF: true, OP_RESERVED: true,
}

// Operator is a triple of renderers plus a state transition, dispatched by
// opcode byte. asm and description exist only to serve the debug driver;
// operation is the only member consulted by evaluate.
type Operator struct {
	Asm         func(state *ProgramState) string
	Description func(state *ProgramState) string
	Operation   func(providers CryptoProviders, cache *SigCache, state *ProgramState) *ProgramState
}

// readPushPayload validates and extracts the payload of the push opcode at
// state.IP, returning the payload bytes and the index of the last consumed
// script byte, or an ErrMalformedPush error when the script ends before the
// payload does or the opcode is not a push. Minimality is not checked here.
// It does not mutate state.
func readPushPayload(state *ProgramState) (payload []byte, lastIndex int32, err *Error) {
	ip := state.IP
	opValue := state.Script[ip]
	meta := opcodeMetaArray[opValue]

	switch {
	case meta.length > 1:
		// OP_DATA_N: N payload bytes follow the opcode.
		n := meta.length - 1
		if int(ip)+n >= len(state.Script) {
			return nil, 0, scriptError(ErrMalformedPush,
				fmt.Sprintf("opcode %s requires %d bytes, script has fewer remaining", meta.name, n))
		}
		payload = state.Script[ip+1 : ip+1+int32(n)]
		return payload, ip + int32(n), nil

	case meta.length < 0:
		lengthBytes := -meta.length
		if int(ip)+lengthBytes >= len(state.Script) {
			return nil, 0, scriptError(ErrMalformedPush,
				fmt.Sprintf("opcode %s requires %d length bytes, script has fewer remaining", meta.name, lengthBytes))
		}
		lenStart := ip + 1
		var dataLen int64
		switch lengthBytes {
		case 1:
			dataLen = int64(state.Script[lenStart])
		case 2:
			dataLen = int64(binary.LittleEndian.Uint16(state.Script[lenStart : lenStart+2]))
		case 4:
			dataLen = int64(binary.LittleEndian.Uint32(state.Script[lenStart : lenStart+4]))
		}
		// Compare in int64 throughout: dataLen may be as large as
		// 2^32-1 for OP_PUSHDATA4, far past int32 range, so truncating
		// to int32 before this bounds check would wrap negative and
		// let an oversized length slip through to the slice below.
		dataStart := int64(lenStart) + int64(lengthBytes)
		if dataLen < 0 || dataStart+dataLen > int64(len(state.Script)) {
			return nil, 0, scriptError(ErrMalformedPush,
				fmt.Sprintf("opcode %s pushes %d bytes, script has fewer remaining", meta.name, dataLen))
		}
		payload = state.Script[dataStart : dataStart+dataLen]
		return payload, int32(dataStart+dataLen-1), nil

	default:
		return nil, 0, scriptError(ErrMalformedPush, "opcode is not a push")
	}
}

// opcodeHasInlinePayload reports whether op carries payload bytes beyond its
// own opcode byte (OP_DATA_1..75 and the OP_PUSHDATA variants). These are
// the only opcodes a conditional skip must still tokenize past; every other
// opcode is fully consumed by Before's single IP++.
func opcodeHasInlinePayload(op byte) bool {
	meta := opcodeMetaArray[op]
	return meta.length > 1 || meta.length < 0
}

// minimalPushOpcodeFor returns the opcode byte that spec.md requires for a
// minimal push of payload when that push is a single opcode carrying the
// value itself (OP_0, OP_1NEGATE, OP_1..OP_16), or ok=false otherwise; such
// payloads are pushed by OP_DATA_N or an OP_PUSHDATA variant chosen purely
// by payload length.
func minimalPushOpcodeFor(payload []byte) (opcodeByte byte, ok bool) {
	if len(payload) == 0 {
		return OP_0, true
	}
	if len(payload) == 1 {
		v := payload[0]
		if v == 0x81 {
			return OP_1NEGATE, true
		}
		if v >= 1 && v <= 16 {
			return byte(OP_1 + int(v) - 1), true
		}
	}
	return 0, false
}

// checkMinimalPush validates that the push opcode at state.IP uses the
// shortest encoding available for payload, per spec.md §4.1.
func checkMinimalPush(state *ProgramState, opValue byte, payload []byte) *Error {
	if op, ok := minimalPushOpcodeFor(payload); ok {
		if opValue != op {
			return scriptError(ErrNonMinimalPush,
				fmt.Sprintf("payload %x must use opcode 0x%x, used 0x%x", payload, op, opValue))
		}
		return nil
	}

	n := len(payload)
	switch {
	case n <= 75:
		if opValue != byte(n) {
			return scriptError(ErrNonMinimalPush,
				fmt.Sprintf("payload of length %d must use OP_DATA_%d", n, n))
		}
	case n <= 255:
		if opValue != OP_PUSHDATA1 {
			return scriptError(ErrNonMinimalPush,
				fmt.Sprintf("payload of length %d must use OP_PUSHDATA1", n))
		}
	case n <= 65535:
		if opValue != OP_PUSHDATA2 {
			return scriptError(ErrNonMinimalPush,
				fmt.Sprintf("payload of length %d must use OP_PUSHDATA2", n))
		}
	default:
		if opValue != OP_PUSHDATA4 {
			return scriptError(ErrNonMinimalPush,
				fmt.Sprintf("payload of length %d must use OP_PUSHDATA4", n))
		}
	}
	return nil
}

// opcodePush implements every push operator's operation: decode the
// payload, enforce minimality and the maximum element size, and push the
// result.
func opcodePush(providers CryptoProviders, cache *SigCache, state *ProgramState) *ProgramState {
	opValue := state.Script[state.IP]
	payload, lastIndex, err := readPushPayload(state)
	if err != nil {
		return ApplyError(state, err)
	}

	if opValue == OP_PUSHDATA4 || len(payload) > maxScriptElementSize {
		return ApplyError(state, scriptError(ErrExceedsMaximumPush,
			fmt.Sprintf("push of %d bytes exceeds the %d byte limit", len(payload), maxScriptElementSize)))
	}

	if err := checkMinimalPush(state, opValue, payload); err != nil {
		return ApplyError(state, err)
	}

	next := state.Clone()
	next.IP = lastIndex
	next.Stack = append(next.Stack, append([]byte(nil), payload...))
	return next
}

// opcodeNumericPush implements OP_1NEGATE, OP_0, and OP_1..OP_16: push the
// canonical script-number encoding of the opcode's scalar.
func opcodeNumericPush(providers CryptoProviders, cache *SigCache, state *ProgramState) *ProgramState {
	opValue := state.Script[state.IP]

	var value scriptNum
	switch {
	case opValue == OP_0:
		value = 0
	case opValue == OP_1NEGATE:
		value = -1
	default:
		value = scriptNum(opValue - OP_1 + 1)
	}

	next := state.Clone()
	next.Stack = append(next.Stack, value.Bytes())
	return next
}

// operatorTable is the total mapping from opcode byte to Operator consulted
// by the virtual machine. Built once in init(); construction is pure and
// depends on no runtime configuration.
var operatorTable [256]*Operator

func registerOperator(value byte, op *Operator) {
	operatorTable[value] = op
}

func asmName(state *ProgramState) string {
	return opcodeMetaArray[state.Script[state.IP]].name
}

func init() {
	registerOperator(OP_0, &Operator{Asm: asmName, Description: func(*ProgramState) string { return "push empty element" }, Operation: opcodeNumericPush})
	for i := 1; i <= 75; i++ {
		registerOperator(byte(i), &Operator{Asm: asmName, Description: func(*ProgramState) string { return "push literal bytes" }, Operation: opcodePush})
	}
	registerOperator(OP_PUSHDATA1, &Operator{Asm: asmName, Description: func(*ProgramState) string { return "push variable-length data (1-byte length)" }, Operation: opcodePush})
	registerOperator(OP_PUSHDATA2, &Operator{Asm: asmName, Description: func(*ProgramState) string { return "push variable-length data (2-byte length)" }, Operation: opcodePush})
	registerOperator(OP_PUSHDATA4, &Operator{Asm: asmName, Description: func(*ProgramState) string { return "push variable-length data (4-byte length)" }, Operation: opcodePush})
	registerOperator(OP_1NEGATE, &Operator{Asm: asmName, Description: func(*ProgramState) string { return "push -1" }, Operation: opcodeNumericPush})
	for i := OP_1; i <= OP_16; i++ {
		registerOperator(byte(i), &Operator{Asm: asmName, Description: func(*ProgramState) string { return "push small integer" }, Operation: opcodeNumericPush})
	}

	registerDisabledAndReserved()
	registerFlowOperators()
	registerStackOperators()
	registerArithmeticOperators()
	registerCryptoOperators()
}

// registerDisabledAndReserved wires every opcode the BCH_2019May ruleset
// refuses to execute to a disabledOpcode failure.
func registerDisabledAndReserved() {
	for value := range disabledOpcodes {
		registerOperator(value, &Operator{
			Asm:         asmName,
			Description: func(*ProgramState) string { return "disabled opcode" },
			Operation: func(providers CryptoProviders, cache *SigCache, state *ProgramState) *ProgramState {
				return ApplyError(state, scriptError(ErrDisabledOpcode,
					fmt.Sprintf("attempt to execute disabled opcode %s", asmName(state))))
			},
		})
	}
}
