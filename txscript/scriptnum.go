// Copyright (c) 2013-2024 The bchd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import "fmt"

// defaultScriptNumLen is the default number of bytes data being interpreted
// as an integer may be when a specific maximum length is not requested. The
// locktime-style operators request a wider 5-byte bound; every other
// arithmetic operator uses this default.
const defaultScriptNumLen = 4

// scriptNum represents a numeric value used in the scripting engine with
// special handling to deal with the subtle semantics imposed by BCH_2019May
// script number encoding rules.
//
// All numbers are stored on the stack as little endian with a sign bit.
// All numeric opcodes such as OP_ADD, OP_SUB, and OP_MUL, are only allowed
// to operate on 4-byte integers, with the exception of
// OP_CHECKLOCKTIMEVERIFY and OP_CHECKSEQUENCEVERIFY, which may read 5-byte
// integers.
type scriptNum int64

// checkMinimalDataEncoding returns invalidScriptNumber if the given byte
// slice does not use the minimal encoding required by the consensus rules.
func checkMinimalDataEncoding(v []byte) error {
	if len(v) == 0 {
		return nil
	}

	// Check that the number is encoded with the minimum possible number
	// of bytes.
	//
	// If the most-significant-byte - excluding the sign bit - is zero
	// then we're not minimal. Note how this test also rejects the
	// negative-zero encoding, [0x80], for example, since (0x80 &
	// 0x7f) == 0.
	if v[len(v)-1]&0x7f == 0 {
		// One exception: if there's more than one byte and the
		// second-to-last byte has the high bit set, then this is
		// good encoding for a positive number with a msbyte equal to
		// zero.
		if len(v) == 1 || v[len(v)-2]&0x80 == 0 {
			return scriptError(ErrInvalidScriptNumber,
				fmt.Sprintf("numeric value encoded as %x is "+
					"not minimally encoded", v))
		}
	}

	return nil
}

// makeScriptNum interprets the passed serialized bytes as an encoded script
// number and returns the result as a Go int64, failing with
// invalidScriptNumber when the encoding exceeds scriptNumLen bytes or is
// not minimally encoded.
func makeScriptNum(v []byte, scriptNumLen int) (scriptNum, error) {
	if len(v) > scriptNumLen {
		return 0, scriptError(ErrInvalidScriptNumber,
			fmt.Sprintf("script number %x exceeds maximum allowed "+
				"length of %d bytes", v, scriptNumLen))
	}

	if err := checkMinimalDataEncoding(v); err != nil {
		return 0, err
	}

	if len(v) == 0 {
		return 0, nil
	}

	var result int64
	for i, val := range v {
		result |= int64(val) << uint8(8*i)
	}

	// When the most significant byte of the input bytes has the sign bit
	// set, the result is negative. So, remove the sign bit and negate
	// the result.
	if v[len(v)-1]&0x80 != 0 {
		result &= ^(int64(0x80) << uint8(8*(len(v)-1)))
		return scriptNum(-result), nil
	}

	return scriptNum(result), nil
}

// decodeBinaryScriptNum interprets v as a raw little-endian sign-magnitude
// integer without enforcing the minimal-encoding rule makeScriptNum applies.
// OP_BIN2NUM/OP_NUM2BIN operate on arbitrary-width binary data that a script
// may have built with OP_CAT or padded with OP_NUM2BIN itself, so rejecting
// non-minimal input here would defeat their purpose; only the 8-byte int64
// range is enforced.
func decodeBinaryScriptNum(v []byte) (scriptNum, error) {
	if len(v) > 8 {
		return 0, scriptError(ErrInvalidScriptNumber,
			fmt.Sprintf("binary value of %d bytes exceeds the 8-byte numeric range", len(v)))
	}
	if len(v) == 0 {
		return 0, nil
	}

	var result int64
	for i, val := range v {
		result |= int64(val) << uint8(8*i)
	}

	if v[len(v)-1]&0x80 != 0 {
		result &= ^(int64(0x80) << uint8(8*(len(v)-1)))
		return scriptNum(-result), nil
	}

	return scriptNum(result), nil
}

// Bytes returns the number serialized as a little endian with a sign bit.
//
// Example encodings:
//
//	 127 -> [0x7f]
//	-127 -> [0xff]
//	 128 -> [0x80 0x00]
//	-128 -> [0x80 0x80]
//	 129 -> [0x81 0x00]
//	-129 -> [0x81 0x80]
//	 256 -> [0x00 0x01]
//	-256 -> [0x00 0x81]
//	32767 -> [0xff 0x7f]
//	-32767 -> [0xff 0xff]
//	32768 -> [0x00 0x80 0x00]
//	-32768 -> [0x00 0x80 0x80]
func (n scriptNum) Bytes() []byte {
	// Zero encodes as an empty byte slice.
	if n == 0 {
		return nil
	}

	// Take the absolute value and keep track of whether it was originally
	// negative.
	isNegative := n < 0
	if isNegative {
		n = -n
	}

	// Encode to little endian. The maximum number of encoded bytes is 9
	// (8 bytes for max int64 plus a potential byte for the sign).
	result := make([]byte, 0, 9)
	for n > 0 {
		result = append(result, byte(n&0xff))
		n >>= 8
	}

	// When the most significant byte already has the high bit set, an
	// additional high byte is required to indicate whether the number is
	// negative or positive. The additional byte is removed when that is
	// not the case.
	if result[len(result)-1]&0x80 != 0 {
		extraByte := byte(0x00)
		if isNegative {
			extraByte = 0x80
		}
		result = append(result, extraByte)
	} else if isNegative {
		result[len(result)-1] |= 0x80
	}

	return result
}

// Int32 returns the script number clamped to the range of an int32. Note
// that this is INTENTIONALLY different from a straight conversion to
// guarantee that the value remains normalized into an int32 range.
func (n scriptNum) Int32() int32 {
	if n > maxInt32 {
		return maxInt32
	}

	if n < minInt32 {
		return minInt32
	}

	return int32(n)
}

const (
	maxInt32 = 1<<31 - 1
	minInt32 = -1 << 31
)
