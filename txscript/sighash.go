// Copyright (c) 2013-2024 The bchd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"bytes"
	"encoding/binary"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// putVarInt writes v into buf using Bitcoin's variable-length integer
// encoding.
func putVarInt(buf *bytes.Buffer, v uint64) {
	switch {
	case v < 0xfd:
		buf.WriteByte(byte(v))
	case v <= 0xffff:
		buf.WriteByte(0xfd)
		binary.Write(buf, binary.LittleEndian, uint16(v))
	case v <= 0xffffffff:
		buf.WriteByte(0xfe)
		binary.Write(buf, binary.LittleEndian, uint32(v))
	default:
		buf.WriteByte(0xff)
		binary.Write(buf, binary.LittleEndian, v)
	}
}

// zeroHash is reused whenever the signing serialization must commit to a
// zeroed 32-byte field instead of one of ExternalState's precomputed hashes.
var zeroHash chainhash.Hash

// BuildSigningSerialization constructs the BIP143-style preimage for the
// given external context, the scriptCode in force (everything after the
// most recent OP_CODESEPARATOR, trimmed but not yet length-prefixed — this
// function adds the varint length prefix itself), and the requested hash
// type. The result is the exact byte sequence that
// must be double-SHA256 hashed to obtain the digest passed to
// Secp256k1Verifier.
func BuildSigningSerialization(external ExternalState, scriptCode []byte, hashType SigHashType) []byte {
	var buf bytes.Buffer

	var versionBytes [4]byte
	binary.LittleEndian.PutUint32(versionBytes[:], external.Version)
	buf.Write(versionBytes[:])

	baseType := hashType & sigHashMask
	anyoneCanPay := hashType&SigHashAnyOneCanPay != 0

	hashPrevouts := external.TransactionOutpointsHash
	if anyoneCanPay {
		hashPrevouts = zeroHash
	}
	buf.Write(hashPrevouts[:])

	hashSequence := external.TransactionSequenceNumbersHash
	if anyoneCanPay || baseType != SigHashAll {
		hashSequence = zeroHash
	}
	buf.Write(hashSequence[:])

	buf.Write(external.OutpointTransactionHash[:])

	var outpointIndexBytes [4]byte
	binary.LittleEndian.PutUint32(outpointIndexBytes[:], external.OutpointIndex)
	buf.Write(outpointIndexBytes[:])

	putVarInt(&buf, uint64(len(scriptCode)))
	buf.Write(scriptCode)

	var valueBytes [8]byte
	binary.LittleEndian.PutUint64(valueBytes[:], external.OutpointValue)
	buf.Write(valueBytes[:])

	var sequenceBytes [4]byte
	binary.LittleEndian.PutUint32(sequenceBytes[:], external.SequenceNumber)
	buf.Write(sequenceBytes[:])

	var hashOutputs chainhash.Hash
	switch baseType {
	case SigHashAll:
		hashOutputs = external.TransactionOutputsHash
	case SigHashSingle:
		hashOutputs = external.CorrespondingOutputHash
	default:
		hashOutputs = zeroHash
	}
	buf.Write(hashOutputs[:])

	var lockTimeBytes [4]byte
	binary.LittleEndian.PutUint32(lockTimeBytes[:], external.LockTime)
	buf.Write(lockTimeBytes[:])

	var hashTypeBytes [4]byte
	binary.LittleEndian.PutUint32(hashTypeBytes[:], uint32(hashType))
	buf.Write(hashTypeBytes[:])

	return buf.Bytes()
}

// CalcSignatureDigest computes the double-SHA256 digest of the signing
// serialization of external/scriptCode/hashType, ready to pass to a
// Secp256k1Verifier.
func CalcSignatureDigest(external ExternalState, scriptCode []byte, hashType SigHashType) chainhash.Hash {
	preimage := BuildSigningSerialization(external, scriptCode, hashType)
	return chainhash.DoubleHashH(preimage)
}

// scriptCodeFromLastCodeSeparator returns the current script bytes after the
// most recently executed OP_CODESEPARATOR (or the whole script if none has
// executed), per spec.md's scriptCode rule shared by OP_CHECKSIG and
// OP_CHECKMULTISIG. The bytes are not length-prefixed;
// BuildSigningSerialization adds the varint prefix.
func scriptCodeFromLastCodeSeparator(state *ProgramState) []byte {
	start := state.LastCodeSeparator + 1
	if start < 0 {
		start = 0
	}
	if int(start) > len(state.Script) {
		return nil
	}
	return state.Script[start:]
}
