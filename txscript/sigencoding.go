// Copyright (c) 2013-2024 The bchd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"fmt"
	"math/big"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
)

// SigHashType represents hash type bits at the end of a signature.
type SigHashType uint32

// Hash type bits from the end of a signature.
const (
	SigHashAll          SigHashType = 0x1
	SigHashNone         SigHashType = 0x2
	SigHashSingle       SigHashType = 0x3
	SigHashForkID       SigHashType = 0x40
	SigHashAnyOneCanPay SigHashType = 0x80

	// sigHashMask defines the number of bits of the hash type which are
	// used to identify which outputs are signed.
	sigHashMask = 0x1f
)

// halfOrder is used to tame ECDSA malleability (see BIP0062).
var halfOrder = new(big.Int).Rsh(btcec.S256().N, 1)

// CheckPublicKeyEncoding returns invalidPublicKeyEncoding unless pubKey is
// either a 33-byte compressed (leading 0x02/0x03) or 65-byte uncompressed
// (leading 0x04) SEC-encoded public key.
func CheckPublicKeyEncoding(pubKey []byte) *Error {
	switch {
	case len(pubKey) == 33 && (pubKey[0] == 0x02 || pubKey[0] == 0x03):
		return nil
	case len(pubKey) == 65 && pubKey[0] == 0x04:
		return nil
	}
	return scriptError(ErrInvalidPublicKeyEncoding,
		fmt.Sprintf("unsupported public key length of %d", len(pubKey)))
}

// checkHashTypeEncoding validates that hashType is one of the recognized
// SIGHASH flags combined with the mandatory BCH fork-id bit.
func checkHashTypeEncoding(hashType SigHashType) *Error {
	if hashType&SigHashForkID == 0 {
		return scriptError(ErrInvalidSignatureEncoding,
			"signature does not carry the mandatory fork-id bit")
	}

	masked := hashType &^ (SigHashForkID | SigHashAnyOneCanPay)
	switch masked {
	case SigHashAll, SigHashNone, SigHashSingle:
		return nil
	}
	return scriptError(ErrInvalidSignatureEncoding,
		fmt.Sprintf("invalid hash type 0x%x", uint32(hashType)))
}

// checkSignatureEncodingDER validates the strict DER shape of a signature
// (not including the trailing hash-type byte): a single SEQUENCE tag
// wrapping two INTEGER components, no superfluous padding, no negative
// components, and the overall length matching the declared lengths exactly.
func checkSignatureEncodingDER(sig []byte) *Error {
	const (
		sequenceOffset   = 0
		sequenceIDOffset = 1
		rTagOffset       = 2
		rLenOffset       = 3
		rOffset          = 4
	)

	tooShort := func() *Error {
		return scriptError(ErrInvalidSignatureEncoding,
			fmt.Sprintf("malformed signature: too short: %d", len(sig)))
	}

	if len(sig) < 8 {
		return tooShort()
	}
	if len(sig) > 72 {
		return scriptError(ErrInvalidSignatureEncoding,
			fmt.Sprintf("malformed signature: too long: %d", len(sig)))
	}
	if sig[sequenceOffset] != 0x30 {
		return scriptError(ErrInvalidSignatureEncoding,
			"malformed signature: format has wrong type")
	}
	if int(sig[sequenceIDOffset]) != len(sig)-2 {
		return scriptError(ErrInvalidSignatureEncoding,
			"malformed signature: bad length")
	}

	rLen := int(sig[rLenOffset])
	if rOffset+rLen >= len(sig) {
		return scriptError(ErrInvalidSignatureEncoding,
			"malformed signature: S type indicator missing")
	}

	sTypeOffset := rOffset + rLen
	if sig[sTypeOffset] != 0x02 {
		return scriptError(ErrInvalidSignatureEncoding,
			"malformed signature: S type indicator missing")
	}

	sLenOffset := sTypeOffset + 1
	if sLenOffset >= len(sig) {
		return scriptError(ErrInvalidSignatureEncoding,
			"malformed signature: S length missing")
	}

	sLen := int(sig[sLenOffset])
	sOffset := sLenOffset + 1
	if sOffset+sLen != len(sig) {
		return scriptError(ErrInvalidSignatureEncoding,
			"malformed signature: invalid S length")
	}
	if sig[rTagOffset] != 0x02 {
		return scriptError(ErrInvalidSignatureEncoding,
			"malformed signature: R integer marker missing")
	}
	if rLen == 0 {
		return scriptError(ErrInvalidSignatureEncoding,
			"malformed signature: R length is zero")
	}
	if sig[rOffset]&0x80 != 0 {
		return scriptError(ErrInvalidSignatureEncoding,
			"malformed signature: R value is negative")
	}
	if rLen > 1 && sig[rOffset] == 0 && sig[rOffset+1]&0x80 == 0 {
		return scriptError(ErrInvalidSignatureEncoding,
			"malformed signature: R value has excessive padding")
	}
	if sLen == 0 {
		return scriptError(ErrInvalidSignatureEncoding,
			"malformed signature: S length is zero")
	}
	if sig[sOffset]&0x80 != 0 {
		return scriptError(ErrInvalidSignatureEncoding,
			"malformed signature: S value is negative")
	}
	if sLen > 1 && sig[sOffset] == 0 && sig[sOffset+1]&0x80 == 0 {
		return scriptError(ErrInvalidSignatureEncoding,
			"malformed signature: S value has excessive padding")
	}

	sValue := new(big.Int).SetBytes(sig[sOffset : sOffset+sLen])
	if sValue.Cmp(halfOrder) > 0 {
		return scriptError(ErrInvalidSignatureEncoding,
			"signature is not canonical due to unnecessarily high S value")
	}

	return nil
}

// CheckSignatureEncoding validates that sigWithHashType, a full Bitcoin-style
// signature (DER signature concatenated with a trailing one-byte hash type),
// satisfies the DER shape, low-S, and recognized-hash-type rules. It returns
// the parsed signature and the hash type on success.
func CheckSignatureEncoding(sigWithHashType []byte) (*ecdsa.Signature, SigHashType, *Error) {
	if len(sigWithHashType) < 1 {
		return nil, 0, scriptError(ErrInvalidSignatureEncoding,
			"signature is empty")
	}

	hashType := SigHashType(sigWithHashType[len(sigWithHashType)-1])
	sigBytes := sigWithHashType[:len(sigWithHashType)-1]

	if err := checkHashTypeEncoding(hashType); err != nil {
		return nil, 0, err
	}
	if err := checkSignatureEncodingDER(sigBytes); err != nil {
		return nil, 0, err
	}

	sig, err := ecdsa.ParseDERSignature(sigBytes)
	if err != nil {
		return nil, 0, scriptError(ErrInvalidSignatureEncoding,
			fmt.Sprintf("unable to parse signature: %v", err))
	}

	return sig, hashType, nil
}

// parseDERSignatureStrict parses a bare DER signature (no trailing hash-type
// byte), as used by OP_CHECKDATASIG, which has no hash-type flag.
func parseDERSignatureStrict(sigBytes []byte) (*ecdsa.Signature, *Error) {
	if err := checkSignatureEncodingDER(sigBytes); err != nil {
		return nil, err
	}
	sig, err := ecdsa.ParseDERSignature(sigBytes)
	if err != nil {
		return nil, scriptError(ErrInvalidSignatureEncoding,
			fmt.Sprintf("unable to parse signature: %v", err))
	}
	return sig, nil
}
