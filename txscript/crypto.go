// Copyright (c) 2013-2024 The bchd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"crypto/sha256"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"golang.org/x/crypto/ripemd160"
)

// Sha256Hasher computes the SHA-256 digest of a byte slice. It is safe to
// share a single implementation across concurrent evaluations.
type Sha256Hasher interface {
	Hash(data []byte) [32]byte
}

// Ripemd160Hasher computes the RIPEMD-160 digest of a byte slice. It is safe
// to share a single implementation across concurrent evaluations.
type Ripemd160Hasher interface {
	Hash(data []byte) [20]byte
}

// Secp256k1Verifier validates an ECDSA signature against a public key and a
// 32-byte message digest. It must return false, never an error, for
// valid-but-non-matching signatures; malformed signature or public key
// encodings are rejected earlier by CheckSignatureEncoding/
// CheckPublicKeyEncoding and should never reach an implementation of this
// interface.
type Secp256k1Verifier interface {
	VerifyDERLowS(signature *ecdsa.Signature, publicKey []byte, digest [32]byte) bool
}

// CryptoProviders bundles the three pluggable cryptographic collaborators an
// instruction set needs. Providers are supplied once at construction time
// and never mutated, matching the "no global state" design note.
type CryptoProviders struct {
	Sha256    Sha256Hasher
	Ripemd160 Ripemd160Hasher
	Secp256k1 Secp256k1Verifier
}

// DefaultCryptoProviders returns the standard BCH_2019May crypto providers:
// crypto/sha256, golang.org/x/crypto/ripemd160, and btcec/v2 for DER/low-S
// ECDSA verification.
func DefaultCryptoProviders() CryptoProviders {
	return CryptoProviders{
		Sha256:    sha256Hasher{},
		Ripemd160: ripemd160Hasher{},
		Secp256k1: secp256k1Verifier{},
	}
}

type sha256Hasher struct{}

func (sha256Hasher) Hash(data []byte) [32]byte {
	return sha256.Sum256(data)
}

type ripemd160Hasher struct{}

func (ripemd160Hasher) Hash(data []byte) [20]byte {
	h := ripemd160.New()
	h.Write(data)
	var out [20]byte
	copy(out[:], h.Sum(nil))
	return out
}

type secp256k1Verifier struct{}

func (secp256k1Verifier) VerifyDERLowS(signature *ecdsa.Signature, publicKey []byte, digest [32]byte) bool {
	pubKey, err := btcec.ParsePubKey(publicKey)
	if err != nil {
		return false
	}
	return signature.Verify(digest[:], pubKey)
}

// hash160 computes RIPEMD160(SHA256(data)) using the supplied providers,
// matching OP_HASH160's definition.
func hash160(providers CryptoProviders, data []byte) []byte {
	sha := providers.Sha256.Hash(data)
	ripe := providers.Ripemd160.Hash(sha[:])
	return ripe[:]
}

// hash256 computes SHA256(SHA256(data)) using the supplied providers,
// matching OP_HASH256's definition.
func hash256(providers CryptoProviders, data []byte) []byte {
	first := providers.Sha256.Hash(data)
	second := providers.Sha256.Hash(first[:])
	return second[:]
}
