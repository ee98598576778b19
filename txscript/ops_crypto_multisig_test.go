// Copyright (c) 2013-2024 The bchd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
)

// buildCheckMultiSigState assembles an engine with the standard
// OP_CHECKMULTISIG stack layout already pushed: an empty dummy, m
// signatures (bottom to top, matching the order of the keys they're meant
// to satisfy), n public keys, then the counts m and n. An OP_CODESEPARATOR
// right before OP_CHECKMULTISIG makes the script code that signatures commit
// to exactly {OP_CHECKMULTISIG}. It runs the whole script through the engine
// rather than poking at the stack directly, which exercises the real opcode
// dispatch path (push ops included).
func buildCheckMultiSigState(t *testing.T, external ExternalState, sigs [][]byte, pubKeys [][]byte, m int) *ProgramState {
	t.Helper()
	builder := NewScriptBuilder().AddOp(OP_0)
	for _, sig := range sigs {
		builder = builder.AddData(sig)
	}
	builder = builder.AddInt64(int64(m))
	for _, pubKey := range pubKeys {
		builder = builder.AddData(pubKey)
	}
	builder = builder.AddInt64(int64(len(pubKeys))).AddOp(OP_CODESEPARATOR).AddOp(OP_CHECKMULTISIG)
	script, err := builder.Script()
	if err != nil {
		t.Fatalf("building script: %v", err)
	}

	engine := NewEngine(NewBCH2019InstructionSet(DefaultCryptoProviders(), NewSigCache(10)))
	return engine.Evaluate(NewProgramState(script, external))
}

func signForMultisig(t *testing.T, external ExternalState, scriptCode []byte, priv *btcec.PrivateKey) []byte {
	t.Helper()
	digest := CalcSignatureDigest(external, scriptCode, SigHashAll|SigHashForkID)
	sig := ecdsa.Sign(priv, digest[:])
	return append(sig.Serialize(), byte(SigHashAll|SigHashForkID))
}

func TestCheckMultiSigInOrderSuccess(t *testing.T) {
	external := testExternalState()
	keys := make([]*btcec.PrivateKey, 3)
	pubKeys := make([][]byte, 3)
	for i := range keys {
		priv, err := btcec.NewPrivateKey()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		keys[i] = priv
		pubKeys[i] = priv.PubKey().SerializeCompressed()
	}

	// OP_CHECKMULTISIG verifies against the script bytes after the last
	// OP_CODESEPARATOR; buildCheckMultiSigState places one right before it,
	// so the signatures must commit to exactly that one opcode byte.
	scriptCode := []byte{OP_CHECKMULTISIG}
	sigs := [][]byte{
		signForMultisig(t, external, scriptCode, keys[0]),
		signForMultisig(t, external, scriptCode, keys[1]),
	}

	state := buildCheckMultiSigState(t, external, sigs, pubKeys, 2)
	if state.Err != nil {
		t.Fatalf("unexpected error: %v", state.Err)
	}
	if len(state.Stack) != 1 || !isTruthy(state.Stack[0]) {
		t.Fatalf("expected CHECKMULTISIG to succeed, got stack %x", state.Stack)
	}
}

// TestCheckMultiSigOutOfOrderFails covers the standard multisig invariant
// that signatures must appear in the same relative order as the public keys
// they satisfy; presenting them out of order must fail closed, not error.
func TestCheckMultiSigOutOfOrderFails(t *testing.T) {
	external := testExternalState()
	keys := make([]*btcec.PrivateKey, 2)
	pubKeys := make([][]byte, 2)
	for i := range keys {
		priv, err := btcec.NewPrivateKey()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		keys[i] = priv
		pubKeys[i] = priv.PubKey().SerializeCompressed()
	}

	scriptCode := []byte{OP_CHECKMULTISIG}
	// Present key[1]'s signature before key[0]'s, reversed from pubKeys order.
	sigs := [][]byte{
		signForMultisig(t, external, scriptCode, keys[1]),
		signForMultisig(t, external, scriptCode, keys[0]),
	}

	state := buildCheckMultiSigState(t, external, sigs, pubKeys, 2)
	if state.Err != nil {
		t.Fatalf("unexpected error: %v", state.Err)
	}
	if len(state.Stack) != 1 || isTruthy(state.Stack[0]) {
		t.Fatalf("expected CHECKMULTISIG to fail closed for out-of-order signatures, got stack %x", state.Stack)
	}
}

func TestCheckMultiSigInsufficientPublicKeys(t *testing.T) {
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pubKey := priv.PubKey().SerializeCompressed()
	external := testExternalState()
	sig := signForMultisig(t, external, nil, priv)

	// Require 2 signatures against only 1 available public key.
	state := buildCheckMultiSigState(t, external, [][]byte{sig}, [][]byte{pubKey}, 2)
	if state.Err == nil || state.Err.Code != ErrInsufficientPublicKeys {
		t.Fatalf("got error %v, want ErrInsufficientPublicKeys", state.Err)
	}
}

func TestCheckMultiSigExcessPublicKeyCountRejected(t *testing.T) {
	builder := NewScriptBuilder().AddOp(OP_0).AddInt64(0).AddInt64(maxMultisigPublicKeys + 1).AddOp(OP_CHECKMULTISIG)
	script, err := builder.Script()
	if err != nil {
		t.Fatalf("building script: %v", err)
	}

	engine := NewEngine(NewBCH2019InstructionSet(DefaultCryptoProviders(), NewSigCache(10)))
	state := engine.Evaluate(NewProgramState(script, ExternalState{}))
	if state.Err == nil || state.Err.Code != ErrExceedsMaximumMultisigPublicKeyCount {
		t.Fatalf("got error %v, want ErrExceedsMaximumMultisigPublicKeyCount", state.Err)
	}
}

// TestCheckMultiSigSkipsEmptySignaturePlaceholders covers the common
// "OP_0 <sig2>" pattern used to submit a partially-signed multisig: an empty
// signature element at a given position simply skips that public key
// instead of erroring.
func TestCheckMultiSigSkipsEmptySignaturePlaceholders(t *testing.T) {
	external := testExternalState()
	keys := make([]*btcec.PrivateKey, 2)
	pubKeys := make([][]byte, 2)
	for i := range keys {
		priv, err := btcec.NewPrivateKey()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		keys[i] = priv
		pubKeys[i] = priv.PubKey().SerializeCompressed()
	}

	sig := signForMultisig(t, external, nil, keys[1])
	// An empty placeholder for key[0], then key[1]'s real signature: the
	// dummy-free stack layout requires m == len(sigs), so m=2 here with one
	// slot left empty.
	sigs := [][]byte{{}, sig}

	state := buildCheckMultiSigState(t, external, sigs, pubKeys, 2)
	if state.Err != nil {
		t.Fatalf("unexpected error: %v", state.Err)
	}
	if len(state.Stack) != 1 || isTruthy(state.Stack[0]) {
		t.Fatalf("expected CHECKMULTISIG to fail when a required slot is left empty, got stack %x", state.Stack)
	}
}
