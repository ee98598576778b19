// Copyright (c) 2013-2024 The bchd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"crypto/sha1"
	"fmt"
)

func opcodeCodeSeparator(providers CryptoProviders, cache *SigCache, state *ProgramState) *ProgramState {
	next := state.Clone()
	next.LastCodeSeparator = state.IP
	return next
}

func opcodeRipemd160(providers CryptoProviders, cache *SigCache, state *ProgramState) *ProgramState {
	next := state.Clone()
	elem, err := popElement(next)
	if err != nil {
		return ApplyError(state, err)
	}
	digest := providers.Ripemd160.Hash(elem)
	next.Stack = append(next.Stack, digest[:])
	return next
}

func opcodeSha1(providers CryptoProviders, cache *SigCache, state *ProgramState) *ProgramState {
	next := state.Clone()
	elem, err := popElement(next)
	if err != nil {
		return ApplyError(state, err)
	}
	digest := sha1.Sum(elem)
	next.Stack = append(next.Stack, digest[:])
	return next
}

func opcodeSha256(providers CryptoProviders, cache *SigCache, state *ProgramState) *ProgramState {
	next := state.Clone()
	elem, err := popElement(next)
	if err != nil {
		return ApplyError(state, err)
	}
	digest := providers.Sha256.Hash(elem)
	next.Stack = append(next.Stack, digest[:])
	return next
}

func opcodeHash160(providers CryptoProviders, cache *SigCache, state *ProgramState) *ProgramState {
	next := state.Clone()
	elem, err := popElement(next)
	if err != nil {
		return ApplyError(state, err)
	}
	next.Stack = append(next.Stack, hash160(providers, elem))
	return next
}

func opcodeHash256(providers CryptoProviders, cache *SigCache, state *ProgramState) *ProgramState {
	next := state.Clone()
	elem, err := popElement(next)
	if err != nil {
		return ApplyError(state, err)
	}
	next.Stack = append(next.Stack, hash256(providers, elem))
	return next
}

func opcodeCheckSig(providers CryptoProviders, cache *SigCache, state *ProgramState) *ProgramState {
	next := state.Clone()
	pubKeyBytes, err := popElement(next)
	if err != nil {
		return ApplyError(state, err)
	}
	sigWithHashType, err := popElement(next)
	if err != nil {
		return ApplyError(state, err)
	}

	sig, hashType, sigErr := CheckSignatureEncoding(sigWithHashType)
	if sigErr != nil {
		return ApplyError(state, sigErr)
	}
	if pkErr := CheckPublicKeyEncoding(pubKeyBytes); pkErr != nil {
		return ApplyError(state, pkErr)
	}

	scriptCode := scriptCodeFromLastCodeSeparator(next)
	digest := CalcSignatureDigest(next.External, scriptCode, hashType)

	sigBytes := sigWithHashType[:len(sigWithHashType)-1]
	valid := false
	if cache != nil && cache.Exists(digest, sigBytes, pubKeyBytes) {
		valid = true
	} else {
		valid = providers.Secp256k1.VerifyDERLowS(sig, pubKeyBytes, digest)
		if valid && cache != nil {
			cache.Add(digest, sigBytes, pubKeyBytes)
		}
	}

	pushBool(next, valid)
	return next
}

func opcodeCheckSigVerify(providers CryptoProviders, cache *SigCache, state *ProgramState) *ProgramState {
	next := opcodeCheckSig(providers, cache, state)
	if next.Err != nil {
		return next
	}
	elem, _ := popElement(next)
	return abstractVerify(next, isTruthy(elem), "OP_CHECKSIGVERIFY failed")
}

// opcodeCheckDataSig verifies a signature directly over the double-SHA256
// digest of caller-supplied message bytes, rather than a transaction
// preimage. It has no teacher grounding (the opcode is BCH-only) and is
// modeled on opcodeCheckSig's pop/validate/verify skeleton with the
// preimage-construction step removed.
func opcodeCheckDataSig(providers CryptoProviders, cache *SigCache, state *ProgramState) *ProgramState {
	next := state.Clone()
	pubKeyBytes, err := popElement(next)
	if err != nil {
		return ApplyError(state, err)
	}
	message, err := popElement(next)
	if err != nil {
		return ApplyError(state, err)
	}
	derSig, err := popElement(next)
	if err != nil {
		return ApplyError(state, err)
	}

	if sigErr := checkSignatureEncodingDER(derSig); sigErr != nil {
		return ApplyError(state, sigErr)
	}
	if pkErr := CheckPublicKeyEncoding(pubKeyBytes); pkErr != nil {
		return ApplyError(state, pkErr)
	}

	sig, parseErr := parseDERSignatureStrict(derSig)
	if parseErr != nil {
		return ApplyError(state, parseErr)
	}

	digestBytes := hash256(providers, message)
	var digest [32]byte
	copy(digest[:], digestBytes)

	valid := providers.Secp256k1.VerifyDERLowS(sig, pubKeyBytes, digest)
	pushBool(next, valid)
	return next
}

func opcodeCheckDataSigVerify(providers CryptoProviders, cache *SigCache, state *ProgramState) *ProgramState {
	next := opcodeCheckDataSig(providers, cache, state)
	if next.Err != nil {
		return next
	}
	elem, _ := popElement(next)
	return abstractVerify(next, isTruthy(elem), "OP_CHECKDATASIGVERIFY failed")
}

// maxMultisigPublicKeys is the largest public key count OP_CHECKMULTISIG
// accepts.
const maxMultisigPublicKeys = 20

func opcodeCheckMultiSig(providers CryptoProviders, cache *SigCache, state *ProgramState) *ProgramState {
	next := state.Clone()

	nElem, err := popElement(next)
	if err != nil {
		return ApplyError(state, err)
	}
	nNum, nerr := makeScriptNum(nElem, defaultScriptNumLen)
	if nerr != nil {
		return ApplyError(state, nerr.(*Error))
	}
	if nNum < 0 {
		return ApplyError(state, scriptError(ErrInvalidNaturalNumber,
			fmt.Sprintf("public key count %d must not be negative", nNum)))
	}
	if nNum > maxMultisigPublicKeys {
		return ApplyError(state, scriptError(ErrExceedsMaximumMultisigPublicKeyCount,
			fmt.Sprintf("public key count %d out of range", nNum)))
	}
	n := int(nNum)

	if err := requireDepth(next, n); err != nil {
		return ApplyError(state, err)
	}
	pubKeys := make([][]byte, n)
	for i := 0; i < n; i++ {
		pubKeys[n-1-i], err = popElement(next)
		if err != nil {
			return ApplyError(state, err)
		}
	}

	next.OperationCount += uint32(n)
	if next.OperationCount > maxOpsPerScript {
		return ApplyError(state, scriptError(ErrExceededMaximumOperationCount,
			"operation count exceeds the maximum allowed"))
	}

	mElem, err := popElement(next)
	if err != nil {
		return ApplyError(state, err)
	}
	mNum, merr := makeScriptNum(mElem, defaultScriptNumLen)
	if merr != nil {
		return ApplyError(state, merr.(*Error))
	}
	if mNum < 0 {
		return ApplyError(state, scriptError(ErrInvalidNaturalNumber,
			fmt.Sprintf("required signature count %d must not be negative", mNum)))
	}
	if int(mNum) > n {
		return ApplyError(state, scriptError(ErrInsufficientPublicKeys,
			fmt.Sprintf("required signature count %d exceeds public key count %d", mNum, n)))
	}
	m := int(mNum)

	if err := requireDepth(next, m); err != nil {
		return ApplyError(state, err)
	}
	sigs := make([][]byte, m)
	for i := 0; i < m; i++ {
		sigs[m-1-i], err = popElement(next)
		if err != nil {
			return ApplyError(state, err)
		}
	}

	dummy, err := popElement(next)
	if err != nil {
		return ApplyError(state, err)
	}
	if len(dummy) != 0 {
		return ApplyError(state, scriptError(ErrInvalidProtocolBugValue,
			"OP_CHECKMULTISIG dummy value must be empty"))
	}

	scriptCode := scriptCodeFromLastCodeSeparator(next)

	success := true
	sigIdx, keyIdx := 0, 0
	remainingSigs, remainingKeys := m, n
	for remainingSigs > 0 {
		if remainingKeys < remainingSigs {
			success = false
			break
		}

		sigWithHashType := sigs[sigIdx]
		pubKeyBytes := pubKeys[keyIdx]

		if len(sigWithHashType) == 0 {
			keyIdx++
			remainingKeys--
			continue
		}

		sig, hashType, sigErr := CheckSignatureEncoding(sigWithHashType)
		if sigErr != nil {
			return ApplyError(state, sigErr)
		}
		if pkErr := CheckPublicKeyEncoding(pubKeyBytes); pkErr != nil {
			return ApplyError(state, pkErr)
		}

		digest := CalcSignatureDigest(next.External, scriptCode, hashType)
		sigBytes := sigWithHashType[:len(sigWithHashType)-1]

		var valid bool
		if cache != nil && cache.Exists(digest, sigBytes, pubKeyBytes) {
			valid = true
		} else {
			valid = providers.Secp256k1.VerifyDERLowS(sig, pubKeyBytes, digest)
			if valid && cache != nil {
				cache.Add(digest, sigBytes, pubKeyBytes)
			}
		}

		if valid {
			sigIdx++
			remainingSigs--
		}
		keyIdx++
		remainingKeys--
	}

	pushBool(next, success)
	return next
}

func opcodeCheckMultiSigVerify(providers CryptoProviders, cache *SigCache, state *ProgramState) *ProgramState {
	next := opcodeCheckMultiSig(providers, cache, state)
	if next.Err != nil {
		return next
	}
	elem, _ := popElement(next)
	return abstractVerify(next, isTruthy(elem), "OP_CHECKMULTISIGVERIFY failed")
}

func registerCryptoOperators() {
	registerOperator(OP_RIPEMD160, &Operator{Asm: asmName, Description: constDesc("RIPEMD160 hash"), Operation: opcodeRipemd160})
	registerOperator(OP_SHA1, &Operator{Asm: asmName, Description: constDesc("SHA1 hash"), Operation: opcodeSha1})
	registerOperator(OP_SHA256, &Operator{Asm: asmName, Description: constDesc("SHA256 hash"), Operation: opcodeSha256})
	registerOperator(OP_HASH160, &Operator{Asm: asmName, Description: constDesc("RIPEMD160(SHA256(x))"), Operation: opcodeHash160})
	registerOperator(OP_HASH256, &Operator{Asm: asmName, Description: constDesc("SHA256(SHA256(x))"), Operation: opcodeHash256})
	registerOperator(OP_CODESEPARATOR, &Operator{Asm: asmName, Description: constDesc("mark signing-serialization boundary"), Operation: opcodeCodeSeparator})
	registerOperator(OP_CHECKSIG, &Operator{Asm: asmName, Description: constDesc("verify a transaction signature"), Operation: opcodeCheckSig})
	registerOperator(OP_CHECKSIGVERIFY, &Operator{Asm: asmName, Description: constDesc("verify a transaction signature, fail if false"), Operation: opcodeCheckSigVerify})
	registerOperator(OP_CHECKMULTISIG, &Operator{Asm: asmName, Description: constDesc("verify m-of-n transaction signatures"), Operation: opcodeCheckMultiSig})
	registerOperator(OP_CHECKMULTISIGVERIFY, &Operator{Asm: asmName, Description: constDesc("verify m-of-n transaction signatures, fail if false"), Operation: opcodeCheckMultiSigVerify})
	registerOperator(OP_CHECKDATASIG, &Operator{Asm: asmName, Description: constDesc("verify a signature over supplied data"), Operation: opcodeCheckDataSig})
	registerOperator(OP_CHECKDATASIGVERIFY, &Operator{Asm: asmName, Description: constDesc("verify a signature over supplied data, fail if false"), Operation: opcodeCheckDataSigVerify})
}
