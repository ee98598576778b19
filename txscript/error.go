// Copyright (c) 2013-2024 The bchd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import "fmt"

// ErrorCode identifies a kind of script error. The set is closed: every
// failure the engine can produce is one of these values.
type ErrorCode int

const (
	// ErrEmptyStack indicates an operator popped from an empty stack.
	ErrEmptyStack ErrorCode = iota

	// ErrInvalidScriptNumber indicates a non-minimal or over-length
	// script number encoding was decoded.
	ErrInvalidScriptNumber

	// ErrInvalidPublicKeyEncoding indicates a public key was neither
	// 33-byte compressed nor 65-byte uncompressed.
	ErrInvalidPublicKeyEncoding

	// ErrInvalidSignatureEncoding indicates a signature failed DER
	// shape, low-S, or hash-type validation.
	ErrInvalidSignatureEncoding

	// ErrInvalidNaturalNumber indicates a count argument (multisig n/m)
	// fell outside its natural-number range.
	ErrInvalidNaturalNumber

	// ErrMalformedPush indicates a push operator's stated length ran
	// past the end of the script.
	ErrMalformedPush

	// ErrNonMinimalPush indicates a push operator used a longer than
	// necessary encoding for its payload.
	ErrNonMinimalPush

	// ErrExceedsMaximumPush indicates a push payload exceeded the
	// maximum stack element size.
	ErrExceedsMaximumPush

	// ErrInsufficientPublicKeys indicates OP_CHECKMULTISIG's required
	// signature count exceeded its public key count.
	ErrInsufficientPublicKeys

	// ErrExceedsMaximumMultisigPublicKeyCount indicates OP_CHECKMULTISIG's
	// public key count exceeded the maximum allowed.
	ErrExceedsMaximumMultisigPublicKeyCount

	// ErrInvalidProtocolBugValue indicates OP_CHECKMULTISIG's dummy
	// stack element was non-empty.
	ErrInvalidProtocolBugValue

	// ErrExceededMaximumOperationCount indicates the per-script
	// operation counter exceeded its limit.
	ErrExceededMaximumOperationCount

	// ErrUnknownOpcode indicates dispatch found no operator entry for
	// the opcode byte.
	ErrUnknownOpcode

	// ErrDisabledOpcode indicates dispatch found an operator entry
	// explicitly marked disabled under the active ruleset.
	ErrDisabledOpcode

	// ErrP2SHPushOnly indicates a P2SH unlocking script contained an
	// opcode other than a data push.
	ErrP2SHPushOnly

	// ErrP2SHEmptyStack indicates a P2SH unlocking script left an empty
	// stack with no redeem script to pop.
	ErrP2SHEmptyStack

	// ErrUnbalancedConditional indicates a script ended with an
	// unterminated OP_IF/OP_NOTIF.
	ErrUnbalancedConditional

	// ErrVerifyFailed indicates OP_VERIFY/OP_EQUALVERIFY/OP_CHECKSIGVERIFY
	// (or another *VERIFY variant) popped a falsy value.
	ErrVerifyFailed
)

// errorCodeStrings is used by (ErrorCode).String.
var errorCodeStrings = map[ErrorCode]string{
	ErrEmptyStack:                            "ErrEmptyStack",
	ErrInvalidScriptNumber:                   "ErrInvalidScriptNumber",
	ErrInvalidPublicKeyEncoding:               "ErrInvalidPublicKeyEncoding",
	ErrInvalidSignatureEncoding:               "ErrInvalidSignatureEncoding",
	ErrInvalidNaturalNumber:                  "ErrInvalidNaturalNumber",
	ErrMalformedPush:                         "ErrMalformedPush",
	ErrNonMinimalPush:                        "ErrNonMinimalPush",
	ErrExceedsMaximumPush:                    "ErrExceedsMaximumPush",
	ErrInsufficientPublicKeys:                "ErrInsufficientPublicKeys",
	ErrExceedsMaximumMultisigPublicKeyCount:  "ErrExceedsMaximumMultisigPublicKeyCount",
	ErrInvalidProtocolBugValue:               "ErrInvalidProtocolBugValue",
	ErrExceededMaximumOperationCount:         "ErrExceededMaximumOperationCount",
	ErrUnknownOpcode:                         "ErrUnknownOpcode",
	ErrDisabledOpcode:                        "ErrDisabledOpcode",
	ErrP2SHPushOnly:                          "ErrP2SHPushOnly",
	ErrP2SHEmptyStack:                        "ErrP2SHEmptyStack",
	ErrUnbalancedConditional:                 "ErrUnbalancedConditional",
	ErrVerifyFailed:                          "ErrVerifyFailed",
}

// String returns the ErrorCode as a human readable name.
func (e ErrorCode) String() string {
	if s, ok := errorCodeStrings[e]; ok {
		return s
	}
	return fmt.Sprintf("ErrorCode(%d)", int(e))
}

// Error identifies an error encountered while evaluating a script. It
// carries both the closed ErrorCode and a free-form description used only
// for diagnostics; callers that need to branch on failure kind must switch
// on Code, never on the Description string.
type Error struct {
	Code        ErrorCode
	Description string
}

// Error satisfies the error interface.
func (e Error) Error() string {
	return e.Description
}

// scriptError creates an Error given a set of arguments.
func scriptError(c ErrorCode, desc string) *Error {
	return &Error{Code: c, Description: desc}
}
