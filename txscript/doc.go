// Copyright (c) 2013-2024 The bchd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package txscript implements the Bitcoin Cash script authentication language,
the stack-based virtual machine used to decide whether a spender's unlocking
script, together with the locking script of the output it spends and the
surrounding transaction context, authorizes a transfer.

# Overview

An AuthenticationProgram pairs an unlocking script and a locking script with
an ExternalState describing the spend (outpoint, sequence number, locktime,
and the precomputed transaction-wide hashes a signature check needs).
EvaluateAuthenticationProgram runs the unlocking script, carries its
resulting stack into the locking script, and — when the locking script is
the canonical Pay-to-Script-Hash shape — extracts and evaluates a third,
redeem script. IsValid reports whether the terminal ProgramState represents
authorization: no error occurred, and exactly one element, a truthy one,
remains on the stack.

DebugAuthenticationProgram runs the identical pipeline but returns the full
per-opcode trace of every phase entered, for diagnostic tooling such as
cmd/scriptdebug.

# Extensibility

The opcode dispatch table and the BCH_2019May InstructionSet are the only
concrete ruleset this package ships. Cryptographic primitives are supplied
through CryptoProviders rather than hardwired into the operator
implementations, so callers needing a different SHA-256, RIPEMD-160, or
secp256k1 backend may substitute one without touching the VM itself.
*/
package txscript
