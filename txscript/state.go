// Copyright (c) 2013-2024 The bchd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import "github.com/btcsuite/btcd/chaincfg/chainhash"

// maxStackSize is the maximum combined depth of the stack and alt stack.
const maxStackSize = 1000

// maxScriptElementSize is the maximum allowed length of a single stack
// element, including values that are pushed by the script as well as
// values used as inputs to operators.
const maxScriptElementSize = 520

// maxOpsPerScript is the maximum number of operations, data pushes included,
// that may be executed while evaluating a single script (plus the n public keys
// consumed by OP_CHECKMULTISIG, each of which counts against this limit).
const maxOpsPerScript = 201

// ExternalState is the immutable transaction context an AuthenticationProgram
// is evaluated against. Every field is supplied by the caller; the engine
// never derives these values from a raw transaction, since transaction-graph
// construction is outside the engine's scope.
type ExternalState struct {
	// Version is the transaction version.
	Version uint32

	// TransactionOutpointsHash is the BIP143-style hash of every input's
	// outpoint (txid || index) across the whole transaction.
	TransactionOutpointsHash chainhash.Hash

	// TransactionSequenceNumbersHash is the BIP143-style hash of every
	// input's sequence number across the whole transaction.
	TransactionSequenceNumbersHash chainhash.Hash

	// OutpointTransactionHash is the txid of the outpoint being spent by
	// the input under evaluation.
	OutpointTransactionHash chainhash.Hash

	// CorrespondingOutputHash is the hash of the single output at the
	// same index as the input under evaluation, used only for
	// SIGHASH_SINGLE. It is the caller's responsibility to populate this
	// with a zero hash when no output exists at that index.
	CorrespondingOutputHash chainhash.Hash

	// TransactionOutputsHash is the BIP143-style hash of every output
	// across the whole transaction, used for SIGHASH_ALL.
	TransactionOutputsHash chainhash.Hash

	// OutpointIndex is the index of the outpoint being spent by the
	// input under evaluation.
	OutpointIndex uint32

	// OutpointValue is the amount, in satoshis, of the outpoint being
	// spent.
	OutpointValue uint64

	// SequenceNumber is the sequence number of the input under
	// evaluation.
	SequenceNumber uint32

	// LockTime is the transaction's locktime.
	LockTime uint32

	// BlockHeight is the height of the block the evaluation is being
	// performed in the context of. No operator reads it;
	// OP_CHECKLOCKTIMEVERIFY compares against LockTime.
	BlockHeight uint32

	// BlockTime is the median-time-past of the block the evaluation is
	// being performed in the context of.
	BlockTime uint32
}

// condBranch is the tri-state value tracked per nesting level of
// OP_IF/OP_NOTIF/OP_ELSE/OP_ENDIF.
type condBranch int

const (
	// condFalse marks a branch whose guard evaluated false; its body is
	// skipped but re-enters execution on a matching OP_ELSE.
	condFalse condBranch = 0

	// condTrue marks a branch whose guard evaluated true; its body
	// executes normally.
	condTrue condBranch = 1

	// condSkip marks a branch nested inside an already-skipped branch;
	// it is never executed regardless of its own guard or an OP_ELSE.
	condSkip condBranch = 2
)

// ProgramState is the mutable state threaded through evaluation of a single
// script. A ProgramState is owned exclusively by the evaluator frame that
// produced it; the debug driver takes independent deep copies via Clone.
type ProgramState struct {
	// External is the immutable transaction context supplied at program
	// construction.
	External ExternalState

	// Script is the byte stream currently being evaluated.
	Script []byte

	// IP is the instruction pointer. It is initialized to -1 so the
	// first Before call advances it to 0.
	IP int32

	// LastCodeSeparator is the index of the most recently executed
	// OP_CODESEPARATOR, or -1 if none has executed in this script.
	LastCodeSeparator int32

	// OperationCount is the running count of operations executed, data
	// pushes included (and, for OP_CHECKMULTISIG, public keys consumed).
	OperationCount uint32

	// Operations is the ordered sequence of opcode bytes dispatched so
	// far, used by the P2SH phase to detect non-push unlocking scripts.
	Operations []byte

	// Stack is the main data stack.
	Stack [][]byte

	// AltStack is the auxiliary stack used by OP_TOALTSTACK/OP_FROMALTSTACK.
	AltStack [][]byte

	// CondStack tracks nested conditional branches; it is empty outside
	// any OP_IF/OP_NOTIF block.
	CondStack []condBranch

	// Err is nil while the program may still make progress, and set to
	// a terminal failure once any operator or pipeline check fails.
	Err *Error
}

// NewProgramState constructs the initial state for evaluating script against
// external, with an empty stack and no alt stack.
func NewProgramState(script []byte, external ExternalState) *ProgramState {
	return &ProgramState{
		External:          external,
		Script:            script,
		IP:                -1,
		LastCodeSeparator: -1,
	}
}

// Clone returns an independent deep copy of state, suitable for retaining as
// a debug snapshot across further mutation of the original.
func (state *ProgramState) Clone() *ProgramState {
	clone := &ProgramState{
		External:          state.External,
		Script:            append([]byte(nil), state.Script...),
		IP:                state.IP,
		LastCodeSeparator: state.LastCodeSeparator,
		OperationCount:    state.OperationCount,
		Operations:        append([]byte(nil), state.Operations...),
	}
	if state.Err != nil {
		errCopy := *state.Err
		clone.Err = &errCopy
	}
	clone.Stack = cloneElements(state.Stack)
	clone.AltStack = cloneElements(state.AltStack)
	if state.CondStack != nil {
		clone.CondStack = append([]condBranch(nil), state.CondStack...)
	}
	return clone
}

// cloneElements deep copies a slice of stack elements.
func cloneElements(elems [][]byte) [][]byte {
	if elems == nil {
		return nil
	}
	out := make([][]byte, len(elems))
	for i, e := range elems {
		out[i] = append([]byte(nil), e...)
	}
	return out
}

// ApplyError returns a copy of state with Err set to kind, leaving every
// other field intact so the debugger can inspect the state at the point of
// failure. Per the engine's single open-question resolution, this is the
// only way Err transitions from nil to non-nil; once set, no operator may
// clear it.
func ApplyError(state *ProgramState, err *Error) *ProgramState {
	next := state.Clone()
	next.Err = err
	return next
}

// booleanToScriptNumber encodes b as the canonical script-number truth
// value: the single byte 0x01 for true, or the empty element for false.
func booleanToScriptNumber(b bool) []byte {
	if b {
		return []byte{0x01}
	}
	return nil
}

// isTruthy reports whether element is a truthy stack value: any byte
// sequence other than all-zero (optionally with a single trailing 0x80
// "negative zero" byte).
func isTruthy(element []byte) bool {
	for i, b := range element {
		if b != 0 {
			if i == len(element)-1 && b == 0x80 {
				return false
			}
			return true
		}
	}
	return false
}
