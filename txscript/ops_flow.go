// Copyright (c) 2013-2024 The bchd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import "fmt"

// popElement pops and returns the top stack element, or emptyStack if the
// stack has nothing to pop.
func popElement(state *ProgramState) ([]byte, *Error) {
	n := len(state.Stack)
	if n == 0 {
		return nil, scriptError(ErrEmptyStack, "stack is empty")
	}
	elem := state.Stack[n-1]
	state.Stack = state.Stack[:n-1]
	return elem, nil
}

// peekElement returns the stack element depthFromTop positions below the top
// (0 is the top) without popping it.
func peekElement(state *ProgramState, depthFromTop int) ([]byte, *Error) {
	n := len(state.Stack)
	if depthFromTop >= n {
		return nil, scriptError(ErrEmptyStack, "stack does not have enough elements")
	}
	return state.Stack[n-1-depthFromTop], nil
}

// isBranchExecuting reports whether the current conditional nesting level
// is in a branch whose body should execute.
func isBranchExecuting(state *ProgramState) bool {
	for _, c := range state.CondStack {
		if c != condTrue {
			return false
		}
	}
	return true
}

// isOpcodeConditional reports whether op is one of the conditional-flow
// opcodes that must always execute, even inside a non-taken branch, so
// nesting can be tracked and closed correctly.
func isOpcodeConditional(op byte) bool {
	switch op {
	case OP_IF, OP_NOTIF, OP_ELSE, OP_ENDIF:
		return true
	default:
		return false
	}
}

func opcodeNop(providers CryptoProviders, cache *SigCache, state *ProgramState) *ProgramState {
	return state.Clone()
}

func opcodeIf(providers CryptoProviders, cache *SigCache, state *ProgramState) *ProgramState {
	next := state.Clone()

	cond := condSkip
	if isBranchExecuting(state) {
		elem, err := popElement(next)
		if err != nil {
			return ApplyError(state, err)
		}
		truthy := isTruthy(elem)
		if state.Script[state.IP] == OP_NOTIF {
			truthy = !truthy
		}
		if truthy {
			cond = condTrue
		} else {
			cond = condFalse
		}
	}
	next.CondStack = append(next.CondStack, cond)
	return next
}

func opcodeElse(providers CryptoProviders, cache *SigCache, state *ProgramState) *ProgramState {
	if len(state.CondStack) == 0 {
		return ApplyError(state, scriptError(ErrUnbalancedConditional,
			"encountered OP_ELSE with no matching OP_IF"))
	}

	next := state.Clone()
	top := len(next.CondStack) - 1
	switch next.CondStack[top] {
	case condTrue:
		next.CondStack[top] = condFalse
	case condFalse:
		next.CondStack[top] = condTrue
	case condSkip:
		// remains condSkip
	}
	return next
}

func opcodeEndif(providers CryptoProviders, cache *SigCache, state *ProgramState) *ProgramState {
	if len(state.CondStack) == 0 {
		return ApplyError(state, scriptError(ErrUnbalancedConditional,
			"encountered OP_ENDIF with no matching OP_IF"))
	}

	next := state.Clone()
	next.CondStack = next.CondStack[:len(next.CondStack)-1]
	return next
}

func abstractVerify(state *ProgramState, truthy bool, failMsg string) *ProgramState {
	if !truthy {
		return ApplyError(state, scriptError(ErrVerifyFailed, failMsg))
	}
	return state.Clone()
}

func opcodeVerify(providers CryptoProviders, cache *SigCache, state *ProgramState) *ProgramState {
	next := state.Clone()
	elem, err := popElement(next)
	if err != nil {
		return ApplyError(state, err)
	}
	return abstractVerify(next, isTruthy(elem), "OP_VERIFY failed")
}

func opcodeReturn(providers CryptoProviders, cache *SigCache, state *ProgramState) *ProgramState {
	return ApplyError(state, scriptError(ErrVerifyFailed, "script returned early via OP_RETURN"))
}

func registerFlowOperators() {
	registerOperator(OP_NOP, &Operator{Asm: asmName, Description: constDesc("no operation"), Operation: opcodeNop})
	registerOperator(OP_IF, &Operator{Asm: asmName, Description: constDesc("branch if top of stack is truthy"), Operation: opcodeIf})
	registerOperator(OP_NOTIF, &Operator{Asm: asmName, Description: constDesc("branch if top of stack is falsy"), Operation: opcodeIf})
	registerOperator(OP_ELSE, &Operator{Asm: asmName, Description: constDesc("invert the active conditional branch"), Operation: opcodeElse})
	registerOperator(OP_ENDIF, &Operator{Asm: asmName, Description: constDesc("close the active conditional branch"), Operation: opcodeEndif})
	registerOperator(OP_VERIFY, &Operator{Asm: asmName, Description: constDesc("fail unless top of stack is truthy"), Operation: opcodeVerify})
	registerOperator(OP_RETURN, &Operator{Asm: asmName, Description: constDesc("fail unconditionally"), Operation: opcodeReturn})

	for _, nop := range []byte{OP_NOP1, OP_NOP4, OP_NOP5, OP_NOP6, OP_NOP7, OP_NOP8, OP_NOP9, OP_NOP10} {
		registerOperator(nop, &Operator{Asm: asmName, Description: constDesc("reserved no-op"), Operation: opcodeNop})
	}

	registerOperator(OP_CHECKLOCKTIMEVERIFY, &Operator{Asm: asmName, Description: constDesc("verify transaction locktime"), Operation: opcodeCheckLockTimeVerify})
	registerOperator(OP_CHECKSEQUENCEVERIFY, &Operator{Asm: asmName, Description: constDesc("verify input sequence number"), Operation: opcodeCheckSequenceVerify})
}

// constDesc wraps a fixed string as the Operator.Description function
// signature requires.
func constDesc(s string) func(*ProgramState) string {
	return func(*ProgramState) string { return s }
}

func opcodeCheckLockTimeVerify(providers CryptoProviders, cache *SigCache, state *ProgramState) *ProgramState {
	elem, err := peekElement(state, 0)
	if err != nil {
		return ApplyError(state, err)
	}
	lockTime, nerr := makeScriptNum(elem, 5)
	if nerr != nil {
		return ApplyError(state, nerr.(*Error))
	}
	if lockTime < 0 {
		return ApplyError(state, scriptError(ErrInvalidNaturalNumber, "negative locktime"))
	}

	const lockTimeThreshold = 500000000
	scriptIsSeconds := int64(lockTime) >= lockTimeThreshold
	txIsSeconds := state.External.LockTime >= lockTimeThreshold
	if scriptIsSeconds != txIsSeconds {
		return ApplyError(state, scriptError(ErrVerifyFailed,
			"locktime requirement type mismatch"))
	}
	if int64(lockTime) > int64(state.External.LockTime) {
		return ApplyError(state, scriptError(ErrVerifyFailed,
			fmt.Sprintf("locktime requirement %d not satisfied by %d", lockTime, state.External.LockTime)))
	}
	return state.Clone()
}

func opcodeCheckSequenceVerify(providers CryptoProviders, cache *SigCache, state *ProgramState) *ProgramState {
	elem, err := peekElement(state, 0)
	if err != nil {
		return ApplyError(state, err)
	}
	sequence, nerr := makeScriptNum(elem, 5)
	if nerr != nil {
		return ApplyError(state, nerr.(*Error))
	}
	if sequence < 0 {
		return ApplyError(state, scriptError(ErrInvalidNaturalNumber, "negative sequence"))
	}

	const sequenceLockTimeDisableFlag = 1 << 31
	if int64(sequence)&sequenceLockTimeDisableFlag != 0 {
		return state.Clone()
	}

	const sequenceLockTimeTypeFlag = 1 << 22
	const sequenceLockTimeMask = 0x0000ffff

	if int64(state.External.SequenceNumber)&sequenceLockTimeDisableFlag != 0 {
		return ApplyError(state, scriptError(ErrVerifyFailed,
			"sequence locktime disabled on input"))
	}

	typesMatch := int64(sequence)&sequenceLockTimeTypeFlag == int64(state.External.SequenceNumber)&sequenceLockTimeTypeFlag
	if !typesMatch {
		return ApplyError(state, scriptError(ErrVerifyFailed,
			"sequence locktime requirement type mismatch"))
	}

	if int64(sequence)&sequenceLockTimeMask > int64(state.External.SequenceNumber)&sequenceLockTimeMask {
		return ApplyError(state, scriptError(ErrVerifyFailed, "sequence locktime requirement not satisfied"))
	}
	return state.Clone()
}
