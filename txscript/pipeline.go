// Copyright (c) 2013-2024 The bchd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

// AuthenticationProgram bundles the two scripts and the transaction context
// a single input's authentication is judged against: an unlocking script
// supplied by the spender and a locking script recorded in the output being
// spent, evaluated under external.
type AuthenticationProgram struct {
	UnlockingScript []byte
	LockingScript   []byte
	External        ExternalState
}

// isP2SHLockingScript reports whether script is exactly the 23-byte
// OP_HASH160 <20-byte hash> OP_EQUAL shape, the only locking-script form the
// P2SH phase recognizes.
func isP2SHLockingScript(script []byte) bool {
	return len(script) == 23 &&
		script[0] == OP_HASH160 &&
		script[1] == 20 &&
		script[22] == OP_EQUAL
}

// isPushOnly reports whether every opcode in operations is a data push (any
// opcode byte up to and including OP_16). The one non-push opcode in that
// range, OP_RESERVED, fails with ErrDisabledOpcode when executed, so a
// trace of a script that completed evaluation never contains it.
func isPushOnly(operations []byte) bool {
	for _, op := range operations {
		if op > OP_16 {
			return false
		}
	}
	return true
}

// newInstructionSet builds the ruleset-default instruction set for
// evaluating program, threading providers and cache through to every
// cryptographic operator.
func newInstructionSet(providers CryptoProviders, cache *SigCache) InstructionSet {
	return NewBCH2019InstructionSet(providers, cache)
}

// EvaluateAuthenticationProgram runs the full two- or three-phase pipeline
// for program: the unlocking script evaluates against an empty stack, its
// resulting stack and Err carry into the locking script, and if the locking
// script is the exact P2SH shape, a third phase pops the redeem script off
// a copy of the unlocking-script result and evaluates it against the rest of
// that stack. A non-nil Err on the returned ProgramState means the program
// failed; a nil Err alone does not make it valid (see IsValid).
func EvaluateAuthenticationProgram(program AuthenticationProgram, providers CryptoProviders, cache *SigCache) *ProgramState {
	engine := NewEngine(newInstructionSet(providers, cache))

	unlockState := engine.Evaluate(NewProgramState(program.UnlockingScript, program.External))
	if unlockState.Err != nil {
		return unlockState
	}

	p2sh := isP2SHLockingScript(program.LockingScript)
	if p2sh && !isPushOnly(unlockState.Operations) {
		return ApplyError(unlockState, scriptError(ErrP2SHPushOnly,
			"P2SH unlocking script must contain only data pushes"))
	}

	lockState := NewProgramState(program.LockingScript, program.External)
	lockState.Stack = cloneElements(unlockState.Stack)
	lockState = engine.Evaluate(lockState)
	if lockState.Err != nil {
		return lockState
	}

	if !p2sh {
		return lockState
	}

	if len(unlockState.Stack) == 0 {
		return ApplyError(lockState, scriptError(ErrP2SHEmptyStack,
			"P2SH unlocking script left no redeem script on the stack"))
	}

	p2shStack := cloneElements(unlockState.Stack)
	redeemScript := p2shStack[len(p2shStack)-1]
	redeemState := NewProgramState(redeemScript, program.External)
	redeemState.Stack = p2shStack[:len(p2shStack)-1]
	return engine.Evaluate(redeemState)
}

// IsValid reports whether a terminal ProgramState represents a successful
// evaluation: no error occurred, exactly one element remains on the stack,
// and that element is truthy. A program whose evaluation completes with an
// empty stack, or with unconsumed elements left behind it, is not valid.
func IsValid(state *ProgramState) bool {
	if state.Err != nil {
		return false
	}
	if len(state.Stack) != 1 {
		return false
	}
	return isTruthy(state.Stack[0])
}

// DebugPhase labels one of the (at most three) phases DebugAuthenticationProgram
// traces.
type DebugPhase struct {
	Label string
	Steps []DebugStep
}

// DebugAuthenticationProgram runs the same pipeline as
// EvaluateAuthenticationProgram but returns the full per-opcode trace of
// every phase it actually enters, plus the final validity verdict. Phases
// after the first failing one are omitted, matching Evaluate's short-circuit
// behavior exactly.
func DebugAuthenticationProgram(program AuthenticationProgram, providers CryptoProviders, cache *SigCache) (phases []DebugPhase, valid bool) {
	engine := NewEngine(newInstructionSet(providers, cache))

	unlockSteps := engine.Debug(NewProgramState(program.UnlockingScript, program.External), "unlocking script")
	phases = append(phases, DebugPhase{Label: "unlocking script", Steps: unlockSteps})
	unlockState := unlockSteps[len(unlockSteps)-1].State
	if unlockState.Err != nil {
		return phases, false
	}

	p2sh := isP2SHLockingScript(program.LockingScript)
	if p2sh && !isPushOnly(unlockState.Operations) {
		failed := ApplyError(unlockState, scriptError(ErrP2SHPushOnly,
			"P2SH unlocking script must contain only data pushes"))
		phases = append(phases, DebugPhase{Label: "P2SH push-only check", Steps: []DebugStep{{
			Asm: "<p2sh>", Description: "push-only check", State: failed,
		}}})
		return phases, false
	}

	lockState := NewProgramState(program.LockingScript, program.External)
	lockState.Stack = cloneElements(unlockState.Stack)
	lockSteps := engine.Debug(lockState, "locking script")
	phases = append(phases, DebugPhase{Label: "locking script", Steps: lockSteps})
	lockState = lockSteps[len(lockSteps)-1].State
	if lockState.Err != nil {
		return phases, false
	}

	if !p2sh {
		return phases, IsValid(lockState)
	}

	if len(unlockState.Stack) == 0 {
		failed := ApplyError(lockState, scriptError(ErrP2SHEmptyStack,
			"P2SH unlocking script left no redeem script on the stack"))
		phases = append(phases, DebugPhase{Label: "P2SH redeem extraction", Steps: []DebugStep{{
			Asm: "<p2sh>", Description: "redeem script extraction", State: failed,
		}}})
		return phases, false
	}

	p2shStack := cloneElements(unlockState.Stack)
	redeemScript := p2shStack[len(p2shStack)-1]
	redeemState := NewProgramState(redeemScript, program.External)
	redeemState.Stack = p2shStack[:len(p2shStack)-1]
	redeemSteps := engine.Debug(redeemState, "redeem script")
	phases = append(phases, DebugPhase{Label: "redeem script", Steps: redeemSteps})
	redeemState = redeemSteps[len(redeemSteps)-1].State

	return phases, IsValid(redeemState)
}
