// Copyright (c) 2013-2024 The bchd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import "fmt"

// InstructionSet provides the per-variant glue the virtual machine needs to
// drive a single step of evaluation: advancing the instruction pointer and
// accounting for the step just taken (Before), producing an independent
// snapshot for the debug driver (Clone), deciding whether evaluation should
// continue (Continue), and the operator dispatch table (Operators). The
// only concrete implementation in this package targets the BCH_2019May
// ruleset; additional variants implement the same interface.
type InstructionSet interface {
	// Before advances state's instruction pointer to the next opcode and
	// accounts for it (operation count, executed-opcode trace). It
	// returns a state with Err set if the opcode is unknown or the
	// operation count limit is exceeded.
	Before(state *ProgramState) *ProgramState

	// Clone returns an independent deep copy of state.
	Clone(state *ProgramState) *ProgramState

	// Continue reports whether evaluation should take another step.
	Continue(state *ProgramState) bool

	// Operators returns the operator table this instruction set
	// dispatches opcodes against.
	Operators() *[256]*Operator
}

// BCH2019InstructionSet implements InstructionSet for the BCH_2019May
// ruleset: minimal-push enforcement, the reactivated bitwise/splice
// opcodes, OP_CHECKDATASIG, and unconditional OP_CHECKMULTISIG dummy-value
// enforcement.
type BCH2019InstructionSet struct {
	Providers CryptoProviders
	SigCache  *SigCache
}

// NewBCH2019InstructionSet returns an instruction set using providers for
// its cryptographic operators and cache (which may be nil to disable
// caching) for signature verification memoization.
func NewBCH2019InstructionSet(providers CryptoProviders, cache *SigCache) *BCH2019InstructionSet {
	return &BCH2019InstructionSet{Providers: providers, SigCache: cache}
}

// Before implements InstructionSet.
func (is *BCH2019InstructionSet) Before(state *ProgramState) *ProgramState {
	next := state.Clone()
	next.IP++

	if next.IP >= int32(len(next.Script)) {
		return next
	}

	opValue := next.Script[next.IP]
	op := is.Operators()[opValue]
	if op == nil {
		return ApplyError(next, scriptError(ErrUnknownOpcode,
			fmt.Sprintf("attempt to execute unknown opcode 0x%x", opValue)))
	}

	next.Operations = append(next.Operations, opValue)
	next.OperationCount++
	if next.OperationCount > maxOpsPerScript {
		return ApplyError(next, scriptError(ErrExceededMaximumOperationCount,
			"operation count exceeds the maximum allowed"))
	}

	return next
}

// Clone implements InstructionSet.
func (is *BCH2019InstructionSet) Clone(state *ProgramState) *ProgramState {
	return state.Clone()
}

// Continue implements InstructionSet.
func (is *BCH2019InstructionSet) Continue(state *ProgramState) bool {
	return state.Err == nil && state.IP < int32(len(state.Script))
}

// Operators implements InstructionSet.
func (is *BCH2019InstructionSet) Operators() *[256]*Operator {
	return &operatorTable
}

// Engine is the generic step/evaluate/debug driver parameterized over an
// InstructionSet.
type Engine struct {
	instructionSet InstructionSet
}

// NewEngine returns an Engine driving instructionSet.
func NewEngine(instructionSet InstructionSet) *Engine {
	return &Engine{instructionSet: instructionSet}
}

// providersAndCache extracts the crypto providers and sig cache from
// instruction sets that carry them; other InstructionSet implementations
// get the zero CryptoProviders and a nil cache.
func (e *Engine) providersAndCache() (CryptoProviders, *SigCache) {
	if bch, ok := e.instructionSet.(*BCH2019InstructionSet); ok {
		return bch.Providers, bch.SigCache
	}
	return CryptoProviders{}, nil
}

// afterBefore looks up the operator at next.IP (the state Before just
// produced) and reports it alongside next, or nil if next is already
// terminal (an error, or the end of the script). Before has already
// rejected unknown opcodes, so whenever next.Err is nil and next.IP is
// in range, the lookup is guaranteed to succeed.
func (e *Engine) afterBefore(next *ProgramState) (op *Operator) {
	if next.Err != nil || next.IP >= int32(len(next.Script)) {
		return nil
	}
	return e.instructionSet.Operators()[next.Script[next.IP]]
}

// skipNonExecutingOpcode advances next.IP past a push operator's inline
// payload without touching the stack, for an opcode gated off by a
// non-taken conditional branch. Before only advances IP by one byte, so a
// skipped push must still tokenize past its payload itself or the next
// Before call would interpret the payload's data bytes as opcodes.
// Non-push opcodes need no extra handling since Before already advanced
// past their single opcode byte.
func skipNonExecutingOpcode(state *ProgramState) *ProgramState {
	op := state.Script[state.IP]
	if !opcodeHasInlinePayload(op) {
		return state
	}

	_, lastIndex, err := readPushPayload(state)
	if err != nil {
		return ApplyError(state, err)
	}

	next := state.Clone()
	next.IP = lastIndex
	return next
}

// Step applies Before, then dispatches the opcode now at state.IP through
// the instruction set's operator table.
func (e *Engine) Step(state *ProgramState) *ProgramState {
	next := e.instructionSet.Before(state)
	op := e.afterBefore(next)
	if op == nil {
		return next
	}

	if !isBranchExecuting(next) && !isOpcodeConditional(next.Script[next.IP]) {
		return skipNonExecutingOpcode(next)
	}

	providers, cache := e.providersAndCache()
	return op.Operation(providers, cache, next)
}

// Evaluate repeatedly steps state until the instruction set reports it
// should stop, returning the terminal state.
func (e *Engine) Evaluate(state *ProgramState) *ProgramState {
	for e.instructionSet.Continue(state) {
		state = e.Step(state)
	}

	if state.Err == nil && len(state.CondStack) != 0 {
		state = ApplyError(state, scriptError(ErrUnbalancedConditional,
			"script ended with an open conditional branch"))
	}

	return state
}

// DebugStep is one entry of a debug trace: the operator's rendered mnemonic
// and description at the moment it was about to execute, paired with an
// independent snapshot of the resulting state.
type DebugStep struct {
	Asm         string
	Description string
	State       *ProgramState
}

// Debug evaluates state exactly as Evaluate does, but returns the full
// sequence of per-step snapshots instead of only the terminal state. The
// first entry carries phaseLabel as its Asm with a nil-mutation snapshot of
// the initial state; the last entry's State is the terminal state, matching
// Evaluate's result.
func (e *Engine) Debug(state *ProgramState, phaseLabel string) []DebugStep {
	steps := []DebugStep{{
		Asm:         phaseLabel,
		Description: "phase start",
		State:       state.Clone(),
	}}

	for e.instructionSet.Continue(state) {
		next := e.instructionSet.Before(state)
		op := e.afterBefore(next)

		asm, desc := "<end>", "end of script"
		if next.Err == nil && next.IP < int32(len(next.Script)) {
			if op != nil {
				asm, desc = op.Asm(next), op.Description(next)
			} else {
				asm, desc = fmt.Sprintf("0x%02x", next.Script[next.IP]), "unknown opcode"
			}
		}

		switch {
		case op == nil:
			state = next
		case !isBranchExecuting(next) && !isOpcodeConditional(next.Script[next.IP]):
			state = skipNonExecutingOpcode(next)
		default:
			providers, cache := e.providersAndCache()
			state = op.Operation(providers, cache, next)
		}
		steps = append(steps, DebugStep{Asm: asm, Description: desc, State: state.Clone()})
	}

	if state.Err == nil && len(state.CondStack) != 0 {
		state = ApplyError(state, scriptError(ErrUnbalancedConditional,
			"script ended with an open conditional branch"))
		steps = append(steps, DebugStep{
			Asm:         "<end>",
			Description: "unterminated conditional",
			State:       state.Clone(),
		})
	}

	return steps
}
