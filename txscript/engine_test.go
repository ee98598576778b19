// Copyright (c) 2013-2024 The bchd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"testing"

	"github.com/davecgh/go-spew/spew"
)

func newTestEngine() *Engine {
	return NewEngine(NewBCH2019InstructionSet(DefaultCryptoProviders(), nil))
}

func mustScript(t *testing.T, b *ScriptBuilder) []byte {
	t.Helper()
	script, err := b.Script()
	if err != nil {
		t.Fatalf("unexpected script build error: %v", err)
	}
	return script
}

func TestEngineEvaluateArithmetic(t *testing.T) {
	script := mustScript(t, NewScriptBuilder().
		AddInt64(2).AddInt64(3).AddOp(OP_ADD).
		AddInt64(5).AddOp(OP_NUMEQUAL))

	engine := newTestEngine()
	state := engine.Evaluate(NewProgramState(script, ExternalState{}))
	if state.Err != nil {
		t.Fatalf("unexpected error: %v", state.Err)
	}
	if !IsValid(state) {
		t.Fatalf("expected a truthy terminal stack, got %x", state.Stack)
	}
}

func TestEngineEvaluateConditional(t *testing.T) {
	tests := []struct {
		name string
		b    *ScriptBuilder
		want bool
	}{
		{
			"if-true-branch",
			NewScriptBuilder().AddInt64(1).AddOp(OP_IF).AddInt64(7).AddOp(OP_ELSE).AddInt64(8).AddOp(OP_ENDIF),
			true,
		},
		{
			"if-false-branch",
			NewScriptBuilder().AddInt64(0).AddOp(OP_IF).AddInt64(0).AddOp(OP_ELSE).AddInt64(9).AddOp(OP_ENDIF),
			true,
		},
		{
			"nested-if",
			NewScriptBuilder().AddInt64(1).AddOp(OP_IF).
				AddInt64(1).AddOp(OP_IF).AddInt64(1).AddOp(OP_ELSE).AddInt64(0).AddOp(OP_ENDIF).
				AddOp(OP_ELSE).AddInt64(0).AddOp(OP_ENDIF),
			true,
		},
	}

	for _, test := range tests {
		script := mustScript(t, test.b)
		engine := newTestEngine()
		state := engine.Evaluate(NewProgramState(script, ExternalState{}))
		if state.Err != nil {
			t.Fatalf("%s: unexpected error: %v", test.name, state.Err)
		}
		if IsValid(state) != test.want {
			t.Fatalf("%s: got valid=%v, want %v (stack %x)", test.name, IsValid(state), test.want, state.Stack)
		}
	}
}

// TestEngineEvaluateSkipsNonTakenBranchBody is a regression test: opcodes
// inside a non-taken branch must not execute at all, not merely have their
// stack effects tolerated by a lax terminal check. OP_RETURN inside the
// skipped branch must not fail the script, and a push inside a skipped
// branch must not leave a stray element behind.
func TestEngineEvaluateSkipsNonTakenBranchBody(t *testing.T) {
	returnScript := mustScript(t, NewScriptBuilder().
		AddInt64(0).AddOp(OP_IF).AddOp(OP_RETURN).AddOp(OP_ENDIF).AddInt64(1))

	engine := newTestEngine()
	state := engine.Evaluate(NewProgramState(returnScript, ExternalState{}))
	if state.Err != nil {
		t.Fatalf("unexpected error: %v", state.Err)
	}
	if !IsValid(state) {
		t.Fatalf("expected the skipped OP_RETURN not to fail the script, got stack %x", state.Stack)
	}

	pushScript := mustScript(t, NewScriptBuilder().
		AddInt64(0).AddOp(OP_IF).AddData([]byte{0x01}).AddOp(OP_ENDIF))

	state = engine.Evaluate(NewProgramState(pushScript, ExternalState{}))
	if state.Err != nil {
		t.Fatalf("unexpected error: %v", state.Err)
	}
	if len(state.Stack) != 0 {
		t.Fatalf("expected the skipped push to leave no element behind, got stack %x", state.Stack)
	}
}

// TestEngineEvaluateSkipsMultiBytePushPayload is a regression test for a
// gated push whose payload is more than one byte: the payload bytes
// themselves must be tokenized past, not dispatched as opcodes on the next
// step. A single-byte payload (as in AddData([]byte{0x01})) canonicalizes to
// OP_1, a zero-payload numeric push, and would not have caught this.
func TestEngineEvaluateSkipsMultiBytePushPayload(t *testing.T) {
	script := mustScript(t, NewScriptBuilder().
		AddInt64(1).AddOp(OP_IF).
		AddData([]byte{0x01}).
		AddOp(OP_ELSE).
		AddData([]byte{0xcc, 0xdd}).
		AddOp(OP_ENDIF))

	engine := newTestEngine()
	state := engine.Evaluate(NewProgramState(script, ExternalState{}))
	if state.Err != nil {
		t.Fatalf("unexpected error: %v", state.Err)
	}
	if len(state.Stack) != 1 || state.Stack[0][0] != 0x01 {
		t.Fatalf("expected the taken if-branch's single push to survive, got stack %x", state.Stack)
	}
}

func TestEngineEvaluateUnbalancedConditional(t *testing.T) {
	script := mustScript(t, NewScriptBuilder().AddInt64(1).AddOp(OP_IF).AddInt64(1))

	engine := newTestEngine()
	state := engine.Evaluate(NewProgramState(script, ExternalState{}))
	if state.Err == nil {
		t.Fatal("expected an unbalanced conditional error")
	}
	if state.Err.Code != ErrUnbalancedConditional {
		t.Fatalf("got error code %v, want ErrUnbalancedConditional", state.Err.Code)
	}
}

func TestEngineEvaluateUnknownOpcode(t *testing.T) {
	script := []byte{0xfc}

	engine := newTestEngine()
	state := engine.Evaluate(NewProgramState(script, ExternalState{}))
	if state.Err == nil || state.Err.Code != ErrUnknownOpcode {
		t.Fatalf("got error %v, want ErrUnknownOpcode", state.Err)
	}
}

func TestEngineOperationCount(t *testing.T) {
	script := mustScript(t, NewScriptBuilder().
		AddOp(OP_DUP).AddOp(OP_DUP).AddOp(OP_DROP).AddOp(OP_DROP).AddOp(OP_DROP))

	engine := newTestEngine()
	state := NewProgramState(script, ExternalState{})
	state.Stack = [][]byte{{0x01}}
	state = engine.Evaluate(state)
	if state.Err != nil {
		t.Fatalf("unexpected error: %v", state.Err)
	}
	if state.OperationCount != 5 {
		t.Fatalf("got operation count %d, want 5", state.OperationCount)
	}
}

func TestEngineOperationCountLimitExceeded(t *testing.T) {
	b := NewScriptBuilder()
	for i := 0; i < maxOpsPerScript+1; i++ {
		b.AddOp(OP_NOP)
	}
	script := mustScript(t, b)

	engine := newTestEngine()
	state := engine.Evaluate(NewProgramState(script, ExternalState{}))
	if state.Err == nil || state.Err.Code != ErrExceededMaximumOperationCount {
		t.Fatalf("got error %v, want ErrExceededMaximumOperationCount", state.Err)
	}
}

// TestEngineStepAdvancesIP is a regression test for the Step/afterBefore
// refactor: each call must advance IP by exactly one opcode and dispatch the
// operator that now sits there, not the one from the previous position.
func TestEngineStepAdvancesIP(t *testing.T) {
	script := mustScript(t, NewScriptBuilder().AddInt64(1).AddInt64(2).AddOp(OP_ADD))

	engine := newTestEngine()
	state := NewProgramState(script, ExternalState{})

	state = engine.Step(state)
	if state.IP != 0 || len(state.Stack) != 1 {
		t.Fatalf("after step 1: IP=%d stack=%x", state.IP, state.Stack)
	}
	state = engine.Step(state)
	if state.IP != 1 || len(state.Stack) != 2 {
		t.Fatalf("after step 2: IP=%d stack=%x", state.IP, state.Stack)
	}
	state = engine.Step(state)
	if state.IP != 2 || len(state.Stack) != 1 {
		t.Fatalf("after step 3: IP=%d stack=%x", state.IP, state.Stack)
	}
	n, err := makeScriptNum(state.Stack[0], defaultScriptNumLen)
	if err != nil || n != 3 {
		t.Fatalf("got stack top %x, want scriptnum 3", state.Stack[0])
	}
}

// TestEngineDebugAsmMatchesDispatchedOpcode is a regression test for the bug
// where Debug rendered a step's Asm/Description against the state from
// before Before() ran, which (a) read the previous opcode's metadata and
// (b) could index Script[IP+1] out of range on the final opcode.
func TestEngineDebugAsmMatchesDispatchedOpcode(t *testing.T) {
	script := mustScript(t, NewScriptBuilder().AddOp(OP_DUP).AddOp(OP_DROP))

	engine := newTestEngine()
	state := NewProgramState(script, ExternalState{})
	state.Stack = [][]byte{{0x01}}
	steps := engine.Debug(state, "test phase")

	if len(steps) != 4 {
		t.Fatalf("got %d steps, want 4 (phase start + 2 opcodes + end of script)", len(steps))
	}
	if steps[0].Description != "phase start" {
		t.Fatalf("got first step description %q, want phase start", steps[0].Description)
	}
	if steps[1].Asm != "OP_DUP" {
		t.Fatalf("got second step asm %q, want OP_DUP", steps[1].Asm)
	}
	if steps[2].Asm != "OP_DROP" {
		t.Fatalf("got third step asm %q, want OP_DROP", steps[2].Asm)
	}
	final := steps[len(steps)-1].State
	if final.Err != nil {
		t.Fatalf("unexpected error: %v", final.Err)
	}
	if len(final.Stack) != 1 {
		t.Fatalf("final state doesn't match expectations: %s", spew.Sdump(final))
	}
}

func TestEngineNum2BinBin2NumRoundTrip(t *testing.T) {
	script := mustScript(t, NewScriptBuilder().
		AddInt64(42).AddInt64(4).AddOp(OP_NUM2BIN).AddOp(OP_BIN2NUM).AddInt64(42).AddOp(OP_NUMEQUAL))

	engine := newTestEngine()
	state := engine.Evaluate(NewProgramState(script, ExternalState{}))
	if state.Err != nil {
		t.Fatalf("unexpected error: %v", state.Err)
	}
	if !IsValid(state) {
		t.Fatalf("expected round trip to restore 42, got stack %x", state.Stack)
	}
}

func TestEngineNum2BinWidensWithZeroPadding(t *testing.T) {
	script := mustScript(t, NewScriptBuilder().AddInt64(1).AddInt64(4).AddOp(OP_NUM2BIN))

	engine := newTestEngine()
	state := engine.Evaluate(NewProgramState(script, ExternalState{}))
	if state.Err != nil {
		t.Fatalf("unexpected error: %v", state.Err)
	}
	if len(state.Stack) != 1 || len(state.Stack[0]) != 4 {
		t.Fatalf("got stack %x, want a single 4-byte element", state.Stack)
	}
	want := []byte{0x01, 0x00, 0x00, 0x00}
	for i, b := range want {
		if state.Stack[0][i] != b {
			t.Fatalf("got %x, want %x", state.Stack[0], want)
		}
	}
}
