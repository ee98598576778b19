// Copyright (c) 2013-2024 The bchd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import "fmt"

func requireDepth(state *ProgramState, n int) *Error {
	if len(state.Stack) < n {
		return scriptError(ErrEmptyStack,
			fmt.Sprintf("operation requires %d stack elements, have %d", n, len(state.Stack)))
	}
	return nil
}

func opcodeToAltStack(providers CryptoProviders, cache *SigCache, state *ProgramState) *ProgramState {
	if err := requireDepth(state, 1); err != nil {
		return ApplyError(state, err)
	}
	next := state.Clone()
	elem, _ := popElement(next)
	next.AltStack = append(next.AltStack, elem)
	return next
}

func opcodeFromAltStack(providers CryptoProviders, cache *SigCache, state *ProgramState) *ProgramState {
	if len(state.AltStack) == 0 {
		return ApplyError(state, scriptError(ErrEmptyStack, "alt stack is empty"))
	}
	next := state.Clone()
	n := len(next.AltStack)
	elem := next.AltStack[n-1]
	next.AltStack = next.AltStack[:n-1]
	next.Stack = append(next.Stack, elem)
	return next
}

func opcode2Drop(providers CryptoProviders, cache *SigCache, state *ProgramState) *ProgramState {
	if err := requireDepth(state, 2); err != nil {
		return ApplyError(state, err)
	}
	next := state.Clone()
	n := len(next.Stack)
	next.Stack = next.Stack[:n-2]
	return next
}

func opcode2Dup(providers CryptoProviders, cache *SigCache, state *ProgramState) *ProgramState {
	if err := requireDepth(state, 2); err != nil {
		return ApplyError(state, err)
	}
	next := state.Clone()
	n := len(next.Stack)
	next.Stack = append(next.Stack, append([]byte(nil), next.Stack[n-2]...), append([]byte(nil), next.Stack[n-1]...))
	return next
}

func opcode3Dup(providers CryptoProviders, cache *SigCache, state *ProgramState) *ProgramState {
	if err := requireDepth(state, 3); err != nil {
		return ApplyError(state, err)
	}
	next := state.Clone()
	n := len(next.Stack)
	next.Stack = append(next.Stack,
		append([]byte(nil), next.Stack[n-3]...),
		append([]byte(nil), next.Stack[n-2]...),
		append([]byte(nil), next.Stack[n-1]...))
	return next
}

func opcode2Over(providers CryptoProviders, cache *SigCache, state *ProgramState) *ProgramState {
	if err := requireDepth(state, 4); err != nil {
		return ApplyError(state, err)
	}
	next := state.Clone()
	n := len(next.Stack)
	next.Stack = append(next.Stack,
		append([]byte(nil), next.Stack[n-4]...),
		append([]byte(nil), next.Stack[n-3]...))
	return next
}

func opcode2Rot(providers CryptoProviders, cache *SigCache, state *ProgramState) *ProgramState {
	if err := requireDepth(state, 6); err != nil {
		return ApplyError(state, err)
	}
	next := state.Clone()
	n := len(next.Stack)
	a, b := next.Stack[n-6], next.Stack[n-5]
	copy(next.Stack[n-6:], next.Stack[n-4:])
	next.Stack[n-2] = a
	next.Stack[n-1] = b
	return next
}

func opcode2Swap(providers CryptoProviders, cache *SigCache, state *ProgramState) *ProgramState {
	if err := requireDepth(state, 4); err != nil {
		return ApplyError(state, err)
	}
	next := state.Clone()
	n := len(next.Stack)
	next.Stack[n-4], next.Stack[n-2] = next.Stack[n-2], next.Stack[n-4]
	next.Stack[n-3], next.Stack[n-1] = next.Stack[n-1], next.Stack[n-3]
	return next
}

func opcodeIfDup(providers CryptoProviders, cache *SigCache, state *ProgramState) *ProgramState {
	if err := requireDepth(state, 1); err != nil {
		return ApplyError(state, err)
	}
	next := state.Clone()
	top := next.Stack[len(next.Stack)-1]
	if isTruthy(top) {
		next.Stack = append(next.Stack, append([]byte(nil), top...))
	}
	return next
}

func opcodeDepth(providers CryptoProviders, cache *SigCache, state *ProgramState) *ProgramState {
	next := state.Clone()
	next.Stack = append(next.Stack, scriptNum(len(state.Stack)).Bytes())
	return next
}

func opcodeDrop(providers CryptoProviders, cache *SigCache, state *ProgramState) *ProgramState {
	if err := requireDepth(state, 1); err != nil {
		return ApplyError(state, err)
	}
	next := state.Clone()
	popElement(next)
	return next
}

func opcodeDup(providers CryptoProviders, cache *SigCache, state *ProgramState) *ProgramState {
	if err := requireDepth(state, 1); err != nil {
		return ApplyError(state, err)
	}
	next := state.Clone()
	top := next.Stack[len(next.Stack)-1]
	next.Stack = append(next.Stack, append([]byte(nil), top...))
	return next
}

func opcodeNip(providers CryptoProviders, cache *SigCache, state *ProgramState) *ProgramState {
	if err := requireDepth(state, 2); err != nil {
		return ApplyError(state, err)
	}
	next := state.Clone()
	n := len(next.Stack)
	next.Stack = append(next.Stack[:n-2], next.Stack[n-1])
	return next
}

func opcodeOver(providers CryptoProviders, cache *SigCache, state *ProgramState) *ProgramState {
	if err := requireDepth(state, 2); err != nil {
		return ApplyError(state, err)
	}
	next := state.Clone()
	n := len(next.Stack)
	next.Stack = append(next.Stack, append([]byte(nil), next.Stack[n-2]...))
	return next
}

func popAsIndex(state *ProgramState) (int, *Error) {
	elem, err := popElement(state)
	if err != nil {
		return 0, err
	}
	n, nerr := makeScriptNum(elem, defaultScriptNumLen)
	if nerr != nil {
		return 0, nerr.(*Error)
	}
	return int(n.Int32()), nil
}

func opcodePick(providers CryptoProviders, cache *SigCache, state *ProgramState) *ProgramState {
	next := state.Clone()
	idx, err := popAsIndex(next)
	if err != nil {
		return ApplyError(state, err)
	}
	if idx < 0 || idx >= len(next.Stack) {
		return ApplyError(state, scriptError(ErrInvalidNaturalNumber, "pick index out of range"))
	}
	elem := next.Stack[len(next.Stack)-1-idx]
	next.Stack = append(next.Stack, append([]byte(nil), elem...))
	return next
}

func opcodeRoll(providers CryptoProviders, cache *SigCache, state *ProgramState) *ProgramState {
	next := state.Clone()
	idx, err := popAsIndex(next)
	if err != nil {
		return ApplyError(state, err)
	}
	if idx < 0 || idx >= len(next.Stack) {
		return ApplyError(state, scriptError(ErrInvalidNaturalNumber, "roll index out of range"))
	}
	pos := len(next.Stack) - 1 - idx
	elem := next.Stack[pos]
	next.Stack = append(next.Stack[:pos], next.Stack[pos+1:]...)
	next.Stack = append(next.Stack, elem)
	return next
}

func opcodeRot(providers CryptoProviders, cache *SigCache, state *ProgramState) *ProgramState {
	if err := requireDepth(state, 3); err != nil {
		return ApplyError(state, err)
	}
	next := state.Clone()
	n := len(next.Stack)
	elem := next.Stack[n-3]
	next.Stack = append(next.Stack[:n-3], next.Stack[n-2], next.Stack[n-1], elem)
	return next
}

func opcodeSwap(providers CryptoProviders, cache *SigCache, state *ProgramState) *ProgramState {
	if err := requireDepth(state, 2); err != nil {
		return ApplyError(state, err)
	}
	next := state.Clone()
	n := len(next.Stack)
	next.Stack[n-2], next.Stack[n-1] = next.Stack[n-1], next.Stack[n-2]
	return next
}

// opcodeTuck implements x1 x2 -> x2 x1 x2: a copy of the top element is
// inserted immediately below the second-from-top element.
func opcodeTuck(providers CryptoProviders, cache *SigCache, state *ProgramState) *ProgramState {
	if err := requireDepth(state, 2); err != nil {
		return ApplyError(state, err)
	}
	next := state.Clone()
	n := len(next.Stack)
	second := next.Stack[n-2]
	top := next.Stack[n-1]
	topCopy := append([]byte(nil), top...)
	next.Stack = append(next.Stack[:n-2], topCopy, second, top)
	return next
}

func opcodeSize(providers CryptoProviders, cache *SigCache, state *ProgramState) *ProgramState {
	if err := requireDepth(state, 1); err != nil {
		return ApplyError(state, err)
	}
	next := state.Clone()
	top := next.Stack[len(next.Stack)-1]
	next.Stack = append(next.Stack, scriptNum(len(top)).Bytes())
	return next
}

func opcodeCat(providers CryptoProviders, cache *SigCache, state *ProgramState) *ProgramState {
	if err := requireDepth(state, 2); err != nil {
		return ApplyError(state, err)
	}
	next := state.Clone()
	b, _ := popElement(next)
	a, _ := popElement(next)
	combined := append(append([]byte(nil), a...), b...)
	if len(combined) > maxScriptElementSize {
		return ApplyError(state, scriptError(ErrExceedsMaximumPush,
			fmt.Sprintf("concatenated element of %d bytes exceeds the limit", len(combined))))
	}
	next.Stack = append(next.Stack, combined)
	return next
}

func opcodeSplit(providers CryptoProviders, cache *SigCache, state *ProgramState) *ProgramState {
	next := state.Clone()
	idx, err := popAsIndex(next)
	if err != nil {
		return ApplyError(state, err)
	}
	elem, err := popElement(next)
	if err != nil {
		return ApplyError(state, err)
	}
	if idx < 0 || idx > len(elem) {
		return ApplyError(state, scriptError(ErrInvalidNaturalNumber, "split position out of range"))
	}
	next.Stack = append(next.Stack, append([]byte(nil), elem[:idx]...), append([]byte(nil), elem[idx:]...))
	return next
}

// opcodeNum2Bin re-encodes the top element as a script number, then
// zero-pads (or re-signs) it out to a caller-requested byte width.
func opcodeNum2Bin(providers CryptoProviders, cache *SigCache, state *ProgramState) *ProgramState {
	next := state.Clone()
	size, err := popAsIndex(next)
	if err != nil {
		return ApplyError(state, err)
	}
	elem, err := popElement(next)
	if err != nil {
		return ApplyError(state, err)
	}
	if size < 0 || size > maxScriptElementSize {
		return ApplyError(state, scriptError(ErrInvalidNaturalNumber, "num2bin size out of range"))
	}

	n, nerr := decodeBinaryScriptNum(elem)
	if nerr != nil {
		return ApplyError(state, nerr.(*Error))
	}
	encoded := n.Bytes()
	if len(encoded) > size {
		return ApplyError(state, scriptError(ErrInvalidNaturalNumber,
			"num2bin size too small for the input value"))
	}

	isNegative := len(encoded) > 0 && encoded[len(encoded)-1]&0x80 != 0
	out := make([]byte, size)
	copy(out, encoded)
	if isNegative {
		out[len(encoded)-1] &^= 0x80
		out[size-1] |= 0x80
	}
	next.Stack = append(next.Stack, out)
	return next
}

// opcodeBin2Num re-encodes the top element down to its minimal script
// number representation, the inverse of OP_NUM2BIN.
func opcodeBin2Num(providers CryptoProviders, cache *SigCache, state *ProgramState) *ProgramState {
	next := state.Clone()
	elem, err := popElement(next)
	if err != nil {
		return ApplyError(state, err)
	}
	n, nerr := decodeBinaryScriptNum(elem)
	if nerr != nil {
		return ApplyError(state, nerr.(*Error))
	}
	next.Stack = append(next.Stack, n.Bytes())
	return next
}

func registerStackOperators() {
	registerOperator(OP_TOALTSTACK, &Operator{Asm: asmName, Description: constDesc("move top element to the alt stack"), Operation: opcodeToAltStack})
	registerOperator(OP_FROMALTSTACK, &Operator{Asm: asmName, Description: constDesc("move top alt-stack element to the main stack"), Operation: opcodeFromAltStack})
	registerOperator(OP_2DROP, &Operator{Asm: asmName, Description: constDesc("drop the top two elements"), Operation: opcode2Drop})
	registerOperator(OP_2DUP, &Operator{Asm: asmName, Description: constDesc("duplicate the top two elements"), Operation: opcode2Dup})
	registerOperator(OP_3DUP, &Operator{Asm: asmName, Description: constDesc("duplicate the top three elements"), Operation: opcode3Dup})
	registerOperator(OP_2OVER, &Operator{Asm: asmName, Description: constDesc("copy the 3rd and 4th from top elements"), Operation: opcode2Over})
	registerOperator(OP_2ROT, &Operator{Asm: asmName, Description: constDesc("rotate the top three pairs"), Operation: opcode2Rot})
	registerOperator(OP_2SWAP, &Operator{Asm: asmName, Description: constDesc("swap the top two pairs"), Operation: opcode2Swap})
	registerOperator(OP_IFDUP, &Operator{Asm: asmName, Description: constDesc("duplicate the top element if truthy"), Operation: opcodeIfDup})
	registerOperator(OP_DEPTH, &Operator{Asm: asmName, Description: constDesc("push the stack depth"), Operation: opcodeDepth})
	registerOperator(OP_DROP, &Operator{Asm: asmName, Description: constDesc("drop the top element"), Operation: opcodeDrop})
	registerOperator(OP_DUP, &Operator{Asm: asmName, Description: constDesc("duplicate the top element"), Operation: opcodeDup})
	registerOperator(OP_NIP, &Operator{Asm: asmName, Description: constDesc("remove the second-from-top element"), Operation: opcodeNip})
	registerOperator(OP_OVER, &Operator{Asm: asmName, Description: constDesc("copy the second-from-top element"), Operation: opcodeOver})
	registerOperator(OP_PICK, &Operator{Asm: asmName, Description: constDesc("copy the nth-from-top element"), Operation: opcodePick})
	registerOperator(OP_ROLL, &Operator{Asm: asmName, Description: constDesc("move the nth-from-top element to the top"), Operation: opcodeRoll})
	registerOperator(OP_ROT, &Operator{Asm: asmName, Description: constDesc("rotate the top three elements"), Operation: opcodeRot})
	registerOperator(OP_SWAP, &Operator{Asm: asmName, Description: constDesc("swap the top two elements"), Operation: opcodeSwap})
	registerOperator(OP_TUCK, &Operator{Asm: asmName, Description: constDesc("copy the top element under the second"), Operation: opcodeTuck})

	registerOperator(OP_SIZE, &Operator{Asm: asmName, Description: constDesc("push the byte length of the top element"), Operation: opcodeSize})
	registerOperator(OP_CAT, &Operator{Asm: asmName, Description: constDesc("concatenate the top two elements"), Operation: opcodeCat})
	registerOperator(OP_SPLIT, &Operator{Asm: asmName, Description: constDesc("split the top element at a given position"), Operation: opcodeSplit})
	registerOperator(OP_NUM2BIN, &Operator{Asm: asmName, Description: constDesc("re-encode a number at a fixed byte width"), Operation: opcodeNum2Bin})
	registerOperator(OP_BIN2NUM, &Operator{Asm: asmName, Description: constDesc("re-encode binary data as a minimal number"), Operation: opcodeBin2Num})
}
