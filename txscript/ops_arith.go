// Copyright (c) 2013-2024 The bchd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

func popNumber(state *ProgramState) (scriptNum, *Error) {
	elem, err := popElement(state)
	if err != nil {
		return 0, err
	}
	n, nerr := makeScriptNum(elem, defaultScriptNumLen)
	if nerr != nil {
		return 0, nerr.(*Error)
	}
	return n, nil
}

func pushNumber(state *ProgramState, n scriptNum) {
	state.Stack = append(state.Stack, n.Bytes())
}

func pushBool(state *ProgramState, b bool) {
	state.Stack = append(state.Stack, booleanToScriptNumber(b))
}

func unaryNumericOp(state *ProgramState, f func(scriptNum) scriptNum) *ProgramState {
	next := state.Clone()
	n, err := popNumber(next)
	if err != nil {
		return ApplyError(state, err)
	}
	pushNumber(next, f(n))
	return next
}

func binaryNumericOp(state *ProgramState, f func(a, b scriptNum) scriptNum) *ProgramState {
	next := state.Clone()
	b, err := popNumber(next)
	if err != nil {
		return ApplyError(state, err)
	}
	a, err := popNumber(next)
	if err != nil {
		return ApplyError(state, err)
	}
	pushNumber(next, f(a, b))
	return next
}

func binaryBoolOp(state *ProgramState, f func(a, b scriptNum) bool) *ProgramState {
	next := state.Clone()
	b, err := popNumber(next)
	if err != nil {
		return ApplyError(state, err)
	}
	a, err := popNumber(next)
	if err != nil {
		return ApplyError(state, err)
	}
	pushBool(next, f(a, b))
	return next
}

func registerArithmeticOperators() {
	registerOperator(OP_1ADD, &Operator{Asm: asmName, Description: constDesc("increment"), Operation: func(p CryptoProviders, c *SigCache, s *ProgramState) *ProgramState {
		return unaryNumericOp(s, func(n scriptNum) scriptNum { return n + 1 })
	}})
	registerOperator(OP_1SUB, &Operator{Asm: asmName, Description: constDesc("decrement"), Operation: func(p CryptoProviders, c *SigCache, s *ProgramState) *ProgramState {
		return unaryNumericOp(s, func(n scriptNum) scriptNum { return n - 1 })
	}})
	registerOperator(OP_NEGATE, &Operator{Asm: asmName, Description: constDesc("negate"), Operation: func(p CryptoProviders, c *SigCache, s *ProgramState) *ProgramState {
		return unaryNumericOp(s, func(n scriptNum) scriptNum { return -n })
	}})
	registerOperator(OP_ABS, &Operator{Asm: asmName, Description: constDesc("absolute value"), Operation: func(p CryptoProviders, c *SigCache, s *ProgramState) *ProgramState {
		return unaryNumericOp(s, func(n scriptNum) scriptNum {
			if n < 0 {
				return -n
			}
			return n
		})
	}})
	registerOperator(OP_NOT, &Operator{Asm: asmName, Description: constDesc("logical not"), Operation: func(p CryptoProviders, c *SigCache, s *ProgramState) *ProgramState {
		next := s.Clone()
		n, err := popNumber(next)
		if err != nil {
			return ApplyError(s, err)
		}
		pushBool(next, n == 0)
		return next
	}})
	registerOperator(OP_0NOTEQUAL, &Operator{Asm: asmName, Description: constDesc("push whether the input is nonzero"), Operation: func(p CryptoProviders, c *SigCache, s *ProgramState) *ProgramState {
		next := s.Clone()
		n, err := popNumber(next)
		if err != nil {
			return ApplyError(s, err)
		}
		pushBool(next, n != 0)
		return next
	}})

	registerOperator(OP_ADD, &Operator{Asm: asmName, Description: constDesc("add"), Operation: func(p CryptoProviders, c *SigCache, s *ProgramState) *ProgramState {
		return binaryNumericOp(s, func(a, b scriptNum) scriptNum { return a + b })
	}})
	registerOperator(OP_SUB, &Operator{Asm: asmName, Description: constDesc("subtract"), Operation: func(p CryptoProviders, c *SigCache, s *ProgramState) *ProgramState {
		return binaryNumericOp(s, func(a, b scriptNum) scriptNum { return a - b })
	}})
	registerOperator(OP_MUL, &Operator{Asm: asmName, Description: constDesc("multiply"), Operation: func(p CryptoProviders, c *SigCache, s *ProgramState) *ProgramState {
		return binaryNumericOp(s, func(a, b scriptNum) scriptNum { return a * b })
	}})
	registerOperator(OP_DIV, &Operator{Asm: asmName, Description: constDesc("divide"), Operation: opcodeDiv})
	registerOperator(OP_MOD, &Operator{Asm: asmName, Description: constDesc("modulo"), Operation: opcodeMod})

	registerOperator(OP_BOOLAND, &Operator{Asm: asmName, Description: constDesc("logical and"), Operation: func(p CryptoProviders, c *SigCache, s *ProgramState) *ProgramState {
		return binaryBoolOp(s, func(a, b scriptNum) bool { return a != 0 && b != 0 })
	}})
	registerOperator(OP_BOOLOR, &Operator{Asm: asmName, Description: constDesc("logical or"), Operation: func(p CryptoProviders, c *SigCache, s *ProgramState) *ProgramState {
		return binaryBoolOp(s, func(a, b scriptNum) bool { return a != 0 || b != 0 })
	}})
	registerOperator(OP_NUMEQUAL, &Operator{Asm: asmName, Description: constDesc("numeric equality"), Operation: func(p CryptoProviders, c *SigCache, s *ProgramState) *ProgramState {
		return binaryBoolOp(s, func(a, b scriptNum) bool { return a == b })
	}})
	registerOperator(OP_NUMEQUALVERIFY, &Operator{Asm: asmName, Description: constDesc("numeric equality, fail if false"), Operation: func(p CryptoProviders, c *SigCache, s *ProgramState) *ProgramState {
		next := binaryBoolOp(s, func(a, b scriptNum) bool { return a == b })
		if next.Err != nil {
			return next
		}
		elem, _ := popElement(next)
		return abstractVerify(next, isTruthy(elem), "OP_NUMEQUALVERIFY failed")
	}})
	registerOperator(OP_NUMNOTEQUAL, &Operator{Asm: asmName, Description: constDesc("numeric inequality"), Operation: func(p CryptoProviders, c *SigCache, s *ProgramState) *ProgramState {
		return binaryBoolOp(s, func(a, b scriptNum) bool { return a != b })
	}})
	registerOperator(OP_LESSTHAN, &Operator{Asm: asmName, Description: constDesc("less than"), Operation: func(p CryptoProviders, c *SigCache, s *ProgramState) *ProgramState {
		return binaryBoolOp(s, func(a, b scriptNum) bool { return a < b })
	}})
	registerOperator(OP_GREATERTHAN, &Operator{Asm: asmName, Description: constDesc("greater than"), Operation: func(p CryptoProviders, c *SigCache, s *ProgramState) *ProgramState {
		return binaryBoolOp(s, func(a, b scriptNum) bool { return a > b })
	}})
	registerOperator(OP_LESSTHANOREQUAL, &Operator{Asm: asmName, Description: constDesc("less than or equal"), Operation: func(p CryptoProviders, c *SigCache, s *ProgramState) *ProgramState {
		return binaryBoolOp(s, func(a, b scriptNum) bool { return a <= b })
	}})
	registerOperator(OP_GREATERTHANOREQUAL, &Operator{Asm: asmName, Description: constDesc("greater than or equal"), Operation: func(p CryptoProviders, c *SigCache, s *ProgramState) *ProgramState {
		return binaryBoolOp(s, func(a, b scriptNum) bool { return a >= b })
	}})
	registerOperator(OP_MIN, &Operator{Asm: asmName, Description: constDesc("minimum"), Operation: func(p CryptoProviders, c *SigCache, s *ProgramState) *ProgramState {
		return binaryNumericOp(s, func(a, b scriptNum) scriptNum {
			if a < b {
				return a
			}
			return b
		})
	}})
	registerOperator(OP_MAX, &Operator{Asm: asmName, Description: constDesc("maximum"), Operation: func(p CryptoProviders, c *SigCache, s *ProgramState) *ProgramState {
		return binaryNumericOp(s, func(a, b scriptNum) scriptNum {
			if a > b {
				return a
			}
			return b
		})
	}})
	registerOperator(OP_WITHIN, &Operator{Asm: asmName, Description: constDesc("range check"), Operation: opcodeWithin})

	registerOperator(OP_EQUAL, &Operator{Asm: asmName, Description: constDesc("byte-wise equality"), Operation: opcodeEqual})
	registerOperator(OP_EQUALVERIFY, &Operator{Asm: asmName, Description: constDesc("byte-wise equality, fail if false"), Operation: opcodeEqualVerify})

	registerOperator(OP_AND, &Operator{Asm: asmName, Description: constDesc("bitwise and"), Operation: bitwiseOp(func(a, b byte) byte { return a & b })})
	registerOperator(OP_OR, &Operator{Asm: asmName, Description: constDesc("bitwise or"), Operation: bitwiseOp(func(a, b byte) byte { return a | b })})
	registerOperator(OP_XOR, &Operator{Asm: asmName, Description: constDesc("bitwise xor"), Operation: bitwiseOp(func(a, b byte) byte { return a ^ b })})
	registerOperator(OP_LSHIFT, &Operator{Asm: asmName, Description: constDesc("bitwise left shift"), Operation: opcodeLShift})
	registerOperator(OP_RSHIFT, &Operator{Asm: asmName, Description: constDesc("bitwise right shift"), Operation: opcodeRShift})
}

func opcodeDiv(providers CryptoProviders, cache *SigCache, state *ProgramState) *ProgramState {
	next := state.Clone()
	b, err := popNumber(next)
	if err != nil {
		return ApplyError(state, err)
	}
	a, err := popNumber(next)
	if err != nil {
		return ApplyError(state, err)
	}
	if b == 0 {
		return ApplyError(state, scriptError(ErrInvalidNaturalNumber, "division by zero"))
	}
	pushNumber(next, a/b)
	return next
}

func opcodeMod(providers CryptoProviders, cache *SigCache, state *ProgramState) *ProgramState {
	next := state.Clone()
	b, err := popNumber(next)
	if err != nil {
		return ApplyError(state, err)
	}
	a, err := popNumber(next)
	if err != nil {
		return ApplyError(state, err)
	}
	if b == 0 {
		return ApplyError(state, scriptError(ErrInvalidNaturalNumber, "modulo by zero"))
	}
	pushNumber(next, a%b)
	return next
}

func opcodeWithin(providers CryptoProviders, cache *SigCache, state *ProgramState) *ProgramState {
	next := state.Clone()
	max, err := popNumber(next)
	if err != nil {
		return ApplyError(state, err)
	}
	min, err := popNumber(next)
	if err != nil {
		return ApplyError(state, err)
	}
	x, err := popNumber(next)
	if err != nil {
		return ApplyError(state, err)
	}
	pushBool(next, x >= min && x < max)
	return next
}

func opcodeEqual(providers CryptoProviders, cache *SigCache, state *ProgramState) *ProgramState {
	next := state.Clone()
	b, err := popElement(next)
	if err != nil {
		return ApplyError(state, err)
	}
	a, err := popElement(next)
	if err != nil {
		return ApplyError(state, err)
	}
	pushBool(next, bytesEqual(a, b))
	return next
}

func opcodeEqualVerify(providers CryptoProviders, cache *SigCache, state *ProgramState) *ProgramState {
	next := opcodeEqual(providers, cache, state)
	if next.Err != nil {
		return next
	}
	elem, _ := popElement(next)
	return abstractVerify(next, isTruthy(elem), "OP_EQUALVERIFY failed")
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func bitwiseOp(f func(a, b byte) byte) func(CryptoProviders, *SigCache, *ProgramState) *ProgramState {
	return func(providers CryptoProviders, cache *SigCache, state *ProgramState) *ProgramState {
		next := state.Clone()
		b, err := popElement(next)
		if err != nil {
			return ApplyError(state, err)
		}
		a, err := popElement(next)
		if err != nil {
			return ApplyError(state, err)
		}
		if len(a) != len(b) {
			return ApplyError(state, scriptError(ErrInvalidNaturalNumber,
				"bitwise operands must have equal length"))
		}
		out := make([]byte, len(a))
		for i := range a {
			out[i] = f(a[i], b[i])
		}
		next.Stack = append(next.Stack, out)
		return next
	}
}

func opcodeLShift(providers CryptoProviders, cache *SigCache, state *ProgramState) *ProgramState {
	return shiftOp(state, true)
}

func opcodeRShift(providers CryptoProviders, cache *SigCache, state *ProgramState) *ProgramState {
	return shiftOp(state, false)
}

func shiftOp(state *ProgramState, left bool) *ProgramState {
	next := state.Clone()
	n, err := popNumber(next)
	if err != nil {
		return ApplyError(state, err)
	}
	elem, err := popElement(next)
	if err != nil {
		return ApplyError(state, err)
	}
	if n < 0 {
		return ApplyError(state, scriptError(ErrInvalidNaturalNumber, "shift count must be non-negative"))
	}

	totalBits := len(elem) * 8
	shift := int(n)
	out := make([]byte, len(elem))
	for bit := 0; bit < totalBits; bit++ {
		var srcBit int
		if left {
			srcBit = bit + shift
		} else {
			srcBit = bit - shift
		}
		if srcBit < 0 || srcBit >= totalBits {
			continue
		}
		if getBit(elem, srcBit) {
			setBit(out, bit)
		}
	}
	next.Stack = append(next.Stack, out)
	return next
}

func getBit(data []byte, bit int) bool {
	byteIdx := bit / 8
	bitIdx := 7 - uint(bit%8)
	return data[byteIdx]&(1<<bitIdx) != 0
}

func setBit(data []byte, bit int) {
	byteIdx := bit / 8
	bitIdx := 7 - uint(bit%8)
	data[byteIdx] |= 1 << bitIdx
}
