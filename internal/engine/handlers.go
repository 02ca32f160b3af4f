package engine

import (
	"github.com/cockpit-vm/cockpitvm/internal/hal"
	"github.com/cockpit-vm/cockpitvm/internal/vmerr"
)

// HandlerFunc is the uniform signature every opcode handler implements:
// it receives the instruction's flags/immediate plus the engine, through
// which it reaches the stack, the memory manager and the I/O controller.
type HandlerFunc func(e *Engine, flags uint8, immediate uint16) HandlerResult

// dispatchTable is the single array-indexed-by-opcode dispatch table.
// Unknown opcodes are left nil and surface as InvalidOpcode in
// Engine.Step.
var dispatchTable [256]HandlerFunc

func init() {
	dispatchTable[OpHalt] = handleHalt

	dispatchTable[OpPush] = handlePush
	dispatchTable[OpPop] = handlePop
	dispatchTable[OpAdd] = arithmetic(func(a, b int32) int32 { return a + b })
	dispatchTable[OpSub] = arithmetic(func(a, b int32) int32 { return a - b })
	dispatchTable[OpMul] = arithmetic(func(a, b int32) int32 { return a * b })
	dispatchTable[OpDiv] = handleDiv
	dispatchTable[OpMod] = handleMod

	dispatchTable[OpCall] = handleCall
	dispatchTable[OpRet] = handleRet

	dispatchTable[OpPinMode] = handlePinMode
	dispatchTable[OpDigitalWrite] = handleDigitalWrite
	dispatchTable[OpDigitalRead] = handleDigitalRead
	dispatchTable[OpAnalogWrite] = handleAnalogWrite
	dispatchTable[OpAnalogRead] = handleAnalogRead
	dispatchTable[OpDelay] = handleDelay
	dispatchTable[OpButtonPressed] = handleButtonPressed
	dispatchTable[OpButtonReleased] = handleButtonReleased
	dispatchTable[OpPrintf] = handlePrintf
	dispatchTable[OpMillis] = handleMillis
	dispatchTable[OpMicros] = handleMicros

	dispatchTable[OpEq] = compare(func(a, b int32) bool { return a == b })
	dispatchTable[OpNe] = compare(func(a, b int32) bool { return a != b })
	dispatchTable[OpLt] = compare(func(a, b int32) bool { return uint32(a) < uint32(b) })
	dispatchTable[OpGt] = compare(func(a, b int32) bool { return uint32(a) > uint32(b) })
	dispatchTable[OpLe] = compare(func(a, b int32) bool { return uint32(a) <= uint32(b) })
	dispatchTable[OpGe] = compare(func(a, b int32) bool { return uint32(a) >= uint32(b) })
	dispatchTable[OpLtS] = compare(func(a, b int32) bool { return a < b })
	dispatchTable[OpGtS] = compare(func(a, b int32) bool { return a > b })
	dispatchTable[OpLeS] = compare(func(a, b int32) bool { return a <= b })
	dispatchTable[OpGeS] = compare(func(a, b int32) bool { return a >= b })

	dispatchTable[OpJmp] = handleJmp
	dispatchTable[OpJmpTrue] = handleJmpTrue
	dispatchTable[OpJmpFalse] = handleJmpFalse

	dispatchTable[OpAnd] = arithmetic(func(a, b int32) int32 { return a & b })
	dispatchTable[OpOr] = arithmetic(func(a, b int32) int32 { return a | b })
	dispatchTable[OpXor] = arithmetic(func(a, b int32) int32 { return a ^ b })
	dispatchTable[OpNot] = handleNot
	dispatchTable[OpShl] = arithmetic(func(a, b int32) int32 { return a << uint32(b) })
	dispatchTable[OpShr] = arithmetic(func(a, b int32) int32 { return int32(uint32(a) >> uint32(b)) })

	dispatchTable[OpLoadGlobal] = handleLoadGlobal
	dispatchTable[OpStoreGlobal] = handleStoreGlobal
	dispatchTable[OpCreateArray] = handleCreateArray
	dispatchTable[OpLoadArray] = handleLoadArray
	dispatchTable[OpStoreArray] = handleStoreArray
}

func handleHalt(e *Engine, _ uint8, _ uint16) HandlerResult {
	return haltResult()
}

func handlePush(e *Engine, _ uint8, immediate uint16) HandlerResult {
	if err := e.push(int32(immediate)); err != nil {
		return errResult(err)
	}
	return continueResult()
}

func handlePop(e *Engine, _ uint8, _ uint16) HandlerResult {
	if _, err := e.pop(); err != nil {
		return errResult(err)
	}
	return continueResult()
}

// arithmetic builds a handler that pops b then a and pushes op(a, b), the
// stack discipline every binary arithmetic and bitwise opcode follows.
func arithmetic(op func(a, b int32) int32) HandlerFunc {
	return func(e *Engine, _ uint8, _ uint16) HandlerResult {
		b, err := e.pop()
		if err != nil {
			return errResult(err)
		}
		a, err := e.pop()
		if err != nil {
			return errResult(err)
		}
		if err := e.push(op(a, b)); err != nil {
			return errResult(err)
		}
		return continueResult()
	}
}

func handleDiv(e *Engine, _ uint8, _ uint16) HandlerResult {
	b, err := e.pop()
	if err != nil {
		return errResult(err)
	}
	a, err := e.pop()
	if err != nil {
		return errResult(err)
	}
	if b == 0 {
		return errResult(vmerr.New(vmerr.DivisionByZero))
	}
	if err := e.push(a / b); err != nil {
		return errResult(err)
	}
	return continueResult()
}

func handleMod(e *Engine, _ uint8, _ uint16) HandlerResult {
	b, err := e.pop()
	if err != nil {
		return errResult(err)
	}
	a, err := e.pop()
	if err != nil {
		return errResult(err)
	}
	if b == 0 {
		return errResult(vmerr.New(vmerr.DivisionByZero))
	}
	if err := e.push(a % b); err != nil {
		return errResult(err)
	}
	return continueResult()
}

// compare builds a handler for the EQ/NE/LT/GT/LE/GE family: pop b then
// a, push 1 if cmp(a, b) else 0.
func compare(cmp func(a, b int32) bool) HandlerFunc {
	return func(e *Engine, _ uint8, _ uint16) HandlerResult {
		b, err := e.pop()
		if err != nil {
			return errResult(err)
		}
		a, err := e.pop()
		if err != nil {
			return errResult(err)
		}
		var v int32
		if cmp(a, b) {
			v = 1
		}
		if err := e.push(v); err != nil {
			return errResult(err)
		}
		return continueResult()
	}
}

func handleNot(e *Engine, _ uint8, _ uint16) HandlerResult {
	a, err := e.pop()
	if err != nil {
		return errResult(err)
	}
	if err := e.push(^a); err != nil {
		return errResult(err)
	}
	return continueResult()
}

// handleCall pushes pc+1 as the return marker, then jumps to the
// absolute immediate.
func handleCall(e *Engine, _ uint8, immediate uint16) HandlerResult {
	if err := e.push(int32(e.pc + 1)); err != nil {
		return errResult(err)
	}
	return jumpResult(int(immediate))
}

// handleRet pops the return marker and jumps to it.
func handleRet(e *Engine, _ uint8, _ uint16) HandlerResult {
	target, err := e.pop()
	if err != nil {
		return errResult(err)
	}
	return jumpResult(int(target))
}

func handleJmp(e *Engine, _ uint8, immediate uint16) HandlerResult {
	return jumpResult(int(immediate))
}

func handleJmpTrue(e *Engine, _ uint8, immediate uint16) HandlerResult {
	cond, err := e.pop()
	if err != nil {
		return errResult(err)
	}
	if cond != 0 {
		return jumpResult(int(immediate))
	}
	return continueResult()
}

func handleJmpFalse(e *Engine, _ uint8, immediate uint16) HandlerResult {
	cond, err := e.pop()
	if err != nil {
		return errResult(err)
	}
	if cond == 0 {
		return jumpResult(int(immediate))
	}
	return continueResult()
}

func handlePinMode(e *Engine, flags uint8, immediate uint16) HandlerResult {
	e.io.PinMode(uint8(immediate), hal.PinMode(flags))
	return continueResult()
}

func handleDigitalWrite(e *Engine, _ uint8, immediate uint16) HandlerResult {
	level, err := e.pop()
	if err != nil {
		return errResult(err)
	}
	e.io.DigitalWrite(uint8(immediate), level != 0)
	return continueResult()
}

func handleDigitalRead(e *Engine, _ uint8, immediate uint16) HandlerResult {
	v := e.io.DigitalRead(uint8(immediate))
	if err := e.push(int32(v)); err != nil {
		return errResult(err)
	}
	return continueResult()
}

func handleAnalogWrite(e *Engine, _ uint8, immediate uint16) HandlerResult {
	duty, err := e.pop()
	if err != nil {
		return errResult(err)
	}
	e.io.AnalogWrite(uint8(immediate), uint8(duty))
	return continueResult()
}

func handleAnalogRead(e *Engine, _ uint8, immediate uint16) HandlerResult {
	v := e.io.AnalogRead(uint8(immediate))
	if err := e.push(int32(v)); err != nil {
		return errResult(err)
	}
	return continueResult()
}

func handleDelay(e *Engine, _ uint8, _ uint16) HandlerResult {
	ms, err := e.pop()
	if err != nil {
		return errResult(err)
	}
	e.io.DelayMS(uint32(ms))
	return continueResult()
}

func handleButtonPressed(e *Engine, _ uint8, immediate uint16) HandlerResult {
	v := e.io.ButtonPressed(uint8(immediate))
	if err := e.push(int32(v)); err != nil {
		return errResult(err)
	}
	return continueResult()
}

func handleButtonReleased(e *Engine, _ uint8, immediate uint16) HandlerResult {
	v := e.io.ButtonReleased(uint8(immediate))
	if err := e.push(int32(v)); err != nil {
		return errResult(err)
	}
	return continueResult()
}

// handlePrintf pops arg_count then that many arguments, last-pushed first,
// and hands them to the I/O Controller.
func handlePrintf(e *Engine, _ uint8, immediate uint16) HandlerResult {
	argCount, err := e.pop()
	if err != nil {
		return errResult(err)
	}
	if argCount < 0 {
		return errResult(vmerr.New(vmerr.PrintfArgumentMismatch))
	}
	args := make([]int32, argCount)
	for i := range args {
		v, err := e.pop()
		if err != nil {
			return errResult(err)
		}
		args[i] = v
	}
	if err := e.io.Printf(uint8(immediate), args); err != nil {
		return errResult(err)
	}
	return continueResult()
}

func handleMillis(e *Engine, _ uint8, _ uint16) HandlerResult {
	if err := e.push(int32(e.io.Millis())); err != nil {
		return errResult(err)
	}
	return continueResult()
}

func handleMicros(e *Engine, _ uint8, _ uint16) HandlerResult {
	if err := e.push(int32(e.io.Micros())); err != nil {
		return errResult(err)
	}
	return continueResult()
}

func handleLoadGlobal(e *Engine, _ uint8, immediate uint16) HandlerResult {
	e.memoryOps++
	v, err := e.mm.LoadGlobal(int(immediate))
	if err != nil {
		return errResult(err)
	}
	if err := e.push(v); err != nil {
		return errResult(err)
	}
	return continueResult()
}

func handleStoreGlobal(e *Engine, _ uint8, immediate uint16) HandlerResult {
	e.memoryOps++
	v, err := e.pop()
	if err != nil {
		return errResult(err)
	}
	if err := e.mm.StoreGlobal(int(immediate), v); err != nil {
		return errResult(err)
	}
	return continueResult()
}

func handleCreateArray(e *Engine, flags uint8, immediate uint16) HandlerResult {
	e.memoryOps++
	if err := e.mm.CreateArray(int(flags), int(immediate)); err != nil {
		return errResult(err)
	}
	return continueResult()
}

func handleLoadArray(e *Engine, flags uint8, _ uint16) HandlerResult {
	e.memoryOps++
	idx, err := e.pop()
	if err != nil {
		return errResult(err)
	}
	v, err := e.mm.LoadArrayElement(int(flags), int(idx))
	if err != nil {
		return errResult(err)
	}
	if err := e.push(v); err != nil {
		return errResult(err)
	}
	return continueResult()
}

func handleStoreArray(e *Engine, flags uint8, _ uint16) HandlerResult {
	e.memoryOps++
	idx, err := e.pop()
	if err != nil {
		return errResult(err)
	}
	v, err := e.pop()
	if err != nil {
		return errResult(err)
	}
	if err := e.mm.StoreArrayElement(int(flags), int(idx), v); err != nil {
		return errResult(err)
	}
	return continueResult()
}
