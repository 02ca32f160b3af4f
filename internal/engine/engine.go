// Package engine implements the execution engine: a fetch-decode-dispatch
// loop over a program of fixed-width instructions, owning the stack and
// program counter, routing every opcode through a single dispatch table.
// Handlers return an explicit HandlerResult rather than mutating pc
// directly.
package engine

import (
	"github.com/cockpit-vm/cockpitvm/internal/image"
	"github.com/cockpit-vm/cockpitvm/internal/ioctl"
	"github.com/cockpit-vm/cockpitvm/internal/memory"
	"github.com/cockpit-vm/cockpitvm/internal/vmerr"
)

// MinStackCells is the floor for stack capacity; tests must not depend
// on capacity beyond this minimum.
const MinStackCells = 512

// DefaultStackCells is the recommended capacity.
const DefaultStackCells = 1024

// Engine owns the operand stack, program counter and halt/fault state for
// one loaded program.
type Engine struct {
	stack []int32
	cap   int

	pc      int
	halted  bool
	lastErr error

	program []image.Instruction

	mm  *memory.Manager
	io  *ioctl.Controller

	instructionsExecuted uint64
	memoryOps            uint64
}

// New constructs an Engine with the given stack capacity (clamped up to
// MinStackCells) bound to mm and io. Load must be called before Step/Run.
func New(stackCap int, mm *memory.Manager, io *ioctl.Controller) *Engine {
	if stackCap < MinStackCells {
		stackCap = MinStackCells
	}
	return &Engine{
		stack: make([]int32, 0, stackCap),
		cap:   stackCap,
		mm:    mm,
		io:    io,
	}
}

// Load installs a new program and resets run state (pc, halted, stack,
// error, counters) without touching the Memory Manager or I/O Controller
// -- that is the Hypervisor's job.
func (e *Engine) Load(program []image.Instruction) {
	e.program = program
	e.pc = 0
	e.halted = false
	e.lastErr = nil
	e.stack = e.stack[:0]
	e.instructionsExecuted = 0
	e.memoryOps = 0
}

func (e *Engine) PC() int              { return e.pc }
func (e *Engine) Halted() bool         { return e.halted }
func (e *Engine) LastError() error     { return e.lastErr }
func (e *Engine) StackDepth() int      { return len(e.stack) }
func (e *Engine) InstructionsExecuted() uint64 { return e.instructionsExecuted }
func (e *Engine) MemoryOperations() uint64     { return e.memoryOps }

// Top returns the top-of-stack value without popping, or ok=false if the
// stack is empty.
func (e *Engine) Top() (int32, bool) {
	if len(e.stack) == 0 {
		return 0, false
	}
	return e.stack[len(e.stack)-1], true
}

func (e *Engine) push(v int32) error {
	if len(e.stack) >= e.cap {
		return vmerr.New(vmerr.StackOverflow)
	}
	e.stack = append(e.stack, v)
	return nil
}

func (e *Engine) pop() (int32, error) {
	if len(e.stack) == 0 {
		return 0, vmerr.New(vmerr.StackUnderflow)
	}
	v := e.stack[len(e.stack)-1]
	e.stack = e.stack[:len(e.stack)-1]
	return v, nil
}

// Step executes exactly one instruction. It is a no-op returning
// ProgramNotLoaded if no program is loaded, and a no-op if already
// halted.
func (e *Engine) Step() error {
	if e.program == nil {
		return vmerr.New(vmerr.ProgramNotLoaded)
	}
	if e.halted {
		return e.lastErr
	}

	if e.pc < 0 || e.pc >= len(e.program) {
		e.halted = true
		e.lastErr = vmerr.New(vmerr.InvalidJump)
		return e.lastErr
	}

	in := e.program[e.pc]
	handler := dispatchTable[in.Opcode]
	if handler == nil {
		e.halted = true
		e.lastErr = vmerr.New(vmerr.InvalidOpcode)
		return e.lastErr
	}

	result := handler(e, in.Flags, in.Immediate)
	e.instructionsExecuted++

	switch result.Kind {
	case Continue:
		e.pc++
	case Jump:
		if result.Target < 0 || result.Target >= len(e.program) {
			e.halted = true
			e.lastErr = vmerr.New(vmerr.InvalidJump)
			return e.lastErr
		}
		e.pc = result.Target
	case Halt:
		e.halted = true
		e.lastErr = result.Err
		return e.lastErr
	}

	return nil
}

// Run executes until Halt, a fault, or budget instructions have run
// (budget <= 0 means unbounded). This is the mechanism behind the
// non-guest-visible instruction budget used by tests and tooling.
func (e *Engine) Run(budget int) error {
	for budget <= 0 || int(e.instructionsExecuted) < budget {
		if e.halted {
			return e.lastErr
		}
		if err := e.Step(); err != nil {
			return err
		}
	}
	return nil
}
