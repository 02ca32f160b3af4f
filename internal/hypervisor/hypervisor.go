// Package hypervisor coordinates one loaded program: it owns the Memory
// Context, Memory Manager, Execution Engine and I/O Controller and
// exposes load/execute/reset/metrics.
package hypervisor

import (
	"github.com/cockpit-vm/cockpitvm/internal/engine"
	"github.com/cockpit-vm/cockpitvm/internal/hal"
	"github.com/cockpit-vm/cockpitvm/internal/image"
	"github.com/cockpit-vm/cockpitvm/internal/ioctl"
	"github.com/cockpit-vm/cockpitvm/internal/memory"
	"github.com/cockpit-vm/cockpitvm/internal/vmerr"
	"go.uber.org/zap"
)

// Metrics is the advisory reporting surface: it must never perturb
// execution semantics, only observe them.
type Metrics struct {
	InstructionsExecuted uint64
	IOOperations         uint64
	MemoryOperations     uint64
	ElapsedMillis        uint32
}

// Hypervisor coordinates the Engine, Memory Manager and I/O Controller for
// the lifetime of one loaded program; it owns all four exclusively for
// that lifetime.
type Hypervisor struct {
	ctx     *memory.Context
	mm      *memory.Manager
	io      *ioctl.Controller
	eng     *engine.Engine
	log     *zap.Logger
	bankCap int

	instrs  []image.Instruction
	strings []string
	loaded  bool
	startMS uint32
	host    hal.HostInterface
}

// New constructs a Hypervisor bound to host, with stackCells operand stack
// capacity and bankInstructions the active bank's instruction capacity
// (used by LoadProgram's size validation).
func New(host hal.HostInterface, stackCells int, bankInstructions int, log *zap.Logger) *Hypervisor {
	ctx := memory.NewContext()
	mm := memory.NewManager(ctx)
	io := ioctl.New(host)
	eng := engine.New(stackCells, mm, io)
	if log == nil {
		log = zap.NewNop()
	}
	return &Hypervisor{
		ctx:     ctx,
		mm:      mm,
		io:      io,
		eng:     eng,
		log:     log,
		bankCap: bankInstructions,
		host:    host,
	}
}

// LoadProgram validates instrs/strings against platform caps (program
// length against bank capacity in instructions, string table against
// image.MaxStrings entries and image.MaxStringLen bytes each) and
// installs them, resetting engine/memory/I-O state.
func (h *Hypervisor) LoadProgram(instrs []image.Instruction, strs []string) error {
	if h.bankCap > 0 && len(instrs) > h.bankCap {
		return vmerr.New(vmerr.ImageInvalid)
	}
	if len(strs) > image.MaxStrings {
		return vmerr.New(vmerr.ImageInvalid)
	}
	for _, s := range strs {
		if len(s) > image.MaxStringLen {
			return vmerr.New(vmerr.ImageInvalid)
		}
	}

	h.instrs = instrs
	h.strings = strs
	h.mm.Reset()
	h.io.Reset()
	h.io.SetStrings(strs)
	h.eng.Load(instrs)
	h.loaded = true
	h.startMS = h.host.TickMS()
	return nil
}

// ExecuteProgram runs until Halt or a fault.
func (h *Hypervisor) ExecuteProgram() error {
	return h.ExecuteWithBudget(0)
}

// ExecuteWithBudget runs until Halt, a fault, or maxInstructions have
// executed (0 means unbounded). Not guest visible; it exists so tests
// and tooling can bound a runaway loop instead of hanging.
func (h *Hypervisor) ExecuteWithBudget(maxInstructions int) error {
	if !h.loaded {
		return vmerr.New(vmerr.ProgramNotLoaded)
	}
	err := h.eng.Run(maxInstructions)
	if err != nil {
		kind, _ := vmerr.KindOf(err)
		h.log.Error("guest fault",
			zap.String("kind", kind.String()),
			zap.Int("pc", h.eng.PC()),
			zap.Uint64("instructions_executed", h.eng.InstructionsExecuted()),
		)
	}
	return err
}

// ExecuteSingleStep runs exactly one instruction, for debugging/tests.
func (h *Hypervisor) ExecuteSingleStep() error {
	if !h.loaded {
		return vmerr.New(vmerr.ProgramNotLoaded)
	}
	return h.eng.Step()
}

// Reset clears engine, memory, and I/O mode table; the loaded program
// reference is preserved, so a caller can Reset then ExecuteProgram again
// without reloading.
func (h *Hypervisor) Reset() {
	h.mm.Reset()
	h.io.Reset()
	h.io.SetStrings(h.strings)
	h.eng.Load(h.instrs)
	h.startMS = h.host.TickMS()
}

// Metrics reports advisory counters; it never perturbs execution state.
func (h *Hypervisor) Metrics() Metrics {
	elapsed := h.host.TickMS() - h.startMS
	return Metrics{
		InstructionsExecuted: h.eng.InstructionsExecuted(),
		IOOperations:         h.io.IOOperations(),
		MemoryOperations:     h.eng.MemoryOperations(),
		ElapsedMillis:        elapsed,
	}
}

// Halted reports whether the engine has stopped fetching.
func (h *Hypervisor) Halted() bool { return h.eng.Halted() }

// CurrentInstruction returns the instruction at the engine's program
// counter, for debug tooling; ok is false once pc has run past the end
// of the loaded program.
func (h *Hypervisor) CurrentInstruction() (instr image.Instruction, ok bool) {
	pc := h.eng.PC()
	if pc < 0 || pc >= len(h.instrs) {
		return image.Instruction{}, false
	}
	return h.instrs[pc], true
}

// LastError reports the engine's most recent fault, if any.
func (h *Hypervisor) LastError() error { return h.eng.LastError() }
