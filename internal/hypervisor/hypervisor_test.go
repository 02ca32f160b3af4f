package hypervisor

import (
	"testing"

	"github.com/cockpit-vm/cockpitvm/internal/engine"
	"github.com/cockpit-vm/cockpitvm/internal/hal"
	"github.com/cockpit-vm/cockpitvm/internal/image"
	"github.com/cockpit-vm/cockpitvm/internal/vmerr"
	"github.com/stretchr/testify/require"
)

func arithmeticInstructions() []image.Instruction {
	return []image.Instruction{
		{Opcode: engine.OpPush, Immediate: 10},
		{Opcode: engine.OpPush, Immediate: 20},
		{Opcode: engine.OpAdd},
		{Opcode: engine.OpHalt},
	}
}

func TestLoadExecuteMetrics(t *testing.T) {
	h := hal.NewSimHAL(0, 4096)
	hv := New(h, engine.DefaultStackCells, 0, nil)

	require.NoError(t, hv.LoadProgram(arithmeticInstructions(), nil))
	require.NoError(t, hv.ExecuteProgram())
	require.True(t, hv.Halted())

	m := hv.Metrics()
	require.EqualValues(t, 4, m.InstructionsExecuted)
}

func TestExecuteWithoutLoadFails(t *testing.T) {
	h := hal.NewSimHAL(0, 4096)
	hv := New(h, engine.DefaultStackCells, 0, nil)
	err := hv.ExecuteProgram()
	kind, ok := vmerr.KindOf(err)
	require.True(t, ok)
	require.Equal(t, vmerr.ProgramNotLoaded, kind)
}

func TestResetPreservesLoadedProgram(t *testing.T) {
	h := hal.NewSimHAL(0, 4096)
	hv := New(h, engine.DefaultStackCells, 0, nil)
	require.NoError(t, hv.LoadProgram(arithmeticInstructions(), nil))
	require.NoError(t, hv.ExecuteProgram())

	hv.Reset()
	require.NoError(t, hv.ExecuteProgram())
	require.True(t, hv.Halted())
}

func TestLoadProgramRejectsOversizeForBankCapacity(t *testing.T) {
	h := hal.NewSimHAL(0, 4096)
	hv := New(h, engine.DefaultStackCells, 2, nil)
	err := hv.LoadProgram(arithmeticInstructions(), nil)
	kind, ok := vmerr.KindOf(err)
	require.True(t, ok)
	require.Equal(t, vmerr.ImageInvalid, kind)
}

func TestLoadProgramRejectsTooManyStrings(t *testing.T) {
	h := hal.NewSimHAL(0, 4096)
	hv := New(h, engine.DefaultStackCells, 0, nil)
	strs := make([]string, image.MaxStrings+1)
	err := hv.LoadProgram(arithmeticInstructions(), strs)
	kind, ok := vmerr.KindOf(err)
	require.True(t, ok)
	require.Equal(t, vmerr.ImageInvalid, kind)
}

func TestExecuteWithBudgetStopsAtInstructionCount(t *testing.T) {
	h := hal.NewSimHAL(0, 4096)
	hv := New(h, engine.DefaultStackCells, 0, nil)
	require.NoError(t, hv.LoadProgram(arithmeticInstructions(), nil))

	require.NoError(t, hv.ExecuteWithBudget(2))
	require.False(t, hv.Halted())
	require.EqualValues(t, 2, hv.Metrics().InstructionsExecuted)
}

func TestGuestFaultSurfacesFromExecuteProgram(t *testing.T) {
	h := hal.NewSimHAL(0, 4096)
	hv := New(h, engine.DefaultStackCells, 0, nil)
	require.NoError(t, hv.LoadProgram([]image.Instruction{
		{Opcode: engine.OpPush, Immediate: 1},
		{Opcode: engine.OpPush, Immediate: 0},
		{Opcode: engine.OpDiv},
		{Opcode: engine.OpHalt},
	}, nil))
	err := hv.ExecuteProgram()
	kind, ok := vmerr.KindOf(err)
	require.True(t, ok)
	require.Equal(t, vmerr.DivisionByZero, kind)
}
