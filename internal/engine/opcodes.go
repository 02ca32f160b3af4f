package engine

// Opcode ranges group by category: stack/control, I/O, comparisons,
// jumps, bitwise, memory.
const (
	OpHalt Opcode = 0x00

	OpPush Opcode = 0x01
	OpPop  Opcode = 0x02
	OpAdd  Opcode = 0x03
	OpSub  Opcode = 0x04
	OpMul  Opcode = 0x05
	OpDiv  Opcode = 0x06
	OpMod  Opcode = 0x07

	OpCall Opcode = 0x08
	OpRet  Opcode = 0x09

	OpPinMode        Opcode = 0x10
	OpDigitalWrite   Opcode = 0x11
	OpDigitalRead    Opcode = 0x12
	OpAnalogWrite    Opcode = 0x13
	OpAnalogRead     Opcode = 0x14
	OpDelay          Opcode = 0x15
	OpButtonPressed  Opcode = 0x16
	OpButtonReleased Opcode = 0x17
	OpPrintf         Opcode = 0x18
	OpMillis         Opcode = 0x19
	OpMicros         Opcode = 0x1A

	OpEq  Opcode = 0x20
	OpNe  Opcode = 0x21
	OpLt  Opcode = 0x22
	OpGt  Opcode = 0x23
	OpLe  Opcode = 0x24
	OpGe  Opcode = 0x25
	OpLtS Opcode = 0x26
	OpGtS Opcode = 0x27
	OpLeS Opcode = 0x28
	OpGeS Opcode = 0x29

	OpJmp      Opcode = 0x30
	OpJmpTrue  Opcode = 0x31
	OpJmpFalse Opcode = 0x32

	OpAnd Opcode = 0x40
	OpOr  Opcode = 0x41
	OpXor Opcode = 0x42
	OpNot Opcode = 0x43
	OpShl Opcode = 0x44
	OpShr Opcode = 0x45

	OpLoadGlobal   Opcode = 0x50
	OpStoreGlobal  Opcode = 0x51
	OpCreateArray  Opcode = 0x52
	OpLoadArray    Opcode = 0x53
	OpStoreArray   Opcode = 0x54
)

// Opcode is the instruction selector byte.
type Opcode = uint8
