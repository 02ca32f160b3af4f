package image

import "fmt"

// Disassemble renders a single decoded Instruction as a human-readable
// mnemonic line. Used by cmd/cvmctl's step command to print the current
// instruction alongside each step's result.
func Disassemble(in Instruction) string {
	name, found := mnemonics[in.Opcode]
	if !found {
		return fmt.Sprintf("<unknown opcode %#02x>", in.Opcode)
	}
	if name.takesImmediate {
		return fmt.Sprintf("%-12s %d", name.text, in.Immediate)
	}
	return name.text
}

type mnemonic struct {
	text           string
	takesImmediate bool
}

// mnemonics is intentionally a plain map here (disassembly is off the hot
// path); the dispatch table in internal/engine stays the array used for
// execution.
var mnemonics = map[uint8]mnemonic{
	0x00: {"halt", false},
	0x01: {"push", true},
	0x02: {"pop", false},
	0x03: {"add", false},
	0x04: {"sub", false},
	0x05: {"mul", false},
	0x06: {"div", false},
	0x07: {"mod", false},
	0x08: {"call", true},
	0x09: {"ret", false},
	0x10: {"pin_mode", true},
	0x11: {"digital_write", true},
	0x12: {"digital_read", true},
	0x13: {"analog_write", true},
	0x14: {"analog_read", true},
	0x15: {"delay", false},
	0x16: {"button_pressed", true},
	0x17: {"button_released", true},
	0x18: {"printf", true},
	0x19: {"millis", false},
	0x1A: {"micros", false},
	0x20: {"eq", false},
	0x21: {"ne", false},
	0x22: {"lt", false},
	0x23: {"gt", false},
	0x24: {"le", false},
	0x25: {"ge", false},
	0x26: {"lt_s", false},
	0x27: {"gt_s", false},
	0x28: {"le_s", false},
	0x29: {"ge_s", false},
	0x30: {"jmp", true},
	0x31: {"jmp_true", true},
	0x32: {"jmp_false", true},
	0x40: {"and", false},
	0x41: {"or", false},
	0x42: {"xor", false},
	0x43: {"not", false},
	0x44: {"shl", false},
	0x45: {"shr", false},
	0x50: {"load_global", true},
	0x51: {"store_global", true},
	0x52: {"create_array", true},
	0x53: {"load_array", true},
	0x54: {"store_array", true},
}
