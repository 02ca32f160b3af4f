// Package image implements the packed Instruction encoding and the
// on-flash program image format: a magic-prefixed header, a flat
// instruction array, and a length-prefixed string table.
package image

import "encoding/binary"

// Instruction is the fixed 32-bit packed record:
// opcode:u8, flags:u8, immediate:u16.
type Instruction struct {
	Opcode    uint8
	Flags     uint8
	Immediate uint16
}

// Encode packs an Instruction into its 4-byte little-endian wire form.
func Encode(in Instruction) [4]byte {
	var b [4]byte
	b[0] = in.Opcode
	b[1] = in.Flags
	binary.LittleEndian.PutUint16(b[2:], in.Immediate)
	return b
}

// Decode unpacks a 4-byte little-endian wire form into an Instruction.
// Decode(Encode(x)) == x for all x.
func Decode(b [4]byte) Instruction {
	return Instruction{
		Opcode:    b[0],
		Flags:     b[1],
		Immediate: binary.LittleEndian.Uint16(b[2:]),
	}
}
