package image

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/cockpit-vm/cockpitvm/internal/vmerr"
)

// Magic is the program image magic number: 0x434F4D50 ("COMP").
const Magic uint32 = 0x434F4D50

const (
	// MaxStrings is the platform cap on string table entries.
	MaxStrings = 256
	// MaxStringLen is the platform cap on a single string's byte length.
	MaxStringLen = 256
)

// Header is the program image header.
type Header struct {
	Magic        uint32
	Version      uint16
	Flags        uint16
	InstrCount   uint32
	StringCount  uint16
}

// Program is a fully decoded program image: header, instructions and
// string table ready to be handed to the Hypervisor.
type Program struct {
	Header       Header
	Instructions []Instruction
	Strings      []string
}

// EncodeProgram serializes a Program to its on-flash representation: header,
// then instr_count packed Instructions, then string_count length-prefixed
// (u16 LE) UTF-8 strings (not NUL-terminated in the image --
// NUL-termination happens after load into the runtime string table).
func EncodeProgram(p Program) ([]byte, error) {
	if len(p.Instructions) > 1<<32-1 {
		return nil, errors.New("image: too many instructions")
	}
	if len(p.Strings) > MaxStrings {
		return nil, vmerr.New(vmerr.ImageInvalid)
	}

	h := Header{
		Magic:       Magic,
		Version:     p.Header.Version,
		Flags:       p.Header.Flags,
		InstrCount:  uint32(len(p.Instructions)),
		StringCount: uint16(len(p.Strings)),
	}

	buf := make([]byte, 0, 16+len(p.Instructions)*4+len(p.Strings)*2)
	var hdr [16]byte
	binary.LittleEndian.PutUint32(hdr[0:], h.Magic)
	binary.LittleEndian.PutUint16(hdr[4:], h.Version)
	binary.LittleEndian.PutUint16(hdr[6:], h.Flags)
	binary.LittleEndian.PutUint32(hdr[8:], h.InstrCount)
	binary.LittleEndian.PutUint16(hdr[12:], h.StringCount)
	// hdr[14:16] reserved
	buf = append(buf, hdr[:]...)

	for _, in := range p.Instructions {
		enc := Encode(in)
		buf = append(buf, enc[:]...)
	}

	for _, s := range p.Strings {
		if len(s) > MaxStringLen {
			return nil, vmerr.New(vmerr.ImageInvalid)
		}
		var lenBuf [2]byte
		binary.LittleEndian.PutUint16(lenBuf[:], uint16(len(s)))
		buf = append(buf, lenBuf[:]...)
		buf = append(buf, []byte(s)...)
	}

	return buf, nil
}

// DecodeProgram parses a program image from r. It validates the magic and sizes
// against the platform caps (string table entries, per-string length); it
// does not validate against a specific bank size,
// which is the caller's job (the Hypervisor knows the active bank).
func DecodeProgram(r io.Reader) (Program, error) {
	var hdr [16]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return Program{}, vmerr.Wrap(vmerr.ImageInvalid, err)
	}

	h := Header{
		Magic:       binary.LittleEndian.Uint32(hdr[0:]),
		Version:     binary.LittleEndian.Uint16(hdr[4:]),
		Flags:       binary.LittleEndian.Uint16(hdr[6:]),
		InstrCount:  binary.LittleEndian.Uint32(hdr[8:]),
		StringCount: binary.LittleEndian.Uint16(hdr[12:]),
	}
	if h.Magic != Magic {
		return Program{}, vmerr.New(vmerr.ImageInvalid)
	}
	if h.StringCount > MaxStrings {
		return Program{}, vmerr.New(vmerr.ImageInvalid)
	}

	instrs := make([]Instruction, h.InstrCount)
	var ib [4]byte
	for i := range instrs {
		if _, err := io.ReadFull(r, ib[:]); err != nil {
			return Program{}, vmerr.Wrap(vmerr.ImageInvalid, err)
		}
		instrs[i] = Decode(ib)
	}

	strs := make([]string, h.StringCount)
	for i := range strs {
		var lb [2]byte
		if _, err := io.ReadFull(r, lb[:]); err != nil {
			return Program{}, vmerr.Wrap(vmerr.ImageInvalid, err)
		}
		n := binary.LittleEndian.Uint16(lb[:])
		if int(n) > MaxStringLen {
			return Program{}, vmerr.New(vmerr.ImageInvalid)
		}
		sb := make([]byte, n)
		if _, err := io.ReadFull(r, sb); err != nil {
			return Program{}, vmerr.Wrap(vmerr.ImageInvalid, err)
		}
		strs[i] = string(sb)
	}

	return Program{Header: h, Instructions: instrs, Strings: strs}, nil
}

// Validate reports whether a decoded Program satisfies the static caps:
// string count <= 256, each string <= 256 bytes.
func (p Program) Validate() error {
	if p.Header.Magic != Magic {
		return vmerr.New(vmerr.ImageInvalid)
	}
	if len(p.Strings) > MaxStrings {
		return vmerr.New(vmerr.ImageInvalid)
	}
	for _, s := range p.Strings {
		if len(s) > MaxStringLen {
			return vmerr.New(vmerr.ImageInvalid)
		}
	}
	return nil
}

func (h Header) String() string {
	return fmt.Sprintf("Header{Magic:%#x Version:%d Flags:%#x InstrCount:%d StringCount:%d}",
		h.Magic, h.Version, h.Flags, h.InstrCount, h.StringCount)
}
