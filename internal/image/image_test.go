package image

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInstructionRoundTrip(t *testing.T) {
	cases := []Instruction{
		{Opcode: 0x00, Flags: 0, Immediate: 0},
		{Opcode: 0x01, Flags: 0xFF, Immediate: 0xBEEF},
		{Opcode: 0x30, Flags: 0x01, Immediate: 65535},
	}
	for _, c := range cases {
		require.Equal(t, c, Decode(Encode(c)))
	}
}

func TestProgramRoundTrip(t *testing.T) {
	p := Program{
		Header: Header{Version: 1},
		Instructions: []Instruction{
			{Opcode: 0x01, Immediate: 10},
			{Opcode: 0x00},
		},
		Strings: []string{"Value: %d\n", "ok"},
	}

	b, err := EncodeProgram(p)
	require.NoError(t, err)

	out, err := DecodeProgram(bytes.NewReader(b))
	require.NoError(t, err)
	require.Equal(t, p.Instructions, out.Instructions)
	require.Equal(t, p.Strings, out.Strings)
	require.Equal(t, Magic, out.Header.Magic)
	require.NoError(t, out.Validate())
}

func TestDecodeRejectsBadMagic(t *testing.T) {
	b := make([]byte, 16)
	_, err := DecodeProgram(bytes.NewReader(b))
	require.Error(t, err)
}

func TestDisassembleKnownAndUnknown(t *testing.T) {
	require.Equal(t, "halt", Disassemble(Instruction{Opcode: 0x00}))
	require.Contains(t, Disassemble(Instruction{Opcode: 0x01, Immediate: 5}), "5")
	require.Contains(t, Disassemble(Instruction{Opcode: 0xEE}), "unknown")
}
