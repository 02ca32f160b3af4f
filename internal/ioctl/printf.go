package ioctl

import (
	"fmt"
	"strings"

	"github.com/cockpit-vm/cockpitvm/internal/vmerr"
)

// Printf implements the printf contract: stringID indexes the program's
// string table; args has already been popped off
// the operand stack by the engine, in the order the conversions appear
// in the format string. Supported conversions: %d, %u, %x, %c, %s, %%.
// Output goes to the host serial sink (UARTWrite); there is no
// guest-visible buffering guarantee beyond line-at-a-time emission.
func (c *Controller) Printf(stringID uint8, args []int32) error {
	c.ioOps++

	format, ok := c.String(stringID)
	if !ok {
		return vmerr.New(vmerr.PrintfArgumentMismatch)
	}

	var out strings.Builder
	argi := 0
	needArg := func() (int32, bool) {
		if argi >= len(args) {
			return 0, false
		}
		v := args[argi]
		argi++
		return v, true
	}

	runes := []rune(format)
	for i := 0; i < len(runes); i++ {
		ch := runes[i]
		if ch != '%' || i+1 >= len(runes) {
			out.WriteRune(ch)
			continue
		}
		i++
		switch runes[i] {
		case '%':
			out.WriteByte('%')
		case 'd':
			v, ok := needArg()
			if !ok {
				return vmerr.New(vmerr.PrintfArgumentMismatch)
			}
			fmt.Fprintf(&out, "%d", v)
		case 'u':
			v, ok := needArg()
			if !ok {
				return vmerr.New(vmerr.PrintfArgumentMismatch)
			}
			fmt.Fprintf(&out, "%d", uint32(v))
		case 'x':
			v, ok := needArg()
			if !ok {
				return vmerr.New(vmerr.PrintfArgumentMismatch)
			}
			fmt.Fprintf(&out, "%x", uint32(v))
		case 'c':
			v, ok := needArg()
			if !ok {
				return vmerr.New(vmerr.PrintfArgumentMismatch)
			}
			out.WriteByte(byte(v))
		case 's':
			v, ok := needArg()
			if !ok {
				return vmerr.New(vmerr.PrintfArgumentMismatch)
			}
			s, ok := c.String(uint8(v))
			if !ok {
				return vmerr.New(vmerr.PrintfArgumentMismatch)
			}
			out.WriteString(s)
		default:
			out.WriteByte('%')
			out.WriteRune(runes[i])
		}
	}

	if argi != len(args) {
		return vmerr.New(vmerr.PrintfArgumentMismatch)
	}

	if _, err := c.host.UARTWrite([]byte(out.String())); err != nil {
		return vmerr.Wrap(vmerr.IOFailure, err)
	}
	return nil
}
