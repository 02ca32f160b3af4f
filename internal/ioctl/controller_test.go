package ioctl

import (
	"testing"

	"github.com/cockpit-vm/cockpitvm/internal/hal"
	"github.com/cockpit-vm/cockpitvm/internal/vmerr"
	"github.com/stretchr/testify/require"
)

func TestDigitalWriteRead(t *testing.T) {
	h := hal.NewSimHAL(0, 1024)
	c := New(h)
	c.PinMode(3, hal.Output)
	c.DigitalWrite(3, true)
	require.EqualValues(t, 1, c.DigitalRead(3))
}

func TestPrintfS5Scenario(t *testing.T) {
	h := hal.NewSimHAL(0, 1024)
	c := New(h)
	c.SetStrings([]string{"Value: %d\n"})

	require.NoError(t, c.Printf(0, []int32{42}))
	require.Equal(t, "Value: 42\n", string(h.DrainUART()))
}

func TestPrintfArgumentMismatch(t *testing.T) {
	h := hal.NewSimHAL(0, 1024)
	c := New(h)
	c.SetStrings([]string{"%d and %d"})

	err := c.Printf(0, []int32{1})
	kind, ok := vmerr.KindOf(err)
	require.True(t, ok)
	require.Equal(t, vmerr.PrintfArgumentMismatch, kind)
}

func TestPrintfAllConversions(t *testing.T) {
	h := hal.NewSimHAL(0, 1024)
	c := New(h)
	c.SetStrings([]string{"%d %u %x %c %s %%", "world"})

	require.NoError(t, c.Printf(0, []int32{-1, 255, 255, 'A', 1}))
	require.Equal(t, "-1 255 ff A world %", string(h.DrainUART()))
}

func TestIOOperationsCounted(t *testing.T) {
	h := hal.NewSimHAL(0, 1024)
	c := New(h)
	c.Millis()
	c.Micros()
	require.EqualValues(t, 2, c.IOOperations())
	c.Reset()
	require.Zero(t, c.IOOperations())
}
