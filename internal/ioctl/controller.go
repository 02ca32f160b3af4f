// Package ioctl implements the I/O Controller: it translates guest I/O
// opcodes into host-interface calls and enforces pin-mode policy, gating
// every pin/serial access through a single owning type.
package ioctl

import (
	"github.com/cockpit-vm/cockpitvm/internal/hal"
)

// Controller owns the pin-mode table, the loaded string table, and the
// host interface for the Hypervisor's lifetime.
type Controller struct {
	host    hal.HostInterface
	modes   map[uint8]hal.PinMode
	strings []string

	ioOps uint64
}

// New builds a Controller bound to host. The string table is attached
// separately via SetStrings once a program is loaded.
func New(host hal.HostInterface) *Controller {
	return &Controller{
		host:  host,
		modes: make(map[uint8]hal.PinMode),
	}
}

// SetStrings installs the active program's string table. Its lifetime
// matches the hypervisor session, until a new program is loaded.
func (c *Controller) SetStrings(strs []string) {
	c.strings = strs
}

// Reset clears the pin-mode table. The host interface and string table
// reference are untouched (the Hypervisor decides whether to also clear
// the loaded program).
func (c *Controller) Reset() {
	c.modes = make(map[uint8]hal.PinMode)
	c.ioOps = 0
}

// IOOperations reports the number of I/O opcodes executed since the last
// Reset, used by Hypervisor.Metrics(). Advisory only: it must never gate
// or alter execution.
func (c *Controller) IOOperations() uint64 { return c.ioOps }

func (c *Controller) PinMode(pin uint8, mode hal.PinMode) {
	c.ioOps++
	c.modes[pin] = mode
	c.host.GPIOConfigure(pin, mode)
}

func (c *Controller) DigitalWrite(pin uint8, level bool) {
	c.ioOps++
	c.host.GPIOWrite(pin, level)
}

func (c *Controller) DigitalRead(pin uint8) uint32 {
	c.ioOps++
	if c.host.GPIORead(pin) {
		return 1
	}
	return 0
}

func (c *Controller) AnalogWrite(pin uint8, duty uint8) {
	c.ioOps++
	c.host.PWMWrite(pin, duty)
}

func (c *Controller) AnalogRead(pin uint8) uint32 {
	c.ioOps++
	return uint32(c.host.ADCRead(pin))
}

func (c *Controller) DelayMS(ms uint32) {
	c.ioOps++
	c.host.DelayMS(ms)
}

func (c *Controller) Millis() uint32 {
	c.ioOps++
	return c.host.TickMS()
}

func (c *Controller) Micros() uint32 {
	c.ioOps++
	return c.host.TickUS()
}

// ButtonPressed/ButtonReleased implement the MVP edge-level semantics:
// current level inverted for active-low pullups.
func (c *Controller) ButtonPressed(pin uint8) uint32 {
	c.ioOps++
	if !c.host.GPIORead(pin) {
		return 1
	}
	return 0
}

func (c *Controller) ButtonReleased(pin uint8) uint32 {
	c.ioOps++
	if c.host.GPIORead(pin) {
		return 1
	}
	return 0
}

// String returns the string table entry at id, or ok=false if out of
// range (callers turn this into vmerr.PrintfArgumentMismatch/ImageInvalid
// as appropriate to the calling opcode).
func (c *Controller) String(id uint8) (string, bool) {
	if int(id) >= len(c.strings) {
		return "", false
	}
	return c.strings[id], true
}
