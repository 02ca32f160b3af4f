// Package flash implements a dual-bank flash manager: a static layout
// with two bytecode banks and a metadata page, atomic bank activation,
// and the power-safety invariant that a fatal error during an update
// never corrupts the previously active bank.
package flash

import (
	"encoding/binary"

	"github.com/cockpit-vm/cockpitvm/internal/hal"
	"github.com/cockpit-vm/cockpitvm/internal/vmerr"
)

// Bank identifies one of the two bytecode banks.
type Bank uint8

const (
	BankA Bank = 0
	BankB Bank = 1
)

// MetadataMagic is the flash bank metadata magic number.
const MetadataMagic uint32 = 0x434F4D50

// Layout describes the static address layout, sized for a 128 KB target
// by default (internal/config overrides per-platform).
type Layout struct {
	BankABase      uint32
	BankBBase      uint32
	BankSize       uint32
	MetadataBase   uint32
	MetadataSize   uint32
}

// DefaultLayout matches the 128 KB reference target.
func DefaultLayout() Layout {
	return Layout{
		BankABase:    0x0801_0000,
		BankBBase:    0x0801_8000,
		BankSize:     32 * 1024,
		MetadataBase: 0x0801_F800,
		MetadataSize: 2 * 1024,
	}
}

// BaseOf returns the base address of bank.
func (l Layout) BaseOf(bank Bank) uint32 {
	if bank == BankA {
		return l.BankABase
	}
	return l.BankBBase
}

// Metadata is the persisted flash bank metadata record.
type Metadata struct {
	Magic      uint32
	Version    uint32
	Size       uint32
	CRC32      uint32
	ActiveBank Bank
}

func (m Metadata) encode() []byte {
	b := make([]byte, 20)
	binary.LittleEndian.PutUint32(b[0:], m.Magic)
	binary.LittleEndian.PutUint32(b[4:], m.Version)
	binary.LittleEndian.PutUint32(b[8:], m.Size)
	binary.LittleEndian.PutUint32(b[12:], m.CRC32)
	binary.LittleEndian.PutUint32(b[16:], uint32(m.ActiveBank))
	return b
}

func decodeMetadata(b []byte) (Metadata, error) {
	if len(b) < 20 {
		return Metadata{}, vmerr.New(vmerr.ImageInvalid)
	}
	m := Metadata{
		Magic:      binary.LittleEndian.Uint32(b[0:]),
		Version:    binary.LittleEndian.Uint32(b[4:]),
		Size:       binary.LittleEndian.Uint32(b[8:]),
		CRC32:      binary.LittleEndian.Uint32(b[12:]),
		ActiveBank: Bank(binary.LittleEndian.Uint32(b[16:])),
	}
	if m.Magic != MetadataMagic {
		return Metadata{}, vmerr.New(vmerr.ImageInvalid)
	}
	return m, nil
}

// Manager implements the dual-bank flash operations, backed by a
// hal.HostInterface's flash primitives.
type Manager struct {
	host   hal.HostInterface
	layout Layout
}

func NewManager(host hal.HostInterface, layout Layout) *Manager {
	return &Manager{host: host, layout: layout}
}

func (m *Manager) Layout() Layout { return m.layout }
