package flash

import (
	"errors"
	"hash/crc32"

	"github.com/cockpit-vm/cockpitvm/internal/vmerr"
)

// ErrNoValidBank is returned by ProbeBanks when neither bank's contents
// match the CRC32 supplied for it.
var ErrNoValidBank = errors.New("flash: no valid bank found")

// ErrBankCRCMismatch is returned by VerifyCRC32 when the programmed
// region does not match the expected checksum.
var ErrBankCRCMismatch = errors.New("flash: bank crc mismatch")

// ErrBankOverflow is returned when a write would cross past the end of
// the target bank, into the adjacent bank or the metadata page.
var ErrBankOverflow = errors.New("flash: write exceeds bank size")

// bankSpan is the number of bytes bank occupies: BankSize, cut short
// where the bank would otherwise run into the metadata page.
func (m *Manager) bankSpan(bank Bank) uint32 {
	base := m.layout.BaseOf(bank)
	span := m.layout.BankSize
	if base < m.layout.MetadataBase && base+span > m.layout.MetadataBase {
		span = m.layout.MetadataBase - base
	}
	return span
}

// Erase erases bank's whole span, never reaching into the metadata page.
func (m *Manager) Erase(bank Bank) error {
	return m.host.FlashErase(m.layout.BaseOf(bank), m.bankSpan(bank))
}

// ProgramAligned writes bytes8 (a multiple of 8 bytes) at offset within
// bank, refusing any write that would run past the bank's own span.
func (m *Manager) ProgramAligned(bank Bank, offset uint32, bytes8 []byte) error {
	if len(bytes8)%8 != 0 {
		return vmerr.New(vmerr.ImageInvalid)
	}
	span := m.bankSpan(bank)
	if offset > span || uint32(len(bytes8)) > span-offset {
		return ErrBankOverflow
	}
	return m.host.FlashProgram(m.layout.BaseOf(bank)+offset, bytes8)
}

// VerifyCRC32 reads back size bytes from bank and compares against want.
func (m *Manager) VerifyCRC32(bank Bank, size uint32, want uint32) error {
	data, err := m.host.FlashRead(m.layout.BaseOf(bank), size)
	if err != nil {
		return err
	}
	got := crc32.ChecksumIEEE(data)
	if got != want {
		return ErrBankCRCMismatch
	}
	return nil
}

// readMetadata loads and decodes the metadata page.
func (m *Manager) readMetadata() (Metadata, error) {
	b, err := m.host.FlashRead(m.layout.MetadataBase, 20)
	if err != nil {
		return Metadata{}, err
	}
	return decodeMetadata(b)
}

// CommitMetadata erases the metadata page and writes next, the single
// observable transition point of the power-safety invariant: a reset at
// any point before this call leaves the previous bank active, and after
// it the new bank is active, with no partial state reachable.
func (m *Manager) CommitMetadata(next Metadata) error {
	if err := m.host.FlashErase(m.layout.MetadataBase, m.layout.MetadataSize); err != nil {
		return err
	}
	buf := next.encode()
	for len(buf)%8 != 0 {
		buf = append(buf, 0)
	}
	return m.host.FlashProgram(m.layout.MetadataBase, buf)
}

// GetActiveBank returns the bank the committed metadata marks active.
func (m *Manager) GetActiveBank() (Bank, error) {
	md, err := m.readMetadata()
	if err != nil {
		return 0, err
	}
	return md.ActiveBank, nil
}

// CurrentMetadata exposes the committed metadata record to callers
// outside this package (the bootloader, deriving the next image version).
func (m *Manager) CurrentMetadata() (Metadata, error) {
	return m.readMetadata()
}

// ReadBank reads length bytes from the start of bank, for CRC/header
// verification during an update session.
func (m *Manager) ReadBank(bank Bank, length uint32) ([]byte, error) {
	return m.host.FlashRead(m.layout.BaseOf(bank), length)
}

// ProbeBanks is the supplemented recovery operation for a corrupted
// metadata page: when the metadata page itself is unreadable
// or fails its magic check, probe both banks directly and prefer the
// higher version among those whose CRC32 verifies. The size, CRC32 and
// version of each bank come from the caller's maps; ProbeBanks does not
// read them from the banks themselves, and a bank absent from sizes is
// skipped.
func (m *Manager) ProbeBanks(versions map[Bank]uint32, sizes map[Bank]uint32, crcs map[Bank]uint32) (Bank, error) {
	var best Bank
	var bestVersion uint32
	found := false
	for _, bank := range []Bank{BankA, BankB} {
		size, ok := sizes[bank]
		if !ok {
			continue
		}
		if err := m.VerifyCRC32(bank, size, crcs[bank]); err != nil {
			continue
		}
		if !found || versions[bank] > bestVersion {
			best = bank
			bestVersion = versions[bank]
			found = true
		}
	}
	if !found {
		return 0, ErrNoValidBank
	}
	return best, nil
}

// InactiveBank returns the bank that is not currently active, i.e. the
// one an in-progress update should target.
func InactiveBank(active Bank) Bank {
	if active == BankA {
		return BankB
	}
	return BankA
}
