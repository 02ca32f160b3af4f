package flash

import (
	"hash/crc32"
	"testing"

	"github.com/cockpit-vm/cockpitvm/internal/hal"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) (*Manager, *hal.SimHAL) {
	t.Helper()
	layout := DefaultLayout()
	span := (layout.MetadataBase + layout.MetadataSize) - layout.BankABase
	h := hal.NewSimHAL(layout.BankABase, span)
	return NewManager(h, layout), h
}

func TestCommitAndGetActiveBank(t *testing.T) {
	m, _ := newTestManager(t)
	require.NoError(t, m.CommitMetadata(Metadata{
		Magic:      MetadataMagic,
		Version:    1,
		Size:       1024,
		CRC32:      0xDEADBEEF,
		ActiveBank: BankA,
	}))
	active, err := m.GetActiveBank()
	require.NoError(t, err)
	require.Equal(t, BankA, active)

	require.NoError(t, m.CommitMetadata(Metadata{
		Magic:      MetadataMagic,
		Version:    2,
		Size:       1024,
		CRC32:      0xCAFEF00D,
		ActiveBank: BankB,
	}))
	active, err = m.GetActiveBank()
	require.NoError(t, err)
	require.Equal(t, BankB, active)
}

func TestProgramAndVerifyCRC32(t *testing.T) {
	m, _ := newTestManager(t)
	require.NoError(t, m.Erase(BankA))
	payload := []byte("arduino-bytecode")
	for len(payload)%8 != 0 {
		payload = append(payload, 0)
	}
	require.NoError(t, m.ProgramAligned(BankA, 0, payload))
	want := crc32.ChecksumIEEE(payload)
	require.NoError(t, m.VerifyCRC32(BankA, uint32(len(payload)), want))

	err := m.VerifyCRC32(BankA, uint32(len(payload)), want^0xFF)
	require.ErrorIs(t, err, ErrBankCRCMismatch)
}

func TestProgramRejectsUnalignedWrite(t *testing.T) {
	m, _ := newTestManager(t)
	err := m.ProgramAligned(BankA, 0, []byte{1, 2, 3})
	require.Error(t, err)
}

func TestProgramAlignedRejectsWritePastBankSize(t *testing.T) {
	m, _ := newTestManager(t)
	require.NoError(t, m.Erase(BankA))
	payload := make([]byte, 16)

	err := m.ProgramAligned(BankA, m.layout.BankSize-8, payload)
	require.ErrorIs(t, err, ErrBankOverflow)

	err = m.ProgramAligned(BankA, m.layout.BankSize+8, []byte{0, 0, 0, 0, 0, 0, 0, 0})
	require.ErrorIs(t, err, ErrBankOverflow)
}

func TestProbeBanksPrefersHigherVerifiedVersion(t *testing.T) {
	m, _ := newTestManager(t)
	require.NoError(t, m.Erase(BankA))
	require.NoError(t, m.Erase(BankB))

	payloadA := make([]byte, 16)
	for i := range payloadA {
		payloadA[i] = 0xAA
	}
	payloadB := make([]byte, 16)
	for i := range payloadB {
		payloadB[i] = 0xBB
	}
	require.NoError(t, m.ProgramAligned(BankA, 0, payloadA))
	require.NoError(t, m.ProgramAligned(BankB, 0, payloadB))

	crcA := crc32.ChecksumIEEE(payloadA)
	crcB := crc32.ChecksumIEEE(payloadB)

	versions := map[Bank]uint32{BankA: 3, BankB: 7}
	sizes := map[Bank]uint32{BankA: 16, BankB: 16}
	crcs := map[Bank]uint32{BankA: crcA, BankB: crcB}

	best, err := m.ProbeBanks(versions, sizes, crcs)
	require.NoError(t, err)
	require.Equal(t, BankB, best)
}

func TestProbeBanksSkipsCorruptBank(t *testing.T) {
	m, _ := newTestManager(t)
	require.NoError(t, m.Erase(BankA))
	payloadA := make([]byte, 8)
	require.NoError(t, m.ProgramAligned(BankA, 0, payloadA))

	versions := map[Bank]uint32{BankA: 1, BankB: 99}
	sizes := map[Bank]uint32{BankA: 8, BankB: 8}
	crcs := map[Bank]uint32{BankA: crc32.ChecksumIEEE(payloadA), BankB: 0x12345678}

	best, err := m.ProbeBanks(versions, sizes, crcs)
	require.NoError(t, err)
	require.Equal(t, BankA, best)
}

func TestProbeBanksNoneValid(t *testing.T) {
	m, _ := newTestManager(t)
	_, err := m.ProbeBanks(nil, nil, nil)
	require.ErrorIs(t, err, ErrNoValidBank)
}

func TestInactiveBank(t *testing.T) {
	require.Equal(t, BankB, InactiveBank(BankA))
	require.Equal(t, BankA, InactiveBank(BankB))
}
