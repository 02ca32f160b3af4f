package frame

import (
	"testing"
	"time"

	"github.com/cockpit-vm/cockpitvm/internal/hal"
	"github.com/stretchr/testify/require"
)

func TestFrameRoundTrip(t *testing.T) {
	payload := []byte("hello bootloader")
	encoded, err := Encode(payload)
	require.NoError(t, err)
	require.Equal(t, byte(Sync), encoded[0])
	require.Equal(t, byte(End), encoded[len(encoded)-1])

	decoded, err := Decode(encoded)
	require.NoError(t, err)
	require.Equal(t, payload, decoded)
}

func TestFrameMaxPayload(t *testing.T) {
	payload := make([]byte, MaxPayload)
	_, err := Encode(payload)
	require.NoError(t, err)

	tooBig := make([]byte, MaxPayload+1)
	_, err = Encode(tooBig)
	require.ErrorIs(t, err, ErrFrameSize)
}

func TestFrameBadCRC(t *testing.T) {
	encoded, err := Encode([]byte{1, 2, 3})
	require.NoError(t, err)
	encoded[3] ^= 0x01 // flip a bit in the payload after CRC was computed
	_, err = Decode(encoded)
	require.ErrorIs(t, err, ErrCRC)
}

func TestFrameMissingEnd(t *testing.T) {
	encoded, err := Encode([]byte{1, 2, 3})
	require.NoError(t, err)
	encoded[len(encoded)-1] = 0x00
	_, err = Decode(encoded)
	require.ErrorIs(t, err, ErrFraming)
}

func TestReadFrameOverSimHAL(t *testing.T) {
	h := hal.NewSimHAL(0, 1024)
	payload := []byte{0x01, 0xAA, 0xBB}
	encoded, err := Encode(payload)
	require.NoError(t, err)
	h.FeedUART(encoded)

	got, err := ReadFrame(h, 200*time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestReadFrameTimesOutWithNoData(t *testing.T) {
	h := hal.NewSimHAL(0, 1024)
	_, err := ReadFrame(h, 20*time.Millisecond)
	require.ErrorIs(t, err, ErrTimeout)
}
