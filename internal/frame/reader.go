package frame

import (
	"encoding/binary"
	"time"

	"github.com/cockpit-vm/cockpitvm/internal/hal"
)

// ErrTimeout indicates no complete frame arrived within the inter-frame
// timeout window.
var ErrTimeout = &timeoutError{}

type timeoutError struct{}

func (*timeoutError) Error() string { return "frame: inter-frame timeout" }

// ReadFrame pulls one frame off h, a byte at a time, enforcing interFrame
// as the maximum gap between bytes once synchronization has started. It
// returns the decoded payload, or ErrTimeout if synchronization never
// completes within interFrame, or a framing/CRC error from Decode.
func ReadFrame(h hal.HostInterface, interFrame time.Duration) ([]byte, error) {
	var one [1]byte

	// Wait for SYNC, skipping any other bytes. An idle gap of interFrame
	// with no byte at all ends the wait with ErrTimeout, which hands
	// control back to the caller (bootloader session loop) so it can check
	// the overall session timeout.
	for {
		n, err := h.UARTRead(one[:], interFrame)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, ErrTimeout
		}
		if one[0] == Sync {
			break
		}
	}

	var lenBuf [2]byte
	if err := readFull(h, lenBuf[:], interFrame); err != nil {
		return nil, err
	}
	length := binary.BigEndian.Uint16(lenBuf[:])
	if length > MaxPayload {
		return nil, ErrFrameSize
	}

	rest := make([]byte, int(length)+2+1) // payload + crc + end
	if err := readFull(h, rest, interFrame); err != nil {
		return nil, err
	}

	full := make([]byte, 0, 1+2+len(rest))
	full = append(full, Sync)
	full = append(full, lenBuf[:]...)
	full = append(full, rest...)
	return Decode(full)
}

func readFull(h hal.HostInterface, buf []byte, timeout time.Duration) error {
	for n := 0; n < len(buf); {
		got, err := h.UARTRead(buf[n:], timeout)
		if err != nil {
			return err
		}
		if got == 0 {
			return ErrTimeout
		}
		n += got
	}
	return nil
}
