// Package frame implements the bootloader's wire framing and CRC:
//
//	+--------+----------------+-----------------+----------+-------+
//	| 0x7E   | length (u16 BE)| payload (N<=1024)| CRC (u16)| 0x7F  |
//	+--------+----------------+-----------------+----------+-------+
package frame

import (
	"encoding/binary"
	"errors"
)

const (
	Sync = 0x7E
	End  = 0x7F

	// MaxPayload is the maximum frame payload size.
	MaxPayload = 1024
)

// Errors bootloader-local framing faults map to.
var (
	ErrFrameSize = errors.New("frame: payload exceeds maximum size")
	ErrFraming   = errors.New("frame: missing or malformed end byte")
	ErrCRC       = errors.New("frame: crc mismatch")
)

// Encode wraps payload in a full frame: SYNC, big-endian length, payload,
// then the CRC written big-endian for consistency with every other
// multi-byte frame-header field, then END.
func Encode(payload []byte) ([]byte, error) {
	if len(payload) > MaxPayload {
		return nil, ErrFrameSize
	}

	out := make([]byte, 0, 1+2+len(payload)+2+1)
	out = append(out, Sync)

	var lenBuf [2]byte
	binary.BigEndian.PutUint16(lenBuf[:], uint16(len(payload)))
	out = append(out, lenBuf[:]...)

	out = append(out, payload...)

	crc := CRC16CCITTFalse(append(append([]byte{}, lenBuf[:]...), payload...))
	var crcBuf [2]byte
	binary.BigEndian.PutUint16(crcBuf[:], crc)
	out = append(out, crcBuf[:]...)

	out = append(out, End)
	return out, nil
}

// Decode parses a single frame from buf, which must contain exactly one
// frame (SYNC already stripped by the caller's reader loop, or present --
// Decode tolerates a leading SYNC byte so callers can hand it a raw
// buffer straight off the wire). It returns the payload or a frame-local
// error.
func Decode(buf []byte) ([]byte, error) {
	if len(buf) > 0 && buf[0] == Sync {
		buf = buf[1:]
	}
	if len(buf) < 2 {
		return nil, ErrFraming
	}
	length := binary.BigEndian.Uint16(buf[:2])
	if length > MaxPayload {
		return nil, ErrFrameSize
	}
	need := 2 + int(length) + 2 + 1
	if len(buf) < need {
		return nil, ErrFraming
	}
	payload := buf[2 : 2+int(length)]
	crcBuf := buf[2+int(length) : 2+int(length)+2]
	endByte := buf[2+int(length)+2]
	if endByte != End {
		return nil, ErrFraming
	}

	want := binary.BigEndian.Uint16(crcBuf)
	got := CRC16CCITTFalse(append(append([]byte{}, buf[:2]...), payload...))
	if want != got {
		return nil, ErrCRC
	}

	return payload, nil
}
