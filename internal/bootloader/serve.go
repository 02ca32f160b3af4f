package bootloader

import (
	"github.com/cockpit-vm/cockpitvm/internal/frame"
)

// Outcome is what Serve returns when the session ends, telling the caller
// (cmd/cvmctl, or the hypervisor's boot path) which bank to run next.
type Outcome int

const (
	OutcomeJumpApplication Outcome = iota
	OutcomeComplete
	OutcomeAbort
)

// Serve runs the cooperative command loop from Ready until Complete,
// Abort, or the overall session timeout elapses, reading one frame at a
// time off host and writing the response frame back. maxFrames bounds
// the loop for tests (0 means unbounded).
func (s *Session) Serve(maxFrames int) Outcome {
	for n := 0; maxFrames == 0 || n < maxFrames; n++ {
		if s.SessionExpired() {
			s.state = JumpApplication
			return OutcomeJumpApplication
		}

		payload, err := frame.ReadFrame(s.host, s.timeouts.InterFrame)
		if err != nil {
			resp := s.fail(classifyFrameError(err))
			s.writeResponse(resp)
			if s.state == Abort {
				return OutcomeAbort
			}
			continue
		}

		resp := s.HandleFrame(payload)
		s.writeResponse(resp)

		switch s.state {
		case Complete:
			return OutcomeComplete
		case Abort:
			return OutcomeAbort
		}
	}
	return OutcomeJumpApplication
}

func (s *Session) writeResponse(payload []byte) {
	encoded, err := frame.Encode(payload)
	if err != nil {
		return
	}
	_, _ = s.host.UARTWrite(encoded)
}

func classifyFrameError(err error) ErrorClass {
	switch err {
	case frame.ErrCRC:
		return Crc
	case frame.ErrFraming, frame.ErrFrameSize:
		return Framing
	case frame.ErrTimeout:
		return Timeout
	default:
		return Timeout
	}
}
