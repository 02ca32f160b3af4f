package bootloader

import (
	"bytes"
	"hash/crc32"

	"github.com/cockpit-vm/cockpitvm/internal/flash"
	"github.com/cockpit-vm/cockpitvm/internal/image"
)

// HandleFrame processes one decoded command payload and returns the
// response payload to send back (unframed; the caller frames it), advancing
// the state machine per the command table. It is the unit the session's
// serve loop and tests both drive directly.
func (s *Session) HandleFrame(payload []byte) []byte {
	s.lastActivityMS = s.host.TickMS()
	if len(payload) == 0 {
		return s.errorResponse(InvalidRequest)
	}

	switch payload[0] {
	case CmdHandshake:
		return s.handleHandshake(payload[1:])
	case CmdPrepareFlash:
		return s.handlePrepareFlash(payload[1:])
	case CmdData:
		return s.handleData(payload[1:])
	case CmdVerify:
		return s.handleVerify(payload[1:])
	default:
		return s.fail(InvalidRequest)
	}
}

// handleHandshake is idempotent in Ready: repeating it leaves state
// unchanged and always yields the same response.
func (s *Session) handleHandshake(version []byte) []byte {
	s.state = Ready
	resp := []byte{RespHandshake}
	resp = append(resp, version...)
	resp = append(resp, 'O', 'K')
	return resp
}

func (s *Session) handlePrepareFlash(payload []byte) []byte {
	if s.state != Ready {
		return s.fail(Sequence)
	}
	if len(payload) < 4 {
		return s.fail(Framing)
	}
	targetSize := beUint32(payload[0:4])
	if targetSize == 0 || targetSize > s.flashMgr.Layout().BankSize {
		return s.fail(ResourceExhaustion)
	}

	active, _ := s.flashMgr.GetActiveBank()
	s.receiveBank = flash.InactiveBank(active)
	if err := s.flashMgr.Erase(s.receiveBank); err != nil {
		return s.fail(FlashOperation)
	}

	s.cursor = 0
	s.stagingLen = 0
	s.totalReceived = 0
	s.targetSize = targetSize
	s.state = ReceivingData

	return []byte{RespPrepareFlash, 'O', 'K'}
}

func (s *Session) handleData(chunk []byte) []byte {
	if s.state != ReceivingData {
		return s.fail(Sequence)
	}
	if s.totalReceived+uint32(len(chunk)) > s.targetSize {
		return s.fail(ResourceExhaustion)
	}

	s.state = Program
	for _, b := range chunk {
		s.stagingBuf[s.stagingLen] = b
		s.stagingLen++
		s.totalReceived++
		if s.stagingLen == len(s.stagingBuf) {
			if err := s.flushStaging(); err != nil {
				return s.fail(FlashOperation)
			}
		}
	}
	s.state = ReceivingData
	return []byte{RespData, 'O', 'K'}
}

// flushStaging issues one 8-byte aligned write of the staging buffer at
// the current cursor and advances it.
func (s *Session) flushStaging() error {
	if s.stagingLen == 0 {
		return nil
	}
	buf := make([]byte, len(s.stagingBuf))
	copy(buf, s.stagingBuf[:])
	for i := s.stagingLen; i < len(buf); i++ {
		buf[i] = 0xFF
	}
	if err := s.flashMgr.ProgramAligned(s.receiveBank, s.cursor, buf); err != nil {
		return err
	}
	s.cursor += uint32(len(buf))
	s.stagingLen = 0
	return nil
}

func (s *Session) handleVerify(payload []byte) []byte {
	if s.state != ReceivingData {
		return s.fail(Sequence)
	}
	if len(payload) < 8 {
		return s.fail(Framing)
	}
	expectedSize := beUint32(payload[0:4])
	expectedCRC := beUint32(payload[4:8])

	s.state = VerifyRequest
	if err := s.flushStaging(); err != nil {
		return s.fail(FlashOperation)
	}
	s.state = Verifying

	if s.totalReceived != expectedSize {
		return s.fail(Crc)
	}

	data, err := s.flashMgr.ReadBank(s.receiveBank, s.cursor)
	if err != nil {
		return s.fail(FlashOperation)
	}
	data = data[:expectedSize]
	if crc32.ChecksumIEEE(data) != expectedCRC {
		return s.fail(Crc)
	}

	prog, err := image.DecodeProgram(bytes.NewReader(data))
	if err != nil || prog.Validate() != nil {
		return s.fail(ResourceExhaustion)
	}

	s.state = BankSwitch
	newMeta := flash.Metadata{
		Magic:      flash.MetadataMagic,
		Version:    s.nextVersion(),
		Size:       expectedSize,
		CRC32:      expectedCRC,
		ActiveBank: s.receiveBank,
	}
	if err := s.flashMgr.CommitMetadata(newMeta); err != nil {
		return s.fail(FlashOperation)
	}

	s.state = Complete

	resp := []byte{RespVerify, 'O', 'K'}
	var sizeBuf [2]byte
	sizeBuf[0] = byte(expectedSize >> 8)
	sizeBuf[1] = byte(expectedSize)
	resp = append(resp, sizeBuf[:]...)
	return resp
}

func (s *Session) nextVersion() uint32 {
	md, err := s.flashMgr.CurrentMetadata()
	if err != nil {
		return 1
	}
	return md.Version + 1
}

// errorResponse builds the 0xFF error frame without touching retry state,
// used for malformed-command cases that are not a specific ErrorClass
// occurrence yet.
func (s *Session) errorResponse(class ErrorClass) []byte {
	return []byte{RespError, byte(class)}
}

// fail records class against the retry budget and applies the
// Error<class> transition: retryable classes go to Recovery and back to
// Ready while retries remain; everything else (and exhausted retries)
// goes to Abort, which leaves the previously active bank untouched by
// construction -- no commit happened.
func (s *Session) fail(class ErrorClass) []byte {
	s.lastError = class
	if class.Retryable() && s.retries[class] < s.timeouts.MaxRetries {
		s.retries[class]++
		s.state = Recovery
		s.state = Ready
	} else {
		s.state = Abort
	}
	return s.errorResponse(class)
}

// LastError reports the ErrorClass of the most recent failure, if any.
func (s *Session) LastError() ErrorClass { return s.lastError }
