package bootloader

import (
	"hash/crc32"

	"github.com/cockpit-vm/cockpitvm/internal/flash"
	"github.com/cockpit-vm/cockpitvm/internal/hal"
)

// Session holds the bootloader's per-update-window state. It owns flash
// programming primitives exclusively for its lifetime and releases them
// before yielding to the hypervisor.
type Session struct {
	host     hal.HostInterface
	flashMgr *flash.Manager
	timeouts Timeouts

	state State

	sessionStartMS  uint32
	lastActivityMS  uint32
	handshakeStartMS uint32

	retries map[ErrorClass]int

	receiveBank flash.Bank
	cursor      uint32
	stagingBuf  [8]byte
	stagingLen  int
	totalReceived uint32
	targetSize  uint32

	lastError ErrorClass
}

// NewSession constructs a bootloader session bound to host and flashMgr,
// starting in Startup, using the built-in timing budget.
func NewSession(host hal.HostInterface, flashMgr *flash.Manager) *Session {
	return NewSessionWithTimeouts(host, flashMgr, DefaultTimeouts())
}

// NewSessionWithTimeouts is NewSession with a caller-supplied timing
// budget, letting loaded configuration override the built-in constants.
func NewSessionWithTimeouts(host hal.HostInterface, flashMgr *flash.Manager, timeouts Timeouts) *Session {
	return &Session{
		host:     host,
		flashMgr: flashMgr,
		timeouts: timeouts,
		state:    Startup,
		retries:  make(map[ErrorClass]int),
	}
}

func (s *Session) State() State { return s.state }

// DetectTrigger evaluates the priority-ordered trigger sources: a held
// button, a flash trigger page, or a matching serial magic sequence
// within the session's trigger window. Any one enters the session; none
// within the window means the caller should jump straight to the
// application bank.
func (s *Session) DetectTrigger(buttonPin uint8, triggerMagic []byte) bool {
	s.state = TriggerDetect
	if s.host.GPIORead(buttonPin) {
		s.enterSession()
		return true
	}

	if s.probeTriggerPage() {
		s.enterSession()
		return true
	}

	if len(triggerMagic) == 0 {
		return false
	}

	start := s.host.TickMS()
	windowMS := uint32(s.timeouts.TriggerWindow.Milliseconds())
	var one [1]byte
	matched := 0
	for elapsedSince(start, s.host.TickMS()) < windowMS {
		n, _ := s.host.UARTRead(one[:], s.timeouts.TriggerWindow)
		if n == 0 {
			continue
		}
		if one[0] == triggerMagic[matched] {
			matched++
			if matched == len(triggerMagic) {
				s.enterSession()
				return true
			}
		} else {
			matched = 0
		}
	}
	return false
}

// TriggerPageMagic and TriggerEnter are the flash trigger page contract
// of the priority-2 trigger source.
const (
	TriggerPageMagic uint32 = 0x54524947 // "TRIG"
	TriggerEnter     uint32 = 0x454E5452 // "ENTR"
)

func (s *Session) probeTriggerPage() bool {
	layout := s.flashMgr.Layout()
	data, err := s.host.FlashRead(layout.MetadataBase-layout.MetadataSize, 12)
	if err != nil || len(data) < 12 {
		return false
	}
	magic := beUint32(data[0:4])
	code := beUint32(data[4:8])
	crc := beUint32(data[8:12])
	if magic != TriggerPageMagic || code != TriggerEnter {
		return false
	}
	return crc32.ChecksumIEEE(data[0:8]) == crc
}

func (s *Session) enterSession() {
	s.state = TransportInit
	s.sessionStartMS = s.host.TickMS()
	s.lastActivityMS = s.sessionStartMS
	s.state = Handshake
	s.handshakeStartMS = s.sessionStartMS
}

// SessionExpired reports whether the overall session window has
// elapsed, wraparound-safe.
func (s *Session) SessionExpired() bool {
	return elapsedSince(s.sessionStartMS, s.host.TickMS()) >= uint32(s.timeouts.Session.Milliseconds())
}

// HandshakeExpired reports whether the handshake window elapsed without
// a HANDSHAKE command reaching Ready.
func (s *Session) HandshakeExpired() bool {
	if s.state != Handshake {
		return false
	}
	return elapsedSince(s.handshakeStartMS, s.host.TickMS()) >= uint32(s.timeouts.Handshake.Milliseconds())
}

func beUint32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}
