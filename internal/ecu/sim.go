package ecu

import (
	"math"
	"math/rand"
	"sync"
)

// Simulator emulates a MEMS 1.6 ECU at the wire level for demo mode and
// tests: it echoes command bytes, answers the startup handshake, produces
// drifting engine data frames, and steps the idle air control valve.
// It implements Port, so it plugs in wherever a serial port would.
type Simulator struct {
	mu     sync.Mutex
	closed bool
	out    []byte // bytes queued for the host to read

	t       float64 // virtual time accumulator
	coolant float64 // °C, warms toward operating temperature
	iacPos  uint8
	dtc0    uint8
	dtc1    uint8
}

// NewSimulator returns a simulator with a cold engine and a half-open IAC
// valve.
func NewSimulator() *Simulator {
	return &Simulator{
		coolant: 20,
		iacPos:  0x50,
	}
}

func (s *Simulator) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.out = nil
	return nil
}

// Read drains queued response bytes. An empty queue behaves like the
// serial inter-byte timeout: zero bytes, no error.
func (s *Simulator) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || len(s.out) == 0 {
		return 0, nil
	}
	n := copy(p, s.out)
	s.out = s.out[n:]
	return n, nil
}

// Write consumes command bytes one at a time and queues the echo plus
// whatever response the real ECU would produce.
func (s *Simulator) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, nil
	}
	for _, b := range p {
		s.handleCommand(b)
	}
	return len(p), nil
}

func (s *Simulator) handleCommand(b byte) {
	s.out = append(s.out, b) // echo first, always

	switch Command(b) {
	case initByteA, initByteB:
		// bare echo
	case initByteD:
		s.out = append(s.out, 0x99, 0x00, 0x03, 0x03)
	case CmdHeartbeat, CmdClearFaults:
		if Command(b) == CmdClearFaults {
			s.dtc0, s.dtc1 = 0, 0
		}
		s.out = append(s.out, 0x00)
	case CmdRequestFrame80:
		s.out = append(s.out, s.frame80()...)
	case CmdRequestFrame7D:
		s.out = append(s.out, s.frame7d()...)
	case CmdGetIACPosition:
		s.out = append(s.out, s.iacPos)
	case CmdOpenIAC:
		// the motor does not always take a physical step per command
		if s.iacPos < IACMaximum && rand.Float64() > 0.2 {
			s.iacPos++
		}
		s.out = append(s.out, s.iacPos)
	case CmdCloseIAC:
		if s.iacPos > 0 && rand.Float64() > 0.2 {
			s.iacPos--
		}
		s.out = append(s.out, s.iacPos)
	case CmdFuelPumpOn, CmdFuelPumpOff, CmdPTCRelayOn, CmdPTCRelayOff,
		CmdACRelayOn, CmdACRelayOff, CmdTestInjector, CmdFireCoil:
		s.out = append(s.out, 0x00)
	default:
		// a real ECU stays silent on bytes it does not understand, which
		// surfaces upstream as a missing echo
		s.out = s.out[:len(s.out)-1]
	}
}

// frame80 renders the current engine model as a raw 0x80 frame.
func (s *Simulator) frame80() []byte {
	s.t += 0.05
	if s.coolant < 88 {
		s.coolant += 0.2
	}

	rpm := uint16(850 + 120*math.Sin(s.t*0.3) + rand.Float64()*40)
	ambient := 18.0 + rand.Float64()*2
	intake := s.coolant*0.4 + 15
	mapKpa := uint8(34 + rand.Float64()*4)
	battery := uint8(138 + rand.Float64()*4) // 13.8-14.2 V
	throttle := uint8(50 + rand.Float64()*5) // ~1 V at idle
	advance := uint8((12.0 + 24.0) * 2)      // 12° BTDC
	coil := uint16(2.6 / 0.002)              // 2.6 ms charge time

	f := make([]byte, Frame80Size)
	f[0] = Frame80Size
	f[1] = byte(rpm >> 8)
	f[2] = byte(rpm)
	f[3] = byte(int(s.coolant) + tempZeroOffset)
	f[4] = byte(int(ambient) + tempZeroOffset)
	f[5] = byte(int(intake) + tempZeroOffset)
	f[6] = byte(int(ambient) + tempZeroOffset) // fuel temp tracks ambient
	f[7] = mapKpa
	f[8] = battery
	f[9] = throttle
	f[10] = 1 // idle switch closed
	f[12] = 0 // in gear
	f[13] = s.dtc0
	f[14] = s.dtc1
	f[18] = s.iacPos
	f[19] = 0
	f[20] = byte(10 + rand.Intn(20)) // small idle error
	f[22] = advance
	f[23] = byte(coil >> 8)
	f[24] = byte(coil)
	return f
}

// frame7d renders the lambda side of the model as a raw 0x7D frame.
func (s *Simulator) frame7d() []byte {
	lambda := uint8(90 + rand.Intn(40)) // 450-650 mV in 5 mV units

	f := make([]byte, Frame7DSize)
	f[0] = Frame7DSize
	f[1] = 1 // ignition on
	f[2] = byte(25 + rand.Intn(4))
	f[4] = 147 // 14.7:1
	f[6] = lambda
	f[9] = 1 // lambda circuit active
	f[10] = 1 // closed loop once warm
	f[11] = byte(128 + rand.Intn(8))
	f[12] = byte(128 + rand.Intn(8))
	f[15] = 0x28 // idle base position
	return f
}
