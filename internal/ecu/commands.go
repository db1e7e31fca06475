package ecu

// Command is a single-byte ECU command. Every command except the raw
// handshake bytes is echoed verbatim by the ECU as its first response byte.
type Command byte

// Data request and housekeeping commands.
const (
	CmdRequestFrame7D Command = 0x7D // secondary data frame (dual-frame generation only)
	CmdRequestFrame80 Command = 0x80 // primary data frame
	CmdClearFaults    Command = 0xCC
	CmdHeartbeat      Command = 0xF4
	CmdGetIACPosition Command = 0xFB
)

// Actuator commands. The relay commands come in on/off pairs, but MEMS 1.6
// shuts the actuator off by itself after less than a second; the "off"
// command is acknowledged without any further action.
const (
	CmdFuelPumpOn   Command = 0x11
	CmdFuelPumpOff  Command = 0x01
	CmdPTCRelayOn   Command = 0x12
	CmdPTCRelayOff  Command = 0x02
	CmdACRelayOn    Command = 0x13
	CmdACRelayOff   Command = 0x03
	CmdTestInjector Command = 0xF7
	CmdFireCoil     Command = 0xF8
	CmdOpenIAC      Command = 0xFD
	CmdCloseIAC     Command = 0xFE
)

// Link initialization bytes, sent in this order by InitLink. The 0xD0 echo
// is followed by four device identification bytes (99 00 03 03 on the
// Mini SPi).
const (
	initByteA Command = 0xCA
	initByteB Command = 0x75
	initByteC         = CmdHeartbeat
	initByteD Command = 0xD0
)

// IACMaximum is the fully-open idle air control valve position as reported
// by the ECU. Fully closed is 0.
const IACMaximum = 0xB4

func (c Command) String() string {
	switch c {
	case CmdRequestFrame7D:
		return "request-frame-7d"
	case CmdRequestFrame80:
		return "request-frame-80"
	case CmdClearFaults:
		return "clear-faults"
	case CmdHeartbeat:
		return "heartbeat"
	case CmdGetIACPosition:
		return "get-iac-position"
	case CmdFuelPumpOn:
		return "fuel-pump-on"
	case CmdFuelPumpOff:
		return "fuel-pump-off"
	case CmdPTCRelayOn:
		return "ptc-relay-on"
	case CmdPTCRelayOff:
		return "ptc-relay-off"
	case CmdACRelayOn:
		return "ac-relay-on"
	case CmdACRelayOff:
		return "ac-relay-off"
	case CmdTestInjector:
		return "test-injector"
	case CmdFireCoil:
		return "fire-coil"
	case CmdOpenIAC:
		return "open-iac"
	case CmdCloseIAC:
		return "close-iac"
	default:
		return "unknown"
	}
}
