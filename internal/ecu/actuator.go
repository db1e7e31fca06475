package ecu

import (
	"fmt"

	"memslink/internal/logger"
)

// iacMoveAttempts bounds the convergence loop. The stepper motor does not
// guarantee one physical step per command, so convergence is probabilistic
// and has to be capped to avoid blocking forever on a stuck or
// disconnected valve.
const iacMoveAttempts = 300

// actuate is the shared body of every echo-plus-one-trailing-byte command.
func (c *Connection) actuate(cmd Command) (byte, error) {
	var ack byte
	err := c.withLock(func() error {
		var err error
		ack, err = c.commandWithAck(cmd)
		return err
	})
	return ack, err
}

// FuelPump switches the fuel pump relay. The ECU releases the relay by
// itself after under a second; the off command is acknowledged but takes
// no further action.
func (c *Connection) FuelPump(on bool) error {
	cmd := CmdFuelPumpOff
	if on {
		cmd = CmdFuelPumpOn
	}
	_, err := c.actuate(cmd)
	return err
}

// PTCRelay switches the manifold heater (positive temperature coefficient)
// relay.
func (c *Connection) PTCRelay(on bool) error {
	cmd := CmdPTCRelayOff
	if on {
		cmd = CmdPTCRelayOn
	}
	_, err := c.actuate(cmd)
	return err
}

// ACRelay switches the air conditioning relay.
func (c *Connection) ACRelay(on bool) error {
	cmd := CmdACRelayOff
	if on {
		cmd = CmdACRelayOn
	}
	_, err := c.actuate(cmd)
	return err
}

// TestInjectors cycles the fuel injectors once. The trailing byte has been
// observed as 0x03.
func (c *Connection) TestInjectors() error {
	_, err := c.actuate(CmdTestInjector)
	return err
}

// FireCoil fires the ignition coil once.
func (c *Connection) FireCoil() error {
	_, err := c.actuate(CmdFireCoil)
	return err
}

// ClearFaults clears any stored fault codes. The trailing byte (expected
// 0x00) must arrive for the command to count as successful.
func (c *Connection) ClearFaults() error {
	_, err := c.actuate(CmdClearFaults)
	return err
}

// Heartbeat pings the ECU. The trailing byte (expected 0x00) must arrive
// for the ping to count as successful.
func (c *Connection) Heartbeat() error {
	_, err := c.actuate(CmdHeartbeat)
	return err
}

// ReadIACPosition queries the current idle air control valve position.
func (c *Connection) ReadIACPosition() (uint8, error) {
	return c.actuate(CmdGetIACPosition)
}

// stepIAC issues one open or close step and returns the position the ECU
// reports afterward.
func (c *Connection) stepIAC(cmd Command) (uint8, error) {
	return c.actuate(cmd)
}

// MoveIAC drives the idle air control valve toward target, one step
// command at a time, re-reading the reported position after each step.
// Each step is its own guarded transaction, so other short transactions
// may interleave between steps but never inside one.
//
// No actuation happens when the valve already reports the target, or when
// it reports full travel and the target lies beyond it; that counts as
// success. Otherwise the loop runs until the reported position matches the
// target or the attempt bound is hit, whichever comes first. The ECU
// itself clamps travel at 0 and IACMaximum; no client-side clamping is
// layered on top.
func (c *Connection) MoveIAC(target uint8) (uint8, error) {
	if target > IACMaximum {
		return 0, fmt.Errorf("%w: 0x%02X > 0x%02X", ErrIACTargetRange, target, IACMaximum)
	}

	pos, err := c.ReadIACPosition()
	if err != nil {
		return 0, err
	}
	if pos == target || (target > pos && pos >= IACMaximum) {
		return pos, nil
	}

	cmd := CmdCloseIAC
	if target > pos {
		cmd = CmdOpenIAC
	}
	for attempt := 0; attempt < iacMoveAttempts; attempt++ {
		pos, err = c.stepIAC(cmd)
		if err != nil {
			return 0, err
		}
		if pos == target {
			return pos, nil
		}
	}
	logger.Debug().
		Uint8("target", target).
		Uint8("position", pos).
		Int("attempts", iacMoveAttempts).
		Msg("iac convergence bound exceeded")
	return pos, fmt.Errorf("%w: at 0x%02X after %d attempts, want 0x%02X",
		ErrConvergence, pos, iacMoveAttempts, target)
}
