package ecu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// iacResponder models a valve that moves by step per open/close command.
// A zero step models a stuck valve.
func iacResponder(pos *uint8, step uint8) func(b byte) []byte {
	return func(b byte) []byte {
		switch Command(b) {
		case CmdGetIACPosition:
			return []byte{b, *pos}
		case CmdOpenIAC:
			if *pos+step <= IACMaximum {
				*pos += step
			}
			return []byte{b, *pos}
		case CmdCloseIAC:
			if *pos >= step {
				*pos -= step
			}
			return []byte{b, *pos}
		default:
			return []byte{b, 0x00}
		}
	}
}

func TestMoveIACOpens(t *testing.T) {
	pos := uint8(0x20)
	port := &fakePort{respond: iacResponder(&pos, 0x10)}
	conn := NewConnection(port, GenDualFrame)

	got, err := conn.MoveIAC(0x40)
	require.NoError(t, err)
	assert.Equal(t, uint8(0x40), got)

	w := port.written()
	assert.Equal(t, 2, countByte(w, byte(CmdOpenIAC)), "0x20 to 0x40 in 0x10 steps is exactly two commands")
	assert.Zero(t, countByte(w, byte(CmdCloseIAC)))
}

func TestMoveIACCloses(t *testing.T) {
	pos := uint8(0x40)
	port := &fakePort{respond: iacResponder(&pos, 0x10)}
	conn := NewConnection(port, GenDualFrame)

	got, err := conn.MoveIAC(0x20)
	require.NoError(t, err)
	assert.Equal(t, uint8(0x20), got)

	w := port.written()
	assert.Equal(t, 2, countByte(w, byte(CmdCloseIAC)))
	assert.Zero(t, countByte(w, byte(CmdOpenIAC)))
}

func TestMoveIACNoOp(t *testing.T) {
	pos := uint8(0x30)
	port := &fakePort{respond: iacResponder(&pos, 1)}
	conn := NewConnection(port, GenDualFrame)

	got, err := conn.MoveIAC(0x30)
	require.NoError(t, err)
	assert.Equal(t, uint8(0x30), got)

	w := port.written()
	assert.Zero(t, countByte(w, byte(CmdOpenIAC)), "valve already on target, nothing to actuate")
	assert.Zero(t, countByte(w, byte(CmdCloseIAC)))
}

func TestMoveIACAtMechanicalLimit(t *testing.T) {
	// already at full travel: requesting the limit issues no actuation
	pos := uint8(IACMaximum)
	port := &fakePort{respond: iacResponder(&pos, 1)}
	conn := NewConnection(port, GenDualFrame)

	got, err := conn.MoveIAC(IACMaximum)
	require.NoError(t, err)
	assert.Equal(t, uint8(IACMaximum), got)
	assert.Zero(t, countByte(port.written(), byte(CmdOpenIAC)))
}

func TestMoveIACStuckValve(t *testing.T) {
	pos := uint8(0x20)
	port := &fakePort{respond: iacResponder(&pos, 0)}
	conn := NewConnection(port, GenDualFrame)

	_, err := conn.MoveIAC(0x40)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConvergence)
	assert.Equal(t, iacMoveAttempts, countByte(port.written(), byte(CmdOpenIAC)), "gives up after the attempt bound")
}

func TestMoveIACTargetRange(t *testing.T) {
	port := &fakePort{respond: echoAck}
	conn := NewConnection(port, GenDualFrame)

	_, err := conn.MoveIAC(IACMaximum + 1)
	assert.ErrorIs(t, err, ErrIACTargetRange)
	assert.Empty(t, port.written(), "rejected before touching the wire")
}

func TestReadIACPosition(t *testing.T) {
	pos := uint8(0x5A)
	port := &fakePort{respond: iacResponder(&pos, 1)}
	conn := NewConnection(port, GenDualFrame)

	got, err := conn.ReadIACPosition()
	require.NoError(t, err)
	assert.Equal(t, uint8(0x5A), got)
}

func TestRelayCommands(t *testing.T) {
	port := &fakePort{respond: echoAck}
	conn := NewConnection(port, GenDualFrame)

	require.NoError(t, conn.FuelPump(true))
	require.NoError(t, conn.FuelPump(false))
	require.NoError(t, conn.PTCRelay(true))
	require.NoError(t, conn.ACRelay(false))
	require.NoError(t, conn.TestInjectors())
	require.NoError(t, conn.FireCoil())
	require.NoError(t, conn.ClearFaults())

	want := []byte{
		byte(CmdFuelPumpOn), byte(CmdFuelPumpOff),
		byte(CmdPTCRelayOn), byte(CmdACRelayOff),
		byte(CmdTestInjector), byte(CmdFireCoil),
		byte(CmdClearFaults),
	}
	assert.Equal(t, want, port.written())
}
