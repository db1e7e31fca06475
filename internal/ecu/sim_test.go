package ecu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests run the full protocol stack against the simulated ECU,
// the same path the demo mode takes.

func TestSimulatorHandshake(t *testing.T) {
	conn := NewConnection(NewSimulator(), GenDualFrame)
	defer conn.Close()

	ident, err := conn.InitLink()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x99, 0x00, 0x03, 0x03}, ident)
}

func TestSimulatorTelemetry(t *testing.T) {
	conn := NewConnection(NewSimulator(), GenDualFrame)
	defer conn.Close()

	snap, err := conn.Read()
	require.NoError(t, err)

	assert.InDelta(t, 850, float64(snap.EngineRPM), 200, "idling")
	assert.Equal(t, int16(20), snap.CoolantTempC, "engine starts cold")
	assert.InDelta(t, 14.0, snap.BatteryVoltage, 0.5)
	assert.True(t, snap.IdleSwitch)
	assert.NotZero(t, snap.LambdaVoltageMV)
	assert.True(t, snap.ClosedLoop)
	assert.Zero(t, snap.FaultCodes)
}

func TestSimulatorWarmsUp(t *testing.T) {
	conn := NewConnection(NewSimulator(), GenSingleFrame)
	defer conn.Close()

	first, err := conn.Read()
	require.NoError(t, err)
	for i := 0; i < 50; i++ {
		_, err = conn.Read()
		require.NoError(t, err)
	}
	last, err := conn.Read()
	require.NoError(t, err)

	assert.Greater(t, last.CoolantTempF, first.CoolantTempF)
}

func TestSimulatorIACConverges(t *testing.T) {
	sim := NewSimulator()
	conn := NewConnection(sim, GenDualFrame)
	defer conn.Close()

	// the simulated motor skips steps now and then; the controller must
	// still land on the target well inside its attempt budget
	pos, err := conn.MoveIAC(0x30)
	require.NoError(t, err)
	assert.Equal(t, uint8(0x30), pos)

	pos, err = conn.MoveIAC(IACMaximum)
	require.NoError(t, err)
	assert.Equal(t, uint8(IACMaximum), pos)

	got, err := conn.ReadIACPosition()
	require.NoError(t, err)
	assert.Equal(t, uint8(IACMaximum), got)
}

func TestSimulatorActuators(t *testing.T) {
	conn := NewConnection(NewSimulator(), GenDualFrame)
	defer conn.Close()

	require.NoError(t, conn.Heartbeat())
	require.NoError(t, conn.FuelPump(true))
	require.NoError(t, conn.FuelPump(false))
	require.NoError(t, conn.TestInjectors())
	require.NoError(t, conn.FireCoil())
	require.NoError(t, conn.ClearFaults())
}

func TestSimulatorClosed(t *testing.T) {
	sim := NewSimulator()
	conn := NewConnection(sim, GenDualFrame)
	require.NoError(t, conn.Close())

	assert.ErrorIs(t, conn.Heartbeat(), ErrNotConnected)
}
