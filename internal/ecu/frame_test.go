package ecu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validFrame80() []byte {
	b := make([]byte, Frame80Size)
	b[0] = Frame80Size
	b[1] = 0x0D // rpm hi
	b[2] = 0x7A // rpm lo -> 3450
	b[3] = 55   // coolant: 0 C
	b[4] = 75   // ambient: 20 C
	b[5] = 80   // intake: 25 C
	b[6] = 70   // fuel: 15 C
	b[7] = 100  // map kPa
	b[8] = 140  // battery: 14.0 V
	b[9] = 50   // throttle: 1.0 V
	b[10] = 1   // idle switch
	b[12] = 2   // park/neutral switch (nonzero)
	b[13] = 0x00
	b[14] = 0x00
	b[18] = 0x30 // iac position
	b[19] = 0x01
	b[20] = 0x10 // idle error 0x0110
	b[22] = 72   // advance: 72*0.5-24 = 12
	b[23] = 0x05
	b[24] = 0x14 // coil time 0x0514 -> 2.6 ms
	return b
}

func validFrame7D() []byte {
	b := make([]byte, Frame7DSize)
	b[0] = Frame7DSize
	b[6] = 88   // lambda: 440 mV
	b[10] = 1   // closed loop
	b[11] = 130 // long term fuel trim
	b[15] = 0x28
	return b
}

func TestParseFrame80SizeMismatch(t *testing.T) {
	_, err := parseFrame80(make([]byte, Frame80Size-1))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrShortRead)

	_, err = parseFrame80(make([]byte, Frame80Size+3))
	assert.ErrorIs(t, err, ErrShortRead)
}

func TestParseFrame7DSizeMismatch(t *testing.T) {
	_, err := parseFrame7D(make([]byte, Frame7DSize-5))
	assert.ErrorIs(t, err, ErrShortRead)
}

func TestDecodeSingleFrame(t *testing.T) {
	f80, err := parseFrame80(validFrame80())
	require.NoError(t, err)

	snap := decodeTelemetry(GenSingleFrame, f80, nil)

	assert.Equal(t, uint16(0x0D7A), snap.EngineRPM)
	assert.Equal(t, uint8(32), snap.CoolantTempF, "raw 55 is the zero offset, 0 C = 32 F")
	assert.Equal(t, uint8(68), snap.AmbientTempF)
	assert.InDelta(t, 14.5, snap.MAPPsi, 0.01, "100 kPa")
	assert.InDelta(t, 14.0, snap.BatteryVoltage, 0.001)
	assert.InDelta(t, 1.0, snap.ThrottlePotVoltage, 0.001)
	assert.True(t, snap.IdleSwitch)
	assert.True(t, snap.ParkNeutralSwitch)
	assert.Equal(t, uint8(0x30), snap.IACPosition)
	assert.Zero(t, snap.FaultCodes)

	// single-frame generation leaves the extended fields untouched
	assert.Zero(t, snap.LambdaVoltageMV)
	assert.Zero(t, snap.IgnitionAdvance)
}

func TestDecodeDualFrame(t *testing.T) {
	f80, err := parseFrame80(validFrame80())
	require.NoError(t, err)
	f7d, err := parseFrame7D(validFrame7D())
	require.NoError(t, err)

	snap := decodeTelemetry(GenDualFrame, f80, &f7d)

	assert.Equal(t, uint16(0x0D7A), snap.EngineRPM)
	assert.Equal(t, int16(0), snap.CoolantTempC)
	assert.Equal(t, int16(20), snap.AmbientTempC)
	assert.Equal(t, int16(25), snap.IntakeAirTempC)
	assert.Equal(t, int16(15), snap.FuelTempC)
	assert.InDelta(t, 100.0, snap.MAPKpa, 0.001)
	assert.Equal(t, uint16(0x0110), snap.IdleError)
	assert.InDelta(t, 12.0, snap.IgnitionAdvance, 0.001)
	assert.InDelta(t, 2.6, snap.CoilTime, 0.001)
	assert.Equal(t, uint16(440), snap.LambdaVoltageMV)
	assert.Equal(t, uint8(130), snap.FuelTrim)
	assert.True(t, snap.ClosedLoop)
	assert.Equal(t, uint8(0x28), snap.IdleBasePos)
}

func TestFaultMask(t *testing.T) {
	cases := []struct {
		name       string
		dtc0, dtc1 uint8
		want       uint8
	}{
		{"none", 0x00, 0x00, 0},
		{"coolant", 0x01, 0x00, FaultCoolantSensor},
		{"intake air", 0x02, 0x00, FaultIntakeAirSensor},
		{"fuel pump", 0x00, 0x02, FaultFuelPumpCircuit},
		{"throttle pot", 0x00, 0x80, FaultThrottlePot},
		{"all", 0x03, 0x82, 0b1111},
		{"unrelated bits ignored", 0xFC, 0x7D, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, faultMask(tc.dtc0, tc.dtc1))
		})
	}
}

func TestTemperatureConversion(t *testing.T) {
	assert.Equal(t, uint8(32), temperatureToDegreesF(55))
	assert.Equal(t, uint8(212), temperatureToDegreesF(155)) // 100 C
}

func TestParseGeneration(t *testing.T) {
	g, err := ParseGeneration("dual-frame")
	require.NoError(t, err)
	assert.Equal(t, GenDualFrame, g)

	g, err = ParseGeneration("single")
	require.NoError(t, err)
	assert.Equal(t, GenSingleFrame, g)

	_, err = ParseGeneration("mems3")
	assert.Error(t, err)
}
