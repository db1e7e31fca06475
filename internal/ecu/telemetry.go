package ecu

// Fault mask bits extracted from the DTC bytes of frame 80. Independent
// bit tests, combined by OR; more than one can be set.
const (
	FaultCoolantSensor   = 1 << 0 // coolant temp sensor circuit
	FaultIntakeAirSensor = 1 << 1 // intake air temp sensor circuit
	FaultFuelPumpCircuit = 1 << 2
	FaultThrottlePot     = 1 << 3
)

// Telemetry is the normalized, engineering-unit view of one frame
// acquisition. It is produced fresh on every successful Read and never
// mutated afterward.
//
// The single-frame generation reports temperatures in degrees Fahrenheit
// and manifold pressure in psi, matching the diagnostic pods that firmware
// shipped with; the dual-frame generation keeps the device-native degrees
// Celsius and kPa and additionally fills the fields below MAPKpa.
type Telemetry struct {
	EngineRPM uint16 `json:"engineRpm"`

	// Single-frame generation units
	CoolantTempF   uint8   `json:"coolantTempF,omitempty"`
	AmbientTempF   uint8   `json:"ambientTempF,omitempty"`
	IntakeAirTempF uint8   `json:"intakeAirTempF,omitempty"`
	MAPPsi         float64 `json:"mapPsi,omitempty"`

	// Dual-frame generation units
	CoolantTempC   int16   `json:"coolantTempC,omitempty"`
	AmbientTempC   int16   `json:"ambientTempC,omitempty"`
	IntakeAirTempC int16   `json:"intakeAirTempC,omitempty"`
	FuelTempC      int16   `json:"fuelTempC,omitempty"`
	MAPKpa         float64 `json:"mapKpa,omitempty"`

	BatteryVoltage     float64 `json:"batteryVoltage"`
	ThrottlePotVoltage float64 `json:"throttlePotVoltage"`
	IdleSwitch         bool    `json:"idleSwitch"`
	ParkNeutralSwitch  bool    `json:"parkNeutralSwitch"`
	FaultCodes         uint8   `json:"faultCodes"`
	IACPosition        uint8   `json:"iacPosition"`

	// Dual-frame generation only
	IdleError       uint16  `json:"idleError,omitempty"`
	IgnitionAdvance float64 `json:"ignitionAdvance,omitempty"`
	CoilTime        float64 `json:"coilTime,omitempty"`
	LambdaVoltageMV uint16  `json:"lambdaVoltageMv,omitempty"`
	FuelTrim        uint8   `json:"fuelTrim,omitempty"`
	ClosedLoop      bool    `json:"closedLoop,omitempty"`
	IdleBasePos     uint8   `json:"idleBasePos,omitempty"`
}

// The ECU stores temperatures with a +55 zero offset.
const tempZeroOffset = 55

// kPa per psi.
const kpaPerPsi = 6.89475729

func temperatureToDegreesF(raw uint8) uint8 {
	degreesC := raw - tempZeroOffset
	return uint8(float64(degreesC)*1.8 + 32)
}

func kpaToPsi(kpa uint8) float64 {
	return float64(kpa) / kpaPerPsi
}

func faultMask(dtc0, dtc1 uint8) uint8 {
	var mask uint8
	if dtc0&0x01 != 0 {
		mask |= FaultCoolantSensor
	}
	if dtc0&0x02 != 0 {
		mask |= FaultIntakeAirSensor
	}
	if dtc1&0x02 != 0 {
		mask |= FaultFuelPumpCircuit
	}
	if dtc1&0x80 != 0 {
		mask |= FaultThrottlePot
	}
	return mask
}

// decodeTelemetry is a pure function of the raw frame pair. Frame 7D may
// be nil, in which case only the single-frame fields are populated.
func decodeTelemetry(gen Generation, f80 Frame80, f7d *Frame7D) *Telemetry {
	t := &Telemetry{
		EngineRPM:          uint16(f80.EngineRPMHi)<<8 | uint16(f80.EngineRPMLo),
		BatteryVoltage:     float64(f80.BatteryVoltage) / 10.0,
		ThrottlePotVoltage: float64(f80.ThrottlePot) * 0.02,
		IdleSwitch:         f80.IdleSwitch != 0,
		ParkNeutralSwitch:  f80.ParkNeutralSwitch != 0,
		FaultCodes:         faultMask(f80.DTC0, f80.DTC1),
		IACPosition:        f80.IACPosition,
	}

	if gen == GenSingleFrame {
		t.CoolantTempF = temperatureToDegreesF(f80.CoolantTemp)
		t.AmbientTempF = temperatureToDegreesF(f80.AmbientTemp)
		t.IntakeAirTempF = temperatureToDegreesF(f80.IntakeAirTemp)
		t.MAPPsi = kpaToPsi(f80.MAPKpa)
		return t
	}

	t.CoolantTempC = int16(f80.CoolantTemp) - tempZeroOffset
	t.AmbientTempC = int16(f80.AmbientTemp) - tempZeroOffset
	t.IntakeAirTempC = int16(f80.IntakeAirTemp) - tempZeroOffset
	t.FuelTempC = int16(f80.FuelTemp) - tempZeroOffset
	t.MAPKpa = float64(f80.MAPKpa)
	t.IdleError = uint16(f80.IdleErrorHi)<<8 | uint16(f80.IdleErrorLo)
	t.IgnitionAdvance = float64(f80.IgnitionAdvance)*0.5 - 24.0
	t.CoilTime = (float64(f80.CoilTimeHi)*256 + float64(f80.CoilTimeLo)) * 0.002

	if f7d != nil {
		t.LambdaVoltageMV = uint16(f7d.LambdaVoltage) * 5
		t.FuelTrim = f7d.LongTermFuelTrim
		t.ClosedLoop = f7d.ClosedLoop != 0
		t.IdleBasePos = f7d.IdleBasePos
	}
	return t
}

// Read performs one full telemetry acquisition under the guard: the 0x80
// request, the 0x7D request on the dual-frame generation, then the decode.
// On any failure no snapshot is returned.
func (c *Connection) Read() (*Telemetry, error) {
	raw, err := c.ReadRaw()
	if err != nil {
		return nil, err
	}
	return decodeTelemetry(c.gen, raw.Frame80, raw.Frame7D), nil
}
