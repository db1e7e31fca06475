package ecu

import "fmt"

// Frame sizes on the wire, echo byte excluded. The first byte of each
// frame is the ECU's own length marker and is preserved as-is.
const (
	Frame80Size = 28
	Frame7DSize = 32
)

// Frame80 is the raw reply to the 0x80 data request, field by field at
// its wire offset. The hi/lo pairs are the only multi-byte fields; they
// combine high byte first.
type Frame80 struct {
	BytesInFrame          uint8 `json:"bytesInFrame"`
	EngineRPMHi           uint8 `json:"engineRpmHi"`
	EngineRPMLo           uint8 `json:"engineRpmLo"`
	CoolantTemp           uint8 `json:"coolantTemp"`
	AmbientTemp           uint8 `json:"ambientTemp"`
	IntakeAirTemp         uint8 `json:"intakeAirTemp"`
	FuelTemp              uint8 `json:"fuelTemp"`
	MAPKpa                uint8 `json:"mapKpa"`
	BatteryVoltage        uint8 `json:"batteryVoltage"`
	ThrottlePot           uint8 `json:"throttlePot"`
	IdleSwitch            uint8 `json:"idleSwitch"`
	Unknown0              uint8 `json:"unknown0"`
	ParkNeutralSwitch     uint8 `json:"parkNeutralSwitch"`
	DTC0                  uint8 `json:"dtc0"`
	DTC1                  uint8 `json:"dtc1"`
	IdleSetpoint          uint8 `json:"idleSetpoint"`
	IdleHot               uint8 `json:"idleHot"`
	Unknown1              uint8 `json:"unknown1"`
	IACPosition           uint8 `json:"iacPosition"`
	IdleErrorHi           uint8 `json:"idleErrorHi"`
	IdleErrorLo           uint8 `json:"idleErrorLo"`
	IgnitionAdvanceOffset uint8 `json:"ignitionAdvanceOffset"`
	IgnitionAdvance       uint8 `json:"ignitionAdvance"`
	CoilTimeHi            uint8 `json:"coilTimeHi"`
	CoilTimeLo            uint8 `json:"coilTimeLo"`
	CrankshaftPos         uint8 `json:"crankshaftPos"`
	Unknown2              uint8 `json:"unknown2"`
	Unknown3              uint8 `json:"unknown3"`
}

// Frame7D is the raw reply to the 0x7D data request. The unknown bytes are
// preserved so nothing observed on the wire is thrown away.
type Frame7D struct {
	BytesInFrame       uint8 `json:"bytesInFrame"`
	IgnitionSwitch     uint8 `json:"ignitionSwitch"`
	ThrottleAngle      uint8 `json:"throttleAngle"`
	Unknown4           uint8 `json:"unknown4"`
	AirFuelRatio       uint8 `json:"airFuelRatio"`
	DTC2               uint8 `json:"dtc2"`
	LambdaVoltage      uint8 `json:"lambdaVoltage"`
	LambdaFreq         uint8 `json:"lambdaFreq"`
	LambdaDutyCycle    uint8 `json:"lambdaDutyCycle"`
	LambdaStatus       uint8 `json:"lambdaStatus"`
	ClosedLoop         uint8 `json:"closedLoop"`
	LongTermFuelTrim   uint8 `json:"longTermFuelTrim"`
	ShortTermFuelTrim  uint8 `json:"shortTermFuelTrim"`
	CarbonCanisterDuty uint8 `json:"carbonCanisterDuty"`
	DTC3               uint8 `json:"dtc3"`
	IdleBasePos        uint8 `json:"idleBasePos"`
	Unknown5           uint8 `json:"unknown5"`
	DTC4               uint8 `json:"dtc4"`
	IgnitionAdvance2   uint8 `json:"ignitionAdvance2"`
	IdleSpeedOffset    uint8 `json:"idleSpeedOffset"`
	IdleError2         uint8 `json:"idleError2"`

	Unknown [11]uint8 `json:"unknown"`
}

// parseFrame80 maps a raw byte slice onto a Frame80, validating the total
// length before any field is read.
func parseFrame80(b []byte) (Frame80, error) {
	if len(b) != Frame80Size {
		return Frame80{}, fmt.Errorf("%w: frame 80 is %d bytes, want %d", ErrShortRead, len(b), Frame80Size)
	}
	return Frame80{
		BytesInFrame:          b[0],
		EngineRPMHi:           b[1],
		EngineRPMLo:           b[2],
		CoolantTemp:           b[3],
		AmbientTemp:           b[4],
		IntakeAirTemp:         b[5],
		FuelTemp:              b[6],
		MAPKpa:                b[7],
		BatteryVoltage:        b[8],
		ThrottlePot:           b[9],
		IdleSwitch:            b[10],
		Unknown0:              b[11],
		ParkNeutralSwitch:     b[12],
		DTC0:                  b[13],
		DTC1:                  b[14],
		IdleSetpoint:          b[15],
		IdleHot:               b[16],
		Unknown1:              b[17],
		IACPosition:           b[18],
		IdleErrorHi:           b[19],
		IdleErrorLo:           b[20],
		IgnitionAdvanceOffset: b[21],
		IgnitionAdvance:       b[22],
		CoilTimeHi:            b[23],
		CoilTimeLo:            b[24],
		CrankshaftPos:         b[25],
		Unknown2:              b[26],
		Unknown3:              b[27],
	}, nil
}

// parseFrame7D maps a raw byte slice onto a Frame7D with the same length
// discipline as parseFrame80.
func parseFrame7D(b []byte) (Frame7D, error) {
	if len(b) != Frame7DSize {
		return Frame7D{}, fmt.Errorf("%w: frame 7D is %d bytes, want %d", ErrShortRead, len(b), Frame7DSize)
	}
	f := Frame7D{
		BytesInFrame:       b[0],
		IgnitionSwitch:     b[1],
		ThrottleAngle:      b[2],
		Unknown4:           b[3],
		AirFuelRatio:       b[4],
		DTC2:               b[5],
		LambdaVoltage:      b[6],
		LambdaFreq:         b[7],
		LambdaDutyCycle:    b[8],
		LambdaStatus:       b[9],
		ClosedLoop:         b[10],
		LongTermFuelTrim:   b[11],
		ShortTermFuelTrim:  b[12],
		CarbonCanisterDuty: b[13],
		DTC3:               b[14],
		IdleBasePos:        b[15],
		Unknown5:           b[16],
		DTC4:               b[17],
		IgnitionAdvance2:   b[18],
		IdleSpeedOffset:    b[19],
		IdleError2:         b[20],
	}
	copy(f.Unknown[:], b[21:])
	return f, nil
}

// RawFrames bundles the raw frame pair from one acquisition. Frame7D is
// only populated on the dual-frame generation.
type RawFrames struct {
	Frame80 Frame80  `json:"frame80"`
	Frame7D *Frame7D `json:"frame7d,omitempty"`
}

// requestFrame issues one data-request command and reads the fixed-size
// frame that follows the echo. Must be called with the lock held.
func (c *Connection) requestFrame(cmd Command, size int) ([]byte, error) {
	if err := c.sendCommand(cmd); err != nil {
		return nil, fmt.Errorf("data request 0x%02X: %w", byte(cmd), err)
	}
	buf := make([]byte, size)
	if err := c.readExact(buf); err != nil {
		return nil, fmt.Errorf("data frame 0x%02X: %w", byte(cmd), err)
	}
	return buf, nil
}

// ReadRaw performs one frame acquisition and returns the undecoded frames.
func (c *Connection) ReadRaw() (*RawFrames, error) {
	var raw RawFrames
	err := c.withLock(func() error {
		b80, err := c.requestFrame(CmdRequestFrame80, Frame80Size)
		if err != nil {
			return err
		}
		raw.Frame80, err = parseFrame80(b80)
		if err != nil {
			return err
		}
		if c.gen != GenDualFrame {
			return nil
		}
		b7d, err := c.requestFrame(CmdRequestFrame7D, Frame7DSize)
		if err != nil {
			return err
		}
		f7d, err := parseFrame7D(b7d)
		if err != nil {
			return err
		}
		raw.Frame7D = &f7d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &raw, nil
}
