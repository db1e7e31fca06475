package ecu

import "errors"

var (
	// ErrNotConnected is returned when an operation is attempted before the
	// serial port has been opened, or after Close.
	ErrNotConnected = errors.New("mems: not connected")

	// ErrShortWrite is returned when the transport accepts fewer bytes than
	// were submitted.
	ErrShortWrite = errors.New("mems: short write")

	// ErrShortRead is returned when the transport stops producing bytes
	// before the expected count is reached. Frame-size mismatches surface as
	// this error too.
	ErrShortRead = errors.New("mems: short read")

	// ErrEchoMismatch is returned when the byte echoed by the ECU does not
	// match the command byte that was sent.
	ErrEchoMismatch = errors.New("mems: command echo mismatch")

	// ErrConvergence is returned by MoveIAC when the valve has not reported
	// the target position within the attempt bound.
	ErrConvergence = errors.New("mems: iac valve did not reach target position")

	// ErrIACTargetRange is returned by MoveIAC for targets above IACMaximum.
	ErrIACTargetRange = errors.New("mems: iac target out of range")
)
