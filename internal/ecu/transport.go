package ecu

import (
	"fmt"
	"io"
	"time"

	"go.bug.st/serial"
)

// Port is the byte transport the protocol engine runs over. It is satisfied
// by serial.Port and by the Simulator. Reads are expected to return after
// the port's inter-byte timeout with however many bytes arrived, possibly
// zero; the protocol layer turns a zero-byte read into ErrShortRead.
type Port interface {
	io.ReadWriteCloser
}

// readTimeout mirrors the VTIME=1 behavior of the original diagnostic
// tools: a read returns once no byte has arrived for roughly 100 ms.
const readTimeout = 100 * time.Millisecond

// OpenPort opens the serial device behind the given path and configures it
// for the MEMS link: 9600 baud, 8 data bits, no parity, one stop bit, no
// flow control. Stale input is discarded before the port is handed over.
func OpenPort(path string) (Port, error) {
	mode := &serial.Mode{
		BaudRate: 9600,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("mems: open %s: %w", path, err)
	}
	if err := port.SetReadTimeout(readTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("mems: set read timeout on %s: %w", path, err)
	}
	if err := port.ResetInputBuffer(); err != nil {
		port.Close()
		return nil, fmt.Errorf("mems: flush %s: %w", path, err)
	}
	return port, nil
}
