package ecu

import (
	"fmt"
	"sync"

	"memslink/internal/logger"
)

// Generation selects which protocol variant the connected ECU speaks. It is
// resolved once, when the connection is constructed, and never re-detected
// per read.
type Generation int

const (
	// GenSingleFrame is the early firmware that only answers the 0x80 data
	// request. Telemetry is reported in degrees Fahrenheit and psi, matching
	// the diagnostic pods of the era.
	GenSingleFrame Generation = iota
	// GenDualFrame additionally answers the 0x7D request and reports
	// temperatures and pressure in the device-native degrees Celsius and kPa,
	// along with the lambda and idle fields only present in that frame.
	GenDualFrame
)

func (g Generation) String() string {
	if g == GenDualFrame {
		return "dual-frame"
	}
	return "single-frame"
}

// ParseGeneration maps a config/CLI string onto a Generation.
func ParseGeneration(s string) (Generation, error) {
	switch s {
	case "", "dual-frame", "dual":
		return GenDualFrame, nil
	case "single-frame", "single":
		return GenSingleFrame, nil
	default:
		return 0, fmt.Errorf("mems: unknown protocol generation %q", s)
	}
}

// Connection is one serial link to the ECU. All operations on it are
// serialized by an internal mutex: a transaction either completes end to
// end under the lock or fails and releases it. The zero value is not
// usable; construct with Connect or NewConnection.
type Connection struct {
	mu   sync.Mutex
	port Port
	gen  Generation
}

// Connect opens the serial device at path and wraps it in a Connection.
// The link handshake is not performed here; call InitLink before trusting
// any other command.
func Connect(path string, gen Generation) (*Connection, error) {
	port, err := OpenPort(path)
	if err != nil {
		return nil, err
	}
	return NewConnection(port, gen), nil
}

// NewConnection wraps an already-open transport. Used by the demo
// simulator and by tests.
func NewConnection(port Port, gen Generation) *Connection {
	return &Connection{port: port, gen: gen}
}

// Generation returns the protocol generation this connection was built for.
func (c *Connection) Generation() Generation {
	return c.gen
}

// IsConnected reports whether the transport is still attached.
func (c *Connection) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.port != nil
}

// Close releases the transport. Waits for any in-flight transaction to
// finish first.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.port == nil {
		return nil
	}
	err := c.port.Close()
	c.port = nil
	return err
}

// withLock runs fn as one guarded transaction. The lock is held for the
// whole call and released on every exit path. Callers must not nest
// guarded operations; the mutex is not reentrant.
func (c *Connection) withLock(fn func() error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.port == nil {
		return ErrNotConnected
	}
	return fn()
}

// writeByte pushes a single byte at the transport. Accepting fewer than
// one byte is a failure.
func (c *Connection) writeByte(b byte) error {
	n, err := c.port.Write([]byte{b})
	if err != nil {
		return fmt.Errorf("mems: write 0x%02X: %w", b, err)
	}
	if n < 1 {
		return fmt.Errorf("%w: 0 of 1 bytes", ErrShortWrite)
	}
	return nil
}

// readExact accumulates repeated transport reads into buf until it is
// full. A read that produces zero bytes means the inter-byte timeout
// elapsed, which aborts with ErrShortRead; no partial result is usable.
func (c *Connection) readExact(buf []byte) error {
	got := 0
	for got < len(buf) {
		n, err := c.port.Read(buf[got:])
		if n <= 0 {
			if err != nil {
				return fmt.Errorf("%w: %d of %d bytes (%v)", ErrShortRead, got, len(buf), err)
			}
			return fmt.Errorf("%w: %d of %d bytes", ErrShortRead, got, len(buf))
		}
		got += n
	}
	return nil
}

// sendCommand writes one command byte and verifies the single-byte echo.
// A mismatched echo is a protocol failure, never a retry condition.
// Must be called with the lock held.
func (c *Connection) sendCommand(cmd Command) error {
	if err := c.writeByte(byte(cmd)); err != nil {
		return err
	}
	echo := make([]byte, 1)
	if err := c.readExact(echo); err != nil {
		return fmt.Errorf("no echo for command 0x%02X: %w", byte(cmd), err)
	}
	if echo[0] != byte(cmd) {
		logger.Debug().
			Str("cmd", cmd.String()).
			Uint8("sent", byte(cmd)).
			Uint8("received", echo[0]).
			Msg("command echo mismatch")
		return fmt.Errorf("%w: sent 0x%02X, received 0x%02X", ErrEchoMismatch, byte(cmd), echo[0])
	}
	return nil
}

// commandWithAck sends a command and reads the one trailing byte that
// follows the echo. Used by the actuator and housekeeping commands, where
// the trailing byte is either the new state or a plain 0x00 acknowledgment.
// A missing trailing byte counts as failure. Must be called with the lock
// held.
func (c *Connection) commandWithAck(cmd Command) (byte, error) {
	if err := c.sendCommand(cmd); err != nil {
		return 0, err
	}
	ack := make([]byte, 1)
	if err := c.readExact(ack); err != nil {
		return 0, fmt.Errorf("no trailing byte for command 0x%02X: %w", byte(cmd), err)
	}
	return ack[0], nil
}

// InitLink runs the fixed four-step startup handshake that the ECU
// requires before any other command is trusted: two synchronization bytes,
// the heartbeat with its trailing null, then 0xD0 whose echo is followed
// by exactly four device identification bytes (99 00 03 03 on the
// Mini SPi). Each step fails fast; the returned identification bytes are
// for diagnostic display only and are not interpreted here.
func (c *Connection) InitLink() ([]byte, error) {
	ident := make([]byte, 4)
	err := c.withLock(func() error {
		if err := c.sendCommand(initByteA); err != nil {
			return fmt.Errorf("init link step 1 (0x%02X): %w", byte(initByteA), err)
		}
		if err := c.sendCommand(initByteB); err != nil {
			return fmt.Errorf("init link step 2 (0x%02X): %w", byte(initByteB), err)
		}
		if _, err := c.commandWithAck(initByteC); err != nil {
			return fmt.Errorf("init link step 3 (0x%02X): %w", byte(initByteC), err)
		}
		if err := c.sendCommand(initByteD); err != nil {
			return fmt.Errorf("init link step 4 (0x%02X): %w", byte(initByteD), err)
		}
		if err := c.readExact(ident); err != nil {
			return fmt.Errorf("init link step 4 (0x%02X) identification: %w", byte(initByteD), err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Debug().
		Str("ident", fmt.Sprintf("% X", ident)).
		Msg("link initialized")
	return ident, nil
}
