package serialmux

import (
	"io"
	"time"
)

// SerialPorter defines the minimal interface needed for a serial port.
// This abstraction enables unit testing without real serial hardware.
type SerialPorter interface {
	io.ReadWriter
	io.Closer
}

// Port is the subset of go.bug.st/serial.Port the acquisition paths use.
// A read timeout makes Read return (0, nil) when nothing arrives in time,
// which the frame decoder treats as "try again".
type Port interface {
	SerialPorter
	SetReadTimeout(timeout time.Duration) error
	ResetInputBuffer() error
}

// Opener opens a serial device. OpenPort is the real implementation; tests
// substitute one that returns a TestableSerialPort.
type Opener func(path string, opts OpenOptions) (Port, error)
