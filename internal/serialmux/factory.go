package serialmux

import (
	"fmt"
	"time"

	"go.bug.st/serial"
)

// sleep is replaced in tests.
var sleep = time.Sleep

// OpenPort opens the serial device at path with go.bug.st/serial and
// applies the read timeout and reset delay from opts.
func OpenPort(path string, opts OpenOptions) (Port, error) {
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}

	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", path, err)
	}
	if err := Prepare(port, opts); err != nil {
		port.Close()
		return nil, fmt.Errorf("prepare serial port %s: %w", path, err)
	}
	return port, nil
}

// Prepare applies the post-open settings in opts to an already open port.
func Prepare(port Port, opts OpenOptions) error {
	if opts.ReadTimeout > 0 {
		if err := port.SetReadTimeout(opts.ReadTimeout); err != nil {
			return fmt.Errorf("set read timeout: %w", err)
		}
	}
	if opts.ResetDelay > 0 {
		sleep(opts.ResetDelay)
		if err := port.ResetInputBuffer(); err != nil {
			return fmt.Errorf("reset input buffer: %w", err)
		}
	}
	return nil
}

// OpenSerialMux opens path with open and wraps the port in a SerialMux.
// Line readers block until Close, so any read timeout in opts is cleared.
// A nil open uses OpenPort.
func OpenSerialMux(open Opener, path string, opts OpenOptions) (*SerialMux[Port], error) {
	if open == nil {
		open = OpenPort
	}
	opts.ReadTimeout = 0
	port, err := open(path, opts)
	if err != nil {
		return nil, err
	}
	return NewSerialMux[Port](port), nil
}
