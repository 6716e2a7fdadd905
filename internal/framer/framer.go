// Package framer recovers fixed-size binary sample frames from an unreliable
// serial byte stream. Frames start with the two-byte marker 0xAA 0x55 and
// carry two little-endian ADC codes.
//
// The source is expected to behave like a serial port opened with a read
// timeout: a Read that returns (0, nil) means "nothing arrived in time",
// io.EOF means the source is closed, and anything else is a fatal I/O error.
package framer

import (
	"errors"
	"fmt"
	"io"
)

const defaultBufferSize = 256

type state int

const (
	seekMarker1 state = iota
	seekMarker2
	readPayload
)

func (s state) String() string {
	switch s {
	case seekMarker1:
		return "seek-marker-1"
	case seekMarker2:
		return "seek-marker-2"
	case readPayload:
		return "read-payload"
	default:
		return "unknown"
	}
}

// Stats are cumulative counters for one Framer.
type Stats struct {
	Frames    uint64 // complete frames returned
	Skipped   uint64 // bytes discarded while searching for a marker
	Truncated uint64 // partial frames dropped because the source timed out
}

// Framer pulls bytes from a source and yields RawFrames. It is not safe for
// concurrent use; one logical reader owns it.
type Framer struct {
	r io.Reader

	state   state
	payload [PayloadSize]byte
	have    int

	buf        []byte
	start, end int
	pending    error

	stats Stats
}

// New returns a Framer reading from r.
func New(r io.Reader) *Framer {
	return NewSize(r, defaultBufferSize)
}

// NewSize returns a Framer that reads at most size bytes per Read call.
func NewSize(r io.Reader, size int) *Framer {
	if size <= 0 {
		size = defaultBufferSize
	}
	return &Framer{r: r, buf: make([]byte, size)}
}

// Next returns the next complete frame. When the source delivers no bytes
// before its read timeout, Next returns ok == false with a nil error and any
// partially collected payload is discarded. When the source is closed it
// returns io.EOF. Other read errors are returned wrapped and are fatal to the
// stream.
func (f *Framer) Next() (RawFrame, bool, error) {
	for {
		if frame, ok := f.scan(); ok {
			return frame, true, nil
		}

		if f.pending != nil {
			err := f.pending
			f.pending = nil
			return RawFrame{}, false, f.fail(err)
		}

		n, err := f.r.Read(f.buf)
		f.start, f.end = 0, n
		if n > 0 {
			// Bytes delivered alongside an error are framed first.
			f.pending = err
			continue
		}
		if err == nil {
			f.dropPartial()
			return RawFrame{}, false, nil
		}
		return RawFrame{}, false, f.fail(err)
	}
}

// Stats returns a copy of the cumulative counters.
func (f *Framer) Stats() Stats {
	return f.stats
}

func (f *Framer) fail(err error) error {
	f.dropPartial()
	if errors.Is(err, io.EOF) {
		return io.EOF
	}
	return fmt.Errorf("read frame source: %w", err)
}

// dropPartial abandons any in-progress marker or payload and resumes the
// search for a marker.
func (f *Framer) dropPartial() {
	if f.state == readPayload {
		f.stats.Truncated++
	}
	f.state = seekMarker1
	f.have = 0
}

// scan advances the state machine over buffered bytes until a frame
// completes or the buffer is drained.
func (f *Framer) scan() (RawFrame, bool) {
	for f.start < f.end {
		b := f.buf[f.start]
		f.start++

		switch f.state {
		case seekMarker1:
			if b == Marker1 {
				f.state = seekMarker2
			} else {
				f.stats.Skipped++
			}

		case seekMarker2:
			switch b {
			case Marker2:
				f.state = readPayload
				f.have = 0
			case Marker1:
				// the previous 0xAA was noise; this one may start the marker
				f.stats.Skipped++
			default:
				f.stats.Skipped += 2
				f.state = seekMarker1
			}

		case readPayload:
			f.payload[f.have] = b
			f.have++
			if f.have == PayloadSize {
				f.state = seekMarker1
				f.have = 0
				f.stats.Frames++
				return decodePayload(f.payload), true
			}
		}
	}
	return RawFrame{}, false
}
