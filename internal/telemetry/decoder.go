// Package telemetry decodes the pipe-delimited link-health lines emitted by
// the relay and wireless receiver firmware.
package telemetry

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/banshee-data/serialscope/internal/timeutil"
)

const (
	minFields = 6

	tagPacket = "PACKET"
	tagStatus = "STATUS"

	keyLatency = "LATENCY"
	keyCount   = "COUNT"
	keyRX      = "RX"
	keyTX      = "TX"
)

var (
	ErrTooFewFields     = errors.New("too few fields")
	ErrMissingLatency   = errors.New("missing LATENCY field")
	ErrChecksumMismatch = errors.New("checksum mismatch")
	ErrNotStatus        = errors.New("not a STATUS line")
)

// ParseError reports a line that could not be decoded. The stream is
// expected to continue; the caller decides whether to count or log it.
type ParseError struct {
	Line string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse telemetry line %q: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Decoder turns text lines into Packets.
type Decoder struct {
	Variant Variant

	// VerifyChecksum rejects relay packets whose checksum field does not
	// match the byte sum of the payload modulo 65536.
	VerifyChecksum bool

	Clock timeutil.Clock
}

// NewDecoder returns a Decoder for the given variant using the real clock.
func NewDecoder(v Variant) *Decoder {
	return &Decoder{Variant: v, Clock: timeutil.RealClock{}}
}

// Decode parses one line. Known non-data lines (STATUS heartbeats, blank
// lines, receiver chatter such as "RX from <mac>") return ok == false with
// a nil error. Malformed lines return a *ParseError.
func (d *Decoder) Decode(line string) (Packet, bool, error) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return Packet{}, false, nil
	}
	fields := strings.Split(trimmed, "|")
	if fields[0] == tagStatus {
		return Packet{}, false, nil
	}

	variant := d.Variant
	if variant == VariantAuto {
		// Lines with no delimiter are free-form firmware output.
		if len(fields) == 1 {
			return Packet{}, false, nil
		}
		variant = VariantRelay
		if fields[0] == tagPacket {
			variant = VariantWireless
		}
	}
	// The wireless receiver prints other lines between packets; only
	// PACKET lines carry data.
	if variant == VariantWireless && fields[0] != tagPacket {
		return Packet{}, false, nil
	}

	var (
		p   Packet
		err error
	)
	switch variant {
	case VariantWireless:
		p, err = decodeWireless(fields)
	default:
		p, err = d.decodeRelay(fields)
	}
	if err != nil {
		return Packet{}, false, &ParseError{Line: line, Err: err}
	}

	p.Variant = variant
	p.LocalReceiveTime = d.now()
	return p, true, nil
}

func (d *Decoder) now() time.Time {
	if d.Clock == nil {
		return timeutil.RealClock{}.Now()
	}
	return d.Clock.Now()
}

func (d *Decoder) decodeRelay(fields []string) (Packet, error) {
	if len(fields) < minFields {
		return Packet{}, fmt.Errorf("%w: got %d, want at least %d", ErrTooFewFields, len(fields), minFields)
	}

	seq, err := parseUint("sequence", fields[0])
	if err != nil {
		return Packet{}, err
	}
	if _, err := parseInt("origin time", fields[1]); err != nil {
		return Packet{}, err
	}
	checksum, err := parseInt("checksum", fields[3])
	if err != nil {
		return Packet{}, err
	}
	rx, err := parseInt("relay rx time", fields[4])
	if err != nil {
		return Packet{}, err
	}
	tx, err := parseInt("relay tx time", fields[5])
	if err != nil {
		return Packet{}, err
	}

	payload := fields[2]
	if d.VerifyChecksum {
		if want := Checksum(payload); want != checksum {
			return Packet{}, fmt.Errorf("%w: got %d, payload sums to %d", ErrChecksumMismatch, checksum, want)
		}
	}

	return Packet{
		Sequence:            seq,
		OriginTime:          fields[1],
		Payload:             payload,
		Checksum:            checksum,
		HasChecksum:         true,
		RelayReceiveMicros:  rx,
		RelayTransmitMicros: tx,
	}, nil
}

func decodeWireless(fields []string) (Packet, error) {
	if len(fields) < minFields {
		return Packet{}, fmt.Errorf("%w: got %d, want at least %d", ErrTooFewFields, len(fields), minFields)
	}

	seq, err := parseUint("sequence", fields[1])
	if err != nil {
		return Packet{}, err
	}
	p := Packet{
		Sequence:   seq,
		OriginTime: fields[2],
		Payload:    fields[3],
	}

	// LATENCY and COUNT are located by key, not position.
	for _, f := range fields {
		key, value, ok := strings.Cut(f, ":")
		if !ok {
			continue
		}
		switch key {
		case keyLatency:
			v, err := parseInt("latency", value)
			if err != nil {
				return Packet{}, err
			}
			p.LatencyMillis, p.HasLatency = v, true
		case keyCount:
			v, err := parseInt("count", value)
			if err != nil {
				return Packet{}, err
			}
			p.Count, p.HasCount = v, true
		}
	}
	if !p.HasLatency {
		return Packet{}, ErrMissingLatency
	}
	return p, nil
}

// ParseStatus decodes a relay heartbeat line of the form
// STATUS|RX:<received>|TX:<forwarded>.
func ParseStatus(line string) (RelayStatus, error) {
	fields := strings.Split(strings.TrimSpace(line), "|")
	if fields[0] != tagStatus {
		return RelayStatus{}, ErrNotStatus
	}
	var st RelayStatus
	for _, f := range fields[1:] {
		key, value, ok := strings.Cut(f, ":")
		if !ok {
			continue
		}
		v, err := parseInt(key, value)
		if err != nil {
			return RelayStatus{}, &ParseError{Line: line, Err: err}
		}
		switch key {
		case keyRX:
			st.Received = v
		case keyTX:
			st.Forwarded = v
		}
	}
	return st, nil
}

// Checksum is the relay firmware's payload checksum: the sum of the payload
// bytes modulo 65536.
func Checksum(payload string) int64 {
	var sum int64
	for i := 0; i < len(payload); i++ {
		sum += int64(payload[i])
	}
	return sum % 65536
}

func parseInt(name, s string) (int64, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, s, err)
	}
	return v, nil
}

func parseUint(name, s string) (uint64, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, s, err)
	}
	return v, nil
}
