package framer

// Wire layout: marker, then two little-endian uint16 ADC codes.
const (
	Marker1 byte = 0xAA
	Marker2 byte = 0x55

	PayloadSize = 4
	FrameSize   = 2 + PayloadSize
)

// RawFrame is one input/output ADC sample pair recovered from the stream.
// Codes come from a 10-bit converter and are expected in 0..1023.
type RawFrame struct {
	Input  uint16
	Output uint16
}

// Encode returns the wire bytes for f, marker included.
func Encode(f RawFrame) []byte {
	return []byte{
		Marker1, Marker2,
		byte(f.Input), byte(f.Input >> 8),
		byte(f.Output), byte(f.Output >> 8),
	}
}

func decodePayload(p [PayloadSize]byte) RawFrame {
	return RawFrame{
		Input:  uint16(p[0]) | uint16(p[1])<<8,
		Output: uint16(p[2]) | uint16(p[3])<<8,
	}
}

// ADC describes the converter that produced the codes.
type ADC struct {
	MaxCode float64 // full-scale code, 1023 for a 10-bit converter
	VRef    float64 // reference voltage in volts
}

// DefaultADC matches an Arduino Uno/Nano running from its 5 V AREF.
func DefaultADC() ADC {
	return ADC{MaxCode: 1023, VRef: 5.0}
}

// Volts converts a single code.
func (a ADC) Volts(code uint16) float64 {
	if a.MaxCode <= 0 {
		return 0
	}
	return float64(code) / a.MaxCode * a.VRef
}

// FrameVolts converts both channels of f.
func (a ADC) FrameVolts(f RawFrame) (in, out float64) {
	return a.Volts(f.Input), a.Volts(f.Output)
}
