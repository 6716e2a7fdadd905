package response

import "math"

const (
	DefaultResistanceOhms    = 10_000.0
	DefaultCapacitanceFarads = 0.1e-6
)

// HighPass is a first-order RC high-pass filter, H(jw) = jwRC / (1 + jwRC).
type HighPass struct {
	ResistanceOhms    float64
	CapacitanceFarads float64
}

// Response is the ideal filter response at one frequency.
type Response struct {
	Magnitude float64
	GainDB    float64
	PhaseDeg  float64
}

// Response evaluates the transfer function at freqHz. Phase is
// atan2(1, wRC), which is 90 degrees at DC and tends to 0 as frequency grows.
func (h HighPass) Response(freqHz float64) Response {
	x := 2 * math.Pi * freqHz * h.ResistanceOhms * h.CapacitanceFarads
	mag := x / math.Sqrt(1+x*x)
	gain := GainFloorDB
	if mag > 0 {
		gain = 20 * math.Log10(mag)
	}
	return Response{
		Magnitude: mag,
		GainDB:    gain,
		PhaseDeg:  degrees(math.Atan2(1, x)),
	}
}

// CornerFrequency returns the -3 dB frequency 1/(2*pi*R*C), or +Inf when
// R*C is zero.
func (h HighPass) CornerFrequency() float64 {
	rc := h.ResistanceOhms * h.CapacitanceFarads
	if rc == 0 {
		return math.Inf(1)
	}
	return 1 / (2 * math.Pi * rc)
}

// TheoreticalResponse returns the ideal high-pass gain in dB and phase in
// degrees at freqHz.
func TheoreticalResponse(freqHz, resistanceOhms, capacitanceFarads float64) (gainDB, phaseDeg float64) {
	r := HighPass{ResistanceOhms: resistanceOhms, CapacitanceFarads: capacitanceFarads}.Response(freqHz)
	return r.GainDB, r.PhaseDeg
}
