// Package response estimates the gain and phase of a device under test from
// paired input/output waveforms sampled at a known rate, and models the
// single-pole RC high-pass filter the measurements are compared against.
//
// Estimates assume the block covers several whole periods of the excitation.
// Short or non-coherent blocks degrade accuracy without any error being
// reported.
package response

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// GainFloorDB is reported in place of a gain when the reference amplitude
// is zero and the ratio is undefined.
const GainFloorDB = -999.0

// RMSAC returns the RMS of x after removing its mean. An empty slice yields 0.
func RMSAC(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	return math.Sqrt(stat.PopVariance(x, nil))
}

// GainDB returns 20*log10(out/in), or GainFloorDB when either amplitude is
// not positive.
func GainDB(in, out float64) float64 {
	if in <= 0 || out <= 0 {
		return GainFloorDB
	}
	return 20 * math.Log10(out/in)
}
