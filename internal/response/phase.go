package response

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/stat"
)

// Measurement is the estimator output for one excitation frequency.
type Measurement struct {
	InputRMS  float64
	OutputRMS float64
	GainDB    float64
	// PhaseDeg is the output phase minus the input phase at the excitation
	// frequency, in (-180, 180].
	PhaseDeg float64
}

// Phasor correlates the DC-removed signal x, sampled at sampleRateHz, with
// exp(-j*2*pi*freqHz*t). The argument of the result is the phase of the
// freqHz component of x.
func Phasor(x []float64, sampleRateHz, freqHz float64) complex128 {
	if len(x) == 0 || sampleRateHz <= 0 {
		return 0
	}
	mean := stat.Mean(x, nil)
	w := -2 * math.Pi * freqHz / sampleRateHz
	var acc complex128
	for n, v := range x {
		acc += complex(v-mean, 0) * cmplx.Rect(1, w*float64(n))
	}
	return acc
}

// Measure estimates the response of the device under test at freqHz from
// equal-length input and output blocks. Extra samples in the longer block
// are ignored.
func Measure(in, out []float64, sampleRateHz, freqHz float64) Measurement {
	if len(out) < len(in) {
		in = in[:len(out)]
	} else {
		out = out[:len(in)]
	}

	m := Measurement{
		InputRMS:  RMSAC(in),
		OutputRMS: RMSAC(out),
	}
	m.GainDB = GainDB(m.InputRMS, m.OutputRMS)

	pin := Phasor(in, sampleRateHz, freqHz)
	pout := Phasor(out, sampleRateHz, freqHz)
	m.PhaseDeg = WrapDegrees(degrees(cmplx.Phase(pout) - cmplx.Phase(pin)))
	return m
}

// WrapDegrees maps an angle into (-180, 180].
func WrapDegrees(deg float64) float64 {
	w := math.Mod(deg+180, 360)
	if w <= 0 {
		w += 360
	}
	return w - 180
}

func degrees(rad float64) float64 { return rad * 180 / math.Pi }
