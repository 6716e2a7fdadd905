package response

import (
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Spectrum returns the single-sided magnitude spectrum of x after removing
// the mean and applying a Hann window. freqs[i] is the centre of bin i in Hz.
// Blocks shorter than two samples yield nil slices.
func Spectrum(x []float64, sampleRateHz float64) (freqs, mags []float64) {
	n := len(x)
	if n < 2 || sampleRateHz <= 0 {
		return nil, nil
	}

	seq := append([]float64(nil), x...)
	floats.AddConst(-stat.Mean(x, nil), seq)
	window.Hann(seq)

	fft := fourier.NewFFT(n)
	coeffs := fft.Coefficients(nil, seq)

	freqs = make([]float64, len(coeffs))
	mags = make([]float64, len(coeffs))
	for i, c := range coeffs {
		freqs[i] = fft.Freq(i) * sampleRateHz
		mags[i] = cmplx.Abs(c)
	}
	return freqs, mags
}

// DominantFrequency returns the centre frequency of the strongest non-DC
// bin of Spectrum(x, sampleRateHz).
func DominantFrequency(x []float64, sampleRateHz float64) (float64, bool) {
	freqs, mags := Spectrum(x, sampleRateHz)
	if len(mags) < 2 {
		return 0, false
	}
	best := 1 + floats.MaxIdx(mags[1:])
	if mags[best] == 0 {
		return 0, false
	}
	return freqs[best], true
}
