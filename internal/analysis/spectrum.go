package analysis

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

type Bin struct {
	Frequency float64
	Magnitude float64
}

// Spectrum returns the one-sided magnitude spectrum of values sampled at
// sampleRate Hz. The mean is removed first so the DC bin carries no energy.
func Spectrum(values []float64, sampleRate float64) []Bin {
	n := len(values)
	if n < 2 || sampleRate <= 0 {
		return nil
	}

	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(n)

	centred := make([]float64, n)
	for i, v := range values {
		centred[i] = v - mean
	}

	coeffs := fft.FFTReal(centred)
	bins := make([]Bin, n/2+1)
	for k := range bins {
		bins[k] = Bin{
			Frequency: float64(k) * sampleRate / float64(n),
			Magnitude: cmplx.Abs(coeffs[k]) / float64(n),
		}
	}
	return bins
}

// DominantFrequency returns the non-DC frequency with the largest
// magnitude. It reports false for flat or too-short input.
func DominantFrequency(values []float64, sampleRate float64) (float64, bool) {
	bins := Spectrum(values, sampleRate)
	best, peak := -1, 1e-12
	for k := 1; k < len(bins); k++ {
		if bins[k].Magnitude > peak {
			best, peak = k, bins[k].Magnitude
		}
	}
	if best < 0 {
		return 0, false
	}
	return bins[best].Frequency, true
}
