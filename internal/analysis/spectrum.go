package analysis

import (
	"errors"
	"math"
	"math/cmplx"
	"sort"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
)

var ErrTooFewSamples = errors.New("analysis: too few samples")

// Resample interpolates (times, values) linearly onto n evenly spaced
// points spanning the recorded interval. times must be increasing.
func Resample(times, values []float64, n int) ([]float64, float64, error) {
	if len(times) < 2 || len(times) != len(values) || n < 2 {
		return nil, 0, ErrTooFewSamples
	}

	t0, t1 := times[0], times[len(times)-1]
	step := (t1 - t0) / float64(n-1)
	out := make([]float64, n)

	j := 0
	for i := range out {
		t := t0 + float64(i)*step
		for j < len(times)-2 && times[j+1] < t {
			j++
		}
		span := times[j+1] - times[j]
		if span == 0 {
			out[i] = values[j+1]
			continue
		}
		f := math.Max(0, math.Min(1, (t-times[j])/span))
		out[i] = values[j] + f*(values[j+1]-values[j])
	}
	return out, step, nil
}

// PowerSpectrum returns |X(f)| for the non-negative frequencies of a
// signal sampled every dt seconds, together with those frequencies in Hz.
// The mean is removed first so the DC bin does not dominate.
func PowerSpectrum(signal []float64, dt float64) (power, freqs []float64) {
	n := len(signal)
	centered := make([]float64, n)
	copy(centered, signal)
	floats.AddConst(-floats.Sum(centered)/float64(n), centered)

	fft := fourier.NewFFT(n)
	coeff := fft.Coefficients(nil, centered)

	power = make([]float64, len(coeff))
	freqs = make([]float64, len(coeff))
	for i, c := range coeff {
		power[i] = cmplx.Abs(c)
		freqs[i] = fft.Freq(i) / dt
	}
	return power, freqs
}

// PeakFrequency resamples the trajectory onto n points and returns the
// frequency of the strongest non-DC spectral line, refined by parabolic
// interpolation between neighbouring bins.
func PeakFrequency(times, values []float64, n int) (float64, error) {
	signal, dt, err := Resample(times, values, n)
	if err != nil {
		return 0, err
	}
	power, freqs := PowerSpectrum(signal, dt)
	if len(power) < 3 {
		return 0, ErrTooFewSamples
	}

	k := floats.MaxIdx(power[1:]) + 1
	if k == len(power)-1 {
		return freqs[k], nil
	}

	a, b, c := power[k-1], power[k], power[k+1]
	den := a - 2*b + c
	if den == 0 {
		return freqs[k], nil
	}
	delta := 0.5 * (a - c) / den
	return freqs[k] + delta*(freqs[1]-freqs[0]), nil
}

// LarmorFrequency is the precession frequency in Hz of a macrospin with
// damping alpha in a field of magnitude h (A/m).
func LarmorFrequency(gamma, alpha, h float64) float64 {
	return gamma * h / (2 * math.Pi * (1 + alpha*alpha))
}

// TopPeaks returns the indices of the k largest non-DC bins, strongest first.
func TopPeaks(power []float64, k int) []int {
	idx := make([]int, 0, len(power))
	for i := 1; i < len(power); i++ {
		idx = append(idx, i)
	}
	sort.Slice(idx, func(a, b int) bool { return power[idx[a]] > power[idx[b]] })
	return idx[:min(k, len(idx))]
}
