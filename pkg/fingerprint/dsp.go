package fingerprint

import (
	"errors"
	"math"
)

// Preprocessing for audio captured over the air. The chain mirrors what
// a microphone capture needs before peaks become repeatable: normalize,
// strip low-frequency rumble, lift the highs, gate the hiss, normalize
// again.

const (
	highPassOrder   = 4
	preEmphasisCoef = 0.97
	noiseGateLevel  = 0.01
)

// PreprocessSignal applies the capture-hardening chain in place-safe
// fashion (the input slice is not modified).
func PreprocessSignal(samples []float64, sampleRate int, cutoffHz float64) []float64 {
	out := make([]float64, len(samples))
	copy(out, samples)

	normalize(out)
	out = highPass(out, sampleRate, cutoffHz)
	preEmphasis(out, preEmphasisCoef)
	noiseGate(out, noiseGateLevel)
	normalize(out)

	return out
}

// normalize scales samples to peak at +/-1. Silence is left untouched.
func normalize(samples []float64) {
	peak := 0.0
	for _, s := range samples {
		if a := math.Abs(s); a > peak {
			peak = a
		}
	}
	if peak == 0 {
		return
	}
	for i := range samples {
		samples[i] /= peak
	}
}

// preEmphasis boosts high frequencies: y[n] = x[n] - coef*x[n-1].
func preEmphasis(samples []float64, coef float64) {
	prev := 0.0
	for i, s := range samples {
		samples[i] = s - coef*prev
		prev = s
	}
}

// noiseGate zeroes samples below the threshold amplitude.
func noiseGate(samples []float64, threshold float64) {
	for i, s := range samples {
		if math.Abs(s) < threshold {
			samples[i] = 0
		}
	}
}

// biquad is one second-order IIR section in direct form II transposed.
type biquad struct {
	b0, b1, b2, a1, a2 float64
	z1, z2             float64
}

func (f *biquad) process(x float64) float64 {
	y := f.b0*x + f.z1
	f.z1 = f.b1*x - f.a1*y + f.z2
	f.z2 = f.b2*x - f.a2*y
	return y
}

// highPass runs a Butterworth high-pass of order highPassOrder as a
// cascade of biquad sections designed via bilinear transform.
func highPass(samples []float64, sampleRate int, cutoffHz float64) []float64 {
	if cutoffHz <= 0 || len(samples) == 0 {
		return samples
	}
	sections := butterworthHighPass(highPassOrder, cutoffHz, float64(sampleRate))

	out := make([]float64, len(samples))
	copy(out, samples)
	for si := range sections {
		f := &sections[si]
		for i, x := range out {
			out[i] = f.process(x)
		}
	}
	return out
}

// butterworthHighPass returns order/2 biquad sections for an analog
// Butterworth prototype warped to the given cutoff. Order must be even.
func butterworthHighPass(order int, cutoffHz, sampleRate float64) []biquad {
	n := order / 2
	sections := make([]biquad, 0, n)

	// Pre-warped analog cutoff for the bilinear transform.
	wc := math.Tan(math.Pi * cutoffHz / sampleRate)

	for k := 0; k < n; k++ {
		// Pole pair angle on the Butterworth circle.
		theta := math.Pi * float64(2*k+1) / float64(2*order)
		q := 1.0 / (2.0 * math.Cos(theta))

		norm := 1.0 + wc/q + wc*wc
		sections = append(sections, biquad{
			b0: 1.0 / norm,
			b1: -2.0 / norm,
			b2: 1.0 / norm,
			a1: 2.0 * (wc*wc - 1.0) / norm,
			a2: (1.0 - wc/q + wc*wc) / norm,
		})
	}
	return sections
}

// Downsample reduces the input from originalRate to targetRate by boxcar
// averaging. The ratio must be a positive integer.
func Downsample(input []float64, originalRate, targetRate int) ([]float64, error) {
	if originalRate <= 0 || targetRate <= 0 {
		return nil, errors.New("sample rates must be positive")
	}
	if originalRate == targetRate {
		return input, nil
	}
	if originalRate < targetRate || originalRate%targetRate != 0 {
		return nil, errors.New("original rate must be an integer multiple of target rate")
	}

	ratio := originalRate / targetRate
	out := make([]float64, 0, len(input)/ratio+1)
	for i := 0; i < len(input); i += ratio {
		end := i + ratio
		if end > len(input) {
			end = len(input)
		}
		sum := 0.0
		for j := i; j < end; j++ {
			sum += input[j]
		}
		out = append(out, sum/float64(end-i))
	}
	return out, nil
}
