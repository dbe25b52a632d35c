package fingerprint

import "math"

// sineMix synthesizes a mono signal that is the sum of the given
// frequencies at equal amplitude, scaled to peak at +/-0.8.
func sineMix(freqs []float64, durationSec float64, sampleRate int) []float64 {
	n := int(durationSec * float64(sampleRate))
	samples := make([]float64, n)
	for i := range samples {
		t := float64(i) / float64(sampleRate)
		for _, f := range freqs {
			samples[i] += math.Sin(2 * math.Pi * f * t)
		}
	}
	peak := 0.0
	for _, s := range samples {
		if a := math.Abs(s); a > peak {
			peak = a
		}
	}
	if peak > 0 {
		for i := range samples {
			samples[i] = samples[i] / peak * 0.8
		}
	}
	return samples
}
