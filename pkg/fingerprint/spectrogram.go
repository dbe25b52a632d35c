package fingerprint

import (
	"errors"
	"math"
	"math/cmplx"
	"sort"

	"github.com/mjibson/go-dsp/fft"
)

const dbFloor = 1e-10

// Spectrogram computes a magnitude spectrogram from mono samples at
// p.SampleRate. Frames are chronological; each frame holds the bins of
// the cropped band [p.MinFreqHz, p.MaxFreqHz) on a dB scale referenced
// to the matrix maximum, lightly median-filtered. Deterministic for
// identical input and parameters.
//
// Input shorter than one window returns ErrTooShort; callers treat that
// as "cannot fingerprint", not a failure.
func Spectrogram(samples []float64, p Params) ([][]float64, error) {
	if len(samples) < p.WindowSize {
		return nil, ErrTooShort
	}

	if p.Preprocess {
		samples = PreprocessSignal(samples, p.SampleRate, p.MinFreqHz)
	}

	window := hann(p.WindowSize)
	minBin, maxBin := p.BandBins()
	if maxBin <= minBin {
		return nil, errors.New("frequency band is empty for this window size")
	}

	nFrames := 1 + (len(samples)-p.WindowSize)/p.HopSize
	spec := make([][]float64, 0, nFrames)

	frame := make([]float64, p.WindowSize)
	for start := 0; start+p.WindowSize <= len(samples); start += p.HopSize {
		copy(frame, samples[start:start+p.WindowSize])
		for i := range frame {
			frame[i] *= window[i]
		}

		spectrum := fft.FFTReal(frame)

		mags := make([]float64, maxBin-minBin)
		for i := minBin; i < maxBin; i++ {
			mags[i-minBin] = cmplx.Abs(spectrum[i])
		}
		spec = append(spec, mags)
	}

	toDecibels(spec)
	medianFilter3x3(spec)

	return spec, nil
}

// ErrTooShort marks input with fewer samples than one analysis window.
var ErrTooShort = errors.New("input shorter than analysis window")

func hann(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n-1))
	}
	return w
}

// toDecibels rescales magnitudes to dB relative to the matrix maximum,
// so the loudest cell sits at 0 dB and everything else is negative.
func toDecibels(spec [][]float64) {
	ref := dbFloor
	for _, frame := range spec {
		for _, m := range frame {
			if m > ref {
				ref = m
			}
		}
	}
	for _, frame := range spec {
		for i, m := range frame {
			frame[i] = 20 * math.Log10((m+dbFloor)/ref)
		}
	}
}

// medianFilter3x3 replaces each cell with the median of its 3x3
// neighborhood, suppressing isolated noise spikes. Edges use the cells
// that exist.
func medianFilter3x3(spec [][]float64) {
	if len(spec) == 0 || len(spec[0]) == 0 {
		return
	}
	nFrames := len(spec)
	nBins := len(spec[0])

	orig := make([][]float64, nFrames)
	for t := range spec {
		orig[t] = append([]float64(nil), spec[t]...)
	}

	var window [9]float64
	for t := 0; t < nFrames; t++ {
		for f := 0; f < nBins; f++ {
			n := 0
			for dt := -1; dt <= 1; dt++ {
				tt := t + dt
				if tt < 0 || tt >= nFrames {
					continue
				}
				for df := -1; df <= 1; df++ {
					ff := f + df
					if ff < 0 || ff >= nBins {
						continue
					}
					window[n] = orig[tt][ff]
					n++
				}
			}
			vals := window[:n]
			sort.Float64s(vals)
			spec[t][f] = vals[n/2]
		}
	}
}
