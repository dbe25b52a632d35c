package fingerprint

import "testing"

// flatSpec builds a frames x bins matrix filled with floor dB.
func flatSpec(frames, bins int, floor float64) [][]float64 {
	spec := make([][]float64, frames)
	for t := range spec {
		spec[t] = make([]float64, bins)
		for f := range spec[t] {
			spec[t][f] = floor
		}
	}
	return spec
}

func testPeakParams() Params {
	return Params{
		SampleRate:           8000,
		WindowSize:           1024,
		HopSize:              256,
		NeighborhoodTime:     6,
		NeighborhoodFreq:     6,
		AmplitudeThresholdDB: 20,
		TargetPeakDensity:    100,
	}
}

func TestExtractPeaksCraftedMatrix(t *testing.T) {
	p := testPeakParams()
	spec := flatSpec(40, 30, -80)
	spec[5][10] = 0
	spec[20][15] = -3
	spec[35][5] = -8

	peaks := ExtractPeaks(spec, p)

	if len(peaks) != 3 {
		t.Fatalf("Got %d peaks, want 3: %+v", len(peaks), peaks)
	}
	want := []Peak{
		{TimeIdx: 5, FreqIdx: 10, MagDB: 0},
		{TimeIdx: 20, FreqIdx: 15, MagDB: -3},
		{TimeIdx: 35, FreqIdx: 5, MagDB: -8},
	}
	for i, w := range want {
		if peaks[i] != w {
			t.Errorf("Peak %d = %+v, want %+v", i, peaks[i], w)
		}
	}
}

func TestExtractPeaksAmplitudeThreshold(t *testing.T) {
	p := testPeakParams()
	spec := flatSpec(40, 30, -80)
	spec[5][10] = 0
	spec[20][15] = -25 // below the 20 dB window under the maximum

	peaks := ExtractPeaks(spec, p)

	if len(peaks) != 1 {
		t.Fatalf("Got %d peaks, want 1", len(peaks))
	}
	if peaks[0].TimeIdx != 5 || peaks[0].FreqIdx != 10 {
		t.Errorf("Kept wrong peak: %+v", peaks[0])
	}
}

func TestExtractPeaksNeighborhoodSuppression(t *testing.T) {
	p := testPeakParams()
	spec := flatSpec(40, 30, -80)
	// Two candidates inside one neighborhood: only the stronger survives.
	spec[10][10] = 0
	spec[11][11] = -2

	peaks := ExtractPeaks(spec, p)

	if len(peaks) != 1 {
		t.Fatalf("Got %d peaks, want 1: %+v", len(peaks), peaks)
	}
	if peaks[0].TimeIdx != 10 || peaks[0].FreqIdx != 10 {
		t.Errorf("Survivor should be the stronger cell, got %+v", peaks[0])
	}
}

func TestExtractPeaksDensityCap(t *testing.T) {
	p := testPeakParams()
	p.TargetPeakDensity = 20

	// Spikes on a grid spaced wider than the neighborhood, magnitudes
	// descending so "strongest win" is observable.
	spec := flatSpec(70, 70, -80)
	count := 0
	for tt := 3; tt < 70; tt += 7 {
		for ff := 3; ff < 70; ff += 7 {
			spec[tt][ff] = -float64(count) * 0.1
			count++
		}
	}

	duration := float64(len(spec)) * p.FrameDuration()
	limit := int(p.TargetPeakDensity * duration)
	if count <= limit {
		t.Fatalf("Test setup broken: %d spikes does not exceed limit %d", count, limit)
	}

	peaks := ExtractPeaks(spec, p)

	if len(peaks) != limit {
		t.Errorf("Got %d peaks, want density cap of %d", len(peaks), limit)
	}
	for i := 1; i < len(peaks); i++ {
		if peaks[i].TimeIdx < peaks[i-1].TimeIdx {
			t.Fatal("Peaks not sorted by time after density cap")
		}
	}
	// The cap keeps the strongest candidates.
	for _, pk := range peaks {
		if pk.MagDB < -float64(limit)*0.1 {
			t.Errorf("Peak %+v should have been dropped before weaker ones", pk)
		}
	}
}

func TestExtractPeaksBandOffset(t *testing.T) {
	p := testPeakParams()
	p.MinFreqHz = 300 // minBin 38 at this window size

	spec := flatSpec(40, 30, -80)
	spec[5][5] = 0

	peaks := ExtractPeaks(spec, p)

	minBin, _ := p.BandBins()
	if len(peaks) != 1 {
		t.Fatalf("Got %d peaks, want 1", len(peaks))
	}
	if peaks[0].FreqIdx != 5+minBin {
		t.Errorf("FreqIdx = %d, want %d (crop offset restored)", peaks[0].FreqIdx, 5+minBin)
	}
}

func TestExtractPeaksEmpty(t *testing.T) {
	p := testPeakParams()

	if peaks := ExtractPeaks(nil, p); len(peaks) != 0 {
		t.Errorf("nil spectrogram produced %d peaks", len(peaks))
	}
	if peaks := ExtractPeaks([][]float64{}, p); len(peaks) != 0 {
		t.Errorf("Empty spectrogram produced %d peaks", len(peaks))
	}
}
