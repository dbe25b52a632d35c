package fingerprint

import (
	"math"
	"testing"
)

func TestHighPassRejectsDC(t *testing.T) {
	samples := make([]float64, 8000)
	for i := range samples {
		samples[i] = 1.0
	}

	out := highPass(samples, 8000, 300)

	// After the filter transient dies out, a DC input should be gone.
	for i := 4000; i < len(out); i++ {
		if math.Abs(out[i]) > 1e-3 {
			t.Fatalf("Sample %d = %v, DC not rejected", i, out[i])
		}
	}
}

func TestHighPassPassesBand(t *testing.T) {
	samples := sineMix([]float64{1000}, 1.0, 8000)

	out := highPass(samples, 8000, 300)

	// A tone well above the cutoff keeps most of its energy.
	var inRMS, outRMS float64
	for i := 2000; i < len(samples); i++ {
		inRMS += samples[i] * samples[i]
		outRMS += out[i] * out[i]
	}
	if outRMS < 0.5*inRMS {
		t.Errorf("1 kHz tone attenuated too much: out/in energy = %.3f", outRMS/inRMS)
	}
}

func TestNoiseGate(t *testing.T) {
	samples := []float64{0.5, 0.005, -0.003, -0.8, 0.009}

	noiseGate(samples, 0.01)

	want := []float64{0.5, 0, 0, -0.8, 0}
	for i, w := range want {
		if samples[i] != w {
			t.Errorf("Sample %d = %v, want %v", i, samples[i], w)
		}
	}
}

func TestNormalize(t *testing.T) {
	samples := []float64{0.1, -0.5, 0.25}
	normalize(samples)
	if samples[1] != -1.0 {
		t.Errorf("Peak sample = %v, want -1", samples[1])
	}

	silence := []float64{0, 0, 0}
	normalize(silence)
	for i, s := range silence {
		if s != 0 {
			t.Errorf("Silence sample %d became %v", i, s)
		}
	}
}

func TestPreEmphasis(t *testing.T) {
	samples := []float64{1, 1, 1}
	preEmphasis(samples, 0.97)

	want := []float64{1, 1 - 0.97, 1 - 0.97}
	for i, w := range want {
		if math.Abs(samples[i]-w) > 1e-12 {
			t.Errorf("Sample %d = %v, want %v", i, samples[i], w)
		}
	}
}

func TestPreprocessSignalDoesNotMutateInput(t *testing.T) {
	samples := sineMix([]float64{440}, 0.2, 8000)
	orig := append([]float64(nil), samples...)

	PreprocessSignal(samples, 8000, 300)

	for i := range samples {
		if samples[i] != orig[i] {
			t.Fatalf("Input sample %d mutated: %v vs %v", i, samples[i], orig[i])
		}
	}
}

func TestDownsample(t *testing.T) {
	out, err := Downsample([]float64{1, 3, 5, 7}, 4, 2)
	if err != nil {
		t.Fatalf("Downsample failed: %v", err)
	}
	want := []float64{2, 6}
	if len(out) != len(want) {
		t.Fatalf("Got %d samples, want %d", len(out), len(want))
	}
	for i, w := range want {
		if out[i] != w {
			t.Errorf("Sample %d = %v, want %v", i, out[i], w)
		}
	}
}

func TestDownsampleSameRate(t *testing.T) {
	in := []float64{1, 2, 3}
	out, err := Downsample(in, 8000, 8000)
	if err != nil {
		t.Fatalf("Downsample failed: %v", err)
	}
	if len(out) != len(in) {
		t.Errorf("Same-rate downsample changed length: %d vs %d", len(out), len(in))
	}
}

func TestDownsampleNonIntegerRatio(t *testing.T) {
	if _, err := Downsample([]float64{1, 2, 3}, 44100, 8000); err == nil {
		t.Error("Expected error for non-integer rate ratio")
	}
	if _, err := Downsample([]float64{1, 2, 3}, 8000, 16000); err == nil {
		t.Error("Expected error when upsampling")
	}
	if _, err := Downsample([]float64{1, 2, 3}, 0, 8000); err == nil {
		t.Error("Expected error for zero rate")
	}
}
