package audio

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestWAVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")
	sampleRate := 8000

	in := make([]float64, sampleRate)
	for i := range in {
		in[i] = 0.5 * math.Sin(2*math.Pi*440*float64(i)/float64(sampleRate))
	}

	if err := WriteWAV(path, in, sampleRate); err != nil {
		t.Fatalf("WriteWAV failed: %v", err)
	}

	out, sr, err := ReadWAV(path)
	if err != nil {
		t.Fatalf("ReadWAV failed: %v", err)
	}
	if sr != sampleRate {
		t.Errorf("Sample rate = %d, want %d", sr, sampleRate)
	}
	if len(out) != len(in) {
		t.Fatalf("Got %d samples, want %d", len(out), len(in))
	}
	// 16-bit quantization bounds the round-trip error.
	for i := range in {
		if math.Abs(out[i]-in[i]) > 1.0/16384 {
			t.Fatalf("Sample %d = %v, want %v within 16-bit tolerance", i, out[i], in[i])
		}
	}
}

func TestReadWAVInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "not-audio.wav")
	if err := os.WriteFile(path, []byte("definitely not a wav"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := ReadWAV(path); err == nil {
		t.Error("Expected error for a non-WAV file")
	}
}

func TestReadWAVMissingFile(t *testing.T) {
	if _, _, err := ReadWAV(filepath.Join(t.TempDir(), "missing.wav")); err == nil {
		t.Error("Expected error for a missing file")
	}
}

func TestDecodeEncodePCM16(t *testing.T) {
	in := []float64{0, 0.5, -0.5, 0.999, -1}

	round := DecodePCM16(EncodePCM16(in))
	if len(round) != len(in) {
		t.Fatalf("Got %d samples, want %d", len(round), len(in))
	}
	for i := range in {
		if math.Abs(round[i]-in[i]) > 1.0/16384 {
			t.Errorf("Sample %d = %v, want %v", i, round[i], in[i])
		}
	}
}

func TestDecodePCM16OddTail(t *testing.T) {
	samples := DecodePCM16([]byte{0x00, 0x40, 0xFF})
	if len(samples) != 1 {
		t.Fatalf("Got %d samples, want 1 (trailing byte ignored)", len(samples))
	}
}

func TestEncodePCM16Clips(t *testing.T) {
	out := DecodePCM16(EncodePCM16([]float64{3.0, -3.0}))
	if out[0] < 0.99 || out[1] > -0.99 {
		t.Errorf("Out-of-range samples not clipped: %v", out)
	}
}

func TestPeakNormalize(t *testing.T) {
	samples := []float64{0.1, -0.25, 0.2}
	PeakNormalize(samples)
	if samples[1] != -1.0 {
		t.Errorf("Peak sample = %v, want -1", samples[1])
	}

	silence := []float64{0, 0}
	PeakNormalize(silence)
	if silence[0] != 0 || silence[1] != 0 {
		t.Errorf("Silence altered: %v", silence)
	}
}
