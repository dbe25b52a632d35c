// Package fingerprint turns mono PCM audio into compact, shift-invariant
// fingerprint records: STFT spectrogram, constellation peak extraction,
// and combinatorial anchor/target hashing.
package fingerprint

import (
	"errors"

	"github.com/nmalhotra/waveprint/pkg/model"
)

// Set is the fingerprint output for one audio signal. It is generated
// fresh per ingestion or query and never mutated afterwards.
type Set []model.Record

// Hashes returns the distinct hash values in the set.
func (s Set) Hashes() []uint32 {
	seen := make(map[uint32]struct{}, len(s))
	out := make([]uint32, 0, len(s))
	for _, r := range s {
		if _, ok := seen[r.Hash]; ok {
			continue
		}
		seen[r.Hash] = struct{}{}
		out = append(out, r.Hash)
	}
	return out
}

// Generate runs the full pipeline on mono samples and returns the
// fingerprint set for songID. Unusable input (empty, silent, too short,
// or a sample rate the preset cannot decimate to) returns an empty set,
// never an error: "no fingerprints" is a valid terminal state the caller
// must interpret as "cannot identify".
func Generate(samples []float64, sampleRate int, songID string, p Params) Set {
	if len(samples) == 0 || sampleRate <= 0 {
		return Set{}
	}
	if isSilent(samples) {
		return Set{}
	}

	if sampleRate != p.SampleRate {
		down, err := Downsample(samples, sampleRate, p.SampleRate)
		if err != nil {
			return Set{}
		}
		samples = down
	}

	spec, err := Spectrogram(samples, p)
	if err != nil {
		if errors.Is(err, ErrTooShort) {
			return Set{}
		}
		return Set{}
	}

	peaks := ExtractPeaks(spec, p)
	if len(peaks) == 0 {
		return Set{}
	}

	return Set(HashPeaks(peaks, songID, p))
}

// isSilent reports whether the signal carries no usable energy. The dB
// scale is referenced to the spectrogram's own maximum, so silence has
// to be rejected before it degenerates into a flat matrix of ties.
func isSilent(samples []float64) bool {
	const floor = 1e-8
	for _, s := range samples {
		if s > floor || s < -floor {
			return false
		}
	}
	return true
}
